package symbol

import "testing"

func TestInternReturnsStableID(t *testing.T) {
	ni := NewNameInterner()
	a := ni.Intern("foo")
	b := ni.Intern("foo")
	if a != b {
		t.Errorf("Intern(\"foo\") = %d then %d, want stable id", a, b)
	}
	if a == NoName {
		t.Error("a real name must not collide with NoName")
	}
}

func TestInternDistinctNamesGetDistinctIDs(t *testing.T) {
	ni := NewNameInterner()
	a := ni.Intern("foo")
	b := ni.Intern("bar")
	if a == b {
		t.Error("distinct names got the same id")
	}
}

func TestLookupWithoutInterning(t *testing.T) {
	ni := NewNameInterner()
	if _, ok := ni.Lookup("ghost"); ok {
		t.Error("Lookup should not find a name that was never interned")
	}
	id := ni.Intern("ghost")
	got, ok := ni.Lookup("ghost")
	if !ok || got != id {
		t.Errorf("Lookup(\"ghost\") = %d, %v; want %d, true", got, ok, id)
	}
}

func TestTextRoundTrip(t *testing.T) {
	ni := NewNameInterner()
	id := ni.Intern("widget")
	if got := ni.Text(id); got != "widget" {
		t.Errorf("Text(%d) = %q, want %q", id, got, "widget")
	}
}

func TestTextUnknownIDReturnsEmpty(t *testing.T) {
	ni := NewNameInterner()
	if got := ni.Text(999); got != "" {
		t.Errorf("Text(999) = %q, want empty string", got)
	}
}
