package debugsym

import "testing"

func TestLookupFindsGreatestPCNotExceeding(t *testing.T) {
	tb := NewTable()
	tb.Add(10, 1, NoEndLocalsPC)
	tb.Add(30, 2, 25)
	tb.Add(20, 3, NoEndLocalsPC)

	got, ok := tb.Lookup(22)
	if !ok || got.NodeID != 3 {
		t.Fatalf("Lookup(22) = %+v, %v; want the pc=20 entry", got, ok)
	}

	got, ok = tb.Lookup(30)
	if !ok || got.NodeID != 2 {
		t.Fatalf("Lookup(30) = %+v, %v; want the exact pc=30 entry", got, ok)
	}
}

func TestLookupBeforeFirstEntry(t *testing.T) {
	tb := NewTable()
	tb.Add(10, 1, NoEndLocalsPC)

	if _, ok := tb.Lookup(5); ok {
		t.Error("Lookup before the first entry should report false")
	}
}

func TestLookupEmptyTable(t *testing.T) {
	tb := NewTable()
	if _, ok := tb.Lookup(0); ok {
		t.Error("Lookup on an empty table should report false")
	}
}

func TestAllReturnsSortedEntries(t *testing.T) {
	tb := NewTable()
	tb.Add(50, 1, NoEndLocalsPC)
	tb.Add(10, 2, NoEndLocalsPC)
	tb.Add(30, 3, NoEndLocalsPC)

	all := tb.All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].PC > all[i].PC {
			t.Fatalf("All() is not sorted by PC: %+v", all)
		}
	}
}
