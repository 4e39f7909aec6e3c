package symbol

import (
	"testing"

	"github.com/chazu/emberc/pkg/types"
)

func TestDeclareVariableAndDuplicate(t *testing.T) {
	tbl := NewTable()
	name := tbl.Names.Intern("x")

	sym, err := tbl.DeclareVariable(NullSym, name, types.Integer, 1, 2)
	if err != nil {
		t.Fatalf("DeclareVariable: %v", err)
	}
	if sym.Kind != SymVariable || sym.VarType != types.Integer {
		t.Errorf("got %+v", sym)
	}

	if _, err := tbl.DeclareVariable(NullSym, name, types.String, 1, 2); err == nil {
		t.Fatal("expected DuplicateSymbol error on second declaration")
	}
}

func TestDeclareFunctionOverloadSentinel(t *testing.T) {
	tbl := NewTable()
	name := tbl.Names.Intern("f")
	sigA := tbl.EnsureFuncSig([]types.TypeID{types.Integer}, types.Dynamic)
	sigB := tbl.EnsureFuncSig([]types.TypeID{types.String}, types.Dynamic)

	fs1, err := tbl.DeclareFunction(NullSym, name, sigA, 0, 0, types.Integer)
	if err != nil {
		t.Fatalf("first DeclareFunction: %v", err)
	}
	sym := tbl.Symbol(fs1.SymID)
	if sym.FuncSymID == ManyFuncSyms {
		t.Fatal("a single overload must not be the ManyFuncSyms sentinel")
	}

	if _, err := tbl.DeclareFunction(NullSym, name, sigB, 0, 0, types.Integer); err != nil {
		t.Fatalf("second DeclareFunction: %v", err)
	}
	if sym.FuncSymID != ManyFuncSyms {
		t.Errorf("two overloads of %q should flip to ManyFuncSyms, got %d", "f", sym.FuncSymID)
	}

	if _, err := tbl.DeclareFunction(NullSym, name, sigA, 0, 0, types.Integer); err == nil {
		t.Fatal("expected error re-declaring the same (sym, sig) overload")
	}
}

func TestEnsureFuncSigInterns(t *testing.T) {
	tbl := NewTable()
	a := tbl.EnsureFuncSig([]types.TypeID{types.Integer, types.String}, types.Boolean)
	b := tbl.EnsureFuncSig([]types.TypeID{types.Integer, types.String}, types.Boolean)
	if a != b {
		t.Errorf("EnsureFuncSig should intern identical signatures, got %d and %d", a, b)
	}
	c := tbl.EnsureFuncSig([]types.TypeID{types.Integer}, types.Boolean)
	if a == c {
		t.Error("different signatures must not share an id")
	}
	sig := tbl.FuncSigByID(a)
	if !sig.ReqCallTypeCheck {
		t.Error("a signature with a concrete (non-any/dynamic) param should require a call type check")
	}
}

func TestUntypedSigForArityCache(t *testing.T) {
	tbl := NewTable()
	id := tbl.EnsureFuncSig([]types.TypeID{types.Dynamic, types.Any}, types.Dynamic)
	got, ok := tbl.UntypedSigForArity(2)
	if !ok || got != id {
		t.Errorf("UntypedSigForArity(2) = %d, %v; want %d, true", got, ok, id)
	}
	if _, ok := tbl.UntypedSigForArity(3); ok {
		t.Error("no 3-arity untyped signature has been interned yet")
	}
}

func TestResolveDistinctRejectsOverloadFamily(t *testing.T) {
	tbl := NewTable()
	name := tbl.Names.Intern("f")
	sigA := tbl.EnsureFuncSig([]types.TypeID{types.Integer}, types.Dynamic)
	sigB := tbl.EnsureFuncSig([]types.TypeID{types.String}, types.Dynamic)
	tbl.DeclareFunction(NullSym, name, sigA, 0, 0, types.Integer)
	tbl.DeclareFunction(NullSym, name, sigB, 0, 0, types.Integer)

	sym, err := tbl.ResolveDistinct(NullSym, name)
	if sym != nil || err == nil {
		t.Errorf("ResolveDistinct on an overloaded name should fail, got sym=%v err=%v", sym, err)
	}
}

func TestResolveDistinctUnknownNameIsNotAnError(t *testing.T) {
	tbl := NewTable()
	sym, err := tbl.ResolveDistinct(NullSym, tbl.Names.Intern("ghost"))
	if sym != nil || err != nil {
		t.Errorf("unknown name should report (nil, nil), got (%v, %v)", sym, err)
	}
}

func TestResolveForCallExactMatch(t *testing.T) {
	tbl := NewTable()
	name := tbl.Names.Intern("add")
	sig := tbl.EnsureFuncSig([]types.TypeID{types.Integer, types.Integer}, types.Dynamic)
	want, _ := tbl.DeclareFunction(NullSym, name, sig, 5, 0, types.Integer)

	res := tbl.ResolveForCall(NullSym, name, []types.TypeID{types.Integer, types.Integer}, false, nil)
	if res.Unknown || res.Err != nil || res.Found == nil {
		t.Fatalf("ResolveForCall should have matched exactly, got %+v", res)
	}
	if res.Found.ID != want.ID {
		t.Errorf("resolved wrong overload: got %d, want %d", res.Found.ID, want.ID)
	}
}

func TestResolveForCallUnknownName(t *testing.T) {
	tbl := NewTable()
	res := tbl.ResolveForCall(NullSym, tbl.Names.Intern("ghost"), nil, false, nil)
	if !res.Unknown {
		t.Error("expected Unknown for a name with no declaration anywhere")
	}
}

func TestResolveForCallWalksEnclosingScopes(t *testing.T) {
	tbl := NewTable()
	outer := SymID(1)
	name := tbl.Names.Intern("helper")
	sig := tbl.EnsureFuncSig([]types.TypeID{types.Integer}, types.Dynamic)
	want, _ := tbl.DeclareFunction(outer, name, sig, 0, 0, types.Integer)

	res := tbl.ResolveForCall(NullSym, name, []types.TypeID{types.Integer}, false, []SymID{outer})
	if res.Found == nil || res.Found.ID != want.ID {
		t.Fatalf("expected to find %q via the enclosing scope, got %+v", "helper", res)
	}
}

func TestResolveForCallDynamicArgDefersToRuntime(t *testing.T) {
	tbl := NewTable()
	name := tbl.Names.Intern("f")
	sig := tbl.EnsureFuncSig([]types.TypeID{types.Integer}, types.Dynamic)
	want, _ := tbl.DeclareFunction(NullSym, name, sig, 0, 0, types.Integer)

	res := tbl.ResolveForCall(NullSym, name, []types.TypeID{types.String}, true, nil)
	if res.Err != nil || res.Found == nil || res.Found.ID != want.ID {
		t.Fatalf("a dynamic arg with a single candidate should resolve to it, got %+v", res)
	}
}

func TestResolveForCallDynamicArgAmbiguous(t *testing.T) {
	tbl := NewTable()
	name := tbl.Names.Intern("f")
	sigA := tbl.EnsureFuncSig([]types.TypeID{types.Integer}, types.Dynamic)
	sigB := tbl.EnsureFuncSig([]types.TypeID{types.String}, types.Dynamic)
	tbl.DeclareFunction(NullSym, name, sigA, 0, 0, types.Integer)
	tbl.DeclareFunction(NullSym, name, sigB, 0, 0, types.Integer)

	res := tbl.ResolveForCall(NullSym, name, []types.TypeID{types.Boolean}, true, nil)
	if res.Err == nil {
		t.Fatal("a dynamic arg with multiple overloads must report ambiguity")
	}
}

func TestRegisterModuleGivesStableUUID(t *testing.T) {
	tbl := NewTable()
	name := tbl.Names.Intern("math")
	m := tbl.RegisterModule(name)

	got, ok := tbl.Module(name)
	if !ok || got.ID != m.ID {
		t.Fatalf("Module lookup did not return the same entry just registered")
	}
	var zero [16]byte
	if [16]byte(m.ID) == zero {
		t.Error("RegisterModule should assign a non-zero uuid identity")
	}
}

func TestDeclareObjectAllocatesDistinctContiguousTypeIDs(t *testing.T) {
	tbl := NewTable()
	p, err := tbl.DeclareObject(NullSym, tbl.Names.Intern("Point"), ModuleID{})
	if err != nil {
		t.Fatalf("DeclareObject(Point): %v", err)
	}
	v, err := tbl.DeclareObject(NullSym, tbl.Names.Intern("Vector"), ModuleID{})
	if err != nil {
		t.Fatalf("DeclareObject(Vector): %v", err)
	}

	if p.RuntimeTypeID != types.FirstObjectType {
		t.Errorf("first object's RuntimeTypeID = %v, want %v", p.RuntimeTypeID, types.FirstObjectType)
	}
	if v.RuntimeTypeID != types.FirstObjectType+1 {
		t.Errorf("second object's RuntimeTypeID = %v, want %v", v.RuntimeTypeID, types.FirstObjectType+1)
	}
	if p.RuntimeTypeID == v.RuntimeTypeID {
		t.Error("two distinct object declarations must not share a runtime type id")
	}
}

func TestDeclareObjectFieldsAndMethodsNamespacedUnderOwnSymID(t *testing.T) {
	tbl := NewTable()
	obj, err := tbl.DeclareObject(NullSym, tbl.Names.Intern("Point"), ModuleID{})
	if err != nil {
		t.Fatalf("DeclareObject: %v", err)
	}

	fieldName := tbl.Names.Intern("x")
	if _, err := tbl.DeclareVariable(obj.ID, fieldName, types.Integer, 0, 0); err != nil {
		t.Fatalf("DeclareVariable(field x under object): %v", err)
	}

	// A free top-level variable of the same name, under the root parent,
	// must not collide with the object's field of the same name.
	if _, err := tbl.DeclareVariable(NullSym, fieldName, types.Integer, 0, 0); err != nil {
		t.Fatalf("top-level %q should be a distinct symbol from the object's field: %v", "x", err)
	}

	sig := tbl.EnsureFuncSig([]types.TypeID{types.Dynamic}, types.Dynamic)
	methodName := tbl.Names.Intern("move")
	if _, err := tbl.DeclareFunction(obj.ID, methodName, sig, 0, 0, types.Dynamic); err != nil {
		t.Fatalf("DeclareFunction(method move under object): %v", err)
	}
	if _, err := tbl.DeclareFunction(NullSym, methodName, sig, 0, 0, types.Dynamic); err != nil {
		t.Fatalf("a free function named %q should be a distinct symbol from the method: %v", "move", err)
	}
}

func TestSymbolAndFuncSymOutOfRangeReturnNil(t *testing.T) {
	tbl := NewTable()
	if tbl.Symbol(NullSym) != nil {
		t.Error("Symbol(NullSym) should be nil")
	}
	if tbl.Symbol(999) != nil {
		t.Error("Symbol(999) should be nil when unknown")
	}
	if tbl.FuncSym(999) != nil {
		t.Error("FuncSym(999) should be nil when unknown")
	}
}
