package emit

import (
	"testing"

	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/semantic"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

func TestEmitExprToElidesUnusedPureExpression(t *testing.T) {
	em, _ := newTestEmitter(func(b *semantic.Block) {})
	n := &ast.Node{ID: 1, Kind: ast.KindIntLit, IntValue: 1}

	res := em.EmitExprTo(n, 0, false, false)
	if res.Slot != NoValue {
		t.Errorf("an unused pure expression should return NoValue, got slot %d", res.Slot)
	}
	if len(em.Chunk.Code) != 0 {
		t.Error("an unused pure expression should emit nothing")
	}
}

func TestEmitExprToNilNodeIsANoop(t *testing.T) {
	em, _ := newTestEmitter(func(b *semantic.Block) {})
	res := em.EmitExprTo(nil, 0, false, true)
	if res.Slot != NoValue || res.Type != types.None {
		t.Errorf("EmitExprTo(nil) = %+v, want {NoValue, None}", res)
	}
}

func TestEmitExprToLiteralsDispatchToConstOrTrueFalseNone(t *testing.T) {
	cases := []struct {
		name string
		n    *ast.Node
		want bytecode.Op
	}{
		{"int", &ast.Node{ID: 1, Kind: ast.KindIntLit, IntValue: 1}, bytecode.OpConst},
		{"float", &ast.Node{ID: 1, Kind: ast.KindFloatLit, FloatValue: 1.5}, bytecode.OpConst},
		{"string", &ast.Node{ID: 1, Kind: ast.KindStringLit, StringValue: "hi"}, bytecode.OpConst},
		{"boolTrue", &ast.Node{ID: 1, Kind: ast.KindBoolLit, BoolValue: true}, bytecode.OpTrue},
		{"boolFalse", &ast.Node{ID: 1, Kind: ast.KindBoolLit, BoolValue: false}, bytecode.OpFalse},
		{"none", &ast.Node{ID: 1, Kind: ast.KindNoneLit}, bytecode.OpNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			em, _ := newTestEmitter(func(b *semantic.Block) {})
			em.EmitExprTo(c.n, 0, false, true)
			if got := lastOp(em.Chunk); got != c.want {
				t.Errorf("%s: last op = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestEmitExprToSymbolLitEmitsTagLiteral(t *testing.T) {
	em, _ := newTestEmitter(func(b *semantic.Block) {})
	n := &ast.Node{ID: 1, Kind: ast.KindSymbolLit, StringValue: "oops"}

	em.EmitExprTo(n, 0, false, true)
	if got := lastOp(em.Chunk); got != bytecode.OpTagLiteral {
		t.Errorf("a symbol literal should emit OpTagLiteral, got %v", got)
	}
	if !isPure(n) {
		t.Error("a symbol literal is a compile-time-known constant and should be pure")
	}
}

// TestEmitIdentToLocalUsesTheNullCompactIDZeroValueTrapCorrectly exercises
// the exact convention the analyzer's KindIdent case relies on: a local
// reference's ResolvedSymbol must be the explicit NullCompactID sentinel
// (all bits set), not the Go zero value, or emitIdentTo would mistake it
// for a resolved static Symbol with id 0.
func TestEmitIdentToLocalUsesTheNullCompactIDZeroValueTrapCorrectly(t *testing.T) {
	em, _ := newTestEmitter(func(b *semantic.Block) {
		b.Declare("x", semantic.VarLocal, types.Integer)
	})

	n := localIdent(1, "x")
	em.emitIdentTo(n, 0, false)
	if got := lastOp(em.Chunk); got != bytecode.OpCopy {
		t.Errorf("a correctly null-sentinelled local ident should resolve via the block, got %v", got)
	}

	// Now show the failure mode a bare zero-value ResolvedSymbol would hit:
	// it satisfies !sym.IsNull(), so emitIdentTo takes the static-var path
	// and never touches the local at all.
	em2, _ := newTestEmitter(func(b *semantic.Block) {
		b.Declare("x", semantic.VarLocal, types.Integer)
	})
	zeroValue := &ast.Node{ID: 1, Kind: ast.KindIdent, Name: "x"} // ResolvedSymbol left at Go's zero value
	em2.emitIdentTo(zeroValue, 0, false)
	if got := lastOp(em2.Chunk); got != bytecode.OpStaticVar {
		t.Fatalf("zero-value ResolvedSymbol should be mistaken for a resolved static var (id 0), got %v — if this changed, the NullCompactID convention moved", got)
	}
}

func TestEmitIdentToStaticFuncSymbol(t *testing.T) {
	em, _ := newTestEmitter(func(b *semantic.Block) {})
	nameID := em.Table.Names.Intern("f")
	sig := em.Table.EnsureFuncSig(nil, types.Dynamic)
	fs, err := em.Table.DeclareFunction(symbol.NullSym, nameID, sig, 0, 0, types.Dynamic)
	if err != nil {
		t.Fatalf("DeclareFunction: %v", err)
	}

	n := &ast.Node{ID: 1, Kind: ast.KindIdent, Name: "f", ResolvedSymbol: int64(symbol.MakeFuncSymCompactID(fs.ID))}
	em.emitIdentTo(n, 0, false)
	if got := lastOp(em.Chunk); got != bytecode.OpStaticFunc {
		t.Errorf("an ident resolved to a FuncSym should emit OpStaticFunc, got %v", got)
	}
}

func TestEmitIdentToBoxedLocalUsesBoxValueOps(t *testing.T) {
	em, _ := newTestEmitter(func(b *semantic.Block) {
		lv := b.Declare("v", semantic.VarLocal, types.Integer)
		lv.IsBoxed = true
	})

	n := localIdent(1, "v")
	em.emitIdentTo(n, 0, true)
	if got := lastOp(em.Chunk); got != bytecode.OpBoxValueRetain {
		t.Errorf("a retained read of a boxed local should emit OpBoxValueRetain, got %v", got)
	}

	em2, _ := newTestEmitter(func(b *semantic.Block) {
		lv := b.Declare("v", semantic.VarLocal, types.Integer)
		lv.IsBoxed = true
	})
	em2.emitIdentTo(localIdent(1, "v"), 0, false)
	if got := lastOp(em2.Chunk); got != bytecode.OpBoxValue {
		t.Errorf("a non-retained read of a boxed local should emit OpBoxValue, got %v", got)
	}
}

func TestIsPureDistinguishesLiteralsAndIdentsFromEverythingElse(t *testing.T) {
	pure := []*ast.Node{
		{Kind: ast.KindIntLit}, {Kind: ast.KindFloatLit}, {Kind: ast.KindStringLit},
		{Kind: ast.KindBoolLit}, {Kind: ast.KindNoneLit}, {Kind: ast.KindIdent},
	}
	for _, n := range pure {
		if !isPure(n) {
			t.Errorf("%v should be pure", n.Kind)
		}
	}
	impure := []*ast.Node{
		{Kind: ast.KindCall}, {Kind: ast.KindBinary}, {Kind: ast.KindAssign}, {Kind: ast.KindField},
	}
	for _, n := range impure {
		if isPure(n) {
			t.Errorf("%v should not be pure", n.Kind)
		}
	}
}
