package emit

import (
	"testing"

	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/semantic"
)

// TestEmitCoinitToEmitsCoinitWithArgsPacked is spec.md §6's scenario S4
// (`var f = coinit co()`): the launched call's callee and arguments are
// packed contiguously and a single OpCoinit carries argStart/numArgs/dst.
func TestEmitCoinitToEmitsCoinitWithArgsPacked(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("co", semantic.VarParam, 0)
	})

	call := &ast.Node{ID: 2, Kind: ast.KindCall, Left: localIdent(3, "co"), Children: &ast.Node{ID: 4, Kind: ast.KindIntLit, IntValue: 1}}
	coinit := &ast.Node{ID: 1, Kind: ast.KindCoinit, Left: call}

	em.emitCoinitTo(coinit, block.MaxLocals)

	if !containsOp(em.Chunk, bytecode.OpCoinit) {
		t.Fatal("coinit should emit OpCoinit")
	}
	if len(em.Debug.All()) != 1 {
		t.Error("a coinit site must register a DebugSym so the runtime can unwind through it")
	}
}

// TestEmitCoresumeToEmitsCoresumeAgainstFiberSlot covers the bare
// `coresume f` statement from scenario S4.
func TestEmitCoresumeToEmitsCoresumeAgainstFiberSlot(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("f", semantic.VarParam, 0)
	})

	coresume := &ast.Node{ID: 1, Kind: ast.KindCoresume, Left: localIdent(2, "f")}
	em.emitCoresumeTo(coresume, block.MaxLocals)

	if !containsOp(em.Chunk, bytecode.OpCoresume) {
		t.Fatal("coresume should emit OpCoresume")
	}
	if len(em.Debug.All()) != 1 {
		t.Error("a coresume site must register a DebugSym so the runtime can unwind through it")
	}
}

// TestEmitStmtCoresumeAsBareStatementDispatchesThroughExprTo covers
// EmitStmt's handling of a bare `coresume f` statement line (scenario
// S4's second and third lines), not wrapped in an assignment.
func TestEmitStmtCoresumeAsBareStatementDispatchesThroughExprTo(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("f", semantic.VarParam, 0)
	})

	coresume := &ast.Node{ID: 1, Kind: ast.KindCoresume, Left: localIdent(2, "f")}
	_ = block
	em.EmitStmt(coresume)

	if !containsOp(em.Chunk, bytecode.OpCoresume) {
		t.Fatal("a bare coresume statement should still emit OpCoresume")
	}
}
