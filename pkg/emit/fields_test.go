package emit

import (
	"testing"

	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/semantic"
	"github.com/chazu/emberc/pkg/types"
)

// A bare identifier that getOrLookupVar resolved to a receiver field
// (VarObjectMemberAlias) must desugar to a field read/write against self,
// not an ordinary local register copy — the alias's own register slot is
// never written, so copying it directly would read garbage.

func TestEmitIdentToObjectMemberAliasReadsFieldOffSelf(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("self", semantic.VarParam, types.Dynamic)
		b.Declare("x", semantic.VarObjectMemberAlias, types.Dynamic)
	})

	n := localIdent(1, "x")
	em.emitIdentTo(n, block.MaxLocals, false)

	if !containsOp(em.Chunk, bytecode.OpField) {
		t.Fatal("bare reference to a receiver field should emit OpField, not a plain local copy")
	}
}

func TestEmitIdentToObjectMemberAliasRetainUsesFieldRetain(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("self", semantic.VarParam, types.Dynamic)
		b.Declare("x", semantic.VarObjectMemberAlias, types.Dynamic)
	})

	n := localIdent(1, "x")
	em.emitIdentTo(n, block.MaxLocals, true)

	if !containsOp(em.Chunk, bytecode.OpFieldRetain) {
		t.Fatal("a retained read of a receiver field should emit OpFieldRetain")
	}
}

func TestEmitAssignObjectMemberAliasWritesSetFieldOffSelf(t *testing.T) {
	em, _ := newTestEmitter(func(b *semantic.Block) {
		b.Declare("self", semantic.VarParam, types.Dynamic)
		b.Declare("x", semantic.VarObjectMemberAlias, types.Dynamic)
	})

	assign := &ast.Node{ID: 1, Kind: ast.KindAssign, Left: localIdent(2, "x"), Right: &ast.Node{ID: 3, Kind: ast.KindIntLit, IntValue: 5}}
	em.emitAssign(assign, NoValue)

	if !containsOp(em.Chunk, bytecode.OpSetFieldRelease) {
		t.Fatal("assigning a receiver field should emit OpSetFieldRelease, not a plain local copy")
	}
}

// When a lambda nested inside a method captures a field by name,
// getOrLookupVar synthesizes a VarParentObjectMemberAlias that chains
// through a captured (and therefore boxed) self, rather than capturing
// the field's own (never-written) register slot.

func TestEmitIdentToParentObjectMemberAliasUnboxesSelfBeforeFieldRead(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("self", semantic.VarParentLocalAlias, types.Dynamic)
		selfV, _ := b.Lookup("self")
		selfV.IsBoxed = true
		b.Declare("y", semantic.VarParentObjectMemberAlias, types.Dynamic)
	})

	n := localIdent(1, "y")
	em.emitIdentTo(n, block.MaxLocals, false)

	if !containsOp(em.Chunk, bytecode.OpBoxValue) {
		t.Error("a captured self must be unboxed before the field read")
	}
	if !containsOp(em.Chunk, bytecode.OpField) {
		t.Fatal("a captured receiver field reference should still emit OpField")
	}
}
