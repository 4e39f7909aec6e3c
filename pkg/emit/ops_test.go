package emit

import (
	"testing"

	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/semantic"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

func localIdent(id ast.NodeID, name string) *ast.Node {
	return &ast.Node{ID: id, Kind: ast.KindIdent, Name: name, ResolvedSymbol: int64(symbol.NullCompactID)}
}

func newTestEmitter(declare func(b *semantic.Block)) (*Emitter, *semantic.Block) {
	table := symbol.NewTable()
	block := semantic.NewBlock(0, false, false)
	declare(block)
	return NewEmitter(table, block, NewGlobalSymIndex()), block
}

func lastOp(c *bytecode.Chunk) bytecode.Op {
	// scan from the start, returning the op at the highest PC seen — good
	// enough for tests that emit exactly one instruction of interest last.
	pc := 0
	var op bytecode.Op
	for pc < len(c.Code) {
		op = bytecode.Op(c.Code[pc])
		w := bytecode.FixedOperandWidth(op)
		if w >= 0 {
			pc += 1 + w
		} else {
			count := int(c.Code[pc+1])
			pc += 2 + count
		}
	}
	return op
}

func TestEmitBinaryToSpecializesOnStaticIntOperands(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("a", semantic.VarParam, types.Integer)
		b.Declare("b", semantic.VarParam, types.Integer)
	})

	n := &ast.Node{ID: 1, Kind: ast.KindBinary, Op: "+", IsStatic: true, Left: localIdent(2, "a"), Right: localIdent(3, "b")}
	em.emitBinaryTo(n, block.MaxLocals, false)

	if got := lastOp(em.Chunk); got != bytecode.OpAddInt {
		t.Errorf("last op = %v, want OpAddInt", got)
	}
}

func TestEmitBinaryToFallsBackToGenericWhenNotStatic(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("a", semantic.VarParam, types.Dynamic)
		b.Declare("b", semantic.VarParam, types.Dynamic)
	})

	n := &ast.Node{ID: 1, Kind: ast.KindBinary, Op: "+", IsStatic: false, Left: localIdent(2, "a"), Right: localIdent(3, "b")}
	em.emitBinaryTo(n, block.MaxLocals, false)

	if got := lastOp(em.Chunk); got != bytecode.OpAdd {
		t.Errorf("last op = %v, want OpAdd", got)
	}
	if len(em.Debug.All()) != 1 {
		t.Error("a non-static binary op must register a DebugSym since it may throw at runtime")
	}
}

func TestEmitUnaryToNegatesAndNot(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {
		b.Declare("a", semantic.VarParam, types.Integer)
	})

	n := &ast.Node{ID: 1, Kind: ast.KindUnary, Op: "-", Left: localIdent(2, "a")}
	em.emitUnaryTo(n, block.MaxLocals, false)
	if got := lastOp(em.Chunk); got != bytecode.OpNeg {
		t.Errorf("last op = %v, want OpNeg", got)
	}
}

func TestEmitCompositeToEmitsMapEmptyFastPath(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {})
	n := &ast.Node{ID: 1, Kind: ast.KindMapLit}
	em.emitCompositeTo(n, block.MaxLocals)

	if got := lastOp(em.Chunk); got != bytecode.OpMapEmpty {
		t.Errorf("empty map literal should use OpMapEmpty, got %v", got)
	}
}

func TestEmitObjectToBoundary(t *testing.T) {
	em, block := newTestEmitter(func(b *semantic.Block) {})

	small := &ast.Node{ID: 1, Kind: ast.KindObjectLit, Children: fieldChain(bytecode.ObjectSmallFieldBoundary)}
	em.emitObjectTo(small, block.MaxLocals)
	if got := lastOp(em.Chunk); got != bytecode.OpObjectSmall {
		t.Errorf("exactly the boundary field count should use OpObjectSmall, got %v", got)
	}

	em2, block2 := newTestEmitter(func(b *semantic.Block) {})
	big := &ast.Node{ID: 2, Kind: ast.KindObjectLit, Children: fieldChain(bytecode.ObjectSmallFieldBoundary + 1)}
	em2.emitObjectTo(big, block2.MaxLocals)
	if got := lastOp(em2.Chunk); got != bytecode.OpObject {
		t.Errorf("one field past the boundary should use OpObject, got %v", got)
	}
}

func fieldChain(n int) *ast.Node {
	var head, tail *ast.Node
	for i := 0; i < n; i++ {
		node := &ast.Node{ID: ast.NodeID(100 + i), Kind: ast.KindIntLit, IntValue: int64(i)}
		if head == nil {
			head = node
		} else {
			tail.Next = node
		}
		tail = node
	}
	return head
}
