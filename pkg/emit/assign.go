package emit

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/semantic"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

// emitAssign implements spec.md §4.5's assignment protocol: the copy op
// variant is chosen from the pair (is the old value rc-candidate, is the
// new value rc-candidate), and a boxed local dispatches to
// setBoxValue/setBoxValueRelease instead of copy/copyRetainRelease.
func (e *Emitter) emitAssign(n *ast.Node, dst int) {
	target := n.Left
	value := n.Right

	switch target.Kind {
	case ast.KindField:
		e.emitSetFieldAssign(target, value, dst)
		return
	case ast.KindIndex:
		e.emitSetIndexAssign(target, value, dst)
		return
	}

	if target.Kind != ast.KindIdent {
		return
	}

	sym := symbol.CompactSymbolId(target.ResolvedSymbol)
	if !sym.IsNull() && !sym.IsFuncSym() {
		e.emitStaticAssign(sym, value, dst)
		return
	}

	lv, ok := e.block.Lookup(target.Name)
	if !ok {
		return
	}
	if lv.Kind == semantic.VarObjectMemberAlias || lv.Kind == semantic.VarParentObjectMemberAlias {
		e.emitSelfFieldAssign(target.Name, value, dst)
		return
	}

	mark := e.Planner.BeginArcExpr()
	srcSlot := e.Planner.AllocTemp()
	e.EmitExprTo(value, srcSlot, true, true)
	newIsRc := types.IsRcCandidate(types.TypeID(value.InferredType))

	if lv.IsBoxed {
		if newIsRc {
			e.Chunk.Emit(bytecode.OpSetBoxValueRelease, byte(lv.RegisterSlot), byte(srcSlot))
		} else {
			e.Chunk.Emit(bytecode.OpSetBoxValue, byte(lv.RegisterSlot), byte(srcSlot))
		}
	} else {
		oldIsRc := lv.LifetimeRcCandidate
		switch {
		case oldIsRc && newIsRc:
			e.Chunk.Emit(bytecode.OpCopyRetainRelease, byte(lv.RegisterSlot), byte(srcSlot))
		case !oldIsRc && newIsRc:
			e.Chunk.Emit(bytecode.OpCopyRetainSrc, byte(lv.RegisterSlot), byte(srcSlot))
		case oldIsRc && !newIsRc:
			e.Chunk.Emit(bytecode.OpCopyReleaseDst, byte(lv.RegisterSlot), byte(srcSlot))
		default:
			e.Chunk.Emit(bytecode.OpCopy, byte(lv.RegisterSlot), byte(srcSlot))
		}
	}

	if dst != NoValue {
		e.Chunk.Emit(bytecode.OpCopy, byte(dst), byte(lv.RegisterSlot))
	}

	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

func (e *Emitter) emitStaticAssign(sym symbol.CompactSymbolId, value *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	srcSlot := e.Planner.AllocTemp()
	e.EmitExprTo(value, srcSlot, true, true)

	id := idBytes(uint32(sym.SymID()))
	e.Chunk.Emit(bytecode.OpSetStaticVar, byte(srcSlot), id[0], id[1], id[2], id[3])

	if dst != NoValue {
		e.Chunk.Emit(bytecode.OpCopy, byte(dst), byte(srcSlot))
	}
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitSetFieldAssign implements `recv.field = value`, via setField /
// setFieldRelease depending on whether the field's previous value was
// rc-candidate (decided by the runtime's lazy field cache, so the emitter
// always emits setFieldRelease and leaves the no-op release to the
// runtime when the old value wasn't rc-candidate — spec.md §4.5's field
// cache note).
func (e *Emitter) emitSetFieldAssign(target, value *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	recv := e.Planner.AllocTemp()
	src := e.Planner.AllocArcTemp()
	e.EmitExprTo(target.Left, recv, false, true)
	e.EmitExprTo(value, src, true, true)

	idx := e.FieldSymIndex(target.Name)
	hi, lo := b16(idx)
	e.Chunk.Emit(bytecode.OpSetFieldRelease, byte(recv), byte(src), 0, 0, hi, lo)

	if dst != NoValue {
		e.Chunk.Emit(bytecode.OpCopy, byte(dst), byte(src))
	}
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitSetIndexAssign implements `recv[index] = value`.
func (e *Emitter) emitSetIndexAssign(target, value *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	recv := e.Planner.AllocTemp()
	idx := e.Planner.AllocTemp()
	src := e.Planner.AllocArcTemp()
	e.EmitExprTo(target.Left, recv, false, true)
	e.EmitExprTo(target.Right, idx, false, true)
	e.EmitExprTo(value, src, true, true)

	e.Chunk.Emit(bytecode.OpSetIndexRelease, byte(recv), byte(idx), byte(src))

	if dst != NoValue {
		e.Chunk.Emit(bytecode.OpCopy, byte(dst), byte(src))
	}
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}
