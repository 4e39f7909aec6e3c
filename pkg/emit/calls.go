package emit

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/symbol"
)

// emitCallTo implements spec.md §4.5's call dispatch: a direct call to a
// statically resolved function symbol emits callSym (skipping the callee
// load entirely); a method call emits callObjSym against a reserved
// inline-cache slot (spec.md §6); anything else evaluates the callee into
// a register and emits call/call0/call1 by arity.
func (e *Emitter) emitCallTo(n *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	argStart := e.Planner.AdvanceNextTempLocalPastArcTemps()
	numArgs := 0
	for c := n.Children; c != nil; c = c.Next {
		slot := e.Planner.AllocArcTemp()
		e.EmitExprTo(c, slot, true, true)
		numArgs++
	}

	var pc int
	switch n.Kind {
	case ast.KindMethodCall:
		recv := e.Planner.AllocTemp()
		e.EmitExprTo(n.Left, recv, false, true)
		groupID := e.MethodGroupID(n.Name, numArgs)
		icSlot := e.nextInlineCacheSlot
		e.nextInlineCacheSlot++
		gHi, gLo := b16(groupID)
		iHi, iLo := b16(icSlot)
		pc = e.Chunk.Emit(bytecode.OpCallObjSym, byte(recv), byte(argStart), byte(numArgs), byte(dst), gHi, gLo, iHi, iLo)

	case ast.KindCall:
		// The analyzer resolves a plain call's callee by n.Name and stamps
		// the result on n.ResolvedSymbol directly (pkg/semantic/expr.go's
		// analyzeCall) — it never populates n.Left for this node kind.
		sym := symbol.CompactSymbolId(n.ResolvedSymbol)
		if sym.IsFuncSym() {
			icSlot := e.nextInlineCacheSlot
			e.nextInlineCacheSlot++
			id := idBytes(uint32(sym.FuncSymID()))
			iHi, iLo := b16(icSlot)
			pc = e.Chunk.Emit(bytecode.OpCallSym, byte(argStart), byte(numArgs), byte(dst), id[0], id[1], id[2], id[3], iHi, iLo)
			break
		}
		callee := e.Planner.AllocTemp()
		if n.Left != nil {
			e.EmitExprTo(n.Left, callee, false, true)
		} else {
			e.emitIdentTo(&ast.Node{ID: n.ID, Kind: ast.KindIdent, Name: n.Name, ResolvedSymbol: n.ResolvedSymbol}, callee, false)
		}
		switch numArgs {
		case 0:
			pc = e.Chunk.Emit(bytecode.OpCall0, byte(callee), byte(dst))
		case 1:
			pc = e.Chunk.Emit(bytecode.OpCall1, byte(callee), byte(dst), byte(argStart))
		default:
			pc = e.Chunk.Emit(bytecode.OpCall, byte(callee), byte(argStart), byte(numArgs), byte(dst))
		}
	}

	e.Debug.Add(pc, n.ID, e.currentEndLocalsPC)

	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitLambdaTo implements spec.md §4.5's lambda/closure construction: a
// lambda with no captures emits lambda against its own pre-emitted Chunk
// constant; one with captures emits closure, packing each capture's
// source slot into contiguous temps first (mirroring a call's arg-packing
// convention).
func (e *Emitter) emitLambdaTo(n *ast.Node, dst int) {
	compiled, ok := e.lambdas[n.ID]
	if !ok {
		// The lambda's own body is compiled by the driver that walks
		// function declarations (funcs.go); by the time the enclosing
		// expression reaches here the nested Chunk must already exist.
		return
	}
	chunkIdx := e.Chunk.AddSubChunk(compiled.chunk)

	if len(compiled.block.Captures) == 0 {
		hi, lo := b16(int(chunkIdx))
		e.Chunk.Emit(bytecode.OpLambda, byte(dst), hi, lo)
		return
	}

	mark := e.Planner.BeginArcExpr()
	firstCapture := e.Planner.AdvanceNextTempLocalPastArcTemps()
	numCaptures := 0
	for _, cap := range compiled.block.Captures {
		slot := e.Planner.AllocArcTemp()
		if cap.ParentBoxed {
			e.Chunk.Emit(bytecode.OpBoxValueRetain, byte(slot), byte(cap.ParentSlot))
		} else {
			e.Chunk.Emit(bytecode.OpCopyRetainSrc, byte(slot), byte(cap.ParentSlot))
		}
		numCaptures++
	}
	hi, lo := b16(int(chunkIdx))
	e.Chunk.Emit(bytecode.OpClosure, byte(firstCapture), byte(numCaptures), byte(dst), hi, lo)

	// The closure keeps the retained captures; nothing is released here.
	e.Planner.EndArcExpr(mark)
}
