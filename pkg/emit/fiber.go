package emit

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
)

// emitCoinitTo implements spec.md §4.6's fiber creation: the launched
// call's callee and arguments are packed into one contiguous temp run —
// callee at argStart, the real arguments immediately after — mirroring
// emitCallTo's arg-packing convention (calls.go) so coinit's argStart,
// numArgs pair addresses the same kind of region a call site builds.
// numArgs counts only the real arguments; the callee occupies argStart
// itself. The runtime's Scheduler.Coinit takes the argument values to seed
// the fiber's fresh stack; the host pushes the callee's first CallFrame.
func (e *Emitter) emitCoinitTo(n *ast.Node, dst int) {
	call := n.Left
	mark := e.Planner.BeginArcExpr()
	argStart := e.Planner.AdvanceNextTempLocalPastArcTemps()
	calleeSlot := e.Planner.AllocArcTemp()
	if call.Left != nil {
		e.EmitExprTo(call.Left, calleeSlot, false, true)
	} else {
		// A plain call carries its callee on the KindCall node itself.
		e.emitIdentTo(&ast.Node{ID: call.ID, Kind: ast.KindIdent, Name: call.Name, ResolvedSymbol: call.ResolvedSymbol}, calleeSlot, false)
	}

	numArgs := 0
	for c := call.Children; c != nil; c = c.Next {
		slot := e.Planner.AllocArcTemp()
		e.EmitExprTo(c, slot, true, true)
		numArgs++
	}

	pc := e.Chunk.Emit(bytecode.OpCoinit, byte(argStart), byte(numArgs), byte(dst))
	e.Debug.Add(pc, n.ID, e.currentEndLocalsPC)

	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitCoresumeTo implements spec.md §4.6's fiber switch: evaluates the
// fiber-valued expression into fiberSlot and emits coresume, which
// transfers control synchronously until the target's next coyield or
// completion and writes the yielded/returned value into dst.
func (e *Emitter) emitCoresumeTo(n *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	fiberSlot := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, fiberSlot, false, true)
	pc := e.Chunk.Emit(bytecode.OpCoresume, byte(fiberSlot), byte(dst))
	e.Debug.Add(pc, n.ID, e.currentEndLocalsPC)
	e.Planner.EndArcExpr(mark)
}
