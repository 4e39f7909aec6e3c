package emit

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
)

// EmitStmt implements spec.md §4.5's statement emission, dispatching on
// n.Kind and driving the jump-patch lists control.go needs for break,
// continue, and short-circuit branches.
func (e *Emitter) EmitStmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindExprStmt:
		mark := e.Planner.BeginArcExpr()
		e.EmitExprTo(n.Left, e.Planner.NextFreeTempLocal(), false, false)
		for _, slot := range e.Planner.EndArcExpr(mark) {
			e.Chunk.Emit(bytecode.OpRelease, byte(slot))
		}

	case ast.KindVarDecl:
		e.emitVarDecl(n)

	case ast.KindReturn:
		e.emitReturn(n)

	case ast.KindIf:
		e.emitIf(n)

	case ast.KindWhileCond:
		e.emitWhileCond(n)

	case ast.KindWhileInf:
		e.emitWhileInf(n)

	case ast.KindForRange:
		e.emitForRange(n)

	case ast.KindForIter:
		e.emitForIter(n)

	case ast.KindMatch:
		e.emitMatch(n)

	case ast.KindTry:
		e.emitTry(n)

	case ast.KindThrow:
		e.emitThrow(n)

	case ast.KindBreak:
		e.emitBreak(n)

	case ast.KindContinue:
		e.emitContinue(n)

	case ast.KindCoyield:
		e.emitCoyield(n)

	case ast.KindCoinit, ast.KindCoresume:
		mark := e.Planner.BeginArcExpr()
		e.EmitExprTo(n, e.Planner.NextFreeTempLocal(), false, false)
		for _, slot := range e.Planner.EndArcExpr(mark) {
			e.Chunk.Emit(bytecode.OpRelease, byte(slot))
		}

	default:
		mark := e.Planner.BeginArcExpr()
		e.EmitExprTo(n, e.Planner.NextFreeTempLocal(), false, false)
		for _, slot := range e.Planner.EndArcExpr(mark) {
			e.Chunk.Emit(bytecode.OpRelease, byte(slot))
		}
	}
}

func (e *Emitter) emitBody(children *ast.Node) {
	for c := children; c != nil; c = c.Next {
		e.EmitStmt(c)
	}
}

func (e *Emitter) emitVarDecl(n *ast.Node) {
	lv, ok := e.block.Lookup(n.Name)
	if !ok {
		return
	}
	if n.Left == nil {
		// Already zero-initialized by the function entry's setInitN
		// (funcs.go), per spec.md §4.5 step (iv).
		return
	}
	mark := e.Planner.BeginArcExpr()
	e.EmitExprTo(n.Left, lv.RegisterSlot, true, true)
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitLocalReleases releases every unboxed rc-candidate named local
// declared directly in the current block, at a block-end/return point
// (spec.md §4.8's "block-end release sequence"). Boxed locals are
// released by the runtime when their owning box is collected, not here.
func (e *Emitter) emitLocalReleases() {
	for _, lv := range e.block.OrderedLocals() {
		if lv.LifetimeRcCandidate && !lv.IsBoxed {
			e.Chunk.Emit(bytecode.OpRelease, byte(lv.RegisterSlot))
		}
	}
}

func (e *Emitter) emitReturn(n *ast.Node) {
	if n.Left == nil {
		e.emitLocalReleases()
		e.Chunk.Emit(bytecode.OpRet0)
		return
	}
	mark := e.Planner.BeginArcExpr()
	slot := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, slot, true, true)
	e.Planner.EndArcExpr(mark) // the ret1 op owns the retained value; nothing to release
	e.emitLocalReleases()
	e.Chunk.Emit(bytecode.OpRet1, byte(slot))
}

func (e *Emitter) emitIf(n *ast.Node) {
	mark := e.Planner.BeginArcExpr()
	cond := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, cond, false, true)
	elseJump := e.Chunk.EmitJumpPlaceholder(bytecode.OpJumpNotCond, byte(cond))
	e.Planner.EndArcExpr(mark)

	e.emitBody(n.Children)

	if n.ElseChildren != nil {
		endJump := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)
		e.Chunk.PatchJump(elseJump, e.Chunk.PC())
		e.emitBody(n.ElseChildren)
		e.Chunk.PatchJump(endJump, e.Chunk.PC())
	} else {
		e.Chunk.PatchJump(elseJump, e.Chunk.PC())
	}
}

func (e *Emitter) pushLoop() {
	e.breakPatches = append(e.breakPatches, nil)
	e.continuePatches = append(e.continuePatches, nil)
}

func (e *Emitter) popLoop(continueTarget, exitTarget int) {
	depth := len(e.breakPatches) - 1
	for _, at := range e.continuePatches[depth] {
		e.Chunk.PatchJump(at, continueTarget)
	}
	for _, at := range e.breakPatches[depth] {
		e.Chunk.PatchJump(at, exitTarget)
	}
	e.breakPatches = e.breakPatches[:depth]
	e.continuePatches = e.continuePatches[:depth]
}

func (e *Emitter) emitWhileCond(n *ast.Node) {
	e.pushLoop()
	top := e.Chunk.PC()
	mark := e.Planner.BeginArcExpr()
	cond := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, cond, false, true)
	exitJump := e.Chunk.EmitJumpPlaceholder(bytecode.OpJumpNotCond, byte(cond))
	e.Planner.EndArcExpr(mark)

	e.emitBody(n.Children)
	backJumpAt := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)
	e.Chunk.PatchJump(backJumpAt, top)

	e.Chunk.PatchJump(exitJump, e.Chunk.PC())
	e.popLoop(top, e.Chunk.PC())
}

func (e *Emitter) emitWhileInf(n *ast.Node) {
	e.pushLoop()
	top := e.Chunk.PC()
	e.emitBody(n.Children)
	backJumpAt := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)
	e.Chunk.PatchJump(backJumpAt, top)
	e.popLoop(top, e.Chunk.PC())
}

func (e *Emitter) emitForRange(n *ast.Node) {
	lv, ok := e.block.Lookup(n.Name)
	if !ok {
		return
	}
	counter := lv.RegisterSlot
	e.Planner.SetReservedTempLocal(counter)

	mark := e.Planner.BeginArcExpr()
	start := e.Planner.AllocTemp()
	end := e.Planner.AllocTemp()
	step := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, start, false, true)
	e.EmitExprTo(n.Right, end, false, true)
	if n.Third != nil {
		e.EmitExprTo(n.Third, step, false, true)
	} else {
		idx := e.Chunk.AddIntConstant(1)
		hi, lo := b16(int(idx))
		e.Chunk.Emit(bytecode.OpConst, byte(step), hi, lo)
	}
	e.Chunk.Emit(bytecode.OpForRangeInit, byte(counter), byte(start))
	e.Planner.EndArcExpr(mark)

	e.pushLoop()
	top := e.Chunk.PC()
	exitJump := e.Chunk.EmitJumpPlaceholder(bytecode.OpForRange, byte(counter), byte(end), byte(step))

	e.emitBody(n.Children)

	continueAt := e.Chunk.PC()
	e.Chunk.Emit(bytecode.OpAddInt, byte(counter), byte(counter), byte(step))
	backJumpAt := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)
	e.Chunk.PatchJump(backJumpAt, top)

	e.Chunk.PatchJump(exitJump, e.Chunk.PC())
	e.popLoop(continueAt, e.Chunk.PC())
	e.Planner.UnreserveTempLocal(counter)
}

func (e *Emitter) emitForIter(n *ast.Node) {
	lv, ok := e.block.Lookup(n.Name)
	if !ok {
		return
	}
	mark := e.Planner.BeginArcExpr()
	iter := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, iter, false, true)
	e.Planner.EndArcExpr(mark)
	e.Planner.SetReservedTempLocal(iter)

	e.pushLoop()
	top := e.Chunk.PC()
	groupID := e.MethodGroupID("next", 0)
	icSlot := e.nextInlineCacheSlot
	e.nextInlineCacheSlot++
	gHi, gLo := b16(groupID)
	iHi, iLo := b16(icSlot)
	e.Chunk.Emit(bytecode.OpCallObjSym, byte(iter), byte(iter), 0, byte(lv.RegisterSlot), gHi, gLo, iHi, iLo)
	exitJump := e.Chunk.EmitJumpPlaceholder(bytecode.OpJumpNotNone, byte(lv.RegisterSlot))

	e.emitBody(n.Children)

	backJumpAt := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)
	e.Chunk.PatchJump(backJumpAt, top)

	e.Chunk.PatchJump(exitJump, e.Chunk.PC())
	e.popLoop(top, e.Chunk.PC())
	e.Planner.UnreserveTempLocal(iter)
}

// emitMatch implements spec.md §4.5's match lowering: `match expr,
// numConds` followed by numConds (condSlot, jumpOff) table entries and a
// trailing else jumpOff. Every case value is evaluated up front into its
// own slot so the table is complete before the op runs — the match op
// itself walks the table and dispatches, the emitter never compares.
func (e *Emitter) emitMatch(n *ast.Node) {
	mark := e.Planner.BeginArcExpr()
	subject := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, subject, false, true)
	e.Planner.EndArcExpr(mark)

	var caseSlots []int
	for c := n.Children; c != nil; c = c.Next {
		caseMark := e.Planner.BeginArcExpr()
		caseVal := e.Planner.AllocTemp()
		e.EmitExprTo(c.Left, caseVal, false, true)
		e.Planner.EndArcExpr(caseMark)
		caseSlots = append(caseSlots, caseVal)
	}

	// The count byte disasm.go's generic variable-width rule reads is the
	// total trailing-byte length (header + table + else), not numConds —
	// subject and numConds are themselves part of that trailing region.
	trailingLen := 2 + 3*len(caseSlots) + 2
	e.Chunk.EmitVariadic(bytecode.OpMatch, byte(trailingLen), byte(subject), byte(len(caseSlots)))
	casePatches := make([]int, len(caseSlots))
	for i, slot := range caseSlots {
		casePatches[i] = e.Chunk.EmitTableEntry(byte(slot))
	}
	elsePatch := e.Chunk.EmitRawPlaceholder()

	var endJumps []int
	i := 0
	for c := n.Children; c != nil; c = c.Next {
		e.Chunk.PatchJump(casePatches[i], e.Chunk.PC())
		e.emitBody(c.Children)
		endJumps = append(endJumps, e.Chunk.EmitJumpPlaceholder(bytecode.OpJump))
		i++
	}

	e.Chunk.PatchJump(elsePatch, e.Chunk.PC())
	if n.ElseChildren != nil {
		e.emitBody(n.ElseChildren)
	}

	for _, at := range endJumps {
		e.Chunk.PatchJump(at, e.Chunk.PC())
	}
}

// emitTry implements spec.md §4.5's try/throw: tryValue is emitted first,
// pushing a try-frame at runtime *before* the protected body runs, with
// its catchPc operand left as a placeholder the emitter patches once the
// catch body's PC is known (spec.md §4.5: "the emitter records the op's
// PC in a block-jump list for later patching"). The runtime's
// ExceptionHandler-stack unwinder (grounded on vm/exception.go's linked
// list), not a bytecode jump table, decides when to actually take that
// jump — this op only registers where to.
func (e *Emitter) emitTry(n *ast.Node) {
	if n.CatchBody == nil {
		e.emitBody(n.Children)
		return
	}

	catchSlot := 0
	if lv, ok := e.block.Lookup(n.CatchName); ok {
		catchSlot = lv.RegisterSlot
	}
	tryAt := e.Chunk.EmitJumpPlaceholder(bytecode.OpTryValue, 0, byte(catchSlot))

	e.emitBody(n.Children)
	afterTry := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)

	e.Chunk.PatchJump(tryAt, e.Chunk.PC())
	e.emitBody(n.CatchBody)
	e.Chunk.PatchJump(afterTry, e.Chunk.PC())
}

func (e *Emitter) emitThrow(n *ast.Node) {
	mark := e.Planner.BeginArcExpr()
	slot := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, slot, true, true)
	pc := e.Chunk.Emit(bytecode.OpThrow, byte(slot))
	e.Debug.Add(pc, n.ID, e.currentEndLocalsPC)
	e.Planner.EndArcExpr(mark)
}

func (e *Emitter) emitBreak(n *ast.Node) {
	if len(e.breakPatches) == 0 {
		return
	}
	depth := len(e.breakPatches) - 1
	at := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)
	e.breakPatches[depth] = append(e.breakPatches[depth], at)
}

func (e *Emitter) emitContinue(n *ast.Node) {
	if len(e.continuePatches) == 0 {
		return
	}
	depth := len(e.continuePatches) - 1
	at := e.Chunk.EmitJumpPlaceholder(bytecode.OpJump)
	e.continuePatches[depth] = append(e.continuePatches[depth], at)
}

func (e *Emitter) emitCoyield(n *ast.Node) {
	mark := e.Planner.BeginArcExpr()
	slot := e.Planner.AllocTemp()
	if n.Left != nil {
		e.EmitExprTo(n.Left, slot, true, true)
	} else {
		e.Chunk.Emit(bytecode.OpNone, byte(slot))
	}
	pc := e.Chunk.Emit(bytecode.OpCoyield, byte(slot), 0)
	e.Debug.Add(pc, n.ID, e.currentEndLocalsPC)
	e.Planner.EndArcExpr(mark)
}
