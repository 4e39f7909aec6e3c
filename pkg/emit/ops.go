package emit

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
)

// binarySpecialized/binaryGeneric map a spec.md §4.5 operator text to its
// *Int-specialized and generic opcode pair.
var binarySpecialized = map[string]bytecode.Op{
	"+": bytecode.OpAddInt, "-": bytecode.OpMinusInt, "*": bytecode.OpMulInt,
}
var binaryGeneric = map[string]bytecode.Op{
	"+": bytecode.OpAdd, "-": bytecode.OpMinus, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod, "**": bytecode.OpPow,
	"&": bytecode.OpBitAnd, "|": bytecode.OpBitOr, "^": bytecode.OpBitXor,
	"<<": bytecode.OpShl, ">>": bytecode.OpShr,
	"==": bytecode.OpEq, "!=": bytecode.OpNe,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
}

// emitUnaryTo implements spec.md §4.5's unary minus / logical not.
func (e *Emitter) emitUnaryTo(n *ast.Node, dst int, retain bool) {
	mark := e.Planner.BeginArcExpr()
	operand := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, operand, false, true)
	switch n.Op {
	case "-":
		e.Chunk.Emit(bytecode.OpNeg, byte(dst), byte(operand))
	case "not", "!":
		e.Chunk.Emit(bytecode.OpNot, byte(dst), byte(operand))
	}
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitBinaryTo implements spec.md §4.5's "Binary arithmetic specialization":
// if the analyzer marked both operands Integer-compatible (n.IsStatic), use
// the *Int variant; else the polymorphic op, which may throw a type error
// at runtime, so a DebugSym is registered at the emission site (scenario
// S2 in spec.md §4.5's worked examples).
func (e *Emitter) emitBinaryTo(n *ast.Node, dst int, retain bool) {
	mark := e.Planner.BeginArcExpr()
	lhs := e.Planner.AllocTemp()
	rhs := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, lhs, false, true)
	e.EmitExprTo(n.Right, rhs, false, true)

	op, ok := binarySpecialized[n.Op]
	if !ok || !n.IsStatic {
		op, ok = binaryGeneric[n.Op]
	}
	if ok {
		pc := e.Chunk.Emit(op, byte(dst), byte(lhs), byte(rhs))
		if !n.IsStatic {
			e.Debug.Add(pc, n.ID, e.currentEndLocalsPC)
		}
	}
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitLogicalTo implements spec.md §4.5's short-circuiting and/or via
// jumpNotCond/jumpCond over the right-hand side.
func (e *Emitter) emitLogicalTo(n *ast.Node, dst int) {
	e.EmitExprTo(n.Left, dst, false, true)
	var patchAt int
	if n.Op == "and" {
		patchAt = e.Chunk.EmitJumpPlaceholder(bytecode.OpJumpNotCond, byte(dst))
	} else {
		patchAt = e.Chunk.EmitJumpPlaceholder(bytecode.OpJumpCond, byte(dst))
	}
	e.EmitExprTo(n.Right, dst, false, true)
	e.Chunk.PatchJump(patchAt, e.Chunk.PC())
}

// emitFieldTo implements spec.md §4.5's field access: field/fieldRetain
// with the receiver slot, destination, and an ensured field-symbol index.
func (e *Emitter) emitFieldTo(n *ast.Node, dst int, retain bool) {
	mark := e.Planner.BeginArcExpr()
	recv := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, recv, false, true)
	idx := e.FieldSymIndex(n.Name)
	hi, lo := b16(idx)
	op := bytecode.OpField
	if retain {
		op = bytecode.OpFieldRetain
	}
	e.Chunk.Emit(op, byte(dst), byte(recv), 0, 0, hi, lo)
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitIndexTo implements spec.md §4.5's collection indexing.
func (e *Emitter) emitIndexTo(n *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	recv := e.Planner.AllocTemp()
	idx := e.Planner.AllocTemp()
	e.EmitExprTo(n.Left, recv, false, true)
	e.EmitExprTo(n.Right, idx, false, true)
	e.Chunk.Emit(bytecode.OpIndex, byte(dst), byte(recv), byte(idx))
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitCompositeTo implements spec.md §4.5's list/map construction: every
// element is retained while assembling contiguous arg slots starting at
// advanceNextTempLocalPastArcTemps(); the boundary case of an empty map
// literal uses the mapEmpty fast path (spec.md §8).
func (e *Emitter) emitCompositeTo(n *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	firstArg := e.Planner.AdvanceNextTempLocalPastArcTemps()

	count := 0
	for c := n.Children; c != nil; c = c.Next {
		slot := e.Planner.AllocArcTemp()
		e.EmitExprTo(c, slot, true, true)
		count++
	}

	if n.Kind == ast.KindMapLit {
		if count == 0 {
			e.Chunk.Emit(bytecode.OpMapEmpty, byte(dst))
		} else {
			e.Chunk.Emit(bytecode.OpMap, byte(count), byte(firstArg), byte(dst))
		}
	} else {
		e.Chunk.Emit(bytecode.OpList, byte(count), byte(firstArg), byte(dst))
	}

	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

// emitObjectTo implements spec.md §4.5's object construction, including
// the objectSmall fast-path boundary at exactly
// bytecode.ObjectSmallFieldBoundary fields (spec.md §8's boundary test).
func (e *Emitter) emitObjectTo(n *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	firstArg := e.Planner.AdvanceNextTempLocalPastArcTemps()

	count := 0
	for c := n.Children; c != nil; c = c.Next {
		slot := e.Planner.AllocArcTemp()
		e.EmitExprTo(c, slot, true, true)
		count++
	}

	op := bytecode.OpObject
	if count <= bytecode.ObjectSmallFieldBoundary {
		op = bytecode.OpObjectSmall
	}
	e.Chunk.Emit(op, byte(count), byte(firstArg), byte(dst))

	// The object takes ownership of the retained field values.
	e.Planner.EndArcExpr(mark)
}

// emitStringTemplateTo implements spec.md §4.5's string template: literal
// parts become const-string indices packed after the fixed argStart/
// numExprs/dst header, expression parts are emitted to contiguous temps.
func (e *Emitter) emitStringTemplateTo(n *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	argStart := e.Planner.AdvanceNextTempLocalPastArcTemps()

	numExprs := 0
	litIndices := make([]byte, 0, 8)
	for c := n.Children; c != nil; c = c.Next {
		if c.Kind == ast.KindStringLit {
			idx := e.Chunk.AddStringConstant(c.StringValue)
			hi, lo := b16(int(idx))
			litIndices = append(litIndices, hi, lo)
			continue
		}
		slot := e.Planner.AllocArcTemp()
		e.EmitExprTo(c, slot, true, true)
		numExprs++
	}

	operands := append([]byte{byte(argStart), byte(numExprs), byte(dst)}, litIndices...)
	e.Chunk.EmitVariadic(bytecode.OpStringTemplate, byte(len(operands)), operands...)

	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}
