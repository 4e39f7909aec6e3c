// Package emit implements spec.md §4.5's BytecodeEmitter: it converts the
// annotated AST (after pkg/semantic has run) into a pkg/bytecode.Chunk,
// driving a pkg/register.Planner for register assignment and registering
// pkg/debugsym.DebugSym entries at every site the runtime may unwind
// through.
//
// Grounded on compiler/codegen.go's Compiler (literal-pool dedup map,
// per-method temp/arg slot maps, jump-patch pattern for control flow) and
// vm/inline_cache.go's cache-state machine, which models the lazily
// populated field/method caches spec.md §4.5 and §6 describe.
package emit

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/debugsym"
	"github.com/chazu/emberc/pkg/register"
	"github.com/chazu/emberc/pkg/semantic"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

// NoValue is the ExprResult sentinel returned when emitExprTo elided a
// pure, unused expression (spec.md §4.5's dstIsUsed hint).
const NoValue = -1

// ExprResult is emitExprTo's return value: the slot the expression's
// value lives in (or NoValue) and its inferred type.
type ExprResult struct {
	Slot int
	Type types.TypeID
}

// Emitter is spec.md §4.5's BytecodeEmitter.
type Emitter struct {
	Table   *symbol.Table
	Chunk   *bytecode.Chunk
	Planner *register.Planner
	Debug   *debugsym.Table

	block *semantic.Block

	// Globals holds the field-symbol and method-group indices shared
	// across every Emitter compiling a body within the same module (see
	// GlobalSymIndex's doc comment).
	Globals *GlobalSymIndex

	// breakPatches/continuePatches are the jump-patch lists for the loop
	// currently being emitted, one slice per nesting level.
	breakPatches    [][]int
	continuePatches [][]int

	// currentEndLocalsPC is set by the function-emission driver before
	// emitting a body, so ops that may throw register a DebugSym pointing
	// at the right release sequence (spec.md §4.8).
	currentEndLocalsPC int

	// nextInlineCacheSlot allocates one inline-cache slot per
	// callSym/callObjSym call site, per spec.md §4.5/§6's monomorphic-cache model (grounded
	// on vm/inline_cache.go's per-callsite CacheState).
	nextInlineCacheSlot int

	// lambdas holds each nested lambda/closure body's already-emitted
	// Chunk and Block, keyed by the KindLambda node that introduced it;
	// the function-declaration driver (funcs.go) populates this before
	// emitting the enclosing expression that references the lambda.
	lambdas map[ast.NodeID]compiledLambda
}

type compiledLambda struct {
	chunk *bytecode.Chunk
	block *semantic.Block
}

// RegisterLambdaBody records a lambda/closure's already-compiled body so
// a later emitLambdaTo on the introducing KindLambda node can
// reference it.
func (e *Emitter) RegisterLambdaBody(node *ast.Node, block *semantic.Block, chunk *bytecode.Chunk) {
	e.lambdas[node.ID] = compiledLambda{chunk: chunk, block: block}
}

// NewEmitter creates an Emitter targeting a fresh Chunk. globals is the
// module-wide field-symbol/method-group index this Emitter's body shares
// with every other body compiled for the same module; pass the same
// *GlobalSymIndex to every NewEmitter call for one module.
func NewEmitter(table *symbol.Table, block *semantic.Block, globals *GlobalSymIndex) *Emitter {
	return &Emitter{
		Table:              table,
		Chunk:              bytecode.NewChunk(),
		Planner:            register.NewPlanner(block.MaxLocals),
		Debug:              debugsym.NewTable(),
		block:              block,
		Globals:            globals,
		currentEndLocalsPC: debugsym.NoEndLocalsPC,
		lambdas:            make(map[ast.NodeID]compiledLambda),
	}
}

// FieldSymIndex reserves (or returns the existing) global field-symbol
// index for name.
func (e *Emitter) FieldSymIndex(name string) int {
	return e.Globals.FieldSymIndex(name)
}

// MethodGroupID interns (name, numParams) to a method-group id (spec.md §9).
func (e *Emitter) MethodGroupID(name string, numParams int) int {
	return e.Globals.MethodGroupID(name, numParams)
}

func b16(v int) (hi, lo byte) {
	return byte(v >> 8), byte(v)
}

// EmitExprTo implements spec.md §4.5's expression emission protocol.
// dst is the target register the caller assigned; retain is the
// consumer's +1-ownership contract; dstIsUsed allows eliding a pure,
// unconsumed expression statement.
func (e *Emitter) EmitExprTo(n *ast.Node, dst int, retain bool, dstIsUsed bool) ExprResult {
	if n == nil {
		return ExprResult{Slot: NoValue, Type: types.None}
	}
	t := types.TypeID(n.InferredType)

	if !dstIsUsed && isPure(n) {
		return ExprResult{Slot: NoValue, Type: t}
	}

	switch n.Kind {
	case ast.KindIntLit:
		idx := e.Chunk.AddIntConstant(n.IntValue)
		hi, lo := b16(int(idx))
		e.Chunk.Emit(bytecode.OpConst, byte(dst), hi, lo)
	case ast.KindFloatLit:
		idx := e.Chunk.AddFloatConstant(n.FloatValue)
		hi, lo := b16(int(idx))
		e.Chunk.Emit(bytecode.OpConst, byte(dst), hi, lo)
	case ast.KindStringLit:
		idx := e.Chunk.AddStringConstant(n.StringValue)
		hi, lo := b16(int(idx))
		e.Chunk.Emit(bytecode.OpConst, byte(dst), hi, lo)
	case ast.KindBoolLit:
		if n.BoolValue {
			e.Chunk.Emit(bytecode.OpTrue, byte(dst))
		} else {
			e.Chunk.Emit(bytecode.OpFalse, byte(dst))
		}
	case ast.KindNoneLit:
		e.Chunk.Emit(bytecode.OpNone, byte(dst))
	case ast.KindSymbolLit:
		e.emitSymbolLitTo(n, dst)

	case ast.KindIdent:
		e.emitIdentTo(n, dst, retain)

	case ast.KindUnary:
		e.emitUnaryTo(n, dst, retain)
	case ast.KindBinary:
		e.emitBinaryTo(n, dst, retain)
	case ast.KindLogical:
		e.emitLogicalTo(n, dst)
	case ast.KindAssign:
		e.emitAssign(n, dst)

	case ast.KindField:
		e.emitFieldTo(n, dst, retain)
	case ast.KindIndex:
		e.emitIndexTo(n, dst)

	case ast.KindListLit, ast.KindMapLit:
		e.emitCompositeTo(n, dst)
	case ast.KindObjectLit:
		e.emitObjectTo(n, dst)
	case ast.KindStringTemplate:
		e.emitStringTemplateTo(n, dst)

	case ast.KindCall, ast.KindMethodCall:
		e.emitCallTo(n, dst)

	case ast.KindLambda:
		e.emitLambdaTo(n, dst)

	case ast.KindCoinit:
		e.emitCoinitTo(n, dst)
	case ast.KindCoresume:
		e.emitCoresumeTo(n, dst)

	default:
		// Node kinds requiring statement-level control flow (if/while/...)
		// are emitted via EmitStmt, not EmitExprTo.
	}

	return ExprResult{Slot: dst, Type: t}
}

// isPure reports whether n's evaluation has no observable side effect, so
// an unused expression statement can elide it entirely (spec.md §4.5's
// dstIsUsed hint).
func isPure(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindIntLit, ast.KindFloatLit, ast.KindStringLit, ast.KindBoolLit, ast.KindNoneLit, ast.KindSymbolLit, ast.KindIdent:
		return true
	default:
		return false
	}
}

// emitSymbolLitTo loads a compile-time-known symbol (e.g. #oops) by
// interning its name into the string pool and emitting tagLiteral against
// the resulting constant index, mirroring OpConst's dst+constIdx layout.
func (e *Emitter) emitSymbolLitTo(n *ast.Node, dst int) {
	idx := e.Chunk.AddStringConstant(n.StringValue)
	hi, lo := b16(int(idx))
	e.Chunk.Emit(bytecode.OpTagLiteral, byte(dst), hi, lo)
}

func (e *Emitter) emitIdentTo(n *ast.Node, dst int, retain bool) {
	sym := symbol.CompactSymbolId(n.ResolvedSymbol)
	if !sym.IsNull() && !sym.IsFuncSym() {
		// staticAlias resolved to a global Symbol.
		id := uint32(sym.SymID())
		b := idBytes(id)
		e.Chunk.Emit(bytecode.OpStaticVar, byte(dst), b[0], b[1], b[2], b[3])
		return
	}
	if !sym.IsNull() && sym.IsFuncSym() {
		id := uint32(sym.FuncSymID())
		b := idBytes(id)
		e.Chunk.Emit(bytecode.OpStaticFunc, byte(dst), b[0], b[1], b[2], b[3])
		return
	}
	lv, ok := e.block.Lookup(n.Name)
	if !ok {
		return
	}
	if lv.Kind == semantic.VarObjectMemberAlias || lv.Kind == semantic.VarParentObjectMemberAlias {
		e.emitSelfFieldRead(n.Name, dst, retain)
		return
	}
	if lv.IsBoxed {
		if retain {
			e.Chunk.Emit(bytecode.OpBoxValueRetain, byte(dst), byte(lv.RegisterSlot))
		} else {
			e.Chunk.Emit(bytecode.OpBoxValue, byte(dst), byte(lv.RegisterSlot))
		}
		return
	}
	if retain {
		e.Chunk.Emit(bytecode.OpCopyRetainSrc, byte(dst), byte(lv.RegisterSlot))
	} else {
		e.Chunk.Emit(bytecode.OpCopy, byte(dst), byte(lv.RegisterSlot))
	}
}

// loadSelfTo copies the current block's self receiver into slot, unboxing
// it first if a nested lambda forced self boxed for capture.
func (e *Emitter) loadSelfTo(slot int) {
	selfLv, ok := e.block.Lookup("self")
	if !ok {
		return
	}
	if selfLv.IsBoxed {
		e.Chunk.Emit(bytecode.OpBoxValue, byte(slot), byte(selfLv.RegisterSlot))
	} else {
		e.Chunk.Emit(bytecode.OpCopy, byte(slot), byte(selfLv.RegisterSlot))
	}
}

// emitSelfFieldRead desugars a bare identifier that getOrLookupVar
// resolved to an objectMemberAlias/parentObjectMemberAlias into a field
// read off the enclosing method's (or, for a nested lambda, its captured)
// self receiver.
func (e *Emitter) emitSelfFieldRead(name string, dst int, retain bool) {
	mark := e.Planner.BeginArcExpr()
	recv := e.Planner.AllocTemp()
	e.loadSelfTo(recv)
	idx := e.FieldSymIndex(name)
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

// emitSelfFieldAssign is emitSelfFieldRead's write counterpart for
// `name = value` where name resolved to a receiver field.
func (e *Emitter) emitSelfFieldAssign(name string, value *ast.Node, dst int) {
	mark := e.Planner.BeginArcExpr()
	recv := e.Planner.AllocTemp()
	e.loadSelfTo(recv)
	src := e.Planner.AllocArcTemp()
	e.EmitExprTo(value, src, true, true)
	idx := e.FieldSymIndex(name)
	hi, lo := b16(idx)
	e.Chunk.Emit(bytecode.OpSetFieldRelease, byte(recv), byte(src), 0, 0, hi, lo)
	if dst != NoValue {
		e.Chunk.Emit(bytecode.OpCopy, byte(dst), byte(src))
	}
	for _, slot := range e.Planner.EndArcExpr(mark) {
		e.Chunk.Emit(bytecode.OpRelease, byte(slot))
	}
}

func idBytes(id uint32) [4]byte {
	return [4]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)}
}
