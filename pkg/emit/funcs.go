package emit

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/bytecode"
	"github.com/chazu/emberc/pkg/semantic"
	"github.com/chazu/emberc/pkg/staticinit"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

// MethodChunk is one compiled method body together with the keys a
// downstream VM needs to populate its methodSyms[(typeId, mgId)] table
// (spec.md §6's "Symbol runtime tables").
type MethodChunk struct {
	OwnerType types.TypeID
	GroupID   int
	Chunk     *bytecode.Chunk
}

// CompiledModule is the BytecodeEmitter's top-level output for one chunk
// (spec.md §4.5/§4.6): a static-initializer Chunk run once at module load,
// one Chunk per top-level function declaration, and one MethodChunk per
// object/enum method declaration.
type CompiledModule struct {
	Init      *bytecode.Chunk
	Functions map[ast.NodeID]*bytecode.Chunk
	Methods   map[ast.NodeID]*MethodChunk
}

// findImmediateLambdas collects every KindLambda node reachable from n by
// walking statement/expression structure, stopping at (but including) a
// lambda boundary — a lambda nested inside another lambda's body is
// compiled by that lambda's own EmitFunctionChunk call, not hoisted here.
func findImmediateLambdas(n *ast.Node) []*ast.Node {
	var found []*ast.Node
	var walkStmts func(*ast.Node)
	var walkExpr func(*ast.Node)

	walkExpr = func(e *ast.Node) {
		if e == nil {
			return
		}
		if e.Kind == ast.KindLambda {
			found = append(found, e)
			return
		}
		walkExpr(e.Left)
		walkExpr(e.Right)
		walkExpr(e.Third)
		for c := e.Children; c != nil; c = c.Next {
			walkExpr(c)
		}
	}

	walkStmts = func(s *ast.Node) {
		for c := s; c != nil; c = c.Next {
			switch c.Kind {
			case ast.KindIf, ast.KindWhileCond, ast.KindWhileInf, ast.KindForRange,
				ast.KindForIter, ast.KindMatch, ast.KindTry:
				walkExpr(c.Left)
				walkExpr(c.Right)
				walkExpr(c.Third)
				walkStmts(c.Children)
				walkStmts(c.ElseChildren)
				walkStmts(c.CatchBody)
			default:
				walkExpr(c.Left)
				walkExpr(c.Right)
				walkExpr(c.Third)
				for a := c.Children; a != nil; a = a.Next {
					walkExpr(a)
				}
			}
		}
	}

	walkStmts(n.Children)
	return found
}

// findLambdasInExpr is findImmediateLambdas's counterpart for a single
// expression root rather than a statement list — used where the AST holds
// a bare initializer expression (a top-level var's Init) instead of a
// Children chain, so a lambda sitting directly at the root (`var f = () =>
// ...`) is still found rather than only lambdas nested inside its operands.
func findLambdasInExpr(n *ast.Node) []*ast.Node {
	var found []*ast.Node
	var walk func(*ast.Node)
	walk = func(e *ast.Node) {
		if e == nil {
			return
		}
		if e.Kind == ast.KindLambda {
			found = append(found, e)
			return
		}
		walk(e.Left)
		walk(e.Right)
		walk(e.Third)
		for c := e.Children; c != nil; c = c.Next {
			walk(c)
		}
	}
	walk(n)
	return found
}

func lastStmtIsReturn(children *ast.Node) bool {
	var last *ast.Node
	for c := children; c != nil; c = c.Next {
		last = c
	}
	return last != nil && last.Kind == ast.KindReturn
}

// EmitFunctionChunk compiles one KindFuncDecl/KindMethodDecl/KindLambda
// node's body into its own Chunk, first recursively compiling every
// lambda it references so OpLambda/OpClosure can embed the right
// sub-chunk index (spec.md §4.5's lambda construction). globals is the
// module-wide field-symbol/method-group index shared across every body
// compiled for the enclosing module.
func EmitFunctionChunk(table *symbol.Table, analyzer *semantic.Analyzer, node *ast.Node, globals *GlobalSymIndex) *bytecode.Chunk {
	block, ok := analyzer.BlockForNode(node.ID)
	if !ok {
		return bytecode.NewChunk()
	}
	em := NewEmitter(table, block, globals)

	for _, lam := range findImmediateLambdas(node) {
		subChunk := EmitFunctionChunk(table, analyzer, lam, globals)
		subBlock, _ := analyzer.BlockForNode(lam.ID)
		em.RegisterLambdaBody(lam, subBlock, subChunk)
	}

	em.emitSetInitN(block)
	em.emitBody(node.Children)
	if !lastStmtIsReturn(node.Children) {
		em.emitLocalReleases()
		em.Chunk.Emit(bytecode.OpRet0)
	}

	em.Chunk.NumParams = len(node.Params)
	em.Chunk.NumLocals = block.MaxLocals
	em.Chunk.HasCaptures = len(block.Captures) > 0
	return em.Chunk
}

// emitSetInitN implements spec.md §4.5 step (iv): every local declared
// with no explicit initializer gets zero-initialized once at frame entry,
// rather than inline at its (possibly unreached) declaration statement —
// so a later release along an unwind path never reads garbage out of a
// slot whose var-decl statement never executed.
func (e *Emitter) emitSetInitN(block *semantic.Block) {
	var slots []byte
	for _, lv := range block.OrderedLocals() {
		if lv.GenInitializer {
			slots = append(slots, byte(lv.RegisterSlot))
		}
	}
	if len(slots) == 0 {
		return
	}
	e.Chunk.EmitVariadic(bytecode.OpSetInitN, byte(len(slots)), slots...)
}

// EmitModule drives spec.md §4.6's static-initializer emission in the
// order the StaticInitScheduler hands it, plus every top-level function
// body and every object/enum method body, producing one CompiledModule.
func EmitModule(table *symbol.Table, analyzer *semantic.Analyzer, orderedVars []semantic.TopLevelVar, top *ast.Node) *CompiledModule {
	globals := NewGlobalSymIndex()

	initBlock := semantic.NewBlock(0, true, false)
	initEm := NewEmitter(table, initBlock, globals)

	for _, tv := range orderedVars {
		if tv.Init == nil {
			continue
		}
		for _, lam := range findLambdasInExpr(tv.Init) {
			subChunk := EmitFunctionChunk(table, analyzer, lam, globals)
			subBlock, _ := analyzer.BlockForNode(lam.ID)
			initEm.RegisterLambdaBody(lam, subBlock, subChunk)
		}

		mark := initEm.Planner.BeginArcExpr()
		slot := initEm.Planner.AllocTemp()
		initEm.EmitExprTo(tv.Init, slot, true, true)
		id := idBytes(uint32(tv.Sym))
		initEm.Chunk.Emit(bytecode.OpSetStaticVar, byte(slot), id[0], id[1], id[2], id[3])
		for _, released := range initEm.Planner.EndArcExpr(mark) {
			initEm.Chunk.Emit(bytecode.OpRelease, byte(released))
		}
	}
	initEm.Chunk.Emit(bytecode.OpEnd)
	initEm.Chunk.NumLocals = initBlock.MaxLocals

	mod := &CompiledModule{
		Init:      initEm.Chunk,
		Functions: make(map[ast.NodeID]*bytecode.Chunk),
		Methods:   make(map[ast.NodeID]*MethodChunk),
	}
	for n := top; n != nil; n = n.Next {
		switch n.Kind {
		case ast.KindFuncDecl:
			mod.Functions[n.ID] = EmitFunctionChunk(table, analyzer, n, globals)
		case ast.KindObjectDecl, ast.KindEnumDecl:
			emitObjectMethods(table, analyzer, globals, n, mod)
		}
	}
	return mod
}

// emitObjectMethods compiles every KindMethodDecl child of an object/enum
// declaration, recording each under the (ownerTypeId, methodGroupId) pair
// spec.md §6's methodSyms table is keyed by. numArgs excludes the
// implicit self receiver, matching emitCallTo's callObjSym numArgs
// (calls.go), so a call site and its target agree on the group id.
func emitObjectMethods(table *symbol.Table, analyzer *semantic.Analyzer, globals *GlobalSymIndex, objNode *ast.Node, mod *CompiledModule) {
	nameID := table.Names.Intern(objNode.Name)
	objSym, err := table.ResolveDistinct(analyzer.RootSym(), nameID)
	if err != nil || objSym == nil {
		return
	}
	for m := objNode.Children; m != nil; m = m.Next {
		if m.Kind != ast.KindMethodDecl {
			continue
		}
		chunk := EmitFunctionChunk(table, analyzer, m, globals)
		numArgs := len(m.Params) - 1 // exclude self
		if numArgs < 0 {
			numArgs = 0
		}
		groupID := globals.MethodGroupID(m.Name, numArgs)
		mod.Methods[m.ID] = &MethodChunk{OwnerType: objSym.RuntimeTypeID, GroupID: groupID, Chunk: chunk}
	}
}

// CompileChunk drives the full data flow spec.md §2 describes for one
// chunk: AnalyzeChunk's two passes, pkg/staticinit's DFS over the
// dependency edges the analyzer recorded, then EmitModule. This is the
// one place the three coupled subsystems (§1) meet end to end.
func CompileChunk(table *symbol.Table, analyzer *semantic.Analyzer, chunkID uint32, top *ast.Node) *CompiledModule {
	vars := analyzer.AnalyzeChunk(chunkID, top)

	bySym := make(map[symbol.SymID]semantic.TopLevelVar, len(vars))
	ids := make([]symbol.SymID, 0, len(vars))
	for _, v := range vars {
		bySym[v.Sym] = v
		ids = append(ids, v.Sym)
	}

	ordered := staticinit.Schedule(ids, analyzer)
	orderedVars := make([]semantic.TopLevelVar, 0, len(ordered))
	for _, sym := range ordered {
		orderedVars = append(orderedVars, bySym[sym])
	}

	return EmitModule(table, analyzer, orderedVars, top)
}
