package semantic

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/diag"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

// TopLevelVar is a declarations-pass result: one top-level variable
// Symbol together with the initializer node the bodies pass (and the
// StaticInitScheduler) must walk.
type TopLevelVar struct {
	Sym  symbol.SymID
	Init *ast.Node
}

// AnalyzeChunk performs spec.md §4.2's two passes: (a) declarations,
// registering every static symbol so top-level declarations can forward
// reference each other; (b) bodies, processing each function body and
// top-level statement. Returns the top-level variables found, in source
// order, for the StaticInitScheduler.
func (a *Analyzer) AnalyzeChunk(chunkID uint32, top *ast.Node) []TopLevelVar {
	var vars []TopLevelVar

	// Pass (a): declarations.
	for n := top; n != nil; n = n.Next {
		switch n.Kind {
		case ast.KindVarDecl:
			nameID := a.Table.Names.Intern(n.Name)
			sym, err := a.Table.DeclareVariable(a.rootSym, nameID, types.TypeID(n.InferredType), chunkID, uint32(n.ID))
			if err != nil {
				a.Sink.Add(diag.DuplicateSymbol, n.ID, "%s", err.Error())
				continue
			}
			vars = append(vars, TopLevelVar{Sym: sym.ID, Init: n.Left})
		case ast.KindFuncDecl:
			a.declareFunc(chunkID, n)
		case ast.KindObjectDecl, ast.KindEnumDecl:
			nameID := a.Table.Names.Intern(n.Name)
			objSym, err := a.Table.DeclareObject(a.rootSym, nameID, symbol.ModuleID{})
			if err != nil {
				a.Sink.Add(diag.DuplicateSymbol, n.ID, "%s", err.Error())
				continue
			}
			a.declareObjectMembers(chunkID, objSym.ID, n)
		}
	}

	// Pass (b): bodies.
	for n := top; n != nil; n = n.Next {
		switch n.Kind {
		case ast.KindVarDecl:
			sym := a.findTopLevelSym(n.Name)
			if sym == symbol.NullSym {
				continue
			}
			a.BeginStaticInit(sym)
			a.PushBlock(true, false)
			if n.Left != nil {
				t := a.AnalyzeExpr(n.Left)
				s := a.Table.Symbol(sym)
				if s != nil {
					s.VarType = t
				}
			}
			a.PopBlock()
			a.EndStaticInit()
		case ast.KindFuncDecl:
			a.analyzeFuncBody(n)
		case ast.KindObjectDecl, ast.KindEnumDecl:
			a.analyzeObjectMethods(n)
		default:
			a.AnalyzeStmt(n)
		}
	}

	return vars
}

// declareObjectMembers is AnalyzeChunk's declarations-pass handling of one
// object/enum's children: each KindVarDecl child becomes a field Symbol
// declared under the object's own SymID as parent (the same
// (parentSymId, nameId) keying top-level variables use, just with the
// object as parent instead of the root), and each KindMethodDecl child
// becomes a FuncSym likewise declared under the object's SymID — which is
// exactly what keeps methods in a namespace separate from free functions
// (spec.md §4.5's "Methods occupy a separate namespace from free
// functions").
func (a *Analyzer) declareObjectMembers(chunkID uint32, objSym symbol.SymID, objNode *ast.Node) {
	for m := objNode.Children; m != nil; m = m.Next {
		switch m.Kind {
		case ast.KindVarDecl:
			nameID := a.Table.Names.Intern(m.Name)
			if _, err := a.Table.DeclareVariable(objSym, nameID, types.TypeID(m.InferredType), chunkID, uint32(m.ID)); err != nil {
				a.Sink.Add(diag.DuplicateSymbol, m.ID, "%s", err.Error())
			}
		case ast.KindMethodDecl:
			a.declareFuncUnder(objSym, chunkID, m)
		}
	}
}

// analyzeObjectMethods is AnalyzeChunk's bodies-pass handling of one
// object/enum's children: analyzes each KindMethodDecl body with the
// object set as the current receiver, so getOrLookupVar's step 2 can
// resolve bare self-field references.
func (a *Analyzer) analyzeObjectMethods(objNode *ast.Node) {
	nameID := a.Table.Names.Intern(objNode.Name)
	objSym, err := a.Table.ResolveDistinct(a.rootSym, nameID)
	if err != nil || objSym == nil {
		return
	}
	prev := a.PushReceiver(objSym.ID)
	for m := objNode.Children; m != nil; m = m.Next {
		if m.Kind == ast.KindMethodDecl {
			a.analyzeMethodBody(m)
		}
	}
	a.PopReceiver(prev)
}

func (a *Analyzer) findTopLevelSym(name string) symbol.SymID {
	nameID := a.Table.Names.Intern(name)
	sym, _ := a.Table.ResolveDistinct(a.rootSym, nameID)
	if sym == nil {
		return symbol.NullSym
	}
	return sym.ID
}

func (a *Analyzer) declareFunc(chunkID uint32, n *ast.Node) {
	a.declareFuncUnder(a.rootSym, chunkID, n)
}

// declareFuncUnder declares n as one overload of a function Symbol under
// parent — a.rootSym for free functions, or an object's SymID for
// methods. All params (including a method's implicit leading self) are
// typed Dynamic: method/function dispatch by static signature is purely
// an arity-and-dynamic-ness affair here (spec.md §4.2's declareFunc note
// that overload resolution discriminates on parameter types, and every
// parameter in this core is Dynamic absent type annotations the parser
// would have already narrowed via n.InferredType-style payloads, which
// function/method params don't carry).
func (a *Analyzer) declareFuncUnder(parent symbol.SymID, chunkID uint32, n *ast.Node) {
	nameID := a.Table.Names.Intern(n.Name)
	paramTypes := make([]types.TypeID, len(n.Params))
	for i := range n.Params {
		paramTypes[i] = types.Dynamic
	}
	sig := a.Table.EnsureFuncSig(paramTypes, types.Dynamic)
	if _, err := a.Table.DeclareFunction(parent, nameID, sig, chunkID, uint32(n.ID), types.Dynamic); err != nil {
		a.Sink.Add(diag.DuplicateSymbol, n.ID, "%s", err.Error())
	}
}

func (a *Analyzer) analyzeFuncBody(n *ast.Node) {
	block := a.PushBlock(n.IsStatic, false)
	for _, p := range n.Params {
		block.Declare(p, VarParam, types.Dynamic)
	}
	a.PushSubBlock()
	for stmt := n.Children; stmt != nil; stmt = stmt.Next {
		a.AnalyzeStmt(stmt)
	}
	a.PopSubBlock()
	a.PopBlock()
	a.blockByNode[n.ID] = block
}

// analyzeMethodBody is analyzeFuncBody's method-aware counterpart: it
// opens an IsMethod block (so getOrLookupVar's step 2 fires) and requires
// self as the first declared param (spec.md §4.5's "Method emission" —
// "the first param is named self implicitly and must be present").
func (a *Analyzer) analyzeMethodBody(n *ast.Node) {
	if len(n.Params) == 0 || n.Params[0] != "self" {
		a.Sink.Add(diag.UnsupportedNode, n.ID, "method %q is missing its implicit self parameter", n.Name)
		return
	}
	block := a.PushBlock(false, true)
	for _, p := range n.Params {
		block.Declare(p, VarParam, types.Dynamic)
	}
	a.PushSubBlock()
	for stmt := n.Children; stmt != nil; stmt = stmt.Next {
		a.AnalyzeStmt(stmt)
	}
	a.PopSubBlock()
	a.PopBlock()
	a.blockByNode[n.ID] = block
}

// AnalyzeStmt dispatches one statement node.
func (a *Analyzer) AnalyzeStmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindExprStmt:
		a.AnalyzeExpr(n.Left)

	case ast.KindVarDecl:
		var t types.TypeID = types.Dynamic
		if n.Left != nil {
			t = a.AnalyzeExpr(n.Left)
		}
		v := a.currentBlock().Declare(n.Name, VarLocal, t)
		v.GenInitializer = n.Left == nil

	case ast.KindReturn:
		if n.Left != nil {
			a.AnalyzeExpr(n.Left)
		}

	case ast.KindIf:
		a.AnalyzeExpr(n.Left)
		a.PushSubBlock()
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeStmt(c)
		}
		a.PopSubBlock()
		if n.ElseChildren != nil {
			a.PushSubBlock()
			for c := n.ElseChildren; c != nil; c = c.Next {
				a.AnalyzeStmt(c)
			}
			a.PopSubBlock()
		}

	case ast.KindWhileCond:
		a.AnalyzeExpr(n.Left)
		sb := a.PushSubBlock()
		for _, v := range a.currentBlock().OrderedLocals() {
			sb.WidenForLoopEntry(v)
		}
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeStmt(c)
		}
		a.PopSubBlock()

	case ast.KindWhileInf:
		sb := a.PushSubBlock()
		for _, v := range a.currentBlock().OrderedLocals() {
			sb.WidenForLoopEntry(v)
		}
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeStmt(c)
		}
		a.PopSubBlock()

	case ast.KindForRange:
		a.AnalyzeExpr(n.Left)
		a.AnalyzeExpr(n.Right)
		if n.Third != nil {
			a.AnalyzeExpr(n.Third)
		}
		a.PushSubBlock()
		a.currentBlock().Declare(n.Name, VarLocal, types.Integer)
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeStmt(c)
		}
		a.PopSubBlock()

	case ast.KindForIter:
		a.AnalyzeExpr(n.Left)
		a.PushSubBlock()
		a.currentBlock().Declare(n.Name, VarLocal, types.Dynamic)
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeStmt(c)
		}
		a.PopSubBlock()

	case ast.KindMatch:
		a.AnalyzeExpr(n.Left)
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeExpr(c.Left)
			a.PushSubBlock()
			for s := c.Children; s != nil; s = s.Next {
				a.AnalyzeStmt(s)
			}
			a.PopSubBlock()
		}
		if n.ElseChildren != nil {
			a.PushSubBlock()
			for c := n.ElseChildren; c != nil; c = c.Next {
				a.AnalyzeStmt(c)
			}
			a.PopSubBlock()
		}

	case ast.KindTry:
		a.PushSubBlock()
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeStmt(c)
		}
		a.PopSubBlock()
		if n.CatchBody != nil {
			a.PushSubBlock()
			a.currentBlock().Declare(n.CatchName, VarLocal, types.Error)
			for c := n.CatchBody; c != nil; c = c.Next {
				a.AnalyzeStmt(c)
			}
			a.PopSubBlock()
		}

	case ast.KindThrow:
		a.AnalyzeExpr(n.Left)

	case ast.KindBreak, ast.KindContinue:
		// no analysis needed

	case ast.KindCoyield:
		if n.Left != nil {
			a.AnalyzeExpr(n.Left)
		}

	case ast.KindCoinit, ast.KindCoresume:
		a.AnalyzeExpr(n)

	default:
		a.AnalyzeExpr(n)
	}
}
