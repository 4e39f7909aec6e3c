package semantic

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/diag"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

// AnalyzeExpr walks n, storing an inferred type on every node it visits
// and, for identifiers and calls, stamping a resolved symbol id so the
// emitter never re-resolves (spec.md §4.2).
func (a *Analyzer) AnalyzeExpr(n *ast.Node) types.TypeID {
	if n == nil {
		return types.None
	}
	switch n.Kind {
	case ast.KindIntLit:
		n.InferredType = int32(types.Integer)
	case ast.KindFloatLit:
		n.InferredType = int32(types.Float)
	case ast.KindStringLit:
		n.InferredType = int32(types.StaticString)
	case ast.KindSymbolLit:
		n.InferredType = int32(types.Symbol)
	case ast.KindBoolLit:
		n.InferredType = int32(types.Boolean)
	case ast.KindNoneLit:
		n.InferredType = int32(types.None)

	case ast.KindIdent:
		res := a.GetOrLookupVar(n, n.Name, true)
		switch res.Kind {
		case LookupLocal, LookupCapture, LookupObjectMemberAlias:
			n.InferredType = int32(res.Var.CurrentType)
			n.ResolvedSymbol = int64(symbol.NullCompactID)
		case LookupStaticAlias:
			n.InferredType = int32(res.Var.DeclaredType)
			if res.Sym != nil {
				n.ResolvedSymbol = int64(symbol.MakeSymCompactID(res.Sym.ID))
			}
		default:
			n.InferredType = int32(types.Dynamic)
		}

	case ast.KindUnary:
		ct := a.AnalyzeExpr(n.Left)
		if n.Op == "-" {
			rt, strat := a.AnalyzeUnaryMinus(ct)
			n.InferredType = int32(rt)
			n.IsStatic = strat == StrategySpecialized
		} else {
			n.InferredType = int32(types.Dynamic)
		}

	case ast.KindBinary:
		lt := a.AnalyzeExpr(n.Left)
		rt := a.AnalyzeExpr(n.Right)
		rtype, strat := a.AnalyzeBinary(n.Op, lt, rt)
		n.InferredType = int32(rtype)
		n.IsStatic = strat == StrategySpecialized && rtype == types.Integer

	case ast.KindLogical:
		lt := a.AnalyzeExpr(n.Left)
		rt := a.AnalyzeExpr(n.Right)
		n.InferredType = int32(types.CommonType(lt, rt))

	case ast.KindAssign:
		a.analyzeAssign(n)

	case ast.KindField:
		a.AnalyzeExpr(n.Left)
		n.InferredType = int32(types.Dynamic)

	case ast.KindIndex:
		a.AnalyzeExpr(n.Left)
		a.AnalyzeExpr(n.Right)
		n.InferredType = int32(types.Dynamic)

	case ast.KindListLit:
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeExpr(c)
		}
		n.InferredType = int32(types.List)

	case ast.KindMapLit:
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeExpr(c)
		}
		n.InferredType = int32(types.Map)

	case ast.KindObjectLit:
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeExpr(c)
		}
		n.InferredType = int32(types.Dynamic)

	case ast.KindStringTemplate:
		for c := n.Children; c != nil; c = c.Next {
			a.AnalyzeExpr(c)
		}
		n.InferredType = int32(types.StaticString)

	case ast.KindCall, ast.KindMethodCall:
		a.analyzeCall(n)

	case ast.KindCoinit:
		if n.Left != nil {
			a.analyzeCall(n.Left)
		}
		n.InferredType = int32(types.Fiber)

	case ast.KindCoresume:
		a.AnalyzeExpr(n.Left)
		n.InferredType = int32(types.Dynamic)

	case ast.KindLambda:
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
		n.InferredType = int32(types.Dynamic)

	default:
		a.Sink.Add(diag.UnsupportedNode, n.ID, "unsupported expression node kind %d", n.Kind)
		n.InferredType = int32(types.Dynamic)
	}
	return types.TypeID(n.InferredType)
}

func (a *Analyzer) analyzeAssign(n *ast.Node) {
	rt := a.AnalyzeExpr(n.Right)
	switch n.Left.Kind {
	case ast.KindIdent:
		res := a.GetOrLookupVar(n.Left, n.Left.Name, true)
		switch res.Kind {
		case LookupLocal, LookupCapture, LookupObjectMemberAlias:
			if res.Var.Dynamic {
				// Narrowing: record on the enclosing sub-block (spec.md
				// §4.2 "Assignment records dynamic-var type narrowing on
				// the enclosing sub-block").
				res.Var.CurrentType = rt
			}
		case LookupNone:
			// already reported
		}
	case ast.KindField, ast.KindIndex:
		a.AnalyzeExpr(n.Left.Left)
		if n.Left.Right != nil {
			a.AnalyzeExpr(n.Left.Right)
		}
	default:
		a.Sink.Add(diag.InvalidAssignmentTarget, n.ID, "invalid assignment target")
	}
	n.InferredType = int32(rt)
}

func (a *Analyzer) analyzeCall(n *ast.Node) {
	argTypes := make([]types.TypeID, 0, 4)
	hasDynamic := false
	for arg := n.Children; arg != nil; arg = arg.Next {
		t := a.AnalyzeExpr(arg)
		argTypes = append(argTypes, t)
		if t == types.Dynamic {
			hasDynamic = true
		}
	}

	if n.Kind == ast.KindMethodCall {
		// Dispatched at runtime through a method-group id; no static FuncSym.
		a.AnalyzeExpr(n.Left)
		n.InferredType = int32(types.Dynamic)
		return
	}
	name := n.Name

	nameID := a.Table.Names.Intern(name)
	res := a.Table.ResolveForCall(a.rootSym, nameID, argTypes, hasDynamic, nil)
	switch {
	case res.Found != nil:
		n.ResolvedSymbol = int64(symbol.MakeFuncSymCompactID(res.Found.ID))
		n.InferredType = int32(res.Found.RetType)
	case res.Unknown:
		a.Sink.Add(diag.UnknownSymbol, n.ID, "unknown function %q", name)
		n.InferredType = int32(types.Dynamic)
	default:
		a.Sink.Add(diag.IncompatibleSignature, n.ID, "%s", res.Err.Error())
		n.InferredType = int32(types.Dynamic)
	}
}
