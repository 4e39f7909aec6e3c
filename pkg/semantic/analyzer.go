package semantic

import (
	"github.com/chazu/emberc/pkg/ast"
	"github.com/chazu/emberc/pkg/diag"
	"github.com/chazu/emberc/pkg/symbol"
	"github.com/chazu/emberc/pkg/types"
)

// VarLookupKind tags what getOrLookupVar found (spec.md §4.2's four steps).
type VarLookupKind uint8

const (
	LookupNone VarLookupKind = iota
	LookupLocal
	LookupObjectMemberAlias
	LookupCapture
	LookupStaticAlias
)

// VarLookupResult is the outcome of getOrLookupVar.
type VarLookupResult struct {
	Kind VarLookupKind
	Var  *LocalVar
	Sym  *symbol.Symbol
}

// Analyzer is spec.md §4.2's SemanticAnalyzer.
type Analyzer struct {
	Table *symbol.Table
	Sink  *diag.Sink

	rootSym symbol.SymID

	blocks         []*Block    // stack; last is current
	subBlocks      []*SubBlock // stack; last is current, scoped per block
	nextBlockID    int
	nextSubBlockID int

	// Static-initializer dependency edges: initedSym -> usedSym, deduped
	// but kept in first-recorded order so Dependencies() is deterministic
	// (spec.md §8's re-emit-is-byte-identical invariant depends on this).
	staticDeps map[symbol.SymID]*depSet
	// initingSym is the top-level variable symbol currently being walked
	// for its initializer expression, or NullSym when not in one.
	initingSym symbol.SymID

	// blockByNode records the Block opened for each KindFuncDecl/
	// KindMethodDecl/KindLambda node, so the emitter can retrieve a
	// function or lambda's locals/captures after analysis completes.
	blockByNode map[ast.NodeID]*Block

	// receiverSym is the enclosing object Symbol while analyzing a
	// method body, or NullSym outside one. getOrLookupVar's step 2
	// (receiver-field resolution) reads this.
	receiverSym symbol.SymID
}

// NewAnalyzer creates an Analyzer bound to table, reporting into sink.
func NewAnalyzer(table *symbol.Table, sink *diag.Sink, rootSym symbol.SymID) *Analyzer {
	return &Analyzer{
		Table: table, Sink: sink, rootSym: rootSym,
		staticDeps:  make(map[symbol.SymID]*depSet),
		blockByNode: make(map[ast.NodeID]*Block),
	}
}

// BlockForNode returns the Block opened for a KindFuncDecl/KindMethodDecl/
// KindLambda node during analysis.
func (a *Analyzer) BlockForNode(id ast.NodeID) (*Block, bool) {
	b, ok := a.blockByNode[id]
	return b, ok
}

// RootSym returns the root parent Symbol this Analyzer resolves top-level
// declarations (including object/enum declarations) under.
func (a *Analyzer) RootSym() symbol.SymID {
	return a.rootSym
}

func (a *Analyzer) currentBlock() *Block {
	if len(a.blocks) == 0 {
		return nil
	}
	return a.blocks[len(a.blocks)-1]
}

func (a *Analyzer) currentSub() *SubBlock {
	if len(a.subBlocks) == 0 {
		return nil
	}
	return a.subBlocks[len(a.subBlocks)-1]
}

// PushBlock opens a new function/lambda/top-level emission scope.
func (a *Analyzer) PushBlock(isStatic, isMethod bool) *Block {
	b := NewBlock(a.nextBlockID, isStatic, isMethod)
	a.nextBlockID++
	a.blocks = append(a.blocks, b)
	return b
}

// PopBlock closes the current block.
func (a *Analyzer) PopBlock() {
	a.blocks = a.blocks[:len(a.blocks)-1]
}

// PushSubBlock opens a lexical scope inside the current block.
func (a *Analyzer) PushSubBlock() *SubBlock {
	sb := NewSubBlock(a.nextSubBlockID, a.currentBlock(), a.currentSub())
	a.nextSubBlockID++
	a.subBlocks = append(a.subBlocks, sb)
	return sb
}

// PopSubBlock closes and merges the current lexical scope.
func (a *Analyzer) PopSubBlock() {
	sb := a.currentSub()
	sb.End()
	a.subBlocks = a.subBlocks[:len(a.subBlocks)-1]
}

// GetOrLookupVar implements spec.md §4.2's four-step variable lookup.
func (a *Analyzer) GetOrLookupVar(node *ast.Node, name string, allowStatic bool) VarLookupResult {
	cur := a.currentBlock()

	// Step 1: current block's name table.
	if v, ok := cur.Lookup(name); ok {
		if a.initingSym != symbol.NullSym {
			a.Sink.Add(diag.LocalReferencedFromStaticInit, node.ID, "cannot reference local %q from static initializer", name)
			return VarLookupResult{Kind: LookupNone}
		}
		return VarLookupResult{Kind: LookupLocal, Var: v}
	}

	// Step 2: if current block is a method, check the receiver object's
	// fields and synthesize an objectMemberAlias.
	if cur.IsMethod {
		if sym := a.lookupObjectField(name); sym != nil {
			v := cur.Declare(name, VarObjectMemberAlias, sym.VarType)
			return VarLookupResult{Kind: LookupObjectMemberAlias, Var: v, Sym: sym}
		}
	}

	// Step 3: one block up — capturable local becomes a synthesized
	// capture; forces the parent var boxed.
	if len(a.blocks) >= 2 {
		parent := a.blocks[len(a.blocks)-2]
		if pv, ok := parent.Lookup(name); ok {
			if cur.IsStatic {
				a.Sink.Add(diag.CaptureInStaticFunc, node.ID, "static function cannot capture local %q", name)
				return VarLookupResult{Kind: LookupNone}
			}
			if pv.Kind == VarObjectMemberAlias || pv.Kind == VarParentObjectMemberAlias {
				idx := a.ensureSelfCapture(cur, parent)
				v := cur.Declare(name, VarParentObjectMemberAlias, pv.DeclaredType)
				v.CapturedIdx = idx
				return VarLookupResult{Kind: LookupObjectMemberAlias, Var: v}
			}
			pv.IsBoxed = true
			idx := cur.AddCapture(name, pv.RegisterSlot)
			v := cur.Declare(name, VarParentLocalAlias, pv.DeclaredType)
			v.CapturedIdx = idx
			v.IsBoxed = true
			return VarLookupResult{Kind: LookupCapture, Var: v}
		}
	}

	// Step 4: static resolution against the root module.
	if allowStatic {
		sym, err := a.Table.ResolveDistinct(a.rootSym, a.Table.Names.Intern(name))
		if err != nil {
			a.Sink.Add(diag.AmbiguousOverload, node.ID, "%s", err.Error())
			return VarLookupResult{Kind: LookupNone}
		}
		if sym != nil {
			if a.initingSym != symbol.NullSym && sym.Kind == symbol.SymVariable {
				a.recordStaticDep(sym.ID)
			}
			v := cur.Declare(name, VarStaticAlias, sym.VarType)
			return VarLookupResult{Kind: LookupStaticAlias, Var: v, Sym: sym}
		}
	}

	a.Sink.Add(diag.UnknownSymbol, node.ID, "unknown symbol %q", name)
	return VarLookupResult{Kind: LookupNone}
}

// PushReceiver sets sym as the enclosing object Symbol for the method body
// about to be analyzed. PopReceiver clears it back to NullSym. Object
// declarations don't nest, so a single saved value (rather than a stack)
// is enough.
func (a *Analyzer) PushReceiver(sym symbol.SymID) symbol.SymID {
	prev := a.receiverSym
	a.receiverSym = sym
	return prev
}

// PopReceiver restores the previously active receiver Symbol, per the
// value PushReceiver returned.
func (a *Analyzer) PopReceiver(prev symbol.SymID) {
	a.receiverSym = prev
}

// ensureSelfCapture returns the capture index for "self" in cur, adding a
// capture of parent's self the first time a nested lambda references a
// receiver field; later field references in the same lambda body reuse
// it instead of capturing self once per field name.
func (a *Analyzer) ensureSelfCapture(cur, parent *Block) int {
	if existing, ok := cur.Lookup("self"); ok {
		return existing.CapturedIdx
	}
	selfPv, ok := parent.Lookup("self")
	if !ok {
		return -1
	}
	selfPv.IsBoxed = true
	idx := cur.AddCapture("self", selfPv.RegisterSlot)
	v := cur.Declare("self", VarParentLocalAlias, selfPv.DeclaredType)
	v.CapturedIdx = idx
	v.IsBoxed = true
	return idx
}

// lookupObjectField resolves name against the current method's receiver
// object Symbol's field list: fields are declared as child Symbols of the
// object Symbol (DeclareVariable(objectSym.ID, ...)), so this is a plain
// ResolveDistinct under that parent. Returns nil when no receiver context
// is set or the name isn't a field.
func (a *Analyzer) lookupObjectField(name string) *symbol.Symbol {
	if a.receiverSym == symbol.NullSym {
		return nil
	}
	sym, _ := a.Table.ResolveDistinct(a.receiverSym, a.Table.Names.Intern(name))
	return sym
}

// BeginStaticInit marks sym as the top-level variable currently being
// walked for its initializer expression (spec.md §4.2's dependency
// tracking).
func (a *Analyzer) BeginStaticInit(sym symbol.SymID) {
	a.initingSym = sym
}

// EndStaticInit clears the current static-init context.
func (a *Analyzer) EndStaticInit() {
	a.initingSym = symbol.NullSym
}

// depSet is a dependency edge list deduped by seen but read back in the
// order edges were first recorded, so Dependencies() never depends on Go's
// unordered map iteration.
type depSet struct {
	seen  map[symbol.SymID]bool
	order []symbol.SymID
}

func (a *Analyzer) recordStaticDep(used symbol.SymID) {
	if a.initingSym == symbol.NullSym || used == a.initingSym {
		return
	}
	ds, ok := a.staticDeps[a.initingSym]
	if !ok {
		ds = &depSet{seen: make(map[symbol.SymID]bool)}
		a.staticDeps[a.initingSym] = ds
	}
	if !ds.seen[used] {
		ds.seen[used] = true
		ds.order = append(ds.order, used)
	}
}

// Dependencies returns the deduped dependency edges recorded for sym, in
// the order they were first recorded (spec.md §4.2's "appends a
// dependency edge initedSym -> usedSym").
func (a *Analyzer) Dependencies(sym symbol.SymID) []symbol.SymID {
	ds, ok := a.staticDeps[sym]
	if !ok {
		return nil
	}
	return ds.order
}

// OpStrategy tags whether a binary/unary op lowers to a specialized
// numeric instruction or the generic polymorphic one (spec.md §4.2's
// operator typing, realized as the BytecodeEmitter's dispatch key).
type OpStrategy uint8

const (
	StrategySpecialized OpStrategy = iota
	StrategyGeneric
)

// AnalyzeBinary implements spec.md §4.2's arithmetic/bitwise/shift/compare
// and logical and/or typing rules, returning the result type and the
// strategy tag to stamp on the node.
func (a *Analyzer) AnalyzeBinary(op string, lt, rt types.TypeID) (types.TypeID, OpStrategy) {
	switch op {
	case "and", "or":
		return types.CommonType(lt, rt), StrategyGeneric
	default:
	}
	if lt.IsNumeric() && rt.IsNumeric() {
		if lt == types.Float || rt == types.Float {
			return types.Float, StrategySpecialized
		}
		return types.Integer, StrategySpecialized
	}
	return types.Dynamic, StrategyGeneric
}

// AnalyzeUnaryMinus implements spec.md §4.2's unary-minus typing rule.
func (a *Analyzer) AnalyzeUnaryMinus(t types.TypeID) (types.TypeID, OpStrategy) {
	if t.IsNumeric() {
		return t, StrategySpecialized
	}
	return types.Dynamic, StrategyGeneric
}
