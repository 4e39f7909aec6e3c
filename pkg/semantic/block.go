// Package semantic implements the two-pass declaration + expression walk
// (spec.md §4.2): SemanticAnalyzer annotates each AST node with a resolved
// symbol and inferred type, and records capture relations and
// initializer dependencies.
//
// Grounded on compiler/semantic.go's SemanticAnalyzer (scope-frame stack,
// errorf/errorAt sink, AnalyzeMethod), generalized from undefined-variable
// linting to full resolution per spec.md §4.2.
package semantic

import (
	"github.com/chazu/emberc/pkg/types"
)

// LocalVarKind tags which of spec.md §3's LocalVar variants this is.
type LocalVarKind uint8

const (
	VarLocal LocalVarKind = iota
	VarParam
	VarStaticAlias
	VarParentLocalAlias
	VarObjectMemberAlias
	VarParentObjectMemberAlias
)

// LocalVar is spec.md §3's per-block local: it tracks both its declared
// type and a narrowing currentType for dynamic locals (static vars never
// mutate CurrentType).
type LocalVar struct {
	Name                string
	Kind                LocalVarKind
	DeclaredType        types.TypeID
	CurrentType         types.TypeID
	IsBoxed             bool
	CapturedIdx         int // index into the owning Block's Captures, or -1
	LifetimeRcCandidate bool
	RegisterSlot        int
	Dynamic             bool // true if DeclaredType is Any/Dynamic (eligible for narrowing)

	// GenInitializer marks a local declared with no explicit initializer
	// expression — the emitter zero-initializes its slot once at function
	// entry (spec.md §4.5 step (iv)'s setInitN) instead of inline at the
	// declaration statement.
	GenInitializer bool
}

// Capture records a local captured from an enclosing block.
type Capture struct {
	Name        string
	ParentSlot  int // slot in the enclosing block's register window
	ParentBoxed bool
}

// Block is spec.md §3's per-function/lambda/top-level emission scope.
type Block struct {
	ID   int
	vars map[string]*LocalVar
	// Order locals were declared in, for deterministic emission.
	order []string

	Params   []string
	Captures []Capture

	IsStatic bool // static-function blocks cannot capture locals (spec.md §4.2 step 3)
	IsMethod bool

	MaxLocals int // reserved-locals high-water mark bounding the frame size
}

// NewBlock creates an empty block.
func NewBlock(id int, isStatic, isMethod bool) *Block {
	return &Block{ID: id, vars: make(map[string]*LocalVar), IsStatic: isStatic, IsMethod: isMethod}
}

// Lookup returns the LocalVar named name declared directly in this block.
func (b *Block) Lookup(name string) (*LocalVar, bool) {
	v, ok := b.vars[name]
	return v, ok
}

// Declare adds a new LocalVar to the block, reserving the next register
// slot and advancing MaxLocals.
func (b *Block) Declare(name string, kind LocalVarKind, declared types.TypeID) *LocalVar {
	v := &LocalVar{Name: name, Kind: kind, DeclaredType: declared, CurrentType: declared, RegisterSlot: b.MaxLocals, CapturedIdx: -1, Dynamic: declared == types.Any || declared == types.Dynamic}
	v.LifetimeRcCandidate = types.IsRcCandidate(declared)
	b.vars[name] = v
	b.order = append(b.order, name)
	b.MaxLocals++
	return v
}

// AddCapture registers name as captured from the parent block at
// parentSlot, forcing the parent var boxed (the caller is responsible for
// flipping the parent LocalVar's IsBoxed bit — spec.md §9's "Boxed captures
// vs closures").
func (b *Block) AddCapture(name string, parentSlot int) int {
	idx := len(b.Captures)
	b.Captures = append(b.Captures, Capture{Name: name, ParentSlot: parentSlot, ParentBoxed: true})
	return idx
}

// OrderedLocals returns every declared LocalVar in declaration order.
func (b *Block) OrderedLocals() []*LocalVar {
	out := make([]*LocalVar, 0, len(b.order))
	for _, n := range b.order {
		out = append(out, b.vars[n])
	}
	return out
}

// SubBlock is spec.md §3's lexical scope inside a Block.
type SubBlock struct {
	ID             int
	ParentBlock    *Block
	PrevSubBlockID int // -1 if this is the block's first sub-block

	// preLoopTypes saves each dynamic var's CurrentType at loop entry so it
	// can be widened to Any for the duration of the loop body and restored
	// on exit if the widened type was never actually used to narrow
	// further (spec.md §3's "pre-loop type-save list").
	preLoopTypes map[string]types.TypeID
}

// NewSubBlock opens a lexical scope inside block, linked to prev.
func NewSubBlock(id int, block *Block, prev *SubBlock) *SubBlock {
	sb := &SubBlock{ID: id, ParentBlock: block, PrevSubBlockID: -1, preLoopTypes: make(map[string]types.TypeID)}
	if prev != nil {
		sb.PrevSubBlockID = prev.ID
	}
	return sb
}

// WidenForLoopEntry saves v's CurrentType and widens it to Any, per
// spec.md §9's "Register numbering across sub-blocks" note on loop temp
// reservation and §3's pre-loop type-save list.
func (sb *SubBlock) WidenForLoopEntry(v *LocalVar) {
	if !v.Dynamic {
		return
	}
	if _, saved := sb.preLoopTypes[v.Name]; !saved {
		sb.preLoopTypes[v.Name] = v.CurrentType
	}
	v.CurrentType = types.Any
}

// End merges this sub-block's narrowed dynamic-var types back into the
// parent sub-block/block (spec.md §3: "On end, merges current dynamic-var
// types back into the parent"), restoring any pre-loop-widened type that
// was never narrowed further.
func (sb *SubBlock) End() {
	for name, savedType := range sb.preLoopTypes {
		if v, ok := sb.ParentBlock.vars[name]; ok && v.CurrentType == types.Any {
			v.CurrentType = savedType
		}
	}
}
