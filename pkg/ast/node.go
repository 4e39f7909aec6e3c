// Package ast defines the node contract this core consumes from the parser.
//
// Lexing and parsing are out of scope (spec.md §1): the parser hands the
// core an immutable tree of Node values, each carrying a typed head payload
// and a Next sibling link. This package only ever reads nodes; nothing here
// constructs a tree from source text.
package ast

// NodeID uniquely identifies a node within a chunk, stable for the lifetime
// of the compile. Diagnostics and debug symbols key off it instead of a
// pointer so that serialized debug dumps remain meaningful.
type NodeID uint32

// NoNodeID is the sentinel for "no source node" (synthetic nodes the
// emitter itself introduces, e.g. implicit block-end releases).
const NoNodeID NodeID = 0

// NodeKind tags which head-payload field of Node is meaningful.
type NodeKind uint8

const (
	KindInvalid NodeKind = iota

	// Literals
	KindIntLit
	KindFloatLit
	KindStringLit
	KindSymbolLit
	KindBoolLit
	KindNoneLit

	// Names & access
	KindIdent
	KindField
	KindIndex

	// Composite construction
	KindListLit
	KindMapLit
	KindObjectLit
	KindStringTemplate

	// Operators
	KindUnary
	KindBinary
	KindLogical
	KindAssign

	// Calls
	KindCall
	KindMethodCall
	KindLambda

	// Statements
	KindExprStmt
	KindVarDecl
	KindFuncDecl
	KindMethodDecl
	KindObjectDecl
	KindEnumDecl
	KindReturn
	KindIf
	KindWhileCond
	KindWhileInf
	KindForRange
	KindForIter
	KindMatch
	KindBreak
	KindContinue
	KindTry
	KindThrow
	KindBlock

	// Fibers
	KindCoinit
	KindCoyield
	KindCoresume

	// Top level
	KindChunk
)

// Node is one element of the AST the parser produces. Only the fields
// relevant to Kind are meaningful; the rest are zero. Next threads nodes
// that are siblings in source order (statements in a block, elements of a
// literal, arguments of a call); children that are not siblings (e.g. a
// binary operator's two operands) use the named fields below instead.
type Node struct {
	ID   NodeID
	Kind NodeKind
	Next *Node

	// Populated by the semantic analyzer; the emitter never re-resolves.
	ResolvedSymbol int64 // symbol.CompactSymbolId, stored as int64 to avoid an import cycle
	InferredType   int32 // types.TypeID

	// Head payloads. Which ones are meaningful is determined by Kind.
	IntValue    int64
	FloatValue  float64
	StringValue string
	BoolValue   bool

	Name string // KindIdent, KindField, KindVarDecl, KindFuncDecl, params, captures

	Op string // KindUnary/KindBinary/KindLogical/KindAssign operator text, e.g. "+", "and"

	Left  *Node // receiver / lhs / condition / iterable
	Right *Node // rhs / index / step
	Third *Node // e.g. for-range step when Left/Right are start/end

	Children *Node // first child in a Next-linked sibling chain (block body, call args, literal elements)

	Params   []string // function/lambda/method parameter names
	IsStatic bool     // func/var declared static
	IsBoxed  bool     // filled in by the analyzer when a local is captured

	ElseChildren *Node // if/match else-branch body
	CatchName    string
	CatchBody    *Node

	Location Location
}

// Location is the source position an error or a DebugSym should point at.
// The core never formats or prints it (out of scope); it only carries it.
type Location struct {
	Line, Col int
}

// Walk calls fn for n and every sibling reachable via Next, in order.
func Walk(n *Node, fn func(*Node)) {
	for cur := n; cur != nil; cur = cur.Next {
		fn(cur)
	}
}

// Count returns the number of siblings starting at n (n included).
func Count(n *Node) int {
	c := 0
	for cur := n; cur != nil; cur = cur.Next {
		c++
	}
	return c
}
