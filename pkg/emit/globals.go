package emit

// GlobalSymIndex holds the emission-time indices that must stay
// consistent across every function, method, and lambda body compiled for
// one module: field-symbol indices (spec.md §4.5: "Field-sym indices are
// reserved on first use per name globally") and method-group ids (spec.md
// §9's "Method-call dispatch path": "a method-group id (interning of
// (name, numParams))"). A fresh Emitter is created per function/method/
// lambda body (funcs.go), but they all share one GlobalSymIndex so the
// same field or method name resolves to the same index everywhere it is
// referenced across the module — a call site and the declaration it
// targets must agree on the id, or a downstream VM's
// methodSyms[(typeId, mgId)] table could never be built correctly.
type GlobalSymIndex struct {
	fieldSymIndex map[string]int
	nextFieldSym  int

	methodGroupIndex map[methodGroupKey]int
	nextMethodGroup  int
}

type methodGroupKey struct {
	name    string
	numArgs int
}

// NewGlobalSymIndex creates an empty index, to be shared by every Emitter
// compiling a body within the same module.
func NewGlobalSymIndex() *GlobalSymIndex {
	return &GlobalSymIndex{
		fieldSymIndex:    make(map[string]int),
		methodGroupIndex: make(map[methodGroupKey]int),
	}
}

// FieldSymIndex reserves (or returns the existing) global field-symbol
// index for name.
func (g *GlobalSymIndex) FieldSymIndex(name string) int {
	if idx, ok := g.fieldSymIndex[name]; ok {
		return idx
	}
	idx := g.nextFieldSym
	g.nextFieldSym++
	g.fieldSymIndex[name] = idx
	return idx
}

// MethodGroupID interns (name, numArgs) to a method-group id.
func (g *GlobalSymIndex) MethodGroupID(name string, numArgs int) int {
	key := methodGroupKey{name, numArgs}
	if idx, ok := g.methodGroupIndex[key]; ok {
		return idx
	}
	idx := g.nextMethodGroup
	g.nextMethodGroup++
	g.methodGroupIndex[key] = idx
	return idx
}
