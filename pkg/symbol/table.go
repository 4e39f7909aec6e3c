package symbol

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/emberc/pkg/types"
)

// parentNameKey is the composite key Symbol lookup is keyed by
// (spec.md §4.1).
type parentNameKey struct {
	parent SymID
	name   NameID
}

// symSigKey is the composite key FuncSym lookup is keyed by.
type symSigKey struct {
	sym SymID
	sig FuncSigID
}

// Table is the global symbol graph: interned names, the (parent,name)→Symbol
// map, the (sym,sig)→FuncSym map, and FuncSig interning (spec.md §4.1).
//
// Grounded on vm/symbol.go's SymbolTable (dense id space, intern-on-miss)
// and vm/vtable.go's parent-chain walk, which is the model for
// resolveForCall's "walk enclosing scopes" step.
type Table struct {
	Names *NameInterner

	symbols     map[parentNameKey]SymID
	symByID     []*Symbol // index 0 unused (NullSym)
	funcSyms    map[symSigKey]FuncSymID
	funcSymByID []*FuncSym
	sigsByHash  map[string]FuncSigID
	sigByID     []*FuncSig
	// untypedSigCache caches the signature id for an N-param, all-dynamic
	// signature, for fast repeated lookup (spec.md §4.1's
	// "Untyped signatures of N params are cached by N").
	untypedSigCache map[int]FuncSigID

	modules map[NameID]*ModuleEntry

	// nextObjectType is the next semantic TypeID DeclareObject will hand
	// out. Object type ids are allocated contiguously above
	// types.FirstObjectType by the SymbolTable as object symbols are
	// declared (types.FirstObjectType's doc comment).
	nextObjectType types.TypeID
}

// NewTable creates an empty symbol table with the null parent reserved.
func NewTable() *Table {
	return &Table{
		Names:           NewNameInterner(),
		symbols:         make(map[parentNameKey]SymID),
		symByID:         []*Symbol{nil},
		funcSyms:        make(map[symSigKey]FuncSymID),
		funcSymByID:     []*FuncSym{nil},
		sigsByHash:      make(map[string]FuncSigID),
		sigByID:         []*FuncSig{nil},
		untypedSigCache: make(map[int]FuncSigID),
		modules:         make(map[NameID]*ModuleEntry),
		nextObjectType:  types.FirstObjectType,
	}
}

// DeclareVariable creates a variable Symbol under parent with the given
// name. Returns an error if (parent,name) already names any symbol
// (DuplicateSymbol, spec.md §7).
func (t *Table) DeclareVariable(parent SymID, name NameID, typ types.TypeID, declChunk, declNode uint32) (*Symbol, error) {
	key := parentNameKey{parent, name}
	if _, ok := t.symbols[key]; ok {
		return nil, fmt.Errorf("duplicate symbol %q under parent %d", t.Names.Text(name), parent)
	}
	id := SymID(len(t.symByID))
	sym := &Symbol{ID: id, Parent: parent, Name: name, Kind: SymVariable, VarType: typ, DeclChunk: declChunk, DeclNode: declNode}
	t.symByID = append(t.symByID, sym)
	t.symbols[key] = id
	return sym, nil
}

// DeclareObject creates an object-type Symbol, self-allocating the next
// contiguous object TypeID (spec.md §4.3: user object-type ids are
// allocated contiguously above the built-ins). Each declared object gets
// its own distinct TypeID; fields and methods are themselves declared as
// child Symbols/FuncSyms keyed under the returned Symbol's ID as parent,
// which is what keeps them in a namespace separate from free functions
// and top-level variables.
func (t *Table) DeclareObject(parent SymID, name NameID, mod ModuleID) (*Symbol, error) {
	key := parentNameKey{parent, name}
	if _, ok := t.symbols[key]; ok {
		return nil, fmt.Errorf("duplicate symbol %q under parent %d", t.Names.Text(name), parent)
	}
	id := SymID(len(t.symByID))
	runtimeType := t.nextObjectType
	t.nextObjectType++
	sym := &Symbol{ID: id, Parent: parent, Name: name, Kind: SymObject, RuntimeTypeID: runtimeType, ModuleID: mod}
	t.symByID = append(t.symByID, sym)
	t.symbols[key] = id
	return sym, nil
}

// DeclareFunction registers one overload of a function named `name` under
// parent with signature sig, returning its FuncSym. If the name already
// names a single function, the parent Symbol's FuncSymID is flipped to
// ManyFuncSyms ("overloaded sentinel", spec.md §9).
func (t *Table) DeclareFunction(parent SymID, name NameID, sig FuncSigID, chunkID, declID uint32, ret types.TypeID) (*FuncSym, error) {
	key := parentNameKey{parent, name}
	var sym *Symbol
	if id, ok := t.symbols[key]; ok {
		sym = t.symByID[id]
		if sym.Kind != SymFunction {
			return nil, fmt.Errorf("duplicate symbol %q under parent %d", t.Names.Text(name), parent)
		}
	} else {
		id := SymID(len(t.symByID))
		sym = &Symbol{ID: id, Parent: parent, Name: name, Kind: SymFunction, FuncSymID: 0}
		t.symByID = append(t.symByID, sym)
		t.symbols[key] = id
	}

	sk := symSigKey{sym.ID, sig}
	if _, exists := t.funcSyms[sk]; exists {
		return nil, fmt.Errorf("duplicate overload of %q for signature %d", t.Names.Text(name), sig)
	}

	fsID := FuncSymID(len(t.funcSymByID))
	fs := &FuncSym{ID: fsID, SymID: sym.ID, SigID: sig, ChunkID: chunkID, DeclID: declID, RetType: ret}
	t.funcSymByID = append(t.funcSymByID, fs)
	t.funcSyms[sk] = fsID

	if sym.FuncSymID == 0 {
		sym.FuncSymID = fsID
	} else if sym.FuncSymID != ManyFuncSyms {
		sym.FuncSymID = ManyFuncSyms
	}
	return fs, nil
}

// Symbol returns the Symbol for id, or nil if id is NullSym/unknown.
func (t *Table) Symbol(id SymID) *Symbol {
	if id == NullSym || int(id) >= len(t.symByID) {
		return nil
	}
	return t.symByID[id]
}

// FuncSym returns the FuncSym for id.
func (t *Table) FuncSym(id FuncSymID) *FuncSym {
	if int(id) >= len(t.funcSymByID) {
		return nil
	}
	return t.funcSymByID[id]
}

// EnsureFuncSig interns (paramTypes, ret) as a FuncSig, hashing on the
// param-type sequence plus return type (spec.md §4.1).
func (t *Table) EnsureFuncSig(paramTypes []types.TypeID, ret types.TypeID) FuncSigID {
	reqCheck := false
	key := make([]byte, 0, 4*(len(paramTypes)+1))
	for _, p := range paramTypes {
		if p != types.Any && p != types.Dynamic {
			reqCheck = true
		}
		key = appendTypeID(key, p)
	}
	key = append(key, '|')
	key = appendTypeID(key, ret)
	hash := string(key)

	if id, ok := t.sigsByHash[hash]; ok {
		return id
	}
	id := FuncSigID(len(t.sigByID))
	pt := append([]types.TypeID(nil), paramTypes...)
	sig := &FuncSig{ID: id, ParamTypes: pt, ReturnType: ret, ReqCallTypeCheck: reqCheck}
	t.sigByID = append(t.sigByID, sig)
	t.sigsByHash[hash] = id

	allDynamic := true
	for _, p := range pt {
		if p != types.Dynamic && p != types.Any {
			allDynamic = false
			break
		}
	}
	if allDynamic {
		if _, exists := t.untypedSigCache[len(pt)]; !exists {
			t.untypedSigCache[len(pt)] = id
		}
	}
	return id
}

func appendTypeID(b []byte, t types.TypeID) []byte {
	return append(b, byte(t), byte(t>>8), byte(t>>16), byte(t>>24))
}

// UntypedSigForArity returns the cached untyped (all any/dynamic) FuncSig
// for a given parameter count, if one has been interned.
func (t *Table) UntypedSigForArity(n int) (FuncSigID, bool) {
	id, ok := t.untypedSigCache[n]
	return id, ok
}

// FuncSigByID returns the FuncSig for id.
func (t *Table) FuncSigByID(id FuncSigID) *FuncSig {
	if int(id) >= len(t.sigByID) {
		return nil
	}
	return t.sigByID[id]
}

// RegisterModule creates a fresh ModuleEntry with a stable UUID identity.
func (t *Table) RegisterModule(name NameID) *ModuleEntry {
	m := &ModuleEntry{ID: ModuleID(uuid.New()), Name: name}
	t.modules[name] = m
	return m
}

// Module looks up a previously registered module by name.
func (t *Table) Module(name NameID) (*ModuleEntry, bool) {
	m, ok := t.modules[name]
	return m, ok
}

// ResolveDistinct implements spec.md §4.1's resolveDistinct: a value-context
// lookup that fails if the name only exists as an overloaded function
// family.
func (t *Table) ResolveDistinct(parent SymID, name NameID) (*Symbol, error) {
	id, ok := t.symbols[parentNameKey{parent, name}]
	if !ok {
		return nil, nil // unknown name: caller decides how to report
	}
	sym := t.symByID[id]
	if sym.Kind == SymFunction && sym.FuncSymID == ManyFuncSyms {
		return nil, fmt.Errorf("%q names multiple overloads; cannot use as a value", t.Names.Text(name))
	}
	return sym, nil
}

// FuncCallSymResult is resolveForCall's result: either an exact FuncSym
// match, an ambiguity error, a signature mismatch (reporting the sole
// existing overload when there is exactly one), or "unknown name".
type FuncCallSymResult struct {
	Found   *FuncSym
	Err     error
	Unknown bool
}

// ResolveForCall implements spec.md §4.1's resolveForCall. enclosing is an
// ordered list of additional parent scopes to walk (the enclosing
// function's object module, a resolved `$call` magic parent, using-imported
// modules) when name is not found directly under parent.
func (t *Table) ResolveForCall(parent SymID, name NameID, argTypes []types.TypeID, hasDynamicArg bool, enclosing []SymID) FuncCallSymResult {
	parents := append([]SymID{parent}, enclosing...)
	var sym *Symbol
	for _, p := range parents {
		if id, ok := t.symbols[parentNameKey{p, name}]; ok {
			candidate := t.symByID[id]
			if candidate.Kind == SymFunction {
				sym = candidate
				break
			}
		}
	}
	if sym == nil {
		return FuncCallSymResult{Unknown: true}
	}

	sig := t.EnsureFuncSig(argTypes, types.Dynamic)
	if fs, ok := t.funcSyms[symSigKey{sym.ID, sig}]; ok {
		return FuncCallSymResult{Found: t.funcSymByID[fs]}
	}

	if hasDynamicArg {
		// Late dispatch: defer the exact match to runtime: return the sole
		// candidate if unambiguous, else report ambiguity now.
		if sym.FuncSymID != ManyFuncSyms {
			return FuncCallSymResult{Found: t.funcSymByID[sym.FuncSymID]}
		}
		return FuncCallSymResult{Err: fmt.Errorf("multiple overloads named %q; dynamic argument cannot select one at compile time", t.Names.Text(name))}
	}

	if sym.FuncSymID == ManyFuncSyms {
		return FuncCallSymResult{Err: fmt.Errorf("multiple overloads named %q", t.Names.Text(name))}
	}
	only := t.funcSymByID[sym.FuncSymID]
	sig0 := t.sigByID[only.SigID]
	if !sig0.ReqCallTypeCheck && len(sig0.ParamTypes) == len(argTypes) {
		// An all-any/dynamic signature accepts any argument types of its arity.
		return FuncCallSymResult{Found: only}
	}
	return FuncCallSymResult{Err: fmt.Errorf("call to %q does not match its signature %v -> %v", t.Names.Text(name), sig0.ParamTypes, sig0.ReturnType)}
}

// HostTypeLoader, HostFuncLoader and HostVarLoader are the three
// host-language callback types from spec.md §6. The core stores them but
// never invokes them directly — the host is an external collaborator.
type (
	HostTypeLoader func(modID ModuleID, name string, idx int) (runtimeTypeID types.TypeID, semanticTypeID types.TypeID, ok bool)
	HostFuncLoader func(modID ModuleID, name string) (fn interface{}, quicken bool, ok bool)
	HostVarLoader  func(modID ModuleID, name string) (initial interface{}, ok bool)
)

// Importer is the symbol-lookup interface module resolution/stdlib loading
// supplies (spec.md §1: "The core only consumes a symbol-lookup
// interface"). Its implementation lives outside this core.
type Importer interface {
	LookupModule(name NameID) (*ModuleEntry, bool)
	LookupExport(mod *ModuleEntry, name NameID) (SymID, bool)
}
