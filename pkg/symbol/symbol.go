package symbol

import "github.com/chazu/emberc/pkg/types"

// SymID identifies a Symbol. FuncSymID identifies one overload of a
// function-family Symbol. CompactSymbolId packs either into 31 bits plus
// a kind flag, per spec.md §3.
type SymID uint32

// NullSym is the "null parent" distinguished symbol, and also the "no
// symbol resolved yet" sentinel.
const NullSym SymID = 0

// CompactSymbolId is a 31-bit id plus one flag bit distinguishing a
// FuncSym reference from a plain Symbol reference. NULL is all bits set.
type CompactSymbolId uint32

const compactFuncFlag CompactSymbolId = 1 << 31

// NullCompactID is the all-bits-set sentinel ("no symbol").
const NullCompactID CompactSymbolId = 0xFFFFFFFF

// MakeSymCompactID packs a plain Symbol reference.
func MakeSymCompactID(id SymID) CompactSymbolId { return CompactSymbolId(id) }

// MakeFuncSymCompactID packs a FuncSym reference.
func MakeFuncSymCompactID(id FuncSymID) CompactSymbolId {
	return CompactSymbolId(id) | compactFuncFlag
}

// IsFuncSym reports whether c refers to a FuncSym rather than a Symbol.
func (c CompactSymbolId) IsFuncSym() bool { return c != NullCompactID && c&compactFuncFlag != 0 }

// IsNull reports whether c carries no reference.
func (c CompactSymbolId) IsNull() bool { return c == NullCompactID }

// SymID extracts the Symbol id; valid only when !IsFuncSym().
func (c CompactSymbolId) SymID() SymID { return SymID(c &^ compactFuncFlag) }

// FuncSymID extracts the FuncSym id; valid only when IsFuncSym().
func (c CompactSymbolId) FuncSymID() FuncSymID { return FuncSymID(c &^ compactFuncFlag) }

// SymbolKind tags which variant of Symbol this is (spec.md §3).
type SymbolKind uint8

const (
	SymInvalid SymbolKind = iota
	SymVariable
	SymFunction
	SymObject
	SymEnumType
	SymEnumMember
	SymModule
	SymBuiltinType
	SymInternal
)

// ManyFuncSyms is the sentinel stored in Symbol.FuncSymID when a name has
// more than one overload under the same parent ("overloaded sentinel",
// spec.md §3's FuncSym variant note).
const ManyFuncSyms FuncSymID = 0xFFFFFFFF

// Symbol is keyed by (parentSymId, nameId); a pair maps to at most one
// Symbol (spec.md §3's invariant).
type Symbol struct {
	ID     SymID
	Parent SymID
	Name   NameID
	Kind   SymbolKind

	// SymVariable
	VarType   types.TypeID
	DeclChunk uint32
	DeclNode  uint32

	// SymFunction: FuncSymID, or ManyFuncSyms if overloaded.
	FuncSymID FuncSymID

	// SymObject
	RuntimeTypeID types.TypeID
	ModuleID      ModuleID
}

// FuncSymID identifies one (symId, funcSigId) overload.
type FuncSymID uint32

// FuncSym is spec.md §3's FuncSym: one overload of a function Symbol.
type FuncSym struct {
	ID                   FuncSymID
	SymID                SymID
	SigID                FuncSigID
	ChunkID              uint32
	DeclID               uint32
	RetType              types.TypeID
	HasStaticInitializer bool
}

// FuncSigID identifies an interned FuncSig.
type FuncSigID uint32

// FuncSig is the interned (paramTypes, returnType) overloading key.
type FuncSig struct {
	ID               FuncSigID
	ParamTypes       []types.TypeID
	ReturnType       types.TypeID
	ReqCallTypeCheck bool // true iff any param type is neither Any nor Dynamic
}

// ModuleID identifies a module entry (expansion: spec.md's undefined
// "module entries" bullet in §2's SymbolTable row). A random UUID drawn
// at registration, so unlike NameID/SymID it does not depend on intern
// order; a recompile registers the module under a new id — grounded on
// vm/dist's use of a UUID for cross-process identity.
type ModuleID [16]byte

// ModuleEntry is one entry in the module table (spec.md §3's "module
// entries").
type ModuleEntry struct {
	ID     ModuleID
	Name   NameID
	Chunks []uint32
}
