// Package types implements the closed set of built-in type ids plus opaque
// object type ids, and the compatibility/rc-candidacy rules over them
// (spec.md §4.3).
//
// The enum shape is lifted from the teacher's vm/value.go NaN-boxing tag
// set (tagObject, tagInt, tagSpecial, tagSymbol, tagBlock, tagCell): a
// closed, small, contiguous id space for a fixed set of runtime kinds is
// exactly that idiom, generalized from a value encoding to a static type id.
package types

// TypeID is a small integer identifying either a built-in type or, for
// ids >= FirstObjectType, a user-defined object type registered at
// compile time.
type TypeID int32

const (
	Any TypeID = iota
	Boolean
	Float
	Integer
	String
	StaticString
	Rawstring
	Symbol
	List
	ListIterator
	Map
	MapIterator
	Pointer
	None
	Error
	Fiber
	Metatype
	Dynamic
	Undefined

	// FirstObjectType is the first id available for user object types.
	// Object type ids are allocated contiguously above it by the
	// SymbolTable (pkg/symbol) as `object` symbols are declared.
	FirstObjectType TypeID = 64
)

var builtinNames = map[TypeID]string{
	Any: "any", Boolean: "bool", Float: "float", Integer: "int",
	String: "string", StaticString: "staticstring", Rawstring: "rawstring",
	Symbol: "symbol", List: "list", ListIterator: "listiterator",
	Map: "map", MapIterator: "mapiterator", Pointer: "pointer",
	None: "none", Error: "error", Fiber: "fiber", Metatype: "metatype",
	Dynamic: "dynamic", Undefined: "undefined",
}

// String renders a built-in type's name, or a generic "object" for
// object type ids (the lattice has no name table for those; SymbolTable
// owns that mapping).
func (t TypeID) String() string {
	if n, ok := builtinNames[t]; ok {
		return n
	}
	if t >= FirstObjectType {
		return "object"
	}
	return "unknown"
}

// IsObject reports whether t was allocated for a user-declared object type.
func (t TypeID) IsObject() bool { return t >= FirstObjectType }

// IsNumeric reports whether t is Integer or Float — the pair the emitter
// specializes arithmetic/bitwise/compare ops for (spec.md §4.5).
func (t TypeID) IsNumeric() bool { return t == Integer || t == Float }

// IsCompat implements spec.md §4.3's isCompat(src, tgt).
func IsCompat(src, tgt TypeID) bool {
	switch {
	case tgt == Any:
		return true
	case src == Dynamic:
		return true
	case src == tgt:
		return true
	case src == Integer && tgt == Float:
		return true
	default:
		return false
	}
}

// IsRcCandidate reports whether a value of type t may point to a
// refcounted heap object (spec.md §4.3's "Rc-candidacy").
func IsRcCandidate(t TypeID) bool {
	switch t {
	case List, Map, Pointer, Fiber, Any, Dynamic:
		return true
	case String:
		return true
	default:
		return t.IsObject()
	}
}

// CommonType returns the type two operands of a logical and/or share when
// it is identical, else Any (spec.md §4.2's "Logical and/or" rule).
func CommonType(a, b TypeID) TypeID {
	if a == b {
		return a
	}
	return Any
}
