// Package bytecode implements the flat, variable-width instruction buffer
// and constant pool the BytecodeEmitter writes and the (external)
// instruction-dispatch loop reads (spec.md §3, §6).
//
// Grounded on the teacher's pkg/bytecode/chunk.go Chunk shape (code
// section, constant pool, capture descriptors, source map) kept largely
// as-is, generalized from a stack-machine's implicit-operand-stack ops to
// the register-addressed, ARC-aware op set spec.md §4.5 names.
package bytecode

// Op is a single bytecode opcode. Each op has a fixed operand layout
// except where noted. Jump displacements are 16-bit little-endian
// (PatchJump/ReadJumpTarget); the other 16-bit operands (constant, field,
// method-group, inline-cache and sub-chunk indices) are written high byte
// first.
type Op byte

const (
	OpConst Op = iota
	OpCopy
	OpCopyRetainSrc
	OpCopyRetainRelease
	OpCopyReleaseDst
	OpRetain
	OpRelease
	OpBox
	OpBoxValue
	OpBoxValueRetain
	OpSetBoxValue
	OpSetBoxValueRelease

	OpAdd
	OpAddInt
	OpMinus
	OpMinusInt
	OpMul
	OpMulInt
	OpDiv
	OpMod
	OpPow

	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpNot
	OpNeg

	OpTrue
	OpFalse
	OpNone

	OpJumpCond
	OpJumpNotCond
	OpJumpNotNone
	OpJump

	OpCall
	OpCall0
	OpCall1
	OpCallSym
	OpCallObjSym

	OpStaticVar
	OpSetStaticVar
	OpStaticFunc

	OpField
	OpFieldRetain
	OpSetField
	OpSetFieldRelease

	OpIndex
	OpReverseIndex
	OpSetIndexRelease
	OpSlice

	OpList
	OpMap
	OpMapEmpty
	OpObject
	OpObjectSmall

	OpLambda
	OpClosure

	OpStringTemplate
	OpMatch

	OpForRangeInit
	OpForRange

	OpTryValue
	OpThrow

	OpCoinit
	OpCoyield
	OpCoresume
	OpCoreturn

	OpRet0
	OpRet1
	OpEnd

	OpSetInitN
	OpTag
	OpTagLiteral

	opCount
)

// ObjectSmallFieldBoundary is spec.md §8's boundary: object construction
// with at most this many fields uses the objectSmall fast path.
const ObjectSmallFieldBoundary = 4

var opNames = [opCount]string{
	OpConst: "const", OpCopy: "copy", OpCopyRetainSrc: "copyRetainSrc",
	OpCopyRetainRelease: "copyRetainRelease", OpCopyReleaseDst: "copyReleaseDst",
	OpRetain: "retain", OpRelease: "release", OpBox: "box",
	OpBoxValue: "boxValue", OpBoxValueRetain: "boxValueRetain",
	OpSetBoxValue: "setBoxValue", OpSetBoxValueRelease: "setBoxValueRelease",
	OpAdd: "add", OpAddInt: "addInt", OpMinus: "minus", OpMinusInt: "minusInt",
	OpMul: "mul", OpMulInt: "mulInt", OpDiv: "div", OpMod: "mod", OpPow: "pow",
	OpBitAnd: "bitAnd", OpBitOr: "bitOr", OpBitXor: "bitXor", OpShl: "shl", OpShr: "shr",
	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpNot: "not", OpNeg: "neg",
	OpTrue: "true", OpFalse: "false", OpNone: "none",
	OpJumpCond: "jumpCond", OpJumpNotCond: "jumpNotCond", OpJumpNotNone: "jumpNotNone", OpJump: "jump",
	OpCall: "call", OpCall0: "call0", OpCall1: "call1", OpCallSym: "callSym", OpCallObjSym: "callObjSym",
	OpStaticVar: "staticVar", OpSetStaticVar: "setStaticVar", OpStaticFunc: "staticFunc",
	OpField: "field", OpFieldRetain: "fieldRetain", OpSetField: "setField", OpSetFieldRelease: "setFieldRelease",
	OpIndex: "index", OpReverseIndex: "reverseIndex", OpSetIndexRelease: "setIndexRelease", OpSlice: "slice",
	OpList: "list", OpMap: "map", OpMapEmpty: "mapEmpty", OpObject: "object", OpObjectSmall: "objectSmall",
	OpLambda: "lambda", OpClosure: "closure",
	OpStringTemplate: "stringTemplate", OpMatch: "match",
	OpForRangeInit: "forRangeInit", OpForRange: "forRange",
	OpTryValue: "tryValue", OpThrow: "throw",
	OpCoinit: "coinit", OpCoyield: "coyield", OpCoresume: "coresume", OpCoreturn: "coreturn",
	OpRet0: "ret0", OpRet1: "ret1", OpEnd: "end",
	OpSetInitN: "setInitN", OpTag: "tag", OpTagLiteral: "tagLiteral",
}

// String returns the op's mnemonic, for disassembly.
func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "op?"
}

// fixedOperandWidth is the number of fixed operand bytes following the opcode
// byte for ops with a static layout. Ops not listed are variable-width:
// their first operand byte is a count, as spec.md §4.5 describes.
var fixedOperandWidth = map[Op]int{
	OpConst: 3, // dst(1) + constIdx(2)
	OpCopy:  2, OpCopyRetainSrc: 2, OpCopyRetainRelease: 2, OpCopyReleaseDst: 2,
	OpRetain: 1, OpRelease: 1,
	OpBox: 1, OpBoxValue: 2, OpBoxValueRetain: 2, OpSetBoxValue: 2, OpSetBoxValueRelease: 2,
	OpAdd: 3, OpAddInt: 3, OpMinus: 3, OpMinusInt: 3, OpMul: 3, OpMulInt: 3, OpDiv: 3, OpMod: 3, OpPow: 3,
	OpBitAnd: 3, OpBitOr: 3, OpBitXor: 3, OpShl: 3, OpShr: 3,
	OpEq: 3, OpNe: 3, OpLt: 3, OpLe: 3, OpGt: 3, OpGe: 3,
	OpNot: 2, OpNeg: 2,
	OpTrue: 1, OpFalse: 1, OpNone: 1,
	OpJumpCond: 3, OpJumpNotCond: 3, OpJumpNotNone: 3, OpJump: 2,
	OpCall0:      2, // calleeSlot(1) dst(1)
	OpCall1:      3, // calleeSlot(1) dst(1) arg(1)
	OpCall:       4, // calleeSlot(1) argStart(1) numArgs(1) dst(1)
	OpCallSym:    9, // argStart(1) numArgs(1) dst(1) symId(4) icSlot(2)
	OpCallObjSym: 8, // recv(1) argStart(1) numArgs(1) dst(1) groupId(2) icSlot(2)
	OpStaticVar:  5, OpSetStaticVar: 5, OpStaticFunc: 5,
	OpField: 6, OpFieldRetain: 6, OpSetField: 6, OpSetFieldRelease: 6,
	OpIndex: 3, OpReverseIndex: 3, OpSetIndexRelease: 3,
	OpMapEmpty: 1,
	OpList:     3, OpMap: 3, OpObject: 3, OpObjectSmall: 3, // numArgs(1) firstArg(1) dst(1)
	OpCoinit: 3, OpCoyield: 2, OpCoresume: 2, OpCoreturn: 0,
	OpRet0: 0, OpRet1: 1, OpEnd: 0,
	OpTryValue:     4,
	OpThrow:        1,
	OpLambda:       3, // dst(1) chunkIdx(2)
	OpClosure:      5, // firstCapture(1) numCaptures(1) dst(1) chunkIdx(2)
	OpForRangeInit: 2, // counterSlot(1) startSlot(1)
	OpForRange:     5, // counterSlot(1) endSlot(1) stepSlot(1) exitJump(2)
	OpTagLiteral:   3, // dst(1) + constIdx(2), mirroring OpConst
}

// FixedOperandWidth returns the number of operand bytes following o's
// opcode byte, or -1 if o is variable-width.
func FixedOperandWidth(o Op) int {
	if w, ok := fixedOperandWidth[o]; ok {
		return w
	}
	return -1
}
