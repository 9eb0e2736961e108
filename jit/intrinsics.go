package jit

// IntrinsicID enumerates the builtin IDs the Intrinsic opcode's B operand
// selects among (spec.md §4.2's "Builtins (one entry per intrinsic ID)"
// list, given a stable ordering here since the distilled spec names the
// members but not their numbering).
type IntrinsicID uint16

const (
	IntrinsicPrintInt IntrinsicID = iota
	IntrinsicPrintFloat
	IntrinsicPrintStr
	IntrinsicLength
	IntrinsicToStringInt
	IntrinsicToStringFloat
	IntrinsicToIntFromFloat
	IntrinsicToIntFromString
	IntrinsicToFloatFromInt
	IntrinsicToFloatFromString
	IntrinsicStringUpper
	IntrinsicStringLower
	IntrinsicStringTrim
	IntrinsicStringContains
	IntrinsicStringStartsWith
	IntrinsicStringEndsWith
	IntrinsicStringReplace
	IntrinsicStringIndexOf
	IntrinsicStringSlice
	IntrinsicStringPadLeft
	IntrinsicStringPadRight
	IntrinsicStringHash
	IntrinsicStringSplit
	IntrinsicHrtime
	IntrinsicSin
	IntrinsicCos
	IntrinsicTan
	IntrinsicLog
	IntrinsicLog2
	IntrinsicLog10
	IntrinsicPowFloat
	IntrinsicPowInt
	IntrinsicFmod
	IntrinsicAbs
	IntrinsicSqrt
	IntrinsicRound
	IntrinsicCeil
	IntrinsicFloor
	IntrinsicTrunc
	IntrinsicIsNaN
)
