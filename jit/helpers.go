package jit

import "reflect"

// helperTable maps a runtime ABI entry-point name (spec.md §4.2) to the Go
// function implementing it. Every listed function's parameters and result
// are single machine words (int64/uint64/uintptr/float64/*Arena), which is
// what lets generated code call them directly through the same
// ABIInternal register convention used for generated-code-to-generated-
// code calls (jit/callable_amd64.go) — argument and return classification
// under Go's internal ABI is uniform across these "integer-class" kinds
// for up to three arguments, so HelperAddr's reflect-derived entry point
// is safe to invoke from hand-emitted bytes provided the call site passes
// exactly this many arguments in exactly this order.
var helperTable = map[string]any{
	"malloc":              func(a *Arena, size int64) uintptr { return a.Alloc(int(size)) },
	"alloc_bytes":         func(a *Arena, size int64) uintptr { return a.Alloc(int(size)) },
	"string_concat":       StringConcat,
	"string_concat_mut":   StringConcatMut,
	"string_concat_multi": func(a *Arena, ptr uintptr, count int64) uintptr {
		arr := ptrSliceFromMem(ptr, int(count))
		return StringConcatMulti(a, arr)
	},
	"string_eq":          func(a, b uintptr) int64 { return StringEq(a, b) },
	"string_cmp":         func(a, b uintptr) int64 { return StringCmp(a, b) },
	"string_drop":        func(a *Arena, hdr uintptr) { StringDrop(a, hdr) },
	"string_len":         func(hdr uintptr) int64 { return StringLen(hdr) },
	"print_int":          PrintInt,
	"print_float":        PrintFloat,
	"print_str":          PrintStr,
	"to_string_int":      ToStringInt,
	"to_string_float":    ToStringFloat,
	"to_int_from_float":  ToIntFromFloat,
	"to_int_from_string": ToIntFromString,
	"to_float_from_int":  ToFloatFromInt,
	"to_float_from_string": ToFloatFromString,
	"string_upper":       StringUpper,
	"string_lower":       StringLower,
	"string_trim":        StringTrim,
	"string_contains":    StringContains,
	"string_starts_with": StringStartsWith,
	"string_ends_with":   StringEndsWith,
	"string_replace":     StringReplace,
	"string_index_of":    StringIndexOf,
	"string_slice":       StringSlice,
	"string_pad_left":    StringPadLeft,
	"string_pad_right":   StringPadRight,
	"string_hash":        StringHash,
	"string_split":       StringSplit,
	"hrtime":              Hrtime,
	"sin":                 Sin,
	"cos":                 Cos,
	"tan":                 Tan,
	"log":                 Log,
	"log2":                Log2,
	"log10":               Log10,
	"pow_float":           PowFloat,
	"pow_int":             PowInt,
	"fmod":                Fmod,
	"fabs":                FAbs,
	"fsqrt":               FSqrt,
	"fround":              FRound,
	"fceil":               FCeil,
	"ffloor":              FFloor,
	"ftrunc":              FTrunc,
	"fisnan":              FIsNaN,
	"memcpy": func(dst, src, n int64) {
		copyMem(uintptr(dst), uintptr(src), int(n))
	},
	"record_trap": RecordTrap,
	"new_list":    newListHelper,
	"new_map":     newMapHelper,
	"new_record":  newRecordHelper,
	"new_union":   newUnionHelper,
	"get_field":   getFieldHelper,
	"set_field":   setFieldHelper,
	"is_variant":  isVariantHelper,
	"union_unbox": unionUnboxHelper,
	"get_index":   getIndexHelper,
	"set_index":   setIndexHelper,
}

// HelperAddr returns the entry point of the named runtime helper, suitable
// for embedding as an immediate operand of a generated `call` instruction.
func HelperAddr(name string) (uint64, bool) {
	fn, ok := helperTable[name]
	if !ok {
		return 0, false
	}
	return uint64(reflect.ValueOf(fn).Pointer()), true
}
