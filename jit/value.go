package jit

import (
	"math"

	"github.com/lumen-lang/ljit/lir"
)

// NaN-boxed sentinels, spec.md §3.2.
const (
	NaNBoxNull  uint64 = 0x7FF8_0000_0000_0001 - 1 // = 0x7FF8_0000_0000_0000
	NaNBoxTrue  uint64 = 0x7FF8_0000_0000_0001
	NaNBoxFalse uint64 = 0x7FF8_0000_0000_0002
)

// BoxInt packs a signed integer into the odd-tagged NaN-box slot.
func BoxInt(i int64) uint64 { return uint64(i<<1) | 1 }

// UnboxInt reverses BoxInt via an arithmetic right shift, preserving sign.
func UnboxInt(v uint64) int64 { return int64(v) >> 1 }

// BoxFloat bit-reinterprets f as its NaN-box representation. Every non
// quiet-NaN-payload-colliding float round-trips exactly; Lumen's own
// constant pool never produces a float whose bit pattern collides with the
// three sentinels above (ordinary arithmetic on finite floats cannot
// produce them either, since they are signalling-quiet-NaN payloads with
// the low tag bits set and no IEEE op manufactures tag bit 0 specifically).
func BoxFloat(f float64) uint64 { return math.Float64bits(f) }

// UnboxFloat reverses BoxFloat.
func UnboxFloat(v uint64) float64 { return math.Float64frombits(v) }

// BoxBool returns the True/False sentinel for b.
func BoxBool(b bool) uint64 {
	if b {
		return NaNBoxTrue
	}
	return NaNBoxFalse
}

// IsTruthyBool reports whether v is the True sentinel (only meaningful when
// the static type of v is known to be Bool).
func IsTruthyBool(v uint64) bool { return v == NaNBoxTrue }

// FalsyValue returns the type-specific falsy bit pattern used by Not/And/Or
// and by Test, per spec.md §4.1. Null has no falsy value of its own — code
// that wants to test against Null must compare to NaNBoxNull explicitly.
func FalsyValue(t lir.Type) uint64 {
	switch t {
	case lir.TypeInt:
		return BoxInt(0)
	case lir.TypeFloat:
		return 0 // 0.0's bit pattern
	case lir.TypeBool:
		return NaNBoxFalse
	default:
		// String/List/Map/Record/Union: falsy is the null pointer bit
		// pattern, not NaNBoxNull (a pointer type's zero value is 0, and
		// 0 never aliases a NaN sentinel because real allocations start
		// above address 0).
		return 0
	}
}

// ZeroOfType returns the NaN-boxed zero value for t, used to initialize
// multi-block registers (spec.md §4.6 "Declare IR variables...") and to
// satisfy the zero-instruction-cell boundary behavior (spec.md §8.2).
func ZeroOfType(t lir.Type) uint64 {
	switch t {
	case lir.TypeInt:
		return BoxInt(0)
	case lir.TypeBool:
		return NaNBoxFalse
	case lir.TypeFloat, lir.TypeString, lir.TypeList, lir.TypeMap, lir.TypeRecord, lir.TypeUnion:
		return 0
	case lir.TypeNull:
		return NaNBoxNull
	default:
		return NaNBoxNull
	}
}
