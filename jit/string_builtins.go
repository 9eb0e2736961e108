package jit

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// This file is the rest of the String Runtime ABI (spec.md §4.2): one Go
// function per runtime builtin the Lowerer's Intrinsic opcode can call.
// Integer-valued builtins take/return raw (unboxed) i64; float-valued ones
// take/return f64; string builtins take/return arena pointers. The
// Intrinsic lowering path (jit/lower_intrinsic.go) is responsible for
// unboxing arguments and reboxing results — these helpers never see a
// NaN-boxed word, matching the teacher's alu.go convention of keeping
// coercion at the call boundary, not inside the primitive.

func PrintInt(v int64) { fmt.Println(v) }
func PrintFloat(v float64) { fmt.Println(v) }
func PrintStr(hdr uintptr) { fmt.Println(GoString(hdr)) }

func ToStringInt(a *Arena, v int64) uintptr { return NewHeapString(a, strconv.FormatInt(v, 10)) }
func ToStringFloat(a *Arena, v float64) uintptr {
	return NewHeapString(a, strconv.FormatFloat(v, 'g', -1, 64))
}

func ToIntFromFloat(v float64) int64   { return int64(v) }
func ToFloatFromInt(v int64) float64   { return float64(v) }

func ToIntFromString(hdr uintptr) int64 {
	i, _ := strconv.ParseInt(strings.TrimSpace(GoString(hdr)), 10, 64)
	return i
}
func ToFloatFromString(hdr uintptr) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(GoString(hdr)), 64)
	return f
}

func StringUpper(a *Arena, hdr uintptr) uintptr { return NewHeapString(a, strings.ToUpper(GoString(hdr))) }
func StringLower(a *Arena, hdr uintptr) uintptr { return NewHeapString(a, strings.ToLower(GoString(hdr))) }
func StringTrim(a *Arena, hdr uintptr) uintptr  { return NewHeapString(a, strings.TrimSpace(GoString(hdr))) }

func StringContains(hay, needle uintptr) int64 {
	if strings.Contains(GoString(hay), GoString(needle)) {
		return 1
	}
	return 0
}
func StringStartsWith(hay, prefix uintptr) int64 {
	if strings.HasPrefix(GoString(hay), GoString(prefix)) {
		return 1
	}
	return 0
}
func StringEndsWith(hay, suffix uintptr) int64 {
	if strings.HasSuffix(GoString(hay), GoString(suffix)) {
		return 1
	}
	return 0
}

func StringReplace(a *Arena, hay, old, new uintptr) uintptr {
	return NewHeapString(a, strings.ReplaceAll(GoString(hay), GoString(old), GoString(new)))
}

// StringIndexOf returns the byte offset of the first match, or -1.
func StringIndexOf(hay, needle uintptr) int64 {
	return int64(strings.Index(GoString(hay), GoString(needle)))
}

// StringSlice takes byte offsets [start, end).
func StringSlice(a *Arena, hdr uintptr, start, end int64) uintptr {
	s := GoString(hdr)
	if start < 0 {
		start = 0
	}
	if end > int64(len(s)) {
		end = int64(len(s))
	}
	if start >= end {
		return NewHeapString(a, "")
	}
	return NewHeapString(a, s[start:end])
}

func StringPadLeft(a *Arena, hdr uintptr, width int64, pad uintptr) uintptr {
	s := GoString(hdr)
	p := GoString(pad)
	if p == "" {
		p = " "
	}
	for int64(utf8.RuneCountInString(s)) < width {
		s = p + s
	}
	return NewHeapString(a, s)
}

func StringPadRight(a *Arena, hdr uintptr, width int64, pad uintptr) uintptr {
	s := GoString(hdr)
	p := GoString(pad)
	if p == "" {
		p = " "
	}
	for int64(utf8.RuneCountInString(s)) < width {
		s = s + p
	}
	return NewHeapString(a, s)
}

// StringHash backs the `hash` intrinsic with an FNV-1a 64-bit digest. No
// repo in the retrieval pack imports a hashing library (not even
// golang.org/x/crypto turns up); hash/fnv is stdlib but is the idiomatic
// Go choice for a non-cryptographic content hash, and nothing in the
// corpus suggests otherwise — see DESIGN.md.
func StringHash(hdr uintptr) int64 {
	h := fnv.New64a()
	h.Write([]byte(GoString(hdr)))
	return int64(h.Sum64())
}

// StringSplit returns a list handle (jit/collections.go) of substrings.
func StringSplit(a *Arena, hdr, sep uintptr) uint64 {
	parts := strings.Split(GoString(hdr), GoString(sep))
	items := make([]uint64, len(parts))
	for i, p := range parts {
		items[i] = uint64(NewHeapString(a, p))
	}
	return NewList(items)
}

// Hrtime returns a monotonic nanosecond counter.
func Hrtime() int64 { return time.Now().UnixNano() }

func Sin(v float64) float64  { return math.Sin(v) }
func Cos(v float64) float64  { return math.Cos(v) }
func Tan(v float64) float64  { return math.Tan(v) }
func Log(v float64) float64  { return math.Log(v) }
func Log2(v float64) float64 { return math.Log2(v) }
func Log10(v float64) float64 { return math.Log10(v) }

func PowFloat(base, exp float64) float64 { return math.Pow(base, exp) }
func PowInt(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

func Fmod(a, b float64) float64 { return math.Mod(a, b) }

func FAbs(v float64) float64  { return math.Abs(v) }
func FSqrt(v float64) float64 { return math.Sqrt(v) }
func FRound(v float64) float64 { return math.Round(v) }
func FCeil(v float64) float64  { return math.Ceil(v) }
func FFloor(v float64) float64 { return math.Floor(v) }
func FTrunc(v float64) float64 { return math.Trunc(v) }

func FIsNaN(v float64) int64 {
	if math.IsNaN(v) {
		return 1
	}
	return 0
}
