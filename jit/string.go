package jit

import (
	"unicode/utf8"
	"unsafe"
)

// HeaderSize is the fixed 40-byte heap string header (spec.md §3.3).
const HeaderSize = 40

const (
	offRefcount  = 0
	offLen       = 8
	offCharCount = 16
	offCap       = 24
	offDataPtr   = 32
)

func hdrField(hdr uintptr, off uintptr) *int64 {
	return (*int64)(unsafe.Pointer(hdr + off))
}

func refcountOf(hdr uintptr) *int64  { return hdrField(hdr, offRefcount) }
func lenOf(hdr uintptr) *int64       { return hdrField(hdr, offLen) }
func charCountOf(hdr uintptr) *int64 { return hdrField(hdr, offCharCount) }
func capOf(hdr uintptr) *int64       { return hdrField(hdr, offCap) }
func dataPtrOf(hdr uintptr) *uintptr { return (*uintptr)(unsafe.Pointer(hdr + offDataPtr)) }

// NewHeapString allocates a fresh header + data buffer holding s, refcount 1.
// Grounded on the lowerer's LoadK contract (spec.md §4.6): malloc the
// header, alloc_bytes the data, memcpy the bytes in, char_count counts
// Unicode scalars not bytes.
func NewHeapString(a *Arena, s string) uintptr {
	hdr := a.Alloc(HeaderSize)
	if hdr == 0 {
		return 0
	}
	n := len(s)
	*refcountOf(hdr) = 1
	*lenOf(hdr) = int64(n)
	*charCountOf(hdr) = int64(utf8.RuneCountInString(s))
	*capOf(hdr) = int64(n)
	if n == 0 {
		*dataPtrOf(hdr) = 0
		return hdr
	}
	buf := a.Alloc(n)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(buf)), n), s)
	*dataPtrOf(hdr) = buf
	return hdr
}

// GoString reads the content of a heap string back into a Go string, for
// tests and for the runtime helpers that take Go strings.
func GoString(hdr uintptr) string {
	if hdr == 0 {
		return ""
	}
	n := int(*lenOf(hdr))
	if n == 0 {
		return ""
	}
	ptr := *dataPtrOf(hdr)
	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}

// StringClone increments refcount and returns the same pointer (spec.md
// §3.3 "Cloned by incrementing refcount" — used by Move on a string
// source).
func StringClone(hdr uintptr) uintptr {
	if hdr == 0 {
		return 0
	}
	*refcountOf(hdr) += 1
	return hdr
}

// StringDrop decrements refcount and, on reaching zero, frees both the data
// buffer and the header. Safe on null (spec.md §4.2 string_drop).
func StringDrop(a *Arena, hdr uintptr) {
	if hdr == 0 {
		return
	}
	rc := refcountOf(hdr)
	*rc--
	if *rc > 0 {
		return
	}
	if cap := int(*capOf(hdr)); cap > 0 {
		a.Free(*dataPtrOf(hdr), cap)
	}
	a.Free(hdr, HeaderSize)
}

// StringLen returns the raw (unboxed) byte length, backing the string_len
// builtin (spec.md §4.2).
func StringLen(hdr uintptr) int64 {
	if hdr == 0 {
		return 0
	}
	return *lenOf(hdr)
}

// StringConcat allocates a fresh string holding a++b. Does not touch either
// input's refcount; caller owns one reference to the result (spec.md §4.2).
func StringConcat(a *Arena, x, y uintptr) uintptr {
	lx, ly := int(StringLen(x)), int(StringLen(y))
	hdr := a.Alloc(HeaderSize)
	if hdr == 0 {
		return 0
	}
	total := lx + ly
	*refcountOf(hdr) = 1
	*lenOf(hdr) = int64(total)
	*charCountOf(hdr) = charCountOf2(x) + charCountOf2(y)
	*capOf(hdr) = int64(total)
	if total == 0 {
		*dataPtrOf(hdr) = 0
		return hdr
	}
	buf := a.Alloc(total)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), total)
	if lx > 0 {
		copy(dst[:lx], unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(x))), lx))
	}
	if ly > 0 {
		copy(dst[lx:], unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(y))), ly))
	}
	*dataPtrOf(hdr) = buf
	return hdr
}

func charCountOf2(hdr uintptr) int64 {
	if hdr == 0 {
		return 0
	}
	return *charCountOf(hdr)
}

// StringConcatMut implements the refcount-and-capacity fast path: reuse a's
// buffer in place when a.refcount == 1 and a.cap >= a.len+b.len, otherwise
// fall back to a fresh allocation. Consumes exactly one reference of a;
// never touches b's refcount (spec.md §4.2 string_concat_mut).
func StringConcatMut(a *Arena, x, y uintptr) uintptr {
	if x == 0 {
		return StringConcat(a, x, y)
	}
	ly := int(StringLen(y))
	lx := int(StringLen(x))
	total := lx + ly
	if *refcountOf(x) == 1 && int(*capOf(x)) >= total {
		if ly > 0 {
			dst := unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(x)+uintptr(lx))), ly)
			copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(y))), ly))
		}
		*lenOf(x) = int64(total)
		*charCountOf(x) += charCountOf2(y)
		return x
	}
	fresh := StringConcat(a, x, y)
	StringDrop(a, x)
	return fresh
}

// StringConcatMulti reads count pointers from ptrArray and allocates one
// fresh string of the combined length (spec.md §4.2, fed by the Chain
// Planner's multi-operand rewrite).
func StringConcatMulti(a *Arena, ptrArray []uintptr) uintptr {
	total, totalChars := 0, int64(0)
	for _, p := range ptrArray {
		total += int(StringLen(p))
		totalChars += charCountOf2(p)
	}
	hdr := a.Alloc(HeaderSize)
	if hdr == 0 {
		return 0
	}
	*refcountOf(hdr) = 1
	*lenOf(hdr) = int64(total)
	*charCountOf(hdr) = totalChars
	*capOf(hdr) = int64(total)
	if total == 0 {
		*dataPtrOf(hdr) = 0
		return hdr
	}
	buf := a.Alloc(total)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), total)
	off := 0
	for _, p := range ptrArray {
		n := int(StringLen(p))
		if n == 0 {
			continue
		}
		copy(dst[off:off+n], unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(p))), n))
		off += n
	}
	*dataPtrOf(hdr) = buf
	return hdr
}

// StringEq returns 1/0 raw (spec.md §4.2 string_eq).
func StringEq(x, y uintptr) int64 {
	if x == y {
		return 1
	}
	lx, ly := StringLen(x), StringLen(y)
	if lx != ly {
		return 0
	}
	if lx == 0 {
		return 1
	}
	a := unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(x))), lx)
	b := unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(y))), ly)
	for i := range a {
		if a[i] != b[i] {
			return 0
		}
	}
	return 1
}

// StringCmp returns sign-only ordering: -1, 0, 1 (spec.md §4.2 string_cmp).
func StringCmp(x, y uintptr) int64 {
	lx, ly := int(StringLen(x)), int(StringLen(y))
	n := lx
	if ly < n {
		n = ly
	}
	if n > 0 {
		a := unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(x))), lx)
		b := unsafe.Slice((*byte)(unsafe.Pointer(*dataPtrOf(y))), ly)
		for i := 0; i < n; i++ {
			if a[i] < b[i] {
				return -1
			}
			if a[i] > b[i] {
				return 1
			}
		}
	}
	switch {
	case lx < ly:
		return -1
	case lx > ly:
		return 1
	default:
		return 0
	}
}
