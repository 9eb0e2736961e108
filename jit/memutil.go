package jit

import "unsafe"

// ptrSliceFromMem reads count consecutive 64-bit words starting at addr,
// used by the string_concat_multi helper to recover the pointer array the
// Lowerer stored on the stack (spec.md §4.6 multi-concat chain lowering).
func ptrSliceFromMem(addr uintptr, count int) []uintptr {
	if count <= 0 {
		return nil
	}
	words := unsafe.Slice((*uintptr)(unsafe.Pointer(addr)), count)
	out := make([]uintptr, count)
	copy(out, words)
	return out
}

// ptrSliceFromMemU64 is ptrSliceFromMem's uint64-valued sibling, used by
// NewList's helper wrapper to recover the element words the Lowerer wrote
// to a stack scratch area before calling new_list.
func ptrSliceFromMemU64(addr uintptr, count int) []uint64 {
	if count <= 0 {
		return nil
	}
	words := unsafe.Slice((*uint64)(unsafe.Pointer(addr)), count)
	out := make([]uint64, count)
	copy(out, words)
	return out
}

// copyMem backs the memcpy runtime helper (spec.md §4.2).
func copyMem(dst, src uintptr, n int) {
	if n <= 0 {
		return
	}
	d := unsafe.Slice((*byte)(unsafe.Pointer(dst)), n)
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), n)
	copy(d, s)
}
