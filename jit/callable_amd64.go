//go:build amd64

package jit

import "unsafe"

// Invoking a raw JIT-compiled code pointer as a typed Go function is the
// one place this package departs from a literal C-ABI reading of spec.md
// §4.7 ("reinterprets it as a native C function... and calls it"). The
// teacher's own `scm/jit.go` (OptimizeForValues) does exactly this kind of
// reinterpretation with:
//
//	fn2 := unsafe.Pointer(&struct{ *byte }{&dst[0]})
//	return *(*func(...Scmer) Scmer)(unsafe.Pointer(&fn2))
//
// i.e. it builds a Go funcval (a pointer to the code, wrapped as if it were
// a closure with no captured variables) and calls it exactly like any other
// Go function value. This is the same trick this file generalizes to the
// arities execute_jit_nullary/unary/binary/ternary need, typed as
// `func(int64) int64` etc. instead of `func(...Scmer) Scmer`.
//
// Because the call goes through a genuine Go function value, Go's calling
// convention applies to generated code, not the System V C ABI: since
// Go 1.17, the "ABIInternal" register convention passes integer/pointer
// arguments in RAX, RBX, RCX, RDI, RSI, R8, R9, R10, R11 (in that order)
// and returns the first result in RAX. The Lowerer's function prologue
// epilogue (jit/lower.go) targets this convention directly — it is not
// System V AMD64 — so that this funcval cast is sound. Nothing in the
// retrieval pack hand-writes a Go assembly (`.s`) trampoline for calling
// into raw machine code (a search across every example repo and
// other_examples/ file turned up zero `TEXT ·`/`//go:noescape` hits); the
// teacher's own funcval trick is the closer, directly grounded technique,
// and it avoids introducing an ungrounded assembly file. See DESIGN.md.

func makeFn0(ptr uintptr) func() int64 {
	f := unsafe.Pointer(&struct{ code uintptr }{ptr})
	return *(*func() int64)(unsafe.Pointer(&f))
}

func makeFn1(ptr uintptr) func(int64) int64 {
	f := unsafe.Pointer(&struct{ code uintptr }{ptr})
	return *(*func(int64) int64)(unsafe.Pointer(&f))
}

func makeFn2(ptr uintptr) func(int64, int64) int64 {
	f := unsafe.Pointer(&struct{ code uintptr }{ptr})
	return *(*func(int64, int64) int64)(unsafe.Pointer(&f))
}

func makeFn3(ptr uintptr) func(int64, int64, int64) int64 {
	f := unsafe.Pointer(&struct{ code uintptr }{ptr})
	return *(*func(int64, int64, int64) int64)(unsafe.Pointer(&f))
}
