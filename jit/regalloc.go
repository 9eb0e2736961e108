package jit

// Scratch GPRs available to the Lowerer for single-block register caching
// and transient arithmetic temporaries, excluding RAX/RBX/RCX/RDI/RSI/R8/
// R9/R10 (the ABIInternal argument registers a generated function's own
// parameters and a helper call's arguments occupy, see callable_amd64.go
// and helpers.go), R11 (emitCall's indirect-call target scratch register,
// jit/lower_callhelper.go), R14 (the goroutine pointer Go code relies on
// after the generated function returns), and RSP/RBP (frame). Helper calls
// therefore invalidate any cached value unconditionally, but never clobber a
// register this allocator still thinks is free.
var scratchRegs = []int{RegRDX, RegR12, RegR13, RegR15}

// RegAlloc is a bitmap-based scratch register allocator, ported from the
// teacher's `scm/jit_types.go` JITContext.AllocReg/FreeReg. It backs the
// single-block register cache: a single-block virtual register gets a real
// GPR for the remainder of its defining block when one is free, and falls
// back to a dedicated stack slot (via Lowerer.spillSlot) when the bitmap is
// exhausted — mirroring how a real register allocator spills under
// pressure, rather than declaring a slot for every register up front.
type RegAlloc struct {
	free uint16 // one bit per entry in scratchRegs
}

// NewRegAlloc returns an allocator with every scratch register free.
func NewRegAlloc() *RegAlloc {
	return &RegAlloc{free: (1 << len(scratchRegs)) - 1}
}

// Alloc returns a free scratch register and ok=true, or ok=false if none
// remain (the caller must spill to memory instead).
func (r *RegAlloc) Alloc() (reg int, ok bool) {
	for i, bit := 0, uint16(1); i < len(scratchRegs); i, bit = i+1, bit<<1 {
		if r.free&bit != 0 {
			r.free &^= bit
			return scratchRegs[i], true
		}
	}
	return 0, false
}

// Free returns reg to the pool. No-op if reg is not one of the managed
// scratch registers (e.g. it was a fixed ABI register).
func (r *RegAlloc) Free(reg int) {
	for i, cand := range scratchRegs {
		if cand == reg {
			r.free |= 1 << uint(i)
			return
		}
	}
}

// Reset marks every scratch register free again (called at each basic
// block boundary: single-block register caching never survives a block
// edge, per the Register Classifier's definition of "single-block").
func (r *RegAlloc) Reset() {
	r.free = (1 << len(scratchRegs)) - 1
}
