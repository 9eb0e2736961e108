package jit

import "unsafe"

// argVal is one argument to a runtime helper call: either an immediate
// 64-bit constant or the name of a GPR already holding the value.
type argVal struct {
	imm    uint64
	reg    int
	isImm  bool
}

func regArg(r int) argVal    { return argVal{reg: r} }
func immArg(v uint64) argVal { return argVal{imm: v, isImm: true} }

// arenaArg is the *Arena pointer every allocation/drop helper takes as its
// first parameter, embedded as a compile-time immediate: one Lowerer (and
// therefore one compiled cell) always allocates through the same Arena
// instance for its lifetime.
func (lo *Lowerer) arenaArg() argVal { return immArg(uint64(uintptr(unsafe.Pointer(lo.arena)))) }

// cellIndexArg is the trap registry's cell-index argument, likewise a
// compile-time constant.
func (lo *Lowerer) cellIndexArg() argVal { return immArg(uint64(lo.cellIndex)) }

// argRegOrder is Go's ABIInternal integer/pointer argument register order
// since Go 1.17 (see callable_amd64.go's doc comment), minus its ninth
// register R11, which emitCall keeps for the call target: helper calls
// pass up to eight single-word arguments, which every helper signature in
// this package stays well within.
var argRegOrder = []int{RegRAX, RegRBX, RegRCX, RegRDI, RegRSI, RegR8, RegR9, RegR10}

// emitCall emits a call to the named runtime helper with args placed into
// the ABIInternal argument registers in order (see argRegOrder and
// callable_amd64.go/helpers.go), and leaves the result in RAX. R11 is used
// as the indirect-call scratch register, matching the convention the
// teacher's own jit.go uses for computed calls.
func (lo *Lowerer) emitCall(name string, args ...argVal) {
	addr, ok := HelperAddr(name)
	if !ok {
		lo.w.EmitMovRegImm64(RegRAX, trapSentinelValue)
		return
	}
	dst := argRegOrder
	// Fill the last argument first so that loading an immediate into RAX
	// (typically the arena pointer) cannot clobber a later argument's source.
	for i := len(args) - 1; i >= 0; i-- {
		a := args[i]
		if i >= len(dst) {
			continue
		}
		if a.isImm {
			lo.w.EmitMovRegImm64(dst[i], a.imm)
		} else if a.reg != dst[i] {
			lo.w.EmitMovRegReg(dst[i], a.reg)
		}
	}
	lo.cached = map[uint16]int{}
	lo.w.EmitMovRegImm64(RegR11, addr)
	lo.w.EmitCallReg(RegR11)
}

func (lo *Lowerer) invalidateCacheForRegs(regs ...int) {
	for r, g := range lo.cached {
		for _, clobbered := range regs {
			if g == clobbered {
				delete(lo.cached, r)
			}
		}
	}
}
