package jit

import "github.com/lumen-lang/ljit/lir"

// lowerBranch handles Jmp/Break/Continue, all three encoded identically at
// the LIR level (spec.md §3.1): a signed PC-relative offset in B. Break and
// Continue exist only to make the loop structure legible to tooling/the
// disassembler — they lower exactly like Jmp.
func (lo *Lowerer) lowerBranch(pc int, ins lir.Instruction) {
	target := pc + 1 + int(ins.SaxVal())
	if lo.pendingTest {
		lo.lowerConditionalBranch(target)
		lo.pendingTest = false
		return
	}
	lo.w.EmitJmpRel32(lo.blockLabel[lo.blockIndexOf(target)])
	lo.terminated = true
}

// lowerConditionalBranch implements the Test+Jmp pair the Lowerer treats as
// one unit: Test stashes the register to check, and the following branch
// emits a conditional jump against that register's falsy value (spec.md
// §4.6 "Control flow": "a Test followed immediately by a conditional
// branch... compiled as a single comparison+jcc pair, never materializing
// an intermediate boolean").
func (lo *Lowerer) lowerConditionalBranch(target int) {
	g := lo.loadReg(lo.pendingTestReg)
	falsy := FalsyValue(lo.typeOf(lo.pendingTestReg))
	lo.w.EmitMovRegImm64(RegRBX, falsy)
	lo.w.EmitCmpRegReg(g, RegRBX)
	lo.w.EmitJccRel32(CondNotEqual, lo.blockLabel[lo.blockIndexOf(target)])
}

// blockIndexOf maps a block-start PC to its index in lo.blockLabel. The
// Lowerer builds blockLabel in the same order as Blocks.Sorted(), so this is
// a position lookup rather than a second map.
func (lo *Lowerer) blockIndexOf(startPC int) int {
	for i, pc := range lo.class.Blocks.Sorted() {
		if pc == startPC {
			return i
		}
	}
	return 0
}

// lowerReturn drops every live String-typed register except the one being
// returned (spec.md §4.6 "Return": "before returning, drop every register
// statically known to hold a String except the value being returned"), then
// jumps to the shared epilogue.
func (lo *Lowerer) lowerReturn(ins lir.Instruction) {
	retReg := ins.A
	for r := 0; r < len(lo.varTypes); r++ {
		if uint16(r) == retReg {
			continue
		}
		lo.dropIfString(uint16(r))
	}
	g := lo.loadReg(retReg)
	if g != RegRAX {
		lo.w.EmitMovRegReg(RegRAX, g)
	}
	lo.w.EmitJmpRel32(lo.epilogueLabel)
	lo.terminated = true
}
