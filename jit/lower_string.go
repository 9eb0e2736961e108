package jit

import "github.com/lumen-lang/ljit/lir"

// lowerAddOrConcat handles both numeric Add and string concatenation — LIR
// gives them a shared opcode pair (Add/Concat) whenever either operand is
// statically known to be a String (spec.md §4.4's Chain Planner walks both
// opcodes for exactly this reason). A chain-tail PC emits the single
// string_concat_multi call the Chain Planner planned instead of a nested
// nest of two-operand concats (spec.md §4.4); everything else either does
// plain numeric addition or a two-operand concat through string_concat_mut
// or string_concat (see lowerTwoOperandConcat).
func (lo *Lowerer) lowerAddOrConcat(pc int, ins lir.Instruction) {
	if leaves, ok := lo.chains.Chains[pc]; ok {
		lo.lowerConcatChain(ins.A, leaves)
		return
	}

	bIsStr := lo.typeOf(ins.B) == lir.TypeString
	cIsStr := lo.typeOf(ins.C) == lir.TypeString
	if bIsStr || cIsStr {
		lo.lowerTwoOperandConcat(ins)
		return
	}

	lo.lowerBinaryArith(ins)
}

// lowerConcatChain spills each leaf's current pointer onto the stack (push
// in reverse order so the array reads in forward order, same trick as
// lowerNewListOp), calls string_concat_multi, and stores the fresh string.
// Every leaf register is a distinct SSA-ish value in this LIR (never the
// destination itself) so no leaf needs to be re-read after being pushed.
func (lo *Lowerer) lowerConcatChain(dst uint16, leaves []uint16) {
	n := len(leaves)
	for i := n - 1; i >= 0; i-- {
		g := lo.loadReg(leaves[i])
		lo.w.EmitPush(g)
	}
	lo.w.EmitMovRegReg(RegRBX, RegRSP)
	lo.w.EmitMovRegImm64(RegRCX, uint64(n))
	lo.emitCall("string_concat_multi", lo.arenaArg(), regArg(RegRBX), regArg(RegRCX))
	if n > 0 {
		lo.w.EmitByte(rexByte(true, false, false, false))
		lo.w.EmitByte(0x81)
		lo.w.EmitByte(modrm(3, 0, byte(RegRSP)))
		lo.w.EmitU32(uint32(8 * n)) // ADD RSP, n*8
	}
	// Leaves are not dropped here: the Chain Planner only guarantees a
	// single use for the intermediate sums it collapses, not for the leaf
	// registers themselves (a leaf may be a parameter or a value read again
	// later). Any leaf that really is dead falls to Return's drop scan.
	lo.dropIfString(dst)
	lo.storeReg(dst, RegRAX)
	lo.setType(dst, lir.TypeString)
}

// lowerTwoOperandConcat emits the non-chain String Add/Concat path.
// string_concat_mut consumes exactly one reference of its left operand, so
// it is only safe to call when the destination register is the same
// register as the left operand — the source program is explicitly
// overwriting its own value and nothing else can observe the consumed
// reference. When dst and the left operand are distinct registers, the
// left operand is a value the program may still read afterward, so the
// non-consuming string_concat allocates a fresh result instead.
func (lo *Lowerer) lowerTwoOperandConcat(ins lir.Instruction) {
	a := lo.loadReg(ins.B)
	b := lo.loadReg(ins.C)
	if ins.A == ins.B {
		lo.emitCall("string_concat_mut", lo.arenaArg(), regArg(a), regArg(b))
	} else {
		lo.emitCall("string_concat", lo.arenaArg(), regArg(a), regArg(b))
		// string_drop clobbers RAX, so the result stays on the stack
		// across the drop of the destination's old value.
		lo.w.EmitPush(RegRAX)
		lo.dropIfString(ins.A)
		lo.w.EmitPop(RegRAX)
	}
	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lir.TypeString)
}
