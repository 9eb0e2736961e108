package jit

import "github.com/lumen-lang/ljit/lir"

// ChainPlan is the Chain Planner's output (spec.md §4.4): for every PC that
// is the tail of a 3+-leaf multi-concat chain, the ordered list of leaf
// registers feeding string_concat_multi; every other PC in the chain is
// marked Skipped so the Lowerer does not also emit a (redundant) two-operand
// concat for it.
type ChainPlan struct {
	Chains  map[int][]uint16 // tail PC -> ordered leaf registers
	Skipped map[int]bool     // non-tail PCs inside a recorded chain
}

func isStringProducingSource(stringRegs map[uint16]bool, r uint16) bool {
	return stringRegs[r]
}

// PlanChains runs the Chain Planner over one cell.
func PlanChains(cell lir.Cell) *ChainPlan {
	stringRegs := seedStringRegisters(cell)
	uses := countExternalUses(cell, stringRegs)

	plan := &ChainPlan{Chains: map[int][]uint16{}, Skipped: map[int]bool{}}
	claimed := make(map[int]bool)

	// isStringAdd reports whether PC pc is a string-typed Add/Concat whose
	// LHS is register b and RHS register c.
	isStringAdd := func(pc int) (b, c uint16, ok bool) {
		if pc < 0 || pc >= len(cell.Code) {
			return 0, 0, false
		}
		ins := cell.Code[pc]
		if ins.Op != lir.OpAdd && ins.Op != lir.OpConcat {
			return 0, 0, false
		}
		if !stringRegs[ins.B] && !stringRegs[ins.C] {
			return 0, 0, false
		}
		return ins.B, ins.C, true
	}

	// defPC maps a destination register to the PC that most recently wrote
	// it, for walking "the LHS was produced by another string Add/Concat".
	defPC := make(map[uint16]int)

	for pc := range cell.Code {
		ins := cell.Code[pc]
		if ins.Op == lir.OpAdd || ins.Op == lir.OpConcat || ins.Op == lir.OpMove || ins.Op == lir.OpMoveOwn ||
			ins.Op == lir.OpLoadK {
			defPC[ins.A] = pc
		}
	}

	// Walk PCs in reverse order (spec.md §4.4 step 4).
	for pc := len(cell.Code) - 1; pc >= 0; pc-- {
		lhs, rhs, ok := isStringAdd(pc)
		if !ok || claimed[pc] {
			continue
		}
		var leaves []uint16
		var links []int
		cur := pc
		curLHS := lhs
		for {
			leaves = append(leaves, rhsOf(cell.Code[cur]))
			prevPC, isChainLink := defPC[curLHS]
			if !isChainLink || claimed[prevPC] {
				leaves = append(leaves, curLHS)
				break
			}
			pb, _, pok := isStringAdd(prevPC)
			if !pok || uses[curLHS] != 1 {
				leaves = append(leaves, curLHS)
				break
			}
			claimed[prevPC] = true
			links = append(links, prevPC)
			cur = prevPC
			curLHS = pb
		}
		_ = rhs
		reverseRegs(leaves)
		if len(leaves) >= 3 {
			plan.Chains[pc] = leaves
			claimed[pc] = true
			for _, p := range links {
				plan.Skipped[p] = true
			}
		}
	}

	return plan
}

func rhsOf(ins lir.Instruction) uint16 { return ins.C }

func reverseRegs(r []uint16) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

// seedStringRegisters implements step 1-2 of the Chain Planner: seed with
// string parameters and LoadK-of-string destinations, then iterate to
// fixpoint over Add/Concat/Move/MoveOwn propagation.
func seedStringRegisters(cell lir.Cell) map[uint16]bool {
	regs := map[uint16]bool{}
	for i, p := range cell.Params {
		if p.Type == lir.TypeString {
			regs[uint16(i)] = true
		}
	}
	for _, ins := range cell.Code {
		if ins.Op == lir.OpLoadK && int(ins.Bx()) < len(cell.Consts) && cell.Consts[ins.Bx()].Kind == lir.ConstString {
			regs[ins.A] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, ins := range cell.Code {
			switch ins.Op {
			case lir.OpAdd, lir.OpConcat:
				if (regs[ins.B] || regs[ins.C]) && !regs[ins.A] {
					regs[ins.A] = true
					changed = true
				}
			case lir.OpMove, lir.OpMoveOwn:
				if regs[ins.B] && !regs[ins.A] {
					regs[ins.A] = true
					changed = true
				}
			}
		}
	}
	return regs
}

// countExternalUses implements step 3: count appearances of every string
// register as a read operand (including the implicit Return read).
func countExternalUses(cell lir.Cell, stringRegs map[uint16]bool) map[uint16]int {
	uses := map[uint16]int{}
	for _, ins := range cell.Code {
		reads, _ := regReadsWrites(ins)
		for _, r := range reads {
			if stringRegs[r] {
				uses[r]++
			}
		}
	}
	return uses
}
