package jit

import (
	"sort"

	"github.com/lumen-lang/ljit/lir"
)

// RegClass is the Register Classifier's verdict for one virtual register
// (spec.md §4.3).
type RegClass uint8

const (
	ClassSingleBlock RegClass = iota
	ClassMultiBlock
)

// Classification is the per-cell output of the classifier: one RegClass per
// virtual register index.
type Classification struct {
	Classes []RegClass
	Blocks  *BlockIndex
}

func (c *Classification) IsMultiBlock(r uint16) bool {
	return int(r) < len(c.Classes) && c.Classes[r] == ClassMultiBlock
}

// BlockStarts computes the jump-target pre-scan (spec.md §4.6): every
// instruction immediately following a Return/Halt/TailCall/Jmp/Break/
// Continue, plus every branch target, plus PC 0.
func BlockStarts(code []lir.Instruction) map[int]struct{} {
	starts := map[int]struct{}{0: {}}
	for pc, ins := range code {
		switch ins.Op {
		case lir.OpJmp, lir.OpBreak, lir.OpContinue:
			target := pc + 1 + int(ins.SaxVal())
			if target >= 0 && target <= len(code) {
				starts[target] = struct{}{}
			}
			if pc+1 < len(code) {
				starts[pc+1] = struct{}{}
			}
		case lir.OpReturn, lir.OpHalt, lir.OpTailCall:
			if pc+1 < len(code) {
				starts[pc+1] = struct{}{}
			}
		}
	}
	return starts
}

// regReadsWrites reports the registers an instruction reads and the single
// base register range it writes. Call/Intrinsic/NewList/NewMap read a
// dense argument range starting at a base register and (for Call) also
// write a destination base register — spec.md §4.3 calls this out
// explicitly since it is the easy place to under-count.
func regReadsWrites(ins lir.Instruction) (reads []uint16, writes []uint16) {
	switch ins.Op {
	case lir.OpLoadK, lir.OpLoadBool, lir.OpLoadInt:
		writes = []uint16{ins.A}
	case lir.OpLoadNil:
		n := ins.Bx()
		writes = make([]uint16, 0, n+1)
		for i := uint16(0); i <= n; i++ {
			writes = append(writes, ins.A+i)
		}
	case lir.OpMove, lir.OpMoveOwn, lir.OpNeg, lir.OpNot, lir.OpBitNot, lir.OpUnbox:
		reads = []uint16{ins.B}
		writes = []uint16{ins.A}
	case lir.OpAdd, lir.OpSub, lir.OpMul, lir.OpDiv, lir.OpFloorDiv, lir.OpMod, lir.OpPow,
		lir.OpConcat, lir.OpBitOr, lir.OpBitAnd, lir.OpBitXor, lir.OpShl, lir.OpShr,
		lir.OpEq, lir.OpLt, lir.OpLe, lir.OpAnd, lir.OpOr, lir.OpNullCo,
		lir.OpGetIndex, lir.OpGetField:
		reads = []uint16{ins.B, ins.C}
		writes = []uint16{ins.A}
	case lir.OpSetIndex, lir.OpSetField:
		reads = []uint16{ins.A, ins.B, ins.C}
	case lir.OpTest:
		reads = []uint16{ins.A}
	case lir.OpReturn:
		reads = []uint16{ins.A}
	case lir.OpCall, lir.OpTailCall:
		argc := ins.Bx()
		reads = make([]uint16, 0, argc+1)
		reads = append(reads, ins.A) // callee-name/base register
		for i := uint16(1); i <= argc; i++ {
			reads = append(reads, ins.A+i)
		}
		if ins.Op == lir.OpCall {
			writes = []uint16{ins.A}
		}
	case lir.OpIntrinsic:
		// arguments start at register C; the widest intrinsic takes three
		reads = []uint16{ins.C, ins.C + 1, ins.C + 2}
		writes = []uint16{ins.A}
	case lir.OpNewList, lir.OpNewMap, lir.OpNewUnion:
		argc := ins.Bx()
		reads = make([]uint16, 0, argc)
		for i := uint16(0); i < argc; i++ {
			reads = append(reads, ins.A+1+i)
		}
		writes = []uint16{ins.A}
	case lir.OpIsVariant:
		reads = []uint16{ins.B, ins.C}
		writes = []uint16{ins.A}
	}
	return reads, writes
}

// usedRegisters returns, in ascending order, every register cell.Code
// actually reads or writes, plus every parameter register — the ABIInternal
// entry spill in emitPrologue writes a parameter's slot unconditionally,
// even for a parameter the body never reads again. A cell declaring a huge
// NumRegs (spec.md §8.2's 65,536 ceiling) but only ever touching a handful
// of them must not pay for a stack slot per declared index; the Lowerer
// sizes its frame off this set instead of off NumRegs directly.
func usedRegisters(cell lir.Cell) []uint16 {
	seen := make(map[uint16]struct{}, len(cell.Params))
	for i := range cell.Params {
		seen[uint16(i)] = struct{}{}
	}
	for _, ins := range cell.Code {
		reads, writes := regReadsWrites(ins)
		for _, r := range reads {
			seen[r] = struct{}{}
		}
		for _, r := range writes {
			seen[r] = struct{}{}
		}
	}
	out := make([]uint16, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Classify runs the Register Classifier over one cell: spec.md §4.3.
func Classify(cell lir.Cell) *Classification {
	starts := BlockStarts(cell.Code)
	blocks := NewBlockIndex(starts)

	defBlocks := make([]map[int]struct{}, cell.NumRegs)
	readBlocks := make([]map[int]struct{}, cell.NumRegs)
	for i := range defBlocks {
		defBlocks[i] = map[int]struct{}{}
		readBlocks[i] = map[int]struct{}{}
	}

	for pc, ins := range cell.Code {
		b := blocks.BlockOf(pc)
		reads, writes := regReadsWrites(ins)
		for _, r := range reads {
			if int(r) < cell.NumRegs {
				readBlocks[r][b] = struct{}{}
			}
		}
		for _, r := range writes {
			if int(r) < cell.NumRegs {
				defBlocks[r][b] = struct{}{}
			}
		}
	}

	classes := make([]RegClass, cell.NumRegs)
	for r := 0; r < len(cell.Params); r++ {
		classes[r] = ClassMultiBlock // every function parameter
	}
	for r := 0; r < cell.NumRegs; r++ {
		if classes[r] == ClassMultiBlock {
			continue
		}
		if len(defBlocks[r]) >= 2 {
			classes[r] = ClassMultiBlock
			continue
		}
		for b := range readBlocks[r] {
			if _, defined := defBlocks[r][b]; !defined {
				classes[r] = ClassMultiBlock
				break
			}
		}
	}

	return &Classification{Classes: classes, Blocks: blocks}
}
