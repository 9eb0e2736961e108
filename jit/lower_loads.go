package jit

import "github.com/lumen-lang/ljit/lir"

// emitPrologue sets up the stack frame and spills the ABIInternal
// parameter registers (RAX, RBX, RCX for up to 3 args, see
// callable_amd64.go) into their declared parameter slots, then — for a
// self-TCO cell — jumps straight to the loop header (spec.md §4.6: "the
// entry block first copies function parameters into their variable slots,
// then jumps to the loop header").
func (lo *Lowerer) emitPrologue() {
	lo.w.EmitPush(RegRBP)
	lo.w.EmitMovRegReg(RegRBP, RegRSP)
	if lo.frameBytes > 0 {
		lo.w.EmitByte(0x48) // REX.W
		lo.w.EmitByte(0x81)
		lo.w.EmitByte(modrm(3, 5, byte(RegRSP))) // SUB RSP, imm32 (/5)
		lo.w.EmitU32(uint32(lo.frameBytes))
	}

	argRegs := []int{RegRAX, RegRBX, RegRCX}
	for i := range lo.cell.Params {
		if i >= len(argRegs) {
			break // spec.md caps JIT-callable arity at 3 (§4.7)
		}
		lo.w.EmitStoreMem(RegRBP, lo.slot(uint16(i)), argRegs[i])
		lo.varTypes[i] = lo.cell.Params[i].Type
	}

	// Zero-initialize every other multi-block register that is actually
	// touched by the body (spec.md §4.6) — usedRegs, not the full declared
	// NumRegs range, so a sparsely-used huge register file doesn't pay for
	// a zero-store per unused index.
	for _, r := range lo.usedRegs {
		if int(r) < len(lo.cell.Params) {
			continue
		}
		if !lo.class.IsMultiBlock(r) {
			continue
		}
		lo.w.EmitMovRegImm64(RegRDX, ZeroOfType(lir.TypeUnknown))
		lo.w.EmitStoreMem(RegRBP, lo.slot(r), RegRDX)
	}

	if lo.selfTCO {
		lo.w.EmitJmpRel32(lo.tcoHeaderLabel)
		lo.w.MarkLabel(lo.tcoHeaderLabel)
	}
}

// emitEpilogue tears down the frame. The return value is expected in RAX
// already (every lowerReturn/emitTrap path stores it there before jumping
// here).
func (lo *Lowerer) emitEpilogue() {
	lo.w.EmitMovRegReg(RegRSP, RegRBP)
	lo.w.EmitPop(RegRBP)
	lo.w.EmitRet()
}

func (lo *Lowerer) emitReturnZero() {
	lo.w.EmitMovRegImm64(RegRAX, ZeroOfType(lo.cell.ReturnType))
	lo.w.EmitJmpRel32(lo.epilogueLabel)
	lo.terminated = true
}

// emitTrap records a distinct trap code (spec.md §7) and returns a
// well-formed zero word rather than falling through to undefined bytes.
func (lo *Lowerer) emitTrap(code TrapCode) {
	lo.emitCall("record_trap", lo.cellIndexArg(), immArg(uint64(code)))
	lo.w.EmitMovRegImm64(RegRAX, trapSentinelValue)
	lo.w.EmitJmpRel32(lo.epilogueLabel)
	lo.terminated = true
}

// loadReg materializes register r's current value into a GPR and returns
// it. Multi-block registers always round-trip through memory; single-block
// registers consult the per-block cache first (jit/regalloc.go), matching
// the Register Classifier's rationale of avoiding a memory access for
// values that never cross a block edge.
func (lo *Lowerer) loadReg(r uint16) int {
	if !lo.class.IsMultiBlock(r) {
		if g, ok := lo.cached[r]; ok {
			return g
		}
	}
	g, ok := lo.regs.Alloc()
	if !ok {
		g = RegRDX // last-resort shared scratch when the bitmap is exhausted
		lo.invalidateCacheForRegs(RegRDX)
	}
	lo.w.EmitLoadMem(g, RegRBP, lo.slot(r))
	if !lo.class.IsMultiBlock(r) {
		lo.cached[r] = g
	}
	return g
}

// storeReg writes gpr into register r's slot and, for a single-block
// register, remembers gpr as its live cache entry.
func (lo *Lowerer) storeReg(r uint16, gpr int) {
	lo.w.EmitStoreMem(RegRBP, lo.slot(r), gpr)
	for other, g := range lo.cached {
		if g == gpr && other != r {
			delete(lo.cached, other)
		}
	}
	if !lo.class.IsMultiBlock(r) {
		lo.cached[r] = gpr
	} else {
		delete(lo.cached, r)
	}
}

func (lo *Lowerer) setType(r uint16, t lir.Type) {
	if int(r) < len(lo.varTypes) {
		lo.varTypes[r] = t
	}
}

func (lo *Lowerer) typeOf(r uint16) lir.Type {
	if int(r) < len(lo.varTypes) {
		return lo.varTypes[r]
	}
	return lir.TypeUnknown
}

// dropIfString emits string_drop for r's current value when r is tracked
// as holding a non-elided String (the "implicit drops" rule, spec.md
// §4.6). Call-name-elided registers hold an integer placeholder and must
// never be dropped (spec.md §4.5).
func (lo *Lowerer) dropIfString(r uint16) {
	if lo.typeOf(r) != lir.TypeString || lo.elision.Elided[r] {
		return
	}
	g := lo.loadReg(r)
	lo.emitCall("string_drop", lo.arenaArg(), regArg(g))
}

func (lo *Lowerer) lowerLoadK(ins lir.Instruction) {
	if int(ins.Bx()) >= len(lo.cell.Consts) {
		lo.emitTrap(TrapUnknownOpcode)
		return
	}
	k := lo.cell.Consts[ins.Bx()]
	lo.dropIfString(ins.A)
	switch k.Kind {
	case lir.ConstString:
		if lo.elision.Elided[ins.A] {
			lo.w.EmitMovRegImm64(RegRAX, 0)
			lo.storeReg(ins.A, RegRAX)
			lo.setType(ins.A, lir.TypeString)
			return
		}
		hdr := NewHeapString(lo.arena, k.Str)
		lo.w.EmitMovRegImm64(RegRAX, uint64(hdr))
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeString)
	case lir.ConstFloat:
		lo.w.EmitMovRegImm64(RegRAX, BoxFloat(k.Float))
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeFloat)
	case lir.ConstBool:
		lo.w.EmitMovRegImm64(RegRAX, BoxBool(k.Bool))
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeBool)
	case lir.ConstNull:
		lo.w.EmitMovRegImm64(RegRAX, NaNBoxNull)
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeNull)
	default: // Int, BigInt (BigInt narrowed to its low bits: no wider register kind exists here)
		lo.w.EmitMovRegImm64(RegRAX, BoxInt(k.Int))
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeInt)
	}
}

func (lo *Lowerer) lowerLoadBool(ins lir.Instruction) {
	lo.dropIfString(ins.A)
	v := NaNBoxFalse
	if ins.B != 0 {
		v = NaNBoxTrue
	}
	lo.w.EmitMovRegImm64(RegRAX, v)
	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lir.TypeBool)
}

func (lo *Lowerer) lowerLoadInt(ins lir.Instruction) {
	lo.dropIfString(ins.A)
	lo.w.EmitMovRegImm64(RegRAX, BoxInt(int64(ins.SaxVal())))
	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lir.TypeInt)
}

func (lo *Lowerer) lowerLoadNil(ins lir.Instruction) {
	n := ins.Bx()
	for i := uint16(0); i <= n; i++ {
		r := ins.A + i
		lo.dropIfString(r)
		lo.w.EmitMovRegImm64(RegRAX, NaNBoxNull)
		lo.storeReg(r, RegRAX)
		lo.setType(r, lir.TypeNull)
	}
}

// lowerMove handles both Move (clone-on-copy for strings) and MoveOwn
// (ownership transfer: null out the source so Return's drop scan does not
// double-free it), per spec.md §4.6 "Moves".
func (lo *Lowerer) lowerMove(ins lir.Instruction) {
	srcIsString := lo.typeOf(ins.B) == lir.TypeString && !lo.elision.Elided[ins.B]

	if ins.Op == lir.OpMove && srcIsString {
		// Inline refcount++: load offset 0, add 1, store back.
		g := lo.loadReg(ins.B)
		rc, ok := lo.regs.Alloc()
		if !ok {
			rc = RegRSI
		}
		lo.w.EmitLoadMem(rc, g, 0) // offRefcount == 0
		lo.w.EmitByte(rexByte(true, false, false, rc >= 8))
		lo.w.EmitByte(0x83)
		lo.w.EmitByte(modrm(3, 0, byte(rc)))
		lo.w.EmitByte(1) // ADD rc, 1
		lo.w.EmitStoreMem(g, 0, rc)
		lo.regs.Free(rc)
	}

	lo.dropIfString(ins.A)
	g := lo.loadReg(ins.B)
	lo.storeReg(ins.A, g)
	lo.setType(ins.A, lo.typeOf(ins.B))

	if ins.Op == lir.OpMoveOwn && srcIsString && ins.A != ins.B {
		lo.w.EmitMovRegImm64(RegRAX, 0)
		lo.storeReg(ins.B, RegRAX)
		lo.setType(ins.B, lir.TypeNull)
	}
}
