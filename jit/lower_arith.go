package jit

import "github.com/lumen-lang/ljit/lir"

func (lo *Lowerer) isFloatOperand(r uint16) bool { return lo.typeOf(r) == lir.TypeFloat }

// unboxIntInto unboxes a boxed-int GPR in place: arithmetic right shift by
// one (spec.md §4.1 unbox_int).
func (lo *Lowerer) unboxIntInto(g int) { lo.w.EmitSarRegImm8(g, 1) }

// reboxIntInto reboxes a raw GPR in place: shl 1, or 1 (spec.md §4.1
// box_int, done with a shift+or instead of an imul/add pair to match the
// bit-operation framing the spec gives the encoding).
func (lo *Lowerer) reboxIntInto(g int) {
	lo.w.EmitShiftRegImm8(g, 1, true)
	lo.w.EmitByte(rexByte(true, false, false, g >= 8))
	lo.w.EmitByte(0x83)
	lo.w.EmitByte(modrm(3, 1, byte(g)))
	lo.w.EmitByte(1) // OR g, 1
}

func (lo *Lowerer) lowerBinaryArith(ins lir.Instruction) {
	lFloat := lo.isFloatOperand(ins.B)
	rFloat := lo.isFloatOperand(ins.C)
	if lFloat || rFloat {
		lo.lowerBinaryArithFloat(ins)
		return
	}

	a := lo.loadReg(ins.B)
	b := lo.loadReg(ins.C)
	lo.unboxIntInto(a)
	lo.unboxIntInto(b)

	switch ins.Op {
	case lir.OpAdd:
		lo.w.EmitAddRegReg(a, b)
	case lir.OpSub:
		lo.w.EmitSubRegReg(a, b)
	case lir.OpMul:
		lo.w.EmitImulRegReg(a, b)
	case lir.OpDiv, lir.OpFloorDiv:
		lo.emitIdiv(a, b)
	case lir.OpMod:
		lo.emitSrem(a, b)
	case lir.OpPow:
		lo.emitCall("pow_int", regArg(a), regArg(b))
		lo.reboxIntInto(RegRAX)
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeInt)
		return
	case lir.OpBitOr:
		lo.w.EmitOrRegReg(a, b)
	case lir.OpBitAnd:
		lo.w.EmitAndRegReg(a, b)
	case lir.OpBitXor:
		lo.w.EmitXorRegReg(a, b)
	case lir.OpShl:
		lo.emitVariableShift(a, b, true)
	case lir.OpShr:
		lo.emitVariableShift(a, b, false)
	}
	lo.reboxIntInto(a)
	lo.storeReg(ins.A, a)
	lo.setType(ins.A, lir.TypeInt)
}

// emitIdiv divides a by b using RAX:RDX — CQO then IDIV — and leaves the
// quotient in a (spec.md §4.6: "the AOT path uses truncated division —
// preserve whichever the interpreter uses"; truncated division is what
// IDIV gives natively).
func (lo *Lowerer) emitIdiv(a, b int) {
	if a != RegRAX {
		lo.w.EmitMovRegReg(RegRAX, a)
	}
	lo.w.EmitByte(rexByte(true, false, false, false))
	lo.w.EmitByte(0x99) // CQO: sign-extend RAX into RDX:RAX
	lo.w.EmitByte(rexByte(true, false, false, b >= 8))
	lo.w.EmitByte(0xF7)
	lo.w.EmitByte(modrm(3, 7, byte(b))) // IDIV b (/7)
	if a != RegRAX {
		lo.w.EmitMovRegReg(a, RegRAX)
	}
}

// emitSrem is emitIdiv's remainder sibling: IDIV leaves the remainder in
// RDX.
func (lo *Lowerer) emitSrem(a, b int) {
	if a != RegRAX {
		lo.w.EmitMovRegReg(RegRAX, a)
	}
	lo.w.EmitByte(rexByte(true, false, false, false))
	lo.w.EmitByte(0x99)
	lo.w.EmitByte(rexByte(true, false, false, b >= 8))
	lo.w.EmitByte(0xF7)
	lo.w.EmitByte(modrm(3, 7, byte(b)))
	lo.w.EmitMovRegReg(a, RegRDX)
}

// emitVariableShift moves the shift count into RCX (the only GPR x86
// variable shifts accept) and emits shl/sar with the %cl form.
func (lo *Lowerer) emitVariableShift(a, count int, left bool) {
	if count != RegRCX {
		lo.w.EmitMovRegReg(RegRCX, count)
	}
	lo.w.EmitByte(rexByte(true, false, false, a >= 8))
	lo.w.EmitByte(0xD3)
	ext := byte(7)
	if left {
		ext = 4
	}
	lo.w.EmitByte(modrm(3, ext, byte(a)))
}

func (lo *Lowerer) lowerBinaryArithFloat(ins lir.Instruction) {
	a := lo.loadReg(ins.B)
	b := lo.loadReg(ins.C)
	lo.w.EmitMovqGprToXmm(RegX0, a)
	lo.w.EmitMovqGprToXmm(RegX1, b)
	switch ins.Op {
	case lir.OpAdd:
		lo.w.EmitAddsdXmm(RegX0, RegX1)
	case lir.OpSub:
		lo.w.EmitSubsdXmm(RegX0, RegX1)
	case lir.OpMul:
		lo.w.EmitMulsdXmm(RegX0, RegX1)
	case lir.OpDiv:
		lo.w.EmitDivsdXmm(RegX0, RegX1)
	case lir.OpFloorDiv:
		lo.w.EmitDivsdXmm(RegX0, RegX1)
		// roundsd xmm0, xmm0, 9 (SSE4.1): round toward -inf
		lo.w.EmitByte(0x66)
		lo.w.EmitByte(0x0F)
		lo.w.EmitByte(0x3A)
		lo.w.EmitByte(0x0B)
		lo.w.EmitByte(modrm(3, 0, 0))
		lo.w.EmitByte(0x09)
	case lir.OpMod:
		lo.w.EmitMovqXmmToGpr(RegRAX, RegX0)
		lo.w.EmitMovqXmmToGpr(RegRBX, RegX1)
		lo.emitCall("fmod", regArg(RegRAX), regArg(RegRBX))
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeFloat)
		return
	case lir.OpPow:
		lo.w.EmitMovqXmmToGpr(RegRAX, RegX0)
		lo.w.EmitMovqXmmToGpr(RegRBX, RegX1)
		lo.emitCall("pow_float", regArg(RegRAX), regArg(RegRBX))
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeFloat)
		return
	}
	lo.w.EmitMovqXmmToGpr(RegRAX, RegX0)
	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lir.TypeFloat)
}

func (lo *Lowerer) lowerUnaryArith(ins lir.Instruction) {
	g := lo.loadReg(ins.B)
	if ins.Op == lir.OpBitNot {
		lo.unboxIntInto(g)
		lo.w.EmitNotReg(g)
		lo.reboxIntInto(g)
		lo.storeReg(ins.A, g)
		lo.setType(ins.A, lir.TypeInt)
		return
	}
	// Neg
	if lo.isFloatOperand(ins.B) {
		lo.w.EmitMovqGprToXmm(RegX0, g)
		zero, _ := lo.regs.Alloc()
		lo.w.EmitXorRegReg(zero, zero)
		lo.w.EmitMovqGprToXmm(RegX1, zero)
		lo.w.EmitSubsdXmm(RegX1, RegX0)
		lo.w.EmitMovqXmmToGpr(RegRAX, RegX1)
		lo.regs.Free(zero)
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeFloat)
		return
	}
	lo.unboxIntInto(g)
	lo.w.EmitNegReg(g)
	lo.reboxIntInto(g)
	lo.storeReg(ins.A, g)
	lo.setType(ins.A, lir.TypeInt)
}

func (lo *Lowerer) lowerCompare(ins lir.Instruction) {
	if lo.typeOf(ins.B) == lir.TypeString && lo.typeOf(ins.C) == lir.TypeString {
		a := lo.loadReg(ins.B)
		b := lo.loadReg(ins.C)
		if ins.Op == lir.OpEq {
			lo.emitCall("string_eq", regArg(a), regArg(b))
		} else {
			lo.emitCall("string_cmp", regArg(a), regArg(b))
			lo.emitCmpResultToBool(ins.Op)
		}
		if ins.Op == lir.OpEq {
			lo.reboxIntInto(RegRAX)
		}
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeInt)
		return
	}

	if lo.isFloatOperand(ins.B) || lo.isFloatOperand(ins.C) {
		a := lo.loadReg(ins.B)
		b := lo.loadReg(ins.C)
		lo.w.EmitMovqGprToXmm(RegX0, a)
		lo.w.EmitMovqGprToXmm(RegX1, b)
		lo.w.EmitUcomisdXmm(RegX0, RegX1)
		// ucomisd sets CF/ZF like an unsigned compare, and PF when either
		// operand is NaN, so the false branch uses unsigned conditions.
		falseLabel := lo.w.DefineLabel()
		doneLabel := lo.w.DefineLabel()
		cc := CondNotEqual
		switch ins.Op {
		case lir.OpLt:
			cc = CondCode(0x83) // jae
		case lir.OpLe:
			cc = CondCode(0x87) // ja
		}
		lo.w.EmitJccRel32(CondCode(0x8A), falseLabel) // jp: unordered compares false
		lo.w.EmitJccRel32(cc, falseLabel)
		lo.w.EmitMovRegImm64(RegRAX, BoxInt(1))
		lo.w.EmitJmpRel32(doneLabel)
		lo.w.MarkLabel(falseLabel)
		lo.w.EmitMovRegImm64(RegRAX, BoxInt(0))
		lo.w.MarkLabel(doneLabel)
		lo.storeReg(ins.A, RegRAX)
		lo.setType(ins.A, lir.TypeInt)
		return
	}

	// Ints: the NaN-box encoding preserves signed order, so compare the
	// boxed values directly (spec.md §4.6 "Comparison").
	a := lo.loadReg(ins.B)
	b := lo.loadReg(ins.C)
	lo.w.EmitCmpRegReg(a, b)
	lo.emitFlagsToBool(ins.Op)
	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lir.TypeInt)
}

// emitFlagsToBool materializes the flags from a preceding cmp/ucomisd into
// box_int(0)/box_int(1) in RAX (spec.md: comparisons box as an int, not
// True/False, "for compatibility with integer arithmetic that consumes the
// result").
func (lo *Lowerer) emitFlagsToBool(op lir.Opcode) {
	var cc CondCode
	switch op {
	case lir.OpEq:
		cc = CondEqual
	case lir.OpLt:
		cc = CondLess
	case lir.OpLe:
		cc = CondLessEqual
	}
	falseLabel := lo.w.DefineLabel()
	doneLabel := lo.w.DefineLabel()
	lo.w.EmitJccRel32(invert(cc), falseLabel)
	lo.w.EmitMovRegImm64(RegRAX, BoxInt(1))
	lo.w.EmitJmpRel32(doneLabel)
	lo.w.MarkLabel(falseLabel)
	lo.w.EmitMovRegImm64(RegRAX, BoxInt(0))
	lo.w.MarkLabel(doneLabel)
}

// emitCmpResultToBool turns string_cmp's sign-only result (in RAX) into
// box_int(0)/box_int(1) for Lt/Le.
func (lo *Lowerer) emitCmpResultToBool(op lir.Opcode) {
	lo.w.EmitMovRegImm64(RegRBX, 0)
	lo.w.EmitCmpRegReg(RegRAX, RegRBX)
	lo.emitFlagsToBool(op)
}

func invert(cc CondCode) CondCode {
	switch cc {
	case CondEqual:
		return CondNotEqual
	case CondNotEqual:
		return CondEqual
	case CondLess:
		return CondGreaterEqual
	case CondLessEqual:
		return CondGreater
	case CondGreater:
		return CondLessEqual
	case CondGreaterEqual:
		return CondLess
	default:
		return cc
	}
}

func (lo *Lowerer) lowerNot(ins lir.Instruction) {
	g := lo.loadReg(ins.B)
	falsy := FalsyValue(lo.typeOf(ins.B))
	lo.w.EmitMovRegImm64(RegRBX, falsy)
	lo.w.EmitCmpRegReg(g, RegRBX)
	lo.emitFlagsToBoolSentinel(CondEqual)
	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lir.TypeBool)
}

// emitFlagsToBoolSentinel is emitFlagsToBool's NAN_BOX_TRUE/FALSE sibling,
// used by Not (spec.md: "selects NAN_BOX_TRUE vs NAN_BOX_FALSE").
func (lo *Lowerer) emitFlagsToBoolSentinel(cc CondCode) {
	falseLabel := lo.w.DefineLabel()
	doneLabel := lo.w.DefineLabel()
	lo.w.EmitJccRel32(invert(cc), falseLabel)
	lo.w.EmitMovRegImm64(RegRAX, NaNBoxTrue)
	lo.w.EmitJmpRel32(doneLabel)
	lo.w.MarkLabel(falseLabel)
	lo.w.EmitMovRegImm64(RegRAX, NaNBoxFalse)
	lo.w.MarkLabel(doneLabel)
}

func (lo *Lowerer) lowerAndOr(ins lir.Instruction) {
	a := lo.loadReg(ins.B)
	falsy := FalsyValue(lo.typeOf(ins.B))
	lo.w.EmitMovRegImm64(RegRBX, falsy)
	lo.w.EmitCmpRegReg(a, RegRBX)

	isFalsyTarget := lo.w.DefineLabel()
	doneLabel := lo.w.DefineLabel()
	lo.w.EmitJccRel32(CondEqual, isFalsyTarget)

	// not falsy
	if ins.Op == lir.OpAnd {
		b := lo.loadReg(ins.C)
		lo.w.EmitMovRegReg(RegRAX, b)
	} else {
		lo.w.EmitMovRegReg(RegRAX, a)
	}
	lo.w.EmitJmpRel32(doneLabel)

	lo.w.MarkLabel(isFalsyTarget)
	if ins.Op == lir.OpAnd {
		lo.w.EmitMovRegReg(RegRAX, a)
	} else {
		b := lo.loadReg(ins.C)
		lo.w.EmitMovRegReg(RegRAX, b)
	}
	lo.w.MarkLabel(doneLabel)

	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lo.typeOf(ins.C))
}

func (lo *Lowerer) lowerNullCo(ins lir.Instruction) {
	a := lo.loadReg(ins.B)
	lo.w.EmitMovRegImm64(RegRBX, NaNBoxNull)
	lo.w.EmitCmpRegReg(a, RegRBX)

	isNullLabel := lo.w.DefineLabel()
	doneLabel := lo.w.DefineLabel()
	lo.w.EmitJccRel32(CondEqual, isNullLabel)
	lo.w.EmitMovRegReg(RegRAX, a)
	lo.w.EmitJmpRel32(doneLabel)
	lo.w.MarkLabel(isNullLabel)
	b := lo.loadReg(ins.C)
	lo.w.EmitMovRegReg(RegRAX, b)
	lo.w.MarkLabel(doneLabel)

	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lo.typeOf(ins.C))
}
