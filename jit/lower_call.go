package jit

import "github.com/lumen-lang/ljit/lir"

// resolveCalleeName scans backward from a Call/TailCall at pc looking for
// the LoadK that put a string constant into the instruction's base
// register, following Move/MoveOwn aliases backward (spec.md §4.6: "Resolve
// the callee name by scanning backward from the call site for a LoadK of a
// string constant into the base register, following Move/MoveOwn chains").
// Returns "" if the base register's origin can't be determined statically
// (e.g. it came from a GetField or a function parameter) — such calls are
// dynamic and trap with TrapUnreachable (see lowerCall).
func (lo *Lowerer) resolveCalleeName(pc int) string {
	ins := lo.cell.Code[pc]
	target := ins.A
	for i := pc - 1; i >= 0; i-- {
		cand := lo.cell.Code[i]
		switch cand.Op {
		case lir.OpLoadK:
			if cand.A != target {
				continue
			}
			if int(cand.Bx()) >= len(lo.cell.Consts) {
				return ""
			}
			k := lo.cell.Consts[cand.Bx()]
			if k.Kind != lir.ConstString {
				return ""
			}
			return k.Str
		case lir.OpMove, lir.OpMoveOwn:
			if cand.A == target {
				target = cand.B
				continue
			}
		default:
			_, writes := regReadsWrites(cand)
			for _, w := range writes {
				if w == target {
					return "" // redefined by something other than LoadK/Move
				}
			}
		}
	}
	return ""
}

// lowerCall lowers a direct call: spills the argument registers into the
// callee's ABIInternal argument registers, resolves the callee's entry
// point through the shared FunctionCache, and calls through it. The callee's
// address is baked into the caller's machine code as an immediate at
// lowering time, not re-resolved at call time, so a callee must have
// finished compiling (have a nonzero FuncPtr) before its caller is lowered;
// Engine.CompileModule's pass 2 compiles cells in declaration order, so a
// cell that calls a cell declared later in the same module traps
// (TrapUnreachable) rather than silently calling through a null pointer.
// A callee whose name can't be resolved statically traps the same way.
func (lo *Lowerer) lowerCall(pc int, ins lir.Instruction) {
	name := lo.resolveCalleeName(pc)
	argc := int(ins.Bx())
	argRegs := []int{RegRAX, RegRBX, RegRCX}
	lo.dropIfString(ins.A)
	for i := 0; i < argc && i < len(argRegs); i++ {
		g := lo.loadReg(ins.A + 1 + uint16(i))
		if g != argRegs[i] {
			lo.w.EmitMovRegReg(argRegs[i], g)
		}
	}
	lo.invalidateCacheForRegs(RegRAX, RegRBX, RegRCX)

	entry, ok := lo.resolveCallTarget(name)
	if !ok {
		lo.emitTrap(TrapUnreachable)
		return
	}
	lo.w.EmitMovRegImm64(RegR11, uint64(entry))
	lo.w.EmitCallReg(RegR11)

	lo.storeReg(ins.A, RegRAX)
	lo.setType(ins.A, lo.calleeReturnType(name))
}

// lowerTailCall rewrites a self-tail-call into a back-edge to the loop
// header (spec.md §4.6 "self-TCO"): re-spill the new argument values into
// the parameter slots and jump to tcoHeaderLabel, never growing the stack.
// A tail call to a different cell lowers like a regular Call immediately
// followed by Return, since this backend does not implement general
// sibling-call tail elimination (spec.md §4.6 explicitly scopes TCO to the
// self-recursive case).
func (lo *Lowerer) lowerTailCall(pc int, ins lir.Instruction) {
	name := lo.resolveCalleeName(pc)
	argc := int(ins.Bx())

	if lo.selfTCO && name == lo.cell.Name {
		for i := 0; i < argc; i++ {
			lo.w.EmitPush(lo.loadReg(ins.A + 1 + uint16(i)))
		}
		for i := 0; i < argc && i < len(lo.cell.Params); i++ {
			lo.dropIfString(uint16(i))
		}
		for i := argc - 1; i >= 0; i-- {
			lo.w.EmitPop(RegRAX)
			if i < len(lo.cell.Params) {
				lo.storeReg(uint16(i), RegRAX)
				lo.setType(uint16(i), lo.cell.Params[i].Type)
			}
		}
		lo.w.EmitJmpRel32(lo.tcoHeaderLabel)
		lo.terminated = true
		return
	}

	lo.lowerCall(pc, ins)
	retIns := lir.Instruction{Op: lir.OpReturn, A: ins.A}
	lo.lowerReturn(retIns)
}

// resolveCallTarget looks up name's compiled entry point in the module's
// shared function cache. Returns false for unresolved or not-yet-compiled
// callees.
func (lo *Lowerer) resolveCallTarget(name string) (uintptr, bool) {
	if name == "" || lo.sharedCache == nil {
		return 0, false
	}
	entry, ok := lo.sharedCache.Get(name)
	if !ok || entry.FuncPtr == 0 {
		return 0, false
	}
	return entry.FuncPtr, true
}

// calleeReturnType reports the statically known return type of a resolved
// callee, falling back to Unknown (treated as a plain 64-bit word) when the
// callee's cell can't be found in the module.
func (lo *Lowerer) calleeReturnType(name string) lir.Type {
	if lo.mod == nil {
		return lir.TypeUnknown
	}
	if c, ok := lo.mod.Lookup(name); ok {
		return c.ReturnType
	}
	return lir.TypeUnknown
}
