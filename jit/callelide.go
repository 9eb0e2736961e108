package jit

import "github.com/lumen-lang/ljit/lir"

// ElisionPlan is the Call-Name Elision pass's output (spec.md §4.5): the
// set of registers holding a string constant that is used only as a
// Call/TailCall base register, possibly through a chain of Move/MoveOwn
// aliases. The Lowerer emits an integer placeholder (0) for these instead
// of a heap allocation, and skips clone-on-Move / drop-on-overwrite for
// them.
type ElisionPlan struct {
	Elided map[uint16]bool
}

// PlanCallNameElision walks forward from each string LoadK, tracking its
// alias set, and marks the whole alias set elided if every exit is through
// a Call/TailCall base register with no intervening branch, cross-block
// use, non-trivial read, or reassignment.
func PlanCallNameElision(cell lir.Cell) *ElisionPlan {
	starts := BlockStarts(cell.Code)
	blocks := NewBlockIndex(starts)
	plan := &ElisionPlan{Elided: map[uint16]bool{}}

	isStringLoadK := func(pc int) bool {
		ins := cell.Code[pc]
		return ins.Op == lir.OpLoadK && int(ins.Bx()) < len(cell.Consts) &&
			cell.Consts[ins.Bx()].Kind == lir.ConstString
	}

	for pc, ins := range cell.Code {
		if !isStringLoadK(pc) {
			continue
		}
		root := ins.A
		homeBlock := blocks.BlockOf(pc)
		aliases := map[uint16]bool{root: true}
		safe := true
		consumed := map[uint16]bool{}

		for p := pc + 1; p < len(cell.Code) && safe; p++ {
			cur := cell.Code[p]
			if blocks.BlockOf(p) != homeBlock {
				// Crossed into another block: stop scanning. Any alias not
				// yet consumed as a call base makes the set unsafe below.
				break
			}
			switch cur.Op {
			case lir.OpMove, lir.OpMoveOwn:
				if aliases[cur.B] {
					if aliases[cur.A] && cur.A != cur.B {
						// destination already aliased and about to be
						// overwritten by a non-elided source: bail.
						safe = false
						break
					}
					aliases[cur.A] = true
				} else if aliases[cur.A] {
					// the elided alias is being overwritten by something
					// else: it no longer flows to a call base from here.
					delete(aliases, cur.A)
				}
			case lir.OpCall, lir.OpTailCall:
				// Using an alias as an argument (not the base) is a
				// non-trivial read; using it as the base is the
				// call-name-only exit this pass looks for.
				argc := cur.Bx()
				for i := uint16(1); i <= argc; i++ {
					if aliases[cur.A+i] {
						safe = false
					}
				}
				if aliases[cur.A] {
					consumed[cur.A] = true
				}
			default:
				reads, writes := regReadsWrites(cur)
				for _, r := range reads {
					if aliases[r] {
						safe = false
					}
				}
				for _, r := range writes {
					delete(aliases, r)
				}
			}
			if cur.Op.IsBranch() {
				break
			}
		}
		for r := range aliases {
			if !consumed[r] {
				safe = false
			}
		}

		if safe {
			for r := range aliases {
				plan.Elided[r] = true
			}
		}
	}

	return plan
}
