package jit

import "sync"

// TrapCode enumerates concrete trap reasons (SPEC_FULL.md Supplemented
// Features #2, read off `original_source/rust/lumen-codegen/src/jit.rs`'s
// richer trap enumeration — the distilled spec.md only asks for "a
// distinct trap code" without naming the members).
type TrapCode uint8

const (
	TrapNone TrapCode = iota
	TrapUnreachable
	TrapHalt
	TrapUnknownOpcode
	TrapIntegerDivideByZero
)

func (t TrapCode) String() string {
	switch t {
	case TrapHalt:
		return "halt"
	case TrapUnknownOpcode:
		return "unknown-opcode"
	case TrapIntegerDivideByZero:
		return "integer-divide-by-zero"
	case TrapUnreachable:
		return "unreachable"
	default:
		return "none"
	}
}

// trapSentinelValue is the raw 0 word (not a boxed int) a trap's stub epilogue
// returns after recording the trap in the engine's last-trap table — the
// generated function still returns a well-formed 64-bit word (spec.md's
// "type errors at runtime are structurally impossible" applies to the
// happy path; a trap is a deliberate, recorded escape hatch, not a crash).
const trapSentinelValue = 0

var trapRegistry sync.Map // cellIndex int64 -> TrapCode
var trapNames sync.Map    // cellIndex int64 -> cell name string

// RecordTrap is the runtime helper generated code calls just before
// returning trapSentinelValue (jit/lower_loads.go emitTrap). It is kept
// tiny and allocation-free on the common (non-trapping) path: a trap is
// the exception, not the rule.
func RecordTrap(cellIndex int64, code int64) {
	trapRegistry.Store(cellIndex, TrapCode(code))
}

func registerCellName(cellIndex int64, name string) {
	trapNames.Store(cellIndex, name)
}

// LastTrapFor returns the most recent trap recorded for the cell registered
// under name, used by Engine.LastTrap for post-mortem inspection
// (SPEC_FULL.md Supplemented Features #2).
func LastTrapFor(name string) (TrapCode, bool) {
	var found TrapCode
	var ok bool
	trapNames.Range(func(k, v any) bool {
		if v.(string) == name {
			if code, has := trapRegistry.Load(k); has {
				found, ok = code.(TrapCode), true
			}
			return false
		}
		return true
	})
	return found, ok
}
