// Package lir models the register-based linear intermediate representation
// that the (out-of-scope) type checker hands to the JIT core. Nothing in
// this package mutates a Module: the core treats LIR as read-only input.
package lir

// Instruction is a fixed-width record: an opcode plus three register-index
// operands. For opcodes that instead carry an immediate or a branch offset,
// the B field is reinterpreted by the Bx/SaxVal accessors — there is no
// separate wire field, matching the one-word-per-instruction layout spec.md
// §3.1 describes.
type Instruction struct {
	Op   Opcode
	A, B, C uint16
}

// Bx returns B reinterpreted as an unsigned 16-bit immediate (pool index,
// intrinsic id, or argument count depending on Op).
func (i Instruction) Bx() uint16 { return i.B }

// SaxVal returns B reinterpreted as a signed, instruction-counted branch
// offset relative to PC+1 (spec.md §3.1).
func (i Instruction) SaxVal() int32 { return int32(int16(i.B)) }

// Param is one declared parameter of a Cell.
type Param struct {
	Name string
	Type Type
}

// Cell is one compilable function: a name, parameters, a declared return
// type, a register file size, a constant pool, and an instruction stream.
type Cell struct {
	Name       string
	Params     []Param
	ReturnType Type
	NumRegs    int // N in [1, 65536]
	Consts     []Const
	Code       []Instruction
}

// Module is an ordered list of cells sharing a string table and type table.
// The string table is implicit in each Cell's own Consts pool in this
// implementation (the type checker interns per-cell, not module-global),
// matching how the teacher's own `scm` interpreter keeps each Proc's body
// self-contained rather than funneling every literal through one global
// table.
type Module struct {
	Cells []Cell
}

// Lookup returns the cell named name, or ok=false.
func (m *Module) Lookup(name string) (Cell, bool) {
	for _, c := range m.Cells {
		if c.Name == name {
			return c, true
		}
	}
	return Cell{}, false
}
