package lir

import (
	"encoding/json"
	"fmt"
	"io"
)

// ParseOpcode reverses Opcode.String, for the JSON loader below (a human
// writing a test fixture names opcodes, not their numeric encoding).
func ParseOpcode(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

var typeNames = [...]string{
	TypeUnknown: "Unknown",
	TypeInt:     "Int",
	TypeFloat:   "Float",
	TypeBool:    "Bool",
	TypeString:  "String",
	TypeList:    "List",
	TypeMap:     "Map",
	TypeRecord:  "Record",
	TypeUnion:   "Union",
	TypeNull:    "Null",
}

// ParseType reverses Type.String.
func ParseType(name string) (Type, bool) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return 0, false
}

var constKindNames = [...]string{
	ConstInt:    "Int",
	ConstFloat:  "Float",
	ConstBool:   "Bool",
	ConstNull:   "Null",
	ConstString: "String",
	ConstBigInt: "BigInt",
}

func parseConstKind(name string) (ConstKind, bool) {
	for i, n := range constKindNames {
		if n == name {
			return ConstKind(i), true
		}
	}
	return 0, false
}

// jsonModule/jsonCell/... mirror Module/Cell/... with string-named opcodes,
// types, and const kinds — the on-disk representation cmd/lumenjit's
// loader reads, so a fixture file stays readable without a separate
// compiler front end (spec.md §1/§6 place the type checker/parser out of
// scope; this loader only deserializes its already-typed output).
type jsonModule struct {
	Cells []jsonCell `json:"cells"`
}

type jsonCell struct {
	Name       string        `json:"name"`
	Params     []jsonParam   `json:"params"`
	ReturnType string        `json:"return_type"`
	NumRegs    int           `json:"num_regs"`
	Consts     []jsonConst   `json:"consts"`
	Code       []jsonInstruction `json:"code"`
}

type jsonParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type jsonConst struct {
	Kind   string `json:"kind"`
	Int    int64   `json:"int,omitempty"`
	Float  float64 `json:"float,omitempty"`
	Bool   bool    `json:"bool,omitempty"`
	Str    string  `json:"str,omitempty"`
	BigInt []byte  `json:"bigint,omitempty"`
}

type jsonInstruction struct {
	Op string `json:"op"`
	A  uint16 `json:"a"`
	B  uint16 `json:"b"`
	C  uint16 `json:"c"`
}

// LoadModuleJSON decodes a Module from its JSON fixture form.
func LoadModuleJSON(r io.Reader) (*Module, error) {
	var jm jsonModule
	if err := json.NewDecoder(r).Decode(&jm); err != nil {
		return nil, fmt.Errorf("lir: decode module: %w", err)
	}

	mod := &Module{Cells: make([]Cell, len(jm.Cells))}
	for i, jc := range jm.Cells {
		rt, ok := ParseType(jc.ReturnType)
		if !ok {
			return nil, fmt.Errorf("lir: cell %q: unknown return type %q", jc.Name, jc.ReturnType)
		}
		cell := Cell{
			Name:       jc.Name,
			ReturnType: rt,
			NumRegs:    jc.NumRegs,
			Params:     make([]Param, len(jc.Params)),
			Consts:     make([]Const, len(jc.Consts)),
			Code:       make([]Instruction, len(jc.Code)),
		}
		for pi, jp := range jc.Params {
			pt, ok := ParseType(jp.Type)
			if !ok {
				return nil, fmt.Errorf("lir: cell %q param %q: unknown type %q", jc.Name, jp.Name, jp.Type)
			}
			cell.Params[pi] = Param{Name: jp.Name, Type: pt}
		}
		for ci, jcst := range jc.Consts {
			kind, ok := parseConstKind(jcst.Kind)
			if !ok {
				return nil, fmt.Errorf("lir: cell %q const %d: unknown kind %q", jc.Name, ci, jcst.Kind)
			}
			cell.Consts[ci] = Const{
				Kind: kind, Int: jcst.Int, Float: jcst.Float,
				Bool: jcst.Bool, Str: jcst.Str, BigInt: jcst.BigInt,
			}
		}
		for ii, jins := range jc.Code {
			op, ok := ParseOpcode(jins.Op)
			if !ok {
				return nil, fmt.Errorf("lir: cell %q instruction %d: unknown opcode %q", jc.Name, ii, jins.Op)
			}
			cell.Code[ii] = Instruction{Op: op, A: jins.A, B: jins.B, C: jins.C}
		}
		mod.Cells[i] = cell
	}
	return mod, nil
}

// SaveJSON encodes mod back to its JSON fixture form (used by tests that
// want to round-trip a hand-built Module).
func SaveJSON(w io.Writer, mod *Module) error {
	jm := jsonModule{Cells: make([]jsonCell, len(mod.Cells))}
	for i, c := range mod.Cells {
		jc := jsonCell{
			Name: c.Name, ReturnType: typeNames[c.ReturnType], NumRegs: c.NumRegs,
			Params: make([]jsonParam, len(c.Params)),
			Consts: make([]jsonConst, len(c.Consts)),
			Code:   make([]jsonInstruction, len(c.Code)),
		}
		for pi, p := range c.Params {
			jc.Params[pi] = jsonParam{Name: p.Name, Type: typeNames[p.Type]}
		}
		for ci, cst := range c.Consts {
			jc.Consts[ci] = jsonConst{
				Kind: constKindNames[cst.Kind], Int: cst.Int, Float: cst.Float,
				Bool: cst.Bool, Str: cst.Str, BigInt: cst.BigInt,
			}
		}
		for ii, ins := range c.Code {
			jc.Code[ii] = jsonInstruction{Op: ins.Op.String(), A: ins.A, B: ins.B, C: ins.C}
		}
		jm.Cells[i] = jc
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jm)
}
