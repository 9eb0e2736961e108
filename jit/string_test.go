package jit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/ljit/lir"
)

// TestEngineGreetConcat exercises lowerTwoOperandConcat through a
// greet(name) cell: a statically-String LoadK operand routes OpAdd into a
// runtime string concat instead of numeric addition (spec.md §4.4/§4.6);
// the destination differs from the left operand, so string_concat is used.
func TestEngineGreetConcat(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "greet",
			Params:     []lir.Param{{Name: "name", Type: lir.TypeString}},
			ReturnType: lir.TypeString,
			NumRegs:    3,
			Consts:     []lir.Const{lir.ConstOfString("Hello, ")},
			Code: []lir.Instruction{
				{Op: lir.OpLoadK, A: 1, B: 0},
				{Op: lir.OpAdd, A: 2, B: 1, C: 0},
				{Op: lir.OpReturn, A: 2},
			},
		},
	}}

	e := NewEngine(DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	name := NewHeapString(e.arena, "world")
	result, err := e.ExecuteUnary("greet", uint64(name))
	require.NoError(t, err)
	require.Equal(t, "Hello, world", GoString(uintptr(result)))
}

// TestEngineConcatNonDestinationOperandSurvives covers the non-in-place
// branch of lowerTwoOperandConcat: when the Add's destination register
// differs from its left operand, the left operand is a value the source
// program may still read afterward, so it must come back through
// string_concat (a fresh allocation) rather than string_concat_mut, which
// would mutate or StringDrop a register the program never asked to
// consume.
func TestEngineConcatNonDestinationOperandSurvives(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "greetCheck",
			Params:     []lir.Param{{Name: "name", Type: lir.TypeString}},
			ReturnType: lir.TypeString,
			NumRegs:    3,
			Consts:     []lir.Const{lir.ConstOfString("Hi, ")},
			Code: []lir.Instruction{
				{Op: lir.OpLoadK, A: 1, B: 0},
				{Op: lir.OpAdd, A: 2, B: 1, C: 0}, // greeted = prefix + name, dst != left operand
				{Op: lir.OpReturn, A: 1},          // return prefix, untouched by the concat above
			},
		},
	}}

	e := NewEngine(DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	name := NewHeapString(e.arena, "world")
	result, err := e.ExecuteUnary("greetCheck", uint64(name))
	require.NoError(t, err)
	require.Equal(t, "Hi, ", GoString(uintptr(result)))
}
