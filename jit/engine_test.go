package jit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/ljit/jit"
	"github.com/lumen-lang/ljit/lir"
)

// jmpOffset encodes the signed, instruction-counted branch offset a Jmp at
// pc must carry to land on target, per lir.Instruction.SaxVal (spec.md
// §3.1: offsets are relative to pc+1, not pc).
func jmpOffset(pc, target int) uint16 {
	return uint16(int16(target - (pc + 1)))
}

func newTestEngine(t *testing.T) *jit.Engine {
	t.Helper()
	return jit.NewEngine(jit.DefaultConfig())
}

// TestEngineAnswer covers spec.md §8.3's simplest scenario: a nullary cell
// returning a constant.
func TestEngineAnswer(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "answer",
			ReturnType: lir.TypeInt,
			NumRegs:    1,
			Consts:     []lir.Const{lir.ConstOfInt(42)},
			Code: []lir.Instruction{
				{Op: lir.OpLoadK, A: 0, B: 0},
				{Op: lir.OpReturn, A: 0},
			},
		},
	}}

	e := newTestEngine(t)
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteNullary("answer")
	require.NoError(t, err)
	require.Equal(t, int64(42), jit.UnboxInt(result))

	stats := e.Stats()
	require.EqualValues(t, 1, stats.CellsCompiled)
	require.Contains(t, stats.PerCell, "answer")
}

// TestEngineAdd exercises a binary numeric Add (spec.md §8.3 add(a,b)=42):
// regression coverage for the OpAdd case missing from lowerBinaryArith's
// int switch, which silently returned the left operand unmodified.
func TestEngineAdd(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "add",
			Params:     []lir.Param{{Name: "a", Type: lir.TypeInt}, {Name: "b", Type: lir.TypeInt}},
			ReturnType: lir.TypeInt,
			NumRegs:    3,
			Code: []lir.Instruction{
				{Op: lir.OpAdd, A: 2, B: 0, C: 1},
				{Op: lir.OpReturn, A: 2},
			},
		},
	}}

	e := newTestEngine(t)
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteBinary("add", jit.BoxInt(19), jit.BoxInt(23))
	require.NoError(t, err)
	require.Equal(t, int64(42), jit.UnboxInt(result))
}

// TestEngineFactorial exercises a while-loop header lowered as Test
// followed by a conditional Jmp (taken when truthy) and an unconditional
// fallthrough Jmp to the exit block (spec.md §4.6 "Control flow"): there is
// no jump-if-false primitive, so a falling count must fall through to an
// unconditional exit jump instead.
func TestEngineFactorial(t *testing.T) {
	// reg0 = n (param), reg1 = result, reg2 = one
	code := []lir.Instruction{
		{Op: lir.OpLoadK, A: 1, B: 0},                     // pc0: result = 1
		{Op: lir.OpLoadK, A: 2, B: 0},                     // pc1: one = 1
		{Op: lir.OpTest, A: 0},                            // pc2: [header] test n
		{Op: lir.OpJmp, B: jmpOffset(3, 5)},                // pc3: -> body if truthy
		{Op: lir.OpJmp, B: jmpOffset(4, 8)},                // pc4: -> exit otherwise
		{Op: lir.OpMul, A: 1, B: 1, C: 0},                 // pc5: result *= n
		{Op: lir.OpSub, A: 0, B: 0, C: 2},                 // pc6: n -= 1
		{Op: lir.OpJmp, B: jmpOffset(7, 2)},                // pc7: -> header
		{Op: lir.OpReturn, A: 1},                          // pc8
	}

	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "factorial",
			Params:     []lir.Param{{Name: "n", Type: lir.TypeInt}},
			ReturnType: lir.TypeInt,
			NumRegs:    3,
			Consts:     []lir.Const{lir.ConstOfInt(1)},
			Code:       code,
		},
	}}

	e := newTestEngine(t)
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteUnary("factorial", jit.BoxInt(5))
	require.NoError(t, err)
	require.Equal(t, int64(120), jit.UnboxInt(result))

	result, err = e.ExecuteUnary("factorial", jit.BoxInt(0))
	require.NoError(t, err)
	require.Equal(t, int64(1), jit.UnboxInt(result))
}

// TestEngineInvalidateForcesRecompile covers spec.md §3.5's cache
// invalidation lifecycle: after Invalidate, the next CompileHot must
// recompile from scratch, counted in CellsCompiled.
func TestEngineInvalidateForcesRecompile(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "answer",
			ReturnType: lir.TypeInt,
			NumRegs:    1,
			Consts:     []lir.Const{lir.ConstOfInt(7)},
			Code: []lir.Instruction{
				{Op: lir.OpLoadK, A: 0, B: 0},
				{Op: lir.OpReturn, A: 0},
			},
		},
	}}

	e := newTestEngine(t)
	require.NoError(t, e.CompileModule(mod))

	before := e.Stats()
	require.EqualValues(t, 1, before.CellsCompiled)

	require.True(t, e.Invalidate("answer"))
	require.False(t, e.Invalidate("answer"), "second invalidate of an already-removed cell reports no-op")

	require.NoError(t, e.CompileHot("answer", mod))
	after := e.Stats()
	require.EqualValues(t, 2, after.CellsCompiled)
}

// TestEngineCompileModuleIsIdempotent covers spec.md §8.1: compiling the
// same module twice must populate the cache to the same contents as
// compiling once — cache_hits increments per unchanged cell instead of
// relowering and duplicating entries.
func TestEngineCompileModuleIsIdempotent(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "answer",
			ReturnType: lir.TypeInt,
			NumRegs:    1,
			Consts:     []lir.Const{lir.ConstOfInt(42)},
			Code: []lir.Instruction{
				{Op: lir.OpLoadK, A: 0, B: 0},
				{Op: lir.OpReturn, A: 0},
			},
		},
	}}

	e := newTestEngine(t)
	require.NoError(t, e.CompileModule(mod))
	require.NoError(t, e.CompileModule(mod))

	stats := e.Stats()
	require.EqualValues(t, 1, stats.CellsCompiled)
	require.EqualValues(t, 1, stats.CacheHits)
	require.Equal(t, 1, stats.CacheSize)

	result, err := e.ExecuteNullary("answer")
	require.NoError(t, err)
	require.Equal(t, int64(42), jit.UnboxInt(result))
}

// TestEngineUnknownCellErrors covers the CellNotFound path for a cell that
// was never compiled.
func TestEngineUnknownCellErrors(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ExecuteNullary("does-not-exist")
	require.Error(t, err)
}

// TestEngineArityUnsupported covers Execute's documented ceiling: arity
// above 3 is rejected rather than silently truncated.
func TestEngineArityUnsupported(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Execute("whatever", []uint64{1, 2, 3, 4})
	require.Error(t, err)
	require.IsType(t, &jit.ArityUnsupported{}, err)
}
