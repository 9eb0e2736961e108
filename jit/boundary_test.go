package jit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/ljit/jit"
	"github.com/lumen-lang/ljit/lir"
)

// TestEngineFibAccSelfTCO covers spec.md §8.3's self-tail-call scenario: an
// accumulator-style fib_acc(n, a, b) whose else branch tail-calls itself.
// lowerTailCall rewrites this into a back-edge to the prologue's
// tcoHeaderLabel instead of growing the stack (spec.md §4.6 "self-TCO").
func TestEngineFibAccSelfTCO(t *testing.T) {
	// reg0=n reg1=a reg2=b (params), reg3=one, reg4=sum, reg5=newN,
	// reg6=callee-name base register, reg7..reg9=outgoing tail-call args.
	code := []lir.Instruction{
		{Op: lir.OpLoadK, A: 3, B: 0},       // pc0: one = 1
		{Op: lir.OpTest, A: 0},              // pc1: [header] test n
		{Op: lir.OpJmp, B: jmpOffset(2, 4)},  // pc2: -> body if truthy
		{Op: lir.OpJmp, B: jmpOffset(3, 11)}, // pc3: -> return a
		{Op: lir.OpSub, A: 5, B: 0, C: 3},   // pc4: newN = n - one
		{Op: lir.OpAdd, A: 4, B: 1, C: 2},   // pc5: sum = a + b
		{Op: lir.OpLoadK, A: 6, B: 1},       // pc6: base = "fib_acc"
		{Op: lir.OpMove, A: 7, B: 5},        // pc7: arg0 = newN
		{Op: lir.OpMove, A: 8, B: 2},        // pc8: arg1 = b
		{Op: lir.OpMove, A: 9, B: 4},        // pc9: arg2 = sum
		{Op: lir.OpTailCall, A: 6, B: 3},    // pc10: fib_acc(newN, b, sum)
		{Op: lir.OpReturn, A: 1},            // pc11: return a
	}

	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name: "fib_acc",
			Params: []lir.Param{
				{Name: "n", Type: lir.TypeInt},
				{Name: "a", Type: lir.TypeInt},
				{Name: "b", Type: lir.TypeInt},
			},
			ReturnType: lir.TypeInt,
			NumRegs:    10,
			Consts:     []lir.Const{lir.ConstOfInt(1), lir.ConstOfString("fib_acc")},
			Code:       code,
		},
	}}

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteTernary("fib_acc", jit.BoxInt(20), jit.BoxInt(0), jit.BoxInt(1))
	require.NoError(t, err)
	require.Equal(t, int64(6765), jit.UnboxInt(result))
}

// TestEngineMainCallsDouble exercises lowerCall's direct cell-to-cell
// resolution through the shared FunctionCache. double is declared before
// main so it has already been lowered (and has a real FuncPtr) by the time
// main's body is lowered in Engine.CompileModule's pass 2 — see lowerCall's
// doc comment for why that declaration order matters.
func TestEngineMainCallsDouble(t *testing.T) {
	mainCode := []lir.Instruction{
		{Op: lir.OpLoadK, A: 1, B: 0},    // reg1 = "double"
		{Op: lir.OpLoadK, A: 2, B: 1},    // reg2 = 21 (arg)
		{Op: lir.OpCall, A: 1, B: 1},     // reg1 = double(21)
		{Op: lir.OpReturn, A: 1},
	}
	doubleCode := []lir.Instruction{
		{Op: lir.OpAdd, A: 1, B: 0, C: 0}, // reg1 = x + x
		{Op: lir.OpReturn, A: 1},
	}

	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "double",
			Params:     []lir.Param{{Name: "x", Type: lir.TypeInt}},
			ReturnType: lir.TypeInt,
			NumRegs:    2,
			Code:       doubleCode,
		},
		{
			Name:       "main",
			ReturnType: lir.TypeInt,
			NumRegs:    3,
			Consts:     []lir.Const{lir.ConstOfString("double"), lir.ConstOfInt(21)},
			Code:       mainCode,
		},
	}}

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteNullary("main")
	require.NoError(t, err)
	require.Equal(t, int64(42), jit.UnboxInt(result))
}

// TestEngineForwardCallTraps covers the declaration-order limitation
// documented on lowerCall: main is declared (and lowered) before the cell
// it calls, so the call site traps instead of jumping through a null
// pointer baked in from the pass-1 placeholder entry.
func TestEngineForwardCallTraps(t *testing.T) {
	mainCode := []lir.Instruction{
		{Op: lir.OpLoadK, A: 1, B: 0}, // reg1 = "later"
		{Op: lir.OpCall, A: 1, B: 0},  // reg1 = later()
		{Op: lir.OpReturn, A: 1},
	}
	laterCode := []lir.Instruction{
		{Op: lir.OpLoadK, A: 0, B: 0},
		{Op: lir.OpReturn, A: 0},
	}

	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "main",
			ReturnType: lir.TypeInt,
			NumRegs:    2,
			Consts:     []lir.Const{lir.ConstOfString("later")},
			Code:       mainCode,
		},
		{
			Name:       "later",
			ReturnType: lir.TypeInt,
			NumRegs:    1,
			Consts:     []lir.Const{lir.ConstOfInt(9)},
			Code:       laterCode,
		},
	}}

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteNullary("main")
	require.NoError(t, err)
	require.Equal(t, int64(0), jit.UnboxInt(result))

	code, ok := e.LastTrap("main")
	require.True(t, ok)
	require.Equal(t, jit.TrapUnreachable, code)
}

// TestEngineZeroInstructionCell covers spec.md §8.2's boundary behavior: a
// cell with no instructions at all falls off the end of Lower's main loop
// without ever terminating, so emitReturnZero supplies the fallback return.
func TestEngineZeroInstructionCell(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{Name: "empty", ReturnType: lir.TypeInt, NumRegs: 1, Code: nil},
	}}

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteNullary("empty")
	require.NoError(t, err)
	require.Equal(t, int64(0), jit.UnboxInt(result))
}

// TestEngineUnknownOpcodeTraps covers spec.md §8.2's boundary behavior for
// an opcode outside the closed set: the cell must trap rather than lower
// garbage, and the trap must be observable via Engine.LastTrap.
func TestEngineUnknownOpcodeTraps(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "bogus",
			ReturnType: lir.TypeInt,
			NumRegs:    1,
			Code:       []lir.Instruction{{Op: lir.Opcode(250)}},
		},
	}}

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteNullary("bogus")
	require.NoError(t, err)
	require.Equal(t, int64(0), jit.UnboxInt(result))

	code, ok := e.LastTrap("bogus")
	require.True(t, ok)
	require.Equal(t, jit.TrapUnknownOpcode, code)
}

// TestEngineMaxRegisterCount covers spec.md §8.2's boundary behavior for the
// upper bound of a cell's register file (N in [1, 65536]).
func TestEngineMaxRegisterCount(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "wide",
			ReturnType: lir.TypeInt,
			NumRegs:    65536,
			Consts:     []lir.Const{lir.ConstOfInt(7)},
			Code: []lir.Instruction{
				{Op: lir.OpLoadK, A: 65535, B: 0},
				{Op: lir.OpReturn, A: 65535},
			},
		},
	}}

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	result, err := e.ExecuteNullary("wide")
	require.NoError(t, err)
	require.Equal(t, int64(7), jit.UnboxInt(result))
}

// TestEngineZeroLengthStringConstant covers spec.md §8.2's empty-string
// constant boundary case.
func TestEngineZeroLengthStringConstant(t *testing.T) {
	mod := &lir.Module{Cells: []lir.Cell{
		{
			Name:       "emptyStr",
			ReturnType: lir.TypeString,
			NumRegs:    1,
			Consts:     []lir.Const{lir.ConstOfString("")},
			Code: []lir.Instruction{
				{Op: lir.OpLoadK, A: 0, B: 0},
				{Op: lir.OpReturn, A: 0},
			},
		},
	}}

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))
	_, err := e.ExecuteNullary("emptyStr")
	require.NoError(t, err)
}
