package jit

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/ljit/lir"
)

// TestEngineMaxRegisterCountKeepsFrameSmall covers spec.md §8.2's "compiles
// without OOM and without declaring 65,536 mutable slots" requirement:
// a cell declaring NumRegs=65536 but touching only register 65535 must get
// a stack frame sized to the registers it actually uses (jit/classify.go's
// usedRegisters), not 8*65536 bytes.
func TestEngineMaxRegisterCountKeepsFrameSmall(t *testing.T) {
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

	e := NewEngine(DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	entry, ok := e.cache.Get("wide")
	require.True(t, ok)
	require.NotNil(t, entry.buf)

	frameBytes, found := subRSPImmediate(entry.buf.Bytes())
	require.True(t, found, "expected a SUB RSP, imm32 prologue instruction")
	require.Less(t, frameBytes, uint32(65536*8))
	require.LessOrEqual(t, frameBytes, uint32(16))
}

// subRSPImmediate scans for the REX.W SUB RSP, imm32 prologue instruction
// emitPrologue emits and returns its immediate operand.
func subRSPImmediate(code []byte) (uint32, bool) {
	want := []byte{0x48, 0x81, modrm(3, 5, byte(RegRSP))}
	for i := 0; i+len(want)+4 <= len(code); i++ {
		if bytes.Equal(code[i:i+len(want)], want) {
			return binary.LittleEndian.Uint32(code[i+len(want):]), true
		}
	}
	return 0, false
}
