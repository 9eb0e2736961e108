package jit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/ljit/jit"
	"github.com/lumen-lang/ljit/lir"
)

func TestDisassembleFormat(t *testing.T) {
	code := make([]byte, 20)
	for i := range code {
		code[i] = byte(i)
	}
	out := jit.Disassemble("add", code)
	require.Contains(t, out, "; add (20 bytes)")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3) // header + 2 rows of up to 16 bytes
	require.True(t, strings.HasPrefix(lines[1], "00000000  "))
	require.True(t, strings.HasPrefix(lines[2], "00000010  "))
}

func TestEngineDisassembleEntry(t *testing.T) {
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

	e := jit.NewEngine(jit.DefaultConfig())
	require.NoError(t, e.CompileModule(mod))

	dump, err := e.DisassembleEntry("answer")
	require.NoError(t, err)
	require.Contains(t, dump, "; answer")

	_, err = e.DisassembleEntry("missing")
	require.Error(t, err)
}
