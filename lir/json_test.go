package lir_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/ljit/lir"
)

func buildSampleModule() *lir.Module {
	return &lir.Module{Cells: []lir.Cell{
		{
			Name:       "add",
			Params:     []lir.Param{{Name: "a", Type: lir.TypeInt}, {Name: "b", Type: lir.TypeInt}},
			ReturnType: lir.TypeInt,
			NumRegs:    3,
			Consts:     []lir.Const{lir.ConstOfInt(1), lir.ConstOfString("hi")},
			Code: []lir.Instruction{
				{Op: lir.OpAdd, A: 2, B: 0, C: 1},
				{Op: lir.OpReturn, A: 2},
			},
		},
	}}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	mod := buildSampleModule()

	var buf bytes.Buffer
	require.NoError(t, lir.SaveJSON(&buf, mod))

	got, err := lir.LoadModuleJSON(&buf)
	require.NoError(t, err)
	require.Equal(t, mod, got)
}

func TestLoadModuleJSONUnknownOpcode(t *testing.T) {
	src := `{"cells":[{"name":"x","return_type":"Int","num_regs":1,
		"code":[{"op":"NotARealOpcode","a":0,"b":0,"c":0}]}]}`
	_, err := lir.LoadModuleJSON(bytes.NewBufferString(src))
	require.Error(t, err)
}

func TestLoadModuleJSONUnknownType(t *testing.T) {
	src := `{"cells":[{"name":"x","return_type":"NotAType","num_regs":1,"code":[]}]}`
	_, err := lir.LoadModuleJSON(bytes.NewBufferString(src))
	require.Error(t, err)
}

func TestParseOpcodeAndType(t *testing.T) {
	op, ok := lir.ParseOpcode("Add")
	require.True(t, ok)
	require.Equal(t, lir.OpAdd, op)

	_, ok = lir.ParseOpcode("nope")
	require.False(t, ok)

	typ, ok := lir.ParseType("Int")
	require.True(t, ok)
	require.Equal(t, lir.TypeInt, typ)
}
