package jit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/ljit/lir"
)

func answerModule() *lir.Module {
	return &lir.Module{Cells: []lir.Cell{
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
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)

	code := []byte{0x48, 0x89, 0xc8, 0xc3, 0x90, 0x90, 0x00, 0x01, 0x02, 0x03}
	require.NoError(t, dc.Store("add", 0xdeadbeef, 2, 1, code))

	got, numParams, retType, ok := dc.Load("add", 0xdeadbeef)
	require.True(t, ok)
	require.Equal(t, code, got)
	require.Equal(t, 2, numParams)
	require.EqualValues(t, 1, retType)
}

func TestDiskCacheMissOnWrongHash(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, dc.Store("add", 1, 2, 1, []byte{0x90}))

	_, _, _, ok := dc.Load("add", 2)
	require.False(t, ok)
}

func TestDiskCacheEvict(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, dc.Store("add", 1, 2, 1, []byte{0x90}))

	dc.Evict("add", 1)
	_, _, _, ok := dc.Load("add", 1)
	require.False(t, ok)
}

// TestDiskCacheDisabled covers EngineConfig.DiskCacheDir's "empty disables"
// contract: Load always misses and Store is a no-op, never an error.
func TestDiskCacheDisabled(t *testing.T) {
	dc, err := NewDiskCache("")
	require.NoError(t, err)
	require.NoError(t, dc.Store("add", 1, 2, 1, []byte{0x90}))
	_, _, _, ok := dc.Load("add", 1)
	require.False(t, ok)
}

// TestEngineDiskCacheHitAvoidsRelowering exercises compileCellLocked's load
// path end to end: a second Engine pointed at the same disk-cache directory
// restores a cell's machine code without running the Lowerer again.
func TestEngineDiskCacheHitAvoidsRelowering(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ljit-cache")

	mod := answerModule()

	cfg1 := DefaultConfig()
	cfg1.DiskCacheDir = dir
	e1 := NewEngine(cfg1)
	require.NoError(t, e1.CompileModule(mod))
	require.EqualValues(t, 0, e1.Stats().DiskCacheHits)

	cfg2 := DefaultConfig()
	cfg2.DiskCacheDir = dir
	e2 := NewEngine(cfg2)
	require.NoError(t, e2.CompileModule(mod))
	require.EqualValues(t, 1, e2.Stats().DiskCacheHits)

	result, err := e2.ExecuteNullary("answer")
	require.NoError(t, err)
	require.Equal(t, int64(42), UnboxInt(result))
}
