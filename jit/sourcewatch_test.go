package jit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSourceWatchInvalidatesOnWrite covers the fsnotify-driven invalidation
// path: writing to a watched file must invalidate the cell(s) mapped to it.
func TestSourceWatchInvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "add.lumen")
	require.NoError(t, os.WriteFile(srcPath, []byte("initial"), 0o644))

	e := NewEngine(DefaultConfig())
	require.NoError(t, e.CompileModule(answerModule()))
	// Rename the compiled cell under the watched file's name so Invalidate
	// has something to remove.
	entry, ok := e.cache.Get("answer")
	require.True(t, ok)
	entry.Name = "add"
	e.cache.Put(entry)

	sw, err := NewSourceWatch(e, dir, map[string][]string{srcPath: {"add"}})
	require.NoError(t, err)
	defer sw.Close()

	require.NoError(t, os.WriteFile(srcPath, []byte("changed"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := e.cache.Get("add")
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "expected add's cache entry to be invalidated after a source write")
}
