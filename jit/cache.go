package jit

import "github.com/lumen-lang/ljit/lir"

// CompiledEntry is the compiled-function cache's value type (spec.md
// §3.5): a native function pointer, its parameter count, and its
// return-type tag. The entry also remembers the CodeBuf and BodyHash,
// generalizing the teacher's `scm/jit_entry.go` JITEntryPoint — there,
// `BodyHash uint64` keys invalidation off the AST shape; here it keys off
// a hash of the LIR instruction stream, since LIR is what can change
// between compiles.
type CompiledEntry struct {
	Name       string
	FuncPtr    uintptr
	NumParams  int
	ReturnType lir.Type
	BodyHash   uint64
	buf        *CodeBuf
}

// FunctionCache owns every compiled entry for one Engine. Ownership:
// cache is owned by the engine; underlying executable memory is owned by
// each entry's CodeBuf, which outlives the cache map entry itself only
// until Invalidate frees it (spec.md §3.5).
type FunctionCache struct {
	entries map[string]*CompiledEntry
}

func newFunctionCache() *FunctionCache {
	return &FunctionCache{entries: map[string]*CompiledEntry{}}
}

func (c *FunctionCache) Get(name string) (*CompiledEntry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Put installs e as name's entry, freeing any previously installed entry's
// executable memory first — compiling a cell twice (a changed body, or a
// second CompileModule pass-1 placeholder superseding a stale entry) must
// not leak the superseded CodeBuf's mmap'd pages.
func (c *FunctionCache) Put(e *CompiledEntry) {
	if old, ok := c.entries[e.Name]; ok && old.buf != nil && old.buf != e.buf {
		_ = old.buf.Free()
	}
	c.entries[e.Name] = e
}

// Invalidate removes name's entry, freeing its executable memory. Reports
// whether an entry existed.
func (c *FunctionCache) Invalidate(name string) bool {
	e, ok := c.entries[name]
	if !ok {
		return false
	}
	if e.buf != nil {
		_ = e.buf.Free()
	}
	delete(c.entries, name)
	return true
}

func (c *FunctionCache) Len() int { return len(c.entries) }
