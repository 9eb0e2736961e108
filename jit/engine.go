package jit

import (
	"fmt"
	"sync"
	"time"

	"github.com/lumen-lang/ljit/lir"
)

// CellStats is the per-cell half of Stats' SUPPLEMENTED FEATURES #1 addition:
// wall-clock time spent lowering and finalizing one cell's most recent
// compile, read off `original_source/rust/lumen-codegen/src/ir.rs`'s
// per-cell timing fields (the distilled spec.md only asks for aggregate
// counters).
type CellStats struct {
	LowerNanos    int64
	FinalizeNanos int64
}

// Stats is the snapshot Engine.Stats returns: the aggregate counters
// spec.md §4.7 names, plus the per-cell timing breakdown.
type Stats struct {
	CellsCompiled int64
	CacheHits     int64
	DiskCacheHits int64
	CacheSize     int
	Executions    int64
	PerCell       map[string]CellStats
}

// Engine ties together the Register Classifier/Chain Planner/Call-Name
// Elision/Lowerer pipeline, the compiled-function cache, and the hot-path
// profile into the single object callers drive (spec.md §4.7's data-flow
// diagram). It generalizes the teacher's `scm/jit.go` OptimizeForValues
// entry point, which likewise owns a module, a cache of compiled closures,
// and the counters behind its own `--jit-stats` diagnostics.
type Engine struct {
	mu    sync.Mutex
	cfg   EngineConfig
	mod   *lir.Module
	arena *Arena
	cache *FunctionCache
	prof  *Profile
	disk  *DiskCache

	cellsCompiled int64
	cacheHits     int64
	diskHits      int64
	executions    int64
	perCell       map[string]CellStats
}

// NewEngine constructs an Engine with no compiled cells and an empty
// module; call CompileModule to populate it.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger()
	}
	if cfg.HotThreshold == 0 {
		cfg.HotThreshold = DefaultConfig().HotThreshold
	}
	disk, err := NewDiskCache(cfg.DiskCacheDir)
	if err != nil {
		cfg.Logger.Printf("disk cache disabled: %v", err)
		disk = &DiskCache{}
	}
	return &Engine{
		cfg:     cfg,
		arena:   NewArena(),
		cache:   newFunctionCache(),
		prof:    newProfile(cfg.HotThreshold),
		disk:    disk,
		perCell: map[string]CellStats{},
	}
}

// CompileModule lowers every cell in mod and populates the cache, in two
// passes per spec.md §4.7: first every cell's signature (name, param count,
// return type) is recorded as a placeholder entry so any cell may resolve
// any other's *name* regardless of declaration order, then every body is
// actually lowered and finalized in the same declaration order. A direct
// call's target address is baked into the caller's machine code at the
// caller's own lowering time (see lowerCall), so the callee must already
// have a real FuncPtr at that point — a cell that calls one declared later
// in mod.Cells traps at runtime (TrapUnreachable) instead of resolving.
//
// Compiling the same module twice is idempotent with respect to the cache
// (spec.md §8.1): a cell already holding a real FuncPtr whose BodyHash
// matches its current LIR body is left untouched and counted as a cache
// hit instead of being relowered, so the cache ends up with the same
// contents (not a duplicate entry, not a freed-out-from-under-callers
// CodeBuf) as compiling once. Returns the first CompileError or
// BackendError encountered; cells compiled before the failing one remain
// cached.
func (e *Engine) CompileModule(mod *lir.Module) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mod = mod

	alreadyCompiled := func(cell lir.Cell) bool {
		existing, ok := e.cache.Get(cell.Name)
		return ok && existing.FuncPtr != 0 && existing.BodyHash == hashInstructions(cell.Code)
	}

	// Pass 1: declarations. A cell's entry is reachable as soon as its
	// signature is known, even though FuncPtr is not yet valid — lowerCall
	// only needs the name to resolve at this point; the real FuncPtr is
	// filled in during pass 2 before any generated code can run. A cell
	// that is already compiled from a prior CompileModule call keeps its
	// live entry instead of being clobbered by a fresh placeholder.
	for _, cell := range mod.Cells {
		if alreadyCompiled(cell) {
			continue
		}
		e.cache.Put(&CompiledEntry{
			Name:       cell.Name,
			NumParams:  len(cell.Params),
			ReturnType: cell.ReturnType,
		})
	}

	// Pass 2: bodies.
	for i, cell := range mod.Cells {
		if alreadyCompiled(cell) {
			e.cacheHits++
			continue
		}
		if err := e.compileCellLocked(mod, cell, int64(i)); err != nil {
			return err
		}
	}
	return nil
}

// compileCellLocked lowers one cell and replaces its cache entry with the
// finished FuncPtr. Caller must hold e.mu.
func (e *Engine) compileCellLocked(mod *lir.Module, cell lir.Cell, cellIndex int64) error {
	bodyHash := hashInstructions(cell.Code)
	registerCellName(cellIndex, cell.Name)

	if code, numParams, retType, ok := e.disk.Load(cell.Name, bodyHash); ok {
		if buf, err := loadCodeBuf(code); err == nil {
			e.diskHits++
			e.cache.Put(&CompiledEntry{
				Name:       cell.Name,
				FuncPtr:    buf.FuncPointer(),
				NumParams:  numParams,
				ReturnType: lir.Type(retType),
				BodyHash:   bodyHash,
				buf:        buf,
			})
			e.cellsCompiled++
			e.perCell[cell.Name] = CellStats{}
			return nil
		}
		// Corrupt/unloadable disk entry: fall through and recompile fresh.
		e.disk.Evict(cell.Name, bodyHash)
	}

	lowerStart := time.Now()
	lo := NewLowerer(mod, cell, e.arena, cellIndex, e.cache)
	buf, _, err := lo.Lower()
	lowerElapsed := time.Since(lowerStart)
	if err != nil {
		return &CompileError{Cell: cell.Name, ID: newCorrelationID(), Reason: "lowering failed", Err: err}
	}

	finalizeStart := time.Now()
	// MakeExecutable already ran inside Lower; "finalize" here covers the
	// bookkeeping that must happen after code exists: publishing the cache
	// entry and persisting it to the disk cache, mirroring the teacher's own
	// jitCompileExprBody committing its temp buffer into the live
	// JITEntryPoint only once codegen has fully succeeded.
	entry := &CompiledEntry{
		Name:       cell.Name,
		FuncPtr:    buf.FuncPointer(),
		NumParams:  len(cell.Params),
		ReturnType: cell.ReturnType,
		BodyHash:   bodyHash,
		buf:        buf,
	}
	e.cache.Put(entry)
	if err := e.disk.Store(cell.Name, bodyHash, entry.NumParams, int32(entry.ReturnType), buf.Bytes()); err != nil {
		e.cfg.Logger.Printf("disk cache store failed for %q: %v", cell.Name, err)
	}
	finalizeElapsed := time.Since(finalizeStart)

	e.cellsCompiled++
	e.perCell[cell.Name] = CellStats{
		LowerNanos:    lowerElapsed.Nanoseconds(),
		FinalizeNanos: finalizeElapsed.Nanoseconds(),
	}
	return nil
}

// loadCodeBuf copies previously compiled, already-relocated machine code
// (ljit never emits position-dependent fixups that survive past Lower, since
// ResolveFixups runs with a zero base before MakeExecutable) into a fresh
// executable mapping, skipping the Writer/lowering pipeline entirely.
func loadCodeBuf(code []byte) (*CodeBuf, error) {
	buf, err := AllocCodeBuf(len(code))
	if err != nil {
		return nil, err
	}
	copy(buf.Bytes(), code)
	if err := buf.MakeExecutable(); err != nil {
		return nil, err
	}
	return buf, nil
}

// CompileHot is compile_module's cache-aware sibling (spec.md §4.7): it
// returns early on a cache hit (name already has a real FuncPtr cached, not
// just a pass-1 declaration placeholder) and resets name's profile counter
// on success so the next HotThreshold calls start a fresh count.
func (e *Engine) CompileHot(name string, mod *lir.Module) error {
	e.mu.Lock()
	if entry, ok := e.cache.Get(name); ok && entry.FuncPtr != 0 {
		e.cacheHits++
		e.mu.Unlock()
		e.prof.Reset(name)
		return nil
	}
	e.mu.Unlock()

	if err := e.CompileModule(mod); err != nil {
		return err
	}
	e.prof.Reset(name)
	return nil
}

// RecordAndCheck bumps name's call counter and reports whether this call
// crossed the hot threshold (spec.md §3.6), delegating to the shared
// Profile.
func (e *Engine) RecordAndCheck(name string) bool {
	return e.prof.RecordAndCheck(name)
}

// lookupRunnable resolves name to a callable entry, erroring if the cell is
// unknown or has not finished compiling (a pass-1 placeholder with a nil
// FuncPtr).
func (e *Engine) lookupRunnable(name string) (*CompiledEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.cache.Get(name)
	if !ok || entry.FuncPtr == 0 {
		return nil, &CellNotFound{Cell: name}
	}
	return entry, nil
}

// ExecuteNullary reinterprets name's function pointer as `func() int64` and
// calls it directly (spec.md §4.7 execute_jit_nullary).
func (e *Engine) ExecuteNullary(name string) (uint64, error) {
	entry, err := e.lookupRunnable(name)
	if err != nil {
		return 0, err
	}
	e.recordExecution()
	return uint64(makeFn0(entry.FuncPtr)()), nil
}

// ExecuteUnary is execute_jit_unary.
func (e *Engine) ExecuteUnary(name string, a uint64) (uint64, error) {
	entry, err := e.lookupRunnable(name)
	if err != nil {
		return 0, err
	}
	e.recordExecution()
	return uint64(makeFn1(entry.FuncPtr)(int64(a))), nil
}

// ExecuteBinary is execute_jit_binary.
func (e *Engine) ExecuteBinary(name string, a, b uint64) (uint64, error) {
	entry, err := e.lookupRunnable(name)
	if err != nil {
		return 0, err
	}
	e.recordExecution()
	return uint64(makeFn2(entry.FuncPtr)(int64(a), int64(b))), nil
}

// ExecuteTernary is execute_jit_ternary.
func (e *Engine) ExecuteTernary(name string, a, b, c uint64) (uint64, error) {
	entry, err := e.lookupRunnable(name)
	if err != nil {
		return 0, err
	}
	e.recordExecution()
	return uint64(makeFn3(entry.FuncPtr)(int64(a), int64(b), int64(c))), nil
}

// Execute is the generic execute_jit dispatch: it fans out to the typed
// arity-0..3 helpers above and errors for any arity beyond ternary (spec.md
// §4.7's documented ceiling).
func (e *Engine) Execute(name string, args []uint64) (uint64, error) {
	switch len(args) {
	case 0:
		return e.ExecuteNullary(name)
	case 1:
		return e.ExecuteUnary(name, args[0])
	case 2:
		return e.ExecuteBinary(name, args[0], args[1])
	case 3:
		return e.ExecuteTernary(name, args[0], args[1], args[2])
	default:
		return 0, &ArityUnsupported{Cell: name, Arity: len(args)}
	}
}

func (e *Engine) recordExecution() {
	e.mu.Lock()
	e.executions++
	e.mu.Unlock()
}

// Invalidate forces name's next CompileHot to recompile from scratch,
// freeing its current executable memory (spec.md §3.5's cache invalidation
// lifecycle).
func (e *Engine) Invalidate(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.cache.Get(name); ok {
		e.disk.Evict(name, entry.BodyHash)
	}
	removed := e.cache.Invalidate(name)
	if removed {
		delete(e.perCell, name)
	}
	return removed
}

// LastTrap reports the most recent trap recorded for name, if any
// (SUPPLEMENTED FEATURES #2).
func (e *Engine) LastTrap(name string) (TrapCode, bool) {
	return LastTrapFor(name)
}

// Stats returns a snapshot of the engine's counters, including the
// per-cell timing breakdown (SUPPLEMENTED FEATURES #1).
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	perCell := make(map[string]CellStats, len(e.perCell))
	for k, v := range e.perCell {
		perCell[k] = v
	}
	return Stats{
		CellsCompiled: e.cellsCompiled,
		CacheHits:     e.cacheHits,
		DiskCacheHits: e.diskHits,
		CacheSize:     e.cache.Len(),
		Executions:    e.executions,
		PerCell:       perCell,
	}
}

// hashInstructions is the CompiledEntry.BodyHash source: an FNV-1a fold
// over each instruction's fields, fast and allocation-free, matching the
// teacher's own `scm/jit_entry.go` BodyHash role of detecting whether a
// cell's compiled form is stale relative to its current LIR body.
func hashInstructions(code []lir.Instruction) uint64 {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	const prime = 1099511628211
	mix := func(x uint64) {
		h ^= x
		h *= prime
	}
	for _, ins := range code {
		mix(uint64(ins.Op))
		mix(uint64(ins.A))
		mix(uint64(ins.B))
		mix(uint64(ins.C))
	}
	return h
}

func (e *Engine) String() string {
	return fmt.Sprintf("jit.Engine{cells=%d cacheSize=%d}", e.cellsCompiled, e.cache.Len())
}
