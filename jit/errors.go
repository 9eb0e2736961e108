package jit

import (
	"fmt"

	"github.com/google/uuid"
)

// CompileError reports a lowering failure (spec.md §7): unknown callee,
// register out of declared bounds, backend verification failure, function
// definition failure. Every error carries a correlation id so a trap
// observed later in a crash dump can be cross-referenced with the compile
// that produced it (SPEC_FULL.md Domain Stack, google/uuid).
type CompileError struct {
	Cell   string
	ID     uuid.UUID
	Reason string
	Err    error
}

func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jit: compile %q [%s]: %s: %v", e.Cell, e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("jit: compile %q [%s]: %s", e.Cell, e.ID, e.Reason)
}

func (e *CompileError) Unwrap() error { return e.Err }

// CellNotFound reports execution requested for an uncompiled or invalidated
// cell.
type CellNotFound struct {
	Cell string
}

func (e *CellNotFound) Error() string { return fmt.Sprintf("jit: cell %q not compiled", e.Cell) }

// ArityUnsupported reports a generic execute_jit dispatch with > 3 args.
type ArityUnsupported struct {
	Cell  string
	Arity int
}

func (e *ArityUnsupported) Error() string {
	return fmt.Sprintf("jit: cell %q called with unsupported arity %d (max 3)", e.Cell, e.Arity)
}

// BackendError reports a module finalization failure.
type BackendError struct {
	ID  uuid.UUID
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("jit: backend [%s]: %v", e.ID, e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }
