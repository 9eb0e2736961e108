package jit

import "sync/atomic"

// Lists, maps, records and unions are opaque heap objects at the JIT
// boundary: spec.md §3.4 says the JIT treats their pointers as Ints and
// never inspects their interiors, and that their memory management is the
// surrounding runtime's problem, not the JIT's. This file is that minimal
// surrounding runtime: a handle table keyed by a monotonically increasing
// id, so NewList/GetIndex/SetIndex/GetField/SetField/NewUnion/IsVariant/
// Unbox have somewhere real to land. It deliberately does not reclaim
// handles — the JIT "does not issue drop calls for them" per spec, and a
// full collection-owning GC is explicitly out of scope (spec.md Non-goals).

type listObj struct{ items []uint64 }
type mapObj struct{ entries map[uint64]uint64 }
type recordObj struct{ fields map[string]uint64 }
type unionObj struct{ variant string; payload uint64 }

var (
	nextHandle uint64
	listTable   = map[uint64]*listObj{}
	mapTable    = map[uint64]*mapObj{}
	recordTable = map[uint64]*recordObj{}
	unionTable  = map[uint64]*unionObj{}
)

func allocHandle() uint64 {
	// Handles have bit 62 set, which puts them above every user-space mmap'd
	// Arena pointer and below the NaN-box sentinels, so they never collide.
	return (1 << 62) | atomic.AddUint64(&nextHandle, 1)
}

// NewList backs the NewList opcode.
func NewList(items []uint64) uint64 {
	h := allocHandle()
	listTable[h] = &listObj{items: append([]uint64(nil), items...)}
	return h
}

// NewMap backs the NewMap opcode.
func NewMap() uint64 {
	h := allocHandle()
	mapTable[h] = &mapObj{entries: map[uint64]uint64{}}
	return h
}

// NewRecord backs record construction feeding GetField/SetField.
func NewRecord() uint64 {
	h := allocHandle()
	recordTable[h] = &recordObj{fields: map[string]uint64{}}
	return h
}

// NewUnion backs the NewUnion opcode.
func NewUnion(variant string, payload uint64) uint64 {
	h := allocHandle()
	unionTable[h] = &unionObj{variant: variant, payload: payload}
	return h
}

// GetIndex backs GetIndex on a list handle.
func GetIndex(handle uint64, idx int64) uint64 {
	l, ok := listTable[handle]
	if !ok || idx < 0 || idx >= int64(len(l.items)) {
		return NaNBoxNull
	}
	return l.items[idx]
}

// SetIndex backs SetIndex on a list handle.
func SetIndex(handle uint64, idx int64, v uint64) {
	l, ok := listTable[handle]
	if !ok {
		return
	}
	for int64(len(l.items)) <= idx {
		l.items = append(l.items, NaNBoxNull)
	}
	l.items[idx] = v
}

// GetField backs GetField on a record handle.
func GetField(handle uint64, name string) uint64 {
	r, ok := recordTable[handle]
	if !ok {
		return NaNBoxNull
	}
	v, ok := r.fields[name]
	if !ok {
		return NaNBoxNull
	}
	return v
}

// SetField backs SetField on a record handle.
func SetField(handle uint64, name string, v uint64) {
	r, ok := recordTable[handle]
	if !ok {
		return
	}
	r.fields[name] = v
}

// IsVariant reports whether handle is a union tagged as variant. The
// lowerer (jit/lower_intrinsic.go's OpIsVariant case) always calls this and
// reboxes its real result into the destination register; spec.md §9's open
// question (see DESIGN.md) is resolved in favor of computing the actual
// membership test rather than stubbing it out.
func IsVariant(handle uint64, variant string) bool {
	u, ok := unionTable[handle]
	return ok && u.variant == variant
}

// UnionUnbox returns a union's payload.
func UnionUnbox(handle uint64) uint64 {
	u, ok := unionTable[handle]
	if !ok {
		return NaNBoxNull
	}
	return u.payload
}
