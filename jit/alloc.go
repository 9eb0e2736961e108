package jit

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Arena is the off-heap, manually managed allocator that backs every heap
// string header and data buffer (spec.md §4.2 malloc/alloc_bytes). Memory
// comes from anonymous mmap pages rather than the Go heap: generated code
// stores these pointers as plain 64-bit integers in NaN-boxed registers,
// and the Go garbage collector must never decide to move or scan them.
// There is no library in the retrieval pack for an off-heap slab
// allocator — see DESIGN.md's standard-library justification for this
// file; it is built directly on golang.org/x/sys/unix, the same mmap/
// mprotect surface the teacher's own jit.go uses for executable pages.
type Arena struct {
	mu      sync.Mutex
	classes [numClasses]freeList
}

type freeList struct {
	head uintptr // address of first free block, 0 if empty
}

const (
	pageSize  = 1 << 16 // 64 KiB growth chunks
	minClass  = 5       // 2^5 = 32 bytes, the smallest class; the 40-byte header rounds up to the 64-byte class
	numClasses = 17      // up to 2^21 = 2 MiB per allocation
)

func classFor(size int) int {
	c := minClass
	n := 1 << minClass
	for n < size && c < minClass+numClasses-1 {
		n <<= 1
		c++
	}
	return c - minClass
}

var defaultArena = NewArena()

// NewArena constructs an empty allocator.
func NewArena() *Arena { return &Arena{} }

// Alloc returns a zeroed block of at least size bytes, as a raw address
// suitable for storing directly in a NaN-boxed register.
func (a *Arena) Alloc(size int) uintptr {
	if size <= 0 || size > 1<<(minClass+numClasses-1) {
		return 0
	}
	cls := classFor(size)
	blockSize := 1 << (minClass + cls)
	chunk := pageSize
	if blockSize > chunk {
		chunk = blockSize
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fl := &a.classes[cls]
	if fl.head != 0 {
		addr := fl.head
		fl.head = *(*uintptr)(unsafe.Pointer(addr))
		clearBlock(addr, blockSize)
		return addr
	}

	addr, err := unix.Mmap(-1, 0, chunk, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0
	}
	base := uintptr(unsafe.Pointer(&addr[0]))
	// Carve the page into blockSize chunks, keep the first, free the rest.
	for off := blockSize; off+blockSize <= chunk; off += blockSize {
		a.freeLocked(base+uintptr(off), cls)
	}
	return base
}

func (a *Arena) freeLocked(addr uintptr, cls int) {
	fl := &a.classes[cls]
	*(*uintptr)(unsafe.Pointer(addr)) = fl.head
	fl.head = addr
}

// Free returns a block previously obtained from Alloc(size) back to its
// size class's free list.
func (a *Arena) Free(addr uintptr, size int) {
	if addr == 0 || size <= 0 {
		return
	}
	cls := classFor(size)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeLocked(addr, cls)
}

func clearBlock(addr uintptr, size int) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for i := range b {
		b[i] = 0
	}
}
