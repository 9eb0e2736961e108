//go:build unix

package jit

import (
	"syscall"
	"unsafe"
)

// CodeBuf is a page of RWX-toggle-able memory that holds freshly emitted
// machine code until it is finalized. Ported from the teacher's
// `scm/jit.go` execBuf/allocExec/makeRX pair: allocate RW, write bytes,
// then mprotect to RX before any call into it (W^X discipline).
type CodeBuf struct {
	mem []byte
}

// AllocCodeBuf mmaps size bytes (rounded up by the kernel to a page)
// read-write, anonymous and private.
func AllocCodeBuf(size int) (*CodeBuf, error) {
	mem, err := syscall.Mmap(-1, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &CodeBuf{mem: mem}, nil
}

// Bytes returns the underlying writable buffer.
func (c *CodeBuf) Bytes() []byte { return c.mem }

// MakeExecutable mprotects the buffer to read+execute, sealing it against
// further writes. Must be called after every Writer fixup has been
// resolved (spec.md's generated code is never self-modifying).
func (c *CodeBuf) MakeExecutable() error {
	return syscall.Mprotect(c.mem, syscall.PROT_READ|syscall.PROT_EXEC)
}

// FuncPointer returns the address of the buffer's first byte, the entry
// point the Engine's compiled-function cache records.
func (c *CodeBuf) FuncPointer() uintptr {
	if len(c.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&c.mem[0]))
}

// Free releases the underlying mapping (used by Engine.Invalidate).
func (c *CodeBuf) Free() error {
	return syscall.Munmap(c.mem)
}
