package jit

import "unsafe"

// Writer is a forward-reference-capable machine code byte stream, ported
// from the teacher's `scm/jit_writer.go` JITWriter. Basic blocks are
// addressed by label: DefineLabel reserves a slot, MarkLabel binds it to
// the writer's current position, and AddFixup records a patch site to
// resolve once every label is bound (ResolveFixups).
type Writer struct {
	buf    []byte
	labels []int32 // -1 until MarkLabel'd; index is the label id
	fixups []fixup
}

type fixupKind uint8

const (
	fixupRel32 fixupKind = iota // 4-byte PC-relative displacement
	fixupAbs64                  // 8-byte absolute address
)

type fixup struct {
	siteOffset int // offset of the field to patch
	label      int
	kind       fixupKind
	instrEnd   int // offset of the byte immediately after the relative field
}

// NewWriter allocates a Writer over a pre-sized buffer (the caller owns the
// executable-memory lifecycle via codebuf_unix.go).
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Bytes returns the bytes emitted so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the current write position.
func (w *Writer) Len() int { return len(w.buf) }

// DefineLabel reserves a new, as-yet-unbound label id.
func (w *Writer) DefineLabel() int {
	w.labels = append(w.labels, -1)
	return len(w.labels) - 1
}

// MarkLabel binds label to the writer's current position.
func (w *Writer) MarkLabel(label int) {
	w.labels[label] = int32(len(w.buf))
}

// EmitByte appends one byte.
func (w *Writer) EmitByte(b byte) { w.buf = append(w.buf, b) }

// EmitBytes appends a byte slice.
func (w *Writer) EmitBytes(bs ...byte) { w.buf = append(w.buf, bs...) }

// EmitU32 appends a little-endian uint32.
func (w *Writer) EmitU32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// EmitU64 appends a little-endian uint64.
func (w *Writer) EmitU64(v uint64) {
	for i := 0; i < 8; i++ {
		w.buf = append(w.buf, byte(v>>(8*i)))
	}
}

// EmitRel32Fixup appends a placeholder 4-byte displacement and records a
// fixup that resolves it to label's address once bound, relative to the
// end of this 4-byte field (matching x86's RIP-relative / near-jump
// encoding, where the displacement is relative to the next instruction).
func (w *Writer) EmitRel32Fixup(label int) {
	site := len(w.buf)
	w.EmitU32(0)
	w.fixups = append(w.fixups, fixup{siteOffset: site, label: label, kind: fixupRel32, instrEnd: len(w.buf)})
}

// EmitAbs64Fixup appends a placeholder 8-byte absolute address fixup.
func (w *Writer) EmitAbs64Fixup(label int) {
	site := len(w.buf)
	w.EmitU64(0)
	w.fixups = append(w.fixups, fixup{siteOffset: site, label: label, kind: fixupAbs64})
}

// ResolveFixups patches every recorded fixup now that all labels have been
// MarkLabel'd. base is the address the buffer will finally execute at
// (after it has been copied/mmap'd into its RX page) — absolute fixups need
// it; relative ones do not.
func (w *Writer) ResolveFixups(base uintptr) {
	for _, f := range w.fixups {
		target := w.labels[f.label]
		switch f.kind {
		case fixupRel32:
			disp := target - int32(f.instrEnd)
			*(*int32)(unsafe.Pointer(&w.buf[f.siteOffset])) = disp
		case fixupAbs64:
			addr := uint64(base) + uint64(target)
			*(*uint64)(unsafe.Pointer(&w.buf[f.siteOffset])) = addr
		}
	}
}
