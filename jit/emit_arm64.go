//go:build arm64

package jit

import "errors"

// arm64 code generation is not implemented. The teacher's own
// `scm/jit_arm64.go` carries the same honest gap — its jitReturnLiteral/
// jitNthArgument/jitStackFrame all return empty `[]byte{ // TODO }` bodies
// rather than fabricated encodings. This file follows that precedent:
// compiling on arm64 fails cleanly through BackendError instead of
// emitting bytes nobody has verified.

var errArm64Unsupported = errors.New("jit: arm64 backend not implemented")

func (w *Writer) EmitMovRegReg(dst, src int)         { panic(errArm64Unsupported) }
func (w *Writer) EmitMovRegImm64(dst int, imm uint64) { panic(errArm64Unsupported) }
func (w *Writer) EmitRet()                            { panic(errArm64Unsupported) }
