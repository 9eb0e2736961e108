package jit

import (
	"fmt"
	"strings"
)

// Disassemble renders code as a hex dump: 16 bytes per line, offset prefix,
// ASCII-safe hex pairs. This is deliberately not a full x86 disassembler —
// SPEC_FULL.md's Supplemented Feature #3 promotes the original's test-only
// hexdump helper into a first-class `lumenjit disasm` command, not a new
// instruction decoder the retrieval pack has no grounding for.
func Disassemble(name string, code []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; %s (%d bytes)\n", name, len(code))
	for off := 0; off < len(code); off += 16 {
		end := off + 16
		if end > len(code) {
			end = len(code)
		}
		fmt.Fprintf(&b, "%08x  ", off)
		for i := off; i < off+16; i++ {
			if i < end {
				fmt.Fprintf(&b, "%02x ", code[i])
			} else {
				b.WriteString("   ")
			}
			if i-off == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// DisassembleEntry is the CompiledEntry-aware convenience wrapper
// `cmd/lumenjit disasm` calls: it reads the entry's generated code straight
// out of its (already RX, not writable) CodeBuf mapping.
func (e *Engine) DisassembleEntry(name string) (string, error) {
	e.mu.Lock()
	entry, ok := e.cache.Get(name)
	e.mu.Unlock()
	if !ok || entry.buf == nil {
		return "", &CellNotFound{Cell: name}
	}
	return Disassemble(name, entry.buf.Bytes()), nil
}
