package jit

import (
	"log"
	"os"
)

// Logger is the minimal diagnostic sink every other component accepts.
// Neither the teacher nor any other repo in the retrieval pack pulls in a
// structured-logging library (no zap/zerolog/logrus hit anywhere in
// `_examples/`) — the teacher's own diagnostics are `fmt.Println`/
// `fmt.Printf` (`scm/jit.go` RunJitTest, `storage/dashboard.go`). This
// follows suit with a tiny interface around the standard library's
// `log.Logger` instead of introducing a dependency the corpus never
// reaches for. See DESIGN.md.
type Logger interface {
	Printf(format string, args ...any)
}

// DefaultLogger returns a Logger writing to stderr with a "jit: " prefix.
func DefaultLogger() Logger {
	return log.New(os.Stderr, "jit: ", log.LstdFlags)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// NopLogger discards everything, for embedders that don't want stderr
// noise.
func NopLogger() Logger { return nopLogger{} }
