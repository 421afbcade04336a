// Package ppaylog provides the shared logging backend for every subsystem
// of the router. Each package that wants to log obtains its own
// btclog.Logger from a single shared backend via UseLogger, following the
// same convention as lnd's per-subsystem sublogger wiring: a disabled
// no-op logger is installed by default so importers never see output
// until the host application calls InitBackend.
package ppaylog

import (
	"io"

	"github.com/btcsuite/btclog"
)

// switchWriter forwards writes to a replaceable io.Writer.
type switchWriter struct {
	w io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// output is what the shared backend writes through. It starts out as
// io.Discard so test binaries that never call InitBackend stay silent.
var output = &switchWriter{w: io.Discard}

// backend is the single shared logging backend all subsystem loggers are
// created from.
var backend = btclog.NewBackend(output)

// disabled is the no-op logger returned by Disabled.
var disabled = btclog.Disabled

// InitBackend redirects the shared backend to w, including every
// sub-logger already created from it, and must be called once,
// early, by the host application (a CLI driver, a benchmark harness) before
// any subsystem does meaningful work. It is not required for correctness:
// the core never logs anything it depends on for control flow.
func InitBackend(w io.Writer) {
	output.w = w
}

// NewSubLogger creates a named subsystem logger, tagged the way lnd tags
// its CRTR/HSWC/... subsystems, defaulting to info level.
func NewSubLogger(subsystem string) btclog.Logger {
	logger := backend.Logger(subsystem)
	logger.SetLevel(btclog.LevelInfo)

	return logger
}

// Disabled returns the package-level no-op logger, used as the zero value
// for package-level logger variables before UseLogger is called.
func Disabled() btclog.Logger {
	return disabled
}
