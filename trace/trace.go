// Package trace implements the commit-trace sink (spec §1's "persistence
// of commit-trace log lines — a formatting sink"). Unlike unknown-value
// propagation or unrecognised encodings, an I/O failure here is not
// swallowed: WriteLine returns it to its caller. The core's run-family
// operations take a hook with no error result, so the error does not pass
// back through them; the CLI driver's hook aborts the run by exiting the
// process.
package trace

import (
	"fmt"
	"io"
)

// Sink receives one formatted line per WriteLine call; the CLI driver calls
// it once per simulated cycle.
type Sink interface {
	WriteLine(cycle uint64, pc, ir uint32, state string) error
}

// WriterSink is a Sink backed by any io.Writer (typically an *os.File).
type WriterSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a commit-trace sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) WriteLine(cycle uint64, pc, ir uint32, state string) error {
	_, err := fmt.Fprintf(s.w, "%08d pc=%08X ir=%08X state=%s\n", cycle, pc, ir, state)
	return err
}

// NopSink discards every line; the default when no -trace file is given.
type NopSink struct{}

func (NopSink) WriteLine(cycle uint64, pc, ir uint32, state string) error { return nil }
