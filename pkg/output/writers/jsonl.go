// Package writers provides output writers for a test run: JSONL event
// streams, text reports rendered from templates, PDF, HTML and a terminal
// table.
package writers

import (
	"io"
	"sync"

	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter writes events as newline-delimited JSON (JSONL).
// Each event is a complete JSON object on a single line, which is also the
// wire format of the message host.
type JSONLWriter struct {
	w       io.Writer
	mu      sync.Mutex
	opts    JSONLOptions
	encoder *jsonutil.Encoder
}

// JSONLOptions configures the JSONL writer behavior.
type JSONLOptions struct {
	// OmitProbes strips per-probe traces from results events.
	OmitProbes bool

	// OmitProgress drops progress events.
	OmitProgress bool

	// Pretty enables indented JSON output.
	// Note: This is not JSONL compliant but useful for debugging.
	Pretty bool

	// KeepOpen leaves the underlying writer open on Close. Set it for
	// stdout.
	KeepOpen bool
}

// NewJSONLWriter creates a new JSONL writer that writes to w.
// The writer is safe for concurrent use.
func NewJSONLWriter(w io.Writer, opts JSONLOptions) *JSONLWriter {
	encoder := jsonutil.NewStreamEncoder(w)
	if opts.Pretty {
		encoder.SetIndent("", "  ")
	}
	return &JSONLWriter{w: w, opts: opts, encoder: encoder}
}

// Write writes an event as a single JSON line.
func (jw *JSONLWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.opts.OmitProgress && event.EventType() == events.EventTypeProgress {
		return nil
	}
	if jw.opts.OmitProbes {
		if re, ok := event.(*events.ResultsEvent); ok {
			filtered := *re
			filtered.Results = withoutProbes(re.Results)
			return jw.encoder.Encode(&filtered)
		}
	}
	return jw.encoder.Encode(event)
}

// Flush is a no-op: every event is written immediately.
func (jw *JSONLWriter) Flush() error {
	return nil
}

// Close closes the underlying writer if it implements io.Closer.
func (jw *JSONLWriter) Close() error {
	if jw.opts.KeepOpen {
		return nil
	}
	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for all event types.
func (jw *JSONLWriter) SupportsEvent(_ events.EventType) bool {
	return true
}
