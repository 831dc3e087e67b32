// Package jsonutil wraps github.com/go-json-experiment/json behind the small
// API the rest of the module needs: messages to and from the host, the JSON
// bridge to in-page scripts, and JSONL output.
//
// Usage:
//
//	data, err := jsonutil.Marshal(msg)
//	err := jsonutil.Unmarshal(line, &cmd)
//	lit := jsonutil.Quote(value) // safe JavaScript string literal
package jsonutil

import (
	"io"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the indented JSON encoding of v.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndentPrefix(prefix), jsontext.WithIndent(indent))
}

// Quote returns s as a JSON string literal. JSON strings are valid
// JavaScript string literals, which is how values are passed into
// in-page scripts without hand-escaping.
func Quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Only invalid UTF-8 can fail; replace it the way browsers do.
		b, _ = json.Marshal(s, jsontext.AllowInvalidUTF8(true))
	}
	return string(b)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// Encoder writes one JSON value per line. It is safe for concurrent use,
// so progress messages from a run and command acknowledgments never interleave.
type Encoder struct {
	mu     sync.Mutex
	w      io.Writer
	indent string
}

// NewStreamEncoder creates an encoder that writes to w.
func NewStreamEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the JSON encoding of v to the stream, followed by a newline.
func (e *Encoder) Encode(v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.indent != "" {
		err = json.MarshalWrite(e.w, v, jsontext.WithIndent(e.indent))
	} else {
		err = json.MarshalWrite(e.w, v)
	}
	if err != nil {
		return err
	}
	_, err = e.w.Write([]byte{'\n'})
	return err
}

// SetIndent instructs the encoder to format each subsequent encoded value
// with the given indentation.
func (e *Encoder) SetIndent(prefix, indent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indent = indent
}
