package writers

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewHTMLWriter(&buf, HTMLConfig{Now: func() time.Time { return time.Date(2024, 5, 1, 12, 31, 0, 0, time.UTC) }})
	require.NoError(t, w.Write(resultsEvent(sampleRun())))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Contains(t, out, "<title>Security Test Report</title>")
	assert.Contains(t, out, `datetime="2024-05-01T12:31:00Z"`)
	assert.Contains(t, out, `id="field-abc123"`)
	assert.Contains(t, out, `id="field-def456"`)
	assert.Contains(t, out, "1 vulnerabilities: Cross-Site Scripting (XSS)")
	assert.Contains(t, out, `class="cat-xss"`)
	assert.Contains(t, out, "Probe Failures")

	// payloads must never be live markup
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, out, "<script>alert(1)</script>")
}

func TestHTMLWriter_SafeOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewHTMLWriter(&buf, HTMLConfig{Title: "Checkout"})
	require.NoError(t, w.Write(resultsEvent(safeRun())))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Contains(t, out, "<h1>Checkout</h1>")
	assert.Contains(t, out, "No vulnerable fields found.")
	assert.NotContains(t, out, "Probe Failures")
}
