package jsonutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	type msg struct {
		Type     string  `json:"type"`
		Progress float64 `json:"progress"`
		Field    string  `json:"currentField"`
	}

	data, err := Marshal(msg{Type: "progress", Progress: 12.5, Field: "email"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"progress","progress":12.5,"currentField":"email"}`, string(data))

	var back msg
	require.NoError(t, Unmarshal(data, &back))
	assert.Equal(t, "email", back.Field)
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(map[string]int{"a": 1}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"a\": 1")
}

func TestQuote(t *testing.T) {
	tests := []string{
		`<script>alert(1)</script>`,
		`"><script>alert(1)</script>`,
		`' OR '1'='1`,
		"line\nbreak",
		`back\slash`,
		`§±!@£$%^&*()`,
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			lit := Quote(s)
			assert.True(t, strings.HasPrefix(lit, `"`))
			assert.True(t, Valid([]byte(lit)))

			var back string
			require.NoError(t, Unmarshal([]byte(lit), &back))
			assert.Equal(t, s, back)
		})
	}
}

func TestEncoder_OneValuePerLine(t *testing.T) {
	var buf bytes.Buffer
	enc := NewStreamEncoder(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = enc.Encode(map[string]int{"n": i})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		assert.True(t, Valid([]byte(line)), line)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"action":"startTesting"}`)))
	assert.False(t, Valid([]byte(`{"action":`)))
}
