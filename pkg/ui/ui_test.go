package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

func sampleRun() *inputvalidation.TestRun {
	started := time.Now().Add(-time.Second)
	run := &inputvalidation.TestRun{
		ID:          "run-1",
		URL:         "https://example.test/signup",
		StartedAt:   started,
		FinishedAt:  started.Add(time.Second),
		TotalFields: 2,
		TotalProbes: 8,
		Results: []inputvalidation.FieldResult{
			{
				FieldName: "comment",
				FieldType: "text",
				Vulnerabilities: []inputvalidation.Finding{{
					Type:        "XSS Vulnerability",
					Category:    inputvalidation.CategoryXSS,
					Description: "Basic XSS",
					Payload:     "<script>alert(1)</script>",
				}},
				Failures: []string{"Protocol XSS (xss): field detached"},
			},
			{FieldName: "email", FieldType: "email", IsSafe: true},
		},
	}
	run.Summarize()
	return run
}

func play(t *testing.T, lp *LiveProgress, run *inputvalidation.TestRun) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, lp.OnEvent(ctx, events.NewStart(run)))
	for i := 1; i <= run.TotalProbes; i++ {
		require.NoError(t, lp.OnEvent(ctx, events.NewProgress(run.ID, inputvalidation.NewProgress(i, run.TotalProbes, "comment"))))
	}
	require.NoError(t, lp.OnEvent(ctx, events.NewResults(run)))
}

func TestLiveProgressStreaming(t *testing.T) {
	var buf bytes.Buffer
	lp := NewLiveProgress(LiveProgressConfig{Mode: OutputModeStreaming, Writer: &buf, StreamStep: 25})
	play(t, lp, sampleRun())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "Testing 2 fields on")
	assert.Contains(t, lines[0], "(8 probes)")
	assert.Contains(t, lines[1], "1/8 (13%) comment")
	assert.Contains(t, lines[5], "8/8 (100%) comment")
	assert.NotContains(t, buf.String(), "\033[K")
}

func TestLiveProgressInteractive(t *testing.T) {
	var buf bytes.Buffer
	lp := NewLiveProgress(LiveProgressConfig{Mode: OutputModeInteractive, Writer: &buf, BarWidth: 10})
	play(t, lp, sampleRun())
	lp.Stop()

	out := buf.String()
	assert.Contains(t, out, "\r\033[K")
	assert.Contains(t, out, "100.0% 8/8")
	assert.True(t, strings.HasSuffix(out, "comment\n"))
}

func TestLiveProgressSilent(t *testing.T) {
	var buf bytes.Buffer
	lp := NewLiveProgress(LiveProgressConfig{Mode: OutputModeSilent, Writer: &buf})
	play(t, lp, sampleRun())
	assert.Empty(t, buf.String())
	assert.Len(t, lp.EventTypes(), 4)
}

func TestLiveProgressErrorStops(t *testing.T) {
	var buf bytes.Buffer
	lp := NewLiveProgress(LiveProgressConfig{Mode: OutputModeInteractive, Writer: &buf})
	run := sampleRun()
	ctx := context.Background()
	require.NoError(t, lp.OnEvent(ctx, events.NewStart(run)))
	require.NoError(t, lp.OnEvent(ctx, events.NewError(run.ID, inputvalidation.ErrCancelled)))
	assert.False(t, lp.running)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleRun())

	out := buf.String()
	assert.Contains(t, out, "Vulnerable fields")
	assert.Contains(t, out, "comment")
	assert.Contains(t, out, "Cross-Site Scripting (XSS)")
	assert.Contains(t, out, `"<script>alert(1)</script>"`)
	assert.Contains(t, out, "email")
	assert.Contains(t, out, "comment: Protocol XSS (xss): field detached")
}

func TestPrintPayloads(t *testing.T) {
	var buf bytes.Buffer
	PrintPayloads(&buf, inputvalidation.Catalog())

	out := buf.String()
	assert.Contains(t, out, "SQL Injection")
	assert.Contains(t, out, "Basic XSS")
	assert.Contains(t, out, "8 payloads, catalog "+inputvalidation.CatalogVersion)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), defaults.Version)

	SetSilent(true)
	defer SetSilent(false)
	buf.Reset()
	PrintBanner(&buf)
	PrintConfig(&buf, []ConfigLine{{"Target", "x"}})
	assert.Empty(t, buf.String())
}

func TestPrintConfig(t *testing.T) {
	var buf bytes.Buffer
	PrintConfig(&buf, []ConfigLine{{"Target", "https://example.test"}, {"Proxy", ""}})
	assert.Contains(t, buf.String(), "https://example.test")
	assert.NotContains(t, buf.String(), "Proxy")
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "ok  é", asciiSafe("ok ✔ é"))
	assert.Equal(t, "1m15s", formatElapsed(75*time.Second))
	assert.Equal(t, "9s", formatElapsed(9*time.Second))

	s := Spinner{Frames: []string{"a", "b"}}
	assert.Equal(t, "a", s.Frame(2))

	bar := buildBar(50, 10)
	assert.Equal(t, 5, strings.Count(bar, Icon("█", "#")))
	assert.Equal(t, 5, strings.Count(bar, Icon("░", "-")))
	assert.Equal(t, 10, strings.Count(buildBar(150, 10), Icon("█", "#")))
}
