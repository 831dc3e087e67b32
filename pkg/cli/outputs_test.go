package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldprobe/fieldprobe/pkg/config"
	"github.com/fieldprobe/fieldprobe/pkg/fakedom"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
)

const formPage = `<html><head><title>Sign up</title></head><body><form>
<input name="nickname">
<input type="email" name="contact">
</form></body></html>`

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func probeInto(t *testing.T, o *Outputs, page inputvalidation.Page) *inputvalidation.TestRun {
	t.Helper()
	opts := inputvalidation.DefaultOptions()
	opts.SettleDelay = time.Millisecond
	opts.ProbeInterval = 0
	opts.RunID = "run-1"
	run, err := inputvalidation.NewRunner(page, opts, dispatcher.NewReporter(o.Dispatcher, "run-1")).Run(context.Background())
	require.NoError(t, err)
	return run
}

func TestBuildOutputsWritesReports(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.JSONL = filepath.Join(dir, "events.jsonl")
	cfg.Output.Report = filepath.Join(dir, "report.txt")
	cfg.Output.PDF = filepath.Join(dir, "nested", "report.pdf")
	cfg.Output.HTML = filepath.Join(dir, "report.html")
	cfg.Output.Template = "summary"
	cfg.Output.TemplateOut = filepath.Join(dir, "summary.txt")

	var stream bytes.Buffer
	o, err := BuildOutputs(cfg, OutputOptions{Stream: &stream, Logger: quietLogger(), Now: fixedNow})
	require.NoError(t, err)

	doc, err := fakedom.ParseString(formPage, "https://example.com/signup")
	require.NoError(t, err)
	run := probeInto(t, o, doc)
	require.NoError(t, o.Close())

	assert.Equal(t, []string{
		cfg.Output.JSONL,
		cfg.Output.Report,
		cfg.Output.TemplateOut,
		cfg.Output.PDF,
		cfg.Output.HTML,
	}, o.Written())

	report, err := os.ReadFile(cfg.Output.Report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "SECURITY TEST REPORT\n"))
	assert.Contains(t, string(report), "URL Tested: https://example.com/signup")

	summary, err := os.ReadFile(cfg.Output.TemplateOut)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "https://example.com/signup: 2 fields")

	pdf, err := os.ReadFile(cfg.Output.PDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	events, err := os.ReadFile(cfg.Output.JSONL)
	require.NoError(t, err)
	assert.NotContains(t, string(events), `"type":"progress"`)
	assert.Contains(t, string(events), `"type":"results"`)

	assert.Contains(t, stream.String(), `"type":"progress"`)
	assert.Equal(t, 2, run.Summary.TotalFields)
}

func TestBuildOutputsAutoReportName(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg := config.Default()
	cfg.Output.Report = ReportAuto
	o, err := BuildOutputs(cfg, OutputOptions{Logger: quietLogger(), Now: fixedNow})
	require.NoError(t, err)

	doc, err := fakedom.ParseString(formPage, "https://example.com/signup")
	require.NoError(t, err)
	probeInto(t, o, doc)
	require.NoError(t, o.Close())

	require.Len(t, o.Written(), 1)
	assert.Equal(t, "security-test-report-2024-05-01T12-30-00-000Z.txt", o.Written()[0])
	_, err = os.Stat(filepath.Join(dir, o.Written()[0]))
	assert.NoError(t, err)
}

func TestBuildOutputsFailedRunLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.Report = filepath.Join(dir, "report.txt")
	cfg.Output.PDF = filepath.Join(dir, "report.pdf")

	o, err := BuildOutputs(cfg, OutputOptions{Logger: quietLogger(), Now: fixedNow})
	require.NoError(t, err)

	doc, err := fakedom.ParseString(`<p>no fields here</p>`, "https://example.com/")
	require.NoError(t, err)
	_, err = inputvalidation.NewRunner(doc, inputvalidation.DefaultOptions(), dispatcher.NewReporter(o.Dispatcher, "run-2")).Run(context.Background())
	require.ErrorIs(t, err, inputvalidation.ErrNoFields)
	require.NoError(t, o.Close())

	assert.Empty(t, o.Written())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildOutputsTemplateToStderr(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Template = "csv"

	var stderr bytes.Buffer
	o, err := BuildOutputs(cfg, OutputOptions{Stderr: &stderr, Logger: quietLogger(), Now: fixedNow})
	require.NoError(t, err)

	doc, err := fakedom.ParseString(formPage, "https://example.com/signup")
	require.NoError(t, err)
	probeInto(t, o, doc)
	require.NoError(t, o.Close())

	assert.True(t, strings.HasPrefix(stderr.String(), "field,type,category,description,payload"))
	assert.Empty(t, o.Written())
}

func TestBuildOutputsErrors(t *testing.T) {
	t.Run("unknown template", func(t *testing.T) {
		cfg := config.Default()
		cfg.Output.Template = "nope"
		_, err := BuildOutputs(cfg, OutputOptions{Logger: quietLogger()})
		assert.Error(t, err)
	})
	t.Run("missing template file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Output.TemplatePath = filepath.Join(t.TempDir(), "missing.tmpl")
		_, err := BuildOutputs(cfg, OutputOptions{Logger: quietLogger()})
		assert.Error(t, err)
	})
}

func TestLazyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b.txt")
	f := &lazyFile{path: path}
	assert.False(t, f.opened())
	require.NoError(t, f.Close())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	g := &lazyFile{path: path}
	_, err = g.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	_, err = g.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
