package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, duration.ProbeSettle, cfg.Probe.SettleDelay)
	assert.Equal(t, duration.ProbeInterval, cfg.Probe.InterProbeDelay)
	assert.True(t, cfg.Probe.SimulateSubmit)
	assert.True(t, cfg.Browser.NoSandbox)
	assert.Equal(t, duration.BrowserPage, cfg.Browser.PageTimeout)
	assert.Zero(t, cfg.Telemetry.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
probe:
  settle_delay: 750ms
  inter_probe_delay: 0s
  max_rate: 5
  simulate_submit: false
  categories: [xss, "SQL Injection"]
browser:
  chrome_path: /opt/chrome
  page_timeout: 45s
  extra_args: ["--lang=en"]
output:
  report: auto
  pdf: out/report.pdf
  webhook:
    url: https://hooks.example.test/fieldprobe
    headers:
      Authorization: Bearer x
telemetry:
  metrics_port: 9464
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Probe.SettleDelay)
	assert.Zero(t, cfg.Probe.InterProbeDelay)
	assert.False(t, cfg.Probe.SimulateSubmit)
	assert.Equal(t, "/opt/chrome", cfg.Browser.ChromePath)
	assert.Equal(t, 45*time.Second, cfg.Browser.PageTimeout)
	assert.True(t, cfg.Browser.NoSandbox, "unset keys keep their defaults")
	assert.Equal(t, []string{"--lang=en"}, cfg.Browser.ExtraArgs)
	assert.Equal(t, "auto", cfg.Output.Report)
	assert.Equal(t, "Bearer x", cfg.Output.Webhook.Headers["Authorization"])
	assert.Equal(t, 9464, cfg.Telemetry.MetricsPort)
	assert.Equal(t, "/metrics", cfg.Telemetry.MetricsPath)

	cats, err := cfg.CategoryList()
	require.NoError(t, err)
	assert.Equal(t, []inputvalidation.Category{inputvalidation.CategoryXSS, inputvalidation.CategorySQLi}, cats)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown key", "probe:\n  settle: 1s\n", ErrInvalidConfig},
		{"bad yaml", "probe: [", ErrInvalidConfig},
		{"bad duration", "probe:\n  settle_delay: soon\n", ErrInvalidConfig},
		{"settle too long", "probe:\n  settle_delay: 1m\n", ErrInvalidConfig},
		{"zero settle", "probe:\n  settle_delay: 0s\n", ErrInvalidConfig},
		{"negative rate", "probe:\n  max_rate: -1\n", ErrInvalidConfig},
		{"bad category", "probe:\n  categories: [csrf]\n", ErrInvalidConfig},
		{"bad port", "telemetry:\n  metrics_port: 70000\n", ErrInvalidConfig},
		{"bad webhook", "output:\n  webhook:\n    url: ftp://x\n", ErrInvalidConfig},
		{"bad level", "log:\n  level: loud\n", ErrInvalidConfig},
		{"bad format", "log:\n  format: xml\n", ErrInvalidConfig},
		{"template out alone", "output:\n  template_out: r.csv\n", ErrMissingRequired},
		{"headers without url", "output:\n  webhook:\n    headers: {A: b}\n", ErrMissingRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), path)
}

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Probe.Categories = []string{"special"}
	cfg.Output.HTML = "report.html"

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "settle_delay: 300ms")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestRunOptions(t *testing.T) {
	cfg := Default()
	cfg.Probe.Categories = []string{"sqli"}
	cfg.Probe.MaxRate = 2

	opts, err := cfg.RunOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, []inputvalidation.Category{inputvalidation.CategorySQLi}, opts.Categories)
	assert.Equal(t, duration.ProbeSettle, opts.SettleDelay)
	assert.Equal(t, 2.0, opts.MaxRate)
	assert.True(t, opts.Submit)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
