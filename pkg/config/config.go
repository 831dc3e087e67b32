// Package config loads fieldprobe's YAML configuration. Command-line flags
// are applied on top of the loaded values by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/headless"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// Config is the complete configuration.
type Config struct {
	Probe     ProbeConfig     `yaml:"probe"`
	Browser   headless.Config `yaml:"browser"`
	Output    OutputConfig    `yaml:"output"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// ProbeConfig tunes the test run.
type ProbeConfig struct {
	// SettleDelay is the wait after synthetic events. Shorter delays miss
	// slow asynchronous validation.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// InterProbeDelay is the pause between two probes.
	InterProbeDelay time.Duration `yaml:"inter_probe_delay"`

	// MaxRate caps probes per second. Zero disables the cap.
	MaxRate float64 `yaml:"max_rate"`

	// SimulateSubmit fires an intercepted submit on the field's form.
	SimulateSubmit bool `yaml:"simulate_submit"`

	// Categories restricts the payload categories. Empty means all.
	Categories []string `yaml:"categories,omitempty"`

	// KeepProbes adds per-probe traces to the results.
	KeepProbes bool `yaml:"keep_probes"`
}

// OutputConfig selects the report files written after a run. Empty paths
// disable the corresponding output.
type OutputConfig struct {
	JSONL        string        `yaml:"jsonl"`
	Report       string        `yaml:"report"` // "auto" names the file after the export time
	PDF          string        `yaml:"pdf"`
	HTML         string        `yaml:"html"`
	Template     string        `yaml:"template"`      // built-in template name
	TemplatePath string        `yaml:"template_path"` // custom template file
	TemplateOut  string        `yaml:"template_out"`
	Webhook      WebhookConfig `yaml:"webhook"`
}

// WebhookConfig posts results to an HTTP endpoint.
type WebhookConfig struct {
	URL          string            `yaml:"url"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	OnlyFindings bool              `yaml:"only_findings"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	// MetricsPort serves Prometheus metrics. Zero disables them.
	MetricsPort  int    `yaml:"metrics_port"`
	MetricsPath  string `yaml:"metrics_path"`
	OTelEndpoint string `yaml:"otel_endpoint"`
	OTelInsecure bool   `yaml:"otel_insecure"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Probe: ProbeConfig{
			SettleDelay:     duration.ProbeSettle,
			InterProbeDelay: duration.ProbeInterval,
			SimulateSubmit:  true,
		},
		Browser: headless.DefaultConfig(),
		Telemetry: TelemetryConfig{
			MetricsPath: defaults.MetricsPath,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var problems, missing []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Probe.SettleDelay <= 0 || c.Probe.SettleDelay > duration.ProbeSettleMax {
		add("probe.settle_delay must be in (0, %s], got %s", duration.ProbeSettleMax, c.Probe.SettleDelay)
	}
	if c.Probe.InterProbeDelay < 0 {
		add("probe.inter_probe_delay must not be negative")
	}
	if c.Probe.MaxRate < 0 {
		add("probe.max_rate must not be negative")
	}
	if _, err := c.CategoryList(); err != nil {
		add("probe.categories: %v", err)
	}
	if c.Browser.PageTimeout <= 0 {
		add("browser.page_timeout must be positive")
	}
	if c.Telemetry.MetricsPort < 0 || c.Telemetry.MetricsPort > 65535 {
		add("telemetry.metrics_port must be in [0, 65535], got %d", c.Telemetry.MetricsPort)
	}
	if c.Telemetry.MetricsPort > 0 && !strings.HasPrefix(c.Telemetry.MetricsPath, "/") {
		add("telemetry.metrics_path must start with /")
	}
	if u := c.Output.Webhook.URL; u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			add("output.webhook.url must be an http(s) URL, got %q", u)
		}
	}
	if c.Output.TemplateOut != "" && c.Output.Template == "" && c.Output.TemplatePath == "" {
		missing = append(missing, "output.template or output.template_path (for output.template_out)")
	}
	if len(c.Output.Webhook.Headers) > 0 && c.Output.Webhook.URL == "" {
		missing = append(missing, "output.webhook.url (for output.webhook.headers)")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		add("log.format must be text or json, got %q", c.Log.Format)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, "; "))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CategoryList parses Probe.Categories.
func (c *Config) CategoryList() ([]inputvalidation.Category, error) {
	return inputvalidation.ParseCategories(strings.Join(c.Probe.Categories, ","))
}

// RunOptions converts the probe section into runner options.
func (c *Config) RunOptions(logger *slog.Logger) (inputvalidation.Options, error) {
	cats, err := c.CategoryList()
	if err != nil {
		return inputvalidation.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return inputvalidation.Options{
		Categories:    cats,
		SettleDelay:   c.Probe.SettleDelay,
		ProbeInterval: c.Probe.InterProbeDelay,
		MaxRate:       c.Probe.MaxRate,
		Submit:        c.Probe.SimulateSubmit,
		KeepProbes:    c.Probe.KeepProbes,
		Logger:        logger,
	}, nil
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

// NewLogger builds the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
