// Package cli holds the glue shared by fieldprobe's commands: signal
// handling, the output stack described by the configuration, and the page
// source that turns a target into a probe-able page.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/config"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/hooks"
	"github.com/fieldprobe/fieldprobe/pkg/output/writers"
	"github.com/fieldprobe/fieldprobe/pkg/ui"
)

// ReportAuto names the text report after the export time.
const ReportAuto = "auto"

// OutputOptions adds the live outputs of a command to those named in the
// configuration.
type OutputOptions struct {
	// Stream receives every event as JSONL. Nil disables it.
	Stream io.Writer

	// Progress shows live progress on Stderr.
	Progress bool

	// Stderr defaults to os.Stderr.
	Stderr io.Writer

	Logger *slog.Logger

	// Now stamps report file names and contents. Defaults to time.Now.
	Now func() time.Time
}

// Outputs is the dispatcher of one command together with everything
// registered on it.
type Outputs struct {
	Dispatcher *dispatcher.Dispatcher
	Metrics    *hooks.PrometheusHook

	progress *ui.LiveProgress
	files    []*lazyFile
	closers  []io.Closer
}

// BuildOutputs registers writers for every output path in cfg, the
// telemetry hooks it enables and the live outputs in opts.
func BuildOutputs(cfg *config.Config, opts OutputOptions) (*Outputs, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	o := &Outputs{Dispatcher: dispatcher.New(dispatcher.Config{Logger: opts.Logger})}
	d := o.Dispatcher
	out := cfg.Output

	if opts.Stream != nil {
		d.RegisterWriter(writers.NewJSONLWriter(opts.Stream, writers.JSONLOptions{KeepOpen: true}))
	}
	if out.JSONL != "" {
		d.RegisterWriter(writers.NewJSONLWriter(o.file(out.JSONL), writers.JSONLOptions{OmitProgress: true}))
	}
	if out.Report != "" {
		path := out.Report
		if path == ReportAuto {
			path = writers.ReportFilename(opts.Now())
		}
		tw, err := writers.NewTemplateWriter(o.file(path), writers.TemplateConfig{BuiltIn: "report", Now: opts.Now})
		if err != nil {
			return nil, o.abort(err)
		}
		d.RegisterWriter(tw)
	}
	if out.Template != "" || out.TemplatePath != "" {
		// Hide Close so the template writer leaves stderr open.
		var w io.Writer = struct{ io.Writer }{opts.Stderr}
		if out.TemplateOut != "" {
			w = o.file(out.TemplateOut)
		}
		tw, err := writers.NewTemplateWriter(w, writers.TemplateConfig{
			BuiltIn:      out.Template,
			TemplatePath: out.TemplatePath,
			Now:          opts.Now,
		})
		if err != nil {
			return nil, o.abort(err)
		}
		d.RegisterWriter(tw)
	}
	if out.PDF != "" {
		d.RegisterWriter(writers.NewPDFWriter(o.file(out.PDF), writers.PDFConfig{Now: opts.Now}))
	}
	if out.HTML != "" {
		d.RegisterWriter(writers.NewHTMLWriter(o.file(out.HTML), writers.HTMLConfig{Now: opts.Now}))
	}

	d.RegisterHook(hooks.NewLoggerHook(opts.Logger))

	if cfg.Telemetry.MetricsPort > 0 {
		h, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{
			Port:   cfg.Telemetry.MetricsPort,
			Path:   cfg.Telemetry.MetricsPath,
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, o.abort(err)
		}
		o.Metrics = h
		o.closers = append(o.closers, h)
		d.RegisterHook(h)
	}
	if cfg.Telemetry.OTelEndpoint != "" {
		h, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint: cfg.Telemetry.OTelEndpoint,
			Insecure: cfg.Telemetry.OTelInsecure,
		})
		if err != nil {
			return nil, o.abort(err)
		}
		o.closers = append(o.closers, h)
		d.RegisterHook(h)
	}
	if wh := out.Webhook; wh.URL != "" {
		h, err := hooks.NewWebhookHook(wh.URL, hooks.WebhookOptions{
			Headers:      wh.Headers,
			OnlyFindings: wh.OnlyFindings,
			Logger:       opts.Logger,
		})
		if err != nil {
			return nil, o.abort(err)
		}
		d.RegisterHook(h)
	}
	if opts.Progress {
		o.progress = ui.NewLiveProgress(ui.LiveProgressConfig{
			Mode:   ui.DefaultOutputMode(),
			Writer: opts.Stderr,
		})
		d.RegisterHook(o.progress)
	}
	return o, nil
}

// Close renders the buffered reports, then shuts the telemetry hooks down.
func (o *Outputs) Close() error {
	errs := []error{o.Dispatcher.Close()}
	if o.progress != nil {
		o.progress.Stop()
	}
	for _, c := range o.closers {
		errs = append(errs, c.Close())
	}
	for _, f := range o.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Written lists the files that received output, in registration order.
func (o *Outputs) Written() []string {
	var paths []string
	for _, f := range o.files {
		if f.opened() {
			paths = append(paths, f.path)
		}
	}
	return paths
}

func (o *Outputs) file(path string) *lazyFile {
	f := &lazyFile{path: path}
	o.files = append(o.files, f)
	return f
}

func (o *Outputs) abort(err error) error {
	_ = o.Close()
	return fmt.Errorf("output: %w", err)
}

// lazyFile creates its file on the first write, so a run that ends in an
// error leaves no empty reports behind.
type lazyFile struct {
	path string

	mu     sync.Mutex
	f      *os.File
	closed bool
}

func (l *lazyFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, os.ErrClosed
	}
	if l.f == nil {
		if dir := filepath.Dir(l.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return 0, err
			}
		}
		f, err := os.Create(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Write(p)
}

// Close is idempotent. Writers close their output themselves; Outputs
// closes it again in case they did not.
func (l *lazyFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

func (l *lazyFile) opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f != nil
}
