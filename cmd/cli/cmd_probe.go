package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/cli"
	"github.com/fieldprobe/fieldprobe/pkg/config"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/exitcode"
	"github.com/fieldprobe/fieldprobe/pkg/output/writers"
	"github.com/fieldprobe/fieldprobe/pkg/ui"
)

const probeUsage = `Usage: fieldprobe probe (-u URL | -f FILE) [flags]

Types XSS, SQL injection and special character payloads into every text-like
field of a page and reports the fields that kept a dangerous value.

Examples:
  fieldprobe probe -u https://shop.example/register
  fieldprobe probe -u https://shop.example/register -static -categories xss,sqli
  fieldprobe probe -f testdata/form.html -report auto -pdf report.pdf
  fieldprobe probe -u https://shop.example/register -stream | jq .type
`

// probeFlags are the probe command line. Flags left unset keep the value
// from the configuration file.
type probeFlags struct {
	common commonFlags

	url        string
	fixture    string
	static     bool
	categories string
	settle     time.Duration
	interval   time.Duration
	rate       float64
	noSubmit   bool
	keepProbes bool
	exitZero   bool

	stream   bool
	table    bool
	showSafe bool
	jsonl    string
	report   string
	pdf      string
	html     string
	template string

	chrome      string
	remote      string
	proxy       string
	showBrowser bool

	metricsPort int
	otel        string
	webhook     string
}

func (f *probeFlags) register(fs *flag.FlagSet) {
	f.common.register(fs)

	fs.StringVar(&f.url, "u", "", "Page URL to test")
	fs.StringVar(&f.fixture, "f", "", "Local HTML file to test instead of a URL")
	fs.BoolVar(&f.static, "static", false, "Fetch the page over HTTP and test its markup without a browser")
	fs.StringVar(&f.categories, "categories", "", "Comma-separated categories: xss, sqli, special (default all)")
	fs.DurationVar(&f.settle, "settle", duration.ProbeSettle, "Wait after synthetic events before reading the field back")
	fs.DurationVar(&f.interval, "interval", duration.ProbeInterval, "Pause between probes")
	fs.Float64Var(&f.rate, "rate", 0, "Maximum probes per second (0 = no cap)")
	fs.BoolVar(&f.noSubmit, "no-submit", false, "Do not fire the intercepted submit event")
	fs.BoolVar(&f.keepProbes, "keep-probes", false, "Include every probe outcome in the results")
	fs.BoolVar(&f.exitZero, "exit-zero", false, "Exit 0 even when vulnerable fields are found")

	fs.BoolVar(&f.stream, "stream", false, "Write every event as JSONL to stdout")
	fs.BoolVar(&f.table, "table", false, "Print findings as a table")
	fs.BoolVar(&f.showSafe, "show-safe", false, "Include safe fields in the table")
	fs.StringVar(&f.jsonl, "jsonl", "", "Write events to a JSONL file")
	fs.StringVar(&f.report, "report", "", `Write the text report ("auto" names it after the export time)`)
	fs.StringVar(&f.pdf, "pdf", "", "Write a PDF report")
	fs.StringVar(&f.html, "html", "", "Write an HTML report")
	fs.StringVar(&f.template, "template", "", "Render a built-in template (report, summary, csv) to stderr")

	fs.StringVar(&f.chrome, "chrome", "", "Chrome or Chromium binary")
	fs.StringVar(&f.remote, "remote", "", "DevTools websocket URL of a running browser")
	fs.StringVar(&f.proxy, "proxy", "", "HTTP proxy for the browser and static fetches")
	fs.BoolVar(&f.showBrowser, "show-browser", false, "Run the browser with a visible window")

	fs.IntVar(&f.metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port")
	fs.StringVar(&f.otel, "otel", "", "OTLP gRPC endpoint for traces")
	fs.StringVar(&f.webhook, "webhook", "", "POST results to this URL")
}

// apply overrides cfg with the flags in set.
func (f *probeFlags) apply(cfg *config.Config, set map[string]bool) {
	if set["categories"] {
		cfg.Probe.Categories = nil
		for _, c := range strings.Split(f.categories, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Probe.Categories = append(cfg.Probe.Categories, c)
			}
		}
	}
	if set["settle"] {
		cfg.Probe.SettleDelay = f.settle
	}
	if set["interval"] {
		cfg.Probe.InterProbeDelay = f.interval
	}
	if set["rate"] {
		cfg.Probe.MaxRate = f.rate
	}
	if set["no-submit"] {
		cfg.Probe.SimulateSubmit = !f.noSubmit
	}
	if set["keep-probes"] {
		cfg.Probe.KeepProbes = f.keepProbes
	}

	setString := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	setString("jsonl", &cfg.Output.JSONL, f.jsonl)
	setString("report", &cfg.Output.Report, f.report)
	setString("pdf", &cfg.Output.PDF, f.pdf)
	setString("html", &cfg.Output.HTML, f.html)
	setString("template", &cfg.Output.Template, f.template)
	setString("chrome", &cfg.Browser.ChromePath, f.chrome)
	setString("remote", &cfg.Browser.RemoteURL, f.remote)
	setString("proxy", &cfg.Browser.Proxy, f.proxy)
	setString("otel", &cfg.Telemetry.OTelEndpoint, f.otel)
	setString("webhook", &cfg.Output.Webhook.URL, f.webhook)
	if set["show-browser"] {
		cfg.Browser.ShowBrowser = f.showBrowser
	}
	if set["metrics-port"] {
		cfg.Telemetry.MetricsPort = f.metricsPort
	}
}

// target returns what to open and how it is loaded.
func (f *probeFlags) target() (target, mode string, err error) {
	switch {
	case f.url != "" && f.fixture != "":
		return "", "", exitcode.Usage("-u and -f are mutually exclusive")
	case f.fixture != "":
		return f.fixture, "fixture", nil
	case f.url == "":
		return "", "", exitcode.Usage("a target is required: -u URL or -f FILE")
	case f.static:
		return f.url, "static", nil
	}
	return f.url, "browser", nil
}

func runProbe(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("probe", probeUsage, stderr)
	var f probeFlags
	f.register(fs)
	if code, done := parseFlags(fs, args); done {
		return code
	}

	target, mode, err := f.target()
	if err != nil {
		fs.Usage()
		return fail(stderr, err)
	}
	cfg, err := f.common.load()
	if err != nil {
		return fail(stderr, err)
	}
	f.apply(cfg, setFlags(fs))
	if err := cfg.Validate(); err != nil {
		return fail(stderr, err)
	}
	if err := inputvalidation.ValidateTarget(target); err != nil {
		return fail(stderr, err)
	}

	logger := cfg.NewLogger(stderr)
	opts, err := cfg.RunOptions(logger)
	if err != nil {
		return fail(stderr, err)
	}

	if !f.stream {
		ui.PrintBanner(stderr)
		ui.PrintConfig(stderr, []ui.ConfigLine{
			{Label: "Target    ", Value: target},
			{Label: "Mode      ", Value: mode},
			{Label: "Categories", Value: categoriesLabel(opts.Categories)},
			{Label: "Settle    ", Value: opts.SettleDelay.String()},
			{Label: "Catalog   ", Value: "v" + inputvalidation.CatalogVersion},
		})
	}

	ctx, cancel := cli.SignalContext(stderr, duration.SignalGrace)
	defer cancel()
	ctx, cancelRun := context.WithTimeout(ctx, duration.RunMax)
	defer cancelRun()

	outOpts := cli.OutputOptions{
		Progress: !f.stream && !ui.IsSilent(),
		Stderr:   stderr,
		Logger:   logger,
	}
	if f.stream {
		outOpts.Stream = stdout
	}
	outs, err := cli.BuildOutputs(cfg, outOpts)
	if err != nil {
		return fail(stderr, err)
	}
	if f.table && !f.stream {
		outs.Dispatcher.RegisterWriter(writers.NewTableWriter(stdout, writers.TableConfig{ShowSafe: f.showSafe}))
	}
	codes := exitcode.New(exitcode.Config{IgnoreFindings: f.exitZero})
	outs.Dispatcher.RegisterHook(codes)

	pages, err := cli.NewPageSource(cli.PageSourceConfig{
		Browser: cfg.Browser,
		Static:  mode == "static",
		Logger:  logger,
	})
	if err != nil {
		_ = outs.Close()
		return fail(stderr, err)
	}
	defer pages.Close()

	run, runErr := probe(ctx, pages, target, opts, outs.Dispatcher)
	if err := outs.Close(); err != nil {
		logger.Warn("closing outputs", slog.String("error", err.Error()))
	}
	if runErr != nil {
		return fail(stderr, runErr)
	}

	if !f.stream && !f.table {
		ui.PrintSummary(stdout, run)
	}
	for _, path := range outs.Written() {
		ui.PrintSuccess(stderr, "Report written: "+path)
	}
	code, reason := codes.ExitCode(nil)
	logger.Debug("exit", slog.String("code", code.String()), slog.String("reason", reason))
	return code.Int()
}

// probe opens target and runs the test, reporting to d. Open failures are
// reported as enumeration errors.
func probe(ctx context.Context, pages *cli.PageSource, target string, opts inputvalidation.Options, d *dispatcher.Dispatcher) (*inputvalidation.TestRun, error) {
	reporter := dispatcher.NewReporter(d, opts.RunID)
	page, release, err := pages.Open(ctx, target)
	if err != nil {
		err = fmt.Errorf("%w: %w", inputvalidation.ErrEnumerate, err)
		reporter.OnError(ctx, err)
		return nil, err
	}
	defer release()
	return inputvalidation.NewRunner(page, opts, reporter).Run(ctx)
}

func categoriesLabel(cats []inputvalidation.Category) string {
	if len(cats) == 0 {
		cats = inputvalidation.Categories()
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.DisplayName()
	}
	return strings.Join(names, ", ")
}
