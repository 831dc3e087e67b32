package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fieldprobe/fieldprobe/pkg/cli"
	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/messaging"
)

const hostUsage = `Usage: fieldprobe host [flags]

Serves test commands as a message host. Each stdin line is a JSON command,
for example {"action":"startTesting","url":"https://shop.example/register"}.
Every reply (ack, progress, results, error) is written to stdout as one JSON
line. Logs go to stderr.

Report file outputs of the configuration are ignored: a host serves many runs.
`

func runHost(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := newFlagSet("host", hostUsage, stderr)
	var common commonFlags
	common.register(fs)
	static := fs.Bool("static", false, "Fetch pages over HTTP instead of driving a browser")
	if code, done := parseFlags(fs, args); done {
		return code
	}

	cfg, err := common.load()
	if err != nil {
		return fail(stderr, err)
	}
	if err := cfg.Validate(); err != nil {
		return fail(stderr, err)
	}
	cfg.Output.JSONL, cfg.Output.Report, cfg.Output.PDF, cfg.Output.HTML = "", "", "", ""
	cfg.Output.Template, cfg.Output.TemplatePath, cfg.Output.TemplateOut = "", "", ""

	logger := cfg.NewLogger(stderr)
	opts, err := cfg.RunOptions(logger)
	if err != nil {
		return fail(stderr, err)
	}

	outs, err := cli.BuildOutputs(cfg, cli.OutputOptions{Stream: stdout, Stderr: stderr, Logger: logger})
	if err != nil {
		return fail(stderr, err)
	}
	defer outs.Close()

	pages, err := cli.NewPageSource(cli.PageSourceConfig{Browser: cfg.Browser, Static: *static, Logger: logger})
	if err != nil {
		return fail(stderr, err)
	}
	defer pages.Close()

	ctx, cancel := cli.SignalContext(stderr, duration.SignalGrace)
	defer cancel()

	host := messaging.NewHost(messaging.HostConfig{
		Open:       pages.Open,
		Options:    opts,
		Dispatcher: outs.Dispatcher,
		Logger:     logger,
	})
	logger.Info("message host ready", slog.String("version", defaults.Version), slog.Bool("static", *static))
	if err := host.Serve(ctx, stdin); err != nil && ctx.Err() == nil {
		return fail(stderr, err)
	}
	if ctx.Err() == context.Canceled {
		return defaults.ExitUserError
	}
	return defaults.ExitSuccess
}
