package main

import (
	"context"
	"errors"
	"io"

	"github.com/fieldprobe/fieldprobe/pkg/cli"
	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/mcpserver"
)

const mcpUsage = `Usage: fieldprobe mcp [flags]

Starts a Model Context Protocol server on stdin/stdout with the tools
list_payloads, classify_field and probe_page.

Example client configuration:
  {"command": "fieldprobe", "args": ["mcp", "-static"]}
`

// runMCP serves MCP over stdio. Logs go to stderr; stdout carries the protocol.
func runMCP(args []string, stderr io.Writer) int {
	fs := newFlagSet("mcp", mcpUsage, stderr)
	var common commonFlags
	common.register(fs)
	static := fs.Bool("static", false, "Load URLs over HTTP instead of driving a browser")
	offline := fs.Bool("offline", false, "Only test inline HTML; refuse URLs")
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
	logger := cfg.NewLogger(stderr)
	opts, err := cfg.RunOptions(logger)
	if err != nil {
		return fail(stderr, err)
	}

	srvCfg := &mcpserver.Config{Options: opts, Logger: logger}
	if !*offline {
		pages, err := cli.NewPageSource(cli.PageSourceConfig{Browser: cfg.Browser, Static: *static, Logger: logger})
		if err != nil {
			return fail(stderr, err)
		}
		defer pages.Close()
		srvCfg.Open = pages.Open
	}

	ctx, cancel := cli.SignalContext(stderr, duration.SignalGrace)
	defer cancel()

	srv := mcpserver.New(srvCfg)
	if err := srv.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fail(stderr, err)
	}
	return defaults.ExitSuccess
}
