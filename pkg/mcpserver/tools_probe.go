package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fieldprobe/fieldprobe/pkg/fakedom"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/writers"
)

// inlineURL is the address of a page passed as HTML without a url.
const inlineURL = "about:blank"

// ═══════════════════════════════════════════════════════════════════════════
// probe_page: run a test against inline HTML or a URL
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addProbePageTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "probe_page",
			Title: "Probe Page Fields",
			Description: `Runs a full input validation test: every text-like field of the page gets each payload,
the page's reaction is observed and the field is restored afterwards.

USE THIS TOOL WHEN:
• The user wants to know which fields of a page accept dangerous input
• You want to check a form snippet offline: pass it as 'html'

Inline HTML may carry reaction scripts (<script type="text/tengo" data-for="field">)
that stand in for the page's own validation.

A URL without 'html' loads the live page and needs the server to have a page source;
otherwise the call fails with a recovery hint.

Progress is streamed as progress notifications when the client sends a progress token.

EXAMPLE INPUTS:
• {"html": "<form><input name=\"q\"></form>"}
• {"url": "https://shop.example/search", "categories": "xss,sqli"}

Returns: the test run (per-field findings, summary) and the plain text report.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "Page to test. With 'html' it is only the document address.",
					},
					"html": map[string]any{
						"type":        "string",
						"description": "Page markup to test instead of loading the URL.",
					},
					"categories": map[string]any{
						"type":        "string",
						"description": "Comma-separated categories (xss, sqli, special). Empty for all.",
					},
					"keep_probes": map[string]any{
						"type":        "boolean",
						"description": "Include the outcome and verdict of every probe in the results.",
						"default":     false,
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:  false,
				OpenWorldHint: boolPtr(true),
				Title:         "Probe Page Fields",
			},
		},
		s.handleProbePage,
	)
}

type probePageArgs struct {
	URL        string `json:"url"`
	HTML       string `json:"html"`
	Categories string `json:"categories"`
	KeepProbes bool   `json:"keep_probes"`
}

type probePageResult struct {
	Run    *inputvalidation.TestRun `json:"run"`
	Report string                   `json:"report"`
}

func (s *Server) handleProbePage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args probePageArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.URL == "" && args.HTML == "" {
		return errorResult("either 'url' or 'html' is required"), nil
	}

	categories, err := inputvalidation.ParseCategories(args.Categories)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	page, release, errResult := s.loadPage(ctx, args)
	if errResult != nil {
		return errResult, nil
	}
	if release != nil {
		defer release()
	}

	opts := s.config.Options
	opts.Categories = categories
	opts.KeepProbes = args.KeepProbes
	opts.RunID = ""
	if opts.Logger == nil {
		opts.Logger = s.logger
	}

	d := dispatcher.New(dispatcher.Config{Logger: s.logger})
	d.RegisterHook(&sessionHook{req: req})
	defer d.Close()

	run, err := inputvalidation.NewRunner(page, opts, dispatcher.NewReporter(d, "")).Run(ctx)
	if err != nil {
		return runError(err), nil
	}

	var report bytes.Buffer
	if err := writers.RenderReport(&report, run, time.Now()); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	s.logger.Info("probe_page finished",
		slog.String("url", run.URL),
		slog.Int("vulnerable", run.Summary.VulnerableFields))
	return jsonResult(probePageResult{Run: run, Report: report.String()})
}

// loadPage returns the page to test, or a tool error result.
func (s *Server) loadPage(ctx context.Context, args probePageArgs) (inputvalidation.Page, func(), *mcp.CallToolResult) {
	if args.HTML != "" {
		pageURL := args.URL
		if pageURL == "" {
			pageURL = inlineURL
		}
		doc, err := fakedom.ParseString(args.HTML, pageURL, fakedom.WithLogger(s.logger))
		if err != nil {
			return nil, nil, enrichedError(fmt.Sprintf("cannot parse html: %v", err), []string{
				"Check the reaction scripts: they must be valid tengo and define react(event, value).",
			})
		}
		return doc, nil, nil
	}

	if err := inputvalidation.ValidateTarget(args.URL); err != nil {
		return nil, nil, runError(err)
	}
	if s.config.Open == nil {
		return nil, nil, enrichedError("this server cannot load URLs", []string{
			"Pass the page markup in 'html' instead.",
			"Restart the server with a browser or static page source to test live pages.",
		})
	}
	page, release, err := s.config.Open(ctx, args.URL)
	if err != nil {
		return nil, nil, enrichedError(fmt.Sprintf("cannot open %s: %v", args.URL, err), []string{
			"Check that the URL is reachable from the machine running the server.",
			"Pass the page markup in 'html' to test it offline.",
		})
	}
	return page, release, nil
}

func runError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, inputvalidation.ErrSystemPage):
		return enrichedError(err.Error(), []string{"Browser internal pages cannot be tested. Use an http(s) URL."})
	case errors.Is(err, inputvalidation.ErrNoFields):
		return enrichedError(err.Error(), []string{
			"The page has no text-like input, textarea or contenteditable element.",
			"If the form is rendered by script, load the URL with a browser page source rather than static HTML.",
		})
	case errors.Is(err, inputvalidation.ErrCancelled):
		return errorResult("test run cancelled before completion")
	}
	return errorResult(err.Error())
}
