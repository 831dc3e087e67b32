package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
)

// The SDK defines LoggingLevel as a plain string without constants.
const (
	logInfo    mcp.LoggingLevel = "info"
	logWarning mcp.LoggingLevel = "warning"
)

// OpenFunc loads a live page for probe_page. release frees it once the run
// is over and may be nil.
type OpenFunc func(ctx context.Context, url string) (page inputvalidation.Page, release func(), err error)

// Config holds MCP server configuration.
type Config struct {
	// Open loads URLs. Without it probe_page only accepts inline HTML.
	Open OpenFunc

	// Options are the run options for probe_page. Categories and
	// KeepProbes are overridden per call.
	Options inputvalidation.Options

	Logger *slog.Logger
}

// Server wraps the MCP server with the fieldprobe tools.
type Server struct {
	mcp    *mcp.Server
	config *Config
	logger *slog.Logger
}

// MCPServer returns the underlying MCP server, for in-memory transports in tests.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// New creates a server with every tool registered.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{Options: inputvalidation.DefaultOptions()}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{config: cfg, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ToolName,
			Title:   "Field Probe MCP Server",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	s.registerTools()
	return s
}

const serverInstructions = `fieldprobe tests the input fields of a web page for missing validation.
It types XSS, SQL injection and special character payloads into every text-like field,
fires the events a user would, and reads the field back to see whether the page
sanitized, encoded or rejected the value.

Start with list_payloads to see what is sent. Use classify_field to explain why a
field is or is not a target for a category. Use probe_page to run a test; pass inline
HTML for an offline check or a URL when the server was started with a browser.

Findings are heuristic: a field is reported vulnerable when the page kept a payload
the category considers dangerous. Server-side handling is not observed.`

// RunStdio serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", slog.String("version", defaults.Version))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// notifyProgress sends a progress notification when the client asked for one.
func notifyProgress(ctx context.Context, req *mcp.CallToolRequest, progress, total float64, message string) {
	token := req.Params.GetProgressToken()
	if token == nil || req.Session == nil {
		return
	}
	_ = req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

func logToSession(ctx context.Context, req *mcp.CallToolRequest, level mcp.LoggingLevel, data any) {
	if req.Session == nil {
		return
	}
	_ = req.Session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: defaults.ToolName,
		Data:   data,
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// enrichedError is an error result that tells the caller what to try next.
func enrichedError(msg string, recoverySteps []string) *mcp.CallToolResult {
	type errResponse struct {
		Error         string   `json:"error"`
		RecoverySteps []string `json:"recovery_steps"`
	}
	data, _ := jsonutil.MarshalIndent(errResponse{
		Error:         msg,
		RecoverySteps: recoverySteps,
	}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
		IsError: true,
	}
}

func boolPtr(b bool) *bool { return &b }

func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}
