// Command mcp-smoke starts "fieldprobe mcp" as a subprocess and drives it
// through the scenarios an assistant would run, over the stdio transport.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// scenarioResult tracks the outcome of a single scenario.
type scenarioResult struct {
	name    string
	passed  bool
	skipped bool
	err     error
}

// scenario is a named check against a live MCP session.
type scenario struct {
	name string
	live bool // requires a reachable target (skipped without -live)
	fn   func(ctx context.Context, s *mcp.ClientSession, target string) error
}

func main() {
	var (
		binary  = flag.String("bin", "", "fieldprobe binary (default: go run ./cmd/cli)")
		target  = flag.String("target", "https://example.com", "Target URL for live scenarios")
		timeout = flag.Duration("timeout", 90*time.Second, "Overall timeout")
		live    = flag.Bool("live", false, "Enable live scenarios that load an external page")
		runOnly = flag.String("scenario", "", "Run only this named scenario")
	)
	flag.Parse()
	log.SetFlags(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cmd, err := serverCommand(ctx, *binary)
	if err != nil {
		log.Fatalf("FATAL server_command: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "mcp-smoke", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		log.Fatalf("FATAL connect: %v", err)
	}
	defer session.Close()
	fmt.Println("server: connected")

	var results []scenarioResult
	for _, sc := range allScenarios() {
		if *runOnly != "" && sc.name != *runOnly {
			continue
		}
		if sc.live && !*live {
			results = append(results, scenarioResult{name: sc.name, skipped: true})
			fmt.Printf("SKIP  %s\n", sc.name)
			continue
		}

		err := sc.fn(ctx, session, *target)
		results = append(results, scenarioResult{name: sc.name, passed: err == nil, err: err})
		if err == nil {
			fmt.Printf("PASS  %s\n", sc.name)
		} else {
			fmt.Printf("FAIL  %s: %v\n", sc.name, err)
		}
	}

	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.skipped:
			skipped++
		case r.passed:
			passed++
		default:
			failed++
		}
	}
	fmt.Printf("\n--- %d passed, %d failed, %d skipped ---\n", passed, failed, skipped)
	if failed > 0 {
		os.Exit(1)
	}
}

// allScenarios returns every smoke scenario in execution order.
func allScenarios() []scenario {
	return []scenario{
		{"tool_discovery", false, scenarioToolDiscovery},
		{"payload_catalog", false, scenarioPayloadCatalog},
		{"classify_field", false, scenarioClassifyField},
		{"probe_inline", false, scenarioProbeInline},
		{"error_handling", false, scenarioErrorHandling},
		{"probe_live", true, scenarioProbeLive},
	}
}

func scenarioToolDiscovery(ctx context.Context, s *mcp.ClientSession, _ string) error {
	tools, err := s.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return fmt.Errorf("ListTools: %w", err)
	}
	expected := []string{"list_payloads", "classify_field", "probe_page"}
	have := make(map[string]bool, len(tools.Tools))
	for _, t := range tools.Tools {
		have[t.Name] = true
		if t.Description == "" {
			return fmt.Errorf("tool %q has empty description", t.Name)
		}
		if t.InputSchema == nil {
			return fmt.Errorf("tool %q has nil input schema", t.Name)
		}
	}
	for _, name := range expected {
		if !have[name] {
			return fmt.Errorf("missing tool %q (have %d)", name, len(tools.Tools))
		}
	}
	if len(tools.Tools) != len(expected) {
		return fmt.Errorf("tool count mismatch: want %d, got %d", len(expected), len(tools.Tools))
	}
	return nil
}

func scenarioPayloadCatalog(ctx context.Context, s *mcp.ClientSession, _ string) error {
	res, err := callToolRaw(ctx, s, "list_payloads", map[string]any{})
	if err != nil {
		return err
	}
	var listing struct {
		Total      int            `json:"total"`
		ByCategory map[string]int `json:"by_category"`
	}
	if err := resultJSON(res, &listing); err != nil {
		return err
	}
	for _, cat := range []string{"xss", "sqli", "special"} {
		if listing.ByCategory[cat] == 0 {
			return fmt.Errorf("category %q has no payloads", cat)
		}
	}

	// NEGATIVE: unknown category.
	res, err = callToolRaw(ctx, s, "list_payloads", map[string]any{"category": "ldap"})
	if err != nil {
		return err
	}
	if !res.IsError {
		return fmt.Errorf("NEG unknown category: expected error result")
	}
	return nil
}

func scenarioClassifyField(ctx context.Context, s *mcp.ClientSession, _ string) error {
	res, err := callToolRaw(ctx, s, "classify_field", map[string]any{"name": "username"})
	if err != nil {
		return err
	}
	var out struct {
		Context struct {
			IsDatabaseField bool `json:"isDatabaseField"`
		} `json:"context"`
		Verdicts []json.RawMessage `json:"verdicts"`
	}
	if err := resultJSON(res, &out); err != nil {
		return err
	}
	if !out.Context.IsDatabaseField {
		return fmt.Errorf("username not classified as a database field")
	}
	if len(out.Verdicts) == 0 {
		return fmt.Errorf("no verdicts")
	}
	return nil
}

func scenarioProbeInline(ctx context.Context, s *mcp.ClientSession, _ string) error {
	res, err := callToolRaw(ctx, s, "probe_page", map[string]any{
		"html": `<form><input name="comment"><input type="number" name="age"></form>`,
	})
	if err != nil {
		return err
	}
	var out struct {
		Run struct {
			Summary struct {
				TotalFields int `json:"totalFields"`
			} `json:"summary"`
		} `json:"run"`
		Report string `json:"report"`
	}
	if err := resultJSON(res, &out); err != nil {
		return err
	}
	if out.Run.Summary.TotalFields != 2 {
		return fmt.Errorf("want 2 fields, got %d", out.Run.Summary.TotalFields)
	}
	if !strings.HasPrefix(out.Report, "SECURITY TEST REPORT") {
		return fmt.Errorf("report missing header")
	}
	return nil
}

func scenarioErrorHandling(ctx context.Context, s *mcp.ClientSession, _ string) error {
	cases := map[string]map[string]any{
		"no input":    {},
		"system page": {"url": "chrome://settings"},
		"no fields":   {"html": "<p>nothing</p>"},
	}
	for name, args := range cases {
		res, err := callToolRaw(ctx, s, "probe_page", args)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !res.IsError {
			return fmt.Errorf("NEG %s: expected error result, got %s", name, extractText(res))
		}
	}

	res, err := callToolRaw(ctx, s, "nonexistent_tool", map[string]any{})
	if err == nil && !res.IsError {
		return fmt.Errorf("NEG nonexistent tool: expected error, got success")
	}
	return nil
}

func scenarioProbeLive(ctx context.Context, s *mcp.ClientSession, target string) error {
	res, err := callToolRaw(ctx, s, "probe_page", map[string]any{"url": target, "categories": "xss"})
	if err != nil {
		return err
	}
	text := extractText(res)
	// A page without fields is a valid answer for an arbitrary target.
	if res.IsError && !strings.Contains(text, "no input fields") {
		return fmt.Errorf("probe_page: %s", text)
	}
	return nil
}

func callToolRaw(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal %s args: %w", name, err)
	}
	return s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: json.RawMessage(payload)})
}

func extractText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return fmt.Sprintf("%T", result.Content[0])
}

func resultJSON(res *mcp.CallToolResult, dst any) error {
	text := extractText(res)
	if res.IsError {
		return fmt.Errorf("tool error: %s", text)
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("parse result: %w", err)
	}
	return nil
}

// serverCommand builds the command serving MCP on stdio. Without a binary
// it runs the CLI from the repository root.
func serverCommand(ctx context.Context, binary string) (*exec.Cmd, error) {
	if binary != "" {
		cmd := exec.CommandContext(ctx, binary, "mcp", "-static", "-log-level", "warn")
		cmd.Stderr = os.Stderr
		return cmd, nil
	}
	root, err := findRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("find repo root: %w", err)
	}
	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/cli", "mcp", "-static", "-log-level", "warn")
	cmd.Dir = root
	cmd.Stderr = os.Stderr
	return cmd, nil
}

func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		modPath := dir + string(os.PathSeparator) + "go.mod"
		if data, err := os.ReadFile(modPath); err == nil {
			if strings.Contains(string(data), "module github.com/fieldprobe/fieldprobe\n") ||
				strings.Contains(string(data), "module github.com/fieldprobe/fieldprobe\r\n") {
				return dir, nil
			}
		}
		parent := dir[:max(strings.LastIndex(dir, string(os.PathSeparator)), 0)]
		if parent == dir || parent == "" {
			return "", fmt.Errorf("repo root not found walking up from %s", dir)
		}
		dir = parent
	}
}
