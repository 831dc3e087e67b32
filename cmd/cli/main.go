// Command fieldprobe tests the input fields of web pages for missing
// validation.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/output/exitcode"
	"github.com/fieldprobe/fieldprobe/pkg/ui"
)

func printUsage(w io.Writer) {
	ui.PrintBanner(w)
	fmt.Fprintln(w, ui.SectionStyle.Render("COMMANDS"))
	fmt.Fprintln(w)
	commands := []struct{ name, help string }{
		{"probe   ", "Test the fields of one page (browser, static fetch or local file)"},
		{"host    ", "Serve test commands as JSON lines on stdin/stdout"},
		{"payloads", "List the payload catalog"},
		{"mcp     ", "Start a Model Context Protocol server on stdio"},
		{"version ", "Print the version"},
	}
	for _, c := range commands {
		fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render(c.name), c.help)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.SectionStyle.Render("EXIT CODES"))
	fmt.Fprintln(w)
	for _, c := range []exitcode.Code{exitcode.Success, exitcode.Findings, exitcode.UserError, exitcode.Network, exitcode.Internal} {
		fmt.Fprintf(w, "  %d  %s\n", c, c.Description())
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run '%s <command> -h' for the flags of a command.\n", defaults.ToolName)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s (%s, %s/%s)\n", defaults.ToolName, defaults.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// run dispatches args (without the program name) and returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return defaults.ExitUserError
	}

	switch args[0] {
	case "probe", "test":
		return runProbe(args[1:], stdout, stderr)
	case "host":
		return runHost(args[1:], stdin, stdout, stderr)
	case "payloads", "catalog":
		return runPayloads(args[1:], stdout, stderr)
	case "mcp":
		return runMCP(args[1:], stderr)
	case "-v", "--version", "version":
		printVersion(stdout)
		return defaults.ExitSuccess
	case "-h", "--help", "help":
		printUsage(stdout)
		return defaults.ExitSuccess
	}
	ui.PrintError(stderr, fmt.Sprintf("unknown command %q", args[0]))
	fmt.Fprintln(stderr)
	printUsage(stderr)
	return defaults.ExitUserError
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
