// Package ui renders fieldprobe's terminal output: the banner, live probe
// progress and the end-of-run summary. Everything goes to stderr so stdout
// stays clean for JSONL.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetSilent suppresses the banner and progress.
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

const bannerArt = `
   ___ _       _     _                 _
  / __(_) ___ | | __| |_ __  _ __ ___ | |__   ___
 | |_ | |/ _ \| |/ _' | '_ \| '__/ _ \| '_ \ / _ \
 |  _|| |  __/| | (_| | |_) | | | (_) | |_) |  __/
 |_|  |_|\___||_|\__,_| .__/|_|  \___/|_.__/ \___|
                      |_|
`

// PrintBanner writes the banner and version to w unless silent.
func PrintBanner(w io.Writer) {
	if IsSilent() {
		return
	}
	for _, line := range strings.Split(bannerArt, "\n") {
		if strings.TrimSpace(line) != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "%sv%s  %s\n\n",
		strings.Repeat(" ", 22),
		VersionStyle.Render(defaults.Version),
		HelpStyle.Render("input field validation prober"))
}

// ConfigLine is one row of the configuration block.
type ConfigLine struct {
	Label string
	Value string
}

// PrintConfig writes aligned ":: label : value" rows, skipping empty values.
func PrintConfig(w io.Writer, lines []ConfigLine) {
	if IsSilent() {
		return
	}
	for _, l := range lines {
		if l.Value == "" {
			continue
		}
		fmt.Fprintf(w, " :: %s : %s\n", ConfigLabelStyle.Render(l.Label), ConfigValueStyle.Render(l.Value))
	}
	fmt.Fprintln(w, DividerStyle.Render(strings.Repeat("_", 48)))
	fmt.Fprintln(w)
}

// PrintSuccess writes a success line.
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", SafeStyle.Render(Icon("✔", "[+]")), SanitizeString(message))
}

// PrintError writes an error line. Errors are shown even in silent mode.
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", VulnerableStyle.Render(Icon("✖", "[-]")), SanitizeString(message))
}

// PrintWarning writes a warning line.
func PrintWarning(w io.Writer, message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(w, "%s %s\n", WarningStyle.Render(Icon("⚠", "[!]")), SanitizeString(message))
}

// PrintInfo writes an informational line.
func PrintInfo(w io.Writer, message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(w, "%s %s\n", StatLabelStyle.Render(Icon("ℹ", "[*]")), SanitizeString(message))
}
