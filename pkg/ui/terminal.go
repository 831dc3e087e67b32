package ui

import (
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/term"
)

var (
	unicodeOnce sync.Once
	unicodeOK   bool
)

// StderrIsTerminal reports whether stderr is attached to a terminal.
func StderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// UnicodeTerminal reports whether stderr can render spinner glyphs and
// block characters. Piped output, TERM=dumb and legacy Windows consoles
// (no WT_SESSION) get ASCII.
func UnicodeTerminal() bool {
	unicodeOnce.Do(func() {
		if os.Getenv("TERM") == "dumb" || !StderrIsTerminal() {
			return
		}
		if runtime.GOOS == "windows" {
			unicodeOK = os.Getenv("WT_SESSION") != ""
			return
		}
		unicodeOK = true
	})
	return unicodeOK
}

// TerminalWidth returns the width of stderr, or fallback when it is not a
// terminal.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}

// Icon returns unicode when the terminal supports it, ascii otherwise.
func Icon(unicode, ascii string) string {
	if UnicodeTerminal() {
		return unicode
	}
	return ascii
}

// SanitizeString drops glyphs a legacy console cannot render. Latin text is
// kept; emoji, braille and block elements are removed.
func SanitizeString(s string) string {
	if UnicodeTerminal() {
		return s
	}
	return asciiSafe(s)
}

func asciiSafe(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r <= 0xFF || unicode.Is(unicode.Latin, r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}
