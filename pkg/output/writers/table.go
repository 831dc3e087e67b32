package writers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*TableWriter)(nil)

// boxChars is one set of table-drawing runes.
type boxChars struct {
	h, v, cross, tl, tr, bl, br, lt, rt, tt, bt string
}

var (
	unicodeBox = boxChars{"─", "│", "┼", "┌", "┐", "└", "┘", "├", "┤", "┬", "┴"}
	asciiBox   = boxChars{"-", "|", "+", "+", "+", "+", "+", "+", "+", "+", "+"}
)

// TableConfig configures the table writer.
type TableConfig struct {
	// Width caps the table width. Zero uses the terminal width, or 100
	// when the output is not a terminal.
	Width int

	// ASCII forces plain ASCII borders.
	ASCII bool

	// ShowSafe adds rows for fields without findings.
	ShowSafe bool
}

// TableWriter prints one row per finding when the run finishes.
type TableWriter struct {
	w      io.Writer
	mu     sync.Mutex
	config TableConfig
	box    boxChars
	runCollector
}

// NewTableWriter creates a table writer.
func NewTableWriter(w io.Writer, config TableConfig) *TableWriter {
	box := unicodeBox
	if config.ASCII || !unicodeSupported(w) {
		box = asciiBox
	}
	if config.Width <= 0 {
		config.Width = terminalWidth(w)
	}
	return &TableWriter{w: w, config: config, box: box}
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 40 {
			return width
		}
	}
	return 100
}

// Write keeps the results of the run.
func (tw *TableWriter) Write(event events.Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.collect(event)
	return nil
}

// Flush is a no-op.
func (tw *TableWriter) Flush() error {
	return nil
}

// SupportsEvent returns true for results events.
func (tw *TableWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeResults
}

// Close prints the table. Nothing is printed if no run finished.
func (tw *TableWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.run == nil {
		return nil
	}
	headers := []string{"Field", "Type", "Category", "Finding", "Payload"}
	var rows [][]string
	for _, f := range tw.run.Results {
		if len(f.Vulnerabilities) == 0 {
			if tw.config.ShowSafe {
				rows = append(rows, []string{f.FieldName, f.FieldType, "-", "safe", ""})
			}
			continue
		}
		for _, v := range f.Vulnerabilities {
			rows = append(rows, []string{f.FieldName, f.FieldType, v.Category.DisplayName(), v.Type, quotePayload(v.Payload)})
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintf(tw.w, "No vulnerable fields found (%d fields tested).\n", tw.run.Summary.TotalFields)
		return err
	}
	_, err := io.WriteString(tw.w, tw.render(headers, rows))
	return err
}

// quotePayload makes control characters visible.
func quotePayload(p string) string {
	q := fmt.Sprintf("%q", p)
	return q[1 : len(q)-1]
}

func (tw *TableWriter) render(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], utf8.RuneCountInString(c))
		}
	}
	shrinkWidths(widths, tw.config.Width-(3*len(widths)+1))

	var b strings.Builder
	line := func(left, mid, right string) {
		b.WriteString(left)
		for i, w := range widths {
			if i > 0 {
				b.WriteString(mid)
			}
			b.WriteString(strings.Repeat(tw.box.h, w+2))
		}
		b.WriteString(right)
		b.WriteByte('\n')
	}
	row := func(cells []string) {
		b.WriteString(tw.box.v)
		for i, w := range widths {
			b.WriteString(" ")
			b.WriteString(padRight(truncate(cells[i], w), w))
			b.WriteString(" ")
			b.WriteString(tw.box.v)
		}
		b.WriteByte('\n')
	}

	line(tw.box.tl, tw.box.tt, tw.box.tr)
	row(headers)
	line(tw.box.lt, tw.box.cross, tw.box.rt)
	for _, r := range rows {
		row(r)
	}
	line(tw.box.bl, tw.box.bt, tw.box.br)

	s := tw.run.Summary
	fmt.Fprintf(&b, "%d fields tested, %d vulnerable, %d safe, %d findings",
		s.TotalFields, s.VulnerableFields, s.SafeFields, s.TotalFindings)
	if s.FailedProbes > 0 {
		fmt.Fprintf(&b, ", %d failed probes", s.FailedProbes)
	}
	b.WriteByte('\n')
	return b.String()
}

// shrinkWidths narrows the widest columns until the sum fits budget.
// Columns never go below 4 runes.
func shrinkWidths(widths []int, budget int) {
	for {
		total, widest := 0, 0
		for i, w := range widths {
			total += w
			if w > widths[widest] {
				widest = i
			}
		}
		if total <= budget || widths[widest] <= 4 {
			return
		}
		widths[widest]--
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func padRight(s string, n int) string {
	if pad := n - utf8.RuneCountInString(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
