package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// PrintSummary writes the end-of-run overview: counts, then each field
// with its findings.
func PrintSummary(w io.Writer, run *inputvalidation.TestRun) {
	s := run.Summary
	fmt.Fprintln(w, SectionStyle.Render("Summary"))
	stat := func(label string, value int, style func(...string) string) {
		fmt.Fprintf(w, "  %s %s\n", StatLabelStyle.Render(fmt.Sprintf("%-18s", label)), style(strconv.Itoa(value)))
	}
	stat("Fields tested", s.TotalFields, StatValueStyle.Render)
	stat("Vulnerable fields", s.VulnerableFields, VulnerableStyle.Render)
	stat("Safe fields", s.SafeFields, SafeStyle.Render)
	stat("Findings", s.TotalFindings, StatValueStyle.Render)
	if s.FailedProbes > 0 {
		stat("Failed probes", s.FailedProbes, WarningStyle.Render)
	}
	fmt.Fprintf(w, "  %s %s\n", StatLabelStyle.Render(fmt.Sprintf("%-18s", "Duration")),
		StatValueStyle.Render(run.Duration().Round(time.Millisecond).String()))
	fmt.Fprintln(w)

	for _, f := range run.Results {
		if f.IsSafe {
			fmt.Fprintf(w, "%s %s %s\n", SafeStyle.Render(Icon("✔", "[safe]")), f.FieldName, StatLabelStyle.Render("("+f.FieldType+")"))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", VulnerableStyle.Render(Icon("✖", "[vuln]")), f.FieldName, StatLabelStyle.Render("("+f.FieldType+")"))
		for _, v := range f.Vulnerabilities {
			fmt.Fprintf(w, "    %s %s\n", CategoryStyle(v.Category).Render(v.Category.DisplayName()), v.Description)
			fmt.Fprintf(w, "      payload %s\n", PayloadStyle.Render(strconv.Quote(v.Payload)))
			if v.AdditionalInfo != "" {
				fmt.Fprintf(w, "      %s\n", HelpStyle.Render(v.AdditionalInfo))
			}
		}
	}
	for _, f := range run.Results {
		for _, msg := range f.Failures {
			fmt.Fprintf(w, "%s %s: %s\n", WarningStyle.Render(Icon("⚠", "[!]")), f.FieldName, msg)
		}
	}
}

// PrintPayloads writes the catalog grouped by category.
func PrintPayloads(w io.Writer, payloads []inputvalidation.Payload) {
	var current inputvalidation.Category
	for _, p := range payloads {
		if p.Category != current {
			current = p.Category
			fmt.Fprintln(w, SectionStyle.Render(current.DisplayName()))
		}
		fmt.Fprintf(w, "  %-24s %s\n", p.Description, PayloadStyle.Render(p.Value))
	}
	fmt.Fprintln(w, HelpStyle.Render(fmt.Sprintf("\n%d payloads, catalog %s", len(payloads), inputvalidation.CatalogVersion)))
}

// Divider returns a muted rule of width runes.
func Divider(width int) string {
	return DividerStyle.Render(strings.Repeat(Icon("─", "-"), width))
}
