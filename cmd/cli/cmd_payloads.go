package main

import (
	"io"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
	"github.com/fieldprobe/fieldprobe/pkg/output/exitcode"
	"github.com/fieldprobe/fieldprobe/pkg/ui"
)

const payloadsUsage = `Usage: fieldprobe payloads [-category NAME] [-json]

Lists the payloads typed into every field, in probe order.
`

func runPayloads(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("payloads", payloadsUsage, stderr)
	category := fs.String("category", "", "Only list this category: xss, sqli, special")
	asJSON := fs.Bool("json", false, "Print the catalog as JSON")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	if code, done := parseFlags(fs, args); done {
		return code
	}
	ui.SetNoColor(*noColor)

	payloads := inputvalidation.Catalog()
	if *category != "" {
		c, err := inputvalidation.ParseCategory(*category)
		if err != nil {
			return fail(stderr, exitcode.Usage("%v", err))
		}
		payloads = inputvalidation.PayloadsFor(c)
	}

	if *asJSON {
		data, err := jsonutil.MarshalIndent(map[string]any{
			"catalogVersion": inputvalidation.CatalogVersion,
			"payloads":       payloads,
		}, "", "  ")
		if err != nil {
			return fail(stderr, err)
		}
		data = append(data, '\n')
		if _, err := stdout.Write(data); err != nil {
			return fail(stderr, err)
		}
		return defaults.ExitSuccess
	}
	ui.PrintPayloads(stdout, payloads)
	return defaults.ExitSuccess
}
