package writers

import (
	"slices"
	"strings"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Recommendations closes every report.
var Recommendations = []string{
	"Implement proper input validation for all vulnerable fields",
	"Use content security policy (CSP) to prevent XSS attacks",
	"Use parameterized queries to prevent SQL injection",
	"Sanitize all user input before processing",
	"Consider using input validation libraries or frameworks",
}

// ReportFilename names a text report exported at t:
// security-test-report-2024-05-01T12-30-00-000Z.txt
func ReportFilename(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return defaults.ReportPrefix + strings.NewReplacer(":", "-", ".", "-").Replace(stamp) + defaults.ReportExt
}

// reportData is the view of a run shared by the template, PDF and HTML
// writers.
type reportData struct {
	RunID           string
	URL             string
	Generated       time.Time
	Duration        time.Duration
	CatalogVersion  string
	Categories      []string
	Summary         inputvalidation.Summary
	Results         []inputvalidation.FieldResult
	Vulnerable      []inputvalidation.FieldResult
	Safe            []inputvalidation.FieldResult
	Failed          []inputvalidation.FieldResult
	Recommendations []string
}

func newReportData(run *inputvalidation.TestRun, generated time.Time) *reportData {
	d := &reportData{
		RunID:           run.ID,
		URL:             run.URL,
		Generated:       generated,
		Duration:        run.Duration(),
		CatalogVersion:  run.CatalogVersion,
		Summary:         run.Summary,
		Results:         run.Results,
		Vulnerable:      run.VulnerableResults(),
		Safe:            run.SafeResults(),
		Recommendations: Recommendations,
	}
	for _, c := range run.Categories {
		d.Categories = append(d.Categories, c.String())
	}
	for _, r := range run.Results {
		if len(r.Failures) > 0 {
			d.Failed = append(d.Failed, r)
		}
	}
	return d
}

// withoutProbes copies results with their probe traces removed.
func withoutProbes(results []inputvalidation.FieldResult) []inputvalidation.FieldResult {
	out := slices.Clone(results)
	for i := range out {
		out[i].Probes = nil
	}
	return out
}

// runCollector keeps the last finished run seen by a buffering writer.
type runCollector struct {
	run *inputvalidation.TestRun
}

func (c *runCollector) collect(event events.Event) {
	if re, ok := event.(*events.ResultsEvent); ok && re.Run != nil {
		c.run = re.Run
	}
}
