package writers

import (
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// sampleRun has one vulnerable field with a probe failure and one safe field.
func sampleRun() *inputvalidation.TestRun {
	started := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	run := &inputvalidation.TestRun{
		ID:             "run-1",
		URL:            "https://shop.example.test/checkout",
		CatalogVersion: "1",
		Categories:     inputvalidation.Categories(),
		StartedAt:      started,
		FinishedAt:     started.Add(1500 * time.Millisecond),
		TotalFields:    2,
		TotalProbes:    16,
		Results: []inputvalidation.FieldResult{
			{
				FieldName:   "comment",
				FieldType:   "text",
				Fingerprint: "abc123",
				Vulnerabilities: []inputvalidation.Finding{
					{
						Type:           "XSS Vulnerability",
						Category:       inputvalidation.CategoryXSS,
						Description:    "Basic XSS",
						Payload:        "<script>alert(1)</script>",
						ValidationInfo: inputvalidation.ValidationInfo{InputType: "text", HasLengthLimit: true},
					},
				},
				Failures: []string{"Basic XSS (xss): detached"},
				Probes: []inputvalidation.ProbeRecord{
					{Payload: "<script>alert(1)</script>"},
				},
			},
			{
				FieldName:       "email",
				FieldType:       "email",
				Fingerprint:     "def456",
				IsSafe:          true,
				Vulnerabilities: []inputvalidation.Finding{},
			},
		},
	}
	run.Summarize()
	return run
}

// safeRun has a single field without findings.
func safeRun() *inputvalidation.TestRun {
	run := sampleRun()
	run.Results = run.Results[1:]
	run.Summarize()
	return run
}

func resultsEvent(run *inputvalidation.TestRun) events.Event {
	return events.NewResults(run)
}
