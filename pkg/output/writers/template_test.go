package writers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/output/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFilename(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "security-test-report-2024-05-01T12-30-00-000Z.txt", ReportFilename(ts))
}

func TestBuiltInTemplates(t *testing.T) {
	assert.Equal(t, []string{"csv", "report", "summary"}, BuiltInTemplates())
}

func TestRenderReport(t *testing.T) {
	generated := time.Date(2024, 5, 1, 14, 30, 0, 0, time.Local)
	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, sampleRun(), generated))

	want := `SECURITY TEST REPORT
===================
Generated: 5/1/2024, 2:30:00 PM
URL Tested: https://shop.example.test/checkout

SUMMARY
-------
Total Fields Tested: 2
Vulnerable Fields: 1
Safe Fields: 1

VULNERABLE FIELDS
----------------

Field: comment (text)
Vulnerabilities Found: 1

  • Type: XSS Vulnerability
    Description: Basic XSS
    Additional Info: Not provided
    Validation:
    - Input Type: text
    - Has Pattern Restriction: No
    - Has Length Limit: Yes
    Test Payload: <script>alert(1)</script>
----------------------------------------

SAFE FIELDS
----------
Field: email (email)

PROBE FAILURES
--------------
Field: comment (text)
  - Basic XSS (xss): detached

RECOMMENDATIONS
--------------
1. Implement proper input validation for all vulnerable fields
2. Use content security policy (CSP) to prevent XSS attacks
3. Use parameterized queries to prevent SQL injection
4. Sanitize all user input before processing
5. Consider using input validation libraries or frameworks
`
	assert.Equal(t, want, buf.String())
}

func TestRenderReport_NoVulnerableFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, safeRun(), time.Now()))

	out := buf.String()
	assert.Contains(t, out, "VULNERABLE FIELDS\n----------------\n\nSAFE FIELDS")
	assert.NotContains(t, out, "PROBE FAILURES")
}

func TestTemplateWriter_BuiltIns(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"summary", "https://shop.example.test/checkout: 2 fields, 1 vulnerable, 1 safe\n  comment (text): Cross-Site Scripting (XSS)\n"},
		{"csv", "field,type,category,description,payload\ncomment,text,xss,Basic XSS,<script>alert(1)</script>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tw, err := NewTemplateWriter(&buf, TemplateConfig{BuiltIn: tt.name})
			require.NoError(t, err)
			require.NoError(t, tw.Write(resultsEvent(sampleRun())))
			require.NoError(t, tw.Close())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestTemplateWriter_CustomString(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTemplateWriter(&buf, TemplateConfig{
		TemplateString: `{{ .RunID | upper }} {{ .Summary.TotalFindings }} {{ json .Summary }}`,
	})
	require.NoError(t, err)
	require.NoError(t, tw.Write(resultsEvent(sampleRun())))
	require.NoError(t, tw.Close())

	assert.True(t, strings.HasPrefix(buf.String(), "RUN-1 1 {"))
	assert.Contains(t, buf.String(), `"vulnerableFields":1`)
}

func TestTemplateWriter_Errors(t *testing.T) {
	_, err := NewTemplateWriter(&bytes.Buffer{}, TemplateConfig{BuiltIn: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: csv, report, summary")

	_, err = NewTemplateWriter(&bytes.Buffer{}, TemplateConfig{})
	assert.Error(t, err)

	_, err = NewTemplateWriter(&bytes.Buffer{}, TemplateConfig{TemplatePath: "/does/not/exist.tmpl"})
	assert.Error(t, err)

	_, err = NewTemplateWriter(&bytes.Buffer{}, TemplateConfig{TemplateString: "{{ .Broken "})
	assert.Error(t, err)
}

func TestTemplateWriter_NoRun(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTemplateWriter(&buf, TemplateConfig{BuiltIn: "report"})
	require.NoError(t, err)
	require.NoError(t, tw.Write(events.NewStarting("run-1")))
	require.NoError(t, tw.Close())
	assert.Empty(t, buf.String())
	assert.True(t, tw.SupportsEvent(events.EventTypeResults))
	assert.False(t, tw.SupportsEvent(events.EventTypeProgress))
}

func TestEscapeCSV(t *testing.T) {
	assert.Equal(t, "plain", tmplEscapeCSV("plain"))
	assert.Equal(t, `"a,b"`, tmplEscapeCSV("a,b"))
	assert.Equal(t, `"say ""hi"""`, tmplEscapeCSV(`say "hi"`))
}
