package writers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*TemplateWriter)(nil)

// TemplateConfig configures the template writer.
type TemplateConfig struct {
	// TemplatePath is the path to a custom template file.
	TemplatePath string

	// TemplateString is an inline template string (alternative to TemplatePath).
	TemplateString string

	// BuiltIn is the name of a built-in template: "report", "summary" or "csv".
	BuiltIn string

	// Now stamps the report. Defaults to time.Now.
	Now func() time.Time
}

// builtInTemplates contains the pre-defined templates.
var builtInTemplates = map[string]string{
	"report": `SECURITY TEST REPORT
===================
Generated: {{ date "1/2/2006, 3:04:05 PM" .Generated }}
URL Tested: {{ .URL }}

SUMMARY
-------
Total Fields Tested: {{ .Summary.TotalFields }}
Vulnerable Fields: {{ .Summary.VulnerableFields }}
Safe Fields: {{ .Summary.SafeFields }}

VULNERABLE FIELDS
----------------
{{- range .Vulnerable }}
{{- $field := . }}

Field: {{ .FieldName }} ({{ .FieldType }})
Vulnerabilities Found: {{ len .Vulnerabilities }}
{{- range .Vulnerabilities }}

  • Type: {{ .Type }}
    Description: {{ .Description }}
    Additional Info: {{ .AdditionalInfo | default "Not provided" }}
    Validation:
    - Input Type: {{ .ValidationInfo.InputType | default $field.FieldType }}
    - Has Pattern Restriction: {{ yesno .ValidationInfo.HasPattern }}
    - Has Length Limit: {{ yesno .ValidationInfo.HasLengthLimit }}
    Test Payload: {{ .Payload }}
{{- end }}
----------------------------------------
{{- end }}

SAFE FIELDS
----------
{{- range .Safe }}
Field: {{ .FieldName }} ({{ .FieldType }})
{{- end }}
{{- if .Failed }}

PROBE FAILURES
--------------
{{- range .Failed }}
Field: {{ .FieldName }} ({{ .FieldType }})
{{- range .Failures }}
  - {{ . }}
{{- end }}
{{- end }}
{{- end }}

RECOMMENDATIONS
--------------
{{- range $i, $r := .Recommendations }}
{{ add1 $i }}. {{ $r }}
{{- end }}
`,

	"summary": `{{ .URL }}: {{ .Summary.TotalFields }} fields, {{ .Summary.VulnerableFields }} vulnerable, {{ .Summary.SafeFields }} safe
{{- if .Vulnerable }}
{{- range .Vulnerable }}
  {{ .FieldName }} ({{ .FieldType }}): {{ categories .Vulnerabilities | join ", " }}
{{- end }}
{{- end }}
`,

	"csv": `field,type,category,description,payload
{{- range .Vulnerable }}
{{- $field := . }}
{{- range .Vulnerabilities }}
{{ escapeCSV $field.FieldName }},{{ $field.FieldType }},{{ .Category }},{{ escapeCSV .Description }},{{ escapeCSV .Payload }}
{{- end }}
{{- end }}
`,
}

// BuiltInTemplates lists the names accepted by TemplateConfig.BuiltIn.
func BuiltInTemplates() []string {
	names := make([]string, 0, len(builtInTemplates))
	for name := range builtInTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateWriter renders the finished run through a Go template on Close.
// Sprig functions are available, plus yesno, escapeCSV, categories and json.
type TemplateWriter struct {
	w      io.Writer
	mu     sync.Mutex
	config TemplateConfig
	tmpl   *template.Template
	runCollector
}

// NewTemplateWriter parses the template and returns an error if it is
// invalid.
func NewTemplateWriter(w io.Writer, config TemplateConfig) (*TemplateWriter, error) {
	if config.Now == nil {
		config.Now = time.Now
	}
	tmpl, err := parseTemplate(config)
	if err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}
	return &TemplateWriter{w: w, config: config, tmpl: tmpl}, nil
}

func parseTemplate(config TemplateConfig) (*template.Template, error) {
	var content string
	switch {
	case config.TemplatePath != "":
		b, err := os.ReadFile(config.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file: %w", err)
		}
		content = string(b)
	case config.TemplateString != "":
		content = config.TemplateString
	case config.BuiltIn != "":
		c, ok := builtInTemplates[config.BuiltIn]
		if !ok {
			return nil, fmt.Errorf("unknown built-in template: %s (available: %s)",
				config.BuiltIn, strings.Join(BuiltInTemplates(), ", "))
		}
		content = c
	default:
		return nil, fmt.Errorf("no template specified: set TemplatePath, TemplateString, or BuiltIn")
	}

	funcMap := sprig.TxtFuncMap()
	funcMap["yesno"] = tmplYesNo
	funcMap["escapeCSV"] = tmplEscapeCSV
	funcMap["categories"] = tmplCategories
	funcMap["json"] = tmplToJSON

	return template.New("fieldprobe").Funcs(funcMap).Parse(content)
}

// Write keeps the results of the run.
func (tw *TemplateWriter) Write(event events.Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.collect(event)
	return nil
}

// Flush is a no-op; the document is rendered on Close.
func (tw *TemplateWriter) Flush() error {
	return nil
}

// Close renders the template. Nothing is written if no run finished.
func (tw *TemplateWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.run != nil {
		var buf bytes.Buffer
		if err := tw.tmpl.Execute(&buf, newReportData(tw.run, tw.config.Now())); err != nil {
			return fmt.Errorf("template execution error: %w", err)
		}
		if _, err := tw.w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}
	if closer, ok := tw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for results events.
func (tw *TemplateWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeResults
}

// RenderReport writes the plain text report for run.
func RenderReport(w io.Writer, run *inputvalidation.TestRun, generated time.Time) error {
	tmpl, err := parseTemplate(TemplateConfig{BuiltIn: "report"})
	if err != nil {
		return err
	}
	return tmpl.Execute(w, newReportData(run, generated))
}

// Template helper functions

func tmplYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// tmplEscapeCSV wraps the value in quotes if it contains commas, quotes or
// newlines.
func tmplEscapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

// tmplCategories lists the distinct categories of findings in order.
func tmplCategories(findings []inputvalidation.Finding) []string {
	var out []string
	seen := make(map[inputvalidation.Category]bool)
	for _, f := range findings {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category.DisplayName())
		}
	}
	return out
}

func tmplToJSON(v any) string {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}
