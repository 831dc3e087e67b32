package writers

import (
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*HTMLWriter)(nil)

// HTMLConfig configures the HTML writer.
type HTMLConfig struct {
	// Title is the page title.
	Title string

	// Now stamps the report. Defaults to time.Now.
	Now func() time.Time
}

// HTMLWriter renders the finished run as a standalone HTML page on Close.
// Payloads are escaped by html/template, so the report never executes
// what it describes.
type HTMLWriter struct {
	w      io.Writer
	mu     sync.Mutex
	config HTMLConfig
	tmpl   *template.Template
	runCollector
}

// NewHTMLWriter creates an HTML writer.
func NewHTMLWriter(w io.Writer, config HTMLConfig) *HTMLWriter {
	if config.Title == "" {
		config.Title = "Security Test Report"
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &HTMLWriter{w: w, config: config, tmpl: htmlTemplate}
}

// Write keeps the results of the run.
func (hw *HTMLWriter) Write(event events.Event) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.collect(event)
	return nil
}

// Flush is a no-op.
func (hw *HTMLWriter) Flush() error {
	return nil
}

// SupportsEvent returns true for results events.
func (hw *HTMLWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeResults
}

// Close renders the page. Nothing is written if no run finished.
func (hw *HTMLWriter) Close() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if hw.run != nil {
		view := struct {
			*reportData
			Title string
			Tool  string
		}{
			reportData: newReportData(hw.run, hw.config.Now()),
			Title:      hw.config.Title,
			Tool:       defaults.ToolName + " " + defaults.Version,
		}
		if err := hw.tmpl.Execute(hw.w, view); err != nil {
			return fmt.Errorf("html: %w", err)
		}
	}
	if closer, ok := hw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var htmlTemplate = template.Must(template.New("html").Funcs(template.FuncMap{
	"yesno":      tmplYesNo,
	"categories": tmplCategories,
	"rfc3339":    func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="generator" content="{{ .Tool }}">
<title>{{ .Title }}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1e293b; }
h1 { margin-bottom: 0.2rem; }
.meta { color: #64748b; }
.summary td { padding: 0.2rem 1rem 0.2rem 0; }
.field { border: 1px solid #e2e8f0; border-radius: 6px; padding: 0.8rem 1rem; margin: 0.8rem 0; }
.vulnerable { border-left: 4px solid #dc2626; }
.safe { border-left: 4px solid #16a34a; }
.finding { margin: 0.6rem 0 0.6rem 1rem; }
.cat-xss { color: #dc2626; }
.cat-sqli { color: #ea580c; }
.cat-special { color: #ca8a04; }
code { background: #f1f5f9; padding: 0.1rem 0.3rem; white-space: pre-wrap; word-break: break-all; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<p class="meta">URL Tested: <a href="{{ .URL }}">{{ .URL }}</a><br>
Generated: <time datetime="{{ rfc3339 .Generated }}">{{ .Generated.Format "2006-01-02 15:04:05 MST" }}</time><br>
Run: {{ .RunID }} &middot; Catalog {{ .CatalogVersion }}</p>

<h2>Summary</h2>
<table class="summary">
<tr><td>Total Fields Tested</td><td>{{ .Summary.TotalFields }}</td></tr>
<tr><td>Vulnerable Fields</td><td>{{ .Summary.VulnerableFields }}</td></tr>
<tr><td>Safe Fields</td><td>{{ .Summary.SafeFields }}</td></tr>
<tr><td>Total Findings</td><td>{{ .Summary.TotalFindings }}</td></tr>
{{- if .Summary.FailedProbes }}
<tr><td>Failed Probes</td><td>{{ .Summary.FailedProbes }}</td></tr>
{{- end }}
</table>

<h2>Vulnerable Fields</h2>
{{- range .Vulnerable }}
<section class="field vulnerable" id="field-{{ .Fingerprint }}">
<h3>{{ .FieldName }} <small>({{ .FieldType }})</small></h3>
<p>{{ len .Vulnerabilities }} vulnerabilities: {{ range $i, $c := categories .Vulnerabilities }}{{ if $i }}, {{ end }}{{ $c }}{{ end }}</p>
{{- range .Vulnerabilities }}
<div class="finding">
<strong class="cat-{{ .Category }}">{{ .Type }}</strong>
<p>{{ .Description }}</p>
{{- if .AdditionalInfo }}
<p>{{ .AdditionalInfo }}</p>
{{- end }}
<p>Input type: {{ .ValidationInfo.InputType }} &middot; Pattern: {{ yesno .ValidationInfo.HasPattern }} &middot; Length limit: {{ yesno .ValidationInfo.HasLengthLimit }}</p>
<p>Payload: <code>{{ .Payload }}</code></p>
</div>
{{- end }}
</section>
{{- else }}
<p>No vulnerable fields found.</p>
{{- end }}

<h2>Safe Fields</h2>
<ul>
{{- range .Safe }}
<li id="field-{{ .Fingerprint }}">{{ .FieldName }} ({{ .FieldType }})</li>
{{- end }}
</ul>
{{- if .Failed }}

<h2>Probe Failures</h2>
<ul>
{{- range .Failed }}
{{- $name := .FieldName }}
{{- range .Failures }}
<li>{{ $name }}: {{ . }}</li>
{{- end }}
{{- end }}
</ul>
{{- end }}

<h2>Recommendations</h2>
<ol>
{{- range .Recommendations }}
<li>{{ . }}</li>
{{- end }}
</ol>
</body>
</html>
`))
