package inputvalidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldprobe/fieldprobe/pkg/fakedom"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

func options() inputvalidation.Options {
	opts := inputvalidation.DefaultOptions()
	opts.SettleDelay = time.Millisecond
	opts.ProbeInterval = 0
	return opts
}

func probeOne(t *testing.T, html string, payload inputvalidation.Payload) (inputvalidation.Outcome, inputvalidation.Verdict) {
	t.Helper()
	ctx := context.Background()
	doc, err := fakedom.ParseString(html, "https://example.com/")
	require.NoError(t, err)
	fields, err := doc.EnumerateFields(ctx)
	require.NoError(t, err)
	require.Len(t, fields, 1)

	before, err := doc.Value(0)
	require.NoError(t, err)

	out := inputvalidation.NewDriver(doc, time.Millisecond, true, nil).Probe(ctx, fields[0], payload)
	require.NoError(t, out.Err)

	after, err := doc.Value(0)
	require.NoError(t, err)
	assert.Equal(t, before, after, "field restored")

	return out, inputvalidation.Classify(payload.Category, inputvalidation.ClassifyField(fields[0]), out)
}

func payload(desc string) inputvalidation.Payload {
	for _, p := range inputvalidation.Catalog() {
		if p.Description == desc {
			return p
		}
	}
	panic("no payload " + desc)
}

func TestScenarioPlainTextAcceptsScript(t *testing.T) {
	run, err := inputvalidation.NewRunner(mustDoc(t, `<input type="text" name="comment">`), options(), nil).Run(context.Background())
	require.NoError(t, err)

	findings := run.Results[0].Vulnerabilities
	require.NotEmpty(t, findings)
	assert.Equal(t, inputvalidation.CategoryXSS, findings[0].Category)
	assert.Equal(t, "<script>alert(1)</script>", findings[0].Payload)
}

func TestScenarioTextareaNeverSpecialChars(t *testing.T) {
	out, v := probeOne(t, `<textarea name="bio"></textarea>`, payload("Basic Special Chars"))
	assert.False(t, out.Sanitized)
	assert.False(t, v.Vulnerable)
	assert.Equal(t, inputvalidation.ReasonNotApplicable, v.Reason)
}

func TestScenarioPatternRejectsQuotes(t *testing.T) {
	out, v := probeOne(t, `<form><input name="username" pattern="[A-Za-z0-9_]+"></form>`, payload("Basic SQLi"))
	assert.False(t, out.Valid)
	assert.False(t, v.Vulnerable)
	assert.True(t, v.Applicable)
}

func TestScenarioEmailTypeRejects(t *testing.T) {
	out, v := probeOne(t, `<input type="email" name="email">`, payload("Basic SQLi"))
	assert.False(t, out.Valid)
	assert.False(t, v.Vulnerable)
}

func TestScenarioEmailIsIdempotent(t *testing.T) {
	html := `<input type="email" name="email">`
	_, first := probeOne(t, html, payload("Basic XSS"))
	_, second := probeOne(t, html, payload("Basic XSS"))
	assert.Equal(t, first, second)
	assert.False(t, first.Vulnerable)
}

const reportShapePage = `<form>
<input name="token">
<input type="email" name="contact">
</form>
<script type="text/tengo" data-for="token">
text := import("text")
react := func(event, value) {
	return text.re_replace("[<>:]|[^\\x00-\\x7f]", value, "")
}
</script>`

func TestScenarioReportShape(t *testing.T) {
	doc := mustDoc(t, reportShapePage)
	var progress []inputvalidation.Progress
	rep := &progressReporter{fn: func(p inputvalidation.Progress) { progress = append(progress, p) }}

	run, err := inputvalidation.NewRunner(doc, options(), rep).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, run.Results, 2)
	assert.Equal(t, 16, run.TotalProbes)
	assert.Equal(t, 2, run.Summary.TotalFields)
	assert.Equal(t, 1, run.Summary.VulnerableFields)
	assert.Equal(t, 1, run.Summary.SafeFields)

	token := run.Results[0]
	require.Len(t, token.Vulnerabilities, 1)
	assert.Equal(t, "Basic Special Chars", token.Vulnerabilities[0].Description)
	assert.Equal(t, "Special Characters", token.Vulnerabilities[0].Type)
	assert.True(t, run.Results[1].IsSafe)

	require.Len(t, progress, 16)
	assert.InDelta(t, 100.0, progress[15].Percent, 1e-9)

	for i := range 2 {
		v, err := doc.Value(i)
		require.NoError(t, err)
		assert.Empty(t, v)
	}
}

func TestScenarioFieldRemovedMidRun(t *testing.T) {
	doc := mustDoc(t, `<input name="a"><input name="comment">`)
	rep := &progressReporter{fn: func(p inputvalidation.Progress) {
		if p.Completed == 2 {
			doc.Remove(0)
		}
	}}

	run, err := inputvalidation.NewRunner(doc, options(), rep).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, run.Results[0].Failures, 6)
	assert.False(t, run.Results[1].IsSafe)
	assert.Equal(t, 16, run.CompletedProbes)
}

func mustDoc(t *testing.T, html string) *fakedom.Document {
	t.Helper()
	doc, err := fakedom.ParseString(html, "https://example.com/")
	require.NoError(t, err)
	return doc
}

type progressReporter struct {
	inputvalidation.NopReporter
	fn func(inputvalidation.Progress)
}

func (r *progressReporter) OnProgress(_ context.Context, p inputvalidation.Progress) {
	r.fn(p)
}
