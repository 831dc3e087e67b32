package inputvalidation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerRun(t *testing.T) {
	comment := textField("comment")
	email := textField("email")
	email.el.Type = "email"
	email.validate = func(v string) (bool, string) {
		if v == "" || (strings.Count(v, "@") == 1 && !strings.ContainsAny(v, " <>'\"&()")) {
			return true, ""
		}
		return false, "Please enter an email address."
	}
	page := newFakePage(comment, email)
	rep := &recordingReporter{}

	run, err := NewRunner(page, fastOptions(), rep).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, page.url, run.URL)
	assert.Equal(t, CatalogVersion, run.CatalogVersion)
	assert.Equal(t, 16, run.TotalProbes)
	assert.Equal(t, 16, run.CompletedProbes)
	require.Len(t, run.Results, 2)

	c := run.Results[0]
	assert.Equal(t, "comment", c.FieldName)
	assert.Equal(t, "text", c.FieldType)
	assert.False(t, c.IsSafe)
	// three XSS payloads and two special character payloads; not a database field
	require.Len(t, c.Vulnerabilities, 5)
	assert.Equal(t, "Cross-Site Scripting (XSS)", c.Vulnerabilities[0].Type)
	assert.Equal(t, "<script>alert(1)</script>", c.Vulnerabilities[0].Payload)
	assert.Equal(t, "Basic XSS", c.Vulnerabilities[0].Description)
	assert.Equal(t, ValidationInfo{InputType: "text"}, c.Vulnerabilities[0].ValidationInfo)
	assert.NotEmpty(t, c.Fingerprint)

	e := run.Results[1]
	assert.Equal(t, "email", e.FieldType)
	assert.True(t, e.IsSafe)
	assert.Empty(t, e.Vulnerabilities)
	assert.NotNil(t, e.Vulnerabilities)

	assert.Equal(t, Summary{TotalFields: 2, VulnerableFields: 1, SafeFields: 1, TotalFindings: 5}, run.Summary)
	assert.Same(t, run, rep.started)
	assert.Same(t, run, rep.complete)
	assert.Empty(t, rep.errs)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.Equal(t, 2, run.TotalFields)
}

func TestRunnerRunID(t *testing.T) {
	opts := fastOptions()
	opts.RunID = "run-42"
	run, err := NewRunner(newFakePage(textField("q")), opts, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-42", run.ID)
}

func TestRunnerProgressIsMonotonic(t *testing.T) {
	page := newFakePage(textField("a"), textField("b"), textField("c"))
	rep := &recordingReporter{}

	_, err := NewRunner(page, fastOptions(), rep).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.progress, 24)
	for i, p := range rep.progress {
		assert.Equal(t, i+1, p.Completed)
		assert.Equal(t, 24, p.Total)
		if i > 0 {
			assert.GreaterOrEqual(t, p.Percent, rep.progress[i-1].Percent)
		}
	}
	assert.InDelta(t, 100.0, rep.progress[23].Percent, 0.0001)
	assert.Equal(t, "a", rep.progress[0].CurrentField)
	assert.Equal(t, "c", rep.progress[23].CurrentField)
}

func TestRunnerCategories(t *testing.T) {
	page := newFakePage(textField("username"))
	opts := fastOptions()
	opts.Categories = []Category{CategorySQLi}

	run, err := NewRunner(page, opts, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, run.TotalProbes)
	assert.Equal(t, []Category{CategorySQLi}, run.Categories)
	require.Len(t, run.Results[0].Vulnerabilities, 3)
	for _, f := range run.Results[0].Vulnerabilities {
		assert.Equal(t, CategorySQLi, f.Category)
	}
}

func TestRunnerEnumerationErrors(t *testing.T) {
	t.Run("no fields", func(t *testing.T) {
		rep := &recordingReporter{}
		run, err := NewRunner(newFakePage(), fastOptions(), rep).Run(context.Background())
		assert.ErrorIs(t, err, ErrNoFields)
		assert.Nil(t, run)
		require.Len(t, rep.errs, 1)
		assert.Nil(t, rep.started)
		assert.Empty(t, rep.progress)
	})

	t.Run("document inaccessible", func(t *testing.T) {
		page := newFakePage(textField("a"))
		page.enumErr = errDetached
		_, err := NewRunner(page, fastOptions(), nil).Run(context.Background())
		assert.ErrorIs(t, err, ErrEnumerate)
		assert.ErrorIs(t, err, errDetached)
	})

	t.Run("system page", func(t *testing.T) {
		page := newFakePage(textField("a"))
		page.url = "chrome://settings"
		_, err := NewRunner(page, fastOptions(), nil).Run(context.Background())
		assert.ErrorIs(t, err, ErrSystemPage)
	})
}

func TestRunnerProbeFailureDoesNotAbort(t *testing.T) {
	broken := textField("broken")
	broken.gone = true
	page := newFakePage(broken, textField("comment"))
	rep := &recordingReporter{}

	run, err := NewRunner(page, fastOptions(), rep).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Results, 2)

	b := run.Results[0]
	assert.True(t, b.IsSafe)
	assert.Len(t, b.Failures, 8)
	assert.Contains(t, b.Failures[0], "Basic XSS")
	assert.Equal(t, 8, run.Summary.FailedProbes)
	assert.False(t, run.Results[1].IsSafe)
	assert.Len(t, rep.progress, 16)
}

func TestRunnerKeepProbes(t *testing.T) {
	opts := fastOptions()
	opts.KeepProbes = true
	run, err := NewRunner(newFakePage(textField("comment")), opts, nil).Run(context.Background())
	require.NoError(t, err)

	probes := run.Results[0].Probes
	require.Len(t, probes, 8)
	assert.Equal(t, "' OR '1'='1", probes[3].Payload)
	assert.Equal(t, ReasonNotApplicable, probes[3].Verdict.Reason)
}

func TestRunnerCancelBetweenProbes(t *testing.T) {
	page := newFakePage(textField("a"), textField("b"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep := &cancelAfter{n: 3, cancel: cancel}
	run, err := NewRunner(page, fastOptions(), rep).Run(ctx)
	require.ErrorIs(t, err, ErrCancelled)
	require.NotNil(t, run)
	assert.Equal(t, 3, run.CompletedProbes)
	assert.Len(t, rep.progress, 3)
	require.Len(t, rep.errs, 1)
	assert.ErrorIs(t, rep.errs[0], ErrCancelled)
	assert.Nil(t, rep.complete)
	for _, f := range page.fields {
		assert.Empty(t, f.value)
	}
	assert.Empty(t, run.Results, "a field with payloads left is not a result")
	assert.Equal(t, Summary{}, run.Summary)
}

func TestRunnerCancelAfterFirstField(t *testing.T) {
	page := newFakePage(textField("comment"), textField("other"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	perField := len(Catalog())
	rep := &cancelAfter{n: perField, cancel: cancel}
	run, err := NewRunner(page, fastOptions(), rep).Run(ctx)
	require.ErrorIs(t, err, ErrCancelled)
	require.NotNil(t, run)
	assert.Equal(t, perField, run.CompletedProbes)

	require.Len(t, run.Results, 1)
	assert.Equal(t, "comment", run.Results[0].FieldName)
	assert.Equal(t, 1, run.Summary.TotalFields)
	assert.Equal(t, run.Summary.TotalFields, run.Summary.SafeFields+run.Summary.VulnerableFields)
	for _, f := range run.Results {
		assert.NotEqual(t, "other", f.FieldName)
	}
}

func TestRunnerUniqueNames(t *testing.T) {
	a := textField("q")
	b := textField("q")
	c := &fakeField{el: FieldElement{Tag: "input"}}
	run, err := NewRunner(newFakePage(a, b, c), fastOptions(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "q", run.Results[0].FieldName)
	assert.Equal(t, "q[1]", run.Results[1].FieldName)
	assert.Equal(t, "unnamed", run.Results[2].FieldName)
	assert.NotEqual(t, run.Results[0].Fingerprint, run.Results[1].Fingerprint)
}

func TestUniqueNamesAvoidsTakenSuffix(t *testing.T) {
	fields := []FieldElement{
		{Index: 0, Tag: "input", Name: "x[2]"},
		{Index: 1, Tag: "input", Name: "x"},
		{Index: 2, Tag: "input", Name: "x"},
		{Index: 3, Tag: "input", Name: "x[2]"},
	}
	names := uniqueNames(fields)
	assert.Equal(t, []string{"x[2]", "x", "x[2]#2", "x[2][3]"}, names)

	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate name %q", n)
		seen[n] = true
	}
}

func TestRunnerIsIdempotent(t *testing.T) {
	email := textField("email")
	email.el.Type = "email"
	email.react = stripChars("<>")
	email.validate = func(v string) (bool, string) { return !strings.ContainsAny(v, "'\" ()"), "" }
	page := newFakePage(email)

	first, err := NewRunner(page, fastOptions(), nil).Run(context.Background())
	require.NoError(t, err)
	second, err := NewRunner(page, fastOptions(), nil).Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Results[0].Vulnerabilities, second.Results[0].Vulnerabilities)
	assert.Equal(t, first.Results[0].IsSafe, second.Results[0].IsSafe)
}

func TestRunnerProbeInterval(t *testing.T) {
	opts := fastOptions()
	opts.Categories = []Category{CategorySQLi}
	opts.ProbeInterval = 20 * time.Millisecond

	start := time.Now()
	_, err := NewRunner(newFakePage(textField("a")), opts, nil).Run(context.Background())
	require.NoError(t, err)
	// three probes, two gaps
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

type cancelAfter struct {
	recordingReporter
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) OnProgress(ctx context.Context, p Progress) {
	c.recordingReporter.OnProgress(ctx, p)
	if p.Completed == c.n {
		c.cancel()
	}
}

func TestSummaryHelpers(t *testing.T) {
	run := &TestRun{Results: []FieldResult{{FieldName: "a", IsSafe: true}, {FieldName: "b", Vulnerabilities: []Finding{{}}}}}
	run.Summarize()
	assert.Len(t, run.VulnerableResults(), 1)
	assert.Len(t, run.SafeResults(), 1)
	assert.Zero(t, run.Duration())
	assert.Equal(t, 0.0, NewProgress(0, 0, "x").Percent)
}
