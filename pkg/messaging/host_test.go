package messaging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldprobe/fieldprobe/pkg/fakedom"
	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/writers"
)

const fixture = `<form>
<input name="token">
<input type="email" name="contact">
</form>
<script type="text/tengo" data-for="token">
text := import("text")
react := func(event, value) {
	return text.re_replace("[<>:]|[^\\x00-\\x7f]", value, "")
}
</script>`

type message map[string]any

func newTestHost(t *testing.T, open OpenFunc) (*Host, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	d := dispatcher.New(dispatcher.Config{})
	d.RegisterWriter(writers.NewJSONLWriter(&out, writers.JSONLOptions{}))
	t.Cleanup(func() { _ = d.Close() })

	opts := inputvalidation.DefaultOptions()
	opts.SettleDelay = time.Millisecond
	opts.ProbeInterval = 0
	return NewHost(HostConfig{Open: open, Options: opts, Dispatcher: d}), &out
}

func fixtureOpener(html string) OpenFunc {
	return func(_ context.Context, url string) (inputvalidation.Page, func(), error) {
		doc, err := fakedom.ParseString(html, url)
		return doc, nil, err
	}
}

func decode(t *testing.T, out *bytes.Buffer) []message {
	t.Helper()
	var msgs []message
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var m message
		require.NoError(t, jsonutil.Unmarshal([]byte(line), &m), line)
		msgs = append(msgs, m)
	}
	return msgs
}

func ofType(msgs []message, typ string) []message {
	var out []message
	for _, m := range msgs {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func TestHostStartTesting(t *testing.T) {
	h, out := newTestHost(t, fixtureOpener(fixture))
	err := h.Serve(context.Background(), strings.NewReader(`{"action":"startTesting","url":"https://example.com/form"}`+"\n"))
	require.NoError(t, err)

	msgs := decode(t, out)
	require.GreaterOrEqual(t, len(msgs), 4)

	assert.Equal(t, "ack", msgs[0]["type"])
	assert.Equal(t, "received", msgs[0]["status"])
	runID := msgs[0]["run_id"]
	assert.NotEmpty(t, runID)

	assert.Equal(t, "progress", msgs[1]["type"])
	assert.Equal(t, float64(0), msgs[1]["progress"])
	assert.Equal(t, "Starting test...", msgs[1]["currentField"])

	for _, m := range msgs {
		assert.Equal(t, runID, m["run_id"])
		assert.NotEmpty(t, m["timestamp"])
	}

	progress := ofType(msgs, "progress")[1:]
	require.Len(t, progress, 16)
	last := -1.0
	for _, p := range progress {
		done := p["completed"].(float64)
		assert.Greater(t, done, last)
		last = done
	}
	assert.Equal(t, float64(100), progress[len(progress)-1]["progress"])

	results := ofType(msgs, "results")
	require.Len(t, results, 1)
	summary := results[0]["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["totalFields"])
	assert.Equal(t, float64(1), summary["vulnerableFields"])
	assert.Equal(t, float64(1), summary["safeFields"])
	assert.Empty(t, ofType(msgs, "error"))
	assert.Empty(t, h.Active())
}

func TestHostBusy(t *testing.T) {
	gate := make(chan struct{})
	open := func(ctx context.Context, url string) (inputvalidation.Page, func(), error) {
		<-gate
		return fixtureOpener(fixture)(ctx, url)
	}
	h, out := newTestHost(t, open)
	ctx := context.Background()

	h.Handle(ctx, []byte(`{"action":"startTesting","url":"https://example.com/"}`))
	first := h.Active()
	require.NotEmpty(t, first)

	h.Handle(ctx, []byte(`{"action":"startTesting","url":"https://example.com/other"}`))
	close(gate)
	h.Wait()

	acks := ofType(decode(t, out), "ack")
	require.Len(t, acks, 2)
	assert.Equal(t, "received", acks[0]["status"])
	assert.Equal(t, "busy", acks[1]["status"])
	assert.Equal(t, first, acks[1]["run_id"])
	assert.Len(t, ofType(decode(t, out), "results"), 1)
}

func TestHostRejectsCommands(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"unknown action", `{"action":"stopTesting"}`, `unknown action "stopTesting"`},
		{"malformed", `{"action":`, "malformed command"},
		{"missing url", `{"action":"startTesting"}`, "malformed command: startTesting requires a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, out := newTestHost(t, fixtureOpener(fixture))
			h.Handle(context.Background(), []byte(tt.line))
			h.Wait()

			msgs := decode(t, out)
			require.Len(t, msgs, 1)
			assert.Equal(t, "error", msgs[0]["type"])
			assert.Equal(t, "command", msgs[0]["error_kind"])
			assert.Contains(t, msgs[0]["error"], tt.want)
		})
	}
}

func TestHostRunErrors(t *testing.T) {
	tests := []struct {
		name string
		url  string
		open OpenFunc
		kind string
	}{
		{"system page", "chrome://settings", fixtureOpener(fixture), "system_page"},
		{"no fields", "https://example.com/", fixtureOpener(`<p>nothing here</p>`), "no_fields"},
		{"open failure", "https://example.com/", func(context.Context, string) (inputvalidation.Page, func(), error) {
			return nil, nil, errors.New("connection refused")
		}, "enumerate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, out := newTestHost(t, tt.open)
			h.Handle(context.Background(), []byte(`{"action":"startTesting","url":"`+tt.url+`"}`))
			h.Wait()

			msgs := decode(t, out)
			errs := ofType(msgs, "error")
			require.Len(t, errs, 1)
			assert.Equal(t, tt.kind, errs[0]["error_kind"])
			assert.Equal(t, msgs[0]["run_id"], errs[0]["run_id"])
			assert.Empty(t, ofType(msgs, "results"))
		})
	}
}

func TestHostReleasesPage(t *testing.T) {
	released := make(chan struct{})
	open := func(ctx context.Context, url string) (inputvalidation.Page, func(), error) {
		doc, err := fakedom.ParseString(fixture, url)
		return doc, func() { close(released) }, err
	}
	h, _ := newTestHost(t, open)
	require.NoError(t, h.Serve(context.Background(), strings.NewReader("\n"+`{"action":"startTesting","url":"https://example.com/"}`+"\n\n")))

	select {
	case <-released:
	default:
		t.Fatal("page not released")
	}
}

func TestHostCancelled(t *testing.T) {
	h, out := newTestHost(t, fixtureOpener(fixture))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.Handle(ctx, []byte(`{"action":"startTesting","url":"https://example.com/"}`))
	h.Wait()

	errs := ofType(decode(t, out), "error")
	require.Len(t, errs, 1)
	assert.Contains(t, []any{"cancelled", "enumerate"}, errs[0]["error_kind"])
}
