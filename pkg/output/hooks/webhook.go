package hooks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/httpclient"
	"github.com/fieldprobe/fieldprobe/pkg/iohelper"
	"github.com/fieldprobe/fieldprobe/pkg/jsonutil"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*WebhookHook)(nil)

// WebhookHook posts the outcome of each run (results or error) as JSON to an
// HTTP endpoint.
type WebhookHook struct {
	endpoint string
	client   *http.Client
	opts     WebhookOptions
	logger   *slog.Logger
}

// WebhookOptions configures the webhook hook behavior.
type WebhookOptions struct {
	// Headers to include in requests.
	Headers map[string]string

	// Timeout for one delivery attempt (default: 10s).
	Timeout time.Duration

	// RetryCount is the number of attempts (default: 3).
	RetryCount int

	// RetryDelay is the first backoff; it doubles per attempt (default: 1s).
	RetryDelay time.Duration

	// OnlyFindings skips runs without vulnerable fields.
	OnlyFindings bool

	Logger *slog.Logger
}

// NewWebhookHook creates a webhook hook posting to endpoint.
func NewWebhookHook(endpoint string, opts WebhookOptions) (*WebhookHook, error) {
	if opts.Timeout == 0 {
		opts.Timeout = duration.WebhookTimeout
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = duration.HTTPRetry
	}

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = opts.Timeout
	cfg.TLSProfile = "none"
	cfg.RetryCount = 0
	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("webhook client: %w", err)
	}
	return &WebhookHook{endpoint: endpoint, client: client, opts: opts, logger: orDefault(opts.Logger)}, nil
}

// OnEvent delivers results and error events. Delivery failures are logged,
// never returned: a webhook outage must not fail the run.
func (h *WebhookHook) OnEvent(ctx context.Context, event events.Event) error {
	if h.opts.OnlyFindings {
		r, ok := event.(*events.ResultsEvent)
		if !ok || r.Summary.VulnerableFields == 0 {
			return nil
		}
	}

	body, err := jsonutil.Marshal(event)
	if err != nil {
		h.logger.Warn("webhook: failed to marshal event", slog.String("error", err.Error()))
		return nil
	}
	if err := h.sendWithRetry(ctx, event.EventType(), body); err != nil {
		h.logger.Warn("webhook: failed to send event after retries",
			slog.String("endpoint", h.endpoint),
			slog.String("error", err.Error()))
	}
	return nil
}

// EventTypes returns the run outcome events.
func (h *WebhookHook) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeResults, events.EventTypeError}
}

func (h *WebhookHook) sendWithRetry(ctx context.Context, eventType events.EventType, body []byte) error {
	var lastErr error
	backoff := h.opts.RetryDelay
	for attempt := 0; attempt < h.opts.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		retry, err := h.send(ctx, eventType, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

// send performs one attempt and reports whether a failure is worth retrying.
func (h *WebhookHook) send(ctx context.Context, eventType events.EventType, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaults.ToolName+"/"+defaults.Version)
	req.Header.Set("X-Fieldprobe-Event", string(eventType))
	for k, v := range h.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("request failed: %w", err)
	}
	iohelper.DrainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error: %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("client error: %d", resp.StatusCode)
	}
}
