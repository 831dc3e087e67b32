// Package hooks provides event hooks for live integrations: structured
// logging, Prometheus metrics, OpenTelemetry traces and webhooks.
package hooks

import (
	"context"
	"log/slog"

	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ dispatcher.Hook = (*LoggerHook)(nil)

// LoggerHook logs the lifecycle of a run. Progress is logged at debug.
type LoggerHook struct {
	logger *slog.Logger
}

// NewLoggerHook returns a hook logging to logger, or slog.Default() if nil.
func NewLoggerHook(logger *slog.Logger) *LoggerHook {
	return &LoggerHook{logger: orDefault(logger)}
}

// OnEvent logs one event.
func (h *LoggerHook) OnEvent(ctx context.Context, event events.Event) error {
	run := slog.String("run_id", event.RunID())
	switch e := event.(type) {
	case *events.StartEvent:
		h.logger.InfoContext(ctx, "run started", run,
			slog.String("target", e.Target),
			slog.Int("fields", e.TotalFields),
			slog.Int("probes", e.TotalProbes))
	case *events.ProgressEvent:
		h.logger.DebugContext(ctx, "progress", run,
			slog.Int("percent", e.Progress),
			slog.String("field", e.CurrentField))
	case *events.ResultsEvent:
		h.logger.InfoContext(ctx, "run finished", run,
			slog.String("url", e.URL),
			slog.Int("vulnerable_fields", e.Summary.VulnerableFields),
			slog.Int("safe_fields", e.Summary.SafeFields),
			slog.Int("findings", e.Summary.TotalFindings))
	case *events.ErrorEvent:
		h.logger.WarnContext(ctx, "run failed", run,
			slog.String("kind", e.Kind),
			slog.String("error", e.Error))
	}
	return nil
}

// EventTypes returns nil to receive all events.
func (h *LoggerHook) EventTypes() []events.EventType { return nil }
