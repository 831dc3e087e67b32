package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// sessionHook forwards the events of a probe_page run to the calling
// session: progress as progress notifications, errors as log messages.
// It implements dispatcher.Hook.
type sessionHook struct {
	req *mcp.CallToolRequest
}

func (h *sessionHook) OnEvent(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.StartEvent:
		logToSession(ctx, h.req, logInfo, fmt.Sprintf("testing %d fields on %s (%d probes)", e.TotalFields, e.Target, e.TotalProbes))
	case *events.ProgressEvent:
		notifyProgress(ctx, h.req, float64(e.Completed), float64(e.Total), e.CurrentField)
	case *events.ErrorEvent:
		logToSession(ctx, h.req, logWarning, e.Error)
	}
	return nil
}

func (h *sessionHook) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeStart, events.EventTypeProgress, events.EventTypeError}
}
