package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*OTelHook)(nil)

// OTelHook exports each run as a trace: one root span per run, with progress
// and findings recorded as span events.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	mu     sync.Mutex
	spans  map[string]trace.Span // run ID to root span
	closed bool
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "fieldprobe").
	ServiceName string

	// Insecure uses insecure connection (no TLS).
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout is the timeout for graceful shutdown (default: 5s).
	ShutdownTimeout time.Duration

	// ConnectionTimeout is the timeout for establishing connection (default: 10s).
	ConnectionTimeout time.Duration
}

func (o *OTelOptions) applyDefaults() {
	if o.ServiceName == "" {
		o.ServiceName = defaults.ToolName
	}
	if o.Endpoint == "" {
		o.Endpoint = defaults.OTelEndpoint
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = duration.ServerShutdown
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = duration.TelemetryConnect
	}
}

// NewOTelHook creates a hook exporting over OTLP/gRPC. The exporter
// connects lazily, so an absent collector never blocks a run.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	opts.applyDefaults()

	var grpcOpts []grpc.DialOption
	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	if len(grpcOpts) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithDialOption(grpcOpts...))
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("otel: create exporter: %w", err)
	}

	return newOTelHook(opts, sdktrace.WithBatcher(exporter)), nil
}

// newOTelHook builds the hook around any span processor.
func newOTelHook(opts OTelOptions, processor sdktrace.TracerProviderOption) *OTelHook {
	opts.applyDefaults()

	// Resource is not merged with resource.Default() to avoid schema URL conflicts.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
	)
	tp := sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return &OTelHook{
		opts:           opts,
		tracerProvider: tp,
		tracer:         tp.Tracer(defaults.ToolName + "/prober"),
		spans:          make(map[string]trace.Span),
	}
}

// OnEvent records one event.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	id := event.RunID()
	switch e := event.(type) {
	case *events.StartEvent:
		_, span := h.tracer.Start(ctx, "fieldprobe.run",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithTimestamp(e.Timestamp()),
			trace.WithAttributes(
				attribute.String("run_id", id),
				attribute.String("target", e.Target),
				attribute.String("catalog_version", e.CatalogVersion),
				attribute.StringSlice("categories", e.Categories),
				attribute.Int("total_fields", e.TotalFields),
				attribute.Int("total_probes", e.TotalProbes),
			),
		)
		h.spans[id] = span

	case *events.ProgressEvent:
		if span, ok := h.spans[id]; ok {
			span.AddEvent("probe_completed", trace.WithAttributes(
				attribute.String("field", e.CurrentField),
				attribute.Int("completed", e.Completed),
				attribute.Int("total", e.Total),
				attribute.Int("percent", e.Progress),
			))
		}

	case *events.ResultsEvent:
		span, ok := h.spans[id]
		if !ok {
			return nil
		}
		for _, r := range e.Results {
			for _, f := range r.Vulnerabilities {
				span.AddEvent("finding", trace.WithAttributes(
					attribute.String("field", r.FieldName),
					attribute.String("category", f.Category.String()),
					attribute.String("description", f.Description),
					attribute.String("payload", f.Payload),
				))
			}
		}
		span.SetAttributes(
			attribute.Int("fields.total", e.Summary.TotalFields),
			attribute.Int("fields.vulnerable", e.Summary.VulnerableFields),
			attribute.Int("fields.safe", e.Summary.SafeFields),
			attribute.Int("probes.failed", e.Summary.FailedProbes),
		)
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Timestamp()))
		delete(h.spans, id)

	case *events.ErrorEvent:
		span, ok := h.spans[id]
		if !ok {
			// failed before start: record a short span so the failure is visible
			_, span = h.tracer.Start(ctx, "fieldprobe.run", trace.WithAttributes(attribute.String("run_id", id)))
		}
		span.SetAttributes(attribute.String("error_kind", e.Kind))
		span.SetStatus(codes.Error, e.Error)
		span.End()
		delete(h.spans, id)
	}
	return nil
}

// EventTypes returns the event types this hook handles.
func (h *OTelHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeProgress,
		events.EventTypeResults,
		events.EventTypeError,
	}
}

// Close ends open spans and flushes the tracer provider.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for id, span := range h.spans {
		span.SetStatus(codes.Error, "run did not finish")
		span.End()
		delete(h.spans, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown tracer provider: %w", err)
	}
	return nil
}

// Endpoint returns the OTLP endpoint being used.
func (h *OTelHook) Endpoint() string { return h.opts.Endpoint }

// ServiceName returns the service name being used.
func (h *OTelHook) ServiceName() string { return h.opts.ServiceName }
