package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
	"github.com/fieldprobe/fieldprobe/pkg/output/dispatcher"
	"github.com/fieldprobe/fieldprobe/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook exposes run metrics for Prometheus scraping.
// Metrics use a private registry and are labelled by target host.
type PrometheusHook struct {
	server   *http.Server
	registry *prometheus.Registry
	opts     PrometheusOptions

	// Counters
	runsTotal     *prometheus.CounterVec
	probesTotal   *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	failedTotal   *prometheus.CounterVec

	// Gauges
	fields   *prometheus.GaugeVec
	progress *prometheus.GaugeVec

	// Histograms
	runDuration *prometheus.HistogramVec

	mu      sync.Mutex
	targets map[string]string // run ID to host
	probed  map[string]int    // run ID to probes already counted
	closed  bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Port for the metrics server (default: 9090). A negative port
	// disables the server; Handler can still be mounted elsewhere.
	Port int

	// Path for the metrics endpoint (default: "/metrics").
	Path string

	// ReadTimeout for the HTTP server (default: 5s).
	ReadTimeout time.Duration

	// WriteTimeout for the HTTP server (default: 10s).
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// NewPrometheusHook creates the hook and starts its metrics server.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Port == 0 {
		opts.Port = defaults.MetricsPort
	}
	if opts.Path == "" {
		opts.Path = defaults.MetricsPath
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = duration.ServerRead
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = duration.ServerWrite
	}
	opts.Logger = orDefault(opts.Logger)

	hook := &PrometheusHook{
		registry: prometheus.NewRegistry(),
		opts:     opts,
		targets:  make(map[string]string),
		probed:   make(map[string]int),
	}
	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if opts.Port > 0 {
		hook.startServer()
	}
	return hook, nil
}

func (h *PrometheusHook) initMetrics() error {
	h.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldprobe_runs_total",
		Help: "Test runs by outcome (complete or an error kind)",
	}, []string{"target", "outcome"})

	h.probesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldprobe_probes_total",
		Help: "Probes executed",
	}, []string{"target"})

	h.findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldprobe_findings_total",
		Help: "Vulnerability findings by category",
	}, []string{"target", "category"})

	h.failedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldprobe_failed_probes_total",
		Help: "Probes that could not access the field",
	}, []string{"target"})

	h.fields = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fieldprobe_fields",
		Help: "Fields in the last finished run by state (vulnerable or safe)",
	}, []string{"target", "state"})

	h.progress = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fieldprobe_run_progress_percent",
		Help: "Progress of the current run",
	}, []string{"target"})

	h.runDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldprobe_run_duration_seconds",
		Help:    "Duration of finished runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"target"})

	for _, c := range []prometheus.Collector{
		h.runsTotal, h.probesTotal, h.findingsTotal, h.failedTotal,
		h.fields, h.progress, h.runDuration,
	} {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the hook's registry.
func (h *PrometheusHook) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the private registry, mainly for tests.
func (h *PrometheusHook) Registry() *prometheus.Registry { return h.registry }

func (h *PrometheusHook) startServer() {
	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, h.Handler())

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.opts.Port),
		Handler:      mux,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
	}
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.opts.Logger.Warn("prometheus: metrics server error", slog.String("error", err.Error()))
		}
	}()
}

// OnEvent updates metrics from one event.
func (h *PrometheusHook) OnEvent(_ context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	id := event.RunID()
	switch e := event.(type) {
	case *events.StartEvent:
		h.targets[id] = extractHost(e.Target)
		h.progress.WithLabelValues(h.targets[id]).Set(0)
	case *events.ProgressEvent:
		target := h.target(id)
		if delta := e.Completed - h.probed[id]; delta > 0 {
			h.probesTotal.WithLabelValues(target).Add(float64(delta))
			h.probed[id] = e.Completed
		}
		h.progress.WithLabelValues(target).Set(float64(e.Progress))
	case *events.ResultsEvent:
		target := extractHost(e.URL)
		h.runsTotal.WithLabelValues(target, "complete").Inc()
		h.fields.WithLabelValues(target, "vulnerable").Set(float64(e.Summary.VulnerableFields))
		h.fields.WithLabelValues(target, "safe").Set(float64(e.Summary.SafeFields))
		h.failedTotal.WithLabelValues(target).Add(float64(e.Summary.FailedProbes))
		for _, r := range e.Results {
			for _, f := range r.Vulnerabilities {
				h.findingsTotal.WithLabelValues(target, f.Category.String()).Inc()
			}
		}
		if e.Run != nil {
			h.runDuration.WithLabelValues(target).Observe(e.Run.Duration().Seconds())
		}
		h.forget(id)
	case *events.ErrorEvent:
		h.runsTotal.WithLabelValues(h.target(id), e.Kind).Inc()
		h.forget(id)
	}
	return nil
}

func (h *PrometheusHook) target(runID string) string {
	if t, ok := h.targets[runID]; ok {
		return t
	}
	return "unknown"
}

func (h *PrometheusHook) forget(runID string) {
	delete(h.targets, runID)
	delete(h.probed, runID)
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeProgress,
		events.EventTypeResults,
		events.EventTypeError,
	}
}

// Close shuts down the metrics server.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), duration.ServerShutdown)
		defer cancel()
		return h.server.Shutdown(ctx)
	}
	return nil
}

// MetricsAddr returns the address where metrics are served.
func (h *PrometheusHook) MetricsAddr() string {
	return fmt.Sprintf("http://localhost:%d%s", h.opts.Port, h.opts.Path)
}

// extractHost returns the host of rawURL for use as a metric label, or
// "unknown" when there is none. file:// fixtures are labelled "file".
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	if u.Host != "" {
		return u.Host
	}
	if u.Scheme == "file" {
		return "file"
	}
	return "unknown"
}
