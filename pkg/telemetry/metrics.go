package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection on. When false, every method on
	// Metrics is a no-op.
	Enabled bool

	// Namespace is the metric name prefix, e.g. "stackup".
	Namespace string

	// ListenAddr is the optional address for the /metrics endpoint, used
	// by long-running sessions such as `stackup config watch`.
	ListenAddr string
}

// Metrics provides Prometheus metrics for bring-up runs.
type Metrics struct {
	config MetricsConfig

	runsStarted        prometheus.Counter
	runsCompleted      *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	componentsFinished *prometheus.CounterVec
	componentDuration  *prometheus.HistogramVec
	probeAttempts      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "stackup"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of bring-up runs started",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of bring-up runs completed",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of bring-up runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		componentsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "components_finished_total",
			Help:      "Total number of component installs finished, by outcome",
		}, []string{"component", "status"}),
		componentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "component_duration_seconds",
			Help:      "Duration of component installs in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component"}),
		probeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_attempts_total",
			Help:      "Total number of health probe attempts, by outcome",
		}, []string{"target", "outcome"}),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.componentsFinished,
		m.componentDuration,
		m.probeAttempts,
	)

	return m
}

// RunStarted records the start of a run.
func (m *Metrics) RunStarted() {
	if m.registry == nil {
		return
	}
	m.runsStarted.Inc()
}

// RunCompleted records a finished run with its final status.
func (m *Metrics) RunCompleted(status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ComponentFinished records a finished component install.
func (m *Metrics) ComponentFinished(component, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.componentsFinished.WithLabelValues(component, status).Inc()
	m.componentDuration.WithLabelValues(component).Observe(duration.Seconds())
}

// ProbeAttempt records a single health probe attempt.
func (m *Metrics) ProbeAttempt(target, outcome string) {
	if m.registry == nil {
		return
	}
	m.probeAttempts.WithLabelValues(target, outcome).Inc()
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the metrics HTTP listener when ListenAddr is configured.
// It blocks, so callers run it in a goroutine.
func (m *Metrics) Serve() error {
	if m.registry == nil || m.config.ListenAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              m.config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics listener failed: %w", err)
	}
	return nil
}
