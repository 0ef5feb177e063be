// Package metrics exposes scan counters and probe latency for Prometheus
// scraping. A nil *Recorder is valid and records nothing, so callers never
// need to guard metric calls.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/duration"
)

// Probe outcomes used as label values.
const (
	OutcomeVulnerable = "vulnerable"
	OutcomeClean      = "clean"
	OutcomeError      = "error"
)

// Recorder owns a private registry and the waymap collectors.
type Recorder struct {
	registry *prometheus.Registry

	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	urlsTotal     *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
}

// New creates a Recorder with its own registry (the default registry is
// left untouched).
func New() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waymap_probes_total",
				Help: "Total number of injection probes sent, by outcome",
			},
			[]string{"outcome"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waymap_probe_duration_seconds",
				Help:    "Probe round-trip time in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"outcome"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "waymap_probes_in_flight",
			Help: "Number of probes currently awaiting a response",
		}),
		urlsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waymap_urls_total",
				Help: "Total number of target URLs finished, by outcome",
			},
			[]string{"outcome"},
		),
		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waymap_findings_total",
				Help: "Total number of vulnerable URLs, by detected backend",
			},
			[]string{"backend"},
		),
	}

	collectors := []prometheus.Collector{
		r.probesTotal,
		r.probeDuration,
		r.inFlight,
		r.urlsTotal,
		r.findingsTotal,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return r, nil
}

// Registry returns the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ProbeStarted marks one probe as in flight.
func (r *Recorder) ProbeStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// ProbeFinished records a completed probe.
func (r *Recorder) ProbeFinished(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	r.probesTotal.WithLabelValues(outcome).Inc()
	r.probeDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

// ProbeAbandoned clears the in-flight mark of a probe whose batch was
// abandoned. It is not counted as a completed probe.
func (r *Recorder) ProbeAbandoned() {
	if r == nil {
		return
	}
	r.inFlight.Dec()
}

// URLFinished records the outcome of one target URL.
func (r *Recorder) URLFinished(outcome string) {
	if r == nil {
		return
	}
	r.urlsTotal.WithLabelValues(outcome).Inc()
}

// Finding records a vulnerable URL attributed to backend.
func (r *Recorder) Finding(backend string) {
	if r == nil {
		return
	}
	r.findingsTotal.WithLabelValues(backend).Inc()
}

// Handler serves the registry in Prometheus text or OpenMetrics format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes the Recorder at addr until ctx is done, then shuts the
// server down gracefully. It returns nil after a clean shutdown.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", addr, err)
	}
	return r.serve(ctx, ln, logger)
}

func (r *Recorder) serve(ctx context.Context, ln net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle(defaults.MetricsPath, r.Handler())

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  duration.MetricsReadTimeout,
		WriteTimeout: duration.MetricsWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	logger.Info("metrics server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("path", defaults.MetricsPath))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.MetricsShutdown)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	return nil
}
