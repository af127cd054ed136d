// Package metrics - Prometheus metrics for the occupancy pipeline.
package metrics

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nvr-ai/go-parking/occupancy"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame counters
	FramesSeen      atomic.Uint64
	FramesSkipped   atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesFailed    atomic.Uint64

	stageErrors   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	spots         *prometheus.GaugeVec

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parking_stage_errors_total",
				Help: "Frames that failed, by pipeline stage",
			},
			[]string{"stage"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parking_stage_duration_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		spots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "parking_spots",
				Help: "Spot counts of the last processed frame, by category and state (total, occupied, free)",
			},
			[]string{"category", "state"},
		),
	}

	m.registerPrometheusMetrics()

	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "parking_frames_seen_total",
			Help: "Total frames read from the video source",
		},
		func() float64 { return float64(m.FramesSeen.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "parking_frames_skipped_total",
			Help: "Total frames skipped by the sampling interval",
		},
		func() float64 { return float64(m.FramesSkipped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "parking_frames_processed_total",
			Help: "Total frames whose availability was published",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "parking_frames_failed_total",
			Help: "Total sampled frames that failed",
		},
		func() float64 { return float64(m.FramesFailed.Load()) },
	))

	m.registry.MustRegister(m.stageErrors, m.stageDuration, m.spots)
}

// FrameSeen counts a frame read from the source.
func (m *Metrics) FrameSeen() {
	if m == nil {
		return
	}
	m.FramesSeen.Add(1)
}

// FrameSkipped counts a frame the scheduler skipped.
func (m *Metrics) FrameSkipped() {
	if m == nil {
		return
	}
	m.FramesSkipped.Add(1)
}

// FrameFailed counts a sampled frame that failed in stage.
func (m *Metrics) FrameFailed(stage string) {
	if m == nil {
		return
	}
	m.FramesFailed.Add(1)
	m.stageErrors.WithLabelValues(stage).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetAvailability publishes the counts of a processed frame.
func (m *Metrics) SetAvailability(availability []occupancy.Availability) {
	if m == nil {
		return
	}
	m.FramesProcessed.Add(1)
	for _, a := range availability {
		category := a.Category.String()
		m.spots.WithLabelValues(category, "total").Set(float64(a.Total))
		m.spots.WithLabelValues(category, "occupied").Set(float64(a.Occupied))
		m.spots.WithLabelValues(category, "free").Set(float64(a.Free))
	}
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "metrics server on %s", addr)
	}
	return nil
}
