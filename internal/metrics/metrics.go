// Package metrics provides Prometheus metrics for scoring and selection runs.
//
// Metrics live on a private registry. Batch runs export them with
// WriteTextfile for the node_exporter textfile collector; nothing listens on
// a port.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns the metric collectors of one process.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	imagesScored    prometheus.Counter
	scoringErrors   prometheus.Counter
	scoringLatency  prometheus.Histogram
	framesExtracted prometheus.Counter
	selectionRuns   *prometheus.CounterVec
	imagesSelected  prometheus.Gauge
	imagesDiscarded prometheus.Gauge
	selectionSplit  prometheus.Gauge
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets (seconds) for the scoring latency.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers collectors on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a manager with its collectors registered.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sharp_frames",
		histogramBuckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.imagesScored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scoring",
		Name:      "images_total",
		Help:      "Images whose sharpness was computed.",
	})
	m.scoringErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "scoring",
		Name:      "errors_total",
		Help:      "Images that could not be scored.",
	})
	m.scoringLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "scoring",
		Name:      "duration_seconds",
		Help:      "Time to load, prepare and score one image.",
		Buckets:   m.histogramBuckets,
	})
	m.framesExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "extract",
		Name:      "frames_total",
		Help:      "Frames extracted from video input.",
	})
	m.selectionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "selection",
		Name:      "runs_total",
		Help:      "Selection runs by strategy.",
	}, []string{"strategy"})
	m.imagesSelected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "selection",
		Name:      "selected_images",
		Help:      "Images retained by the last selection.",
	})
	m.imagesDiscarded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "selection",
		Name:      "discarded_images",
		Help:      "Images discarded by the last selection.",
	})
	m.selectionSplit = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "selection",
		Name:      "split_ratio",
		Help:      "Candidates per retained image in the last selection.",
	})

	m.registry.MustRegister(
		m.imagesScored,
		m.scoringErrors,
		m.scoringLatency,
		m.framesExtracted,
		m.selectionRuns,
		m.imagesSelected,
		m.imagesDiscarded,
		m.selectionSplit,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// RecordImageScored counts one scored image and its latency in seconds.
func (m *Manager) RecordImageScored(seconds float64) {
	m.imagesScored.Inc()
	m.scoringLatency.Observe(seconds)
}

// RecordScoringError counts one image that failed to score.
func (m *Manager) RecordScoringError() { m.scoringErrors.Inc() }

// RecordFramesExtracted counts frames produced by video extraction.
func (m *Manager) RecordFramesExtracted(n int) { m.framesExtracted.Add(float64(n)) }

// RecordSelection records the outcome of one selection run.
func (m *Manager) RecordSelection(strategy string, selected, candidates int, split float64) {
	m.selectionRuns.WithLabelValues(strategy).Inc()
	m.imagesSelected.Set(float64(selected))
	m.imagesDiscarded.Set(float64(candidates - selected))
	m.selectionSplit.Set(split)
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

var global = NewManager()

// Default returns the process-wide manager.
func Default() *Manager { return global }
