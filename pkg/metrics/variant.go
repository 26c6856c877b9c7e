package metrics

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/variant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// variantMetrics is the Prometheus implementation of variant.Metrics.
type variantMetrics struct {
	lookups        *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	purged         prometheus.Counter
}

// NewVariantMetrics creates a Prometheus-backed variant.Metrics, or nil
// when metrics are disabled.
func NewVariantMetrics() variant.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &variantMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_variant_lookups_total",
				Help: "Variant cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		),
		renders: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_variant_renders_total",
				Help: "Variant renders by outcome",
			},
			[]string{"status"},
		),
		renderDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "dittodrive_variant_render_duration_seconds",
				Help: "Time spent decoding, resizing and encoding a variant",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1,     // 1s
					5,     // 5s
				},
			},
		),
		purged: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_variant_purged_total",
				Help: "Cached variants removed when their file was purged",
			},
		),
	}
}

// RecordHit implements variant.Metrics.RecordHit
func (m *variantMetrics) RecordHit() {
	m.lookups.WithLabelValues("hit").Inc()
}

// RecordMiss implements variant.Metrics.RecordMiss
func (m *variantMetrics) RecordMiss() {
	m.lookups.WithLabelValues("miss").Inc()
}

// ObserveRender implements variant.Metrics.ObserveRender
func (m *variantMetrics) ObserveRender(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.renders.WithLabelValues(status).Inc()
	m.renderDuration.Observe(duration.Seconds())
}

// RecordPurged implements variant.Metrics.RecordPurged
func (m *variantMetrics) RecordPurged(count int) {
	m.purged.Add(float64(count))
}
