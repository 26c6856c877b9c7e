package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// driveMetrics is the Prometheus implementation of drive.Metrics.
type driveMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	uploadBytes       prometheus.Histogram
	purgedNodes       *prometheus.CounterVec
	purgedBytes       prometheus.Counter
}

// NewDriveMetrics creates a Prometheus-backed drive.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the drive use its built-in no-op implementation.
func NewDriveMetrics() drive.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &driveMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_operations_total",
				Help: "Total number of drive operations by operation and outcome",
			},
			[]string{"operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodrive_operation_duration_seconds",
				Help: "Duration of drive operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms
					1,      // 1s
					10,     // 10s
				},
			},
			[]string{"operation"},
		),
		uploadBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittodrive_upload_bytes",
				Help:    "Size of accepted uploads in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 11), // 1KiB .. 1GiB
			},
		),
		purgedNodes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_purged_nodes_total",
				Help: "Total number of nodes permanently removed, by kind",
			},
			[]string{"kind"},
		),
		purgedBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_purged_bytes_total",
				Help: "Total bytes of file content permanently removed",
			},
		),
	}
}

// ObserveOperation implements drive.Metrics.ObserveOperation
func (m *driveMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	status := "success"
	code := errorCode(err)
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(op, status, code).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordUpload implements drive.Metrics.RecordUpload
func (m *driveMetrics) RecordUpload(bytes int64) {
	m.uploadBytes.Observe(float64(bytes))
}

// RecordPurge implements drive.Metrics.RecordPurge
func (m *driveMetrics) RecordPurge(folders, files int, bytes int64) {
	m.purgedNodes.WithLabelValues(metadata.KindFolder.String()).Add(float64(folders))
	m.purgedNodes.WithLabelValues(metadata.KindFile.String()).Add(float64(files))
	m.purgedBytes.Add(float64(bytes))
}

// errorCode maps an operation error onto a bounded label value.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := metadata.AsValidationErrors(err); ok {
		return "validation"
	}
	if code, ok := metadata.ErrorCodeOf(err); ok {
		return code.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "internal"
}
