package metrics

import (
	"medik8s/gathertrim/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// TrimMetrics tracks per-file outcomes of the trimming engine.
//
// Metrics:
//   - gathertrim_trim_files_total: Files processed by kind and outcome
//   - gathertrim_trim_bytes_discarded_total: Bytes dropped from live files
//   - gathertrim_trim_file_duration_seconds: Time spent per file
type TrimMetrics struct {
	filesTotal     *prometheus.CounterVec
	bytesDiscarded *prometheus.CounterVec
	fileDuration   *prometheus.HistogramVec
}

// NewTrimMetrics creates and registers trim metrics with the provided registry.
func NewTrimMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TrimMetrics {
	tm := &TrimMetrics{
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "trim",
				Name:      "files_total",
				Help:      "Total number of log files processed by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		bytesDiscarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "trim",
				Name:      "bytes_discarded_total",
				Help:      "Total number of bytes discarded from live log files",
			},
			[]string{"kind"},
		),

		fileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "trim",
				Name:      "file_duration_seconds",
				Help:      "Time spent locating the cut and rewriting one file",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		tm.filesTotal,
		tm.bytesDiscarded,
		tm.fileDuration,
	)

	return tm
}
