package metrics

import (
	"medik8s/gathertrim/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the collect and schedule pipelines.
//
// Metrics:
//   - gathertrim_stage_duration_seconds: Duration of each pipeline stage
//   - gathertrim_stages_total: Stage executions by outcome
//   - gathertrim_runs_total: Runs by mode and outcome
//   - gathertrim_last_success_timestamp_seconds: Unix time of the last good run
//   - gathertrim_backups_restored_total: Backups moved back after archiving
//   - gathertrim_archive_size_bytes: Size of the last archive
//   - gathertrim_archive_files: Entries in the last archive
type PipelineMetrics struct {
	stageDuration   *prometheus.HistogramVec
	stagesTotal     *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	lastSuccess     prometheus.Gauge
	backupsRestored prometheus.Counter
	archiveSize     prometheus.Gauge
	archiveFiles    prometheus.Gauge
}

// NewPipelineMetrics creates and registers pipeline metrics with the provided registry.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	pm := &PipelineMetrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8), // 100ms to ~27m
			},
			[]string{"stage"},
		),

		stagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stages_total",
				Help:      "Total number of pipeline stage executions",
			},
			[]string{"stage", "status"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total number of runs by mode and outcome",
			},
			[]string{"mode", "status"},
		),

		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix timestamp of the last successful run",
			},
		),

		backupsRestored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "backups_restored_total",
				Help:      "Total number of backups restored over trimmed files",
			},
		),

		archiveSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "archive_size_bytes",
				Help:      "Size of the most recent archive in bytes",
			},
		),

		archiveFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "archive_files",
				Help:      "Number of files in the most recent archive",
			},
		),
	}

	registry.MustRegister(
		pm.stageDuration,
		pm.stagesTotal,
		pm.runsTotal,
		pm.lastSuccess,
		pm.backupsRestored,
		pm.archiveSize,
		pm.archiveFiles,
	)

	return pm
}
