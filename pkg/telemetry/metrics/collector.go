package metrics

import (
	"fmt"
	"time"

	"medik8s/gathertrim/pkg/config"
	"medik8s/gathertrim/pkg/trim"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the Prometheus registry of gathertrim and records every
// metric. It satisfies trim.Recorder, so a walker reports to it directly.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	trimMetrics     *TrimMetrics
	pipelineMetrics *PipelineMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is used.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	walker := trim.NewWalker(walkerCfg, trim.WithRecorder(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		trimMetrics:     NewTrimMetrics(cfg, registry),
		pipelineMetrics: NewPipelineMetrics(cfg, registry),
	}
}

// RecordFile implements trim.Recorder.
func (c *Collector) RecordFile(kind trim.Kind, outcome string, discarded int64, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.trimMetrics.filesTotal.WithLabelValues(string(kind), outcome).Inc()
	if discarded > 0 {
		c.trimMetrics.bytesDiscarded.WithLabelValues(string(kind)).Add(float64(discarded))
	}
	c.trimMetrics.fileDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// RecordRestore records how many backups a restore moved back.
func (c *Collector) RecordRestore(restored int) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.backupsRestored.Add(float64(restored))
}

// RecordArchive records the size and entry count of the last archive.
func (c *Collector) RecordArchive(sizeBytes int64, files int) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.archiveSize.Set(float64(sizeBytes))
	c.pipelineMetrics.archiveFiles.Set(float64(files))
}

// RecordStage records the duration and outcome of one pipeline stage
// ("gather", "trim", "archive", "restore", "upload").
func (c *Collector) RecordStage(stage string, err error, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	c.pipelineMetrics.stagesTotal.WithLabelValues(stage, statusOf(err)).Inc()
}

// RecordRun records a finished run of the given mode ("collect", "trim",
// "schedule").
func (c *Collector) RecordRun(mode string, err error, finished time.Time) {
	if !c.config.Enabled {
		return
	}
	c.pipelineMetrics.runsTotal.WithLabelValues(mode, statusOf(err)).Inc()
	if err == nil {
		c.pipelineMetrics.lastSuccess.Set(float64(finished.Unix()))
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric to path in the text exposition format
// read by the node-exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %q: %w", path, err)
	}
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ trim.Recorder = (*Collector)(nil)
