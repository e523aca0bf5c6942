package config

import "time"

// Config is the root configuration structure for gathertrim.
// It contains the trimming window, the collection and upload pipeline
// settings, the run ledger, the scheduler and telemetry.
type Config struct {
	// Trim controls which files are trimmed and how far back they reach.
	Trim TrimConfig `yaml:"trim"`

	// Gather contains settings for invoking the must-gather collection.
	Gather GatherConfig `yaml:"gather"`

	// Archive contains settings for the compressed archive of the tree.
	Archive ArchiveConfig `yaml:"archive"`

	// Bugzilla contains settings for attaching archives to bugs.
	Bugzilla BugzillaConfig `yaml:"bugzilla"`

	// Ledger contains settings for the run history database.
	Ledger LedgerConfig `yaml:"ledger"`

	// Schedule contains settings for periodic trimming.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TrimConfig contains configuration for the trimming engine.
type TrimConfig struct {
	// Window is how much recent history each log keeps.
	// Default: 30m
	Window time.Duration `yaml:"window"`

	// ChunkSize is the step of the backward search, in bytes.
	// Default: 65536
	ChunkSize int64 `yaml:"chunk_size"`

	// SkipNames are base names never trimmed.
	// Default: ["must-gather.log"]
	SkipNames []string `yaml:"skip_names"`

	// NodeMarkers are substrings identifying node (journal) logs.
	// Default: ["kubelet", "NetworkManager"]
	NodeMarkers []string `yaml:"node_markers"`

	// PodMarker is the substring identifying pod logs.
	// Default: ".log"
	PodMarker string `yaml:"pod_marker"`
}

// GatherConfig contains configuration for the must-gather runner.
type GatherConfig struct {
	// Command is the cluster client binary.
	// Default: "oc"
	Command string `yaml:"command"`

	// DestDir is where the collection is written.
	// Default: "must-gather"
	DestDir string `yaml:"dest_dir"`

	// DefaultImage is used when neither Images nor ImageStreams are set.
	// Default: "quay.io/kubevirt/must-gather"
	DefaultImage string `yaml:"default_image"`

	// Images are extra must-gather images passed as --image.
	Images []string `yaml:"images"`

	// ImageStreams are image streams passed as --image-stream.
	ImageStreams []string `yaml:"image_streams"`

	// Timeout bounds a single collection run.
	// Default: 1h
	Timeout time.Duration `yaml:"timeout"`
}

// ArchiveConfig contains configuration for the archiver.
type ArchiveConfig struct {
	// Dir is where archives are written.
	// Default: "."
	Dir string `yaml:"dir"`

	// Prefix starts every archive name.
	// Default: "must-gather"
	Prefix string `yaml:"prefix"`

	// MaxSize is the largest archive accepted for upload, in bytes.
	// Default: 20447232 (19.5 MiB)
	MaxSize int64 `yaml:"max_size"`

	// CompressionLevel is the gzip level (1-9, or -1 for the default).
	// Default: -1
	CompressionLevel int `yaml:"compression_level"`
}

// BugzillaConfig contains configuration for the Bugzilla REST client.
type BugzillaConfig struct {
	// URL is the Bugzilla base URL.
	// Default: "https://bugzilla.redhat.com"
	URL string `yaml:"url"`

	// APIKey authenticates REST calls. It is usually supplied through
	// GATHERTRIM_BUGZILLA_API_KEY or BUGZILLA_API_KEY.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each HTTP request.
	// Default: 120s
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig contains configuration for the run history database.
type LedgerConfig struct {
	// Enabled controls whether runs are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver selects the SQLite driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file.
	// Default: "gathertrim.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a write waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// RetentionDays is how long run history is kept. 0 keeps it forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`
}

// ScheduleConfig contains configuration for periodic trimming.
type ScheduleConfig struct {
	// Cron is the five-field cron expression of the trim cycle.
	// Default: "*/30 * * * *"
	Cron string `yaml:"cron"`

	// Root is the tree trimmed and archived on every tick.
	Root string `yaml:"root"`

	// ListenAddress serves metrics and health endpoints. Empty disables
	// the listener.
	// Default: "127.0.0.1:9108"
	ListenAddress string `yaml:"listen_address"`

	// WatchConfig reloads the configuration file when it changes.
	// Default: true
	WatchConfig bool `yaml:"watch_config"`

	// ReloadDebounce is the quiet period before a changed file is reloaded.
	// Default: 500ms
	ReloadDebounce time.Duration `yaml:"reload_debounce"`

	// ShutdownTimeout bounds waiting for a running cycle on stop.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys, passwords and tokens in log entries.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the Prometheus endpoint in schedule mode.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "gathertrim"
	Namespace string `yaml:"namespace"`

	// TextfilePath, when set, receives the metrics of one-shot commands in
	// the node-exporter textfile format.
	TextfilePath string `yaml:"textfile_path"`

	// DurationBuckets are the histogram buckets of per-file trim time (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "gathertrim"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration for schedule mode.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path of the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path of the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
