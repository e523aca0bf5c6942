package config

import "time"

// Default values for configuration fields.
const (
	// Trim defaults
	DefaultTrimWindow    = 30 * time.Minute
	DefaultTrimChunkSize = int64(64 * 1024)
	DefaultTrimPodMarker = ".log"

	// Gather defaults
	DefaultGatherCommand = "oc"
	DefaultGatherDestDir = "must-gather"
	DefaultGatherImage   = "quay.io/kubevirt/must-gather"
	DefaultGatherTimeout = time.Hour

	// Archive defaults
	DefaultArchiveDir              = "."
	DefaultArchivePrefix           = "must-gather"
	DefaultArchiveMaxSize          = int64(19.5 * 1024 * 1024)
	DefaultArchiveCompressionLevel = -1

	// Bugzilla defaults
	DefaultBugzillaURL     = "https://bugzilla.redhat.com"
	DefaultBugzillaTimeout = 120 * time.Second

	// Ledger defaults
	DefaultLedgerEnabled     = true
	DefaultLedgerDriver      = "sqlite"
	DefaultLedgerPath        = "gathertrim.db"
	DefaultLedgerBusyTimeout = 5 * time.Second
	DefaultLedgerWALMode     = true
	DefaultLedgerRetention   = 30

	// Schedule defaults
	DefaultScheduleCron            = "*/30 * * * *"
	DefaultScheduleListenAddress   = "127.0.0.1:9108"
	DefaultScheduleWatchConfig     = true
	DefaultScheduleReloadDebounce  = 500 * time.Millisecond
	DefaultScheduleShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultLoggingRedactSecrets = true
	DefaultMetricsEnabled       = true
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "gathertrim"
	DefaultTracingServiceName   = "gathertrim"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingInsecure      = true
	DefaultTracingTimeout       = 10 * time.Second
	DefaultHealthEnabled        = true
	DefaultHealthLivenessPath   = "/health"
	DefaultHealthReadinessPath  = "/ready"
	DefaultHealthCheckTimeout   = 5 * time.Second
)

// DefaultSkipNames are never trimmed: the captured output of the collection.
var DefaultSkipNames = []string{"must-gather.log"}

// DefaultNodeMarkers identify journal exports by name.
var DefaultNodeMarkers = []string{"kubelet", "NetworkManager"}

// DefaultDurationBuckets are the trim duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Default returns a configuration with every default applied, including
// the boolean switches that default to true. It is the base a file is
// decoded onto, so fields absent from the file keep these values.
func Default() *Config {
	cfg := &Config{}
	cfg.Ledger.Enabled = DefaultLedgerEnabled
	cfg.Ledger.WALMode = DefaultLedgerWALMode
	cfg.Ledger.RetentionDays = DefaultLedgerRetention
	cfg.Schedule.WatchConfig = DefaultScheduleWatchConfig
	cfg.Telemetry.Logging.RedactSecrets = DefaultLoggingRedactSecrets
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset (zero-valued) field with its default.
// Boolean fields are left alone: a zero bool cannot be told apart from an
// explicit false, so their defaults are set by Default.
func ApplyDefaults(cfg *Config) {
	// Trim defaults
	if cfg.Trim.Window == 0 {
		cfg.Trim.Window = DefaultTrimWindow
	}
	if cfg.Trim.ChunkSize == 0 {
		cfg.Trim.ChunkSize = DefaultTrimChunkSize
	}
	if cfg.Trim.SkipNames == nil {
		cfg.Trim.SkipNames = append([]string(nil), DefaultSkipNames...)
	}
	if len(cfg.Trim.NodeMarkers) == 0 {
		cfg.Trim.NodeMarkers = append([]string(nil), DefaultNodeMarkers...)
	}
	if cfg.Trim.PodMarker == "" {
		cfg.Trim.PodMarker = DefaultTrimPodMarker
	}

	// Gather defaults
	if cfg.Gather.Command == "" {
		cfg.Gather.Command = DefaultGatherCommand
	}
	if cfg.Gather.DestDir == "" {
		cfg.Gather.DestDir = DefaultGatherDestDir
	}
	if cfg.Gather.DefaultImage == "" {
		cfg.Gather.DefaultImage = DefaultGatherImage
	}
	if cfg.Gather.Timeout == 0 {
		cfg.Gather.Timeout = DefaultGatherTimeout
	}

	// Archive defaults
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = DefaultArchiveDir
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = DefaultArchivePrefix
	}
	if cfg.Archive.MaxSize == 0 {
		cfg.Archive.MaxSize = DefaultArchiveMaxSize
	}
	if cfg.Archive.CompressionLevel == 0 {
		cfg.Archive.CompressionLevel = DefaultArchiveCompressionLevel
	}

	// Bugzilla defaults
	if cfg.Bugzilla.URL == "" {
		cfg.Bugzilla.URL = DefaultBugzillaURL
	}
	if cfg.Bugzilla.Timeout == 0 {
		cfg.Bugzilla.Timeout = DefaultBugzillaTimeout
	}

	// Ledger defaults
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = DefaultLedgerDriver
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.BusyTimeout == 0 {
		cfg.Ledger.BusyTimeout = DefaultLedgerBusyTimeout
	}

	// Schedule defaults
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}
	if cfg.Schedule.ListenAddress == "" {
		cfg.Schedule.ListenAddress = DefaultScheduleListenAddress
	}
	if cfg.Schedule.ReloadDebounce == 0 {
		cfg.Schedule.ReloadDebounce = DefaultScheduleReloadDebounce
	}
	if cfg.Schedule.ShutdownTimeout == 0 {
		cfg.Schedule.ShutdownTimeout = DefaultScheduleShutdownTimeout
	}

	applyTelemetryDefaults(cfg)
}

func applyTelemetryDefaults(cfg *Config) {
	t := &cfg.Telemetry

	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
