package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "trim.window").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateTrim(&cfg.Trim)...)
	errs = append(errs, validateGather(&cfg.Gather)...)
	errs = append(errs, validateArchive(&cfg.Archive)...)
	errs = append(errs, validateBugzilla(&cfg.Bugzilla)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateTrim(cfg *TrimConfig) []FieldError {
	var errs []FieldError

	if cfg.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   "trim.window",
			Message: "window must be positive",
		})
	}
	if cfg.ChunkSize < 0 {
		errs = append(errs, FieldError{
			Field:   "trim.chunk_size",
			Message: "chunk size must not be negative",
		})
	}
	if cfg.PodMarker == "" {
		errs = append(errs, FieldError{
			Field:   "trim.pod_marker",
			Message: "pod marker is required",
		})
	}
	for i, marker := range cfg.NodeMarkers {
		if marker == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("trim.node_markers[%d]", i),
				Message: "marker must not be empty",
			})
		}
	}

	return errs
}

func validateGather(cfg *GatherConfig) []FieldError {
	var errs []FieldError

	if cfg.Command == "" {
		errs = append(errs, FieldError{
			Field:   "gather.command",
			Message: "command is required",
		})
	}
	if cfg.DestDir == "" {
		errs = append(errs, FieldError{
			Field:   "gather.dest_dir",
			Message: "destination directory is required",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "gather.timeout",
			Message: "timeout must not be negative",
		})
	}

	return errs
}

func validateArchive(cfg *ArchiveConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "archive.max_size",
			Message: "max size must be positive",
		})
	}
	if cfg.CompressionLevel != -1 && (cfg.CompressionLevel < 1 || cfg.CompressionLevel > 9) {
		errs = append(errs, FieldError{
			Field:   "archive.compression_level",
			Message: fmt.Sprintf("invalid compression level %d: must be -1 or between 1 and 9", cfg.CompressionLevel),
		})
	}
	if strings.ContainsAny(cfg.Prefix, `/\`) {
		errs = append(errs, FieldError{
			Field:   "archive.prefix",
			Message: "prefix must not contain path separators",
		})
	}

	return errs
}

func validateBugzilla(cfg *BugzillaConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "bugzilla.url",
			Message: fmt.Sprintf("invalid URL %q: must be an absolute http(s) URL", cfg.URL),
		})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "bugzilla.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	validDrivers := map[string]bool{"sqlite": true, "sqlite3": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "ledger.driver",
			Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.Driver),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "ledger.path",
			Message: "path is required when the ledger is enabled",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.busy_timeout",
			Message: "busy timeout must not be negative",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.retention_days",
			Message: "retention must not be negative",
		})
	}

	return errs
}

func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError

	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		errs = append(errs, FieldError{
			Field:   "schedule.cron",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Cron, err),
		})
	}
	if cfg.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "schedule.listen_address",
				Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
			})
		}
	}
	if cfg.ReloadDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "schedule.reload_debounce",
			Message: "reload debounce must not be negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.Enabled {
		for field, path := range map[string]string{
			"telemetry.health.liveness_path":  cfg.Health.LivenessPath,
			"telemetry.health.readiness_path": cfg.Health.ReadinessPath,
		} {
			if !strings.HasPrefix(path, "/") {
				errs = append(errs, FieldError{
					Field:   field,
					Message: "path must start with /",
				})
			}
		}
	}

	return errs
}
