package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no --config flag is given. Its absence is
// not an error.
const DefaultConfigPath = "gathertrim.yaml"

// envPrefix starts every environment override.
const envPrefix = "GATHERTRIM_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over the defaults, remaining zero fields are
// defaulted and the result is validated. An empty path yields the defaults.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
		ApplyDefaults(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention GATHERTRIM_SECTION_FIELD (e.g., GATHERTRIM_TRIM_WINDOW).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// ResolvePath returns the file to load. An explicit path is returned as
// is; otherwise DefaultConfigPath is used when it exists, else "".
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultConfigPath); err != nil {
		return ""
	}
	return DefaultConfigPath
}

func envString(name string, dst *string) {
	if val := os.Getenv(envPrefix + name); val != "" {
		*dst = val
	}
}

func envList(name string, dst *[]string) {
	val, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt64(name string, dst *int64) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed values are ignored and the file value is kept.
func applyEnvOverrides(cfg *Config) {
	// Trim overrides
	envDuration("TRIM_WINDOW", &cfg.Trim.Window)
	envInt64("TRIM_CHUNK_SIZE", &cfg.Trim.ChunkSize)
	envList("TRIM_SKIP_NAMES", &cfg.Trim.SkipNames)
	envList("TRIM_NODE_MARKERS", &cfg.Trim.NodeMarkers)
	envString("TRIM_POD_MARKER", &cfg.Trim.PodMarker)

	// Gather overrides
	envString("GATHER_COMMAND", &cfg.Gather.Command)
	envString("GATHER_DEST_DIR", &cfg.Gather.DestDir)
	envString("GATHER_DEFAULT_IMAGE", &cfg.Gather.DefaultImage)
	envList("GATHER_IMAGES", &cfg.Gather.Images)
	envList("GATHER_IMAGE_STREAMS", &cfg.Gather.ImageStreams)
	envDuration("GATHER_TIMEOUT", &cfg.Gather.Timeout)

	// Archive overrides
	envString("ARCHIVE_DIR", &cfg.Archive.Dir)
	envString("ARCHIVE_PREFIX", &cfg.Archive.Prefix)
	envInt64("ARCHIVE_MAX_SIZE", &cfg.Archive.MaxSize)
	envInt("ARCHIVE_COMPRESSION_LEVEL", &cfg.Archive.CompressionLevel)

	// Bugzilla overrides; the tool-agnostic variable is the fallback.
	envString("BUGZILLA_URL", &cfg.Bugzilla.URL)
	if val := os.Getenv("BUGZILLA_API_KEY"); val != "" && cfg.Bugzilla.APIKey == "" {
		cfg.Bugzilla.APIKey = val
	}
	envString("BUGZILLA_API_KEY", &cfg.Bugzilla.APIKey)
	envDuration("BUGZILLA_TIMEOUT", &cfg.Bugzilla.Timeout)

	// Ledger overrides
	envBool("LEDGER_ENABLED", &cfg.Ledger.Enabled)
	envString("LEDGER_DRIVER", &cfg.Ledger.Driver)
	envString("LEDGER_PATH", &cfg.Ledger.Path)
	envDuration("LEDGER_BUSY_TIMEOUT", &cfg.Ledger.BusyTimeout)
	envBool("LEDGER_WAL_MODE", &cfg.Ledger.WALMode)
	envInt("LEDGER_RETENTION_DAYS", &cfg.Ledger.RetentionDays)

	// Schedule overrides
	envString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	envString("SCHEDULE_ROOT", &cfg.Schedule.Root)
	envString("SCHEDULE_LISTEN_ADDRESS", &cfg.Schedule.ListenAddress)
	envBool("SCHEDULE_WATCH_CONFIG", &cfg.Schedule.WatchConfig)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_SECRETS", &cfg.Telemetry.Logging.RedactSecrets)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(envPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}
