package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "non-positive window",
			modify:    func(c *Config) { c.Trim.Window = -time.Minute },
			wantField: "trim.window",
		},
		{
			name:      "empty node marker",
			modify:    func(c *Config) { c.Trim.NodeMarkers = []string{"kubelet", ""} },
			wantField: "trim.node_markers[1]",
		},
		{
			name:      "empty pod marker",
			modify:    func(c *Config) { c.Trim.PodMarker = "" },
			wantField: "trim.pod_marker",
		},
		{
			name:      "compression level",
			modify:    func(c *Config) { c.Archive.CompressionLevel = 12 },
			wantField: "archive.compression_level",
		},
		{
			name:      "archive prefix with separator",
			modify:    func(c *Config) { c.Archive.Prefix = "../x" },
			wantField: "archive.prefix",
		},
		{
			name:      "relative bugzilla url",
			modify:    func(c *Config) { c.Bugzilla.URL = "bugzilla.example.com" },
			wantField: "bugzilla.url",
		},
		{
			name:      "unknown ledger driver",
			modify:    func(c *Config) { c.Ledger.Driver = "postgres" },
			wantField: "ledger.driver",
		},
		{
			name:      "invalid cron",
			modify:    func(c *Config) { c.Schedule.Cron = "61 * * * *" },
			wantField: "schedule.cron",
		},
		{
			name:      "invalid listen address",
			modify:    func(c *Config) { c.Schedule.ListenAddress = "localhost" },
			wantField: "schedule.listen_address",
		},
		{
			name:      "invalid logging format",
			modify:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
		{
			name:      "unsorted buckets",
			modify:    func(c *Config) { c.Telemetry.Metrics.DurationBuckets = []float64{1, 0.5} },
			wantField: "telemetry.metrics.duration_buckets",
		},
		{
			name:      "tracing without endpoint",
			modify:    func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name:      "sample ratio out of range",
			modify:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "relative readiness path",
			modify:    func(c *Config) { c.Telemetry.Health.ReadinessPath = "ready" },
			wantField: "telemetry.health.readiness_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if len(verr.Errors) != 1 || verr.Errors[0].Field != tt.wantField {
				t.Errorf("expected a single error on %s, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestValidate_DisabledLedgerSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Ledger.Enabled = false
	cfg.Ledger.Driver = "postgres"

	if err := Validate(cfg); err != nil {
		t.Errorf("expected no error for disabled ledger, got %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "trim.window", Message: "window must be positive"}}}
	if got := single.Error(); got != "configuration validation failed: trim.window: window must be positive" {
		t.Errorf("unexpected message %q", got)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "first"},
		{Field: "b", Message: "second"},
	}}
	got := multi.Error()
	if !strings.HasPrefix(got, "configuration validation failed with 2 errors:") {
		t.Errorf("unexpected message %q", got)
	}
	if !strings.Contains(got, "  - a: first\n") || !strings.Contains(got, "  - b: second\n") {
		t.Errorf("expected every field in message, got %q", got)
	}
}
