package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"medik8s/gathertrim/pkg/bugzilla"
	"medik8s/gathertrim/pkg/cli"
	"medik8s/gathertrim/pkg/config"
	"medik8s/gathertrim/pkg/gather"
	"medik8s/gathertrim/pkg/ledger"
	"medik8s/gathertrim/pkg/pipeline"
	"medik8s/gathertrim/pkg/telemetry/logging"
	"medik8s/gathertrim/pkg/telemetry/metrics"
	"medik8s/gathertrim/pkg/telemetry/tracing"
	"medik8s/gathertrim/pkg/trim"
)

// app holds what every command shares: configuration, logger, metrics,
// tracer and the run ledger.
type app struct {
	cfg       *config.Config
	collector *metrics.Collector
	tracer    *tracing.Tracer
	ledger    *ledger.Store
}

// configPath returns the file to load. The default file is optional.
func configPath() string {
	if cfgFile == defaultConfigFile {
		if _, err := os.Stat(cfgFile); errors.Is(err, fs.ErrNotExist) {
			return ""
		}
	}
	return cfgFile
}

// loadConfig initializes the global configuration and the default logger.
func loadConfig() (*config.Config, error) {
	path := configPath()
	if err := config.Initialize(path); err != nil {
		var valErr *config.ValidationError
		if errors.As(err, &valErr) {
			return nil, err
		}
		field := path
		if field == "" {
			field = "defaults"
		}
		return nil, cli.NewConfigError(field, err.Error())
	}
	cfg := config.GetConfig()

	logCfg := cfg.Telemetry.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	if _, err := logging.Setup(logging.Config{
		Level:         logCfg.Level,
		Format:        logCfg.Format,
		AddSource:     logCfg.AddSource,
		RedactSecrets: logCfg.RedactSecrets,
	}); err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return cfg, nil
}

// newApp loads the configuration and opens the shared components. The
// ledger is opened only when withLedger is set and it is enabled.
func newApp(withLedger bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		collector: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
	}

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if withLedger && cfg.Ledger.Enabled {
		a.ledger, err = ledger.Open(&cfg.Ledger)
		if err != nil {
			// History is not worth failing a run for.
			slog.Warn("run ledger unavailable", "path", cfg.Ledger.Path, "error", err)
		}
	}
	return a, nil
}

// pipeline builds a pipeline over cfg with the shared components.
func (a *app) pipeline(cfg *config.Config, opts ...pipeline.Option) *pipeline.Pipeline {
	base := []pipeline.Option{
		pipeline.WithMetrics(a.collector),
		pipeline.WithTracer(a.tracer.Tracer()),
	}
	if a.ledger != nil {
		base = append(base, pipeline.WithLedger(a.ledger))
	}
	return pipeline.New(cfg, append(base, opts...)...)
}

// recorder returns the per-file recorder, with a progress line when asked.
func (a *app) recorder(progress bool) (trim.Recorder, func()) {
	if !progress {
		return a.collector, func() {}
	}
	p := cli.NewProgress(os.Stderr, a.collector)
	return p, p.Finish
}

// bugzillaClient returns a Bugzilla client whose requests carry the trace
// context.
func (a *app) bugzillaClient(cfg *config.BugzillaConfig) *bugzilla.Client {
	hc := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &tracing.Transport{},
	}
	return bugzilla.NewClient(cfg, bugzilla.WithHTTPClient(hc))
}

func (a *app) gatherer(cfg *config.GatherConfig) *gather.Runner {
	return gather.NewRunner(cfg)
}

// flushMetrics writes the textfile for one-shot commands.
func (a *app) flushMetrics() {
	path := a.cfg.Telemetry.Metrics.TextfilePath
	if !a.cfg.Telemetry.Metrics.Enabled || path == "" {
		return
	}
	if err := a.collector.WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics textfile", "error", err)
	}
}

// close releases the shared components.
func (a *app) close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			slog.Warn("failed to close run ledger", "error", err)
		}
	}
}

// writeResult prints a command result in the requested format.
func writeResult(format string, data any) error {
	f, err := cli.ParseFormat(format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(f).FormatTo(os.Stdout, data)
}
