package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"medik8s/gathertrim/pkg/cli"
	"medik8s/gathertrim/pkg/config"
	"medik8s/gathertrim/pkg/schedule"
	"medik8s/gathertrim/pkg/telemetry/health"
	"medik8s/gathertrim/pkg/telemetry/logging"
	"medik8s/gathertrim/pkg/telemetry/tracing"
)

var scheduleFlags struct {
	root   string
	cron   string
	listen string
	now    bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run trim, archive and restore on a cron schedule",
	Long: `Repeat the trim, archive and restore cycle over an existing collection on
a cron schedule until interrupted.

Metrics and health probes are served on schedule.listen_address. When
schedule.watch_config is set the configuration file is reloaded on change;
the window, markers and schedule apply from the next tick.

Examples:
  # Every 30 minutes (the default)
  gathertrim schedule --root ./must-gather

  # Hourly, with a first cycle right away
  gathertrim schedule --root ./must-gather --cron "0 * * * *" --now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleFlags.root, "root", "", "collection to trim (overrides schedule.root)")
	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "cron expression (overrides schedule.cron)")
	scheduleCmd.Flags().StringVarP(&scheduleFlags.listen, "listen", "l", "", "metrics and health address (overrides schedule.listen_address)")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.now, "now", false, "run a cycle immediately")
}

// scheduleSettings are the values of the configuration as overridden by flags.
func scheduleSettings(cfg *config.Config) (root, spec string) {
	root, spec = cfg.Schedule.Root, cfg.Schedule.Cron
	if root == "" {
		root = cfg.Gather.DestDir
	}
	if scheduleFlags.root != "" {
		root = scheduleFlags.root
	}
	if scheduleFlags.cron != "" {
		spec = scheduleFlags.cron
	}
	return root, spec
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}

	_, spec := scheduleSettings(a.cfg)
	if err := schedule.Validate(spec); err != nil {
		return cli.NewConfigError("schedule.cron", err.Error())
	}

	// Every tick reads the current configuration, so a reload applies to
	// the next cycle.
	cycle := func(ctx context.Context) error {
		cfg := config.GetConfig()
		root, _ := scheduleSettings(cfg)
		_, err := a.pipeline(cfg).Cycle(ctx, root)
		return err
	}
	s, err := schedule.New(spec, cycle)
	if err != nil {
		return cli.NewConfigError("schedule.cron", err.Error())
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		return cli.NewCommandError("schedule", err)
	}
	if next := s.NextRun(); next != nil {
		slog.Info("next cycle scheduled", "next_run", next.Format(time.RFC3339))
	}

	srv, serveErr := startServer(a, s)

	if a.cfg.Schedule.WatchConfig && config.Path() != "" {
		config.OnReload(func(cfg *config.Config) {
			applyReload(s, cfg)
		})
		go watchConfig(ctx, a.cfg.Schedule.ReloadDebounce)
	}

	if scheduleFlags.now {
		go func() {
			if err := s.RunNow(ctx); err != nil && !errors.Is(err, schedule.ErrBusy) {
				slog.Error("initial cycle failed", "error", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		runErr = cli.NewCommandError("schedule", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Schedule.ShutdownTimeout)
	defer shutdownCancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		slog.Warn("timed out waiting for the running cycle")
	}

	a.close(shutdownCtx)
	return runErr
}

// applyReload pushes a reloaded configuration into the running scheduler.
func applyReload(s *schedule.Scheduler, cfg *config.Config) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := logging.SetLevel(level); err != nil {
		slog.Warn("ignoring log level from reloaded configuration", "error", err)
	}

	_, spec := scheduleSettings(cfg)
	if err := s.Reschedule(spec); err != nil {
		slog.Warn("keeping previous schedule", "error", err)
	}
	slog.Info("configuration reloaded", "window", cfg.Trim.Window.String(), "schedule", s.Spec())
}

func watchConfig(ctx context.Context, debounce time.Duration) {
	path := config.Path()
	w, err := config.NewWatcher(path, debounce)
	if err != nil {
		slog.Warn("configuration reload disabled", "path", path, "error", err)
		return
	}
	err = w.Watch(ctx, func() error { return config.ReloadConfig(path) })
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("configuration watcher stopped", "error", err)
	}
}

// startServer serves metrics, health and version endpoints. It returns a
// nil server when no address is configured.
func startServer(a *app, s *schedule.Scheduler) (*http.Server, <-chan error) {
	errCh := make(chan error, 1)

	addr := a.cfg.Schedule.ListenAddress
	if scheduleFlags.listen != "" {
		addr = scheduleFlags.listen
	}
	if addr == "" {
		return nil, errCh
	}

	mux := http.NewServeMux()
	metricsCfg := a.cfg.Telemetry.Metrics
	if metricsCfg.Enabled {
		mux.Handle(metricsCfg.Path, a.collector.Handler())
	}

	healthCfg := a.cfg.Telemetry.Health
	if healthCfg.Enabled {
		checker := health.New(healthCfg.CheckTimeout)
		root, _ := scheduleSettings(a.cfg)
		checker.RegisterCheck("root", health.DirCheck(root))
		checker.RegisterCheck("scheduler", func(context.Context) error {
			if !s.IsRunning() {
				return errors.New("scheduler is not running")
			}
			return nil
		})
		if a.ledger != nil {
			checker.RegisterCheck("ledger", health.PingCheck(a.ledger))
		}
		if interval := cronInterval(s); interval > 0 {
			checker.RegisterCheck("last_cycle", health.FreshnessCheck(s.LastSuccess, 2*interval, 2*interval))
		}
		health.Register(mux, checker, &healthCfg, Version, GitCommit, BuildDate)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           tracing.HTTPMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		errCh <- fmt.Errorf("failed to listen on %s: %w", addr, err)
		return nil, errCh
	}
	slog.Info("serving metrics and health", "address", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return srv, errCh
}

// cronInterval estimates the time between two ticks.
func cronInterval(s *schedule.Scheduler) time.Duration {
	next := s.NextRun()
	if next == nil {
		return 0
	}
	after, err := schedule.NextAfter(s.Spec(), *next)
	if err != nil {
		return 0
	}
	return after.Sub(*next)
}
