package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrBusy is returned by RunNow while a cycle is in progress.
var ErrBusy = errors.New("a cycle is already running")

// CycleFunc runs one cycle.
type CycleFunc func(ctx context.Context) error

// Scheduler runs a CycleFunc on a cron schedule.
type Scheduler struct {
	cycle  CycleFunc
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	spec    string
	entry   cron.EntryID
	ctx     context.Context
	running bool
	stopped chan struct{}

	// busy is held for the duration of a cycle.
	busy sync.Mutex

	stateMu     sync.RWMutex
	lastRun     time.Time
	lastSuccess time.Time
	lastErr     error
}

// New creates a scheduler for a standard five-field cron expression.
//
// Common expressions:
//   - "*/30 * * * *" - Every 30 minutes
//   - "0 * * * *"    - Hourly
//   - "0 3 * * *"    - Daily at 3 AM
func New(spec string, cycle CycleFunc) (*Scheduler, error) {
	if cycle == nil {
		return nil, errors.New("cycle function is required")
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "schedule")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cycle:  cycle,
		spec:   spec,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}, nil
}

// Validate checks a cron expression.
func Validate(spec string) error {
	if spec == "" {
		return errors.New("cron schedule is empty")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// NextAfter returns the first activation of spec after t.
func NextAfter(spec string, t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return sched.Next(t), nil
}

// Start begins running cycles. Cycles receive ctx; the scheduler stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already started")
	}

	id, err := s.cron.AddFunc(s.spec, func() { s.execute(ctx, "schedule") })
	if err != nil {
		return fmt.Errorf("failed to schedule cycle: %w", err)
	}
	// An entry left by an earlier Start still holds the old context.
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = id
	s.ctx = ctx

	s.cron.Start()
	s.running = true
	stopped := make(chan struct{})
	s.stopped = stopped

	s.logger.Info("scheduler started", "schedule", s.spec)

	// Stop when the context is cancelled, unless Stop came first.
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopped:
		}
	}()

	return nil
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	done := s.cron.Stop()
	<-done.Done()
	close(s.stopped)
	s.running = false
	s.logger.Info("scheduler stopped")
}

// Reschedule replaces the cron expression. On a stopped scheduler it only
// takes effect on the next Start.
func (s *Scheduler) Reschedule(spec string) error {
	if err := Validate(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec {
		return nil
	}
	if s.running {
		ctx := s.ctx
		id, err := s.cron.AddFunc(spec, func() { s.execute(ctx, "schedule") })
		if err != nil {
			return fmt.Errorf("failed to schedule cycle: %w", err)
		}
		s.cron.Remove(s.entry)
		s.entry = id
	}

	s.logger.Info("schedule changed", "old", s.spec, "new", spec)
	s.spec = spec
	return nil
}

// RunNow runs a cycle immediately and returns its error. It returns ErrBusy
// without waiting when a cycle is already running.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.execute(ctx, "manual")
}

func (s *Scheduler) execute(ctx context.Context, trigger string) error {
	if !s.busy.TryLock() {
		s.logger.Warn("cycle skipped, previous cycle still running", "trigger", trigger)
		return ErrBusy
	}
	defer s.busy.Unlock()

	s.logger.Info("starting cycle", "trigger", trigger)
	start := time.Now()
	err := s.cycle(ctx)

	s.stateMu.Lock()
	s.lastRun = start
	s.lastErr = err
	if err == nil {
		s.lastSuccess = time.Now()
	}
	s.stateMu.Unlock()

	if err != nil {
		s.logger.Error("cycle failed", "trigger", trigger, "error", err)
		return err
	}
	s.logger.Info("cycle completed", "trigger", trigger, "duration", time.Since(start).String())
	return nil
}

// Spec returns the current cron expression.
func (s *Scheduler) Spec() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// IsRunning reports whether the scheduler is started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled cycle, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entry := s.cron.Entry(s.entry)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

// LastSuccess returns when the last successful cycle finished. It is zero
// before the first success.
func (s *Scheduler) LastSuccess() time.Time {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastSuccess
}

// LastRun returns the start time and error of the last cycle.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastRun, s.lastErr
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
