package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func noopCycle(context.Context) error { return nil }

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		cycle     CycleFunc
		wantError bool
	}{
		{name: "every 30 minutes", spec: "*/30 * * * *", cycle: noopCycle},
		{name: "daily", spec: "0 3 * * *", cycle: noopCycle},
		{name: "descriptor", spec: "@hourly", cycle: noopCycle},
		{name: "empty schedule", spec: "", cycle: noopCycle, wantError: true},
		{name: "invalid schedule", spec: "invalid cron", cycle: noopCycle, wantError: true},
		{name: "six fields", spec: "0 */30 * * * *", cycle: noopCycle, wantError: true},
		{name: "nil cycle", spec: "* * * * *", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec, tt.cycle)
			if (err != nil) != tt.wantError {
				t.Errorf("New() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New("0 3 * * *", noopCycle)
	if err != nil {
		t.Fatal(err)
	}
	if s.NextRun() != nil {
		t.Error("NextRun() should be nil before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}

	next := s.NextRun()
	if next == nil {
		t.Fatal("NextRun() returned nil for running scheduler")
	}
	if next.Hour() != 3 || next.Minute() != 0 || !next.After(time.Now()) {
		t.Errorf("NextRun() = %v, want next 03:00", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	s.Stop()
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s, err := New("0 3 * * *", noopCycle)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_RunNow(t *testing.T) {
	var calls atomic.Int32
	fail := errors.New("archive failed")
	var result error

	s, err := New("0 3 * * *", func(context.Context) error {
		calls.Add(1)
		return result
	})
	if err != nil {
		t.Fatal(err)
	}

	if !s.LastSuccess().IsZero() {
		t.Error("LastSuccess() should be zero before any cycle")
	}

	if err := s.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	first := s.LastSuccess()
	if first.IsZero() {
		t.Error("LastSuccess() not set after successful cycle")
	}

	result = fail
	if err := s.RunNow(context.Background()); !errors.Is(err, fail) {
		t.Fatalf("RunNow() error = %v, want %v", err, fail)
	}
	if !s.LastSuccess().Equal(first) {
		t.Error("a failed cycle must not move LastSuccess")
	}
	if _, lastErr := s.LastRun(); !errors.Is(lastErr, fail) {
		t.Errorf("LastRun() error = %v", lastErr)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestScheduler_RunNowBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	s, err := New("0 3 * * *", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background()) }()
	<-started

	if err := s.RunNow(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent RunNow() error = %v, want ErrBusy", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first RunNow() error = %v", err)
	}
}

func TestScheduler_Reschedule(t *testing.T) {
	s, err := New("0 3 * * *", noopCycle)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if err := s.Reschedule("bogus"); err == nil {
		t.Error("Reschedule() should reject an invalid expression")
	}
	if s.Spec() != "0 3 * * *" {
		t.Errorf("Spec() = %q after rejected reschedule", s.Spec())
	}

	if err := s.Reschedule("15 4 * * *"); err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if s.Spec() != "15 4 * * *" {
		t.Errorf("Spec() = %q", s.Spec())
	}
	next := s.NextRun()
	if next == nil || next.Hour() != 4 || next.Minute() != 15 {
		t.Errorf("NextRun() = %v, want next 04:15", next)
	}
}

func TestScheduler_Restart(t *testing.T) {
	s, err := New("0 3 * * *", noopCycle)
	if err != nil {
		t.Fatal(err)
	}

	first, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	if err := s.Start(first); err != nil {
		t.Fatal(err)
	}
	s.Stop()

	if err := s.Reschedule("15 4 * * *"); err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}

	second, cancelSecond := context.WithCancel(context.Background())
	defer cancelSecond()
	if err := s.Start(second); err != nil {
		t.Fatalf("Start() after Stop error = %v", err)
	}
	defer s.Stop()

	entries := s.cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 cron entry after restart, got %d", len(entries))
	}
	if entries[0].Next.Hour() != 4 || entries[0].Next.Minute() != 15 {
		t.Errorf("remaining entry fires at %v, want 04:15", entries[0].Next)
	}

	// Cancelling the context of the earlier run leaves the new one alone.
	cancelFirst()
	time.Sleep(50 * time.Millisecond)
	if !s.IsRunning() {
		t.Error("scheduler stopped by the context of a previous Start")
	}
}

func TestNextAfter(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 7, 0, 0, time.UTC)

	next, err := NextAfter("*/30 * * * *", from)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("NextAfter() = %v, want %v", next, want)
	}

	if _, err := NextAfter("nope", from); err == nil {
		t.Error("NextAfter() should reject an invalid expression")
	}
}
