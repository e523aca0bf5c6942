// Package schedule runs the trim, archive and restore cycle on a cron
// schedule.
//
// A Scheduler never runs two cycles at once: a tick that fires while a
// cycle is in progress is skipped, and RunNow returns ErrBusy. The schedule
// can be replaced at runtime with Reschedule, which is how configuration
// reloads reach a running daemon.
//
// Example:
//
//	s, err := schedule.New("*/30 * * * *", func(ctx context.Context) error {
//		_, err := p.Cycle(ctx, root)
//		return err
//	})
//	if err != nil {
//		return err
//	}
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	defer s.Stop()
package schedule
