package pipeline

import (
	"context"
	"time"

	"medik8s/gathertrim/pkg/ledger"
	"medik8s/gathertrim/pkg/telemetry/logging"
	"medik8s/gathertrim/pkg/telemetry/tracing"
	"medik8s/gathertrim/pkg/trim"
)

// runState carries one run through its stages.
type runState struct {
	started  time.Time
	deadline trim.Deadline
	record   *ledger.Run
	outcome  *Outcome
}

// begin starts a run: it fixes the deadline, opens the run span and inserts
// the run into the ledger. The returned finish closes all three.
func (p *Pipeline) begin(ctx context.Context, mode, root string, bugID int) (context.Context, *runState, func(error)) {
	started := p.now().UTC()
	deadline := trim.NewDeadline(started, p.config.Trim.Window)

	run := &runState{
		started:  started,
		deadline: deadline,
		record: &ledger.Run{
			ID:        ledger.NewRunID(),
			Mode:      mode,
			BugID:     bugID,
			Status:    ledger.StatusRunning,
			StartedAt: started,
			Root:      root,
			Window:    p.config.Trim.Window,
			Deadline:  deadline.Time(),
		},
	}
	run.outcome = &Outcome{
		RunID:    run.record.ID,
		Mode:     mode,
		Root:     root,
		Deadline: deadline.Time(),
		BugID:    bugID,
	}

	ctx = logging.WithRunID(ctx, run.record.ID)
	ctx, span := p.tracer.Start(ctx, "gathertrim."+mode)
	tracing.SetRunAttributes(span, run.record.ID, root)

	if p.ledger != nil {
		if err := p.ledger.BeginRun(ctx, run.record); err != nil {
			p.logger.WarnContext(ctx, "failed to record run start", "error", err)
		}
	}
	p.logger.InfoContext(ctx, "run started",
		"mode", mode,
		"root", root,
		"window", p.config.Trim.Window.String(),
		"deadline", deadline.String(),
	)

	finish := func(err error) {
		finished := p.now().UTC()
		tracing.SetTrimAttributes(span, deadline.String(), run.outcome.FilesTrimmed, run.outcome.BytesDiscarded)
		if a := run.outcome.Archive; a != nil {
			tracing.SetArchiveAttributes(span, a.Path, a.Size)
		}
		tracing.End(span, err)

		if p.metrics != nil {
			p.metrics.RecordRun(mode, err, finished)
		}

		run.record.FinishedAt = &finished
		run.record.Status = ledger.StatusSucceeded
		if err != nil {
			run.record.Status = ledger.StatusFailed
			run.record.Error = err.Error()
		}
		if p.ledger != nil {
			if lerr := p.ledger.FinishRun(context.WithoutCancel(ctx), run.record); lerr != nil {
				p.logger.WarnContext(ctx, "failed to record run result", "error", lerr)
			}
		}

		if err != nil {
			p.logger.ErrorContext(ctx, "run failed", "mode", mode, "error", err)
			return
		}
		p.logger.InfoContext(ctx, "run completed",
			"mode", mode,
			"files_trimmed", run.outcome.FilesTrimmed,
			"bytes_discarded", run.outcome.BytesDiscarded,
			"duration", finished.Sub(started).String(),
		)
	}
	return ctx, run, finish
}

func (p *Pipeline) recordFiles(ctx context.Context, runID string, report *trim.Report) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.RecordFiles(ctx, ledger.FilesFromReport(runID, report)); err != nil {
		p.logger.WarnContext(ctx, "failed to record trimmed files", "error", err)
	}
}

// prune drops run history older than the configured retention.
func (p *Pipeline) prune(ctx context.Context) {
	days := p.config.Ledger.RetentionDays
	if p.ledger == nil || days <= 0 {
		return
	}
	cutoff := p.now().AddDate(0, 0, -days)
	if _, err := p.ledger.Prune(ctx, cutoff); err != nil {
		p.logger.WarnContext(ctx, "failed to prune run history", "error", err)
	}
}
