// Package pipeline chains the gathertrim stages: gather, trim, archive,
// restore and upload. Each stage is logged, timed, traced and, when a
// ledger is configured, recorded in the run history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"medik8s/gathertrim/pkg/archive"
	"medik8s/gathertrim/pkg/bugzilla"
	"medik8s/gathertrim/pkg/config"
	"medik8s/gathertrim/pkg/ledger"
	"medik8s/gathertrim/pkg/telemetry/logging"
	"medik8s/gathertrim/pkg/telemetry/metrics"
	"medik8s/gathertrim/pkg/telemetry/tracing"
	"medik8s/gathertrim/pkg/trim"
)

// Stage names used in logs, spans and metrics.
const (
	StageCheck   = "check"
	StageGather  = "gather"
	StageTrim    = "trim"
	StageArchive = "archive"
	StageRestore = "restore"
	StageUpload  = "upload"
)

// Gatherer produces the tree to trim.
type Gatherer interface {
	Run(ctx context.Context) error
}

// Uploader attaches archives to bugs.
type Uploader interface {
	BugExists(ctx context.Context, bugID int) (bool, error)
	AttachFile(ctx context.Context, bugID int, path, comment string) ([]int, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records stage and file metrics in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// WithRecorder replaces the per-file recorder of the walker. By default
// the metrics collector, if any, is used.
func WithRecorder(r trim.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithTracer creates spans with t.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithLedger records runs in s.
func WithLedger(s *ledger.Store) Option {
	return func(p *Pipeline) { p.ledger = s }
}

// WithGatherer sets the collection runner used by Collect.
func WithGatherer(g Gatherer) Option {
	return func(p *Pipeline) { p.gatherer = g }
}

// WithUploader sets the Bugzilla client used by Collect.
func WithUploader(u Uploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

// WithClock replaces time.Now as the source of run start times.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline runs trim, cycle and collect operations.
type Pipeline struct {
	config   *config.Config
	walker   *trim.Walker
	archiver *archive.Archiver
	metrics  *metrics.Collector
	recorder trim.Recorder
	tracer   trace.Tracer
	ledger   *ledger.Store
	gatherer Gatherer
	uploader Uploader
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a pipeline over cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:   cfg,
		archiver: archive.New(&cfg.Archive),
		tracer:   noop.NewTracerProvider().Tracer("gathertrim"),
		now:      time.Now,
		logger:   slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	recorder := p.recorder
	if recorder == nil && p.metrics != nil {
		recorder = p.metrics
	}
	walkerOpts := []trim.WalkerOption{trim.WithTracer(p.tracer)}
	if recorder != nil {
		walkerOpts = append(walkerOpts, trim.WithRecorder(recorder))
	}
	p.walker = trim.NewWalker(WalkerConfig(&cfg.Trim), walkerOpts...)
	return p
}

// WalkerConfig converts the trim section of the configuration.
func WalkerConfig(cfg *config.TrimConfig) *trim.WalkerConfig {
	return &trim.WalkerConfig{
		ChunkSize:   cfg.ChunkSize,
		SkipNames:   cfg.SkipNames,
		NodeMarkers: cfg.NodeMarkers,
		PodMarker:   cfg.PodMarker,
	}
}

// Outcome summarizes a run.
type Outcome struct {
	RunID          string          `json:"run_id"`
	Mode           string          `json:"mode"`
	Root           string          `json:"root"`
	Deadline       time.Time       `json:"deadline"`
	BugID          int             `json:"bug_id,omitempty"`
	FilesSeen      int             `json:"files_seen"`
	FilesTrimmed   int             `json:"files_trimmed"`
	BytesDiscarded int64           `json:"bytes_discarded"`
	FileErrors     []string        `json:"file_errors,omitempty"`
	Archive        *archive.Result `json:"archive,omitempty"`
	Restored       int             `json:"restored"`
	AttachmentIDs  []int           `json:"attachment_ids,omitempty"`

	Report *trim.Report `json:"-"`
}

func (o *Outcome) applyReport(r *trim.Report) {
	o.Report = r
	o.FilesSeen = len(r.Files) + len(r.Errors)
	o.FilesTrimmed = len(r.Trimmed())
	o.BytesDiscarded = r.BytesDiscarded()
	for _, fe := range r.Errors {
		o.FileErrors = append(o.FileErrors, fe.Error())
	}
}

// Text renders the outcome for terminal output.
func (o *Outcome) Text() string {
	s := fmt.Sprintf("Run %s (%s) on %s\n", o.RunID, o.Mode, o.Root)
	s += fmt.Sprintf("Trimmed %d of %d files to lines since %s, discarding %d bytes\n",
		o.FilesTrimmed, o.FilesSeen, o.Deadline.Format(time.RFC3339), o.BytesDiscarded)
	for _, fe := range o.FileErrors {
		s += "  skipped: " + fe + "\n"
	}
	if o.Archive != nil {
		s += fmt.Sprintf("Archive %s (%d bytes, %d files)\n", o.Archive.Path, o.Archive.Size, o.Archive.Files)
	}
	if o.Restored > 0 {
		s += fmt.Sprintf("Restored %d original files\n", o.Restored)
	}
	if len(o.AttachmentIDs) > 0 {
		s += fmt.Sprintf("Attached to bug %d as %v\n", o.BugID, o.AttachmentIDs)
	}
	return s
}

// Trim trims root in place and leaves the backups next to the trimmed
// files. Restore puts them back.
func (p *Pipeline) Trim(ctx context.Context, root string) (out *Outcome, err error) {
	ctx, run, finish := p.begin(ctx, ledger.ModeTrim, root, 0)
	defer func() { finish(err) }()
	out = run.outcome

	err = p.trim(ctx, run, root)
	return out, err
}

// Restore moves every backup under root back over its trimmed file.
func (p *Pipeline) Restore(ctx context.Context, root string) ([]string, error) {
	var restored []string
	err := p.stage(ctx, StageRestore, func(ctx context.Context) error {
		var err error
		restored, err = p.walker.Backups().Restore(root)
		if p.metrics != nil {
			p.metrics.RecordRestore(len(restored))
		}
		return err
	})
	return restored, err
}

// Cycle trims root, archives it and restores the originals. The restore
// runs even when trimming or archiving failed.
func (p *Pipeline) Cycle(ctx context.Context, root string) (out *Outcome, err error) {
	ctx, run, finish := p.begin(ctx, ledger.ModeSchedule, root, 0)
	defer func() { finish(err) }()
	out = run.outcome

	err = p.trimArchiveRestore(ctx, run, root)
	if err == nil {
		err = p.archiver.CheckSize(out.Archive)
	}
	p.prune(ctx)
	return out, err
}

// CollectOptions tune Collect.
type CollectOptions struct {
	// Reuse skips the collection and trims what is already in the
	// destination directory.
	Reuse bool
}

// Collect checks the bug, gathers, trims, archives, restores and uploads
// the archive to the bug.
func (p *Pipeline) Collect(ctx context.Context, bugID int, opts CollectOptions) (out *Outcome, err error) {
	root := p.config.Gather.DestDir
	ctx = logging.WithBugID(ctx, strconv.Itoa(bugID))
	ctx, run, finish := p.begin(ctx, ledger.ModeCollect, root, bugID)
	defer func() { finish(err) }()
	out = run.outcome

	if p.uploader == nil {
		return out, errors.New("no bugzilla client configured")
	}

	err = p.stage(ctx, StageCheck, func(ctx context.Context) error {
		exists, err := p.uploader.BugExists(ctx, bugID)
		if err != nil {
			return explainBugzilla(bugID, err)
		}
		if !exists {
			return fmt.Errorf("bug %d: %w", bugID, bugzilla.ErrBugNotFound)
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	if opts.Reuse {
		p.logger.InfoContext(ctx, "reusing existing must-gather output", "dest_dir", root)
	} else {
		if p.gatherer == nil {
			return out, errors.New("no must-gather runner configured")
		}
		if err = p.stage(ctx, StageGather, p.gatherer.Run); err != nil {
			return out, err
		}
	}

	if err = p.trimArchiveRestore(ctx, run, root); err != nil {
		return out, err
	}
	if err = p.archiver.CheckSize(out.Archive); err != nil {
		return out, err
	}

	err = p.stage(ctx, StageUpload, func(ctx context.Context) error {
		ids, err := p.uploader.AttachFile(ctx, bugID, out.Archive.Path, bugzilla.Comment(p.config.Trim.Window))
		out.AttachmentIDs = ids
		return explainBugzilla(bugID, err)
	})
	return out, err
}

// explainBugzilla names the usual cause of a credential or permission
// failure.
func explainBugzilla(bugID int, err error) error {
	switch {
	case err == nil:
		return nil
	case bugzilla.IsInvalidLogin(err):
		return fmt.Errorf("bugzilla rejected the API key: %w", err)
	case bugzilla.IsAccessDenied(err):
		return fmt.Errorf("not authorized to access bug %d: %w", bugID, err)
	default:
		return err
	}
}

func (p *Pipeline) trim(ctx context.Context, run *runState, root string) error {
	return p.stage(ctx, StageTrim, func(ctx context.Context) error {
		report, err := p.walker.Run(ctx, root, run.deadline)
		if report != nil {
			run.outcome.applyReport(report)
			run.record.ApplyReport(report)
			p.recordFiles(ctx, run.record.ID, report)
		}
		return err
	})
}

func (p *Pipeline) trimArchiveRestore(ctx context.Context, run *runState, root string) error {
	trimErr := p.trim(ctx, run, root)

	var archiveErr error
	if trimErr == nil {
		archiveErr = p.stage(ctx, StageArchive, func(ctx context.Context) error {
			res, err := p.archiver.Create(ctx, root, run.started)
			if err != nil {
				return err
			}
			run.outcome.Archive = res
			run.record.ArchivePath, run.record.ArchiveSize = res.Path, res.Size
			if p.metrics != nil {
				p.metrics.RecordArchive(res.Size, res.Files)
			}
			return nil
		})
	}

	// Restoring must not be skipped when the caller was cancelled.
	restored, restoreErr := p.Restore(context.WithoutCancel(ctx), root)
	run.outcome.Restored = len(restored)
	if restoreErr == nil {
		now := p.now().UTC()
		run.record.RestoredAt = &now
	}

	return errors.Join(trimErr, archiveErr, restoreErr)
}

// stage runs fn as a named stage.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx = logging.WithStage(ctx, name)
	ctx, span := p.tracer.Start(ctx, "stage."+name)

	p.logger.DebugContext(ctx, "stage started")
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordStage(name, err, duration)
	}
	tracing.End(span, err)

	if err != nil {
		p.logger.ErrorContext(ctx, "stage failed", "duration", duration.String(), "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.InfoContext(ctx, "stage completed", "duration", duration.String())
	return nil
}
