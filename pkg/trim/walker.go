package trim

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Outcomes reported to a Recorder.
const (
	OutcomeTrimmed = "trimmed"
	OutcomeKept    = "kept"
	OutcomeError   = "error"
)

// WalkerConfig selects which files are trimmed and how.
type WalkerConfig struct {
	// ChunkSize is the backward probe step in bytes.
	// Default: 65536
	ChunkSize int64

	// SkipNames are base names never trimmed, such as the captured output
	// of the collection tool itself.
	// Default: ["must-gather.log"]
	SkipNames []string

	// NodeMarkers are substrings of node log names. They are checked before
	// PodMarker.
	// Default: ["kubelet", "NetworkManager"]
	NodeMarkers []string

	// PodMarker is the substring of pod log names.
	// Default: ".log"
	PodMarker string
}

// DefaultWalkerConfig returns the default walker configuration.
func DefaultWalkerConfig() *WalkerConfig {
	return &WalkerConfig{
		ChunkSize:   DefaultChunkSize,
		SkipNames:   []string{"must-gather.log"},
		NodeMarkers: []string{"kubelet", "NetworkManager"},
		PodMarker:   ".log",
	}
}

// Recorder receives one observation per classified file.
type Recorder interface {
	RecordFile(kind Kind, outcome string, discarded int64, duration time.Duration)
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithRecorder sets the recorder notified after every file.
func WithRecorder(r Recorder) WalkerOption {
	return func(w *Walker) { w.recorder = r }
}

// WithTracer sets the tracer used for per-file spans.
func WithTracer(t trace.Tracer) WalkerOption {
	return func(w *Walker) {
		if t != nil {
			w.tracer = t
		}
	}
}

// Walker trims every log file under a directory tree.
type Walker struct {
	config   *WalkerConfig
	scanner  *Scanner
	backups  *BackupManager
	recorder Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewWalker creates a walker. A nil config selects DefaultWalkerConfig.
func NewWalker(config *WalkerConfig, opts ...WalkerOption) *Walker {
	if config == nil {
		config = DefaultWalkerConfig()
	}
	w := &Walker{
		config:  config,
		scanner: NewScanner(config.ChunkSize),
		backups: NewBackupManager(),
		tracer:  noop.NewTracerProvider().Tracer("gathertrim"),
		logger:  slog.Default().With("component", "trim.walker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Backups returns the backup manager used by the walker.
func (w *Walker) Backups() *BackupManager {
	return w.backups
}

// KindOf infers the log family from a base name.
func (w *Walker) KindOf(name string) Kind {
	for _, marker := range w.config.NodeMarkers {
		if marker != "" && strings.Contains(name, marker) {
			return KindNode
		}
	}
	if w.config.PodMarker != "" && strings.Contains(name, w.config.PodMarker) {
		return KindPod
	}
	return KindUnclassified
}

func (w *Walker) skipped(name string) bool {
	if IsConcealed(name) {
		return true
	}
	for _, skip := range w.config.SkipNames {
		if name == skip {
			return true
		}
	}
	return false
}

// FileResult is the outcome for one classified file.
type FileResult struct {
	Result
	Kind          Kind
	BackupCreated bool
	Duration      time.Duration
}

// Report summarizes a walk.
type Report struct {
	Root     string
	Deadline Deadline

	// Files holds every classified file that was processed without error.
	Files []FileResult

	// Unclassified counts regular files left alone because of their name.
	Unclassified int

	// Errors holds per-file failures; the files they name were not modified.
	Errors []*FileError
}

// Trimmed returns the results of files that were rewritten.
func (r *Report) Trimmed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Trimmed {
			out = append(out, f)
		}
	}
	return out
}

// BytesDiscarded sums the bytes dropped from all live files.
func (r *Report) BytesDiscarded() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Discarded()
	}
	return total
}

// Run trims every pod and node log under root to the deadline. Errors on
// single files are collected in the report; only a root that cannot be
// walked, or a cancelled context, ends the walk early.
func (w *Walker) Run(ctx context.Context, root string, deadline Deadline) (*Report, error) {
	report := &Report{Root: root, Deadline: deadline}

	w.logger.Info("trimming logs",
		"root", root,
		"deadline", deadline.String(),
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			report.Errors = append(report.Errors, NewFileError(path, err))
			w.logger.Warn("cannot read entry", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && IsConcealed(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || w.skipped(name) {
			return nil
		}

		kind := w.KindOf(name)
		if kind == KindUnclassified {
			report.Unclassified++
			return nil
		}

		res, err := w.TrimOne(ctx, path, kind, deadline)
		if err != nil {
			fe := NewFileError(path, err)
			report.Errors = append(report.Errors, fe)
			w.logger.Warn("skipping file",
				"path", path,
				"kind", string(kind),
				"error_kind", string(fe.Kind),
				"error", err,
			)
			return nil
		}
		report.Files = append(report.Files, res)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	w.logger.Info("trimming completed",
		"root", root,
		"files", len(report.Files),
		"trimmed", len(report.Trimmed()),
		"bytes_discarded", report.BytesDiscarded(),
		"errors", len(report.Errors),
	)
	return report, nil
}

// TrimOne trims a single file of a known kind. The file is backed up right
// before it is rewritten and left untouched when nothing is discarded.
func (w *Walker) TrimOne(ctx context.Context, path string, kind Kind, deadline Deadline) (FileResult, error) {
	_, span := w.tracer.Start(ctx, "trim.file", trace.WithAttributes(
		attribute.String("file.path", path),
		attribute.String("log.kind", string(kind)),
	))
	defer span.End()

	start := time.Now()
	out := FileResult{Kind: kind}

	// A trimmed node log starts with our header; its journal header
	// survives in the backup.
	c, err := classifierFor(kind, w.backups.PristinePath(path), deadline)
	if err == nil {
		out.Result, err = w.scanner.TrimFile(path, c, deadline, func(p string) error {
			created, err := w.backups.Backup(p)
			out.BackupCreated = created
			return err
		})
	}
	out.Duration = time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.record(kind, OutcomeError, 0, out.Duration)
		return out, err
	}

	outcome := OutcomeKept
	if out.Trimmed {
		outcome = OutcomeTrimmed
		w.logger.Debug("file trimmed",
			"path", path,
			"kind", string(kind),
			"trim_start", out.TrimStart,
			"original_size", out.OriginalSize,
			"new_size", out.NewSize,
		)
	}
	span.SetAttributes(
		attribute.Int64("trim.start", out.TrimStart),
		attribute.String("trim.outcome", outcome),
	)
	w.record(kind, outcome, out.Discarded(), out.Duration)
	return out, nil
}

func (w *Walker) record(kind Kind, outcome string, discarded int64, d time.Duration) {
	if w.recorder != nil {
		w.recorder.RecordFile(kind, outcome, discarded, d)
	}
}
