package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for the ledger run id.
	RunIDKey contextKey = "run_id"

	// PathKey is the context key for the file or tree being processed.
	PathKey contextKey = "path"

	// BugIDKey is the context key for the Bugzilla bug id.
	BugIDKey contextKey = "bug_id"

	// StageKey is the context key for the pipeline stage.
	StageKey contextKey = "stage"
)

// contextKeys lists the fields copied from a context into each record.
var contextKeys = []contextKey{RunIDKey, BugIDKey, StageKey, PathKey}

// WithRunID adds a run id to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run id from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithPath adds a path to the context.
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, PathKey, path)
}

// GetPath retrieves the path from the context.
func GetPath(ctx context.Context) string {
	if path, ok := ctx.Value(PathKey).(string); ok {
		return path
	}
	return ""
}

// WithBugID adds a bug id to the context.
func WithBugID(ctx context.Context, bugID string) context.Context {
	return context.WithValue(ctx, BugIDKey, bugID)
}

// GetBugID retrieves the bug id from the context.
func GetBugID(ctx context.Context) string {
	if bugID, ok := ctx.Value(BugIDKey).(string); ok {
		return bugID
	}
	return ""
}

// WithStage adds a pipeline stage to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// extractContextFields returns the context fields present in ctx.
func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// ContextHandler adds context fields to records and optionally redacts
// secrets before passing them to the wrapped handler.
type ContextHandler struct {
	next     slog.Handler
	redactor *Redactor
}

// NewContextHandler wraps next. A nil redactor disables redaction.
func NewContextHandler(next slog.Handler, redactor *Redactor) *ContextHandler {
	return &ContextHandler{next: next, redactor: redactor}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	for _, a := range extractContextFields(ctx) {
		out.AddAttrs(a)
	}
	if h.redactor != nil {
		out.Message = h.redactor.RedactString(r.Message)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.redactor != nil {
			a = h.redactor.RedactAttr(a)
		}
		out.AddAttrs(a)
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.redactor != nil {
		redacted := make([]slog.Attr, len(attrs))
		for i, a := range attrs {
			redacted[i] = h.redactor.RedactAttr(a)
		}
		attrs = redacted
	}
	return &ContextHandler{next: h.next.WithAttrs(attrs), redactor: h.redactor}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}
