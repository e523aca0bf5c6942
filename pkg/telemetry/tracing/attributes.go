package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on gathertrim spans.
const (
	AttrRunID          = "gathertrim.run_id"
	AttrBugID          = "gathertrim.bug_id"
	AttrRoot           = "gathertrim.root"
	AttrDeadline       = "gathertrim.deadline"
	AttrFilesTrimmed   = "gathertrim.files_trimmed"
	AttrBytesDiscarded = "gathertrim.bytes_discarded"
	AttrArchivePath    = "gathertrim.archive.path"
	AttrArchiveSize    = "gathertrim.archive.size"
)

// SetRunAttributes tags a span with the run it belongs to.
func SetRunAttributes(span trace.Span, runID, root string) {
	span.SetAttributes(
		attribute.String(AttrRunID, runID),
		attribute.String(AttrRoot, root),
	)
}

// SetTrimAttributes records the outcome of a trim over a tree.
func SetTrimAttributes(span trace.Span, deadline string, filesTrimmed int, bytesDiscarded int64) {
	span.SetAttributes(
		attribute.String(AttrDeadline, deadline),
		attribute.Int(AttrFilesTrimmed, filesTrimmed),
		attribute.Int64(AttrBytesDiscarded, bytesDiscarded),
	)
}

// SetArchiveAttributes records the archive written by a run.
func SetArchiveAttributes(span trace.Span, path string, size int64) {
	span.SetAttributes(
		attribute.String(AttrArchivePath, path),
		attribute.Int64(AttrArchiveSize, size),
	)
}
