// Package logging configures log/slog for gathertrim.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON, text and console output
//   - Secret redaction by attribute key and by value pattern
//   - Run id, bug id, stage and path fields taken from the context
//   - A level that can be changed after a configuration reload
//
// # Usage
//
//	logger, err := logging.Setup(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "archive written", "path", archivePath)
//
// Components take their logger from slog.Default().With("component", name).
package logging
