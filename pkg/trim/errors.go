package trim

import (
	"errors"
	"fmt"
)

// ErrMalformedHeader is returned when a node log's first line does not
// carry two export bounds, so no reference year can be established.
var ErrMalformedHeader = errors.New("node log header does not contain start and end timestamps")

// ErrorKind classifies a per-file failure.
type ErrorKind string

const (
	// KindMalformedHeader marks a node log without a usable header.
	KindMalformedHeader ErrorKind = "malformed_header"

	// KindIO marks a read, write or rename failure.
	KindIO ErrorKind = "io"
)

// FileError is a failure confined to one file. The walk that produced it
// continues with the remaining files.
type FileError struct {
	Path string
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("trim error [path=%s, kind=%s]: %v", e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying cause error.
func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError wraps err for path, deriving the kind from the cause.
func NewFileError(path string, err error) *FileError {
	kind := KindIO
	if errors.Is(err, ErrMalformedHeader) {
		kind = KindMalformedHeader
	}
	return &FileError{Path: path, Kind: kind, Err: err}
}
