package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// StorageError represents an error from the database.
type StorageError struct {
	Driver    string // "sqlite" or "sqlite3"
	Operation string // Operation that failed ("open", "begin_run", "list_runs", etc.)
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger error [driver=%s, operation=%s]: %v", e.Driver, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(driver, operation string, cause error) *StorageError {
	return &StorageError{
		Driver:    driver,
		Operation: operation,
		Cause:     cause,
	}
}
