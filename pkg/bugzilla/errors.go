package bugzilla

import (
	"errors"
	"fmt"
)

// Bugzilla REST error codes handled by gathertrim.
const (
	CodeInvalidBug   = 101
	CodeAccessDenied = 102
	CodeInvalidLogin = 300
	CodeAPIKeyWrong  = 306
)

// APIError is an error reported by the Bugzilla REST API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the Bugzilla error code, 0 when the body carried none.
	Code int

	// Message is the error message from Bugzilla.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("bugzilla error %d (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bugzilla error (status %d): %s", e.StatusCode, e.Message)
}

// IsInvalidLogin reports whether err is a rejected login or API key.
func IsInvalidLogin(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeInvalidLogin || apiErr.Code == CodeAPIKeyWrong
}

// IsAccessDenied reports whether err is a refusal to access a bug.
func IsAccessDenied(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeAccessDenied
}

// IsInvalidBug reports whether err names a bug that does not exist.
func IsInvalidBug(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeInvalidBug
}

// retryable reports whether a failed request may succeed when repeated.
func (e *APIError) retryable() bool {
	return e.Code == 0 && e.StatusCode >= 500
}

// ErrBugNotFound is returned when the target bug does not exist.
var ErrBugNotFound = errors.New("bug not found")
