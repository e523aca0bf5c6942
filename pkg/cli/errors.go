package cli

import (
	"errors"
	"fmt"

	"medik8s/gathertrim/pkg/archive"
	"medik8s/gathertrim/pkg/bugzilla"
	"medik8s/gathertrim/pkg/config"
)

// Exit codes returned by the gathertrim binary.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitTooLarge = 3
	ExitBugzilla = 4
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	var valErr *config.ValidationError
	var apiErr *bugzilla.APIError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitConfig
	case errors.Is(err, archive.ErrTooLarge):
		return ExitTooLarge
	case errors.As(err, &apiErr), errors.Is(err, bugzilla.ErrBugNotFound):
		return ExitBugzilla
	default:
		return ExitFailure
	}
}
