package cli

import (
	"errors"
	"fmt"
	"testing"

	"medik8s/gathertrim/pkg/archive"
	"medik8s/gathertrim/pkg/bugzilla"
	"medik8s/gathertrim/pkg/config"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("trim.window", "must be positive")
	expected := "config error in trim.window: must be positive"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewCommandError("trim", cause)

	if err.Error() != "command trim failed: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected CommandError to unwrap to its cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic", errors.New("boom"), ExitFailure},
		{"config error", NewConfigError("output", "bad"), ExitConfig},
		{"validation error", fmt.Errorf("load: %w", &config.ValidationError{}), ExitConfig},
		{"too large", NewCommandError("collect", fmt.Errorf("archive: %w", archive.ErrTooLarge)), ExitTooLarge},
		{"bug not found", fmt.Errorf("bug 7: %w", bugzilla.ErrBugNotFound), ExitBugzilla},
		{"bugzilla", NewCommandError("collect", &bugzilla.APIError{Code: 101, Message: "invalid bug"}), ExitBugzilla},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
