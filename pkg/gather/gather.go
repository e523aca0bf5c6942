// Package gather runs the cluster must-gather collection that produces the
// tree gathertrim trims.
package gather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"medik8s/gathertrim/pkg/config"
)

// OutputFileName receives the standard output of the collection inside the
// destination directory. The trimmer skips it by name.
const OutputFileName = "must-gather.log"

// waitDelay bounds waiting for output pipes after the command was killed.
const waitDelay = 5 * time.Second

// Error is a failed collection run.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("must-gather failed [command=%s, exit_code=%d]: %v", e.Command, e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Runner invokes `<command> adm must-gather`.
type Runner struct {
	config *config.GatherConfig
	logger *slog.Logger
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.GatherConfig) *Runner {
	return &Runner{
		config: cfg,
		logger: slog.Default().With("component", "gather"),
	}
}

// Images returns the --image values. The default image is used only when
// neither images nor image streams are configured.
func (r *Runner) Images() []string {
	if len(r.config.Images) > 0 {
		return r.config.Images
	}
	if len(r.config.ImageStreams) > 0 {
		return nil
	}
	return []string{r.config.DefaultImage}
}

// Args returns the arguments passed to the command.
func (r *Runner) Args() []string {
	args := []string{"adm", "must-gather", "--dest-dir=" + r.config.DestDir}
	for _, image := range r.Images() {
		args = append(args, "--image="+image)
	}
	for _, stream := range r.config.ImageStreams {
		args = append(args, "--image-stream="+stream)
	}
	return args
}

// Run recreates the destination directory and runs the collection into it.
// Standard output is written to OutputFileName in the destination; standard
// error is returned in an *Error when the command fails.
func (r *Runner) Run(ctx context.Context) error {
	dest := r.config.DestDir
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	out, err := os.Create(filepath.Join(dest, OutputFileName))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	args := r.Args()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.config.Command, args...)
	cmd.Stdout = out
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Info("running must-gather",
		"command", r.config.Command,
		"args", strings.Join(args, " "),
		"dest_dir", dest,
	)
	start := time.Now()

	if err := cmd.Run(); err != nil {
		gerr := &Error{
			Command:  r.config.Command,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			gerr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			gerr.Err = ctxErr
		}
		return gerr
	}

	r.logger.Info("must-gather completed",
		"dest_dir", dest,
		"duration", time.Since(start).String(),
	)
	return nil
}
