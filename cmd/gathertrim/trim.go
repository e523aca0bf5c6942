package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"medik8s/gathertrim/pkg/cli"
	"medik8s/gathertrim/pkg/pipeline"
)

var trimFlags struct {
	window   time.Duration
	progress bool
	output   string
}

var trimCmd = &cobra.Command{
	Use:   "trim [root]",
	Short: "Trim a collection in place",
	Long: `Trim every pod and node log under root to the configured window.

Each rewritten file keeps a hidden backup next to it (.<name>.orig) that
"gathertrim restore" moves back. Running trim again on a trimmed tree
narrows it further; the backups always hold the collected bytes.

Root defaults to gather.dest_dir from the configuration.

Examples:
  # Keep the last 30 minutes
  gathertrim trim ./must-gather

  # Keep the last two hours and show progress
  gathertrim trim ./must-gather --window 2h --progress

  # Print the run summary as JSON
  gathertrim trim ./must-gather --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrim,
}

var restoreFlags struct {
	output string
}

var restoreCmd = &cobra.Command{
	Use:   "restore [root]",
	Short: "Put trimmed files back from their backups",
	Long: `Move every backup under root back over the file it preserves and remove
leftover temporary files from an interrupted trim.

Examples:
  gathertrim restore ./must-gather`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(trimCmd, restoreCmd)

	trimCmd.Flags().DurationVarP(&trimFlags.window, "window", "w", 0, "history to keep (overrides trim.window)")
	trimCmd.Flags().BoolVar(&trimFlags.progress, "progress", false, "show a progress line on stderr")
	trimCmd.Flags().StringVarP(&trimFlags.output, "output", "o", "text", "output format: text, json")

	restoreCmd.Flags().StringVarP(&restoreFlags.output, "output", "o", "text", "output format: text, json")
}

func rootArg(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

func runTrim(cmd *cobra.Command, args []string) error {
	if _, err := cli.ParseFormat(trimFlags.output); err != nil {
		return err
	}
	if cmd.Flags().Changed("window") && trimFlags.window <= 0 {
		return cli.NewConfigError("window", "must be positive")
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	cfg := *a.cfg
	if trimFlags.window > 0 {
		cfg.Trim.Window = trimFlags.window
	}
	root := rootArg(args, cfg.Gather.DestDir)

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	recorder, finish := a.recorder(trimFlags.progress)
	out, err := a.pipeline(&cfg, pipeline.WithRecorder(recorder)).Trim(ctx, root)
	finish()
	a.flushMetrics()
	if err != nil {
		return cli.NewCommandError("trim", err)
	}
	return writeResult(trimFlags.output, out)
}

// restoreResult lists the files put back by restore.
type restoreResult struct {
	Root     string   `json:"root"`
	Restored []string `json:"restored"`
}

func (r *restoreResult) Text() string {
	s := fmt.Sprintf("Restored %d files under %s\n", len(r.Restored), r.Root)
	for _, p := range r.Restored {
		s += "  " + p + "\n"
	}
	return s
}

func runRestore(cmd *cobra.Command, args []string) error {
	if _, err := cli.ParseFormat(restoreFlags.output); err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	root := rootArg(args, a.cfg.Gather.DestDir)
	restored, err := a.pipeline(a.cfg).Restore(cmd.Context(), root)
	a.flushMetrics()
	if err != nil {
		return cli.NewCommandError("restore", err)
	}
	return writeResult(restoreFlags.output, &restoreResult{Root: root, Restored: restored})
}
