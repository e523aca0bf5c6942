package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"medik8s/gathertrim/pkg/cli"
	"medik8s/gathertrim/pkg/ledger"
)

var historyFlags struct {
	mode   string
	status string
	since  time.Duration
	limit  int
	output string
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs",
	Long: `List the runs recorded in the ledger, newest first, or show one run with
the files it rewrote.

Examples:
  # Last 20 runs
  gathertrim history

  # Failed collections of the last day, as JSON
  gathertrim history --mode collect --status failed --since 24h --output json

  # Files trimmed by one run
  gathertrim history 6f1c2c1e-3c55-4b0e-9a43-8d3a7c1f2b10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFlags.mode, "mode", "", "filter by mode: trim, collect, schedule")
	historyCmd.Flags().StringVar(&historyFlags.status, "status", "", "filter by status: running, succeeded, failed")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only runs started within this duration")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "max results")
	historyCmd.Flags().StringVarP(&historyFlags.output, "output", "o", "text", "output format: text, json")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if _, err := cli.ParseFormat(historyFlags.output); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return cli.NewConfigError("ledger.enabled", "the run ledger is disabled")
	}
	store, err := ledger.Open(&cfg.Ledger)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		detail, err := runDetail(ctx, store, args[0])
		if err != nil {
			return cli.NewCommandError("history", err)
		}
		return writeResult(historyFlags.output, detail)
	}

	q := ledger.Query{
		Mode:   historyFlags.mode,
		Status: historyFlags.status,
		Limit:  historyFlags.limit,
	}
	if historyFlags.since > 0 {
		q.Since = time.Now().Add(-historyFlags.since)
	}
	runs, err := store.ListRuns(ctx, q)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return writeResult(historyFlags.output, runsTable(runs))
}

func runsTable(runs []*ledger.Run) *cli.Table {
	t := &cli.Table{
		Headers: []string{"RUN ID", "MODE", "STATUS", "STARTED", "WINDOW", "TRIMMED", "DISCARDED", "ARCHIVE"},
		Records: runs,
	}
	if runs == nil {
		t.Records = []*ledger.Run{}
	}
	for _, r := range runs {
		archive := r.ArchivePath
		if archive == "" {
			archive = "-"
		}
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.Mode,
			r.Status,
			r.StartedAt.Local().Format(time.DateTime),
			r.Window.String(),
			fmt.Sprintf("%d/%d", r.FilesTrimmed, r.FilesSeen),
			cli.FormatBytes(r.BytesDiscarded),
			archive,
		})
	}
	return t
}

// runDetailResult is one run and its rewritten files.
type runDetailResult struct {
	Run   *ledger.Run   `json:"run"`
	Files []ledger.File `json:"files"`
}

func runDetail(ctx context.Context, store *ledger.Store, id string) (*runDetailResult, error) {
	run, err := store.GetRun(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	if err != nil {
		return nil, err
	}
	files, err := store.Files(ctx, id)
	if err != nil {
		return nil, err
	}
	return &runDetailResult{Run: run, Files: files}, nil
}

func (d *runDetailResult) Text() string {
	r := d.Run
	s := fmt.Sprintf("Run %s (%s, %s)\n", r.ID, r.Mode, r.Status)
	s += fmt.Sprintf("Root:      %s\n", r.Root)
	s += fmt.Sprintf("Started:   %s\n", r.StartedAt.Local().Format(time.DateTime))
	s += fmt.Sprintf("Deadline:  %s (window %s)\n", r.Deadline.Local().Format(time.DateTime), r.Window)
	if r.BugID != 0 {
		s += "Bug:       " + strconv.Itoa(r.BugID) + "\n"
	}
	if r.ArchivePath != "" {
		s += fmt.Sprintf("Archive:   %s (%s)\n", r.ArchivePath, cli.FormatBytes(r.ArchiveSize))
	}
	if r.RestoredAt != nil {
		s += fmt.Sprintf("Restored:  %s\n", r.RestoredAt.Local().Format(time.DateTime))
	}
	if r.Error != "" {
		s += "Error:     " + r.Error + "\n"
	}
	s += fmt.Sprintf("Files:     %d trimmed of %d, %d errors, %s discarded\n",
		r.FilesTrimmed, r.FilesSeen, r.FileErrors, cli.FormatBytes(r.BytesDiscarded))
	for _, f := range d.Files {
		s += fmt.Sprintf("  %-5s %s (%s -> %s)\n", f.Kind, f.Path, cli.FormatBytes(f.OriginalSize), cli.FormatBytes(f.NewSize))
	}
	return s
}
