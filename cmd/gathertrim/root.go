package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medik8s/gathertrim/pkg/cli"
)

// defaultConfigFile is read when present; its absence is not an error.
const defaultConfigFile = "gathertrim.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gathertrim",
	Short: "gathertrim - trim must-gather logs to a recent time window",
	Long: `gathertrim trims the logs of a must-gather collection to a recent time window
so the archive stays small enough to attach to a bug.

Pod logs (ISO-8601 timestamps) and node journal exports (year-less syslog
timestamps) are cut in place to the lines written after "now minus the
window". The discarded content is kept in hidden backups and restored once
the archive has been written.

Commands:
  trim      - Trim a collection in place
  restore   - Put trimmed files back from their backups
  collect   - Gather, trim, archive and attach to a Bugzilla bug
  schedule  - Run trim, archive and restore on a cron schedule
  history   - List recorded runs`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
