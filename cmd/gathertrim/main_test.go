package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"medik8s/gathertrim/pkg/cli"
	"medik8s/gathertrim/pkg/config"
	"medik8s/gathertrim/pkg/ledger"
)

func TestCommandTree(t *testing.T) {
	want := []string{"trim", "restore", "collect", "schedule", "history", "version", "completion"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered (err = %v)", name, err)
		}
	}

	for _, flag := range []string{"config", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
	for _, flag := range []string{"reuse", "image", "image-stream", "dest-dir", "api-key"} {
		if collectCmd.Flags().Lookup(flag) == nil {
			t.Errorf("collect is missing --%s", flag)
		}
	}
}

func TestConfigPath(t *testing.T) {
	orig := cfgFile
	defer func() { cfgFile = orig }()

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfgFile = defaultConfigFile
	if got := configPath(); got != "" {
		t.Errorf("configPath() = %q for a missing default file, want empty", got)
	}

	if err := os.WriteFile(defaultConfigFile, []byte("trim:\n  window: 1h\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := configPath(); got != defaultConfigFile {
		t.Errorf("configPath() = %q, want %q", got, defaultConfigFile)
	}

	cfgFile = filepath.Join(dir, "missing.yaml")
	if got := configPath(); got != cfgFile {
		t.Errorf("an explicit path must be kept, got %q", got)
	}
}

func TestParseBugID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1234567", want: 1234567},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "BZ123", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseBugID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseBugID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			if cli.ExitCode(err) != cli.ExitConfig {
				t.Errorf("parseBugID(%q) exit code = %d, want %d", tt.in, cli.ExitCode(err), cli.ExitConfig)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("parseBugID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestScheduleSettings(t *testing.T) {
	orig := scheduleFlags
	defer func() { scheduleFlags = orig }()

	cfg := config.Default()
	cfg.Gather.DestDir = "mg"

	scheduleFlags.root, scheduleFlags.cron = "", ""
	root, spec := scheduleSettings(cfg)
	if root != "mg" || spec != config.DefaultScheduleCron {
		t.Errorf("scheduleSettings() = %q, %q", root, spec)
	}

	cfg.Schedule.Root = "configured"
	scheduleFlags.cron = "0 * * * *"
	root, spec = scheduleSettings(cfg)
	if root != "configured" || spec != "0 * * * *" {
		t.Errorf("scheduleSettings() = %q, %q", root, spec)
	}

	scheduleFlags.root = "flag"
	if root, _ = scheduleSettings(cfg); root != "flag" {
		t.Errorf("--root should win, got %q", root)
	}
}

func TestRunsTable(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	runs := []*ledger.Run{
		{ID: "a", Mode: ledger.ModeCollect, Status: ledger.StatusSucceeded, StartedAt: started,
			Window: 30 * time.Minute, FilesSeen: 4, FilesTrimmed: 3, BytesDiscarded: 2048, ArchivePath: "mg.tar.gz"},
		{ID: "b", Mode: ledger.ModeTrim, Status: ledger.StatusFailed, StartedAt: started},
	}

	table := runsTable(runs)
	if len(table.Rows) != 2 || len(table.Rows[0]) != len(table.Headers) {
		t.Fatalf("table shape = %d rows, headers %v", len(table.Rows), table.Headers)
	}
	if got := table.Rows[0][5]; got != "3/4" {
		t.Errorf("trimmed column = %q, want 3/4", got)
	}
	if got := table.Rows[1][7]; got != "-" {
		t.Errorf("archive column = %q, want -", got)
	}

	var sb strings.Builder
	if err := cli.NewFormatter(cli.FormatJSON).FormatTo(&sb, runsTable(nil)); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(sb.String()) != "[]" {
		t.Errorf("empty history JSON = %q, want []", sb.String())
	}
}

func TestRunDetailText(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	d := &runDetailResult{
		Run: &ledger.Run{ID: "a", Mode: ledger.ModeCollect, Status: ledger.StatusFailed, BugID: 42,
			StartedAt: started, Root: "mg", Error: "upload: boom"},
		Files: []ledger.File{{Path: "mg/x.log", Kind: "pod", OriginalSize: 10, NewSize: 5}},
	}
	text := d.Text()
	for _, want := range []string{"Run a (collect, failed)", "Bug:       42", "Error:     upload: boom", "mg/x.log"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() missing %q:\n%s", want, text)
		}
	}
}

func TestRestoreResultText(t *testing.T) {
	r := &restoreResult{Root: "mg", Restored: []string{"mg/a.log"}}
	if !strings.Contains(r.Text(), "Restored 1 files under mg") {
		t.Errorf("Text() = %q", r.Text())
	}
}

func TestExitCodeOfConfigErrors(t *testing.T) {
	err := cli.NewConfigError("schedule.cron", "bad")
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("ExitCode() = %d", cli.ExitCode(err))
	}
	if cli.ExitCode(cli.NewCommandError("trim", errors.New("x"))) != cli.ExitFailure {
		t.Error("command errors should exit 1")
	}
}
