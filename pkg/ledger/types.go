package ledger

import (
	"time"

	"medik8s/gathertrim/pkg/trim"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run modes.
const (
	ModeTrim     = "trim"
	ModeCollect  = "collect"
	ModeSchedule = "schedule"
)

// Run is one trim, collect or scheduled cycle.
type Run struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	BugID      int        `json:"bug_id,omitempty"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	RestoredAt *time.Time `json:"restored_at,omitempty"`

	Root     string        `json:"root"`
	Window   time.Duration `json:"window"`
	Deadline time.Time     `json:"deadline"`

	FilesSeen      int   `json:"files_seen"`
	FilesTrimmed   int   `json:"files_trimmed"`
	FileErrors     int   `json:"file_errors"`
	BytesDiscarded int64 `json:"bytes_discarded"`

	ArchivePath string `json:"archive_path,omitempty"`
	ArchiveSize int64  `json:"archive_size,omitempty"`

	Error string `json:"error,omitempty"`
}

// ApplyReport copies the counters of a trim report into the run.
func (r *Run) ApplyReport(report *trim.Report) {
	r.FilesSeen = len(report.Files) + len(report.Errors)
	r.FilesTrimmed = len(report.Trimmed())
	r.FileErrors = len(report.Errors)
	r.BytesDiscarded = report.BytesDiscarded()
}

// File is a file rewritten during a run.
type File struct {
	RunID        string `json:"run_id"`
	Path         string `json:"path"`
	Kind         string `json:"kind"`
	TrimStart    int64  `json:"trim_start"`
	OriginalSize int64  `json:"original_size"`
	NewSize      int64  `json:"new_size"`
	BackupPath   string `json:"backup_path,omitempty"`
}

// FilesFromReport returns the trimmed files of a report.
func FilesFromReport(runID string, report *trim.Report) []File {
	trimmed := report.Trimmed()
	files := make([]File, 0, len(trimmed))
	for _, f := range trimmed {
		files = append(files, File{
			RunID:        runID,
			Path:         f.Path,
			Kind:         string(f.Kind),
			TrimStart:    f.TrimStart,
			OriginalSize: f.OriginalSize,
			NewSize:      f.NewSize,
			BackupPath:   trim.BackupPath(f.Path),
		})
	}
	return files
}

// Query filters ListRuns.
type Query struct {
	// Mode restricts runs to one mode when set.
	Mode string

	// Status restricts runs to one status when set.
	Status string

	// Since excludes runs started before it when set.
	Since time.Time

	// Limit caps the result. Default: 20
	Limit int
}
