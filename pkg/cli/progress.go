package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"medik8s/gathertrim/pkg/trim"
)

// Progress prints a running count of processed files. It implements
// trim.Recorder and forwards every observation to Next.
type Progress struct {
	Next trim.Recorder

	mu        sync.Mutex
	writer    io.Writer
	started   time.Time
	files     int
	trimmed   int
	failed    int
	discarded int64
}

// NewProgress creates a progress reporter writing to w. A nil w selects
// os.Stderr.
func NewProgress(w io.Writer, next trim.Recorder) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{Next: next, writer: w, started: time.Now()}
}

// RecordFile implements trim.Recorder.
func (p *Progress) RecordFile(kind trim.Kind, outcome string, discarded int64, d time.Duration) {
	if p.Next != nil {
		p.Next.RecordFile(kind, outcome, discarded, d)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.files++
	switch outcome {
	case trim.OutcomeTrimmed:
		p.trimmed++
		p.discarded += discarded
	case trim.OutcomeError:
		p.failed++
	}
	p.render()
}

// Finish ends the progress line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.files > 0 {
		fmt.Fprintln(p.writer)
	}
}

func (p *Progress) render() {
	fmt.Fprintf(p.writer, "\rProcessed %d files: %d trimmed, %d failed, %s discarded (%.1fs)",
		p.files, p.trimmed, p.failed, FormatBytes(p.discarded), time.Since(p.started).Seconds())
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
