package trim

import (
	"fmt"
	"time"
)

// DefaultWindow is how much recent history a trimmed file keeps.
const DefaultWindow = 30 * time.Minute

// headerLayout formats the deadline in the synthetic trim header.
const headerLayout = "2006-01-02 15:04:05Z"

// headerPrefix starts the first line of every trimmed file.
const headerPrefix = "This file was trimmed to only contain lines since "

// Deadline is the cutoff instant of a run. Lines stamped before it are
// discarded. It is computed once and passed by value to every classifier.
type Deadline struct {
	at time.Time
}

// NewDeadline returns the deadline window before now.
func NewDeadline(now time.Time, window time.Duration) Deadline {
	return Deadline{at: now.UTC().Add(-window)}
}

// DeadlineAt returns a deadline at exactly t.
func DeadlineAt(t time.Time) Deadline {
	return Deadline{at: t.UTC()}
}

// Time returns the cutoff instant in UTC.
func (d Deadline) Time() time.Time {
	return d.at
}

// Classify reports whether t falls before or at/after the deadline.
func (d Deadline) Classify(t time.Time) Classification {
	if t.Before(d.at) {
		return Earlier
	}
	return Later
}

// Header returns the line written at the top of a trimmed file.
func (d Deadline) Header() string {
	return fmt.Sprintf("%s%s\n", headerPrefix, d.at.Format(headerLayout))
}

// String implements fmt.Stringer.
func (d Deadline) String() string {
	return d.at.Format(time.RFC3339)
}

// IsTrimHeader reports whether line is a header written by a previous trim.
func IsTrimHeader(line []byte) bool {
	return len(line) >= len(headerPrefix) && string(line[:len(headerPrefix)]) == headerPrefix
}
