package trim

import (
	"regexp"
	"strconv"
	"time"
)

var (
	// podTimestampRegex matches the RFC 3339 prefix written by the container runtime.
	podTimestampRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})`)

	// nodeTimestampRegex matches journal short format: "Jan  1 00:30:00".
	nodeTimestampRegex = regexp.MustCompile(`^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) +(\d{1,2}) (\d{1,2}):(\d{2}):(\d{2})`)

	// nodeHeaderRegex matches the bounds in "-- Logs begin at ..., end at ... --".
	nodeHeaderRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} [A-Za-z]{3,5}`)
)

const nodeHeaderLayout = "2006-01-02 15:04:05 MST"

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// ParsePodTimestamp parses the ISO-8601 prefix of a pod log line as UTC.
// The second result is false when the line has no such prefix or the
// prefix does not name a real instant.
func ParsePodTimestamp(line []byte) (time.Time, bool) {
	m := podTimestampRegex.FindSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(string(m[1]))
	month, _ := strconv.Atoi(string(m[2]))
	return buildTime(year, time.Month(month), m[3], m[4], m[5], m[6], time.UTC)
}

// NodeLogHeader holds the bounds of a journal export.
type NodeLogHeader struct {
	Start time.Time
	End   time.Time
}

// ParseNodeHeader extracts the start and end bounds from the first line of
// a node log. It returns ErrMalformedHeader when fewer than two bounds are
// present.
func ParseNodeHeader(line []byte) (NodeLogHeader, error) {
	matches := nodeHeaderRegex.FindAll(line, 2)
	if len(matches) < 2 {
		return NodeLogHeader{}, ErrMalformedHeader
	}
	start, err := time.Parse(nodeHeaderLayout, string(matches[0]))
	if err != nil {
		return NodeLogHeader{}, ErrMalformedHeader
	}
	end, err := time.Parse(nodeHeaderLayout, string(matches[1]))
	if err != nil {
		return NodeLogHeader{}, ErrMalformedHeader
	}
	return NodeLogHeader{Start: start, End: end}, nil
}

// ParseNodeTimestamp parses the year-less syslog prefix of a node log line.
// The year is taken from the header's end bound; a result later than the
// end bound belongs to the previous year (an export spanning New Year).
func ParseNodeTimestamp(line []byte, header NodeLogHeader) (time.Time, bool) {
	m := nodeTimestampRegex.FindSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	month := months[string(m[1])]
	loc := header.End.Location()
	year := header.End.Year()

	ts, ok := buildTime(year, month, m[2], m[3], m[4], m[5], loc)
	if ok && !ts.After(header.End) {
		return ts, true
	}
	// Either past the end bound or not a valid date in the end's year
	// (Feb 29); both mean the line was written the year before.
	return buildTime(year-1, month, m[2], m[3], m[4], m[5], loc)
}

// buildTime assembles a time from parsed fields and rejects values that
// time.Date would silently normalize.
func buildTime(year int, month time.Month, day, hour, min, sec []byte, loc *time.Location) (time.Time, bool) {
	d, _ := strconv.Atoi(string(day))
	h, _ := strconv.Atoi(string(hour))
	mi, _ := strconv.Atoi(string(min))
	s, _ := strconv.Atoi(string(sec))

	if month < time.January || month > time.December || h > 23 || mi > 59 || s > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, month, d, h, mi, s, 0, loc)
	if t.Day() != d || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
