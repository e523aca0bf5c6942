package trim

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Classification places a single line relative to the deadline.
type Classification int

const (
	// NoTimestamp means the line carries no parseable leading timestamp,
	// typically the continuation of a multi-line entry.
	NoTimestamp Classification = iota

	// Earlier means the line is stamped before the deadline.
	Earlier

	// Later means the line is stamped at or after the deadline. The empty
	// line, which the scanner passes at end of file, is always Later.
	Later
)

// String implements fmt.Stringer.
func (c Classification) String() string {
	switch c {
	case Earlier:
		return "earlier"
	case Later:
		return "later"
	default:
		return "no_timestamp"
	}
}

// Classifier classifies lines of one file against a fixed deadline.
type Classifier interface {
	Classify(line []byte) Classification
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(line []byte) Classification

// Classify calls f(line).
func (f ClassifierFunc) Classify(line []byte) Classification {
	return f(line)
}

// PodLogClassifier classifies lines with a leading ISO-8601 timestamp.
type PodLogClassifier struct {
	deadline Deadline
}

// NewPodLogClassifier returns a classifier for pod logs.
func NewPodLogClassifier(deadline Deadline) *PodLogClassifier {
	return &PodLogClassifier{deadline: deadline}
}

// Classify implements Classifier.
func (c *PodLogClassifier) Classify(line []byte) Classification {
	if len(line) == 0 {
		return Later
	}
	ts, ok := ParsePodTimestamp(line)
	if !ok {
		return NoTimestamp
	}
	return c.deadline.Classify(ts)
}

// NodeLogClassifier classifies year-less syslog lines of a journal export.
type NodeLogClassifier struct {
	deadline Deadline
	header   NodeLogHeader
}

// NewNodeLogClassifier builds a classifier from the first line of a node log.
func NewNodeLogClassifier(headerLine []byte, deadline Deadline) (*NodeLogClassifier, error) {
	header, err := ParseNodeHeader(headerLine)
	if err != nil {
		return nil, err
	}
	return &NodeLogClassifier{deadline: deadline, header: header}, nil
}

// NewNodeLogClassifierFromFile reads the header line of the file at path.
func NewNodeLogClassifierFromFile(path string, deadline Deadline) (*NodeLogClassifier, error) {
	line, err := readFirstLine(path)
	if err != nil {
		return nil, err
	}
	if IsTrimHeader(line) {
		return nil, fmt.Errorf("%s was trimmed before and its backup is missing: %w", path, ErrMalformedHeader)
	}
	return NewNodeLogClassifier(line, deadline)
}

// Header returns the parsed export bounds.
func (c *NodeLogClassifier) Header() NodeLogHeader {
	return c.header
}

// ReferenceYear is the year assigned to body timestamps before rollover.
func (c *NodeLogClassifier) ReferenceYear() int {
	return c.header.End.Year()
}

// Classify implements Classifier.
func (c *NodeLogClassifier) Classify(line []byte) Classification {
	if len(line) == 0 {
		return Later
	}
	ts, ok := ParseNodeTimestamp(line, c.header)
	if !ok {
		return NoTimestamp
	}
	return c.deadline.Classify(ts)
}

// Kind is the log family of a file, inferred from its name.
type Kind string

const (
	KindPod          Kind = "pod"
	KindNode         Kind = "node"
	KindUnclassified Kind = "unclassified"
)

// classifierFor returns the classifier for a file of the given kind.
// headerPath is where the node log header is read from.
func classifierFor(kind Kind, headerPath string, deadline Deadline) (Classifier, error) {
	switch kind {
	case KindNode:
		return NewNodeLogClassifierFromFile(headerPath, deadline)
	case KindPod:
		return NewPodLogClassifier(deadline), nil
	default:
		return nil, fmt.Errorf("no classifier for kind %q", kind)
	}
}

// firstLineLimit caps how much of a header line is read.
const firstLineLimit = 64 * 1024

func readFirstLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(io.LimitReader(f, firstLineLimit))
	line, err := r.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	return line, nil
}

var (
	_ Classifier = (*PodLogClassifier)(nil)
	_ Classifier = (*NodeLogClassifier)(nil)
	_ Classifier = ClassifierFunc(nil)
)
