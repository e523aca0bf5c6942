package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (valid: text, json)", s))
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// Texter is implemented by results with a human-readable rendering.
type Texter interface {
	Text() string
}

// TextFormatter formats output as plain text. Tables are aligned in
// columns and Texters render themselves.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *Table:
		return v.write(w)
	case Texter:
		_, err := io.WriteString(w, strings.TrimRight(v.Text(), "\n")+"\n")
		return err
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format. A Table is written as its
// underlying records.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		data = t.Records
	}
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{}
}

// Table is a list result. Text output prints Headers and Rows; JSON output
// prints Records.
type Table struct {
	Headers []string
	Rows    [][]string
	Records any
}

func (t *Table) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
