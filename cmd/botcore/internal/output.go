package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatText renders human-readable output.
	FormatText OutputFormat = "text"
	// FormatJSON renders structured JSON output.
	FormatJSON OutputFormat = "json"
)

// Formatter renders command results. Every subcommand writes through one
// of these so that -o json changes the shape, not the information.
type Formatter interface {
	// PrintSuccess reports a completed operation.
	PrintSuccess(message string) error
	// PrintError reports a failed operation.
	PrintError(message string) error
	// PrintTable renders rows under a header line.
	PrintTable(headers []string, rows [][]string) error
	// PrintKeyValues renders an ordered list of name/value pairs, the
	// shape of the run report.
	PrintKeyValues(pairs [][2]string) error
	// PrintJSON renders arbitrary data as indented JSON.
	PrintJSON(data any) error
}

// NewFormatter returns the formatter for the requested output format,
// falling back to text for anything unrecognized.
func NewFormatter(format OutputFormat, w io.Writer) Formatter {
	if w == nil {
		w = os.Stdout
	}
	if format == FormatJSON {
		return NewJSONFormatter(w)
	}
	return NewTextFormatter(w)
}

// TextFormatter renders results for a terminal.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a TextFormatter writing to w.
func NewTextFormatter(w io.Writer) *TextFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &TextFormatter{writer: w}
}

// PrintSuccess prints the message with a checkmark prefix.
func (f *TextFormatter) PrintSuccess(message string) error {
	_, err := fmt.Fprintf(f.writer, "✓ %s\n", message)
	return err
}

// PrintError prints the message with an X prefix.
func (f *TextFormatter) PrintError(message string) error {
	_, err := fmt.Fprintf(f.writer, "✗ %s\n", message)
	return err
}

// PrintTable prints uppercase headers, a dashed separator, and the rows,
// aligned with tabwriter.
func (f *TextFormatter) PrintTable(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	upper := make([]string, len(headers))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
		dashes[i] = strings.Repeat("-", len(h))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(upper, "\t")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(tw, strings.Join(dashes, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// PrintKeyValues prints one name/value pair per line, values aligned.
func (f *TextFormatter) PrintKeyValues(pairs [][2]string) error {
	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	for _, pair := range pairs {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// PrintJSON prints data as indented JSON even in text mode, for results
// that have no flat rendering.
func (f *TextFormatter) PrintJSON(data any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// JSONFormatter renders every result as a JSON document.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a JSONFormatter writing to w.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w}
}

// PrintSuccess emits {"status": "success", "message": …}.
func (f *JSONFormatter) PrintSuccess(message string) error {
	return f.PrintJSON(map[string]any{
		"status":  "success",
		"message": message,
	})
}

// PrintError emits {"status": "error", "message": …}.
func (f *JSONFormatter) PrintError(message string) error {
	return f.PrintJSON(map[string]any{
		"status":  "error",
		"message": message,
	})
}

// PrintTable emits the headers plus one object per row keyed by header.
// Short rows pad with empty strings.
func (f *JSONFormatter) PrintTable(headers []string, rows [][]string) error {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(headers))
		for i, h := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			obj[h] = cell
		}
		data = append(data, obj)
	}
	return f.PrintJSON(map[string]any{
		"headers": headers,
		"data":    data,
	})
}

// PrintKeyValues emits the pairs as a single flat object.
func (f *JSONFormatter) PrintKeyValues(pairs [][2]string) error {
	obj := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		obj[pair[0]] = pair[1]
	}
	return f.PrintJSON(obj)
}

// PrintJSON prints data as indented JSON.
func (f *JSONFormatter) PrintJSON(data any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
