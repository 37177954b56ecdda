package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/muesli/reflow/truncate"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// TableFormatter helps format tabular output
type TableFormatter struct {
	writer *tabwriter.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	return &TableFormatter{writer: tw}
}

// Header writes the table header
func (t *TableFormatter) Header(columns ...string) {
	fmt.Fprintln(t.writer, strings.Join(columns, "\t"))
	fmt.Fprintln(t.writer, strings.Repeat("-", 60))
}

// Row writes a table row
func (t *TableFormatter) Row(values ...string) {
	fmt.Fprintln(t.writer, strings.Join(values, "\t"))
}

// Flush writes the buffered table to output
func (t *TableFormatter) Flush() {
	t.writer.Flush()
}

// OutputResults writes data as json or yaml.
func OutputResults(w io.Writer, format string, data interface{}) error {
	switch OutputFormat(format) {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)

	case FormatYAML:
		yamlData, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(yamlData))
		return err

	case FormatText:
		// Callers format text themselves; this is a fallback.
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err

	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// TruncateString cuts s to maxLen cells, ending in "..." when cut.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return truncate.String(s, uint(max(maxLen, 0)))
	}
	return truncate.StringWithTail(s, uint(maxLen), "...")
}

// Indent prefixes every line of s.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
