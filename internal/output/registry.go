package output

import (
	"fmt"
	"io"
	"sort"

	"rnadiff/internal/results"
)

// DefaultFormat is used when no format is named.
const DefaultFormat = "csv"

// TableWriter serializes a result table.
type TableWriter func(w io.Writer, t results.Table) error

var tableWriters = map[string]TableWriter{}

// Register adds or replaces the writer for format.
func Register(format string, fn TableWriter) { tableWriters[format] = fn }

// HasFormat reports whether format has a registered writer.
func HasFormat(format string) bool {
	_, ok := tableWriters[format]
	return ok
}

// Formats lists registered format names in sorted order.
func Formats() []string {
	out := make([]string, 0, len(tableWriters))
	for k := range tableWriters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Write dispatches to the writer registered for format.
func Write(format string, w io.Writer, t results.Table) error {
	fn, ok := tableWriters[format]
	if !ok {
		return fmt.Errorf("unknown table format %q (no writer registered)", format)
	}
	return fn(w, t)
}
