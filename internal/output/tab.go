// Package output provides tab-delimited report writers.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TabWriter writes rows in tab-delimited format under a fixed header.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer with the given columns.
func NewTabWriter(w io.Writer, columns ...string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string { return tw.columns }

// WriteHeader writes the header line, prefixed with '#'.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString("#" + strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteRow writes one row. Empty values are written as "-".
func (tw *TabWriter) WriteRow(values ...string) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("row has %d values, want %d", len(values), len(tw.columns))
	}
	for i, v := range values {
		if i > 0 {
			if err := tw.w.WriteByte('\t'); err != nil {
				return err
			}
		}
		if v == "" {
			v = "-"
		}
		if _, err := tw.w.WriteString(v); err != nil {
			return err
		}
	}
	return tw.w.WriteByte('\n')
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
