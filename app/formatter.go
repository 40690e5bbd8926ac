package main

import (
	"fmt"
	"io"
	"strings"
)

// ResultFormatter writes a Result the way the CLI driver emits it:
// pipe-separated columns, one row per line, no header line, and a bare
// integer for COUNT(*).
type ResultFormatter struct {
	io.Writer
}

func NewResultFormatter(w io.Writer) *ResultFormatter {
	return &ResultFormatter{Writer: w}
}

func (f *ResultFormatter) Write(result *Result) error {
	for _, row := range result.Rows {
		if _, err := fmt.Fprintln(f.Writer, formatRow(row)); err != nil {
			return NewDatabaseError("format_result", fmt.Errorf("%w: %v", ErrIo, err), nil)
		}
	}
	return nil
}

func formatRow(row []Value) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = v.String()
	}
	return strings.Join(parts, "|")
}
