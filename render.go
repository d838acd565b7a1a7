package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/calebcauthon/sqlee/internal/result"
)

// Output formats for printed results.
const (
	formatTable    = "table"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatMarkdown, "md":
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, csv or markdown)", format)
}

// renderResult prints rs to w. The table format is followed by a row count.
func renderResult(w io.Writer, rs *result.Set, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	if rs == nil || len(rs.Columns) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(rs.Columns))
	for i, c := range rs.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, rec := range formatRows(rs) {
		row := make(table.Row, len(rec))
		for i, cell := range rec {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	switch format {
	case formatCSV:
		t.RenderCSV()
	case formatMarkdown, "md":
		t.RenderMarkdown()
	default:
		t.Render()
		_, _ = fmt.Fprintf(w, "(%s)\n", rowCount(rs))
	}
	return nil
}
