package main

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/calebcauthon/sqlee/internal/result"
)

// truncateCell cuts s to max display columns, ending with an ellipsis when
// shortened. Newlines and tabs are flattened so a cell stays on one line.
func truncateCell(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = strings.NewReplacer("\r\n", "↵", "\n", "↵", "\t", " ").Replace(s)
	if runewidth.StringWidth(s) <= max {
		return s
	}
	if max <= 1 {
		return runewidth.Truncate(s, max, "")
	}
	return runewidth.Truncate(s, max, "…")
}

// formatRows renders every cell of rs for display.
func formatRows(rs *result.Set) [][]string {
	if rs == nil {
		return nil
	}
	out := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = result.Format(v)
		}
		out[i] = rec
	}
	return out
}

// rowCount describes the size of a result for the status line.
func rowCount(rs *result.Set) string {
	if rs == nil {
		return ""
	}
	n := len(rs.Rows)
	s := humanize.Comma(int64(n)) + " rows"
	if n == 1 {
		s = "1 row"
	}
	if rs.Truncated {
		s += " (truncated)"
	}
	return s
}
