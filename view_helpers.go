package main

import "github.com/mattn/go-runewidth"

// computeColumnWidths fits columns into maxWidth display columns. Widths start
// from the header (3..20) and grow to the widest cell (up to 40); when the
// total overflows, the widest column is shrunk first, never below 3.
func computeColumnWidths(cols []string, rows [][]string, maxWidth int) []int {
	n := len(cols)
	if n == 0 {
		return nil
	}
	widths := make([]int, n)
	for i, c := range cols {
		widths[i] = min(max(runewidth.StringWidth(c), 3), 20)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= n {
				break
			}
			widths[i] = max(widths[i], min(runewidth.StringWidth(cell), 40))
		}
	}
	total := sum(widths) + (n - 1)
	if total <= maxWidth {
		return widths
	}
	toReduce := total - maxWidth
	for toReduce > 0 {
		idx := -1
		maxW := 0
		for i, w := range widths {
			if w > maxW && w > 3 {
				maxW = w
				idx = i
			}
		}
		if idx == -1 {
			break
		}
		widths[idx]--
		toReduce--
	}
	return widths
}

func sum(v []int) int {
	s := 0
	for _, x := range v {
		s += x
	}
	return s
}
