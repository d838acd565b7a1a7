// Package result holds the rows returned by a query execution.
package result

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ErrRowLength reports a row whose length differs from the column count.
var ErrRowLength = errors.New("row length does not match column count")

// Set is the column names and rows of one execution. Cell values are nil,
// string, int64, float64, bool, time.Time or []byte. Times and blobs keep the
// driver's value so an edit can match the stored row again.
type Set struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// Validate checks the row length invariant.
func (s *Set) Validate() error {
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			return fmt.Errorf("row %d has %d values for %d columns: %w", i, len(row), len(s.Columns), ErrRowLength)
		}
	}
	return nil
}

// Cell returns the value at (row, col).
func (s *Set) Cell(row, col int) (any, bool) {
	if s == nil || row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return nil, false
	}
	return s.Rows[row][col], true
}

// SetCell replaces the value at (row, col). It reports false when the
// coordinate is out of range.
func (s *Set) SetCell(row, col int, v any) bool {
	if _, ok := s.Cell(row, col); !ok {
		return false
	}
	s.Rows[row][col] = v
	return true
}

// Scan reads rows into a Set, stopping after limit rows when limit > 0.
// The caller closes rows.
func Scan(rows *sql.Rows, limit int) (*Set, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	kinds := columnKinds(rows, len(cols))
	set := &Set{Columns: cols}
	for rows.Next() {
		if limit > 0 && len(set.Rows) >= limit {
			set.Truncated = true
			break
		}
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range raw {
			raw[i] = kinds[i].normalize(v)
		}
		set.Rows = append(set.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return set, nil
}

type columnKind int

const (
	kindUnknown columnKind = iota
	kindText
	kindBinary
)

// columnKinds classifies columns by declared type. Drivers that report no
// type leave the column unknown.
func columnKinds(rows *sql.Rows, n int) []columnKind {
	kinds := make([]columnKind, n)
	types, err := rows.ColumnTypes()
	if err != nil {
		return kinds
	}
	for i, ct := range types {
		if i < n {
			kinds[i] = kindOf(ct.DatabaseTypeName())
		}
	}
	return kinds
}

func kindOf(typeName string) columnKind {
	t := strings.ToUpper(typeName)
	switch {
	case t == "":
		return kindUnknown
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"), t == "BYTEA":
		return kindBinary
	}
	return kindText
}

// normalize keeps bytes from binary columns, and from untyped columns when
// they are not plain text. Other bytes become strings.
func (k columnKind) normalize(v any) any {
	b, ok := v.([]byte)
	if !ok {
		return Normalize(v)
	}
	if k == kindBinary || (k == kindUnknown && !isPlainText(b)) {
		return bytes.Clone(b)
	}
	return string(b)
}

// Normalize maps a driver value onto the kinds a Set holds.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, string, int64, float64, bool, time.Time:
		return t
	case []byte:
		return bytes.Clone(t)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return float64(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Format renders a cell for display.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		if !isMostlyPrintable(t) {
			return fmt.Sprintf("<blob %dB>", len(t))
		}
		return t
	case []byte:
		if !isPlainText(t) {
			return fmt.Sprintf("<blob %dB>", len(t))
		}
		return string(t)
	case time.Time:
		return FormatTime(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Text is the editable form of a cell: Format without the NULL marker.
func Text(v any) string {
	if v == nil {
		return ""
	}
	return Format(v)
}

// FormatTime renders t the way SQLite stores it: a bare date at UTC
// midnight, otherwise date and time with the offset when it is not UTC.
func FormatTime(t time.Time) string {
	_, offset := t.Zone()
	switch {
	case offset != 0:
		return t.Format("2006-01-02 15:04:05.999999999-07:00")
	case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0:
		return t.Format(time.DateOnly)
	default:
		return t.Format("2006-01-02 15:04:05.999999999")
	}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseTime reads the forms FormatTime writes, plus RFC 3339. Times without
// an offset are UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isPlainText reports whether b is UTF-8 without control characters other
// than tab and line breaks.
func isPlainText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}

func isMostlyPrintable(s string) bool {
	if s == "" {
		return true
	}
	printable, total := 0, 0
	for _, r := range s {
		total++
		if r == '\n' || r == '\t' || r == '\r' || (r >= 32 && r < 127) || (r >= 128 && r != 0xFFFD) {
			printable++
		}
	}
	return float64(printable) >= 0.9*float64(total)
}
