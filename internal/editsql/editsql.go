// Package editsql turns an edited grid cell into an UPDATE statement.
//
// The row is pinned by every other column's pre-edit value, since the
// displayed result carries no primary key information. Values are inlined as
// escaped literals; quote doubling keeps a literal intact but is not a defence
// against structural injection through identifiers.
package editsql

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/calebcauthon/sqlee/internal/result"
)

var (
	// ErrNoWhereClause rejects an edit that would produce an UPDATE without
	// a WHERE clause.
	ErrNoWhereClause = errors.New("no other column to build a WHERE clause")
	// ErrTableInference means the query has no FROM <table>.
	ErrTableInference = errors.New("cannot determine table from query")
	// ErrCellOutOfRange means the coordinate is not in the result set.
	ErrCellOutOfRange = errors.New("cell out of range")
)

// SynthesisError wraps a rejected edit with its target.
type SynthesisError struct {
	Table  string
	Column string
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("update %s.%s rejected: %v", e.Table, e.Column, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Update is a synthesized statement and the value the edited cell holds
// once it is applied.
type Update struct {
	SQL   string
	Value any
}

var reFromTable = regexp.MustCompile("(?i)\\bFROM\\s+(\"(?:[^\"]|\"\")+\"|`(?:[^`]|``)+`|\\w+)")

// InferTableName returns the table after the first FROM in query, with
// double-quote or backtick quoting removed. Joins, subqueries and
// schema-qualified names are not understood.
func InferTableName(query string) (string, error) {
	m := reFromTable.FindStringSubmatch(query)
	if m == nil {
		return "", ErrTableInference
	}
	name := m[1]
	switch name[0] {
	case '"':
		return strings.ReplaceAll(name[1:len(name)-1], `""`, `"`), nil
	case '`':
		return strings.ReplaceAll(name[1:len(name)-1], "``", "`"), nil
	}
	return name, nil
}

// SynthesizeUpdate builds the UPDATE that sets rs[row][col] to newValue in
// table, identifying the row by the current values of all other columns. It
// uses Standard quoting; see Dialect.SynthesizeUpdate.
func SynthesizeUpdate(rs *result.Set, row, col int, newValue, table string) (Update, error) {
	return Standard.SynthesizeUpdate(rs, row, col, newValue, table)
}

// SynthesizeUpdate builds the UPDATE for rs[row][col] with d's identifier
// quoting and literal forms.
func (d Dialect) SynthesizeUpdate(rs *result.Set, row, col int, newValue, table string) (Update, error) {
	if rs == nil || row < 0 || row >= len(rs.Rows) || col < 0 || col >= len(rs.Columns) || len(rs.Rows[row]) != len(rs.Columns) {
		return Update{}, ErrCellOutOfRange
	}
	values := rs.Rows[row]
	column := rs.Columns[col]

	preds := make([]string, 0, len(values)-1)
	for idx, v := range values {
		if idx == col {
			continue
		}
		preds = append(preds, d.predicate(rs.Columns[idx], v))
	}
	if len(preds) == 0 {
		return Update{}, &SynthesisError{Table: table, Column: column, Err: ErrNoWhereClause}
	}

	set, value := d.setValue(values[col], newValue)
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s", d.Ident(table), d.Ident(column), set, strings.Join(preds, " AND "))
	return Update{SQL: stmt, Value: value}, nil
}

// predicate matches column against its pre-edit value. SQLite keeps times
// as text in several layouts, so they are compared as Julian day numbers.
func (d Dialect) predicate(column string, v any) string {
	name := d.Ident(column)
	switch t := v.(type) {
	case nil:
		return name + " IS NULL"
	case time.Time:
		if d == SQLite {
			return fmt.Sprintf("julianday(%s) = julianday(%s)", name, d.Literal(t))
		}
	}
	return name + " = " + d.Literal(v)
}

// setValue renders the SET fragment and the matching local value. Empty input
// is NULL unless the cell previously held non-empty text.
func (d Dialect) setValue(prev any, newValue string) (string, any) {
	var prevText string
	isText := false
	switch p := prev.(type) {
	case string:
		prevText, isText = p, true
	case []byte:
		prevText, isText = string(p), true
	}
	if newValue == "" && !(isText && prevText != "") {
		return "NULL", nil
	}
	if isText {
		return QuoteString(newValue), newValue
	}
	if _, ok := prev.(time.Time); ok {
		if t, ok := result.ParseTime(newValue); ok {
			return QuoteString(newValue), t
		}
		return QuoteString(newValue), newValue
	}
	if v, ok := parseScalar(newValue); ok {
		return d.Literal(v), v
	}
	return QuoteString(newValue), newValue
}

// parseScalar reads a numeric or boolean literal.
func parseScalar(s string) (any, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	// ParseFloat also takes inf, nan and hex forms, which are not SQL numbers
	if f, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "nNxX") {
		return f, true
	}
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return nil, false
}

// QuoteString renders s as a string literal, doubling single quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Literal renders a result value as SQL with Standard forms.
func Literal(v any) string { return Standard.Literal(v) }

// Ident quotes name with Standard double quotes when needed.
func Ident(name string) string { return Standard.Ident(name) }
