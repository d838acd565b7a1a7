package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned when running blank query text.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrNoResults is returned when editing before any query succeeded.
	ErrNoResults = errors.New("no results to edit")
	// ErrNotEditing is returned when committing without an open edit.
	ErrNotEditing = errors.New("no cell is being edited")
	// ErrStaleEdit is returned when the results were replaced while the
	// edit was open. The edit is discarded.
	ErrStaleEdit = errors.New("results changed while editing")
	// ErrNoRowMatched is returned when an edit's UPDATE changed nothing,
	// usually because the row changed since it was read.
	ErrNoRowMatched = errors.New("no row matched the edited row's values")
	// ErrSuperseded is returned when finishing a run that a newer run
	// replaced.
	ErrSuperseded = errors.New("run superseded by a newer run")
)

// QueryError is a failure reported by the executor.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
