// Package session holds the state of one query editor: the text being typed,
// the last result set, the history of executed queries and the cell being
// edited. It connects keystrokes to the completion engine and grid edits to
// the UPDATE synthesizer.
//
// A Session is owned by a single goroutine. Executors may run elsewhere, but
// their results must be handed back through FinishRun on the owning goroutine.
package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/completion"
	"github.com/calebcauthon/sqlee/internal/editsql"
	"github.com/calebcauthon/sqlee/internal/result"
)

// Executor runs SQL against a connection. Exec returns the number of rows
// affected, or -1 when the driver cannot report it.
type Executor interface {
	Query(ctx context.Context, sql string) (*result.Set, error)
	Exec(ctx context.Context, sql string) (int64, error)
}

// Run identifies one query execution.
type Run struct {
	ID    string
	Query string
}

// EditingCell is the grid cell being edited.
type EditingCell struct {
	Row     int
	Col     int
	Pending string
	Table   string
	Column  string
}

type edit struct {
	EditingCell
	generation int
}

// Session is the state behind one query editor.
type Session struct {
	log     *slog.Logger
	dialect editsql.Dialect

	text    string
	catalog catalog.Catalog

	results    *result.Set
	generation int

	history []string
	cursor  int

	editing *edit
	latest  string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDialect sets the quoting and literal forms of synthesized UPDATEs.
func WithDialect(d editsql.Dialect) Option {
	return func(s *Session) { s.dialect = d }
}

// New returns an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		log:    slog.New(slog.DiscardHandler),
		cursor: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Text() string        { return s.text }
func (s *Session) SetText(text string) { s.text = text }

// Results returns the last successful result set, or nil.
func (s *Session) Results() *result.Set { return s.results }

// History returns a copy of the executed queries, oldest first.
func (s *Session) History() []string {
	return append([]string(nil), s.history...)
}

// HistoryCursor is -1 when not navigating, otherwise the distance from the
// most recent entry.
func (s *Session) HistoryCursor() int { return s.cursor }

func (s *Session) Catalog() catalog.Catalog     { return s.catalog }
func (s *Session) SetCatalog(c catalog.Catalog) { s.catalog = c }

// EditingCell returns the open edit, if any.
func (s *Session) EditingCell() (EditingCell, bool) {
	if s.editing == nil {
		return EditingCell{}, false
	}
	return s.editing.EditingCell, true
}

// Suggest runs the completion engine on the current text.
func (s *Session) Suggest(offset int, explicit bool) (completion.Completion, bool) {
	return completion.Suggest(s.text, offset, explicit, s.catalog)
}

// BeginRun records the current text in history and makes it the latest run.
// Any open edit is dropped.
func (s *Session) BeginRun() (Run, error) {
	if strings.TrimSpace(s.text) == "" {
		return Run{}, ErrEmptyQuery
	}
	run := Run{ID: uuid.NewString(), Query: s.text}
	s.history = append(s.history, s.text)
	s.cursor = -1
	s.dropEdit("run started")
	if s.latest != "" {
		s.log.Debug("run superseded", "id", s.latest)
	}
	s.latest = run.ID
	s.log.Debug("run started", "id", run.ID, "query", run.Query)
	return run, nil
}

// FinishRun applies the outcome of run. A failed run leaves the session as it
// was and returns a *QueryError. A run that is no longer the latest is
// ignored with ErrSuperseded.
func (s *Session) FinishRun(run Run, rs *result.Set, err error) error {
	if run.ID == "" || run.ID != s.latest {
		s.log.Debug("discarding superseded run", "id", run.ID)
		return ErrSuperseded
	}
	s.latest = ""
	if err != nil {
		s.log.Debug("run failed", "id", run.ID, "error", err)
		return &QueryError{Query: run.Query, Err: err}
	}
	if rs == nil {
		rs = &result.Set{}
	}
	if verr := rs.Validate(); verr != nil {
		return &QueryError{Query: run.Query, Err: verr}
	}
	s.results = rs
	s.generation++
	s.dropEdit("results replaced")
	s.log.Debug("run finished", "id", run.ID, "rows", len(rs.Rows))
	return nil
}

// RunQuery runs the current text synchronously.
func (s *Session) RunQuery(ctx context.Context, exec Executor) error {
	run, err := s.BeginRun()
	if err != nil {
		return err
	}
	rs, err := exec.Query(ctx, run.Query)
	return s.FinishRun(run, rs, err)
}

// HistoryUp recalls the previous query. It does nothing while a completion
// popup is open. The returned flag reports whether the text changed.
func (s *Session) HistoryUp(popupActive bool) (string, bool) {
	return s.moveHistory(popupActive, 1)
}

// HistoryDown recalls the next query, ending at empty text.
func (s *Session) HistoryDown(popupActive bool) (string, bool) {
	return s.moveHistory(popupActive, -1)
}

func (s *Session) moveHistory(popupActive bool, step int) (string, bool) {
	if popupActive {
		return s.text, false
	}
	next := min(max(s.cursor+step, -1), len(s.history)-1)
	if next == s.cursor {
		return s.text, false
	}
	s.cursor = next
	if next == -1 {
		s.text = ""
	} else {
		s.text = s.history[len(s.history)-1-next]
	}
	return s.text, true
}

// StartEditingCell opens an edit on (row, col) with value as the initial
// pending text. The target table is inferred from the current text. An open
// edit is replaced.
func (s *Session) StartEditingCell(row, col int, value string) error {
	if s.results == nil {
		return ErrNoResults
	}
	if _, ok := s.results.Cell(row, col); !ok || col >= len(s.results.Columns) {
		return editsql.ErrCellOutOfRange
	}
	table, err := editsql.InferTableName(s.text)
	if err != nil {
		return err
	}
	s.editing = &edit{
		EditingCell: EditingCell{
			Row:     row,
			Col:     col,
			Pending: value,
			Table:   table,
			Column:  s.results.Columns[col],
		},
		generation: s.generation,
	}
	s.log.Debug("edit opened", "table", table, "row", row, "column", s.editing.Column)
	return nil
}

// SetPending updates the text typed into the open edit.
func (s *Session) SetPending(value string) {
	if s.editing != nil {
		s.editing.Pending = value
	}
}

// PrepareCommit closes the open edit and returns the UPDATE to execute. On
// success the new value is already stored in the results; it is not rolled
// back if the UPDATE later fails.
func (s *Session) PrepareCommit() (editsql.Update, error) {
	e := s.editing
	if e == nil {
		return editsql.Update{}, ErrNotEditing
	}
	s.editing = nil
	if e.generation != s.generation {
		s.log.Debug("stale edit discarded", "row", e.Row, "column", e.Column)
		return editsql.Update{}, ErrStaleEdit
	}
	upd, err := s.dialect.SynthesizeUpdate(s.results, e.Row, e.Col, e.Pending, e.Table)
	if err != nil {
		s.log.Debug("edit rejected", "error", err)
		return editsql.Update{}, err
	}
	s.results.SetCell(e.Row, e.Col, upd.Value)
	s.log.Debug("edit committed", "sql", upd.SQL)
	return upd, nil
}

// CommitEdit prepares the open edit and executes it.
func (s *Session) CommitEdit(ctx context.Context, exec Executor) error {
	upd, err := s.PrepareCommit()
	if err != nil {
		return err
	}
	n, err := exec.Exec(ctx, upd.SQL)
	if err := CheckUpdated(n, err); err != nil {
		return &QueryError{Query: upd.SQL, Err: err}
	}
	return nil
}

// CheckUpdated turns the outcome of an edit's UPDATE into an error. An UPDATE
// that matched no row fails with ErrNoRowMatched.
func CheckUpdated(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRowMatched
	}
	return nil
}

// SetDialect changes the forms used by later UPDATEs.
func (s *Session) SetDialect(d editsql.Dialect) { s.dialect = d }

// Reset forgets the results, any open edit and the run in flight, as when the
// connection changes. Text, history and catalog are kept.
func (s *Session) Reset() {
	s.dropEdit("session reset")
	s.results = nil
	s.generation++
	s.latest = ""
}

// CancelEdit discards the open edit.
func (s *Session) CancelEdit() {
	s.dropEdit("edit cancelled")
}

func (s *Session) dropEdit(reason string) {
	if s.editing == nil {
		return
	}
	s.log.Debug(reason, "row", s.editing.Row, "column", s.editing.Column)
	s.editing = nil
}
