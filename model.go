package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/completion"
	"github.com/calebcauthon/sqlee/internal/config"
	"github.com/calebcauthon/sqlee/internal/editsql"
	"github.com/calebcauthon/sqlee/internal/session"
)

// backend is a live connection: it runs queries and reads the schema.
type backend interface {
	session.Executor
	Catalog(ctx context.Context) (catalog.Catalog, error)
	Close() error
}

// opener connects to a configured connection.
type opener func(ctx context.Context, conn config.Connection) (backend, error)

type focus int

const (
	focusEditor focus = iota
	focusGrid
	focusTables
)

// picker lists the configured connections.
type picker struct {
	names    []string
	selected int
}

// popup is the open completion list.
type popup struct {
	from     int
	items    []completion.Suggestion
	selected int
}

type model struct {
	cfg  *config.Config
	conn config.Connection
	db   backend
	open opener
	sess *session.Session
	log  *slog.Logger
	keys keyMap

	focus  focus
	editor editor
	popup  *popup
	picker *picker

	// pending is the ID of the run in flight, if any.
	pending string

	// tables pane
	allTables    []string
	tables       []string
	cursor       int
	searchActive bool
	searchQuery  string

	// results grid
	selRow    int
	selCol    int
	scroll    int
	cellInput textinput.Model

	// AI prompt state
	aiPromptActive bool
	aiInput        textinput.Model
	aiThinking     bool
	aiOutput       string

	status    string
	statusErr bool
	width     int
	height    int
}

func newModel(cfg *config.Config, conn config.Connection, db backend, log *slog.Logger) model {
	cell := textinput.New()
	cell.Prompt = ""
	cell.Placeholder = "NULL"

	ai := textinput.New()
	ai.Prompt = "AI> "
	ai.Placeholder = "describe the query you want"
	ai.PromptStyle = styleAI

	maxRows := config.DefaultMaxRows
	if cfg != nil {
		maxRows = cfg.MaxRows
	}
	open := func(ctx context.Context, c config.Connection) (backend, error) {
		exec, err := openExecutor(ctx, c, maxRows)
		if err != nil {
			return nil, err
		}
		return exec, nil
	}

	return model{
		cfg:       cfg,
		conn:      conn,
		db:        db,
		open:      open,
		sess:      newSession(conn, log),
		log:       log,
		keys:      defaultKeyMap,
		cellInput: cell,
		aiInput:   ai,
	}
}

func newSession(conn config.Connection, log *slog.Logger) *session.Session {
	return session.New(session.WithLogger(log), session.WithDialect(editsql.DialectFor(conn.Engine)))
}

// setStatus shows an informational message.
func (m *model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

// setError shows err on the status line.
func (m *model) setError(prefix string, err error) {
	m.status = prefix + ": " + err.Error()
	m.statusErr = true
	m.log.Debug(prefix, "error", err)
}

// syncText pushes the editor buffer into the session and refreshes the popup.
func (m *model) syncText(explicit bool) {
	m.sess.SetText(m.editor.String())
	m.refreshPopup(explicit)
}

func (m *model) refreshPopup(explicit bool) {
	c, ok := m.sess.Suggest(m.editor.cursor, explicit)
	if !ok {
		m.popup = nil
		return
	}
	prefix := m.editor.prefix(c.From)
	items := completion.Filter(c.Items, prefix)
	if len(items) == 0 || (len(items) == 1 && strings.EqualFold(items[0].Label, prefix) && !explicit) {
		m.popup = nil
		return
	}
	sel := 0
	if m.popup != nil && m.popup.from == c.From && m.popup.selected < len(items) {
		sel = m.popup.selected
	}
	m.popup = &popup{from: c.From, items: items, selected: sel}
}

func (m *model) acceptSuggestion() {
	if m.popup == nil || len(m.popup.items) == 0 {
		return
	}
	label := m.popup.items[m.popup.selected].Label
	m.editor.replace(m.popup.from, label)
	m.popup = nil
	m.sess.SetText(m.editor.String())
}

// setTables replaces the tables pane contents from the catalog.
func (m *model) setTables(cat catalog.Catalog) {
	names := make([]string, 0, cat.Len())
	for _, t := range cat.Tables() {
		names = append(names, t.Name)
	}
	m.allTables = names
	m.applyFilter()
}

func (m *model) applyFilter() {
	if m.searchQuery == "" {
		m.tables = append([]string(nil), m.allTables...)
	} else {
		q := strings.ToLower(m.searchQuery)
		filtered := make([]string, 0, len(m.allTables))
		for _, t := range m.allTables {
			if strings.Contains(strings.ToLower(t), q) {
				filtered = append(filtered, t)
			}
		}
		m.tables = filtered
	}
	if m.cursor >= len(m.tables) {
		m.cursor = max(0, len(m.tables)-1)
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// clampSelection keeps the grid cursor inside the current results.
func (m *model) clampSelection() {
	rs := m.sess.Results()
	if rs == nil {
		m.selRow, m.selCol, m.scroll = 0, 0, 0
		return
	}
	if m.selRow >= len(rs.Rows) {
		m.selRow = max(0, len(rs.Rows)-1)
	}
	if m.selCol >= len(rs.Columns) {
		m.selCol = max(0, len(rs.Columns)-1)
	}
	if m.scroll > m.selRow {
		m.scroll = m.selRow
	}
}
