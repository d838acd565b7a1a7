package main

import (
	"context"
	"regexp"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/config"
	"github.com/calebcauthon/sqlee/internal/result"
	"github.com/calebcauthon/sqlee/internal/session"
)

type queryResultMsg struct {
	run session.Run
	rs  *result.Set
	err error
}

type editResultMsg struct {
	sql      string
	affected int64
	err      error
}

type schemaMsg struct {
	cat catalog.Catalog
	err error
}

// connectedMsg reports a connection opened from the picker, with its schema.
type connectedMsg struct {
	conn config.Connection
	db   backend
	cat  catalog.Catalog
	err  error
}

// connectCmd opens conn and reads its catalog. A connection whose schema
// cannot be read is closed and reported as a failure.
func connectCmd(open opener, conn config.Connection, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		db, err := open(ctx, conn)
		if err != nil {
			return connectedMsg{conn: conn, err: err}
		}
		cat, err := db.Catalog(ctx)
		if err != nil {
			_ = db.Close()
			return connectedMsg{conn: conn, err: err}
		}
		return connectedMsg{conn: conn, db: db, cat: cat}
	}
}

// reSchemaChange matches statements after which the catalog is reloaded.
var reSchemaChange = regexp.MustCompile(`(?i)^\s*(CREATE|DROP|ALTER)\b`)

// runQueryCmd executes run off the update loop. Only the run token and its
// SQL cross into the goroutine.
func runQueryCmd(exec session.Executor, run session.Run, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		rs, err := exec.Query(ctx, run.Query)
		return queryResultMsg{run: run, rs: rs, err: err}
	}
}

// execEditCmd runs a synthesized UPDATE.
func execEditCmd(exec session.Executor, sql string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		n, err := exec.Exec(ctx, sql)
		return editResultMsg{sql: sql, affected: n, err: session.CheckUpdated(n, err)}
	}
}

func loadSchemaCmd(db backend, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		cat, err := db.Catalog(ctx)
		return schemaMsg{cat: cat, err: err}
	}
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return queryContext(context.Background(), d)
}

// queryContext bounds a single statement; d <= 0 means no limit.
func queryContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
