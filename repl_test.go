package main

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/session"
	"github.com/calebcauthon/sqlee/internal/testutil"
)

func newTestREPL(t *testing.T) (*repl, sqlmock.Sqlmock, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var out, errOut bytes.Buffer
	log := testutil.NewTestLogger(t)
	r := &repl{
		sess:   session.New(session.WithLogger(log)),
		exec:   newExecutor(db, catalog.EngineSQLite, 0),
		log:    log,
		out:    &out,
		errOut: &errOut,
		format: formatTable,
	}
	return r, mock, &out, &errOut
}

func TestREPL_RunAndEdit(t *testing.T) {
	r, mock, out, errOut := newTestREPL(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, age FROM users")).WillReturnRows(
		sqlmock.NewRows([]string{"name", "age"}).AddRow("Alice", 30).AddRow("Bob", 25),
	)
	require.NoError(t, r.run(ctx, "SELECT name, age FROM users"))
	assert.Contains(t, out.String(), "Alice")
	assert.Contains(t, out.String(), "(2 rows)")

	out.Reset()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET age = 26 WHERE name = 'Bob'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.False(t, r.dotCommand(ctx, ".edit 2 age 26"))
	assert.Empty(t, errOut.String())
	assert.Equal(t, "UPDATE users SET age = 26 WHERE name = 'Bob'\n(1 cell updated)\n", out.String())

	v, _ := r.sess.Results().Cell(1, 1)
	assert.Equal(t, int64(26), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestREPL_EditMatchingNoRow(t *testing.T) {
	r, mock, out, errOut := newTestREPL(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"name", "age"}).AddRow("Alice", 30),
	)
	require.NoError(t, r.run(ctx, "SELECT name, age FROM users"))
	out.Reset()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET age = 31 WHERE name = 'Alice'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	r.dotCommand(ctx, ".edit 1 age 31")

	assert.Contains(t, errOut.String(), session.ErrNoRowMatched.Error())
	assert.NotContains(t, out.String(), "cell updated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestREPL_EditErrors(t *testing.T) {
	r, mock, _, errOut := newTestREPL(t)
	ctx := context.Background()

	r.dotCommand(ctx, ".edit 1 age 3")
	assert.Contains(t, errOut.String(), session.ErrNoResults.Error())

	// a single-column result cannot build a WHERE clause
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"age"}).AddRow(30))
	require.NoError(t, r.run(ctx, "SELECT age FROM users"))

	tests := []struct {
		line string
		want string
	}{
		{line: ".edit 1", want: "usage"},
		{line: ".edit x age 3", want: "invalid row"},
		{line: ".edit 1 height 3", want: "unknown column"},
		{line: ".edit 5 age 3", want: "out of range"},
		{line: ".edit 1 age 3", want: "no other column"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			errOut.Reset()
			r.dotCommand(ctx, tt.line)
			assert.Contains(t, strings.ToLower(errOut.String()), tt.want)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestREPL_DotCommands(t *testing.T) {
	r, mock, out, errOut := newTestREPL(t)
	ctx := context.Background()

	assert.True(t, r.dotCommand(ctx, ".quit"))
	assert.True(t, r.dotCommand(ctx, ".EXIT"))

	assert.False(t, r.dotCommand(ctx, ".help"))
	assert.Contains(t, out.String(), ".edit <row> <column> [value]")

	out.Reset()
	r.dotCommand(ctx, ".tables")
	assert.Equal(t, "(no tables)\n", out.String())

	out.Reset()
	r.sess.SetCatalog(catalog.New(catalog.Table{Name: "users", Columns: []string{"id", "name"}}))
	r.dotCommand(ctx, ".tables")
	assert.Contains(t, out.String(), "id, name")

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	require.NoError(t, r.run(ctx, "SELECT 1"))
	out.Reset()
	r.dotCommand(ctx, ".history")
	assert.Equal(t, "   1  SELECT 1\n", out.String())

	r.dotCommand(ctx, ".bogus")
	assert.Contains(t, errOut.String(), "Unknown command: .bogus")
}

func TestEditValue(t *testing.T) {
	assert.Equal(t, "", editValue(".edit 1 age"))
	assert.Equal(t, "26", editValue(".edit 1 age 26"))
	assert.Equal(t, "O'Brien  Jr", editValue(".edit  2\tname O'Brien  Jr"))
}

func TestColumnIndex(t *testing.T) {
	cols := []string{"id", "Name", "3"}
	assert.Equal(t, 1, columnIndex(cols, "name"))
	assert.Equal(t, 0, columnIndex(cols, "1"))
	assert.Equal(t, 2, columnIndex(cols, "3"))
	assert.Equal(t, -1, columnIndex(cols, "4"))
	assert.Equal(t, -1, columnIndex(cols, "age"))
}

func TestReplCompleter(t *testing.T) {
	sess := session.New()
	sess.SetCatalog(catalog.New(
		catalog.Table{Name: "users", Columns: []string{"id", "name"}},
		catalog.Table{Name: "orders", Columns: []string{"id"}},
	))
	var pending strings.Builder
	c := &replCompleter{sess: sess, pending: &pending}

	do := func(line string) ([]string, int) {
		r := []rune(line)
		got, n := c.Do(r, len(r))
		var out []string
		for _, g := range got {
			out = append(out, string(g))
		}
		return out, n
	}

	got, n := do("SELECT * FROM us")
	assert.Equal(t, []string{"ers"}, got)
	assert.Equal(t, 2, n)

	got, n = do(".ta")
	assert.Equal(t, []string{"bles"}, got)
	assert.Equal(t, 3, n)

	got, _ = do("SELECT * FROM ")
	assert.Equal(t, []string{"users", "orders"}, got)

	got, n = do("nothing here")
	assert.Nil(t, got)
	assert.Equal(t, 0, n)

	pending.WriteString("SELECT *\n")
	got, n = do("FROM o")
	assert.Equal(t, []string{"rders"}, got)
	assert.Equal(t, 1, n)
}
