package result

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func query(t *testing.T, rows *sqlmock.Rows) *sql.Rows {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectQuery("SELECT").WillReturnRows(rows)
	r, err := db.Query("SELECT * FROM users")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestScan(t *testing.T) {
	rows := query(t, sqlmock.NewRows([]string{"name", "age", "note"}).
		AddRow([]byte("Alice"), int64(30), nil).
		AddRow("Bob", int64(41), "hi"))

	set, err := Scan(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "note"}, set.Columns)
	assert.Equal(t, [][]any{
		{"Alice", int64(30), nil},
		{"Bob", int64(41), "hi"},
	}, set.Rows)
	assert.False(t, set.Truncated)
	assert.NoError(t, set.Validate())
}

func TestScan_KeepsBlobsAndTimes(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := query(t, sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("name").OfType("TEXT", ""),
		sqlmock.NewColumn("at").OfType("DATETIME", at),
		sqlmock.NewColumn("data").OfType("BLOB", []byte{}),
		sqlmock.NewColumn("expr"),
	).
		AddRow([]byte("ev"), at, []byte("ab"), []byte{0x01, 0x02}).
		AddRow("ev2", nil, nil, []byte("text")))

	set, err := Scan(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"ev", at, []byte("ab"), []byte{0x01, 0x02}},
		{"ev2", nil, nil, "text"},
	}, set.Rows)
}

func TestScan_Limit(t *testing.T) {
	rows := query(t, sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2).AddRow(3))

	set, err := Scan(rows, 2)
	require.NoError(t, err)
	assert.Len(t, set.Rows, 2)
	assert.True(t, set.Truncated)
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{"x", "x"},
		{[]byte("y"), []byte("y")},
		{int32(7), int64(7)},
		{int(8), int64(8)},
		{float32(1.5), float64(1.5)},
		{true, true},
		{ts, ts},
		{uint64(18446744073709551615), "18446744073709551615"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%#v)", tt.in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "NULL", Format(nil))
	assert.Equal(t, "Alice", Format("Alice"))
	assert.Equal(t, "30", Format(int64(30)))
	assert.Equal(t, "2.5", Format(2.5))
	assert.Equal(t, "true", Format(true))
	assert.Equal(t, "<blob 4B>", Format("\x00\x01\x02\x03"))
	assert.Equal(t, "<blob 2B>", Format([]byte{0x01, 0x02}))
	assert.Equal(t, "abc", Format([]byte("abc")))
	assert.Equal(t, "2024-01-02 03:04:05", Format(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "30", Text(int64(30)))
}

func TestFormatTime(t *testing.T) {
	plus2 := time.FixedZone("", 2*60*60)
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05"},
		{time.Date(2024, 1, 2, 3, 4, 5, 120000000, time.UTC), "2024-01-02 03:04:05.12"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, plus2), "2024-01-02 03:04:05+02:00"},
	}
	for _, tt := range tests {
		got := FormatTime(tt.in)
		assert.Equal(t, tt.want, got)
		back, ok := ParseTime(got)
		require.True(t, ok, got)
		assert.True(t, tt.in.Equal(back), got)
	}
}

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2024-01-02T03:04:05Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got)

	got, ok = ParseTime("2024-01-02 03:04")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC), got)

	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
	_, ok = ParseTime("2024")
	assert.False(t, ok)
}

func TestSet_CellAccess(t *testing.T) {
	set := &Set{Columns: []string{"a", "b"}, Rows: [][]any{{"x", int64(1)}}}

	v, ok := set.Cell(0, 1)
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	_, ok = set.Cell(1, 0)
	assert.False(t, ok)
	assert.False(t, set.SetCell(0, 2, "z"))
	assert.True(t, set.SetCell(0, 0, nil))
	assert.Nil(t, set.Rows[0][0])

	var none *Set
	_, ok = none.Cell(0, 0)
	assert.False(t, ok)
}

func TestSet_Validate(t *testing.T) {
	set := &Set{Columns: []string{"a", "b"}, Rows: [][]any{{"x"}}}
	assert.ErrorIs(t, set.Validate(), ErrRowLength)
}
