package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesInput(t *testing.T) {
	cols := []string{"id", "name"}
	c := New(Table{Name: "users", Columns: cols})
	cols[0] = "changed"

	tbl, ok := c.Table("users")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, tbl.Columns)

	got := c.Tables()
	got[0].Name = "other"
	_, ok = c.Table("users")
	assert.True(t, ok)
}

func TestCatalog_Empty(t *testing.T) {
	assert.True(t, Catalog{}.Empty())
	assert.Equal(t, 0, Catalog{}.Len())
	c := New(Table{Name: "t"})
	assert.False(t, c.Empty())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Table("missing")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		engine string
		match  string
	}{
		{name: "sqlite", engine: EngineSQLite, match: "FROM sqlite_schema m JOIN pragma_table_info"},
		{name: "postgres", engine: EnginePostgres, match: "table_schema = 'public'"},
		{name: "mysql", engine: EngineMySQL, match: "table_schema = DATABASE()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			mock.ExpectQuery(regexp.QuoteMeta(tt.match)).WillReturnRows(
				sqlmock.NewRows([]string{"table", "column"}).
					AddRow("orders", "id").
					AddRow("orders", "total").
					AddRow("users", "id").
					AddRow("users", "name").
					AddRow("users", "age"),
			)

			c, err := Load(context.Background(), db, tt.engine)
			require.NoError(t, err)
			assert.Equal(t, []Table{
				{Name: "orders", Columns: []string{"id", "total"}},
				{Name: "users", Columns: []string{"id", "name", "age"}},
			}, c.Tables())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLoad_UnsupportedEngine(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = Load(context.Background(), db, "oracle")
	assert.ErrorContains(t, err, "unsupported engine")
}

func TestLoad_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	boom := errors.New("permission denied")
	mock.ExpectQuery("information_schema").WillReturnError(boom)

	_, err = Load(context.Background(), db, EnginePostgres)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
