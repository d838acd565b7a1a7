package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Engines supported by Load.
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
)

// one row per column, ordered by table then column position
var schemaQueries = map[string]string{
	EngineSQLite: `SELECT m.name, p.name FROM sqlite_schema m JOIN pragma_table_info(m.name) p
WHERE m.type IN ('table','view') AND m.name NOT LIKE 'sqlite_%' ORDER BY m.name, p.cid`,
	EnginePostgres: `SELECT table_name, column_name FROM information_schema.columns
WHERE table_schema = 'public' ORDER BY table_name, ordinal_position`,
	EngineMySQL: `SELECT table_name, column_name FROM information_schema.columns
WHERE table_schema = DATABASE() ORDER BY table_name, ordinal_position`,
}

// Load introspects db and returns a catalog of its tables and columns.
func Load(ctx context.Context, db *sql.DB, engine string) (Catalog, error) {
	q, ok := schemaQueries[engine]
	if !ok {
		return Catalog{}, fmt.Errorf("unsupported engine: %s", engine)
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return Catalog{}, fmt.Errorf("schema query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []Table
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return Catalog{}, fmt.Errorf("schema scan: %w", err)
		}
		if n := len(tables); n > 0 && tables[n-1].Name == table {
			tables[n-1].Columns = append(tables[n-1].Columns, column)
			continue
		}
		tables = append(tables, Table{Name: table, Columns: []string{column}})
	}
	if err := rows.Err(); err != nil {
		return Catalog{}, fmt.Errorf("schema rows: %w", err)
	}
	return Catalog{tables: tables}, nil
}
