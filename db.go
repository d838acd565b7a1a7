package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/calebcauthon/sqlee/internal/catalog"
	"github.com/calebcauthon/sqlee/internal/config"
	"github.com/calebcauthon/sqlee/internal/result"
)

// driverNames maps engines onto registered database/sql drivers. SQLite uses
// modernc.org/sqlite (pure Go) so no CGO is needed.
var driverNames = map[string]string{
	catalog.EngineSQLite:   "sqlite",
	catalog.EnginePostgres: "pgx",
	catalog.EngineMySQL:    "mysql",
}

func openDB(ctx context.Context, conn config.Connection) (*sql.DB, error) {
	driver, ok := driverNames[conn.Engine]
	if !ok {
		return nil, fmt.Errorf("unsupported engine: %s", conn.Engine)
	}
	dsn, err := driverDSN(conn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conn.Engine, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", conn.Engine, err)
	}
	return db, nil
}

// driverDSN adjusts conn.DSN for its driver. MySQL reports matched rather
// than changed rows only with clientFoundRows set.
func driverDSN(conn config.Connection) (string, error) {
	if conn.Engine != catalog.EngineMySQL {
		return conn.DSN, nil
	}
	mc, err := mysql.ParseDSN(conn.DSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ClientFoundRows = true
	return mc.FormatDSN(), nil
}

// sqlExecutor runs session queries over database/sql.
type sqlExecutor struct {
	db      *sql.DB
	engine  string
	maxRows int
}

func newExecutor(db *sql.DB, engine string, maxRows int) *sqlExecutor {
	return &sqlExecutor{db: db, engine: engine, maxRows: maxRows}
}

// openExecutor connects to conn and checks it answers.
func openExecutor(ctx context.Context, conn config.Connection, maxRows int) (*sqlExecutor, error) {
	db, err := openDB(ctx, conn)
	if err != nil {
		return nil, err
	}
	return newExecutor(db, conn.Engine, maxRows), nil
}

func (e *sqlExecutor) Query(ctx context.Context, q string) (*result.Set, error) {
	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return result.Scan(rows, e.maxRows)
}

// Exec runs q and returns the rows it affected, or -1 when the driver does
// not say.
func (e *sqlExecutor) Exec(ctx context.Context, q string) (int64, error) {
	res, err := e.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// Catalog reads the schema of the connected database.
func (e *sqlExecutor) Catalog(ctx context.Context) (catalog.Catalog, error) {
	return catalog.Load(ctx, e.db, e.engine)
}

func (e *sqlExecutor) Close() error { return e.db.Close() }
