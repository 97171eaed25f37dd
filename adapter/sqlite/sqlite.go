// Package sqlite is the SQLite adapter family, backed by the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/sqlkit"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// New creates a disconnected SQLite adapter.
func New() *sqlkit.Adapter {
	return sqlkit.New(adapter.Info{
		Type:    adapter.TypeSQLite,
		Name:    "SQLite Adapter",
		Version: "0.1.0",
		Capabilities: adapter.Capabilities{
			Query:        true,
			Write:        true,
			Schema:       true,
			Transactions: true,
		},
	}, sqlkit.SQLite, Open)
}

// Factory is the adapter.Factory for SQLite.
func Factory() adapter.Adapter { return New() }

// Path returns the database file for cfg: the connection string with any
// "sqlite:" scheme removed, else Options["path"], else Memory.
func Path(cfg adapter.Config) string {
	if cs := cfg.ConnectionString; cs != "" {
		cs = strings.TrimPrefix(cs, "sqlite://")
		return strings.TrimPrefix(cs, "sqlite:")
	}
	return cfg.Option("path", Memory)
}

// DSN returns the driver DSN for cfg. File databases get a busy timeout so
// concurrent tool calls wait for the writer instead of failing. Read-only
// configs set query_only, so the connection rejects every write.
func DSN(cfg adapter.Config) string {
	path := Path(cfg)
	var pragmas []string
	if path != Memory && !strings.Contains(path, "?") {
		pragmas = append(pragmas, "_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)")
	}
	if cfg.ReadOnly {
		pragmas = append(pragmas, "_pragma=query_only(1)")
	}
	if len(pragmas) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

// Open implements sqlkit.Opener. The pool is limited to one connection:
// SQLite allows a single writer and an in-memory database lives only as
// long as its connection.
func Open(_ context.Context, cfg adapter.Config) (sqlkit.Querier, error) {
	db, err := sql.Open("sqlite", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", Path(cfg), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return sqlkit.NewDB(db), nil
}
