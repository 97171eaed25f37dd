// Package sqlserver is the Microsoft SQL Server adapter family.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/sqlkit"
)

// DefaultPort is the SQL Server port.
const DefaultPort = 1433

// New creates a disconnected SQL Server adapter.
func New() *sqlkit.Adapter {
	return sqlkit.New(adapter.Info{
		Type:    adapter.TypeSQLServer,
		Name:    "SQL Server Adapter",
		Version: "0.1.0",
		Capabilities: adapter.Capabilities{
			Query:        true,
			Write:        true,
			Schema:       true,
			Transactions: true,
		},
	}, sqlkit.SQLServer, Open)
}

// Factory is the adapter.Factory for SQL Server.
func Factory() adapter.Adapter { return New() }

// DSN returns the sqlserver:// URL for cfg. The database travels as the
// "database" query parameter, which is where the driver expects it.
func DSN(cfg adapter.Config) string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}
	u := url.URL{Scheme: "sqlserver", Host: cfg.HostPort(DefaultPort)}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	q := url.Values{}
	for k, v := range cfg.DriverOptions() {
		q.Set(k, v)
	}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	if q.Get("app name") == "" {
		q.Set("app name", "db-mcp")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Open implements sqlkit.Opener.
func Open(_ context.Context, cfg adapter.Config) (sqlkit.Querier, error) {
	db, err := sql.Open("sqlserver", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlserver: %w", err)
	}
	return sqlkit.NewDB(db), nil
}
