// Package postgres is the PostgreSQL adapter family, backed by a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/sqlkit"
)

// DefaultPort is the PostgreSQL server port.
const DefaultPort = 5432

// New creates a disconnected PostgreSQL adapter.
func New() *sqlkit.Adapter {
	return sqlkit.New(adapter.Info{
		Type:    adapter.TypePostgres,
		Name:    "PostgreSQL Adapter",
		Version: "0.1.0",
		Capabilities: adapter.Capabilities{
			Query:        true,
			Write:        true,
			Schema:       true,
			Transactions: true,
		},
	}, sqlkit.Postgres, Open)
}

// Factory is the adapter.Factory for PostgreSQL.
func Factory() adapter.Adapter { return New() }

// PoolConfig parses cfg into a pgx pool configuration. Read-only configs
// make every session default to read-only transactions.
func PoolConfig(cfg adapter.Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL("postgres", DefaultPort))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if pc.ConnConfig.RuntimeParams == nil {
		pc.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = "db-mcp"
	}
	if cfg.ReadOnly {
		pc.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	}
	return pc, nil
}

// Open implements sqlkit.Opener.
func Open(ctx context.Context, cfg adapter.Config) (sqlkit.Querier, error) {
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return sqlkit.NewPool(pool), nil
}
