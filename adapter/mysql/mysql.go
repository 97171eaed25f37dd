// Package mysql is the MySQL adapter family.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/sqlkit"
)

// DefaultPort is the MySQL server port.
const DefaultPort = 3306

// New creates a disconnected MySQL adapter.
func New() *sqlkit.Adapter {
	return sqlkit.New(adapter.Info{
		Type:    adapter.TypeMySQL,
		Name:    "MySQL Adapter",
		Version: "0.1.0",
		Capabilities: adapter.Capabilities{
			Query:        true,
			Write:        true,
			Schema:       true,
			Transactions: true,
		},
	}, sqlkit.MySQL, Open)
}

// Factory is the adapter.Factory for MySQL.
func Factory() adapter.Adapter { return New() }

// DriverConfig builds the driver configuration for cfg. A connection string
// must be in the driver's DSN format.
func DriverConfig(cfg adapter.Config) (*mysql.Config, error) {
	if cfg.ConnectionString != "" {
		mc, err := mysql.ParseDSN(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		return mc, nil
	}
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = cfg.HostPort(DefaultPort)
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = 10 * time.Second
	if opts := cfg.DriverOptions(); len(opts) > 0 {
		mc.Params = opts
	}
	return mc, nil
}

// Open implements sqlkit.Opener.
func Open(_ context.Context, cfg adapter.Config) (sqlkit.Querier, error) {
	mc, err := DriverConfig(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(time.Hour)
	return sqlkit.NewDB(db), nil
}
