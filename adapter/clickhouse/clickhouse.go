// Package clickhouse is the ClickHouse adapter family. It talks the native
// protocol through clickhouse-go's database/sql bridge.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/sqlkit"
)

// DefaultPort is the native protocol port.
const DefaultPort = 9000

// New creates a disconnected ClickHouse adapter. ClickHouse has no
// multi-statement transactions.
func New() *sqlkit.Adapter {
	return sqlkit.New(adapter.Info{
		Type:    adapter.TypeClickHouse,
		Name:    "ClickHouse Adapter",
		Version: "0.1.0",
		Capabilities: adapter.Capabilities{
			Query:  true,
			Write:  true,
			Schema: true,
		},
	}, sqlkit.ClickHouse, Open)
}

// Factory is the adapter.Factory for ClickHouse.
func Factory() adapter.Adapter { return New() }

// DriverOptions builds the driver options for cfg.
func DriverOptions(cfg adapter.Config) (*clickhouse.Options, error) {
	if cfg.ConnectionString != "" {
		opts, err := clickhouse.ParseDSN(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
		}
		return opts, nil
	}
	database := cfg.Database
	if database == "" {
		database = "default"
	}
	settings := clickhouse.Settings{"max_execution_time": 60}
	for k, v := range cfg.DriverOptions() {
		settings[k] = v
	}
	return &clickhouse.Options{
		Addr: []string{cfg.HostPort(DefaultPort)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings:        settings,
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}, nil
}

// Open implements sqlkit.Opener.
func Open(_ context.Context, cfg adapter.Config) (sqlkit.Querier, error) {
	opts, err := DriverOptions(cfg)
	if err != nil {
		return nil, err
	}
	return sqlkit.NewDB(clickhouse.OpenDB(opts)), nil
}
