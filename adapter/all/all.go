// Package all registers every built-in adapter family.
package all

import (
	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/clickhouse"
	"github.com/jonwraymond/dbmcp/adapter/mongodb"
	"github.com/jonwraymond/dbmcp/adapter/mysql"
	"github.com/jonwraymond/dbmcp/adapter/postgres"
	"github.com/jonwraymond/dbmcp/adapter/redis"
	"github.com/jonwraymond/dbmcp/adapter/sqlite"
	"github.com/jonwraymond/dbmcp/adapter/sqlserver"
)

// Families returns a set with a factory for every built-in backend type.
func Families() *adapter.Families {
	f := adapter.NewFamilies()
	f.Register(adapter.TypeSQLite, sqlite.Factory)
	f.Register(adapter.TypePostgres, postgres.Factory)
	f.Register(adapter.TypeMySQL, mysql.Factory)
	f.Register(adapter.TypeSQLServer, sqlserver.Factory)
	f.Register(adapter.TypeClickHouse, clickhouse.Factory)
	f.Register(adapter.TypeMongoDB, mongodb.Factory)
	f.Register(adapter.TypeRedis, redis.Factory)
	return f
}
