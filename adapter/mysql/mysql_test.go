package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/dbmcp/adapter"
)

func TestDriverConfig(t *testing.T) {
	mc, err := DriverConfig(adapter.Config{
		Host:     "mysql.internal",
		Username: "app",
		Password: "s3cret",
		Database: "shop",
		Options:  map[string]string{"charset": "utf8mb4", "maxRows": "20"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "mysql.internal:3306", mc.Addr)
	assert.Equal(t, "shop", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, map[string]string{"charset": "utf8mb4"}, mc.Params)

	dsn := mc.FormatDSN()
	assert.Contains(t, dsn, "app:s3cret@tcp(mysql.internal:3306)/shop?")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestDriverConfig_ConnectionString(t *testing.T) {
	mc, err := DriverConfig(adapter.Config{ConnectionString: "root:pw@tcp(10.0.0.5:3307)/inventory"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:3307", mc.Addr)
	assert.Equal(t, "inventory", mc.DBName)

	_, err = DriverConfig(adapter.Config{ConnectionString: "not a dsn"})
	assert.Error(t, err)
}

func TestTools(t *testing.T) {
	names := adapter.ToolNames(New().Tools(adapter.Config{ToolPrefix: "shop", ReadOnly: true}))
	assert.Equal(t, []string{"shop_read_query", "shop_list_tables", "shop_describe_table"}, names)
}
