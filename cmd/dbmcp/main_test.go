package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/config"
	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/server"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: from-file
transport: stdio
toolFilter: "-redis_set"
databases:
  - type: redis
    host: cache.internal
`), 0o600))

	f := &flags{lookupEnv: func(string) (string, bool) { return "", false }}
	var got config.Config
	cmd := &cobra.Command{
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = f.loadConfig(cmd)
			return err
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "")
	cmd.Flags().StringVar(&f.transport, "transport", "", "")
	cmd.Flags().IntVar(&f.port, "port", 0, "")
	cmd.Flags().StringVar(&f.toolFilter, "tool-filter", "", "")
	cmd.Flags().StringArrayVar(&f.databases, "db", nil, "")
	cmd.SetArgs([]string{"--config", path, "--transport", "http", "--port", "8080", "--db", "sqlite=./app.db"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "from-file", got.Name)
	assert.Equal(t, config.TransportHTTP, got.Transport)
	assert.Equal(t, 8080, got.Port)
	assert.Equal(t, "-redis_set", got.ToolFilter)
	require.Len(t, got.Databases, 2)
	assert.Equal(t, "redis", got.Databases[0].Type)
	assert.Equal(t, "sqlite", got.Databases[1].Type)
	assert.Equal(t, "./app.db", got.Databases[1].ConnectionString)
}

func TestTools_Search(t *testing.T) {
	out, err := execute(t, "tools", "--db", "sqlite=:memory:", "--search", "describe columns table")
	require.NoError(t, err)
	assert.Contains(t, out, "NAMESPACE")
	assert.Contains(t, out, "Sqlite")
	assert.Contains(t, out, "sqlite_describe_table")
}

func TestTools_RespectsFilter(t *testing.T) {
	out, err := execute(t, "tools", "--db", "sqlite=:memory:", "--tool-filter", "-sqlite_write_query")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite_read_query")
	assert.NotContains(t, out, "sqlite_write_query")
	assert.Contains(t, out, "server_info")
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "--db", "sqlite=:memory:", "--tool-filter", "-sqlite_write_query")
	require.NoError(t, err)
	assert.Contains(t, out, "deny-list")
	assert.Contains(t, out, "  deny -sqlite_write_query")
	assert.Contains(t, out, "sqlite:default")
	assert.Contains(t, out, "configuration ok")
}

func TestLogStartup(t *testing.T) {
	cfg := config.Config{
		ToolFilter: "-sqlite_write_query",
		Databases:  []adapter.Config{{Type: "sqlite"}},
	}
	s, err := server.New(cfg, server.WithLogger(logging.Nop()),
		server.WithLookupEnv(func(string) (string, bool) { return "", false }))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.RegisterConfigured(ctx))
	t.Cleanup(func() { _ = s.Shutdown(ctx) })

	core, logs := observer.New(zap.DebugLevel)
	logStartup(logging.NewZap(zap.New(core)), s)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "tool filter denies -sqlite_write_query", entries[0].Message)
	assert.Equal(t, "sqlite:default", entries[1].ContextMap()["adapter"])
	assert.Contains(t, entries[1].Message, "connected=true")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad filter", []string{"validate", "--tool-filter", "--x"}},
		{"bad transport", []string{"validate", "--transport", "grpc"}},
		{"unknown type", []string{"validate", "--db", "oracle=x"}},
		{"bad db flag", []string{"validate", "--db", "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, dbmcp.ErrConfiguration), "error = %v", err)
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dbmcp "+version)
	assert.Contains(t, out, "sqlite")
}
