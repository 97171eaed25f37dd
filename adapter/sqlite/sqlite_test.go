package sqlite

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/sqlkit"
	"github.com/jonwraymond/dbmcp/toolset"
)

func TestPathAndDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  adapter.Config
		path string
		dsn  string
	}{
		{"default", adapter.Config{}, Memory, Memory},
		{"connection string", adapter.Config{ConnectionString: "/tmp/app.db"}, "/tmp/app.db",
			"/tmp/app.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"scheme", adapter.Config{ConnectionString: "sqlite:///var/data.db"}, "/var/data.db",
			"/var/data.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"option", adapter.Config{Options: map[string]string{"path": "file:x.db?mode=ro"}}, "file:x.db?mode=ro", "file:x.db?mode=ro"},
		{"read-only memory", adapter.Config{ReadOnly: true}, Memory, Memory + "?_pragma=query_only(1)"},
		{"read-only file", adapter.Config{ConnectionString: "/tmp/app.db", ReadOnly: true}, "/tmp/app.db",
			"/tmp/app.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=query_only(1)"},
		{"read-only option", adapter.Config{ReadOnly: true, Options: map[string]string{"path": "file:x.db?cache=shared"}},
			"file:x.db?cache=shared", "file:x.db?cache=shared&_pragma=query_only(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.path, Path(tt.cfg))
			assert.Equal(t, tt.dsn, DSN(tt.cfg))
		})
	}
}

func call(t *testing.T, a *sqlkit.Adapter, name string, args map[string]any) any {
	t.Helper()
	for _, tl := range a.Tools(a.Config()) {
		if tl.Name == name {
			out, err := tl.Handler(context.Background(), args)
			require.NoError(t, err, name)
			return out
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func TestSQLite_InMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New()
	require.NoError(t, a.Connect(ctx, adapter.Config{}))
	t.Cleanup(func() { _ = a.Disconnect(ctx) })

	assert.Equal(t, adapter.StateConnected, a.State())
	assert.Equal(t, "sqlite:default", a.Config().Identity())

	call(t, a, "sqlite_write_query", map[string]any{
		"query": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
	})
	out := call(t, a, "sqlite_write_query", map[string]any{
		"query":  "INSERT INTO users(name) VALUES (?), (?)",
		"params": []any{"ada", "grace"},
	})
	assert.EqualValues(t, 2, out.(sqlkit.ExecResult).RowsAffected)

	res := call(t, a, "sqlite_read_query", map[string]any{"query": "SELECT name FROM users ORDER BY id"}).(sqlkit.Result)
	require.Equal(t, 2, res.RowCount)
	assert.Equal(t, "ada", res.Rows[0]["name"])

	tables := call(t, a, "sqlite_list_tables", nil).(map[string]any)
	assert.Equal(t, []string{"users"}, tables["tables"])

	desc := call(t, a, "sqlite_describe_table", map[string]any{"table": "users"}).(map[string]any)
	cols := desc["columns"].([]map[string]any)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0]["name"])

	pragma := call(t, a, "sqlite_read_query", map[string]any{"query": "PRAGMA table_info(users)"}).(sqlkit.Result)
	assert.Equal(t, 2, pragma.RowCount)
}

func TestSQLite_Health(t *testing.T) {
	ctx := context.Background()
	a := New()

	report, err := a.Health(ctx)
	require.NoError(t, err)
	assert.False(t, report.Connected)

	require.NoError(t, a.Connect(ctx, adapter.Config{}))
	report, err = a.Health(ctx)
	require.NoError(t, err)
	assert.True(t, report.Connected)
	assert.NotEmpty(t, report.Version)

	require.NoError(t, a.Disconnect(ctx))
	assert.Equal(t, adapter.StateDisconnected, a.State())
}

func TestSQLite_ReadOnlyOmitsWrite(t *testing.T) {
	names := adapter.ToolNames(New().Tools(adapter.Config{ReadOnly: true, ToolPrefix: "ro"}))
	assert.NotContains(t, names, "ro_write_query")
	assert.Contains(t, names, "ro_read_query")
}

func TestSQLite_ReadOnlyRejectsModifyingReads(t *testing.T) {
	ctx := context.Background()
	a := New()
	require.NoError(t, a.Connect(ctx, adapter.Config{ReadOnly: true}))
	t.Cleanup(func() { _ = a.Disconnect(ctx) })

	var readQuery toolset.Tool
	for _, tl := range a.Tools(a.Config()) {
		if tl.Name == "sqlite_read_query" {
			readQuery = tl
		}
	}
	require.NotNil(t, readQuery.Handler)

	tests := []struct {
		name  string
		query string
	}{
		{"pragma assignment", "PRAGMA user_version = 7"},
		{"pragma call assignment", "PRAGMA user_version(7)"},
		{"pragma query_only off", "PRAGMA query_only = 0"},
		{"pragma action", "PRAGMA optimize"},
		{"explain analyze delete", "EXPLAIN ANALYZE DELETE FROM users"},
		{"select into", "SELECT * INTO users_copy FROM users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readQuery.Handler(ctx, map[string]any{"query": tt.query})
			assert.ErrorIs(t, err, sqlkit.ErrNotReadOnly)
		})
	}

	version := call(t, a, "sqlite_read_query", map[string]any{"query": "PRAGMA user_version"}).(sqlkit.Result)
	require.Equal(t, 1, version.RowCount)
	assert.EqualValues(t, 0, version.Rows[0]["user_version"])
}

func TestSQLite_ReadOnlyConnectionRejectsWrites(t *testing.T) {
	ctx := context.Background()
	q, err := Open(ctx, adapter.Config{ReadOnly: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	_, err = q.Exec(ctx, "PRAGMA user_version = 7")
	assert.Error(t, err)
	_, err = q.Exec(ctx, "CREATE TABLE t (x INTEGER)")
	assert.Error(t, err)

	res, err := q.Query(ctx, 0, "PRAGMA user_version")
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Rows[0]["user_version"])
}

func TestSQLite_PublishedThroughSet(t *testing.T) {
	ctx := context.Background()
	a := New()
	require.NoError(t, a.Connect(ctx, adapter.Config{Database: "main"}))
	t.Cleanup(func() { _ = a.Disconnect(ctx) })

	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0.0.1"}, nil)
	set := toolset.New(server, toolset.Options{})
	batch := set.Batch(a.Config().Identity(), a.Prefix())
	require.NoError(t, a.RegisterTools(batch, nil))
	require.NoError(t, a.RegisterResources(batch))
	require.NoError(t, a.RegisterPrompts(batch))
	require.NoError(t, batch.Commit())

	assert.Equal(t, 4, set.ToolCount())
	owner, ok := set.Owner("sqlite_read_query")
	assert.True(t, ok)
	assert.Equal(t, "sqlite:main", owner)
}
