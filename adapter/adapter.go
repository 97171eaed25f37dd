package adapter

import (
	"context"

	"github.com/jonwraymond/dbmcp/toolset"
)

// Backend type tags.
const (
	TypeSQLite     = "sqlite"
	TypePostgres   = "postgresql"
	TypeMySQL      = "mysql"
	TypeSQLServer  = "sqlserver"
	TypeClickHouse = "clickhouse"
	TypeMongoDB    = "mongodb"
	TypeRedis      = "redis"
)

// Kind is the data model family of a backend.
type Kind string

const (
	KindRelational Kind = "relational"
	KindDocument   Kind = "document"
	KindKeyValue   Kind = "key-value"
)

// State is the connectivity state of an adapter.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Capabilities advertises what a backend family supports.
type Capabilities struct {
	Query        bool `json:"query"`
	Write        bool `json:"write"`
	Schema       bool `json:"schema"`
	Transactions bool `json:"transactions"`
	Documents    bool `json:"documents"`
	KeyValue     bool `json:"keyValue"`
}

// Info is static identity metadata. Producing it performs no I/O.
type Info struct {
	Type         string       `json:"type"`
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Kind         Kind         `json:"kind"`
	Capabilities Capabilities `json:"capabilities"`
}

// HealthReport is the result of one connectivity probe.
type HealthReport struct {
	Connected bool           `json:"connected"`
	LatencyMs int64          `json:"latencyMs,omitempty"`
	Version   string         `json:"version,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ToolFilter decides which tool names an adapter may register.
// *filter.Config satisfies it.
type ToolFilter interface {
	IsEnabled(name string) bool
}

// Adapter is one backend connection exposed as tools, resources, and prompts.
//
// Contract:
// - Concurrency: every method must be safe for concurrent use, including
//   tool handlers running while Health or Disconnect is in progress.
// - Context: Connect, Disconnect, and Health honor cancellation; callers
//   additionally bound them with timeouts.
// - Errors: Connect on a connected or connecting adapter returns
//   dbmcp.ErrAlreadyConnected; other Connect failures match
//   dbmcp.ErrConnection. Disconnect before a successful Connect is a no-op.
//   Health reports connectivity loss as Connected=false and returns an error
//   only for programming errors.
// - Ownership: the adapter exclusively owns its connection handle and never
//   mutates the Config it is given.
type Adapter interface {
	// Type returns the backend type tag, e.g. "sqlite".
	Type() string
	// Name returns a human-readable adapter name.
	Name() string
	// Version returns the adapter's semantic version.
	Version() string

	Connect(ctx context.Context, cfg Config) error
	Disconnect(ctx context.Context) error
	// IsConnected is a non-blocking state read.
	IsConnected() bool
	State() State
	Health(ctx context.Context) (HealthReport, error)
	Info() Info

	// Tools returns every tool descriptor the adapter would expose for cfg.
	// It performs no I/O and is used to build the filter's known catalog
	// before any adapter connects.
	Tools(cfg Config) []toolset.Tool

	// RegisterTools registers the tools admitted by filter. A nil filter
	// admits every tool.
	RegisterTools(r toolset.Registrar, filter ToolFilter) error
	// RegisterResources registers descriptive resources; not filtered.
	RegisterResources(r toolset.Registrar) error
	// RegisterPrompts registers prompts; not filtered.
	RegisterPrompts(r toolset.Registrar) error
}

// RegisterFiltered adds each tool admitted by filter to r and returns the
// number added. Denied tools never reach r.
func RegisterFiltered(r toolset.Registrar, filter ToolFilter, tools []toolset.Tool) (int, error) {
	n := 0
	for _, t := range tools {
		if filter != nil && !filter.IsEnabled(t.Name) {
			continue
		}
		if err := r.AddTool(t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ToolNames returns the names of tools.
func ToolNames(tools []toolset.Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return out
}
