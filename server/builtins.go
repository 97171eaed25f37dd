package server

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

// Built-in tool names.
const (
	ToolServerInfo   = "server_info"
	ToolServerHealth = "server_health"
	ToolListAdapters = "list_adapters"
)

// AdapterInfo is one adapter in server_info output.
type AdapterInfo struct {
	ID string `json:"id"`
	adapter.Info
}

// FilterInfo describes the resolved tool filter in server_info output.
type FilterInfo struct {
	Raw          string `json:"raw"`
	EnabledCount int    `json:"enabledCount"`
}

// Info is the server_info output.
type Info struct {
	Name       string        `json:"name"`
	Version    string        `json:"version"`
	Transport  string        `json:"transport"`
	Adapters   []AdapterInfo `json:"adapters"`
	ToolFilter FilterInfo    `json:"toolFilter"`
}

// Health is the server_health output.
type Health struct {
	Server    string                          `json:"server"`
	Timestamp string                          `json:"timestamp"`
	Adapters  map[string]adapter.HealthReport `json:"adapters"`
}

// AdapterSummary is one list_adapters entry.
type AdapterSummary struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Connected bool   `json:"connected"`
}

// Info reports static server metadata and the registered adapters.
// It performs no backend I/O.
func (s *Server) Info() Info {
	entries := s.registry.All()
	adapters := make([]AdapterInfo, 0, len(entries))
	for _, e := range entries {
		adapters = append(adapters, AdapterInfo{ID: e.ID, Info: e.Adapter.Info()})
	}
	return Info{
		Name:      s.cfg.Name,
		Version:   s.cfg.Version,
		Transport: s.cfg.Transport,
		Adapters:  adapters,
		ToolFilter: FilterInfo{
			Raw:          s.filter.Raw(),
			EnabledCount: s.filter.EnabledCount(),
		},
	}
}

// Health probes every adapter. A failing adapter is reported, never returned
// as an error.
func (s *Server) Health(ctx context.Context) Health {
	return Health{
		Server:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Adapters:  s.registry.HealthSnapshot(ctx),
	}
}

// Adapters lists the registered adapters with their connectivity flag.
func (s *Server) Adapters() []AdapterSummary {
	entries := s.registry.All()
	out := make([]AdapterSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, AdapterSummary{
			ID:        e.ID,
			Type:      e.Adapter.Type(),
			Name:      e.Adapter.Name(),
			Version:   e.Adapter.Version(),
			Connected: e.Adapter.IsConnected(),
		})
	}
	return out
}

func (s *Server) builtinTools() []toolset.Tool {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}
	return []toolset.Tool{
		{
			Name:        ToolServerInfo,
			Title:       "Server info",
			Description: "Get server name, version, transport, registered adapters, and the active tool filter.",
			Annotations: readOnly,
			Tags:        []string{"server", "introspection"},
			Handler: func(context.Context, map[string]any) (any, error) {
				return s.Info(), nil
			},
		},
		{
			Name:        ToolServerHealth,
			Title:       "Server health",
			Description: "Check connectivity of every registered database adapter.",
			Annotations: readOnly,
			Tags:        []string{"server", "health"},
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return s.Health(ctx), nil
			},
		},
		{
			Name:        ToolListAdapters,
			Title:       "List adapters",
			Description: "List registered database adapters and whether each is connected.",
			Annotations: readOnly,
			Tags:        []string{"server", "introspection"},
			Handler: func(context.Context, map[string]any) (any, error) {
				return s.Adapters(), nil
			},
		},
	}
}

// registerBuiltins publishes the built-in tools. They bypass the tool filter.
func (s *Server) registerBuiltins() error {
	batch := s.set.Batch(builtinOwner, builtinOwner)
	for _, t := range s.builtinTools() {
		if err := batch.AddTool(t); err != nil {
			return err
		}
	}
	return batch.Commit()
}
