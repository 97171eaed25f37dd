package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

// Preview indexes the built-in tools and the tools the configured databases
// would publish under the resolved filter. Nothing is connected; the tools
// are published to a detached MCP server, so name conflicts between
// databases surface here as *dbmcp.ConflictError.
func (s *Server) Preview() (*toolset.Catalog, error) {
	detached := mcp.NewServer(&mcp.Implementation{Name: s.cfg.Name, Version: s.cfg.Version}, nil)
	set := toolset.New(detached, toolset.Options{})

	builtins := set.Batch(builtinOwner, builtinOwner)
	for _, t := range s.builtinTools() {
		if err := builtins.AddTool(t); err != nil {
			return nil, err
		}
	}
	if err := builtins.Commit(); err != nil {
		return nil, err
	}

	for _, c := range s.configured {
		cfg := c.cfg.WithType(c.adapter.Type())
		batch := set.Batch(adapter.IdentityOf(c.adapter.Type(), cfg), cfg.Prefix())
		if _, err := adapter.RegisterFiltered(batch, s.filter, c.adapter.Tools(cfg)); err != nil {
			return nil, err
		}
		if err := batch.Commit(); err != nil {
			return nil, err
		}
	}
	return set.Catalog(), nil
}
