// Package toolset publishes tools, resources, and prompts to an MCP server.
//
// Adapters describe what they expose with Tool, Resource, and Prompt values
// and hand them to a Registrar. The Registrar a Set gives out is a Batch: it
// stages everything one owner publishes, checks every name against what is
// already published, and makes the whole batch visible in one step on Commit.
// Either all of an owner's tools, resources, and prompts reach the server or
// none do.
//
//	set := toolset.New(server, toolset.Options{Timeout: 30 * time.Second})
//	b := set.Batch("sqlite:default", "sqlite")
//	_ = b.AddTool(toolset.Tool{Name: "sqlite_read_query", Handler: h, ...})
//	if err := b.Commit(); err != nil {
//	    // errors.Is(err, dbmcp.ErrToolConflict)
//	}
//
// Every published tool handler is wrapped: arguments are decoded from JSON,
// the call runs under the configured timeout with panics recovered, metrics
// and logs are recorded with a per-call ID, and the handler's value is
// returned as a single text content item holding indented JSON. Handler
// failures are returned to the protocol layer as *dbmcp.DispatchError.
//
// Published tools are also indexed in a Catalog backed by tooldiscovery, so
// the tool namespace can be searched by name, description, or tag.
package toolset
