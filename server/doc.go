// Package server assembles the db-mcp gateway: it resolves the tool filter,
// registers the built-in introspection tools, registers database adapters,
// and serves the MCP protocol over stdio or streamable HTTP.
//
// A Server moves through a fixed sequence of states:
//
//	constructed -> tools-registered -> running -> shutting-down -> stopped
//
// New performs no backend I/O. RegisterConfigured connects the configured
// databases. Start blocks while the selected transport serves, and Shutdown
// disconnects every adapter before tearing the transport down.
//
// # Built-in tools
//
// server_info, server_health, and list_adapters are always registered and are
// never subject to the tool filter. They read the registry at call time.
//
// # HTTP transport
//
// In http mode the server listens on host:port and routes:
//
//	/mcp      streamable MCP endpoint
//	/healthz  liveness
//	/catalog  tool catalog search (?q=&limit=)
//	/metrics  prometheus exposition
package server
