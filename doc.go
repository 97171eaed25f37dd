// Package dbmcp exposes heterogeneous database backends to MCP clients through
// a single, filtered tool namespace.
//
// The module is organized in layers:
//
//   - filter: parses the tool filter expression into an immutable predicate
//   - toolset: wraps the MCP server as a tool registry substrate
//   - adapter: the Adapter contract, its families, and the adapter Registry
//   - server: the orchestrator that wires the layers together and runs a transport
//
// This root package holds the error taxonomy shared by every layer and the
// bounded-operation helper used to put a deadline on backend I/O.
//
// # Errors
//
// Every error surfaced by the gateway matches one of the sentinels declared
// here, so callers classify failures with errors.Is:
//
//	if errors.Is(err, dbmcp.ErrDuplicateIdentity) {
//	    // a second adapter tried to claim the same type:database identity
//	}
package dbmcp
