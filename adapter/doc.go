// Package adapter defines the contract every database backend implements and
// the Registry that owns live adapters.
//
// An Adapter bridges one backend connection to the uniform tool surface. It
// connects and disconnects, probes its own health, reports static metadata,
// and describes the tools, resources, and prompts it exposes. Families of
// backends (relational, document, key-value) implement the same interface,
// selected by a Families factory keyed on the configured type tag.
//
// # Identity
//
// Every adapter in a Registry is keyed by its Identity, the backend type and
// the logical database name joined by a colon:
//
//	sqlite:default
//	postgresql:orders
//
// Registering a second adapter under an identity that is already present (or
// being registered concurrently) fails with *dbmcp.DuplicateIdentityError.
//
// # Lifecycle
//
// Adapters move through disconnected, connecting, connected, and error
// states. Registry.Register connects an adapter, publishes its filtered tool
// set, and only then makes it visible to Get and All. A failed probe marks an
// adapter as errored but never removes it; a later successful probe marks it
// connected again.
//
// # Concurrency
//
// Every Adapter method must be safe for concurrent use. The Registry
// serializes mutations behind a single lock and runs health and shutdown
// sweeps as bounded fan-outs where each adapter's failure is captured in its
// own result slot.
package adapter
