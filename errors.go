package dbmcp

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for error classification.
var (
	// ErrConfiguration indicates an invalid configuration: an unsupported
	// transport, a malformed tool filter, or an unknown database type.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnection indicates a backend connection could not be established.
	ErrConnection = errors.New("connection error")

	// ErrDisconnection indicates a backend connection could not be released cleanly.
	ErrDisconnection = errors.New("disconnection error")

	// ErrDuplicateIdentity indicates an adapter identity is already registered.
	ErrDuplicateIdentity = errors.New("duplicate adapter identity")

	// ErrHealthCheck indicates a health probe failed in a way that could not
	// be expressed as an unhealthy report.
	ErrHealthCheck = errors.New("health check error")

	// ErrTimeout indicates a backend operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrDispatch indicates an individual tool call failed.
	ErrDispatch = errors.New("tool dispatch error")

	// ErrToolConflict indicates a tool, resource, or prompt name is already taken.
	ErrToolConflict = errors.New("name already registered")

	// ErrNotConnected indicates an operation needs a live backend connection.
	ErrNotConnected = errors.New("adapter not connected")

	// ErrAlreadyConnected indicates Connect was called on a connected adapter.
	ErrAlreadyConnected = errors.New("adapter already connected")
)

// OpError is a failure of a single adapter operation against its backend.
type OpError struct {
	// Adapter is the adapter type or identity that failed.
	Adapter string

	// Op is the operation name: "connect", "disconnect", "health", or a tool name.
	Op string

	// Err is the underlying driver error.
	Err error
}

// Error returns "<adapter> <op>: <cause>".
func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Adapter, e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is maps the lifecycle operation to its sentinel so that
// errors.Is(err, ErrConnection) holds for connect failures.
func (e *OpError) Is(target error) bool {
	switch e.Op {
	case "connect":
		return target == ErrConnection
	case "disconnect":
		return target == ErrDisconnection
	case "health":
		return target == ErrHealthCheck
	}
	return false
}

// NewConnectionError wraps a connect failure.
func NewConnectionError(adapter string, err error) *OpError {
	return &OpError{Adapter: adapter, Op: "connect", Err: err}
}

// NewDisconnectionError wraps a disconnect failure.
func NewDisconnectionError(adapter string, err error) *OpError {
	return &OpError{Adapter: adapter, Op: "disconnect", Err: err}
}

// NewHealthCheckError wraps a hard health probe failure.
func NewHealthCheckError(adapter string, err error) *OpError {
	return &OpError{Adapter: adapter, Op: "health", Err: err}
}

// DuplicateIdentityError reports a registration attempt for an identity that
// is already present in the registry.
type DuplicateIdentityError struct {
	Identity string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("adapter %q already registered", e.Identity)
}

// Is reports whether target is ErrDuplicateIdentity.
func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// TimeoutError reports an operation that did not finish within its deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// DispatchError reports a failed tool call. It never affects server state.
type DispatchError struct {
	Tool string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDispatch. Wrapped causes such as
// ErrTimeout are still reachable through Unwrap.
func (e *DispatchError) Is(target error) bool {
	return target == ErrDispatch
}

// ConflictError reports a tool, resource, or prompt name collision.
type ConflictError struct {
	// Kind is "tool", "resource", or "prompt".
	Kind string

	// Name is the colliding name or URI.
	Name string

	// Owner is the identity that already holds the name.
	Owner string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already registered by %s", e.Kind, e.Name, e.Owner)
}

// Is reports whether target is ErrToolConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrToolConflict
}
