package adapter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/dbmcp"
)

// Base carries the metadata and connectivity state machine shared by every
// family. Families embed it and call BeginConnect/EndConnect around their
// driver's connect, BeginDisconnect/EndDisconnect around close, and Probe
// from Health.
type Base struct {
	info Info

	state atomic.Value // State

	mu   sync.Mutex
	open bool
	cfg  Config
}

// NewBase returns a disconnected Base.
func NewBase(info Info) *Base {
	b := &Base{info: info}
	b.state.Store(StateDisconnected)
	return b
}

// Type returns the backend type tag.
func (b *Base) Type() string { return b.info.Type }

// Name returns the adapter name.
func (b *Base) Name() string { return b.info.Name }

// Version returns the adapter version.
func (b *Base) Version() string { return b.info.Version }

// Info returns static metadata.
func (b *Base) Info() Info { return b.info }

// State returns the current connectivity state.
func (b *Base) State() State {
	s, _ := b.state.Load().(State)
	if s == "" {
		return StateDisconnected
	}
	return s
}

// IsConnected reports whether the state is connected.
func (b *Base) IsConnected() bool { return b.State() == StateConnected }

// Config returns the config passed to the last Connect.
func (b *Base) Config() Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// Prefix returns the tool name prefix of the last Connect's config, or the
// type tag before any Connect.
func (b *Base) Prefix() string {
	return b.Config().WithType(b.info.Type).Prefix()
}

// BeginConnect moves the adapter to connecting. It fails with
// dbmcp.ErrAlreadyConnected while a handle is open or a connect is in flight.
func (b *Base) BeginConnect(cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open || b.State() == StateConnecting {
		return fmt.Errorf("%s: %w", b.info.Type, dbmcp.ErrAlreadyConnected)
	}
	b.cfg = cfg.WithType(b.info.Type)
	b.state.Store(StateConnecting)
	return nil
}

// EndConnect records the connect outcome. A non-nil err moves the adapter to
// error and is returned wrapped as a connection error; the caller must have
// released any partial handle.
func (b *Base) EndConnect(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.open = false
		b.state.Store(StateError)
		return dbmcp.NewConnectionError(b.info.Type, err)
	}
	b.open = true
	b.state.Store(StateConnected)
	return nil
}

// BeginDisconnect reports whether a handle is open and needs closing. When
// none is, the adapter is marked disconnected and the caller returns nil.
func (b *Base) BeginDisconnect() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		if b.State() != StateConnecting {
			b.state.Store(StateDisconnected)
		}
		return false
	}
	return true
}

// EndDisconnect marks the adapter disconnected whatever the close outcome
// and returns a non-nil err wrapped as a disconnection error.
func (b *Base) EndDisconnect(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.state.Store(StateDisconnected)
	if err != nil {
		return dbmcp.NewDisconnectionError(b.info.Type, err)
	}
	return nil
}

// Probe runs ping against the open handle and folds the outcome into a
// report and the state machine: failure moves connected to error, success
// moves error back to connected. Without an open handle ping is not called.
func (b *Base) Probe(ctx context.Context, ping func(ctx context.Context) (HealthReport, error)) HealthReport {
	b.mu.Lock()
	open := b.open
	b.mu.Unlock()
	if !open {
		return HealthReport{Connected: false, Error: dbmcp.ErrNotConnected.Error()}
	}

	start := time.Now()
	report, err := ping(ctx)
	report.LatencyMs = time.Since(start).Milliseconds()

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return HealthReport{Connected: false, Error: dbmcp.ErrNotConnected.Error()}
	}
	if err != nil {
		b.state.Store(StateError)
		report.Connected = false
		report.Error = err.Error()
		return report
	}
	b.state.Store(StateConnected)
	report.Connected = true
	report.Error = ""
	return report
}
