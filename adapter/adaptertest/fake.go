// Package adaptertest provides a scriptable in-memory Adapter for tests.
package adaptertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

// Options scripts a Fake's behavior.
type Options struct {
	// Type is the backend type tag. Defaults to "fake".
	Type    string
	Name    string
	Version string

	// Tools are tool name suffixes; each is exposed as "<prefix>_<suffix>".
	Tools []string

	ConnectErr    error
	DisconnectErr error
	HealthErr     error

	// Delays sleep without honoring the context, like a stalled backend.
	ConnectDelay    time.Duration
	DisconnectDelay time.Duration
	HealthDelay     time.Duration

	// HealthPanic makes Health panic.
	HealthPanic bool

	// NoResources and NoPrompts skip the default resource and prompt.
	NoResources bool
	NoPrompts   bool
}

// Fake is an adapter.Adapter whose lifecycle outcomes are scripted.
type Fake struct {
	*adapter.Base
	opts Options

	mu        sync.Mutex
	healthErr error

	Connects    atomic.Int32
	Disconnects atomic.Int32
	Probes      atomic.Int32
	Calls       atomic.Int32
}

var _ adapter.Adapter = (*Fake)(nil)

// New creates a disconnected Fake.
func New(opts Options) *Fake {
	if opts.Type == "" {
		opts.Type = "fake"
	}
	if opts.Name == "" {
		opts.Name = "Fake Adapter"
	}
	if opts.Version == "" {
		opts.Version = "0.0.0"
	}
	return &Fake{
		Base: adapter.NewBase(adapter.Info{
			Type:    opts.Type,
			Name:    opts.Name,
			Version: opts.Version,
			Kind:    adapter.KindKeyValue,
			Capabilities: adapter.Capabilities{
				Query: true,
			},
		}),
		opts:      opts,
		healthErr: opts.HealthErr,
	}
}

// SetHealthErr changes the outcome of later probes.
func (f *Fake) SetHealthErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthErr = err
}

// Connect implements adapter.Adapter.
func (f *Fake) Connect(_ context.Context, cfg adapter.Config) error {
	if err := f.BeginConnect(cfg); err != nil {
		return err
	}
	f.Connects.Add(1)
	if f.opts.ConnectDelay > 0 {
		time.Sleep(f.opts.ConnectDelay)
	}
	return f.EndConnect(f.opts.ConnectErr)
}

// Disconnect implements adapter.Adapter.
func (f *Fake) Disconnect(_ context.Context) error {
	if !f.BeginDisconnect() {
		return nil
	}
	f.Disconnects.Add(1)
	if f.opts.DisconnectDelay > 0 {
		time.Sleep(f.opts.DisconnectDelay)
	}
	return f.EndDisconnect(f.opts.DisconnectErr)
}

// Health implements adapter.Adapter.
func (f *Fake) Health(ctx context.Context) (adapter.HealthReport, error) {
	f.Probes.Add(1)
	if f.opts.HealthPanic {
		panic("fake health panic")
	}
	if f.opts.HealthDelay > 0 {
		time.Sleep(f.opts.HealthDelay)
	}
	return f.Probe(ctx, func(context.Context) (adapter.HealthReport, error) {
		f.mu.Lock()
		err := f.healthErr
		f.mu.Unlock()
		return adapter.HealthReport{Version: f.opts.Version}, err
	}), nil
}

// Tools implements adapter.Adapter.
func (f *Fake) Tools(cfg adapter.Config) []toolset.Tool {
	prefix := cfg.WithType(f.Type()).Prefix()
	out := make([]toolset.Tool, 0, len(f.opts.Tools))
	for _, suffix := range f.opts.Tools {
		name := prefix + "_" + suffix
		out = append(out, toolset.Tool{
			Name:        name,
			Description: fmt.Sprintf("Fake %s tool.", suffix),
			InputSchema: toolset.ObjectSchema(nil),
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				if !f.IsConnected() {
					return nil, dbmcp.ErrNotConnected
				}
				f.Calls.Add(1)
				return map[string]any{"tool": name, "args": args}, nil
			},
		})
	}
	return out
}

// RegisterTools implements adapter.Adapter.
func (f *Fake) RegisterTools(r toolset.Registrar, filter adapter.ToolFilter) error {
	_, err := adapter.RegisterFiltered(r, filter, f.Tools(f.Config()))
	return err
}

// RegisterResources implements adapter.Adapter.
func (f *Fake) RegisterResources(r toolset.Registrar) error {
	if f.opts.NoResources {
		return nil
	}
	cfg := f.Config()
	return r.AddResource(toolset.Resource{
		URI:  fmt.Sprintf("dbmcp://%s/%s/fake", f.Prefix(), cfg.DatabaseName()),
		Name: f.Name(),
		Read: func(context.Context) (any, error) {
			return map[string]any{"identity": adapter.IdentityOf(f.Type(), cfg)}, nil
		},
	})
}

// RegisterPrompts implements adapter.Adapter.
func (f *Fake) RegisterPrompts(r toolset.Registrar) error {
	if f.opts.NoPrompts {
		return nil
	}
	return r.AddPrompt(toolset.Prompt{
		Name: f.Prefix() + "_explore",
		Render: func(context.Context, map[string]string) (string, error) {
			return "Explore the fake backend.", nil
		},
	})
}
