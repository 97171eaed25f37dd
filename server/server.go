package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/config"
	"github.com/jonwraymond/dbmcp/filter"
	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/toolset"
)

// State is the lifecycle state of a Server.
type State string

const (
	StateConstructed     State = "constructed"
	StateToolsRegistered State = "tools-registered"
	StateRunning         State = "running"
	StateShuttingDown    State = "shutting-down"
	StateStopped         State = "stopped"
)

// ErrState is returned when an operation is not allowed in the current state.
var ErrState = errors.New("invalid server state")

// builtinOwner owns the built-in tools in the tool set.
const builtinOwner = "server"

const instructions = "Database gateway. Call list_adapters to see the connected databases; " +
	"each database exposes tools named <prefix>_<operation>."

type configured struct {
	adapter adapter.Adapter
	cfg     adapter.Config
}

// Server is a db-mcp gateway.
//
// Contract:
// - Concurrency: safe for concurrent use. Tool calls run concurrently with
//   registration and shutdown.
// - Lifecycle: Start runs at most once. Shutdown runs at most once; later
//   calls return the first result.
type Server struct {
	cfg      config.Config
	logger   logging.Logger
	opts     Options
	filter   *filter.Config
	mcp      *mcp.Server
	set      *toolset.Set
	registry *adapter.Registry

	configured []configured

	mu     sync.Mutex
	state  State
	addr   string
	cancel context.CancelFunc
	done   chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a server from cfg. It instantiates an adapter for every
// configured database without connecting it, resolves the tool filter
// against the tools those adapters would expose, and registers the built-in
// tools. Invalid configuration, unknown database types, and malformed filter
// expressions fail with dbmcp.ErrConfiguration before any I/O.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	o.applyDefaults()

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var known []string
	pending := make([]configured, 0, len(cfg.Databases))
	for i, db := range cfg.Databases {
		a, err := o.Families.New(db.Type)
		if err != nil {
			return nil, fmt.Errorf("databases[%d]: %w", i, err)
		}
		pending = append(pending, configured{adapter: a, cfg: db})
		known = append(known, adapter.ToolNames(a.Tools(db))...)
	}

	f, err := filter.Resolve(cfg.ToolFilter, o.LookupEnv, known)
	if err != nil {
		return nil, err
	}
	o.Logger.Logf("%s", f.Summary())

	ms := mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version},
		&mcp.ServerOptions{Instructions: instructions})
	set := toolset.New(ms, toolset.Options{
		Timeout: cfg.Timeouts.Tool,
		Logger:  o.Logger,
		Metrics: o.Metrics,
	})
	registry := adapter.NewRegistry(set, adapter.RegistryOptions{
		Filter:      f,
		Timeouts:    cfg.AdapterTimeouts(),
		Concurrency: cfg.HealthConcurrency,
		Logger:      o.Logger,
		Metrics:     o.Metrics,
	})

	s := &Server{
		cfg:        cfg,
		logger:     o.Logger,
		opts:       o,
		filter:     f,
		mcp:        ms,
		set:        set,
		registry:   registry,
		configured: pending,
		state:      StateConstructed,
	}
	if err := s.registerBuiltins(); err != nil {
		return nil, err
	}
	s.setState(StateToolsRegistered)
	return s, nil
}

// RegisterAdapter connects a and publishes its admitted tools. It is allowed
// until shutdown begins. Errors are those of adapter.Registry.Register.
func (s *Server) RegisterAdapter(ctx context.Context, a adapter.Adapter, cfg adapter.Config) error {
	switch st := s.State(); st {
	case StateToolsRegistered, StateRunning:
	default:
		return fmt.Errorf("%w: cannot register adapter while %s", ErrState, st)
	}
	return s.registry.Register(ctx, a, cfg)
}

// RegisterConfigured registers an adapter for every configured database, in
// order. On the first failure the adapters it already registered are removed
// and disconnected, and the failure is returned.
func (s *Server) RegisterConfigured(ctx context.Context) error {
	registered := make([]string, 0, len(s.configured))
	for _, c := range s.configured {
		if err := s.RegisterAdapter(ctx, c.adapter, c.cfg); err != nil {
			for _, id := range registered {
				if rerr := s.registry.Remove(ctx, id); rerr != nil {
					s.logger.Logf("rollback %s: %v", id, rerr)
				}
			}
			return err
		}
		registered = append(registered, adapter.IdentityOf(c.adapter.Type(), c.cfg))
	}
	return nil
}

// State returns the lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger.Logf("server %s: %s", s.cfg.Name, st)
}

// Config returns the configuration with defaults applied.
func (s *Server) Config() config.Config { return s.cfg }

// Registry returns the adapter registry.
func (s *Server) Registry() *adapter.Registry { return s.registry }

// Filter returns the resolved tool filter.
func (s *Server) Filter() *filter.Config { return s.filter }

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// Tools returns the sorted names of every published tool, built-ins included.
func (s *Server) Tools() []string { return s.set.ToolNames() }

// Catalog returns the searchable index of published tools.
func (s *Server) Catalog() *toolset.Catalog { return s.set.Catalog() }

// Addr returns the bound HTTP address once listening, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown disconnects every registered adapter, best-effort and in
// parallel, then stops the transport and waits for Start to return or ctx
// to expire. Disconnect failures are logged and returned joined; every
// adapter is attempted regardless.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Server) shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateShuttingDown
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	s.logger.Logf("server %s: %s", s.cfg.Name, StateShuttingDown)

	err := s.registry.ShutdownAll(ctx)
	if err != nil {
		s.logger.Logf("shutdown: %v", err)
	}

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Logf("shutdown: transport did not stop: %v", ctx.Err())
		}
	}
	s.setState(StateStopped)
	return err
}
