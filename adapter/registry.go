package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/metrics"
	"github.com/jonwraymond/dbmcp/toolset"
)

// ErrUnknownAdapter is returned when an identity is not in the registry.
var ErrUnknownAdapter = errors.New("adapter not registered")

// Timeouts bounds each backend operation the registry performs.
// Zero disables the bound for that operation.
type Timeouts struct {
	Connect    time.Duration
	Health     time.Duration
	Disconnect time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:    30 * time.Second,
		Health:     5 * time.Second,
		Disconnect: 10 * time.Second,
	}
}

// DefaultHealthConcurrency bounds parallel probes in HealthSnapshot and
// parallel disconnects in ShutdownAll.
const DefaultHealthConcurrency = 8

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Filter admits adapter tools. Nil admits every tool.
	Filter ToolFilter

	Timeouts Timeouts

	// Concurrency bounds the health and shutdown fan-outs.
	// Zero uses DefaultHealthConcurrency.
	Concurrency int

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Entry is one registered adapter.
type Entry struct {
	ID      string
	Adapter Adapter
	Config  Config
}

type slot struct {
	Entry
	ready bool
}

// Registry owns the live adapters keyed by identity and publishes their
// tools through a toolset.Set.
//
// Contract:
// - Concurrency: safe for concurrent use. Mutations are serialized; reads
//   run concurrently with each other. No backend I/O happens under the lock.
// - Errors: Register is all-or-nothing. Sweeps never abort early.
type Registry struct {
	set         *toolset.Set
	filter      ToolFilter
	timeouts    Timeouts
	concurrency int
	logger      logging.Logger
	metrics     *metrics.Metrics

	mu    sync.RWMutex
	slots map[string]*slot
	order []string
}

// NewRegistry creates a registry publishing through set.
func NewRegistry(set *toolset.Set, opts RegistryOptions) *Registry {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultHealthConcurrency
	}
	return &Registry{
		set:         set,
		filter:      opts.Filter,
		timeouts:    opts.Timeouts,
		concurrency: concurrency,
		logger:      logging.OrNop(opts.Logger),
		metrics:     opts.Metrics,
		slots:       make(map[string]*slot),
	}
}

// Register connects a, publishes its admitted tools, resources, and prompts,
// and then makes it visible under its identity.
//
// The identity is reserved atomically before any I/O, so a concurrent
// registration of the same identity fails with *dbmcp.DuplicateIdentityError.
// If connect fails nothing is inserted. If publication fails the adapter is
// disconnected, its slot released, and the error returned.
func (r *Registry) Register(ctx context.Context, a Adapter, cfg Config) error {
	if a == nil {
		return fmt.Errorf("adapter is nil")
	}
	cfg = cfg.WithType(a.Type())
	id := IdentityOf(a.Type(), cfg)

	if err := r.reserve(id, a, cfg); err != nil {
		return err
	}

	_, err := dbmcp.BoundedLate(ctx, r.timeouts.Connect, id+" connect",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.Connect(ctx, cfg)
		},
		func(_ struct{}, err error) {
			// The caller gave up; close whatever the late connect opened.
			if err == nil {
				r.logger.Logf("adapter %s: connect finished after timeout, disconnecting", id)
				_ = r.disconnect(context.Background(), id, a)
			}
		})
	if err != nil {
		r.release(id)
		if errors.Is(err, dbmcp.ErrTimeout) {
			err = dbmcp.NewConnectionError(id, err)
		}
		r.logger.Logf("adapter %s: connect failed: %v", id, err)
		return err
	}

	if err := r.publish(id, cfg, a); err != nil {
		if derr := r.disconnect(ctx, id, a); derr != nil {
			r.logger.Logf("adapter %s: disconnect after failed registration: %v", id, derr)
		}
		r.release(id)
		r.logger.Logf("adapter %s: registration failed: %v", id, err)
		return err
	}

	r.mu.Lock()
	r.slots[id].ready = true
	r.order = append(r.order, id)
	n := len(r.order)
	r.mu.Unlock()

	r.metrics.SetAdapters(n)
	r.metrics.SetAdapterUp(id, true)
	r.logger.Logf("registered adapter: %s (%s), %d tools", a.Name(), id, len(r.set.OwnedTools(id)))
	return nil
}

func (r *Registry) reserve(id string, a Adapter, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.slots[id]; exists {
		return &dbmcp.DuplicateIdentityError{Identity: id}
	}
	r.slots[id] = &slot{Entry: Entry{ID: id, Adapter: a, Config: cfg}}
	return nil
}

func (r *Registry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[id]; ok && !s.ready {
		delete(r.slots, id)
	}
}

func (r *Registry) publish(id string, cfg Config, a Adapter) error {
	batch := r.set.Batch(id, cfg.Prefix())
	if err := a.RegisterTools(batch, r.filter); err != nil {
		return fmt.Errorf("register tools of %s: %w", id, err)
	}
	if err := a.RegisterResources(batch); err != nil {
		return fmt.Errorf("register resources of %s: %w", id, err)
	}
	if err := a.RegisterPrompts(batch); err != nil {
		return fmt.Errorf("register prompts of %s: %w", id, err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("publish %s: %w", id, err)
	}
	return nil
}

func (r *Registry) disconnect(ctx context.Context, id string, a Adapter) error {
	err := dbmcp.BoundedErr(ctx, r.timeouts.Disconnect, id+" disconnect", a.Disconnect)
	if err != nil && !errors.Is(err, dbmcp.ErrDisconnection) {
		err = dbmcp.NewDisconnectionError(id, err)
	}
	return err
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[id]
	if !ok || !s.ready {
		return nil, false
	}
	return s.Adapter, true
}

// All returns the registered adapters in registration order.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.slots[id].Entry)
	}
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// HealthSnapshot probes every registered adapter and returns one report per
// identity. Each probe is bounded by the health timeout; a probe that fails,
// panics, or times out is reported as {connected: false, error} without
// affecting the others.
func (r *Registry) HealthSnapshot(ctx context.Context) map[string]HealthReport {
	entries := r.All()
	reports := make([]HealthReport, len(entries))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			report, err := dbmcp.Bounded(ctx, r.timeouts.Health, e.ID+" health", e.Adapter.Health)
			if err != nil {
				report = HealthReport{Connected: false, Error: err.Error()}
			}
			reports[i] = report
			r.setUpIfRegistered(e, report.Connected)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]HealthReport, len(entries))
	for i, e := range entries {
		out[e.ID] = reports[i]
	}
	return out
}

// setUpIfRegistered updates the up gauge only while e is still the adapter
// registered under its identity, so a concurrent Remove leaves no series.
func (r *Registry) setUpIfRegistered(e Entry, up bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.slots[e.ID]; ok && s.ready && s.Adapter == e.Adapter {
		r.metrics.SetAdapterUp(e.ID, up)
	}
}

// Remove withdraws an adapter's tools, resources, and prompts, removes it
// from the registry, and disconnects it. The adapter is removed even when
// disconnect fails; the disconnection error is returned.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.slots[id]
	if !ok || !s.ready {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAdapter, id)
	}
	delete(r.slots, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	n := len(r.order)
	r.mu.Unlock()

	r.set.Withdraw(id)
	r.metrics.ForgetAdapter(id)
	r.metrics.SetAdapters(n)
	r.logger.Logf("removed adapter %s", id)
	return r.disconnect(ctx, id, s.Adapter)
}

// ShutdownAll disconnects every registered adapter, best-effort. Every
// adapter is attempted even when others fail or stall; failures are logged
// and returned joined. Adapters stay in the registry in disconnected state.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	entries := r.All()
	errs := make([]error, len(entries))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			if err := r.disconnect(ctx, e.ID, e.Adapter); err != nil {
				r.logger.Logf("error disconnecting adapter %s: %v", e.ID, err)
				errs[i] = err
				return nil
			}
			r.setUpIfRegistered(e, false)
			r.logger.Logf("disconnected adapter: %s", e.ID)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
