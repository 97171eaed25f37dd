package adapter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/dbmcp"
)

// Factory creates an unconnected adapter.
type Factory func() Adapter

// Families maps backend type tags to factories.
type Families struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewFamilies creates an empty set of families.
func NewFamilies() *Families {
	return &Families{factories: make(map[string]Factory)}
}

// Register adds a factory for a backend type, replacing any earlier one.
func (f *Families) Register(typ string, factory Factory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if typ == "" || factory == nil {
		return
	}
	f.factories[typ] = factory
}

// New creates an adapter for typ. Unknown types fail with
// dbmcp.ErrConfiguration.
func (f *Families) New(typ string) (Adapter, error) {
	f.mu.RLock()
	factory, ok := f.factories[typ]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported database type %q (supported: %v)",
			dbmcp.ErrConfiguration, typ, f.Types())
	}
	return factory(), nil
}

// Types returns the registered type tags, sorted.
func (f *Families) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.factories))
	for typ := range f.factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
