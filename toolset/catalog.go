package toolset

import (
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Catalog indexes published tools for search. Tool IDs have the form
// "namespace:name".
type Catalog struct {
	idx index.Index

	mu      sync.RWMutex
	entries map[string]index.Summary
}

// NewCatalog creates an empty catalog ranked with BM25.
func NewCatalog() *Catalog {
	return &Catalog{
		idx: index.NewInMemoryIndex(index.IndexOptions{
			Searcher: search.NewBM25Searcher(search.BM25Config{}),
		}),
		entries: make(map[string]index.Summary),
	}
}

func (c *Catalog) add(owner, namespace string, t Tool) error {
	tool := model.Tool{
		Tool: mcp.Tool{
			Name:        t.Name,
			Title:       t.Title,
			Description: t.Description,
			InputSchema: t.InputSchema,
			Annotations: t.Annotations,
		},
		Namespace: namespace,
		Tags:      model.NormalizeTags(t.Tags),
	}
	if err := c.idx.RegisterTool(tool, model.NewLocalBackend(owner)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id := namespace + ":" + t.Name
	c.entries[id] = index.Summary{
		ID:               id,
		Name:             t.Name,
		Namespace:        namespace,
		ShortDescription: shortDescription(t.Description),
		Tags:             tool.Tags,
	}
	return nil
}

func (c *Catalog) remove(owner, namespace, name string) {
	id := namespace + ":" + name
	_ = c.idx.UnregisterBackend(id, model.BackendKindLocal, owner)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Search ranks indexed tools against query. A blank query lists every tool
// sorted by ID. A limit of zero or less means no limit.
func (c *Catalog) Search(query string, limit int) ([]index.Summary, error) {
	if strings.TrimSpace(query) != "" {
		n := limit
		if n <= 0 {
			n = c.Len()
		}
		return c.idx.Search(query, n)
	}

	c.mu.RLock()
	out := make([]index.Summary, 0, len(c.entries))
	for _, s := range c.entries {
		out = append(out, s)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Namespaces returns the namespaces with at least one indexed tool.
func (c *Catalog) Namespaces() ([]string, error) {
	ns, err := c.idx.ListNamespaces()
	if err != nil {
		return nil, err
	}
	sort.Strings(ns)
	return ns, nil
}

// Len returns the number of indexed tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func shortDescription(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".\n"); i >= 0 {
		s = s[:i]
	}
	const maxLen = 120
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
