package toolset

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/metrics"
)

// ErrCommitted is returned when a Batch is used after Commit.
var ErrCommitted = errors.New("batch already committed")

// Options configures a Set.
type Options struct {
	// Timeout bounds each tool call, resource read, and prompt render.
	// Zero disables the bound.
	Timeout time.Duration

	// Logger receives dispatch and publication logs. Nil discards them.
	Logger logging.Logger

	// Metrics receives tool call counters and durations. Nil disables them.
	Metrics *metrics.Metrics
}

// Set tracks what each owner has published to an MCP server and enforces
// global uniqueness of tool names, resource URIs, and prompt names.
//
// Contract:
// - Concurrency: safe for concurrent use. Commit and Withdraw are serialized.
// - Ownership: the Set does not own the server; it only adds and removes
//   the descriptors it published.
type Set struct {
	server  *mcp.Server
	timeout time.Duration
	logger  logging.Logger
	metrics *metrics.Metrics
	catalog *Catalog

	mu        sync.Mutex
	tools     map[string]string
	resources map[string]string
	prompts   map[string]string
	owners    map[string]*publication
}

type publication struct {
	namespace string
	tools     []string
	resources []string
	prompts   []string
}

// New creates a Set publishing to server.
func New(server *mcp.Server, opts Options) *Set {
	return &Set{
		server:    server,
		timeout:   opts.Timeout,
		logger:    logging.OrNop(opts.Logger),
		metrics:   opts.Metrics,
		catalog:   NewCatalog(),
		tools:     make(map[string]string),
		resources: make(map[string]string),
		prompts:   make(map[string]string),
		owners:    make(map[string]*publication),
	}
}

// Server returns the MCP server the Set publishes to.
func (s *Set) Server() *mcp.Server { return s.server }

// Catalog returns the searchable index of published tools.
func (s *Set) Catalog() *Catalog { return s.catalog }

// Batch starts staging descriptors for owner. namespace groups the owner's
// tools in the catalog.
func (s *Set) Batch(owner, namespace string) *Batch {
	if namespace == "" {
		namespace = owner
	}
	return &Batch{
		set:       s,
		owner:     owner,
		namespace: namespace,
		staged:    make(map[string]struct{}),
	}
}

// ToolNames returns the sorted names of every published tool.
func (s *Set) ToolNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tools))
	for name := range s.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ToolCount returns the number of published tools.
func (s *Set) ToolCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tools)
}

// Owner returns the owner of a published tool.
func (s *Set) Owner(tool string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.tools[tool]
	return owner, ok
}

// OwnedTools returns the sorted tool names published by owner.
func (s *Set) OwnedTools(owner string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owners[owner]
	if !ok {
		return nil
	}
	out := append([]string(nil), p.tools...)
	sort.Strings(out)
	return out
}

// Withdraw removes everything owner published from the server and the
// catalog and returns the number of tools removed.
func (s *Set) Withdraw(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.owners[owner]
	if !ok {
		return 0
	}
	delete(s.owners, owner)

	for _, name := range p.tools {
		delete(s.tools, name)
		s.catalog.remove(owner, p.namespace, name)
	}
	for _, uri := range p.resources {
		delete(s.resources, uri)
	}
	for _, name := range p.prompts {
		delete(s.prompts, name)
	}
	if len(p.tools) > 0 {
		s.server.RemoveTools(p.tools...)
	}
	if len(p.resources) > 0 {
		s.server.RemoveResources(p.resources...)
	}
	if len(p.prompts) > 0 {
		s.server.RemovePrompts(p.prompts...)
	}
	s.logger.Logf("withdrew %d tools, %d resources, %d prompts of %s",
		len(p.tools), len(p.resources), len(p.prompts), owner)
	return len(p.tools)
}

// conflictLocked checks a name against everything published.
func (s *Set) conflictLocked(kind, name string) error {
	var owners map[string]string
	switch kind {
	case kindTool:
		owners = s.tools
	case kindResource:
		owners = s.resources
	case kindPrompt:
		owners = s.prompts
	}
	if owner, taken := owners[name]; taken {
		return &dbmcp.ConflictError{Kind: kind, Name: name, Owner: owner}
	}
	return nil
}

const (
	kindTool     = "tool"
	kindResource = "resource"
	kindPrompt   = "prompt"
)

// Batch stages one owner's descriptors until Commit.
// A Batch implements Registrar.
type Batch struct {
	set       *Set
	owner     string
	namespace string

	tools     []Tool
	resources []Resource
	prompts   []Prompt
	staged    map[string]struct{}
	committed bool
}

var _ Registrar = (*Batch)(nil)

// Owner returns the owner the batch publishes for.
func (b *Batch) Owner() string { return b.owner }

// Len returns the number of staged tools.
func (b *Batch) Len() int { return len(b.tools) }

func (b *Batch) stage(kind, name string) error {
	if b.committed {
		return ErrCommitted
	}
	key := kind + "\x00" + name
	if _, dup := b.staged[key]; dup {
		return &dbmcp.ConflictError{Kind: kind, Name: name, Owner: b.owner}
	}
	b.set.mu.Lock()
	err := b.set.conflictLocked(kind, name)
	b.set.mu.Unlock()
	if err != nil {
		return err
	}
	b.staged[key] = struct{}{}
	return nil
}

// AddTool stages a tool. A nil InputSchema becomes an empty object schema.
func (b *Batch) AddTool(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", t.Name)
	}
	if t.InputSchema == nil {
		t.InputSchema = ObjectSchema(nil)
	}
	if typ, _ := t.InputSchema["type"].(string); typ != "object" {
		return fmt.Errorf("tool %s: input schema must have type object", t.Name)
	}
	if err := b.stage(kindTool, t.Name); err != nil {
		return err
	}
	b.tools = append(b.tools, t)
	return nil
}

// AddResource stages a resource. MIMEType defaults to application/json.
func (b *Batch) AddResource(r Resource) error {
	if r.URI == "" {
		return fmt.Errorf("resource URI is required")
	}
	if r.Read == nil {
		return fmt.Errorf("resource %s: read function is required", r.URI)
	}
	if r.MIMEType == "" {
		r.MIMEType = "application/json"
	}
	if r.Name == "" {
		r.Name = r.URI
	}
	if err := b.stage(kindResource, r.URI); err != nil {
		return err
	}
	b.resources = append(b.resources, r)
	return nil
}

// AddPrompt stages a prompt.
func (b *Batch) AddPrompt(p Prompt) error {
	if p.Name == "" {
		return fmt.Errorf("prompt name is required")
	}
	if p.Render == nil {
		return fmt.Errorf("prompt %s: render function is required", p.Name)
	}
	if err := b.stage(kindPrompt, p.Name); err != nil {
		return err
	}
	b.prompts = append(b.prompts, p)
	return nil
}

// Commit publishes every staged descriptor. Names are re-checked under the
// Set lock; on any conflict nothing is published.
func (b *Batch) Commit() error {
	if b.committed {
		return ErrCommitted
	}
	s := b.set
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range b.tools {
		if err := s.conflictLocked(kindTool, t.Name); err != nil {
			return err
		}
	}
	for _, r := range b.resources {
		if err := s.conflictLocked(kindResource, r.URI); err != nil {
			return err
		}
	}
	for _, p := range b.prompts {
		if err := s.conflictLocked(kindPrompt, p.Name); err != nil {
			return err
		}
	}
	b.committed = true

	pub, ok := s.owners[b.owner]
	if !ok {
		pub = &publication{namespace: b.namespace}
		s.owners[b.owner] = pub
	}
	for _, t := range b.tools {
		s.server.AddTool(t.mcpTool(), s.dispatch(t))
		s.tools[t.Name] = b.owner
		pub.tools = append(pub.tools, t.Name)
		if err := s.catalog.add(b.owner, pub.namespace, t); err != nil {
			s.logger.Logf("catalog: index %s: %v", t.Name, err)
		}
	}
	for _, r := range b.resources {
		s.server.AddResource(r.mcpResource(), s.readResource(r))
		s.resources[r.URI] = b.owner
		pub.resources = append(pub.resources, r.URI)
	}
	for _, p := range b.prompts {
		s.server.AddPrompt(p.mcpPrompt(), s.renderPrompt(p))
		s.prompts[p.Name] = b.owner
		pub.prompts = append(pub.prompts, p.Name)
	}
	s.logger.Logf("published %d tools, %d resources, %d prompts for %s",
		len(b.tools), len(b.resources), len(b.prompts), b.owner)
	return nil
}

func (t Tool) mcpTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		InputSchema: t.InputSchema,
		Annotations: t.Annotations,
	}
}

func (r Resource) mcpResource() *mcp.Resource {
	return &mcp.Resource{
		URI:         r.URI,
		Name:        r.Name,
		Description: r.Description,
		MIMEType:    r.MIMEType,
	}
}

func (p Prompt) mcpPrompt() *mcp.Prompt {
	args := make([]*mcp.PromptArgument, 0, len(p.Arguments))
	for _, a := range p.Arguments {
		args = append(args, &mcp.PromptArgument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
	}
	return &mcp.Prompt{
		Name:        p.Name,
		Description: p.Description,
		Arguments:   args,
	}
}
