package sqlkit

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

// DefaultMaxRows caps the rows a query tool returns.
const DefaultMaxRows = 1000

// Opener opens a Querier for cfg. It need not verify connectivity; the
// adapter pings after opening.
type Opener func(ctx context.Context, cfg adapter.Config) (Querier, error)

// Adapter is a relational adapter.Adapter over a Querier.
type Adapter struct {
	*adapter.Base
	dialect Dialect
	open    Opener

	mu sync.RWMutex
	q  Querier
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a relational adapter.
func New(info adapter.Info, dialect Dialect, open Opener) *Adapter {
	if info.Kind == "" {
		info.Kind = adapter.KindRelational
	}
	return &Adapter{
		Base:    adapter.NewBase(info),
		dialect: dialect,
		open:    open,
	}
}

// Dialect returns the adapter's dialect.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// Connect opens and pings the backend.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	if err := a.BeginConnect(cfg); err != nil {
		return err
	}
	q, err := a.open(ctx, cfg)
	if err == nil {
		if err = q.Ping(ctx); err != nil {
			_ = q.Close()
		}
	}
	if err != nil {
		return a.EndConnect(err)
	}

	a.mu.Lock()
	a.q = q
	a.mu.Unlock()
	return a.EndConnect(nil)
}

// Disconnect closes the backend. It is a no-op when never connected.
func (a *Adapter) Disconnect(_ context.Context) error {
	if !a.BeginDisconnect() {
		return nil
	}
	a.mu.Lock()
	q := a.q
	a.q = nil
	a.mu.Unlock()

	var err error
	if q != nil {
		err = q.Close()
	}
	return a.EndDisconnect(err)
}

// Health pings the backend and reads its version.
func (a *Adapter) Health(ctx context.Context) (adapter.HealthReport, error) {
	return a.Probe(ctx, func(ctx context.Context) (adapter.HealthReport, error) {
		q, err := a.querier()
		if err != nil {
			return adapter.HealthReport{}, err
		}
		if err := q.Ping(ctx); err != nil {
			return adapter.HealthReport{}, err
		}
		report := adapter.HealthReport{Details: map[string]any{"dialect": a.dialect.Name}}
		if a.dialect.Version != "" {
			if res, err := q.Query(ctx, 1, a.dialect.Version); err == nil && len(res.Rows) == 1 && len(res.Columns) > 0 {
				report.Version = fmt.Sprint(res.Rows[0][res.Columns[0]])
			}
		}
		return report, nil
	}), nil
}

// querier returns the live Querier or dbmcp.ErrNotConnected.
func (a *Adapter) querier() (Querier, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.q == nil {
		return nil, fmt.Errorf("%s: %w", a.Type(), dbmcp.ErrNotConnected)
	}
	return a.q, nil
}

// RegisterTools implements adapter.Adapter.
func (a *Adapter) RegisterTools(r toolset.Registrar, filter adapter.ToolFilter) error {
	_, err := adapter.RegisterFiltered(r, filter, a.Tools(a.Config()))
	return err
}

// RegisterResources registers the schema resource.
func (a *Adapter) RegisterResources(r toolset.Registrar) error {
	cfg := a.Config()
	return r.AddResource(toolset.Resource{
		URI:         fmt.Sprintf("dbmcp://%s/%s/schema", cfg.Prefix(), cfg.DatabaseName()),
		Name:        cfg.Prefix() + " schema",
		Description: fmt.Sprintf("Tables and columns of the %s database %s.", a.dialect.Name, cfg.DatabaseName()),
		Read:        a.readSchema,
	})
}

// RegisterPrompts registers the exploration prompt.
func (a *Adapter) RegisterPrompts(r toolset.Registrar) error {
	cfg := a.Config()
	p := cfg.Prefix()
	return r.AddPrompt(toolset.Prompt{
		Name:        p + "_explore",
		Description: fmt.Sprintf("Guide for exploring the %s database.", a.dialect.Name),
		Arguments: []toolset.PromptArgument{
			{Name: "table", Description: "Table to focus on"},
		},
		Render: func(_ context.Context, args map[string]string) (string, error) {
			if t := args["table"]; t != "" {
				return fmt.Sprintf("Explore the %s table %q. Call %s_describe_table with table=%q to see its columns, "+
					"then use %s_read_query to sample a few rows with a LIMIT clause.", a.dialect.Name, t, p, t, p), nil
			}
			return fmt.Sprintf("Explore the %s database %s. Start with %s_list_tables, inspect interesting tables "+
				"with %s_describe_table, then query them with %s_read_query.", a.dialect.Name, cfg.DatabaseName(), p, p, p), nil
		},
	})
}

const maxSchemaTables = 100

func (a *Adapter) readSchema(ctx context.Context) (any, error) {
	q, err := a.querier()
	if err != nil {
		return nil, err
	}
	tables, err := a.listTables(ctx, q)
	if err != nil {
		return nil, err
	}
	type tableSchema struct {
		Name    string           `json:"name"`
		Columns []map[string]any `json:"columns"`
	}
	out := struct {
		Database  string        `json:"database"`
		Dialect   string        `json:"dialect"`
		Tables    []tableSchema `json:"tables"`
		Truncated bool          `json:"truncated,omitempty"`
	}{Database: a.Config().DatabaseName(), Dialect: a.dialect.Name, Tables: []tableSchema{}}

	if len(tables) > maxSchemaTables {
		tables = tables[:maxSchemaTables]
		out.Truncated = true
	}
	for _, t := range tables {
		res, err := q.Query(ctx, 0, a.dialect.DescribeTable, t)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", t, err)
		}
		out.Tables = append(out.Tables, tableSchema{Name: t, Columns: res.Rows})
	}
	return out, nil
}

func (a *Adapter) listTables(ctx context.Context, q Querier) ([]string, error) {
	res, err := q.Query(ctx, 0, a.dialect.ListTables)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, ok := row["name"]
		if !ok && len(res.Columns) > 0 {
			name = row[res.Columns[0]]
		}
		tables = append(tables, fmt.Sprint(name))
	}
	return tables, nil
}

func maxRows(cfg adapter.Config) int {
	if n, err := strconv.Atoi(cfg.Option("maxRows", "")); err == nil && n > 0 {
		return n
	}
	return DefaultMaxRows
}
