package sqlkit

import (
	"context"
	"fmt"
	"regexp"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// Tools returns the relational tool set for cfg.
func (a *Adapter) Tools(cfg adapter.Config) []toolset.Tool {
	cfg = cfg.WithType(a.Type())
	p := cfg.Prefix()
	limit := maxRows(cfg)
	name := a.dialect.Name

	queryProps := map[string]any{
		"query":  toolset.Prop("string", "A single SQL statement"),
		"params": map[string]any{"type": "array", "description": "Positional statement parameters"},
	}

	tools := []toolset.Tool{
		{
			Name:        p + "_read_query",
			Title:       "Read query (" + name + ")",
			Description: fmt.Sprintf("Run a read-only SQL statement against %s and return up to %d rows.", name, limit),
			InputSchema: toolset.ObjectSchema(queryProps, "query"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"sql", "read", a.Type()},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return a.readQuery(ctx, limit, args)
			},
		},
	}
	if !cfg.ReadOnly {
		tools = append(tools, toolset.Tool{
			Name:        p + "_write_query",
			Title:       "Write query (" + name + ")",
			Description: fmt.Sprintf("Run a single INSERT, UPDATE, DELETE, or DDL statement against %s.", name),
			InputSchema: toolset.ObjectSchema(queryProps, "query"),
			Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
			Tags:        []string{"sql", "write", a.Type()},
			Handler:     a.writeQuery,
		})
	}
	tools = append(tools,
		toolset.Tool{
			Name:        p + "_list_tables",
			Title:       "List tables (" + name + ")",
			Description: fmt.Sprintf("List the tables in the %s database.", name),
			InputSchema: toolset.ObjectSchema(nil),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"sql", "schema", a.Type()},
			Handler:     a.listTablesTool,
		},
		toolset.Tool{
			Name:        p + "_describe_table",
			Title:       "Describe table (" + name + ")",
			Description: fmt.Sprintf("List the columns of a %s table.", name),
			InputSchema: toolset.ObjectSchema(map[string]any{
				"table": toolset.Prop("string", "Table name"),
			}, "table"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"sql", "schema", a.Type()},
			Handler:     a.describeTable,
		},
	)
	return tools
}

func boolPtr(b bool) *bool { return &b }

func (a *Adapter) readQuery(ctx context.Context, limit int, args map[string]any) (any, error) {
	query, params, err := queryArgs(args)
	if err != nil {
		return nil, err
	}
	stmt, err := ParseStatement(query)
	if err != nil {
		return nil, err
	}
	if !stmt.IsRead(a.dialect.ReadKeywords...) {
		return nil, ErrNotReadOnly
	}
	q, err := a.querier()
	if err != nil {
		return nil, err
	}
	if a.dialect.ReadOnlyTx {
		return q.QueryReadOnly(ctx, limit, stmt.Text, params...)
	}
	return q.Query(ctx, limit, stmt.Text, params...)
}

func (a *Adapter) writeQuery(ctx context.Context, args map[string]any) (any, error) {
	query, params, err := queryArgs(args)
	if err != nil {
		return nil, err
	}
	stmt, err := ParseStatement(query)
	if err != nil {
		return nil, err
	}
	if stmt.IsRead(a.dialect.ReadKeywords...) {
		return nil, ErrReadStatement
	}
	q, err := a.querier()
	if err != nil {
		return nil, err
	}
	return q.Exec(ctx, stmt.Text, params...)
}

func (a *Adapter) listTablesTool(ctx context.Context, _ map[string]any) (any, error) {
	q, err := a.querier()
	if err != nil {
		return nil, err
	}
	tables, err := a.listTables(ctx, q)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tables": tables, "count": len(tables)}, nil
}

func (a *Adapter) describeTable(ctx context.Context, args map[string]any) (any, error) {
	table, err := toolset.String(args, "table")
	if err != nil {
		return nil, err
	}
	if !identifier.MatchString(table) {
		return nil, &toolset.ArgError{Name: "table", Reason: "must be a plain table identifier"}
	}
	q, err := a.querier()
	if err != nil {
		return nil, err
	}
	res, err := q.Query(ctx, 0, a.dialect.DescribeTable, table)
	if err != nil {
		return nil, err
	}
	if res.RowCount == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}
	return map[string]any{"table": table, "columns": res.Rows}, nil
}

func queryArgs(args map[string]any) (string, []any, error) {
	query, err := toolset.String(args, "query")
	if err != nil {
		return "", nil, err
	}
	params, err := toolset.Slice(args, "params")
	if err != nil {
		return "", nil, err
	}
	return query, params, nil
}
