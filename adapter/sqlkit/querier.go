package sqlkit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Result is the JSON shape of a query result.
type Result struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"rowCount"`
	Truncated bool             `json:"truncated,omitempty"`
}

// ExecResult is the JSON shape of a modifying statement's outcome.
type ExecResult struct {
	RowsAffected int64  `json:"rowsAffected"`
	LastInsertID *int64 `json:"lastInsertId,omitempty"`
}

// Querier runs statements against a relational backend.
//
// Contract:
// - Concurrency: safe for concurrent use; implementations wrap pooled drivers.
// - Context: every method honors cancellation.
// - Ownership: Close releases the pool; the Querier is unusable afterwards.
type Querier interface {
	// Query runs a statement and collects at most maxRows rows.
	// maxRows <= 0 collects every row.
	Query(ctx context.Context, maxRows int, query string, args ...any) (Result, error)
	// QueryReadOnly is Query inside a read-only transaction that is
	// always rolled back.
	QueryReadOnly(ctx context.Context, maxRows int, query string, args ...any) (Result, error)
	Exec(ctx context.Context, query string, args ...any) (ExecResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// DB is a Querier over database/sql.
type DB struct {
	db *sql.DB
}

// NewDB wraps an open *sql.DB.
func NewDB(db *sql.DB) *DB { return &DB{db: db} }

// Query implements Querier.
func (d *DB) Query(ctx context.Context, maxRows int, query string, args ...any) (Result, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	return collectRows(rows, maxRows)
}

// QueryReadOnly implements Querier.
func (d *DB) QueryReadOnly(ctx context.Context, maxRows int, query string, args ...any) (Result, error) {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Result{}, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	return collectRows(rows, maxRows)
}

func collectRows(rows *sql.Rows, maxRows int) (Result, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}
	res := Result{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		if maxRows > 0 && len(res.Rows) == maxRows {
			res.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		res.Rows = append(res.Rows, rowMap(cols, values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	res.RowCount = len(res.Rows)
	return res, nil
}

// Exec implements Querier.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	r, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ExecResult{}, err
	}
	var out ExecResult
	if n, err := r.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := r.LastInsertId(); err == nil && id > 0 {
		out.LastInsertID = &id
	}
	return out, nil
}

// Ping implements Querier.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Close implements Querier.
func (d *DB) Close() error { return d.db.Close() }

// Pool is a Querier over a pgx connection pool.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool wraps an open pool.
func NewPool(pool *pgxpool.Pool) *Pool { return &Pool{pool: pool} }

// Query implements Querier.
func (p *Pool) Query(ctx context.Context, maxRows int, query string, args ...any) (Result, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	return collectPgxRows(rows, maxRows)
}

// QueryReadOnly implements Querier.
func (p *Pool) QueryReadOnly(ctx context.Context, maxRows int, query string, args ...any) (Result, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return Result{}, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	return collectPgxRows(rows, maxRows)
}

func collectPgxRows(rows pgx.Rows, maxRows int) (Result, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	res := Result{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		if maxRows > 0 && len(res.Rows) == maxRows {
			res.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		res.Rows = append(res.Rows, rowMap(cols, values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	res.RowCount = len(res.Rows)
	return res, nil
}

// Exec implements Querier.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return ExecResult{}, err
	}
	return ExecResult{RowsAffected: tag.RowsAffected()}, nil
}

// Ping implements Querier.
func (p *Pool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// Close implements Querier.
func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}

func rowMap(cols []string, values []any) map[string]any {
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		row[c] = normalize(values[i])
	}
	return row
}

// normalize converts driver values into JSON-friendly ones.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
