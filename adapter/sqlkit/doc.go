// Package sqlkit implements the relational adapter family once, over a
// Querier abstraction, so that each SQL backend only supplies a driver
// opener and a Dialect.
//
// A relational adapter with tool prefix p exposes:
//
//	p_read_query      run a single read-only statement (SELECT, WITH, SHOW, ...)
//	p_write_query     run a single modifying statement (omitted when read-only)
//	p_list_tables     list tables in the connected database
//	p_describe_table  list the columns of one table
//
// plus a schema resource at dbmcp://p/<database>/schema and a p_explore
// prompt. Results are returned as {columns, rows, rowCount, truncated}, with
// at most maxRows rows (Options["maxRows"], default 1000).
//
// Querier has two implementations: DB over database/sql, used by sqlite,
// mysql, sqlserver, and clickhouse, and Pool over pgx's pgxpool, used by
// postgresql.
package sqlkit
