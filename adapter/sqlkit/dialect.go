package sqlkit

// Dialect holds the catalog statements of one SQL backend. Each statement
// returns rows; DescribeTable takes the table name as its only parameter.
type Dialect struct {
	// Name is a display name, e.g. "SQLite".
	Name string

	// ListTables returns one row per table with the name in column "name".
	ListTables string

	// DescribeTable returns one row per column of the table.
	DescribeTable string

	// Version returns the server version in its first column.
	Version string

	// ReadKeywords extends the leading keywords accepted by read_query.
	ReadKeywords []string

	// ReadOnlyTx runs read_query inside a read-only transaction, so the
	// server rejects writes the statement guard cannot see.
	ReadOnlyTx bool
}

var (
	// SQLite reads the catalog from sqlite_master and pragma_table_info.
	SQLite = Dialect{
		Name:       "SQLite",
		ListTables: `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		DescribeTable: `SELECT name, type, "notnull" AS not_null, dflt_value AS default_value, pk AS primary_key ` +
			`FROM pragma_table_info(?) ORDER BY cid`,
		Version:      `SELECT sqlite_version()`,
		ReadKeywords: []string{"PRAGMA"},
	}

	// Postgres reads information_schema for the current schema.
	Postgres = Dialect{
		Name: "PostgreSQL",
		ListTables: `SELECT table_name AS name FROM information_schema.tables ` +
			`WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`,
		DescribeTable: `SELECT column_name AS name, data_type AS type, is_nullable AS nullable, column_default AS default_value ` +
			`FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`,
		Version:    `SHOW server_version`,
		ReadOnlyTx: true,
	}

	// MySQL reads information_schema for the selected database.
	MySQL = Dialect{
		Name: "MySQL",
		ListTables: `SELECT table_name AS name FROM information_schema.tables ` +
			`WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`,
		DescribeTable: `SELECT column_name AS name, column_type AS type, is_nullable AS nullable, column_default AS default_value, column_key AS ` + "`key`" + ` ` +
			`FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`,
		Version:      `SELECT VERSION()`,
		ReadKeywords: []string{"DESC"},
		ReadOnlyTx:   true,
	}

	// SQLServer reads INFORMATION_SCHEMA of the connected database.
	SQLServer = Dialect{
		Name: "SQL Server",
		ListTables: `SELECT TABLE_NAME AS name FROM INFORMATION_SCHEMA.TABLES ` +
			`WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`,
		DescribeTable: `SELECT COLUMN_NAME AS name, DATA_TYPE AS type, IS_NULLABLE AS nullable, COLUMN_DEFAULT AS default_value ` +
			`FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = @p1 ORDER BY ORDINAL_POSITION`,
		Version: `SELECT @@VERSION`,
	}

	// ClickHouse reads the system tables of the current database.
	ClickHouse = Dialect{
		Name:       "ClickHouse",
		ListTables: `SELECT name FROM system.tables WHERE database = currentDatabase() ORDER BY name`,
		DescribeTable: `SELECT name, type, default_expression AS default_value ` +
			`FROM system.columns WHERE database = currentDatabase() AND table = ? ORDER BY position`,
		Version:      `SELECT version()`,
		ReadKeywords: []string{"DESC"},
	}
)
