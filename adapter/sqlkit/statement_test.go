package sqlkit

import (
	"errors"
	"testing"
)

func TestParseStatement(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		keyword string
		read    bool
		err     error
	}{
		{"select", "SELECT * FROM users", "SELECT", true, nil},
		{"lower", "select 1;", "SELECT", true, nil},
		{"comment", "-- list users\nSELECT * FROM users", "SELECT", true, nil},
		{"block comment", "/* hi */ WITH x AS (SELECT 1) SELECT * FROM x", "WITH", true, nil},
		{"paren", "(SELECT 1) UNION (SELECT 2)", "SELECT", true, nil},
		{"explain", "EXPLAIN SELECT 1", "EXPLAIN", true, nil},
		{"insert", "INSERT INTO users(name) VALUES ('a')", "INSERT", false, nil},
		{"cte write", "WITH gone AS (DELETE FROM users RETURNING *) SELECT * FROM gone", "WITH", false, nil},
		{"cte literal", "WITH x AS (SELECT 'delete me' AS s) SELECT * FROM x", "WITH", true, nil},
		{"semicolon in literal", "SELECT ';' AS s", "SELECT", true, nil},
		{"explain analyze delete", "EXPLAIN ANALYZE DELETE FROM users", "EXPLAIN", false, nil},
		{"explain analyze select", "EXPLAIN ANALYZE SELECT * FROM users", "EXPLAIN", true, nil},
		{"select into", "SELECT * INTO users_copy FROM users", "SELECT", false, nil},
		{"select into outfile", "SELECT name FROM users INTO OUTFILE '/tmp/u'", "SELECT", false, nil},
		{"select for update", "SELECT * FROM users FOR UPDATE", "SELECT", false, nil},
		{"replace function", "SELECT REPLACE(name, 'a', 'b') FROM users", "SELECT", true, nil},
		{"quoted into", `SELECT "into" FROM users`, "SELECT", true, nil},
		{"two statements", "SELECT 1; DROP TABLE users", "", false, ErrMultipleStatements},
		{"empty", "  ;", "", false, ErrEmptyStatement},
		{"only comment", "-- nothing", "", false, ErrEmptyStatement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := ParseStatement(tt.query)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("ParseStatement() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatement() error = %v", err)
			}
			if stmt.Keyword != tt.keyword {
				t.Errorf("Keyword = %q, want %q", stmt.Keyword, tt.keyword)
			}
			if got := stmt.IsRead(); got != tt.read {
				t.Errorf("IsRead() = %v, want %v", got, tt.read)
			}
		})
	}
}

func TestStatement_Pragma(t *testing.T) {
	tests := []struct {
		query string
		read  bool
	}{
		{"PRAGMA user_version", true},
		{"pragma main.table_info(users)", true},
		{"PRAGMA index_list('users')", true},
		{"PRAGMA user_version = 7", false},
		{"PRAGMA user_version=7", false},
		{"PRAGMA user_version(7)", false},
		{"PRAGMA main.journal_mode = DELETE", false},
		{"PRAGMA optimize", false},
		{"PRAGMA wal_checkpoint(TRUNCATE)", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			stmt, err := ParseStatement(tt.query)
			if err != nil {
				t.Fatalf("ParseStatement() error = %v", err)
			}
			if got := stmt.IsRead(SQLite.ReadKeywords...); got != tt.read {
				t.Errorf("IsRead() = %v, want %v", got, tt.read)
			}
		})
	}
}

func TestStatement_ExtraReadKeywords(t *testing.T) {
	stmt, err := ParseStatement("PRAGMA table_info(users)")
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}
	if stmt.IsRead() {
		t.Error("PRAGMA should not be a read without the dialect keyword")
	}
	if !stmt.IsRead(SQLite.ReadKeywords...) {
		t.Error("PRAGMA should be a read for SQLite")
	}
}
