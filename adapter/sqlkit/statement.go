package sqlkit

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrNotReadOnly is returned by read_query for modifying statements.
	ErrNotReadOnly = errors.New("statement is not read-only; use the write_query tool")

	// ErrReadStatement is returned by write_query for read-only statements.
	ErrReadStatement = errors.New("statement is read-only; use the read_query tool")

	// ErrMultipleStatements is returned when a query holds more than one statement.
	ErrMultipleStatements = errors.New("only a single statement is allowed")

	// ErrEmptyStatement is returned for blank queries.
	ErrEmptyStatement = errors.New("statement is empty")
)

var readKeywords = []string{"SELECT", "WITH", "SHOW", "EXPLAIN", "DESCRIBE", "VALUES"}

// modifyingWords mark a SELECT, WITH, EXPLAIN or VALUES statement as a write
// when they appear as bare words. INTO covers SELECT ... INTO and
// EXPLAIN ANALYZE covers the statement it executes.
var modifyingWords = []string{"INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "DROP", "ALTER", "CREATE", "TRUNCATE", "INTO"}

// scannedKeywords are the read keywords whose body may hide a write.
var scannedKeywords = []string{"SELECT", "WITH", "EXPLAIN", "VALUES"}

// pragmaArgQueries are SQLite pragmas that take an argument and only report.
var pragmaArgQueries = []string{
	"table_info", "table_xinfo", "table_list", "index_list", "index_info", "index_xinfo",
	"foreign_key_list", "foreign_key_check", "integrity_check", "quick_check",
}

// pragmaActions are SQLite pragmas that change state even without a value.
var pragmaActions = []string{"optimize", "wal_checkpoint", "shrink_memory", "incremental_vacuum"}

// Statement is a query reduced to what the tool guards inspect.
type Statement struct {
	// Text is the statement with leading comments and a trailing
	// semicolon removed.
	Text string

	// Keyword is the upper-cased first word.
	Keyword string
}

// ParseStatement strips comments around a single statement and extracts its
// leading keyword. Semicolons inside string literals are allowed.
func ParseStatement(query string) (Statement, error) {
	text := strings.TrimSpace(stripLeadingComments(query))
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	if text == "" {
		return Statement{}, ErrEmptyStatement
	}
	if hasStatementBreak(text) {
		return Statement{}, ErrMultipleStatements
	}
	word := strings.TrimLeft(text, "(")
	end := strings.IndexFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
	if end >= 0 {
		word = word[:end]
	}
	return Statement{Text: text, Keyword: strings.ToUpper(word)}, nil
}

// IsRead reports whether the statement only reads data. extra adds
// dialect-specific read keywords. A SELECT, WITH, EXPLAIN or VALUES statement
// whose body contains a modifying keyword is not a read, and neither is a
// PRAGMA that assigns a value or performs an action.
func (s Statement) IsRead(extra ...string) bool {
	if !containsFold(readKeywords, s.Keyword) && !containsFold(extra, s.Keyword) {
		return false
	}
	switch {
	case s.Keyword == "PRAGMA":
		return pragmaIsRead(s.Text)
	case containsFold(scannedKeywords, s.Keyword):
		for _, w := range wordsOutsideLiterals(s.Text) {
			if containsFold(modifyingWords, w) {
				return false
			}
		}
	}
	return true
}

// pragmaIsRead accepts "PRAGMA name", and "PRAGMA name(arg)" for reporting
// pragmas. Assignments and action pragmas are writes.
func pragmaIsRead(text string) bool {
	rest := strings.TrimSpace(strings.TrimLeft(text, "(")[len("PRAGMA"):])
	if strings.ContainsRune(rest, '=') {
		return false
	}
	name, args, hasArgs := strings.Cut(rest, "(")
	name = strings.TrimSpace(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		return false
	}
	if hasArgs {
		return containsFold(pragmaArgQueries, name) && args != ""
	}
	return !containsFold(pragmaActions, name)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func stripLeadingComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			return s
		}
	}
}

// hasStatementBreak reports a semicolon outside quotes.
func hasStatementBreak(s string) bool {
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == ';':
			return true
		}
	}
	return false
}

// wordsOutsideLiterals returns the upper-cased bare words of s, skipping
// quoted strings, identifiers, and function names such as REPLACE(...).
func wordsOutsideLiterals(s string) []string {
	var (
		words []string
		cur   strings.Builder
		quote rune
	)
	runes := []rune(s)
	flush := func(next int) {
		if cur.Len() == 0 {
			return
		}
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next >= len(runes) || runes[next] != '(' {
			words = append(words, strings.ToUpper(cur.String()))
		}
		cur.Reset()
	}
	for i, r := range runes {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			flush(i)
			quote = r
		case unicode.IsLetter(r) || r == '_':
			cur.WriteRune(r)
		default:
			flush(i)
		}
	}
	flush(len(runes))
	return words
}
