package filter

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jonwraymond/dbmcp"
)

// EnvVar is the environment variable consulted when no filter is configured.
const EnvVar = "DB_MCP_TOOL_FILTER"

// Source records where a filter expression came from.
type Source string

const (
	SourceConfig Source = "config"
	SourceEnv    Source = "env"
	SourceNone   Source = "none"
)

// Mode is the evaluation mode a filter compiles to.
type Mode string

const (
	// ModeAll enables every tool; the filter had no terms.
	ModeAll Mode = "all"
	// ModeAllow enables only tools matched by an allow term.
	ModeAllow Mode = "allow"
	// ModeDeny enables every tool not matched by a deny term.
	ModeDeny Mode = "deny"
)

// Term is a single parsed filter term.
type Term struct {
	// Raw is the term as written, including any negation prefix.
	Raw string

	// Name is the tool name or, for wildcard terms, the prefix.
	Name string

	// Deny is true for "-name" and "!name" terms.
	Deny bool

	// Wildcard is true when the term ended in "*".
	Wildcard bool
}

// Matches reports whether the term selects the tool name.
func (t Term) Matches(name string) bool {
	if t.Wildcard {
		return strings.HasPrefix(name, t.Name)
	}
	return name == t.Name
}

// Rules is a parsed filter expression.
type Rules struct {
	Allow []Term
	Deny  []Term
}

// Mode returns the mode the rules evaluate in. Any allow term selects
// allow-list mode regardless of deny terms.
func (r Rules) Mode() Mode {
	switch {
	case len(r.Allow) > 0:
		return ModeAllow
	case len(r.Deny) > 0:
		return ModeDeny
	default:
		return ModeAll
	}
}

// Enabled evaluates the rules against a tool name.
func (r Rules) Enabled(name string) bool {
	switch r.Mode() {
	case ModeAllow:
		for _, t := range r.Allow {
			if t.Matches(name) {
				return true
			}
		}
		return false
	case ModeDeny:
		for _, t := range r.Deny {
			if t.Matches(name) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ParseError reports a malformed filter term.
type ParseError struct {
	// Term is the offending term as written.
	Term string

	// Offset is the byte offset of the term in the expression.
	Offset int

	// Reason describes what is wrong with the term.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid tool filter term %q at offset %d: %s", e.Term, e.Offset, e.Reason)
}

// Is reports whether target is dbmcp.ErrConfiguration.
func (e *ParseError) Is(target error) bool {
	return target == dbmcp.ErrConfiguration
}

// Parse splits a filter expression into allow and deny terms.
// An empty or blank expression yields empty Rules.
func Parse(raw string) (Rules, error) {
	var rules Rules
	for _, tok := range tokenize(raw) {
		term, err := parseTerm(tok.text, tok.offset)
		if err != nil {
			return Rules{}, err
		}
		if term.Deny {
			rules.Deny = append(rules.Deny, term)
		} else {
			rules.Allow = append(rules.Allow, term)
		}
	}
	return rules, nil
}

type token struct {
	text   string
	offset int
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

func tokenize(raw string) []token {
	var out []token
	start := -1
	for i, r := range raw {
		if isSeparator(r) {
			if start >= 0 {
				out = append(out, token{text: raw[start:i], offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, token{text: raw[start:], offset: start})
	}
	return out
}

func parseTerm(text string, offset int) (Term, error) {
	term := Term{Raw: text}
	body := text
	if body[0] == '-' || body[0] == '!' {
		term.Deny = true
		body = body[1:]
	}
	if body == "" {
		return Term{}, &ParseError{Term: text, Offset: offset, Reason: "negation without a tool name"}
	}
	if body[0] == '-' || body[0] == '!' {
		return Term{}, &ParseError{Term: text, Offset: offset, Reason: "double negation"}
	}
	for i, r := range body {
		switch {
		case r == '*':
			if i != len(body)-1 {
				return Term{}, &ParseError{Term: text, Offset: offset, Reason: "wildcard must be the last character"}
			}
		case r == '_' || r == '.' || r == '-':
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		default:
			return Term{}, &ParseError{Term: text, Offset: offset, Reason: fmt.Sprintf("invalid character %q", r)}
		}
	}
	if strings.HasSuffix(body, "*") {
		term.Wildcard = true
		body = strings.TrimSuffix(body, "*")
	}
	term.Name = body
	return term, nil
}

// Config is a compiled, immutable tool filter.
//
// Contract:
//   - Concurrency: safe for concurrent use; nothing mutates a Config after Compile.
//   - A nil *Config enables every tool.
type Config struct {
	raw      string
	source   Source
	rules    Rules
	enabled  map[string]bool
	known    []string
	warnings []string
}

// Compile parses raw and resolves it against the known tool names.
// Names outside known are still evaluated by IsEnabled using the same rules.
func Compile(raw string, source Source, known []string) (*Config, error) {
	rules, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	c := &Config{
		raw:     strings.TrimSpace(raw),
		source:  source,
		rules:   rules,
		enabled: make(map[string]bool, len(known)),
	}
	for _, name := range known {
		if _, seen := c.enabled[name]; seen {
			continue
		}
		c.known = append(c.known, name)
		c.enabled[name] = rules.Enabled(name)
	}
	sort.Strings(c.known)

	if rules.Mode() == ModeAllow && len(rules.Deny) > 0 {
		ignored := make([]string, len(rules.Deny))
		for i, t := range rules.Deny {
			ignored[i] = t.Raw
		}
		c.warnings = append(c.warnings, fmt.Sprintf(
			"deny terms ignored in allow-list mode: %s", strings.Join(ignored, ", ")))
	}
	if len(c.known) > 0 {
		for _, t := range rules.Allow {
			if !c.matchesKnown(t) {
				c.warnings = append(c.warnings, fmt.Sprintf("allow term %q matches no known tool", t.Raw))
			}
		}
	}
	return c, nil
}

func (c *Config) matchesKnown(t Term) bool {
	for _, name := range c.known {
		if t.Matches(name) {
			return true
		}
	}
	return false
}

// Resolve builds the filter for a server: the explicit expression when it is
// non-blank, otherwise the EnvVar value from lookupEnv, otherwise no filter.
// lookupEnv is consulted once; a nil lookupEnv skips the environment.
func Resolve(explicit string, lookupEnv func(string) (string, bool), known []string) (*Config, error) {
	if strings.TrimSpace(explicit) != "" {
		return Compile(explicit, SourceConfig, known)
	}
	if lookupEnv != nil {
		if v, ok := lookupEnv(EnvVar); ok && strings.TrimSpace(v) != "" {
			return Compile(v, SourceEnv, known)
		}
	}
	return Compile("", SourceNone, known)
}

// IsEnabled reports whether the tool is admitted by the filter.
func (c *Config) IsEnabled(name string) bool {
	if c == nil {
		return true
	}
	if v, ok := c.enabled[name]; ok {
		return v
	}
	return c.rules.Enabled(name)
}

// Raw returns the trimmed source expression.
func (c *Config) Raw() string {
	if c == nil {
		return ""
	}
	return c.raw
}

// Source returns the provenance of the expression.
func (c *Config) Source() Source {
	if c == nil {
		return SourceNone
	}
	return c.source
}

// Mode returns the evaluation mode.
func (c *Config) Mode() Mode {
	if c == nil {
		return ModeAll
	}
	return c.rules.Mode()
}

// Rules returns a copy of the parsed terms.
func (c *Config) Rules() Rules {
	if c == nil {
		return Rules{}
	}
	return Rules{
		Allow: append([]Term(nil), c.rules.Allow...),
		Deny:  append([]Term(nil), c.rules.Deny...),
	}
}

// Known returns the sorted tool names the filter was resolved against.
func (c *Config) Known() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.known...)
}

// EnabledTools returns the sorted known tool names the filter admits.
func (c *Config) EnabledTools() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.known))
	for _, name := range c.known {
		if c.enabled[name] {
			out = append(out, name)
		}
	}
	return out
}

// EnabledCount returns the number of known tools the filter admits.
func (c *Config) EnabledCount() int {
	return len(c.EnabledTools())
}

// Warnings returns diagnostics produced during compilation.
func (c *Config) Warnings() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.warnings...)
}

// Summary renders a one-line description of the filter for logs.
func (c *Config) Summary() string {
	var b strings.Builder
	switch c.Mode() {
	case ModeAll:
		fmt.Fprintf(&b, "tool filter: none, all tools enabled (%d known)", len(c.Known()))
	default:
		fmt.Fprintf(&b, "tool filter [%s] %s-list %q: %d/%d known tools enabled",
			c.Source(), c.Mode(), c.Raw(), c.EnabledCount(), len(c.Known()))
	}
	for _, w := range c.Warnings() {
		b.WriteString("; warning: ")
		b.WriteString(w)
	}
	return b.String()
}
