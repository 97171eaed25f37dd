// Package filter parses tool filter expressions and evaluates them against
// tool names.
//
// A filter is a list of terms separated by commas and/or whitespace:
//
//	sqlite_read_query sqlite_list_tables   allow-list: only these two tools
//	-sqlite_write_query,!redis_set         deny-list: everything except these
//	mongodb_*                              wildcard: every tool with the prefix
//
// A bare term allows, a term prefixed with "-" or "!" denies, and a trailing
// "*" turns a term into a prefix match. When a filter mixes allow and deny
// terms the allow terms win: the filter runs in allow-list mode and the deny
// terms are reported as ignored in Summary and Warnings.
//
// Filters are compiled once, at server construction, into an immutable Config.
// Malformed terms fail compilation with a *ParseError, before any adapter is
// connected:
//
//	cfg, err := filter.Resolve(explicit, os.LookupEnv, knownTools)
//	if err != nil {
//	    return err // errors.Is(err, dbmcp.ErrConfiguration)
//	}
//	if cfg.IsEnabled("sqlite_read_query") {
//	    // register it
//	}
package filter
