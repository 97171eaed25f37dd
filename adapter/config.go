package adapter

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/jonwraymond/dbmcp"
)

// DefaultDatabase is the logical database name used when none is configured.
const DefaultDatabase = "default"

// Config describes one backend connection. It is passed by value; adapters
// never mutate it.
type Config struct {
	// Type is the backend type tag, e.g. "sqlite" or "postgresql".
	Type string `yaml:"type" json:"type"`

	// ConnectionString is a driver-specific DSN or URI. When set it takes
	// precedence over the structured fields below.
	ConnectionString string `yaml:"connectionString,omitempty" json:"connectionString,omitempty"`

	Host     string            `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int               `yaml:"port,omitempty" json:"port,omitempty"`
	Username string            `yaml:"username,omitempty" json:"username,omitempty"`
	Password string            `yaml:"password,omitempty" json:"-"`
	Database string            `yaml:"database,omitempty" json:"database,omitempty"`
	Options  map[string]string `yaml:"options,omitempty" json:"options,omitempty"`

	// ToolPrefix replaces the type tag at the front of every tool, resource,
	// and prompt name. Two adapters of the same type need distinct prefixes.
	ToolPrefix string `yaml:"toolPrefix,omitempty" json:"toolPrefix,omitempty"`

	// ReadOnly omits tools that modify data.
	ReadOnly bool `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
}

// DatabaseName returns the logical database name: Database when set, else
// the database named by a URL connection string (its single path segment or
// its "database" query parameter), else DefaultDatabase.
func (c Config) DatabaseName() string {
	if c.Database != "" {
		return c.Database
	}
	if name := urlDatabase(c.ConnectionString); name != "" {
		return name
	}
	return DefaultDatabase
}

func urlDatabase(cs string) string {
	if cs == "" {
		return ""
	}
	u, err := url.Parse(cs)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	if name := strings.Trim(u.Path, "/"); name != "" && !strings.Contains(name, "/") {
		return name
	}
	return u.Query().Get("database")
}

// Identity returns the registry key for c using its own Type.
func (c Config) Identity() string {
	return IdentityOf(c.Type, c)
}

// IdentityOf returns the registry key for an adapter of type typ: the type
// and logical database name joined by a colon.
func IdentityOf(typ string, c Config) string {
	return typ + ":" + c.DatabaseName()
}

// Prefix returns the tool name prefix: ToolPrefix when set, else Type.
func (c Config) Prefix() string {
	if c.ToolPrefix != "" {
		return c.ToolPrefix
	}
	return c.Type
}

// WithType returns a copy of c with Type set when it was empty.
func (c Config) WithType(typ string) Config {
	if c.Type == "" {
		c.Type = typ
	}
	return c
}

// Option returns a driver option, or def when unset.
func (c Config) Option(key, def string) string {
	if v, ok := c.Options[key]; ok {
		return v
	}
	return def
}

// Validate checks the fields every family relies on.
func (c Config) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("%w: database type is required", dbmcp.ErrConfiguration)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %s: port %d out of range", dbmcp.ErrConfiguration, c.Identity(), c.Port)
	}
	if p := c.ToolPrefix; p != "" && !validPrefix(p) {
		return fmt.Errorf("%w: %s: tool prefix %q must start with a letter and contain only letters, digits, and underscores",
			dbmcp.ErrConfiguration, c.Identity(), p)
	}
	return nil
}

func validPrefix(p string) bool {
	for i, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '_' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}

// HostPort joins Host (default "localhost") and Port (default defPort).
func (c Config) HostPort(defPort int) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = defPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// URL builds a connection URI from the structured fields. The database name
// becomes the path unless it is empty; DriverOptions become query parameters.
// ConnectionString is returned unchanged when set.
func (c Config) URL(scheme string, defPort int) string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	u := url.URL{Scheme: scheme, Host: c.HostPort(defPort)}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	if c.Database != "" {
		u.Path = "/" + c.Database
	}
	u.RawQuery = c.query().Encode()
	return u.String()
}

// AdapterOptions are Options keys read by the adapters themselves. They are
// never forwarded to drivers.
var AdapterOptions = map[string]bool{
	"maxRows":   true,
	"path":      true,
	"scanCount": true,
}

// DriverOptions returns Options without AdapterOptions keys.
func (c Config) DriverOptions() map[string]string {
	out := make(map[string]string, len(c.Options))
	for k, v := range c.Options {
		if !AdapterOptions[k] {
			out[k] = v
		}
	}
	return out
}

func (c Config) query() url.Values {
	q := url.Values{}
	opts := c.DriverOptions()
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, opts[k])
	}
	return q
}

// String describes c without credentials.
func (c Config) String() string {
	if c.ConnectionString != "" {
		return fmt.Sprintf("%s(%s)", c.Identity(), Redact(c.ConnectionString))
	}
	if c.Host == "" && c.Port == 0 {
		return c.Identity()
	}
	return fmt.Sprintf("%s(%s)", c.Identity(), c.HostPort(c.Port))
}

// Redact masks the password in a URI-shaped connection string. Strings that
// do not parse as URIs with user info are returned unchanged.
func Redact(conn string) string {
	u, err := url.Parse(conn)
	if err != nil || u.User == nil {
		return conn
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
