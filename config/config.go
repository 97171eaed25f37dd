// Package config loads and validates the server configuration.
//
// A configuration file is YAML:
//
//	name: db-mcp
//	transport: stdio
//	toolFilter: "-sqlite_write_query"
//	databases:
//	  - type: sqlite
//	    connectionString: ./app.db
//	  - type: redis
//	    host: localhost
//	    readOnly: true
//	timeouts:
//	  connect: 30s
//	  tool: 1m
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/logging"
)

// EnvConfig names the environment variable holding a config file path.
const EnvConfig = "DB_MCP_CONFIG"

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Defaults.
const (
	DefaultName      = "db-mcp"
	DefaultVersion   = "0.1.0"
	DefaultTransport = TransportStdio
	DefaultPort      = 3000
	DefaultHost      = "127.0.0.1"
	DefaultToolTime  = 60 * time.Second
)

// Timeouts bounds backend and tool operations. Zero fields take defaults
// in ApplyDefaults.
type Timeouts struct {
	Connect    time.Duration `yaml:"connect,omitempty"`
	Health     time.Duration `yaml:"health,omitempty"`
	Disconnect time.Duration `yaml:"disconnect,omitempty"`
	Tool       time.Duration `yaml:"tool,omitempty"`
}

// Config is the server configuration.
type Config struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"`

	// Host and Port are the HTTP listen address.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port"`

	// ToolFilter is the filter expression. When blank the DB_MCP_TOOL_FILTER
	// environment variable is consulted.
	ToolFilter string `yaml:"toolFilter,omitempty"`

	Databases []adapter.Config `yaml:"databases,omitempty"`

	Timeouts          Timeouts `yaml:"timeouts,omitempty"`
	HealthConcurrency int      `yaml:"healthConcurrency,omitempty"`
	LogLevel          string   `yaml:"logLevel,omitempty"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	c := Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Transport == "" {
		c.Transport = DefaultTransport
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	d := adapter.DefaultTimeouts()
	if c.Timeouts.Connect == 0 {
		c.Timeouts.Connect = d.Connect
	}
	if c.Timeouts.Health == 0 {
		c.Timeouts.Health = d.Health
	}
	if c.Timeouts.Disconnect == 0 {
		c.Timeouts.Disconnect = d.Disconnect
	}
	if c.Timeouts.Tool == 0 {
		c.Timeouts.Tool = DefaultToolTime
	}
	if c.HealthConcurrency == 0 {
		c.HealthConcurrency = adapter.DefaultHealthConcurrency
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first problem with c as a dbmcp.ErrConfiguration.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("%w: unsupported transport %q (supported: %s, %s)",
			dbmcp.ErrConfiguration, c.Transport, TransportStdio, TransportHTTP)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", dbmcp.ErrConfiguration, c.Port)
	}
	if c.HealthConcurrency < 0 {
		return fmt.Errorf("%w: healthConcurrency must not be negative", dbmcp.ErrConfiguration)
	}
	for name, d := range map[string]time.Duration{
		"connect":    c.Timeouts.Connect,
		"health":     c.Timeouts.Health,
		"disconnect": c.Timeouts.Disconnect,
		"tool":       c.Timeouts.Tool,
	} {
		if d < 0 {
			return fmt.Errorf("%w: timeouts.%s must not be negative", dbmcp.ErrConfiguration, name)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for i, db := range c.Databases {
		if err := db.Validate(); err != nil {
			return fmt.Errorf("databases[%d]: %w", i, err)
		}
	}
	return nil
}

// AdapterTimeouts returns the registry's share of the timeouts.
func (c Config) AdapterTimeouts() adapter.Timeouts {
	return adapter.Timeouts{
		Connect:    c.Timeouts.Connect,
		Health:     c.Timeouts.Health,
		Disconnect: c.Timeouts.Disconnect,
	}
}

// Parse decodes YAML into a Config with defaults applied. Unknown fields are
// rejected.
func Parse(r io.Reader) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parse config: %v", dbmcp.ErrConfiguration, err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config: %v", dbmcp.ErrConfiguration, err)
	}
	return Parse(bytes.NewReader(data))
}

// Resolve loads the file named by path, or by EnvConfig when path is blank.
// With neither it returns Default. lookupEnv may be nil.
func Resolve(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	if strings.TrimSpace(path) == "" && lookupEnv != nil {
		if v, ok := lookupEnv(EnvConfig); ok {
			path = strings.TrimSpace(v)
		}
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// ParseDatabase parses a TYPE=CONNECTION flag value, e.g.
// "sqlite=./app.db" or "postgresql=postgres://localhost/app".
func ParseDatabase(s string) (adapter.Config, error) {
	typ, conn, ok := strings.Cut(s, "=")
	typ = strings.TrimSpace(typ)
	if !ok || typ == "" {
		return adapter.Config{}, fmt.Errorf("%w: database %q must be TYPE=CONNECTION", dbmcp.ErrConfiguration, s)
	}
	return adapter.Config{Type: typ, ConnectionString: strings.TrimSpace(conn)}, nil
}

// Marshal renders c as YAML. Passwords are kept; callers printing a config
// should clear them first.
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}
