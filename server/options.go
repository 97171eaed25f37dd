package server

import (
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/adapter/all"
	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/metrics"
)

// Options holds the collaborators of a Server. Use the With functions to
// set them.
type Options struct {
	// Logger receives lifecycle logs. Defaults to logging.Nop().
	Logger logging.Logger

	// Metrics is shared by the tool set and the registry.
	// Defaults to a fresh metrics.New().
	Metrics *metrics.Metrics

	// Families creates adapters for configured databases.
	// Defaults to all.Families().
	Families *adapter.Families

	// LookupEnv reads the environment once at construction.
	// Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Stdio replaces the process stdin/stdout transport in stdio mode.
	Stdio mcp.Transport

	// ListenAddr overrides host:port in http mode.
	ListenAddr string
}

func (o *Options) applyDefaults() {
	o.Logger = logging.OrNop(o.Logger)
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.Families == nil {
		o.Families = all.Families()
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
}

// Option is a functional option for configuring a Server.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithFamilies sets the adapter factories used for configured databases.
func WithFamilies(f *adapter.Families) Option {
	return func(o *Options) {
		o.Families = f
	}
}

// WithLookupEnv sets the environment lookup. Pass a function that always
// reports absence to ignore the process environment.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(o *Options) {
		o.LookupEnv = lookup
	}
}

// WithStdioTransport serves stdio mode over t instead of the process streams.
func WithStdioTransport(t mcp.Transport) Option {
	return func(o *Options) {
		o.Stdio = t
	}
}

// WithListenAddr sets the HTTP listen address, e.g. "127.0.0.1:0".
func WithListenAddr(addr string) Option {
	return func(o *Options) {
		o.ListenAddr = addr
	}
}
