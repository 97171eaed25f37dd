// Package redis is the Redis adapter family, backed by go-redis.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

// DefaultPort is the Redis server port.
const DefaultPort = 6379

// Adapter is the Redis adapter.
type Adapter struct {
	*adapter.Base

	mu     sync.RWMutex
	client *redis.Client
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a disconnected Redis adapter.
func New() *Adapter {
	return &Adapter{Base: adapter.NewBase(adapter.Info{
		Type:    adapter.TypeRedis,
		Name:    "Redis Adapter",
		Version: "0.1.0",
		Kind:    adapter.KindKeyValue,
		Capabilities: adapter.Capabilities{
			Query:    true,
			Write:    true,
			KeyValue: true,
		},
	})}
}

// Factory is the adapter.Factory for Redis.
func Factory() adapter.Adapter { return New() }

// ClientOptions builds the go-redis options for cfg. A connection string
// must be a redis:// or rediss:// URL; otherwise Database, when numeric,
// selects the logical database.
func ClientOptions(cfg adapter.Config) (*redis.Options, error) {
	if cfg.ConnectionString != "" {
		opts, err := redis.ParseURL(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	opts := &redis.Options{
		Addr:         cfg.HostPort(DefaultPort),
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientName:   "db-mcp",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	if cfg.Database != "" {
		n, err := strconv.Atoi(cfg.Database)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: redis database must be a non-negative integer, got %q",
				dbmcp.ErrConfiguration, cfg.Database)
		}
		opts.DB = n
	}
	return opts, nil
}

// Connect creates the client and pings the server.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	if err := a.BeginConnect(cfg); err != nil {
		return err
	}
	opts, err := ClientOptions(cfg)
	if err != nil {
		return a.EndConnect(err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return a.EndConnect(err)
	}

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()
	return a.EndConnect(nil)
}

// Disconnect closes the client.
func (a *Adapter) Disconnect(_ context.Context) error {
	if !a.BeginDisconnect() {
		return nil
	}
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()

	var err error
	if client != nil {
		err = client.Close()
	}
	return a.EndDisconnect(err)
}

// Health pings the server and reads redis_version from INFO when the server
// provides it.
func (a *Adapter) Health(ctx context.Context) (adapter.HealthReport, error) {
	return a.Probe(ctx, func(ctx context.Context) (adapter.HealthReport, error) {
		client, err := a.redis()
		if err != nil {
			return adapter.HealthReport{}, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return adapter.HealthReport{}, err
		}
		report := adapter.HealthReport{Details: map[string]any{"db": client.Options().DB}}
		if info, err := client.Info(ctx, "server").Result(); err == nil {
			report.Version = infoField(info, "redis_version")
		}
		if n, err := client.DBSize(ctx).Result(); err == nil {
			report.Details["keys"] = n
		}
		return report, nil
	}), nil
}

func infoField(info, field string) string {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), field+":"); ok {
			return v
		}
	}
	return ""
}

func (a *Adapter) redis() (*redis.Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.client == nil {
		return nil, fmt.Errorf("%s: %w", a.Type(), dbmcp.ErrNotConnected)
	}
	return a.client, nil
}

// RegisterTools implements adapter.Adapter.
func (a *Adapter) RegisterTools(r toolset.Registrar, filter adapter.ToolFilter) error {
	_, err := adapter.RegisterFiltered(r, filter, a.Tools(a.Config()))
	return err
}

// RegisterResources registers the keyspace summary resource.
func (a *Adapter) RegisterResources(r toolset.Registrar) error {
	cfg := a.Config()
	return r.AddResource(toolset.Resource{
		URI:         fmt.Sprintf("dbmcp://%s/%s/keyspace", cfg.Prefix(), cfg.DatabaseName()),
		Name:        cfg.Prefix() + " keyspace",
		Description: "Key count and a sample of keys with their types.",
		Read:        a.readKeyspace,
	})
}

// RegisterPrompts registers the exploration prompt.
func (a *Adapter) RegisterPrompts(r toolset.Registrar) error {
	p := a.Config().Prefix()
	return r.AddPrompt(toolset.Prompt{
		Name:        p + "_explore",
		Description: "Guide for exploring the Redis keyspace.",
		Arguments: []toolset.PromptArgument{
			{Name: "pattern", Description: "Key pattern to focus on, e.g. session:*"},
		},
		Render: func(_ context.Context, args map[string]string) (string, error) {
			pattern := args["pattern"]
			if pattern == "" {
				pattern = "*"
			}
			return fmt.Sprintf("Explore the Redis keyspace. Call %s_scan with pattern=%q to list matching keys, "+
				"%s_key_info to see a key's type and TTL, and %s_get to read string values.", p, pattern, p, p), nil
		},
	})
}

const keyspaceSample = 100

func (a *Adapter) readKeyspace(ctx context.Context) (any, error) {
	client, err := a.redis()
	if err != nil {
		return nil, err
	}
	size, err := client.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}
	keys, _, err := scanKeys(ctx, client, 0, "*", keyspaceSample)
	if err != nil {
		return nil, err
	}
	type entry struct {
		Key  string `json:"key"`
		Type string `json:"type"`
	}
	sample := make([]entry, 0, len(keys))
	for _, k := range keys {
		typ, err := client.Type(ctx, k).Result()
		if err != nil {
			return nil, err
		}
		sample = append(sample, entry{Key: k, Type: typ})
	}
	return map[string]any{"keys": size, "sample": sample}, nil
}
