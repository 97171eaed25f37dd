package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

const (
	defaultScanCount = 100
	maxScanCount     = 1000
)

// Tools returns the key-value tool set for cfg.
func (a *Adapter) Tools(cfg adapter.Config) []toolset.Tool {
	cfg = cfg.WithType(a.Type())
	p := cfg.Prefix()
	scanLimit := scanCount(cfg)
	key := toolset.Prop("string", "Key name")

	tools := []toolset.Tool{
		{
			Name:        p + "_get",
			Title:       "Get value (Redis)",
			Description: "Read the string value of a Redis key.",
			InputSchema: toolset.ObjectSchema(map[string]any{"key": key}, "key"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"redis", "read", "key-value"},
			Handler:     a.get,
		},
		{
			Name:        p + "_scan",
			Title:       "Scan keys (Redis)",
			Description: fmt.Sprintf("Incrementally list Redis keys matching a glob pattern, up to about %d per call.", scanLimit),
			InputSchema: toolset.ObjectSchema(map[string]any{
				"pattern": toolset.Prop("string", "Glob pattern (default *)"),
				"cursor":  toolset.Prop("string", "Cursor returned by the previous call (default 0)"),
				"count":   toolset.Prop("integer", fmt.Sprintf("Maximum keys to return (default %d)", defaultScanCount)),
			}),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"redis", "read", "key-value"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return a.scan(ctx, scanLimit, args)
			},
		},
		{
			Name:        p + "_key_info",
			Title:       "Key info (Redis)",
			Description: "Report the type and remaining TTL of a Redis key.",
			InputSchema: toolset.ObjectSchema(map[string]any{"key": key}, "key"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"redis", "schema", "key-value"},
			Handler:     a.keyInfo,
		},
	}
	if !cfg.ReadOnly {
		tools = append(tools,
			toolset.Tool{
				Name:        p + "_set",
				Title:       "Set value (Redis)",
				Description: "Set the string value of a Redis key, optionally with a TTL in seconds.",
				InputSchema: toolset.ObjectSchema(map[string]any{
					"key":         key,
					"value":       toolset.Prop("string", "Value to store"),
					"ttl_seconds": toolset.Prop("integer", "Expiry in seconds; 0 keeps the key forever"),
				}, "key", "value"),
				Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
				Tags:        []string{"redis", "write", "key-value"},
				Handler:     a.set,
			},
			toolset.Tool{
				Name:        p + "_delete",
				Title:       "Delete key (Redis)",
				Description: "Delete a Redis key.",
				InputSchema: toolset.ObjectSchema(map[string]any{"key": key}, "key"),
				Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
				Tags:        []string{"redis", "write", "key-value"},
				Handler:     a.del,
			},
		)
	}
	return tools
}

func boolPtr(b bool) *bool { return &b }

func scanCount(cfg adapter.Config) int {
	if n, err := strconv.Atoi(cfg.Option("scanCount", "")); err == nil && n > 0 {
		return n
	}
	return maxScanCount
}

func (a *Adapter) get(ctx context.Context, args map[string]any) (any, error) {
	k, err := toolset.String(args, "key")
	if err != nil {
		return nil, err
	}
	client, err := a.redis()
	if err != nil {
		return nil, err
	}
	v, err := client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return map[string]any{"key": k, "exists": false, "value": nil}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": k, "exists": true, "value": v}, nil
}

func (a *Adapter) set(ctx context.Context, args map[string]any) (any, error) {
	k, err := toolset.String(args, "key")
	if err != nil {
		return nil, err
	}
	v, ok := args["value"].(string)
	if !ok {
		return nil, &toolset.ArgError{Name: "value", Reason: "must be a string"}
	}
	ttl, err := toolset.Int(args, "ttl_seconds", 0)
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		return nil, &toolset.ArgError{Name: "ttl_seconds", Reason: "must not be negative"}
	}
	client, err := a.redis()
	if err != nil {
		return nil, err
	}
	if err := client.Set(ctx, k, v, time.Duration(ttl)*time.Second).Err(); err != nil {
		return nil, err
	}
	return map[string]any{"key": k, "ok": true, "ttlSeconds": ttl}, nil
}

func (a *Adapter) del(ctx context.Context, args map[string]any) (any, error) {
	k, err := toolset.String(args, "key")
	if err != nil {
		return nil, err
	}
	client, err := a.redis()
	if err != nil {
		return nil, err
	}
	n, err := client.Del(ctx, k).Result()
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": k, "deleted": n > 0}, nil
}

func (a *Adapter) keyInfo(ctx context.Context, args map[string]any) (any, error) {
	k, err := toolset.String(args, "key")
	if err != nil {
		return nil, err
	}
	client, err := a.redis()
	if err != nil {
		return nil, err
	}
	typ, err := client.Type(ctx, k).Result()
	if err != nil {
		return nil, err
	}
	if typ == "none" {
		return map[string]any{"key": k, "exists": false}, nil
	}
	ttl, err := client.TTL(ctx, k).Result()
	if err != nil {
		return nil, err
	}
	out := map[string]any{"key": k, "exists": true, "type": typ, "ttlSeconds": int64(-1)}
	if ttl > 0 {
		out["ttlSeconds"] = int64(ttl / time.Second)
	}
	return out, nil
}

func (a *Adapter) scan(ctx context.Context, limit int, args map[string]any) (any, error) {
	pattern, err := toolset.OptionalString(args, "pattern", "*")
	if err != nil {
		return nil, err
	}
	rawCursor, err := toolset.OptionalString(args, "cursor", "0")
	if err != nil {
		return nil, err
	}
	cursor, err := strconv.ParseUint(rawCursor, 10, 64)
	if err != nil {
		return nil, &toolset.ArgError{Name: "cursor", Reason: "must be a cursor returned by a previous scan"}
	}
	count, err := toolset.Int(args, "count", defaultScanCount)
	if err != nil {
		return nil, err
	}
	if count <= 0 || count > limit {
		count = limit
	}
	client, err := a.redis()
	if err != nil {
		return nil, err
	}
	keys, next, err := scanKeys(ctx, client, cursor, pattern, count)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"keys":   keys,
		"count":  len(keys),
		"cursor": strconv.FormatUint(next, 10),
		"done":   next == 0,
	}, nil
}

// scanKeys walks SCAN from cursor until it has count keys or the iteration
// ends. The returned cursor resumes the walk; 0 means it is complete.
func scanKeys(ctx context.Context, client *redis.Client, cursor uint64, pattern string, count int) ([]string, uint64, error) {
	seen := make(map[string]struct{})
	keys := []string{}
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, int64(count)).Result()
		if err != nil {
			return nil, 0, err
		}
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 || len(keys) >= count {
			break
		}
	}
	sort.Strings(keys)
	return keys, cursor, nil
}
