// Package mongodb is the MongoDB adapter family, backed by the official v2
// driver.
package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

// DefaultPort is the mongod port.
const DefaultPort = 27017

// Adapter is the MongoDB adapter.
type Adapter struct {
	*adapter.Base

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a disconnected MongoDB adapter.
func New() *Adapter {
	return &Adapter{Base: adapter.NewBase(adapter.Info{
		Type:    adapter.TypeMongoDB,
		Name:    "MongoDB Adapter",
		Version: "0.1.0",
		Kind:    adapter.KindDocument,
		Capabilities: adapter.Capabilities{
			Query:     true,
			Write:     true,
			Schema:    true,
			Documents: true,
		},
	})}
}

// Factory is the adapter.Factory for MongoDB.
func Factory() adapter.Adapter { return New() }

// URI returns the mongodb:// URI for cfg.
func URI(cfg adapter.Config) string {
	return cfg.URL("mongodb", DefaultPort)
}

// DatabaseName returns the database the tools operate on: Database when
// set, else the path of the connection string, else "test".
func DatabaseName(cfg adapter.Config) string {
	if name := cfg.DatabaseName(); cfg.Database != "" || name != adapter.DefaultDatabase {
		return name
	}
	return "test"
}

// ClientOptions builds the driver options for cfg. Settings in the URI
// override the defaults.
func ClientOptions(cfg adapter.Config) *options.ClientOptions {
	return options.Client().
		SetAppName("db-mcp").
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		ApplyURI(URI(cfg))
}

// Connect creates the client and pings the primary.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	if err := a.BeginConnect(cfg); err != nil {
		return err
	}
	opts := ClientOptions(cfg)
	if err := opts.Validate(); err != nil {
		return a.EndConnect(err)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return a.EndConnect(err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return a.EndConnect(err)
	}

	a.mu.Lock()
	a.client = client
	a.db = client.Database(DatabaseName(cfg))
	a.mu.Unlock()
	return a.EndConnect(nil)
}

// Disconnect closes the client.
func (a *Adapter) Disconnect(ctx context.Context) error {
	if !a.BeginDisconnect() {
		return nil
	}
	a.mu.Lock()
	client := a.client
	a.client, a.db = nil, nil
	a.mu.Unlock()

	var err error
	if client != nil {
		err = client.Disconnect(ctx)
	}
	return a.EndDisconnect(err)
}

// Health pings the primary and reads the server version.
func (a *Adapter) Health(ctx context.Context) (adapter.HealthReport, error) {
	return a.Probe(ctx, func(ctx context.Context) (adapter.HealthReport, error) {
		client, db, err := a.handles()
		if err != nil {
			return adapter.HealthReport{}, err
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return adapter.HealthReport{}, err
		}
		report := adapter.HealthReport{Details: map[string]any{"database": db.Name()}}
		var info bson.M
		if err := db.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&info); err == nil {
			report.Version = fmt.Sprint(info["version"])
		}
		return report, nil
	}), nil
}

func (a *Adapter) handles() (*mongo.Client, *mongo.Database, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.client == nil {
		return nil, nil, fmt.Errorf("%s: %w", a.Type(), dbmcp.ErrNotConnected)
	}
	return a.client, a.db, nil
}

func (a *Adapter) database() (*mongo.Database, error) {
	_, db, err := a.handles()
	return db, err
}

// RegisterTools implements adapter.Adapter.
func (a *Adapter) RegisterTools(r toolset.Registrar, filter adapter.ToolFilter) error {
	_, err := adapter.RegisterFiltered(r, filter, a.Tools(a.Config()))
	return err
}

// RegisterResources registers the collection listing resource.
func (a *Adapter) RegisterResources(r toolset.Registrar) error {
	cfg := a.Config()
	return r.AddResource(toolset.Resource{
		URI:         fmt.Sprintf("dbmcp://%s/%s/collections", cfg.Prefix(), DatabaseName(cfg)),
		Name:        cfg.Prefix() + " collections",
		Description: fmt.Sprintf("Collections of the MongoDB database %s with document counts.", DatabaseName(cfg)),
		Read:        a.readCollections,
	})
}

// RegisterPrompts registers the exploration prompt.
func (a *Adapter) RegisterPrompts(r toolset.Registrar) error {
	p := a.Config().Prefix()
	return r.AddPrompt(toolset.Prompt{
		Name:        p + "_explore",
		Description: "Guide for exploring the MongoDB database.",
		Arguments: []toolset.PromptArgument{
			{Name: "collection", Description: "Collection to focus on"},
		},
		Render: func(_ context.Context, args map[string]string) (string, error) {
			if c := args["collection"]; c != "" {
				return fmt.Sprintf("Explore the MongoDB collection %q. Call %s_count with collection=%q, then "+
					"sample documents with %s_find and a small limit to infer its shape.", c, p, c, p), nil
			}
			return fmt.Sprintf("Explore the MongoDB database. Start with %s_list_collections, then sample "+
				"documents with %s_find and a small limit.", p, p), nil
		},
	})
}

func (a *Adapter) readCollections(ctx context.Context) (any, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	type collection struct {
		Name  string `json:"name"`
		Count int64  `json:"count"`
	}
	out := make([]collection, 0, len(names))
	for _, name := range names {
		n, err := db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		out = append(out, collection{Name: name, Count: n})
	}
	return map[string]any{"database": db.Name(), "collections": out}, nil
}
