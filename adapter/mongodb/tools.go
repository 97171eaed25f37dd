package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jonwraymond/dbmcp/adapter"
	"github.com/jonwraymond/dbmcp/toolset"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
)

// Tools returns the document tool set for cfg.
func (a *Adapter) Tools(cfg adapter.Config) []toolset.Tool {
	cfg = cfg.WithType(a.Type())
	p := cfg.Prefix()
	limit := maxDocuments(cfg)

	collection := toolset.Prop("string", "Collection name")
	filter := map[string]any{"type": "object", "description": "Query filter in MongoDB extended JSON"}

	tools := []toolset.Tool{
		{
			Name:        p + "_find",
			Title:       "Find documents (MongoDB)",
			Description: fmt.Sprintf("Find documents in a MongoDB collection, returning at most %d.", limit),
			InputSchema: toolset.ObjectSchema(map[string]any{
				"collection": collection,
				"filter":     filter,
				"projection": map[string]any{"type": "object", "description": "Fields to include or exclude"},
				"sort":       map[string]any{"type": "object", "description": "Sort specification, e.g. {\"createdAt\": -1}"},
				"limit":      toolset.Prop("integer", fmt.Sprintf("Maximum documents to return (default %d)", defaultLimit)),
			}, "collection"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"mongodb", "read", "documents"},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return a.find(ctx, limit, args)
			},
		},
		{
			Name:        p + "_count",
			Title:       "Count documents (MongoDB)",
			Description: "Count the documents in a MongoDB collection that match a filter.",
			InputSchema: toolset.ObjectSchema(map[string]any{
				"collection": collection,
				"filter":     filter,
			}, "collection"),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"mongodb", "read", "documents"},
			Handler:     a.count,
		},
		{
			Name:        p + "_list_collections",
			Title:       "List collections (MongoDB)",
			Description: "List the collections in the MongoDB database.",
			InputSchema: toolset.ObjectSchema(nil),
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
			Tags:        []string{"mongodb", "schema"},
			Handler:     a.listCollections,
		},
	}
	if !cfg.ReadOnly {
		tools = append(tools, toolset.Tool{
			Name:        p + "_insert_one",
			Title:       "Insert document (MongoDB)",
			Description: "Insert a single document into a MongoDB collection.",
			InputSchema: toolset.ObjectSchema(map[string]any{
				"collection": collection,
				"document":   map[string]any{"type": "object", "description": "Document in MongoDB extended JSON"},
			}, "collection", "document"),
			Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(false)},
			Tags:        []string{"mongodb", "write", "documents"},
			Handler:     a.insertOne,
		})
	}
	return tools
}

func boolPtr(b bool) *bool { return &b }

func maxDocuments(cfg adapter.Config) int {
	if n, err := strconv.Atoi(cfg.Option("maxRows", "")); err == nil && n > 0 {
		return n
	}
	return maxLimit
}

// Document decodes a tool argument object as MongoDB extended JSON. A nil
// object yields an empty document.
func Document(args map[string]any, name string) (bson.D, error) {
	obj, err := toolset.Object(args, name)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return bson.D{}, nil
	}
	// Map keys marshal sorted, so multi-key sort specifications apply in
	// key order.
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, &toolset.ArgError{Name: name, Reason: err.Error()}
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, &toolset.ArgError{Name: name, Reason: err.Error()}
	}
	return doc, nil
}

// ExtJSON renders documents as relaxed extended JSON.
func ExtJSON(docs []bson.Raw) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		data, err := bson.MarshalExtJSON(d, false, false)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func (a *Adapter) find(ctx context.Context, maxDocs int, args map[string]any) (any, error) {
	name, err := toolset.String(args, "collection")
	if err != nil {
		return nil, err
	}
	filter, err := Document(args, "filter")
	if err != nil {
		return nil, err
	}
	limit, err := toolset.Int(args, "limit", defaultLimit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxDocs {
		limit = maxDocs
	}

	opts := options.Find().SetLimit(int64(limit) + 1)
	if _, ok := args["projection"]; ok {
		projection, err := Document(args, "projection")
		if err != nil {
			return nil, err
		}
		opts.SetProjection(projection)
	}
	if _, ok := args["sort"]; ok {
		sortSpec, err := Document(args, "sort")
		if err != nil {
			return nil, err
		}
		opts.SetSort(sortSpec)
	}

	db, err := a.database()
	if err != nil {
		return nil, err
	}
	cur, err := db.Collection(name).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.Raw
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	truncated := len(docs) > limit
	if truncated {
		docs = docs[:limit]
	}
	rendered, err := ExtJSON(docs)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"collection": name,
		"documents":  rendered,
		"count":      len(rendered),
		"truncated":  truncated,
	}, nil
}

func (a *Adapter) count(ctx context.Context, args map[string]any) (any, error) {
	name, err := toolset.String(args, "collection")
	if err != nil {
		return nil, err
	}
	filter, err := Document(args, "filter")
	if err != nil {
		return nil, err
	}
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	n, err := db.Collection(name).CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	return map[string]any{"collection": name, "count": n}, nil
}

func (a *Adapter) listCollections(ctx context.Context, _ map[string]any) (any, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return map[string]any{"collections": names, "count": len(names)}, nil
}

func (a *Adapter) insertOne(ctx context.Context, args map[string]any) (any, error) {
	name, err := toolset.String(args, "collection")
	if err != nil {
		return nil, err
	}
	if _, ok := args["document"]; !ok {
		return nil, &toolset.ArgError{Name: "document", Reason: "is required"}
	}
	doc, err := Document(args, "document")
	if err != nil {
		return nil, err
	}
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	res, err := db.Collection(name).InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	data, err := bson.MarshalExtJSON(bson.D{{Key: "id", Value: res.InsertedID}}, false, false)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return map[string]any{"collection": name, "insertedId": wrapped.ID}, nil
}
