package toolset

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/metrics"
)

func newTestSet(t *testing.T, opts Options) (*Set, *mcp.Server) {
	t.Helper()
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0.0.1"}, nil)
	return New(server, opts), server
}

func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "Echoes its arguments.",
		InputSchema: ObjectSchema(map[string]any{"msg": Prop("string", "message")}),
		Tags:        []string{"test"},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("len(Content) = %d, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Content[0] = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestBatch_CommitPublishes(t *testing.T) {
	set, server := newTestSet(t, Options{})
	b := set.Batch("sqlite:default", "sqlite")
	if err := b.AddTool(echoTool("sqlite_echo")); err != nil {
		t.Fatalf("AddTool() error = %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	cs := connect(t, server)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "sqlite_echo",
		Arguments: map[string]any{"msg": "hi"},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(textOf(t, res)), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if got["msg"] != "hi" {
		t.Errorf("msg = %v, want hi", got["msg"])
	}
	if owner, _ := set.Owner("sqlite_echo"); owner != "sqlite:default" {
		t.Errorf("Owner() = %q, want sqlite:default", owner)
	}
}

func TestBatch_UncommittedIsInvisible(t *testing.T) {
	set, server := newTestSet(t, Options{})
	b := set.Batch("a", "a")
	if err := b.AddTool(echoTool("a_echo")); err != nil {
		t.Fatalf("AddTool() error = %v", err)
	}

	cs := connect(t, server)
	tools, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools.Tools) != 0 || set.ToolCount() != 0 {
		t.Errorf("staged tools should not be visible before Commit")
	}
}

func TestBatch_ConflictAcrossOwners(t *testing.T) {
	set, _ := newTestSet(t, Options{})
	first := set.Batch("sqlite:a", "sqlite")
	_ = first.AddTool(echoTool("sqlite_echo"))
	if err := first.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	second := set.Batch("sqlite:b", "sqlite")
	err := second.AddTool(echoTool("sqlite_echo"))
	if !errors.Is(err, dbmcp.ErrToolConflict) {
		t.Fatalf("AddTool() error = %v, want ErrToolConflict", err)
	}
	var ce *dbmcp.ConflictError
	if !errors.As(err, &ce) || ce.Owner != "sqlite:a" {
		t.Errorf("ConflictError = %#v, want owner sqlite:a", err)
	}
}

func TestBatch_CommitIsAllOrNothing(t *testing.T) {
	set, _ := newTestSet(t, Options{})

	// Both batches stage before either commits, so the conflict only
	// surfaces at Commit.
	a := set.Batch("a", "a")
	b := set.Batch("b", "b")
	_ = a.AddTool(echoTool("shared"))
	_ = b.AddTool(echoTool("b_only"))
	_ = b.AddTool(echoTool("shared"))

	if err := a.Commit(); err != nil {
		t.Fatalf("a.Commit() error = %v", err)
	}
	if err := b.Commit(); !errors.Is(err, dbmcp.ErrToolConflict) {
		t.Fatalf("b.Commit() error = %v, want ErrToolConflict", err)
	}
	if _, ok := set.Owner("b_only"); ok {
		t.Error("b_only should not be published after a failed commit")
	}
}

func TestBatch_DuplicateWithinBatch(t *testing.T) {
	set, _ := newTestSet(t, Options{})
	b := set.Batch("a", "a")
	_ = b.AddTool(echoTool("x"))
	if err := b.AddTool(echoTool("x")); !errors.Is(err, dbmcp.ErrToolConflict) {
		t.Errorf("AddTool() error = %v, want ErrToolConflict", err)
	}
}

func TestBatch_ResourceAndPromptConflicts(t *testing.T) {
	set, _ := newTestSet(t, Options{})
	res := Resource{URI: "dbmcp://x/schema", Read: func(context.Context) (any, error) { return nil, nil }}
	prompt := Prompt{Name: "x_explore", Render: func(context.Context, map[string]string) (string, error) { return "", nil }}

	a := set.Batch("a", "a")
	_ = a.AddResource(res)
	_ = a.AddPrompt(prompt)
	if err := a.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	b := set.Batch("b", "b")
	if err := b.AddResource(res); !errors.Is(err, dbmcp.ErrToolConflict) {
		t.Errorf("AddResource() error = %v, want ErrToolConflict", err)
	}
	if err := b.AddPrompt(prompt); !errors.Is(err, dbmcp.ErrToolConflict) {
		t.Errorf("AddPrompt() error = %v, want ErrToolConflict", err)
	}
}

func TestBatch_Validation(t *testing.T) {
	set, _ := newTestSet(t, Options{})
	b := set.Batch("a", "a")

	tests := []struct {
		name string
		tool Tool
	}{
		{"no name", Tool{Handler: echoTool("x").Handler}},
		{"no handler", Tool{Name: "x"}},
		{"bad schema", Tool{Name: "x", Handler: echoTool("x").Handler, InputSchema: map[string]any{"type": "string"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.AddTool(tt.tool); err == nil {
				t.Error("AddTool() error = nil, want error")
			}
		})
	}
}

func TestBatch_CommitTwice(t *testing.T) {
	set, _ := newTestSet(t, Options{})
	b := set.Batch("a", "a")
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := b.Commit(); !errors.Is(err, ErrCommitted) {
		t.Errorf("second Commit() error = %v, want ErrCommitted", err)
	}
	if err := b.AddTool(echoTool("late")); !errors.Is(err, ErrCommitted) {
		t.Errorf("AddTool() after Commit error = %v, want ErrCommitted", err)
	}
}

func TestSet_Withdraw(t *testing.T) {
	set, server := newTestSet(t, Options{})
	b := set.Batch("redis:default", "redis")
	_ = b.AddTool(echoTool("redis_get"))
	_ = b.AddTool(echoTool("redis_scan"))
	_ = b.Commit()

	if n := set.Withdraw("redis:default"); n != 2 {
		t.Errorf("Withdraw() = %d, want 2", n)
	}
	if n := set.Withdraw("redis:default"); n != 0 {
		t.Errorf("second Withdraw() = %d, want 0", n)
	}

	cs := connect(t, server)
	tools, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools.Tools) != 0 {
		t.Errorf("len(Tools) = %d after Withdraw, want 0", len(tools.Tools))
	}
	if set.Catalog().Len() != 0 {
		t.Errorf("Catalog().Len() = %d after Withdraw, want 0", set.Catalog().Len())
	}

	// The names are free again.
	again := set.Batch("redis:other", "redis")
	if err := again.AddTool(echoTool("redis_get")); err != nil {
		t.Errorf("AddTool() after Withdraw error = %v", err)
	}
}

func TestDispatch_HandlerErrorIsProtocolError(t *testing.T) {
	m := metrics.New()
	rec := &logging.Recorder{}
	set, server := newTestSet(t, Options{Logger: rec, Metrics: m})
	b := set.Batch("a", "a")
	_ = b.AddTool(Tool{
		Name: "fail",
		Handler: func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("no such table: widgets")
		},
	})
	_ = b.Commit()

	cs := connect(t, server)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "fail"})
	if err == nil {
		t.Fatal("CallTool() error = nil, want protocol error")
	}
	if !strings.Contains(err.Error(), "no such table") {
		t.Errorf("CallTool() error = %v, want driver message", err)
	}
	if !rec.Contains("tool fail call") {
		t.Errorf("expected a dispatch log line, got %v", rec.Lines())
	}
}

func TestDispatch_Timeout(t *testing.T) {
	set, server := newTestSet(t, Options{Timeout: 20 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)

	b := set.Batch("a", "a")
	_ = b.AddTool(Tool{
		Name: "stuck",
		Handler: func(context.Context, map[string]any) (any, error) {
			<-release
			return nil, nil
		},
	})
	_ = b.Commit()

	cs := connect(t, server)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "stuck"})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("CallTool() error = %v, want timeout", err)
	}
}

func TestDispatch_PanicRecovered(t *testing.T) {
	set, server := newTestSet(t, Options{})
	b := set.Batch("a", "a")
	_ = b.AddTool(Tool{
		Name: "panics",
		Handler: func(context.Context, map[string]any) (any, error) {
			panic("boom")
		},
	})
	_ = b.Commit()

	cs := connect(t, server)
	if _, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "panics"}); err == nil {
		t.Error("CallTool() error = nil, want recovered panic")
	}

	// The session survives.
	if _, err := cs.ListTools(context.Background(), nil); err != nil {
		t.Errorf("ListTools() after panic error = %v", err)
	}
}

func TestResourceAndPrompt(t *testing.T) {
	set, server := newTestSet(t, Options{})
	b := set.Batch("sqlite:default", "sqlite")
	_ = b.AddResource(Resource{
		URI:  "dbmcp://sqlite/default/schema",
		Name: "sqlite schema",
		Read: func(context.Context) (any, error) {
			return map[string]any{"tables": []string{"users"}}, nil
		},
	})
	_ = b.AddPrompt(Prompt{
		Name:      "sqlite_explore",
		Arguments: []PromptArgument{{Name: "table", Required: true}},
		Render: func(_ context.Context, args map[string]string) (string, error) {
			return "Describe " + args["table"], nil
		},
	})
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	cs := connect(t, server)
	ctx := context.Background()

	rr, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "dbmcp://sqlite/default/schema"})
	if err != nil {
		t.Fatalf("ReadResource() error = %v", err)
	}
	if len(rr.Contents) != 1 || !strings.Contains(rr.Contents[0].Text, "users") {
		t.Errorf("ReadResource() contents = %+v", rr.Contents)
	}
	if rr.Contents[0].MIMEType != "application/json" {
		t.Errorf("MIMEType = %q, want application/json", rr.Contents[0].MIMEType)
	}

	pr, err := cs.GetPrompt(ctx, &mcp.GetPromptParams{Name: "sqlite_explore", Arguments: map[string]string{"table": "users"}})
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if len(pr.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(pr.Messages))
	}
	if tc, ok := pr.Messages[0].Content.(*mcp.TextContent); !ok || tc.Text != "Describe users" {
		t.Errorf("prompt message = %#v", pr.Messages[0].Content)
	}

	if _, err := cs.GetPrompt(ctx, &mcp.GetPromptParams{Name: "sqlite_explore"}); err == nil {
		t.Error("GetPrompt() without required argument error = nil")
	}
}

func TestTextResult(t *testing.T) {
	res, err := TextResult(map[string]any{"count": 2})
	if err != nil {
		t.Fatalf("TextResult() error = %v", err)
	}
	if got := textOf(t, res); got != "{\n  \"count\": 2\n}" {
		t.Errorf("TextResult() text = %q", got)
	}

	if _, err := TextResult(func() {}); err == nil {
		t.Error("TextResult(func) error = nil, want encode error")
	}
}
