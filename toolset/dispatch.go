package toolset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/dbmcp"
	"github.com/jonwraymond/dbmcp/metrics"
)

// dispatch wraps a tool handler for the MCP server.
func (s *Set) dispatch(t Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := uuid.NewString()
		start := time.Now()

		args, err := decodeArgs(req)
		if err != nil {
			s.finish(t.Name, callID, start, err)
			return nil, &dbmcp.DispatchError{Tool: t.Name, Err: err}
		}

		v, err := dbmcp.Bounded(ctx, s.timeout, t.Name, func(ctx context.Context) (any, error) {
			return t.Handler(ctx, args)
		})
		if err == nil {
			var res *mcp.CallToolResult
			res, err = TextResult(v)
			if err == nil {
				s.finish(t.Name, callID, start, nil)
				return res, nil
			}
		}
		s.finish(t.Name, callID, start, err)
		return nil, &dbmcp.DispatchError{Tool: t.Name, Err: err}
	}
}

func decodeArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	args := map[string]any{}
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func (s *Set) finish(tool, callID string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := metrics.StatusOK
	switch {
	case errors.Is(err, dbmcp.ErrTimeout):
		status = metrics.StatusTimeout
	case err != nil:
		status = metrics.StatusError
	}
	s.metrics.ObserveToolCall(tool, status, elapsed)
	if err != nil {
		s.logger.Logf("tool %s call %s failed after %s: %v", tool, callID, elapsed, err)
		return
	}
	s.logger.Logf("tool %s call %s ok in %s", tool, callID, elapsed)
}

func (s *Set) readResource(r Resource) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		v, err := dbmcp.Bounded(ctx, s.timeout, r.URI, r.Read)
		if err != nil {
			s.logger.Logf("resource %s read failed: %v", r.URI, err)
			return nil, &dbmcp.DispatchError{Tool: r.URI, Err: err}
		}
		text, err := marshalText(v)
		if err != nil {
			return nil, &dbmcp.DispatchError{Tool: r.URI, Err: err}
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: r.URI, MIMEType: r.MIMEType, Text: text}},
		}, nil
	}
}

func (s *Set) renderPrompt(p Prompt) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := map[string]string{}
		if req != nil && req.Params != nil && req.Params.Arguments != nil {
			args = req.Params.Arguments
		}
		for _, a := range p.Arguments {
			if a.Required && args[a.Name] == "" {
				return nil, &dbmcp.DispatchError{Tool: p.Name, Err: &ArgError{Name: a.Name, Reason: "is required"}}
			}
		}
		text, err := dbmcp.Bounded(ctx, s.timeout, p.Name, func(ctx context.Context) (string, error) {
			return p.Render(ctx, args)
		})
		if err != nil {
			return nil, &dbmcp.DispatchError{Tool: p.Name, Err: err}
		}
		return &mcp.GetPromptResult{
			Description: p.Description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: text}},
			},
		}, nil
	}
}
