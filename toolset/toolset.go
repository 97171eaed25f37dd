package toolset

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandlerFunc is the function signature for tool handlers. args holds the
// decoded call arguments; the returned value is serialized as JSON text.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool describes a callable tool and its handler.
type Tool struct {
	Name        string
	Title       string
	Description string
	InputSchema map[string]any
	Annotations *mcp.ToolAnnotations
	Tags        []string
	Handler     HandlerFunc
}

// Resource describes a readable resource. Read returns a value that is
// serialized as JSON text.
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Read        func(ctx context.Context) (any, error)
}

// PromptArgument describes one argument of a prompt.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// Prompt describes a prompt template. Render produces the text of the single
// user message the prompt expands to.
type Prompt struct {
	Name        string
	Description string
	Arguments   []PromptArgument
	Render      func(ctx context.Context, args map[string]string) (string, error)
}

// Registrar accepts tool, resource, and prompt descriptors.
//
// Contract:
// - Concurrency: a Registrar is used by one goroutine at a time.
// - Errors: Add methods reject invalid descriptors and names already taken
//   within the same registrar or by published descriptors.
type Registrar interface {
	AddTool(t Tool) error
	AddResource(r Resource) error
	AddPrompt(p Prompt) error
}

// ObjectSchema builds a JSON schema object with the given properties and
// required property names.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Prop builds a JSON schema property of the given type.
func Prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
