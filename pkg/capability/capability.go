// Package capability implements the host's capability registry. It
// discovers capability declarations on provider instances, normalizes
// their parameter schemas, and registers wrapped handlers with a
// protocol sink that owns wire-format concerns.
package capability

import (
	"context"

	"github.com/modelhost/mcp-host-go/pkg/protocol"
)

// Category identifies the kind of capability a declaration describes
type Category string

const (
	CategoryResource Category = "resource"
	CategoryTool     Category = "tool"
	CategoryPrompt   Category = "prompt"
)

// ResourceHandler serves reads for a resource capability. It receives
// the concrete URI being read plus the parameters extracted from the
// URI template.
type ResourceHandler func(ctx context.Context, uri string, params map[string]interface{}) (interface{}, error)

// ToolHandler executes a tool capability with validated arguments.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// PromptHandler computes the dynamic fields of a prompt capability.
// The returned map is merged over the caller-supplied arguments before
// template substitution; a nil map is allowed.
type PromptHandler func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)

// Param is one declared parameter. Schema accepts the shapes understood
// by the schema package: a type name string, an optional type name, a
// schema.Definition, or a schema.Validator.
type Param struct {
	Name   string
	Schema interface{}
}

// Declaration describes one capability a provider exposes. Exactly one
// handler field matching Category must be set.
type Declaration struct {
	Category    Category
	Name        string
	Description string
	Parameters  []Param

	// URITemplate applies to resources and defaults to "{name}://{id}"
	URITemplate string
	// MimeType applies to resources
	MimeType string
	// Template applies to prompts and must be non-blank
	Template string

	Resource ResourceHandler
	Tool     ToolHandler
	Prompt   PromptHandler
}

// Provider is a host object exposing capabilities for registration.
type Provider interface {
	Capabilities() []Declaration
}

// WrappedResourceHandler is the sink-facing form of a resource handler.
type WrappedResourceHandler func(ctx context.Context, uri string, params map[string]interface{}) (*protocol.ReadResourceResult, error)

// WrappedToolHandler is the sink-facing form of a tool handler.
type WrappedToolHandler func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, error)

// WrappedPromptHandler is the sink-facing form of a prompt handler.
type WrappedPromptHandler func(ctx context.Context, args map[string]interface{}) (*protocol.GetPromptResult, error)

// Sink is the protocol server capabilities are registered into. A
// second registration under the same name replaces the first.
type Sink interface {
	RegisterResource(template protocol.ResourceTemplate, handler WrappedResourceHandler)
	RegisterTool(tool protocol.Tool, handler WrappedToolHandler)
	RegisterPrompt(prompt protocol.Prompt, handler WrappedPromptHandler)
}
