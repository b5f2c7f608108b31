package capability

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/protocol"
)

// mockSink records registrations the way the protocol server would,
// including the replace-on-duplicate behavior.
type mockSink struct {
	resources map[string]WrappedResourceHandler
	templates map[string]protocol.ResourceTemplate
	tools     map[string]WrappedToolHandler
	toolDefs  map[string]protocol.Tool
	prompts   map[string]WrappedPromptHandler
}

func newMockSink() *mockSink {
	return &mockSink{
		resources: make(map[string]WrappedResourceHandler),
		templates: make(map[string]protocol.ResourceTemplate),
		tools:     make(map[string]WrappedToolHandler),
		toolDefs:  make(map[string]protocol.Tool),
		prompts:   make(map[string]WrappedPromptHandler),
	}
}

func (s *mockSink) RegisterResource(template protocol.ResourceTemplate, handler WrappedResourceHandler) {
	s.templates[template.Name] = template
	s.resources[template.Name] = handler
}

func (s *mockSink) RegisterTool(tool protocol.Tool, handler WrappedToolHandler) {
	s.toolDefs[tool.Name] = tool
	s.tools[tool.Name] = handler
}

func (s *mockSink) RegisterPrompt(prompt protocol.Prompt, handler WrappedPromptHandler) {
	s.prompts[prompt.Name] = handler
}

// declProvider exposes a fixed set of declarations
type declProvider []Declaration

func (p declProvider) Capabilities() []Declaration {
	return p
}

func TestRegisterToolShapesScalarResult(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	provider := declProvider{{
		Category:    CategoryTool,
		Name:        "add",
		Description: "adds two numbers",
		Parameters: []Param{
			{Name: "a", Schema: "number"},
			{Name: "b", Schema: "number"},
		},
		Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	}}

	require.NoError(t, registry.Register(provider))
	require.Contains(t, sink.tools, "add")

	result, err := sink.tools["add"](context.Background(), map[string]interface{}{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(protocol.TextContent)
	require.True(t, ok, "scalar result must become a text content entry")
	assert.Equal(t, "5", text.Text)
}

func TestToolArgumentValidation(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	require.NoError(t, registry.Register(declProvider{{
		Category:   CategoryTool,
		Name:       "add",
		Parameters: []Param{{Name: "a", Schema: "number"}, {Name: "b", Schema: "number"}},
		Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			t.Fatal("handler must not run on invalid args")
			return nil, nil
		},
	}}))

	_, err := sink.tools["add"](context.Background(), map[string]interface{}{"a": 2.0})
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeMissingParameter))

	_, err = sink.tools["add"](context.Background(), map[string]interface{}{"a": 2.0, "b": "three"})
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeInvalidParameter))
}

func TestToolNilResultIsContractViolation(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	require.NoError(t, registry.Register(declProvider{{
		Category: CategoryTool,
		Name:     "void",
		Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	}}))

	_, err := sink.tools["void"](context.Background(), nil)
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeHandlerContractViolation))
}

func TestToolHandlerErrorPassesThroughUnchanged(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	boom := fmt.Errorf("downstream exploded")
	require.NoError(t, registry.Register(declProvider{{
		Category: CategoryTool,
		Name:     "fragile",
		Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, boom
		},
	}}))

	_, err := sink.tools["fragile"](context.Background(), nil)
	assert.Equal(t, boom, err)
}

func TestResourceDefaultURITemplate(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	require.NoError(t, registry.Register(declProvider{{
		Category: CategoryResource,
		Name:     "files",
		Resource: func(ctx context.Context, uri string, params map[string]interface{}) (interface{}, error) {
			return "content of " + fmt.Sprintf("%v", params["id"]), nil
		},
	}}))

	template := sink.templates["files"]
	assert.Equal(t, "files://{id}", template.URITemplate)

	result, err := sink.resources["files"](context.Background(), "files://readme", map[string]interface{}{"id": "readme"})
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "content of readme", result.Contents[0].Text)
	assert.Equal(t, "files://readme", result.Contents[0].URI)
}

func TestResourceNilResultIsContractViolation(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	require.NoError(t, registry.Register(declProvider{{
		Category: CategoryResource,
		Name:     "files",
		Resource: func(ctx context.Context, uri string, params map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	}}))

	_, err := sink.resources["files"](context.Background(), "files://missing", map[string]interface{}{"id": "missing"})
	require.Error(t, err)
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeHandlerContractViolation))
}

func TestPromptBlankTemplateFailsRegistration(t *testing.T) {
	registry := NewRegistry(newMockSink())

	err := registry.Register(declProvider{{
		Category: CategoryPrompt,
		Name:     "greet",
		Template: "   ",
		Prompt: func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
			return nil, nil
		},
	}})

	require.Error(t, err)
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeInvalidCapabilityDefinition))
}

func TestPromptMergePrecedenceAndSubstitution(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	require.NoError(t, registry.Register(declProvider{{
		Category:   CategoryPrompt,
		Name:       "greet",
		Template:   "Hello {name}, today is {day}.",
		Parameters: []Param{{Name: "name", Schema: "string"}},
		Prompt: func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
			// The handler's value for "name" must win over the caller's.
			return map[string]interface{}{"name": "Dr. " + args["name"].(string), "day": "Tuesday"}, nil
		},
	}}))

	result, err := sink.prompts["greet"](context.Background(), map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "Hello Dr. Ada, today is Tuesday.", result.Messages[0].Content.Text)
}

func TestEmptyNameFailsRegistration(t *testing.T) {
	registry := NewRegistry(newMockSink())

	err := registry.Register(declProvider{{
		Category: CategoryTool,
		Name:     "  ",
		Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return 0, nil
		},
	}})

	require.Error(t, err)
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeInvalidCapabilityDefinition))
}

func TestNilHandlerFailsRegistration(t *testing.T) {
	registry := NewRegistry(newMockSink())

	for _, decl := range []Declaration{
		{Category: CategoryTool, Name: "t"},
		{Category: CategoryResource, Name: "r"},
		{Category: CategoryPrompt, Name: "p", Template: "x"},
	} {
		err := registry.Register(declProvider{decl})
		assert.True(t, hosterrors.IsCode(err, hosterrors.CodeInvalidCapabilityDefinition),
			"category %s must reject a nil handler", decl.Category)
	}
}

func TestDuplicateToolLastRegistrationWins(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	makeTool := func(reply string) Declaration {
		return Declaration{
			Category: CategoryTool,
			Name:     "echo",
			Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				return reply, nil
			},
		}
	}

	require.NoError(t, registry.Register(declProvider{makeTool("first"), makeTool("second")}))

	result, err := sink.tools["echo"](context.Background(), nil)
	require.NoError(t, err)
	text := result.Content[0].(protocol.TextContent)
	assert.Equal(t, "second", text.Text)
}

func TestToolListResultPassesThrough(t *testing.T) {
	sink := newMockSink()
	registry := NewRegistry(sink)

	entries := []interface{}{
		protocol.NewTextContent("one"),
		protocol.NewTextContent("two"),
	}
	require.NoError(t, registry.Register(declProvider{{
		Category: CategoryTool,
		Name:     "list",
		Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return entries, nil
		},
	}}))

	result, err := sink.tools["list"](context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, entries, result.Content)
}

func TestRenderTemplate(t *testing.T) {
	out := RenderTemplate("sum of {a} and {b} is {missing}", map[string]interface{}{"a": 2, "b": 3})
	assert.Equal(t, "sum of 2 and 3 is {missing}", out)

	assert.Equal(t, "static", RenderTemplate("static", nil))
}
