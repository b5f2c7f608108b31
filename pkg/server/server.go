// Package server implements the protocol sink, the stream session
// adapter, and the lifecycle that ties providers, registry, and
// transports together.
package server

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modelhost/mcp-host-go/pkg/capability"
	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/logging"
	"github.com/modelhost/mcp-host-go/pkg/observability"
	"github.com/modelhost/mcp-host-go/pkg/protocol"
	"github.com/modelhost/mcp-host-go/pkg/transport"
)

// Server is the protocol sink. It holds the registered capability
// tables and binds their handlers to the protocol methods of any
// transport it is connected to. Registering a second capability under
// an existing name replaces the first.
type Server struct {
	name         string
	version      string
	instructions string
	capabilities map[string]interface{}
	logger       logging.Logger
	metrics      observability.MetricsProvider

	mu        sync.RWMutex
	tools     map[string]toolEntry
	resources map[string]resourceEntry
	prompts   map[string]promptEntry
	closed    bool
}

type toolEntry struct {
	def     protocol.Tool
	handler capability.WrappedToolHandler
}

type resourceEntry struct {
	template protocol.ResourceTemplate
	handler  capability.WrappedResourceHandler
}

type promptEntry struct {
	def     protocol.Prompt
	handler capability.WrappedPromptHandler
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics provider for request accounting
func WithMetrics(metrics observability.MetricsProvider) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithInstructions sets the instructions returned from initialize
func WithInstructions(instructions string) Option {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithCapabilities sets the advertised capabilities object, passed
// through opaquely to clients.
func WithCapabilities(capabilities map[string]interface{}) Option {
	return func(s *Server) {
		s.capabilities = capabilities
	}
}

// NewServer creates a protocol sink with the given identity
func NewServer(name, version string, opts ...Option) *Server {
	s := &Server{
		name:      name,
		version:   version,
		logger:    logging.NewNop(),
		tools:     make(map[string]toolEntry),
		resources: make(map[string]resourceEntry),
		prompts:   make(map[string]promptEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.capabilities == nil {
		s.capabilities = map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
			"prompts":   map[string]interface{}{},
		}
	}
	return s
}

// RegisterTool implements capability.Sink
func (s *Server) RegisterTool(tool protocol.Tool, handler capability.WrappedToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[tool.Name]; exists {
		s.logger.Debug("replacing existing tool registration", logging.String("name", tool.Name))
	}
	s.tools[tool.Name] = toolEntry{def: tool, handler: handler}
}

// RegisterResource implements capability.Sink
func (s *Server) RegisterResource(template protocol.ResourceTemplate, handler capability.WrappedResourceHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.resources[template.Name]; exists {
		s.logger.Debug("replacing existing resource registration", logging.String("name", template.Name))
	}
	s.resources[template.Name] = resourceEntry{template: template, handler: handler}
}

// RegisterPrompt implements capability.Sink
func (s *Server) RegisterPrompt(prompt protocol.Prompt, handler capability.WrappedPromptHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.prompts[prompt.Name]; exists {
		s.logger.Debug("replacing existing prompt registration", logging.String("name", prompt.Name))
	}
	s.prompts[prompt.Name] = promptEntry{def: prompt, handler: handler}
}

// Connect binds the server's protocol methods to a transport. Every
// transport the host brings up, stdio or per-session SSE, is connected
// to the same server so all sessions see the same capability tables.
func (s *Server) Connect(t transport.Transport) {
	t.RegisterRequestHandler(protocol.MethodInitialize, s.handleInitialize)
	t.RegisterRequestHandler(protocol.MethodPing, s.handlePing)
	t.RegisterRequestHandler(protocol.MethodListTools, s.handleListTools)
	t.RegisterRequestHandler(protocol.MethodCallTool, s.handleCallTool)
	t.RegisterRequestHandler(protocol.MethodListResources, s.handleListResources)
	t.RegisterRequestHandler(protocol.MethodListResourceTemplates, s.handleListResourceTemplates)
	t.RegisterRequestHandler(protocol.MethodReadResource, s.handleReadResource)
	t.RegisterRequestHandler(protocol.MethodListPrompts, s.handleListPrompts)
	t.RegisterRequestHandler(protocol.MethodGetPrompt, s.handleGetPrompt)
	t.RegisterNotificationHandler(protocol.MethodInitialized, s.handleInitialized)
}

func (s *Server) handleInitialize(_ context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, hosterrors.ConvertStandardError(err)
		}
	}

	s.logger.Info("client initializing",
		logging.String("client", p.ClientInfo.Name),
		logging.String("client_version", p.ClientInfo.Version),
		logging.String("protocol_version", p.ProtocolVersion),
	)

	return protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		ServerInfo:      protocol.ServerInfo{Name: s.name, Version: s.version},
		Capabilities:    s.capabilities,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) handleInitialized(context.Context, json.RawMessage) error {
	s.logger.Debug("client initialization complete")
	return nil
}

func (s *Server) handlePing(context.Context, json.RawMessage) (interface{}, error) {
	return protocol.PingResult{}, nil
}

func (s *Server) handleListTools(context.Context, json.RawMessage) (interface{}, error) {
	s.mu.RLock()
	tools := make([]protocol.Tool, 0, len(s.tools))
	for _, entry := range s.tools {
		tools = append(tools, entry.def)
	}
	s.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return protocol.ListToolsResult{Tools: tools}, nil
}

func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	start := time.Now()

	var p protocol.CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, hosterrors.ConvertStandardError(err)
	}

	s.mu.RLock()
	entry, ok := s.tools[p.Name]
	s.mu.RUnlock()

	if !ok {
		s.recordRequest(ctx, protocol.MethodCallTool, "error", start)
		return nil, hosterrors.CapabilityNotFound("tool", p.Name)
	}

	result, err := entry.handler(ctx, p.Arguments)
	if err != nil {
		s.recordRequest(ctx, protocol.MethodCallTool, "error", start)
		return nil, err
	}

	s.recordRequest(ctx, protocol.MethodCallTool, "success", start)
	return result, nil
}

func (s *Server) handleListResources(context.Context, json.RawMessage) (interface{}, error) {
	s.mu.RLock()
	resources := make([]protocol.Resource, 0, len(s.resources))
	for _, entry := range s.resources {
		// Templates without variables address a single resource and are
		// listed concretely.
		if !strings.Contains(entry.template.URITemplate, "{") {
			resources = append(resources, protocol.Resource{
				URI:         entry.template.URITemplate,
				Name:        entry.template.Name,
				Description: entry.template.Description,
				MimeType:    entry.template.MimeType,
			})
		}
	}
	s.mu.RUnlock()

	sort.Slice(resources, func(i, j int) bool { return resources[i].Name < resources[j].Name })
	return protocol.ListResourcesResult{Resources: resources}, nil
}

func (s *Server) handleListResourceTemplates(context.Context, json.RawMessage) (interface{}, error) {
	s.mu.RLock()
	templates := make([]protocol.ResourceTemplate, 0, len(s.resources))
	for _, entry := range s.resources {
		templates = append(templates, entry.template)
	}
	s.mu.RUnlock()

	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return protocol.ListResourceTemplatesResult{ResourceTemplates: templates}, nil
}

func (s *Server) handleReadResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	start := time.Now()

	var p protocol.ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, hosterrors.ConvertStandardError(err)
	}

	s.mu.RLock()
	entries := make([]resourceEntry, 0, len(s.resources))
	for _, entry := range s.resources {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	for _, entry := range entries {
		uriParams, ok := protocol.MatchURITemplate(entry.template.URITemplate, p.URI)
		if !ok {
			continue
		}

		args := make(map[string]interface{}, len(uriParams))
		for k, v := range uriParams {
			args[k] = v
		}

		result, err := entry.handler(ctx, p.URI, args)
		if err != nil {
			s.recordRequest(ctx, protocol.MethodReadResource, "error", start)
			return nil, err
		}
		s.recordRequest(ctx, protocol.MethodReadResource, "success", start)
		return result, nil
	}

	s.recordRequest(ctx, protocol.MethodReadResource, "error", start)
	return nil, hosterrors.ResourceNotFound(p.URI)
}

func (s *Server) handleListPrompts(context.Context, json.RawMessage) (interface{}, error) {
	s.mu.RLock()
	prompts := make([]protocol.Prompt, 0, len(s.prompts))
	for _, entry := range s.prompts {
		prompts = append(prompts, entry.def)
	}
	s.mu.RUnlock()

	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return protocol.ListPromptsResult{Prompts: prompts}, nil
}

func (s *Server) handleGetPrompt(ctx context.Context, params json.RawMessage) (interface{}, error) {
	start := time.Now()

	var p protocol.GetPromptParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, hosterrors.ConvertStandardError(err)
	}

	s.mu.RLock()
	entry, ok := s.prompts[p.Name]
	s.mu.RUnlock()

	if !ok {
		s.recordRequest(ctx, protocol.MethodGetPrompt, "error", start)
		return nil, hosterrors.CapabilityNotFound("prompt", p.Name)
	}

	result, err := entry.handler(ctx, p.Arguments)
	if err != nil {
		s.recordRequest(ctx, protocol.MethodGetPrompt, "error", start)
		return nil, err
	}

	s.recordRequest(ctx, protocol.MethodGetPrompt, "success", start)
	return result, nil
}

func (s *Server) recordRequest(ctx context.Context, method, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest(ctx, method, status, time.Since(start))
	}
}

// Close marks the sink closed. Safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("server closed", logging.String("name", s.name))
	return nil
}
