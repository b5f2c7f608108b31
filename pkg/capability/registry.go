package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/logging"
	"github.com/modelhost/mcp-host-go/pkg/observability"
	"github.com/modelhost/mcp-host-go/pkg/protocol"
	"github.com/modelhost/mcp-host-go/pkg/schema"
)

// Registry discovers capability declarations on providers and registers
// wrapped handlers with the sink. Registration order across providers
// is unspecified; duplicate names within a category replace the earlier
// registration.
type Registry struct {
	sink    Sink
	logger  logging.Logger
	metrics observability.MetricsProvider
	tracer  *observability.TracingProvider
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics provider used to record capability calls
func WithMetrics(metrics observability.MetricsProvider) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// WithTracing sets the tracing provider used to span capability calls
func WithTracing(tracer *observability.TracingProvider) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// NewRegistry creates a registry bound to a sink
func NewRegistry(sink Sink, opts ...Option) *Registry {
	r := &Registry{
		sink:   sink,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register walks the providers' declarations and registers each with
// the sink. Structural errors in a declaration are fatal: registration
// stops and the error propagates so startup aborts.
func (r *Registry) Register(providers ...Provider) error {
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		for _, decl := range provider.Capabilities() {
			if err := r.registerOne(decl); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) registerOne(decl Declaration) error {
	if strings.TrimSpace(decl.Name) == "" {
		return hosterrors.InvalidCapabilityDefinition(string(decl.Category), decl.Name, "name must not be empty")
	}

	specs := r.normalizeParams(decl)

	switch decl.Category {
	case CategoryResource:
		return r.registerResource(decl, specs)
	case CategoryTool:
		return r.registerTool(decl, specs)
	case CategoryPrompt:
		return r.registerPrompt(decl, specs)
	default:
		return hosterrors.InvalidCapabilityDefinition(string(decl.Category), decl.Name,
			fmt.Sprintf("unknown capability category %q", decl.Category))
	}
}

// normalizeParams resolves every declared parameter through the schema
// normalizer, preserving declaration order.
func (r *Registry) normalizeParams(decl Declaration) []schema.ParamSpec {
	logger := r.logger.WithFields(
		logging.String("capability", decl.Name),
		logging.String("category", string(decl.Category)),
	)

	specs := make([]schema.ParamSpec, 0, len(decl.Parameters))
	for _, param := range decl.Parameters {
		specs = append(specs, schema.Normalize(param.Name, param.Schema, logger))
	}
	return specs
}

func (r *Registry) registerResource(decl Declaration, specs []schema.ParamSpec) error {
	if decl.Resource == nil {
		return hosterrors.InvalidCapabilityDefinition(string(decl.Category), decl.Name, "resource handler must not be nil")
	}

	uriTemplate := decl.URITemplate
	if uriTemplate == "" {
		uriTemplate = decl.Name + "://{id}"
	}

	template := protocol.ResourceTemplate{
		URITemplate: uriTemplate,
		Name:        decl.Name,
		Description: decl.Description,
		MimeType:    decl.MimeType,
	}

	handler := decl.Resource
	wrapped := func(ctx context.Context, uri string, params map[string]interface{}) (*protocol.ReadResourceResult, error) {
		finish := r.observe(&ctx, decl, attribute.String("resource.uri", uri))

		if err := schema.ValidateArgs(specs, params); err != nil {
			finish(err)
			return nil, err
		}

		result, err := handler(ctx, uri, params)
		if err != nil {
			r.logHandlerError(decl, err)
			finish(err)
			return nil, err
		}
		if result == nil {
			err := hosterrors.HandlerContractViolation(string(decl.Category), decl.Name, "handler returned no content")
			r.logHandlerError(decl, err)
			finish(err)
			return nil, err
		}

		shaped := shapeResourceResult(uri, decl.MimeType, result)
		finish(nil)
		return shaped, nil
	}

	r.sink.RegisterResource(template, wrapped)
	r.logger.Info("registered resource",
		logging.String("name", decl.Name),
		logging.String("uri_template", uriTemplate),
	)
	return nil
}

func (r *Registry) registerTool(decl Declaration, specs []schema.ParamSpec) error {
	if decl.Tool == nil {
		return hosterrors.InvalidCapabilityDefinition(string(decl.Category), decl.Name, "tool handler must not be nil")
	}

	inputSchema, err := schema.InputSchema(specs)
	if err != nil {
		return hosterrors.InvalidCapabilityDefinition(string(decl.Category), decl.Name, err.Error())
	}

	tool := protocol.Tool{
		Name:        decl.Name,
		Description: decl.Description,
		InputSchema: inputSchema,
	}

	handler := decl.Tool
	wrapped := func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, error) {
		finish := r.observe(&ctx, decl)

		if err := schema.ValidateArgs(specs, args); err != nil {
			finish(err)
			return nil, err
		}

		result, err := handler(ctx, args)
		if err != nil {
			r.logHandlerError(decl, err)
			finish(err)
			return nil, err
		}
		if result == nil {
			err := hosterrors.HandlerContractViolation(string(decl.Category), decl.Name, "handler returned no result")
			r.logHandlerError(decl, err)
			finish(err)
			return nil, err
		}

		shaped := shapeToolResult(result)
		finish(nil)
		return shaped, nil
	}

	r.sink.RegisterTool(tool, wrapped)
	r.logger.Info("registered tool", logging.String("name", decl.Name))
	return nil
}

func (r *Registry) registerPrompt(decl Declaration, specs []schema.ParamSpec) error {
	if decl.Prompt == nil {
		return hosterrors.InvalidCapabilityDefinition(string(decl.Category), decl.Name, "prompt handler must not be nil")
	}
	// Blank templates are a build-time contract violation, caught here
	// rather than on first use.
	if strings.TrimSpace(decl.Template) == "" {
		return hosterrors.InvalidCapabilityDefinition(string(decl.Category), decl.Name, "prompt template must not be blank")
	}

	arguments := make([]protocol.PromptArgument, 0, len(specs))
	for _, spec := range specs {
		arguments = append(arguments, protocol.PromptArgument{
			Name:        spec.Name,
			Description: spec.Description,
			Required:    spec.Required,
		})
	}

	prompt := protocol.Prompt{
		Name:        decl.Name,
		Description: decl.Description,
		Arguments:   arguments,
	}

	handler := decl.Prompt
	template := decl.Template
	wrapped := func(ctx context.Context, args map[string]interface{}) (*protocol.GetPromptResult, error) {
		finish := r.observe(&ctx, decl)

		if err := schema.ValidateArgs(specs, args); err != nil {
			finish(err)
			return nil, err
		}

		extras, err := handler(ctx, args)
		if err != nil {
			r.logHandlerError(decl, err)
			finish(err)
			return nil, err
		}

		// Caller-supplied arguments take lower precedence than the
		// handler's dynamic fields.
		values := make(map[string]interface{}, len(args)+len(extras))
		for k, v := range args {
			values[k] = v
		}
		for k, v := range extras {
			values[k] = v
		}

		result := &protocol.GetPromptResult{
			Description: decl.Description,
			Messages: []protocol.PromptMessage{
				{
					Role:    "user",
					Content: protocol.NewTextContent(RenderTemplate(template, values)),
				},
			},
		}
		finish(nil)
		return result, nil
	}

	r.sink.RegisterPrompt(prompt, wrapped)
	r.logger.Info("registered prompt", logging.String("name", decl.Name))
	return nil
}

// observe starts a span and a timer for one capability call and returns
// the function that closes both out with the call's outcome.
func (r *Registry) observe(ctx *context.Context, decl Declaration, attrs ...attribute.KeyValue) func(error) {
	start := time.Now()

	var span trace.Span
	if r.tracer != nil {
		spanAttrs := append([]attribute.KeyValue{
			attribute.String("capability.name", decl.Name),
			attribute.String("capability.category", string(decl.Category)),
		}, attrs...)
		*ctx, span = r.tracer.StartSpan(*ctx, string(decl.Category)+"/"+decl.Name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(spanAttrs...),
		)
	}

	callCtx := *ctx
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}

		if r.metrics != nil {
			duration := time.Since(start)
			switch decl.Category {
			case CategoryTool:
				r.metrics.RecordToolCall(callCtx, decl.Name, status, duration)
			case CategoryResource:
				r.metrics.RecordResourceRead(callCtx, decl.Name, status, duration)
			case CategoryPrompt:
				r.metrics.RecordPromptRender(callCtx, decl.Name, status, duration)
			}
		}

		if span != nil {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}
	}
}

// logHandlerError records a handler failure with capability context.
// The error itself is re-raised unchanged to the sink.
func (r *Registry) logHandlerError(decl Declaration, err error) {
	r.logger.WithError(err).Error("capability handler failed",
		logging.String("capability", decl.Name),
		logging.String("category", string(decl.Category)),
	)
}
