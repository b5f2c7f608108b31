package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modelhost/mcp-host-go/pkg/capability"
	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/logging"
	"github.com/modelhost/mcp-host-go/pkg/observability"
	"github.com/modelhost/mcp-host-go/pkg/transport"
)

// State is a lifecycle phase. Phases advance in one direction only.
type State int

const (
	StateUninitialized State = iota
	StateRegistering
	StateTransportsStarting
	StateRunning
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRegistering:
		return "registering"
	case StateTransportsStarting:
		return "transports_starting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	defaultSSEEndpoint      = "/sse"
	defaultMessagesEndpoint = "/messages"
	defaultGlobalAPIPrefix  = "/mcp"
	defaultHTTPAddr         = ":8080"
	shutdownTimeout         = 10 * time.Second
)

// Config describes a host instance. Name and Version are required;
// everything else has a working default.
type Config struct {
	Name    string
	Version string

	// HTTP bindings. The SSE stream is served on
	// GlobalAPIPrefix+SSEEndpoint and messages are accepted on
	// GlobalAPIPrefix+MessagesEndpoint.
	HTTPAddr         string
	SSEEndpoint      string
	MessagesEndpoint string
	GlobalAPIPrefix  string

	// EnableStdio also serves the protocol on stdin/stdout.
	EnableStdio bool

	Capabilities map[string]interface{}
	Instructions string
}

// Lifecycle owns a host instance from registration through shutdown.
// It wires providers into the server, starts the configured transports,
// and tears everything down in order.
type Lifecycle struct {
	config   Config
	server   *Server
	registry *capability.Registry
	adapter  *StreamSessionAdapter
	logger   logging.Logger
	metrics  observability.MetricsProvider
	tracer   *observability.TracingProvider

	stdio      *transport.StdioTransport
	httpServer *http.Server

	mu       sync.Mutex
	state    State
	shutdown chan struct{}
	once     sync.Once
}

// LifecycleOption configures a Lifecycle
type LifecycleOption func(*Lifecycle)

// WithLifecycleLogger sets the logger shared by the lifecycle and the
// components it creates.
func WithLifecycleLogger(logger logging.Logger) LifecycleOption {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

// WithLifecycleMetrics sets the metrics provider shared by the
// lifecycle and the components it creates.
func WithLifecycleMetrics(metrics observability.MetricsProvider) LifecycleOption {
	return func(l *Lifecycle) {
		l.metrics = metrics
	}
}

// WithLifecycleTracing sets the tracing provider passed to the registry
func WithLifecycleTracing(tracer *observability.TracingProvider) LifecycleOption {
	return func(l *Lifecycle) {
		l.tracer = tracer
	}
}

// NewLifecycle validates the config and assembles the host components
func NewLifecycle(config Config, opts ...LifecycleOption) (*Lifecycle, error) {
	if strings.TrimSpace(config.Name) == "" {
		return nil, hosterrors.InvalidParameter("name", "host name must not be empty")
	}
	if strings.TrimSpace(config.Version) == "" {
		return nil, hosterrors.InvalidParameter("version", "host version must not be empty")
	}

	if config.HTTPAddr == "" {
		config.HTTPAddr = defaultHTTPAddr
	}
	if config.GlobalAPIPrefix == "" {
		config.GlobalAPIPrefix = defaultGlobalAPIPrefix
	}

	l := &Lifecycle{
		config:   config,
		logger:   logging.NewNop(),
		state:    StateUninitialized,
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	// Endpoint overrides are accepted in config for forward
	// compatibility but the HTTP bindings are fixed.
	if config.SSEEndpoint != "" && config.SSEEndpoint != defaultSSEEndpoint {
		l.logger.Warn("custom SSE endpoint is not supported, serving on default",
			logging.String("requested", config.SSEEndpoint),
			logging.String("effective", defaultSSEEndpoint),
		)
	}
	if config.MessagesEndpoint != "" && config.MessagesEndpoint != defaultMessagesEndpoint {
		l.logger.Warn("custom messages endpoint is not supported, serving on default",
			logging.String("requested", config.MessagesEndpoint),
			logging.String("effective", defaultMessagesEndpoint),
		)
	}

	serverOpts := []Option{
		WithLogger(l.logger),
		WithInstructions(config.Instructions),
	}
	if l.metrics != nil {
		serverOpts = append(serverOpts, WithMetrics(l.metrics))
	}
	if config.Capabilities != nil {
		serverOpts = append(serverOpts, WithCapabilities(config.Capabilities))
	}
	l.server = NewServer(config.Name, config.Version, serverOpts...)

	registryOpts := []capability.Option{capability.WithLogger(l.logger)}
	if l.metrics != nil {
		registryOpts = append(registryOpts, capability.WithMetrics(l.metrics))
	}
	if l.tracer != nil {
		registryOpts = append(registryOpts, capability.WithTracing(l.tracer))
	}
	l.registry = capability.NewRegistry(l.server, registryOpts...)

	adapterOpts := []AdapterOption{WithAdapterLogger(l.logger)}
	if l.metrics != nil {
		adapterOpts = append(adapterOpts, WithAdapterMetrics(l.metrics))
	}
	l.adapter = NewStreamSessionAdapter(l.server, l.messagesPath(), adapterOpts...)

	return l, nil
}

// Server returns the underlying protocol sink
func (l *Lifecycle) Server() *Server {
	return l.server
}

// Adapter returns the stream session adapter
func (l *Lifecycle) Adapter() *StreamSessionAdapter {
	return l.adapter
}

// State returns the current lifecycle phase
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) ssePath() string {
	return l.config.GlobalAPIPrefix + defaultSSEEndpoint
}

func (l *Lifecycle) messagesPath() string {
	return l.config.GlobalAPIPrefix + defaultMessagesEndpoint
}

func (l *Lifecycle) advance(next State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if next <= l.state {
		return hosterrors.Newf(hosterrors.CodeInternalError,
			hosterrors.CategoryInternal, hosterrors.SeverityError,
			"invalid lifecycle transition from %s to %s", l.state, next)
	}
	l.logger.Debug("lifecycle state change",
		logging.String("from", l.state.String()),
		logging.String("to", next.String()),
	)
	l.state = next
	return nil
}

// Run registers the providers, starts the transports, and blocks until
// the context is cancelled or a transport fails. A stdio startup
// failure is fatal; the HTTP listener failing is fatal too.
func (l *Lifecycle) Run(ctx context.Context, providers ...capability.Provider) error {
	if err := l.advance(StateRegistering); err != nil {
		return err
	}
	if err := l.registry.Register(providers...); err != nil {
		l.logger.WithError(err).Error("capability registration failed")
		return err
	}

	if err := l.advance(StateTransportsStarting); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	l.httpServer = &http.Server{
		Addr:    l.config.HTTPAddr,
		Handler: l.buildHandler(),
	}

	g.Go(func() error {
		l.logger.Info("http transport listening",
			logging.String("addr", l.config.HTTPAddr),
			logging.String("sse_path", l.ssePath()),
			logging.String("messages_path", l.messagesPath()),
		)
		if l.metrics != nil {
			l.metrics.RecordTransportEvent(gctx, "sse", "started")
		}
		if err := l.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return hosterrors.TransportSetupFailed("http", err)
		}
		return nil
	})

	if l.config.EnableStdio {
		l.stdio = transport.NewStdioTransport(transport.WithStdioLogger(l.logger))
		l.server.Connect(l.stdio)

		g.Go(func() error {
			l.logger.Info("stdio transport started")
			if l.metrics != nil {
				l.metrics.RecordTransportEvent(gctx, "stdio", "started")
			}
			if err := l.stdio.Start(gctx); err != nil && err != context.Canceled {
				l.logger.WithError(err).Error("stdio transport failed")
				return hosterrors.TransportSetupFailed("stdio", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-l.shutdown:
		}
		l.teardown()
		return gctx.Err()
	})

	if err := l.advance(StateRunning); err != nil {
		return err
	}
	l.logger.Info("host running",
		logging.String("name", l.config.Name),
		logging.String("version", l.config.Version),
	)

	err := g.Wait()
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func (l *Lifecycle) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(l.ssePath(), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		tr, err := l.adapter.OpenSession(w, r)
		if err != nil {
			return
		}

		// Hold the response open until the session ends or the client
		// disconnects.
		select {
		case <-tr.Done():
		case <-r.Context().Done():
		}
		l.adapter.CloseSession(tr.SessionID())
	})

	mux.HandleFunc(l.messagesPath(), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		l.adapter.RouteMessage(w, r)
	})

	return logging.HTTPMiddleware(l.logger)(mux)
}

// Shutdown stops the host. Transports are torn down first, then active
// sessions, then the sink. Each step is best effort and failures are
// logged, not returned. Safe to call more than once.
func (l *Lifecycle) Shutdown() {
	l.once.Do(func() {
		close(l.shutdown)
	})
}

func (l *Lifecycle) teardown() {
	if err := l.advance(StateShuttingDown); err != nil {
		return
	}
	l.logger.Info("host shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if l.stdio != nil {
		if err := l.stdio.Stop(ctx); err != nil {
			l.logger.WithError(err).Warn("failed to stop stdio transport")
		}
		if l.metrics != nil {
			l.metrics.RecordTransportEvent(ctx, "stdio", "stopped")
		}
	}

	l.adapter.CloseAll()

	if l.httpServer != nil {
		if err := l.httpServer.Shutdown(ctx); err != nil {
			l.logger.WithError(err).Warn("failed to stop http transport")
		}
		if l.metrics != nil {
			l.metrics.RecordTransportEvent(ctx, "sse", "stopped")
		}
	}

	if err := l.server.Close(); err != nil {
		l.logger.WithError(err).Warn("failed to close server")
	}

	if err := l.advance(StateClosed); err == nil {
		l.logger.Info("host closed")
	}
}
