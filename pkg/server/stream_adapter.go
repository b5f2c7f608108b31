package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/logging"
	"github.com/modelhost/mcp-host-go/pkg/observability"
	"github.com/modelhost/mcp-host-go/pkg/transport"
)

// StreamSessionAdapter bridges HTTP clients onto per-session SSE
// transports. A GET opens a stream and receives an endpoint event
// carrying the messages path plus a sessionId token; POSTs to that path
// are routed back to the owning stream by the token.
type StreamSessionAdapter struct {
	server       *Server
	messagesPath string
	logger       logging.Logger
	metrics      observability.MetricsProvider
	keepAlive    time.Duration

	mu       sync.RWMutex
	sessions map[string]*transport.SSETransport
	lastID   string
}

// AdapterOption configures a StreamSessionAdapter
type AdapterOption func(*StreamSessionAdapter)

// WithAdapterLogger sets the adapter logger
func WithAdapterLogger(logger logging.Logger) AdapterOption {
	return func(a *StreamSessionAdapter) {
		a.logger = logger
	}
}

// WithAdapterMetrics sets the metrics provider for session accounting
func WithAdapterMetrics(metrics observability.MetricsProvider) AdapterOption {
	return func(a *StreamSessionAdapter) {
		a.metrics = metrics
	}
}

// WithAdapterKeepAlive overrides the SSE keepalive interval for new
// sessions. Zero disables keepalive pings.
func WithAdapterKeepAlive(interval time.Duration) AdapterOption {
	return func(a *StreamSessionAdapter) {
		a.keepAlive = interval
	}
}

// NewStreamSessionAdapter creates an adapter that connects every opened
// session to the given server. messagesPath is the absolute path
// clients POST follow-up requests to.
func NewStreamSessionAdapter(server *Server, messagesPath string, opts ...AdapterOption) *StreamSessionAdapter {
	a := &StreamSessionAdapter{
		server:       server,
		messagesPath: messagesPath,
		logger:       logging.NewNop(),
		keepAlive:    transport.DefaultKeepAliveInterval,
		sessions:     make(map[string]*transport.SSETransport),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OpenSession starts a new SSE stream on the response writer and
// returns its transport. The stream is registered for routing only
// after it has started successfully.
func (a *StreamSessionAdapter) OpenSession(w http.ResponseWriter, r *http.Request) (*transport.SSETransport, error) {
	sessionID := uuid.New().String()

	tr := transport.NewSSETransport(sessionID, a.messagesPath, w,
		transport.WithSSELogger(a.logger),
		transport.WithKeepAliveInterval(a.keepAlive),
	)
	a.server.Connect(tr)

	if err := tr.Start(r.Context()); err != nil {
		// Start fails before writing anything, so a plain error
		// response is still possible.
		a.writeJSONError(w, err)
		return nil, err
	}

	a.mu.Lock()
	a.sessions[sessionID] = tr
	a.lastID = sessionID
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.RecordSessionOpened(r.Context())
	}
	a.logger.Info("session opened",
		logging.String("session_id", sessionID),
		logging.String("remote_addr", r.RemoteAddr),
	)
	return tr, nil
}

// RouteMessage delivers one POSTed frame to the session named by the
// sessionId query parameter. The response travels on the session's
// stream; the POST itself is acknowledged with 202.
func (a *StreamSessionAdapter) RouteMessage(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	active := len(a.sessions)
	a.mu.RUnlock()

	if active == 0 {
		a.recordRouted(r, "unavailable")
		a.writeJSONError(w, hosterrors.ServiceUnavailable("no active sessions"))
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	tr, err := a.lookup(sessionID)
	if err != nil {
		a.recordRouted(r, "not_found")
		a.writeJSONError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.recordRouted(r, "error")
		a.writeJSONError(w, hosterrors.TransportError("sse", err))
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), tr.SessionID())
	if err := tr.HandleMessage(ctx, body); err != nil {
		a.recordRouted(r, "error")
		a.logger.WithError(err).Error("failed to route message",
			logging.String("session_id", tr.SessionID()),
		)
		a.writeJSONError(w, err)
		return
	}

	a.recordRouted(r, "accepted")
	w.WriteHeader(http.StatusAccepted)
}

// lookup resolves a session token to its transport. An empty token
// falls back to the most recently opened session.
func (a *StreamSessionAdapter) lookup(sessionID string) (*transport.SSETransport, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if sessionID == "" {
		if tr, ok := a.sessions[a.lastID]; ok {
			return tr, nil
		}
		return nil, hosterrors.SessionNotFound(sessionID)
	}
	tr, ok := a.sessions[sessionID]
	if !ok {
		return nil, hosterrors.SessionNotFound(sessionID)
	}
	return tr, nil
}

// CloseSession stops one session and removes it from routing. Unknown
// ids are ignored.
func (a *StreamSessionAdapter) CloseSession(sessionID string) {
	a.mu.Lock()
	tr, ok := a.sessions[sessionID]
	delete(a.sessions, sessionID)
	a.mu.Unlock()

	if !ok {
		return
	}

	if err := tr.Stop(context.Background()); err != nil {
		a.logger.WithError(err).Warn("failed to stop session",
			logging.String("session_id", sessionID),
		)
	}
	if a.metrics != nil {
		a.metrics.RecordSessionClosed(context.Background())
	}
	a.logger.Info("session closed", logging.String("session_id", sessionID))
}

// CloseAll stops every active session. Each failure is logged and the
// sweep continues; calling it again is a no-op.
func (a *StreamSessionAdapter) CloseAll() {
	a.mu.Lock()
	sessions := a.sessions
	a.sessions = make(map[string]*transport.SSETransport)
	a.lastID = ""
	a.mu.Unlock()

	for id, tr := range sessions {
		if err := tr.Stop(context.Background()); err != nil {
			a.logger.WithError(err).Warn("failed to stop session",
				logging.String("session_id", id),
			)
			continue
		}
		if a.metrics != nil {
			a.metrics.RecordSessionClosed(context.Background())
		}
	}

	if len(sessions) > 0 {
		a.logger.Info("all sessions closed", logging.Int("count", len(sessions)))
	}
}

// SessionCount returns the number of active sessions
func (a *StreamSessionAdapter) SessionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

func (a *StreamSessionAdapter) recordRouted(r *http.Request, status string) {
	if a.metrics != nil {
		a.metrics.RecordMessageRouted(r.Context(), status)
	}
}

// writeJSONError renders an error as {"error": name, "message": detail}
// with the status implied by its code.
func (a *StreamSessionAdapter) writeJSONError(w http.ResponseWriter, err error) {
	hostErr := hosterrors.ConvertStandardError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(hosterrors.HTTPStatus(hostErr))

	payload := map[string]string{
		"error":   hosterrors.GetErrorCodeName(hostErr.Code()),
		"message": hostErr.Message(),
	}
	if encodeErr := json.NewEncoder(w).Encode(payload); encodeErr != nil {
		a.logger.WithError(encodeErr).Warn("failed to write error response")
	}
}
