package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/logging"
)

// DefaultKeepAliveInterval is how often an idle SSE stream is pinged so
// intermediaries do not drop the connection.
const DefaultKeepAliveInterval = 30 * time.Second

// SSETransport serves one client session over a server-sent-events
// stream. Outbound frames are written as "message" events on the GET
// response; inbound frames arrive out of band via HandleMessage, fed by
// the POST messages endpoint.
type SSETransport struct {
	*BaseTransport
	sessionID string
	endpoint  string
	writer    http.ResponseWriter
	flusher   http.Flusher
	logger    logging.Logger
	keepAlive time.Duration

	mu        sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

// SSEOption configures an SSETransport
type SSEOption func(*SSETransport)

// WithSSELogger sets the transport logger
func WithSSELogger(logger logging.Logger) SSEOption {
	return func(t *SSETransport) {
		t.logger = logger
	}
}

// WithKeepAliveInterval overrides the keepalive ping interval. Zero
// disables pings.
func WithKeepAliveInterval(interval time.Duration) SSEOption {
	return func(t *SSETransport) {
		t.keepAlive = interval
	}
}

// NewSSETransport creates an SSE transport for one session. endpoint is
// the absolute messages path the client must POST follow-up requests
// to; the session id is appended as a query parameter in the initial
// endpoint event.
func NewSSETransport(sessionID, endpoint string, w http.ResponseWriter, opts ...SSEOption) *SSETransport {
	t := &SSETransport{
		BaseTransport: NewBaseTransport(),
		sessionID:     sessionID,
		endpoint:      endpoint,
		writer:        w,
		logger:        logging.NewNop(),
		keepAlive:     DefaultKeepAliveInterval,
		closed:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SessionID returns the session id this stream was opened for
func (t *SSETransport) SessionID() string {
	return t.sessionID
}

// Start writes the SSE framing and the initial endpoint event, then
// returns. The error path before any write lets the caller still
// produce a plain HTTP error response.
func (t *SSETransport) Start(context.Context) error {
	if t.writer == nil {
		return hosterrors.TransportSetupFailed("sse", fmt.Errorf("response writer is nil"))
	}

	flusher, ok := t.writer.(http.Flusher)
	if !ok {
		return hosterrors.TransportSetupFailed("sse", fmt.Errorf("response writer does not support streaming"))
	}
	t.flusher = flusher

	header := t.writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	t.writer.WriteHeader(http.StatusOK)

	// The endpoint event tells the client where to POST follow-ups and
	// which session id correlates them with this stream.
	if err := t.writeEvent("endpoint", fmt.Sprintf("%s?sessionId=%s", t.endpoint, t.sessionID)); err != nil {
		return hosterrors.TransportSetupFailed("sse", err)
	}

	if t.keepAlive > 0 {
		go t.keepAliveLoop()
	}
	return nil
}

func (t *SSETransport) keepAliveLoop() {
	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-t.closed:
			return
		case <-ticker.C:
			t.mu.Lock()
			select {
			case <-t.closed:
				t.mu.Unlock()
				return
			default:
			}
			if _, err := fmt.Fprint(t.writer, ": ping\n\n"); err != nil {
				t.mu.Unlock()
				t.logger.Debug("keepalive write failed, closing stream",
					logging.String("session_id", t.sessionID),
				)
				_ = t.Stop(context.Background())
				return
			}
			t.flusher.Flush()
			t.mu.Unlock()
		}
	}
}

// Send writes one outbound frame as a message event
func (t *SSETransport) Send(data []byte) error {
	return t.writeEvent("message", string(data))
}

func (t *SSETransport) writeEvent(event, data string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.closed:
		return hosterrors.TransportError("sse", fmt.Errorf("session %s is closed", t.sessionID))
	default:
	}

	if _, err := fmt.Fprintf(t.writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return hosterrors.TransportError("sse", err)
	}
	if t.flusher != nil {
		t.flusher.Flush()
	}
	return nil
}

// HandleMessage dispatches one inbound frame from the messages
// endpoint. Responses are delivered on the stream, not on the POST.
func (t *SSETransport) HandleMessage(ctx context.Context, data []byte) error {
	select {
	case <-t.closed:
		return hosterrors.TransportError("sse", fmt.Errorf("session %s is closed", t.sessionID))
	default:
	}

	response, err := t.DispatchMessage(ctx, data)
	if err != nil {
		return err
	}
	if response == nil {
		return nil
	}
	return t.Send(response)
}

// Stop closes the stream. Safe to call more than once.
func (t *SSETransport) Stop(context.Context) error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}

// Done is closed when the stream has been stopped. The HTTP handler
// serving the GET blocks on it to keep the response open.
func (t *SSETransport) Done() <-chan struct{} {
	return t.closed
}
