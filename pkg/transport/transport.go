// Package transport provides the server-side transport mechanisms for
// the capability host: a newline-delimited stdio channel and a
// per-session SSE stream. Both share BaseTransport, which owns handler
// registration and raw message dispatch.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/protocol"
)

// RequestHandler handles an incoming request's params and returns the
// result to marshal into the response.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler handles an incoming notification
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Transport is the minimal server-side transport contract. A transport
// carries framed JSON-RPC messages between one peer and the registered
// handlers.
type Transport interface {
	// RegisterRequestHandler registers a handler for a request method
	RegisterRequestHandler(method string, handler RequestHandler)

	// RegisterNotificationHandler registers a handler for a notification method
	RegisterNotificationHandler(method string, handler NotificationHandler)

	// Start begins serving the transport. Stdio blocks until the input
	// stream ends; the SSE transport returns after the initial framing.
	Start(ctx context.Context) error

	// Stop halts the transport and releases its resources
	Stop(ctx context.Context) error

	// Send writes one outbound frame
	Send(data []byte) error
}

// BaseTransport provides handler registration and message dispatch
// shared by the concrete transports.
type BaseTransport struct {
	mu                   sync.RWMutex
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler
}

// NewBaseTransport creates a new BaseTransport
func NewBaseTransport() *BaseTransport {
	return &BaseTransport{
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
	}
}

// RegisterRequestHandler registers a handler for incoming requests
func (t *BaseTransport) RegisterRequestHandler(method string, handler RequestHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestHandlers[method] = handler
}

// RegisterNotificationHandler registers a handler for incoming notifications
func (t *BaseTransport) RegisterNotificationHandler(method string, handler NotificationHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notificationHandlers[method] = handler
}

// HandleRequest processes an incoming request with panic recovery.
// Handler failures become error responses, never transport errors.
func (t *BaseTransport) HandleRequest(ctx context.Context, request *protocol.Request) (resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			debug.PrintStack()
			resp = &protocol.Response{
				JSONRPCMessage: protocol.JSONRPCMessage{JSONRPC: protocol.JSONRPCVersion},
				ID:             request.ID,
				Error: &protocol.Error{
					Code:    protocol.InternalError,
					Message: fmt.Sprintf("internal error processing %s", request.Method),
				},
			}
		}
	}()

	t.mu.RLock()
	handler, ok := t.requestHandlers[request.Method]
	t.mu.RUnlock()

	if !ok {
		errResp, _ := hosterrors.ToJSONRPCResponse(hosterrors.MethodNotFound(request.Method), request.ID)
		return errResp
	}

	result, err := handler(ctx, request.Params)
	if err != nil {
		errResp, convErr := hosterrors.ToJSONRPCResponse(err, request.ID)
		if convErr != nil {
			errResp, _ = protocol.NewErrorResponse(request.ID, protocol.InternalError, err.Error(), nil)
		}
		return errResp
	}

	resp, marshalErr := protocol.NewResponse(request.ID, result)
	if marshalErr != nil {
		errResp, _ := protocol.NewErrorResponse(request.ID, protocol.InternalError,
			fmt.Sprintf("failed to marshal result: %v", marshalErr), nil)
		return errResp
	}
	return resp
}

// HandleNotification processes an incoming notification with panic
// recovery. Unregistered notification methods are ignored: JSON-RPC
// notifications are fire-and-forget.
func (t *BaseTransport) HandleNotification(ctx context.Context, notification *protocol.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error processing notification %s: %v", notification.Method, r)
		}
	}()

	t.mu.RLock()
	handler, ok := t.notificationHandlers[notification.Method]
	t.mu.RUnlock()

	if !ok {
		return nil
	}
	return handler(ctx, notification.Params)
}

// DispatchMessage classifies one raw inbound frame and dispatches it.
// The returned bytes are the response frame to send back, nil when the
// message produces no response (notifications).
func (t *BaseTransport) DispatchMessage(ctx context.Context, data []byte) ([]byte, error) {
	switch {
	case protocol.IsRequest(data):
		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return errorFrame(nil, protocol.ParseError, "invalid request frame")
		}
		resp := t.HandleRequest(ctx, &req)
		return json.Marshal(resp)

	case protocol.IsNotification(data):
		var notif protocol.Notification
		if err := json.Unmarshal(data, &notif); err != nil {
			return nil, fmt.Errorf("invalid notification frame: %w", err)
		}
		return nil, t.HandleNotification(ctx, &notif)

	case protocol.IsResponse(data):
		// A server-side transport has no outstanding client requests;
		// inbound responses are dropped.
		return nil, nil

	default:
		return errorFrame(nil, protocol.InvalidRequest, "unrecognized message")
	}
}

func errorFrame(id interface{}, code protocol.ErrorCode, message string) ([]byte, error) {
	resp, err := protocol.NewErrorResponse(id, code, message, nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}
