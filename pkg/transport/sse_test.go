package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/protocol"
)

func newTestSSE(t *testing.T, sessionID string) (*SSETransport, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	tr := NewSSETransport(sessionID, "/mcp/messages", rec, WithKeepAliveInterval(0))
	require.NoError(t, tr.Start(context.Background()))
	return tr, rec
}

func TestSSEStartWritesEndpointEvent(t *testing.T) {
	tr, rec := newTestSSE(t, "sess-1")
	defer tr.Stop(context.Background())

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: endpoint\n")
	assert.Contains(t, body, "data: /mcp/messages?sessionId=sess-1\n")
}

func TestSSEStartRequiresFlusher(t *testing.T) {
	tr := NewSSETransport("sess-1", "/mcp/messages", nil)
	err := tr.Start(context.Background())
	require.Error(t, err)
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeTransportSetupFailed))
}

func TestSSEHandleMessageDeliversResponseOnStream(t *testing.T) {
	tr, rec := newTestSSE(t, "sess-1")
	defer tr.Stop(context.Background())

	tr.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return protocol.PingResult{}, nil
	})

	frame := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.NoError(t, tr.HandleMessage(context.Background(), frame))

	body := rec.Body.String()
	idx := strings.Index(body, "event: message\n")
	require.GreaterOrEqual(t, idx, 0, "response must arrive as a message event")

	dataLine := body[idx:]
	dataLine = dataLine[strings.Index(dataLine, "data: ")+len("data: "):]
	dataLine = dataLine[:strings.Index(dataLine, "\n")]

	var resp protocol.Response
	require.NoError(t, json.Unmarshal([]byte(dataLine), &resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, float64(1), resp.ID)
}

func TestSSESendAfterStopFails(t *testing.T) {
	tr, _ := newTestSSE(t, "sess-1")
	require.NoError(t, tr.Stop(context.Background()))

	err := tr.Send([]byte(`{}`))
	require.Error(t, err)
	assert.True(t, hosterrors.IsCategory(err, hosterrors.CategoryTransport))

	err = tr.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.Error(t, err)
}

func TestSSEStopIdempotentAndSignalsDone(t *testing.T) {
	tr, _ := newTestSSE(t, "sess-1")

	select {
	case <-tr.Done():
		t.Fatal("Done must not be closed before Stop")
	default:
	}

	require.NoError(t, tr.Stop(context.Background()))
	require.NoError(t, tr.Stop(context.Background()))

	select {
	case <-tr.Done():
	default:
		t.Fatal("Done must be closed after Stop")
	}
}

func TestSSESessionID(t *testing.T) {
	tr, _ := newTestSSE(t, "abc-123")
	defer tr.Stop(context.Background())
	assert.Equal(t, "abc-123", tr.SessionID())
}
