package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelhost/mcp-host-go/pkg/protocol"
	"github.com/modelhost/mcp-host-go/pkg/transport"
)

func newTestAdapter(t *testing.T) *StreamSessionAdapter {
	t.Helper()
	srv := NewServer("test-host", "0.1.0")
	return NewStreamSessionAdapter(srv, "/mcp/messages", WithAdapterKeepAlive(0))
}

func openTestSession(t *testing.T, a *StreamSessionAdapter) (*transport.SSETransport, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mcp/sse", nil)
	tr, err := a.OpenSession(rec, req)
	require.NoError(t, err)
	return tr, rec
}

func TestRouteMessageBeforeAnySession(t *testing.T) {
	a := newTestAdapter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp/messages", strings.NewReader(`{}`))
	a.RouteMessage(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload["error"])
	assert.NotEmpty(t, payload["message"])
}

func TestOpenSessionWritesEndpointEvent(t *testing.T) {
	a := newTestAdapter(t)
	tr, rec := openTestSession(t, a)
	defer a.CloseSession(tr.SessionID())

	body := rec.Body.String()
	assert.Contains(t, body, "event: endpoint\n")
	assert.Contains(t, body, "data: /mcp/messages?sessionId="+tr.SessionID()+"\n")
	assert.Equal(t, 1, a.SessionCount())
}

func TestRouteMessageDeliversResponseOnStream(t *testing.T) {
	a := newTestAdapter(t)
	tr, rec := openTestSession(t, a)
	defer a.CloseSession(tr.SessionID())

	frame := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	postRec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp/messages?sessionId="+tr.SessionID(), strings.NewReader(frame))
	a.RouteMessage(postRec, req)

	assert.Equal(t, http.StatusAccepted, postRec.Code)
	assert.Empty(t, postRec.Body.String(), "the response travels on the stream, not the POST")

	body := rec.Body.String()
	idx := strings.Index(body, "event: message\n")
	require.GreaterOrEqual(t, idx, 0)

	dataLine := body[idx:]
	dataLine = dataLine[strings.Index(dataLine, "data: ")+len("data: "):]
	dataLine = dataLine[:strings.Index(dataLine, "\n")]

	var resp protocol.Response
	require.NoError(t, json.Unmarshal([]byte(dataLine), &resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, float64(1), resp.ID)
}

func TestRouteMessageUnknownSession(t *testing.T) {
	a := newTestAdapter(t)
	tr, rec := openTestSession(t, a)
	defer a.CloseSession(tr.SessionID())

	before := rec.Body.Len()

	postRec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp/messages?sessionId=not-a-session",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	a.RouteMessage(postRec, req)

	assert.Equal(t, http.StatusNotFound, postRec.Code)
	assert.Equal(t, before, rec.Body.Len(), "an unknown token must not touch live streams")
}

func TestRouteMessageTokenlessFallsBackToNewestSession(t *testing.T) {
	a := newTestAdapter(t)
	first, firstRec := openTestSession(t, a)
	defer a.CloseSession(first.SessionID())
	second, secondRec := openTestSession(t, a)
	defer a.CloseSession(second.SessionID())

	firstLen := firstRec.Body.Len()

	postRec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp/messages",
		strings.NewReader(`{"jsonrpc":"2.0","id":9,"method":"ping"}`))
	a.RouteMessage(postRec, req)

	assert.Equal(t, http.StatusAccepted, postRec.Code)
	assert.Equal(t, firstLen, firstRec.Body.Len())
	assert.Contains(t, secondRec.Body.String(), "event: message\n")
}

func TestSessionsAreIndependent(t *testing.T) {
	a := newTestAdapter(t)
	first, firstRec := openTestSession(t, a)
	second, secondRec := openTestSession(t, a)
	defer a.CloseAll()

	require.NotEqual(t, first.SessionID(), second.SessionID())

	firstLen := firstRec.Body.Len()

	postRec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp/messages?sessionId="+second.SessionID(),
		strings.NewReader(`{"jsonrpc":"2.0","id":5,"method":"ping"}`))
	a.RouteMessage(postRec, req)

	assert.Equal(t, http.StatusAccepted, postRec.Code)
	assert.Equal(t, firstLen, firstRec.Body.Len())
	assert.Contains(t, secondRec.Body.String(), "event: message\n")
}

func TestCloseSessionStopsRouting(t *testing.T) {
	a := newTestAdapter(t)
	tr, _ := openTestSession(t, a)

	a.CloseSession(tr.SessionID())
	assert.Equal(t, 0, a.SessionCount())

	select {
	case <-tr.Done():
	default:
		t.Fatal("closed session must signal Done")
	}

	postRec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp/messages?sessionId="+tr.SessionID(),
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	a.RouteMessage(postRec, req)
	assert.Equal(t, http.StatusServiceUnavailable, postRec.Code)
}

func TestCloseAllIdempotent(t *testing.T) {
	a := newTestAdapter(t)

	// Nothing open yet.
	a.CloseAll()

	first, _ := openTestSession(t, a)
	second, _ := openTestSession(t, a)

	a.CloseAll()
	assert.Equal(t, 0, a.SessionCount())

	for _, tr := range []*transport.SSETransport{first, second} {
		select {
		case <-tr.Done():
		default:
			t.Fatalf("session %s must be stopped after CloseAll", tr.SessionID())
		}
	}

	// Calling again is a no-op.
	a.CloseAll()
}

func TestCloseSessionUnknownIDIgnored(t *testing.T) {
	a := newTestAdapter(t)
	a.CloseSession("never-opened")
	assert.Equal(t, 0, a.SessionCount())
}
