package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
)

func newTestLogger(buf *bytes.Buffer) Logger {
	formatter := NewTextFormatter()
	formatter.DisableColors = true
	formatter.DisableTimestamp = true
	return New(buf, formatter)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")

	buf.Reset()
	logger.SetLevel(DebugLevel)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	child := logger.WithFields(String("component", "registry"))
	child.Info("child message")
	assert.Contains(t, buf.String(), "registry: child message")

	buf.Reset()
	logger.Info("parent message")
	assert.NotContains(t, buf.String(), "registry")
}

func TestWithErrorExtractsHostErrorContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.WithError(hosterrors.SessionNotFound("sess-1")).Error("route failed")

	out := buf.String()
	assert.Contains(t, out, "route failed")
	assert.Contains(t, out, "error_category=not_found")
	assert.Contains(t, out, "[session sess-1]")
}

func TestSessionIDContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := ContextWithSessionID(context.Background(), "abc-123")
	ctx = ContextWithRequestID(ctx, "req-9")

	logger.WithContext(ctx).Info("routed")

	out := buf.String()
	assert.Contains(t, out, "[req-9]")
	assert.Contains(t, out, "[session abc-123]")

	assert.Equal(t, "abc-123", SessionIDFromContext(ctx))
	assert.Equal(t, "", SessionIDFromContext(context.Background()))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewJSONFormatter()
	formatter.DisableTimestamp = true
	logger := New(&buf, formatter)

	logger.Info("structured", String("transport", "sse"), Int("sessions", 2))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "structured", entry["message"])
	assert.Equal(t, "sse", entry["transport"])
	assert.Equal(t, float64(2), entry["sessions"])
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Info("dropped")
	logger.WithFields(String("k", "v")).Error("also dropped")
	assert.Equal(t, FatalLevel, logger.GetLevel())
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	var seenRequestID string
	handler := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequestID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp/messages", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEmpty(t, seenRequestID)
	assert.Equal(t, seenRequestID, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "status=202")
}

func TestHTTPMiddlewareKeepsSuppliedRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	handler := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upstream-7", RequestIDFromContext(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/mcp/sse", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), "upstream-7")
}
