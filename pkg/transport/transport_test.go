package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/protocol"
)

func TestDispatchRequest(t *testing.T) {
	base := NewBaseTransport()
	base.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return protocol.PingResult{}, nil
	})

	frame := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	out, err := base.DispatchMessage(context.Background(), frame)
	require.NoError(t, err)
	require.NotNil(t, out)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, float64(1), resp.ID)
}

func TestDispatchUnknownMethod(t *testing.T) {
	base := NewBaseTransport()

	frame := []byte(`{"jsonrpc":"2.0","id":7,"method":"bogus/method"}`)
	out, err := base.DispatchMessage(context.Background(), frame)
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.MethodNotFound, resp.Error.Code)
}

func TestDispatchHandlerErrorBecomesErrorResponse(t *testing.T) {
	base := NewBaseTransport()
	base.RegisterRequestHandler("tools/call", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return nil, hosterrors.MissingParameter("a")
	})

	frame := []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{}}`)
	out, err := base.DispatchMessage(context.Background(), frame)
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrorCode(hosterrors.CodeMissingParameter), resp.Error.Code)
}

func TestDispatchPanicRecovery(t *testing.T) {
	base := NewBaseTransport()
	base.RegisterRequestHandler("explode", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		panic("boom")
	})

	frame := []byte(`{"jsonrpc":"2.0","id":3,"method":"explode"}`)
	out, err := base.DispatchMessage(context.Background(), frame)
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InternalError, resp.Error.Code)
}

func TestDispatchNotification(t *testing.T) {
	base := NewBaseTransport()

	received := false
	base.RegisterNotificationHandler(protocol.MethodInitialized, func(ctx context.Context, params json.RawMessage) error {
		received = true
		return nil
	})

	frame := []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	out, err := base.DispatchMessage(context.Background(), frame)
	require.NoError(t, err)
	assert.Nil(t, out, "notifications produce no response frame")
	assert.True(t, received)

	// Unregistered notifications are dropped without error.
	out, err = base.DispatchMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/unknown"}`))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDispatchGarbage(t *testing.T) {
	base := NewBaseTransport()

	out, err := base.DispatchMessage(context.Background(), []byte(`{"hello":"world"}`))
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)
}

func TestStdioTransportRoundTrip(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"
	var output bytes.Buffer

	tr := NewStdioTransport(
		WithStdioReader(strings.NewReader(input)),
		WithStdioWriter(&output),
	)
	tr.RegisterRequestHandler("ping", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return protocol.PingResult{}, nil
	})

	// The reader hits EOF after one frame, so Start returns.
	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Stop(context.Background()))

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 1)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Nil(t, resp.Error)
}

func TestStdioTransportMultipleFrames(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"echo","params":{"n":1}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"echo","params":{"n":2}}` + "\n"
	var output bytes.Buffer

	tr := NewStdioTransport(
		WithStdioReader(strings.NewReader(input)),
		WithStdioWriter(&output),
	)
	tr.RegisterRequestHandler("echo", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var p map[string]interface{}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, err
		}
		return p, nil
	})

	require.NoError(t, tr.Start(context.Background()))

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2, "responses must preserve per-frame ordering")

	for i, line := range lines {
		var resp protocol.Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		assert.Equal(t, float64(i+1), resp.ID)
	}
}

func TestStdioTransportStopIdempotent(t *testing.T) {
	tr := NewStdioTransport(
		WithStdioReader(strings.NewReader("")),
		WithStdioWriter(&bytes.Buffer{}),
	)
	require.NoError(t, tr.Stop(context.Background()))
	require.NoError(t, tr.Stop(context.Background()))
}

func TestStdioTransportCancellation(t *testing.T) {
	reader, _ := newBlockingReader()
	tr := NewStdioTransport(
		WithStdioReader(reader),
		WithStdioWriter(&bytes.Buffer{}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- tr.Start(ctx)
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

// blockingReader blocks Scan until closed
type blockingReader struct {
	ch chan struct{}
}

func newBlockingReader() (*blockingReader, func()) {
	r := &blockingReader{ch: make(chan struct{})}
	return r, func() { close(r.ch) }
}

func (r *blockingReader) Read([]byte) (int, error) {
	<-r.ch
	return 0, fmt.Errorf("closed")
}

func (r *blockingReader) Close() error {
	select {
	case <-r.ch:
	default:
		close(r.ch)
	}
	return nil
}
