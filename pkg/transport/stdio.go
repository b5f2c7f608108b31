package transport

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/logging"
)

// StdioTransport carries newline-delimited JSON-RPC frames over a pair
// of byte streams, by default stdin/stdout. It is the channel used when
// the host runs as a child process of its client.
type StdioTransport struct {
	*BaseTransport
	reader    io.Reader
	writer    *bufio.Writer
	logger    logging.Logger
	mu        sync.Mutex
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// StdioOption configures a StdioTransport
type StdioOption func(*StdioTransport)

// WithStdioReader overrides the input stream, primarily for tests
func WithStdioReader(r io.Reader) StdioOption {
	return func(t *StdioTransport) {
		t.reader = r
	}
}

// WithStdioWriter overrides the output stream, primarily for tests
func WithStdioWriter(w io.Writer) StdioOption {
	return func(t *StdioTransport) {
		t.writer = bufio.NewWriter(w)
	}
}

// WithStdioLogger sets the transport logger
func WithStdioLogger(logger logging.Logger) StdioOption {
	return func(t *StdioTransport) {
		t.logger = logger
	}
}

// NewStdioTransport creates a stdio transport bound to stdin/stdout
func NewStdioTransport(opts ...StdioOption) *StdioTransport {
	t := &StdioTransport{
		BaseTransport: NewBaseTransport(),
		reader:        os.Stdin,
		writer:        bufio.NewWriter(os.Stdout),
		logger:        logging.NewNop(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start reads frames from the input stream until EOF or cancellation.
// Each frame is dispatched to the registered handlers and the response
// frame, if any, is written back.
func (t *StdioTransport) Start(ctx context.Context) error {
	var startErr error
	started := false

	t.startOnce.Do(func() {
		started = true
		startErr = t.run(ctx)
	})

	if !started {
		return hosterrors.TransportError("stdio", errAlreadyStarted)
	}
	return startErr
}

func (t *StdioTransport) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	scannerDone := make(chan struct{})

	g.Go(func() error {
		defer close(scannerDone)

		scanner := bufio.NewScanner(t.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

		for scanner.Scan() {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-t.done:
				return nil
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			// Copy before the next Scan overwrites the buffer.
			data := make([]byte, len(line))
			copy(data, line)

			t.processFrame(gctx, data)
		}

		if err := scanner.Err(); err != nil && err != io.EOF {
			return hosterrors.TransportError("stdio", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			t.closeReader()
			return gctx.Err()
		case <-t.done:
			t.closeReader()
			return nil
		case <-scannerDone:
			return nil
		}
	})

	return g.Wait()
}

func (t *StdioTransport) processFrame(ctx context.Context, data []byte) {
	response, err := t.DispatchMessage(ctx, data)
	if err != nil {
		t.logger.WithError(err).Error("failed to dispatch frame",
			logging.String("component", "stdio"),
		)
		return
	}
	if response == nil {
		return
	}
	if err := t.Send(response); err != nil {
		t.logger.WithError(err).Error("failed to write response frame",
			logging.String("component", "stdio"),
		)
	}
}

// closeReader unblocks a pending Scan by closing the input stream.
func (t *StdioTransport) closeReader() {
	if closer, ok := t.reader.(io.Closer); ok {
		_ = closer.Close()
	}
}

// Stop halts the transport, flushing any buffered output.
func (t *StdioTransport) Stop(context.Context) error {
	var flushErr error

	t.stopOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		flushErr = t.writer.Flush()
		t.mu.Unlock()
	})

	if flushErr != nil {
		return hosterrors.TransportError("stdio", flushErr)
	}
	return nil
}

// Send writes one frame followed by a newline and flushes immediately
// so the peer never waits on a buffered message.
func (t *StdioTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return hosterrors.TransportError("stdio", err)
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return hosterrors.TransportError("stdio", err)
	}
	if err := t.writer.Flush(); err != nil {
		return hosterrors.TransportError("stdio", err)
	}
	return nil
}

var errAlreadyStarted = &startedError{}

type startedError struct{}

func (*startedError) Error() string {
	return "transport already started"
}
