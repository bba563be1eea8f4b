package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultReadBufferSize is the size of the buffer used for each read from the
// transport. Frames larger than this simply arrive over several reads.
const DefaultReadBufferSize = 32 * 1024

// Options configures a Client.
type Options struct {
	// Logger receives the client's structured logs. Defaults to slog.Default().
	Logger *slog.Logger

	// ClientID tags every log line of this client. Defaults to a random UUID.
	ClientID string

	// RequestTimeout bounds calls whose context has no deadline. Zero means
	// wait until the response arrives, the context is cancelled, or the
	// client is closed.
	RequestTimeout time.Duration

	// ReadBufferSize overrides DefaultReadBufferSize.
	ReadBufferSize int
}

// Client turns a byte stream to and from tabby-agent into concurrent
// request/response calls plus agent notifications.
//
// The transport's Read must return an error once Close has been called on it,
// otherwise Client.Close blocks waiting for the read loop.
type Client struct {
	id             string
	log            *slog.Logger
	transport      io.ReadWriteCloser
	requestTimeout time.Duration
	readBufferSize int

	pending      *pendingTable
	writer       *frameWriter
	status       *statusTracker
	authRequired chan struct{}

	closeOnce     sync.Once
	transportOnce sync.Once
	closed        chan struct{}
	readDone      chan struct{}
	backgroundMu  sync.Mutex
	background    sync.WaitGroup // in-flight cancellation writes
}

// New creates a Client over transport and starts reading from it.
func New(transport io.ReadWriteCloser, opts Options) *Client {
	id := opts.ClientID
	if id == "" {
		id = uuid.New().String()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	bufSize := opts.ReadBufferSize
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}

	c := &Client{
		id:             id,
		log:            log.With("clientID", id),
		transport:      transport,
		requestTimeout: opts.RequestTimeout,
		readBufferSize: bufSize,
		pending:        newPendingTable(),
		writer:         newFrameWriter(transport),
		status:         newStatusTracker(),
		authRequired:   make(chan struct{}, 1),
		closed:         make(chan struct{}),
		readDone:       make(chan struct{}),
	}

	go c.readLoop()
	return c
}

// ID returns the identifier used to tag this client's logs.
func (c *Client) ID() string {
	return c.id
}

// Status returns the most recently reported agent status.
func (c *Client) Status() Status {
	return c.status.get()
}

// WatchStatus returns a channel that yields the current status and then
// every change. Only the latest value is buffered. The channel is closed when
// stop is called or the client shuts down.
func (c *Client) WatchStatus() (updates <-chan Status, stop func()) {
	return c.status.watch()
}

// AuthRequired signals that the agent asked the user to authenticate again.
// Bursts of notifications may be coalesced into one signal.
func (c *Client) AuthRequired() <-chan struct{} {
	return c.authRequired
}

// Done is closed once the client has shut down, either through Close or
// because the transport reached end of stream.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Pending reports the number of requests still waiting for a response.
func (c *Client) Pending() int {
	return c.pending.len()
}

// Close rejects every pending request with ErrClosed, closes the transport
// and waits for the read loop and any cancellation writes to finish. It is
// safe to call more than once.
func (c *Client) Close() error {
	c.shutdown(nil)

	var err error
	c.transportOnce.Do(func() {
		err = c.transport.Close()
	})
	<-c.readDone

	// cancelRemote checks closed under backgroundMu, so no write can be
	// added once we hold it.
	c.backgroundMu.Lock()
	defer c.backgroundMu.Unlock()
	c.background.Wait()
	return err
}

// Call sends fn with args and decodes the response payload into T.
//
// When ctx is cancelled (or the client's request timeout expires) Call
// returns a *CancelledError at once and asks the agent, with a separate
// cancelRequest, to abandon the work. A response that arrives afterwards is
// discarded.
func Call[T any](ctx context.Context, c *Client, fn string, args ...any) (T, error) {
	var result T
	id, raw, err := c.call(ctx, fn, args)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, &DecodeError{ID: id, Func: fn, Raw: string(raw), Err: err}
	}
	return result, nil
}

type outcome struct {
	raw json.RawMessage
	err error
}

func (c *Client) call(ctx context.Context, fn string, args []any) (int, json.RawMessage, error) {
	if c.isClosed() {
		return 0, nil, ErrClosed
	}

	if c.requestTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
			defer cancel()
		}
	}

	// Buffered so the reader never blocks handing over a result, even when
	// the caller has already given up.
	done := make(chan outcome, 1)
	id := c.pending.allocate()
	err := c.pending.register(id, pendingRequest{
		resolve: func(raw json.RawMessage) { done <- outcome{raw: raw} },
		fail:    func(err error) { done <- outcome{err: err} },
	})
	if err != nil {
		return id, nil, err
	}
	if c.isClosed() {
		c.pending.cancel(id)
		return id, nil, ErrClosed
	}

	data, err := c.writer.send(outboundMessage{ID: id, Body: requestBody{Func: fn, Args: args}})
	if err != nil {
		c.pending.cancel(id)
		c.log.Error("failed to send agent request", "id", id, "func", fn, "error", err)
		return id, nil, err
	}
	c.log.Debug("agent request", "id", id, "request", string(data))

	select {
	case out := <-done:
		return c.finish(id, fn, out)
	case <-ctx.Done():
		if !c.pending.cancel(id) {
			// Resolved or rejected concurrently; the outcome is already
			// on its way.
			return c.finish(id, fn, <-done)
		}
		c.log.Debug("agent request cancelled", "id", id, "func", fn, "reason", ctx.Err())
		c.cancelRemote(id)
		return id, nil, &CancelledError{ID: id, Func: fn, Err: ctx.Err()}
	}
}

func (c *Client) finish(id int, fn string, out outcome) (int, json.RawMessage, error) {
	if out.err != nil {
		return id, nil, out.err
	}
	c.log.Debug("agent response", "id", id, "func", fn, "response", string(out.raw))
	return id, out.raw, nil
}

// cancelRemote asks the agent to stop working on id. The request gets its
// own ID and its response is only logged; nobody waits for it.
func (c *Client) cancelRemote(id int) {
	c.backgroundMu.Lock()
	defer c.backgroundMu.Unlock()
	if c.isClosed() {
		return
	}

	cancelID := c.pending.allocate()
	err := c.pending.register(cancelID, pendingRequest{
		resolve: func(raw json.RawMessage) {
			c.log.Debug("agent cancellation response", "id", cancelID, "response", string(raw))
		},
		fail: func(err error) {
			c.log.Debug("agent cancellation abandoned", "id", cancelID, "error", err)
		},
	})
	if err != nil {
		c.log.Warn("failed to register cancellation", "id", cancelID, "error", err)
		return
	}

	// The slot is taken before returning so the notice precedes any later
	// request from the same caller; only the write itself is deferred.
	slot := c.writer.reserve()
	c.background.Go(func() {
		msg := outboundMessage{ID: cancelID, Body: requestBody{Func: MethodCancelRequest, Args: []any{id}}}
		data, err := c.writer.sendAt(slot, msg)
		if err != nil {
			c.pending.cancel(cancelID)
			c.log.Warn("failed to send agent cancellation", "id", cancelID, "cancelled", id, "error", err)
			return
		}
		c.log.Debug("agent cancellation request", "request", string(data))
	})
}

// readLoop owns the line buffer. It feeds every chunk from the transport
// through the codec and dispatches complete lines synchronously.
func (c *Client) readLoop() {
	defer close(c.readDone)

	var lines lineBuffer
	buf := make([]byte, c.readBufferSize)
	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			for _, line := range lines.Feed(string(buf[:n])) {
				c.handleLine(line)
			}
		}
		if err != nil {
			if tail := lines.Pending(); tail != "" {
				c.log.Warn("agent output ended mid-line", "output", tail)
			}
			c.shutdown(err)
			return
		}
	}
}

// shutdown closes the client once and rejects every pending request. cause
// is the transport error that ended the read loop, or nil for Close.
func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		close(c.closed)

		rejectErr := ErrClosed
		switch {
		case cause == nil:
			c.log.Debug("closing agent client")
		case errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrClosedPipe) || errors.Is(cause, os.ErrClosed):
			c.log.Info("agent output closed")
		default:
			c.log.Error("error reading agent output", "error", cause)
			rejectErr = fmt.Errorf("%w: %w", ErrClosed, cause)
		}

		if n := c.pending.failAll(rejectErr); n > 0 {
			c.log.Warn("rejected pending agent requests", "count", n)
		}
		c.status.stop()
	})
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
