package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

// NotificationHandler consumes a server notification's raw parameters.
type NotificationHandler func(params json.RawMessage)

// rpcCaller is the request surface the orchestrator and handshake depend on.
// RpcSession implements it; tests substitute fakes.
type rpcCaller interface {
	Call(ctx context.Context, method string, params, result any) error
	Notify(ctx context.Context, method string, params any) error
}

// RpcSession binds a JSON-RPC 2.0 connection to the subprocess's standard
// streams. The wire framing (Content-Length headers) is handled by the
// jsonrpc2 VSCode codec; this layer adds the fixed per-call timeout and
// notification fan-out.
//
// The stdin/stdout pair is exclusively owned by the session; the supervisor
// may kill the process but transport teardown goes through Close.
type RpcSession struct {
	conn    *jsonrpc2.Conn
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	handlers map[string]NotificationHandler

	closed atomic.Bool
}

// stdioPipe adapts the subprocess pipes to a single io.ReadWriteCloser.
type stdioPipe struct {
	out io.ReadCloser
	in  io.WriteCloser
}

func (p stdioPipe) Read(b []byte) (int, error)  { return p.out.Read(b) }
func (p stdioPipe) Write(b []byte) (int, error) { return p.in.Write(b) }

func (p stdioPipe) Close() error {
	err := p.in.Close()
	if cerr := p.out.Close(); err == nil {
		err = cerr
	}
	return err
}

// NewRpcSession constructs a JSON-RPC session over the given pipes and starts
// its read loop. Notification handlers registered afterwards receive
// notifications as they arrive; notifications without a handler are dropped.
func NewRpcSession(stdin io.WriteCloser, stdout io.ReadCloser, timeout time.Duration, logger *zap.Logger) *RpcSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &RpcSession{
		timeout:  timeout,
		logger:   logger,
		handlers: make(map[string]NotificationHandler),
	}
	stream := jsonrpc2.NewBufferedStream(stdioPipe{out: stdout, in: stdin}, jsonrpc2.VSCodeObjectCodec{})
	r.conn = jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.AsyncHandler(r))
	return r
}

// Handle implements jsonrpc2.Handler. Notifications are routed to their
// registered handler; server-to-client requests are answered with
// MethodNotFound since this bridge declares no reverse capabilities.
func (r *RpcSession) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if !req.Notif {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not supported: %s", req.Method),
		})
		return
	}

	r.mu.Lock()
	handler := r.handlers[req.Method]
	r.mu.Unlock()

	if handler == nil {
		return
	}
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}
	handler(params)
}

// OnNotification registers a handler for a server notification method.
func (r *RpcSession) OnNotification(method string, handler NotificationHandler) {
	r.mu.Lock()
	r.handlers[method] = handler
	r.mu.Unlock()
}

// Call sends a request and waits for its response, bounded by the session
// timeout. A deadline hit is reported as ErrTimeout: the caller treats the
// process as hung and restarts it.
func (r *RpcSession) Call(ctx context.Context, method string, params, result any) error {
	if r.closed.Load() {
		return ErrShutdown
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.conn.Call(cctx, method, params, result)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", method, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", method, err)
}

// Notify sends a notification (no response expected).
func (r *RpcSession) Notify(ctx context.Context, method string, params any) error {
	if r.closed.Load() {
		return ErrShutdown
	}
	if err := r.conn.Notify(ctx, method, params); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Close shuts down the connection and the underlying pipes. Safe to call
// more than once.
func (r *RpcSession) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.conn.Close()
}

// DisconnectNotify returns a channel closed when the connection drops.
func (r *RpcSession) DisconnectNotify() <-chan struct{} {
	return r.conn.DisconnectNotify()
}

// IsProtocolError reports whether err is a JSON-RPC level error (malformed
// or rejected call) as opposed to a transport failure.
func IsProtocolError(err error) bool {
	var rpcErr *jsonrpc2.Error
	return errors.As(err, &rpcErr)
}
