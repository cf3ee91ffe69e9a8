package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

// TCPClient sends payloads to an rpctcp server, one connection per payload.
type TCPClient struct {
	Addr string
	// Timeout bounds the whole exchange when ctx has no earlier deadline.
	// Zero means no limit.
	Timeout time.Duration
	Dialer  net.Dialer
}

// NewTCPClient returns a TCPClient for addr with a 30 second timeout.
func NewTCPClient(addr string) *TCPClient {
	return &TCPClient{Addr: addr, Timeout: 30 * time.Second}
}

// Send implements Sender. It writes payload, half-closes the connection and
// reads until the server closes it.
func (c *TCPClient) Send(ctx context.Context, payload []byte) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	conn, err := c.Dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.Addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write(payload); err != nil {
		return nil, c.wrap(ctx, "write", err)
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return nil, c.wrap(ctx, "close write", err)
		}
	}

	b, err := io.ReadAll(io.LimitReader(conn, maxReplySize))
	if err != nil {
		return nil, c.wrap(ctx, "read", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	return b, nil
}

// wrap prefers the context error over the deadline error it caused.
func (c *TCPClient) wrap(ctx context.Context, op string, err error) error {
	cerr := ctx.Err()
	if deadline, ok := ctx.Deadline(); cerr == nil && ok && !time.Now().Before(deadline) {
		cerr = context.DeadlineExceeded
	}
	if cerr != nil {
		return fmt.Errorf("client: %s: %w", op, errors.Join(cerr, err))
	}
	return fmt.Errorf("client: %s: %w", op, err)
}

// Call sends a single request. See Call.
func (c *TCPClient) Call(ctx context.Context, method string, params, id any) (*jsonrpc.Response, error) {
	return Call(ctx, c, method, params, id)
}

// Notify sends a notification. See Notify.
func (c *TCPClient) Notify(ctx context.Context, method string, params any) error {
	return Notify(ctx, c, method, params)
}

// Batch sends a batch. See Batch.
func (c *TCPClient) Batch(ctx context.Context, reqs ...Request) ([]*jsonrpc.Response, error) {
	return Batch(ctx, c, reqs...)
}
