package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned by calls on a closed Client.
var ErrClosed = errors.New("session closed")

// Client is a Session over a framed connection. Calls are serialized.
type Client struct {
	mu      sync.Mutex
	conn    Conn
	dec     *FrameDecoder
	timeout time.Duration
	closed  bool
	broken  error
}

var _ Session = (*Client)(nil)

// NewClient wraps an established connection.
func NewClient(conn Conn, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{conn: conn, dec: NewFrameDecoder(conn), timeout: timeout}
}

// Discover lists the deployed models.
func (c *Client) Discover(ctx context.Context) ([]string, error) {
	reply, err := c.roundTrip(ctx, &Request{Type: typeDiscover})
	if err != nil {
		return nil, err
	}
	if reply.Type != typeModels {
		return nil, fmt.Errorf("discover: unexpected reply %q", reply.Type)
	}
	return reply.Models, nil
}

// Invoke runs model on inputs.
func (c *Client) Invoke(ctx context.Context, model string, inputs [][]float32) ([][]float32, Metadata, error) {
	if model == "" {
		return nil, Metadata{}, ErrModelNotFound
	}
	reply, err := c.roundTrip(ctx, &Request{Type: typeInvoke, Model: model, Inputs: inputs})
	if err != nil {
		return nil, Metadata{}, err
	}
	if reply.Type != typeOutputs {
		return nil, Metadata{}, fmt.Errorf("invoke: unexpected reply %q", reply.Type)
	}
	return reply.Outputs, reply.Meta, nil
}

// Close says goodbye on a best-effort basis and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.broken == nil {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
		_ = WriteMessage(c.conn, &Request{Type: typeBye})
	}
	return c.conn.Close()
}

func (c *Client) roundTrip(ctx context.Context, req *Request) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.broken != nil {
		return nil, fmt.Errorf("session unusable: %w", c.broken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := WriteMessage(c.conn, req); err != nil {
		c.broken = err
		return nil, c.wrap(ctx, req.Type, err)
	}

	var reply Reply
	if err := c.dec.ReadMessage(&reply); err != nil {
		var fe *FrameError
		if !errors.As(err, &fe) || fe.IsFatal() {
			c.broken = err
		}
		return nil, c.wrap(ctx, req.Type, err)
	}
	if reply.Type == typeError {
		return nil, &RemoteError{Message: reply.Message}
	}
	return &reply, nil
}

func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}
