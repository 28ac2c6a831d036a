package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrReadTimeout is returned when a serial read window passes with no data.
var ErrReadTimeout = errors.New("read timeout")

// Conn is a bidirectional stream with deadlines.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

func dial(ctx context.Context, opts Options) (Conn, error) {
	switch opts.Transport {
	case TransportTCP:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", opts.Address)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case TransportSerial, "":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		port, err := serial.Open(opts.Address, &serial.Mode{
			BaudRate: opts.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, err
		}
		return newSerialConn(port), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Transport)
	}
}

// timedPort is the subset of serial.Port used by serialConn.
type timedPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// serialConn adapts a serial port to Conn. Serial reads report a timeout
// as (0, nil); serialConn turns that into ErrReadTimeout so framed readers
// do not spin.
type serialConn struct {
	port timedPort

	mu       sync.Mutex
	deadline time.Time
}

func newSerialConn(port timedPort) *serialConn {
	return &serialConn{port: port}
}

func (c *serialConn) SetDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *serialConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	timeout := serial.NoTimeout
	if !deadline.IsZero() {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return 0, ErrReadTimeout
		}
	}
	if err := c.port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}
	n, err := c.port.Read(p)
	if n == 0 && err == nil {
		return 0, ErrReadTimeout
	}
	return n, err
}

func (c *serialConn) Write(p []byte) (int, error) {
	return c.port.Write(p)
}

func (c *serialConn) Close() error {
	return c.port.Close()
}
