// Package session talks to the inference runtime on the device.
//
// A session is connected once per batch, discovers the deployed model, and
// invokes it once per sample. Messages are length-prefixed msgpack frames
// over a serial port or a TCP bridge.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transports accepted by Connect.
const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
)

// DefaultTimeout bounds one request/reply round trip.
const DefaultTimeout = 5 * time.Second

// ErrModelNotFound is returned when the device reports no deployed model.
var ErrModelNotFound = errors.New("no model found on device")

// Session is the device capability the harness depends on.
type Session interface {
	// Discover lists the models deployed on the device.
	Discover(ctx context.Context) ([]string, error)
	// Invoke runs model on inputs and returns its output tensors.
	Invoke(ctx context.Context, model string, inputs [][]float32) ([][]float32, Metadata, error)
	// Close ends the session.
	Close() error
}

// Options configures Connect.
type Options struct {
	Transport string
	// Address is a serial device path or a host:port.
	Address  string
	BaudRate int
	Timeout  time.Duration
}

// ConnectError reports a session that could not be established.
type ConnectError struct {
	Transport string
	Address   string
	Err       error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s %s: %v", e.Transport, e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// RemoteError is an error reported by the device runtime.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "device error: " + e.Message
}

// Connect opens a transport and returns a session over it.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	conn, err := dial(ctx, opts)
	if err != nil {
		return nil, &ConnectError{Transport: opts.Transport, Address: opts.Address, Err: err}
	}
	return NewClient(conn, opts.Timeout), nil
}

// FirstModel returns the first model the device reports.
func FirstModel(ctx context.Context, s Session) (string, error) {
	models, err := s.Discover(ctx)
	if err != nil {
		return "", fmt.Errorf("discover: %w", err)
	}
	if len(models) == 0 || models[0] == "" {
		return "", ErrModelNotFound
	}
	return models[0], nil
}
