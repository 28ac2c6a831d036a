package link

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/benchlink/types"
)

// LoopbackOpener opens in-memory channels to an emulated Device.
type LoopbackOpener struct {
	Device *Device
}

// NewLoopbackOpener creates an opener for dev.
func NewLoopbackOpener(dev *Device) *LoopbackOpener {
	return &LoopbackOpener{Device: dev}
}

// Open returns a fresh channel. Pending bytes never carry over between channels.
func (o *LoopbackOpener) Open(ctx context.Context) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.Device.currentFaults().OpenErr; err != nil {
		return nil, err
	}
	o.Device.countOpen()
	return &loopbackChannel{dev: o.Device}, nil
}

func (o *LoopbackOpener) String() string { return LoopbackPort }

// loopbackChannel feeds writes to the device and serves its responses.
type loopbackChannel struct {
	mu          sync.Mutex
	dev         *Device
	in          bytes.Buffer
	out         bytes.Buffer
	readTimeout time.Duration
	closed      bool
}

func (c *loopbackChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrChannelClosed
	}
	if err := c.dev.currentFaults().WriteErr; err != nil {
		return 0, err
	}
	c.in.Write(p)
	c.pump()
	return len(p), nil
}

// pump consumes complete requests from the input buffer, the way the
// firmware loop waits for a header and then for the mode's payload.
func (c *loopbackChannel) pump() {
	for c.in.Len() >= HeaderSize {
		mode := types.Mode(c.in.Bytes()[0])
		if !mode.Known() {
			c.in.Next(HeaderSize)
			continue
		}
		need := mode.PayloadLen()
		if c.in.Len() < HeaderSize+need {
			return
		}
		c.in.Next(HeaderSize)
		payload := append([]byte(nil), c.in.Next(need)...)
		c.out.Write(c.dev.respond(mode, payload))
	}
}

// Read returns buffered response bytes. With nothing buffered it waits for
// the read timeout and returns (0, nil), like a serial port.
func (c *loopbackChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrChannelClosed
	}
	if c.out.Len() > 0 {
		defer c.mu.Unlock()
		return c.out.Read(p)
	}
	wait := c.readTimeout
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
	return 0, nil
}

func (c *loopbackChannel) SetReadTimeout(t time.Duration) error {
	c.mu.Lock()
	c.readTimeout = t
	c.mu.Unlock()
	return nil
}

func (c *loopbackChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.closed = true
	c.dev.countClose()
	return nil
}
