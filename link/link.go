// Package link implements the host side of the device transfer protocol.
//
// One exchange is:
//
//	Host -> Device:  [mode, 0] + payload (N bytes, fixed per mode)
//	Device -> Host:  N bytes
//
// The channel is opened for exactly one exchange and closed on every exit
// path. A response shorter than N bytes is a failure and is never padded.
package link

import (
	"context"
	"io"
	"time"

	"github.com/pithecene-io/benchlink/types"
)

// HeaderSize is the size of the mode header preceding every payload.
const HeaderSize = 2

// LoopbackPort selects the in-process device emulator instead of a serial port.
const LoopbackPort = "loop://"

// Protocol timing defaults.
const (
	// DefaultSettleDelay is the pause between header and payload that gives
	// the device time to arm its payload receive.
	DefaultSettleDelay = 100 * time.Millisecond
	// DefaultTimeout bounds the response read.
	DefaultTimeout = 10 * time.Second
	// DefaultBaudRate is the device UART rate.
	DefaultBaudRate = 115200
)

// EncodeHeader returns the header for mode. The second byte is reserved.
func EncodeHeader(m types.Mode) [HeaderSize]byte {
	return [HeaderSize]byte{byte(m), 0}
}

// Channel is a byte stream to the device.
//
// Read follows serial port semantics: it blocks for at most the read timeout
// and returns (0, nil) when no byte arrived in that window.
type Channel interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a fresh channel for one exchange.
type Opener interface {
	Open(ctx context.Context) (Channel, error)
	// String names the endpoint for logs.
	String() string
}

// NewOpener returns the opener for port. LoopbackPort selects a fresh
// emulated device; anything else is a serial device path.
func NewOpener(port string, baudRate int) Opener {
	if port == LoopbackPort {
		return NewLoopbackOpener(NewDevice())
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialOpener{Port: port, BaudRate: baudRate}
}
