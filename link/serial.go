package link

import (
	"context"
	"fmt"

	"go.bug.st/serial"
)

// SerialOpener opens a UART device at 8N1.
type SerialOpener struct {
	Port     string
	BaudRate int
}

// Open opens the port. The caller owns the returned channel.
func (o *SerialOpener) Open(ctx context.Context) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	port, err := serial.Open(o.Port, &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.Port, err)
	}
	return port, nil
}

func (o *SerialOpener) String() string {
	return fmt.Sprintf("%s@%d", o.Port, o.BaudRate)
}

// ListPorts returns the serial ports visible to the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
