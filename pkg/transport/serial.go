package transport

import (
	"context"
	"fmt"

	"go.bug.st/serial"

	"github.com/halvorlund/hanreader/pkg/connection"
)

// SerialOptions configures the serial port opened by Serial.
type SerialOptions struct {
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
}

// DefaultSerialOptions matches the 8E1 framing most Mode-D meters use
// at the IEC 62056-21 default baud rate.
func DefaultSerialOptions() SerialOptions {
	return SerialOptions{
		BaudRate: 2400,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}
}

// Serial returns a connection.Factory that opens the named serial
// port for every connect attempt. The underlying library has no
// context-aware open call, so ctx is only checked before dialing.
func Serial(portName string, opts SerialOptions) connection.Factory {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   opts.Parity,
		StopBits: opts.StopBits,
	}

	return func(ctx context.Context) (connection.Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		port, err := serial.Open(portName, mode)
		if err != nil {
			return nil, fmt.Errorf("transport: open serial port %s: %w", portName, err)
		}
		return port, nil
	}
}
