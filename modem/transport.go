package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an established, bidirectional byte stream to a
// RockBLOCK 9704.
//
// A Transport is assumed to be already connected and ready for use. Reads
// must not block for long: when no byte is available Read returns 0, nil
// (or io.EOF), the way a serial port with a short read timeout behaves.
// Typical implementations include serial ports and in-memory fakes used for
// testing.
type Transport interface {
	io.ReadWriteCloser

	// Peek reports how many bytes can be read right away. The driver polls
	// Peek before trying to assemble a frame.
	Peek() (int, error)
}

// Dialer opens a Transport to a modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or a test double) and is used each time a session begins.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport.
	// It may perform blocking operations and should respect cancellation
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

const (
	// DefaultBaudRate is the rate the 9704 ships with.
	DefaultBaudRate = 230400
	// DefaultReadTimeout bounds a single read on the serial port.
	DefaultReadTimeout = 20 * time.Millisecond
)

// SerialDialer opens a modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, for example /dev/ttyUSB0.
	PortName string
	// Mode overrides the default 8N1 mode at DefaultBaudRate.
	Mode *serial.Mode
	// ReadTimeout overrides DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Dial opens and configures the serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("sbd: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("sbd: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: DefaultBaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}
	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("sbd: open %s: %w", d.PortName, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("sbd: set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("sbd: flush input: %w", err)
	}
	return &serialTransport{port: port}, nil
}

// serialTransport adds Peek on top of a serial.Port. The port has no call
// reporting pending bytes, so Peek performs one timed read and holds what it
// got until the next Read.
type serialTransport struct {
	port    serial.Port
	pending []byte
	scratch [256]byte
}

func (t *serialTransport) Peek() (int, error) {
	if len(t.pending) > 0 {
		return len(t.pending), nil
	}
	n, err := t.port.Read(t.scratch[:])
	if err != nil {
		return 0, err
	}
	t.pending = append(t.pending, t.scratch[:n]...)
	return n, nil
}

func (t *serialTransport) Read(p []byte) (int, error) {
	if len(t.pending) > 0 {
		n := copy(p, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}
	return t.port.Read(p)
}

func (t *serialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *serialTransport) Close() error {
	t.pending = nil
	return t.port.Close()
}
