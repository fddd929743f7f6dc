package headset

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transport is an established, bidirectional byte stream carrying the AT
// control channel to a headset.
//
// A Transport is assumed to be already connected and ready for use. The
// usual implementation is the RFCOMM descriptor handed over by the Bluetooth
// daemon, wrapped in an *os.File; serial ports bound to an rfcomm tty and
// in-memory fakes used for testing implement it as well.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a headset.
//
// Dialer abstracts how the control channel is created when it does not
// arrive through the profile handler (for example, a pre-bound rfcomm tty,
// or a test double). Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens the control channel over a serial device, typically an
// rfcomm tty created with "rfcomm bind". It exists for bring-up and
// debugging against headset emulators; production connections arrive through
// the Bluetooth daemon instead.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/rfcomm0".
	PortName string
	// BaudRate for the tty; rfcomm ttys ignore it, real serial adapters do
	// not. Defaults to 115200.
	BaudRate int
}

// Dial opens the configured serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("headset: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("headset: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{BaudRate: d.BaudRate}
	if mode.BaudRate == 0 {
		mode.BaudRate = 115200
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("headset: open %s: %w", d.PortName, err)
	}
	return port, nil
}
