package midi

import (
	"fmt"
	"io"
	"log/slog"

	serial "github.com/jacobsa/go-serial/serial"
)

// midiBaudRate is the serial MIDI wire rate.
const midiBaudRate = 31250

// ccStatus is the control-change status byte on channel 1.
const ccStatus = 0xB0

// Sink writes raw MIDI bytes to a port. Not safe for concurrent use;
// the control loop is the only sender.
type Sink struct {
	w    io.WriteCloser
	port string
}

// Open opens the named serial port as a MIDI sink.
func Open(portName string) (*Sink, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        portName,
		BaudRate:        midiBaudRate,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("open midi port %s: %w", portName, err)
	}
	slog.Info("midi: port opened", "port", portName)
	return &Sink{w: port, port: portName}, nil
}

// NewSink wraps an already-open writer; used in tests.
func NewSink(w io.WriteCloser) *Sink {
	return &Sink{w: w, port: "test"}
}

// SendCC writes one control-change message. Out-of-range values are
// clamped to [0,127] before dispatch, never sent unclamped.
func (s *Sink) SendCC(cc, value int) error {
	msg := [3]byte{ccStatus, clampCC(cc), clampCC(value)}
	if _, err := s.w.Write(msg[:]); err != nil {
		return fmt.Errorf("send cc %d: %w", cc, err)
	}
	slog.Debug("midi: cc sent", "cc", msg[1], "value", msg[2])
	return nil
}

func (s *Sink) Close() error {
	return s.w.Close()
}
