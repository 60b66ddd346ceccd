// Package transport owns the byte-source boundary between the stream
// engine and whatever carries the device's bytes.
//
// Ownership boundary:
// - the Transport contract (open/close/read-available/write)
// - the serial-port implementation
// - the TCP implementation for serial-over-network device servers
// - the in-memory loopback used by tests and the simulator
package transport

import "errors"

var (
	ErrNotOpen     = errors.New("transport: not open")
	ErrAlreadyOpen = errors.New("transport: already open")
)

// Transport is a byte-oriented link to the device. ReadAvailable is the
// contract the stream engine polls: it returns whatever bytes have
// arrived (possibly none) without blocking beyond a short internal
// deadline, and nil when the link is idle.
type Transport interface {
	Open() error
	Close() error
	IsOpen() bool
	ReadAvailable() ([]byte, error)
	Write(p []byte) error
}
