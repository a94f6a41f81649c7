package adapter

import (
	"errors"
	"time"
)

// ErrTimeout is returned by ReadStatus when no status frame arrives within
// the caller's timeout. A timeout is not a transport fault: the printer
// simply has nothing to say yet.
var ErrTimeout = errors.New("timed out waiting for status data")

// Transport is the byte pipe between a session and the printer: one bulk
// OUT stream for commands and one bulk IN stream for 32-byte status frames.
// A Transport is exclusively owned by a single session for the session's
// lifetime.
type Transport interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends command bytes to the printer
	Write(data []byte) (int, error)

	// ReadStatus reads one raw status frame, waiting at most timeout.
	// Returns ErrTimeout when the printer stays silent.
	ReadStatus(timeout time.Duration) ([]byte, error)

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}
