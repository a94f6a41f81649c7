package session

import (
	"fmt"
	"time"

	"github.com/labelforge/ptouchd/protocol"
)

// TransportError is a terminal I/O failure on the physical link after the
// configured retries were exhausted.
type TransportError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed during %s after %d attempts: %v",
		e.Op, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MediaMismatchError reports that the loaded media is incompatible with the
// job's media hint. Raised before any raster data is streamed.
type MediaMismatchError struct {
	Want protocol.Media
	Got  protocol.Media
}

func (e *MediaMismatchError) Error() string {
	return fmt.Sprintf("media mismatch: job expects %s, printer reports %s",
		e.Want, e.Got)
}

// DeviceFaultError reports a hardware error condition decoded from a status
// reply's error flags.
type DeviceFaultError struct {
	Flags protocol.ErrorFlags
}

func (e *DeviceFaultError) Error() string {
	return fmt.Sprintf("printer reported fault: %s", e.Flags)
}

// TimeoutError reports that no completion (or error) status arrived within
// the session's maximum wait.
type TimeoutError struct {
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no completion status within %s", e.Waited)
}
