package lacrosse

import "errors"

// Domain errors for the lacrosse package.
var (
	// ErrOpenFailed is returned when the serial device cannot be opened.
	ErrOpenFailed = errors.New("lacrosse: open adapter failed")

	// ErrNotOpen is returned when an operation needs an open adapter.
	ErrNotOpen = errors.New("lacrosse: adapter not open")

	// ErrReadFailed is reported when reading from the adapter fails after
	// it was opened. The receive loop stops; the adapter is unusable.
	ErrReadFailed = errors.New("lacrosse: read from adapter failed")

	// ErrWriteFailed is returned when a radio command cannot be written.
	ErrWriteFailed = errors.New("lacrosse: write to adapter failed")

	// ErrInvalidCommand is returned for out-of-range command arguments.
	ErrInvalidCommand = errors.New("lacrosse: invalid command")

	// ErrUnsupportedFrame is returned for lines that are not LaCrosse
	// sensor frames (other firmware output).
	ErrUnsupportedFrame = errors.New("lacrosse: unsupported frame")

	// ErrInvalidFrame is returned for LaCrosse frames that cannot be decoded.
	ErrInvalidFrame = errors.New("lacrosse: invalid frame")

	// ErrTimeout is returned when the firmware banner does not arrive in time.
	ErrTimeout = errors.New("lacrosse: operation timed out")
)
