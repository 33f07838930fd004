package decoder

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineInit is returned when a decoder context cannot be created or started.
	ErrEngineInit = errors.New("decoder: engine initialization failed")

	// ErrNotStarted is returned when the adapter is used before Start or after Stop.
	ErrNotStarted = errors.New("decoder: adapter not started")

	// ErrFatalDecode matches every *DecodeError.
	ErrFatalDecode = errors.New("decoder: fatal decode error")
)

// DecodeError is an unrecoverable engine error with the engine's own
// diagnostic code and text.
type DecodeError struct {
	Code int
	Text string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoder: error while decoding: %s (code=%d)", e.Text, e.Code)
}

// Is makes errors.Is(err, ErrFatalDecode) hold.
func (e *DecodeError) Is(target error) bool {
	return target == ErrFatalDecode
}

// Warning is a non-fatal engine diagnostic.
type Warning struct {
	Code int
	Text string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s (code=%d)", w.Text, w.Code)
}
