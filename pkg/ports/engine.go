package ports

// StatusKind classifies an engine result code.
type StatusKind int

const (
	// StatusOK means the call succeeded and further progress may be possible.
	StatusOK StatusKind = iota
	// StatusNeedMoreInput means no progress is possible without more bytes.
	StatusNeedMoreInput
	// StatusBufferFull means the output picture queue is saturated.
	StatusBufferFull
	// StatusError means the engine hit an unrecoverable error.
	StatusError
)

// String returns a short name for the kind.
func (k StatusKind) String() string {
	switch k {
	case StatusOK:
		return "ok"
	case StatusNeedMoreInput:
		return "need-more-input"
	case StatusBufferFull:
		return "buffer-full"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is an engine result: a classification plus the engine's native
// diagnostic code and text, which are reported verbatim.
type Status struct {
	Kind StatusKind
	Code int
	Text string
}

// Picture is a decoded picture owned by an engine context. It is valid until
// the next call on the context that produced it and must not be modified.
type Picture interface {
	// Width returns the width in pixels of the given plane (0 = luma).
	Width(plane int) int
	// Height returns the height in rows of the given plane.
	Height(plane int) int
	// Plane returns the pixel rows of the given plane.
	Plane(plane int) []byte
	// Stride returns the distance in bytes between rows of the given plane.
	Stride(plane int) int
}

// EngineContext is one decoder instance. Implementations handle their own
// internal thread safety; callers use a context from a single goroutine.
type EngineContext interface {
	// StartWorkers launches n internal decoding workers.
	StartWorkers(n int) error

	// Push hands compressed, start-code delimited bytes to the engine.
	// The engine copies what it needs before returning.
	Push(data []byte) Status

	// Decode makes one step of progress. more asks the caller to call
	// Decode again; it may be set together with StatusNeedMoreInput even
	// when no input is buffered, so callers stop on a non-OK status too.
	Decode() (status Status, more bool)

	// EndOfStream signals that no further input will be pushed.
	EndOfStream() Status

	// NextWarning pops the oldest pending warning. ok is false when none remain.
	NextWarning() (warning Status, ok bool)

	// PeekPicture returns the oldest decoded picture without removing it, or nil.
	PeekPicture() Picture

	// NextPicture removes and returns the oldest decoded picture, or nil.
	NextPicture() Picture

	// Free releases the context. It must be safe to call more than once.
	Free()
}

// Engine creates decoder contexts.
type Engine interface {
	// Name identifies the engine in logs and summaries.
	Name() string

	// NewContext allocates a fresh decoder context.
	NewContext() (EngineContext, error)
}
