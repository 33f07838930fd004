// Package decoder owns a decoder engine context: creation, worker sizing,
// feeding, result interpretation, warning draining, flush and teardown.
package decoder

import (
	"fmt"
	"runtime"

	"github.com/user/decodebridge/pkg/ports"
)

// DefaultThreadCount is used when host parallelism cannot be determined.
const DefaultThreadCount = 2

// Result is the interpreted outcome of a feed or decode step.
type Result int

const (
	// ResultOK means data was accepted and progress may be possible.
	ResultOK Result = iota
	// ResultNeedMoreInput means no progress without additional bytes.
	ResultNeedMoreInput
	// ResultBufferFull means the picture queue must be drained first.
	ResultBufferFull
	// ResultFatal means the stream cannot continue.
	ResultFatal
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultNeedMoreInput:
		return "need-more-input"
	case ResultBufferFull:
		return "buffer-full"
	case ResultFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithThreads fixes the worker count. Values <= 0 select host parallelism.
func WithThreads(n int) Option {
	return func(a *Adapter) {
		a.requestedThreads = n
	}
}

// WithParallelism replaces the host CPU count lookup.
func WithParallelism(count func() int) Option {
	return func(a *Adapter) {
		a.parallelism = count
	}
}

// Adapter drives one ports.EngineContext on behalf of a single caller.
type Adapter struct {
	engine ports.Engine
	logger ports.Logger

	requestedThreads int
	parallelism      func() int

	ctx     ports.EngineContext
	threads int
}

// New creates an adapter for engine. The context is created by Start.
func New(engine ports.Engine, logger ports.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		engine:      engine,
		logger:      logger.WithComponent("decoder"),
		parallelism: runtime.NumCPU,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Engine returns the engine name.
func (a *Adapter) Engine() string {
	return a.engine.Name()
}

// Threads returns the worker count chosen by the last Start.
func (a *Adapter) Threads() int {
	return a.threads
}

// threadCount resolves the worker pool size.
func (a *Adapter) threadCount() int {
	if a.requestedThreads > 0 {
		return a.requestedThreads
	}
	n := 0
	if a.parallelism != nil {
		n = a.parallelism()
	}
	if n <= 0 {
		n = DefaultThreadCount
	}
	return n
}

// Start creates a fresh decoder context and its worker pool. A live context
// is torn down first.
func (a *Adapter) Start() error {
	a.Stop()

	ctx, err := a.engine.NewContext()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEngineInit, a.engine.Name(), err)
	}
	if ctx == nil {
		return fmt.Errorf("%w: %s returned no context", ErrEngineInit, a.engine.Name())
	}

	threads := a.threadCount()
	if err := ctx.StartWorkers(threads); err != nil {
		ctx.Free()
		return fmt.Errorf("%w: start %d workers: %v", ErrEngineInit, threads, err)
	}

	a.ctx = ctx
	a.threads = threads
	a.logger.Info("Starting %d worker threads", threads)
	return nil
}

// Feed pushes data and asks the engine to make progress. A ResultFatal
// comes with a *DecodeError.
func (a *Adapter) Feed(data []byte) (Result, error) {
	if a.ctx == nil {
		return ResultFatal, ErrNotStarted
	}

	status := a.ctx.Push(data)
	if status.Kind == ports.StatusOK {
		status, _ = a.ctx.Decode()
	}
	res, err := interpret(status)
	a.logger.Debug("Fed %d bytes: %s", len(data), res)
	return res, err
}

// Decode makes progress on already pushed data. more is the engine's
// request to be called again and only means something with ResultOK.
func (a *Adapter) Decode() (Result, bool, error) {
	if a.ctx == nil {
		return ResultFatal, false, ErrNotStarted
	}
	status, more := a.ctx.Decode()
	res, err := interpret(status)
	return res, more, err
}

// EndOfStream tells the engine that no more input follows, so buffered data
// can be decoded completely.
func (a *Adapter) EndOfStream() error {
	if a.ctx == nil {
		return ErrNotStarted
	}
	if _, err := interpret(a.ctx.EndOfStream()); err != nil {
		return err
	}
	return nil
}

// interpret maps an engine status onto a Result.
func interpret(status ports.Status) (Result, error) {
	switch status.Kind {
	case ports.StatusOK:
		return ResultOK, nil
	case ports.StatusNeedMoreInput:
		return ResultNeedMoreInput, nil
	case ports.StatusBufferFull:
		return ResultBufferFull, nil
	default:
		return ResultFatal, &DecodeError{Code: status.Code, Text: status.Text}
	}
}

// DrainWarnings pops every pending engine warning, logs it and returns them
// in engine order.
func (a *Adapter) DrainWarnings() []Warning {
	if a.ctx == nil {
		return nil
	}
	var warnings []Warning
	for {
		w, ok := a.ctx.NextWarning()
		if !ok {
			break
		}
		warning := Warning{Code: w.Code, Text: w.Text}
		a.logger.Warn("%s (code=%d)", warning.Text, warning.Code)
		warnings = append(warnings, warning)
	}
	return warnings
}

// PeekPicture returns the oldest decoded picture without removing it.
func (a *Adapter) PeekPicture() ports.Picture {
	if a.ctx == nil {
		return nil
	}
	return a.ctx.PeekPicture()
}

// PullPicture removes and returns the oldest decoded picture. The picture
// stays valid until the next call on the adapter.
func (a *Adapter) PullPicture() ports.Picture {
	if a.ctx == nil {
		return nil
	}
	return a.ctx.NextPicture()
}

// Flush discards every pending decoded picture and returns how many were
// dropped.
func (a *Adapter) Flush() int {
	if a.ctx == nil {
		return 0
	}
	dropped := 0
	for a.ctx.NextPicture() != nil {
		dropped++
	}
	if dropped > 0 {
		a.logger.Debug("Discarded %d pending pictures", dropped)
	}
	return dropped
}

// Stop frees the decoder context. It is safe to call at any time.
func (a *Adapter) Stop() {
	if a.ctx == nil {
		return
	}
	a.ctx.Free()
	a.ctx = nil
	a.logger.Debug("Decoder context released")
}
