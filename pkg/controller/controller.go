// Package controller implements the decode loop: it accepts compressed
// chunks, feeds them to the decoder and emits assembled frames downstream,
// draining the engine's picture queue whenever it reports backpressure.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/decodebridge/pkg/decoder"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
	"github.com/user/decodebridge/pkg/stages/assemble"
	"github.com/user/decodebridge/pkg/stages/reframe"
)

var (
	// ErrStreamFailed is returned by every call after a fatal stream error.
	ErrStreamFailed = errors.New("controller: stream failed")

	// ErrNotRunning is returned when chunks arrive before Start.
	ErrNotRunning = errors.New("controller: not started")
)

// Options configures a Controller.
type Options struct {
	// Framing is the packaging of incoming chunks.
	Framing pipeline.FramingMode
	// FrameRate is attached to renegotiations when set.
	FrameRate pipeline.Fraction
}

// Controller drives one stream. It is not safe for concurrent use; calls are
// expected from the single goroutine delivering chunks.
type Controller struct {
	id         string
	adapter    *decoder.Adapter
	reframer   *reframe.Stage
	assembler  *assemble.Stage
	downstream ports.Downstream
	logger     ports.Logger

	running    bool
	state      State
	backlogged bool
	pending    []byte
	err        error
	stats      Stats
}

// New creates a controller feeding adapter and emitting to downstream.
func New(adapter *decoder.Adapter, downstream ports.Downstream, opts Options, logger ports.Logger) *Controller {
	id := uuid.NewString()
	log := logger.WithComponent("stream " + id[:8])
	return &Controller{
		id:         id,
		adapter:    adapter,
		reframer:   reframe.NewStage(opts.Framing),
		assembler:  assemble.NewStage(downstream, opts.FrameRate, log),
		downstream: downstream,
		logger:     log,
	}
}

// ID returns the stream id.
func (c *Controller) ID() string { return c.id }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Backlogged reports whether the engine last signalled a full picture queue
// that has not been drained yet.
func (c *Controller) Backlogged() bool { return c.backlogged }

// Err returns the error that moved the stream to StateError.
func (c *Controller) Err() error { return c.err }

// Geometry returns the last negotiated output geometry.
func (c *Controller) Geometry() pipeline.Geometry { return c.assembler.Geometry() }

// Stats returns a snapshot of the stream counters.
func (c *Controller) Stats() Stats {
	s := c.stats
	s.Renegotiations = c.assembler.Renegotiations()
	return s
}

// Start creates the decoder context and resets all stream state.
func (c *Controller) Start() error {
	if err := c.adapter.Start(); err != nil {
		return err
	}
	c.assembler.Reset()
	c.running = true
	c.state = StateIdle
	c.backlogged = false
	c.pending = c.pending[:0]
	c.err = nil
	c.stats = Stats{}
	c.logger.Info("Stream started with %s engine (%s framing)", c.adapter.Engine(), c.reframer.Mode().String())
	return nil
}

// Stop releases the decoder context. It is safe to call at any time.
func (c *Controller) Stop() {
	c.adapter.Stop()
	if c.running {
		c.logger.Info("Stream stopped after %d frames", c.stats.Frames)
	}
	c.running = false
	c.state = StateIdle
	c.backlogged = false
	c.pending = nil
}

// HandleChunk processes one upstream chunk. The chunk is copied, so data may
// be reused by the caller once HandleChunk returns. A malformed packetized
// chunk is dropped and returns an error matching reframe.ErrFramingOverflow;
// the stream stays usable. Any other error is terminal.
func (c *Controller) HandleChunk(ctx context.Context, data []byte) (Outcome, error) {
	if err := c.usable(); err != nil {
		return OutcomeNeedData, err
	}
	if err := ctx.Err(); err != nil {
		return OutcomeNeedData, err
	}

	c.stats.Chunks++
	if len(data) > 0 {
		if err := c.appendChunk(ctx, data); err != nil {
			c.stats.FramingErrors++
			c.logger.Warn("Dropping malformed chunk: %s", err.Error())
			c.state = StateIdle
			return OutcomeNeedData, err
		}
	}

	c.state = StateFeeding
	if c.backlogged {
		emitted, err := c.drainBacklog(ctx)
		if err != nil {
			return OutcomeNeedData, c.fail(err)
		}
		if emitted {
			return OutcomeFrameEmitted, nil
		}
	}

	if len(c.pending) == 0 {
		c.state = StateIdle
		return OutcomeNeedData, nil
	}
	return c.feed(ctx)
}

// Flush discards decoded pictures and pending input, for seeks and
// discontinuities.
func (c *Controller) Flush() error {
	if c.state == StateError {
		return fmt.Errorf("%w: %w", ErrStreamFailed, c.err)
	}
	dropped := c.adapter.Flush()
	c.pending = c.pending[:0]
	c.backlogged = false
	c.state = StateIdle
	c.stats.Flushes++
	c.stats.Discarded += dropped
	c.logger.Debug("Flushed decoder, %d pictures discarded", dropped)
	return nil
}

// Drain handles end of stream: pending input is fed, the engine is told no
// more data follows, and every remaining picture is emitted in decode order.
// It returns the number of frames emitted.
func (c *Controller) Drain(ctx context.Context) (int, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}

	emitted := 0
	emitQueued := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			pic := c.adapter.PeekPicture()
			if pic == nil {
				return nil
			}
			if err := c.emit(ctx, pic); err != nil {
				return err
			}
			emitted++
		}
	}
	stop := func(err error) (int, error) {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return emitted, err
		}
		return emitted, c.fail(err)
	}

	if len(c.pending) > 0 {
		if err := emitQueued(); err != nil {
			return stop(err)
		}
		_, err := c.adapter.Feed(c.pending)
		c.stats.BytesFed += len(c.pending)
		c.pending = c.pending[:0]
		if err != nil {
			return stop(err)
		}
		c.collectWarnings()
	}

	if err := c.adapter.EndOfStream(); err != nil {
		return stop(err)
	}

	for {
		if err := emitQueued(); err != nil {
			return stop(err)
		}
		res, more, err := c.adapter.Decode()
		if err != nil {
			return stop(err)
		}
		c.collectWarnings()
		if c.adapter.PeekPicture() != nil {
			continue
		}
		if !more || res != decoder.ResultOK {
			break
		}
	}

	c.backlogged = false
	c.state = StateIdle
	c.logger.Info("End of stream, drained %d pictures", emitted)
	return emitted, nil
}

func (c *Controller) usable() error {
	if c.state == StateError {
		return fmt.Errorf("%w: %w", ErrStreamFailed, c.err)
	}
	if !c.running {
		return ErrNotRunning
	}
	return nil
}

// appendChunk copies data into the pending input and reframes the copy.
// On error the pending input is left as it was.
func (c *Controller) appendChunk(ctx context.Context, data []byte) error {
	start := len(c.pending)
	c.pending = append(c.pending, data...)
	if _, err := c.reframer.Execute(ctx, c.pending[start:]); err != nil {
		c.pending = c.pending[:start]
		return err
	}
	c.stats.BytesIn += len(data)
	return nil
}

// drainBacklog emits at most one queued picture. It clears the backlog when
// the engine queue turns out to be empty.
func (c *Controller) drainBacklog(ctx context.Context) (bool, error) {
	pic := c.adapter.PeekPicture()
	if pic == nil {
		c.backlogged = false
		c.logger.Debug("Backlog cleared")
		return false, nil
	}
	if err := c.emit(ctx, pic); err != nil {
		return false, err
	}
	if c.adapter.PeekPicture() == nil {
		c.backlogged = false
		c.state = StateIdle
		c.logger.Debug("Backlog cleared")
	} else {
		c.state = StateBackloggedDraining
	}
	return true, nil
}

// feed pushes all pending input to the engine and acts on the result.
func (c *Controller) feed(ctx context.Context) (Outcome, error) {
	res, err := c.adapter.Feed(c.pending)
	c.stats.BytesFed += len(c.pending)
	c.pending = c.pending[:0]
	if err != nil {
		return OutcomeNeedData, c.fail(err)
	}
	c.collectWarnings()

	if res == decoder.ResultBufferFull {
		c.backlogged = true
		c.stats.BacklogEvents++
		c.logger.Debug("Decoder picture queue full")
	}

	outcome := OutcomeNeedData
	if res == decoder.ResultOK || res == decoder.ResultBufferFull {
		if pic := c.adapter.PeekPicture(); pic != nil {
			if err := c.emit(ctx, pic); err != nil {
				return OutcomeNeedData, c.fail(err)
			}
			outcome = OutcomeFrameEmitted
		}
	}
	c.state = StateIdle
	return outcome, nil
}

// emit assembles pic, releases it to the engine and pushes the frame.
func (c *Controller) emit(ctx context.Context, pic ports.Picture) error {
	frame, err := c.assembler.Execute(ctx, pic)
	if err != nil {
		return err
	}
	c.adapter.PullPicture()
	if err := c.downstream.PushFrame(ctx, frame); err != nil {
		return fmt.Errorf("push frame %d: %w", frame.Index, err)
	}
	c.stats.Frames++
	return nil
}

func (c *Controller) collectWarnings() {
	c.stats.Warnings += len(c.adapter.DrainWarnings())
}

func (c *Controller) fail(err error) error {
	c.state = StateError
	c.err = err
	c.logger.Error("Stream failed: %s", err.Error())
	return fmt.Errorf("%w: %w", ErrStreamFailed, err)
}
