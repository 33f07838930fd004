// Package softengine is a pure Go decoder engine for a small synthetic
// bitstream. It follows the push/decode/peek/pull contract of real engines,
// including a bounded picture queue that reports backpressure, and is used
// for demos and for exercising the decode loop without native libraries.
package softengine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/user/decodebridge/pkg/ports"
)

// DefaultQueueCapacity is the number of decoded pictures held before the
// engine reports a full buffer.
const DefaultQueueCapacity = 4

// Engine status codes.
const (
	CodeOK                 = 0
	CodeBufferFull         = 9
	CodeWaitingForInput    = 13
	CodeUnspecifiedError   = 18
	CodeNoGeometry         = 1000
	CodeInvalidGeometry    = 1001
	CodeInvalidWorkerCount = 1002
)

// MaxDimension bounds geometry units.
const MaxDimension = 8192

// Engine creates soft decoder contexts.
type Engine struct {
	queueCapacity int
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueueCapacity sets the picture queue bound. Values < 1 are ignored.
func WithQueueCapacity(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.queueCapacity = n
		}
	}
}

// New creates a soft engine.
func New(opts ...Option) *Engine {
	e := &Engine{queueCapacity: DefaultQueueCapacity}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ports.Engine.
func (e *Engine) Name() string {
	return "soft"
}

// NewContext implements ports.Engine.
func (e *Engine) NewContext() (ports.EngineContext, error) {
	return &decoderContext{capacity: e.queueCapacity}, nil
}

var _ ports.Engine = (*Engine)(nil)

type decoderContext struct {
	capacity int
	workers  int

	input []byte
	eos   bool
	freed bool

	width, height int
	pictures      []*picture
	warnings      []ports.Status
}

func (c *decoderContext) StartWorkers(n int) error {
	if n < 1 {
		return fmt.Errorf("softengine: invalid worker count %d", n)
	}
	c.workers = n
	return nil
}

func (c *decoderContext) Push(data []byte) ports.Status {
	if c.freed {
		return errorStatus(CodeUnspecifiedError, "decoder context freed")
	}
	c.input = append(c.input, data...)
	c.eos = false
	return ports.Status{Kind: ports.StatusOK, Code: CodeOK, Text: "no error"}
}

func (c *decoderContext) EndOfStream() ports.Status {
	c.eos = true
	return ports.Status{Kind: ports.StatusOK, Code: CodeOK, Text: "no error"}
}

// Decode parses every complete unit. Picture units are reconstructed on the
// worker pool, as many as the queue has room for.
func (c *decoderContext) Decode() (ports.Status, bool) {
	if c.freed {
		return errorStatus(CodeUnspecifiedError, "decoder context freed"), false
	}

	var jobs []*picture
	progressed := false
	full := false

	for {
		unit, rest, ok := nextUnit(c.input, c.eos)
		if !ok {
			c.input = rest
			break
		}
		if len(unit) > 0 && unit[0] == UnitPicture && len(c.pictures)+len(jobs) >= c.capacity {
			full = true
			break
		}
		c.input = rest
		progressed = true

		job, status := c.handleUnit(unit)
		if status.Kind == ports.StatusError {
			c.input = nil
			return status, false
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}

	if err := c.reconstruct(jobs); err != nil {
		return errorStatus(CodeUnspecifiedError, err.Error()), false
	}
	c.pictures = append(c.pictures, jobs...)

	more := len(c.input) > 0
	switch {
	case full:
		return ports.Status{Kind: ports.StatusBufferFull, Code: CodeBufferFull, Text: "image buffer full"}, true
	case progressed:
		return ports.Status{Kind: ports.StatusOK, Code: CodeOK, Text: "no error"}, more
	default:
		return ports.Status{Kind: ports.StatusNeedMoreInput, Code: CodeWaitingForInput, Text: "waiting for input data"}, more
	}
}

// handleUnit applies one unit. A returned picture still needs reconstruction.
func (c *decoderContext) handleUnit(unit []byte) (*picture, ports.Status) {
	if len(unit) == 0 {
		return nil, ports.Status{}
	}
	switch unit[0] {
	case UnitGeometry:
		if len(unit) < 5 {
			return nil, errorStatus(CodeUnspecifiedError, "truncated geometry unit")
		}
		w := int(binary.BigEndian.Uint16(unit[1:3]))
		h := int(binary.BigEndian.Uint16(unit[3:5]))
		if w < 1 || h < 1 || w > MaxDimension || h > MaxDimension {
			c.warn(CodeInvalidGeometry, fmt.Sprintf("invalid geometry %dx%d ignored", w, h))
			return nil, ports.Status{}
		}
		c.width, c.height = w, h
	case UnitPicture:
		if c.width == 0 {
			c.warn(CodeNoGeometry, "picture without geometry skipped")
			return nil, ports.Status{}
		}
		var seed byte
		if len(unit) > 1 {
			seed = unit[1]
		}
		return newPicture(c.width, c.height, seed), ports.Status{}
	case UnitWarning:
		code := 0
		if len(unit) >= 3 {
			code = int(binary.BigEndian.Uint16(unit[1:3]))
		}
		c.warn(code, "stream warning")
	case UnitCorrupt:
		return nil, errorStatus(CodeUnspecifiedError, "unspecified decoding error")
	}
	return nil, ports.Status{}
}

// reconstruct fills the planes of jobs using at most c.workers goroutines.
func (c *decoderContext) reconstruct(jobs []*picture) error {
	if len(jobs) == 0 {
		return nil
	}
	if c.workers < 1 {
		return errors.New("worker threads not started")
	}
	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, p := range jobs {
		g.Go(func() error {
			p.fill()
			return nil
		})
	}
	return g.Wait()
}

func (c *decoderContext) warn(code int, text string) {
	c.warnings = append(c.warnings, ports.Status{Kind: ports.StatusOK, Code: code, Text: text})
}

func (c *decoderContext) NextWarning() (ports.Status, bool) {
	if len(c.warnings) == 0 {
		return ports.Status{}, false
	}
	w := c.warnings[0]
	c.warnings = c.warnings[1:]
	return w, true
}

func (c *decoderContext) PeekPicture() ports.Picture {
	if len(c.pictures) == 0 {
		return nil
	}
	return c.pictures[0]
}

func (c *decoderContext) NextPicture() ports.Picture {
	if len(c.pictures) == 0 {
		return nil
	}
	p := c.pictures[0]
	c.pictures[0] = nil
	c.pictures = c.pictures[1:]
	return p
}

func (c *decoderContext) Free() {
	c.freed = true
	c.input = nil
	c.pictures = nil
	c.warnings = nil
}

func errorStatus(code int, text string) ports.Status {
	return ports.Status{Kind: ports.StatusError, Code: code, Text: text}
}

var _ ports.EngineContext = (*decoderContext)(nil)
