// Package nullsink provides a downstream that accepts every geometry and
// discards frames.
package nullsink

import (
	"context"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// Sink is a no-op implementation of ports.Downstream. It only counts.
type Sink struct {
	frames int
	bytes  int
}

// New creates a new Sink.
func New() *Sink {
	return &Sink{}
}

// Renegotiate accepts any geometry.
func (s *Sink) Renegotiate(ctx context.Context, geometry pipeline.Geometry) error {
	return nil
}

// PushFrame discards the frame.
func (s *Sink) PushFrame(ctx context.Context, frame pipeline.Frame) error {
	s.frames++
	s.bytes += len(frame.Data)
	return nil
}

// Close does nothing.
func (s *Sink) Close() error {
	return nil
}

// Frames returns the number of frames discarded.
func (s *Sink) Frames() int {
	return s.frames
}

// Bytes returns the number of frame bytes discarded.
func (s *Sink) Bytes() int {
	return s.bytes
}

// Ensure Sink implements ports.Downstream
var _ ports.Downstream = (*Sink)(nil)
