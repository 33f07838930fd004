package mocks

import (
	"context"
	"sync"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// Downstream is a mock implementation of ports.Downstream that records
// renegotiations and frames in arrival order.
type Downstream struct {
	mu sync.RWMutex

	Geometries []pipeline.Geometry
	Frames     []pipeline.Frame
	// Events interleaves "renegotiate" and "frame" in call order.
	Events []string
	Closed bool

	RenegotiateFunc func(ctx context.Context, geometry pipeline.Geometry) error
	PushFrameFunc   func(ctx context.Context, frame pipeline.Frame) error
	CloseFunc       func() error
}

// NewDownstream creates a new mock Downstream.
func NewDownstream() *Downstream {
	return &Downstream{}
}

func (m *Downstream) Renegotiate(ctx context.Context, geometry pipeline.Geometry) error {
	if m.RenegotiateFunc != nil {
		if err := m.RenegotiateFunc(ctx, geometry); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Geometries = append(m.Geometries, geometry)
	m.Events = append(m.Events, "renegotiate")
	return nil
}

func (m *Downstream) PushFrame(ctx context.Context, frame pipeline.Frame) error {
	if m.PushFrameFunc != nil {
		if err := m.PushFrameFunc(ctx, frame); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, frame)
	m.Events = append(m.Events, "frame")
	return nil
}

func (m *Downstream) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// FrameCount returns the number of frames received.
func (m *Downstream) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Frames)
}

var _ ports.Downstream = (*Downstream)(nil)
