package ports

import (
	"context"

	"github.com/user/decodebridge/pkg/pipeline"
)

// Negotiator accepts output geometry changes. A non-nil error means the new
// geometry was rejected.
type Negotiator interface {
	Renegotiate(ctx context.Context, geometry pipeline.Geometry) error
}

// FrameSink receives assembled frames in decode order.
type FrameSink interface {
	PushFrame(ctx context.Context, frame pipeline.Frame) error
}

// Downstream is the collaborator receiving decoded output.
type Downstream interface {
	Negotiator
	FrameSink

	// Close flushes and releases the downstream.
	Close() error
}
