// Package assemble copies decoded pictures into contiguous I420 frames and
// renegotiates the output format when the picture geometry changes.
package assemble

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

var (
	// ErrRenegotiationRejected is returned when downstream refuses a new geometry.
	ErrRenegotiationRejected = errors.New("assemble: renegotiation rejected")

	// ErrShortPlane is returned when a plane holds fewer bytes than its
	// geometry and stride require.
	ErrShortPlane = errors.New("assemble: plane data too short")

	// ErrEmptyPicture is returned for pictures without luma dimensions.
	ErrEmptyPicture = errors.New("assemble: picture has no dimensions")
)

const planeCount = 3

// Stage assembles decoded pictures into output frames.
type Stage struct {
	negotiator ports.Negotiator
	frameRate  pipeline.Fraction
	logger     ports.Logger

	geometry       pipeline.Geometry
	frames         int
	renegotiations int
}

var _ pipeline.Stage[ports.Picture, pipeline.Frame] = (*Stage)(nil)

// NewStage creates an assembler. frameRate is attached to every
// renegotiation when set.
func NewStage(negotiator ports.Negotiator, frameRate pipeline.Fraction, logger ports.Logger) *Stage {
	s := &Stage{
		negotiator: negotiator,
		frameRate:  frameRate,
		logger:     logger.WithComponent("assemble"),
	}
	s.Reset()
	return s
}

// Reset forgets the recorded geometry so the next picture renegotiates.
func (s *Stage) Reset() {
	s.geometry = pipeline.Geometry{Width: -1, Height: -1, Format: pipeline.FormatI420}
	s.frames = 0
}

// Geometry returns the last negotiated geometry.
func (s *Stage) Geometry() pipeline.Geometry {
	return s.geometry
}

// Renegotiations returns how many renegotiations were acknowledged.
func (s *Stage) Renegotiations() int {
	return s.renegotiations
}

// Execute copies the picture planes into a new frame. The picture is only
// read; the caller releases it after Execute returns.
func (s *Stage) Execute(ctx context.Context, pic ports.Picture) (pipeline.Frame, error) {
	width, height := pic.Width(0), pic.Height(0)
	if width <= 0 || height <= 0 {
		return pipeline.Frame{}, fmt.Errorf("%w: %dx%d", ErrEmptyPicture, width, height)
	}

	if width != s.geometry.Width || height != s.geometry.Height {
		if err := s.renegotiate(ctx, width, height); err != nil {
			return pipeline.Frame{}, err
		}
	}

	geometry := s.geometry
	data := make([]byte, geometry.FrameSize())
	offset := 0
	for plane := 0; plane < planeCount; plane++ {
		n, err := copyPlane(data[offset:], pic, plane, geometry)
		if err != nil {
			return pipeline.Frame{}, err
		}
		offset += n
	}

	frame := pipeline.Frame{Index: s.frames, Geometry: geometry, Data: data}
	s.frames++
	return frame, nil
}

func (s *Stage) renegotiate(ctx context.Context, width, height int) error {
	geometry := pipeline.Geometry{
		Width:     width,
		Height:    height,
		Format:    pipeline.FormatI420,
		FrameRate: s.frameRate,
	}
	if err := s.negotiator.Renegotiate(ctx, geometry); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRenegotiationRejected, geometry, err)
	}
	s.logger.Info("Output format changed to %s", geometry.String())
	s.geometry = geometry
	s.renegotiations++
	return nil
}

// copyPlane copies one plane row by row into dst and returns the bytes written.
func copyPlane(dst []byte, pic ports.Picture, plane int, geometry pipeline.Geometry) (int, error) {
	width, height := geometry.PlaneSize(plane)
	stride := pic.Stride(plane)
	src := pic.Plane(plane)

	if stride < width {
		return 0, fmt.Errorf("%w: plane %d stride %d < width %d", ErrShortPlane, plane, stride, width)
	}
	if need := (height-1)*stride + width; len(src) < need {
		return 0, fmt.Errorf("%w: plane %d has %d bytes, need %d", ErrShortPlane, plane, len(src), need)
	}

	if stride == width {
		return copy(dst[:width*height], src[:width*height]), nil
	}
	for row := 0; row < height; row++ {
		copy(dst[row*width:(row+1)*width], src[row*stride:row*stride+width])
	}
	return width * height, nil
}
