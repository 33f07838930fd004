// Package rawsink writes assembled I420 frames to files.
//
// Frames are appended back to back with no container. Each accepted geometry
// starts a new segment file, since a raw stream cannot describe a size change.
// The first segment is written to the configured path, later ones get a
// "-N" suffix before the extension.
package rawsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

var (
	// ErrClosed is returned when writing to a closed sink.
	ErrClosed = errors.New("rawsink: sink is closed")

	// ErrFrameSize is returned when a frame does not match the negotiated geometry.
	ErrFrameSize = errors.New("rawsink: frame size does not match negotiated geometry")
)

// Segment describes one output file.
type Segment struct {
	Path     string
	Geometry pipeline.Geometry
	Frames   int
	Bytes    int64
}

// Sink writes frames through a ports.FileSystem.
type Sink struct {
	path     string
	fs       ports.FileSystem
	segments []Segment
	current  io.WriteCloser
	closed   bool
}

// New creates a Sink writing to path.
func New(path string, fs ports.FileSystem) *Sink {
	return &Sink{path: path, fs: fs}
}

// Renegotiate closes the current segment and records the new geometry. The
// next segment file is created lazily on the first frame.
func (s *Sink) Renegotiate(ctx context.Context, geometry pipeline.Geometry) error {
	if s.closed {
		return ErrClosed
	}
	if geometry.Format != "" && geometry.Format != pipeline.FormatI420 {
		return fmt.Errorf("unsupported pixel format %s", geometry.Format)
	}
	if err := s.closeCurrent(); err != nil {
		return err
	}
	s.segments = append(s.segments, Segment{
		Path:     segmentPath(s.path, len(s.segments)),
		Geometry: geometry,
	})
	return nil
}

// PushFrame appends the frame to the current segment.
func (s *Sink) PushFrame(ctx context.Context, frame pipeline.Frame) error {
	if s.closed {
		return ErrClosed
	}
	if len(s.segments) == 0 {
		return fmt.Errorf("frame %d pushed before negotiation", frame.Index)
	}
	seg := &s.segments[len(s.segments)-1]
	if want := seg.Geometry.FrameSize(); len(frame.Data) != want {
		return fmt.Errorf("frame %d: %d bytes, want %d: %w", frame.Index, len(frame.Data), want, ErrFrameSize)
	}

	if s.current == nil {
		w, err := s.fs.Create(seg.Path)
		if err != nil {
			return fmt.Errorf("create %s: %w", seg.Path, err)
		}
		s.current = w
	}
	n, err := s.current.Write(frame.Data)
	seg.Bytes += int64(n)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", frame.Index, err)
	}
	seg.Frames++
	return nil
}

// Close closes the open segment. Further calls are no-ops.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closeCurrent()
}

// Segments returns the segments written so far. Segments with no frames
// were negotiated but never created on disk.
func (s *Sink) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

func (s *Sink) closeCurrent() error {
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}

func segmentPath(path string, n int) string {
	if n == 0 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// Ensure Sink implements ports.Downstream
var _ ports.Downstream = (*Sink)(nil)
