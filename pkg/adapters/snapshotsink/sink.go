// Package snapshotsink saves periodic thumbnails of decoded frames while
// passing every frame through to another downstream.
package snapshotsink

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// Defaults
const (
	DefaultEvery    = 30
	DefaultMaxWidth = 320
	labelHeight     = 18
)

// Options configure a Sink.
type Options struct {
	// Dir receives the BMP files.
	Dir string
	// Every writes a snapshot of frames whose index is a multiple of Every.
	Every int
	// MaxWidth bounds the thumbnail width. Narrower frames are not scaled.
	MaxWidth int
	// Label draws the frame index and geometry over the thumbnail.
	Label bool
}

// Sink is a tee: frames go to next first, then selected frames are written
// as BMP images. Snapshot failures are logged and never fail the stream.
type Sink struct {
	next    ports.Downstream
	fs      ports.FileSystem
	opts    Options
	logger  ports.Logger
	written []string
}

// New creates a Sink in front of next.
func New(next ports.Downstream, fs ports.FileSystem, opts Options, logger ports.Logger) *Sink {
	if opts.Every <= 0 {
		opts.Every = DefaultEvery
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	return &Sink{
		next:   next,
		fs:     fs,
		opts:   opts,
		logger: logger.WithComponent("snapshot"),
	}
}

// Renegotiate forwards the geometry.
func (s *Sink) Renegotiate(ctx context.Context, geometry pipeline.Geometry) error {
	return s.next.Renegotiate(ctx, geometry)
}

// PushFrame forwards the frame, then snapshots it when due.
func (s *Sink) PushFrame(ctx context.Context, frame pipeline.Frame) error {
	if err := s.next.PushFrame(ctx, frame); err != nil {
		return err
	}
	if frame.Index%s.opts.Every != 0 {
		return nil
	}
	path, err := s.save(frame)
	if err != nil {
		s.logger.Warn("Snapshot failed for frame %d: %s", frame.Index, err.Error())
		return nil
	}
	s.written = append(s.written, path)
	s.logger.Debug("Wrote snapshot %s", path)
	return nil
}

// Close closes the wrapped downstream.
func (s *Sink) Close() error {
	return s.next.Close()
}

// Written returns the paths of snapshots written so far.
func (s *Sink) Written() []string {
	return append([]string(nil), s.written...)
}

func (s *Sink) save(frame pipeline.Frame) (string, error) {
	src, err := ToImage(frame)
	if err != nil {
		return "", err
	}
	dst := Thumbnail(src, s.opts.MaxWidth)
	if s.opts.Label {
		drawLabel(dst, fmt.Sprintf("#%d %dx%d", frame.Index, frame.Geometry.Width, frame.Geometry.Height))
	}

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("encode BMP: %w", err)
	}
	if err := s.fs.MkdirAll(s.opts.Dir); err != nil {
		return "", err
	}
	path := filepath.Join(s.opts.Dir, fmt.Sprintf("frame-%06d.bmp", frame.Index))
	if err := s.fs.WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// ToImage wraps an I420 frame as a 4:2:0 image without copying.
func ToImage(frame pipeline.Frame) (*image.YCbCr, error) {
	g := frame.Geometry
	if g.Width <= 0 || g.Height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", g.Width, g.Height)
	}
	if len(frame.Data) < g.FrameSize() {
		return nil, fmt.Errorf("frame %d has %d bytes, want %d", frame.Index, len(frame.Data), g.FrameSize())
	}
	cw, _ := g.ChromaSize()
	return &image.YCbCr{
		Y:              frame.Plane(0),
		Cb:             frame.Plane(1),
		Cr:             frame.Plane(2),
		YStride:        g.Width,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, g.Width, g.Height),
	}, nil
}

// Thumbnail converts src to RGBA, scaling it down to maxWidth when wider.
func Thumbnail(src image.Image, maxWidth int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	th := max(1, h*maxWidth/w)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func drawLabel(img *image.RGBA, text string) {
	dc := gg.NewContextForRGBA(img)
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(0, 0, float64(img.Bounds().Dx()), labelHeight)
	dc.Fill()
	dc.SetRGB(1, 1, 0)
	dc.DrawString(text, 4, 13)
}

// Ensure Sink implements ports.Downstream
var _ ports.Downstream = (*Sink)(nil)
