package ivfsource

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// Source is a ports.ChunkSource over an IVF file. The file header is read
// up front; every chunk carries one frame record, header included, so the
// chunks concatenate back into the IVF frame stream.
type Source struct {
	reader io.ReadCloser
	header Header
	frames int
	done   bool
}

// Open opens path through fs and reads its file header.
func Open(fs ports.FileSystem, path string) (*Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	s, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// New reads the file header from reader.
func New(reader io.ReadCloser) (*Source, error) {
	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotIVF, err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if extra := int(binary.LittleEndian.Uint16(buf[6:8])) - FileHeaderSize; extra > 0 {
		if _, err := io.CopyN(io.Discard, reader, int64(extra)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotIVF, err)
		}
	}
	return &Source{reader: reader, header: h}, nil
}

// Header returns the file header.
func (s *Source) Header() Header { return s.header }

// FrameRate returns the declared rate, reduced, or the unset fraction when
// the header carries none.
func (s *Source) FrameRate() pipeline.Fraction {
	r := s.header.Rate.Reduce()
	if !r.IsSet() || r.Validate() != nil {
		return pipeline.Fraction{Num: 0, Den: 1}
	}
	return r
}

// Frames returns the number of records read so far.
func (s *Source) Frames() int { return s.frames }

// Framing implements ports.ChunkSource. Frame records are handed to the
// engine untouched.
func (s *Source) Framing() pipeline.FramingMode {
	return pipeline.FramingRaw
}

// Next implements ports.ChunkSource. A truncated last record is returned as
// is and ends the stream.
func (s *Source) Next(ctx context.Context) (pipeline.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Chunk{}, err
	}
	if s.done {
		return pipeline.Chunk{}, io.EOF
	}

	var hdr [FrameHeaderSize]byte
	n, err := io.ReadFull(s.reader, hdr[:])
	switch {
	case errors.Is(err, io.EOF):
		s.done = true
		return pipeline.Chunk{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		return pipeline.Chunk{Data: append([]byte(nil), hdr[:n]...)}, nil
	case err != nil:
		return pipeline.Chunk{}, fmt.Errorf("read frame header: %w", err)
	}

	size := binary.LittleEndian.Uint32(hdr[:4])
	if size > MaxFrameSize {
		s.done = true
		return pipeline.Chunk{}, fmt.Errorf("frame %d: %w: %d bytes", s.frames, ErrFrameTooLarge, size)
	}
	data := make([]byte, FrameHeaderSize+int(size))
	copy(data, hdr[:])
	n, err = io.ReadFull(s.reader, data[FrameHeaderSize:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.done = true
			return pipeline.Chunk{Data: data[:FrameHeaderSize+n]}, nil
		}
		return pipeline.Chunk{}, fmt.Errorf("read frame %d: %w", s.frames, err)
	}
	s.frames++
	return pipeline.Chunk{Data: data}, nil
}

// Close implements ports.ChunkSource.
func (s *Source) Close() error {
	return s.reader.Close()
}

var _ ports.ChunkSource = (*Source)(nil)
