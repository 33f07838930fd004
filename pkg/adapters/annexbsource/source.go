// Package annexbsource streams an elementary stream file in fixed-size
// chunks that ignore unit boundaries. Length-prefixed dumps are read in
// whole records instead.
package annexbsource

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// DefaultChunkSize is used when no chunk size is configured.
const DefaultChunkSize = 4096

// MaxRecordSize bounds a single length-prefixed record.
const MaxRecordSize = 64 << 20

// Source is a ports.ChunkSource reading from an io.Reader.
type Source struct {
	reader    io.ReadCloser
	chunkSize int
	framing   pipeline.FramingMode
	done      bool
}

// Open opens path through fs. chunkSize <= 0 selects DefaultChunkSize.
func Open(fs ports.FileSystem, path string, chunkSize int) (*Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return New(f, chunkSize), nil
}

// New wraps reader. The stream is start-code delimited.
func New(reader io.ReadCloser, chunkSize int) *Source {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Source{reader: reader, chunkSize: chunkSize, framing: pipeline.FramingRaw}
}

// WithFraming declares the packaging of the file. In packetized mode each
// chunk holds whole records, at least chunkSize bytes of them except at the
// end of the file.
func (s *Source) WithFraming(mode pipeline.FramingMode) *Source {
	s.framing = mode
	return s
}

// Framing implements ports.ChunkSource.
func (s *Source) Framing() pipeline.FramingMode {
	return s.framing
}

// Next implements ports.ChunkSource.
func (s *Source) Next(ctx context.Context) (pipeline.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Chunk{}, err
	}
	if s.done {
		return pipeline.Chunk{}, io.EOF
	}
	if s.framing == pipeline.FramingPacketized {
		return s.nextRecords()
	}
	buf := make([]byte, s.chunkSize)
	n, err := io.ReadFull(s.reader, buf)
	switch {
	case err == nil:
		return pipeline.Chunk{Data: buf}, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		return pipeline.Chunk{Data: buf[:n]}, nil
	case errors.Is(err, io.EOF):
		s.done = true
		return pipeline.Chunk{}, io.EOF
	default:
		return pipeline.Chunk{}, fmt.Errorf("read input: %w", err)
	}
}

// nextRecords collects records until chunkSize bytes are buffered. A
// truncated or oversized record ends the stream and is returned as is, so
// the reframer rejects it.
func (s *Source) nextRecords() (pipeline.Chunk, error) {
	var buf []byte
	for !s.done && len(buf) < s.chunkSize {
		var header [4]byte
		n, err := io.ReadFull(s.reader, header[:])
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				return pipeline.Chunk{}, fmt.Errorf("read input: %w", err)
			}
			s.done = true
			buf = append(buf, header[:n]...)
			break
		}
		buf = append(buf, header[:]...)

		size := binary.BigEndian.Uint32(header[:])
		if size > MaxRecordSize {
			s.done = true
			break
		}
		start := len(buf)
		buf = append(buf, make([]byte, size)...)
		n, err = io.ReadFull(s.reader, buf[start:])
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				return pipeline.Chunk{}, fmt.Errorf("read input: %w", err)
			}
			s.done = true
			buf = buf[:start+n]
		}
	}
	if len(buf) == 0 {
		return pipeline.Chunk{}, io.EOF
	}
	return pipeline.Chunk{Data: buf}, nil
}

// Close implements ports.ChunkSource.
func (s *Source) Close() error {
	return s.reader.Close()
}
