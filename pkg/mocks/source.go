package mocks

import (
	"context"
	"io"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// Source is a mock implementation of ports.ChunkSource replaying fixed chunks.
type Source struct {
	Chunks []pipeline.Chunk
	Mode   pipeline.FramingMode
	Reads  int
	Closed bool

	// Err is returned instead of io.EOF once Chunks are exhausted.
	Err error
	// NextFunc overrides replay when set.
	NextFunc func(ctx context.Context) (pipeline.Chunk, error)
}

// NewSource creates a Source replaying data as plain chunks.
func NewSource(mode pipeline.FramingMode, data ...[]byte) *Source {
	s := &Source{Mode: mode}
	for _, d := range data {
		s.Chunks = append(s.Chunks, pipeline.Chunk{Data: d})
	}
	return s
}

func (m *Source) Next(ctx context.Context) (pipeline.Chunk, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx)
	}
	if err := ctx.Err(); err != nil {
		return pipeline.Chunk{}, err
	}
	if m.Reads >= len(m.Chunks) {
		if m.Err != nil {
			return pipeline.Chunk{}, m.Err
		}
		return pipeline.Chunk{}, io.EOF
	}
	c := m.Chunks[m.Reads]
	m.Reads++
	return c, nil
}

func (m *Source) Framing() pipeline.FramingMode {
	return m.Mode
}

func (m *Source) Close() error {
	m.Closed = true
	return nil
}

var _ ports.ChunkSource = (*Source)(nil)
