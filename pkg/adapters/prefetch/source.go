// Package prefetch reads chunks ahead of the decode loop on a separate
// goroutine, so file or network reads overlap with decoding.
package prefetch

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// DefaultDepth is the number of chunks buffered ahead.
const DefaultDepth = 8

// Source wraps a ports.ChunkSource with a bounded read-ahead queue. The
// wrapped source is only touched by the reader goroutine until Close.
type Source struct {
	inner  ports.ChunkSource
	chunks chan pipeline.Chunk
	cancel context.CancelFunc
	group  *errgroup.Group
	err    error
	done   bool
}

// New starts reading inner in the background. The reader stops when ctx is
// cancelled, the source ends, or Close is called.
func New(ctx context.Context, inner ports.ChunkSource, depth int) *Source {
	if depth <= 0 {
		depth = DefaultDepth
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	s := &Source{
		inner:  inner,
		chunks: make(chan pipeline.Chunk, depth),
		cancel: cancel,
		group:  g,
	}
	g.Go(func() error {
		defer close(s.chunks)
		for {
			chunk, err := inner.Next(gctx)
			if err != nil {
				return err
			}
			select {
			case s.chunks <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	return s
}

// Framing reports the wrapped source's framing.
func (s *Source) Framing() pipeline.FramingMode {
	return s.inner.Framing()
}

// Next returns the next buffered chunk. Once the reader has stopped, Next
// returns its error: io.EOF at the end of input.
func (s *Source) Next(ctx context.Context) (pipeline.Chunk, error) {
	if s.done {
		return pipeline.Chunk{}, s.err
	}
	select {
	case chunk, ok := <-s.chunks:
		if ok {
			return chunk, nil
		}
		s.done = true
		s.err = s.group.Wait()
		if s.err == nil {
			s.err = io.EOF
		}
		return pipeline.Chunk{}, s.err
	case <-ctx.Done():
		return pipeline.Chunk{}, ctx.Err()
	}
}

// Close stops the reader and closes the wrapped source.
func (s *Source) Close() error {
	s.cancel()
	// Unblock a reader waiting on a full queue.
	for range s.chunks {
	}
	err := s.group.Wait()
	closeErr := s.inner.Close()
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		return errors.Join(err, closeErr)
	}
	return closeErr
}

var _ ports.ChunkSource = (*Source)(nil)
