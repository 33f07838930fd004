package ports

import (
	"context"

	"github.com/user/decodebridge/pkg/pipeline"
)

// ChunkSource produces compressed chunks of arbitrary size. Next returns
// io.EOF once the stream is exhausted.
type ChunkSource interface {
	Next(ctx context.Context) (pipeline.Chunk, error)

	// Framing reports the packaging convention of the chunks produced.
	Framing() pipeline.FramingMode

	Close() error
}
