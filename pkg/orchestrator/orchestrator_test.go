package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/decodebridge/pkg/adapters/logger"
	"github.com/user/decodebridge/pkg/adapters/softengine"
	"github.com/user/decodebridge/pkg/controller"
	"github.com/user/decodebridge/pkg/decoder"
	"github.com/user/decodebridge/pkg/mocks"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

func split(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

func newAdapter(capacity int) *decoder.Adapter {
	engine := softengine.New(softengine.WithQueueCapacity(capacity))
	return decoder.New(engine, logger.NewNoop(), decoder.WithThreads(2))
}

func TestOrchestrator_RawStream(t *testing.T) {
	stream := softengine.EncodeAnnexB(softengine.Stream(16, 8, 10)...)
	source := mocks.NewSource(pipeline.FramingRaw, split(stream, 5)...)
	downstream := mocks.NewDownstream()
	fs := mocks.NewFileSystem()

	o := New(newAdapter(2), source, downstream, fs, logger.NewNoop())
	result, err := o.Run(context.Background(), Config{
		Framing:     pipeline.FramingRaw,
		FrameRate:   pipeline.Fraction{Num: 25, Den: 1},
		Input:       "synthetic.h265",
		InputFormat: "annexb",
		SummaryPath: "summary.md",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, result.Stats.Frames)
	assert.Equal(t, 10, downstream.FrameCount())
	assert.Equal(t, 1, result.Stats.Renegotiations)
	assert.Equal(t, len(stream), result.Stats.BytesIn)
	assert.Equal(t, len(stream), result.Stats.BytesFed)
	assert.Equal(t, 16, result.Geometry.Width)
	assert.Equal(t, 8, result.Geometry.Height)
	assert.Equal(t, pipeline.Fraction{Num: 25, Den: 1}, result.Geometry.FrameRate)
	assert.NotEmpty(t, result.StreamID)
	assert.True(t, source.Closed)
	assert.True(t, downstream.Closed)

	for i, f := range downstream.Frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, byte(i), f.Data[0], "luma origin carries the picture seed")
	}

	summary, ok := fs.GetFile("summary.md")
	require.True(t, ok)
	assert.Contains(t, string(summary), "| Frames | 10 |")
	assert.Contains(t, string(summary), "| Engine | soft |")
	assert.Contains(t, string(summary), "| Geometry | 16x8 I420 |")
}

func TestOrchestrator_PacketizedSkipsMalformedChunk(t *testing.T) {
	var chunks [][]byte
	for i, unit := range softengine.Stream(4, 4, 5) {
		chunks = append(chunks, softengine.EncodePacketized(unit))
		if i == 2 {
			chunks = append(chunks, []byte{0, 0, 0, 9, 1, 2})
		}
	}
	source := mocks.NewSource(pipeline.FramingPacketized, chunks...)
	downstream := mocks.NewDownstream()

	o := New(newAdapter(4), source, downstream, mocks.NewFileSystem(), logger.NewNoop())
	result, err := o.Run(context.Background(), Config{Framing: pipeline.FramingPacketized})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.FramingErrors)
	assert.Equal(t, 5, result.Stats.Frames)
	assert.Equal(t, len(chunks), result.Stats.Chunks)
}

func TestOrchestrator_DiscontinuityFlushes(t *testing.T) {
	first := softengine.EncodeAnnexB(softengine.Stream(8, 8, 3)...)
	second := softengine.EncodeAnnexB(softengine.Stream(8, 8, 2)...)
	source := &mocks.Source{
		Mode: pipeline.FramingRaw,
		Chunks: []pipeline.Chunk{
			{Data: first},
			{Data: second, Discontinuity: true},
		},
	}

	o := New(newAdapter(8), source, mocks.NewDownstream(), mocks.NewFileSystem(), logger.NewNoop())
	result, err := o.Run(context.Background(), Config{Framing: pipeline.FramingRaw})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Flushes)
	// The flush discards the one queued picture. The first chunk's final
	// unit stays in the engine input and completes with the next chunk.
	assert.Equal(t, 1, result.Stats.Discarded)
	assert.Equal(t, 4, result.Stats.Frames)
}

func TestOrchestrator_FatalDecodeError(t *testing.T) {
	units := append(softengine.Stream(4, 4, 2), softengine.CorruptUnit(), softengine.PictureUnit(9))
	source := mocks.NewSource(pipeline.FramingRaw, softengine.EncodeAnnexB(units...))
	downstream := mocks.NewDownstream()

	o := New(newAdapter(4), source, downstream, mocks.NewFileSystem(), logger.NewNoop())
	result, err := o.Run(context.Background(), Config{Framing: pipeline.FramingRaw})

	require.Error(t, err)
	assert.ErrorIs(t, err, controller.ErrStreamFailed)
	assert.ErrorIs(t, err, decoder.ErrFatalDecode)
	assert.Equal(t, err, result.Err)
	assert.True(t, downstream.Closed)
}

func TestOrchestrator_SourceError(t *testing.T) {
	source := mocks.NewSource(pipeline.FramingRaw, softengine.EncodeAnnexB(softengine.Stream(4, 4, 1)...))
	source.Err = errors.New("connection reset")

	o := New(newAdapter(4), source, mocks.NewDownstream(), mocks.NewFileSystem(), logger.NewNoop())
	_, err := o.Run(context.Background(), Config{Framing: pipeline.FramingRaw})

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "read input: connection reset"))
}

func TestOrchestrator_StartFailure(t *testing.T) {
	engine := &mocks.Engine{
		NewContextFunc: func() (ports.EngineContext, error) {
			return nil, errors.New("no library")
		},
	}
	source := mocks.NewSource(pipeline.FramingRaw)
	downstream := mocks.NewDownstream()

	o := New(decoder.New(engine, logger.NewNoop()), source, downstream, mocks.NewFileSystem(), logger.NewNoop())
	_, err := o.Run(context.Background(), Config{})

	assert.ErrorIs(t, err, decoder.ErrEngineInit)
	assert.True(t, source.Closed)
	assert.True(t, downstream.Closed)
}

func TestOrchestrator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := mocks.NewSource(pipeline.FramingRaw, []byte{0, 0, 0, 1})

	o := New(newAdapter(4), source, mocks.NewDownstream(), mocks.NewFileSystem(), logger.NewNoop())
	_, err := o.Run(ctx, Config{Framing: pipeline.FramingRaw})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrchestrator_SummaryWriteFailureIsNotFatal(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error { return errors.New("read-only") }
	source := mocks.NewSource(pipeline.FramingRaw, softengine.EncodeAnnexB(softengine.Stream(4, 4, 2)...))
	log := logger.NewMemory()

	o := New(newAdapter(4), source, mocks.NewDownstream(), fs, log)
	result, err := o.Run(context.Background(), Config{Framing: pipeline.FramingRaw, SummaryPath: "s.md"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Frames)
	warns := log.Entries(ports.LevelWarn)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "read-only")
}
