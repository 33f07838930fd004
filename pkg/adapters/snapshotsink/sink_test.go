package snapshotsink

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/user/decodebridge/pkg/adapters/logger"
	"github.com/user/decodebridge/pkg/mocks"
	"github.com/user/decodebridge/pkg/pipeline"
)

func grayFrame(index, width, height int, luma byte) pipeline.Frame {
	g := pipeline.Geometry{Width: width, Height: height, Format: pipeline.FormatI420}
	data := make([]byte, g.FrameSize())
	ySize := width * height
	for i := range data {
		if i < ySize {
			data[i] = luma
		} else {
			data[i] = 128
		}
	}
	return pipeline.Frame{Index: index, Geometry: g, Data: data}
}

func TestSink_TeesAndSnapshotsEveryN(t *testing.T) {
	fs := mocks.NewFileSystem()
	next := mocks.NewDownstream()
	sink := New(next, fs, Options{Dir: "snaps", Every: 2}, logger.NewNoop())
	ctx := context.Background()

	g := pipeline.Geometry{Width: 16, Height: 8, Format: pipeline.FormatI420}
	require.NoError(t, sink.Renegotiate(ctx, g))
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.PushFrame(ctx, grayFrame(i, 16, 8, 100)))
	}
	require.NoError(t, sink.Close())

	assert.Equal(t, 5, next.FrameCount())
	assert.True(t, next.Closed)
	assert.Equal(t, []string{
		filepath.Join("snaps", "frame-000000.bmp"),
		filepath.Join("snaps", "frame-000002.bmp"),
		filepath.Join("snaps", "frame-000004.bmp"),
	}, sink.Written())
}

func TestSink_SnapshotContents(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(mocks.NewDownstream(), fs, Options{Dir: "snaps", Every: 1, MaxWidth: 32, Label: true}, logger.NewNoop())

	require.NoError(t, sink.PushFrame(context.Background(), grayFrame(0, 64, 48, 200)))

	data, ok := fs.GetFile(filepath.Join("snaps", "frame-000000.bmp"))
	require.True(t, ok)
	img, err := bmp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())

	// Below the label band the frame is neutral gray.
	r, g, b, _ := img.At(31, 23).RGBA()
	assert.InDelta(t, 200, int(r>>8), 2)
	assert.InDelta(t, 200, int(g>>8), 2)
	assert.InDelta(t, 200, int(b>>8), 2)
}

func TestSink_DownstreamErrorSkipsSnapshot(t *testing.T) {
	fs := mocks.NewFileSystem()
	next := mocks.NewDownstream()
	next.PushFrameFunc = func(ctx context.Context, frame pipeline.Frame) error {
		return errors.New("downstream closed")
	}
	sink := New(next, fs, Options{Dir: "snaps", Every: 1}, logger.NewNoop())

	err := sink.PushFrame(context.Background(), grayFrame(0, 4, 4, 10))
	assert.Error(t, err)
	assert.Empty(t, fs.GetAllFiles())
}

func TestSink_WriteFailureIsNotFatal(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error {
		return errors.New("read-only")
	}
	next := mocks.NewDownstream()
	sink := New(next, fs, Options{Dir: "snaps", Every: 1}, logger.NewNoop())

	assert.NoError(t, sink.PushFrame(context.Background(), grayFrame(0, 4, 4, 10)))
	assert.Equal(t, 1, next.FrameCount())
	assert.Empty(t, sink.Written())
}

func TestToImage(t *testing.T) {
	frame := grayFrame(0, 3, 3, 50)
	img, err := ToImage(frame)
	require.NoError(t, err)
	assert.Equal(t, 2, img.CStride)
	assert.Len(t, img.Cb, 4)
	assert.Equal(t, uint8(50), img.YCbCrAt(2, 2).Y)

	_, err = ToImage(pipeline.Frame{Geometry: pipeline.Geometry{Width: 4, Height: 4}, Data: make([]byte, 3)})
	assert.Error(t, err)
}

func TestThumbnail_NoUpscale(t *testing.T) {
	img, err := ToImage(grayFrame(0, 10, 6, 0))
	require.NoError(t, err)
	thumb := Thumbnail(img, 320)
	assert.Equal(t, 10, thumb.Bounds().Dx())
	assert.Equal(t, 6, thumb.Bounds().Dy())
}
