package libvpx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/decodebridge/pkg/adapters/ivfsource"
	"github.com/user/decodebridge/pkg/mocks"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// fakeCodec decodes a frame whose first byte is the picture width; a zero
// width frame is hidden (no output) and 0xFF is corrupt.
type fakeCodec struct {
	threads int
	decoded [][]byte
	last    []byte
	closed  int
}

func (f *fakeCodec) decode(frame []byte) int {
	f.decoded = append(f.decoded, append([]byte(nil), frame...))
	if frame[0] == 0xFF {
		return 7
	}
	f.last = frame
	return codeOK
}

func (f *fakeCodec) nextImage() (ports.Picture, error) {
	if f.last == nil || f.last[0] == 0 {
		return nil, nil
	}
	w := int(f.last[0])
	f.last = nil
	return mocks.NewPicture(w, 2, 0, byte(len(f.decoded))), nil
}

func (f *fakeCodec) errorText(code int) string { return "Corrupt frame detected" }
func (f *fakeCodec) close()                    { f.closed++ }

func newContext(t *testing.T) (*decoderContext, *fakeCodec) {
	t.Helper()
	fake := &fakeCodec{}
	c := &decoderContext{open: func(threads int) (backend, error) {
		fake.threads = threads
		return fake, nil
	}}
	require.NoError(t, c.StartWorkers(3))
	return c, fake
}

func record(frame ...byte) []byte {
	return ivfsource.AppendFrame(nil, 0, frame)
}

func TestContext_DecodesOneFramePerPicture(t *testing.T) {
	c, fake := newContext(t)
	assert.Equal(t, 3, fake.threads)

	file := ivfsource.Header{FourCC: "VP80", Width: 8, Height: 2, Rate: pipeline.Fraction{Num: 30, Den: 1}}.Encode()
	file = append(file, record(8, 1)...)
	file = append(file, record(0)...)
	file = append(file, record(16, 2)...)

	// Arbitrary chunking across the file header and records.
	assert.Equal(t, ports.StatusOK, c.Push(file[:10]).Kind)
	status, more := c.Decode()
	assert.Equal(t, ports.StatusNeedMoreInput, status.Kind)
	assert.False(t, more)

	c.Push(file[10:])
	status, more = c.Decode()
	require.Equal(t, ports.StatusOK, status.Kind)
	assert.True(t, more)
	require.NotNil(t, c.PeekPicture())
	assert.Equal(t, 8, c.PeekPicture().Width(0))

	status, _ = c.Decode()
	assert.Equal(t, ports.StatusBufferFull, status.Kind, "the single output image is still held")

	c.NextPicture()
	status, more = c.Decode()
	require.Equal(t, ports.StatusOK, status.Kind)
	assert.False(t, more)
	assert.Equal(t, 16, c.PeekPicture().Width(0), "hidden frame produced no picture")
	assert.Len(t, fake.decoded, 3)

	c.NextPicture()
	status, _ = c.Decode()
	assert.Equal(t, ports.StatusNeedMoreInput, status.Kind)
}

func TestContext_RawFrameStreamWithoutFileHeader(t *testing.T) {
	c, _ := newContext(t)
	c.Push(record(4, 9))

	status, _ := c.Decode()
	require.Equal(t, ports.StatusOK, status.Kind)
	assert.Equal(t, 4, c.PeekPicture().Width(0))
}

func TestContext_CorruptFrameIsFatal(t *testing.T) {
	c, _ := newContext(t)
	c.Push(record(0xFF))

	status, more := c.Decode()
	assert.Equal(t, ports.StatusError, status.Kind)
	assert.Equal(t, 7, status.Code)
	assert.Equal(t, "Corrupt frame detected", status.Text)
	assert.False(t, more)
}

func TestContext_OversizedRecordIsFatal(t *testing.T) {
	c, _ := newContext(t)
	hdr := record()
	hdr[3] = 0x7f
	c.Push(hdr)

	status, _ := c.Decode()
	assert.Equal(t, ports.StatusError, status.Kind)
	assert.Equal(t, codeUnsupBitstream, status.Code)
}

func TestContext_TruncatedTailWarnsAtEndOfStream(t *testing.T) {
	c, _ := newContext(t)
	c.Push(record(8, 1, 2, 3)[:14])

	status, _ := c.Decode()
	assert.Equal(t, ports.StatusNeedMoreInput, status.Kind)
	_, ok := c.NextWarning()
	assert.False(t, ok, "a partial record is not a warning mid-stream")

	c.EndOfStream()
	status, more := c.Decode()
	assert.Equal(t, ports.StatusNeedMoreInput, status.Kind)
	assert.False(t, more)

	w, ok := c.NextWarning()
	require.True(t, ok)
	assert.Equal(t, codeTruncated, w.Code)
	assert.Contains(t, w.Text, "14 bytes")
}

func TestContext_NotStarted(t *testing.T) {
	c := &decoderContext{open: func(int) (backend, error) { return nil, errors.New("no vp8") }}
	assert.Error(t, c.StartWorkers(1))
	assert.Equal(t, ports.StatusError, c.Push([]byte{1}).Kind)
	c.Free()
}

func TestContext_FreeClosesOnce(t *testing.T) {
	c, fake := newContext(t)
	c.Push(record(8, 1))
	c.Decode()

	c.Free()
	c.Free()
	assert.Equal(t, 1, fake.closed)
	assert.Nil(t, c.PeekPicture())
}
