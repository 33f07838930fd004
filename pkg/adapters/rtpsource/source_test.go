package rtpsource

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/decodebridge/pkg/adapters/logger"
	"github.com/user/decodebridge/pkg/adapters/softengine"
	"github.com/user/decodebridge/pkg/pipeline"
)

// dump writes every unit as its own access unit.
func dump(t *testing.T, units [][]byte, mtu uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, 0x1234, 96, mtu)
	for _, u := range units {
		require.NoError(t, w.WriteAccessUnit(softengine.EncodeAnnexB(u), ClockRate/30))
	}
	return buf.Bytes()
}

// frames splits an RFC 4571 dump into its framed packets.
func frames(data []byte) [][]byte {
	var out [][]byte
	for len(data) >= 2 {
		n := int(binary.BigEndian.Uint16(data)) + 2
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

func readAll(t *testing.T, src *Source) []pipeline.Chunk {
	t.Helper()
	var chunks []pipeline.Chunk
	for {
		chunk, err := src.Next(context.Background())
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

func TestSource_RoundTrip(t *testing.T) {
	for _, mtu := range []uint16{DefaultMTU, 4} {
		units := softengine.Stream(320, 240, 4)
		src := New(io.NopCloser(bytes.NewReader(dump(t, units, mtu))), logger.NewNoop())

		chunks := readAll(t, src)
		require.Len(t, chunks, len(units), "mtu %d", mtu)
		for i, u := range units {
			assert.Equal(t, softengine.EncodePacketized(u), chunks[i].Data, "mtu %d unit %d", mtu, i)
			assert.False(t, chunks[i].Discontinuity)
		}
		assert.Equal(t, 0, src.Lost())
		assert.Equal(t, pipeline.FramingPacketized, src.Framing())
	}
}

func TestSource_PacketLossMarksDiscontinuity(t *testing.T) {
	units := softengine.Stream(16, 16, 3)
	packets := frames(dump(t, units, DefaultMTU))
	require.Len(t, packets, 4)

	// Drop the packet carrying the second picture.
	kept := append(append([]byte(nil), bytes.Join(packets[:2], nil)...), packets[3]...)
	src := New(io.NopCloser(bytes.NewReader(kept)), logger.NewNoop())

	chunks := readAll(t, src)
	require.Len(t, chunks, 3)
	assert.False(t, chunks[1].Discontinuity)
	assert.True(t, chunks[2].Discontinuity)
	assert.Equal(t, softengine.EncodePacketized(units[3]), chunks[2].Data)
	assert.Equal(t, 1, src.Lost())
}

func TestSource_TruncatedDump(t *testing.T) {
	data := dump(t, softengine.Stream(16, 16, 1), DefaultMTU)
	src := New(io.NopCloser(bytes.NewReader(data[:len(data)-1])), logger.NewNoop())

	chunks := readAll(t, src)
	assert.Len(t, chunks, 1, "a truncated trailing packet is ignored")
}
