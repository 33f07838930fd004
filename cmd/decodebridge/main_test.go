package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/decodebridge/pkg/adapters/ivfsource"
	"github.com/user/decodebridge/pkg/adapters/libvpx"
	"github.com/user/decodebridge/pkg/adapters/logger"
	"github.com/user/decodebridge/pkg/adapters/prefetch"
	"github.com/user/decodebridge/pkg/adapters/rtpsource"
	"github.com/user/decodebridge/pkg/config"
	"github.com/user/decodebridge/pkg/mocks"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().Run(append([]string{"decodebridge"}, args...))
}

func frameSize(w, h int) int {
	return pipeline.Geometry{Width: w, Height: h}.FrameSize()
}

func TestAccessUnits(t *testing.T) {
	aus := accessUnits(genOptions{width: 8, height: 4, frames: 6, resizeAt: 3, warnEvery: 2})
	require.Len(t, aus, 6)

	unitCounts := make([]int, len(aus))
	for i, au := range aus {
		unitCounts[i] = len(au)
	}
	// geometry+picture, picture, warning+picture, geometry+picture,
	// warning+picture, picture
	assert.Equal(t, []int{2, 1, 2, 2, 2, 1}, unitCounts)
}

func TestGenAndDecode(t *testing.T) {
	tests := []struct {
		format string
		args   []string
	}{
		{format: "annexb"},
		{format: "annexb", args: []string{"--chunk-size", "5", "--threads", "3"}},
		{format: "packetized", args: []string{"--mode", "packetized", "--chunk-size", "16"}},
		{format: "rtp", args: []string{"--format", "rtp"}},
	}

	for _, tt := range tests {
		t.Run(tt.format+strings.Join(tt.args, ""), func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, "in.bin")
			output := filepath.Join(dir, "out.yuv")
			summary := filepath.Join(dir, "summary.md")

			require.NoError(t, run(t, "gen", "-q", "--format", tt.format, "--width", "16", "--height", "8", "--frames", "12", "--mtu", "64", "-o", input))

			args := []string{"decode", "-q", "--engine", "soft", "--queue-capacity", "2", "-o", output, "--summary", summary}
			args = append(args, tt.args...)
			args = append(args, input)
			require.NoError(t, run(t, args...))

			data, err := os.ReadFile(output)
			require.NoError(t, err)
			assert.Len(t, data, 12*frameSize(16, 8))
			for i := 0; i < 12; i++ {
				assert.Equal(t, byte(i), data[i*frameSize(16, 8)], "frame %d", i)
			}

			report, err := os.ReadFile(summary)
			require.NoError(t, err)
			assert.Contains(t, string(report), "| Frames | 12 |")
		})
	}
}

func TestDecode_GeometryChangeWritesSegments(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.h265")
	output := filepath.Join(dir, "out.yuv")
	snaps := filepath.Join(dir, "snaps")

	require.NoError(t, run(t, "gen", "-q", "--width", "8", "--height", "8", "--frames", "8", "--resize-at", "5", "--warn-every", "3", "-o", input))
	require.NoError(t, run(t, "decode", "-q", "--engine", "soft", "-o", output, "--snapshots", snaps, "--snapshot-every", "4", input))

	first, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, first, 5*frameSize(8, 8))

	second, err := os.ReadFile(filepath.Join(dir, "out-1.yuv"))
	require.NoError(t, err)
	assert.Len(t, second, 3*frameSize(16, 16))

	entries, err := os.ReadDir(snaps)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"frame-000000.bmp", "frame-000004.bmp"}, names)
}

func TestDecode_Errors(t *testing.T) {
	dir := t.TempDir()

	err := run(t, "decode", "-q", "--engine", "soft")
	assert.Error(t, err, "missing input")

	err = run(t, "decode", "-q", "--engine", "ffmpeg", filepath.Join(dir, "x"))
	assert.Error(t, err, "unknown engine")

	err = run(t, "decode", "-q", "--engine", "soft", "--framerate", "500/1", filepath.Join(dir, "x"))
	assert.Error(t, err, "frame rate out of range")

	err = run(t, "decode", "-q", "--engine", "soft", filepath.Join(dir, "missing.h265"))
	if assert.Error(t, err, "missing file") {
		assert.Contains(t, err.Error(), "does not exist")
	}

	err = run(t, "decode", "-q", "--engine", "vp8", filepath.Join(dir, "x"))
	assert.ErrorIs(t, err, config.ErrInvalid, "vp8 needs ivf input")

	err = run(t, "decode", "-q", "--engine", "soft", "--format", "ivf", filepath.Join(dir, "x"))
	assert.ErrorIs(t, err, config.ErrInvalid, "ivf needs the vp8 engine")

	err = run(t, "gen", "-q", "--frames", "0", "-o", filepath.Join(dir, "g.bin"))
	assert.Error(t, err)
}

func TestDecode_IVFCorruptFrame(t *testing.T) {
	if !libvpx.Available() {
		t.Skip("libvpx not installed")
	}
	input := filepath.Join(t.TempDir(), "in.ivf")
	h := ivfsource.Header{FourCC: "VP80", Width: 16, Height: 16, Rate: pipeline.Fraction{Num: 30, Den: 1}, Frames: 1}
	data := ivfsource.AppendFrame(h.Encode(), 0, []byte{0x10, 0x02, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x10, 0x00})
	require.NoError(t, os.WriteFile(input, data, 0644))

	err := run(t, "decode", "-q", "--engine", "vp8", "--format", "ivf", input)
	assert.Error(t, err)
}

func TestWithPrefetch(t *testing.T) {
	src := mocks.NewSource(pipeline.FramingRaw, []byte{1})

	cfg := config.Defaults()
	cfg.Input = "-"
	assert.Same(t, src, withPrefetch(context.Background(), cfg, src), "standard input is read directly")

	cfg.Input = "clip.h265"
	wrapped := withPrefetch(context.Background(), cfg, src)
	require.IsType(t, &prefetch.Source{}, wrapped)
	assert.NoError(t, wrapped.Close())
}

func TestReportLoss(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.rtp")
	require.NoError(t, run(t, "gen", "-q", "--format", "rtp", "--width", "8", "--height", "8", "--frames", "6", "-o", input))

	data, err := os.ReadFile(input)
	require.NoError(t, err)
	var packets [][]byte
	for len(data) >= 2 {
		n := int(binary.BigEndian.Uint16(data)) + 2
		packets = append(packets, data[:n])
		data = data[n:]
	}
	require.Greater(t, len(packets), 3)
	kept := append(bytes.Join(packets[:2], nil), bytes.Join(packets[3:], nil)...)

	log := logger.NewMemory()
	src := rtpsource.New(io.NopCloser(bytes.NewReader(kept)), logger.NewNoop())
	for {
		if _, err := src.Next(context.Background()); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}
	reportLoss(src, log)

	warnings := log.Entries(ports.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Equal(t, "1 RTP packets were lost in total", warnings[0].Message)

	// Other sources report nothing.
	reportLoss(mocks.NewSource(pipeline.FramingRaw), log)
	assert.Len(t, log.Entries(ports.LevelWarn), 1)
}
