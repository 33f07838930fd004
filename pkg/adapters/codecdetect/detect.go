// Package codecdetect identifies the video codec of MP4 files.
package codecdetect

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/decodebridge/pkg/ports"
)

// Codec names a video coding format.
type Codec string

const (
	CodecHEVC    Codec = "hevc"
	CodecH264    Codec = "h264"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

// ErrNoVideoTrack is returned when a file has no recognizable video track.
var ErrNoVideoTrack = errors.New("codecdetect: no video track found")

var sampleEntries = map[string]Codec{
	"hvc1": CodecHEVC,
	"hev1": CodecHEVC,
	"avc1": CodecH264,
	"avc3": CodecH264,
	"av01": CodecAV1,
}

// Decodable reports whether the bridge can feed samples of codec to an
// engine. Only NAL unit based codecs qualify.
func (c Codec) Decodable() bool {
	return c == CodecHEVC || c == CodecH264
}

// FromSampleEntry maps an stsd child box type to a codec.
func FromSampleEntry(boxType string) Codec {
	if c, ok := sampleEntries[boxType]; ok {
		return c
	}
	return CodecUnknown
}

// DetectFromFile reads path through fs and detects its codec.
func DetectFromFile(fs ports.FileSystem, path string) (Codec, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return CodecUnknown, fmt.Errorf("read file: %w", err)
	}
	return DetectFromBytes(data)
}

// DetectFromBytes detects the codec of an in-memory MP4.
func DetectFromBytes(data []byte) (Codec, error) {
	return DetectFromReader(bytes.NewReader(data))
}

// DetectFromReader parses the file and rewinds reader afterwards.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	f, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}
	return DetectFromMP4(f)
}

// DetectFromMP4 returns the codec of the first video track that has a known
// sample entry. Fragmented files are looked up through their init segment.
func DetectFromMP4(f *mp4.File) (Codec, error) {
	for _, trak := range tracks(f) {
		if c := trackCodec(trak); c != CodecUnknown {
			return c, nil
		}
	}
	return CodecUnknown, ErrNoVideoTrack
}

func tracks(f *mp4.File) []*mp4.TrakBox {
	var traks []*mp4.TrakBox
	if f.IsFragmented() && f.Init != nil && f.Init.Moov != nil {
		traks = append(traks, f.Init.Moov.Traks...)
	}
	if f.Moov != nil {
		traks = append(traks, f.Moov.Traks...)
	}
	return traks
}

func trackCodec(trak *mp4.TrakBox) Codec {
	mdia := trak.Mdia
	if mdia == nil || mdia.Hdlr == nil || mdia.Hdlr.HandlerType != "vide" {
		return CodecUnknown
	}
	if mdia.Minf == nil || mdia.Minf.Stbl == nil || mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}
	for _, child := range mdia.Minf.Stbl.Stsd.Children {
		if c := FromSampleEntry(child.Type()); c != CodecUnknown {
			return c
		}
	}
	return CodecUnknown
}
