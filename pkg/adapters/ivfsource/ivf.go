// Package ivfsource reads IVF files, the container the libvpx tools write
// for VP8. Each chunk is one frame record, header included.
package ivfsource

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/user/decodebridge/pkg/pipeline"
)

const (
	// FileHeaderSize is the size of the "DKIF" file header.
	FileHeaderSize = 32
	// FrameHeaderSize is the size of the per-frame header: a little-endian
	// uint32 payload size followed by a uint64 timestamp.
	FrameHeaderSize = 12
	// MaxFrameSize bounds a single frame payload.
	MaxFrameSize = 16 << 20
)

// Signature opens every IVF file.
const Signature = "DKIF"

var (
	// ErrNotIVF is returned for data without the IVF signature.
	ErrNotIVF = errors.New("ivfsource: not an IVF file")
	// ErrFrameTooLarge is returned for a frame header above MaxFrameSize.
	ErrFrameTooLarge = errors.New("ivfsource: frame exceeds size limit")
)

// Header is the decoded IVF file header.
type Header struct {
	FourCC string
	Width  int
	Height int
	// Rate is the header's rate over scale, in frames per second.
	Rate   pipeline.Fraction
	Frames int
}

// ParseHeader decodes a 32-byte file header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < FileHeaderSize || string(b[:4]) != Signature {
		return Header{}, ErrNotIVF
	}
	if size := binary.LittleEndian.Uint16(b[6:8]); size < FileHeaderSize {
		return Header{}, fmt.Errorf("%w: header size %d", ErrNotIVF, size)
	}
	return Header{
		FourCC: string(b[8:12]),
		Width:  int(binary.LittleEndian.Uint16(b[12:14])),
		Height: int(binary.LittleEndian.Uint16(b[14:16])),
		Rate: pipeline.Fraction{
			Num: int(binary.LittleEndian.Uint32(b[16:20])),
			Den: int(binary.LittleEndian.Uint32(b[20:24])),
		},
		Frames: int(binary.LittleEndian.Uint32(b[24:28])),
	}, nil
}

// Encode renders h as a file header.
func (h Header) Encode() []byte {
	b := make([]byte, FileHeaderSize)
	copy(b, Signature)
	binary.LittleEndian.PutUint16(b[6:8], FileHeaderSize)
	copy(b[8:12], h.FourCC)
	binary.LittleEndian.PutUint16(b[12:14], uint16(h.Width))
	binary.LittleEndian.PutUint16(b[14:16], uint16(h.Height))
	binary.LittleEndian.PutUint32(b[16:20], uint32(h.Rate.Num))
	binary.LittleEndian.PutUint32(b[20:24], uint32(h.Rate.Den))
	binary.LittleEndian.PutUint32(b[24:28], uint32(h.Frames))
	return b
}

// AppendFrame appends one frame record to dst.
func AppendFrame(dst []byte, pts uint64, frame []byte) []byte {
	var hdr [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:4], uint32(len(frame)))
	binary.LittleEndian.PutUint64(hdr[4:], pts)
	dst = append(dst, hdr[:]...)
	return append(dst, frame...)
}

// SplitFrame takes the first complete frame record off buf. ok is false
// when buf does not yet hold a whole record.
func SplitFrame(buf []byte) (frame, rest []byte, ok bool, err error) {
	if len(buf) < FrameHeaderSize {
		return nil, buf, false, nil
	}
	size := binary.LittleEndian.Uint32(buf[:4])
	if size > MaxFrameSize {
		return nil, buf, false, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	end := FrameHeaderSize + int(size)
	if len(buf) < end {
		return nil, buf, false, nil
	}
	return buf[FrameHeaderSize:end], buf[end:], true, nil
}
