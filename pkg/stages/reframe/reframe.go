// Package reframe converts length-prefixed bitstream units into start-code
// delimited units in place.
package reframe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/user/decodebridge/pkg/pipeline"
)

// lengthSize is the width of each big-endian length field.
const lengthSize = 4

// StartCode replaces each length field.
var StartCode = [lengthSize]byte{0x00, 0x00, 0x00, 0x01}

// ErrFramingOverflow is returned when a length field points past the end of
// the buffer.
var ErrFramingOverflow = errors.New("reframe: overflow in input data, check framing mode")

// OverflowError describes where a packetized buffer stopped tiling.
type OverflowError struct {
	Offset int // offset of the offending length field
	Length int // declared payload length
	Size   int // total buffer size
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("reframe: record at offset %d declares %d bytes but buffer holds %d",
		e.Offset, e.Length, e.Size)
}

// Is makes errors.Is(err, ErrFramingOverflow) hold.
func (e *OverflowError) Is(target error) bool {
	return target == ErrFramingOverflow
}

// Reframe rewrites every length field of buf with StartCode and returns the
// number of records. buf keeps its size. On error buf may be partially
// rewritten and must not be handed to a decoder.
func Reframe(buf []byte) (int, error) {
	records := 0
	offset := 0
	for offset < len(buf) {
		if offset+lengthSize > len(buf) {
			return records, &OverflowError{Offset: offset, Length: 0, Size: len(buf)}
		}
		n := int(binary.BigEndian.Uint32(buf[offset:]))
		copy(buf[offset:], StartCode[:])
		next := offset + lengthSize + n
		if n < 0 || next > len(buf) || next < offset {
			return records, &OverflowError{Offset: offset, Length: n, Size: len(buf)}
		}
		records++
		offset = next
	}
	return records, nil
}

// CountStartCodes counts 4-byte start codes in buf.
func CountStartCodes(buf []byte) int {
	count := 0
	for i := 0; i+lengthSize <= len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 0 && buf[i+3] == 1 {
			count++
			i += lengthSize - 1
		}
	}
	return count
}

// Stage applies Reframe when the configured framing is packetized and passes
// raw input through untouched.
type Stage struct {
	mode pipeline.FramingMode
}

// NewStage creates a reframing stage for the given input framing.
func NewStage(mode pipeline.FramingMode) *Stage {
	return &Stage{mode: mode}
}

// Mode returns the configured input framing.
func (s *Stage) Mode() pipeline.FramingMode {
	return s.mode
}

// Execute rewrites input in place and returns it.
func (s *Stage) Execute(ctx context.Context, input []byte) ([]byte, error) {
	if s.mode != pipeline.FramingPacketized {
		return input, nil
	}
	if _, err := Reframe(input); err != nil {
		return nil, err
	}
	return input, nil
}

var _ pipeline.Stage[[]byte, []byte] = (*Stage)(nil)
