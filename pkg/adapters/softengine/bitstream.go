package softengine

import "encoding/binary"

// Unit types. The type is the first payload byte of a unit.
const (
	UnitPicture  byte = 0x01
	UnitGeometry byte = 0x46
	UnitWarning  byte = 0x4E
	UnitCorrupt  byte = 0x53
)

// stopByte terminates every unit so trailing zeros can be told apart from
// the next start code.
const stopByte = 0x80

var startCode = []byte{0, 0, 0, 1}

// GeometryUnit announces the size of the following pictures.
func GeometryUnit(width, height int) []byte {
	u := []byte{UnitGeometry, 0, 0, 0, 0}
	binary.BigEndian.PutUint16(u[1:3], uint16(width))
	binary.BigEndian.PutUint16(u[3:5], uint16(height))
	return u
}

// PictureUnit encodes one picture whose pixels derive from seed.
func PictureUnit(seed byte) []byte {
	return []byte{UnitPicture, seed}
}

// WarningUnit makes the decoder report a non-fatal warning with code.
func WarningUnit(code uint16) []byte {
	u := []byte{UnitWarning, 0, 0}
	binary.BigEndian.PutUint16(u[1:3], code)
	return u
}

// CorruptUnit makes the decoder fail.
func CorruptUnit() []byte {
	return []byte{UnitCorrupt}
}

// Stream returns the units of a sequence: one geometry unit followed by
// count picture units seeded 0..count-1.
func Stream(width, height, count int) [][]byte {
	units := [][]byte{GeometryUnit(width, height)}
	for i := 0; i < count; i++ {
		units = append(units, PictureUnit(byte(i)))
	}
	return units
}

// escape appends the stop byte and inserts emulation prevention bytes so the
// payload never contains a start code prefix.
func escape(unit []byte) []byte {
	out := make([]byte, 0, len(unit)+4)
	zeros := 0
	for _, b := range append(append([]byte(nil), unit...), stopByte) {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// unescape removes emulation prevention bytes and the stop byte.
func unescape(payload []byte) []byte {
	out := make([]byte, 0, len(payload))
	zeros := 0
	for _, b := range payload {
		if zeros >= 2 && b == 3 {
			zeros = 0
			continue
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	if n := len(out); n > 0 && out[n-1] == stopByte {
		out = out[:n-1]
	}
	return out
}

// EncodeAnnexB joins units into a start-code delimited stream.
func EncodeAnnexB(units ...[]byte) []byte {
	var out []byte
	for _, u := range units {
		out = append(out, startCode...)
		out = append(out, escape(u)...)
	}
	return out
}

// EncodePacketized joins units into a stream of 4-byte big-endian length
// prefixed records.
func EncodePacketized(units ...[]byte) []byte {
	var out []byte
	for _, u := range units {
		e := escape(u)
		out = binary.BigEndian.AppendUint32(out, uint32(len(e)))
		out = append(out, e...)
	}
	return out
}

// findStartCode returns the offset of the next 00 00 01 prefix at or after
// from, or -1.
func findStartCode(buf []byte, from int) int {
	for i := from; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i
		}
	}
	return -1
}

// nextUnit splits the first complete unit off buf. A unit is complete once
// the following start code is visible, or at end of stream. rest starts at
// the next start code.
func nextUnit(buf []byte, eos bool) (unit, rest []byte, ok bool) {
	sc := findStartCode(buf, 0)
	if sc < 0 {
		if eos {
			return nil, nil, false
		}
		return nil, buf, false
	}
	begin := sc + 3
	end := findStartCode(buf, begin)
	if end < 0 {
		if !eos {
			return nil, buf, false
		}
		end = len(buf)
		rest = nil
	} else {
		rest = buf[end:]
	}
	payload := buf[begin:end]
	for len(payload) > 0 && payload[len(payload)-1] == 0 {
		payload = payload[:len(payload)-1]
	}
	return unescape(payload), rest, true
}
