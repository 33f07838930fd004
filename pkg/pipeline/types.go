package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// Input
// =============================================================================

// FramingMode is the packaging convention of compressed input.
type FramingMode int

const (
	// FramingPacketized is a sequence of 4-byte big-endian length prefixed units.
	FramingPacketized FramingMode = iota
	// FramingRaw is a start-code delimited elementary stream.
	FramingRaw
)

// String returns the configuration name of the mode.
func (m FramingMode) String() string {
	switch m {
	case FramingPacketized:
		return "packetized"
	case FramingRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// ParseFramingMode parses "packetized" or "raw".
func ParseFramingMode(s string) (FramingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "packetized", "":
		return FramingPacketized, nil
	case "raw":
		return FramingRaw, nil
	default:
		return FramingPacketized, fmt.Errorf("unknown framing mode %q (want packetized or raw)", s)
	}
}

// Chunk is one upstream unit of compressed bytes. Its size is not aligned to
// any picture boundary.
type Chunk struct {
	Data []byte

	// Discontinuity requests a flush before Data is processed.
	Discontinuity bool
}

// =============================================================================
// Output
// =============================================================================

// MaxFrameRate is the largest accepted frame-rate override.
const MaxFrameRate = 100

// Fraction is a rational number, used for frame rates.
type Fraction struct {
	Num int
	Den int
}

// IsSet reports whether the fraction carries a rate. A zero numerator means
// the rate is unknown.
func (f Fraction) IsSet() bool {
	return f.Num > 0 && f.Den > 0
}

// Validate checks the fraction against the accepted override range.
func (f Fraction) Validate() error {
	if f.Num < 0 || f.Den <= 0 {
		return fmt.Errorf("invalid frame rate %d/%d", f.Num, f.Den)
	}
	if f.Num > MaxFrameRate*f.Den {
		return fmt.Errorf("frame rate %d/%d exceeds %d", f.Num, f.Den, MaxFrameRate)
	}
	return nil
}

// Reduce divides numerator and denominator by their greatest common
// divisor, turning container timescales like 90000/3600 into 25/1.
func (f Fraction) Reduce() Fraction {
	a, b := f.Num, f.Den
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a <= 1 {
		return f
	}
	return Fraction{Num: f.Num / a, Den: f.Den / a}
}

// Float returns the fraction as a float, or 0 when unset.
func (f Fraction) Float() float64 {
	if !f.IsSet() {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// ParseFraction parses "N/D" or a bare integer "N".
func ParseFraction(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fraction{Num: 0, Den: 1}, nil
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.Atoi(num)
	if err != nil {
		return Fraction{}, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	d := 1
	if found {
		if d, err = strconv.Atoi(den); err != nil {
			return Fraction{}, fmt.Errorf("parse frame rate %q: %w", s, err)
		}
	}
	f := Fraction{Num: n, Den: d}
	if err := f.Validate(); err != nil {
		return Fraction{}, err
	}
	return f, nil
}

// PixelFormat is the output pixel layout. Only planar 4:2:0 is produced.
type PixelFormat string

// FormatI420 is planar 4:2:0: full resolution luma, then Cb, then Cr at half
// horizontal and vertical resolution.
const FormatI420 PixelFormat = "I420"

// Geometry is the negotiated output format.
type Geometry struct {
	Width     int
	Height    int
	Format    PixelFormat
	FrameRate Fraction
}

// ChromaSize returns the dimensions of each chroma plane.
func (g Geometry) ChromaSize() (width, height int) {
	return (g.Width + 1) / 2, (g.Height + 1) / 2
}

// PlaneSize returns width and height of the given plane.
func (g Geometry) PlaneSize(plane int) (width, height int) {
	if plane == 0 {
		return g.Width, g.Height
	}
	return g.ChromaSize()
}

// FrameSize returns the byte size of one tightly packed frame.
func (g Geometry) FrameSize() int {
	cw, ch := g.ChromaSize()
	return g.Width*g.Height + 2*cw*ch
}

func (g Geometry) String() string {
	if g.FrameRate.IsSet() {
		return fmt.Sprintf("%dx%d %s @ %s", g.Width, g.Height, g.Format, g.FrameRate)
	}
	return fmt.Sprintf("%dx%d %s", g.Width, g.Height, g.Format)
}

// Frame is one assembled output picture: a single contiguous planar buffer.
type Frame struct {
	// Index is the zero-based position in decode order.
	Index    int
	Geometry Geometry
	Data     []byte
}

// Plane returns the slice of Data holding the given plane.
func (f Frame) Plane(plane int) []byte {
	ySize := f.Geometry.Width * f.Geometry.Height
	cw, ch := f.Geometry.ChromaSize()
	cSize := cw * ch
	switch plane {
	case 0:
		return f.Data[:ySize]
	case 1:
		return f.Data[ySize : ySize+cSize]
	default:
		return f.Data[ySize+cSize : ySize+2*cSize]
	}
}
