package rtpsource

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

// DefaultMTU bounds the RTP packet size produced by Writer.
const DefaultMTU = 1200

// ClockRate is the RTP clock of video payloads.
const ClockRate = 90000

// Writer packetizes start-code delimited access units into an RFC 4571
// framed RTP dump.
type Writer struct {
	w          io.Writer
	packetizer rtp.Packetizer
	packets    int
}

// NewWriter creates a writer using payload type pt and the given mtu.
func NewWriter(w io.Writer, ssrc uint32, pt uint8, mtu uint16) *Writer {
	if mtu == 0 {
		mtu = DefaultMTU
	}
	return &Writer{
		w:          w,
		packetizer: rtp.NewPacketizer(mtu, pt, ssrc, &codecs.H264Payloader{}, rtp.NewRandomSequencer(), ClockRate),
	}
}

// WriteAccessUnit writes one access unit spanning duration clock ticks.
func (w *Writer) WriteAccessUnit(annexB []byte, duration uint32) error {
	for _, pkt := range w.packetizer.Packetize(annexB, duration) {
		raw, err := pkt.Marshal()
		if err != nil {
			return fmt.Errorf("marshal rtp packet: %w", err)
		}
		if len(raw) > 0xFFFF {
			return fmt.Errorf("rtp packet of %d bytes exceeds framing limit", len(raw))
		}
		var header [2]byte
		binary.BigEndian.PutUint16(header[:], uint16(len(raw)))
		if _, err := w.w.Write(header[:]); err != nil {
			return err
		}
		if _, err := w.w.Write(raw); err != nil {
			return err
		}
		w.packets++
	}
	return nil
}

// Packets returns the number of packets written.
func (w *Writer) Packets() int {
	return w.packets
}
