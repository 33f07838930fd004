// Package rtpsource reads H.264 payloaded RTP packets from an RFC 4571
// framed dump (2-byte big-endian length before every packet) and yields one
// packetized access unit per chunk.
package rtpsource

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// Source is a ports.ChunkSource over an RTP dump.
type Source struct {
	reader io.ReadCloser
	logger ports.Logger

	depacketizer *codecs.H264Packet
	pending      []byte
	timestamp    uint32
	lastSeq      uint16
	started      bool
	gap          bool
	eof          bool

	lost int
}

// Open opens path through fs.
func Open(fs ports.FileSystem, path string, logger ports.Logger) (*Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return New(f, logger), nil
}

// New reads RFC 4571 framed packets from reader.
func New(reader io.ReadCloser, logger ports.Logger) *Source {
	return &Source{
		reader:       reader,
		logger:       logger.WithComponent("rtp"),
		depacketizer: &codecs.H264Packet{IsAVC: true},
	}
}

// Framing implements ports.ChunkSource. Depacketized NAL units carry
// 4-byte length prefixes.
func (s *Source) Framing() pipeline.FramingMode {
	return pipeline.FramingPacketized
}

// Lost returns the number of packets detected missing.
func (s *Source) Lost() int {
	return s.lost
}

// Next implements ports.ChunkSource. A chunk following lost packets is
// marked as a discontinuity.
func (s *Source) Next(ctx context.Context) (pipeline.Chunk, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pipeline.Chunk{}, err
		}
		if s.eof {
			if len(s.pending) > 0 {
				return s.emit(), nil
			}
			return pipeline.Chunk{}, io.EOF
		}

		pkt, err := s.readPacket()
		if errors.Is(err, io.EOF) {
			s.eof = true
			continue
		}
		if err != nil {
			return pipeline.Chunk{}, err
		}

		var chunk pipeline.Chunk
		ready := false
		if len(s.pending) > 0 && pkt.Timestamp != s.timestamp {
			// Marker was lost; the timestamp change closes the access unit.
			chunk, ready = s.emit(), true
		}
		s.handle(pkt)
		if ready {
			return chunk, nil
		}
		if pkt.Marker && len(s.pending) > 0 {
			return s.emit(), nil
		}
	}
}

func (s *Source) handle(pkt *rtp.Packet) {
	if s.started && pkt.SequenceNumber != s.lastSeq+1 {
		missing := int(pkt.SequenceNumber - s.lastSeq - 1)
		s.lost += missing
		s.logger.Warn("Lost %d RTP packets before sequence %d", missing, pkt.SequenceNumber)
		s.pending = s.pending[:0]
		s.depacketizer = &codecs.H264Packet{IsAVC: true}
		s.gap = true
	}
	s.started = true
	s.lastSeq = pkt.SequenceNumber
	s.timestamp = pkt.Timestamp

	nalus, err := s.depacketizer.Unmarshal(pkt.Payload)
	if err != nil {
		s.logger.Warn("Dropping RTP packet %d: %s", pkt.SequenceNumber, err.Error())
		s.gap = true
		return
	}
	s.pending = append(s.pending, nalus...)
}

func (s *Source) emit() pipeline.Chunk {
	chunk := pipeline.Chunk{Data: append([]byte(nil), s.pending...), Discontinuity: s.gap}
	s.pending = s.pending[:0]
	s.gap = false
	return chunk
}

func (s *Source) readPacket() (*rtp.Packet, error) {
	var header [2]byte
	if _, err := io.ReadFull(s.reader, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	buf := make([]byte, binary.BigEndian.Uint16(header[:]))
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read rtp packet: %w", err)
	}
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(buf); err != nil {
		return nil, fmt.Errorf("parse rtp packet: %w", err)
	}
	return pkt, nil
}

// Close implements ports.ChunkSource.
func (s *Source) Close() error {
	return s.reader.Close()
}
