// Package mp4source reads the video track of an MP4 file as packetized
// chunks, one sample per chunk, with the decoder configuration record's
// parameter sets prepended to sync samples.
package mp4source

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/decodebridge/pkg/adapters/codecdetect"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

// ErrUnsupportedCodec is returned for tracks that are not NAL unit based.
var ErrUnsupportedCodec = errors.New("mp4source: unsupported codec")

// sample locates one sample. Fragmented files carry data inline.
type sample struct {
	offset uint64
	size   uint32
	sync   bool
	data   []byte
}

// Source is a ports.ChunkSource over an MP4 video track.
type Source struct {
	reader    io.ReadSeeker
	codec     codecdetect.Codec
	paramSets [][]byte
	samples   []sample
	next      int
	frameRate pipeline.Fraction
}

// Open parses path and prepares its first video track.
func Open(fs ports.FileSystem, path string) (*Source, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return FromReader(bytes.NewReader(data))
}

// FromReader parses an MP4 from reader.
func FromReader(reader io.ReadSeeker) (*Source, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	codec, err := codecdetect.DetectFromMP4(mp4File)
	if err != nil {
		return nil, err
	}
	if !codec.Decodable() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}

	s := &Source{reader: reader, codec: codec}
	if mp4File.IsFragmented() {
		err = s.loadFragmented(mp4File)
	} else {
		err = s.loadProgressive(mp4File)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Codec returns the detected codec.
func (s *Source) Codec() codecdetect.Codec { return s.codec }

// Samples returns the number of samples in the track.
func (s *Source) Samples() int { return len(s.samples) }

// FrameRate returns the nominal frame rate derived from the first sample
// duration, or an unset fraction.
func (s *Source) FrameRate() pipeline.Fraction { return s.frameRate }

// Framing implements ports.ChunkSource. Samples are length prefixed.
func (s *Source) Framing() pipeline.FramingMode { return pipeline.FramingPacketized }

// Next implements ports.ChunkSource.
func (s *Source) Next(ctx context.Context) (pipeline.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Chunk{}, err
	}
	if s.next >= len(s.samples) {
		return pipeline.Chunk{}, io.EOF
	}
	smp := s.samples[s.next]
	first := s.next == 0
	s.next++

	data := smp.data
	if data == nil {
		var err error
		if data, err = s.read(smp); err != nil {
			return pipeline.Chunk{}, err
		}
	}
	if smp.sync || first {
		data = prependParameterSets(s.paramSets, data)
	}
	return pipeline.Chunk{Data: data}, nil
}

// Close implements ports.ChunkSource.
func (s *Source) Close() error {
	s.samples = nil
	return nil
}

func (s *Source) read(smp sample) ([]byte, error) {
	if _, err := s.reader.Seek(int64(smp.offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, smp.size)
	if _, err := io.ReadFull(s.reader, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}

func videoTrack(traks []*mp4.TrakBox) *mp4.TrakBox {
	for _, trak := range traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// parameterSets extracts VPS/SPS/PPS (HEVC) or SPS/PPS (AVC) from the
// sample description.
func parameterSets(trak *mp4.TrakBox) [][]byte {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return nil
	}
	var sets [][]byte
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		entry, ok := child.(*mp4.VisualSampleEntryBox)
		if !ok {
			continue
		}
		if entry.HvcC != nil {
			for _, arr := range entry.HvcC.NaluArrays {
				sets = append(sets, arr.Nalus...)
			}
		}
		if entry.AvcC != nil {
			sets = append(sets, entry.AvcC.SPSnalus...)
			sets = append(sets, entry.AvcC.PPSnalus...)
		}
	}
	return sets
}

func (s *Source) loadProgressive(mp4File *mp4.File) error {
	if mp4File.Moov == nil {
		return errors.New("mp4source: no moov box found")
	}
	trak := videoTrack(mp4File.Moov.Traks)
	if trak == nil {
		return codecdetect.ErrNoVideoTrack
	}
	s.paramSets = parameterSets(trak)
	s.setFrameRate(trak)

	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return errors.New("mp4source: no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stsc == nil {
		return errors.New("mp4source: missing stsz or stsc box")
	}

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
		offset, err := sampleOffset(stbl, nr)
		if err != nil {
			return fmt.Errorf("sample %d: %w", nr, err)
		}
		s.samples = append(s.samples, sample{
			offset: offset,
			size:   stbl.Stsz.GetSampleSize(int(nr)),
			sync:   syncSamples[nr] || stbl.Stss == nil,
		})
	}
	return nil
}

func sampleOffset(stbl *mp4.StblBox, nr uint32) (uint64, error) {
	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var offset uint64
	switch {
	case stbl.Stco != nil:
		if offset, err = stbl.Stco.GetOffset(chunkNr); err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, errors.New("chunk nr out of range")
		}
		offset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, errors.New("no stco or co64 box")
	}

	for n := uint32(firstSampleInChunk); n < nr; n++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(n)))
	}
	return offset, nil
}

func (s *Source) loadFragmented(mp4File *mp4.File) error {
	if mp4File.Init == nil || mp4File.Init.Moov == nil {
		return errors.New("mp4source: no init segment found")
	}
	trak := videoTrack(mp4File.Init.Moov.Traks)
	if trak == nil {
		return codecdetect.ErrNoVideoTrack
	}
	trackID := trak.Tkhd.TrackID
	s.paramSets = parameterSets(trak)
	s.setFrameRate(trak)

	var trex *mp4.TrexBox
	if mp4File.Init.Moov.Mvex != nil {
		for _, t := range mp4File.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return fmt.Errorf("get samples: %w", err)
			}
			for _, full := range samples {
				s.samples = append(s.samples, sample{
					data: full.Data,
					sync: full.Flags == mp4.SyncSampleFlags,
				})
			}
		}
	}
	return nil
}

// setFrameRate derives timescale/duration from the first stts entry.
func (s *Source) setFrameRate(trak *mp4.TrakBox) {
	if trak.Mdia.Mdhd == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return
	}
	stts := trak.Mdia.Minf.Stbl.Stts
	if stts == nil || len(stts.SampleTimeDelta) == 0 || stts.SampleTimeDelta[0] == 0 {
		return
	}
	rate := pipeline.Fraction{Num: int(trak.Mdia.Mdhd.Timescale), Den: int(stts.SampleTimeDelta[0])}.Reduce()
	if rate.Validate() == nil {
		s.frameRate = rate
	}
}

// prependParameterSets returns records for sets followed by sample, all
// with 4-byte big-endian length prefixes.
func prependParameterSets(sets [][]byte, sample []byte) []byte {
	if len(sets) == 0 {
		return sample
	}
	size := len(sample)
	for _, ps := range sets {
		size += 4 + len(ps)
	}
	out := make([]byte, 0, size)
	for _, ps := range sets {
		out = binary.BigEndian.AppendUint32(out, uint32(len(ps)))
		out = append(out, ps...)
	}
	return append(out, sample...)
}
