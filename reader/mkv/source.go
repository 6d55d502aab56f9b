package mkv

import (
	"io"

	"github.com/go-mkvmux/mkvmux/packetizer"
)

// Source adapts an already-demuxed input file into the packetizer
// pipeline, the read side of a remux: one Passthrough packetizer per
// selected track re-frames that track's Packets into Blocks on sink
// without re-encoding anything. ReferenceBlock elements are not read, so
// no reference hints reach the packetizer, and every BlockGroup frame
// arrives marked as a keyframe.
type Source struct {
	demux *Demuxer
	scale int64 // nanoseconds per timestamp tick, from SegmentInfo.TimecodeScale

	order []uint8 // selected track numbers, in TrackInfo order
	pz    map[uint8]packetizer.Packetizer
}

// trackParams converts a TrackInfo read off the wire into the
// construction-time parameters a packetizer needs, assigning it
// outputNumber as its Matroska track number in the muxed output (which
// need not match the source file's own TrackNumber when several inputs
// are combined).
func trackParams(t *TrackInfo, outputNumber uint64) packetizer.TrackParams {
	p := packetizer.TrackParams{
		TrackNumber:  outputNumber,
		TrackUID:     t.UID,
		TrackType:    uint64(t.Type),
		CodecID:      t.CodecID,
		CodecPrivate: t.CodecPrivate,
		Language:     t.Language,
		Name:         t.Name,
		UseDurations: true,
	}
	switch t.Type {
	case TypeAudio:
		p.SampleRate = uint64(t.Audio.SamplingFreq)
		p.OutputSampleRate = uint64(t.Audio.OutputSamplingFreq)
		p.Channels = uint64(t.Audio.Channels)
		p.BitDepth = uint64(t.Audio.BitDepth)
	case TypeVideo:
		p.Width = uint64(t.Video.PixelWidth)
		p.Height = uint64(t.Video.PixelHeight)
		p.DisplayWidth = uint64(t.Video.DisplayWidth)
		p.DisplayHeight = uint64(t.Video.DisplayHeight)
	}
	return p
}

// OpenSource opens a Matroska/WebM input on r and builds one packetizer
// per track selected by keep (nil keep selects every track), enqueueing
// onto sink. Output track numbers are assigned densely starting at
// nextTrackNumber, letting a caller combine several Sources into one
// output Segment without colliding track numbers.
func OpenSource(r io.ReadSeeker, sink packetizer.Sink, keep func(*TrackInfo) bool, nextTrackNumber uint64) (*Source, error) {
	demux, err := NewDemuxer(r)
	if err != nil {
		return nil, err
	}

	n, err := demux.GetNumTracks()
	if err != nil {
		return nil, err
	}

	scale := int64(1_000_000)
	if info, err := demux.GetFileInfo(); err == nil && info.TimecodeScale > 0 {
		scale = int64(info.TimecodeScale)
	}

	s := &Source{demux: demux, scale: scale, pz: map[uint8]packetizer.Packetizer{}}
	for i := uint(0); i < n; i++ {
		t, err := demux.GetTrackInfo(i)
		if err != nil {
			return nil, err
		}
		if keep != nil && !keep(t) {
			continue
		}
		pz := packetizer.NewPassthrough(trackParams(t, nextTrackNumber), sink)
		s.pz[t.Number] = pz
		s.order = append(s.order, t.Number)
		nextTrackNumber++
	}
	return s, nil
}

// Packetizers returns the source's packetizers in track order, for
// passing to an Assembler's WriteTracks.
func (s *Source) Packetizers() []packetizer.Packetizer {
	out := make([]packetizer.Packetizer, 0, len(s.order))
	for _, num := range s.order {
		out = append(out, s.pz[num])
	}
	return out
}

// CopyAll reads every packet from the source and feeds it through the
// matching track's packetizer until the input is exhausted, then flushes
// every packetizer. Packets on tracks that weren't selected are skipped.
func (s *Source) CopyAll() error {
	for {
		pkt, err := s.demux.ReadPacket()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		pz, ok := s.pz[pkt.Track]
		if !ok {
			continue
		}
		if _, err := pz.Process(packetizer.Packet{
			Data:        pkt.Data,
			TimestampNS: int64(pkt.StartTime) * s.scale,
			DurationNS:  int64(pkt.EndTime-pkt.StartTime) * s.scale,
			KeyFrame:    pkt.Flags&KF != 0,
		}); err != nil {
			return err
		}
	}
	for _, num := range s.order {
		if _, err := s.pz[num].Flush(); err != nil {
			return err
		}
	}
	return nil
}
