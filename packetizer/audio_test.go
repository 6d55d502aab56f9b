package packetizer

import (
	"testing"

	"github.com/go-mkvmux/mkvmux/codec"
)

// fixedParser is a minimal codec.Parser stub that hands back exactly the
// frames it's told to, so RawESAudio's plumbing can be tested without a
// real bitstream.
type fixedParser struct {
	onAdd   []codec.Frame
	onFlush []codec.Frame
}

func (f *fixedParser) AddBytes(b []byte) ([]codec.Frame, error) { return f.onAdd, nil }
func (f *fixedParser) Flush() ([]codec.Frame, error)            { return f.onFlush, nil }

type recordingSink struct {
	blocks []Block
}

func (s *recordingSink) Enqueue(b Block) error {
	s.blocks = append(s.blocks, b)
	return nil
}

func TestRawESAudioEmitsParsedFrames(t *testing.T) {
	sink := &recordingSink{}
	parser := &fixedParser{onAdd: []codec.Frame{
		{Data: []byte("frame1"), TimestampNS: 0, DurationNS: 20_000_000},
		{Data: []byte("frame2"), TimestampNS: 20_000_000, DurationNS: 20_000_000},
	}}
	p := NewRawESAudio(TrackParams{TrackNumber: 1, UseDurations: true}, sink, parser)

	if _, err := p.Process(Packet{Data: []byte("raw bytes")}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if len(sink.blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(sink.blocks))
	}
	if string(sink.blocks[1].Data) != "frame2" {
		t.Errorf("second block data = %q, want %q", sink.blocks[1].Data, "frame2")
	}
}

func TestRawESAudioFlushDrainsTrailingFrame(t *testing.T) {
	sink := &recordingSink{}
	parser := &fixedParser{onFlush: []codec.Frame{{Data: []byte("tail"), TimestampNS: 40_000_000}}}
	p := NewRawESAudio(TrackParams{TrackNumber: 1}, sink, parser)

	if _, err := p.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if len(sink.blocks) != 1 || string(sink.blocks[0].Data) != "tail" {
		t.Fatalf("Flush() did not emit the trailing frame: %+v", sink.blocks)
	}
}

func TestRawESAudioAppliesDisplacement(t *testing.T) {
	sink := &recordingSink{}
	parser := &fixedParser{onAdd: []codec.Frame{{Data: []byte("f"), TimestampNS: 1000}}}
	p := NewRawESAudio(TrackParams{TrackNumber: 1}, sink, parser)
	p.DisplacementNS = 500

	if _, err := p.Process(Packet{}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if sink.blocks[0].TimestampNS != 1500 {
		t.Errorf("TimestampNS = %d, want 1500", sink.blocks[0].TimestampNS)
	}
}
