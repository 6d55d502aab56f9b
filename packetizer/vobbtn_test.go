package packetizer

import "testing"

func TestVobBtnDefaultsToZlibCompression(t *testing.T) {
	p := NewVobBtn(TrackParams{TrackNumber: 1}, &recordingSink{}, "")
	if p.Compression != "zlib" {
		t.Errorf("Compression = %q, want zlib", p.Compression)
	}
}

func TestVobBtnProcessEntryDerivesDurationFromSectors(t *testing.T) {
	sink := &recordingSink{}
	p := NewVobBtn(TrackParams{TrackNumber: 1}, sink, "none")

	err := p.ProcessEntry(VobuEntry{
		Data:             []byte("button"),
		StartSector:      10,
		EndSector:        15,
		SectorDurationNS: 1000,
		TimestampNS:      5000,
	})
	if err != nil {
		t.Fatalf("ProcessEntry() failed: %v", err)
	}
	if len(sink.blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(sink.blocks))
	}
	b := sink.blocks[0]
	if b.DurationNS != 5000 {
		t.Errorf("DurationNS = %d, want 5000", b.DurationNS)
	}
	if !b.KeyFrame {
		t.Error("button overlay blocks should always be keyframes")
	}
}

func TestVobBtnProcessPassesThroughUnmodified(t *testing.T) {
	sink := &recordingSink{}
	p := NewVobBtn(TrackParams{TrackNumber: 1}, sink, "none")

	if _, err := p.Process(Packet{Data: []byte("raw"), TimestampNS: 10, DurationNS: 20}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if len(sink.blocks) != 1 || string(sink.blocks[0].Data) != "raw" {
		t.Fatalf("Process() did not pass the block through: %+v", sink.blocks)
	}

	if frames, err := p.Flush(); err != nil || frames != nil {
		t.Errorf("Flush() = %v, %v, want nil, nil", frames, err)
	}
}
