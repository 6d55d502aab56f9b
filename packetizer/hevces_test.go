package packetizer

import "testing"

// annexBNAL builds one Annex-B NAL unit (no start code) with the given
// NAL type and a first_slice_segment_in_pic_flag bit set in its payload,
// so the HEVC parser treats it as the start of a new access unit.
func annexBNAL(nalType byte) []byte {
	return []byte{nalType << 1, 0x01, 0x80, 0x02}
}

func TestHEVCESEmitsFramesWithPayload(t *testing.T) {
	sink := &recordingSink{}
	p := NewHEVCES(TrackParams{TrackNumber: 1}, sink, 0)

	var stream []byte
	stream = append(stream, 0, 0, 1)
	stream = append(stream, annexBNAL(19)...) // IDR, keyframe
	stream = append(stream, 0, 0, 1)
	stream = append(stream, annexBNAL(1)...) // trailing picture, non-keyframe
	stream = append(stream, 0, 0, 1)          // trailing marker so the 2nd NAL is consumed

	if _, err := p.Process(Packet{Data: stream}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if _, err := p.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	if len(sink.blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(sink.blocks))
	}
	if len(sink.blocks[0].Data) == 0 {
		t.Error("first block carries no payload bytes")
	}
	if !sink.blocks[0].KeyFrame {
		t.Error("first block should be a keyframe (IDR)")
	}
	if sink.blocks[1].KeyFrame {
		t.Error("second block should not be a keyframe")
	}
	if len(sink.blocks[1].Data) == 0 {
		t.Error("second block carries no payload bytes")
	}
}

func TestModeDeltaPicksMostFrequentGap(t *testing.T) {
	recs := []frameRec{
		{ts: 0}, {ts: 33}, {ts: 66}, {ts: 133}, {ts: 166},
	}
	if d := modeDelta(recs); d != 33 {
		t.Errorf("modeDelta() = %d, want 33", d)
	}
}

func TestModeDeltaNeedsTwoFrames(t *testing.T) {
	if d := modeDelta([]frameRec{{ts: 0}}); d != 0 {
		t.Errorf("modeDelta() = %d, want 0 for a single frame", d)
	}
}
