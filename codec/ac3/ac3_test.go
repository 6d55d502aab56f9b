package ac3

import "testing"

func TestParserExtractsFrameAtSync(t *testing.T) {
	// 48kHz (fscod=0), frmsizecod=0 -> 96 words -> 192 bytes.
	frame := make([]byte, 192)
	frame[0], frame[1] = 0x0B, 0x77
	frame[4] = 0x00 << 6 // fscod=0, frmsizecod high bits 0

	p := New()
	frames, err := p.AddBytes(frame)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if len(frames[0].Data) != 192 {
		t.Errorf("frame length = %d, want 192", len(frames[0].Data))
	}
	if frames[0].DurationNS != 1536*1_000_000_000/48000 {
		t.Errorf("duration = %d, want %d", frames[0].DurationNS, int64(1536*1_000_000_000/48000))
	}
}

func TestParserWaitsForFullFrame(t *testing.T) {
	frame := make([]byte, 192)
	frame[0], frame[1] = 0x0B, 0x77

	p := New()
	frames, err := p.AddBytes(frame[:100])
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from a partial buffer, got %d", len(frames))
	}
	frames, err = p.AddBytes(frame[100:])
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame once the buffer completed, got %d", len(frames))
	}
}
