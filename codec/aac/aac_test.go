package aac

import "testing"

// buildADTSFrame returns a single ADTS frame with a 7-byte (no-CRC)
// header, sampling_frequency_index=4 (44100Hz), channel_config=2, and
// the given total frame length (header + payload).
func buildADTSFrame(frameLength int) []byte {
	b := make([]byte, frameLength)
	b[0] = 0xFF
	b[1] = 0xF9 // syncword cont. + MPEG version=1 + layer=00 + protection_absent=1
	b[2] = 0x50 // profile=01, sampling_frequency_index=0100(4), private=0, channel_config high bit=0
	b[3] = byte(0x80 | ((frameLength >> 11) & 0x03))
	b[4] = byte((frameLength >> 3) & 0xFF)
	b[5] = byte((frameLength&0x07)<<5) | 0x1F // buffer fullness bits set low, harmless
	b[6] = 0x00
	return b
}

func TestParserExtractsADTSFrame(t *testing.T) {
	frame := buildADTSFrame(10)

	p := New()
	frames, err := p.AddBytes(frame)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if len(frames[0].Data) != 10 {
		t.Errorf("frame length = %d, want 10", len(frames[0].Data))
	}
	wantDur := int64(samplesPerFrame) * 1_000_000_000 / 44100
	if frames[0].DurationNS != wantDur {
		t.Errorf("duration = %d, want %d", frames[0].DurationNS, wantDur)
	}
	if !frames[0].KeyFrame {
		t.Errorf("expected AAC frame to be marked as a keyframe")
	}
}

func TestParserWaitsForFullADTSFrame(t *testing.T) {
	frame := buildADTSFrame(10)

	p := New()
	frames, err := p.AddBytes(frame[:8])
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from a partial buffer, got %d", len(frames))
	}
	frames, err = p.AddBytes(frame[8:])
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame once the buffer completed, got %d", len(frames))
	}
}

func TestParserAdvancesTimestampsAcrossFrames(t *testing.T) {
	f1 := buildADTSFrame(10)
	f2 := buildADTSFrame(12)

	p := New()
	frames, err := p.AddBytes(append(append([]byte(nil), f1...), f2...))
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].TimestampNS != 0 {
		t.Errorf("first frame timestamp = %d, want 0", frames[0].TimestampNS)
	}
	if frames[1].TimestampNS != frames[0].DurationNS {
		t.Errorf("second frame timestamp = %d, want %d", frames[1].TimestampNS, frames[0].DurationNS)
	}
}
