package dts

import "testing"

// coreHeaderSample is a 14-byte core header (the bytes following the sync
// word) hand-packed per parseCoreHeader's bit layout: frame_type=0,
// deficit=0, crc_present=0, numBlocksField=0 (1 PCM sample block),
// frame_byte_size-1=99 (total frame size 100, read by frameByteSizeFromRaw
// at bit offset 14), amode=2 (stereo), sfreq=8 (44100Hz), rate=0,
// flags=0, pcmres=0 (16-bit).
var coreHeaderSample = []byte{
	0x00, 0x00, 0x06, 0x30, 0xA0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

func buildCoreFrame(totalSize int) []byte {
	f := make([]byte, totalSize)
	f[0], f[1], f[2], f[3] = 0x7F, 0xFE, 0x80, 0x01
	copy(f[4:18], coreHeaderSample)
	return f
}

func TestParserExtractsCoreFrame(t *testing.T) {
	frame := buildCoreFrame(100)

	p := New()
	frames, err := p.AddBytes(frame)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if len(frames[0].Data) != 100 {
		t.Errorf("frame length = %d, want 100", len(frames[0].Data))
	}
	wantDur := int64(32) * 1_000_000_000 / 44100
	if frames[0].DurationNS != wantDur {
		t.Errorf("duration = %d, want %d", frames[0].DurationNS, wantDur)
	}
	if !frames[0].KeyFrame {
		t.Error("expected DTS core frame to be marked as a keyframe")
	}
	if frames[0].ParamsChanged {
		t.Error("first frame should not report a parameter change")
	}
}

func TestParserWaitsForFullFrame(t *testing.T) {
	frame := buildCoreFrame(100)

	p := New()
	frames, err := p.AddBytes(frame[:50])
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from a partial buffer, got %d", len(frames))
	}
	frames, err = p.AddBytes(frame[50:])
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame once the buffer completed, got %d", len(frames))
	}
}

func TestParserRejectsUndersizedFrame(t *testing.T) {
	// frame_byte_size below the 96-byte minimum must be rejected even if
	// the header otherwise parses cleanly.
	header := append([]byte(nil), coreHeaderSample...)
	header[2] = 0x00
	header[3] = 0x00 // size-1 now near zero, pushing FrameByteSize under 96

	var buf []byte
	buf = append(buf, 0x7F, 0xFE, 0x80, 0x01)
	buf = append(buf, header...)
	buf = append(buf, make([]byte, 20)...)

	p := New()
	_, err := p.AddBytes(buf)
	if err == nil {
		t.Fatal("expected an error for a frame_byte_size below the minimum")
	}
}
