package vc1

import "testing"

func marker(m byte) []byte { return []byte{0, 0, 1, m} }

func TestFrameAccessUnitBoundaries(t *testing.T) {
	var stream []byte
	stream = append(stream, marker(markerFrame)...)
	stream = append(stream, []byte{0x01, 0x02}...)
	stream = append(stream, marker(markerFrame)...)
	stream = append(stream, []byte{0x03, 0x04}...)
	stream = append(stream, marker(markerFrame)...)

	p := New()
	frames, err := p.AddBytes(stream)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 access unit emitted, got %d", len(frames))
	}

	flushed, err := p.Flush()
	if err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if len(flushed) != 1 {
		t.Fatalf("expected Flush to emit the trailing access unit, got %d", len(flushed))
	}
}

func TestSequenceHeaderRejectsNonAdvancedProfile(t *testing.T) {
	p := New()
	var stream []byte
	stream = append(stream, marker(markerSeqHeader)...)
	stream = append(stream, []byte{0x3F, 0x00, 0x00, 0x00}...) // profile bits = 00 (simple)
	stream = append(stream, marker(markerFrame)...)

	_, err := p.AddBytes(stream)
	if err == nil {
		t.Fatal("expected an error for a non-advanced-profile sequence header")
	}
}

func TestSequenceHeaderAcceptsAdvancedProfile(t *testing.T) {
	p := New()
	var stream []byte
	stream = append(stream, marker(markerSeqHeader)...)
	// profile=3 (advanced), level=1, chroma_format=0, all remaining flags
	// and the 12-bit pixel_width/pixel_height fields zero; display_info
	// and hrd_param_flag (the header's last two bits) are zero so parsing
	// stops at exactly 48 bits without needing an entrypoint's worth of
	// trailing fields.
	stream = append(stream, []byte{0xC8, 0x00, 0x00, 0x00, 0x00, 0x00}...)
	stream = append(stream, marker(markerFrame)...)

	if _, err := p.AddBytes(stream); err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if p.ActiveSequence() == nil {
		t.Fatal("expected the sequence header to be captured")
	}
	seq := p.ActiveSequence()
	if seq.Profile != 3 {
		t.Errorf("profile = %d, want 3", seq.Profile)
	}
	if seq.Level != 1 {
		t.Errorf("level = %d, want 1", seq.Level)
	}
	if seq.Width != 2 || seq.Height != 2 {
		t.Errorf("Width/Height = %d/%d, want 2/2 for a zeroed pixel_width/pixel_height", seq.Width, seq.Height)
	}
}

// frameBody builds a picture-layer body whose leading unary code selects
// the given frame type: 0 ones -> P, 1 -> B, 2 -> I, 3 -> BI, terminated
// by a 0 bit, followed by enough zero padding bits for the
// pulldown/interlace-gated fields the fixture's sequence header (all
// flags clear) skips entirely.
func frameBody(ones int) []byte {
	var bits []bool
	for i := 0; i < ones; i++ {
		bits = append(bits, true)
	}
	bits = append(bits, false)
	for len(bits)%8 != 0 {
		bits = append(bits, false)
	}
	out := make([]byte, len(bits)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

func advancedSeqHeaderBody() []byte {
	return []byte{0xC8, 0x00, 0x00, 0x00, 0x00, 0x00}
}

func TestFrameHeaderDetectsIFrameAsKeyFrame(t *testing.T) {
	p := New()
	var stream []byte
	stream = append(stream, marker(markerSeqHeader)...)
	stream = append(stream, advancedSeqHeaderBody()...)
	stream = append(stream, marker(markerFrame)...)
	stream = append(stream, frameBody(2)...) // 2 ones -> I frame
	stream = append(stream, marker(markerFrame)...)
	stream = append(stream, marker(markerFrame)...) // completes the next frame packet, closing the first access unit

	frames, err := p.AddBytes(stream)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 access unit emitted, got %d", len(frames))
	}
	if !frames[0].KeyFrame {
		t.Error("expected an I frame to be flagged as a keyframe")
	}
}

func TestFrameHeaderDetectsPFrameAsNonKeyFrame(t *testing.T) {
	p := New()
	var stream []byte
	stream = append(stream, marker(markerSeqHeader)...)
	stream = append(stream, advancedSeqHeaderBody()...)
	stream = append(stream, marker(markerFrame)...)
	stream = append(stream, frameBody(0)...) // 0 ones -> P frame
	stream = append(stream, marker(markerFrame)...)

	frames, err := p.AddBytes(stream)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 access unit emitted, got %d", len(frames))
	}
	if frames[0].KeyFrame {
		t.Error("expected a P frame to not be flagged as a keyframe")
	}
}

func TestEntrypointParsed(t *testing.T) {
	p := New()
	var stream []byte
	stream = append(stream, marker(markerSeqHeader)...)
	stream = append(stream, advancedSeqHeaderBody()...)
	stream = append(stream, marker(markerEntryPoint)...)
	// broken_link..extended_mv flags (7 bits) + dquant(2) + vs_transform(1)
	// + overlap(1) + quantizer_mode(2) = 13 bits, then coded_dimensions_flag
	// = 0 and the remaining optional fields all clear; pad to a byte
	// boundary with zero bits.
	stream = append(stream, []byte{0x00, 0x00}...)
	stream = append(stream, marker(markerFrame)...)

	if _, err := p.AddBytes(stream); err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if p.ActiveEntrypoint() == nil {
		t.Fatal("expected the entrypoint header to be captured")
	}
}
