package hevc

import "testing"

func startCode() []byte { return []byte{0, 0, 1} }

// idrSlice builds a minimal Annex-B IDR_N_LP (type 20) slice NAL with
// first_slice_segment_in_pic_flag set, for access-unit boundary testing.
func idrSlice(marker byte) []byte {
	return []byte{byte(20 << 1), 0x01, 0x80, marker, marker}
}

func TestAnnexBAccessUnitBoundaries(t *testing.T) {
	var stream []byte
	stream = append(stream, startCode()...)
	stream = append(stream, idrSlice(0x11)...)
	stream = append(stream, startCode()...)
	stream = append(stream, idrSlice(0x22)...)
	stream = append(stream, startCode()...)

	p := New(0)
	frames, err := p.AddBytes(stream)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 access unit emitted while the second is in progress, got %d", len(frames))
	}
	if !frames[0].KeyFrame {
		t.Error("expected the IDR access unit to be flagged as a keyframe")
	}

	flushed, err := p.Flush()
	if err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if len(flushed) != 1 {
		t.Fatalf("expected Flush to emit the trailing access unit, got %d", len(flushed))
	}
	if !flushed[0].KeyFrame {
		t.Error("expected the trailing access unit to also be a keyframe")
	}
}

func TestLengthPrefixedFraming(t *testing.T) {
	nal := idrSlice(0x33)
	prefixed := encodeLengthPrefixed(nal, 4)

	p := New(4)
	frames, err := p.AddBytes(prefixed)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frame yet (single NAL starts an access unit awaiting Flush), got %d", len(frames))
	}
	flushed, err := p.Flush()
	if err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if len(flushed) != 1 {
		t.Fatalf("expected Flush to emit the in-progress access unit, got %d", len(flushed))
	}
}

func TestCodecPrivateRequiresHeaders(t *testing.T) {
	p := New(0)
	if _, err := p.CodecPrivate(4); err == nil {
		t.Fatal("expected an error requesting codec_private before VPS/SPS/PPS are observed")
	}
}
