package vorbis

import (
	"testing"
)

func buildIdentHeader(channels int, sampleRate uint32, bs0log, bs1log byte) []byte {
	b := make([]byte, 30)
	b[0] = 1
	copy(b[1:7], "vorbis")
	b[11] = byte(channels)
	b[12] = byte(sampleRate)
	b[13] = byte(sampleRate >> 8)
	b[14] = byte(sampleRate >> 16)
	b[15] = byte(sampleRate >> 24)
	b[28] = (bs1log << 4) | bs0log
	b[29] = 1
	return b
}

func TestParserCapturesHeadersAndDerivesBlocksizes(t *testing.T) {
	p := New()

	ident := buildIdentHeader(2, 44100, 8, 11) // blocksize0=256, blocksize1=2048
	if _, err := p.AddBytes(ident); err != nil {
		t.Fatalf("ident AddBytes() failed: %v", err)
	}
	comment := []byte{3, 'v', 'o', 'r', 'b', 'i', 's'}
	if _, err := p.AddBytes(comment); err != nil {
		t.Fatalf("comment AddBytes() failed: %v", err)
	}
	setup := []byte{5, 'v', 'o', 'r', 'b', 'i', 's', 0, 0}
	if _, err := p.AddBytes(setup); err != nil {
		t.Fatalf("setup AddBytes() failed: %v", err)
	}

	if p.ident == nil {
		t.Fatal("expected identification header to be parsed")
	}
	if p.ident.Channels != 2 || p.ident.SampleRate != 44100 {
		t.Errorf("ident = %+v, want channels=2 rate=44100", *p.ident)
	}
	if p.ident.BlockSize0 != 256 || p.ident.BlockSize1 != 2048 {
		t.Errorf("blocksizes = %d/%d, want 256/2048", p.ident.BlockSize0, p.ident.BlockSize1)
	}

	// First audio packet, mode 0 (short block): samples = (256+256)/4 = 128.
	f1, err := p.AddBytes([]byte{0x00, 0xAA})
	if err != nil {
		t.Fatalf("audio packet 1 AddBytes() failed: %v", err)
	}
	if len(f1) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(f1))
	}
	wantDur1 := int64(128) * 1_000_000_000 / 44100
	if f1[0].DurationNS != wantDur1 {
		t.Errorf("frame 1 duration = %d, want %d", f1[0].DurationNS, wantDur1)
	}

	// Second audio packet, mode with bit1 set (long block): samples =
	// (256+2048)/4 = 576.
	f2, err := p.AddBytes([]byte{0x02, 0xBB})
	if err != nil {
		t.Fatalf("audio packet 2 AddBytes() failed: %v", err)
	}
	wantDur2 := int64(576) * 1_000_000_000 / 44100
	if f2[0].DurationNS != wantDur2 {
		t.Errorf("frame 2 duration = %d, want %d", f2[0].DurationNS, wantDur2)
	}
	if f2[0].TimestampNS != f1[0].DurationNS {
		t.Errorf("frame 2 timestamp = %d, want %d", f2[0].TimestampNS, f1[0].DurationNS)
	}
}

func TestCodecPrivateXiphLacing(t *testing.T) {
	p := New()
	ident := buildIdentHeader(2, 44100, 8, 11)
	comment := make([]byte, 10)
	comment[0] = 3
	setup := make([]byte, 12)
	setup[0] = 5

	for _, h := range [][]byte{ident, comment, setup} {
		if _, err := p.AddBytes(h); err != nil {
			t.Fatalf("AddBytes() failed: %v", err)
		}
	}

	cp, err := p.CodecPrivate()
	if err != nil {
		t.Fatalf("CodecPrivate() failed: %v", err)
	}
	if cp[0] != 2 {
		t.Fatalf("packet count - 1 = %d, want 2", cp[0])
	}
	if cp[1] != byte(len(ident)) || cp[2] != byte(len(comment)) {
		t.Fatalf("lace lengths = %d,%d, want %d,%d", cp[1], cp[2], len(ident), len(comment))
	}
	wantLen := 3 + len(ident) + len(comment) + len(setup)
	if len(cp) != wantLen {
		t.Fatalf("codec_private length = %d, want %d", len(cp), wantLen)
	}
}
