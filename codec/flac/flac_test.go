package flac

import (
	"encoding/binary"
	"testing"
)

// buildStreamInfoBlock packs a 34-byte STREAMINFO block (18 bytes of
// real fields per parseStreamInfo, padded to 34 with a zeroed MD5
// placeholder), given block sizes/rate/channels/bps.
func buildStreamInfoBlock(minBlock, maxBlock, sampleRate, channels, bps int) []byte {
	b := make([]byte, 34)
	b[0] = byte(minBlock >> 8)
	b[1] = byte(minBlock)
	b[2] = byte(maxBlock >> 8)
	b[3] = byte(maxBlock)
	// minFrameSize, maxFrameSize: 3 bytes each, left zero.
	packed := uint64(sampleRate)<<44 | uint64(channels-1)<<41 | uint64(bps-1)<<36
	var packedBytes [8]byte
	binary.BigEndian.PutUint64(packedBytes[:], packed)
	copy(b[10:18], packedBytes[:])
	return b
}

func buildFLACStream(blockSize, rate int) []byte {
	var out []byte
	out = append(out, marker...)
	block := buildStreamInfoBlock(blockSize, blockSize, rate, 2, 16)
	out = append(out, 0x80, byte(len(block)>>16), byte(len(block)>>8), byte(len(block))) // last-block, type 0
	out = append(out, block...)
	return out
}

func frameSync() []byte { return []byte{0xFF, 0xF8} }

func TestParserEmitsCodecPrivateAfterStreamInfo(t *testing.T) {
	stream := buildFLACStream(4096, 44100)
	stream = append(stream, frameSync()...)
	stream = append(stream, []byte{0, 0, 0, 0}...) // placeholder frame body
	stream = append(stream, frameSync()...)         // second sync bounds the first frame

	p := New()
	frames, err := p.AddBytes(stream)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 bounded frame, got %d", len(frames))
	}
	info := p.Info()
	if info == nil {
		t.Fatal("expected STREAMINFO to be parsed")
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.BitsPerSample != 16 {
		t.Errorf("StreamInfo = %+v, want rate=44100 channels=2 bps=16", *info)
	}
	if p.CodecPrivate() == nil {
		t.Error("expected non-nil codec_private once STREAMINFO is seen")
	}
	wantDur := int64(4096) * 1_000_000_000 / 44100
	if frames[0].DurationNS != wantDur {
		t.Errorf("duration = %d, want %d", frames[0].DurationNS, wantDur)
	}
}

func TestFlushEmitsTrailingFrame(t *testing.T) {
	stream := buildFLACStream(4096, 44100)
	stream = append(stream, frameSync()...)
	stream = append(stream, []byte{0, 0, 0, 0}...)

	p := New()
	frames, err := p.AddBytes(stream)
	if err != nil {
		t.Fatalf("AddBytes() failed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no bounded frame yet (no following sync), got %d", len(frames))
	}
	flushed, err := p.Flush()
	if err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if len(flushed) != 1 {
		t.Fatalf("expected Flush to emit the trailing frame, got %d", len(flushed))
	}
}
