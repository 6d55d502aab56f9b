// Package flac parses a native FLAC stream (fLaC marker, metadata
// blocks, then frames) into frames suitable for packetization.
package flac

import (
	"bytes"

	"github.com/icza/bitio"

	"github.com/go-mkvmux/mkvmux/codec"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

const marker = "fLaC"

// StreamInfo mirrors FLAC's STREAMINFO metadata block, the fields the
// muxer turns into codec_private and Audio-context leaves.
type StreamInfo struct {
	MinBlockSize, MaxBlockSize int
	SampleRate                 int
	Channels                   int
	BitsPerSample              int
	TotalSamples               uint64
}

// Parser implements codec.Parser for a native FLAC byte stream.
type Parser struct {
	buf []byte
	pts int64

	sawMarker    bool
	doneMetadata bool
	info         *StreamInfo
	codecPrivate []byte
}

// New returns a fresh FLAC parser.
func New() *Parser { return &Parser{} }

var _ codec.Parser = (*Parser)(nil)

// AddBytes consumes the "fLaC" marker and metadata blocks once, then
// extracts frames by their sync code (11111111111110) bounded by the
// next sync code or end of buffer.
func (p *Parser) AddBytes(b []byte) ([]codec.Frame, error) {
	p.buf = append(p.buf, b...)

	if !p.sawMarker {
		if len(p.buf) < 4 {
			return nil, nil
		}
		if string(p.buf[:4]) != marker {
			return nil, muxerr.New(muxerr.KindMalformedInput, "flac: missing fLaC marker")
		}
		p.buf = p.buf[4:]
		p.sawMarker = true
	}

	for !p.doneMetadata {
		if len(p.buf) < 4 {
			return nil, nil
		}
		last := p.buf[0]&0x80 != 0
		blockType := p.buf[0] & 0x7F
		length := int(p.buf[1])<<16 | int(p.buf[2])<<8 | int(p.buf[3])
		if len(p.buf) < 4+length {
			return nil, nil
		}
		block := p.buf[4 : 4+length]
		if blockType == 0 {
			info, err := parseStreamInfo(block)
			if err != nil {
				return nil, err
			}
			p.info = &info
			cp := make([]byte, 4+len(block))
			copy(cp, marker)
			copy(cp[4:], block)
			p.codecPrivate = cp
		}
		p.buf = p.buf[4+length:]
		if last {
			p.doneMetadata = true
		}
	}

	var out []codec.Frame
	for {
		frame, consumed, ok := p.tryExtractFrame()
		if !ok {
			break
		}
		p.buf = p.buf[consumed:]
		out = append(out, frame)
	}
	return out, nil
}

// Flush emits any single trailing frame still buffered (FLAC frame
// boundaries otherwise require seeing the next sync code).
func (p *Parser) Flush() ([]codec.Frame, error) {
	if len(p.buf) == 0 {
		return nil, nil
	}
	f := p.buildFrame(p.buf)
	p.buf = nil
	return []codec.Frame{f}, nil
}

func (p *Parser) tryExtractFrame() (codec.Frame, int, bool) {
	if len(p.buf) < 2 {
		return codec.Frame{}, 0, false
	}
	next := findNextSync(p.buf[2:])
	if next < 0 {
		return codec.Frame{}, 0, false
	}
	frameLen := 2 + next
	f := p.buildFrame(p.buf[:frameLen])
	return f, frameLen, true
}

func findNextSync(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == 0xFF && b[i+1]&0xFC == 0xF8 {
			return i
		}
	}
	return -1
}

func (p *Parser) buildFrame(data []byte) codec.Frame {
	blockSize := 4096
	if p.info != nil && p.info.MaxBlockSize > 0 {
		blockSize = p.info.MaxBlockSize
	}
	rate := 44100
	if p.info != nil && p.info.SampleRate > 0 {
		rate = p.info.SampleRate
	}
	duration := int64(blockSize) * 1_000_000_000 / int64(rate)
	f := codec.Frame{
		Data:        append([]byte(nil), data...),
		TimestampNS: p.pts,
		DurationNS:  duration,
		KeyFrame:    true,
	}
	p.pts += duration
	return f
}

// CodecPrivate returns the fLaC marker plus STREAMINFO block, the form
// Matroska expects for CodecID A_FLAC.
func (p *Parser) CodecPrivate() []byte { return p.codecPrivate }

func (p *Parser) Info() *StreamInfo { return p.info }

func parseStreamInfo(b []byte) (StreamInfo, error) {
	if len(b) < 34 {
		return StreamInfo{}, muxerr.New(muxerr.KindMalformedInput, "flac: STREAMINFO block too short")
	}
	r := bitio.NewReader(bytes.NewReader(b))
	minBlock, _ := r.ReadBits(16)
	maxBlock, _ := r.ReadBits(16)
	_, _ = r.ReadBits(24) // min frame size
	_, _ = r.ReadBits(24) // max frame size
	sampleRate, _ := r.ReadBits(20)
	channels, _ := r.ReadBits(3)
	bps, _ := r.ReadBits(5)
	totalSamples, _ := r.ReadBits(36)

	return StreamInfo{
		MinBlockSize:  int(minBlock),
		MaxBlockSize:  int(maxBlock),
		SampleRate:    int(sampleRate),
		Channels:      int(channels) + 1,
		BitsPerSample: int(bps) + 1,
		TotalSamples:  totalSamples,
	}, nil
}
