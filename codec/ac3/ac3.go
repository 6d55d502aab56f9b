// Package ac3 parses AC-3/E-AC-3 elementary streams into frames, per
// ATSC A/52's fixed-size frame header.
package ac3

import (
	"bytes"

	"github.com/icza/bitio"

	"github.com/go-mkvmux/mkvmux/codec"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

const syncWord = 0x0B77

// sampleRates indexes AC-3's 2-bit fscod.
var sampleRates = [4]int{48000, 44100, 32000, 0}

// frameSizeWords[fscod][frmsizecod] gives the 16-bit-word frame size for
// a normal (non-1/1000-fraction) frame, per A/52 Table 5.18. The 44.1kHz
// row (index 1) carries the one-word alternation between even and odd
// frmsizecod; it is baked into the table directly.
var frameSizeWords = [3][38]int{
	{96, 96, 120, 120, 144, 144, 168, 168, 192, 192, 224, 224, 256, 256, 288, 288, 320, 320, 384, 384, 448, 448, 512, 512, 576, 576, 640, 640, 768, 768, 896, 896, 1024, 1024, 1152, 1152, 1280, 1280},
	{69, 70, 87, 88, 104, 105, 121, 122, 139, 140, 174, 175, 208, 209, 243, 244, 278, 279, 348, 349, 417, 418, 487, 488, 557, 558, 696, 697, 835, 836, 975, 976, 1114, 1115, 1253, 1254, 1393, 1394},
	{96, 96, 120, 120, 144, 144, 168, 168, 192, 192, 240, 240, 288, 288, 336, 336, 384, 384, 480, 480, 576, 576, 672, 672, 768, 768, 960, 960, 1152, 1152, 1344, 1344, 1536, 1536, 1728, 1728, 1920, 1920},
}

const samplesPerFrame = 1536

// Parser implements codec.Parser for AC-3/E-AC-3 elementary streams.
type Parser struct {
	buf []byte
	pts int64 // running PTS, ns, assigned sequentially at 1536 samples/frame

	lastRate int // sample rate of the most recently parsed header, 0 until one is seen
}

// New returns a fresh AC-3/E-AC-3 parser.
func New() *Parser { return &Parser{} }

var _ codec.Parser = (*Parser)(nil)

// AddBytes advances the parser's sync-and-length state machine, per
// §4.4.1: "Sync on 0x0B77; parse 5-byte header; frame length derived from
// bitrate-code x samplerate-code table; emit when the full frame is
// present."
func (p *Parser) AddBytes(b []byte) ([]codec.Frame, error) {
	p.buf = append(p.buf, b...)
	var out []codec.Frame
	for {
		frame, consumed, ok, err := p.tryExtract()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		p.buf = p.buf[consumed:]
		out = append(out, frame)
	}
	return out, nil
}

// Flush drops any trailing partial frame; AC-3 carries no state beyond a
// complete frame's worth of bytes.
func (p *Parser) Flush() ([]codec.Frame, error) {
	p.buf = nil
	return nil, nil
}

func (p *Parser) tryExtract() (codec.Frame, int, bool, error) {
	idx := -1
	for i := 0; i+1 < len(p.buf); i++ {
		if uint16(p.buf[i])<<8|uint16(p.buf[i+1]) == syncWord {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(p.buf) > 1 {
			p.buf = p.buf[len(p.buf)-1:]
		}
		return codec.Frame{}, 0, false, nil
	}
	if idx > 0 {
		p.buf = p.buf[idx:]
	}
	if len(p.buf) < 5 {
		return codec.Frame{}, 0, false, nil
	}

	r := bitio.NewReader(bytes.NewReader(p.buf[2:5]))
	_, _ = r.ReadBits(8 + 8) // crc1
	fscod := mustRead(r, 2)
	frmsizecod := mustRead(r, 6)

	if int(fscod) >= 3 {
		return codec.Frame{}, 0, false, muxerr.New(muxerr.KindMalformedInput, "ac3: reserved sample-rate code")
	}
	if int(frmsizecod) >= 38 {
		return codec.Frame{}, 0, false, muxerr.New(muxerr.KindMalformedInput, "ac3: reserved frame-size code")
	}
	words := frameSizeWords[fscod][frmsizecod]
	frameBytes := words * 2

	if len(p.buf) < frameBytes {
		return codec.Frame{}, 0, false, nil
	}

	rate := sampleRates[fscod]
	p.lastRate = rate
	duration := int64(samplesPerFrame) * 1_000_000_000 / int64(rate)
	f := codec.Frame{
		Data:        append([]byte(nil), p.buf[:frameBytes]...),
		TimestampNS: p.pts,
		DurationNS:  duration,
		KeyFrame:    true, // every AC-3 frame decodes independently
	}
	p.pts += duration
	return f, frameBytes, true, nil
}

// SampleRate reports the most recently parsed frame's sample rate, or 0
// if no frame has been parsed yet.
func (p *Parser) SampleRate() int { return p.lastRate }

func mustRead(r *bitio.Reader, n uint8) uint64 {
	v, _ := r.ReadBits(n)
	return v
}
