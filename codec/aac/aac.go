// Package aac parses ADTS-framed AAC elementary streams into frames, per
// §4.4.7's "header sync 0xFFF" framing.
package aac

import (
	"github.com/go-mkvmux/mkvmux/codec"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// sampleRateTable maps ADTS's 4-bit sampling_frequency_index to Hz.
var sampleRateTable = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

const samplesPerFrame = 1024

// Header is the subset of an ADTS fixed+variable header the muxer uses.
type Header struct {
	MPEGVersion   int // 0 = MPEG-4, 1 = MPEG-2
	Profile       int
	SampleRateIdx int
	ChannelConfig int
	FrameLength   int
}

// Parser implements codec.Parser for ADTS AAC streams.
type Parser struct {
	buf []byte
	pts int64

	lastHdr *Header
}

// New returns a fresh ADTS AAC parser.
func New() *Parser { return &Parser{} }

var _ codec.Parser = (*Parser)(nil)

// AddBytes syncs on 0xFFF and extracts complete ADTS frames.
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

// Flush drops any trailing partial frame.
func (p *Parser) Flush() ([]codec.Frame, error) {
	p.buf = nil
	return nil, nil
}

func (p *Parser) tryExtract() (codec.Frame, int, bool, error) {
	idx := -1
	for i := 0; i+1 < len(p.buf); i++ {
		if p.buf[i] == 0xFF && p.buf[i+1]&0xF0 == 0xF0 {
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
	if len(p.buf) < 7 {
		return codec.Frame{}, 0, false, nil
	}

	hdr, hasCRC := parseFixedHeader(p.buf)
	headerLen := 7
	if !hasCRC {
		headerLen = 9
	}
	if hdr.FrameLength < headerLen || hdr.FrameLength > len(p.buf) {
		if hdr.FrameLength > len(p.buf) {
			return codec.Frame{}, 0, false, nil
		}
		return codec.Frame{}, 0, false, muxerr.New(muxerr.KindMalformedInput, "aac: impossible frame_length in adts header")
	}

	rate := sampleRateTable[hdr.SampleRateIdx]
	if rate == 0 {
		return codec.Frame{}, 0, false, muxerr.New(muxerr.KindMalformedInput, "aac: reserved sampling_frequency_index")
	}
	p.lastHdr = &hdr
	duration := int64(samplesPerFrame) * 1_000_000_000 / int64(rate)

	f := codec.Frame{
		Data:        append([]byte(nil), p.buf[:hdr.FrameLength]...),
		TimestampNS: p.pts,
		DurationNS:  duration,
		KeyFrame:    true,
	}
	p.pts += duration
	return f, hdr.FrameLength, true, nil
}

// LastHeader returns the most recently parsed ADTS header, or nil if no
// frame has been parsed yet.
func (p *Parser) LastHeader() *Header { return p.lastHdr }

// SampleRate reports the most recently parsed frame's sample rate, or 0
// if no frame has been parsed yet.
func (p *Parser) SampleRate() int {
	if p.lastHdr == nil {
		return 0
	}
	return sampleRateTable[p.lastHdr.SampleRateIdx]
}

// Channels reports the most recently parsed frame's channel count,
// approximated from channel_config per ISO/IEC 13818-7 Table 42 (the
// rarely-used multichannel configs beyond 7 collapse to 0, unknown).
func (p *Parser) Channels() int {
	if p.lastHdr == nil {
		return 0
	}
	switch p.lastHdr.ChannelConfig {
	case 7:
		return 8
	default:
		return p.lastHdr.ChannelConfig
	}
}

// parseFixedHeader decodes the ADTS fixed and variable header fields
// that matter to the muxer, byte-aligned per the common (non bit-shifted
// ADIF-style) case; the "hasCRC" return reports whether protection_absent
// was set (no CRC, 7-byte header) or not (9-byte header with CRC).
func parseFixedHeader(b []byte) (Header, bool) {
	mpegVersion := int(b[1]>>3) & 0x01
	protectionAbsent := b[1]&0x01 != 0
	profile := int(b[2]>>6) + 1
	sampleRateIdx := int(b[2]>>2) & 0x0F
	channelConfig := (int(b[2]&0x01) << 2) | int(b[3]>>6)
	frameLength := (int(b[3]&0x03) << 11) | (int(b[4]) << 3) | (int(b[5]) >> 5)

	return Header{
		MPEGVersion:   mpegVersion,
		Profile:       profile,
		SampleRateIdx: sampleRateIdx,
		ChannelConfig: channelConfig,
		FrameLength:   frameLength,
	}, protectionAbsent
}
