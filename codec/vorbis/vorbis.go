// Package vorbis captures the three Vorbis header packets (identification,
// comment, setup) verbatim and computes per-packet duration from
// consecutive blocksizes, per §4.4.6.
package vorbis

import (
	"github.com/go-mkvmux/mkvmux/codec"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// IdentInfo is the subset of the identification header the muxer needs.
type IdentInfo struct {
	Channels   int
	SampleRate int
	BlockSize0 int
	BlockSize1 int
}

// Parser implements codec.Parser for a Vorbis packet stream (the caller
// is expected to hand whole packets to AddBytes, as produced by an Ogg
// demuxer upstream).
type Parser struct {
	headers [][]byte
	ident   *IdentInfo

	prevBlocksize int
	pts           int64
}

// New returns a fresh Vorbis parser.
func New() *Parser { return &Parser{} }

var _ codec.Parser = (*Parser)(nil)

// AddBytes treats b as one complete Vorbis packet. The first three
// packets are captured as headers verbatim; subsequent packets are audio
// data packets whose duration is derived from blocksize transitions.
func (p *Parser) AddBytes(b []byte) ([]codec.Frame, error) {
	if len(p.headers) < 3 {
		if len(b) == 0 || b[0]&1 == 0 {
			return nil, muxerr.New(muxerr.KindMalformedInput, "vorbis: expected a header packet")
		}
		p.headers = append(p.headers, append([]byte(nil), b...))
		if len(p.headers) == 1 {
			info, err := parseIdentHeader(b)
			if err != nil {
				return nil, err
			}
			p.ident = &info
			p.prevBlocksize = info.BlockSize0
		}
		return nil, nil
	}

	blocksize := p.currentBlocksize(b)
	samples := (p.prevBlocksize + blocksize) / 4
	rate := 44100
	if p.ident != nil {
		rate = p.ident.SampleRate
	}
	duration := int64(samples) * 1_000_000_000 / int64(rate)

	f := codec.Frame{
		Data:        append([]byte(nil), b...),
		TimestampNS: p.pts,
		DurationNS:  duration,
		KeyFrame:    true,
	}
	p.pts += duration
	p.prevBlocksize = blocksize
	return []codec.Frame{f}, nil
}

// Flush is a no-op: Vorbis carries no cross-packet buffering beyond the
// previous blocksize, which has already been folded into each emitted
// frame's duration.
func (p *Parser) Flush() ([]codec.Frame, error) { return nil, nil }

// currentBlocksize selects blocksize0 or blocksize1 from the lowest bit of
// the audio packet's mode number (bit 1 of its first byte): set selects
// blocksize1, clear selects blocksize0. The setup header's mode-to-blockflag
// mapping is not consulted, so this matches the stream only when the mode
// number is a single bit (at most two modes).
func (p *Parser) currentBlocksize(b []byte) int {
	if p.ident == nil || len(b) == 0 {
		return 0
	}
	if b[0]&0x02 != 0 {
		return p.ident.BlockSize1
	}
	return p.ident.BlockSize0
}

func parseIdentHeader(b []byte) (IdentInfo, error) {
	if len(b) < 30 || string(b[1:7]) != "vorbis" {
		return IdentInfo{}, muxerr.New(muxerr.KindMalformedInput, "vorbis: malformed identification header")
	}
	channels := int(b[11])
	sampleRate := int(uint32(b[12]) | uint32(b[13])<<8 | uint32(b[14])<<16 | uint32(b[15])<<24)
	bs := b[28]
	bs0 := 1 << (bs & 0x0F)
	bs1 := 1 << (bs >> 4)
	return IdentInfo{Channels: channels, SampleRate: sampleRate, BlockSize0: bs0, BlockSize1: bs1}, nil
}

// CodecPrivate renders the three captured header packets Xiph-laced, per
// §4.4.6: "a leading packet-count-minus-one byte, then for each-but-last
// a series of 0xFF bytes summing to len-255*k plus a final <0xFF byte;
// the last length is implicit from the codec_private total length."
func (p *Parser) CodecPrivate() ([]byte, error) {
	if len(p.headers) != 3 {
		return nil, muxerr.New(muxerr.KindMissingMandatory, "vorbis: all three header packets are required")
	}
	out := []byte{2} // packet count - 1
	for _, h := range p.headers[:2] {
		n := len(h)
		for n >= 255 {
			out = append(out, 0xFF)
			n -= 255
		}
		out = append(out, byte(n))
	}
	for _, h := range p.headers {
		out = append(out, h...)
	}
	return out, nil
}
