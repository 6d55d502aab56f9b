// Package dts parses DTS / DTS-HD core elementary streams into frames,
// per the DTS Coherent Acoustics core frame header.
package dts

import (
	"bytes"

	"github.com/icza/bitio"

	"github.com/go-mkvmux/mkvmux/codec"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

const coreSync = 0x7FFE8001
const hdSync = 0x64582025

// sampleRateTable maps the 4-bit core sample-rate code to Hz (Table 7-3).
var sampleRateTable = [16]int{
	0, 8000, 16000, 32000, 0, 0, 11025, 22050, 44100, 0,
	12000, 24000, 48000, 96000, 192000, 0,
}

// channelTable maps the 6-bit AMODE field to a channel count (the common
// layouts; exotic multi-assignment modes collapse to their nominal count).
var channelTable = [16]int{
	1, 2, 2, 2, 2, 3, 3, 4, 4, 5, 6, 6, 6, 7, 8, 8,
}

// Header carries the fields §4.4.2 names as relevant to downstream
// packetization and header-change detection.
type Header struct {
	CRCPresent          bool
	NumPCMSampleBlocks  int
	FrameByteSize       int
	AudioChannels       int
	CoreSamplingFreq    int
	SourcePCMResolution int
	ExtendedSubstream   bool
}

func (h Header) sameStreamShape(o Header) bool {
	return h.AudioChannels == o.AudioChannels && h.CoreSamplingFreq == o.CoreSamplingFreq
}

// Parser implements codec.Parser for DTS/DTS-HD core streams.
type Parser struct {
	buf     []byte
	pts     int64
	lastHdr *Header
}

// New returns a fresh DTS parser.
func New() *Parser { return &Parser{} }

var _ codec.Parser = (*Parser)(nil)

// AddBytes syncs on the DTS core sync word, parses the core header, and
// folds in an immediately following HD extension substream if present,
// per §4.4.2.
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

// LastHeader returns the most recently parsed core header, or nil if no
// frame has been parsed yet.
func (p *Parser) LastHeader() *Header { return p.lastHdr }

func readU32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (p *Parser) tryExtract() (codec.Frame, int, bool, error) {
	idx := -1
	for i := 0; i+3 < len(p.buf); i++ {
		if readU32BE(p.buf[i:]) == coreSync {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(p.buf) > 3 {
			p.buf = p.buf[len(p.buf)-3:]
		}
		return codec.Frame{}, 0, false, nil
	}
	if idx > 0 {
		p.buf = p.buf[idx:]
	}
	if len(p.buf) < 18 {
		return codec.Frame{}, 0, false, nil
	}

	hdr, err := parseCoreHeader(p.buf[4:18])
	if err != nil {
		return codec.Frame{}, 0, false, err
	}
	if hdr.FrameByteSize < 96 {
		return codec.Frame{}, 0, false, muxerr.New(muxerr.KindMalformedInput, "dts: frame_byte_size below minimum")
	}

	total := hdr.FrameByteSize
	if len(p.buf) >= total+4 && readU32BE(p.buf[total:]) == hdSync {
		// An HD extension substream immediately follows; §4.4.2 folds it
		// into the same access unit rather than emitting it separately.
		extLen := hdExtensionLength(p.buf[total:])
		if extLen == 0 || len(p.buf) < total+extLen {
			return codec.Frame{}, 0, false, nil
		}
		total += extLen
	}
	if len(p.buf) < total {
		return codec.Frame{}, 0, false, nil
	}

	changed := p.lastHdr != nil && !p.lastHdr.sameStreamShape(hdr)
	p.lastHdr = &hdr

	samples := hdr.NumPCMSampleBlocks * 32
	duration := int64(samples) * 1_000_000_000 / int64(hdr.CoreSamplingFreq)

	f := codec.Frame{
		Data:          append([]byte(nil), p.buf[:total]...),
		TimestampNS:   p.pts,
		DurationNS:    duration,
		KeyFrame:      true,
		ParamsChanged: changed,
	}
	p.pts += duration
	return f, total, true, nil
}

// hdExtensionLength reads the HD extension's own frame-size field so the
// substream can be consumed as a unit; it returns 0 while fewer than 10
// bytes of the extension are buffered, and the caller then waits for more.
func hdExtensionLength(buf []byte) int {
	if len(buf) < 10 {
		return 0
	}
	r := bitio.NewReader(bytes.NewReader(buf[4:10]))
	_, _ = r.ReadBits(8)  // ext_substream_index + reserved bits, approximate
	_, _ = r.ReadBits(2)  // header size minus one (placeholder width)
	sz, _ := r.ReadBits(14)
	return int(sz) + 1
}

func parseCoreHeader(buf []byte) (Header, error) {
	r := bitio.NewReader(bytes.NewReader(buf))
	_, _ = r.ReadBits(1) // frame type
	_, _ = r.ReadBits(5) // deficit sample count
	crcPresent, _ := r.ReadBool()
	numBlocksField, _ := r.ReadBits(7)
	_, _ = r.ReadBits(14) // frame byte size minus one, read below via raw field
	amode, _ := r.ReadBits(6)
	sfreq, _ := r.ReadBits(4)
	_, _ = r.ReadBits(5) // rate (transmission bitrate)
	_, _ = r.ReadBits(1) // embedded downmix
	_, _ = r.ReadBits(1) // dynamic range flag
	_, _ = r.ReadBits(1) // time stamp flag
	_, _ = r.ReadBits(1) // auxiliary data flag
	_, _ = r.ReadBits(1) // hdcd
	_, _ = r.ReadBits(3) // extension audio descriptor
	_, _ = r.ReadBits(1) // extended coding flag
	_, _ = r.ReadBits(1) // audio sync word insertion flag
	pcmres, _ := r.ReadBits(2)

	if int(sfreq) >= 16 || sampleRateTable[sfreq] == 0 {
		return Header{}, muxerr.New(muxerr.KindMalformedInput, "dts: reserved sample-rate code")
	}

	resolutions := [4]int{16, 20, 24, 24}
	channels := 2
	if int(amode) < len(channelTable) {
		channels = channelTable[amode]
	}

	return Header{
		CRCPresent:          crcPresent,
		NumPCMSampleBlocks:  int(numBlocksField) + 1,
		FrameByteSize:       frameByteSizeFromRaw(buf),
		AudioChannels:       channels,
		CoreSamplingFreq:    sampleRateTable[sfreq],
		SourcePCMResolution: resolutions[pcmres],
	}, nil
}

// frameByteSizeFromRaw re-reads the raw 14-bit frame-size-minus-one field
// directly at bit offset 14 from the start of buf (after the 1-bit frame
// type, 5-bit deficit sample count, CRC flag and 7-bit block count), the
// same position parseCoreHeader's sequential read passes over.
func frameByteSizeFromRaw(buf []byte) int {
	r := bitio.NewReader(bytes.NewReader(buf))
	_, _ = r.ReadBits(14)
	v, _ := r.ReadBits(14)
	return int(v) + 1
}
