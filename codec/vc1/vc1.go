// Package vc1 parses Advanced-profile VC-1 byte streams into access-unit
// frames, per SMPTE 421M's 0x0000010x marker framing.
package vc1

import (
	"bytes"

	"github.com/icza/bitio"

	"github.com/go-mkvmux/mkvmux/codec"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// Marker suffix bytes relevant to access-unit boundaries (§4.4.4).
const (
	markerSeqHeader  = 0x0F
	markerEntryPoint = 0x0E
	markerFrame      = 0x0D
	markerField      = 0x0C
	markerSlice      = 0x0B
)

// FrameType is the picture-layer coding type read from a frame header's
// leading unary code (PTYPE), grounded on original_source's
// vc1::frame_type_e.
type FrameType int

const (
	FrameTypeP FrameType = iota
	FrameTypeB
	FrameTypeI
	FrameTypeBI
	FrameTypePSkipped
)

// aspectRatioTable maps the sequence header's 4-bit aspect_ratio index
// (values 1..13) to pixel aspect ratio num/den, per Annex J.
var aspectRatioTable = [13][2]int{
	{1, 1}, {12, 11}, {10, 11}, {16, 11}, {40, 33}, {24, 11}, {20, 11},
	{32, 11}, {80, 33}, {18, 11}, {15, 11}, {64, 33}, {160, 99},
}

var framerateNr = [7]int{24, 25, 30, 50, 60, 48, 72}
var framerateDr = [2]int{1000, 1001}

// SequenceInfo is the parsed Advanced-profile sequence header: display
// geometry, frame rate, and the handful of flags the entrypoint/frame
// header parsers need carried across from it.
type SequenceInfo struct {
	Profile       int
	Level         int
	ChromaFormat  int
	Width, Height int // pixel_width/pixel_height, §6.2.1
	DisplayWidth  int
	DisplayHeight int

	FrameRateNum, FrameRateDen int
	AspectRatioNum             int
	AspectRatioDen             int

	PulldownFlag   bool
	InterlaceFlag  bool
	TFCounterFlag  bool
	FInterPFlag    bool
	PSFModeFlag    bool

	HRDParamFlag       bool
	HRDNumLeakyBuckets int
}

// Entrypoint is the parsed Advanced-profile entrypoint header: the
// per-GOP reference/loop-filter parameters the sequence header doesn't
// carry, grounded on original_source's vc1::entrypoint_t.
type Entrypoint struct {
	BrokenLinkFlag  bool
	ClosedEntryFlag bool
	PanScanFlag     bool
	RefDistFlag     bool
	LoopFilterFlag  bool
	FastUVMCFlag    bool
	ExtendedMVFlag  bool
	DQuant          int
	VSTransformFlag bool
	OverlapFlag     bool
	QuantizerMode   int

	CodedDimensionsFlag bool
	CodedWidth          int
	CodedHeight         int

	ExtendedDMVFlag bool

	LumaScalingFlag   bool
	LumaScaling       int
	ChromaScalingFlag bool
	ChromaScaling     int
}

// frameHeader is the subset of the picture layer this package needs: the
// coding type (for the keyframe flag) and the repeat-field/pulldown
// fields a display-time-aware muxer would need for duration derivation.
type frameHeader struct {
	frameType     FrameType
	repeatFrame   int
	topFieldFirst bool
	repeatFirst   bool
}

// Parser implements codec.Parser for VC-1 Advanced-profile byte streams.
type Parser struct {
	buf []byte
	pts int64

	seq *SequenceInfo
	ep  *Entrypoint

	inAU        bool
	auPackets   [][]byte
	auFrameType FrameType
	auTypeKnown bool
}

// New returns a fresh VC-1 parser.
func New() *Parser { return &Parser{} }

var _ codec.Parser = (*Parser)(nil)

// AddBytes splits buf at 0x00 00 01 0x markers and coalesces everything
// up to (but not including) the next frame marker into one access unit,
// per §4.4.4: "Frame packets begin an access unit and coalesce following
// slice/field/unknown packets as post-frame extras until the next frame
// marker."
func (p *Parser) AddBytes(b []byte) ([]codec.Frame, error) {
	p.buf = append(p.buf, b...)
	packets, rest := splitMarkers(p.buf)
	p.buf = rest

	var out []codec.Frame
	for _, pkt := range packets {
		f, emit, err := p.consumePacket(pkt)
		if err != nil {
			return out, err
		}
		if emit {
			out = append(out, f)
		}
	}
	return out, nil
}

// Flush closes out any in-progress access unit.
func (p *Parser) Flush() ([]codec.Frame, error) {
	if p.inAU && len(p.auPackets) > 0 {
		f := p.buildFrame()
		p.auPackets = nil
		p.inAU = false
		return []codec.Frame{f}, nil
	}
	return nil, nil
}

func (p *Parser) consumePacket(pkt []byte) (codec.Frame, bool, error) {
	if len(pkt) < 1 {
		return codec.Frame{}, false, nil
	}
	marker := pkt[0]
	body := pkt[1:]

	switch marker {
	case markerSeqHeader:
		seq, err := parseSequenceHeader(body)
		if err != nil {
			return codec.Frame{}, false, err
		}
		p.seq = &seq
		return codec.Frame{}, false, nil
	case markerEntryPoint:
		if p.seq != nil {
			ep, err := parseEntrypoint(body, p.seq)
			if err == nil {
				p.ep = &ep
			}
		}
		return codec.Frame{}, false, nil
	case markerFrame:
		fh, frameTypeKnown := p.peekFrameHeader(body)
		if p.inAU {
			f := p.buildFrame()
			p.auPackets = [][]byte{pkt}
			p.auFrameType = fh.frameType
			p.auTypeKnown = frameTypeKnown
			return f, true, nil
		}
		p.inAU = true
		p.auPackets = append(p.auPackets, pkt)
		p.auFrameType = fh.frameType
		p.auTypeKnown = frameTypeKnown
		return codec.Frame{}, false, nil
	default:
		// field/slice/unknown: post-frame extras, coalesced into the
		// current access unit.
		if p.inAU {
			p.auPackets = append(p.auPackets, pkt)
		}
		return codec.Frame{}, false, nil
	}
}

// peekFrameHeader parses a frame packet's picture-layer header against
// the most recently seen sequence header, so the access unit it begins
// can be tagged with its real coding type instead of an assumed one.
func (p *Parser) peekFrameHeader(body []byte) (frameHeader, bool) {
	if p.seq == nil {
		return frameHeader{}, false
	}
	fh, err := parseFrameHeader(body, p.seq)
	if err != nil {
		return frameHeader{}, false
	}
	return fh, true
}

func (p *Parser) buildFrame() codec.Frame {
	var data []byte
	for _, pkt := range p.auPackets {
		data = append(data, []byte{0, 0, 1}...)
		data = append(data, pkt...)
	}
	duration := int64(0)
	if p.seq != nil && p.seq.FrameRateNum > 0 {
		duration = int64(p.seq.FrameRateDen) * 1_000_000_000 / int64(p.seq.FrameRateNum)
	}
	// The picture-layer frame type is the sole source of truth for
	// keyframe status once the sequence header is known; BI frames carry
	// no inter-frame prediction either so they decode standalone just
	// like I frames. Before a sequence header has been seen (or if the
	// frame header itself failed to parse) this falls back to treating
	// the frame as a keyframe, matching a decoder's own inability to
	// reference anything it hasn't decoded yet.
	keyFrame := true
	if p.auTypeKnown {
		keyFrame = p.auFrameType == FrameTypeI || p.auFrameType == FrameTypeBI
	}
	f := codec.Frame{
		Data:        data,
		TimestampNS: p.pts,
		DurationNS:  duration,
		KeyFrame:    keyFrame,
	}
	p.pts += duration
	return f
}

func splitMarkers(buf []byte) (packets [][]byte, rest []byte) {
	var starts []int
	for i := 0; i+3 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 && buf[i+3]&0xF0 == 0x00 {
			starts = append(starts, i)
		}
	}
	if len(starts) < 2 {
		return nil, buf
	}
	for i := 0; i < len(starts)-1; i++ {
		s, e := starts[i], starts[i+1]
		packets = append(packets, buf[s+3:e])
	}
	return packets, buf[starts[len(starts)-1]:]
}

// parseSequenceHeader decodes an Advanced-profile sequence header, per
// original_source's vc1::parse_sequence_header (§6.2.1's field order; the
// packet's 4-byte start code/marker has already been stripped by
// splitMarkers, so this reads starting at profile rather than skipping
// 32 marker bits the way the original bit_cursor does over its
// unstripped buffer).
func parseSequenceHeader(b []byte) (SequenceInfo, error) {
	r := bitio.NewReader(bytes.NewReader(b))

	profile, err := readBits(r, 2)
	if err != nil {
		return SequenceInfo{}, muxerr.New(muxerr.KindMalformedInput, "vc1: sequence header too short")
	}
	if profile != 3 {
		return SequenceInfo{}, muxerr.New(muxerr.KindUnsupportedParameter, "vc1: only the advanced profile is supported")
	}

	var hdr SequenceInfo
	hdr.Profile = int(profile)

	level, err := readBits(r, 3)
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated at level")
	}
	hdr.Level = int(level)

	chroma, err := readBits(r, 2)
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated at chroma_format")
	}
	hdr.ChromaFormat = int(chroma)

	if _, err := readBits(r, 3); err != nil { // frame_rtq_postproc
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	if _, err := readBits(r, 5); err != nil { // bit_rtq_postproc
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	if _, err := r.ReadBool(); err != nil { // postproc_flag
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}

	pixelWidth, err := readBits(r, 12)
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated at pixel_width")
	}
	hdr.Width = int(pixelWidth+1) << 1

	pixelHeight, err := readBits(r, 12)
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated at pixel_height")
	}
	hdr.Height = int(pixelHeight+1) << 1

	pulldown, err := r.ReadBool()
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	hdr.PulldownFlag = pulldown

	interlace, err := r.ReadBool()
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	hdr.InterlaceFlag = interlace

	tfCounter, err := r.ReadBool()
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	hdr.TFCounterFlag = tfCounter

	fInterP, err := r.ReadBool()
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	hdr.FInterPFlag = fInterP

	if _, err := r.ReadBool(); err != nil { // reserved
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}

	psfMode, err := r.ReadBool()
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	hdr.PSFModeFlag = psfMode

	displayInfo, err := r.ReadBool()
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}

	if displayInfo {
		displayWidth, err := readBits(r, 14)
		if err != nil {
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated at display_width")
		}
		hdr.DisplayWidth = int(displayWidth) + 1

		displayHeight, err := readBits(r, 14)
		if err != nil {
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated at display_height")
		}
		hdr.DisplayHeight = int(displayHeight) + 1

		aspectFlag, err := r.ReadBool()
		if err != nil {
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
		}
		if aspectFlag {
			idx, err := readBits(r, 4)
			if err != nil {
				return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
			}
			switch {
			case idx > 0 && idx < 14:
				hdr.AspectRatioNum = aspectRatioTable[idx-1][0]
				hdr.AspectRatioDen = aspectRatioTable[idx-1][1]
			case idx == 15:
				w, err := readBits(r, 8)
				if err != nil {
					return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
				}
				h, err := readBits(r, 8)
				if err != nil {
					return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
				}
				if w != 0 && h != 0 {
					hdr.AspectRatioNum = int(w)
					hdr.AspectRatioDen = int(h)
				}
			}
		}

		framerateFlag, err := r.ReadBool()
		if err != nil {
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
		}
		if framerateFlag {
			exact, err := r.ReadBool()
			if err != nil {
				return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
			}
			if exact {
				den, err := readBits(r, 16)
				if err != nil {
					return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
				}
				hdr.FrameRateNum = int(den) + 1
				hdr.FrameRateDen = 32
			} else {
				nr, err := readBits(r, 8)
				if err != nil {
					return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
				}
				dr, err := readBits(r, 4)
				if err != nil {
					return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
				}
				if nr != 0 && nr < 8 && dr != 0 && dr < 3 {
					hdr.FrameRateNum = framerateNr[nr-1] * 1000
					hdr.FrameRateDen = framerateDr[dr-1]
				}
			}
		}

		colorDesc, err := r.ReadBool()
		if err != nil {
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
		}
		if colorDesc {
			if _, err := readBits(r, 24); err != nil { // color_prim, transfer_char, matrix_coef
				return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
			}
		}
	}

	hrdParam, err := r.ReadBool()
	if err != nil {
		return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
	}
	hdr.HRDParamFlag = hrdParam
	if hrdParam {
		numBuckets, err := readBits(r, 5)
		if err != nil {
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
		}
		hdr.HRDNumLeakyBuckets = int(numBuckets)
		if _, err := readBits(r, 8); err != nil { // bitrate/buffer size exponents
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
		}
		if err := skipBits(r, hdr.HRDNumLeakyBuckets*32); err != nil {
			return SequenceInfo{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: sequence header truncated")
		}
	}

	return hdr, nil
}

// parseEntrypoint decodes an Advanced-profile entrypoint header, per
// original_source's vc1::parse_entrypoint; seq supplies the hrd/extended-
// mv context the sequence header already established.
func parseEntrypoint(b []byte, seq *SequenceInfo) (Entrypoint, error) {
	r := bitio.NewReader(bytes.NewReader(b))
	var ep Entrypoint

	flags := make([]bool, 0, 7)
	for i := 0; i < 7; i++ {
		v, err := r.ReadBool()
		if err != nil {
			return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
		}
		flags = append(flags, v)
	}
	ep.BrokenLinkFlag, ep.ClosedEntryFlag, ep.PanScanFlag, ep.RefDistFlag,
		ep.LoopFilterFlag, ep.FastUVMCFlag, ep.ExtendedMVFlag = flags[0], flags[1], flags[2], flags[3], flags[4], flags[5], flags[6]

	dquant, err := readBits(r, 2)
	if err != nil {
		return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
	}
	ep.DQuant = int(dquant)

	vsTransform, err := r.ReadBool()
	if err != nil {
		return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
	}
	ep.VSTransformFlag = vsTransform

	overlap, err := r.ReadBool()
	if err != nil {
		return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
	}
	ep.OverlapFlag = overlap

	quantizerMode, err := readBits(r, 2)
	if err != nil {
		return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
	}
	ep.QuantizerMode = int(quantizerMode)

	if seq.HRDParamFlag {
		if err := skipBits(r, seq.HRDNumLeakyBuckets*8); err != nil {
			return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
		}
	}

	codedDims, err := r.ReadBool()
	if err != nil {
		return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
	}
	ep.CodedDimensionsFlag = codedDims
	if codedDims {
		w, err := readBits(r, 12)
		if err != nil {
			return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
		}
		h, err := readBits(r, 12)
		if err != nil {
			return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
		}
		ep.CodedWidth = int(w+1) << 1
		ep.CodedHeight = int(h+1) << 1
	}

	if ep.ExtendedMVFlag {
		v, err := r.ReadBool()
		if err != nil {
			return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
		}
		ep.ExtendedDMVFlag = v
	}

	lumaScalingFlag, err := r.ReadBool()
	if err != nil {
		return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
	}
	ep.LumaScalingFlag = lumaScalingFlag
	if lumaScalingFlag {
		v, err := readBits(r, 3)
		if err != nil {
			return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
		}
		ep.LumaScaling = int(v)
	}

	chromaScalingFlag, err := r.ReadBool()
	if err != nil {
		return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
	}
	ep.ChromaScalingFlag = chromaScalingFlag
	if chromaScalingFlag {
		v, err := readBits(r, 3)
		if err != nil {
			return Entrypoint{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: entrypoint truncated")
		}
		ep.ChromaScaling = int(v)
	}

	return ep, nil
}

// parseFrameHeader decodes enough of the picture layer to classify its
// coding type, per original_source's vc1::parse_frame_header.
func parseFrameHeader(b []byte, seq *SequenceInfo) (frameHeader, error) {
	r := bitio.NewReader(bytes.NewReader(b))
	var fh frameHeader

	if seq.InterlaceFlag {
		if _, err := readFCM(r); err != nil {
			return frameHeader{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: frame header truncated at fcm")
		}
	}

	ones, sawStop, err := readUnary(r, 4)
	if err != nil {
		return frameHeader{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: frame header truncated at ptype")
	}
	switch {
	case ones == 0:
		fh.frameType = FrameTypeP
	case ones == 1:
		fh.frameType = FrameTypeB
	case ones == 2:
		fh.frameType = FrameTypeI
	case ones == 3:
		fh.frameType = FrameTypeBI
	default:
		fh.frameType = FrameTypePSkipped
		return fh, nil
	}
	_ = sawStop

	if seq.TFCounterFlag {
		if _, err := readBits(r, 8); err != nil {
			return frameHeader{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: frame header truncated at tf_counter")
		}
	}

	if seq.PulldownFlag {
		if !seq.InterlaceFlag || seq.PSFModeFlag {
			rep, err := readBits(r, 2)
			if err != nil {
				return frameHeader{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: frame header truncated at repeat_frame")
			}
			fh.repeatFrame = int(rep)
		} else {
			top, err := r.ReadBool()
			if err != nil {
				return frameHeader{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: frame header truncated")
			}
			rep, err := r.ReadBool()
			if err != nil {
				return frameHeader{}, muxerr.Wrap(muxerr.KindMalformedInput, err, "vc1: frame header truncated")
			}
			fh.topFieldFirst = top
			fh.repeatFirst = rep
		}
	}

	return fh, nil
}

// readFCM reads the 1-to-2-bit frame coding mode code: "0" -> progressive
// (0), "10" -> frame-interlace (1), "11" -> field-interlace (2).
func readFCM(r *bitio.Reader) (int, error) {
	first, err := r.ReadBool()
	if err != nil {
		return 0, err
	}
	if !first {
		return 0, nil
	}
	second, err := r.ReadBool()
	if err != nil {
		return 0, err
	}
	if !second {
		return 1, nil
	}
	return 2, nil
}

// readUnary counts consecutive 1-bits up to max, stopping at the first
// 0-bit (not consumed past) or once max ones have been read. sawStop
// reports whether a terminating 0 was actually read.
func readUnary(r *bitio.Reader, max int) (count int, sawStop bool, err error) {
	for count = 0; count < max; count++ {
		b, err := r.ReadBool()
		if err != nil {
			return count, false, err
		}
		if !b {
			return count, true, nil
		}
	}
	return count, false, nil
}

// readBits reads n bits (1..63) as an unsigned value.
func readBits(r *bitio.Reader, n uint8) (uint64, error) {
	return r.ReadBits(n)
}

// skipBits discards n bits, reading in 32-bit chunks since bitio.ReadBits
// only accepts widths up to 64 and the HRD leaky-bucket skips below can
// run past that in a single call.
func skipBits(r *bitio.Reader, n int) error {
	for n > 0 {
		chunk := n
		if chunk > 32 {
			chunk = 32
		}
		if _, err := r.ReadBits(uint8(chunk)); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func (p *Parser) ActiveSequence() *SequenceInfo { return p.seq }
func (p *Parser) ActiveEntrypoint() *Entrypoint { return p.ep }
