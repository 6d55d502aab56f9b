// Package hevc parses HEVC/h.265 Annex-B or length-prefixed elementary
// streams into access-unit frames, tracking VPS/SPS/PPS for codec_private
// (HEVCC) generation.
package hevc

import (
	"bytes"

	"github.com/icza/bitio"

	"github.com/go-mkvmux/mkvmux/codec"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// NAL unit types relevant to access-unit boundaries and keyframe
// detection (§4.4.3).
const (
	nalVPS            = 32
	nalSPS             = 33
	nalPPS             = 34
	nalBLAWLP          = 16
	nalBLAWRADL        = 17
	nalBLANLP          = 18
	nalIDRWRADL        = 19
	nalIDRNLP          = 20
	nalCRA             = 21
)

func isKeyframeNAL(t int) bool {
	switch t {
	case nalIDRWRADL, nalIDRNLP, nalCRA, nalBLAWLP, nalBLAWRADL, nalBLANLP:
		return true
	}
	return false
}

func isSliceNAL(t int) bool { return t <= 31 }

// SPSInfo is the subset of an active SPS that downstream components need.
type SPSInfo struct {
	Width, Height int
	ChromaFormat  int
	ParNum, ParDen int
	DefaultDurationNS int64
}

// Parser implements codec.Parser for HEVC elementary streams.
type Parser struct {
	// NaluSizeLength is the external framing's length-prefix width
	// (1..4); 0 means Annex-B start codes are used instead.
	NaluSizeLength int

	buf []byte
	pts int64

	vps, sps, pps [][]byte
	activeSPS     *SPSInfo

	pendingNALs [][]byte // parameter sets / SEI seen since the last slice
	inAccessUnit bool
	auNALs       [][]byte
	auKeyframe   bool

	headersReady bool
}

// New returns a fresh HEVC parser. naluSizeLength is 0 for Annex-B input.
func New(naluSizeLength int) *Parser {
	return &Parser{NaluSizeLength: naluSizeLength}
}

var _ codec.Parser = (*Parser)(nil)

// AddBytes unescapes and splits buf into NAL units, grouping them into
// access units at each first_slice_segment_in_pic_flag=1 slice, per
// §4.4.3.
func (p *Parser) AddBytes(b []byte) ([]codec.Frame, error) {
	p.buf = append(p.buf, b...)
	var nals [][]byte
	var rest []byte
	var err error
	if p.NaluSizeLength > 0 {
		nals, rest, err = splitLengthPrefixed(p.buf, p.NaluSizeLength)
	} else {
		nals, rest = splitAnnexB(p.buf)
	}
	if err != nil {
		return nil, err
	}
	p.buf = rest

	var out []codec.Frame
	for _, nal := range nals {
		f, emit, ferr := p.consumeNAL(nal)
		if ferr != nil {
			return out, ferr
		}
		if emit {
			out = append(out, f)
		}
	}
	return out, nil
}

// Flush closes out any in-progress access unit.
func (p *Parser) Flush() ([]codec.Frame, error) {
	if p.inAccessUnit && len(p.auNALs) > 0 {
		f := p.buildFrame()
		p.auNALs = nil
		p.inAccessUnit = false
		return []codec.Frame{f}, nil
	}
	return nil, nil
}

func (p *Parser) consumeNAL(nal []byte) (codec.Frame, bool, error) {
	if len(nal) < 2 {
		return codec.Frame{}, false, nil
	}
	nalType := int(nal[0]>>1) & 0x3F
	rbsp := unescapeEPB(nal[2:])

	switch nalType {
	case nalVPS:
		p.vps = append(p.vps, append([]byte(nil), nal...))
		p.pendingNALs = append(p.pendingNALs, nal)
		return codec.Frame{}, false, nil
	case nalSPS:
		p.sps = append(p.sps, append([]byte(nil), nal...))
		info, err := parseSPS(rbsp)
		if err != nil {
			return codec.Frame{}, false, err
		}
		p.activeSPS = &info
		p.headersReady = len(p.vps) > 0 && len(p.sps) > 0 && len(p.pps) > 0
		p.pendingNALs = append(p.pendingNALs, nal)
		return codec.Frame{}, false, nil
	case nalPPS:
		p.pps = append(p.pps, append([]byte(nil), nal...))
		p.headersReady = len(p.vps) > 0 && len(p.sps) > 0 && len(p.pps) > 0
		p.pendingNALs = append(p.pendingNALs, nal)
		return codec.Frame{}, false, nil
	}

	if isSliceNAL(nalType) {
		firstSlice := rbsp[0]&0x80 != 0
		if firstSlice && p.inAccessUnit {
			f := p.buildFrame()
			p.auNALs = nil
			p.auNALs = append(p.auNALs, p.pendingNALs...)
			p.pendingNALs = nil
			p.auNALs = append(p.auNALs, nal)
			p.auKeyframe = isKeyframeNAL(nalType)
			return f, true, nil
		}
		if firstSlice {
			p.inAccessUnit = true
			p.auNALs = append(p.auNALs, p.pendingNALs...)
			p.pendingNALs = nil
			p.auKeyframe = isKeyframeNAL(nalType)
		}
		p.auNALs = append(p.auNALs, nal)
		return codec.Frame{}, false, nil
	}

	// SEI and other non-VCL NALs accumulate until the next slice/AU.
	p.pendingNALs = append(p.pendingNALs, nal)
	return codec.Frame{}, false, nil
}

func (p *Parser) buildFrame() codec.Frame {
	var data []byte
	for _, n := range p.auNALs {
		data = append(data, encodeLengthPrefixed(n, max(p.NaluSizeLength, 4))...)
	}
	duration := int64(0)
	if p.activeSPS != nil {
		duration = p.activeSPS.DefaultDurationNS
	}
	f := codec.Frame{
		Data:        data,
		TimestampNS: p.pts,
		DurationNS:  duration,
		KeyFrame:    p.auKeyframe,
	}
	p.pts += duration
	return f
}

// CodecPrivate renders an HEVCC blob (VPS/SPS/PPS) with the given
// NAL-size-length. It fails with KindNaluSizeLengthTooSmall if
// naluSizeLength is smaller than any observed VPS/SPS/PPS NAL would need
// (slice NALs are not checked), per §4.4.3.
func (p *Parser) CodecPrivate(naluSizeLength int) ([]byte, error) {
	if !p.headersReady {
		return nil, muxerr.New(muxerr.KindMissingMandatory, "hevc: VPS/SPS/PPS not yet observed")
	}
	minLen := 1
	for _, set := range [][][]byte{p.vps, p.sps, p.pps} {
		for _, nal := range set {
			for n := 1; n <= 4; n++ {
				if len(nal) < (1 << (8 * n)) {
					if n > minLen {
						minLen = n
					}
					break
				}
			}
		}
	}
	if naluSizeLength < minLen {
		return nil, muxerr.New(muxerr.KindNaluSizeLengthTooSmall, "hevc: configured nalu_size_length too small").WithMinFixup(minLen)
	}

	var out []byte
	out = append(out, 1) // configurationVersion
	out = append(out, byte(naluSizeLength-1)&0x03|0xFC)
	out = appendParamSetArray(out, 0x20, p.vps)
	out = appendParamSetArray(out, 0x21, p.sps)
	out = appendParamSetArray(out, 0x22, p.pps)
	return out, nil
}

func appendParamSetArray(out []byte, nalTypeByte byte, sets [][]byte) []byte {
	out = append(out, nalTypeByte)
	out = append(out, byte(len(sets)>>8), byte(len(sets)))
	for _, s := range sets {
		out = append(out, byte(len(s)>>8), byte(len(s)))
		out = append(out, s...)
	}
	return out
}

func (p *Parser) ActiveSPS() *SPSInfo { return p.activeSPS }

// --- Annex-B / length-prefixed framing ------------------------------------

func splitAnnexB(buf []byte) (nals [][]byte, rest []byte) {
	starts := findStartCodes(buf)
	if len(starts) < 2 {
		return nil, buf
	}
	for i := 0; i < len(starts)-1; i++ {
		s, e := starts[i], starts[i+1]
		nal := trimStartCode(buf[s:e])
		nals = append(nals, nal)
	}
	return nals, buf[starts[len(starts)-1]:]
}

func findStartCodes(buf []byte) []int {
	var starts []int
	for i := 0; i+2 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			starts = append(starts, i)
		}
	}
	return starts
}

func trimStartCode(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		// leave trailing zero belonging to the next 4-byte start code alone
		if len(b) >= 4 && b[len(b)-4] == 0 && b[len(b)-3] == 0 && b[len(b)-2] == 0 && b[len(b)-1] == 1 {
			break
		}
		break
	}
	if len(b) >= 4 && b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 1 {
		return b[4:]
	}
	if len(b) >= 3 && b[0] == 0 && b[1] == 0 && b[2] == 1 {
		return b[3:]
	}
	return b
}

func splitLengthPrefixed(buf []byte, length int) (nals [][]byte, rest []byte, err error) {
	i := 0
	for i+length <= len(buf) {
		var n int
		for k := 0; k < length; k++ {
			n = n<<8 | int(buf[i+k])
		}
		if i+length+n > len(buf) {
			break
		}
		nals = append(nals, buf[i+length:i+length+n])
		i += length + n
	}
	return nals, buf[i:], nil
}

func encodeLengthPrefixed(nal []byte, length int) []byte {
	out := make([]byte, length+len(nal))
	n := len(nal)
	for k := length - 1; k >= 0; k-- {
		out[k] = byte(n)
		n >>= 8
	}
	copy(out[length:], nal)
	return out
}

// unescapeEPB removes emulation-prevention 0x03 bytes from a 00 00 03
// sequence, per §4.4.3 "Unescapes emulation-prevention bytes before
// consuming RBSP."
func unescapeEPB(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c == 3 {
			zeros = 0
			continue
		}
		out = append(out, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// parseSPS extracts picture dimensions and chroma format, per §4.4.3. The
// VUI is not parsed: ParNum/ParDen are always 1:1 and DefaultDurationNS is
// left 0.
func parseSPS(rbsp []byte) (SPSInfo, error) {
	if len(rbsp) < 4 {
		return SPSInfo{}, muxerr.New(muxerr.KindMalformedInput, "hevc: sps too short")
	}
	r := bitio.NewReader(bytes.NewReader(rbsp))
	_, _ = r.ReadBits(4) // sps_video_parameter_set_id
	maxSubLayers, _ := r.ReadBits(3)
	_, _ = r.ReadBool() // temporal_id_nesting

	// profile_tier_level, fixed 12 bytes for general, plus 2 bytes per
	// sub-layer flag pair (approximated here since the muxer does not
	// need profile details).
	_, _ = r.ReadBits(96)
	skipSubLayerPTL(r, int(maxSubLayers))

	_, _ = readUE(r) // sps_seq_parameter_set_id
	chromaFormat, _ := readUE(r)
	if chromaFormat == 3 {
		_, _ = r.ReadBool()
	}
	width, _ := readUE(r)
	height, _ := readUE(r)
	confWin, _ := r.ReadBool()
	if confWin {
		_, _ = readUE(r)
		_, _ = readUE(r)
		_, _ = readUE(r)
		_, _ = readUE(r)
	}

	info := SPSInfo{
		Width:        int(width),
		Height:       int(height),
		ChromaFormat: int(chromaFormat),
		ParNum:       1,
		ParDen:       1,
	}
	return info, nil
}

func skipSubLayerPTL(r *bitio.Reader, maxSubLayers int) {
	if maxSubLayers <= 0 {
		return
	}
	profilePresent := make([]bool, maxSubLayers)
	levelPresent := make([]bool, maxSubLayers)
	for i := 0; i < maxSubLayers; i++ {
		v, _ := r.ReadBool()
		profilePresent[i] = v
		v2, _ := r.ReadBool()
		levelPresent[i] = v2
	}
	if maxSubLayers > 0 {
		_, _ = r.ReadBits(uint8(2 * (8 - maxSubLayers)))
	}
	for i := 0; i < maxSubLayers; i++ {
		if profilePresent[i] {
			_, _ = r.ReadBits(88)
		}
		if levelPresent[i] {
			_, _ = r.ReadBits(8)
		}
	}
}

// readUE reads an Exp-Golomb unsigned value.
func readUE(r *bitio.Reader) (uint64, error) {
	zeros := 0
	for {
		b, err := r.ReadBool()
		if err != nil {
			return 0, err
		}
		if b {
			break
		}
		zeros++
		if zeros > 32 {
			return 0, muxerr.New(muxerr.KindMalformedInput, "hevc: exp-golomb overflow")
		}
	}
	if zeros == 0 {
		return 0, nil
	}
	v, err := r.ReadBits(uint8(zeros))
	if err != nil {
		return 0, err
	}
	return (1<<uint(zeros) - 1) + v, nil
}
