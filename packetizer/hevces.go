package packetizer

import (
	"sort"

	"github.com/go-mkvmux/mkvmux/codec/hevc"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// HEVCES packetizer (§4.5): wraps a raw HEVC/h.265 elementary-stream
// parser, derives the actual default duration at first flush from the
// most-frequent inter-frame delta (VUI timing is often absent or wrong
// in raw streams), resets CodecPrivate once parameter sets are known,
// and halves that derived default duration when the container hints at
// field-coded pictures (per-frame durations pass through unchanged).
type HEVCES struct {
	Base
	Parser *hevc.Parser

	NaluSizeLength int
	HalveDuration  bool // container duration hint says this stream is field-coded

	pending    []frameRec
	firstFlush bool
}

type frameRec struct {
	data    []byte
	ts, dur int64
	key     bool
}

// NewHEVCES returns an HEVC-ES packetizer. naluSizeLength governs both
// the parser's input framing (when the source is already length-prefixed)
// and the rendered CodecPrivate's NAL length field.
func NewHEVCES(params TrackParams, sink Sink, naluSizeLength int) *HEVCES {
	return &HEVCES{
		Base:           NewBase(params, sink),
		Parser:         hevc.New(naluSizeLength),
		NaluSizeLength: naluSizeLength,
	}
}

func (p *HEVCES) Process(pkt Packet) (Status, error) {
	frames, err := p.Parser.AddBytes(pkt.Data)
	if err != nil {
		return MoreData, err
	}
	for _, f := range frames {
		p.pending = append(p.pending, frameRec{data: f.Data, ts: f.TimestampNS, dur: f.DurationNS, key: f.KeyFrame})
	}
	return MoreData, nil
}

// Flush drains the parser's trailing access unit, derives the default
// duration from the most common observed inter-frame delta if the track
// has no default duration set yet, refreshes CodecPrivate now that
// parameter sets are known, and emits every buffered frame.
func (p *HEVCES) Flush() ([]Packet, error) {
	frames, err := p.Parser.Flush()
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		p.pending = append(p.pending, frameRec{data: f.Data, ts: f.TimestampNS, dur: f.DurationNS, key: f.KeyFrame})
	}

	if !p.firstFlush {
		p.firstFlush = true
		if p.Params.DefaultDurationNS == 0 {
			if d := modeDelta(p.pending); d > 0 {
				if p.HalveDuration {
					d /= 2
				}
				p.Params.DefaultDurationNS = uint64(d)
			}
		}
		if cp, err := p.Parser.CodecPrivate(p.NaluSizeLength); err == nil {
			p.Params.CodecPrivate = cp
		} else if muxerr.Is(err, muxerr.KindNaluSizeLengthTooSmall) {
			return nil, err
		}
	}

	for _, r := range p.pending {
		if err := p.emit(Packet{Data: r.data, TimestampNS: r.ts, DurationNS: r.dur, KeyFrame: r.key}, false); err != nil {
			return nil, err
		}
	}
	p.pending = nil
	return nil, nil
}

// modeDelta returns the most frequently occurring positive timestamp
// delta between consecutive frames, the "most-frequent inter-frame
// delta" §4.5 names for HEVC-ES default duration derivation.
func modeDelta(recs []frameRec) int64 {
	if len(recs) < 2 {
		return 0
	}
	sorted := append([]frameRec(nil), recs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ts < sorted[j].ts })
	counts := map[int64]int{}
	for i := 1; i < len(sorted); i++ {
		d := sorted[i].ts - sorted[i-1].ts
		if d > 0 {
			counts[d]++
		}
	}
	var best int64
	bestCount := 0
	for d, c := range counts {
		if c > bestCount || (c == bestCount && d < best) {
			best, bestCount = d, c
		}
	}
	return best
}

func (p *HEVCES) CanConnectTo(other Packetizer) ConnectResult {
	res := defaultCanConnect(p.Params, other)
	if res == ConnectMaybeCodecPrivate {
		// HEVC can reconcile differing parameter sets across chained
		// inputs by re-deriving CodecPrivate from the union, per §4.5
		// "HEVC can merge parameter sets; others fail."
		return ConnectYes
	}
	return res
}
