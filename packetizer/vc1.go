package packetizer

import (
	"github.com/go-mkvmux/mkvmux/codec/vc1"
)

// VC1 packetizer (§4.5): wraps a raw VC-1 Advanced-profile elementary
// stream parser. P-frames reference the previous frame's timestamp as
// bref; I-frames are keyframes with no reference.
type VC1 struct {
	Base
	Parser *vc1.Parser

	prevTimestampNS int64
	havePrev        bool
}

// NewVC1 returns a VC-1 packetizer.
func NewVC1(params TrackParams, sink Sink) *VC1 {
	return &VC1{Base: NewBase(params, sink)}
}

func (p *VC1) Process(pkt Packet) (Status, error) {
	if p.Parser == nil {
		p.Parser = vc1.New()
	}
	frames, err := p.Parser.AddBytes(pkt.Data)
	if err != nil {
		return MoreData, err
	}
	for _, f := range frames {
		if err := p.emitVC1Frame(f.TimestampNS, f.DurationNS, f.Data, f.KeyFrame); err != nil {
			return MoreData, err
		}
	}
	return MoreData, nil
}

func (p *VC1) Flush() ([]Packet, error) {
	if p.Parser == nil {
		return nil, nil
	}
	frames, err := p.Parser.Flush()
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		if err := p.emitVC1Frame(f.TimestampNS, f.DurationNS, f.Data, f.KeyFrame); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (p *VC1) emitVC1Frame(ts, dur int64, data []byte, keyFrame bool) error {
	var refs []int64
	if !keyFrame && p.havePrev {
		refs = []int64{p.prevTimestampNS}
	}
	err := p.emit(Packet{Data: data, TimestampNS: ts, DurationNS: dur, KeyFrame: keyFrame, RefHintsNS: refs}, false)
	p.prevTimestampNS = ts
	p.havePrev = true
	return err
}

func (p *VC1) CanConnectTo(other Packetizer) ConnectResult {
	return defaultCanConnect(p.Params, other)
}
