package packetizer

import (
	"github.com/go-mkvmux/mkvmux/codec"
)

// RawESAudio adapts a raw-elementary-stream audio codec.Parser (AC-3,
// DTS, FLAC, Vorbis, AAC — §4.4) to the Packetizer contract: incoming
// Packet.Data chunks are bytes straight from the reader, not pre-framed
// Matroska blocks; the embedded parser finds frame boundaries and derives
// per-frame timestamps (the raw-ES source carries none of its own), which
// this type then runs through the usual sync/duration adjustment and
// emits to the sink.
type RawESAudio struct {
	Base
	Parser codec.Parser
}

// NewRawESAudio returns a packetizer wrapping parser for a raw-ES audio
// codec with the given construction-time track parameters.
func NewRawESAudio(params TrackParams, sink Sink, parser codec.Parser) *RawESAudio {
	return &RawESAudio{Base: NewBase(params, sink), Parser: parser}
}

func (p *RawESAudio) Process(pkt Packet) (Status, error) {
	frames, err := p.Parser.AddBytes(pkt.Data)
	if err != nil {
		return MoreData, err
	}
	for _, f := range frames {
		if err := p.emitFrame(f); err != nil {
			return MoreData, err
		}
	}
	return MoreData, nil
}

func (p *RawESAudio) Flush() ([]Packet, error) {
	frames, err := p.Parser.Flush()
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		if err := p.emitFrame(f); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (p *RawESAudio) emitFrame(f codec.Frame) error {
	return p.emit(Packet{
		Data:        f.Data,
		TimestampNS: f.TimestampNS,
		DurationNS:  f.DurationNS,
		KeyFrame:    f.KeyFrame,
	}, false)
}

func (p *RawESAudio) CanConnectTo(other Packetizer) ConnectResult {
	return defaultCanConnect(p.Params, other)
}
