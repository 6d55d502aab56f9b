package packetizer

// VobBtn packetizer (§4.5): DVD VOBU button overlay track. Each input
// packet is one button command block whose duration is derived from
// embedded VOBU start/end sector offsets rather than a codec bitstream.
// Compression records the content compression choice ("zlib" by
// default); SetHeaders (Base's) writes no ContentEncodings and payloads
// are emitted uncompressed.
type VobBtn struct {
	Base
	Compression string // "zlib" (default) or "none", per --compression
}

// NewVobBtn returns a VobBtn packetizer. compression defaults to "zlib"
// when empty, matching the teacher-adjacent source's VobBtn default.
func NewVobBtn(params TrackParams, sink Sink, compression string) *VobBtn {
	if compression == "" {
		compression = "zlib"
	}
	return &VobBtn{Base: NewBase(params, sink), Compression: compression}
}

// VobuEntry is one button overlay command block with its VOBU sector
// bounds, from which §4.5 derives the entry's on-wire duration.
type VobuEntry struct {
	Data              []byte
	StartSector       int64
	EndSector         int64
	SectorDurationNS  int64 // nominal duration of one VOBU sector, stream-specific
	TimestampNS       int64
}

// ProcessEntry computes duration = (EndSector-StartSector)*SectorDurationNS
// and emits the button command block as a keyframe (button overlays have
// no reference structure).
func (p *VobBtn) ProcessEntry(e VobuEntry) error {
	dur := (e.EndSector - e.StartSector) * e.SectorDurationNS
	return p.emit(Packet{Data: e.Data, TimestampNS: e.TimestampNS, DurationNS: dur, KeyFrame: true}, false)
}

func (p *VobBtn) Process(pkt Packet) (Status, error) {
	if err := p.emit(pkt, false); err != nil {
		return MoreData, err
	}
	return MoreData, nil
}

func (p *VobBtn) Flush() ([]Packet, error) { return nil, nil }

func (p *VobBtn) CanConnectTo(other Packetizer) ConnectResult {
	return defaultCanConnect(p.Params, other)
}
