// Package packetizer adapts codec frames to the Matroska block model:
// building each track's TrackEntry, applying A/V-sync displacement, and
// handing finished blocks to a Cluster scheduler.
package packetizer

import (
	"bytes"

	"github.com/go-mkvmux/mkvmux/ebml"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// Status is process()'s per-packet result, per §4.5.
type Status int

const (
	MoreData Status = iota
	Done
)

// ConnectResult is can_connect_to's verdict when chaining input files
// into one output track (§4.5).
type ConnectResult int

const (
	ConnectYes ConnectResult = iota
	ConnectNoFormat
	ConnectNoParameters
	ConnectMaybeCodecPrivate
)

// Packet is one codec frame handed to a packetizer for Matroska framing.
type Packet struct {
	Data        []byte
	TimestampNS int64
	DurationNS  int64
	KeyFrame    bool
	RefHintsNS  []int64
	Discardable bool
}

// Block is a fully-formed Matroska block ready for the Cluster
// scheduler: track number, absolute timestamp (the scheduler derives the
// cluster-relative delta), lacing-free payload, and
// reference timestamps for a BlockGroup when not a keyframe.
type Block struct {
	TrackNumber uint64
	TimestampNS int64
	DurationNS  int64
	Data        []byte
	KeyFrame    bool
	RefHintsNS  []int64
	Discardable bool
	ForceGroup  bool // always-sync-complete-group passthrough semantics
}

// Sink receives finished blocks from a packetizer, implemented by the
// cluster scheduler (§4.6).
type Sink interface {
	Enqueue(b Block) error
}

// TrackParams carries the immutable construction-time parameters of
// §4.5: "receives immutable codec parameters... and a reference to the
// output control."
type TrackParams struct {
	TrackNumber  uint64
	TrackUID     uint64
	TrackType    uint64 // 1=video, 2=audio, 17=subtitle
	CodecID      string
	CodecPrivate []byte
	Language     string
	Name         string

	DefaultDurationNS uint64

	// Audio.
	SampleRate uint64
	OutputSampleRate uint64
	Channels   uint64
	BitDepth   uint64

	// Video.
	Width, Height               uint64
	DisplayWidth, DisplayHeight uint64

	UseDurations bool
}

// Base implements the shared displacement/duration/sink plumbing every
// specialisation embeds, per §4.5's shared process() contract.
type Base struct {
	Params TrackParams
	Sink   Sink

	DisplacementNS int64
	Linear         float64 // duration scale factor, 1.0 = no rescale

	lastTimestampNS int64
	emittedFirst    bool
}

// NewBase returns a Base ready to embed in a specialised packetizer.
func NewBase(params TrackParams, sink Sink) Base {
	return Base{Params: params, Sink: sink, Linear: 1.0}
}

// SetHeaders appends this track's TrackEntry to tracks, per §4.5: "emits
// its KaxTrackEntry into the Tracks master: track_number (wire),
// track_uid, type, codec_id, codec_private, default_duration, audio/
// video sub-master."
func (b *Base) SetHeaders(tracks *ebml.Element) error {
	entry := ebml.NewMaster(ebml.DescTrackEntry)

	setUint(entry, ebml.DescTrackNumber, b.Params.TrackNumber)
	setUint(entry, ebml.DescTrackUID, b.Params.TrackUID)
	setUint(entry, ebml.DescTrackType, b.Params.TrackType)
	setString(entry, ebml.DescCodecID, b.Params.CodecID)
	if len(b.Params.CodecPrivate) > 0 {
		cp := ebml.NewLeaf(ebml.DescCodecPrivate)
		cp.SetBinary(b.Params.CodecPrivate)
		entry.Push(cp)
	}
	if b.Params.Language != "" {
		setString(entry, ebml.DescLanguage, b.Params.Language)
	}
	if b.Params.Name != "" {
		setString(entry, ebml.DescTrackName, b.Params.Name)
	}
	if b.Params.DefaultDurationNS > 0 {
		setUint(entry, ebml.DescDefaultDuration, b.Params.DefaultDurationNS)
	}

	switch b.Params.TrackType {
	case 1:
		video := ebml.NewMaster(ebml.DescVideo)
		setUint(video, ebml.DescPixelWidth, b.Params.Width)
		setUint(video, ebml.DescPixelHeight, b.Params.Height)
		if b.Params.DisplayWidth > 0 {
			setUint(video, ebml.DescDisplayWidth, b.Params.DisplayWidth)
		}
		if b.Params.DisplayHeight > 0 {
			setUint(video, ebml.DescDisplayHeight, b.Params.DisplayHeight)
		}
		entry.Push(video)
	case 2:
		audio := ebml.NewMaster(ebml.DescAudio)
		freq := ebml.NewLeaf(ebml.DescSamplingFrequency)
		freq.SetFloat(float64(b.Params.SampleRate))
		audio.Push(freq)
		if b.Params.OutputSampleRate > 0 && b.Params.OutputSampleRate != b.Params.SampleRate {
			out := ebml.NewLeaf(ebml.DescOutputSamplingFrequency)
			out.SetFloat(float64(b.Params.OutputSampleRate))
			audio.Push(out)
		}
		setUint(audio, ebml.DescChannels, b.Params.Channels)
		if b.Params.BitDepth > 0 {
			setUint(audio, ebml.DescBitDepth, b.Params.BitDepth)
		}
		entry.Push(audio)
	}

	entry.Sort()
	tracks.Push(entry)
	return nil
}

func setUint(parent *ebml.Element, d *ebml.Descriptor, v uint64) {
	l := ebml.NewLeaf(d)
	l.SetUint(v)
	parent.Push(l)
}

func setString(parent *ebml.Element, d *ebml.Descriptor, v string) {
	l := ebml.NewLeaf(d)
	l.SetString(v)
	parent.Push(l)
}

// adjust applies displacement and the linear duration scale to a packet,
// per §4.5: "a cumulative displacement_ns is added to each outgoing
// timestamp; a linear factor scales durations."
func (b *Base) adjust(p Packet) (ts int64, dur int64) {
	ts = p.TimestampNS + b.DisplacementNS
	dur = int64(float64(p.DurationNS) * b.Linear)
	return ts, dur
}

// emit builds a Block from p (after sync adjustment) and enqueues it on
// the sink, honouring UseDurations: "if on, every block carries an
// explicit duration; otherwise duration is only emitted when it differs
// from the track's default duration."
func (b *Base) emit(p Packet, forceGroup bool) error {
	ts, dur := b.adjust(p)
	emitDur := dur
	if !b.Params.UseDurations && uint64(dur) == b.Params.DefaultDurationNS {
		emitDur = 0
	}
	blk := Block{
		TrackNumber: b.Params.TrackNumber,
		TimestampNS: ts,
		DurationNS:  emitDur,
		Data:        p.Data,
		KeyFrame:    p.KeyFrame,
		RefHintsNS:  p.RefHintsNS,
		Discardable: p.Discardable,
		ForceGroup:  forceGroup,
	}
	b.lastTimestampNS = ts
	b.emittedFirst = true
	return b.Sink.Enqueue(blk)
}

// Passthrough packetizer (§4.5): preserves an already-Matroska input's
// block framing and reference semantics verbatim, used when re-muxing.
type Passthrough struct {
	Base
	AlwaysSyncCompleteGroup bool
}

// NewPassthrough returns a packetizer that re-emits input blocks with
// only sync/duration adjustment applied.
func NewPassthrough(params TrackParams, sink Sink) *Passthrough {
	return &Passthrough{Base: NewBase(params, sink)}
}

func (p *Passthrough) Process(pkt Packet) (Status, error) {
	if err := p.emit(pkt, p.AlwaysSyncCompleteGroup); err != nil {
		return MoreData, err
	}
	return MoreData, nil
}

func (p *Passthrough) Flush() ([]Packet, error) { return nil, nil }

func (p *Passthrough) CanConnectTo(other Packetizer) ConnectResult {
	return defaultCanConnect(p.Params, other)
}

// TextSubtitle packetizer (§4.5): normalises line endings, strips
// trailing newlines, and scales durations by the Linear factor.
type TextSubtitle struct {
	Base
}

// NewTextSubtitle returns a subtitle packetizer.
func NewTextSubtitle(params TrackParams, sink Sink) *TextSubtitle {
	return &TextSubtitle{Base: NewBase(params, sink)}
}

func (p *TextSubtitle) Process(pkt Packet) (Status, error) {
	ts, dur := p.adjust(pkt)
	end := ts + dur
	if end <= 0 {
		return MoreData, nil // entirely before 0: dropped outright (§4.5)
	}
	if ts < 0 {
		dur += ts // straddles 0: clamp the start
		ts = 0
		pkt.TimestampNS = ts - p.DisplacementNS
		pkt.DurationNS = int64(float64(dur) / p.Linear)
	}
	pkt.Data = normalizeSubtitleText(pkt.Data)
	return MoreData, p.emit(pkt, false)
}

func normalizeSubtitleText(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\n"), []byte("\r\n"))
	for bytes.HasSuffix(b, []byte("\r\n")) {
		b = b[:len(b)-2]
	}
	return b
}

func (p *TextSubtitle) Flush() ([]Packet, error) { return nil, nil }

func (p *TextSubtitle) CanConnectTo(other Packetizer) ConnectResult {
	return defaultCanConnect(p.Params, other)
}

// Packetizer is the shared contract every specialisation satisfies
// (§4.5).
type Packetizer interface {
	SetHeaders(tracks *ebml.Element) error
	Process(pkt Packet) (Status, error)
	Flush() ([]Packet, error)
	CanConnectTo(other Packetizer) ConnectResult
	TrackParams() TrackParams
	SetSync(displacementNS int64, linear float64)
	SetDefaultDuration(ns uint64)
	SetDisplayDimensions(w, h uint64)
}

// TrackParams exposes p's construction-time parameters, needed by
// CanConnectTo comparisons across specialisations.
func (b *Base) TrackParams() TrackParams { return b.Params }

// SetSync applies the CLI --sync TRACK:D[,L/F] knob (§6): displacementNS
// is added to every outgoing timestamp, linear scales durations. Called
// once, before the first Process call.
func (b *Base) SetSync(displacementNS int64, linear float64) {
	b.DisplacementNS = displacementNS
	if linear > 0 {
		b.Linear = linear
	}
}

// SetDefaultDuration overrides the track's default frame duration from
// the CLI --default-duration flag (§6), which always wins over a
// parser-derived value per spec.md §9's Open Question decision.
func (b *Base) SetDefaultDuration(ns uint64) {
	if ns > 0 {
		b.Params.DefaultDurationNS = ns
	}
}

// SetDisplayDimensions overrides the track's DisplayWidth/DisplayHeight
// from the CLI --aspect-ratio / --display-dimensions flags (§6).
func (b *Base) SetDisplayDimensions(w, h uint64) {
	if w > 0 {
		b.Params.DisplayWidth = w
	}
	if h > 0 {
		b.Params.DisplayHeight = h
	}
}

// defaultCanConnect implements the comparison rules common to every
// specialisation (§4.5): "codec_id must match; audio sample rate,
// channels, bit depth must match; video width, height, display size must
// match; codec_private must match exactly... unless the codec's parser
// can reconcile them."
func defaultCanConnect(p TrackParams, otherPz Packetizer) ConnectResult {
	o := otherPz.TrackParams()
	if p.CodecID != o.CodecID || p.TrackType != o.TrackType {
		return ConnectNoFormat
	}
	switch p.TrackType {
	case 2:
		if p.SampleRate != o.SampleRate || p.Channels != o.Channels || p.BitDepth != o.BitDepth {
			return ConnectNoParameters
		}
	case 1:
		if p.Width != o.Width || p.Height != o.Height ||
			p.DisplayWidth != o.DisplayWidth || p.DisplayHeight != o.DisplayHeight {
			return ConnectNoParameters
		}
	}
	if !bytes.Equal(p.CodecPrivate, o.CodecPrivate) {
		return ConnectMaybeCodecPrivate
	}
	return ConnectYes
}

var _ = muxerr.KindUnsupportedCodec // referenced by specialisations in other files
