// Package cluster implements the cluster/block scheduler of §4.6: it
// takes the multiplexed stream of Blocks emitted by every active
// Packetizer and orders them into on-disk Clusters such that every
// Block's reference target has already been written, emitting
// BlockGroups with resolved ReferenceBlock deltas and SimpleBlocks for
// unreferenced keyframes.
package cluster

import (
	"io"

	"github.com/go-mkvmux/mkvmux/ebml"
	"github.com/go-mkvmux/mkvmux/muxerr"
	"github.com/go-mkvmux/mkvmux/packetizer"
)

// CueStrategy selects which blocks the scheduler indexes into Cues,
// mirroring the per-track `--cues TRACK:{none|iframes|all}` policy of
// §6, plus the "sparse" variant §4.6 step 2e also names.
type CueStrategy int

const (
	CueIframes CueStrategy = iota
	CueNone
	CueAll
	CueSparse
)

// Config bounds one open cluster's span and size, and how many closed
// clusters a backward/forward reference may still reach across, per
// §4.6's algorithm and §5's ordering guarantees.
type Config struct {
	TimecodeScaleNS   int64 // default 1_000_000 (1ms), per §4.7
	MaxSpanNS         int64 // default 32700ms, §4.6 step 1
	MaxSizeBytes      int64 // default 64MiB
	RetentionWindow   int64 // clusters; default 2
	SparseIntervalNS  int64 // CueSparse: minimum gap between cue entries
}

// DefaultConfig returns the spec's default cluster-closing thresholds.
func DefaultConfig() Config {
	return Config{
		TimecodeScaleNS:  1_000_000,
		MaxSpanNS:        32700 * 1_000_000,
		MaxSizeBytes:     64 << 20,
		RetentionWindow:  2,
		SparseIntervalNS: 1_000_000_000,
	}
}

// CueSink receives keyframe index entries as clusters are flushed,
// implemented by the segment assembler's Cues builder (§4.7).
type CueSink interface {
	AddCue(trackNumber uint64, timestampNS int64, clusterPosition int64)
}

// Scheduler orders packets from every active Packetizer into Clusters
// and writes them to w in arrival order, per §4.6 and §5's single-
// threaded cooperative model: Enqueue never blocks and never refuses a
// packet. Buffered data is bounded only by closing and writing the open
// cluster once it would exceed MaxSizeBytes; no backpressure error is
// reported to the caller.
type Scheduler struct {
	w   io.Writer
	pos int64
	cfg Config

	cueSink     CueSink
	cueStrategy map[uint64]CueStrategy
	lastCueNS   map[uint64]int64

	open        *openCluster
	clusterSeq  int64
	packetSeq   uint64
	lastSize    uint64
	haveLastSize bool

	// refIndex[track][timestampNS] = clusterSeq the referenced block was
	// rendered into, pruned beyond RetentionWindow clusters (§4.6 step 3).
	refIndex map[uint64]map[int64]int64
}

type openCluster struct {
	seq     int64
	baseTS  int64
	packets []packetizer.Block
	size    int64
}

var _ packetizer.Sink = (*Scheduler)(nil)

// New returns a Scheduler that writes to w starting at file offset
// startPos (the segment assembler tells it where the first Cluster
// begins), using cfg's thresholds and reporting cue entries to cueSink.
func New(w io.Writer, startPos int64, cfg Config, cueSink CueSink) *Scheduler {
	return &Scheduler{
		w:           w,
		pos:         startPos,
		cfg:         cfg,
		cueSink:     cueSink,
		cueStrategy: map[uint64]CueStrategy{},
		lastCueNS:   map[uint64]int64{},
		refIndex:    map[uint64]map[int64]int64{},
	}
}

// Pos reports the scheduler's current file offset (the position the next
// Cluster, if any, would start at).
func (s *Scheduler) Pos() int64 { return s.pos }

// SetCueStrategy sets the per-track cue indexing policy; tracks default
// to CueIframes if never set.
func (s *Scheduler) SetCueStrategy(trackNumber uint64, strategy CueStrategy) {
	s.cueStrategy[trackNumber] = strategy
}

func (s *Scheduler) strategyFor(trackNumber uint64) CueStrategy {
	if st, ok := s.cueStrategy[trackNumber]; ok {
		return st
	}
	return CueIframes
}

// Enqueue implements packetizer.Sink: it is the `add_packet` entry point
// of §4.6 step 1, closing the current cluster and opening a new one when
// appending b would exceed the span or size thresholds.
func (s *Scheduler) Enqueue(b packetizer.Block) error {
	if s.open != nil {
		span := b.TimestampNS - s.open.baseTS
		if span < 0 {
			span = -span
		}
		if span > s.cfg.MaxSpanNS || s.open.size+int64(len(b.Data)) > s.cfg.MaxSizeBytes {
			if err := s.closeCluster(); err != nil {
				return err
			}
		}
	}
	if s.open == nil {
		s.open = &openCluster{seq: s.clusterSeq, baseTS: b.TimestampNS}
		s.clusterSeq++
	}
	s.open.packets = append(s.open.packets, b)
	s.open.size += int64(len(b.Data))
	s.packetSeq++
	return nil
}

// Flush closes any still-open cluster, per the finalisation sequence of
// §4.7 ("flush all packetizers -> close last cluster").
func (s *Scheduler) Flush() error {
	if s.open != nil {
		return s.closeCluster()
	}
	return nil
}

// Abort finalises the current cluster without further writes and
// reports the file offset the output can safely be truncated at, per
// §5's cooperative cancellation: "finalises the current cluster, skips
// Cues/SeekHead rewriting, truncates at the last cluster boundary."
func (s *Scheduler) Abort() (truncateAt int64, err error) {
	if s.open != nil {
		if err := s.closeCluster(); err != nil {
			return 0, err
		}
	}
	return s.pos, nil
}

func (s *Scheduler) closeCluster() error {
	oc := s.open
	s.open = nil

	minTS := oc.packets[0].TimestampNS
	for _, p := range oc.packets {
		if p.TimestampNS < minTS {
			minTS = p.TimestampNS
		}
	}

	clusterElem := ebml.NewMaster(ebml.DescCluster)
	ts := ebml.NewLeaf(ebml.DescTimestamp)
	ts.SetUint(uint64(minTS / s.cfg.TimecodeScaleNS))
	clusterElem.Push(ts)
	if s.haveLastSize {
		prev := ebml.NewLeaf(ebml.DescPrevSize)
		prev.SetUint(s.lastSize)
		clusterElem.Push(prev)
	}

	clusterPos := s.pos

	for _, p := range oc.packets {
		child, err := s.renderBlock(p, minTS, oc.seq)
		if err != nil {
			return err
		}
		clusterElem.Push(child)

		s.indexReference(p.TrackNumber, p.TimestampNS, oc.seq)
		if s.shouldCue(p) {
			s.cueSink.AddCue(p.TrackNumber, p.TimestampNS, clusterPos)
			s.lastCueNS[p.TrackNumber] = p.TimestampNS
		}
	}

	clusterElem.UpdateSize()
	n, err := clusterElem.Render(s.w, s.pos)
	if err != nil {
		return err
	}
	s.pos += n
	s.lastSize = uint64(n)
	s.haveLastSize = true

	s.pruneReferences(oc.seq)
	return nil
}

// shouldCue applies the per-track CueStrategy to one packet about to be
// rendered, per §4.6 step 2e and §8's "for every keyframe emitted... the
// Cues index contains an entry... when the cue strategy includes
// keyframes."
func (s *Scheduler) shouldCue(p packetizer.Block) bool {
	if s.cueSink == nil {
		return false
	}
	switch s.strategyFor(p.TrackNumber) {
	case CueNone:
		return false
	case CueAll:
		return true
	case CueSparse:
		if !p.KeyFrame {
			return false
		}
		last, ok := s.lastCueNS[p.TrackNumber]
		return !ok || p.TimestampNS-last >= s.cfg.SparseIntervalNS
	default: // CueIframes
		return p.KeyFrame
	}
}

// renderBlock builds the BlockGroup or SimpleBlock child for one packet,
// resolving its reference timestamps against refIndex, per §4.6 step 2b.
func (s *Scheduler) renderBlock(p packetizer.Block, clusterTS int64, clusterSeq int64) (*ebml.Element, error) {
	deltaStored := (p.TimestampNS - clusterTS) / s.cfg.TimecodeScaleNS
	if deltaStored < -32768 || deltaStored > 32767 {
		return nil, muxerr.New(muxerr.KindInternal, "cluster: block timestamp delta exceeds int16 span")
	}

	if p.KeyFrame && len(p.RefHintsNS) == 0 && !p.ForceGroup {
		payload, err := encodeBlock(p.TrackNumber, int16(deltaStored), 0x80, p.Data)
		if err != nil {
			return nil, err
		}
		sb := ebml.NewLeaf(ebml.DescSimpleBlock)
		sb.SetBinary(payload)
		return sb, nil
	}

	flags := byte(0)
	if p.Discardable {
		flags |= 0x01
	}
	payload, err := encodeBlock(p.TrackNumber, int16(deltaStored), flags, p.Data)
	if err != nil {
		return nil, err
	}

	group := ebml.NewMaster(ebml.DescBlockGroup)
	block := ebml.NewLeaf(ebml.DescBlock)
	block.SetBinary(payload)
	group.Push(block)

	if p.DurationNS > 0 {
		dur := ebml.NewLeaf(ebml.DescBlockDuration)
		dur.SetUint(uint64(p.DurationNS / s.cfg.TimecodeScaleNS))
		group.Push(dur)
	}

	for _, refTS := range p.RefHintsNS {
		refClusterSeq, ok := s.lookupReference(p.TrackNumber, refTS)
		if !ok {
			return nil, muxerr.New(muxerr.KindUnresolvedReference, "cluster: reference block not found for track").WithOffset(refTS)
		}
		if clusterSeq-refClusterSeq > s.cfg.RetentionWindow {
			return nil, muxerr.New(muxerr.KindInternal, "cluster: reference beyond retention window")
		}
		rb := ebml.NewLeaf(ebml.DescReferenceBlock)
		rb.SetInt((refTS - clusterTS) / s.cfg.TimecodeScaleNS)
		group.Push(rb)
	}

	return group, nil
}

func (s *Scheduler) indexReference(trackNumber uint64, timestampNS int64, clusterSeq int64) {
	byTS, ok := s.refIndex[trackNumber]
	if !ok {
		byTS = map[int64]int64{}
		s.refIndex[trackNumber] = byTS
	}
	byTS[timestampNS] = clusterSeq
}

func (s *Scheduler) lookupReference(trackNumber uint64, timestampNS int64) (int64, bool) {
	byTS, ok := s.refIndex[trackNumber]
	if !ok {
		return 0, false
	}
	seq, ok := byTS[timestampNS]
	return seq, ok
}

// pruneReferences drops refIndex entries more than RetentionWindow
// clusters behind the just-closed cluster, per §4.6 step 3's "no
// reference ever crosses more than retention_window clusters."
func (s *Scheduler) pruneReferences(closedSeq int64) {
	cutoff := closedSeq - s.cfg.RetentionWindow
	for track, byTS := range s.refIndex {
		for ts, seq := range byTS {
			if seq < cutoff {
				delete(byTS, ts)
			}
		}
		if len(byTS) == 0 {
			delete(s.refIndex, track)
		}
	}
}

// encodeBlock renders the wire layout of §6: VINT(track_number),
// int16_be(timestamp_delta), uint8(flags), payload.
func encodeBlock(trackNumber uint64, tsDelta int16, flags byte, payload []byte) ([]byte, error) {
	trackBuf, err := ebml.EncodeVint(trackNumber, 0)
	if err != nil {
		return nil, muxerr.Wrap(muxerr.KindInternal, err, "cluster: encode track number vint")
	}
	buf := make([]byte, 0, len(trackBuf)+3+len(payload))
	buf = append(buf, trackBuf...)
	buf = append(buf, byte(uint16(tsDelta)>>8), byte(uint16(tsDelta)))
	buf = append(buf, flags)
	buf = append(buf, payload...)
	return buf, nil
}
