// Package mux implements the segment assembler of §4.7: it owns the
// output file for its entire lifetime, lays out the EBML header and
// Segment-level masters (SeekHead, Info, Tracks, Chapters, Attachments,
// Tags), drives a cluster.Scheduler to emit Clusters, and performs the
// finalisation sequence (close last cluster, render Cues and statistics
// Tags, overwrite SeekHead positions and Info.duration). The Segment size
// header is left as unknown-size and is not rewritten.
package mux

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/go-mkvmux/mkvmux/cluster"
	"github.com/go-mkvmux/mkvmux/ebml"
	"github.com/go-mkvmux/mkvmux/packetizer"
)

// Output is the combined writer/overwriter contract the assembler needs
// on its file handle: sequential append for the streaming body, random
// access for the teardown rewrites of §4.7. *os.File satisfies it.
type Output interface {
	io.Writer
	io.WriterAt
}

// Config bounds one Assembler run: the cluster scheduler's thresholds
// (§4.6), identity fields for Info, and the supplemented split policy
// (§2.3).
type Config struct {
	Cluster cluster.Config

	MuxingApp      string
	WritingApp     string
	Title          string
	SegmentUID     []byte // 16 bytes; generated via google/uuid if nil
	PrevSegmentUID []byte // set by rotate() when --link chains into this file

	Split SplitPolicy
}

// DefaultConfig returns sane defaults: the cluster package's default
// thresholds and this module's identity strings.
func DefaultConfig() Config {
	return Config{
		Cluster:    cluster.DefaultConfig(),
		MuxingApp:  "mkvmux-go",
		WritingApp: "mkvmux-go",
	}
}

type seekEntry struct {
	targetID ebml.ID
	elem     *ebml.Element // the Seek master, for its SeekPosition child
	posLeaf  *ebml.Element
}

type trackStats struct {
	trackUID   uint64
	totalBytes uint64
	frameCount uint64
	firstTS    int64
	haveFirst  bool
	lastTS     int64
	lastDurNS  int64
}

// Assembler lays out one Matroska Segment on w, per §4.7. It implements
// both packetizer.Sink (so packetizers can enqueue blocks directly) and
// cluster.CueSink (to receive keyframe index entries as clusters close).
type Assembler struct {
	w   Output
	cfg Config

	segmentDataStart int64 // first byte after Segment's ID+size header
	pos              int64

	seekEntries []seekEntry

	durationElem *ebml.Element

	tracksElem      *ebml.Element
	chaptersElem    *ebml.Element
	attachmentsElem *ebml.Element
	userTagsElem    *ebml.Element

	cuesElem *ebml.Element

	sched *cluster.Scheduler
	stats map[uint64]*trackStats

	pzList        []packetizer.Packetizer
	cueStrategies map[uint64]cluster.CueStrategy

	splitBytesAtOpen int64
	splitStartNS     int64
	haveSplitStart   bool
}

var (
	_ packetizer.Sink = (*Assembler)(nil)
	_ cluster.CueSink = (*Assembler)(nil)
)

// New writes the EBML header and opens a Segment on w, reserving space
// for the SeekHead and rendering Info with a placeholder Duration that
// Finalize overwrites in place (SegmentUID and DateUTC are final when
// rendered). hasChapters/hasAttachments/hasUserTags select which optional
// Seek entries the SeekHead reserves; New itself writes no TrackEntry.
func New(w Output, cfg Config, hasChapters, hasAttachments, hasUserTags bool) (*Assembler, error) {
	a := &Assembler{w: w, cfg: cfg, stats: map[uint64]*trackStats{}}

	if err := a.writeEBMLHeader(); err != nil {
		return nil, err
	}
	if err := a.openSegment(); err != nil {
		return nil, err
	}
	if err := a.reserveSeekHead(hasChapters, hasAttachments, hasUserTags); err != nil {
		return nil, err
	}
	if err := a.writeInfo(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Assembler) writeEBMLHeader() error {
	hdr := ebml.NewMaster(ebml.DescEBMLHeader)
	dt := ebml.NewLeaf(ebml.DescEBMLDocType)
	dt.SetString("matroska")
	hdr.Push(dt)
	hdr.Sort()
	hdr.UpdateSize()
	n, err := hdr.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.pos += n
	return nil
}

// openSegment writes the Segment ID with an unknown-size marker, per
// §4.1/§4.7's "unknown size for streaming, or fixed" — this
// implementation always streams and leaves the size unknown, which is
// valid Matroska and avoids needing to know the final file size before
// any Cluster is written.
func (a *Assembler) openSegment() error {
	segElem := ebml.NewMaster(ebml.DescSegment)
	segElem.MarkUnknownSize()
	n, err := segElem.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.pos += n
	a.segmentDataStart = a.pos
	return nil
}

// reserveSeekHead writes a SeekHead with one Seek entry per top-level
// master this run will produce, each SeekPosition pinned at an 8-byte
// width so its payload can be rewritten once the real position is known
// without touching the SeekHead's own size (§4.7: "reserved, size-
// locked, rewritten at end"). Statistics tags are always written at
// teardown, so a Tags entry is always reserved even when the caller
// supplies no --global-tags/--track-tags.
func (a *Assembler) reserveSeekHead(hasChapters, hasAttachments, hasUserTags bool) error {
	plan := []ebml.ID{ebml.IDSegmentInfo, ebml.IDTracks}
	if hasChapters {
		plan = append(plan, ebml.IDChapters)
	}
	if hasAttachments {
		plan = append(plan, ebml.IDAttachments)
	}
	if hasUserTags {
		plan = append(plan, ebml.IDTags)
	}
	plan = append(plan, ebml.IDCues, ebml.IDTags) // Cues, then the always-present stats Tags

	seekHead := ebml.NewMaster(ebml.DescSeekHead)
	for _, id := range plan {
		seek := ebml.NewMaster(ebml.DescSeek)
		sid := ebml.NewLeaf(ebml.DescSeekID)
		sid.SetBinary(idBytes(id))
		seek.Push(sid)
		spos := ebml.NewLeaf(ebml.DescSeekPos)
		spos.SetSizeHint(8)
		spos.SetUint(0)
		seek.Push(spos)
		seekHead.Push(seek)
		a.seekEntries = append(a.seekEntries, seekEntry{targetID: id, elem: seek, posLeaf: spos})
	}
	seekHead.UpdateSize()
	n, err := seekHead.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.pos += n
	return nil
}

// idBytes renders an element ID to its big-endian VINT bytes, the value
// format SeekID stores (§4.8's Matroska wire convention, same widths
// ebml.idWidth already derives from the ID's leading byte).
func idBytes(id ebml.ID) []byte {
	v := uint32(id)
	switch {
	case v <= 0xFF:
		return []byte{byte(v)}
	case v <= 0xFFFF:
		return []byte{byte(v >> 8), byte(v)}
	case v <= 0xFFFFFF:
		return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
	default:
		return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

func (a *Assembler) writeInfo() error {
	info := ebml.NewMaster(ebml.DescInfo)

	scale := ebml.NewLeaf(ebml.DescTimestampScale)
	scale.SetUint(uint64(a.cfg.Cluster.TimecodeScaleNS))
	info.Push(scale)

	uid := a.cfg.SegmentUID
	if len(uid) == 0 {
		u := uuid.New()
		uid = u[:]
		a.cfg.SegmentUID = uid
	}
	suid := ebml.NewLeaf(ebml.DescSegmentUID)
	suid.SetBinary(uid)
	info.Push(suid)

	if len(a.cfg.PrevSegmentUID) > 0 {
		prev := ebml.NewLeaf(ebml.DescPrevUID)
		prev.SetBinary(a.cfg.PrevSegmentUID)
		info.Push(prev)
	}

	if a.cfg.Title != "" {
		title := ebml.NewLeaf(ebml.DescTitle)
		title.SetString(a.cfg.Title)
		info.Push(title)
	}

	mux := ebml.NewLeaf(ebml.DescMuxingApp)
	mux.SetString(a.cfg.MuxingApp)
	info.Push(mux)
	wr := ebml.NewLeaf(ebml.DescWritingApp)
	wr.SetString(a.cfg.WritingApp)
	info.Push(wr)

	date := ebml.NewLeaf(ebml.DescDateUTC)
	date.SetDate(time.Now().UTC())
	info.Push(date)

	dur := ebml.NewLeaf(ebml.DescDuration)
	dur.SetSizeHint(8)
	dur.SetFloat(0)
	info.Push(dur)
	a.durationElem = dur

	info.Sort()
	info.UpdateSize()
	n, err := info.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.recordSeekPosition(ebml.IDSegmentInfo, a.pos)
	a.pos += n
	return nil
}

func (a *Assembler) recordSeekPosition(id ebml.ID, pos int64) {
	for _, e := range a.seekEntries {
		if e.targetID == id {
			e.posLeaf.SetUint(uint64(pos - a.segmentDataStart))
			return
		}
	}
}

// WriteTracks renders the Tracks master built by calling SetHeaders on
// every active packetizer, per §4.5/§4.7.
func (a *Assembler) WriteTracks(packetizers []packetizer.Packetizer) error {
	tracks := ebml.NewMaster(ebml.DescTracks)
	for _, pz := range packetizers {
		if err := pz.SetHeaders(tracks); err != nil {
			return err
		}
		tp := pz.TrackParams()
		a.stats[tp.TrackNumber] = &trackStats{trackUID: tp.TrackUID}
	}
	tracks.UpdateSize()
	n, err := tracks.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.recordSeekPosition(ebml.IDTracks, a.pos)
	a.pos += n
	a.tracksElem = tracks
	a.pzList = packetizers
	return nil
}

// WriteChapters renders a pre-built Chapters master (typically from
// xmlmap), if any.
func (a *Assembler) WriteChapters(chapters *ebml.Element) error {
	if chapters == nil {
		return nil
	}
	chapters.UpdateSize()
	n, err := chapters.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.recordSeekPosition(ebml.IDChapters, a.pos)
	a.pos += n
	a.chaptersElem = chapters
	return nil
}

// WriteAttachments renders a pre-built Attachments master, if any.
func (a *Assembler) WriteAttachments(attachments *ebml.Element) error {
	if attachments == nil {
		return nil
	}
	attachments.UpdateSize()
	n, err := attachments.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.recordSeekPosition(ebml.IDAttachments, a.pos)
	a.pos += n
	a.attachmentsElem = attachments
	return nil
}

// WriteUserTags renders a pre-built Tags master carrying the caller's
// --global-tags/--track-tags content. Statistics tags are always added
// separately at Finalize time, after Cues (see Finalize's doc comment).
func (a *Assembler) WriteUserTags(tags *ebml.Element) error {
	if tags == nil {
		return nil
	}
	tags.UpdateSize()
	n, err := tags.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.recordSeekPosition(ebml.IDTags, a.pos)
	a.pos += n
	a.userTagsElem = tags
	return nil
}

// StartClusters opens the cluster scheduler at the assembler's current
// position; call after all Segment-level masters above have been
// written, per §4.7's layout ("Segment-level elements appear before any
// Cluster").
func (a *Assembler) StartClusters() {
	a.sched = cluster.New(a.w, a.pos, a.cfg.Cluster, a)
	a.cuesElem = ebml.NewMaster(ebml.DescCues)
}

// SetCueStrategy forwards to the underlying scheduler (§4.6 step 2e) and
// records the choice so a --split rotation can re-apply it to the next
// file's scheduler.
func (a *Assembler) SetCueStrategy(trackNumber uint64, strategy cluster.CueStrategy) {
	a.sched.SetCueStrategy(trackNumber, strategy)
	if a.cueStrategies == nil {
		a.cueStrategies = map[uint64]cluster.CueStrategy{}
	}
	a.cueStrategies[trackNumber] = strategy
}

// Enqueue implements packetizer.Sink: records per-track statistics,
// applies the split policy (§2.3), and forwards the block to the
// cluster scheduler.
func (a *Assembler) Enqueue(b packetizer.Block) error {
	st := a.stats[b.TrackNumber]
	if st == nil {
		st = &trackStats{}
		a.stats[b.TrackNumber] = st
	}
	st.totalBytes += uint64(len(b.Data))
	st.frameCount++
	if !st.haveFirst {
		st.firstTS = b.TimestampNS
		st.haveFirst = true
		a.splitStartNS = b.TimestampNS
		a.haveSplitStart = true
	}
	st.lastTS = b.TimestampNS
	st.lastDurNS = b.DurationNS

	if a.cfg.Split.ready(a, b) {
		if err := a.rotate(); err != nil {
			return err
		}
	}
	return a.sched.Enqueue(b)
}

// AddCue implements cluster.CueSink: builds a CuePoint and appends it to
// the in-memory Cues master, rendered at Finalize.
func (a *Assembler) AddCue(trackNumber uint64, timestampNS int64, clusterPosition int64) {
	cp := ebml.NewMaster(ebml.DescCuePoint)
	ct := ebml.NewLeaf(ebml.DescCueTime)
	ct.SetUint(uint64(timestampNS / a.cfg.Cluster.TimecodeScaleNS))
	cp.Push(ct)

	ctp := ebml.NewMaster(ebml.DescCueTrackPositions)
	tn := ebml.NewLeaf(ebml.DescCueTrack)
	tn.SetUint(trackNumber)
	ctp.Push(tn)
	clp := ebml.NewLeaf(ebml.DescCueClusterPosition)
	clp.SetUint(uint64(clusterPosition - a.segmentDataStart))
	ctp.Push(clp)
	cp.Push(ctp)

	a.cuesElem.Push(cp)
}

// Finalize performs §4.7's teardown sequence: flush all packetizers
// (caller's responsibility before calling Finalize), close the last
// cluster, render Cues, build and render the always-present statistics
// Tags (placed after Cues, since its content isn't known until every
// packet has been seen — an Open Question the layout diagram left
// implicit, resolved here rather than guessed at; see DESIGN.md),
// overwrite the SeekHead, overwrite Info.Duration, and leave the
// Segment's size unknown (valid for a streamed file per openSegment).
func (a *Assembler) Finalize() error {
	if err := a.sched.Flush(); err != nil {
		return err
	}

	a.cuesElem.UpdateSize()
	n, err := a.cuesElem.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.recordSeekPosition(ebml.IDCues, a.pos)
	a.pos += n

	statsTags := a.buildStatisticsTags()
	statsTags.UpdateSize()
	n, err = statsTags.Render(a.w, a.pos)
	if err != nil {
		return err
	}
	a.recordSeekPositionSecond(ebml.IDTags, a.pos)
	a.pos += n

	for _, e := range a.seekEntries {
		if err := e.posLeaf.OverwritePayload(a.w); err != nil {
			return err
		}
	}

	lastTS, lastDur := a.overallDuration()
	a.durationElem.SetFloat(float64((lastTS + lastDur) / a.cfg.Cluster.TimecodeScaleNS))
	if err := a.durationElem.OverwritePayload(a.w); err != nil {
		return err
	}
	return nil
}

// recordSeekPositionSecond resolves the second reserved entry for id
// (the always-present statistics Tags slot reserved after Cues in
// reserveSeekHead's plan), since recordSeekPosition's first match is
// already claimed by the user-tags entry when one exists.
func (a *Assembler) recordSeekPositionSecond(id ebml.ID, pos int64) {
	seen := false
	for _, e := range a.seekEntries {
		if e.targetID == id {
			if seen {
				e.posLeaf.SetUint(uint64(pos - a.segmentDataStart))
				return
			}
			seen = true
		}
	}
	// No user-tags entry was reserved (hasUserTags was false): the single
	// reserved Tags slot is this one.
	a.recordSeekPosition(id, pos)
}

func (a *Assembler) overallDuration() (ts int64, dur int64) {
	for _, st := range a.stats {
		end := st.lastTS + st.lastDurNS
		if end > ts+dur {
			ts, dur = st.lastTS, st.lastDurNS
		}
	}
	return ts, dur
}

// buildStatisticsTags builds the per-track BPS/DURATION/NUMBER_OF_FRAMES/
// NUMBER_OF_BYTES SimpleTag set (§2.3 supplement), grounded in
// mkvmerge's tagparser conventions.
func (a *Assembler) buildStatisticsTags() *ebml.Element {
	tags := ebml.NewMaster(ebml.DescTags)
	for trackUID, st := range a.statsByUID() {
		tag := ebml.NewMaster(ebml.DescTag)
		targets := ebml.NewMaster(ebml.DescTargets)
		tuid := ebml.NewLeaf(ebml.DescTagTrackUID)
		tuid.SetUint(trackUID)
		targets.Push(tuid)
		tag.Push(targets)

		durationNS := st.lastTS - st.firstTS + st.lastDurNS
		bps := uint64(0)
		if durationNS > 0 {
			bps = st.totalBytes * 1_000_000_000 / uint64(durationNS)
		}
		tag.Push(simpleTag("BPS", bps))
		tag.Push(simpleTag("DURATION", uint64(durationNS)))
		tag.Push(simpleTag("NUMBER_OF_FRAMES", st.frameCount))
		tag.Push(simpleTag("NUMBER_OF_BYTES", st.totalBytes))

		tags.Push(tag)
	}
	return tags
}

func (a *Assembler) statsByUID() map[uint64]*trackStats {
	byUID := make(map[uint64]*trackStats, len(a.stats))
	for _, st := range a.stats {
		byUID[st.trackUID] = st
	}
	return byUID
}

func simpleTag(name string, v uint64) *ebml.Element {
	st := ebml.NewMaster(ebml.DescSimpleTag)
	n := ebml.NewLeaf(ebml.DescTagName)
	n.SetString(name)
	st.Push(n)
	s := ebml.NewLeaf(ebml.DescTagString)
	s.SetString(itoa(v))
	st.Push(s)
	return st
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Abort forwards to the scheduler's cooperative-cancellation path
// (§5): the current cluster is finalised, Cues/SeekHead rewriting is
// skipped, and the caller truncates the file at the returned offset.
func (a *Assembler) Abort() (truncateAt int64, err error) {
	return a.sched.Abort()
}
