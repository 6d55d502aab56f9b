// MatroskaParser walks a Segment's children (SegmentInfo, Tracks, the
// cluster stream) and exposes them as TrackInfo/SegmentInfo/Packet values,
// driving the ebml package's own registry-aware Reader instead of
// re-decoding VINTs and element headers a second time: every element this
// parser reads resolves through the same Context/Descriptor chain the
// write side renders against (ebml/descriptors.go), so a TrackEntry or
// Cluster read here and one built by the segment assembler share one
// model of what's legal where. Cues, Chapters, Tags and Attachments are
// read structurally (so parsing a file that contains them doesn't fail)
// but their payloads are not decoded here — that reconstruction lives in
// the xmlmap package, which works from the write side's Element tree
// rather than raw bytes.
package mkv

import (
	"io"
	"sort"

	"github.com/go-mkvmux/mkvmux/ebml"
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// MatroskaParser walks the Segment of a Matroska/WebM file over an
// ebml.Reader, collecting track/file metadata up front and handing back
// media packets one at a time via ReadPacket.
//
// With avoidSeeks set, the parser never uses the underlying stream's Seek
// (only forward reads), trading an incomplete metadata scan past the
// first Cluster for the ability to run against a plain io.Reader wrapped
// in fakeSeeker.
type MatroskaParser struct {
	r *ebml.Reader

	tracks   []*TrackInfo
	fileInfo *SegmentInfo

	clusterTimestamp uint64

	segmentPos    uint64
	segmentTopPos uint64 // 0 means the Segment's size is unknown (streamed)
	cuesPos       uint64
	cuesTopPos    uint64

	avoidSeeks bool
}

// NewMatroskaParser opens a Matroska parser over r, reading and validating
// the EBML header and the Segment's metadata children before returning.
func NewMatroskaParser(r io.ReadSeeker, avoidSeeks bool) (*MatroskaParser, error) {
	mp := &MatroskaParser{r: ebml.NewReader(r), avoidSeeks: avoidSeeks}

	if err := mp.parseHeader(); err != nil {
		return nil, muxerr.Wrap(muxerr.KindMalformedInput, err, "mkv: parse EBML header")
	}
	if err := mp.parseSegment(); err != nil {
		return nil, muxerr.Wrap(muxerr.KindMalformedInput, err, "mkv: parse segment")
	}
	return mp, nil
}

// parseHeader reads the file's EBML header and checks its DocType is one
// this package understands.
func (mp *MatroskaParser) parseHeader() error {
	e, err := mp.r.ReadElement(ebml.CtxTop)
	if err != nil {
		return err
	}
	if e.ID != ebml.IDEBMLHeader {
		return muxerr.New(muxerr.KindMalformedInput, "mkv: expected EBML header at offset 0")
	}

	docType := "matroska"
	if dt := e.GetChild(ebml.IDEBMLDocType); dt != nil {
		if s, err := dt.AsString(); err == nil && s != "" {
			docType = s
		}
	}
	if docType != "matroska" && docType != "webm" {
		return muxerr.New(muxerr.KindUnsupportedParameter, "mkv: unsupported document type "+docType)
	}
	return nil
}

// parseSegment reads the Segment element's own header (not its full body —
// that would materialise every Cluster in the file at once) and scans its
// metadata children.
func (mp *MatroskaParser) parseSegment() error {
	desc, size, unknownSize, _, err := mp.r.ReadElementHeader(ebml.CtxTop)
	if err != nil {
		return err
	}
	if desc.ID != ebml.IDSegment {
		return muxerr.New(muxerr.KindMalformedInput, "mkv: expected Segment element")
	}

	mp.segmentPos = uint64(mp.r.Pos())
	if !unknownSize {
		mp.segmentTopPos = mp.segmentPos + size
	}

	return mp.parseSegmentChildren()
}

// parseSegmentChildren scans the Segment's direct children, decoding
// SegmentInfo and Tracks fully, recording the Cues element's span without
// decoding it, and stopping at the first Cluster — unless avoidSeeks is
// set, in which case it keeps scanning past known-size Clusters (looking
// for trailing metadata) and gives up once it meets one it cannot skip
// over without seeking.
func (mp *MatroskaParser) parseSegmentChildren() error {
	for mp.segmentTopPos == 0 || uint64(mp.r.Pos()) < mp.segmentTopPos {
		desc, size, unknownSize, _, err := mp.r.ReadElementHeader(ebml.CtxSegment)
		if err != nil {
			if muxerr.Is(err, muxerr.KindUnexpectedEOF) {
				return nil
			}
			return err
		}

		switch desc.ID {
		case ebml.IDSegmentInfo:
			if err := mp.parseSegmentInfo(size); err != nil {
				return err
			}
		case ebml.IDTracks:
			if err := mp.parseTracks(size); err != nil {
				return err
			}
		case ebml.IDCues:
			mp.cuesPos = uint64(mp.r.Pos())
			mp.cuesTopPos = mp.cuesPos + size
			if err := mp.r.Skip(int64(size)); err != nil {
				return err
			}
		case ebml.IDCluster:
			if !mp.avoidSeeks || unknownSize {
				// Media data starts here; ReadPacket takes over from the
				// parser's current position.
				return nil
			}
			if err := mp.r.Skip(int64(size)); err != nil {
				return err
			}
		default:
			if unknownSize {
				return muxerr.New(muxerr.KindUnsupportedParameter, "mkv: unexpected unknown-size element in segment")
			}
			if err := mp.r.Skip(int64(size)); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseSegmentInfo decodes the SegmentInfo master into fileInfo.
func (mp *MatroskaParser) parseSegmentInfo(size uint64) error {
	children, err := mp.r.ReadChildren(ebml.CtxInfo, size)
	if err != nil {
		return err
	}

	info := &SegmentInfo{TimecodeScale: 1_000_000}
	for _, c := range children {
		switch c.ID {
		case ebml.IDSegmentUID:
			if b, _ := c.AsBinary(); len(b) >= 16 {
				copy(info.UID[:], b[:16])
			}
		case ebml.IDSegmentFilename:
			info.Filename, _ = c.AsString()
		case ebml.IDPrevUID:
			if b, _ := c.AsBinary(); len(b) >= 16 {
				copy(info.PrevUID[:], b[:16])
			}
		case ebml.IDPrevFilename:
			info.PrevFilename, _ = c.AsString()
		case ebml.IDNextUID:
			if b, _ := c.AsBinary(); len(b) >= 16 {
				copy(info.NextUID[:], b[:16])
			}
		case ebml.IDNextFilename:
			info.NextFilename, _ = c.AsString()
		case ebml.IDTimestampScale:
			info.TimecodeScale, _ = c.AsUint()
		case ebml.IDDuration:
			d, _ := c.AsFloat()
			info.Duration = uint64(d)
		case ebml.IDDateUTC:
			info.DateUTC, _ = c.AsInt()
			info.DateUTCValid = true
		case ebml.IDTitle:
			info.Title, _ = c.AsString()
		case ebml.IDMuxingApp:
			info.MuxingApp, _ = c.AsString()
		case ebml.IDWritingApp:
			info.WritingApp, _ = c.AsString()
		}
	}
	mp.fileInfo = info
	return nil
}

// parseTracks decodes every TrackEntry under Tracks and sorts the result
// by track number, the order GetTrackInfo's index promises.
func (mp *MatroskaParser) parseTracks(size uint64) error {
	children, err := mp.r.ReadChildren(ebml.CtxTracks, size)
	if err != nil {
		return err
	}

	for _, c := range children {
		if c.ID != ebml.IDTrackEntry {
			continue
		}
		mp.tracks = append(mp.tracks, parseTrackEntry(c))
	}

	sort.Slice(mp.tracks, func(i, j int) bool {
		return mp.tracks[i].Number < mp.tracks[j].Number
	})
	return nil
}

// parseTrackEntry reads one already-decoded TrackEntry element's children
// into a TrackInfo.
func parseTrackEntry(e *ebml.Element) *TrackInfo {
	track := &TrackInfo{
		Enabled:       true,
		Default:       true,
		Lacing:        true,
		TimecodeScale: 1.0,
		Language:      "eng",
	}

	for _, c := range e.Children() {
		switch c.ID {
		case ebml.IDTrackNumber:
			n, _ := c.AsUint()
			track.Number = uint8(n)
		case ebml.IDTrackUID:
			track.UID, _ = c.AsUint()
		case ebml.IDTrackType:
			n, _ := c.AsUint()
			track.Type = uint8(n)
		case ebml.IDTrackName:
			track.Name, _ = c.AsString()
		case ebml.IDLanguage:
			if lang, _ := c.AsString(); lang != "" {
				track.Language = lang
			}
		case ebml.IDFlagEnabled:
			n, _ := c.AsUint()
			track.Enabled = n != 0
		case ebml.IDFlagDefault:
			n, _ := c.AsUint()
			track.Default = n != 0
		case ebml.IDFlagLacing:
			n, _ := c.AsUint()
			track.Lacing = n != 0
		case ebml.IDCodecID:
			track.CodecID, _ = c.AsString()
		case ebml.IDCodecPrivate:
			track.CodecPrivate, _ = c.AsBinary()
		case ebml.IDVideo:
			parseVideoTrack(c, track)
		case ebml.IDAudio:
			parseAudioTrack(c, track)
		}
	}
	return track
}

// parseVideoTrack reads a decoded Video element's children into track's
// Video geometry, falling back to the pixel size for any display
// dimension the file left unspecified.
func parseVideoTrack(e *ebml.Element, track *TrackInfo) {
	for _, c := range e.Children() {
		switch c.ID {
		case ebml.IDPixelWidth:
			n, _ := c.AsUint()
			track.Video.PixelWidth = uint32(n)
		case ebml.IDPixelHeight:
			n, _ := c.AsUint()
			track.Video.PixelHeight = uint32(n)
		case ebml.IDDisplayWidth:
			n, _ := c.AsUint()
			track.Video.DisplayWidth = uint32(n)
		case ebml.IDDisplayHeight:
			n, _ := c.AsUint()
			track.Video.DisplayHeight = uint32(n)
		case ebml.IDFlagInterlaced:
			n, _ := c.AsUint()
			track.Video.Interlaced = n != 0
		}
	}
	if track.Video.DisplayWidth == 0 {
		track.Video.DisplayWidth = track.Video.PixelWidth
	}
	if track.Video.DisplayHeight == 0 {
		track.Video.DisplayHeight = track.Video.PixelHeight
	}
}

// parseAudioTrack reads a decoded Audio element's children into track's
// Audio settings, defaulting to mono 8kHz per the Matroska spec's Audio
// element defaults and mirroring the sampling frequency into the output
// rate when the file doesn't resample.
func parseAudioTrack(e *ebml.Element, track *TrackInfo) {
	track.Audio.Channels = 1
	track.Audio.SamplingFreq = 8000.0

	for _, c := range e.Children() {
		switch c.ID {
		case ebml.IDSamplingFrequency:
			track.Audio.SamplingFreq, _ = c.AsFloat()
		case ebml.IDOutputSamplingFrequency:
			track.Audio.OutputSamplingFreq, _ = c.AsFloat()
		case ebml.IDChannels:
			n, _ := c.AsUint()
			track.Audio.Channels = uint8(n)
		case ebml.IDBitDepth:
			n, _ := c.AsUint()
			track.Audio.BitDepth = uint8(n)
		}
	}
	if track.Audio.OutputSamplingFreq == 0 {
		track.Audio.OutputSamplingFreq = track.Audio.SamplingFreq
	}
}

// ReadPacket reads the next media packet from the Cluster stream,
// resolving every element it meets in ebml.CtxCluster — whose parent
// chain falls through to CtxSegment and the global context, so the same
// call also recognises a sibling Cues/Tags/Attachments that closes an
// unknown-size Cluster without any separate context bookkeeping. Returns
// io.EOF once the Segment (or, for an unbounded Segment, the stream) is
// exhausted.
func (mp *MatroskaParser) ReadPacket() (*Packet, error) {
	for {
		if mp.segmentTopPos > 0 && uint64(mp.r.Pos()) >= mp.segmentTopPos {
			return nil, io.EOF
		}

		desc, size, unknownSize, _, err := mp.r.ReadElementHeader(ebml.CtxCluster)
		if err != nil {
			if muxerr.Is(err, muxerr.KindUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}

		switch desc.ID {
		case ebml.IDCluster:
			mp.clusterTimestamp = 0
			continue

		case ebml.IDTimestamp:
			payload, err := mp.r.ReadRaw(int(size))
			if err != nil {
				return nil, err
			}
			mp.clusterTimestamp = decodeBEUint(payload)
			continue

		case ebml.IDSimpleBlock:
			return mp.parseSimpleBlock(size)

		case ebml.IDBlockGroup:
			return mp.parseBlockGroup(size)

		default:
			if unknownSize {
				return nil, muxerr.New(muxerr.KindUnsupportedParameter, "mkv: unexpected unknown-size element in cluster")
			}
			if err := mp.r.Skip(int64(size)); err != nil {
				if muxerr.Is(err, muxerr.KindUnexpectedEOF) {
					return nil, io.EOF
				}
				return nil, err
			}
		}
	}
}

// parseSimpleBlock decodes a SimpleBlock's wire layout (§6: VINT track
// number, int16 timestamp delta, flags byte, lacing, payload).
func (mp *MatroskaParser) parseSimpleBlock(size uint64) (*Packet, error) {
	data, err := mp.r.ReadRaw(int(size))
	if err != nil {
		return nil, err
	}

	trackNumber, timestamp, flags, frameData, err := decodeBlockHeader(data)
	if err != nil {
		return nil, err
	}

	packet := &Packet{
		Track:     uint8(trackNumber),
		StartTime: mp.clusterTimestamp + uint64(timestamp),
		EndTime:   mp.clusterTimestamp + uint64(timestamp),
		FilePos:   uint64(mp.r.Pos()) - size,
		Data:      delace(frameData, flags),
		Flags:     uint32(flags),
	}
	if flags&0x80 != 0 {
		packet.Flags |= KF
	}
	return packet, nil
}

// parseBlockGroup decodes a BlockGroup's Block and optional BlockDuration
// children into a Packet. A BlockGroup carries no keyframe flag of its
// own; it exists to attach a duration or reference delta to a frame a
// SimpleBlock couldn't, so its Block is always reported as a keyframe.
func (mp *MatroskaParser) parseBlockGroup(size uint64) (*Packet, error) {
	children, err := mp.r.ReadChildren(ebml.CtxBlockGroup, size)
	if err != nil {
		return nil, err
	}

	var packet *Packet
	var duration uint64
	for _, c := range children {
		switch c.ID {
		case ebml.IDBlock:
			blockData, _ := c.AsBinary()
			trackNumber, timestamp, _, frameData, err := decodeBlockHeader(blockData)
			if err != nil {
				return nil, err
			}
			packet = &Packet{
				Track:     uint8(trackNumber),
				StartTime: mp.clusterTimestamp + uint64(timestamp),
				EndTime:   mp.clusterTimestamp + uint64(timestamp),
				FilePos:   uint64(mp.r.Pos()) - size,
				Data:      frameData,
				Flags:     KF,
			}
		case ebml.IDBlockDuration:
			duration, _ = c.AsUint()
		}
	}
	if packet != nil && duration > 0 {
		packet.EndTime = packet.StartTime + duration
	}
	return packet, nil
}

// decodeBlockHeader splits a Block/SimpleBlock payload into its track
// number, cluster-relative timestamp delta, flags byte and remaining
// frame bytes, per §6's wire layout.
func decodeBlockHeader(data []byte) (trackNumber uint64, timestamp int16, flags byte, rest []byte, err error) {
	trackNumber, n, _, err := ebml.DecodeVint(data, false)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if len(data) < n+3 {
		return 0, 0, 0, nil, muxerr.New(muxerr.KindMalformedInput, "mkv: block header truncated")
	}
	timestamp = int16(uint16(data[n])<<8 | uint16(data[n+1]))
	flags = data[n+2]
	rest = data[n+3:]
	return trackNumber, timestamp, flags, rest, nil
}

// delace strips Matroska lacing framing from a block's payload. Fixed-size
// lacing is reconstructed exactly; EBML and Xiph lacing (flags 0x04/0x06)
// are not unpacked into individual frames here since every packetizer in
// this tree reads one frame per Block — a laced multi-frame source would
// need its own frame-splitting packetizer to remux losslessly, which is
// out of scope for the passthrough path.
func delace(data []byte, flags byte) []byte {
	lacing := flags & 0x06
	if lacing == 0 || len(data) == 0 {
		return data
	}
	frameCount := int(data[0]) + 1
	data = data[1:]
	if lacing == 0x02 && frameCount > 1 && len(data) > 0 {
		return data[:len(data)/frameCount]
	}
	return data
}

// decodeBEUint decodes a big-endian unsigned integer payload, the same
// rule ebml.Reader applies to UInt leaves, for the one place this package
// reads a leaf's raw bytes itself (Cluster's Timestamp, read via ReadRaw
// rather than ReadElement since it's interleaved with Block siblings this
// parser handles without building an Element tree for the whole Cluster).
func decodeBEUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// GetNumTracks returns the number of tracks.
func (mp *MatroskaParser) GetNumTracks() uint {
	return uint(len(mp.tracks))
}

// GetTrackInfo returns information about a specific track.
func (mp *MatroskaParser) GetTrackInfo(track uint) *TrackInfo {
	if track >= uint(len(mp.tracks)) {
		return nil
	}
	return mp.tracks[track]
}

// GetFileInfo returns file-level information.
func (mp *MatroskaParser) GetFileInfo() *SegmentInfo {
	return mp.fileInfo
}

// GetSegment returns the segment position.
func (mp *MatroskaParser) GetSegment() uint64 {
	return mp.segmentPos
}

// GetSegmentTop returns the segment top position (0 if the segment's size
// is unknown).
func (mp *MatroskaParser) GetSegmentTop() uint64 {
	return mp.segmentTopPos
}

// GetCuesPos returns the position of the cues in the stream.
func (mp *MatroskaParser) GetCuesPos() uint64 {
	return mp.cuesPos
}

// GetCuesTopPos returns the position of the byte after the end of the cues.
func (mp *MatroskaParser) GetCuesTopPos() uint64 {
	return mp.cuesTopPos
}
