package mkv

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-mkvmux/mkvmux/ebml"
)

// buildStream renders a minimal Matroska file using the same ebml.Element
// tree the write side would produce: an EBML header, a SegmentInfo, one
// video and one audio TrackEntry, and a single Cluster holding one
// SimpleBlock for the video track and a BlockGroup for the audio track.
// segmentUnknownSize controls whether the Segment is rendered with the
// streaming (unknown-size) sentinel.
func buildStream(t *testing.T, segmentUnknownSize bool) []byte {
	t.Helper()

	header := ebml.NewMaster(ebml.DescEBMLHeader)
	docType := ebml.NewLeaf(ebml.DescEBMLDocType)
	docType.SetString("matroska")
	header.Push(docType)
	header.UpdateSize()

	info := ebml.NewMaster(ebml.DescInfo)
	scale := ebml.NewLeaf(ebml.DescTimestampScale)
	scale.SetUint(1_000_000)
	info.Push(scale)
	title := ebml.NewLeaf(ebml.DescTitle)
	title.SetString("Test Title")
	info.Push(title)
	muxApp := ebml.NewLeaf(ebml.DescMuxingApp)
	muxApp.SetString("mkvmux-test")
	info.Push(muxApp)
	writeApp := ebml.NewLeaf(ebml.DescWritingApp)
	writeApp.SetString("mkvmux-test")
	info.Push(writeApp)
	info.UpdateSize()

	videoEntry := buildTrackEntry(1, TypeVideo, "V_MPEG4/ISO/AVC", "Video", "und", func(video *ebml.Element) {
		w := ebml.NewLeaf(ebml.DescPixelWidth)
		w.SetUint(1920)
		video.Push(w)
		h := ebml.NewLeaf(ebml.DescPixelHeight)
		h.SetUint(1080)
		video.Push(h)
	})
	audioEntry := buildTrackEntry(2, TypeAudio, "A_AAC", "Audio", "eng", func(audio *ebml.Element) {
		freq := ebml.NewLeaf(ebml.DescSamplingFrequency)
		freq.SetFloat(48000)
		audio.Push(freq)
		ch := ebml.NewLeaf(ebml.DescChannels)
		ch.SetUint(2)
		audio.Push(ch)
	})

	tracks := ebml.NewMaster(ebml.DescTracks)
	tracks.Push(videoEntry)
	tracks.Push(audioEntry)
	tracks.UpdateSize()

	cluster := ebml.NewMaster(ebml.DescCluster)
	ts := ebml.NewLeaf(ebml.DescTimestamp)
	ts.SetUint(0)
	cluster.Push(ts)

	simple := ebml.NewLeaf(ebml.DescSimpleBlock)
	simple.SetBinary(encodeBlock(t, 1, 0, 0x80, []byte("videoframe")))
	cluster.Push(simple)

	group := ebml.NewMaster(ebml.DescBlockGroup)
	block := ebml.NewLeaf(ebml.DescBlock)
	block.SetBinary(encodeBlock(t, 2, 40, 0, []byte("audioframe")))
	group.Push(block)
	dur := ebml.NewLeaf(ebml.DescBlockDuration)
	dur.SetUint(20)
	group.Push(dur)
	group.UpdateSize()
	cluster.Push(group)
	if segmentUnknownSize {
		// A real streaming writer never knows a Cluster's size up front
		// either; a known-size Cluster inside an unknown-size Segment
		// would just get skipped whole by the avoidSeeks metadata scan
		// instead of being left for ReadPacket.
		cluster.MarkUnknownSize()
	}
	cluster.UpdateSize()

	segment := ebml.NewMaster(ebml.DescSegment)
	segment.Push(info)
	segment.Push(tracks)
	segment.Push(cluster)
	if segmentUnknownSize {
		segment.MarkUnknownSize()
	}
	segment.UpdateSize()

	var buf bytes.Buffer
	if _, err := header.Render(&buf, 0); err != nil {
		t.Fatalf("render header: %v", err)
	}
	if _, err := segment.Render(&buf, int64(buf.Len())); err != nil {
		t.Fatalf("render segment: %v", err)
	}
	return buf.Bytes()
}

func buildTrackEntry(number uint8, trackType uint8, codecID, name, language string, populate func(*ebml.Element)) *ebml.Element {
	entry := ebml.NewMaster(ebml.DescTrackEntry)

	num := ebml.NewLeaf(ebml.DescTrackNumber)
	num.SetUint(uint64(number))
	entry.Push(num)

	uid := ebml.NewLeaf(ebml.DescTrackUID)
	uid.SetUint(uint64(number) + 1000)
	entry.Push(uid)

	typ := ebml.NewLeaf(ebml.DescTrackType)
	typ.SetUint(uint64(trackType))
	entry.Push(typ)

	nameEl := ebml.NewLeaf(ebml.DescTrackName)
	nameEl.SetString(name)
	entry.Push(nameEl)

	lang := ebml.NewLeaf(ebml.DescLanguage)
	lang.SetString(language)
	entry.Push(lang)

	codec := ebml.NewLeaf(ebml.DescCodecID)
	codec.SetString(codecID)
	entry.Push(codec)

	var child *ebml.Element
	switch trackType {
	case TypeVideo:
		child = ebml.NewMaster(ebml.DescVideo)
	case TypeAudio:
		child = ebml.NewMaster(ebml.DescAudio)
	}
	if child != nil {
		populate(child)
		child.UpdateSize()
		entry.Push(child)
	}

	entry.UpdateSize()
	return entry
}

// encodeBlock renders a Block/SimpleBlock payload: VINT track number,
// 16-bit timestamp delta, flags byte, frame data.
func encodeBlock(t *testing.T, track uint64, timestamp int16, flags byte, data []byte) []byte {
	t.Helper()
	head, err := ebml.EncodeVint(track, 0)
	if err != nil {
		t.Fatalf("EncodeVint: %v", err)
	}
	out := make([]byte, 0, len(head)+3+len(data))
	out = append(out, head...)
	out = append(out, byte(uint16(timestamp)>>8), byte(uint16(timestamp)))
	out = append(out, flags)
	out = append(out, data...)
	return out
}

func TestNewMatroskaParser(t *testing.T) {
	data := buildStream(t, false)

	parser, err := NewMatroskaParser(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("NewMatroskaParser() failed: %v", err)
	}

	if parser.GetFileInfo() == nil {
		t.Fatal("expected non-nil file info")
	}
	if parser.GetFileInfo().Title != "Test Title" {
		t.Errorf("Title = %q, want %q", parser.GetFileInfo().Title, "Test Title")
	}
	if parser.GetNumTracks() != 2 {
		t.Fatalf("GetNumTracks() = %d, want 2", parser.GetNumTracks())
	}
	if parser.GetSegmentTop() == 0 {
		t.Error("expected a known segment top for a known-size segment")
	}
}

func TestParseSegmentInfo(t *testing.T) {
	data := buildStream(t, false)

	parser, err := NewMatroskaParser(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("NewMatroskaParser() failed: %v", err)
	}

	info := parser.GetFileInfo()
	if info.MuxingApp != "mkvmux-test" {
		t.Errorf("MuxingApp = %q, want %q", info.MuxingApp, "mkvmux-test")
	}
	if info.WritingApp != "mkvmux-test" {
		t.Errorf("WritingApp = %q, want %q", info.WritingApp, "mkvmux-test")
	}
	if info.TimecodeScale != 1_000_000 {
		t.Errorf("TimecodeScale = %d, want 1000000", info.TimecodeScale)
	}
}

func TestParseTracks(t *testing.T) {
	data := buildStream(t, false)

	parser, err := NewMatroskaParser(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("NewMatroskaParser() failed: %v", err)
	}

	video := parser.GetTrackInfo(0)
	if video == nil {
		t.Fatal("expected track 0")
	}
	if video.Number != 1 || video.Type != TypeVideo || video.CodecID != "V_MPEG4/ISO/AVC" {
		t.Errorf("unexpected video track: %+v", video)
	}
	if video.Video.PixelWidth != 1920 || video.Video.PixelHeight != 1080 {
		t.Errorf("unexpected video geometry: %+v", video.Video)
	}
	if video.Video.DisplayWidth != 1920 || video.Video.DisplayHeight != 1080 {
		t.Errorf("expected display size to fall back to pixel size, got %+v", video.Video)
	}

	audio := parser.GetTrackInfo(1)
	if audio == nil {
		t.Fatal("expected track 1")
	}
	if audio.Number != 2 || audio.Type != TypeAudio || audio.CodecID != "A_AAC" || audio.Language != "eng" {
		t.Errorf("unexpected audio track: %+v", audio)
	}
	if audio.Audio.Channels != 2 || audio.Audio.SamplingFreq != 48000 {
		t.Errorf("unexpected audio settings: %+v", audio.Audio)
	}
}

func TestReadPacket(t *testing.T) {
	data := buildStream(t, false)

	parser, err := NewMatroskaParser(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("NewMatroskaParser() failed: %v", err)
	}

	p1, err := parser.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket() #1 failed: %v", err)
	}
	if p1.Track != 1 || string(p1.Data) != "videoframe" {
		t.Errorf("unexpected first packet: %+v", p1)
	}
	if p1.Flags&KF == 0 {
		t.Error("expected the SimpleBlock packet to carry the keyframe flag")
	}

	p2, err := parser.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket() #2 failed: %v", err)
	}
	if p2.Track != 2 || string(p2.Data) != "audioframe" {
		t.Errorf("unexpected second packet: %+v", p2)
	}
	if p2.StartTime != 40 {
		t.Errorf("StartTime = %d, want 40", p2.StartTime)
	}
	if p2.EndTime != 60 {
		t.Errorf("EndTime = %d, want 60 (BlockDuration applied)", p2.EndTime)
	}

	if _, err := parser.ReadPacket(); err != io.EOF {
		t.Errorf("expected io.EOF after the last packet, got %v", err)
	}
}

func TestReadPacketUnknownSizeSegment(t *testing.T) {
	data := buildStream(t, true)

	parser, err := NewMatroskaParser(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("NewMatroskaParser() failed: %v", err)
	}
	if parser.GetSegmentTop() != 0 {
		t.Errorf("GetSegmentTop() = %d, want 0 for an unknown-size segment", parser.GetSegmentTop())
	}

	p1, err := parser.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket() failed: %v", err)
	}
	if p1.Track != 1 {
		t.Errorf("Track = %d, want 1", p1.Track)
	}
}
