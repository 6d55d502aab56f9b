package mkv

import (
	"fmt"
	"io"
)

// Demuxer is the public read side of reader/mkv: a thin handle around a
// MatroskaParser that exposes track/file metadata and packet iteration
// without leaking the ebml.Reader underneath.
type Demuxer struct {
	parser *MatroskaParser
	reader io.ReadSeeker
}

// NewDemuxer opens a Matroska demuxer on a seekable input, letting the
// parser skip straight to the Cluster stream once metadata parsing is
// done rather than scanning every byte in between.
func NewDemuxer(r io.ReadSeeker) (*Demuxer, error) {
	parser, err := NewMatroskaParser(r, false)
	if err != nil {
		return nil, fmt.Errorf("open demuxer: %w", err)
	}
	return &Demuxer{parser: parser, reader: r}, nil
}

// NewStreamingDemuxer opens a Matroska demuxer on a forward-only
// io.Reader, wrapping it in fakeSeeker so the parser runs in its
// avoidSeeks mode instead of failing the first time it would otherwise
// seek backward or skip past unread bytes.
func NewStreamingDemuxer(r io.Reader) (*Demuxer, error) {
	fs := &fakeSeeker{r: r}
	parser, err := NewMatroskaParser(fs, true)
	if err != nil {
		return nil, fmt.Errorf("open streaming demuxer: %w", err)
	}
	return &Demuxer{parser: parser, reader: fs}, nil
}

// Close releases the demuxer. The current backends need no explicit
// cleanup; the method exists so callers can defer it regardless.
func (d *Demuxer) Close() {}

// GetNumTracks gets the number of tracks available to a given demuxer.
func (d *Demuxer) GetNumTracks() (uint, error) {
	return d.parser.GetNumTracks(), nil
}

// GetTrackInfo returns all track-level information available for a given track,
// where track is less than what is returned by GetNumTracks.
func (d *Demuxer) GetTrackInfo(track uint) (*TrackInfo, error) {
	trackInfo := d.parser.GetTrackInfo(track)
	if trackInfo == nil {
		return nil, fmt.Errorf("track %d not found", track)
	}
	return trackInfo, nil
}

// GetFileInfo gets all top-level (whole file) info available for a given
// demuxer.
func (d *Demuxer) GetFileInfo() (*SegmentInfo, error) {
	fileInfo := d.parser.GetFileInfo()
	if fileInfo == nil {
		return nil, fmt.Errorf("no file info available")
	}
	return fileInfo, nil
}

// GetSegment returns the position of the segment.
func (d *Demuxer) GetSegment() uint64 {
	return d.parser.GetSegment()
}

// GetSegmentTop returns the position of the next byte after the segment.
func (d *Demuxer) GetSegmentTop() uint64 {
	return d.parser.GetSegmentTop()
}

// GetCuesPos returna the position of the cues in the stream.
func (d *Demuxer) GetCuesPos() uint64 {
	return d.parser.GetCuesPos()
}

// GetCuesTopPos returns the position of the byte after the end of the cues.
func (d *Demuxer) GetCuesTopPos() uint64 {
	return d.parser.GetCuesTopPos()
}

// ReadPacket returns the next packet from a demuxer.
func (d *Demuxer) ReadPacket() (*Packet, error) {
	return d.parser.ReadPacket()
}
