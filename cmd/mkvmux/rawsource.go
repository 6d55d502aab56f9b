package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-mkvmux/mkvmux/codec/aac"
	"github.com/go-mkvmux/mkvmux/codec/ac3"
	"github.com/go-mkvmux/mkvmux/codec/dts"
	"github.com/go-mkvmux/mkvmux/codec/flac"
	"github.com/go-mkvmux/mkvmux/codec/hevc"
	"github.com/go-mkvmux/mkvmux/codec/vc1"
	"github.com/go-mkvmux/mkvmux/packetizer"
)

// rawKind identifies a raw elementary-stream input by its file extension,
// the same sniffing mkvmerge itself falls back to absent a container
// wrapper (§1's "raw ES for AAC/AC3/DTS/MP3/FLAC/HEVC/VC1").
type rawKind int

const (
	rawNone rawKind = iota
	rawAC3
	rawDTS
	rawAAC
	rawFLAC
	rawHEVC
	rawVC1
)

func detectRawKind(path string) rawKind {
	switch strings.ToLower(extOf(path)) {
	case ".ac3", ".eac3":
		return rawAC3
	case ".dts", ".dtshd":
		return rawDTS
	case ".aac", ".adts":
		return rawAAC
	case ".flac":
		return rawFLAC
	case ".hevc", ".h265", ".265":
		return rawHEVC
	case ".vc1":
		return rawVC1
	default:
		return rawNone
	}
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}

// rawSource drives one raw elementary-stream file's bytes through its
// packetizer in fixed-size chunks, mirroring mkv.Source's CopyAll
// contract so runJob can treat every input uniformly regardless of
// whether it came from a Matroska demuxer or a bare codec stream.
type rawSource struct {
	f  *os.File
	pz packetizer.Packetizer
}

func (r *rawSource) Packetizers() []packetizer.Packetizer { return []packetizer.Packetizer{r.pz} }

func (r *rawSource) CopyAll() error {
	buf := make([]byte, 64*1024)
	for {
		n, err := r.f.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if _, perr := r.pz.Process(packetizer.Packet{Data: chunk}); perr != nil {
				return perr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", r.f.Name(), err)
		}
	}
	if _, err := r.pz.Flush(); err != nil {
		return err
	}
	return r.f.Close()
}

// peekSize bounds how much of a raw ES file openRawSource reads up front
// to learn its codec parameters before the Tracks master is rendered;
// every codec's first header appears well within this window.
const peekSize = 256 * 1024

// openRawSource peeks path's leading bytes to derive TrackParams (sample
// rate, channels, picture size) ahead of WriteTracks, then rewinds so
// CopyAll reprocesses the file from the beginning through a fresh parser
// instance, keeping the peek pass's partial state out of the real run.
func openRawSource(path string, kind rawKind, outputNumber uint64, language string, naluSizeLength int, sink packetizer.Sink) (*rawSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	peek := make([]byte, peekSize)
	n, err := io.ReadFull(f, peek)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	peek = peek[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seeking %s: %w", path, err)
	}

	params := packetizer.TrackParams{TrackNumber: outputNumber, TrackUID: outputNumber, Language: language}
	var pz packetizer.Packetizer

	switch kind {
	case rawAC3:
		peeker := ac3.New()
		_, _ = peeker.AddBytes(peek)
		params.TrackType = 2
		params.CodecID = "A_AC3"
		params.SampleRate = uint64(peeker.SampleRate())
		// acmod/lfeon aren't decoded; stereo is the common case and is
		// corrected by a player from the bitstream itself if wrong.
		params.Channels = 2
		pz = packetizer.NewRawESAudio(params, sink, ac3.New())

	case rawDTS:
		peeker := dts.New()
		_, _ = peeker.AddBytes(peek)
		params.TrackType = 2
		params.CodecID = "A_DTS"
		if h := peeker.LastHeader(); h != nil {
			params.SampleRate = uint64(h.CoreSamplingFreq)
			params.Channels = uint64(h.AudioChannels)
		}
		pz = packetizer.NewRawESAudio(params, sink, dts.New())

	case rawAAC:
		peeker := aac.New()
		_, _ = peeker.AddBytes(peek)
		params.TrackType = 2
		params.CodecID = "A_AAC"
		params.SampleRate = uint64(peeker.SampleRate())
		params.Channels = uint64(peeker.Channels())
		pz = packetizer.NewRawESAudio(params, sink, aac.New())

	case rawFLAC:
		peeker := flac.New()
		_, _ = peeker.AddBytes(peek)
		params.TrackType = 2
		params.CodecID = "A_FLAC"
		if info := peeker.Info(); info != nil {
			params.SampleRate = uint64(info.SampleRate)
			params.Channels = uint64(info.Channels)
			params.BitDepth = uint64(info.BitsPerSample)
		}
		params.CodecPrivate = peeker.CodecPrivate()
		pz = packetizer.NewRawESAudio(params, sink, flac.New())

	case rawHEVC:
		peeker := hevc.New(naluSizeLength)
		_, _ = peeker.AddBytes(peek)
		params.TrackType = 1
		params.CodecID = "V_MPEGH/ISO/HEVC"
		if sps := peeker.ActiveSPS(); sps != nil {
			params.Width = uint64(sps.Width)
			params.Height = uint64(sps.Height)
			params.DisplayWidth = uint64(sps.Width)
			params.DisplayHeight = uint64(sps.Height)
		}
		// CodecPrivate is left unset here; HEVCES.Flush derives it once
		// the parser has actually seen parameter sets across the full file.
		pz = packetizer.NewHEVCES(params, sink, naluSizeLength)

	case rawVC1:
		peeker := vc1.New()
		_, _ = peeker.AddBytes(peek)
		params.TrackType = 1
		params.CodecID = "V_MS/VFW/FOURCC"
		if seq := peeker.ActiveSequence(); seq != nil {
			params.Width = uint64(seq.Width)
			params.Height = uint64(seq.Height)
			params.DisplayWidth = uint64(seq.Width)
			params.DisplayHeight = uint64(seq.Height)
			if seq.DisplayWidth > 0 && seq.DisplayHeight > 0 {
				params.DisplayWidth = uint64(seq.DisplayWidth)
				params.DisplayHeight = uint64(seq.DisplayHeight)
			}
		}
		pz = packetizer.NewVC1(params, sink)

	default:
		f.Close()
		return nil, fmt.Errorf("unrecognised raw elementary stream: %s", path)
	}

	return &rawSource{f: f, pz: pz}, nil
}
