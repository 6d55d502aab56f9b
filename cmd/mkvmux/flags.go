package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// cliOptions mirrors the flag surface of §6, keyed by output track
// number for every per-track flag (`TRACK:VALUE`), since tracks from
// every input file are renumbered densely into one output Segment.
type cliOptions struct {
	Inputs []string
	Output string

	ATracks []string
	VTracks []string
	STracks []string

	Language       []string // TRACK:CODE
	DefaultDur     []string // TRACK:N[i|p|fps]
	Sync           []string // TRACK:D[,L[/F]]
	AspectRatio    []string // TRACK:W/H
	DisplayDims    []string // TRACK:WxH
	NaluSizeLength []string // TRACK:N
	Compression    []string // TRACK:{zlib|none}
	Cues           []string // TRACK:{none|iframes|all|sparse}

	Chapters    string
	GlobalTags  string
	TrackTags   []string // TRACK:FILE
	AttachFile  []string // PATH[:MIMETYPE[:DESCRIPTION]]

	Split      string
	Link       bool
	SegmentUID string

	KeepGoing bool
	JobFile   string
}

func registerFlags(cmd *cobra.Command, o *cliOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.Output, "output", "o", "", "output file name")

	f.StringArrayVar(&o.ATracks, "atracks", nil, "audio tracks to keep (comma-separated track numbers)")
	f.StringArrayVar(&o.VTracks, "vtracks", nil, "video tracks to keep")
	f.StringArrayVar(&o.STracks, "stracks", nil, "subtitle tracks to keep")

	f.StringArrayVar(&o.Language, "language", nil, "TRACK:CODE language override")
	f.StringArrayVar(&o.DefaultDur, "default-duration", nil, "TRACK:N[i|p|fps] default frame duration")
	f.StringArrayVar(&o.Sync, "sync", nil, "TRACK:DISPLACEMENT[,NUM/DEN] timestamp sync")
	f.StringArrayVar(&o.AspectRatio, "aspect-ratio", nil, "TRACK:W/H display aspect ratio")
	f.StringArrayVar(&o.DisplayDims, "display-dimensions", nil, "TRACK:WxH explicit display size")
	f.StringArrayVar(&o.NaluSizeLength, "nalu-size-length", nil, "TRACK:N HEVC NALU size field width")
	f.StringArrayVar(&o.Compression, "compression", nil, "TRACK:{zlib|none} content compression")
	f.StringArrayVar(&o.Cues, "cues", nil, "TRACK:{none|iframes|all|sparse} cue indexing policy")

	f.StringVar(&o.Chapters, "chapters", "", "chapter XML file")
	f.StringVar(&o.GlobalTags, "global-tags", "", "global tag XML file")
	f.StringArrayVar(&o.TrackTags, "track-tags", nil, "TRACK:FILE per-track tag XML file")
	f.StringArrayVar(&o.AttachFile, "attach-file", nil, "PATH[:MIMETYPE[:DESCRIPTION]] file to embed as an Attachment (§4.7 supplement)")

	f.StringVar(&o.Split, "split", "", "size:N | duration:T | parts:ranges | chapters:N,...")
	f.BoolVar(&o.Link, "link", false, "chain split output files via Prev/NextSegmentUID")
	f.StringVar(&o.SegmentUID, "segment-uid", "", "hex-encoded SegmentUID for the (first) output file")

	f.BoolVar(&o.KeepGoing, "keep-going", false, "skip a failing input track instead of aborting the whole run (§7)")
	f.StringVar(&o.JobFile, "job", "", "YAML batch file listing multiple mux jobs")
}

// trackValue splits a "TRACK:VALUE" flag argument, erroring if the track
// half doesn't parse as a track number.
func trackValue(arg string) (uint64, string, error) {
	parts := strings.SplitN(arg, ":", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("expected TRACK:VALUE, got %q", arg)
	}
	track, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid track number in %q: %w", arg, err)
	}
	return track, parts[1], nil
}

// trackValueMap applies trackValue to every entry in args, returning a
// map from track number to its value. A malformed entry is reported with
// its original text for the caller to log as a warning (§7: malformed
// per-track flags don't abort the whole run).
func trackValueMap(args []string, warn func(string, error)) map[uint64]string {
	out := make(map[uint64]string, len(args))
	for _, a := range args {
		track, val, err := trackValue(a)
		if err != nil {
			warn(a, err)
			continue
		}
		out[track] = val
	}
	return out
}

// trackSet parses a comma-separated list of track numbers (the --atracks/
// --vtracks/--stracks argument shape) into a membership set.
func trackSet(args []string) (map[uint64]bool, error) {
	set := map[uint64]bool{}
	for _, group := range args {
		for _, s := range strings.Split(group, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid track number %q: %w", s, err)
			}
			set[n] = true
		}
	}
	return set, nil
}
