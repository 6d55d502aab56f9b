package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-mkvmux/mkvmux/cluster"
	"github.com/go-mkvmux/mkvmux/ebml"
	"github.com/go-mkvmux/mkvmux/mux"
	"github.com/go-mkvmux/mkvmux/packetizer"
	mkv "github.com/go-mkvmux/mkvmux/reader/mkv"
	"github.com/go-mkvmux/mkvmux/xmlmap"
)

// inputSource is the common shape of *mkv.Source (container demux) and
// *rawSource (bare elementary stream), letting runJob's copy loop treat
// every input uniformly regardless of which one produced it.
type inputSource interface {
	Packetizers() []packetizer.Packetizer
	CopyAll() error
}

// Job is one multiplex run, independent of whether it came from direct
// flags or one entry of a --job batch file.
type Job struct {
	Inputs []string
	Output string

	ATracks map[uint64]bool
	VTracks map[uint64]bool
	STracks map[uint64]bool

	Language       map[uint64]string
	NaluSizeLength map[uint64]string
	Cues           map[uint64]string
	DefaultDur     map[uint64]string
	Sync           map[uint64]string
	AspectRatio    map[uint64]string
	DisplayDims    map[uint64]string

	Chapters   string
	GlobalTags string
	TrackTags  map[uint64]string
	AttachFile []string

	Split      string
	Link       bool
	SegmentUID string

	KeepGoing bool
}

// warnings accumulates non-fatal problems for a run, driving the §7
// exit-code split between "clean" (0), "completed with warnings" (1)
// and "aborted" (2, which is instead reported as an error return).
type warnings struct {
	msgs []string
}

func (w *warnings) add(format string, args ...any) {
	w.msgs = append(w.msgs, fmt.Sprintf(format, args...))
}

func jobFromOptions(o *cliOptions) (*Job, error) {
	if len(o.Inputs) == 0 {
		return nil, fmt.Errorf("no input files given")
	}
	if o.Output == "" {
		return nil, fmt.Errorf("--output is required")
	}

	var w warnings
	at, err := trackSet(o.ATracks)
	if err != nil {
		return nil, err
	}
	vt, err := trackSet(o.VTracks)
	if err != nil {
		return nil, err
	}
	st, err := trackSet(o.STracks)
	if err != nil {
		return nil, err
	}

	j := &Job{
		Inputs:         o.Inputs,
		Output:         o.Output,
		ATracks:        at,
		VTracks:        vt,
		STracks:        st,
		Language:       trackValueMap(o.Language, func(a string, e error) { w.add("--language %s: %v", a, e) }),
		NaluSizeLength: trackValueMap(o.NaluSizeLength, func(a string, e error) { w.add("--nalu-size-length %s: %v", a, e) }),
		Cues:           trackValueMap(o.Cues, func(a string, e error) { w.add("--cues %s: %v", a, e) }),
		DefaultDur:     trackValueMap(o.DefaultDur, func(a string, e error) { w.add("--default-duration %s: %v", a, e) }),
		Sync:           trackValueMap(o.Sync, func(a string, e error) { w.add("--sync %s: %v", a, e) }),
		AspectRatio:    trackValueMap(o.AspectRatio, func(a string, e error) { w.add("--aspect-ratio %s: %v", a, e) }),
		DisplayDims:    trackValueMap(o.DisplayDims, func(a string, e error) { w.add("--display-dimensions %s: %v", a, e) }),
		TrackTags:      trackValueMap(o.TrackTags, func(a string, e error) { w.add("--track-tags %s: %v", a, e) }),
		Chapters:       o.Chapters,
		GlobalTags:     o.GlobalTags,
		AttachFile:     o.AttachFile,
		Split:          o.Split,
		Link:           o.Link,
		SegmentUID:     o.SegmentUID,
		KeepGoing:      o.KeepGoing,
	}
	for _, m := range w.msgs {
		log.Warn().Msg(m)
	}
	return j, nil
}

// trackKeep builds the keep predicate OpenSource expects from a job's
// track-selection sets: an empty set for a given type means "keep every
// track of that type", matching mkvmerge's default of including
// everything not explicitly excluded.
func trackKeep(j *Job) func(*mkv.TrackInfo) bool {
	return func(t *mkv.TrackInfo) bool {
		switch t.Type {
		case mkv.TypeAudio:
			return len(j.ATracks) == 0 || j.ATracks[uint64(t.Number)]
		case mkv.TypeVideo:
			return len(j.VTracks) == 0 || j.VTracks[uint64(t.Number)]
		case mkv.TypeSubtitle:
			return len(j.STracks) == 0 || j.STracks[uint64(t.Number)]
		default:
			return true
		}
	}
}

func cueStrategyFor(s string) (cluster.CueStrategy, error) {
	switch strings.ToLower(s) {
	case "", "iframes":
		return cluster.CueIframes, nil
	case "none":
		return cluster.CueNone, nil
	case "all":
		return cluster.CueAll, nil
	case "sparse":
		return cluster.CueSparse, nil
	default:
		return cluster.CueIframes, fmt.Errorf("unknown cue strategy %q", s)
	}
}

// runJob opens every input, builds the output Assembler, copies every
// selected track's packets through, and finalises the file. It returns
// an error only for conditions severe enough to abort (§7's exit code
// 2); malformed per-track flags and other recoverable problems are
// logged as warnings and the run proceeds, setting the package-level
// exitCode to 1.
func runJob(j *Job) error {
	var w warnings

	segUID, err := parseSegmentUID(j.SegmentUID)
	if err != nil {
		return err
	}

	out, err := os.Create(j.Output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", j.Output, err)
	}
	defer out.Close()

	chEl, err := loadChapters(j.Chapters)
	if err != nil {
		return err
	}
	tagsEl, err := loadGlobalTags(j.GlobalTags)
	if err != nil {
		return err
	}
	attachEl, err := buildAttachments(j.AttachFile)
	if err != nil {
		return err
	}

	cfg := mux.DefaultConfig()
	cfg.SegmentUID = segUID
	split, err := buildSplitPolicy(j)
	if err != nil {
		return err
	}
	if split.Mode == mux.SplitChapters {
		starts, err := chapterSplitStarts(chEl, j.Split)
		if err != nil {
			return fmt.Errorf("--split %s: %w", j.Split, err)
		}
		split.ChapterStartsNS = starts
	}
	cfg.Split = split

	asm, err := mux.New(out, cfg, chEl != nil, attachEl != nil, tagsEl != nil)
	if err != nil {
		return err
	}

	var sources []inputSource
	nextTrack := uint64(1)
	for _, in := range j.Inputs {
		if kind := detectRawKind(in); kind != rawNone {
			lang := j.Language[nextTrack]
			nalu := 4
			if s, ok := j.NaluSizeLength[nextTrack]; ok {
				if n, perr := strconv.Atoi(s); perr == nil && n > 0 {
					nalu = n
				} else {
					w.add("--nalu-size-length %d: %v", nextTrack, perr)
				}
			}
			src, err := openRawSource(in, kind, nextTrack, lang, nalu, asm)
			if err != nil {
				if j.KeepGoing {
					w.add("skipping %s: %v", in, err)
					continue
				}
				return fmt.Errorf("opening raw stream %s: %w", in, err)
			}
			sources = append(sources, src)
			nextTrack++
			continue
		}

		f, err := os.Open(in)
		if err != nil {
			if j.KeepGoing {
				w.add("skipping %s: %v", in, err)
				continue
			}
			return fmt.Errorf("opening %s: %w", in, err)
		}

		src, err := mkv.OpenSource(f, asm, trackKeep(j), nextTrack)
		if err != nil {
			f.Close()
			if j.KeepGoing {
				w.add("skipping %s: %v", in, err)
				continue
			}
			return fmt.Errorf("demuxing %s: %w", in, err)
		}
		defer f.Close()
		sources = append(sources, src)
		nextTrack += uint64(len(src.Packetizers()))
	}
	if len(sources) == 0 {
		return fmt.Errorf("no input produced any track")
	}

	var pzList []packetizer.Packetizer
	for _, src := range sources {
		pzList = append(pzList, src.Packetizers()...)
	}
	applyTrackOptions(pzList, j, &w)
	if err := asm.WriteTracks(pzList); err != nil {
		return err
	}
	if chEl != nil {
		if err := asm.WriteChapters(chEl); err != nil {
			return err
		}
	}
	if attachEl != nil {
		if err := asm.WriteAttachments(attachEl); err != nil {
			return err
		}
	}
	if tagsEl != nil {
		if err := asm.WriteUserTags(tagsEl); err != nil {
			return err
		}
	}

	asm.StartClusters()
	for trackNum, s := range j.Cues {
		strat, err := cueStrategyFor(s)
		if err != nil {
			w.add("%v", err)
			continue
		}
		asm.SetCueStrategy(trackNum, strat)
	}

	for _, src := range sources {
		if err := src.CopyAll(); err != nil {
			if j.KeepGoing {
				w.add("aborting track after error: %v", err)
				continue
			}
			return fmt.Errorf("copying packets: %w", err)
		}
	}

	if err := asm.Finalize(); err != nil {
		return fmt.Errorf("finalizing %s: %w", j.Output, err)
	}

	for _, m := range w.msgs {
		log.Warn().Msg(m)
	}
	if len(w.msgs) > 0 {
		exitCode = 1
	}
	return nil
}

func parseSegmentUID(hexStr string) ([]byte, error) {
	if hexStr == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("--segment-uid: %w", err)
	}
	if len(b) != 16 {
		return nil, fmt.Errorf("--segment-uid: expected 16 bytes, got %d", len(b))
	}
	return b, nil
}

func loadChapters(path string) (*ebml.Element, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return xmlmap.DecodeChapters(f, dirOf(path))
}

func loadGlobalTags(path string) (*ebml.Element, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return xmlmap.DecodeTags(f, dirOf(path))
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}

func buildSplitPolicy(j *Job) (mux.SplitPolicy, error) {
	if j.Split == "" {
		return mux.SplitPolicy{}, nil
	}
	parts := strings.SplitN(j.Split, ":", 2)
	if len(parts) != 2 {
		return mux.SplitPolicy{}, fmt.Errorf("--split: expected kind:value, got %q", j.Split)
	}
	policy := mux.SplitPolicy{Link: j.Link, NewOutput: nextSplitOutput(j.Output)}
	switch parts[0] {
	case "size":
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return mux.SplitPolicy{}, fmt.Errorf("--split size: %w", err)
		}
		policy.Mode = mux.SplitSize
		policy.SizeBytes = n
	case "duration":
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return mux.SplitPolicy{}, fmt.Errorf("--split duration: %w", err)
		}
		policy.Mode = mux.SplitDuration
		policy.DurationNS = n * 1_000_000_000
	case "parts":
		ranges, err := parsePartRanges(parts[1])
		if err != nil {
			return mux.SplitPolicy{}, err
		}
		policy.Mode = mux.SplitParts
		policy.Parts = ranges
	case "chapters":
		policy.Mode = mux.SplitChapters
	default:
		return mux.SplitPolicy{}, fmt.Errorf("--split: unknown kind %q", parts[0])
	}
	return policy, nil
}

// chapterSplitStarts resolves `--split chapters:N,...` (or
// `chapters:all`) against chEl's already-decoded Chapters tree into the
// ordered list of ChapterTimeStart values a split should fire at. N is
// 1-indexed over the top-level ChapterAtoms of every EditionEntry, in
// document order; nested ChapterAtoms are not counted.
func chapterSplitStarts(chEl *ebml.Element, spec string) ([]int64, error) {
	if chEl == nil {
		return nil, fmt.Errorf("no --chapters file given")
	}
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected chapters:N,... or chapters:all")
	}

	var allStarts []int64
	for _, edition := range chEl.GetAllChildren(ebml.IDEditionEntry) {
		for _, atom := range edition.GetAllChildren(ebml.IDChapterAtom) {
			ts := atom.GetChild(ebml.IDChapterTimeStart)
			if ts == nil {
				continue
			}
			v, err := ts.AsUint()
			if err != nil {
				continue
			}
			allStarts = append(allStarts, int64(v))
		}
	}

	if strings.TrimSpace(parts[1]) == "all" {
		return allStarts, nil
	}

	var out []int64
	for _, numStr := range strings.Split(parts[1], ",") {
		n, err := strconv.Atoi(strings.TrimSpace(numStr))
		if err != nil || n < 1 || n > len(allStarts) {
			return nil, fmt.Errorf("chapter number %q out of range (have %d chapters)", numStr, len(allStarts))
		}
		out = append(out, allStarts[n-1])
	}
	return out, nil
}

func parsePartRanges(s string) ([]mux.PartRange, error) {
	var out []mux.PartRange
	for _, seg := range strings.Split(s, ",") {
		bounds := strings.SplitN(seg, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("--split parts: expected start-end, got %q", seg)
		}
		start, err := strconv.ParseInt(bounds[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--split parts: %w", err)
		}
		end, err := strconv.ParseInt(bounds[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--split parts: %w", err)
		}
		out = append(out, mux.PartRange{StartNS: start * 1_000_000_000, EndNS: end * 1_000_000_000})
	}
	return out, nil
}

// nextSplitOutput returns a NewOutput func that appends a running
// "-NNN" suffix before base's extension, mkvmerge's own convention for
// --split-generated file names.
func nextSplitOutput(base string) func() (mux.Output, error) {
	n := 1
	return func() (mux.Output, error) {
		n++
		ext := ""
		stem := base
		if i := strings.LastIndexByte(base, '.'); i > 0 {
			ext = base[i:]
			stem = base[:i]
		}
		name := fmt.Sprintf("%s-%03d%s", stem, n, ext)
		return os.Create(name)
	}
}
