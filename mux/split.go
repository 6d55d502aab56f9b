package mux

import "github.com/go-mkvmux/mkvmux/packetizer"

// SplitMode selects the `--split` policy of §6/§2.3.
type SplitMode int

const (
	SplitNone SplitMode = iota
	SplitSize
	SplitDuration
	SplitParts
	SplitChapters
)

// PartRange is one `--split parts:ranges` timestamp window, in
// nanoseconds.
type PartRange struct {
	StartNS, EndNS int64
}

// SplitPolicy mirrors mkvmerge's `--split {size:N|duration:T|parts:
// ranges|chapters:N,...}` plus `--link`, per §6's CLI surface and §2.3's
// supplement. NewOutput is called to obtain the next file when a
// boundary is reached; nil disables rotation (single-file output) even
// if Mode is not SplitNone. With NewOutput nil, ready never reports a
// boundary, so no split points are detected or reported either.
type SplitPolicy struct {
	Mode SplitMode

	SizeBytes  int64
	DurationNS int64
	Parts      []PartRange

	// ChapterStartsNS holds every Nth chapter's start timestamp (already
	// filtered by the caller per `--split chapters:N,...`); a split
	// fires once a packet's timestamp reaches the next unconsumed entry.
	ChapterStartsNS []int64
	nextChapterIdx  int

	Link bool

	NewOutput func() (Output, error)
}

// ready reports whether enqueuing b should trigger a file rotation,
// evaluated against the assembler's running totals.
func (p *SplitPolicy) ready(a *Assembler, b packetizer.Block) bool {
	if p == nil || p.NewOutput == nil {
		return false
	}
	switch p.Mode {
	case SplitSize:
		return a.sched.Pos() >= p.SizeBytes
	case SplitDuration:
		return a.haveSplitStart && b.TimestampNS-a.splitStartNS >= p.DurationNS
	case SplitParts:
		for _, r := range p.Parts {
			if b.TimestampNS >= r.EndNS {
				return true
			}
		}
		return false
	case SplitChapters:
		if p.nextChapterIdx >= len(p.ChapterStartsNS) {
			return false
		}
		if b.TimestampNS >= p.ChapterStartsNS[p.nextChapterIdx] {
			p.nextChapterIdx++
			return true
		}
		return false
	default:
		return false
	}
}

// rotate finalises the current output file (without rewriting Cues/
// SeekHead/duration the way a cooperative Abort does not either, since a
// split boundary isn't an error), opens a fresh Assembler on the next
// Output, and replays the Segment-level masters and per-track cue
// policy onto it so the new file is playable on its own, per --link's
// "each part is a complete, independently openable Segment."
func (a *Assembler) rotate() error {
	if _, err := a.sched.Abort(); err != nil {
		return err
	}
	next, err := a.cfg.Split.NewOutput()
	if err != nil {
		return err
	}

	nextCfg := a.cfg
	nextCfg.SegmentUID = nil // New generates a fresh UID per file
	if a.cfg.Split.Link {
		nextCfg.PrevSegmentUID = a.cfg.SegmentUID
	}

	na, err := New(next, nextCfg, a.chaptersElem != nil, a.attachmentsElem != nil, a.userTagsElem != nil)
	if err != nil {
		return err
	}

	if err := na.WriteTracks(a.pzList); err != nil {
		return err
	}
	if a.chaptersElem != nil {
		if err := na.WriteChapters(a.chaptersElem); err != nil {
			return err
		}
	}
	if a.attachmentsElem != nil {
		if err := na.WriteAttachments(a.attachmentsElem); err != nil {
			return err
		}
	}
	if a.userTagsElem != nil {
		if err := na.WriteUserTags(a.userTagsElem); err != nil {
			return err
		}
	}
	na.StartClusters()
	for trackNumber, strategy := range a.cueStrategies {
		na.SetCueStrategy(trackNumber, strategy)
	}

	*a = *na
	return nil
}
