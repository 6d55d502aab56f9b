package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-mkvmux/mkvmux/packetizer"
)

// applyTrackOptions applies the per-track CLI knobs (--sync,
// --default-duration, --aspect-ratio, --display-dimensions) to the
// matching packetizer in pzList, keyed by output track number. Malformed
// values are reported as warnings rather than aborting the run (§7).
func applyTrackOptions(pzList []packetizer.Packetizer, j *Job, w *warnings) {
	byTrack := make(map[uint64]packetizer.Packetizer, len(pzList))
	for _, pz := range pzList {
		byTrack[pz.TrackParams().TrackNumber] = pz
	}

	for track, s := range j.Sync {
		pz, ok := byTrack[track]
		if !ok {
			continue
		}
		disp, linear, err := parseSync(s)
		if err != nil {
			w.add("--sync %d:%s: %v", track, s, err)
			continue
		}
		pz.SetSync(disp, linear)
	}

	for track, s := range j.DefaultDur {
		pz, ok := byTrack[track]
		if !ok {
			continue
		}
		ns, err := parseDefaultDuration(s)
		if err != nil {
			w.add("--default-duration %d:%s: %v", track, s, err)
			continue
		}
		pz.SetDefaultDuration(ns)
	}

	for track, s := range j.DisplayDims {
		pz, ok := byTrack[track]
		if !ok {
			continue
		}
		width, height, err := parseDisplayDims(s)
		if err != nil {
			w.add("--display-dimensions %d:%s: %v", track, s, err)
			continue
		}
		pz.SetDisplayDimensions(width, height)
	}

	for track, s := range j.AspectRatio {
		pz, ok := byTrack[track]
		if !ok {
			continue
		}
		if _, already := j.DisplayDims[track]; already {
			continue // --display-dimensions takes precedence when both given
		}
		width, height, err := displayDimsFromAspect(s, pz.TrackParams().Height)
		if err != nil {
			w.add("--aspect-ratio %d:%s: %v", track, s, err)
			continue
		}
		pz.SetDisplayDimensions(width, height)
	}
}

// parseSync parses the `--sync TRACK:D[,L[/F]]` argument value (the part
// after the track number): D is a millisecond displacement applied to
// every outgoing timestamp, and the optional L[/F] is a linear duration
// correction factor (default F=1), per §6/§4.5.
func parseSync(s string) (displacementNS int64, linear float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	d, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid displacement %q: %w", parts[0], err)
	}
	displacementNS = int64(d * 1_000_000)
	if len(parts) == 1 {
		return displacementNS, 0, nil
	}

	lf := strings.SplitN(parts[1], "/", 2)
	num, err := strconv.ParseFloat(strings.TrimSpace(lf[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid linear factor %q: %w", lf[0], err)
	}
	den := 1.0
	if len(lf) == 2 {
		den, err = strconv.ParseFloat(strings.TrimSpace(lf[1]), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid linear factor denominator %q: %w", lf[1], err)
		}
	}
	if den == 0 {
		return 0, 0, fmt.Errorf("linear factor denominator is zero")
	}
	return displacementNS, num / den, nil
}

// parseDefaultDuration parses the `--default-duration TRACK:N[i|p|fps]`
// value into nanoseconds (§6). A bare number is taken as already being
// nanoseconds; a trailing "fps" or "p" treats N as a frame rate; a
// trailing "i" treats N as a field rate, i.e. half the frame rate.
func parseDefaultDuration(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, "fps"):
		return durationFromRate(strings.TrimSuffix(s, "fps"), 1)
	case strings.HasSuffix(s, "p"):
		return durationFromRate(strings.TrimSuffix(s, "p"), 1)
	case strings.HasSuffix(s, "i"):
		return durationFromRate(strings.TrimSuffix(s, "i"), 2)
	default:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid default duration %q: %w", s, err)
		}
		return n, nil
	}
}

func durationFromRate(numStr string, fieldsPerFrame int) (uint64, error) {
	rate, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q", numStr)
	}
	return uint64(float64(fieldsPerFrame) * 1_000_000_000 / rate), nil
}

// parseDisplayDims parses the `--display-dimensions TRACK:WxH` value.
func parseDisplayDims(s string) (w, h uint64, err error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WxH, got %q", s)
	}
	w, err = strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width %q: %w", parts[0], err)
	}
	h, err = strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height %q: %w", parts[1], err)
	}
	return w, h, nil
}

// displayDimsFromAspect derives DisplayWidth/DisplayHeight from a
// `--aspect-ratio TRACK:W/H` value and the track's coded pixel height,
// mirroring mkvmerge's own "keep coded height, scale width" convention.
func displayDimsFromAspect(s string, codedHeight uint64) (w, h uint64, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected W/H, got %q", s)
	}
	arW, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid aspect ratio width %q: %w", parts[0], err)
	}
	arH, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || arH == 0 {
		return 0, 0, fmt.Errorf("invalid aspect ratio height %q: %w", parts[1], err)
	}
	h = codedHeight
	w = uint64(float64(codedHeight) * arW / arH)
	return w, h, nil
}
