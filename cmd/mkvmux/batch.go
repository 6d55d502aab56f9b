package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// batchEntry is one job in a --job YAML file, the supplemented batch
// mode: each entry takes the same shape as the flag surface, letting a
// single invocation drive several independent multiplex runs.
type batchEntry struct {
	Inputs []string `yaml:"inputs"`
	Output string   `yaml:"output"`

	ATracks []string `yaml:"atracks"`
	VTracks []string `yaml:"vtracks"`
	STracks []string `yaml:"stracks"`

	Language       []string `yaml:"language"`
	NaluSizeLength []string `yaml:"nalu_size_length"`
	Cues           []string `yaml:"cues"`
	DefaultDur     []string `yaml:"default_duration"`
	Sync           []string `yaml:"sync"`
	AspectRatio    []string `yaml:"aspect_ratio"`
	DisplayDims    []string `yaml:"display_dimensions"`
	TrackTags      []string `yaml:"track_tags"`

	Chapters   string   `yaml:"chapters"`
	GlobalTags string   `yaml:"global_tags"`
	AttachFile []string `yaml:"attach_file"`

	Split      string `yaml:"split"`
	Link       bool   `yaml:"link"`
	SegmentUID string `yaml:"segment_uid"`
	KeepGoing  bool   `yaml:"keep_going"`
}

type batchFile struct {
	Jobs []batchEntry `yaml:"jobs"`
}

// runBatch loads path as a YAML list of jobs and runs each in turn,
// continuing past a failed job (logged and reflected in exitCode) so one
// bad entry doesn't abort an entire overnight batch.
func runBatch(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading job file %s: %w", path, err)
	}

	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("parsing job file %s: %w", path, err)
	}
	if len(bf.Jobs) == 0 {
		return fmt.Errorf("job file %s lists no jobs", path)
	}

	var failed int
	for i, e := range bf.Jobs {
		j, err := jobFromBatchEntry(e)
		if err != nil {
			log.Error().Err(err).Int("job", i).Msg("invalid job entry")
			failed++
			continue
		}
		if err := runJob(j); err != nil {
			log.Error().Err(err).Int("job", i).Str("output", j.Output).Msg("job failed")
			failed++
		}
	}

	if failed == len(bf.Jobs) {
		return fmt.Errorf("all %d jobs in %s failed", len(bf.Jobs), path)
	}
	if failed > 0 {
		exitCode = 1
	}
	return nil
}

func jobFromBatchEntry(e batchEntry) (*Job, error) {
	if len(e.Inputs) == 0 {
		return nil, fmt.Errorf("job entry has no inputs")
	}
	if e.Output == "" {
		return nil, fmt.Errorf("job entry %v has no output", e.Inputs)
	}

	at, err := trackSet(e.ATracks)
	if err != nil {
		return nil, err
	}
	vt, err := trackSet(e.VTracks)
	if err != nil {
		return nil, err
	}
	st, err := trackSet(e.STracks)
	if err != nil {
		return nil, err
	}

	noop := func(string, error) {}
	return &Job{
		Inputs:         e.Inputs,
		Output:         e.Output,
		ATracks:        at,
		VTracks:        vt,
		STracks:        st,
		Language:       trackValueMap(e.Language, noop),
		NaluSizeLength: trackValueMap(e.NaluSizeLength, noop),
		Cues:           trackValueMap(e.Cues, noop),
		DefaultDur:     trackValueMap(e.DefaultDur, noop),
		Sync:           trackValueMap(e.Sync, noop),
		AspectRatio:    trackValueMap(e.AspectRatio, noop),
		DisplayDims:    trackValueMap(e.DisplayDims, noop),
		TrackTags:      trackValueMap(e.TrackTags, noop),
		Chapters:       e.Chapters,
		GlobalTags:     e.GlobalTags,
		AttachFile:     e.AttachFile,
		Split:          e.Split,
		Link:           e.Link,
		SegmentUID:     e.SegmentUID,
		KeepGoing:      e.KeepGoing,
	}, nil
}
