package cluster

import (
	"bytes"
	"testing"

	"github.com/go-mkvmux/mkvmux/packetizer"
)

type recordingCueSink struct {
	cues []cueRecord
}

type cueRecord struct {
	trackNumber     uint64
	timestampNS     int64
	clusterPosition int64
}

func (s *recordingCueSink) AddCue(trackNumber uint64, timestampNS int64, clusterPosition int64) {
	s.cues = append(s.cues, cueRecord{trackNumber, timestampNS, clusterPosition})
}

func TestSchedulerClosesClusterOnFlush(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingCueSink{}
	cfg := DefaultConfig()
	s := New(&buf, 0, cfg, sink)

	if err := s.Enqueue(packetizer.Block{TrackNumber: 1, TimestampNS: 0, Data: []byte("a"), KeyFrame: true}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if err := s.Enqueue(packetizer.Block{TrackNumber: 1, TimestampNS: 40_000_000, Data: []byte("b")}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	if buf.Len() == 0 {
		t.Fatal("Flush() wrote no bytes")
	}
	if s.Pos() != int64(buf.Len()) {
		t.Errorf("Pos() = %d, want %d (bytes actually written)", s.Pos(), buf.Len())
	}
	if len(sink.cues) != 1 {
		t.Fatalf("expected 1 cue (default CueIframes, only the keyframe), got %d", len(sink.cues))
	}
	if sink.cues[0].timestampNS != 0 {
		t.Errorf("cue timestamp = %d, want 0", sink.cues[0].timestampNS)
	}
}

func TestSchedulerSplitsClusterOnSpanOverflow(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.MaxSpanNS = 10_000_000 // 10ms
	s := New(&buf, 0, cfg, &recordingCueSink{})

	if err := s.Enqueue(packetizer.Block{TrackNumber: 1, TimestampNS: 0, Data: []byte("a"), KeyFrame: true}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	posAfterFirst := buf.Len()

	if err := s.Enqueue(packetizer.Block{TrackNumber: 1, TimestampNS: 50_000_000, Data: []byte("b"), KeyFrame: true}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if buf.Len() == posAfterFirst {
		t.Fatal("expected the span overflow to close and render the first cluster before the second Enqueue() returned")
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
}

func TestSchedulerCueNoneSuppressesCues(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingCueSink{}
	s := New(&buf, 0, DefaultConfig(), sink)
	s.SetCueStrategy(1, CueNone)

	if err := s.Enqueue(packetizer.Block{TrackNumber: 1, TimestampNS: 0, Data: []byte("a"), KeyFrame: true}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if len(sink.cues) != 0 {
		t.Errorf("expected no cues under CueNone, got %d", len(sink.cues))
	}
}

func TestSchedulerRejectsUnresolvedReference(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, 0, DefaultConfig(), &recordingCueSink{})

	err := s.Enqueue(packetizer.Block{
		TrackNumber: 1,
		TimestampNS: 40_000_000,
		Data:        []byte("p"),
		RefHintsNS:  []int64{0}, // no frame at timestamp 0 was ever enqueued
	})
	if err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if err := s.Flush(); err == nil {
		t.Fatal("expected Flush() to fail resolving the dangling reference")
	}
}

func TestSchedulerResolvesReferenceAcrossBFrame(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, 0, DefaultConfig(), &recordingCueSink{})

	// I(ts=0) -> P(ts=80, refs I) -> B(ts=40, refs both I and P), all
	// arriving in decode order within the same cluster.
	if err := s.Enqueue(packetizer.Block{TrackNumber: 1, TimestampNS: 0, Data: []byte("I"), KeyFrame: true}); err != nil {
		t.Fatalf("Enqueue(I) failed: %v", err)
	}
	if err := s.Enqueue(packetizer.Block{
		TrackNumber: 1, TimestampNS: 80_000_000, Data: []byte("P"), RefHintsNS: []int64{0},
	}); err != nil {
		t.Fatalf("Enqueue(P) failed: %v", err)
	}
	if err := s.Enqueue(packetizer.Block{
		TrackNumber: 1, TimestampNS: 40_000_000, Data: []byte("B"), RefHintsNS: []int64{0, 80_000_000},
	}); err != nil {
		t.Fatalf("Enqueue(B) failed: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
}

func TestSchedulerAbortReportsTruncationOffset(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, 100, DefaultConfig(), &recordingCueSink{})

	if err := s.Enqueue(packetizer.Block{TrackNumber: 1, TimestampNS: 0, Data: []byte("a"), KeyFrame: true}); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	truncateAt, err := s.Abort()
	if err != nil {
		t.Fatalf("Abort() failed: %v", err)
	}
	if truncateAt != 100+int64(buf.Len()) {
		t.Errorf("truncateAt = %d, want %d", truncateAt, 100+int64(buf.Len()))
	}
}
