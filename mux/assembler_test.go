package mux

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-mkvmux/mkvmux/cluster"
	"github.com/go-mkvmux/mkvmux/packetizer"
)

// memOutput satisfies Output (io.Writer + io.WriterAt) over an in-memory
// buffer, growing it as writes land past the current length.
type memOutput struct {
	data []byte
}

func (m *memOutput) Write(p []byte) (int, error) {
	m.data = append(m.data, p...)
	return len(p), nil
}

func (m *memOutput) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func newPassthroughTrack(t *testing.T, trackNumber uint64, sink packetizer.Sink) *packetizer.Passthrough {
	t.Helper()
	return packetizer.NewPassthrough(packetizer.TrackParams{
		TrackNumber: trackNumber,
		TrackUID:    trackNumber,
		TrackType:   2,
		CodecID:     "A_MS/ACM",
	}, sink)
}

func TestAssemblerFullLifecycleProducesValidSegment(t *testing.T) {
	out := &memOutput{}
	cfg := DefaultConfig()
	asm, err := New(out, cfg, false, false, false)
	require.NoError(t, err)

	pz := newPassthroughTrack(t, 1, asm)
	require.NoError(t, asm.WriteTracks([]packetizer.Packetizer{pz}))
	asm.StartClusters()

	_, err = pz.Process(packetizer.Packet{Data: []byte("frame-1"), TimestampNS: 0, DurationNS: 20_000_000, KeyFrame: true})
	require.NoError(t, err)
	_, err = pz.Process(packetizer.Packet{Data: []byte("frame-2"), TimestampNS: 20_000_000, DurationNS: 20_000_000, KeyFrame: true})
	require.NoError(t, err)

	require.NoError(t, asm.Finalize())
	require.NotEmpty(t, out.data)

	// The EBML header's DocType must appear near the front of the file.
	require.True(t, bytes.Contains(out.data[:64], []byte("matroska")))
}

func TestAssemblerAbortReportsTruncationOffset(t *testing.T) {
	out := &memOutput{}
	asm, err := New(out, DefaultConfig(), false, false, false)
	require.NoError(t, err)

	pz := newPassthroughTrack(t, 1, asm)
	require.NoError(t, asm.WriteTracks([]packetizer.Packetizer{pz}))
	asm.StartClusters()

	_, err = pz.Process(packetizer.Packet{Data: []byte("frame"), TimestampNS: 0, DurationNS: 20_000_000, KeyFrame: true})
	require.NoError(t, err)

	truncateAt, err := asm.Abort()
	require.NoError(t, err)
	require.Equal(t, int64(len(out.data)), truncateAt)
}

func TestSplitSizePolicyRotatesOutputFiles(t *testing.T) {
	dir := t.TempDir()
	outPath := dir + "/out.mkv"

	first, err := os.Create(outPath)
	require.NoError(t, err)

	opened := []*os.File{first}
	cfg := DefaultConfig()
	cfg.Split = SplitPolicy{
		Mode:      SplitSize,
		SizeBytes: 1, // every file's headers already exceed 1 byte, so each Enqueue rotates
		NewOutput: func() (Output, error) {
			f, err := os.CreateTemp(dir, "part-*.mkv")
			if err != nil {
				return nil, err
			}
			opened = append(opened, f)
			return f, nil
		},
	}

	asm, err := New(first, cfg, false, false, false)
	require.NoError(t, err)

	pz := newPassthroughTrack(t, 1, asm)
	require.NoError(t, asm.WriteTracks([]packetizer.Packetizer{pz}))
	asm.StartClusters()
	asm.SetCueStrategy(1, cluster.CueNone) // exercise cue-policy carryover across rotation

	_, err = pz.Process(packetizer.Packet{Data: []byte("frame-1"), TimestampNS: 0, DurationNS: 20_000_000, KeyFrame: true})
	require.NoError(t, err)
	_, err = pz.Process(packetizer.Packet{Data: []byte("frame-2"), TimestampNS: 20_000_000, DurationNS: 20_000_000, KeyFrame: true})
	require.NoError(t, err)

	require.NoError(t, asm.Finalize())
	require.Greater(t, len(opened), 1, "expected at least one rotation to a new output file")

	for _, f := range opened {
		require.NoError(t, f.Close())
	}
}
