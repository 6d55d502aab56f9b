package ebml

import (
	"bytes"
	"testing"
)

func TestRenderReadRoundTrip(t *testing.T) {
	info := NewMaster(DescInfo)

	scale := NewLeaf(DescTimestampScale)
	scale.SetUint(1000000)
	info.Push(scale)

	muxApp := NewLeaf(DescMuxingApp)
	muxApp.SetString("mkvmux")
	info.Push(muxApp)

	writeApp := NewLeaf(DescWritingApp)
	writeApp.SetString("mkvmux")
	info.Push(writeApp)

	title := NewLeaf(DescTitle)
	title.SetString("example")
	info.Push(title)

	info.UpdateSize()

	var buf bytes.Buffer
	if _, err := info.Render(&buf, 0); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}

	rd := NewReader(&buf)
	got, err := rd.ReadElement(CtxSegment)
	if err != nil {
		t.Fatalf("ReadElement() failed: %v", err)
	}

	if !info.Equal(got) {
		t.Fatalf("round-tripped element not Equal to original:\norig=%+v\ngot=%+v", info, got)
	}
}

func TestUpdateSizeAccountsForChildHeaders(t *testing.T) {
	info := NewMaster(DescInfo)
	muxApp := NewLeaf(DescMuxingApp)
	muxApp.SetString("abcd")
	info.Push(muxApp)

	size := info.UpdateSize()
	// MuxingApp leaf: 2-byte ID (0x4D80) + 1-byte size VINT + 4-byte payload = 7.
	if size != 7 {
		t.Errorf("UpdateSize() = %d, want 7", size)
	}
}

func TestOverwriteHeadRejectsTooSmallReservation(t *testing.T) {
	cluster := NewMaster(DescCluster)
	cluster.ReserveSize(2)
	cluster.headPos = 0

	small := NewLeaf(DescSimpleBlock)
	small.SetBinary([]byte{1, 2, 3})
	cluster.Push(small)
	cluster.UpdateSize()

	var buf bytes.Buffer
	if _, err := cluster.Render(&buf, 0); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}

	w := &fakeWriterAt{buf: append(buf.Bytes(), make([]byte, 16)...)}
	cluster.dataSize = unknownSentinel(2) // simulate growth past the reserved 2-byte width
	if err := cluster.OverwriteHead(w); err == nil {
		t.Fatalf("expected ErrReservedSpaceTooSmall, got nil")
	}

	cluster.dataSize = 3
	if err := cluster.OverwriteHead(w); err != nil {
		t.Fatalf("OverwriteHead with a value that fits should succeed, got %v", err)
	}
}

type fakeWriterAt struct{ buf []byte }

func (w *fakeWriterAt) WriteAt(p []byte, off int64) (int, error) {
	copy(w.buf[off:], p)
	return len(p), nil
}
