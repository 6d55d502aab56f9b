package packetizer

import "testing"

func TestVC1EmitsOneFramePerMarker(t *testing.T) {
	sink := &recordingSink{}
	p := NewVC1(TrackParams{TrackNumber: 1}, sink)

	var stream []byte
	stream = append(stream, 0, 0, 1, 0x0D, 0xAA) // frame packet 1
	stream = append(stream, 0, 0, 1, 0x0D, 0xBB) // frame packet 2
	stream = append(stream, 0, 0, 1, 0x0D)       // trailing marker

	if _, err := p.Process(Packet{Data: stream}); err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if _, err := p.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	if len(sink.blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(sink.blocks))
	}
	for i, b := range sink.blocks {
		if len(b.Data) == 0 {
			t.Errorf("block %d carries no payload bytes", i)
		}
		if !b.KeyFrame {
			t.Errorf("block %d should be marked a keyframe", i)
		}
	}
}

func TestVC1ReferencesPreviousFrameOnceNonKeyframe(t *testing.T) {
	sink := &recordingSink{}
	p := NewVC1(TrackParams{TrackNumber: 1}, sink)

	if err := p.emitVC1Frame(0, 33, []byte("a"), true); err != nil {
		t.Fatalf("emitVC1Frame() failed: %v", err)
	}
	if err := p.emitVC1Frame(33, 33, []byte("b"), false); err != nil {
		t.Fatalf("emitVC1Frame() failed: %v", err)
	}
	if len(sink.blocks[1].RefHintsNS) != 1 || sink.blocks[1].RefHintsNS[0] != 0 {
		t.Errorf("second block RefHintsNS = %v, want [0]", sink.blocks[1].RefHintsNS)
	}
}
