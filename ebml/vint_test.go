package ebml

import "testing"

func TestDecodeVint(t *testing.T) {
	testCases := []struct {
		name        string
		input       []byte
		keepMarker  bool
		expectedVal uint64
		expectErr   bool
	}{
		{"1-byte value", []byte{0x81}, false, 1, false},
		{"1-byte max value", []byte{0xFE}, false, 126, false},
		{"1-byte with length marker", []byte{0x81}, true, 0x81, false},
		{"2-byte value", []byte{0x40, 0x01}, false, 1, false},
		{"2-byte with length marker", []byte{0x50, 0x11}, true, 0x5011, false},
		{"4-byte value high", []byte{0x1A, 0xBC, 0xDE, 0xF0}, false, 0xABCDEF0, false},
		{"invalid vint zero byte", []byte{0x00}, false, 0, true},
		{"truncated 2-byte", []byte{0x40}, false, 0, true},
		{"empty buffer", []byte{}, false, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			val, _, _, err := DecodeVint(tc.input, tc.keepMarker)
			if tc.expectErr {
				if err == nil {
					t.Fatalf("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if val != tc.expectedVal {
				t.Errorf("got %d, want %d", val, tc.expectedVal)
			}
		})
	}
}

func TestDecodeVintUnknownSentinel(t *testing.T) {
	val, n, unknown, err := DecodeVint([]byte{0xFF}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || !unknown {
		t.Errorf("expected unknown size sentinel, got val=%d n=%d unknown=%v", val, n, unknown)
	}
}

func TestEncodeVintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 126, 127, 128, (1 << 14) - 2, (1 << 21) - 2}
	for _, v := range values {
		buf, err := EncodeVint(v, 0)
		if err != nil {
			t.Fatalf("EncodeVint(%d) failed: %v", v, err)
		}
		got, n, unknown, err := DecodeVint(buf, false)
		if err != nil {
			t.Fatalf("DecodeVint of encoded %d failed: %v", v, err)
		}
		if n != len(buf) || unknown {
			t.Fatalf("decode consumed %d of %d bytes, unknown=%v", n, len(buf), unknown)
		}
		if got != v {
			t.Errorf("round-trip %d -> %v -> %d", v, buf, got)
		}
	}
}

func TestEncodeVintTooLargeForWidth(t *testing.T) {
	if _, err := EncodeVint(1<<20, 1); err == nil {
		t.Fatalf("expected error encoding an oversized value into a 1-byte vint")
	}
}

func TestEncodeUnknownSizeDecodesAsUnknown(t *testing.T) {
	for n := 1; n <= 8; n++ {
		buf := EncodeUnknownSize(n)
		_, consumed, unknown, err := DecodeVint(buf, false)
		if err != nil {
			t.Fatalf("width %d: unexpected error: %v", n, err)
		}
		if consumed != n {
			t.Fatalf("width %d: consumed %d bytes", n, consumed)
		}
		if !unknown {
			t.Fatalf("width %d: expected unknown size sentinel", n)
		}
	}
}

func TestSignedVintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, -63, 1000, -1000}
	for _, v := range values {
		buf, err := EncodeSignedVint(v, 0)
		if err != nil {
			t.Fatalf("EncodeSignedVint(%d) failed: %v", v, err)
		}
		got, _, err := DecodeSignedVint(buf)
		if err != nil {
			t.Fatalf("DecodeSignedVint failed: %v", err)
		}
		if got != v {
			t.Errorf("signed round-trip %d -> %v -> %d", v, buf, got)
		}
	}
}
