package dts

import "github.com/go-mkvmux/mkvmux/muxerr"

// Repack14To16 converts DVD 14-bit packed DTS into the 16-bit form this
// package's Parser expects, per §4.4.8: "repack 8 input bytes into 7
// output bytes (discard the unused 2 MSBs of each 16-bit word).
// Endianness auto-detected by trying both and scanning for the sync
// word."
func Repack14To16(in []byte) ([]byte, error) {
	if le := repack14To16(in, false); containsSync(le) {
		return le, nil
	}
	if be := repack14To16(in, true); containsSync(be) {
		return be, nil
	}
	return nil, muxerr.New(muxerr.KindMalformedInput, "dts: 14-bit stream has no recognizable sync word in either byte order")
}

func containsSync(b []byte) bool {
	for i := 0; i+3 < len(b); i++ {
		if readU32BE(b[i:]) == coreSync {
			return true
		}
	}
	return false
}

// repack14To16 unpacks groups of 4x14-bit words (stored big- or
// little-endian per 16-bit word) into 16-bit-aligned bytes, discarding
// the top 2 bits of each 16-bit container.
func repack14To16(in []byte, swapBytes bool) []byte {
	words := make([]uint16, 0, len(in)/2)
	for i := 0; i+1 < len(in); i += 2 {
		a, b := in[i], in[i+1]
		if swapBytes {
			a, b = b, a
		}
		words = append(words, uint16(a)<<8|uint16(b))
	}

	var bits []byte
	for _, w := range words {
		v := w & 0x3FFF
		for shift := 13; shift >= 0; shift-- {
			bits = append(bits, byte((v>>uint(shift))&1))
		}
	}

	out := make([]byte, 0, len(bits)/8)
	for i := 0; i+7 < len(bits); i += 8 {
		var b byte
		for k := 0; k < 8; k++ {
			b = b<<1 | bits[i+k]
		}
		out = append(out, b)
	}
	return out
}
