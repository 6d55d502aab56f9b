package ebml

import (
	"github.com/go-mkvmux/mkvmux/muxerr"
)

// maxVintWidth is the widest VINT this encoder/decoder supports, per §3
// "Unsigned payloads 0..2^56-2 encoded in 1-8 bytes".
const maxVintWidth = 8

// vintLengthMasks[n-1] is the length-marker bit for an n-byte VINT.
var vintLengthMasks = [maxVintWidth]byte{
	0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01,
}

// unknownSentinel returns the "all value bits set" sentinel for an n-byte
// VINT, the reserved value meaning "unknown size" (§3). Only master
// elements may legally carry it.
func unknownSentinel(n int) uint64 {
	// n*7 value bits for a size VINT (the length-marker bit is excluded).
	return (uint64(1) << uint(n*7)) - 1
}

// vintWidth returns the number of bytes (1..8) needed to hold the marker
// bit plus v's value bits, i.e. the minimum VINT width that can represent
// v without colliding with the unknown-size sentinel of that width.
func vintWidth(v uint64) int {
	for n := 1; n <= maxVintWidth; n++ {
		if v < unknownSentinel(n) {
			return n
		}
	}
	return maxVintWidth
}

// readVintByte0 classifies the first byte of a VINT: the number of bytes
// the VINT occupies (1..8), and the mask needed to strip the length marker.
// Returns n=0 if the byte cannot start a legal VINT (all bits zero).
func readVintByte0(b byte) (n int, marker byte) {
	mask := byte(0x80)
	for i := 0; i < maxVintWidth; i++ {
		if b&mask != 0 {
			return i + 1, mask
		}
		mask >>= 1
	}
	return 0, 0
}

// DecodeVint decodes a VINT from buf, returning the value (with the length
// marker stripped when keepMarker is false, kept when true — IDs keep it,
// sizes don't, per §3), the number of bytes consumed, and whether the value
// is the "unknown size" sentinel for its width.
//
// Errors: muxerr.KindMalformedInput (VintWidthOverflow — leading byte zero),
// muxerr.KindUnexpectedEOF (fewer than n bytes available).
func DecodeVint(buf []byte, keepMarker bool) (value uint64, consumed int, unknown bool, err error) {
	if len(buf) == 0 {
		return 0, 0, false, muxerr.New(muxerr.KindUnexpectedEOF, "vint: no bytes available")
	}
	n, marker := readVintByte0(buf[0])
	if n == 0 {
		return 0, 0, false, muxerr.New(muxerr.KindMalformedInput, "vint: leading byte is zero (width overflow)")
	}
	if len(buf) < n {
		return 0, 0, false, muxerr.New(muxerr.KindUnexpectedEOF, "vint: truncated")
	}

	var result uint64
	if keepMarker {
		result = uint64(buf[0])
	} else {
		result = uint64(buf[0] &^ marker)
	}
	for i := 1; i < n; i++ {
		result = (result << 8) | uint64(buf[i])
	}

	if !keepMarker {
		valueBits := result
		unknown = valueBits == unknownSentinel(n)
	}
	return result, n, unknown, nil
}

// EncodeVint encodes v as an n-byte VINT (the marker bit set automatically).
// If n is 0, the minimum width for v is chosen. EncodeVint fails if v does
// not fit in the requested (or minimum) width, i.e. v >= that width's
// unknown-size sentinel — this mirrors the write-side contract of §4.1
// ("Fail if the value is larger than the sentinel for the chosen width").
func EncodeVint(v uint64, n int) ([]byte, error) {
	if n == 0 {
		n = vintWidth(v)
	}
	if n < 1 || n > maxVintWidth {
		return nil, muxerr.New(muxerr.KindInternal, "vint: width out of range")
	}
	if v >= unknownSentinel(n) {
		return nil, muxerr.New(muxerr.KindInternal, "vint: value too large for requested width")
	}

	buf := make([]byte, n)
	for i := n - 1; i >= 1; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	buf[0] = byte(v) | vintLengthMasks[n-1]
	return buf, nil
}

// EncodeUnknownSize encodes the "unknown size" sentinel in an n-byte VINT
// (default width 1, i.e. a single 0xFF byte, matching the common on-disk
// convention for streamed Segment/Cluster sizes).
func EncodeUnknownSize(n int) []byte {
	if n < 1 || n > maxVintWidth {
		n = 1
	}
	buf := make([]byte, n)
	buf[0] = vintLengthMasks[n-1] | (vintLengthMasks[n-1] - 1)
	for i := 1; i < n; i++ {
		buf[i] = 0xFF
	}
	return buf
}

// DecodeSignedVint decodes a "signed VINT" as used by EBML lacing and
// SInt-typed leaves of narrower encodings that reuse the unsigned VINT
// shape: per §3, "Signed VINTs subtract (2^(7*n-1) - 1) from the unsigned
// decoding."
func DecodeSignedVint(buf []byte) (value int64, consumed int, err error) {
	u, n, _, err := DecodeVint(buf, false)
	if err != nil {
		return 0, 0, err
	}
	bias := int64(1)<<(uint(7*n)-1) - 1
	return int64(u) - bias, n, nil
}

// EncodeSignedVint is the inverse of DecodeSignedVint.
func EncodeSignedVint(v int64, n int) ([]byte, error) {
	if n == 0 {
		// Minimum width: find smallest n such that the biased value fits.
		for n = 1; n <= maxVintWidth; n++ {
			bias := int64(1)<<(uint(7*n)-1) - 1
			biased := v + bias
			if biased >= 0 && uint64(biased) < unknownSentinel(n) {
				break
			}
		}
	}
	bias := int64(1)<<(uint(7*n)-1) - 1
	biased := v + bias
	if biased < 0 {
		return nil, muxerr.New(muxerr.KindInternal, "signed vint: value too small for width")
	}
	return EncodeVint(uint64(biased), n)
}
