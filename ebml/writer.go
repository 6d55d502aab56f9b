package ebml

import (
	"io"
	"math"

	"github.com/go-mkvmux/mkvmux/muxerr"
)

// UpdateSize computes e's rendered data size bottom-up (children first),
// caching it on e.dataSize, per §4.1's two-phase render: "update_size()
// bottom-up then render() top-down." Masters with unknownSize set still
// compute and return their dataSize here; only Render substitutes the
// unknown-size marker for it.
func (e *Element) UpdateSize() uint64 {
	switch e.tag {
	case TagDummy:
		e.dataSize = uint64(len(e.dummyData))
	case TagLeaf:
		e.dataSize = uint64(e.leafPayloadLen())
	case TagMaster:
		var total uint64
		for _, c := range e.children {
			idLen := idWidth(c.ID)
			childDataSize := c.UpdateSize()
			sizeLen := c.sizeVintWidth(childDataSize)
			total += uint64(idLen) + uint64(sizeLen) + childDataSize
		}
		e.dataSize = total
	}
	e.sizeCached = true
	return e.dataSize
}

// sizeVintWidth returns the width the size VINT will render at for an
// element with data size n: the reserved width if one was set (via
// ReserveSize, for later OverwriteHead), else the SetSizeHint width if
// one was set, else the minimum width for n.
func (e *Element) sizeVintWidth(n uint64) int {
	if e.reserved > 0 {
		return e.reserved
	}
	if e.sizeHint > 0 {
		return e.sizeHint
	}
	return vintWidth(n)
}

// leafPayloadLen returns the byte length this leaf's value will occupy,
// not including its ID or size header.
func (e *Element) leafPayloadLen() int {
	switch e.kind {
	case KindUInt:
		v, _ := e.AsUint()
		return uintByteWidth(v, e.sizeHint)
	case KindSInt, KindDate:
		v, _ := e.AsInt()
		return sintByteWidth(v, e.sizeHint)
	case KindFloat:
		if e.sizeHint >= 8 {
			return 8
		}
		return floatByteWidth(e.floatVal)
	case KindString, KindUString:
		s, _ := e.AsString()
		return len(s)
	case KindBinary:
		return len(e.binVal)
	}
	return 0
}

// uintByteWidth returns the minimum number of bytes needed to hold v
// big-endian with no leading zero byte (0 itself needs zero bytes, per
// §3's "UInt 0 may render as a zero-length payload"), respecting a
// caller-requested minimum hint.
func uintByteWidth(v uint64, hint int) int {
	n := 0
	for t := v; t != 0; t >>= 8 {
		n++
	}
	if n < hint {
		n = hint
	}
	return n
}

// sintByteWidth mirrors uintByteWidth for two's-complement signed
// payloads, which need one more bit of headroom for the sign.
func sintByteWidth(v int64, hint int) int {
	n := 1
	if v >= 0 {
		for t := v >> 7; t != 0; t >>= 8 {
			n++
		}
	} else {
		for t := (v >> 7) ^ -1; t != 0; t >>= 8 {
			n++
		}
	}
	if n < hint {
		n = hint
	}
	return n
}

// idWidth returns the number of bytes an ID's own VINT encoding occupies
// (1-4 for the IDs this package defines), determined from its leading
// byte's marker position, since IDs keep their own width rather than
// being re-minimised at render time.
func idWidth(id ID) int {
	v := uint32(id)
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// Render writes e's ID, size header, and payload to w starting at file
// offset pos (recorded on e.headPos for a later OverwriteHead), recursing
// into children for masters, per §4.1's top-down render phase.
// UpdateSize must have been called on the same (sub)tree first so
// dataSize is current; Render does not recompute it.
func (e *Element) Render(w io.Writer, pos int64) (int64, error) {
	var written int64
	e.headPos = pos

	idBuf, err := EncodeVint(uint64(e.ID), idWidth(e.ID))
	if err != nil {
		return written, muxerr.Wrap(muxerr.KindInternal, err, "render: encode id")
	}
	n, err := w.Write(idBuf)
	written += int64(n)
	if err != nil {
		return written, muxerr.Wrap(muxerr.KindIO, err, "render: write id")
	}

	var sizeBuf []byte
	if e.tag == TagMaster && e.unknownSize {
		sizeBuf = EncodeUnknownSize(1)
	} else {
		sizeBuf, err = EncodeVint(e.dataSize, e.sizeVintWidth(e.dataSize))
		if err != nil {
			return written, muxerr.Wrap(muxerr.KindInternal, err, "render: encode size")
		}
	}
	n, err = w.Write(sizeBuf)
	written += int64(n)
	if err != nil {
		return written, muxerr.Wrap(muxerr.KindIO, err, "render: write size")
	}

	switch e.tag {
	case TagDummy:
		n, err = w.Write(e.dummyData)
		written += int64(n)
		if err != nil {
			return written, muxerr.Wrap(muxerr.KindIO, err, "render: write dummy payload")
		}
	case TagLeaf:
		payload, err := e.renderLeafPayload()
		if err != nil {
			return written, err
		}
		n, err = w.Write(payload)
		written += int64(n)
		if err != nil {
			return written, muxerr.Wrap(muxerr.KindIO, err, "render: write leaf payload")
		}
	case TagMaster:
		childPos := pos + written
		for _, c := range e.children {
			cn, err := c.Render(w, childPos)
			written += cn
			childPos += cn
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// renderLeafPayload encodes a leaf's current value (or its descriptor's
// default, if unset) to its on-wire byte form.
func (e *Element) renderLeafPayload() ([]byte, error) {
	switch e.kind {
	case KindUInt:
		v, _ := e.AsUint()
		n := uintByteWidth(v, e.sizeHint)
		buf := make([]byte, n)
		for i := n - 1; i >= 0; i-- {
			buf[i] = byte(v)
			v >>= 8
		}
		return buf, nil
	case KindSInt, KindDate:
		v, _ := e.AsInt()
		n := sintByteWidth(v, e.sizeHint)
		buf := make([]byte, n)
		uv := uint64(v)
		for i := n - 1; i >= 0; i-- {
			buf[i] = byte(uv)
			uv >>= 8
		}
		return buf, nil
	case KindFloat:
		w := floatByteWidth(e.floatVal)
		if e.sizeHint >= 8 {
			w = 8
		}
		buf := make([]byte, w)
		if w == 4 {
			bits := math.Float32bits(float32(e.floatVal))
			buf[0] = byte(bits >> 24)
			buf[1] = byte(bits >> 16)
			buf[2] = byte(bits >> 8)
			buf[3] = byte(bits)
		} else {
			bits := math.Float64bits(e.floatVal)
			for i := 0; i < 8; i++ {
				buf[i] = byte(bits >> uint(56-8*i))
			}
		}
		return buf, nil
	case KindString, KindUString:
		s, _ := e.AsString()
		return []byte(s), nil
	case KindBinary:
		return e.binVal, nil
	}
	return nil, muxerr.New(muxerr.KindInternal, "render: unhandled leaf kind")
}

// ReserveSize reserves a fixed n-byte width for this master's size VINT,
// so a later OverwriteHead can rewrite the size in place once the real
// child count is known (e.g. a streamed Segment/Cluster whose total size
// isn't known until muxing finishes). Reserving 0 restores minimum-width
// behaviour.
func (e *Element) ReserveSize(n int) {
	e.reserved = n
}

// ErrReservedSpaceTooSmall is returned by OverwriteHead when the
// previously reserved header width cannot hold the element's current
// size, per §4.1 "OverwriteHead... fails loudly (ReservedSpaceTooSmall)
// rather than shifting bytes."
var ErrReservedSpaceTooSmall = muxerr.New(muxerr.KindInternal, "overwrite head: reserved space too small")

// OverwriteHead rewrites e's ID+size header in place at an
// io.WriterAt, using the header width and file offset recorded when e
// was first rendered (headPos, reserved). It never changes the header's
// byte width — if the now-current dataSize doesn't fit the originally
// reserved width, it fails rather than shifting every following byte in
// the file.
func (e *Element) OverwriteHead(w io.WriterAt) error {
	if e.reserved == 0 {
		return muxerr.New(muxerr.KindInternal, "overwrite head: element has no reserved header width")
	}
	if e.dataSize >= unknownSentinel(e.reserved) {
		return ErrReservedSpaceTooSmall
	}
	sizeBuf, err := EncodeVint(e.dataSize, e.reserved)
	if err != nil {
		return ErrReservedSpaceTooSmall
	}
	idLen := int64(idWidth(e.ID))
	if _, err := w.WriteAt(sizeBuf, e.headPos+idLen); err != nil {
		return muxerr.Wrap(muxerr.KindIO, err, "overwrite head: write")
	}
	return nil
}

// PayloadOffset returns the file offset e's payload bytes start at. Valid
// only after Render has placed e (headPos set) and sized its header
// (sizeHint/reserved fixed at construction, so the header width is known
// without re-deriving it from a possibly-stale dataSize).
func (e *Element) PayloadOffset() int64 {
	headerLen := int64(idWidth(e.ID))
	if e.tag == TagMaster && e.reserved > 0 {
		headerLen += int64(e.reserved)
	} else {
		headerLen += int64(e.sizeVintWidth(e.dataSize))
	}
	return e.headPos + headerLen
}

// OverwritePayload rewrites e's already-rendered leaf payload in place at
// an io.WriterAt, the leaf counterpart to OverwriteHead: used for values
// only known after the fact (Segment Duration, SegmentUID, DateUTC)
// whose width was pinned up front via SetSizeHint so the new payload
// always fits the space already on disk.
func (e *Element) OverwritePayload(w io.WriterAt) error {
	payload, err := e.renderLeafPayload()
	if err != nil {
		return err
	}
	if uint64(len(payload)) != e.dataSize {
		return muxerr.New(muxerr.KindInternal, "overwrite payload: length does not match rendered size")
	}
	if _, err := w.WriteAt(payload, e.PayloadOffset()); err != nil {
		return muxerr.Wrap(muxerr.KindIO, err, "overwrite payload: write")
	}
	return nil
}
