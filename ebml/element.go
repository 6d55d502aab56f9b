package ebml

import (
	"time"
	"unicode/utf8"

	"github.com/go-mkvmux/mkvmux/muxerr"
)

// ValueKind is the typed-leaf kind a descriptor declares, per §3 "Typed
// leaves". Master and Dummy are handled separately by Element's own tag.
type ValueKind int

const (
	KindUInt ValueKind = iota
	KindSInt
	KindFloat
	KindString
	KindUString
	KindDate
	KindBinary
	KindMaster
)

// epochOffset is the Matroska Date epoch, 2001-01-01T00:00:00 UTC,
// expressed as a time.Time so Date values can round-trip through
// time.Time in callers that want it (the XML converter does not need
// this; the segment assembler's DateUTC field does).
var epochOffset = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// Tag discriminates Element's three shapes, collapsing the virtual-
// inheritance element class hierarchy into the tagged variant suggested
// by §9 ("Element = Leaf(LeafValue) | Master(MasterBody) | Dummy(Bytes)").
type Tag int

const (
	TagLeaf Tag = iota
	TagMaster
	TagDummy
)

// Element is one EBML element: a descriptor-typed leaf, a master with
// ordered children, or an unknown ("dummy") element preserved as raw bytes
// so readers can skip it without aborting (§4.2).
type Element struct {
	ID   ID
	Desc *Descriptor // nil only for a Dummy read before registry lookup

	tag Tag

	// Leaf state.
	kind      ValueKind
	uintVal   uint64
	sintVal   int64
	floatVal  float64
	strVal    string
	binVal    []byte
	valueSet  bool // true once an explicit value has been written or read
	sizeHint  int  // caller-requested minimum rendered width, 0 = minimum needed

	// Master state.
	children          []*Element
	keepInsertionOrder bool // Cluster's BlockGroup/SimpleBlock children (§4.3)
	unknownSize        bool // render with the unknown-size sentinel (streaming)

	// Dummy state.
	dummyData []byte

	// Render bookkeeping (two-phase render, §4.1).
	headPos    int64 // file offset of this element's ID+size header, once rendered
	dataSize   uint64
	reserved   int  // width the size VINT was reserved at, for OverwriteHead
	sizeCached bool
}

// NewLeaf builds a leaf element for descriptor d with no value set (the
// descriptor's default, if any, is used at render time unless overwritten).
func NewLeaf(d *Descriptor) *Element {
	return &Element{ID: d.ID, Desc: d, tag: TagLeaf, kind: d.Kind}
}

// NewMaster builds an empty master element for descriptor d.
func NewMaster(d *Descriptor) *Element {
	return &Element{ID: d.ID, Desc: d, tag: TagMaster, kind: KindMaster, keepInsertionOrder: d.KeepInsertionOrder}
}

// NewDummy builds a dummy element preserving raw, unparsed bytes for an ID
// the registry did not recognise.
func NewDummy(id ID, data []byte) *Element {
	return &Element{ID: id, tag: TagDummy, dummyData: data}
}

// Tag reports which of Leaf/Master/Dummy this element is.
func (e *Element) Tag() Tag { return e.tag }

// IsValueSet reports whether an explicit value was set on this leaf (as
// opposed to carrying only its descriptor's default). Rendering elides a
// value-default leaf unless the writer is configured to emit defaults
// (§3 "writing distinguishes 'value equals default -> may be elided' from
// 'value explicitly set'").
func (e *Element) IsValueSet() bool { return e.valueSet }

// SetSizeHint requests a minimum rendered width for a UInt/SInt leaf,
// used when reserving space for a later OverwriteHead (§4.1).
func (e *Element) SetSizeHint(n int) { e.sizeHint = n }

// MarkUnknownSize marks a master to render with the unknown-size VINT
// sentinel instead of its computed data size, for a Segment or Cluster
// written in streaming mode whose final size isn't known up front
// (§4.1, §4.7).
func (e *Element) MarkUnknownSize() { e.unknownSize = true }

// --- typed setters -------------------------------------------------------

func (e *Element) SetUint(v uint64) {
	e.uintVal = v
	e.valueSet = true
}

func (e *Element) SetInt(v int64) {
	e.sintVal = v
	e.valueSet = true
}

func (e *Element) SetFloat(v float64) {
	e.floatVal = v
	e.valueSet = true
}

func (e *Element) SetString(v string) {
	e.strVal = v
	e.valueSet = true
}

func (e *Element) SetBinary(v []byte) {
	e.binVal = append([]byte(nil), v...)
	e.valueSet = true
}

// SetDate sets a Date leaf from a time.Time, converting to signed
// nanoseconds since the Matroska epoch (§3).
func (e *Element) SetDate(t time.Time) {
	e.sintVal = t.Sub(epochOffset).Nanoseconds()
	e.valueSet = true
}

// --- typed getters, with descriptor default fallback --------------------

func (e *Element) AsUint() (uint64, error) {
	if e.tag != TagLeaf || (e.kind != KindUInt) {
		return 0, muxerr.New(muxerr.KindInternal, "element: not a UInt leaf")
	}
	if !e.valueSet && e.Desc != nil && e.Desc.HasDefault {
		return e.Desc.DefaultUint, nil
	}
	return e.uintVal, nil
}

func (e *Element) AsInt() (int64, error) {
	if e.tag != TagLeaf || (e.kind != KindSInt && e.kind != KindDate) {
		return 0, muxerr.New(muxerr.KindInternal, "element: not an SInt/Date leaf")
	}
	if !e.valueSet && e.Desc != nil && e.Desc.HasDefault {
		return e.Desc.DefaultInt, nil
	}
	return e.sintVal, nil
}

func (e *Element) AsFloat() (float64, error) {
	if e.tag != TagLeaf || e.kind != KindFloat {
		return 0, muxerr.New(muxerr.KindInternal, "element: not a Float leaf")
	}
	return e.floatVal, nil
}

func (e *Element) AsString() (string, error) {
	if e.tag != TagLeaf || (e.kind != KindString && e.kind != KindUString) {
		return "", muxerr.New(muxerr.KindInternal, "element: not a String/UString leaf")
	}
	if !e.valueSet && e.Desc != nil && e.Desc.HasDefault {
		return e.Desc.DefaultString, nil
	}
	return e.strVal, nil
}

func (e *Element) AsBinary() ([]byte, error) {
	if e.tag != TagLeaf || e.kind != KindBinary {
		return nil, muxerr.New(muxerr.KindInternal, "element: not a Binary leaf")
	}
	return e.binVal, nil
}

// AsDate returns a Date leaf as an absolute time.Time.
func (e *Element) AsDate() (time.Time, error) {
	ns, err := e.AsInt()
	if err != nil {
		return time.Time{}, err
	}
	return epochOffset.Add(time.Duration(ns)), nil
}

// --- master operations ---------------------------------------------------

// Children returns this master's children in the order rendering will use
// (insertion order for Cluster-like elements, otherwise whatever Sort last
// produced).
func (e *Element) Children() []*Element { return e.children }

// Push appends a child to a master element (§4.3 "push").
func (e *Element) Push(child *Element) {
	e.children = append(e.children, child)
}

// validateLeafValue enforces ASCII-ness for String and UTF-8 validity for
// UString, per §3's typed-leaf rules.
func validateLeafValue(kind ValueKind, s string) error {
	switch kind {
	case KindString:
		for i := 0; i < len(s); i++ {
			if s[i] > 0x7F {
				return muxerr.New(muxerr.KindMalformedInput, "string leaf contains non-ASCII byte")
			}
		}
	case KindUString:
		if !utf8.ValidString(s) {
			return muxerr.New(muxerr.KindMalformedInput, "ustring leaf is not valid UTF-8")
		}
	}
	return nil
}

// floatByteWidth returns 4 if v round-trips through float32 without loss,
// else 8 — used when no descriptor forces a width.
func floatByteWidth(v float64) int {
	if float64(float32(v)) == v {
		return 4
	}
	return 8
}
