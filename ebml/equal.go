package ebml

import "bytes"

// Equal reports whether e and other describe the same element tree: same
// ID, same tag, same typed value (leaves) or same ordered children
// (masters), same raw bytes (dummies). Render bookkeeping (headPos,
// reserved, sizeCached) is deliberately excluded, per §4.1's "Comparison"
// note that two trees built differently can still be equal elements.
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.ID != other.ID || e.tag != other.tag {
		return false
	}
	switch e.tag {
	case TagDummy:
		return bytes.Equal(e.dummyData, other.dummyData)
	case TagLeaf:
		if e.kind != other.kind {
			return false
		}
		switch e.kind {
		case KindUInt:
			a, _ := e.AsUint()
			b, _ := other.AsUint()
			return a == b
		case KindSInt, KindDate:
			a, _ := e.AsInt()
			b, _ := other.AsInt()
			return a == b
		case KindFloat:
			return e.floatVal == other.floatVal
		case KindString, KindUString:
			a, _ := e.AsString()
			b, _ := other.AsString()
			return a == b
		case KindBinary:
			return bytes.Equal(e.binVal, other.binVal)
		}
		return true
	case TagMaster:
		if len(e.children) != len(other.children) {
			return false
		}
		for i, c := range e.children {
			if !c.Equal(other.children[i]) {
				return false
			}
		}
		return true
	}
	return false
}
