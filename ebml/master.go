package ebml

import "sort"

// GetChild returns the first child of m with the given ID, or nil.
// Mirrors the teacher's single-pass linear child lookup (ebml.go), kept
// linear here too since master element fan-out is small (tens of
// children at most) and the registry already does the heavier lifting.
func (e *Element) GetChild(id ID) *Element {
	for _, c := range e.children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// GetAllChildren returns every child of m with the given ID, in document
// order.
func (e *Element) GetAllChildren(id ID) []*Element {
	var out []*Element
	for _, c := range e.children {
		if c.ID == id {
			out = append(out, c)
		}
	}
	return out
}

// GetNextChild returns the child immediately following prev that shares
// prev's ID, or nil if prev is the last such child (or not found). Used
// to iterate repeated elements (SimpleTag, TrackEntry, CuePoint, ...)
// without building an intermediate slice.
func (e *Element) GetNextChild(prev *Element) *Element {
	found := false
	for _, c := range e.children {
		if found && c.ID == prev.ID {
			return c
		}
		if c == prev {
			found = true
		}
	}
	return nil
}

// GetChildOrCreate returns the first child of e with descriptor d,
// creating and appending a default-valued one if absent, per §4.3
// "get_child<T>(): returns the first child with the target descriptor,
// creating it with its default value if absent."
func (e *Element) GetChildOrCreate(d *Descriptor) *Element {
	if c := e.GetChild(d.ID); c != nil {
		return c
	}
	var child *Element
	if d.IsMaster() {
		child = NewMaster(d)
	} else {
		child = NewLeaf(d)
	}
	e.Push(child)
	return child
}

// GetNextChildOrCreate returns the child immediately following prev that
// shares prev's ID, creating and appending one after the last occurrence
// if none exists, per §4.3 "get_next_child<T>(prev)".
func (e *Element) GetNextChildOrCreate(prev *Element, d *Descriptor) *Element {
	if n := e.GetNextChild(prev); n != nil {
		return n
	}
	var child *Element
	if d.IsMaster() {
		child = NewMaster(d)
	} else {
		child = NewLeaf(d)
	}
	e.Push(child)
	return child
}

// Remove deletes the first occurrence of child from e's children, by
// identity.
func (e *Element) Remove(child *Element) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// RemoveAll deletes every child with the given ID.
func (e *Element) RemoveAll(id ID) {
	out := e.children[:0]
	for _, c := range e.children {
		if c.ID != id {
			out = append(out, c)
		}
	}
	e.children = out
}

// Sort reorders e's direct children to match their descriptors' declared
// order in e's child context, leaving same-ID runs (repeated elements) in
// their relative order (a stable sort). Clusters and other
// KeepInsertionOrder masters are left untouched, per §4.3's exception for
// Block/SimpleBlock emission order.
func (e *Element) Sort() {
	if e.keepInsertionOrder {
		return
	}
	ctx := ctxGlobal
	if e.Desc != nil {
		ctx = e.Desc.childContextOrGlobal()
	}
	order := func(id ID) int {
		d := Lookup(ctx, id)
		if d == nil {
			return 1 << 30
		}
		return d.order
	}
	sort.SliceStable(e.children, func(i, j int) bool {
		return order(e.children[i].ID) < order(e.children[j].ID)
	})
}

// FixMandatory walks e's subtree and, for every master, appends a default-
// valued child for each mandatory-with-default descriptor in that
// master's child context that is not already present, per §4.3
// "fix_mandatory: walks recursively and injects missing mandatory-with-
// default children." Mandatory descriptors without a default are left
// for the caller to report as missing (render will fail on them instead).
func (e *Element) FixMandatory() {
	if e.tag != TagMaster {
		return
	}
	ctx := ctxGlobal
	if e.Desc != nil {
		ctx = e.Desc.childContextOrGlobal()
	}
	for _, d := range contexts[ctx] {
		if !d.Mandatory || !d.HasDefault {
			continue
		}
		if e.GetChild(d.ID) != nil {
			continue
		}
		child := NewLeaf(d)
		e.Push(child)
	}
	for _, c := range e.children {
		c.FixMandatory()
	}
}

// MissingMandatory reports the IDs of mandatory descriptors in e's child
// context that have neither an explicit value nor a default, and are
// absent from e's children — the set FixMandatory cannot repair on its
// own. Callers (the Segment assembler, the XML converter) surface these
// via muxerr.KindMissingMandatory.
func (e *Element) MissingMandatory() []ID {
	if e.tag != TagMaster {
		return nil
	}
	ctx := ctxGlobal
	if e.Desc != nil {
		ctx = e.Desc.childContextOrGlobal()
	}
	var missing []ID
	for _, d := range contexts[ctx] {
		if !d.Mandatory || d.HasDefault {
			continue
		}
		if e.GetChild(d.ID) == nil {
			missing = append(missing, d.ID)
		}
	}
	return missing
}
