package ebml

import "testing"

func TestSortOrdersByDescriptorDeclaration(t *testing.T) {
	info := NewMaster(DescInfo)
	// Push out of declared order: WritingApp, Title, MuxingApp.
	wa := NewLeaf(DescWritingApp)
	wa.SetString("mkvmux")
	info.Push(wa)
	ti := NewLeaf(DescTitle)
	ti.SetString("x")
	info.Push(ti)
	ma := NewLeaf(DescMuxingApp)
	ma.SetString("mkvmux")
	info.Push(ma)

	info.Sort()

	kids := info.Children()
	if len(kids) != 3 {
		t.Fatalf("expected 3 children, got %d", len(kids))
	}
	if kids[0].ID != IDTitle || kids[1].ID != IDMuxingApp || kids[2].ID != IDWritingApp {
		t.Fatalf("unexpected order after Sort: %v", []ID{kids[0].ID, kids[1].ID, kids[2].ID})
	}
}

func TestSortPreservesClusterInsertionOrder(t *testing.T) {
	cluster := NewMaster(DescCluster)
	ts := NewLeaf(DescTimestamp)
	ts.SetUint(0)
	cluster.Push(ts)
	b1 := NewLeaf(DescSimpleBlock)
	b1.SetBinary([]byte{1})
	cluster.Push(b1)
	b2 := NewLeaf(DescSimpleBlock)
	b2.SetBinary([]byte{2})
	cluster.Push(b2)

	cluster.Sort()

	kids := cluster.Children()
	if kids[0] != ts || kids[1] != b1 || kids[2] != b2 {
		t.Fatalf("Cluster.Sort() must be a no-op, insertion order changed")
	}
}

func TestFixMandatoryInjectsDefaults(t *testing.T) {
	info := NewMaster(DescInfo)
	info.FixMandatory()

	scale := info.GetChild(IDTimestampScale)
	if scale == nil {
		t.Fatalf("FixMandatory() did not inject TimestampScale")
	}
	v, _ := scale.AsUint()
	if v != 1000000 {
		t.Errorf("injected TimestampScale = %d, want 1000000", v)
	}

	if missing := info.MissingMandatory(); len(missing) == 0 {
		t.Fatalf("expected MuxingApp/WritingApp (no default-bearing path here) to remain missing")
	}
}

func TestGetNextChildIteratesRepeatedElements(t *testing.T) {
	tags := NewMaster(DescTags)
	t1 := NewMaster(DescTag)
	t2 := NewMaster(DescTag)
	t3 := NewMaster(DescTag)
	tags.Push(t1)
	tags.Push(t2)
	tags.Push(t3)

	if got := tags.GetNextChild(t1); got != t2 {
		t.Errorf("GetNextChild(t1) = %p, want t2", got)
	}
	if got := tags.GetNextChild(t2); got != t3 {
		t.Errorf("GetNextChild(t2) = %p, want t3", got)
	}
	if got := tags.GetNextChild(t3); got != nil {
		t.Errorf("GetNextChild(t3) = %v, want nil", got)
	}
}

func TestRemoveAll(t *testing.T) {
	tags := NewMaster(DescTags)
	tags.Push(NewMaster(DescTag))
	tags.Push(NewMaster(DescTag))
	tags.Push(NewLeaf(DescTimestamp)) // unrelated ID, should survive

	tags.RemoveAll(IDTag)

	if len(tags.Children()) != 1 {
		t.Fatalf("expected 1 surviving child, got %d", len(tags.Children()))
	}
	if tags.Children()[0].ID != IDTimestamp {
		t.Errorf("wrong child survived RemoveAll")
	}
}
