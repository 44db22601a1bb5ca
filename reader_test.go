package qres

import (
	"bytes"
	"testing"
)

// TestDumpEntriesBreadthFirstOrder builds root → (dir "a" → two files) plus
// a trailing sibling file, and asserts DumpEntries visits entries in the
// breadth-first, physical-index order the Writer assigned them in (and the
// tree section is laid out on disk in), not a depth-first recursion order.
func TestDumpEntriesBreadthFirstOrder(t *testing.T) {
	root := newDirNode(":", 0)
	a := newDirNode("a", qtHash("a"))
	a.insertChild(newBytesFile("one.txt", []byte("1")))
	a.insertChild(newBytesFile("two.txt", []byte("2")))
	root.insertChild(a)
	root.insertChild(newBytesFile("trailing.txt", []byte("3")))

	var buf bytes.Buffer
	if err := NewWriter(WithVersion(3)).Save(&buf, root); err != nil {
		t.Fatalf("save failed: %s", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("new reader failed: %s", err)
	}
	entries, err := r.DumpEntries()
	if err != nil {
		t.Fatalf("dump entries failed: %s", err)
	}

	var indices []uint32
	for _, e := range entries {
		indices = append(indices, e.Index)
	}
	want := []uint32{0, 1, 2, 3, 4}
	if len(indices) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(indices), len(want), indices)
	}
	for i, idx := range indices {
		if idx != want[i] {
			t.Errorf("entries[%d].Index = %d, want %d (full order: %v)", i, idx, want[i], indices)
		}
	}

	if entries[0].Name != ":" || entries[0].NameHash != 0 {
		t.Errorf("root entry dump = %q/%d, want \":\"/0", entries[0].Name, entries[0].NameHash)
	}
}

// TestDumpNamesMatchesEntryOrder checks DumpNames against a small saved
// tree: every distinct name should appear exactly once, in the order the
// non-root entries come out of DumpEntries.
func TestDumpNamesMatchesEntryOrder(t *testing.T) {
	root := newDirNode(":", 0)
	a := newDirNode("a", qtHash("a"))
	a.insertChild(newBytesFile("one.txt", []byte("1")))
	root.insertChild(a)
	root.insertChild(newBytesFile("trailing.txt", []byte("3")))

	var buf bytes.Buffer
	if err := NewWriter(WithVersion(3)).Save(&buf, root); err != nil {
		t.Fatalf("save failed: %s", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("new reader failed: %s", err)
	}
	names, err := r.DumpNames()
	if err != nil {
		t.Fatalf("dump names failed: %s", err)
	}

	seen := make(map[string]int)
	for _, n := range names {
		seen[n.Name]++
	}
	for _, want := range []string{"a", "one.txt", "trailing.txt"} {
		if seen[want] != 1 {
			t.Errorf("name %q appeared %d times, want 1", want, seen[want])
		}
	}

	entries, err := r.DumpEntries()
	if err != nil {
		t.Fatalf("dump entries failed: %s", err)
	}
	var wantOrder []string
	for _, e := range entries[1:] {
		wantOrder = append(wantOrder, e.Name)
	}
	if len(names) != len(wantOrder) {
		t.Fatalf("got %d names, want %d (entry order %v)", len(names), len(wantOrder), wantOrder)
	}
	for i, n := range names {
		if n.Name != wantOrder[i] {
			t.Errorf("names[%d] = %q, want %q (entry order %v)", i, n.Name, wantOrder[i], wantOrder)
		}
	}
}
