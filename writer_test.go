package qres

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// snapshot is a comparable, cycle-free projection of a Node tree used by
// the round-trip tests: unexported fields and live reader references make
// Node values themselves unsuitable for cmp.Diff.
type snapshot struct {
	Name     string
	NameHash uint32
	IsDir    bool
	Flags    Flags
	Payload  []byte
	Children []snapshot
}

func snapshotOf(n Node) snapshot {
	s := snapshot{Name: n.Name(), NameHash: n.NameHash(), IsDir: n.isDir()}
	if d, ok := n.(*dirNode); ok {
		for _, c := range d.children {
			s.Children = append(s.Children, snapshotOf(c))
		}
		return s
	}
	f := n.(File)
	s.Flags = f.Compression()
	payload, err := f.Read()
	if err != nil {
		panic(err)
	}
	s.Payload = payload
	return s
}

func buildSampleTree() *dirNode {
	root := newDirNode(":", 0)
	a := newDirNode("a", qtHash("a"))
	a.insertChild(newBytesFile("hello.txt", []byte("hi\n")))
	root.insertChild(a)
	root.insertChild(newBytesFile("readme.md", []byte("# sample\n")))
	return root
}

// TestWriterReaderRoundTrip is property P2 across all three format
// versions: read(write(T, v)) must yield a tree isomorphic to T.
func TestWriterReaderRoundTrip(t *testing.T) {
	for _, version := range []uint32{1, 2, 3} {
		root := buildSampleTree()
		want := snapshotOf(root)

		var buf bytes.Buffer
		w := NewWriter(WithVersion(version))
		if err := w.Save(&buf, root); err != nil {
			t.Fatalf("version %d: save failed: %s", version, err)
		}

		r, err := NewReader(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("version %d: new reader failed: %s", version, err)
		}
		if r.Version != version {
			t.Errorf("version %d: reader reports version %d", version, r.Version)
		}

		got, err := r.ReadTree()
		if err != nil {
			t.Fatalf("version %d: read tree failed: %s", version, err)
		}

		if diff := cmp.Diff(want, snapshotOf(got), cmp.Comparer(func(a, b []byte) bool {
			return bytes.Equal(a, b)
		})); diff != "" {
			t.Errorf("version %d: tree mismatch (-want +got):\n%s", version, diff)
		}
	}
}

// TestWriterNameDedup is property P3: a name shared by multiple entries
// appears once in the names section and every referencing entry shares its
// name_offset.
func TestWriterNameDedup(t *testing.T) {
	root := newDirNode(":", 0)
	a := newDirNode("shared", qtHash("shared"))
	b := newDirNode("other", qtHash("other"))
	a.insertChild(newBytesFile("shared", []byte("in a")))
	b.insertChild(newBytesFile("shared", []byte("in b")))
	root.insertChild(a)
	root.insertChild(b)

	lay, err := NewWriter().enumerate(root)
	if err != nil {
		t.Fatalf("enumerate failed: %s", err)
	}

	count := 0
	for _, n := range lay.names {
		if n == "shared" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected \"shared\" to be interned once, appeared %d times in %v", count, lay.names)
	}

	var offsets []uint32
	for _, rec := range lay.records {
		if rec.node.Name() == "shared" {
			offsets = append(offsets, lay.nameOffset["shared"])
		}
	}
	if len(offsets) < 2 {
		t.Fatalf("expected at least two entries named \"shared\", found %d", len(offsets))
	}
	for _, o := range offsets[1:] {
		if o != offsets[0] {
			t.Errorf("shared name entries disagree on name_offset: %v", offsets)
		}
	}
}

// TestWriterOverallFlags is property P4.
func TestWriterOverallFlags(t *testing.T) {
	root := newDirNode(":", 0)
	root.insertChild(newBytesFile("plain.txt", []byte("plain")))

	var buf bytes.Buffer
	w := NewWriter(WithVersion(3), WithCompressionAlgorithm(CompressionZlib))
	if err := w.Save(&buf, root); err != nil {
		t.Fatalf("save failed: %s", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("new reader failed: %s", err)
	}
	if Flags(r.OverallFlags) != Compressed {
		t.Errorf("expected overall_flags to be Compressed, got %s", Flags(r.OverallFlags))
	}
}

func TestCompressionBestPicksSmaller(t *testing.T) {
	w := NewWriter(WithCompressionAlgorithm(CompressionBest))
	data := bytes.Repeat([]byte("a"), 5000)
	flags, body, err := w.compress(data)
	if err != nil {
		t.Fatalf("compress failed: %s", err)
	}
	if flags != Compressed && flags != CompressedZstd {
		t.Errorf("expected a compressed flag, got %s", flags)
	}
	if len(body) >= 5000 {
		t.Errorf("expected compression to shrink a highly repetitive payload")
	}

	zl, err := zlibEncode(data)
	if err != nil {
		t.Fatalf("zlib encode failed: %s", err)
	}
	zs, err := zstdEncode(data, DefaultZstdShrinkThreshold)
	if err != nil {
		t.Fatalf("zstd encode failed: %s", err)
	}
	smaller := len(zl)
	if len(zs) < smaller {
		smaller = len(zs)
	}
	if len(body) != smaller {
		t.Errorf("best body is %d bytes, want the smaller of zlib %d / zstd %d", len(body), len(zl), len(zs))
	}
}
