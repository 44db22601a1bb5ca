package qres

import (
	"fmt"
	"io"
	"strings"
)

// ResourceLibrary is the facade spec.md's command table is built on: it
// owns a root directory and exposes the path-addressed operations (ls, cat,
// rm, mv, add, save) a CLI command maps directly onto. It mirrors the role
// the teacher's squashfs.Superblock plays as the entry point wrapping a
// parsed tree, generalized with mutation support the teacher's read-only
// filesystem view never needed.
//
// A ResourceLibrary is not safe for concurrent use: it holds no lock, so
// callers sharing one across goroutines must serialize access themselves.
type ResourceLibrary struct {
	root   *dirNode
	reader *Reader // nil for a library built with New
}

// Open parses src's header and materializes its full tree into a
// ResourceLibrary ready for inspection or mutation. src is typically an
// *os.File or a *bytes.Reader.
func Open(src io.ReaderAt) (*ResourceLibrary, error) {
	r, err := NewReader(src)
	if err != nil {
		return nil, err
	}
	root, err := r.ReadTree()
	if err != nil {
		return nil, err
	}
	return &ResourceLibrary{root: root, reader: r}, nil
}

// New creates an empty ResourceLibrary with a bare root directory, for
// building a container from scratch.
func New() *ResourceLibrary {
	return &ResourceLibrary{root: newDirNode(":", 0)}
}

// splitPath trims a leading ":/" (the container's canonical root prefix)
// and splits on "/", discarding empty segments so "a//b" and "/a/b/"
// behave the same as "a/b".
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, ":")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// lowerBound performs a hash-ordered binary search over dir children,
// bounded to ⌈log2 N⌉+1 comparisons (P5): no stdlib generic search is used
// so the iteration count stays under our direct control.
func lowerBound(children []Node, hash uint32) (idx int, found bool) {
	lo, hi := 0, len(children)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if children[mid].NameHash() < hash {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(children) && children[lo].NameHash() == hash {
		return lo, true
	}
	return lo, false
}

// resolve walks dir from path's segments, returning the node at the end of
// the path and its parent directory (nil parent for the root itself).
func resolve(dir *dirNode, segs []string) (node Node, parent *dirNode, err error) {
	node = dir
	parent = nil
	for _, seg := range segs {
		d, ok := node.(*dirNode)
		if !ok {
			return nil, nil, ErrGotFileInsteadOfDir
		}
		idx, found := lowerBound(d.children, qtHash(seg))
		if !found || d.children[idx].Name() != seg {
			return nil, nil, ErrEntryNotFound
		}
		parent = d
		node = d.children[idx]
	}
	return node, parent, nil
}

// Ls lists the name of every direct child of the directory at path ("" or
// ":/" for the root). Names are returned in nameHash order, matching
// on-disk sibling order.
func (lib *ResourceLibrary) Ls(path string) ([]string, error) {
	node, _, err := resolve(lib.root, splitPath(path))
	if err != nil {
		return nil, err
	}
	dir, ok := node.(*dirNode)
	if !ok {
		return nil, ErrGotFileInsteadOfDir
	}
	names := make([]string, len(dir.children))
	for i, c := range dir.children {
		if c.isDir() {
			names[i] = c.Name() + "/"
		} else {
			names[i] = c.Name()
		}
	}
	return names, nil
}

// Cat returns the decompressed contents of the file at path.
func (lib *ResourceLibrary) Cat(path string) ([]byte, error) {
	node, _, err := resolve(lib.root, splitPath(path))
	if err != nil {
		return nil, err
	}
	f, ok := node.(File)
	if !ok {
		return nil, ErrGotDirInsteadOfFile
	}
	return f.Read()
}

// Rm removes the entry at path from its parent. Removing the root itself
// is rejected with ErrEntryNotFound since it has no parent to detach from.
func (lib *ResourceLibrary) Rm(path string) error {
	node, parent, err := resolve(lib.root, splitPath(path))
	if err != nil {
		return err
	}
	if parent == nil {
		return ErrEntryNotFound
	}
	parent.removeChild(node)
	return nil
}

// Mv detaches the entry at src from its parent and inserts it, under its
// original name, into the existing directory named by dst. A sibling of
// dst already using that name is replaced. dst must already resolve to a
// directory; Mv never creates one.
//
// The child is detached from src's parent before dst is resolved, matching
// original_source/lilrcc.cpp's mvFile: if dst subsequently fails to
// resolve, the detached child is not reattached and is lost, rather than
// left in place (SPEC_FULL.md §7's propagation policy for a post-detach
// failure).
func (lib *ResourceLibrary) Mv(src, dst string) error {
	node, parent, err := resolve(lib.root, splitPath(src))
	if err != nil {
		return err
	}
	if parent == nil {
		return ErrEntryNotFound
	}
	parent.removeChild(node)

	destNode, _, err := resolve(lib.root, splitPath(dst))
	if err != nil {
		return err
	}
	destDir, ok := destNode.(*dirNode)
	if !ok {
		return ErrGotFileInsteadOfDir
	}

	destDir.insertChild(node)
	return nil
}

// Add inserts data as a new file named by the last segment of path into
// the existing directory named by its preceding segments. An existing
// entry with that name is replaced. Add never creates directories.
func (lib *ResourceLibrary) Add(path string, data []byte) error {
	segs := splitPath(path)
	if len(segs) == 0 {
		return ErrEntryNotFound
	}
	parentNode, _, err := resolve(lib.root, segs[:len(segs)-1])
	if err != nil {
		return err
	}
	dir, ok := parentNode.(*dirNode)
	if !ok {
		return ErrGotFileInsteadOfDir
	}
	dir.insertChild(newBytesFile(segs[len(segs)-1], data))
	return nil
}

// Save serializes the library's current tree to dst, applying opts to the
// Writer used to do so.
func (lib *ResourceLibrary) Save(dst io.Writer, opts ...WriterOption) error {
	return NewWriter(opts...).Save(dst, lib.root)
}

// Root returns the library's root directory node, for callers that need to
// walk the whole structure.
func (lib *ResourceLibrary) Root() Node {
	return lib.root
}

// compressionSuffix returns the trailing marker PrintTree appends to a
// compressed file's name ("-zlib", "-zstd"), or "" for everything else.
func compressionSuffix(n Node) string {
	f, ok := n.(File)
	if !ok {
		return ""
	}
	switch f.Compression() {
	case Compressed:
		return "-zlib"
	case CompressedZstd:
		return "-zstd"
	default:
		return ""
	}
}

// PrintTree writes an ASCII rendering of the whole container to w, using
// the "├──"/"└──"/"│   " prefixes of a conventional directory tree view.
// Traversal is in insertion (hash) order; every node appears exactly once.
func (lib *ResourceLibrary) PrintTree(w io.Writer) error {
	if _, err := fmt.Fprintln(w, lib.root.Name()); err != nil {
		return ioWrapf(err)
	}
	return printChildren(w, lib.root, "")
}

func printChildren(w io.Writer, dir *dirNode, prefix string) error {
	for i, c := range dir.children {
		last := i == len(dir.children)-1
		branch, nextPrefix := "├── ", prefix+"│   "
		if last {
			branch, nextPrefix = "└── ", prefix+"    "
		}
		if _, err := fmt.Fprintln(w, prefix+branch+c.Name()+compressionSuffix(c)); err != nil {
			return ioWrapf(err)
		}
		if d, ok := c.(*dirNode); ok {
			if err := printChildren(w, d, nextPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}

