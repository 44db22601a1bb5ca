package qres

import "fmt"

// Node is the common interface every tree element implements. It mirrors
// the teacher's Inode/Type split, collapsed into the flatter tagged-variant
// shape spec.md's design notes recommend over a class hierarchy: a Node is
// either a *dirNode or one of the four file variants below.
type Node interface {
	isDir() bool
	Name() string
	NameHash() uint32
}

// File is implemented by every non-directory Node.
type File interface {
	Node

	// Read returns the file's decompressed contents.
	Read() ([]byte, error)
	// Compression returns the flag written for this file's on-disk entry.
	Compression() Flags
	// GetCompressed returns the raw on-disk payload body, without the outer
	// 4-byte length word (the writer supplies that).
	GetCompressed() ([]byte, error)
	// DataSize returns the number of bytes this file needs in the data
	// section, including the 4-byte length word.
	DataSize() (uint32, error)
}

// dirNode is the Directory variant of Node. Children are kept sorted by
// nameHash ascending (invariant I1); append only during initial load from
// an already-sorted source, insert/remove otherwise.
type dirNode struct {
	name     string
	nameHash uint32
	children []Node
}

func newDirNode(name string, nameHash uint32) *dirNode {
	return &dirNode{name: name, nameHash: nameHash}
}

func (d *dirNode) isDir() bool       { return true }
func (d *dirNode) Name() string      { return d.name }
func (d *dirNode) NameHash() uint32  { return d.nameHash }
func (d *dirNode) Children() []Node  { return d.children }
func (d *dirNode) childCount() int   { return len(d.children) }

// appendChild adds a child in its current position, assuming the caller
// already guarantees ascending nameHash order (only valid while loading an
// already-sorted container).
func (d *dirNode) appendChild(n Node) {
	d.children = append(d.children, n)
}

// childIndex returns the lower-bound index where a node with the given hash
// is, or would be inserted, in d.children. See lowerBound in library.go
// for the general-purpose version shared with facade lookups.
func (d *dirNode) childIndex(hash uint32) (idx int, found bool) {
	return lowerBound(d.children, hash)
}

// insertChild places n by binary search on its nameHash, replacing (and
// releasing) any existing child with an equal hash.
func (d *dirNode) insertChild(n Node) {
	idx, found := d.childIndex(n.NameHash())
	if found {
		d.children[idx] = n
		return
	}
	d.children = append(d.children, nil)
	copy(d.children[idx+1:], d.children[idx:])
	d.children[idx] = n
}

// removeChild removes n by identity with an O(n) linear scan; ordering of
// the remaining siblings is unaffected so no resort is needed.
func (d *dirNode) removeChild(n Node) bool {
	for i, c := range d.children {
		if c == n {
			d.children = append(d.children[:i], d.children[i+1:]...)
			return true
		}
	}
	return false
}

// lazyFile is the shared state of every file variant whose bytes are read
// on demand from a container's reader, rather than already materialized in
// memory (see bytesFile for that case).
type lazyFile struct {
	name       string
	nameHash   uint32
	src        *Reader
	dataOffset uint32 // relative to the source reader's data section
	dataSize   uint32 // includes the 4-byte length word
}

func (f *lazyFile) isDir() bool      { return false }
func (f *lazyFile) Name() string     { return f.name }
func (f *lazyFile) NameHash() uint32 { return f.nameHash }
func (f *lazyFile) DataSize() (uint32, error) {
	return f.dataSize, nil
}

func (f *lazyFile) rawBody() ([]byte, error) {
	body, err := f.src.readRawFileData(f.dataOffset)
	if err != nil {
		return nil, fmt.Errorf("qres: reading %q: %w", f.name, err)
	}
	return body, nil
}

// uncompressedFile is the Uncompressed variant of Node.
type uncompressedFile struct{ lazyFile }

func (f *uncompressedFile) Read() ([]byte, error)         { return f.rawBody() }
func (f *uncompressedFile) Compression() Flags            { return NoFlags }
func (f *uncompressedFile) GetCompressed() ([]byte, error) { return f.rawBody() }

// zlibFile is the ZlibCompressed variant of Node.
type zlibFile struct{ lazyFile }

func (f *zlibFile) Read() ([]byte, error) {
	body, err := f.rawBody()
	if err != nil {
		return nil, err
	}
	return zlibDecode(body)
}
func (f *zlibFile) Compression() Flags             { return Compressed }
func (f *zlibFile) GetCompressed() ([]byte, error) { return f.rawBody() }

// zstdFile is the ZstdCompressed variant of Node.
type zstdFile struct{ lazyFile }

func (f *zstdFile) Read() ([]byte, error) {
	body, err := f.rawBody()
	if err != nil {
		return nil, err
	}
	return zstdDecode(body)
}
func (f *zstdFile) Compression() Flags             { return CompressedZstd }
func (f *zstdFile) GetCompressed() ([]byte, error) { return f.rawBody() }

// bytesFile is the Bytes variant of Node: a freshly added file whose bytes
// are already materialized in memory. add() never compresses by default.
type bytesFile struct {
	name     string
	nameHash uint32
	payload  []byte
}

func newBytesFile(name string, payload []byte) *bytesFile {
	return &bytesFile{name: name, nameHash: qtHash(name), payload: payload}
}

func (f *bytesFile) isDir() bool              { return false }
func (f *bytesFile) Name() string             { return f.name }
func (f *bytesFile) NameHash() uint32         { return f.nameHash }
func (f *bytesFile) Read() ([]byte, error)    { return f.payload, nil }
func (f *bytesFile) Compression() Flags       { return NoFlags }
func (f *bytesFile) GetCompressed() ([]byte, error) { return f.payload, nil }
func (f *bytesFile) DataSize() (uint32, error) {
	return uint32(4 + len(f.payload)), nil
}

var (
	_ Node = (*dirNode)(nil)
	_ File = (*uncompressedFile)(nil)
	_ File = (*zlibFile)(nil)
	_ File = (*zstdFile)(nil)
	_ File = (*bytesFile)(nil)
)
