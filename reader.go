package qres

import (
	"fmt"
	"io"
)

const magic = "qres"

// Reader decodes a qres container's header and lazily materializes its tree.
// It implements the deterministic descent of SPEC_FULL.md §4.H:
// Start → MagicChecked → HeaderRead → TreeWalking → Done, any malformed
// read failing into a terminal state. File nodes produced by ReadTree hold
// a reference back to this Reader (component E's "source_ref"), so the
// Reader must outlive every node it produced (invariant I6).
type Reader struct {
	src io.ReaderAt

	Version      uint32
	TreeOffset   uint32
	DataOffset   uint32
	NamesOffset  uint32
	OverallFlags uint32

	treeEntrySize int64
}

// NewReader parses the container header: magic, version, and section
// offsets (steps 1–4 of SPEC_FULL.md §4.E). It does not walk the tree.
func NewReader(src io.ReaderAt) (*Reader, error) {
	c := newCursor(src, 0)

	magicBytes, err := c.readN(4)
	if err != nil {
		return nil, err
	}
	if string(magicBytes) != magic {
		return nil, ErrNotAContainer
	}

	version, err := c.u32()
	if err != nil {
		return nil, err
	}
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, version)
	}

	treeOffset, err := c.u32()
	if err != nil {
		return nil, err
	}
	dataOffset, err := c.u32()
	if err != nil {
		return nil, err
	}
	namesOffset, err := c.u32()
	if err != nil {
		return nil, err
	}

	var overallFlags uint32
	if version >= 3 {
		overallFlags, err = c.u32()
		if err != nil {
			return nil, err
		}
	}

	entrySize := int64(14)
	if version >= 2 {
		entrySize += 8
	}

	return &Reader{
		src:           src,
		Version:       version,
		TreeOffset:    treeOffset,
		DataOffset:    dataOffset,
		NamesOffset:   namesOffset,
		OverallFlags:  overallFlags,
		treeEntrySize: entrySize,
	}, nil
}

// ReadTree materializes the full in-memory tree starting from entry 0 (the
// root, always a directory named ":").
func (r *Reader) ReadTree() (*dirNode, error) {
	root := newDirNode(":", 0)
	if err := r.readDirChildren(root, 0); err != nil {
		return nil, err
	}
	return root, nil
}

// readDirChildren appends entryIndex's children to dir, recursing into any
// directory children encountered. Because the on-disk tree is already
// ordered ascending by name hash, appendChild preserves invariant I1.
func (r *Reader) readDirChildren(dir *dirNode, entryIndex uint32) error {
	c := newCursor(r.src, int64(r.TreeOffset)+int64(entryIndex)*r.treeEntrySize+6)
	childCount, err := c.u32()
	if err != nil {
		return err
	}
	firstChild, err := c.u32()
	if err != nil {
		return err
	}

	for i := uint32(0); i < childCount; i++ {
		child, err := r.readEntry(firstChild + i)
		if err != nil {
			return err
		}
		dir.appendChild(child)
	}
	return nil
}

// readEntry reads a single tree entry and, for directories, recurses to
// populate its children before returning it.
func (r *Reader) readEntry(entryIndex uint32) (Node, error) {
	base := int64(r.TreeOffset) + int64(entryIndex)*r.treeEntrySize
	c := newCursor(r.src, base)

	nameOffset, err := c.u32()
	if err != nil {
		return nil, err
	}
	flagBits, err := c.u16()
	if err != nil {
		return nil, err
	}
	flags := Flags(flagBits)

	name, err := r.readName(nameOffset)
	if err != nil {
		return nil, err
	}
	nameHash, err := r.readHash(nameOffset)
	if err != nil {
		return nil, err
	}

	if flags.IsDir() {
		dir := newDirNode(name, nameHash)
		if err := r.readDirChildren(dir, entryIndex); err != nil {
			return nil, err
		}
		return dir, nil
	}

	// file entry: language(2) + territory(2) skipped, then data_offset(4)
	c.seek(base + 10)
	dataOffset, err := c.u32()
	if err != nil {
		return nil, err
	}

	dataCursor := newCursor(r.src, int64(r.DataOffset)+int64(dataOffset))
	length, err := dataCursor.u32()
	if err != nil {
		return nil, err
	}
	dataSize := 4 + length

	base2 := lazyFile{name: name, nameHash: nameHash, src: r, dataOffset: dataOffset, dataSize: dataSize}
	switch {
	case flags.Has(CompressedZstd):
		return &zstdFile{lazyFile: base2}, nil
	case flags.Has(Compressed):
		return &zlibFile{lazyFile: base2}, nil
	default:
		return &uncompressedFile{lazyFile: base2}, nil
	}
}

// readName reads the UTF-16 name stored at names_offset+offset.
func (r *Reader) readName(offset uint32) (string, error) {
	c := newCursor(r.src, int64(r.NamesOffset)+int64(offset))
	length, err := c.u16()
	if err != nil {
		return "", err
	}
	c.seek(c.tell() + 4) // skip the hash, read separately by readHash

	units := make([]uint16, length)
	for i := range units {
		u, err := c.u16()
		if err != nil {
			return "", err
		}
		units[i] = u
	}
	return decodeUTF16(units), nil
}

// readHash reads only the hash field of a name record.
func (r *Reader) readHash(offset uint32) (uint32, error) {
	c := newCursor(r.src, int64(r.NamesOffset)+int64(offset)+2)
	return c.u32()
}

// EntryDump is one raw tree-section record, as shown by the "entries" CLI
// command. It mirrors lilrcc's printEntries dump (original_source's
// resourcereader.cpp) rather than the materialized Node tree: a directory's
// ChildCount/FirstChild or a file's DataOffset, never both.
type EntryDump struct {
	Index      uint32
	Name       string
	NameHash   uint32
	Flags      Flags
	ChildCount uint32
	FirstChild uint32
	DataOffset uint32
}

// DumpEntries walks every reachable tree entry in physical index order —
// the breadth-first order the Writer's enumerate assigns indices in, and
// the order the tree section is laid out on disk — without building the
// in-memory Node tree, for the "entries" raw-inspection command.
func (r *Reader) DumpEntries() ([]EntryDump, error) {
	var out []EntryDump
	queue := []uint32{0}
	for len(queue) > 0 {
		entryIndex := queue[0]
		queue = queue[1:]

		dump, children, err := r.dumpEntry(entryIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, dump)
		queue = append(queue, children...)
	}
	return out, nil
}

// dumpEntry reads a single entry's dump record and, for a directory, the
// indices of its children (to be enqueued by the caller, not recursed into).
func (r *Reader) dumpEntry(entryIndex uint32) (EntryDump, []uint32, error) {
	base := int64(r.TreeOffset) + int64(entryIndex)*r.treeEntrySize
	c := newCursor(r.src, base)

	nameOffset, err := c.u32()
	if err != nil {
		return EntryDump{}, nil, err
	}
	flagBits, err := c.u16()
	if err != nil {
		return EntryDump{}, nil, err
	}
	flags := Flags(flagBits)

	// Entry 0 is always the root, whose name_offset/name_hash fields are
	// never interned and are meaningless on disk (invariant I3); resolving
	// them via readName/readHash would read whatever real name happens to
	// land at offset 0. Report the fixed root identity instead.
	var name string
	var nameHash uint32
	if entryIndex == 0 {
		name, nameHash = ":", 0
	} else {
		name, err = r.readName(nameOffset)
		if err != nil {
			return EntryDump{}, nil, err
		}
		nameHash, err = r.readHash(nameOffset)
		if err != nil {
			return EntryDump{}, nil, err
		}
	}

	dump := EntryDump{Index: entryIndex, Name: name, NameHash: nameHash, Flags: flags}

	if flags.IsDir() {
		childCount, err := c.u32()
		if err != nil {
			return EntryDump{}, nil, err
		}
		firstChild, err := c.u32()
		if err != nil {
			return EntryDump{}, nil, err
		}
		dump.ChildCount, dump.FirstChild = childCount, firstChild

		children := make([]uint32, childCount)
		for k := range children {
			children[k] = firstChild + uint32(k)
		}
		return dump, children, nil
	}

	c.seek(base + 10)
	dataOffset, err := c.u32()
	if err != nil {
		return EntryDump{}, nil, err
	}
	dump.DataOffset = dataOffset
	return dump, nil, nil
}

// NameDump is one names-section record, as shown by the "names" CLI
// command.
type NameDump struct {
	Offset uint32
	Hash   uint32
	Name   string
}

// DumpNames returns every distinct name referenced by the reachable tree
// entries, in the order they are first encountered during a DumpEntries
// walk, alongside their names-section offset.
func (r *Reader) DumpNames() ([]NameDump, error) {
	entries, err := r.DumpEntries()
	if err != nil {
		return nil, err
	}

	seen := make(map[uint32]bool)
	var out []NameDump
	for _, e := range entries {
		if e.Index == 0 {
			// the root's name_offset is never interned; see dumpEntry.
			continue
		}
		base := int64(r.TreeOffset) + int64(e.Index)*r.treeEntrySize
		c := newCursor(r.src, base)
		nameOffset, err := c.u32()
		if err != nil {
			return nil, err
		}
		if seen[nameOffset] {
			continue
		}
		seen[nameOffset] = true
		out = append(out, NameDump{Offset: nameOffset, Hash: e.NameHash, Name: e.Name})
	}
	return out, nil
}

// readRawFileData reads a file's length-prefixed data record and returns
// the payload bytes, without the 4-byte length word.
func (r *Reader) readRawFileData(dataOffset uint32) ([]byte, error) {
	c := newCursor(r.src, int64(r.DataOffset)+int64(dataOffset))
	length, err := c.u32()
	if err != nil {
		return nil, err
	}
	return c.readN(int(length))
}
