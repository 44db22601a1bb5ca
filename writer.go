package qres

import (
	"fmt"
	"io"

	"github.com/orcaman/writerseeker"
)

// CompressionAlgorithm selects how the Writer treats freshly added
// (uncompressed, in-memory) files when serializing. Files loaded from an
// existing container keep whatever compressed form their entry already has
// and are passed through unchanged (a repack never silently recompresses
// what it didn't touch). Modeled on the host framework's
// CompressionAlgorithm enum (Zlib/Zstd/Best/None).
type CompressionAlgorithm int

const (
	// CompressionNone leaves freshly added files uncompressed.
	CompressionNone CompressionAlgorithm = iota
	// CompressionZlib compresses freshly added files with zlib.
	CompressionZlib
	// CompressionZstd compresses freshly added files with zstd, applying
	// the cheap-trial/promote heuristic.
	CompressionZstd
	// CompressionBest tries both and keeps whichever is smaller.
	CompressionBest
)

// Writer serializes a ResourceLibrary's tree back into the qres binary
// format. It mirrors the teacher's Writer in spirit (functional options,
// a dual in-memory/direct output path) but the on-disk layout here is the
// header→data→names→tree order of SPEC_FULL.md §4.F rather than squashfs's
// block layout.
type Writer struct {
	version             uint32
	algo                CompressionAlgorithm
	zstdShrinkThreshold int
}

// NewWriter builds a Writer with the given options applied over defaults
// (version 3, no forced recompression of new files, the package default
// zstd shrink threshold).
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		version:             3,
		algo:                CompressionNone,
		zstdShrinkThreshold: DefaultZstdShrinkThreshold,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// treeRecord is the fully resolved, writer-local view of one tree entry,
// built during the enumerate pass and consumed unchanged during emit.
type treeRecord struct {
	node       Node
	nameOffset uint32
	flags      Flags
	// directory fields
	firstChild uint32
	childCount uint32
	// file fields
	dataOffset uint32
	body       []byte // GetCompressed() result, already final
}

type layout struct {
	records      []treeRecord
	names        []string // unique, in first-seen order
	nameOffset   map[string]uint32
	nameHash     map[string]uint32
	dataSize     uint32
	namesSize    uint32
	overallFlags uint32
}

// enumerate is pass 1: a breadth-first walk assigning entry indices,
// deduplicating names, and resolving each file's final on-disk flags and
// body so pass 2 can stream output without revisiting the tree.
func (w *Writer) enumerate(root *dirNode) (*layout, error) {
	lay := &layout{
		nameOffset: make(map[string]uint32),
		nameHash:   make(map[string]uint32),
	}

	// The root's own name is never interned (invariant I3: its name_offset
	// and name_hash are always 0, matching original_source/resourcewriter.cpp's
	// writeDataTree, which only interns child names).
	queue := []*dirNode{root}
	lay.records = append(lay.records, treeRecord{node: root})

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		rec := &lay.records[indexOf(lay.records, dir)]
		rec.firstChild = uint32(len(lay.records))
		rec.childCount = uint32(len(dir.children))
		rec.flags = Directory

		for _, child := range dir.children {
			if err := lay.internName(child.Name()); err != nil {
				return nil, err
			}

			cr := treeRecord{node: child}
			if cd, ok := child.(*dirNode); ok {
				cr.flags = Directory
				queue = append(queue, cd)
			} else {
				f := child.(File)
				flags, body, err := w.resolveFile(f)
				if err != nil {
					return nil, fmt.Errorf("qres: %s: %w", child.Name(), err)
				}
				cr.flags = flags
				cr.body = body
				cr.dataOffset = lay.dataSize
				lay.dataSize += uint32(4 + len(body))
				lay.overallFlags |= uint32(flags)
			}
			lay.records = append(lay.records, cr)
		}
	}

	return lay, nil
}

// resolveFile decides the final flags/body for a file entry. Files that
// already carry a compression flag (loaded from a source container) are
// passed through via GetCompressed without touching their bytes; only
// freshly added, uncompressed files are subject to the Writer's configured
// CompressionAlgorithm.
func (w *Writer) resolveFile(f File) (Flags, []byte, error) {
	if _, fresh := f.(*bytesFile); fresh && f.Compression() == NoFlags {
		raw, err := f.GetCompressed()
		if err != nil {
			return 0, nil, err
		}
		return w.compress(raw)
	}
	body, err := f.GetCompressed()
	if err != nil {
		return 0, nil, err
	}
	return f.Compression(), body, nil
}

func (w *Writer) compress(raw []byte) (Flags, []byte, error) {
	switch w.algo {
	case CompressionNone:
		return NoFlags, raw, nil
	case CompressionZlib:
		body, err := zlibEncode(raw)
		if err != nil {
			return 0, nil, err
		}
		return Compressed, body, nil
	case CompressionZstd:
		body, err := zstdEncode(raw, w.zstdShrinkThreshold)
		if err != nil {
			return 0, nil, err
		}
		return CompressedZstd, body, nil
	case CompressionBest:
		zl, err := zlibEncode(raw)
		if err != nil {
			return 0, nil, err
		}
		zs, err := zstdEncode(raw, w.zstdShrinkThreshold)
		if err != nil {
			return 0, nil, err
		}
		if len(zs) < len(zl) {
			return CompressedZstd, zs, nil
		}
		return Compressed, zl, nil
	default:
		return NoFlags, raw, nil
	}
}

func (l *layout) internName(name string) error {
	if _, ok := l.nameOffset[name]; ok {
		return nil
	}
	hash := qtHash(name)
	l.nameOffset[name] = l.namesSize
	l.nameHash[name] = hash
	l.names = append(l.names, name)
	l.namesSize += uint32(2 + 4 + 2*len(utf16Units(name)))
	return nil
}

func indexOf(records []treeRecord, dir *dirNode) int {
	for i, r := range records {
		if r.node == dir {
			return i
		}
	}
	return -1
}

// headerSize returns the fixed header length: 20 bytes for v1/v2, 24 bytes
// for v3 (the extra word is overall_flags).
func headerSize(version uint32) int64 {
	if version >= 3 {
		return 24
	}
	return 20
}

// Save serializes root (normally a ResourceLibrary's root) to dst using the
// header→data→names→tree order, rewriting the header once final offsets
// are known. When dst does not support seeking, output is staged in an
// in-memory writerseeker.WriterSeeker and copied to dst afterward.
func (w *Writer) Save(dst io.Writer, root Node) error {
	rootDir, ok := root.(*dirNode)
	if !ok {
		return fmt.Errorf("qres: write root must be a directory")
	}

	lay, err := w.enumerate(rootDir)
	if err != nil {
		return err
	}

	if seeker, ok := dst.(io.WriteSeeker); ok {
		return w.emit(seeker, lay)
	}

	var staged writerseeker.WriterSeeker
	if err := w.emit(&staged, lay); err != nil {
		return err
	}
	if _, err := io.Copy(dst, staged.Reader()); err != nil {
		return ioWrapf(err)
	}
	return nil
}

func (w *Writer) emit(dst io.WriteSeeker, lay *layout) error {
	hsz := headerSize(w.version)
	if _, err := dst.Write(make([]byte, hsz)); err != nil {
		return ioWrapf(err)
	}

	dataOffset := uint32(hsz)
	if err := w.writeData(dst, lay); err != nil {
		return err
	}

	namesOffset := dataOffset + lay.dataSize
	if err := w.writeNames(dst, lay); err != nil {
		return err
	}

	treeOffset := namesOffset + lay.namesSize
	if err := w.writeTree(dst, lay); err != nil {
		return err
	}

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return ioWrapf(err)
	}
	return w.writeHeader(dst, treeOffset, dataOffset, namesOffset, lay.overallFlags)
}

func (w *Writer) writeHeader(dst io.Writer, treeOffset, dataOffset, namesOffset, overallFlags uint32) error {
	if _, err := dst.Write([]byte(magic)); err != nil {
		return ioWrapf(err)
	}
	if err := writeU32(dst, w.version); err != nil {
		return err
	}
	if err := writeU32(dst, treeOffset); err != nil {
		return err
	}
	if err := writeU32(dst, dataOffset); err != nil {
		return err
	}
	if err := writeU32(dst, namesOffset); err != nil {
		return err
	}
	if w.version >= 3 {
		if err := writeU32(dst, overallFlags); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeData(dst io.Writer, lay *layout) error {
	for _, rec := range lay.records {
		if rec.flags.IsDir() {
			continue
		}
		if err := writeU32(dst, uint32(len(rec.body))); err != nil {
			return err
		}
		if _, err := dst.Write(rec.body); err != nil {
			return ioWrapf(err)
		}
	}
	return nil
}

func (w *Writer) writeNames(dst io.Writer, lay *layout) error {
	for _, name := range lay.names {
		units := utf16Units(name)
		if err := writeU16(dst, uint16(len(units))); err != nil {
			return err
		}
		if err := writeU32(dst, lay.nameHash[name]); err != nil {
			return err
		}
		for _, u := range units {
			if err := writeU16(dst, u); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeTree(dst io.Writer, lay *layout) error {
	for _, rec := range lay.records {
		if err := writeU32(dst, lay.nameOffset[rec.node.Name()]); err != nil {
			return err
		}
		if err := writeU16(dst, uint16(rec.flags)); err != nil {
			return err
		}
		if rec.flags.IsDir() {
			if err := writeU32(dst, rec.childCount); err != nil {
				return err
			}
			if err := writeU32(dst, rec.firstChild); err != nil {
				return err
			}
		} else {
			if err := writeU16(dst, 0); err != nil { // language
				return err
			}
			if err := writeU16(dst, 0); err != nil { // territory
				return err
			}
			if err := writeU32(dst, rec.dataOffset); err != nil {
				return err
			}
		}
		if w.version >= 2 {
			if err := writeU64(dst, 0); err != nil { // last_modified, always 0 (SPEC_FULL.md §9)
				return err
			}
		}
	}
	return nil
}
