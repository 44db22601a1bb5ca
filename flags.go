package qres

import "strings"

// Flags is the per-tree-entry bitfield stored in a container's tree section.
type Flags uint16

const (
	// NoFlags marks an uncompressed file entry (or is ignored on directories).
	NoFlags Flags = 0x00
	// Compressed marks a zlib-compressed file entry.
	Compressed Flags = 0x01
	// Directory marks a directory entry.
	Directory Flags = 0x02
	// CompressedZstd marks a zstd-compressed file entry.
	CompressedZstd Flags = 0x04
)

func (f Flags) String() string {
	var opt []string
	if f&Directory != 0 {
		opt = append(opt, "Directory")
	}
	if f&Compressed != 0 {
		opt = append(opt, "Compressed")
	}
	if f&CompressedZstd != 0 {
		opt = append(opt, "CompressedZstd")
	}
	return strings.Join(opt, "|")
}

func (f Flags) Has(what Flags) bool {
	return f&what == what
}

func (f Flags) IsDir() bool {
	return f.Has(Directory)
}
