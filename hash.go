package qres

import "unicode/utf16"

// utf16Units returns name's UTF-16 code units, the unit this package's
// on-disk name records and qtHash both operate over.
func utf16Units(name string) []uint16 {
	return utf16.Encode([]rune(name))
}

// decodeUTF16 reassembles a name from the UTF-16 code units stored in a
// names-section record (surrogate pairs included).
func decodeUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}

// qtHash computes the 32-bit rolling name hash used to order a directory's
// children and to key name records in the names section. It matches the
// host framework's qHash(QString) contract exactly: h = 31*h + c over each
// UTF-16 code unit, wrapping in uint32. Sibling ordering and binary search
// both rely on this being bit-for-bit identical to what the writer stored.
func qtHash(name string) uint32 {
	var h uint32
	for _, c := range utf16.Encode([]rune(name)) {
		h = 31*h + uint32(c)
	}
	return h
}
