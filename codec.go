package qres

import (
	"fmt"
	"io"
)

// cursor is a sequential big-endian scalar reader over a random-access byte
// source. It plays the role the teacher's Superblock/tableReader pair plays
// for squashfs: seek to an absolute offset, then read fields one at a time.
type cursor struct {
	src io.ReaderAt
	off int64
}

func newCursor(src io.ReaderAt, off int64) *cursor {
	return &cursor{src: src, off: off}
}

// seek moves the cursor to an absolute byte offset.
func (c *cursor) seek(off int64) {
	c.off = off
}

// tell returns the cursor's current absolute byte offset.
func (c *cursor) tell() int64 {
	return c.off
}

// readN reads exactly n bytes at the current offset and advances it.
func (c *cursor) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := c.src.ReadAt(buf, c.off)
	if err != nil && !(err == io.EOF && read == n) {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedSection, err)
	}
	c.off += int64(n)
	return buf, nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.readN(2)
	if err != nil {
		return 0, err
	}
	return decodeU16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.readN(4)
	if err != nil {
		return 0, err
	}
	return decodeU32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.readN(8)
	if err != nil {
		return 0, err
	}
	return decodeU64(b), nil
}

func decodeU16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func decodeU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// decodeU64 decodes a big-endian uint64. The shifts are 56/48/40/32/24/16/8/0;
// the original lilrcc reader used 54 instead of 56 for the top byte, which is
// a bug we do not reproduce (see SPEC_FULL.md §9).
func decodeU64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

func encodeU16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func encodeU64(v uint64) []byte {
	return []byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
}

// writeU8 writes a single byte, wrapping any write failure so callers can
// attribute it to the underlying sink rather than the codec itself.
func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return ioWrapf(err)
}

func writeU16(w io.Writer, v uint16) error {
	_, err := w.Write(encodeU16(v))
	return ioWrapf(err)
}

func writeU32(w io.Writer, v uint32) error {
	_, err := w.Write(encodeU32(v))
	return ioWrapf(err)
}

func writeU64(w io.Writer, v uint64) error {
	_, err := w.Write(encodeU64(v))
	return ioWrapf(err)
}

func ioWrapf(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("qres: io error: %w", err)
}
