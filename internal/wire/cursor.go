// Package wire provides the small seek-based backpatch cursor both the
// XM and S3M writers use: write forward, reserve a placeholder, and
// come back later once the real value (a size, a parapointer) is known.
package wire

import (
	"encoding/binary"
	"io"
)

// Cursor wraps an io.WriteSeeker and tracks the current write position
// itself, so callers never need to query the underlying seeker for it.
type Cursor struct {
	w   io.WriteSeeker
	pos int64
}

// New wraps w for sequential writes with backpatch support.
func New(w io.WriteSeeker) *Cursor {
	return &Cursor{w: w}
}

// Pos returns the current write offset.
func (c *Cursor) Pos() int64 { return c.pos }

// Write appends p at the current position.
func (c *Cursor) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += int64(n)
	return n, err
}

// WriteByte appends a single byte.
func (c *Cursor) WriteByte(b byte) error {
	_, err := c.Write([]byte{b})
	return err
}

// WriteU16 appends a little-endian uint16.
func (c *Cursor) WriteU16(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := c.Write(b[:])
	return err
}

// WriteU32 appends a little-endian uint32.
func (c *Cursor) WriteU32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := c.Write(b[:])
	return err
}

// WriteZeros appends n zero bytes, used for fixed-width padding fields.
func (c *Cursor) WriteZeros(n int) error {
	_, err := c.Write(make([]byte, n))
	return err
}

// WriteString appends s as raw bytes, then pads with zeros up to width
// (truncating s if it's already longer than width).
func (c *Cursor) WriteString(s string, width int) error {
	b := make([]byte, width)
	copy(b, s)
	_, err := c.Write(b)
	return err
}

// Reserve appends n zero bytes as a placeholder and returns the offset
// it started at, for a later Patch call.
func (c *Cursor) Reserve(n int) (int64, error) {
	offset := c.pos
	if err := c.WriteZeros(n); err != nil {
		return 0, err
	}
	return offset, nil
}

// PatchU16 overwrites the uint16 at offset with v, then returns the
// cursor to its prior write position.
func (c *Cursor) PatchU16(offset int64, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return c.patch(offset, b[:])
}

// PatchU32 overwrites the uint32 at offset with v, then returns the
// cursor to its prior write position.
func (c *Cursor) PatchU32(offset int64, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return c.patch(offset, b[:])
}

// PatchBytes overwrites len(data) bytes at offset, then returns the
// cursor to its prior write position.
func (c *Cursor) PatchBytes(offset int64, data []byte) error {
	return c.patch(offset, data)
}

func (c *Cursor) patch(offset int64, data []byte) error {
	saved := c.pos
	if _, err := c.w.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := c.w.Write(data); err != nil {
		return err
	}
	_, err := c.w.Seek(saved, io.SeekStart)
	return err
}
