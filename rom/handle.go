// Package rom provides random-access, little-endian reads over a Game Boy
// Advance ROM image, plus the address masking Krawall's in-ROM pointers
// require.
package rom

import (
	"fmt"
	"io"
	"os"

	"github.com/yumland/gbarom"
)

// RegionMask covers the GBA ROM address space bit (0x08000000-0x09FFFFFF).
const RegionMask = 0x08000000

// ForeignBitsMask, when any of these bits are set on a candidate pointer,
// disqualifies it: it is not a plain GBA ROM address.
const ForeignBitsMask = 0xF6000000

// OffsetMask extracts the file offset from a GBA ROM address.
const OffsetMask = 0x01FFFFFF

// Handle is a borrowed, read-only view over a ROM image. It is never
// mutated and may be shared freely across decode calls; every read seeks
// explicitly, so callers never depend on a "current position."
type Handle struct {
	r     io.ReaderAt
	size  int64
	Title string // best-effort GBA cartridge title, empty if unavailable
}

// Open wraps an io.ReaderAt of the given size as a ROM handle.
func Open(r io.ReaderAt, size int64) *Handle {
	h := &Handle{r: r, size: size}
	if title, err := gbarom.ReadROMTitle(io.NewSectionReader(r, 0, size)); err == nil {
		h.Title = title
	}
	return h
}

// OpenFile opens a ROM image from disk.
func OpenFile(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rom: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("rom: stat %s: %w", path, err)
	}
	return Open(f, info.Size()), nil
}

// Size returns the ROM size in bytes.
func (h *Handle) Size() int64 { return h.size }

// Mask extracts the file offset a GBA ROM pointer refers to.
func Mask(addr uint32) uint32 { return addr & OffsetMask }

// IsGBAPointer reports whether a raw 32-bit word looks like a GBA ROM
// address: the region bit set, no foreign high bits.
func IsGBAPointer(w uint32) bool {
	return w&RegionMask != 0 && w&ForeignBitsMask == 0
}

func (h *Handle) readAt(offset uint32, buf []byte) error {
	n, err := h.r.ReadAt(buf, int64(offset))
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return fmt.Errorf("rom: read %d bytes at 0x%08X: %w", len(buf), offset, err)
	}
	return nil
}

// U8 reads an unsigned byte at offset.
func (h *Handle) U8(offset uint32) (uint8, error) {
	var b [1]byte
	if err := h.readAt(offset, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// I8 reads a signed byte at offset.
func (h *Handle) I8(offset uint32) (int8, error) {
	v, err := h.U8(offset)
	return int8(v), err
}

// U16 reads a little-endian unsigned 16-bit value at offset.
func (h *Handle) U16(offset uint32) (uint16, error) {
	var b [2]byte
	if err := h.readAt(offset, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// U32 reads a little-endian unsigned 32-bit value at offset.
func (h *Handle) U32(offset uint32) (uint32, error) {
	var b [4]byte
	if err := h.readAt(offset, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// I32 reads a little-endian signed 32-bit value at offset.
func (h *Handle) I32(offset uint32) (int32, error) {
	v, err := h.U32(offset)
	return int32(v), err
}

// Bytes reads n raw bytes at offset.
func (h *Handle) Bytes(offset uint32, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := h.readAt(offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Pointer reads a raw 32-bit word at offset and, if it looks like a GBA
// ROM address, returns the masked file offset it refers to.
func (h *Handle) Pointer(offset uint32) (target uint32, ok bool, err error) {
	w, err := h.U32(offset)
	if err != nil {
		return 0, false, err
	}
	if !IsGBAPointer(w) {
		return 0, false, nil
	}
	return Mask(w), true, nil
}
