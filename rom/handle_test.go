package rom

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestMask(t *testing.T) {
	cases := []struct {
		pointer uint32
		want    uint32
	}{
		{0x08000000, 0x00000000},
		{0x080001A4, 0x000001A4},
		{0x09FFFFFF, 0x01FFFFFF},
	}
	for _, c := range cases {
		if got := Mask(c.pointer); got != c.want {
			t.Errorf("Mask(0x%08X) = 0x%08X, want 0x%08X", c.pointer, got, c.want)
		}
		if c.pointer&RegionMask == 0 {
			t.Errorf("test fixture 0x%08X does not set the region bit", c.pointer)
		}
	}
}

func TestIsGBAPointer(t *testing.T) {
	cases := []struct {
		word uint32
		want bool
	}{
		{0x08000000, true},
		{0x0801FFFF, true},
		{0x00000000, false},  // no region bit
		{0x0A000000, false},  // foreign bit set alongside region-ish range
		{0xFFFFFFFF, false},  // foreign bits set
		{0x08080808, true},   // region bit set, no foreign bits; disqualified elsewhere by discover
	}
	for _, c := range cases {
		if got := IsGBAPointer(c.word); got != c.want {
			t.Errorf("IsGBAPointer(0x%08X) = %v, want %v", c.word, got, c.want)
		}
	}
}

func TestHandleReads(t *testing.T) {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:], 0xDEADBEEF)
	binary.LittleEndian.PutUint16(buf[4:], 0x1234)
	buf[6] = 0xFE // -2 as int8
	copy(buf[8:], []byte{0x01, 0x02, 0x03, 0x04})

	h := Open(bytes.NewReader(buf), int64(len(buf)))

	if v, err := h.U32(0); err != nil || v != 0xDEADBEEF {
		t.Errorf("U32(0) = 0x%08X, %v; want 0xDEADBEEF, nil", v, err)
	}
	if v, err := h.U16(4); err != nil || v != 0x1234 {
		t.Errorf("U16(4) = 0x%04X, %v; want 0x1234, nil", v, err)
	}
	if v, err := h.I8(6); err != nil || v != -2 {
		t.Errorf("I8(6) = %d, %v; want -2, nil", v, err)
	}
	got, err := h.Bytes(8, 4)
	if err != nil {
		t.Fatalf("Bytes(8, 4): %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("Bytes(8, 4) = %v, want [1 2 3 4]", got)
	}
}

func TestHandlePointer(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], 0x080001A4)
	binary.LittleEndian.PutUint32(buf[4:], 0x00000001)

	h := Open(bytes.NewReader(buf), int64(len(buf)))

	target, ok, err := h.Pointer(0)
	if err != nil || !ok || target != 0x1A4 {
		t.Errorf("Pointer(0) = 0x%08X, %v, %v; want 0x1A4, true, nil", target, ok, err)
	}
	if _, ok, err := h.Pointer(4); err != nil || ok {
		t.Errorf("Pointer(4) ok = %v, want false", ok)
	}
}

func TestHandleReadPastEnd(t *testing.T) {
	h := Open(bytes.NewReader([]byte{0x01, 0x02}), 2)
	if _, err := h.U32(0); err == nil {
		t.Errorf("U32 past end of ROM: got nil error, want error")
	}
}
