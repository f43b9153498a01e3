package krawall

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jackmacwindows/unkrawerter/rom"
)

func buildPatternROM(t *testing.T, v Version, rows int, stream []byte) *rom.Handle {
	t.Helper()
	buf := make([]byte, patternHeaderSize)
	if v.Before2004() {
		buf = append(buf, byte(rows))
	} else {
		var rowBuf [2]byte
		binary.LittleEndian.PutUint16(rowBuf[:], uint16(rows))
		buf = append(buf, rowBuf[:]...)
	}
	buf = append(buf, stream...)
	return rom.Open(bytes.NewReader(buf), int64(len(buf)))
}

func TestReadPatternEmptyRow(t *testing.T) {
	h := buildPatternROM(t, DefaultVersion, 1, []byte{0x00})
	p, err := ReadPattern(h, 0, DefaultVersion)
	if err != nil {
		t.Fatalf("ReadPattern: %v", err)
	}
	if p.Rows != 1 {
		t.Errorf("Rows = %d, want 1", p.Rows)
	}
	if !bytes.Equal(p.Raw, []byte{0x00}) {
		t.Errorf("Raw = %v, want [0]", p.Raw)
	}
	if p.S3MLength != 1 {
		t.Errorf("S3MLength = %d, want 1", p.S3MLength)
	}
}

func TestReadPatternSingleNoteRow(t *testing.T) {
	stream := []byte{0x20 | 0x00, 0x3D, 0x01, 0x00}
	h := buildPatternROM(t, DefaultVersion, 1, stream)
	p, err := ReadPattern(h, 0, DefaultVersion)
	if err != nil {
		t.Fatalf("ReadPattern: %v", err)
	}
	if !bytes.Equal(p.Raw, stream) {
		t.Errorf("Raw = %v, want %v", p.Raw, stream)
	}
	if p.S3MLength != 4 {
		t.Errorf("S3MLength = %d, want 4", p.S3MLength)
	}
}

func TestReadPatternNoteInstrument3ByteForm(t *testing.T) {
	// high bit of note byte set: extends instrument to a third byte.
	stream := []byte{0x20, 0x80 | 0x10, 0x02, 0xFF}
	h := buildPatternROM(t, DefaultVersion, 1, append(append([]byte{}, stream...), 0x00))
	p, err := ReadPattern(h, 0, DefaultVersion)
	if err != nil {
		t.Fatalf("ReadPattern: %v", err)
	}
	// 1 follow byte, 3 note+instrument bytes, 1 terminator byte.
	if len(p.Raw) != 5 {
		t.Errorf("len(Raw) = %d, want 5", len(p.Raw))
	}
	// S3M accounting always counts note+instrument as 2 bytes regardless
	// of the 3-byte source form.
	if p.S3MLength != 1+2+1 {
		t.Errorf("S3MLength = %d, want 4", p.S3MLength)
	}
}

func TestReadPatternPreCutoffVersion(t *testing.T) {
	v := Version(0x20040101)
	stream := []byte{0x20, 0x3D, 0x01, 0x00}
	h := buildPatternROM(t, v, 1, stream)
	p, err := ReadPattern(h, 0, v)
	if err != nil {
		t.Fatalf("ReadPattern: %v", err)
	}
	if !bytes.Equal(p.Raw, stream) {
		t.Errorf("Raw = %v, want %v", p.Raw, stream)
	}
}
