package s3m

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/rom"
)

type memSeeker struct {
	buf []byte
	pos int64
}

func (m *memSeeker) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

// instrumentBasedModuleROM builds the smallest possible module whose
// FlagInstrumentBased bit is set: a 364-byte header, one pattern
// pointer, and a trivial one-row empty pattern.
func instrumentBasedModuleROM(t *testing.T) (*rom.Handle, uint32) {
	t.Helper()
	const moduleOffset = 0
	const pointerArrayOffset = 364
	const patternOffset = pointerArrayOffset + 4

	buf := make([]byte, patternOffset+32+2+1)
	buf[0] = 2 // channels
	buf[1] = 1 // numOrders
	buf[2] = 0 // songRestart
	// order[256] at offset 3: order[0] = 0, rest left zero (unused since numOrders=1)
	// channelPan[32], songIndex[64] left zero
	flagsOffset := 3 + 256 + 32 + 64 + 3 // = 358
	buf[flagsOffset] = 1                // FlagInstrumentBased

	binary.LittleEndian.PutUint32(buf[pointerArrayOffset:], 0x08000000+patternOffset)
	// pattern: 32-byte scratch header (zero), rows = 1, one empty row.
	binary.LittleEndian.PutUint16(buf[patternOffset+32:], 1)
	buf[patternOffset+34] = 0x00

	r := rom.Open(bytes.NewReader(buf), int64(len(buf)))
	return r, moduleOffset
}

func TestS3MRejectsInstrumentBasedModule(t *testing.T) {
	r, offset := instrumentBasedModuleROM(t)
	m := &memSeeker{}
	err := Write(m, r, offset, []uint32{}, DefaultOptions())
	if !errors.Is(err, krawall.ErrUnsupported) {
		t.Errorf("Write err = %v, want ErrUnsupported", err)
	}
	if len(m.buf) != 0 {
		t.Errorf("wrote %d bytes on rejection, want 0", len(m.buf))
	}
}

// sampleBasedS3MModuleROM builds a minimal sample-based module with a
// 64-row first pattern (S3M's required row count) and one referenced
// sample, so Write's happy path can be exercised end to end.
func sampleBasedS3MModuleROM(t *testing.T) (r *rom.Handle, moduleOffset uint32, sampleOffsets []uint32) {
	t.Helper()
	const pointerArrayOffset = 364
	const patternOffset = pointerArrayOffset + 4
	const sampleHeaderLen = 18
	const sampleDataLen = 4

	// One row carries a note+instrument event on channel 0 referencing
	// sample index 0, followed by 63 empty rows.
	eventBytes := []byte{0x20 | 0x00, 0x0D, 0x00} // follow(ch0,noteinstr), note, instrument lo byte
	// Krawall's >=2004 note+instrument encoding: note byte with high bit
	// clear means a 1-byte instrument index follows (see ReadPattern).
	patternBody := append([]byte{}, eventBytes...)
	patternBody = append(patternBody, 0x00) // end of row 0
	for i := 1; i < 64; i++ {
		patternBody = append(patternBody, 0x00) // empty row terminator
	}

	sampleOffset := uint32(patternOffset + patternHeaderTestSize(len(patternBody)))

	buf := make([]byte, int(sampleOffset)+sampleHeaderLen+sampleDataLen)
	buf[0] = 2 // channels
	buf[1] = 1 // numOrders
	binary.LittleEndian.PutUint32(buf[pointerArrayOffset:], 0x08000000+patternOffset)

	binary.LittleEndian.PutUint16(buf[patternOffset+32:], 64) // rows = 64
	copy(buf[patternOffset+34:], patternBody)

	// Sample header per internal/krawall/sample.go: loopLength u32 (0),
	// end-address pointer u32 at +4, c2Freq u32 at +8, then scalar bytes.
	binary.LittleEndian.PutUint32(buf[sampleOffset+4:], 0x08000000+sampleOffset+sampleHeaderLen+sampleDataLen)
	copy(buf[sampleOffset+sampleHeaderLen:], []byte{0x10, 0x20, 0x30, 0x40})

	rh := rom.Open(bytes.NewReader(buf), int64(len(buf)))
	return rh, 0, []uint32{sampleOffset}
}

// patternHeaderTestSize mirrors krawall.ReadPattern's fixed 32-byte
// per-channel scratch index plus the 2-byte rows field used for
// versions at or after the 2004-07-07 cutoff.
func patternHeaderTestSize(bodyLen int) int {
	return 32 + 2 + bodyLen
}

func TestS3MWriteAlignsBlocksTo16Bytes(t *testing.T) {
	r, offset, sampleOffsets := sampleBasedS3MModuleROM(t)
	m := &memSeeker{}
	if err := Write(m, r, offset, sampleOffsets, DefaultOptions()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(m.buf) == 0 {
		t.Fatal("Write produced no output")
	}

	plan := planLayout(krawall.Module{
		Order:    []byte{0},
		Patterns: []krawall.Pattern{{Rows: 64, S3MLength: 67}},
	}, []krawall.Sample{{Size: 4}})
	// Each parapointer addresses a 16-byte boundary by construction; check
	// that Write really placed the matching block at that boundary.
	for _, p := range plan.sampleHeaderParapointers {
		if at := int(p) * 16; string(m.buf[at+0x4C:at+0x50]) != "SCRS" {
			t.Errorf("sample header parapointer %d: no sample header at offset %d", p, at)
		}
	}
	for _, p := range plan.patternParapointers {
		if at := int(p) * 16; binary.LittleEndian.Uint16(m.buf[at:]) != 67 {
			t.Errorf("pattern parapointer %d: no 67-byte pattern body at offset %d", p, at)
		}
	}
	for _, p := range plan.sampleDataParapointers {
		if at := int(p) * 16; !bytes.Equal(m.buf[at:at+4], []byte{0x10, 0x20, 0x30, 0x40}) {
			t.Errorf("sample data parapointer %d: sample PCM not at offset %d", p, at)
		}
	}
}

func TestS3MRejectsWrongFirstPatternRowCount(t *testing.T) {
	const pointerArrayOffset = 364
	const patternOffset = pointerArrayOffset + 4

	buf := make([]byte, patternOffset+32+2+1)
	buf[0] = 2
	buf[1] = 1
	binary.LittleEndian.PutUint32(buf[pointerArrayOffset:], 0x08000000+patternOffset)
	binary.LittleEndian.PutUint16(buf[patternOffset+32:], 1) // rows = 1, not 64
	buf[patternOffset+34] = 0x00

	r := rom.Open(bytes.NewReader(buf), int64(len(buf)))
	m := &memSeeker{}
	err := Write(m, r, 0, []uint32{0}, DefaultOptions())
	if !errors.Is(err, krawall.ErrUnsupported) {
		t.Errorf("Write err = %v, want ErrUnsupported", err)
	}
}

func TestAlign16(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {1, 16}, {15, 16}, {16, 16}, {17, 32},
	}
	for _, c := range cases {
		if got := align16(c.in); got != c.want {
			t.Errorf("align16(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEncodeS3MNote(t *testing.T) {
	if got := encodeS3MNote(noteOff); got != noteOffS3M {
		t.Errorf("encodeS3MNote(noteOff) = %d, want %d", got, noteOffS3M)
	}
	if got := encodeS3MNote(1); got != 0 {
		t.Errorf("encodeS3MNote(1) = %d, want 0 (octave 0, semitone 0)", got)
	}
	if got := encodeS3MNote(13); got != 0x10 {
		t.Errorf("encodeS3MNote(13) = 0x%02X, want 0x10 (octave 1, semitone 0)", got)
	}
}

func TestEncodeS3MVolume(t *testing.T) {
	if got := encodeS3MVolume(0x20); got != 0x10 {
		t.Errorf("encodeS3MVolume(0x20) = 0x%02X, want 0x10", got)
	}
	// (v - 0x40) << 2 is computed in byte arithmetic and wraps.
	if got := encodeS3MVolume(0xC5); got != byte((0xC5-0x40)<<2&0xFF) {
		t.Errorf("encodeS3MVolume(0xC5) = 0x%02X, want 0x%02X", got, byte((0xC5-0x40)<<2&0xFF))
	}
	if got := encodeS3MVolume(0x00); got != 0xFF {
		t.Errorf("encodeS3MVolume(0x00) = 0x%02X, want 0xFF", got)
	}
}
