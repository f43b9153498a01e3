package xm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/logging"
	"github.com/jackmacwindows/unkrawerter/internal/transcode"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
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

func TestUniqueAdjacentCollapsesOnlyConsecutive(t *testing.T) {
	var samples [96]uint16
	samples[0], samples[1], samples[2] = 5, 5, 7
	samples[3] = 5 // reappears after 7: not collapsed with the earlier run of 5s
	unique, localIndex := uniqueAdjacent(samples)

	if len(unique) < 3 {
		t.Fatalf("len(unique) = %d, want at least 3", len(unique))
	}
	if localIndex[0] != localIndex[1] {
		t.Errorf("consecutive equal entries 0,1 got different local indices: %d, %d", localIndex[0], localIndex[1])
	}
	if localIndex[1] == localIndex[3] {
		t.Errorf("non-consecutive equal entries 1,3 collapsed to the same local index: unique_copy should not do this")
	}
}

func TestBuildInstrumentRemapTrimMonotonic(t *testing.T) {
	usage := []uint16{3, 1, 3, 2, 1}
	list, remap, err := buildInstrumentRemap(usage, true)
	if err != nil {
		t.Fatalf("buildInstrumentRemap: %v", err)
	}
	want := []uint16{3, 1, 2}
	if len(list) != len(want) {
		t.Fatalf("list = %v, want %v", list, want)
	}
	for i, v := range want {
		if list[i] != v {
			t.Errorf("list[%d] = %d, want %d", i, list[i], v)
		}
	}
	if remap[3] != 1 || remap[1] != 2 || remap[2] != 3 {
		t.Errorf("remap = %v, want first-encounter 1-based positions", remap)
	}
}

func TestBuildInstrumentRemapTooManyTrimmed(t *testing.T) {
	usage := make([]uint16, 0, maxInstrumentsTrimmed+1)
	for i := 0; i < maxInstrumentsTrimmed+1; i++ {
		usage = append(usage, uint16(i))
	}
	if _, _, err := buildInstrumentRemap(usage, true); err == nil {
		t.Fatal("buildInstrumentRemap: err = nil, want ErrTooManyInstruments")
	}
}

// sampleBasedModuleROM builds a minimal sample-based module: 2 channels,
// one order pointing at one pattern with a single empty row.
func sampleBasedModuleROM(t *testing.T) (*rom.Handle, uint32) {
	t.Helper()
	const pointerArrayOffset = 364
	const patternOffset = pointerArrayOffset + 4
	const patternHeaderSize = 32 // 16-entry per-channel scratch index, u16 each

	buf := make([]byte, patternOffset+patternHeaderSize+2+1)
	buf[0] = 2 // channels
	buf[1] = 1 // numOrders
	// order[0] = 0, flags all zero (sample-based, no linear slides)
	binary.LittleEndian.PutUint32(buf[pointerArrayOffset:], 0x08000000+patternOffset)
	binary.LittleEndian.PutUint16(buf[patternOffset+patternHeaderSize:], 1) // rows = 1
	buf[patternOffset+patternHeaderSize+2] = 0x00                           // empty row terminator

	r := rom.Open(bytes.NewReader(buf), int64(len(buf)))
	return r, 0
}

func TestWriteEmptyModuleEndToEnd(t *testing.T) {
	r, offset := sampleBasedModuleROM(t)
	m := &memSeeker{}
	err := Write(m, r, offset, nil, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if len(m.buf) < 340 {
		t.Fatalf("output too short: %d bytes", len(m.buf))
	}
	if string(m.buf[:len(bannerID)]) != bannerID {
		t.Errorf("banner = %q, want %q", m.buf[:len(bannerID)], bannerID)
	}

	patternStart := 340
	if m.buf[patternStart] != 9 {
		t.Errorf("pattern header byte = %d, want 9", m.buf[patternStart])
	}
	dataSize := binary.LittleEndian.Uint16(m.buf[patternStart+7 : patternStart+9])
	if dataSize != 2 {
		t.Errorf("pattern data size = %d, want 2", dataSize)
	}
	body := m.buf[patternStart+9 : patternStart+9+int(dataSize)]
	want := []byte{0x80, 0x80}
	if !bytes.Equal(body, want) {
		t.Errorf("pattern body = %v, want %v", body, want)
	}
}

// TestWriteSingleNoteRow exercises spec.md's canonical single-note-row
// packing example: a note+instrument event with no volume or effect
// column packs to selectors {note, instrument}, and the empty second
// channel collapses to the bare 0x80 marker.
func TestWriteSingleNoteRow(t *testing.T) {
	grid := [][]krawall.NoteEvent{
		{
			{Present: true, HasNoteInstr: true, Note: 0x3D, Instrument: 1},
		},
	}
	p := krawall.Pattern{Rows: 1}
	mod := krawall.Module{Channels: 2}
	mod.ChannelPan[0] = 0 // center: no default-pan override needed
	remap := map[uint16]uint16{1: 1}

	m := &memSeeker{}
	c := wire.New(m)
	session := transcode.NewSession(2)
	dedup := logging.NewDeduper()

	if _, _, err := writePattern(c, grid, p, mod, 0, remap, krawall.CurrentVersion(), DefaultOptions(), session, dedup, logging.Default); err != nil {
		t.Fatalf("writePattern: %v", err)
	}

	body := m.buf[patternHeaderLen:]
	want := []byte{0x83, 0x3D, 0x01, 0x80}
	if !bytes.Equal(body, want) {
		t.Errorf("body = %#v, want %#v", body, want)
	}
}

// TestBuildInstrumentRemapUntrimmedPreservesSourceIndex checks the
// untrimmed path's remap is the identity shift (source index + 1)
// rather than a first-encounter renumbering, since untrimmed XM output
// must keep each Krawall instrument at its own slot.
func TestBuildInstrumentRemapUntrimmedPreservesSourceIndex(t *testing.T) {
	usage := []uint16{9, 4, 4, 9, 1}
	_, remap, err := buildInstrumentRemap(usage, false)
	if err != nil {
		t.Fatalf("buildInstrumentRemap: %v", err)
	}
	if remap[9] != 10 || remap[4] != 5 || remap[1] != 2 {
		t.Errorf("remap = %v, want identity shift (idx+1)", remap)
	}
}

// TestWriteSampleDataEightBitDeltaRoundTrip checks that undoing
// writeSampleData's running-delta encoding (cumulative sum, then shift
// back out of the 0x80-biased unsigned domain) recovers the original
// signed 8-bit PCM bytes exactly.
func TestWriteSampleDataEightBitDeltaRoundTrip(t *testing.T) {
	s := krawall.Sample{Data: []byte{0x00, 0x7F, 0x80, 0xFF, 0x01, 0x01}}
	m := &memSeeker{}
	c := wire.New(m)
	if err := writeSampleData(c, s); err != nil {
		t.Fatalf("writeSampleData: %v", err)
	}

	prev := 0
	got := make([]byte, len(m.buf))
	for k, delta := range m.buf {
		v := (prev + int(delta)) & 0xFF
		got[k] = byte((v - 0x80) & 0xFF)
		prev = v
	}
	if !bytes.Equal(got, s.Data) {
		t.Errorf("round-tripped data = %#v, want %#v", got, s.Data)
	}
}

// TestWriteSampleDataHQDeltaRoundTrip is the 16-bit analogue: signed
// int16 deltas accumulate back to the original little-endian samples.
func TestWriteSampleDataHQDeltaRoundTrip(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint16(raw[0:2], uint16(int16(-100)))
	binary.LittleEndian.PutUint16(raw[2:4], uint16(int16(200)))
	binary.LittleEndian.PutUint16(raw[4:6], uint16(int16(200)))
	binary.LittleEndian.PutUint16(raw[6:8], uint16(int16(-32000)))
	s := krawall.Sample{HQ: true, Data: raw}

	m := &memSeeker{}
	c := wire.New(m)
	if err := writeSampleData(c, s); err != nil {
		t.Fatalf("writeSampleData: %v", err)
	}

	var prev int16
	got := make([]byte, len(m.buf))
	for k := 0; k+1 < len(m.buf); k += 2 {
		delta := int16(binary.LittleEndian.Uint16(m.buf[k : k+2]))
		v := prev + delta
		binary.LittleEndian.PutUint16(got[k:k+2], uint16(v))
		prev = v
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("round-tripped data = %#v, want %#v", got, raw)
	}
}

func TestWriteHeaderEmptyModule(t *testing.T) {
	mod := krawall.Module{
		Channels:  2,
		Order:     []byte{0},
		InitSpeed: 6,
		InitBPM:   125,
		Patterns:  make([]krawall.Pattern, 1),
	}
	m := &memSeeker{}
	c := wire.New(m)
	if _, err := writeHeader(c, mod, DefaultOptions()); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	if len(m.buf) != 64+276 {
		t.Errorf("header length = %d, want %d", len(m.buf), 64+276)
	}
	if string(m.buf[:len(bannerID)]) != bannerID {
		t.Errorf("banner = %q, want %q", m.buf[:len(bannerID)], bannerID)
	}
	if m.buf[37] != 0x1A {
		t.Errorf("marker byte at 37 = 0x%02X, want 0x1A", m.buf[37])
	}
}
