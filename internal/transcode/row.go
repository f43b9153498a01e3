package transcode

import (
	"fmt"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
)

// Follow-byte flags, mirroring internal/krawall's pattern scanner.
const (
	flagNoteInstrument = 0x20
	flagVolume         = 0x40
	flagEffect         = 0x80
	channelMask        = 0x1F
)

// noteOff is emitted in place of an out-of-range or zero note value.
const noteOff = 97

func normalizeNote(n byte) byte {
	if n > noteOff || n == 0 {
		return noteOff
	}
	return n
}

// DecodeRow decodes one row of raw starting at pos, returning one
// NoteEvent per channel (Present=false where the row carries no event
// for that channel) and the position just past the row's terminating
// zero byte.
func DecodeRow(raw []byte, pos int, channels int, v krawall.Version) ([]krawall.NoteEvent, int, error) {
	events := make([]krawall.NoteEvent, channels)
	for {
		if pos >= len(raw) {
			return nil, pos, fmt.Errorf("transcode: row truncated at byte %d", pos)
		}
		follow := raw[pos]
		pos++
		if follow == 0 {
			break
		}
		ch := int(follow & channelMask)

		var ev krawall.NoteEvent
		if ch < channels {
			ev = events[ch]
		}
		ev.Present = true

		if follow&flagNoteInstrument != 0 {
			note, instrument, n, err := decodeNoteInstrument(raw, pos, v)
			if err != nil {
				return nil, pos, err
			}
			ev.HasNoteInstr = true
			ev.Note = note
			ev.Instrument = instrument
			pos = n
		}
		if follow&flagVolume != 0 {
			if pos >= len(raw) {
				return nil, pos, fmt.Errorf("transcode: truncated volume field at byte %d", pos)
			}
			ev.HasVolume = true
			ev.Volume = raw[pos]
			pos++
		}
		if follow&flagEffect != 0 {
			if pos+2 > len(raw) {
				return nil, pos, fmt.Errorf("transcode: truncated effect field at byte %d", pos)
			}
			ev.HasEffect = true
			ev.Effect = raw[pos]
			ev.EffectOp = raw[pos+1]
			pos += 2
		}

		if ch < channels {
			events[ch] = ev
		}
	}
	return events, pos, nil
}

// decodeNoteInstrument decodes the note+instrument field per the
// version's layout: the pre-2004-07-07 bit-steal form (2 bytes, the
// note's low bit steals into the instrument's high bit) or the later
// form (2 bytes, optionally extended to 3 when the note byte's high bit
// is set).
func decodeNoteInstrument(raw []byte, pos int, v krawall.Version) (note byte, instrument uint16, next int, err error) {
	if v.Before2004() {
		if pos+2 > len(raw) {
			return 0, 0, pos, fmt.Errorf("transcode: truncated note+instrument field at byte %d", pos)
		}
		b0, b1 := raw[pos], raw[pos+1]
		instrument = uint16(b1) | uint16(b0&1)<<8
		note = normalizeNote(b0 >> 1)
		return note, instrument, pos + 2, nil
	}

	if pos+2 > len(raw) {
		return 0, 0, pos, fmt.Errorf("transcode: truncated note+instrument field at byte %d", pos)
	}
	noteByte, instrByte := raw[pos], raw[pos+1]
	pos += 2
	if noteByte&0x80 != 0 {
		if pos >= len(raw) {
			return 0, 0, pos, fmt.Errorf("transcode: truncated 3-byte note+instrument field at byte %d", pos)
		}
		instrument = uint16(instrByte) | uint16(raw[pos])<<8
		pos++
		note = normalizeNote(noteByte & 0x7F)
	} else {
		instrument = uint16(instrByte)
		note = normalizeNote(noteByte)
	}
	return note, instrument, pos, nil
}

// Grid decodes every row of a pattern's raw event stream into a dense
// per-channel grid.
func Grid(raw []byte, rows, channels int, v krawall.Version) ([][]krawall.NoteEvent, error) {
	grid := make([][]krawall.NoteEvent, rows)
	pos := 0
	for row := 0; row < rows; row++ {
		events, next, err := DecodeRow(raw, pos, channels, v)
		if err != nil {
			return nil, fmt.Errorf("transcode: row %d: %w", row, err)
		}
		grid[row] = events
		pos = next
	}
	return grid, nil
}
