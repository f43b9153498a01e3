package krawall

import "github.com/jackmacwindows/unkrawerter/rom"

// Event follow-byte flags: the low 5 bits select a channel, the high 3
// bits indicate which optional fields follow.
const (
	flagNoteInstrument = 0x20
	flagVolume         = 0x40
	flagEffect         = 0x80
	channelMask        = 0x1F
)

// NoteEvent is one decoded channel event within a row. Present is false
// for a channel with no event on a given row. The three Has* flags
// mirror the follow byte's independent field bits: a channel can carry
// any subset of note+instrument, volume, and effect on a given row, and
// downstream encoders need to know which fields actually arrived rather
// than inferring it from zero values.
type NoteEvent struct {
	Present       bool
	HasNoteInstr  bool
	HasVolume     bool
	HasEffect     bool
	Note          byte
	Volume        byte
	Effect        byte
	EffectOp      byte
	Instrument    uint16
}

// patternHeaderSize is the 16-entry per-channel scratch index (u16 each,
// 32 bytes) preceding the rows field.
const patternHeaderSize = 16 * 2

// Pattern is one Krawall pattern: a row count plus its packed event
// stream. Grid is left nil by ReadPattern; the XM and S3M writers decode
// Raw with transcode.Grid into their own grids and do not store the
// result here.
type Pattern struct {
	Rows      int
	Grid      [][]NoteEvent
	Raw       []byte
	S3MLength int
}

// ReadPattern decodes the pattern at offset: a 32-byte per-channel
// scratch index (ignored), a rows field (1 byte before the 2004-07-07
// cutoff, 2 bytes after), then the packed event stream.
// The stream is scanned once to determine its byte length; Raw holds
// exactly those bytes, unparsed, for S3M passthrough.
func ReadPattern(r *rom.Handle, offset uint32, v Version) (Pattern, error) {
	pos := offset + patternHeaderSize

	var rows int
	if v.Before2004() {
		b, err := r.U8(pos)
		if err != nil {
			return Pattern{}, err
		}
		rows = int(b)
		pos++
	} else {
		w, err := r.U16(pos)
		if err != nil {
			return Pattern{}, err
		}
		rows = int(w)
		pos += 2
	}

	streamStart := pos
	s3mLength := 0
	for row := 0; row < rows; row++ {
		for {
			follow, err := r.U8(pos)
			if err != nil {
				return Pattern{}, err
			}
			pos++
			s3mLength++
			if follow == 0 {
				break
			}
			if follow&flagNoteInstrument != 0 {
				if v.Before2004() {
					pos += 2
				} else {
					noteByte, err := r.U8(pos)
					if err != nil {
						return Pattern{}, err
					}
					if noteByte&0x80 != 0 {
						pos += 3
					} else {
						pos += 2
					}
				}
				s3mLength += 2
			}
			if follow&flagVolume != 0 {
				pos++
				s3mLength++
			}
			if follow&flagEffect != 0 {
				pos += 2
				s3mLength += 2
			}
		}
	}

	raw, err := r.Bytes(streamStart, int(pos-streamStart))
	if err != nil {
		return Pattern{}, err
	}

	return Pattern{Rows: rows, Raw: raw, S3MLength: s3mLength}, nil
}
