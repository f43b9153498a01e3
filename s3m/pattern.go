package s3m

import (
	"github.com/jackmacwindows/unkrawerter/effect"
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/logging"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
)

const noteOff = 97
const noteOffS3M = 254

// follow-byte selector bits, matching internal/krawall's pattern scanner.
const (
	flagNoteInstrument = 0x20
	flagVolume         = 0x40
	flagEffect         = 0x80
	channelMask        = 0x1F
)

// writePatternBody re-encodes one decoded row grid into S3M's own
// sparse event format and writes it prefixed by its u16 byte length;
// the caller aligns the write position to 16 bytes first. The follow
// byte is reconstructed rather than copied from Pattern.Raw (its bit meaning is identical either way) because the
// note, instrument, and volume fields all need per-event translation.
func writePatternBody(c *wire.Cursor, grid [][]krawall.NoteEvent, p krawall.Pattern, channels int, instrumentMap map[uint16]uint16, patIdx int, dedup *logging.Deduper, log logging.Logger) error {
	buf := make([]byte, 0, p.S3MLength)

	for _, row := range grid {
		for ch := 0; ch < channels && ch < len(row); ch++ {
			ev := row[ch]
			if !ev.HasNoteInstr && !ev.HasVolume && !ev.HasEffect {
				continue
			}

			var effByte, opByte byte
			hasEffect := ev.HasEffect
			if ev.HasEffect {
				e, o, ok := effect.RemapS3M(ev.Effect, ev.EffectOp)
				if !ok {
					// Byte count must still match Pattern.S3MLength (computed
					// before remapping) so every later pattern's parapointer
					// stays valid; emit S3M's "no effect" code 0 in its place.
					dedup.WarnOnce(log, patIdx, "effect-dropped", "pattern %d: dropped unsupported effect code %d", patIdx, ev.Effect)
				} else {
					effByte, opByte = e, o
				}
			}

			follow := byte(ch) & channelMask
			if ev.HasNoteInstr {
				follow |= flagNoteInstrument
			}
			if ev.HasVolume {
				follow |= flagVolume
			}
			if hasEffect {
				follow |= flagEffect
			}
			buf = append(buf, follow)

			if ev.HasNoteInstr {
				buf = append(buf, encodeS3MNote(ev.Note), byte(instrumentMap[ev.Instrument]))
			}
			if ev.HasVolume {
				buf = append(buf, encodeS3MVolume(ev.Volume))
			}
			if hasEffect {
				buf = append(buf, effByte, opByte)
			}
		}
		buf = append(buf, 0)
	}

	if err := c.WriteU16(uint16(len(buf))); err != nil {
		return err
	}
	_, err := c.Write(buf)
	return err
}

func encodeS3MNote(note byte) byte {
	if note == noteOff {
		return noteOffS3M
	}
	n := int(note) - 1
	if n < 0 {
		n = 0
	}
	return byte((n/12)<<4) | byte(n%12)
}

func encodeS3MVolume(v byte) byte {
	switch {
	case v >= 0x10 && v <= 0x50:
		return v - 0x10
	case v >= 0xC0 && v <= 0xCF:
		return (v - 0x40) << 2
	default:
		return 0xFF
	}
}
