package xm

import (
	"github.com/jackmacwindows/unkrawerter/effect"
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/logging"
	"github.com/jackmacwindows/unkrawerter/internal/transcode"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
)

const (
	patternHeaderLen = 9
	noteCut          = 97
)

// packed-byte selector bits, per spec.md's row encoding.
const (
	selNote       = 0x01
	selInstrument = 0x02
	selVolume     = 0x04
	selEffect     = 0x08
	selOperand    = 0x10
	rowByteBase   = 0x80
)

// sampleOffsetFix records where a sample-offset effect's effect byte
// landed in the output file, so Write can zero the effect and operand
// bytes once the referenced sample's real size is known (samples are
// written after patterns).
type sampleOffsetFix struct {
	offset          int64
	operand         byte
	sampleIndex     uint16
	instrumentBased bool
}

// panFix is unused for backpatching today (the pan injection happens
// inline while the row is still being written) but is threaded through
// in case a future fix needs to revisit an already-written row.
type panFix struct {
	offset int64
}

// writePattern emits one pattern's 9-byte header and packed row stream,
// applying the XM compatibility fixes inline when opts.FixCompatibility is
// set: porta-clipping and default-pan injection on non-Amiga, sample-based
// modules, and the sample-offset fix on any non-Amiga module.
func writePattern(c *wire.Cursor, grid [][]krawall.NoteEvent, p krawall.Pattern, mod krawall.Module, patIdx int, remap map[uint16]uint16, version krawall.Version, opts Options, session *transcode.Session, dedup *logging.Deduper, log logging.Logger) ([]sampleOffsetFix, []panFix, error) {
	if err := c.WriteByte(patternHeaderLen); err != nil {
		return nil, nil, err
	}
	if err := c.WriteZeros(4); err != nil {
		return nil, nil, err
	}
	if err := c.WriteU16(uint16(p.Rows)); err != nil {
		return nil, nil, err
	}
	sizeOffset, err := c.Reserve(2)
	if err != nil {
		return nil, nil, err
	}

	dataStart := c.Pos()
	channels := int(mod.Channels)
	lastInstrument := make([]int, channels)
	for i := range lastInstrument {
		lastInstrument[i] = -1
	}
	panInjected := make([]bool, channels)

	var offsetFixes []sampleOffsetFix
	var pans []panFix

	// The porta-clip and default-pan fixes assume a sample-based module's
	// pitch/pan model; an instrument-based module carries its own
	// envelopes and panning per instrument, so those two fixes are
	// skipped there. The sample-offset fix applies to both (see its
	// instrumentBased field), since it backpatches a raw sample size
	// either way.
	fixCompat := opts.FixCompatibility && !mod.FlagAmigaLimits && !mod.FlagInstrumentBased
	fixSampleOffset := opts.FixCompatibility && !mod.FlagAmigaLimits

	for _, row := range grid {
		for ch := 0; ch < channels; ch++ {
			var ev krawall.NoteEvent
			if ch < len(row) {
				ev = row[ch]
			}

			writeNote, writeInstr, writeVol, writeEff, writeOp := false, false, false, false, false
			var noteByte, volByte, effByte, opByte byte

			if ev.HasNoteInstr {
				writeNote = true
				noteByte = ev.Note
				if _, ok := remap[ev.Instrument]; ok {
					writeInstr = true
				}
			}
			if ev.HasVolume {
				writeVol = true
				volByte = ev.Volume
			}

			var volumeColumnOverride byte
			if ev.HasEffect {
				r, ok := effect.RemapXM(session, ch, ev.Effect, ev.EffectOp)
				if !ok {
					dedup.WarnOnce(log, patIdx, "effect-dropped", "pattern %d: dropped unsupported effect code %d", patIdx, ev.Effect)
				} else {
					writeEff = true
					writeOp = true
					effByte = r.Effect
					opByte = r.Operand
					if r.VolumeColumn != 0 {
						volumeColumnOverride = r.VolumeColumn
					}
				}
			}
			if volumeColumnOverride != 0 {
				writeVol = true
				volByte = volumeColumnOverride
			}

			if fixCompat {
				if ev.HasNoteInstr && !mod.FlagAmigaLimits {
					session.SetPorta(ch, int32(ev.Note)*16)
				}
				if writeEff {
					newEff, newOp, cutNote := applyPortaClip(session, ch, effByte, opByte)
					if cutNote {
						effByte, opByte, writeEff, writeOp = 0, 0, false, false
						writeNote = true
						noteByte = noteCut
					} else {
						effByte, opByte = newEff, newOp
					}
				}

				if ev.HasNoteInstr && int(ev.Instrument) != lastInstrument[ch] {
					lastInstrument[ch] = int(ev.Instrument)
					xmPan := byte(mod.ChannelPan[ch]) + 0x80
					if xmPan != 0x80 {
						switch {
						case !writeEff:
							writeEff, writeOp = true, true
							effByte, opByte = 0x08, xmPan
							panInjected[ch] = true
						case !writeVol:
							writeVol = true
							volByte = 0xC0 | (xmPan >> 4)
							panInjected[ch] = true
						default:
							dedup.WarnOnce(log, patIdx, "pan-lost", "pattern %d: channel %d default pan dropped (no free column)", patIdx, ch)
						}
					}
				}
			}

			if fixSampleOffset && writeEff && effByte == 0x09 {
				offsetFixes = append(offsetFixes, sampleOffsetFix{
					offset:          c.Pos() + fieldOffsetForOperand(writeNote, writeInstr, writeVol),
					operand:         opByte,
					sampleIndex:     ev.Instrument,
					instrumentBased: mod.FlagInstrumentBased,
				})
			}

			selectors := byte(0)
			if writeNote {
				selectors |= selNote
			}
			if writeInstr {
				selectors |= selInstrument
			}
			if writeVol {
				selectors |= selVolume
			}
			if writeEff {
				selectors |= selEffect
			}
			if writeOp {
				selectors |= selOperand
			}

			if selectors == 0 {
				if err := c.WriteByte(rowByteBase); err != nil {
					return nil, nil, err
				}
				continue
			}

			if err := c.WriteByte(rowByteBase | selectors); err != nil {
				return nil, nil, err
			}
			if writeNote {
				if err := c.WriteByte(noteByte); err != nil {
					return nil, nil, err
				}
			}
			if writeInstr {
				emitIdx := remap[ev.Instrument]
				if err := c.WriteByte(byte(emitIdx)); err != nil {
					return nil, nil, err
				}
			}
			if writeVol {
				if err := c.WriteByte(volByte); err != nil {
					return nil, nil, err
				}
			}
			if writeEff {
				if err := c.WriteByte(effByte); err != nil {
					return nil, nil, err
				}
			}
			if writeOp {
				if err := c.WriteByte(opByte); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	dataSize := c.Pos() - dataStart
	if err := c.PatchU16(sizeOffset, uint16(dataSize)); err != nil {
		return nil, nil, err
	}

	return offsetFixes, pans, nil
}

// fieldOffsetForOperand computes how many bytes past the position of the
// selector byte (not yet written when it is called) the effect byte
// lands; the operand follows it, and the sample-offset fix zeroes both.
// This mirrors the field order note, instrument, volume, effect, operand
// used above.
func fieldOffsetForOperand(hasNote, hasInstrument, hasVolume bool) int64 {
	n := int64(0)
	if hasNote {
		n++
	}
	if hasInstrument {
		n++
	}
	if hasVolume {
		n++
	}
	n++ // effect byte itself always precedes the operand here
	return n
}

// applyPortaClip implements the portamento-clipping compatibility fix
// for the six porta-family XM effects: main/fine/extra-fine porta down
// (0x02, 0x0E2x, 0x21xx) and up (0x01, 0x0E1x, 0x21xx with the low
// nibble form). If the slide would cross zero it becomes a note-cut;
// if the remaining distance is smaller than a full step the operand is
// scaled down so the slide lands exactly on zero.
func applyPortaClip(session *transcode.Session, ch int, effByte, opByte byte) (newEff, newOp byte, cut bool) {
	pitch, ok := session.Porta(ch)
	if !ok {
		return effByte, opByte, false
	}

	var step int32
	var down bool
	switch effByte {
	case 0x02:
		step, down = int32(opByte)*16, true
	case 0x01:
		step, down = int32(opByte)*16, false
	case 0x0E:
		hi, lo := opByte>>4, opByte&0x0F
		switch hi {
		case 0x2:
			step, down = int32(lo)*4, true
		case 0x1:
			step, down = int32(lo)*4, false
		default:
			return effByte, opByte, false
		}
	case 0x21:
		down = opByte&0xF0 == 0x20
		step = int32(opByte&0x0F)
	default:
		return effByte, opByte, false
	}

	next := pitch
	if down {
		next -= step
	} else {
		next += step
	}

	if down && next <= 0 {
		if pitch > 0 && pitch < step {
			scaled := byte(pitch / stepUnit(effByte))
			if effByte == 0x0E || effByte == 0x21 {
				scaled |= opByte & 0xF0 // keep the sub-effect selector nibble
			}
			session.SetPorta(ch, 0)
			return effByte, scaled, false
		}
		session.ResetPorta(ch)
		return effByte, opByte, true
	}

	session.SetPorta(ch, next)
	return effByte, opByte, false
}

// stepUnit returns the operand-to-pitch scale used by applyPortaClip
// for a given effect byte, used only to rescale a clipped final step.
func stepUnit(effByte byte) int32 {
	switch effByte {
	case 0x0E:
		return 4
	case 0x21:
		return 1
	default:
		return 16
	}
}
