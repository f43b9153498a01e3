package effect

import "github.com/jackmacwindows/unkrawerter/internal/transcode"

// Remap is the result of converting one Krawall effect into its XM
// form. VolumeColumn is non-zero only for the fine variants of the
// combined vol-slide+vibrato/porta opcodes, which XM can only express
// by borrowing the row's volume column.
type Remap struct {
	Effect       byte
	Operand      byte
	VolumeColumn byte
}

func fromEntry(e Entry, operand byte) Remap {
	return Remap{Effect: byte(e.Replacement >> 8), Operand: byte(e.Replacement) | operand&e.Mask}
}

// RemapXM converts a Krawall (code, operand) pair on channel ch into
// its XM form, resolving S3M-style effect memory for the opcodes that
// need it and applying the operand-range splits table lookup alone
// can't express. ok is false when the effect has no XM representation
// and must be dropped.
func RemapXM(session *transcode.Session, ch int, code, operand byte) (Remap, bool) {
	switch code {
	case 1:
		if operand == 0 || operand >= 0x20 {
			return Remap{}, false
		}
	case 6:
		operand = session.Resolve(ch, operand)
		hi, lo := operand>>4, operand&0x0F
		switch {
		case hi == 0x0F:
			return fromEntry(XMTable[8], lo), true
		case lo == 0x0F && operand != 0x0F:
			return fromEntry(XMTable[9], hi), true
		default:
			return fromEntry(XMTable[7], operand), true
		}
	case 11:
		operand = session.Resolve(ch, operand)
		return splitPorta(operand, 0x02, XMTable[12], XMTable[13]), true
	case 15:
		operand = session.Resolve(ch, operand)
		return splitPorta(operand, 0x01, XMTable[16], XMTable[17]), true
	case 23, 24:
		operand = session.Resolve(ch, operand)
		return remapVolSlideCombo(code, operand), true
	case 25, 26, 31:
		return Remap{}, false
	}

	e := Lookup(XMTable, code, XMDrop)
	if e.DroppedXM() {
		return Remap{}, false
	}
	r := fromEntry(e, operand)
	if code == 29 && r.Operand&0xF0 == 0 {
		r.Operand |= 0x80
	}
	return r, true
}

// splitPorta implements the shared shape of Krawall's porta-down (11)
// and porta-up (15) operand splits: a high nibble of 0xF means fine, a
// high nibble of 0xE means extra-fine, anything else is a normal slide
// at the given base effect.
func splitPorta(operand, normalEffect byte, fine, exFine Entry) Remap {
	hi, lo := operand>>4, operand&0x0F
	switch {
	case hi == 0x0F:
		return fromEntry(fine, lo)
	case hi == 0x0E:
		return fromEntry(exFine, lo)
	default:
		return Remap{Effect: normalEffect, Operand: operand}
	}
}

// remapVolSlideCombo handles opcodes 23 (vol-slide+vibrato) and 24
// (vol-slide+porta): a fine slide has to move into the volume column
// since XM has no single effect combining a fine slide with vibrato or
// porta; a normal slide passes through as a plain combined effect.
func remapVolSlideCombo(code, operand byte) Remap {
	base := byte(0x06)
	if code == 24 {
		base = 0x05
	}
	hi, lo := operand>>4, operand&0x0F
	switch {
	case hi == 0x0F:
		return Remap{Effect: base, VolumeColumn: 0x80 | lo}
	case lo == 0x0F && operand != 0x0F:
		return Remap{Effect: base, VolumeColumn: 0x90 | hi}
	default:
		return Remap{Effect: base, Operand: operand}
	}
}

// RemapS3M converts a Krawall (code, operand) pair into its S3M form.
// Unlike RemapXM, no channel memory is resolved here: S3M's own player
// already treats a zero operand as "repeat the last one," so Krawall's
// operand passes through unchanged.
func RemapS3M(code, operand byte) (effect, out byte, ok bool) {
	switch code {
	case 3:
		if operand >= 0x20 {
			return 0x14, operand, true // T: BPM
		}
		return 0x01, operand, true // A: speed
	case 9:
		// Shift into S3M's Dx0 (volume slide up) nibble position before
		// the table mask is applied.
		operand <<= 4
	}

	e := Lookup(S3MTable, code, S3MDropHigh)
	if e.DroppedS3M() {
		return 0, 0, false
	}
	r := fromEntry(e, operand)
	return r.Effect, r.Operand, true
}
