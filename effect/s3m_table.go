package effect

// S3MTable maps each Krawall effect code to its S3M effect byte and
// operand mask, built the same way as XMTable: every index starts out
// as S3MDropHigh and only the codes S3M actually represents are
// overwritten.
var S3MTable = buildS3MTable()

func buildS3MTable() [EffectCount]Entry {
	var t [EffectCount]Entry
	for i := range t {
		t[i] = Entry{Replacement: S3MDropHigh}
	}

	t[1] = Entry{0x0100, 0xFF} // A: speed
	t[2] = Entry{0x1400, 0xFF} // T: BPM
	// 3 ("speed or BPM depending on value") has no static table row: it
	// is resolved algorithmically in remap.go between A and T.
	t[4] = Entry{0x0200, 0xFF} // B: pattern jump
	t[5] = Entry{0x0300, 0xFF} // C: pattern break
	t[6] = Entry{0x0400, 0xFF} // D: volume slide
	t[7] = Entry{0x0400, 0xFF}
	t[8] = Entry{0x04F0, 0x0F} // D: fine vol-slide down
	t[9] = Entry{0x040F, 0xF0} // D: fine vol-slide up (operand pre-shifted in remap.go)
	t[10] = Entry{0x0500, 0xFF} // E: porta down
	t[11] = Entry{0x0500, 0xFF}
	t[12] = Entry{0x05F0, 0x0F} // E: fine porta down
	t[13] = Entry{0x05E0, 0x0F} // E: extra-fine porta down
	t[14] = Entry{0x0600, 0xFF} // F: porta up
	t[15] = Entry{0x0600, 0xFF}
	t[16] = Entry{0x06F0, 0x0F} // F: fine porta up
	t[17] = Entry{0x06E0, 0x0F} // F: extra-fine porta up
	t[19] = Entry{0x0700, 0xFF} // G: porta to note
	t[20] = Entry{0x0800, 0xFF} // H: vibrato
	t[22] = Entry{0x0A00, 0xFF} // J: arpeggio
	t[23] = Entry{0x0B00, 0xFF} // K
	t[24] = Entry{0x0C00, 0xFF} // L
	t[25] = Entry{0x0D00, 0xFF} // M: channel volume
	t[26] = Entry{0x0E00, 0xFF} // N
	t[27] = Entry{0x0F00, 0xFF} // O: sample offset
	t[28] = Entry{0x1000, 0xFF} // P: panning slide
	t[29] = Entry{0x1100, 0xFF} // Q: retrig
	t[30] = Entry{0x1200, 0xFF} // R: tremolo
	t[32] = Entry{0x1600, 0xFF} // V
	t[33] = Entry{0x1700, 0xFF} // W
	t[34] = Entry{0x1800, 0xFF} // X: pan

	// S sub-effects (glissando, waveforms, loop, cut, delay); 0x13A0 is
	// reserved for 48 (offset high byte) below, so this run steps around it.
	sSubEffects := [10]uint16{0x1310, 0x1320, 0x1330, 0x1340, 0x1350, 0x1360, 0x1370, 0x1380, 0x1390, 0x13B0}
	for i, code := 0, 37; code <= 46; i, code = i+1, code+1 {
		t[code] = Entry{Replacement: sSubEffects[i], Mask: 0x0F}
	}
	t[48] = Entry{0x13A0, 0xFF} // S: sample offset high byte

	return t
}
