package effect

// XMTable maps each Krawall effect code to its XM effect byte and
// operand mask. Every index is first filled with the XMDrop sentinel
// and only the codes XM represents are then overwritten, so "effect
// table totality" holds without spelling out every gap by hand.
var XMTable = buildXMTable()

func buildXMTable() [EffectCount]Entry {
	var t [EffectCount]Entry
	for i := range t {
		t[i] = Entry{Replacement: XMDrop}
	}

	t[1] = Entry{0x0F00, 0xFF} // speed/BPM
	t[2] = Entry{0x0F00, 0xFF}
	t[3] = Entry{0x0F00, 0xFF}
	t[4] = Entry{0x0B00, 0xFF} // pattern jump
	t[5] = Entry{0x0D00, 0xFF} // pattern break
	t[6] = Entry{0x0A00, 0xFF} // volume slide
	t[7] = Entry{0x0A00, 0xFF}
	t[8] = Entry{0x0EB0, 0x0F} // fine vol-slide down
	t[9] = Entry{0x0EA0, 0x0F} // fine vol-slide up
	t[10] = Entry{0x0200, 0xFF} // porta down
	t[11] = Entry{0x0200, 0xFF}
	t[12] = Entry{0x0E20, 0x0F} // fine porta down
	t[13] = Entry{0x2120, 0x0F} // extra-fine porta down
	t[14] = Entry{0x0100, 0xFF} // porta up
	t[15] = Entry{0x0100, 0xFF}
	t[16] = Entry{0x0E10, 0x0F} // fine porta up
	t[17] = Entry{0x2110, 0x0F} // extra-fine porta up
	t[18] = Entry{0x0C00, 0xFF} // set volume
	t[19] = Entry{0x0300, 0xFF} // porta to note
	t[20] = Entry{0x0400, 0xFF} // vibrato
	t[22] = Entry{0x0000, 0xFF} // arpeggio
	t[23] = Entry{0x0600, 0xFF} // vol-slide + vibrato
	t[24] = Entry{0x0500, 0xFF} // vol-slide + porta
	t[27] = Entry{0x0900, 0xFF} // sample offset
	t[28] = Entry{0x1900, 0xFF} // panning slide
	t[29] = Entry{0x1B00, 0xFF} // retrig
	t[30] = Entry{0x0700, 0xFF} // tremolo
	t[32] = Entry{0x1000, 0xFF} // global volume
	t[33] = Entry{0x1100, 0xFF} // global volume slide
	t[34] = Entry{0x0800, 0xFF} // set panning
	t[35] = Entry{0x2200, 0xFF} // panbrello (MPT extension)

	// Sub-effects living under XM's 0x0E "extended" opcode: glissando,
	// vibrato/tremolo waveform select, finetune, pattern loop, panning,
	// retrigger, note cut/delay, pattern delay. Nibbles 0xA/0xB are
	// already claimed by the fine vol-slide codes above (8, 9), so this
	// run skips them, landing on the spec's stated 0x0E30..0x0EE0 span.
	extendedNibbles := [10]byte{0x3, 0x4, 0x5, 0x6, 0x7, 0x8, 0x9, 0xC, 0xD, 0xE}
	for i, code := 0, 37; code <= 46; i, code = i+1, code+1 {
		t[code] = Entry{Replacement: 0x0E00 | uint16(extendedNibbles[i])<<4, Mask: 0x0F}
	}

	t[47] = Entry{0x1500, 0xFF} // set envelope position

	return t
}
