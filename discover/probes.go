package discover

import (
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/rom"
)

// A candidate run near the end of the ROM can send a probe reading past
// the last byte; that is a probe failure, not a fatal scan error, so
// every probe below folds a read error into a false verdict.

// moduleProbe treats rn as a module's pattern-pointer array and
// inspects the header fields that should immediately precede it, plus
// the shape of the first pattern the array points to.
func moduleProbe(r *rom.Handle, rn run, v krawall.Version) (bool, error) {
	if rn.start < moduleHeaderSize {
		return false, nil
	}
	headerStart := rn.start - moduleHeaderSize

	// The reference probe examines the 8 bytes immediately preceding the
	// pattern-pointer array: initSpeed/initBPM (+356/+357), then the 5
	// flag bytes and the required-zero pad checked below.
	initSpeed, err := r.U8(headerStart + 356)
	if err != nil {
		return false, nil
	}
	if initSpeed < 1 || initSpeed > 16 {
		return false, nil
	}

	initBPM, err := r.U8(headerStart + 357)
	if err != nil {
		return false, nil
	}
	if initBPM < 30 || initBPM > 200 {
		return false, nil
	}

	flags, err := r.Bytes(headerStart+358, 5)
	if err != nil {
		return false, nil
	}
	for _, b := range flags {
		if b&0xFE != 0 {
			return false, nil
		}
	}

	padding, err := r.U8(headerStart + 363)
	if err != nil {
		return false, nil
	}
	if padding != 0 {
		return false, nil
	}

	target, ok, err := r.Pointer(rn.start)
	if err != nil {
		return false, nil
	}
	if !ok {
		return false, nil
	}

	head, err := r.Bytes(target, 4)
	if err != nil {
		return false, nil
	}
	if head[0] != 0 || head[1] != 0 || head[3] != 0 {
		return false, nil
	}

	rowsOffset := target + 32
	var rows int
	if v.Before2004() {
		b, err := r.U8(rowsOffset)
		if err != nil {
			return false, nil
		}
		rows = int(b)
	} else {
		w, err := r.U16(rowsOffset)
		if err != nil {
			return false, nil
		}
		rows = int(w)
	}
	if rows > 256 || rows&0x7 != 0 {
		return false, nil
	}

	return true, nil
}

// sampleProbeCount caps how many of a run's pointers get dereferenced
// for classification.
const sampleProbeCount = 4

// sampleProbe checks that the run's leading pointers each dereference
// to something shaped like a Sample header.
func sampleProbe(r *rom.Handle, rn run) (bool, error) {
	n := rn.count
	if n > sampleProbeCount {
		n = sampleProbeCount
	}
	for i := 0; i < n; i++ {
		target, ok, err := r.Pointer(rn.start + uint32(i*4))
		if err != nil {
			return false, nil
		}
		if !ok {
			return false, nil
		}

		loopLength, err := r.U32(target)
		if err != nil {
			return false, nil
		}
		endWord, err := r.U32(target + 4)
		if err != nil {
			return false, nil
		}
		if !rom.IsGBAPointer(endWord) {
			return false, nil
		}
		end := rom.Mask(endWord)
		if end <= target+18 {
			return false, nil
		}
		if loopLength > end-target-18 {
			return false, nil
		}
		c2Freq, err := r.U32(target + 8)
		if err != nil {
			return false, nil
		}
		if c2Freq > 0xFFFF {
			return false, nil
		}
		loopFlag, err := r.U8(target + 16)
		if err != nil {
			return false, nil
		}
		if loopFlag&0xFE != 0 {
			return false, nil
		}
		hqFlag, err := r.U8(target + 17)
		if err != nil {
			return false, nil
		}
		if hqFlag&0xFE != 0 {
			return false, nil
		}
	}
	return true, nil
}

// instrumentProbe checks that the run's leading pointers each
// dereference to something shaped like an Instrument record: a
// slowly-varying sample-index map followed by two plausible envelopes.
func instrumentProbe(r *rom.Handle, rn run) (bool, error) {
	n := rn.count
	if n > sampleProbeCount {
		n = sampleProbeCount
	}
	for i := 0; i < n; i++ {
		target, ok, err := r.Pointer(rn.start + uint32(i*4))
		if err != nil {
			return false, nil
		}
		if !ok {
			return false, nil
		}

		var prev uint16
		for j := 0; j < 96; j++ {
			v, err := r.U16(target + uint32(j*2))
			if err != nil {
				return false, nil
			}
			if v > 256 {
				return false, nil
			}
			if j > 0 && j < 94 {
				delta := int(v) - int(prev)
				if delta < 0 {
					delta = -delta
				}
				if delta > 16 {
					return false, nil
				}
			}
			prev = v
		}

		cursor := target + 96*2
		cursor += 48
		scalars, err := r.Bytes(cursor, 3)
		if err != nil {
			return false, nil
		}
		for _, b := range scalars {
			if b > 12 {
				return false, nil
			}
		}
		cursor += 3
		cursor += 48
		scalars2, err := r.Bytes(cursor, 3)
		if err != nil {
			return false, nil
		}
		for _, b := range scalars2 {
			if b > 12 {
				return false, nil
			}
		}
	}
	return true, nil
}
