package krawall

import (
	"fmt"

	"github.com/jackmacwindows/unkrawerter/rom"
)

// sampleHeaderSize is the fixed 18-byte header preceding a sample's PCM
// data: loopLength, size (stored as an end-address pointer), c2Freq,
// fineTune, relativeNote, volDefault, panDefault, loop, hq.
const sampleHeaderSize = 18

// Sample is one Krawall sample record: an 18-byte header plus raw PCM.
//
// Size is the byte length of Data. For a 16-bit ("HQ") sample the
// reference walks Data two bytes at a time up to Size, which is a raw
// byte count rather than a sample count; that behaviour is preserved
// as-is.
type Sample struct {
	LoopLength   uint32
	Size         uint32
	C2Freq       uint32
	FineTune     int8
	RelativeNote int8
	VolDefault   uint8
	PanDefault   int8
	Loop         bool
	HQ           bool
	Data         []byte
}

// ReadSample decodes the sample record at offset. size is derived from
// the stored end-address pointer: size = (endAddr & 0x1FFFFFF) - offset
// - 18, per spec.
func ReadSample(r *rom.Handle, offset uint32) (Sample, error) {
	loopLength, err := r.U32(offset)
	if err != nil {
		return Sample{}, err
	}
	endWord, err := r.U32(offset + 4)
	if err != nil {
		return Sample{}, err
	}
	if !rom.IsGBAPointer(endWord) {
		return Sample{}, fmt.Errorf("krawall: sample at 0x%08X: end word 0x%08X is not a GBA pointer: %w", offset, endWord, ErrUnsupported)
	}
	end := rom.Mask(endWord)
	if int64(end) < int64(offset)+sampleHeaderSize {
		return Sample{}, fmt.Errorf("krawall: sample at 0x%08X: end address 0x%08X precedes header: %w", offset, end, ErrUnsupported)
	}
	size := end - offset - sampleHeaderSize

	c2Freq, err := r.U32(offset + 8)
	if err != nil {
		return Sample{}, err
	}
	fineTune, err := r.I8(offset + 12)
	if err != nil {
		return Sample{}, err
	}
	relativeNote, err := r.I8(offset + 13)
	if err != nil {
		return Sample{}, err
	}
	volDefault, err := r.U8(offset + 14)
	if err != nil {
		return Sample{}, err
	}
	panDefault, err := r.I8(offset + 15)
	if err != nil {
		return Sample{}, err
	}
	loopFlag, err := r.U8(offset + 16)
	if err != nil {
		return Sample{}, err
	}
	hqFlag, err := r.U8(offset + 17)
	if err != nil {
		return Sample{}, err
	}
	data, err := r.Bytes(offset+sampleHeaderSize, int(size))
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		LoopLength:   loopLength,
		Size:         size,
		C2Freq:       c2Freq,
		FineTune:     fineTune,
		RelativeNote: relativeNote,
		VolDefault:   volDefault,
		PanDefault:   panDefault,
		Loop:         loopFlag&1 != 0,
		HQ:           hqFlag&1 != 0,
		Data:         data,
	}, nil
}
