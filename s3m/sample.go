package s3m

import (
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
)

const sampleTypePCM = 1

// writeSampleHeader emits one 80-byte S3M sample header. dataParagraph
// is the precomputed parapointer to this sample's PCM block, stored
// split as a high byte plus a little-endian low u16 per spec.md's
// "parapointer (hi u8, lo u16)" layout.
func writeSampleHeader(c *wire.Cursor, s krawall.Sample, dataParagraph uint16) error {
	if err := c.WriteByte(sampleTypePCM); err != nil {
		return err
	}
	if err := c.WriteZeros(12); err != nil { // filename
		return err
	}
	if err := c.WriteByte(byte(dataParagraph >> 16)); err != nil {
		return err
	}
	if err := c.WriteU16(dataParagraph); err != nil {
		return err
	}
	if err := c.WriteU32(s.Size); err != nil {
		return err
	}
	loopStart := uint32(0)
	if s.LoopLength != 0 {
		loopStart = s.Size - s.LoopLength
	}
	if err := c.WriteU32(loopStart); err != nil {
		return err
	}
	if err := c.WriteU32(s.Size + 1); err != nil {
		return err
	}
	if err := c.WriteByte(s.VolDefault); err != nil {
		return err
	}
	if err := c.WriteZeros(2); err != nil {
		return err
	}
	flags := byte(0)
	if s.Loop {
		flags = 1
	}
	if err := c.WriteByte(flags); err != nil {
		return err
	}
	if err := c.WriteU32(s.C2Freq); err != nil {
		return err
	}
	if err := c.WriteZeros(12); err != nil {
		return err
	}
	if err := c.WriteZeros(28); err != nil { // sample name: Krawall carries none
		return err
	}
	_, err := c.Write([]byte("SCRS"))
	return err
}
