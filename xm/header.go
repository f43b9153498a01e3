package xm

import (
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
)

const (
	bannerID      = "Extended Module: "
	trackerName   = "FastTracker II"
	defaultName   = "Krawall conversion"
	xmVersionWord = 0x0104
	xmHeaderSize  = 0x0114 // 276, the fixed-field block size following this field
)

// writeSpacePadded emits s as raw bytes, space-padding (not zero-padding)
// up to width, matching the reference banner's "Krawall conversion  " /
// "FastTracker II      " fields.
func writeSpacePadded(c *wire.Cursor, s string, width int) error {
	b := make([]byte, width)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	_, err := c.Write(b)
	return err
}

// writeHeader emits the 64-byte banner plus the 276-byte fixed header
// block, leaving the order table filled from mod.Order. It returns the
// file offset of the instrumentCount placeholder for the caller to
// backpatch once the final (possibly trimmed) instrument count is known.
func writeHeader(c *wire.Cursor, mod krawall.Module, opts Options) (int64, error) {
	name := opts.Name
	if name == "" {
		name = defaultName
	}

	if _, err := c.Write([]byte(bannerID)); err != nil {
		return 0, err
	}
	if err := writeSpacePadded(c, name, 20); err != nil {
		return 0, err
	}
	if err := c.WriteByte(0x1A); err != nil {
		return 0, err
	}
	if err := writeSpacePadded(c, trackerName, 20); err != nil {
		return 0, err
	}
	if err := c.WriteU16(xmVersionWord); err != nil {
		return 0, err
	}
	if err := c.WriteU32(xmHeaderSize); err != nil {
		return 0, err
	}

	if err := c.WriteByte(byte(len(mod.Order))); err != nil {
		return 0, err
	}
	if err := c.WriteZeros(1); err != nil {
		return 0, err
	}
	if err := c.WriteByte(mod.SongRestart); err != nil {
		return 0, err
	}
	if err := c.WriteZeros(1); err != nil {
		return 0, err
	}
	if err := c.WriteByte(mod.Channels); err != nil {
		return 0, err
	}
	if err := c.WriteZeros(2); err != nil {
		return 0, err
	}
	if err := c.WriteU16(uint16(len(mod.Patterns))); err != nil {
		return 0, err
	}
	instrumentCountOffset, err := c.Reserve(2)
	if err != nil {
		return 0, err
	}

	linear := byte(0)
	if mod.FlagLinearSlides {
		linear = 1
	}
	if err := c.WriteByte(linear); err != nil {
		return 0, err
	}
	if err := c.WriteZeros(2); err != nil {
		return 0, err
	}
	if err := c.WriteByte(mod.InitSpeed); err != nil {
		return 0, err
	}
	if err := c.WriteZeros(2); err != nil {
		return 0, err
	}
	if err := c.WriteByte(mod.InitBPM); err != nil {
		return 0, err
	}
	if err := c.WriteZeros(2); err != nil {
		return 0, err
	}

	order := make([]byte, 256)
	copy(order, mod.Order)
	if _, err := c.Write(order); err != nil {
		return 0, err
	}

	return instrumentCountOffset, nil
}
