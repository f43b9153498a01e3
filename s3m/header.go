package s3m

import (
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
)

const (
	trackerVersion  = 0x1320
	signedSamplesID = 2
	moduleTypeST3   = 16
	masterVolume    = 64
	panPositionFlag = 252
	defaultName     = "Krawall conversion"
)

func writeHeader(c *wire.Cursor, mod krawall.Module, sampleCount, patternCount int, opts Options) error {
	name := opts.Name
	if name == "" {
		name = defaultName
	}
	if err := c.WriteString(name, 28); err != nil {
		return err
	}
	if err := c.WriteByte(0x1A); err != nil {
		return err
	}
	if err := c.WriteByte(moduleTypeST3); err != nil {
		return err
	}
	if err := c.WriteZeros(2); err != nil {
		return err
	}
	if err := c.WriteByte(byte(len(mod.Order))); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}
	if err := c.WriteByte(byte(sampleCount)); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}
	if err := c.WriteByte(byte(patternCount)); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}

	flags := byte(0)
	if mod.FlagAmigaLimits {
		flags |= 16
	}
	if mod.FlagVolOpt {
		flags |= 8
	}
	if mod.FlagVolSlides {
		flags |= 64
	}
	if err := c.WriteByte(flags); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}

	if err := c.WriteU16(trackerVersion); err != nil {
		return err
	}
	if err := c.WriteByte(signedSamplesID); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}
	if _, err := c.Write([]byte("SCRM")); err != nil {
		return err
	}

	if err := c.WriteByte(mod.VolGlobal); err != nil {
		return err
	}
	if err := c.WriteByte(mod.InitSpeed); err != nil {
		return err
	}
	if err := c.WriteByte(mod.InitBPM); err != nil {
		return err
	}
	if err := c.WriteByte(masterVolume); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}
	if err := c.WriteByte(panPositionFlag); err != nil {
		return err
	}
	return c.WriteZeros(10)
}

func writeChannelSettings(c *wire.Cursor, channels int) error {
	settings := make([]byte, 32)
	for i := range settings {
		switch {
		case i < channels/2:
			settings[i] = byte(i)
		case i < channels:
			settings[i] = byte(i) | 8
		default:
			settings[i] = 0xFF
		}
	}
	_, err := c.Write(settings)
	return err
}

func writePanPositions(c *wire.Cursor, mod krawall.Module, channels int) error {
	pans := make([]byte, 32)
	for i := range pans {
		if i >= channels {
			pans[i] = 0x08
			continue
		}
		pan := byte(mod.ChannelPan[i])
		if pan == 0 {
			pans[i] = 0x27
		} else {
			pans[i] = (pan >> 4) | 0x20
		}
	}
	_, err := c.Write(pans)
	return err
}
