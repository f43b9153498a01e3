package xm

import (
	"encoding/binary"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
	"github.com/jackmacwindows/unkrawerter/rom"
)

const (
	instrumentHeaderEmpty = 29
	instrumentHeaderFull  = 252
	sampleSubHeaderSize   = 40
)

// uniqueAdjacent collapses only consecutive equal entries, mirroring a
// unique_copy pass over the flat 96-entry sample map rather than a full
// set-based dedup; two identical entries separated by a different one
// both survive as distinct local samples, matching the reference.
func uniqueAdjacent(samples [96]uint16) (unique []uint16, localIndex [96]byte) {
	for i, v := range samples {
		if i == 0 || v != samples[i-1] {
			unique = append(unique, v)
		}
		localIndex[i] = byte(len(unique) - 1)
	}
	return unique, localIndex
}

// writeInstrumentBasedInstruments emits every instrument in list (source
// indices into instrumentOffsets), each followed by its own deduplicated
// sample headers and PCM data.
func writeInstrumentBasedInstruments(c *wire.Cursor, instROM *rom.Handle, list []uint16, instrumentOffsets, sampleOffsets []uint32, sampleSizes map[uint16]uint32) error {
	for _, idx := range list {
		if int(idx) >= len(instrumentOffsets) {
			continue
		}
		inst, err := krawall.ReadInstrument(instROM, instrumentOffsets[idx])
		if err != nil {
			return err
		}
		unique, localIndex := uniqueAdjacent(inst.Samples)

		if len(unique) == 0 {
			if err := writeEmptyInstrumentHeader(c); err != nil {
				return err
			}
			continue
		}

		if err := writeFullInstrumentHeader(c, inst, len(unique), localIndex); err != nil {
			return err
		}

		samples := make([]krawall.Sample, len(unique))
		for i, sIdx := range unique {
			if int(sIdx) >= len(sampleOffsets) {
				continue
			}
			s, err := krawall.ReadSample(instROM, sampleOffsets[sIdx])
			if err != nil {
				return err
			}
			samples[i] = s
			sampleSizes[sIdx] = s.Size
		}
		for _, s := range samples {
			if err := writeSampleHeader(c, s); err != nil {
				return err
			}
		}
		for _, s := range samples {
			if err := writeSampleData(c, s); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeSampleBasedInstruments emits one synthetic single-sample
// instrument per entry in list (source indices into sampleOffsets).
func writeSampleBasedInstruments(c *wire.Cursor, r *rom.Handle, list []uint16, sampleOffsets []uint32, sampleSizes map[uint16]uint32) error {
	for _, idx := range list {
		if int(idx) >= len(sampleOffsets) {
			continue
		}
		s, err := krawall.ReadSample(r, sampleOffsets[idx])
		if err != nil {
			return err
		}
		sampleSizes[idx] = s.Size

		var localIndex [96]byte // zero-filled: every note maps to the single sample
		if err := writeFullInstrumentHeader(c, krawall.Instrument{}, 1, localIndex); err != nil {
			return err
		}
		if err := writeSampleHeader(c, s); err != nil {
			return err
		}
		if err := writeSampleData(c, s); err != nil {
			return err
		}
	}
	return nil
}

func writeEmptyInstrumentHeader(c *wire.Cursor) error {
	if err := c.WriteU32(instrumentHeaderEmpty); err != nil {
		return err
	}
	if err := c.WriteZeros(22); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}
	return c.WriteU16(0)
}

func writeFullInstrumentHeader(c *wire.Cursor, inst krawall.Instrument, snum int, localIndex [96]byte) error {
	if err := c.WriteU32(instrumentHeaderFull); err != nil {
		return err
	}
	if err := c.WriteZeros(22); err != nil {
		return err
	}
	if err := c.WriteByte(0); err != nil {
		return err
	}
	if err := c.WriteU16(uint16(snum)); err != nil {
		return err
	}
	if err := c.WriteByte(sampleSubHeaderSize); err != nil {
		return err
	}
	if err := c.WriteZeros(3); err != nil {
		return err
	}
	if _, err := c.Write(localIndex[:]); err != nil {
		return err
	}
	if err := writeEnvelopeNodes(c, inst.EnvVol); err != nil {
		return err
	}
	if err := writeEnvelopeNodes(c, inst.EnvPan); err != nil {
		return err
	}

	scalars := []byte{
		inst.EnvVol.Max + 1,
		inst.EnvPan.Max + 1,
		inst.EnvVol.Sus,
		inst.EnvVol.LoopStart,
		inst.EnvVol.Max,
		inst.EnvPan.Sus,
		inst.EnvPan.LoopStart,
		inst.EnvPan.Max,
		inst.EnvVol.Flags,
		inst.EnvPan.Flags,
	}
	if _, err := c.Write(scalars); err != nil {
		return err
	}

	if _, err := c.Write([]byte{inst.VibType, inst.VibSweep, inst.VibDepth, inst.VibRate}); err != nil {
		return err
	}
	if err := c.WriteU16(inst.VolFade); err != nil {
		return err
	}
	return c.WriteZeros(11)
}

func writeEnvelopeNodes(c *wire.Cursor, env krawall.Envelope) error {
	for _, n := range env.Nodes {
		if err := c.WriteU16(n.Coord); err != nil {
			return err
		}
		if err := c.WriteU16(n.Inc); err != nil {
			return err
		}
	}
	return nil
}

func writeSampleHeader(c *wire.Cursor, s krawall.Sample) error {
	loopStart := uint32(0)
	if s.LoopLength != 0 {
		loopStart = s.Size - s.LoopLength
	}
	if err := c.WriteU32(s.Size); err != nil {
		return err
	}
	if err := c.WriteU32(loopStart); err != nil {
		return err
	}
	if err := c.WriteU32(s.LoopLength); err != nil {
		return err
	}
	if err := c.WriteByte(s.VolDefault); err != nil {
		return err
	}
	if err := c.WriteByte(byte(s.FineTune)); err != nil {
		return err
	}
	flags := byte(0)
	if s.Loop {
		flags = 1
	}
	if err := c.WriteByte(flags); err != nil {
		return err
	}
	if err := c.WriteByte(byte(s.PanDefault) + 0x80); err != nil {
		return err
	}
	if err := c.WriteByte(byte(s.RelativeNote)); err != nil {
		return err
	}
	if err := c.WriteZeros(1); err != nil {
		return err
	}
	return c.WriteZeros(22) // sample name: Krawall carries none
}

// writeSampleData emits s's PCM as XM's delta-encoded form: 8-bit
// unsigned deltas for a normal sample, 16-bit signed deltas for an HQ
// one. The HQ path walks Data two raw bytes at a time (a byte count,
// not a sample count), reproducing the reference's k += 2 stride.
func writeSampleData(c *wire.Cursor, s krawall.Sample) error {
	if !s.HQ {
		prev := 0
		out := make([]byte, len(s.Data))
		for k, b := range s.Data {
			v := (int(b) + 0x80) & 0xFF
			out[k] = byte(v - prev)
			prev = v
		}
		_, err := c.Write(out)
		return err
	}

	var prev int16
	out := make([]byte, 0, len(s.Data))
	for k := 0; k+1 < len(s.Data); k += 2 {
		v := int16(binary.LittleEndian.Uint16(s.Data[k : k+2]))
		delta := v - prev
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(delta))
		out = append(out, b[:]...)
		prev = v
	}
	_, err := c.Write(out)
	return err
}
