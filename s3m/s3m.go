// Package s3m writes Krawall modules as ScreamTracker 3.20 (.s3m) files.
// Only sample-based modules with a 64-row first pattern are supported;
// everything else is rejected with krawall.ErrUnsupported.
package s3m

import (
	"fmt"
	"io"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/logging"
	"github.com/jackmacwindows/unkrawerter/internal/transcode"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
	"github.com/jackmacwindows/unkrawerter/rom"
)

// Options configures Write.
type Options struct {
	TrimInstruments  bool
	Name             string
	AltInstrumentROM *rom.Handle
	Version          krawall.Version
	Logger           logging.Logger
}

// DefaultOptions returns {TrimInstruments: true}.
func DefaultOptions() Options {
	return Options{TrimInstruments: true}
}

const (
	maxSamplesTrimmed   = 254
	maxSamplesUntrimmed = 255
	sampleHeaderSize    = 0x50
	fileHeaderSize      = 0x60 // header (64) + channel settings (32)
	panPositionsSize    = 32
)

// Write decodes the sample-based module at moduleOffset and emits it
// to w as an S3M file.
func Write(w io.WriteSeeker, r *rom.Handle, moduleOffset uint32, sampleOffsets []uint32, opts Options) error {
	version := opts.Version
	if version == 0 {
		version = krawall.CurrentVersion()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default
	}

	mod, err := krawall.ReadModule(r, moduleOffset, version)
	if err != nil {
		return err
	}
	if mod.FlagInstrumentBased {
		return fmt.Errorf("s3m: %w", krawall.ErrUnsupported)
	}
	if len(mod.Patterns) == 0 || mod.Patterns[0].Rows != 64 {
		return fmt.Errorf("s3m: %w", krawall.ErrUnsupported)
	}
	if len(sampleOffsets) == 0 {
		return fmt.Errorf("s3m: %w", krawall.ErrUnsupported)
	}

	channels := int(mod.Channels)
	grids := make([][][]krawall.NoteEvent, len(mod.Patterns))
	for i, p := range mod.Patterns {
		g, err := transcode.Grid(p.Raw, p.Rows, channels, version)
		if err != nil {
			return fmt.Errorf("s3m: pattern %d: %w", i, err)
		}
		grids[i] = g
	}

	usage := collectSampleUsage(grids)
	sampleList, instrumentMap, err := buildSampleRemap(usage, sampleOffsets, opts.TrimInstruments)
	if err != nil {
		return fmt.Errorf("s3m: %w", err)
	}

	instROM := r
	if opts.AltInstrumentROM != nil {
		instROM = opts.AltInstrumentROM
	}

	samples := make([]krawall.Sample, len(sampleList))
	for i, idx := range sampleList {
		s, err := krawall.ReadSample(instROM, sampleOffsets[idx])
		if err != nil {
			return err
		}
		samples[i] = s
	}

	plan := planLayout(mod, samples)

	c := wire.New(w)
	if err := writeHeader(c, mod, len(sampleList), len(mod.Patterns), opts); err != nil {
		return fmt.Errorf("s3m: %w", err)
	}
	if err := writeChannelSettings(c, channels); err != nil {
		return fmt.Errorf("s3m: %w", err)
	}
	if _, err := c.Write(orderBytes(mod.Order)); err != nil {
		return fmt.Errorf("s3m: %w", err)
	}
	for _, ptr := range plan.sampleHeaderParapointers {
		if err := c.WriteU16(ptr); err != nil {
			return fmt.Errorf("s3m: %w", err)
		}
	}
	for _, ptr := range plan.patternParapointers {
		if err := c.WriteU16(ptr); err != nil {
			return fmt.Errorf("s3m: %w", err)
		}
	}
	if err := writePanPositions(c, mod, channels); err != nil {
		return fmt.Errorf("s3m: %w", err)
	}

	if err := alignTo16(c); err != nil {
		return fmt.Errorf("s3m: %w", err)
	}
	for i, s := range samples {
		if err := writeSampleHeader(c, s, plan.sampleDataParapointers[i]); err != nil {
			return fmt.Errorf("s3m: %w", err)
		}
	}

	dedup := logging.NewDeduper()
	for i, p := range mod.Patterns {
		if err := alignTo16(c); err != nil {
			return fmt.Errorf("s3m: %w", err)
		}
		if err := writePatternBody(c, grids[i], p, channels, instrumentMap, i, dedup, log); err != nil {
			return fmt.Errorf("s3m: pattern %d: %w", i, err)
		}
	}

	for _, s := range samples {
		if err := alignTo16(c); err != nil {
			return fmt.Errorf("s3m: %w", err)
		}
		if _, err := c.Write(s.Data); err != nil {
			return fmt.Errorf("s3m: %w", err)
		}
	}

	return nil
}

// collectSampleUsage walks every pattern's grid in pattern-index order and
// records each sample index a note+instrument event references. In a
// sample-based module the event's "instrument" field already is the
// sample index.
func collectSampleUsage(grids [][][]krawall.NoteEvent) []uint16 {
	var usage []uint16
	for _, grid := range grids {
		for _, row := range grid {
			for _, ev := range row {
				if ev.HasNoteInstr {
					usage = append(usage, ev.Instrument)
				}
			}
		}
	}
	return usage
}

// buildSampleRemap builds instrumentMap: used sample index -> 1-based
// S3M position, in first-encounter order when trimming, or a straight
// 1-based identity map over every offset when not.
func buildSampleRemap(usage []uint16, sampleOffsets []uint32, trim bool) ([]uint16, map[uint16]uint16, error) {
	if trim {
		remap := make(map[uint16]uint16)
		var list []uint16
		for _, idx := range usage {
			if _, ok := remap[idx]; ok {
				continue
			}
			if len(list) >= maxSamplesTrimmed {
				return nil, nil, krawall.ErrTooManySamples
			}
			remap[idx] = uint16(len(list) + 1)
			list = append(list, idx)
		}
		return list, remap, nil
	}

	if len(sampleOffsets) > maxSamplesUntrimmed {
		return nil, nil, krawall.ErrTooManySamples
	}
	list := make([]uint16, len(sampleOffsets))
	remap := make(map[uint16]uint16, len(sampleOffsets))
	for i := range sampleOffsets {
		list[i] = uint16(i)
		remap[uint16(i)] = uint16(i + 1)
	}
	return list, remap, nil
}

func orderBytes(order []byte) []byte {
	out := make([]byte, len(order))
	copy(out, order)
	return out
}

func alignTo16(c *wire.Cursor) error {
	if rem := c.Pos() & 0xF; rem != 0 {
		return c.WriteZeros(int(16 - rem))
	}
	return nil
}
