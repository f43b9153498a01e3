// Package xm writes Krawall modules as version 1.04 FastTracker II
// (.xm) files.
package xm

import (
	"fmt"
	"io"

	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/logging"
	"github.com/jackmacwindows/unkrawerter/internal/transcode"
	"github.com/jackmacwindows/unkrawerter/internal/wire"
	"github.com/jackmacwindows/unkrawerter/rom"
)

// Options configures Write. The zero value disables both trimming and
// compatibility fixes; DefaultOptions returns the settings the
// reference tool uses when the caller supplies none of its own.
type Options struct {
	TrimInstruments  bool
	Name             string
	FixCompatibility bool
	AltInstrumentROM *rom.Handle
	Version          krawall.Version
	Logger           logging.Logger
}

// DefaultOptions returns {TrimInstruments: true, FixCompatibility: true}.
func DefaultOptions() Options {
	return Options{TrimInstruments: true, FixCompatibility: true}
}

const (
	maxInstrumentsTrimmed   = 254
	maxInstrumentsUntrimmed = 255
)

// Write decodes the module at moduleOffset and emits it to w as an XM
// file. sampleOffsets and instrumentOffsets are the discovered address
// tables; instrumentOffsets may be empty for a sample-based module.
func Write(w io.WriteSeeker, r *rom.Handle, moduleOffset uint32, sampleOffsets, instrumentOffsets []uint32, opts Options) error {
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
	if mod.FlagInstrumentBased && len(instrumentOffsets) == 0 {
		return fmt.Errorf("xm: %w", krawall.ErrMissingInstruments)
	}

	instROM := r
	if opts.AltInstrumentROM != nil {
		instROM = opts.AltInstrumentROM
	}

	channels := int(mod.Channels)
	grids := make([][][]krawall.NoteEvent, len(mod.Patterns))
	for i, p := range mod.Patterns {
		g, err := transcode.Grid(p.Raw, p.Rows, channels, version)
		if err != nil {
			return fmt.Errorf("xm: pattern %d: %w", i, err)
		}
		grids[i] = g
	}

	usage := collectInstrumentUsage(grids)
	instrumentList, remap, err := buildInstrumentRemap(usage, opts.TrimInstruments)
	if err != nil {
		return fmt.Errorf("xm: %w", err)
	}

	dedup := logging.NewDeduper()
	c := wire.New(w)

	instrumentCountOffset, err := writeHeader(c, mod, opts)
	if err != nil {
		return fmt.Errorf("xm: header: %w", err)
	}
	if err := c.PatchU16(instrumentCountOffset, uint16(len(instrumentList))); err != nil {
		return fmt.Errorf("xm: %w", err)
	}

	sessions := make([]*transcode.Session, len(mod.Patterns))
	var offsetFixes []sampleOffsetFix
	var panFixes []panFix
	for i, p := range mod.Patterns {
		session := transcode.NewSession(channels)
		sessions[i] = session
		fixes, pans, err := writePattern(c, grids[i], p, mod, i, remap, version, opts, session, dedup, log)
		if err != nil {
			return fmt.Errorf("xm: pattern %d: %w", i, err)
		}
		offsetFixes = append(offsetFixes, fixes...)
		panFixes = append(panFixes, pans...)
	}
	_ = panFixes // pan fixes are applied inline during writePattern; kept for future backpatch needs

	sampleSizes := make(map[uint16]uint32)
	if mod.FlagInstrumentBased {
		if err := writeInstrumentBasedInstruments(c, instROM, instrumentList, instrumentOffsets, sampleOffsets, sampleSizes); err != nil {
			return fmt.Errorf("xm: %w", err)
		}
	} else {
		if err := writeSampleBasedInstruments(c, r, instrumentList, sampleOffsets, sampleSizes); err != nil {
			return fmt.Errorf("xm: %w", err)
		}
	}

	if opts.FixCompatibility {
		for _, fix := range offsetFixes {
			size, ok := sampleSizes[fix.sampleIndex]
			if !ok {
				continue
			}
			truncate := uint32(fix.operand)<<8 > size
			if fix.instrumentBased {
				truncate = uint32(fix.operand) >= size>>8
			}
			if truncate {
				if err := c.PatchBytes(fix.offset, []byte{0, 0}); err != nil {
					return fmt.Errorf("xm: %w", err)
				}
			}
		}
	}

	return nil
}

// collectInstrumentUsage walks every pattern's grid in pattern-index
// order (pattern, then row, then channel) and records each instrument index
// a note+instrument event references, duplicates included; the caller
// decides whether to dedupe.
func collectInstrumentUsage(grids [][][]krawall.NoteEvent) []uint16 {
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

// buildInstrumentRemap turns the raw usage list into the final,
// 1-based emitted instrument list plus a lookup from source index to
// emitted index, honoring trimInstruments per spec.md §4.6.
func buildInstrumentRemap(usage []uint16, trim bool) ([]uint16, map[uint16]uint16, error) {
	remap := make(map[uint16]uint16)
	if trim {
		var list []uint16
		for _, idx := range usage {
			if _, ok := remap[idx]; ok {
				continue
			}
			if len(list) >= maxInstrumentsTrimmed {
				return nil, nil, krawall.ErrTooManyInstruments
			}
			remap[idx] = uint16(len(list) + 1)
			list = append(list, idx)
		}
		return list, remap, nil
	}

	// Untrimmed: emit every slot 0..maxIdx so source index i lands at
	// emitted position i+1.
	maxIdx := -1
	for _, idx := range usage {
		if int(idx) > maxIdx {
			maxIdx = int(idx)
		}
	}
	if maxIdx+1 > maxInstrumentsUntrimmed {
		return nil, nil, krawall.ErrTooManyInstruments
	}
	list := make([]uint16, 0, maxIdx+1)
	for idx := 0; idx <= maxIdx; idx++ {
		list = append(list, uint16(idx))
		remap[uint16(idx)] = uint16(idx + 1)
	}
	return list, remap, nil
}
