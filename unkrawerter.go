// Package unkrawerter bundles ROM discovery and both tracker writers
// behind one Options struct — a Go-native replacement for the
// reference's positional-default-argument functions that still exposes
// the same entry points: search, then write.
package unkrawerter

import (
	"fmt"
	"io"

	"github.com/jackmacwindows/unkrawerter/discover"
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/logging"
	"github.com/jackmacwindows/unkrawerter/rom"
	"github.com/jackmacwindows/unkrawerter/s3m"
	"github.com/jackmacwindows/unkrawerter/xm"
)

// Options bundles every tunable across discovery and both writers.
type Options struct {
	Threshold        int
	Verbose          bool
	Version          krawall.Version
	TrimInstruments  bool
	FixCompatibility bool
	Name             string
	AltInstrumentROM *rom.Handle
	Logger           logging.Logger
}

// DefaultOptions returns the settings the CLI wrapper uses when the
// caller supplies none of its own.
func DefaultOptions() Options {
	return Options{
		Threshold:        discover.DefaultThreshold,
		TrimInstruments:  true,
		FixCompatibility: true,
	}
}

// Discover scans r for Krawall's data tables.
func Discover(r *rom.Handle, opts Options) (discover.Result, error) {
	return discover.Search(r, discover.Options{
		Threshold: opts.Threshold,
		Verbose:   opts.Verbose,
		Version:   opts.Version,
		Logger:    opts.Logger,
	})
}

// ChooseFormat implements spec.md §2's control-flow rule: a sample-based
// module whose first pattern has exactly 64 rows goes to S3M, everything
// else goes to XM.
func ChooseFormat(mod krawall.Module) string {
	if !mod.FlagInstrumentBased && len(mod.Patterns) > 0 && mod.Patterns[0].Rows == 64 {
		return "s3m"
	}
	return "xm"
}

// readOffsetTable reads count little-endian u32 pointers starting at
// addr and masks each to a file offset, mirroring the reference's
// "sampleOffsets.push_back(tmp & 0x1ffffff)" loop.
func readOffsetTable(r *rom.Handle, addr uint32, count int) ([]uint32, error) {
	offsets := make([]uint32, count)
	for i := 0; i < count; i++ {
		w, err := r.U32(addr + uint32(i*4))
		if err != nil {
			return nil, err
		}
		offsets[i] = rom.Mask(w)
	}
	return offsets, nil
}

// DetectFormat decodes the module at moduleOffset just far enough to
// run ChooseFormat, for callers (the CLI) that need to know a module's
// target extension before opening the output file.
func DetectFormat(r *rom.Handle, moduleOffset uint32, opts Options) (string, error) {
	version := opts.Version
	if version == 0 {
		version = krawall.CurrentVersion()
	}
	mod, err := krawall.ReadModule(r, moduleOffset, version)
	if err != nil {
		return "", fmt.Errorf("unkrawerter: %w", err)
	}
	return ChooseFormat(mod), nil
}

// WriteModule decodes the module at moduleOffset, picks its target
// format via ChooseFormat, and writes it to w using the sample and
// instrument tables named in result.
func WriteModule(w io.WriteSeeker, r *rom.Handle, moduleOffset uint32, result discover.Result, opts Options) (format string, err error) {
	version := opts.Version
	if version == 0 {
		version = krawall.CurrentVersion()
	}

	mod, err := krawall.ReadModule(r, moduleOffset, version)
	if err != nil {
		return "", fmt.Errorf("unkrawerter: %w", err)
	}

	sampleOffsets, err := readOffsetTable(r, result.SampleAddr, result.SampleCount)
	if err != nil {
		return "", fmt.Errorf("unkrawerter: %w", err)
	}

	format = ChooseFormat(mod)
	if format == "s3m" {
		err = s3m.Write(w, r, moduleOffset, sampleOffsets, s3m.Options{
			TrimInstruments:  opts.TrimInstruments,
			Name:             opts.Name,
			AltInstrumentROM: opts.AltInstrumentROM,
			Version:          version,
			Logger:           opts.Logger,
		})
		return format, err
	}

	instrumentOffsets, err := readOffsetTable(r, result.InstrumentAddr, result.InstrumentCount)
	if err != nil {
		return "", fmt.Errorf("unkrawerter: %w", err)
	}
	err = xm.Write(w, r, moduleOffset, sampleOffsets, instrumentOffsets, xm.Options{
		TrimInstruments:  opts.TrimInstruments,
		Name:             opts.Name,
		FixCompatibility: opts.FixCompatibility,
		AltInstrumentROM: opts.AltInstrumentROM,
		Version:          version,
		Logger:           opts.Logger,
	})
	return format, err
}
