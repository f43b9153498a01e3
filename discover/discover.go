// Package discover implements the heuristic scan that locates Krawall's
// module, sample, and instrument tables inside a ROM image that carries
// no symbol table or directory of its own.
package discover

import (
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/internal/logging"
	"github.com/jackmacwindows/unkrawerter/rom"
)

// DefaultThreshold is the minimum candidate-pointer run length a scan
// will keep.
const DefaultThreshold = 4

// maxRunLength discards runs this long or longer: past this point a
// "run" of GBA-shaped words is almost certainly plain code or data,
// not an address table.
const maxRunLength = 1024

// Options configures a Search call.
type Options struct {
	// Threshold is the minimum pointer-run length to keep. Zero means
	// DefaultThreshold.
	Threshold int
	Verbose   bool
	// Version selects the pattern-row field width the module probe
	// checks against. Zero means krawall.CurrentVersion().
	Version krawall.Version
	Logger  logging.Logger
}

// Result is the outcome of a scan: the located sample and (optional)
// instrument tables, and every module offset found.
type Result struct {
	Success bool

	InstrumentAddr  uint32
	InstrumentCount int
	SampleAddr      uint32
	SampleCount     int
	Modules         []uint32
}

const (
	maskModule = 1 << iota
	maskSample
	maskInstrument
)

// moduleHeaderSize mirrors krawall's fixed module header size: a
// discovered pattern-pointer run sits immediately after it.
const moduleHeaderSize = 364

// run is a candidate pointer-array location: byteOffset..byteOffset+4*count.
type run struct {
	start uint32
	count int
}

// Search scans r for Krawall's data tables and classifies each
// candidate pointer run as a module, sample list, or instrument list.
func Search(r *rom.Handle, opts Options) (Result, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	version := opts.Version
	if version == 0 {
		version = krawall.CurrentVersion()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default
	}

	runs, err := scanCandidateRuns(r, threshold)
	if err != nil {
		return Result{}, err
	}
	if opts.Verbose {
		log.Infof("discover: %d candidate pointer runs before noise filtering", len(runs))
	}

	runs, err = filterNoise(r, runs)
	if err != nil {
		return Result{}, err
	}
	if opts.Verbose {
		log.Infof("discover: %d candidate pointer runs after noise filtering", len(runs))
	}

	var result Result
	var bestSample, bestInstrument run
	haveSample, haveInstrument := false, false

	for _, rn := range runs {
		mask, err := classify(r, rn, version)
		if err != nil {
			return Result{}, err
		}
		switch mask {
		case maskModule:
			addr := (rn.start & rom.OffsetMask) - moduleHeaderSize
			result.Modules = append(result.Modules, addr)
		case maskSample:
			if !haveSample || rn.count > bestSample.count {
				bestSample, haveSample = rn, true
			}
		case maskInstrument:
			if !haveInstrument || rn.count > bestInstrument.count {
				bestInstrument, haveInstrument = rn, true
			}
		}
	}

	if haveSample {
		result.SampleAddr = rom.Mask(bestSample.start)
		result.SampleCount = bestSample.count
	}
	if haveInstrument {
		result.InstrumentAddr = rom.Mask(bestInstrument.start)
		result.InstrumentCount = bestInstrument.count
	}

	result.Success = result.SampleAddr != 0 && len(result.Modules) > 0
	if !result.Success && opts.Verbose {
		log.Warnf("discover: offsets not found; try lowering the threshold or supplying overrides")
	}
	return result, nil
}

// scanCandidateRuns walks the ROM word by word, grouping consecutive
// candidate pointers into runs of at least threshold and fewer than
// maxRunLength words.
func scanCandidateRuns(r *rom.Handle, threshold int) ([]run, error) {
	size := r.Size()
	if size < 4 {
		return nil, nil
	}
	romSize := uint32(size)

	var runs []run
	var start uint32
	count := 0

	closeRun := func() {
		if count >= threshold && count < maxRunLength {
			runs = append(runs, run{start: start, count: count})
		}
		count = 0
	}

	for off := int64(0); off+4 <= size; off += 4 {
		w, err := r.U32(uint32(off))
		if err != nil {
			return nil, err
		}
		if isCandidatePointer(w, romSize) {
			if count == 0 {
				start = uint32(off)
			}
			count++
		} else {
			closeRun()
		}
	}
	closeRun()

	return runs, nil
}

// candidatePointerForeignMask disqualifies a word carrying any bit
// outside the plain GBA ROM address range.
const candidatePointerForeignMask = 0xF6000000

func isCandidatePointer(w, romSize uint32) bool {
	if w&rom.RegionMask == 0 {
		return false
	}
	if w&candidatePointerForeignMask != 0 {
		return false
	}
	if rom.Mask(w) >= romSize {
		return false
	}
	if w == 0x08080808 {
		return false
	}
	if looksLikeThumbPair(w) {
		return false
	}
	return true
}

// looksLikeThumbPair excludes two adjacent Thumb instruction halfwords
// that happen to pass the mask test: both halves close in value and
// both carrying the same 0x0008 byte pattern.
func looksLikeThumbPair(w uint32) bool {
	high16 := w >> 16
	low16 := w & 0xFFFF
	diff := int32(high16) - int32(low16)
	if diff < 0 {
		diff = -diff
	}
	return diff < 4 && w&0x00FF00FF == 0x00080008
}

// filterNoise drops runs whose first up-to-4 dereferenced pointers all
// land within 16 bytes of each other: such runs point at tightly packed
// small integers, not Krawall records.
func filterNoise(r *rom.Handle, runs []run) ([]run, error) {
	var kept []run
	for _, rn := range runs {
		noisy, err := isNoise(r, rn)
		if err != nil {
			return nil, err
		}
		if !noisy {
			kept = append(kept, rn)
		}
	}
	return kept, nil
}

func isNoise(r *rom.Handle, rn run) (bool, error) {
	n := rn.count
	if n > 4 {
		n = 4
	}
	if n == 0 {
		return true, nil
	}
	var min, max uint32
	for i := 0; i < n; i++ {
		w, err := r.U32(rn.start + uint32(i*4))
		if err != nil {
			return false, err
		}
		target := rom.Mask(w)
		if i == 0 || target < min {
			min = target
		}
		if i == 0 || target > max {
			max = target
		}
	}
	return max-min <= 16, nil
}

// classify computes the 3-bit {module, sample, instrument} mask for a
// run, clearing bits whose structural probe fails.
func classify(r *rom.Handle, rn run, v krawall.Version) (int, error) {
	mask := maskModule | maskSample | maskInstrument

	ok, err := moduleProbe(r, rn, v)
	if err != nil {
		return 0, err
	}
	if !ok {
		mask &^= maskModule
	}

	ok, err = sampleProbe(r, rn)
	if err != nil {
		return 0, err
	}
	if !ok {
		mask &^= maskSample
	}

	ok, err = instrumentProbe(r, rn)
	if err != nil {
		return 0, err
	}
	if !ok {
		mask &^= maskInstrument
	}

	// A mask with more than one bit set is ambiguous and is discarded
	// by the caller (only exact single-bit masks are consumed).
	if mask != maskModule && mask != maskSample && mask != maskInstrument {
		return 0, nil
	}
	return mask, nil
}
