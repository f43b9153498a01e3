package s3m

import "github.com/jackmacwindows/unkrawerter/internal/krawall"

// layoutPlan is the "lay out the remaining file on paper" pass spec.md
// describes: every 16-byte-aligned block's paragraph address is computed
// once, up front, so the sample headers (which embed a data
// parapointer) can be written before the data they point to exists on
// disk.
type layoutPlan struct {
	sampleHeaderParapointers []uint16
	patternParapointers      []uint16
	sampleDataParapointers   []uint16
}

func planLayout(mod krawall.Module, samples []krawall.Sample) layoutPlan {
	n := len(mod.Order)
	s := len(samples)
	p := len(mod.Patterns)

	offset := fileHeaderSize + n + s*2 + p*2 + panPositionsSize
	offset = align16(offset)

	var plan layoutPlan

	for range samples {
		plan.sampleHeaderParapointers = append(plan.sampleHeaderParapointers, uint16(offset/16))
		offset += sampleHeaderSize
	}

	for _, pat := range mod.Patterns {
		offset = align16(offset)
		plan.patternParapointers = append(plan.patternParapointers, uint16(offset/16))
		offset += pat.S3MLength + 2
	}

	for _, s := range samples {
		offset = align16(offset)
		plan.sampleDataParapointers = append(plan.sampleDataParapointers, uint16(offset/16))
		offset += int(s.Size)
	}

	return plan
}

func align16(offset int) int {
	if rem := offset & 0xF; rem != 0 {
		offset += 16 - rem
	}
	return offset
}
