package krawall

import "github.com/jackmacwindows/unkrawerter/rom"

// EnvNode is one envelope breakpoint. Coord packs y (low 9 bits) and x
// (high 7 bits); Inc is written by the engine but never read back, so
// decoders may ignore it.
type EnvNode struct {
	Coord uint16
	Inc   uint16
}

const envNodeCount = 12

// envelopeSize is the packed byte size of one Envelope record: 12
// (coord, inc) pairs plus four scalar bytes.
const envelopeSize = envNodeCount*4 + 4

// Envelope is a volume or panning envelope: up to Max+1 breakpoints,
// with an optional sustain point and loop.
type Envelope struct {
	Nodes     [envNodeCount]EnvNode
	Max       uint8
	Sus       uint8
	LoopStart uint8
	Flags     uint8
}

func readEnvelope(r *rom.Handle, offset uint32) (Envelope, error) {
	var e Envelope
	for i := 0; i < envNodeCount; i++ {
		coord, err := r.U16(offset + uint32(i*4))
		if err != nil {
			return Envelope{}, err
		}
		inc, err := r.U16(offset + uint32(i*4) + 2)
		if err != nil {
			return Envelope{}, err
		}
		e.Nodes[i] = EnvNode{Coord: coord, Inc: inc}
	}
	base := offset + envNodeCount*4
	max, err := r.U8(base)
	if err != nil {
		return Envelope{}, err
	}
	sus, err := r.U8(base + 1)
	if err != nil {
		return Envelope{}, err
	}
	loopStart, err := r.U8(base + 2)
	if err != nil {
		return Envelope{}, err
	}
	flags, err := r.U8(base + 3)
	if err != nil {
		return Envelope{}, err
	}
	e.Max, e.Sus, e.LoopStart, e.Flags = max, sus, loopStart, flags
	return e, nil
}

const instrumentSampleCount = 96

// Instrument maps a per-note sample index and layers a volume/panning
// envelope pair and vibrato on top.
type Instrument struct {
	Samples [instrumentSampleCount]uint16
	EnvVol  Envelope
	EnvPan  Envelope
	VolFade uint16

	VibType, VibSweep, VibDepth, VibRate uint8
}

// ReadInstrument decodes the fixed-size instrument record at offset:
// 96 per-note sample indices, a volume envelope, a panning envelope,
// fade-out, and four vibrato bytes.
func ReadInstrument(r *rom.Handle, offset uint32) (Instrument, error) {
	var inst Instrument
	for i := 0; i < instrumentSampleCount; i++ {
		v, err := r.U16(offset + uint32(i*2))
		if err != nil {
			return Instrument{}, err
		}
		inst.Samples[i] = v
	}
	base := offset + instrumentSampleCount*2

	envVol, err := readEnvelope(r, base)
	if err != nil {
		return Instrument{}, err
	}
	envPan, err := readEnvelope(r, base+envelopeSize)
	if err != nil {
		return Instrument{}, err
	}
	inst.EnvVol, inst.EnvPan = envVol, envPan

	base += envelopeSize * 2
	volFade, err := r.U16(base)
	if err != nil {
		return Instrument{}, err
	}
	inst.VolFade = volFade

	vibType, err := r.U8(base + 2)
	if err != nil {
		return Instrument{}, err
	}
	vibSweep, err := r.U8(base + 3)
	if err != nil {
		return Instrument{}, err
	}
	vibDepth, err := r.U8(base + 4)
	if err != nil {
		return Instrument{}, err
	}
	vibRate, err := r.U8(base + 5)
	if err != nil {
		return Instrument{}, err
	}
	inst.VibType, inst.VibSweep, inst.VibDepth, inst.VibRate = vibType, vibSweep, vibDepth, vibRate

	return inst, nil
}

// InstrumentSize is the fixed byte length of one packed instrument
// record as ReadInstrument decodes it.
const InstrumentSize = instrumentSampleCount*2 + envelopeSize*2 + 2 + 4
