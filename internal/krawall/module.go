package krawall

import "github.com/jackmacwindows/unkrawerter/rom"

// moduleHeaderSize is the fixed portion of a module record, before the
// variable-length pattern-pointer array.
const moduleHeaderSize = 364

// orderMarker is the "end of song / loop" sentinel order value that
// ReadModule elides from Order.
const orderMarker = 254

// Module is a decoded Krawall song: playback defaults, the order list
// (with marker rows already elided), per-channel default panning, and
// the patterns it references.
type Module struct {
	Channels    byte
	NumOrders   byte
	SongRestart byte
	Order       []byte
	ChannelPan  [32]int8
	SongIndex   [64]byte
	VolGlobal   byte
	InitSpeed   byte
	InitBPM     byte

	FlagInstrumentBased bool
	FlagLinearSlides    bool
	FlagVolSlides       bool
	FlagVolOpt          bool
	FlagAmigaLimits     bool

	Patterns []Pattern
}

// ReadModule decodes the 364-byte module header at offset, elides
// order-254 marker rows, then reads and decodes maxPattern+1 patterns
// through the pattern-pointer array immediately following the header.
func ReadModule(r *rom.Handle, offset uint32, v Version) (Module, error) {
	channels, err := r.U8(offset)
	if err != nil {
		return Module{}, err
	}
	numOrders, err := r.U8(offset + 1)
	if err != nil {
		return Module{}, err
	}
	songRestart, err := r.U8(offset + 2)
	if err != nil {
		return Module{}, err
	}

	rawOrder, err := r.Bytes(offset+3, 256)
	if err != nil {
		return Module{}, err
	}

	var m Module
	m.Channels, m.NumOrders, m.SongRestart = channels, numOrders, songRestart

	m.Order = make([]byte, 0, numOrders)
	for i := 0; i < int(numOrders); i++ {
		if rawOrder[i] == orderMarker {
			continue
		}
		m.Order = append(m.Order, rawOrder[i])
	}
	m.NumOrders = byte(len(m.Order))

	panBase := offset + 3 + 256
	for i := 0; i < 32; i++ {
		p, err := r.I8(panBase + uint32(i))
		if err != nil {
			return Module{}, err
		}
		m.ChannelPan[i] = p
	}

	songIndexBase := panBase + 32
	songIndex, err := r.Bytes(songIndexBase, 64)
	if err != nil {
		return Module{}, err
	}
	copy(m.SongIndex[:], songIndex)

	tailBase := songIndexBase + 64
	volGlobal, err := r.U8(tailBase)
	if err != nil {
		return Module{}, err
	}
	initSpeed, err := r.U8(tailBase + 1)
	if err != nil {
		return Module{}, err
	}
	initBPM, err := r.U8(tailBase + 2)
	if err != nil {
		return Module{}, err
	}
	m.VolGlobal, m.InitSpeed, m.InitBPM = volGlobal, initSpeed, initBPM

	flags, err := r.Bytes(tailBase+3, 5)
	if err != nil {
		return Module{}, err
	}
	m.FlagInstrumentBased = flags[0]&1 != 0
	m.FlagLinearSlides = flags[1]&1 != 0
	m.FlagVolSlides = flags[2]&1 != 0
	m.FlagVolOpt = flags[3]&1 != 0
	m.FlagAmigaLimits = flags[4]&1 != 0

	maxPattern := 0
	for _, idx := range m.Order {
		if int(idx) > maxPattern {
			maxPattern = int(idx)
		}
	}

	pointerBase := offset + moduleHeaderSize
	m.Patterns = make([]Pattern, maxPattern+1)
	for i := 0; i <= maxPattern; i++ {
		target, ok, err := r.Pointer(pointerBase + uint32(i*4))
		if err != nil {
			return Module{}, err
		}
		if !ok {
			continue
		}
		pat, err := ReadPattern(r, target, v)
		if err != nil {
			return Module{}, err
		}
		m.Patterns[i] = pat
	}

	return m, nil
}
