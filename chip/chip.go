// Package chip implements a small two-operator FM sound chip with an OPL3
// style register interface: two banks of nine channels, each channel a
// modulator and a carrier operator. It is a reference implementation of
// fmtrack.Chip for offline rendering and live playback, not an emulation of
// any real hardware; only the register layout is borrowed.
package chip

import (
	"math"
)

type (
	// Chip is a two-operator FM chip. It is not safe for concurrent use.
	Chip struct {
		sampleRate float64
		regs       [2][256]byte
		channels   [Channels]channel
	}

	channel struct {
		keyOn     bool
		modulator operator
		carrier   operator
		feedback  [2]float64 // two last modulator outputs
		modPhase  float64
		carPhase  float64
	}

	operator struct {
		stage stage
		level float64 // envelope output, 0..1
	}

	stage int
)

const (
	Channels = 18

	clockRate = 49716 // frequency numbers are relative to this
	gain      = 0.25
)

const (
	stageOff stage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

var slotOffsets = [9]int{0x00, 0x01, 0x02, 0x08, 0x09, 0x0A, 0x10, 0x11, 0x12}

var multipliers = [16]float64{0.5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 10, 12, 12, 15, 15}

// New returns a silent chip generating samples at sampleRate.
func New(sampleRate int) *Chip {
	return &Chip{sampleRate: float64(max(sampleRate, 1))}
}

// Register returns the last value written to a register.
func (c *Chip) Register(bank, address byte) byte {
	return c.regs[bank&1][address]
}

// WriteRegister stores a register value. Writing the key-on bit of a 0xB0
// register starts the envelopes of the channel, clearing it releases them.
func (c *Chip) WriteRegister(bank, address, value byte) {
	bank &= 1
	c.regs[bank][address] = value
	if address < 0xB0 || address > 0xB8 {
		return
	}
	ch := &c.channels[int(bank)*9+int(address-0xB0)]
	key := value&0x20 != 0
	switch {
	case key && !ch.keyOn:
		ch.modulator.stage = stageAttack
		ch.carrier.stage = stageAttack
	case !key && ch.keyOn:
		ch.modulator.release()
		ch.carrier.release()
	}
	ch.keyOn = key
}

// GenerateSamples fills dst with len(dst)/2 interleaved stereo frames.
func (c *Chip) GenerateSamples(dst []int16) {
	for i := 0; i+1 < len(dst); i += 2 {
		var sum float64
		for ch := range c.channels {
			sum += c.next(ch)
		}
		v := int16(math.Round(max(min(sum*gain, 1), -1) * 32767))
		dst[i], dst[i+1] = v, v
	}
}

func (c *Chip) next(index int) float64 {
	ch := &c.channels[index]
	if ch.modulator.stage == stageOff && ch.carrier.stage == stageOff {
		return 0
	}
	regs := &c.regs[index/9]
	n := index % 9
	slot := slotOffsets[n]
	fnum := int(regs[0xA0+n]) | int(regs[0xB0+n]&3)<<8
	block := int(regs[0xB0+n]>>2) & 7
	freq := float64(fnum) * clockRate / float64(int(1)<<(20-block))
	conn := regs[0xC0+n]
	fb := float64((conn>>1)&7)
	mod := c.operator(&ch.modulator, regs, slot)
	car := c.operator(&ch.carrier, regs, slot+3)

	modPhase := ch.modPhase
	if fb > 0 {
		modPhase += (ch.feedback[0] + ch.feedback[1]) / 2 * math.Pow(2, fb-8)
	}
	modOut := waveform(regs[0xE0+slot], modPhase) * mod
	ch.feedback[1], ch.feedback[0] = ch.feedback[0], modOut

	var out float64
	if conn&1 == 0 { // frequency modulation
		out = waveform(regs[0xE0+slot+3], ch.carPhase+modOut) * car
	} else { // additive
		out = modOut + waveform(regs[0xE0+slot+3], ch.carPhase)*car
	}
	ch.modPhase = math.Mod(ch.modPhase+freq*multipliers[regs[0x20+slot]&0x0F]/c.sampleRate, 1)
	ch.carPhase = math.Mod(ch.carPhase+freq*multipliers[regs[0x20+slot+3]&0x0F]/c.sampleRate, 1)
	return out
}

// operator advances the envelope of an operator by one sample and returns
// its amplitude, including the total level attenuation of 0.75 dB per step.
// The largest total level, 63, is silent.
func (c *Chip) operator(op *operator, regs *[256]byte, slot int) float64 {
	attack := int(regs[0x60+slot] >> 4)
	decay := int(regs[0x60+slot] & 0x0F)
	sustain := 1 - float64(regs[0x80+slot]>>4)/15
	release := int(regs[0x80+slot] & 0x0F)
	switch op.stage {
	case stageAttack:
		op.level += c.rate(attack)
		if op.level >= 1 {
			op.level = 1
			op.stage = stageDecay
		}
	case stageDecay:
		op.level -= c.rate(decay)
		if op.level <= sustain {
			op.level = sustain
			op.stage = stageSustain
		}
	case stageRelease:
		op.level -= c.rate(release)
		if op.level <= 0 {
			op.level = 0
			op.stage = stageOff
		}
	}
	tl := regs[0x40+slot] & 0x3F
	if tl == 0x3F {
		return 0
	}
	return op.level * math.Pow(10, -float64(tl)*0.75/20)
}

func (op *operator) release() {
	if op.stage != stageOff {
		op.stage = stageRelease
	}
}

// rate returns the envelope change per sample for a 4-bit rate: rate 0 never
// changes, rate 15 sweeps the whole range in about 5 ms and every step down
// takes about 1.6 times longer.
func (c *Chip) rate(r int) float64 {
	if r <= 0 {
		return 0
	}
	seconds := 0.005 * math.Pow(1.6, float64(15-r))
	return 1 / (seconds * c.sampleRate)
}

// waveform returns the value of one of the eight waveforms at a phase given
// in cycles.
func waveform(w byte, phase float64) float64 {
	phase -= math.Floor(phase)
	s := math.Sin(2 * math.Pi * phase)
	switch w & 7 {
	case 1: // half sine
		return max(s, 0)
	case 2: // absolute sine
		return math.Abs(s)
	case 3: // quarter sine
		if math.Mod(phase, 0.5) < 0.25 {
			return math.Abs(s)
		}
		return 0
	case 4: // double frequency sine, first half
		if phase < 0.5 {
			return math.Sin(4 * math.Pi * phase)
		}
		return 0
	case 5:
		if phase < 0.5 {
			return math.Abs(math.Sin(4 * math.Pi * phase))
		}
		return 0
	case 6: // square
		if phase < 0.5 {
			return 1
		}
		return -1
	case 7: // saw
		return 1 - 2*phase
	}
	return s
}
