package fmtrack

type (
	// Patch is simply a list of instruments used in a song
	Patch []Instrument

	// Instrument is a two-operator FM voice definition. The operator values
	// are register contents handed to the chip; Dual instruments occupy two
	// voices, the second one detuned by Detune cents.
	Instrument struct {
		Name       string   `yaml:",omitempty"`
		Comment    string   `yaml:",omitempty"`
		Dual       bool     `yaml:",omitempty"`
		Detune     int      `yaml:",omitempty"` // cents, applied to the partner voice of a dual instrument
		Feedback   int      `yaml:",omitempty"` // 0..7
		Connection int      `yaml:",omitempty"` // 0 = FM, 1 = additive
		Modulator  Operator `yaml:",flow"`
		Carrier    Operator `yaml:",flow"`
	}

	// Operator holds the register values of one operator. Level is an
	// attenuation: 0 is loudest, 63 is silent.
	Operator struct {
		Mult    int `yaml:",omitempty"` // 0..15
		Level   int `yaml:",omitempty"` // 0..63
		Attack  int `yaml:",omitempty"` // 0..15
		Decay   int `yaml:",omitempty"` // 0..15
		Sustain int `yaml:",omitempty"` // 0..15
		Release int `yaml:",omitempty"` // 0..15
		Wave    int `yaml:",omitempty"` // 0..7
	}
)

// DefaultInstrument is used for tracks whose instrument index is not in the
// patch: a plain sine-ish FM tone.
var DefaultInstrument = Instrument{
	Name:      "Default",
	Modulator: Operator{Mult: 1, Level: 40, Attack: 15, Decay: 4, Sustain: 2, Release: 8},
	Carrier:   Operator{Mult: 1, Level: 0, Attack: 15, Decay: 2, Sustain: 1, Release: 8},
}

// Copy makes a deep copy of a Patch.
func (p Patch) Copy() Patch {
	if p == nil {
		return nil
	}
	instruments := make([]Instrument, len(p))
	copy(instruments, p)
	return instruments
}

// Instrument returns the instrument with the given index; or
// DefaultInstrument if the index is out of range.
func (p Patch) Instrument(index int) Instrument {
	if index < 0 || index >= len(p) {
		return DefaultInstrument
	}
	return p[index]
}

// NumVoices returns the number of voices a single note of the instrument
// occupies.
func (i *Instrument) NumVoices() int {
	if i.Dual {
		return 2
	}
	return 1
}
