package tracker

import (
	"math"

	"github.com/fmtrack/fmtrack"
)

type (
	// VoiceSink receives the commands the scheduler issues for physical
	// voices. It does not know about tracks or patterns.
	VoiceSink interface {
		NoteOn(voice int, e NoteEvent)
		NoteOff(voice int)
		Cut(voice int)
	}

	// NoteEvent is what a voice should start playing. Detune is in cents and
	// is nonzero only for the partner voice of a dual-voice instrument.
	NoteEvent struct {
		Instrument fmtrack.Instrument
		Note       byte
		Velocity   byte
		Detune     int
	}

	// ChipSink drives a chip with an OPL3 style register layout: two banks of
	// nine two-operator channels. Voice v is channel v%9 of bank v/9.
	ChipSink struct {
		chip fmtrack.Chip
		keys [ChipVoices]byte // last value written to the 0xB0 register, for key-off
	}
)

// ChipVoices is the number of voices a ChipSink can address.
const ChipVoices = 18

// operator slot offsets of the nine channels of a bank; the carrier is 3
// slots after the modulator
var slotOffsets = [9]byte{0x00, 0x01, 0x02, 0x08, 0x09, 0x0A, 0x10, 0x11, 0x12}

const (
	regOpFlags    = 0x20
	regOpLevel    = 0x40
	regOpAttack   = 0x60
	regOpSustain  = 0x80
	regOpWave     = 0xE0
	regFreqLow    = 0xA0
	regKeyOn      = 0xB0
	regConnection = 0xC0

	keyOnBit     = 0x20
	sustainedEG  = 0x20
	stereoOutput = 0x30
	silentLevel  = 0x3F
)

func NewChipSink(chip fmtrack.Chip) *ChipSink {
	return &ChipSink{chip: chip}
}

func (s *ChipSink) NoteOn(voice int, e NoteEvent) {
	if voice < 0 || voice >= ChipVoices {
		return
	}
	bank, ch := byte(voice/9), byte(voice%9)
	slot := slotOffsets[ch]
	instr := e.Instrument
	// key off first so that the chip retriggers the envelopes
	s.chip.WriteRegister(bank, regKeyOn+ch, s.keys[voice]&^keyOnBit)
	s.writeOperator(bank, slot, instr.Modulator, instr.Modulator.Level)
	s.writeOperator(bank, slot+3, instr.Carrier, velocityLevel(instr.Carrier.Level, e.Velocity))
	s.chip.WriteRegister(bank, regConnection+ch, stereoOutput|byte(instr.Feedback&7)<<1|byte(instr.Connection&1))
	fnum, block := frequencyNumber(e.Note, e.Detune)
	s.chip.WriteRegister(bank, regFreqLow+ch, byte(fnum&0xFF))
	s.keys[voice] = keyOnBit | byte(block)<<2 | byte(fnum>>8)&3
	s.chip.WriteRegister(bank, regKeyOn+ch, s.keys[voice])
}

func (s *ChipSink) NoteOff(voice int) {
	if voice < 0 || voice >= ChipVoices {
		return
	}
	s.keys[voice] &^= keyOnBit
	s.chip.WriteRegister(byte(voice/9), regKeyOn+byte(voice%9), s.keys[voice])
}

// Cut silences the voice immediately instead of letting it release.
func (s *ChipSink) Cut(voice int) {
	if voice < 0 || voice >= ChipVoices {
		return
	}
	bank, ch := byte(voice/9), byte(voice%9)
	s.chip.WriteRegister(bank, regOpLevel+slotOffsets[ch]+3, silentLevel)
	s.NoteOff(voice)
}

func (s *ChipSink) writeOperator(bank, slot byte, op fmtrack.Operator, level int) {
	s.chip.WriteRegister(bank, regOpFlags+slot, sustainedEG|byte(op.Mult&0x0F))
	s.chip.WriteRegister(bank, regOpLevel+slot, byte(level&silentLevel))
	s.chip.WriteRegister(bank, regOpAttack+slot, byte(op.Attack&0x0F)<<4|byte(op.Decay&0x0F))
	s.chip.WriteRegister(bank, regOpSustain+slot, byte(op.Sustain&0x0F)<<4|byte(op.Release&0x0F))
	s.chip.WriteRegister(bank, regOpWave+slot, byte(op.Wave&7))
}

// velocityLevel scales the attenuation of the carrier: full velocity keeps
// the instrument level, zero velocity is silent.
func velocityLevel(level int, velocity byte) int {
	level = min(max(level, 0), silentLevel)
	v := int(min(velocity, fmtrack.MaxVelocity))
	return level + (silentLevel-level)*(fmtrack.MaxVelocity-v)/fmtrack.MaxVelocity
}

// frequencyNumber converts a MIDI note (plus detune in cents) to the 10-bit
// frequency number and 3-bit block of the chip, which runs at 49716 Hz:
// f = fnum * 49716 / 2^(20-block).
func frequencyNumber(note byte, cents int) (fnum, block int) {
	f := 440 * math.Pow(2, (float64(note)-69)/12+float64(cents)/1200)
	for block = 0; block < 7; block++ {
		if n := int(math.Round(f * float64(int(1)<<(20-block)) / 49716)); n < 1024 {
			return n, block
		}
	}
	return min(int(f*float64(1<<13)/49716+0.5), 1023), 7
}
