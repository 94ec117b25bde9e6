package chip_test

import (
	"reflect"
	"testing"

	"github.com/fmtrack/fmtrack/chip"
)

const sampleRate = 44100

// keyOn programs channel ch of bank 0 with a plain sine tone and keys it on.
func keyOn(c *chip.Chip, ch byte) {
	slots := []byte{0x00, 0x01, 0x02, 0x08, 0x09, 0x0A, 0x10, 0x11, 0x12}
	for _, slot := range []byte{slots[ch], slots[ch] + 3} {
		c.WriteRegister(0, 0x20+slot, 0x21)
		c.WriteRegister(0, 0x40+slot, 0)
		c.WriteRegister(0, 0x60+slot, 0xF0)
		c.WriteRegister(0, 0x80+slot, 0x0F)
	}
	c.WriteRegister(0, 0x40+slots[ch], 0x3F) // silence the modulator
	c.WriteRegister(0, 0xA0+ch, 0x44)
	c.WriteRegister(0, 0xB0+ch, 0x20|4<<2|1)
}

func peak(buf []int16) int {
	ret := 0
	for _, v := range buf {
		ret = max(ret, int(v), -int(v))
	}
	return ret
}

func TestSilentWithoutKeyOn(t *testing.T) {
	c := chip.New(sampleRate)
	buf := make([]int16, 2*1024)
	c.GenerateSamples(buf)
	if p := peak(buf); p != 0 {
		t.Fatalf("fresh chip should be silent, got peak %d", p)
	}
}

func TestKeyOnAndRelease(t *testing.T) {
	c := chip.New(sampleRate)
	keyOn(c, 0)
	buf := make([]int16, 2*4410)
	c.GenerateSamples(buf)
	if p := peak(buf); p < 1000 {
		t.Fatalf("keyed channel should sound, got peak %d", p)
	}
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("frame %d: left %d and right %d differ", i/2, buf[i], buf[i+1])
		}
	}
	c.WriteRegister(0, 0xB0, 4<<2|1)
	c.GenerateSamples(buf) // release rate 15 is over in a few ms
	c.GenerateSamples(buf)
	if p := peak(buf); p != 0 {
		t.Fatalf("released channel should have decayed to silence, got peak %d", p)
	}
}

func TestRegisterReadBack(t *testing.T) {
	c := chip.New(sampleRate)
	c.WriteRegister(1, 0xA3, 0x7F)
	if v := c.Register(1, 0xA3); v != 0x7F {
		t.Fatalf("expected 0x7F, got %#x", v)
	}
	if v := c.Register(0, 0xA3); v != 0 {
		t.Fatalf("banks should be independent, got %#x", v)
	}
}

func TestDeterministic(t *testing.T) {
	render := func() []int16 {
		c := chip.New(sampleRate)
		keyOn(c, 3)
		c.WriteRegister(0, 0xC3, 0x30|5<<1) // feedback
		buf := make([]int16, 2*2048)
		c.GenerateSamples(buf)
		return buf
	}
	if a, b := render(), render(); !reflect.DeepEqual(a, b) {
		t.Fatalf("two identical chips produced different output")
	}
}
