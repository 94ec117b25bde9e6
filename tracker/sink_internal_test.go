package tracker

import (
	"math"
	"testing"
)

func TestFrequencyNumber(t *testing.T) {
	for note := byte(24); note <= 108; note++ {
		for cents := -100; cents <= 100; cents++ {
			fnum, block := frequencyNumber(note, cents)
			if fnum >= 1024 || (block > 0 && fnum < 512) {
				t.Fatalf("note %d%+d cents: fnum %d out of range in block %d", note, cents, fnum, block)
			}
			f := 440 * math.Pow(2, (float64(note)-69)/12+float64(cents)/1200)
			got := float64(fnum) * 49716 / float64(int(1)<<(20-block))
			if math.Abs(got-f)/f > 0.002 {
				t.Fatalf("note %d%+d cents: expected %.2f Hz, got %.2f Hz", note, cents, f, got)
			}
		}
	}
}
