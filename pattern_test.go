package fmtrack_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/fmtrack/fmtrack"
)

func rowsOf(notes ...byte) []fmtrack.Row {
	ret := make([]fmtrack.Row, len(notes))
	for i, n := range notes {
		ret[i] = fmtrack.Row{fmtrack.NoteCell(n, fmtrack.MaxVelocity)}
	}
	return ret
}

func TestPatternTiming(t *testing.T) {
	p := fmtrack.Pattern{BPM: 120, Instruments: []int{0}, Rows: rowsOf(60, 61, 62)}.WithDefaults()
	if p.TicksPerMinute() != 2880 {
		t.Fatalf("expected 2880 ticks per minute, got %d", p.TicksPerMinute())
	}
	if p.RowDuration() != 125*time.Millisecond {
		t.Fatalf("expected 125ms rows, got %v", p.RowDuration())
	}
	if d := p.TickDuration(); d < 20833*time.Microsecond || d > 20834*time.Microsecond {
		t.Fatalf("expected ticks of about 20.833ms, got %v", d)
	}
	if p.LengthInTicks() != 18 {
		t.Fatalf("expected 18 ticks, got %d", p.LengthInTicks())
	}
	if (&fmtrack.Pattern{}).TickDuration() != 0 {
		t.Fatalf("a pattern without tempo should have no tick duration")
	}
}

func TestPatternValidate(t *testing.T) {
	valid := fmtrack.Pattern{BPM: 120, Instruments: []int{0}, Rows: rowsOf(60)}.WithDefaults()
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	broken := []func(p *fmtrack.Pattern){
		func(p *fmtrack.Pattern) { p.BPM = 0 },
		func(p *fmtrack.Pattern) { p.RowsPerBeat = -1 },
		func(p *fmtrack.Pattern) { p.TicksPerRow = 0 },
		func(p *fmtrack.Pattern) { p.Instruments = nil },
		func(p *fmtrack.Pattern) { p.Rows = nil },
		func(p *fmtrack.Pattern) { p.Rows = append(p.Rows, fmtrack.Row{{}, {}}) },
	}
	for i, f := range broken {
		p := valid.Copy()
		f(&p)
		if err := p.Validate(); !errors.Is(err, fmtrack.ErrMalformedPattern) {
			t.Fatalf("case %d: expected ErrMalformedPattern, got %v", i, err)
		}
	}
}

func TestPatternExtend(t *testing.T) {
	p := fmtrack.Pattern{BPM: 120, Instruments: []int{0}, Rows: rowsOf(1, 2, 3, 4, 5)}.WithDefaults()
	if got := p.Extend(2); !reflect.DeepEqual(got.Rows, rowsOf(4, 5, 1, 2, 3, 4, 5, 1, 2)) {
		t.Fatalf("unexpected extended rows %v", got.Rows)
	}
	if got := p.Extend(9); len(got.Rows) != 15 {
		t.Fatalf("context should be clamped to the pattern length, got %d rows", len(got.Rows))
	}
	if got := p.Extend(0); !reflect.DeepEqual(got, p) {
		t.Fatalf("no context should give a copy")
	}
	if len(p.Rows) != 5 {
		t.Fatalf("Extend should not modify the pattern")
	}
}

func TestPatternCell(t *testing.T) {
	p := fmtrack.Pattern{Instruments: []int{0}, Rows: rowsOf(60)}
	if p.Cell(0, 0) != fmtrack.NoteCell(60, fmtrack.MaxVelocity) {
		t.Fatalf("unexpected cell %v", p.Cell(0, 0))
	}
	if p.Cell(1, 0).Kind != fmtrack.Sustain || p.Cell(0, -1).Kind != fmtrack.Sustain {
		t.Fatalf("out of range cells should sustain")
	}
}
