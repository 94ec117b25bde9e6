package fmtrack

import (
	"fmt"
	"time"
)

// Pattern is the grid the scheduler plays: an ordered list of rows, each with
// one cell per track, plus the timing metadata. Instruments gives the
// instrument index (into the song's Patch) of every track, so its length is
// the track count.
type Pattern struct {
	BPM         int   `yaml:"bpm" json:"bpm"`
	RowsPerBeat int   `yaml:"rowsPerBeat,omitempty" json:"rowsPerBeat,omitempty"`
	TicksPerRow int   `yaml:"ticksPerRow,omitempty" json:"ticksPerRow,omitempty"`
	Instruments []int `yaml:"instruments,flow" json:"instruments"`
	Rows        []Row `yaml:"rows" json:"rows"`
}

const (
	DefaultRowsPerBeat = 4
	DefaultTicksPerRow = 6
)

// WithDefaults returns a copy of the pattern where unset timing fields have
// their default values.
func (p Pattern) WithDefaults() Pattern {
	if p.RowsPerBeat == 0 {
		p.RowsPerBeat = DefaultRowsPerBeat
	}
	if p.TicksPerRow == 0 {
		p.TicksPerRow = DefaultTicksPerRow
	}
	return p
}

// NumTracks returns the number of tracks i.e. columns in the pattern.
func (p *Pattern) NumTracks() int {
	return len(p.Instruments)
}

// Cell returns the cell at the given row and track; or Sustain if the
// position is out of range.
func (p *Pattern) Cell(row, track int) Cell {
	if row < 0 || row >= len(p.Rows) || track < 0 || track >= len(p.Rows[row]) {
		return Cell{Kind: Sustain}
	}
	return p.Rows[row][track]
}

// TicksPerMinute is the denominator of all timing arithmetic: a tick lasts
// 60 / TicksPerMinute seconds.
func (p *Pattern) TicksPerMinute() int {
	return p.BPM * p.RowsPerBeat * p.TicksPerRow
}

// TickDuration returns how long one tick lasts in real time. For example, BPM
// 120, 4 rows per beat and 6 ticks per row give 20.833 ms.
func (p *Pattern) TickDuration() time.Duration {
	if d := p.TicksPerMinute(); d > 0 {
		return time.Minute / time.Duration(d)
	}
	return 0
}

// RowDuration returns how long one row lasts in real time.
func (p *Pattern) RowDuration() time.Duration {
	if d := p.BPM * p.RowsPerBeat; d > 0 {
		return time.Minute / time.Duration(d)
	}
	return 0
}

// LengthInTicks returns the number of ticks in one pass of the pattern.
func (p *Pattern) LengthInTicks() int {
	return len(p.Rows) * p.TicksPerRow
}

// Validate checks that the pattern can be scheduled: positive timing values,
// at least one track and one row, and every row exactly as wide as the track
// list. All failures wrap ErrMalformedPattern.
func (p *Pattern) Validate() error {
	if p.BPM < 1 {
		return fmt.Errorf("%w: BPM should be > 0, got %d", ErrMalformedPattern, p.BPM)
	}
	if p.RowsPerBeat < 1 {
		return fmt.Errorf("%w: rows per beat should be > 0, got %d", ErrMalformedPattern, p.RowsPerBeat)
	}
	if p.TicksPerRow < 1 {
		return fmt.Errorf("%w: ticks per row should be > 0, got %d", ErrMalformedPattern, p.TicksPerRow)
	}
	if len(p.Instruments) == 0 {
		return fmt.Errorf("%w: pattern contains no tracks", ErrMalformedPattern)
	}
	if len(p.Rows) == 0 {
		return fmt.Errorf("%w: pattern contains no rows", ErrMalformedPattern)
	}
	for i, r := range p.Rows {
		if len(r) != len(p.Instruments) {
			return fmt.Errorf("%w: row %d has %d cells, expected %d", ErrMalformedPattern, i, len(r), len(p.Instruments))
		}
	}
	return nil
}

// Copy makes a deep copy of a Pattern.
func (p *Pattern) Copy() Pattern {
	instruments := make([]int, len(p.Instruments))
	copy(instruments, p.Instruments)
	rows := make([]Row, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = append(Row{}, r...)
	}
	return Pattern{
		BPM:         p.BPM,
		RowsPerBeat: p.RowsPerBeat,
		TicksPerRow: p.TicksPerRow,
		Instruments: instruments,
		Rows:        rows,
	}
}

// Extend returns a copy of the pattern surrounded with context: the last k
// rows are prepended and the first k rows appended, i.e. [last k | pattern |
// first k]. k is clamped to the number of rows. Used for rendering seamless
// loops.
func (p *Pattern) Extend(k int) Pattern {
	k = clamp(k, 0, len(p.Rows))
	ret := p.Copy()
	rows := make([]Row, 0, len(p.Rows)+2*k)
	rows = append(rows, ret.Rows[len(ret.Rows)-k:]...)
	rows = append(rows, ret.Rows...)
	for _, r := range p.Rows[:k] {
		rows = append(rows, append(Row{}, r...))
	}
	ret.Rows = rows
	return ret
}

// EmptyRow returns a row of Sustain cells as wide as the pattern.
func (p *Pattern) EmptyRow() Row {
	return make(Row, len(p.Instruments))
}
