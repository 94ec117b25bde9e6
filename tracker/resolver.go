package tracker

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/fmtrack/fmtrack"
)

// ResolveOptions gives the timing of the pattern that Resolve produces.
// RowsPerBeat and TicksPerRow default to the pattern defaults when zero.
type ResolveOptions struct {
	BPM         int
	RowsPerBeat int
	TicksPerRow int
	Logger      *slog.Logger
}

type (
	resolver struct {
		opts     ResolveOptions
		logger   *slog.Logger
		channels map[int]*channelColumns
		columns  []*column
		lastRow  int
		early    []timedEvent // note-offs of a row that came before their note-on
	}

	// channelColumns are the output columns used by one input channel, in
	// column order.
	channelColumns struct {
		columns    []*column
		program    int
		programSet bool // the program is fixed once the channel gets its first column
	}

	column struct {
		instrument int
		sounding   map[byte]int // note -> row of its note-on
		cells      map[int]fmtrack.Cell
	}

	timedEvent struct {
		row int
		fmtrack.TimelineEvent
	}
)

// Resolve turns a timeline of note events into a pattern. Overlapping notes
// of a channel are spread over as many columns as needed, so that every
// column has at most one sounding note at a time. A column is reused for a
// new note as soon as its previous note has been released; among the free
// columns of the channel the lowest one wins. Each column plays the program
// of its channel, taken from the channel's first program change (0 if there
// is none).
//
// Events are quantized to rows first. Within a row, note-offs are handled
// before note-ons, so a note released just after the next one starts still
// frees its column. A note-off that lands on the same row as its note-on is
// written one row later, so the note is not lost. Note-offs without a
// sounding note are logged and ignored.
func Resolve(events []fmtrack.TimelineEvent, opts ResolveOptions) (fmtrack.Pattern, error) {
	if opts.BPM < 1 {
		return fmtrack.Pattern{}, fmt.Errorf("%w: BPM should be > 0, got %d", fmtrack.ErrMalformedPattern, opts.BPM)
	}
	if opts.RowsPerBeat == 0 {
		opts.RowsPerBeat = fmtrack.DefaultRowsPerBeat
	}
	if opts.TicksPerRow == 0 {
		opts.TicksPerRow = fmtrack.DefaultTicksPerRow
	}
	r := &resolver{
		opts:     opts,
		logger:   opts.Logger,
		channels: map[int]*channelColumns{},
		lastRow:  -1,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, e := range r.sorted(events) {
		if len(r.early) > 0 && e.row > r.early[0].row {
			r.flushEarly()
		}
		r.handle(e)
	}
	r.flushEarly()
	p := r.pattern()
	if len(r.columns) == 0 {
		return fmtrack.Pattern{}, fmt.Errorf("%w: timeline contains no notes", fmtrack.ErrMalformedPattern)
	}
	return p, nil
}

// sorted orders the events by row; events on the same row are ordered
// program changes first, then note-offs, then note-ons, each by time. The
// original order is kept otherwise.
func (r *resolver) sorted(events []fmtrack.TimelineEvent) []timedEvent {
	ret := make([]timedEvent, len(events))
	rowsPerSecond := float64(r.opts.BPM*r.opts.RowsPerBeat) / 60
	for i, e := range events {
		ret[i] = timedEvent{row: max(int(math.Round(e.Time*rowsPerSecond)), 0), TimelineEvent: e}
	}
	slices.SortStableFunc(ret, func(a, b timedEvent) int {
		if c := cmp.Compare(a.row, b.row); c != 0 {
			return c
		}
		if c := cmp.Compare(kindOrder(a.TimelineEvent), kindOrder(b.TimelineEvent)); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return ret
}

func kindOrder(e fmtrack.TimelineEvent) int {
	switch {
	case e.Kind == fmtrack.ProgramChangeEvent:
		return 0
	case e.Kind == fmtrack.NoteOffEvent, e.Velocity == 0:
		return 1
	default:
		return 2
	}
}

func (r *resolver) handle(e timedEvent) {
	ch := r.channel(e.Channel)
	switch {
	case e.Kind == fmtrack.ProgramChangeEvent:
		if !ch.programSet {
			ch.program = e.Program
		}
	case e.Kind == fmtrack.NoteOnEvent && e.Velocity > 0:
		if c := ch.sounding(e.Note); c != nil {
			r.logger.Warn("note-on for a sounding note, releasing it first", "channel", e.Channel, "note", fmtrack.NoteName(e.Note), "row", e.row)
			r.noteOff(c, e.Note, e.row)
		}
		c := ch.free(e.row)
		if c == nil {
			c = &column{instrument: ch.program, sounding: map[byte]int{}, cells: map[int]fmtrack.Cell{}}
			ch.columns = append(ch.columns, c)
			ch.programSet = true
			r.columns = append(r.columns, c)
		}
		c.cells[e.row] = fmtrack.NoteCell(e.Note, MIDIToVelocity(e.Velocity))
		c.sounding[e.Note] = e.row
		r.lastRow = max(r.lastRow, e.row)
		if i := r.earlyOff(e); i >= 0 {
			r.early = slices.Delete(r.early, i, i+1)
			r.noteOff(c, e.Note, e.row)
		}
	default: // note-off, or note-on with zero velocity
		c := ch.sounding(e.Note)
		if c == nil {
			// the note-on may still follow on this row
			r.early = append(r.early, e)
			return
		}
		r.noteOff(c, e.Note, e.row)
	}
}

// earlyOff returns the index of the held note-off that ends the note-on e,
// or -1.
func (r *resolver) earlyOff(e timedEvent) int {
	return slices.IndexFunc(r.early, func(o timedEvent) bool {
		return o.Channel == e.Channel && o.Note == e.Note && o.Time >= e.Time
	})
}

// flushEarly drops the held note-offs that no note-on of their row claimed.
func (r *resolver) flushEarly() {
	for _, e := range r.early {
		r.logger.Warn("note-off ignored", "channel", e.Channel, "note", fmtrack.NoteName(e.Note), "row", e.row, "err", fmtrack.ErrOrphanNoteOff)
	}
	r.early = r.early[:0]
}

func (r *resolver) channel(ch int) *channelColumns {
	c, ok := r.channels[ch]
	if !ok {
		c = &channelColumns{}
		r.channels[ch] = c
	}
	return c
}

// noteOff ends a note of a column. A note-off on the row of the note-on
// moves one row later; a note-off on a row that already has a new note-on
// is dropped, as the note-on releases the old note anyway.
func (r *resolver) noteOff(c *column, note byte, row int) {
	start := c.sounding[note]
	delete(c.sounding, note)
	row = max(row, start+1)
	if c.cells[row].Kind == fmtrack.NoteOn {
		return
	}
	c.cells[row] = fmtrack.OffCell()
	r.lastRow = max(r.lastRow, row)
}

func (ch *channelColumns) sounding(note byte) *column {
	for _, c := range ch.columns {
		if _, ok := c.sounding[note]; ok {
			return c
		}
	}
	return nil
}

// free returns the lowest column of the channel that can take a note-on at
// row, or nil.
func (ch *channelColumns) free(row int) *column {
	for _, c := range ch.columns {
		if len(c.sounding) == 0 && c.cells[row].Kind != fmtrack.NoteOn {
			return c
		}
	}
	return nil
}

// pattern lays out the columns that received a note, in allocation order.
func (r *resolver) pattern() fmtrack.Pattern {
	r.columns = slices.DeleteFunc(r.columns, func(c *column) bool {
		for _, cell := range c.cells {
			if cell.Kind == fmtrack.NoteOn {
				return false
			}
		}
		return true
	})
	p := fmtrack.Pattern{
		BPM:         r.opts.BPM,
		RowsPerBeat: r.opts.RowsPerBeat,
		TicksPerRow: r.opts.TicksPerRow,
		Instruments: make([]int, len(r.columns)),
		Rows:        make([]fmtrack.Row, r.lastRow+1),
	}
	for i, c := range r.columns {
		p.Instruments[i] = c.instrument
	}
	for i := range p.Rows {
		p.Rows[i] = p.EmptyRow()
	}
	for i, c := range r.columns {
		for row, cell := range c.cells {
			p.Rows[row][i] = cell
		}
	}
	return p
}

// Timeline turns a pattern back into note events, each column on its own
// channel. Every column starts with a program change to its instrument.
// Effects are ignored: delayed notes start at the row and cut notes sound
// until the next note-off or note-on of their column.
func Timeline(p fmtrack.Pattern) []fmtrack.TimelineEvent {
	p = p.WithDefaults()
	rowTime := 60 / float64(max(p.BPM*p.RowsPerBeat, 1))
	var ret []fmtrack.TimelineEvent
	for c, instr := range p.Instruments {
		ret = append(ret, fmtrack.TimelineEvent{Channel: c, Kind: fmtrack.ProgramChangeEvent, Program: instr})
	}
	sounding := make([]int, p.NumTracks())
	for i := range sounding {
		sounding[i] = -1
	}
	for r, row := range p.Rows {
		t := float64(r) * rowTime
		for c := range p.Instruments {
			if c >= len(row) {
				continue
			}
			a := fmtrack.Interpret(row[c])
			if a.Kind != fmtrack.ActionRelease && a.Kind != fmtrack.ActionTrigger {
				continue
			}
			if sounding[c] >= 0 {
				ret = append(ret, fmtrack.TimelineEvent{Time: t, Channel: c, Kind: fmtrack.NoteOffEvent, Note: byte(sounding[c])})
				sounding[c] = -1
			}
			if a.Kind == fmtrack.ActionTrigger {
				ret = append(ret, fmtrack.TimelineEvent{Time: t, Channel: c, Kind: fmtrack.NoteOnEvent, Note: a.Note, Velocity: VelocityToMIDI(a.Velocity)})
				sounding[c] = int(a.Note)
			}
		}
	}
	return ret
}

// MIDIToVelocity maps a MIDI velocity 0..127 to a cell velocity 0..64,
// rounding to the nearest. VelocityToMIDI is its inverse.
func MIDIToVelocity(v byte) int {
	return int(math.Round(float64(min(v, 127)) * fmtrack.MaxVelocity / 127))
}

func VelocityToMIDI(v byte) byte {
	return byte(math.Round(float64(min(v, fmtrack.MaxVelocity)) * 127 / fmtrack.MaxVelocity))
}
