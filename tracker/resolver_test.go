package tracker_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/tracker"
)

// at 120 BPM and 4 rows per beat, a row lasts 1/8 s
const rowTime = 0.125

func noteOn(row float64, ch int, note byte) fmtrack.TimelineEvent {
	return fmtrack.TimelineEvent{Time: row * rowTime, Channel: ch, Kind: fmtrack.NoteOnEvent, Note: note, Velocity: 127}
}

func noteOff(row float64, ch int, note byte) fmtrack.TimelineEvent {
	return fmtrack.TimelineEvent{Time: row * rowTime, Channel: ch, Kind: fmtrack.NoteOffEvent, Note: note}
}

func program(row float64, ch, p int) fmtrack.TimelineEvent {
	return fmtrack.TimelineEvent{Time: row * rowTime, Channel: ch, Kind: fmtrack.ProgramChangeEvent, Program: p}
}

func resolve(t *testing.T, events ...fmtrack.TimelineEvent) fmtrack.Pattern {
	t.Helper()
	p, err := tracker.Resolve(events, tracker.ResolveOptions{BPM: 120})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return p
}

func TestResolvePolyphonySplit(t *testing.T) {
	p := resolve(t,
		noteOn(0, 1, 60), noteOn(0, 1, 64), noteOn(0, 1, 67),
		noteOff(8, 1, 60), noteOff(8, 1, 64), noteOff(8, 1, 67),
	)
	if p.NumTracks() != 3 {
		t.Fatalf("expected 3 columns, got %d", p.NumTracks())
	}
	if len(p.Rows) != 9 {
		t.Fatalf("expected 9 rows, got %d", len(p.Rows))
	}
	expected := []fmtrack.Row{{on(60), on(64), on(67)}}
	for i := 1; i < 8; i++ {
		expected = append(expected, fmtrack.Row{sus, sus, sus})
	}
	expected = append(expected, fmtrack.Row{off, off, off})
	if !reflect.DeepEqual(p.Rows, expected) {
		t.Fatalf("got %v, expected %v", p.Rows, expected)
	}
}

func TestResolveReusesReleasedColumn(t *testing.T) {
	p := resolve(t,
		noteOn(0, 0, 60), noteOff(4, 0, 60),
		noteOn(4, 0, 62), noteOff(6, 0, 62),
	)
	expected := []fmtrack.Row{{on(60)}, {sus}, {sus}, {sus}, {on(62)}, {sus}, {off}}
	if !reflect.DeepEqual(p.Rows, expected) {
		t.Fatalf("got %v, expected %v", p.Rows, expected)
	}
}

func TestResolveLowestFreeColumn(t *testing.T) {
	p := resolve(t,
		noteOn(0, 0, 60), noteOn(0, 0, 64), noteOn(0, 0, 67),
		noteOff(2, 0, 64), noteOff(2, 0, 60),
		noteOn(3, 0, 72),
	)
	if got := p.Cell(3, 0); got != on(72) {
		t.Fatalf("the new note should go to the lowest free column, got row %v", p.Rows[3])
	}
}

func TestResolveSameRowNoteOffIsDeferred(t *testing.T) {
	p := resolve(t, noteOn(0, 0, 60), noteOff(0.2, 0, 60))
	expected := []fmtrack.Row{{on(60)}, {off}}
	if !reflect.DeepEqual(p.Rows, expected) {
		t.Fatalf("got %v, expected %v", p.Rows, expected)
	}
}

func TestResolveLegatoReusesColumn(t *testing.T) {
	// the note-off of C-4 comes just after the note-on of D-4, both round
	// to row 4
	p := resolve(t,
		noteOn(0, 0, 60),
		noteOn(3.76, 0, 62), noteOff(3.92, 0, 60),
		noteOff(8, 0, 62),
	)
	expected := []fmtrack.Row{{on(60)}, {sus}, {sus}, {sus}, {on(62)}, {sus}, {sus}, {sus}, {off}}
	if !reflect.DeepEqual(p.Rows, expected) {
		t.Fatalf("got %v, expected %v", p.Rows, expected)
	}
	p = resolve(t,
		noteOn(0, 0, 60),
		noteOn(3.76, 0, 60), noteOff(3.92, 0, 60),
		noteOff(8, 0, 60),
	)
	if p.NumTracks() != 1 || p.Cell(4, 0) != on(60) || p.Cell(8, 0) != off {
		t.Fatalf("a repeated note should stay in its column, got %v", p.Rows)
	}
}

func TestResolveOrphanNoteOff(t *testing.T) {
	var logs bytes.Buffer
	p, err := tracker.Resolve([]fmtrack.TimelineEvent{
		noteOff(0, 0, 50),
		noteOn(1, 0, 60),
		noteOff(2, 0, 61),
	}, tracker.ResolveOptions{BPM: 120, Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	expected := []fmtrack.Row{{sus}, {on(60)}}
	if !reflect.DeepEqual(p.Rows, expected) {
		t.Fatalf("got %v, expected %v", p.Rows, expected)
	}
	if strings.Count(logs.String(), fmtrack.ErrOrphanNoteOff.Error()) != 2 {
		t.Fatalf("both orphan note-offs should be logged, got %q", logs.String())
	}
}

func TestResolvePrograms(t *testing.T) {
	p := resolve(t,
		noteOn(0, 1, 60), noteOn(0, 0, 48), noteOn(0, 1, 64),
		program(0, 0, 5), program(0, 1, 2), // sorted before the notes of the same time
		program(0.5, 0, 7),                 // too late: channel 0 already has a column
		noteOn(1, 0, 50),
		noteOn(1, 2, 70),
	)
	if expected := []int{2, 5, 2, 5, 0}; !reflect.DeepEqual(p.Instruments, expected) {
		t.Fatalf("got instruments %v, expected %v", p.Instruments, expected)
	}
}

func TestResolveVelocity(t *testing.T) {
	e := noteOn(0, 0, 60)
	e.Velocity = 64
	p := resolve(t, e)
	if v := p.Cell(0, 0).Velocity; v != 32 {
		t.Fatalf("MIDI velocity 64 should map to 32, got %d", v)
	}
}

func TestResolveRejectsEmptyTimeline(t *testing.T) {
	_, err := tracker.Resolve([]fmtrack.TimelineEvent{program(0, 0, 1), noteOff(1, 0, 60)}, tracker.ResolveOptions{BPM: 120})
	if !errors.Is(err, fmtrack.ErrMalformedPattern) {
		t.Fatalf("expected ErrMalformedPattern, got %v", err)
	}
	_, err = tracker.Resolve([]fmtrack.TimelineEvent{noteOn(0, 0, 60)}, tracker.ResolveOptions{})
	if !errors.Is(err, fmtrack.ErrMalformedPattern) {
		t.Fatalf("expected ErrMalformedPattern for zero BPM, got %v", err)
	}
}

func randomTimeline(rng *rand.Rand, n int) []fmtrack.TimelineEvent {
	var ret []fmtrack.TimelineEvent
	for i := 0; i < n; i++ {
		ch := rng.Intn(3)
		note := byte(48 + rng.Intn(12))
		start := float64(rng.Intn(64)) / 2
		ret = append(ret,
			fmtrack.TimelineEvent{Time: start * rowTime, Channel: ch, Kind: fmtrack.NoteOnEvent, Note: note, Velocity: byte(1 + rng.Intn(127))},
			fmtrack.TimelineEvent{Time: (start + float64(rng.Intn(16))/2) * rowTime, Channel: ch, Kind: fmtrack.NoteOffEvent, Note: note},
		)
	}
	return ret
}

func TestResolveKeepsEveryNote(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		events := randomTimeline(rng, 40)
		p := resolve(t, events...)
		if err := p.Validate(); err != nil {
			t.Fatalf("timeline %d: invalid pattern: %v", i, err)
		}
		notes := 0
		for _, row := range p.Rows {
			for _, c := range row {
				if c.Kind == fmtrack.NoteOn {
					notes++
				}
			}
		}
		if notes != 40 {
			t.Fatalf("timeline %d: expected 40 note-ons in the pattern, got %d", i, notes)
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		p := resolve(t, randomTimeline(rng, 30)...)
		q, err := tracker.Resolve(tracker.Timeline(p), tracker.ResolveOptions{BPM: p.BPM, RowsPerBeat: p.RowsPerBeat, TicksPerRow: p.TicksPerRow})
		if err != nil {
			t.Fatalf("timeline %d: re-resolve: %v", i, err)
		}
		if !reflect.DeepEqual(p, q) {
			t.Fatalf("timeline %d: resolving twice changed the pattern:\n%v\n%v", i, p.Rows, q.Rows)
		}
	}
}
