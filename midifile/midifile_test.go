package midifile_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/midifile"
	"github.com/fmtrack/fmtrack/tracker"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeSMF(t *testing.T, tracks ...smf.Track) *bytes.Reader {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	for i, track := range tracks {
		track.Close(0)
		if err := s.Add(track); err != nil {
			t.Fatalf("adding track %d: %v", i, err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("writing MIDI: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestRead(t *testing.T) {
	var tempo, notes smf.Track
	tempo.Add(0, smf.MetaTempo(120))
	notes.Add(0, midi.ProgramChange(1, 5))
	notes.Add(0, midi.NoteOn(1, 60, 100))
	notes.Add(480, midi.NoteOff(1, 60))
	notes.Add(0, midi.NoteOn(1, 62, 90))
	notes.Add(240, midi.NoteOn(1, 62, 0))
	f, err := midifile.Read(writeSMF(t, tempo, notes))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.BPM != 120 || f.Resolution != 480 || f.Tracks != 2 {
		t.Fatalf("unexpected header %+v", f)
	}
	expected := []fmtrack.TimelineEvent{
		{Time: 0, Channel: 1, Subtrack: 1, Kind: fmtrack.ProgramChangeEvent, Program: 5},
		{Time: 0, Channel: 1, Subtrack: 1, Kind: fmtrack.NoteOnEvent, Note: 60, Velocity: 100},
		{Time: 0.5, Channel: 1, Subtrack: 1, Kind: fmtrack.NoteOffEvent, Note: 60},
		{Time: 0.5, Channel: 1, Subtrack: 1, Kind: fmtrack.NoteOnEvent, Note: 62, Velocity: 90},
		{Time: 0.75, Channel: 1, Subtrack: 1, Kind: fmtrack.NoteOffEvent, Note: 62},
	}
	if !reflect.DeepEqual(f.Events, expected) {
		t.Fatalf("got %+v, expected %+v", f.Events, expected)
	}
}

func TestReadTempoChanges(t *testing.T) {
	var tempo, notes smf.Track
	tempo.Add(0, smf.MetaTempo(120))
	tempo.Add(960, smf.MetaTempo(60)) // after 2 beats, i.e. 1 s
	notes.Add(1920, midi.NoteOn(0, 60, 100))
	f, err := midifile.Read(writeSMF(t, tempo, notes))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(f.Events) != 1 || f.Events[0].Time != 2 {
		t.Fatalf("the note should start at 2 s, got %+v", f.Events)
	}
}

func TestReadDefaultTempo(t *testing.T) {
	var notes smf.Track
	notes.Add(960, midi.NoteOn(0, 60, 100))
	f, err := midifile.Read(writeSMF(t, notes))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.BPM != 120 || f.Events[0].Time != 1 {
		t.Fatalf("without a tempo the file should play at 120 BPM, got %v BPM and %+v", f.BPM, f.Events)
	}
}

func TestReadInvalid(t *testing.T) {
	if _, err := midifile.Read(bytes.NewReader([]byte("not a midi file"))); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestImportChord(t *testing.T) {
	var notes smf.Track
	notes.Add(0, midi.ProgramChange(0, 3))
	notes.Add(0, midi.NoteOn(0, 60, 127))
	notes.Add(0, midi.NoteOn(0, 64, 127))
	notes.Add(0, midi.NoteOn(0, 67, 127))
	notes.Add(480, midi.NoteOff(0, 60))
	notes.Add(0, midi.NoteOff(0, 64))
	notes.Add(0, midi.NoteOff(0, 67))
	f, err := midifile.Read(writeSMF(t, notes))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	p, err := tracker.Resolve(f.Events, tracker.ResolveOptions{BPM: int(f.BPM)})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(p.Instruments, []int{3, 3, 3}) {
		t.Fatalf("expected three columns with program 3, got %v", p.Instruments)
	}
	if len(p.Rows) != 5 || p.Rows[4][0].Kind != fmtrack.NoteOff {
		t.Fatalf("one beat is 4 rows, so the notes should end on row 4, got %v", p.Rows)
	}
}

func TestWriteReadResolve(t *testing.T) {
	sus := fmtrack.Cell{}
	p := fmtrack.Pattern{
		BPM:         120,
		RowsPerBeat: 4,
		TicksPerRow: 6,
		Instruments: []int{2, 0},
		Rows: []fmtrack.Row{
			{fmtrack.NoteCell(60, 64), sus},
			{sus, fmtrack.NoteCell(40, 32)},
			{fmtrack.NoteCell(62, 16), sus},
			{fmtrack.OffCell(), sus},
			{sus, fmtrack.OffCell()},
		},
	}
	var buf bytes.Buffer
	if err := midifile.Write(&buf, tracker.Timeline(p), float64(p.BPM)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := midifile.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.Tracks != 3 || f.BPM != 120 {
		t.Fatalf("expected a tempo track and two note tracks at 120 BPM, got %+v", f)
	}
	q, err := tracker.Resolve(f.Events, tracker.ResolveOptions{BPM: p.BPM, RowsPerBeat: p.RowsPerBeat, TicksPerRow: p.TicksPerRow})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(p, q) {
		t.Fatalf("pattern changed in a MIDI round trip:\n%v\n%v", p, q)
	}
}

func TestWriteRejectsZeroTempo(t *testing.T) {
	if err := midifile.Write(&bytes.Buffer{}, nil, 0); err == nil {
		t.Fatalf("expected an error")
	}
}
