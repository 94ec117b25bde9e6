package midifile

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/fmtrack/fmtrack"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Resolution is the ticks per quarter note of written files.
const Resolution = 480

// Write writes the events as a MIDI file at a constant tempo. The first track
// holds the tempo; every channel of the events gets a track of its own, with
// MIDI channel Channel mod 16.
func Write(w io.Writer, events []fmtrack.TimelineEvent, bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("invalid tempo %v", bpm)
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)
	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("could not add tempo track: %w", err)
	}
	byChannel := map[int][]fmtrack.TimelineEvent{}
	for _, e := range events {
		byChannel[e.Channel] = append(byChannel[e.Channel], e)
	}
	channels := make([]int, 0, len(byChannel))
	for c := range byChannel {
		channels = append(channels, c)
	}
	slices.Sort(channels)
	for _, c := range channels {
		evs := byChannel[c]
		slices.SortStableFunc(evs, func(a, b fmtrack.TimelineEvent) int { return cmp.Compare(a.Time, b.Time) })
		ch := uint8(c % 16)
		var track smf.Track
		var last int64
		for _, e := range evs {
			tick := int64(math.Round(e.Time * bpm / 60 * Resolution))
			var msg midi.Message
			switch e.Kind {
			case fmtrack.NoteOnEvent:
				msg = midi.NoteOn(ch, e.Note, e.Velocity)
			case fmtrack.NoteOffEvent:
				msg = midi.NoteOff(ch, e.Note)
			case fmtrack.ProgramChangeEvent:
				msg = midi.ProgramChange(ch, uint8(min(max(e.Program, 0), 127)))
			default:
				continue
			}
			track.Add(uint32(max(tick-last, 0)), msg)
			last = max(tick, last)
		}
		track.Close(0)
		if err := s.Add(track); err != nil {
			return fmt.Errorf("could not add track for channel %d: %w", c, err)
		}
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("could not write MIDI: %w", err)
	}
	return nil
}

// WriteFile writes the events to a MIDI file at path.
func WriteFile(path string, events []fmtrack.TimelineEvent, bpm float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create MIDI file: %w", err)
	}
	if err := Write(f, events, bpm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
