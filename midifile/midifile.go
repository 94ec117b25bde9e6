// Package midifile reads Standard MIDI Files into timelines of note events,
// the input of tracker.Resolve.
package midifile

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fmtrack/fmtrack"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// File is the content of a MIDI file relevant to the tracker: the note and
// program change events of all tracks, with times in seconds after the tempo
// map has been applied.
type File struct {
	Events     []fmtrack.TimelineEvent
	BPM        float64 // the initial tempo
	Resolution int     // ticks per quarter note
	Tracks     int
}

type tempoChange struct {
	tick          int64
	usPerQuarter  float64
	secondsAtTick float64
}

const defaultUsPerQuarter = 500000 // 120 BPM

var ErrTimeFormat = errors.New("only metric (ticks per quarter note) time format is supported")

// ReadFile reads the MIDI file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return Read(bytes.NewReader(data))
}

// Read parses a MIDI file. Note-ons with zero velocity are reported as
// note-offs. Events are sorted by time; events at the same time keep the
// track order.
func Read(r io.Reader) (*File, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrTimeFormat
	}
	resolution := int64(mt.Resolution())
	if resolution <= 0 {
		return nil, fmt.Errorf("invalid MIDI resolution %d", resolution)
	}
	tempos := tempoMap(s, resolution)
	ret := &File{
		BPM:        60e6 / tempos[0].usPerQuarter,
		Resolution: int(resolution),
		Tracks:     len(s.Tracks),
	}
	for i, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			e := fmtrack.TimelineEvent{Time: seconds(tempos, resolution, tick), Subtrack: i}
			var ch, key, vel, prog uint8
			msg := midi.Message(ev.Message)
			switch {
			case msg.GetNoteOn(&ch, &key, &vel):
				e.Kind = fmtrack.NoteOnEvent
				if vel == 0 {
					e.Kind = fmtrack.NoteOffEvent
				}
				e.Note, e.Velocity = key, vel
			case msg.GetNoteOff(&ch, &key, &vel):
				e.Kind, e.Note = fmtrack.NoteOffEvent, key
			case msg.GetProgramChange(&ch, &prog):
				e.Kind, e.Program = fmtrack.ProgramChangeEvent, int(prog)
			default:
				continue
			}
			e.Channel = int(ch)
			ret.Events = append(ret.Events, e)
		}
	}
	slices.SortStableFunc(ret.Events, func(a, b fmtrack.TimelineEvent) int {
		return cmp.Compare(a.Time, b.Time)
	})
	return ret, nil
}

// tempoMap collects the tempo changes of all tracks, in tick order, with the
// time at which each one starts. There is always an entry at tick 0.
func tempoMap(s *smf.SMF, resolution int64) []tempoChange {
	ret := []tempoChange{{usPerQuarter: defaultUsPerQuarter}}
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message
			// tempo meta message: FF 51 03 tt tt tt
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				us := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if us > 0 {
					ret = append(ret, tempoChange{tick: tick, usPerQuarter: float64(us)})
				}
			}
		}
	}
	slices.SortStableFunc(ret, func(a, b tempoChange) int { return cmp.Compare(a.tick, b.tick) })
	// a tempo change at tick 0 replaces the default
	for len(ret) > 1 && ret[1].tick == 0 {
		ret = ret[1:]
	}
	for i := 1; i < len(ret); i++ {
		prev := ret[i-1]
		ret[i].secondsAtTick = prev.secondsAtTick + float64(ret[i].tick-prev.tick)*prev.usPerQuarter/1e6/float64(resolution)
	}
	return ret
}

func seconds(tempos []tempoChange, resolution, tick int64) float64 {
	i := len(tempos) - 1
	for i > 0 && tempos[i].tick > tick {
		i--
	}
	t := tempos[i]
	return t.secondsAtTick + float64(tick-t.tick)*t.usPerQuarter/1e6/float64(resolution)
}
