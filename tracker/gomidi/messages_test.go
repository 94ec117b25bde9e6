package gomidi_test

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/fmtrack/fmtrack/tracker"
	"github.com/fmtrack/fmtrack/tracker/gomidi"
)

func TestMessage(t *testing.T) {
	cases := []struct {
		msg      midi.Message
		expected any
	}{
		{midi.NoteOn(2, 60, 127), tracker.NoteOnMsg{Track: 2, Note: 60, Velocity: 64}},
		{midi.NoteOn(0, 61, 64), tracker.NoteOnMsg{Track: 0, Note: 61, Velocity: 32}},
		{midi.NoteOff(2, 60), tracker.NoteOffMsg{Track: 2}},
		{midi.NoteOn(3, 60, 0), tracker.NoteOffMsg{Track: 3}},
	}
	for _, c := range cases {
		got, ok := gomidi.Message(c.msg)
		if !ok || got != c.expected {
			t.Fatalf("%v: got %v, expected %v", c.msg, got, c.expected)
		}
	}
	if _, ok := gomidi.Message(midi.ControlChange(0, 7, 100)); ok {
		t.Fatalf("control changes should be ignored")
	}
}
