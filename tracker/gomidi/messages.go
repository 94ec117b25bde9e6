// Package gomidi connects MIDI input devices to the live player, for jamming
// on the tracks of the loaded song.
package gomidi

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/fmtrack/fmtrack/tracker"
)

// Message translates a MIDI message to a player message: a note-on on MIDI
// channel c triggers a note on track c, and a note-off (or a note-on with
// zero velocity) releases it. ok is false for all other messages.
func Message(msg midi.Message) (ret any, ok bool) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
		return tracker.NoteOnMsg{Track: int(channel), Note: key, Velocity: byte(tracker.MIDIToVelocity(velocity))}, true
	case msg.GetNoteOn(&channel, &key, &velocity), msg.GetNoteOff(&channel, &key, &velocity):
		return tracker.NoteOffMsg{Track: int(channel)}, true
	}
	return nil, false
}
