//go:build !cgo

package main

import (
	"errors"

	"github.com/fmtrack/fmtrack/tracker"
)

// with no cgo, we cannot use MIDI, so use a null input
type nullMIDIInput struct{}

func (nullMIDIInput) Inputs() []string         { return nil }
func (nullMIDIInput) Open(prefix string) error { return errors.New("MIDI input needs a build with cgo") }
func (nullMIDIInput) Close()                   {}

func newMIDIInput(broker *tracker.Broker) midiInput {
	return nullMIDIInput{}
}
