//go:build cgo

package main

import (
	"github.com/fmtrack/fmtrack/tracker"
	"github.com/fmtrack/fmtrack/tracker/gomidi"
)

func newMIDIInput(broker *tracker.Broker) midiInput {
	return gomidi.NewContext(broker, logger)
}
