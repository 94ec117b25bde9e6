//go:build cgo

package gomidi

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/fmtrack/fmtrack/tracker"
)

// RTMIDIContext forwards the notes of one MIDI input to the player.
type RTMIDIContext struct {
	driver    *rtmididrv.Driver
	currentIn drivers.In
	stop      func()
	broker    *tracker.Broker
	logger    *slog.Logger
}

var ErrNoDriver = errors.New("no MIDI driver available")

// NewContext opens the driver. If that fails, the context is still usable
// but has no inputs.
func NewContext(broker *tracker.Broker, logger *slog.Logger) *RTMIDIContext {
	m := RTMIDIContext{broker: broker, logger: logger}
	var err error
	if m.driver, err = rtmididrv.New(); err != nil {
		logger.Warn("could not open MIDI driver", "err", err)
		m.driver = nil
	}
	return &m
}

// Inputs returns the names of the MIDI inputs.
func (c *RTMIDIContext) Inputs() []string {
	if c.driver == nil {
		return nil
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return nil
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret
}

// Open starts listening to the first input whose name starts with
// namePrefix, closing the currently open input. An empty prefix takes the
// first input.
func (c *RTMIDIContext) Open(namePrefix string) error {
	if c.driver == nil {
		return ErrNoDriver
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs failed: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		c.closeInput()
		if err := in.Open(); err != nil {
			return fmt.Errorf("opening MIDI input failed: %w", err)
		}
		stop, err := midi.ListenTo(in, c.handleMessage)
		if err != nil {
			in.Close()
			return fmt.Errorf("listening to MIDI input failed: %w", err)
		}
		c.currentIn, c.stop = in, stop
		c.logger.Info("opened MIDI input", "name", in.String())
		return nil
	}
	return fmt.Errorf("could not find a MIDI input starting with %q", namePrefix)
}

func (c *RTMIDIContext) handleMessage(msg midi.Message, timestampms int32) {
	if m, ok := Message(msg); ok {
		// if the player is not keeping up, drop the note
		if !tracker.TrySend(c.broker.ToPlayer, m) {
			c.logger.Debug("MIDI message dropped", "msg", msg.String())
		}
	}
}

func (c *RTMIDIContext) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.driver.Close()
}
