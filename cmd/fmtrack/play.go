package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmtrack/fmtrack/oto"
	"github.com/fmtrack/fmtrack/tracker"
)

type midiInput interface {
	Inputs() []string
	Open(namePrefix string) error
	Close()
}

var playFlags struct {
	loop      bool
	row       int
	midiInput string
	listMIDI  bool
}

var playCmd = &cobra.Command{
	Use:   "play <song>",
	Short: "Play a song on the audio device",
	Long: `Plays the song live. Without --loop, playback ends after the last row.
With a MIDI input, notes played on MIDI channel n are played on track n, and
playback continues until interrupted.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if playFlags.listMIDI {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		broker := tracker.NewBroker()
		midiContext := newMIDIInput(broker)
		defer midiContext.Close()
		if playFlags.listMIDI {
			for _, name := range midiContext.Inputs() {
				fmt.Println(name)
			}
			return nil
		}
		jamming := false
		if cmd.Flags().Changed("midi-input") {
			if err := midiContext.Open(playFlags.midiInput); err != nil {
				logger.Warn("failed to open MIDI input", "prefix", playFlags.midiInput, "err", err)
			} else {
				jamming = true
			}
		}
		return play(ctx, broker, args[0], jamming)
	},
}

func init() {
	playCmd.Flags().BoolVarP(&playFlags.loop, "loop", "l", false, "Loop the pattern until interrupted")
	playCmd.Flags().IntVar(&playFlags.row, "row", 0, "Row to start playing from")
	playCmd.Flags().StringVar(&playFlags.midiInput, "midi-input", "", "Jam with the MIDI input whose name starts with the prefix; empty takes the first input")
	playCmd.Flags().BoolVar(&playFlags.listMIDI, "list-midi", false, "List the MIDI inputs and exit")
}

func play(ctx context.Context, broker *tracker.Broker, file string, jamming bool) error {
	song, err := readSong(file)
	if err != nil {
		return err
	}
	if err := song.Validate(); err != nil {
		return err
	}
	audioContext, err := oto.NewContext(cfg.SampleRate, cfg.BufferSize)
	if err != nil {
		return err
	}
	defer audioContext.Close()
	player := tracker.NewPlayer(broker, newRenderer())
	broker.ToPlayer <- tracker.NewLoopMsg(playFlags.loop)
	broker.ToPlayer <- song
	broker.ToPlayer <- tracker.StartPlayMsg{Row: playFlags.row}
	output := audioContext.Play(player)
	defer output.Close()
	err = watch(ctx, broker, jamming)
	tracker.TrySend(broker.ClosePlayer, struct{}{})
	select {
	case <-broker.FinishedPlayer:
		output.Wait()
	case <-time.After(3 * time.Second):
		logger.Warn("player did not finish in time")
	}
	return err
}

// watch follows the player until the song has played to the end or ctx is
// done.
func watch(ctx context.Context, broker *tracker.Broker, jamming bool) error {
	started := false
	row := -1
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg := <-broker.ToModel:
			if alert, ok := msg.Data.(tracker.Alert); ok {
				if alert.Priority == tracker.Error {
					return errors.New(alert.Message)
				}
				logger.Warn(alert.Message, "name", alert.Name)
			}
			if msg.Playing {
				started = true
				if msg.HasPosition && msg.Position.Row != row {
					row = msg.Position.Row
					logger.Debug("row", "row", row, "busy", msg.Busy)
				}
			} else if started && !jamming {
				return nil
			}
		}
	}
}
