package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/tracker"
	"github.com/fmtrack/fmtrack/voice"
)

var traceLoop bool

var traceCmd = &cobra.Command{
	Use:   "trace <song>",
	Short: "Print the voice events of a song in real time, without audio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		song, err := readSong(args[0])
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		sink := &traceSink{w: cmd.OutOrStdout()}
		s, err := tracker.NewScheduler(song, voice.New(cfg.PoolSize), sink, tracker.WithLoop(traceLoop), tracker.WithLogger(logger))
		if err != nil {
			return err
		}
		sink.sched = s
		if err := tracker.RunTicker(ctx, s, nil); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	traceCmd.Flags().BoolVarP(&traceLoop, "loop", "l", false, "Loop the pattern until interrupted")
}

// traceSink prints the voice events instead of playing them.
type traceSink struct {
	w     io.Writer
	sched *tracker.Scheduler
}

func (t *traceSink) printf(format string, args ...any) {
	p := t.sched.Position()
	fmt.Fprintf(t.w, "%03d.%02d "+format+"\n", append([]any{p.Row, p.Tick}, args...)...)
}

func (t *traceSink) NoteOn(v int, e tracker.NoteEvent) {
	t.printf("voice %2d on  %v vel %d %v", v, fmtrack.NoteName(e.Note), e.Velocity, e.Instrument.Name)
}

func (t *traceSink) NoteOff(v int) {
	t.printf("voice %2d off", v)
}

func (t *traceSink) Cut(v int) {
	t.printf("voice %2d cut", v)
}
