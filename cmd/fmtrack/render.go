package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/fmtrack/fmtrack"
)

var renderFlags struct {
	directory  string
	raw        bool
	loop       bool
	iterations int
}

var renderCmd = &cobra.Command{
	Use:   "render <song|dir>...",
	Short: "Render songs to .wav (or .raw) files",
	Long: `Renders every song once from the first to the last row. With --loop, the
pattern is rendered as a seamless loop instead, with the settings of the loop
section of the config.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := songFiles(args)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return forEachFile(files, func(file string) error { return render(ctx, file) })
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderFlags.directory, "output", "o", "", "Directory where to output the files; by default next to the songs")
	renderCmd.Flags().BoolVarP(&renderFlags.raw, "raw", "r", false, "Output raw 16-bit little-endian stereo instead of .wav")
	renderCmd.Flags().BoolVarP(&renderFlags.loop, "loop", "l", false, "Render a seamless loop")
	renderCmd.Flags().IntVarP(&renderFlags.iterations, "iterations", "n", 0, "How many times the loop is repeated; overrides the config")
}

func render(ctx context.Context, file string) error {
	song, err := readSong(file)
	if err != nil {
		return err
	}
	r := newRenderer()
	var buffer fmtrack.AudioBuffer
	if renderFlags.loop {
		opts := cfg.LoopOptions()
		if renderFlags.iterations > 0 {
			opts.Iterations = renderFlags.iterations
		}
		buffer, err = r.RenderLoop(ctx, song, opts)
	} else {
		buffer, err = r.Render(ctx, song)
	}
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}
	extension := ".wav"
	if renderFlags.raw {
		extension = ".raw"
	}
	path, err := outputPath(file, renderFlags.directory, extension)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", path, err)
	}
	defer f.Close()
	if renderFlags.raw {
		_, err = f.Write(buffer.Raw())
	} else {
		err = buffer.WriteWav(f, r.SampleRate())
	}
	if err != nil {
		return fmt.Errorf("could not write %v: %w", path, err)
	}
	logger.Info("rendered", "file", file, "output", path, "duration", buffer.Duration(r.SampleRate()), "peak", buffer.Peak())
	return f.Close()
}
