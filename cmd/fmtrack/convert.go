package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/midifile"
	"github.com/fmtrack/fmtrack/tracker"
)

var importFlags struct {
	output      string
	bpm         int
	rowsPerBeat int
	ticksPerRow int
}

var importCmd = &cobra.Command{
	Use:   "import <file.mid>",
	Short: "Convert a MIDI file to a song",
	Long: `Quantizes the notes of a MIDI file to rows and splits overlapping notes of a
channel into separate tracks. The tempo defaults to the initial tempo of the
file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := midifile.ReadFile(args[0])
		if err != nil {
			return err
		}
		bpm := importFlags.bpm
		if bpm <= 0 {
			bpm = int(f.BPM + 0.5)
		}
		pattern, err := tracker.Resolve(f.Events, tracker.ResolveOptions{
			BPM:         bpm,
			RowsPerBeat: importFlags.rowsPerBeat,
			TicksPerRow: importFlags.ticksPerRow,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		out, err := fmtrack.MarshalSong(fmtrack.Song{Pattern: pattern})
		if err != nil {
			return err
		}
		path := importFlags.output
		if path == "" {
			if path, err = outputPath(args[0], "", ".yml"); err != nil {
				return err
			}
		}
		if err := os.WriteFile(path, out, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %w", path, err)
		}
		logger.Info("imported", "file", args[0], "output", path, "tracks", pattern.NumTracks(), "rows", len(pattern.Rows))
		return nil
	},
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <song>",
	Short: "Convert the pattern of a song to a MIDI file",
	Long:  `Writes every track of the pattern on a MIDI track of its own. Effects are not exported.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		song, err := readSong(args[0])
		if err != nil {
			return err
		}
		if err := song.Validate(); err != nil {
			return err
		}
		path := exportOutput
		if path == "" {
			if path, err = outputPath(args[0], "", ".mid"); err != nil {
				return err
			}
		}
		if err := midifile.WriteFile(path, tracker.Timeline(song.Pattern), float64(song.Pattern.BPM)); err != nil {
			return err
		}
		logger.Info("exported", "file", args[0], "output", path)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFlags.output, "output", "o", "", "Output .yml file; by default next to the MIDI file")
	importCmd.Flags().IntVar(&importFlags.bpm, "bpm", 0, "Tempo of the song; by default the initial tempo of the file")
	importCmd.Flags().IntVar(&importFlags.rowsPerBeat, "rows-per-beat", fmtrack.DefaultRowsPerBeat, "Rows per beat, i.e. the quantization")
	importCmd.Flags().IntVar(&importFlags.ticksPerRow, "ticks-per-row", fmtrack.DefaultTicksPerRow, "Ticks per row")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output .mid file; by default next to the song")
}
