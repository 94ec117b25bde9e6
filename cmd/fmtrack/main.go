package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/chip"
	"github.com/fmtrack/fmtrack/config"
	"github.com/fmtrack/fmtrack/tracker"
	"github.com/fmtrack/fmtrack/version"
)

var (
	configPath string
	cfg        config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fmtrack",
	Short: "Render, play and convert FM tracker songs",
	Long: `fmtrack plays tracker patterns on a two-operator FM chip.

Songs are .yml or .json files with a pattern of note cells and a patch of
instruments.

Examples:
  fmtrack render song.yml -o out
  fmtrack render --loop --iterations 4 song.yml
  fmtrack play song.yml
  fmtrack import tune.mid -o tune.yml
  fmtrack export song.yml
  fmtrack info --format markdown songs/`,
	Version:       version.VersionOrHash,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		logger = cfg.Logger(os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file overriding the defaults and the user config")
	rootCmd.AddCommand(renderCmd, playCmd, traceCmd, importCmd, exportCmd, infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newChip() fmtrack.Chip {
	return chip.New(cfg.SampleRate)
}

func newRenderer() *tracker.Renderer {
	return tracker.NewRenderer(newChip, cfg.RenderOptions(logger)...)
}

func readSong(filename string) (fmtrack.Song, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return fmtrack.Song{}, fmt.Errorf("could not read file %v: %w", filename, err)
	}
	song, err := fmtrack.ParseSong(contents)
	if err != nil {
		return fmtrack.Song{}, fmt.Errorf("could not parse %v: %w", filename, err)
	}
	return song, nil
}

// songFiles expands directories to the .yml and .json files in them.
func songFiles(params []string) ([]string, error) {
	var ret []string
	for _, param := range params {
		info, err := os.Stat(param)
		if err != nil || !info.IsDir() {
			ret = append(ret, param)
			continue
		}
		for _, pattern := range []string{"*.yml", "*.yaml", "*.json"} {
			files, err := filepath.Glob(filepath.Join(param, pattern))
			if err != nil {
				return nil, fmt.Errorf("could not glob the path %v: %w", param, err)
			}
			ret = append(ret, files...)
		}
	}
	return ret, nil
}

// outputPath returns the path of the file derived from input: in directory
// dir if given, otherwise next to the input.
func outputPath(input, dir, extension string) (string, error) {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + extension
	if dir == "" {
		return filepath.Join(filepath.Dir(input), name), nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("could not create output directory %v: %w", dir, err)
	}
	return filepath.Join(dir, name), nil
}

// forEachFile runs process for every file, reports the failures and returns
// an error if any failed.
func forEachFile(files []string, process func(string) error) error {
	failed := 0
	for _, file := range files {
		if err := process(file); err != nil {
			logger.Error("could not process file", "file", file, "err", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
