// Package config holds the settings of the command line tools: built-in
// defaults, overridden by an optional config.yml in the user config
// directory, overridden by a file given explicitly.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fmtrack/fmtrack/tracker"
	"gopkg.in/yaml.v2"
)

type (
	Config struct {
		SampleRate  int
		PoolSize    int
		BufferSize  time.Duration
		MaxDuration time.Duration
		LogLevel    string
		Loop        LoopConfig
	}

	LoopConfig struct {
		ContextRows     int
		CrossfadeFrames int
		Iterations      int
	}
)

// FileName is the name of the config file searched in the user config
// directory.
const FileName = "config.yml"

//go:embed defaults.yml
var defaultsYaml []byte

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	if err := yaml.UnmarshalStrict(defaultsYaml, &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// Load returns the default configuration overridden by the user config file,
// if there is one, and then by the file at path, if path is not empty. Keys
// missing from a file keep their previous values; unknown keys are errors.
func Load(path string) (Config, error) {
	c := Default()
	if dir, err := os.UserConfigDir(); err == nil {
		if err := c.merge(filepath.Join(dir, "fmtrack", FileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return c, err
		}
	}
	if path != "" {
		if err := c.merge(path); err != nil {
			return c, err
		}
	}
	return c, c.Validate()
}

func (c *Config) merge(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(b, c); err != nil {
		return fmt.Errorf("invalid config file %v: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("samplerate must be positive, got %d", c.SampleRate)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("poolsize must be positive, got %d", c.PoolSize)
	}
	if c.Loop.ContextRows < 0 || c.Loop.CrossfadeFrames < 0 || c.Loop.Iterations < 1 {
		return fmt.Errorf("invalid loop settings %+v", c.Loop)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("invalid loglevel %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	l, _ := c.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// RenderOptions returns the renderer settings of the configuration.
func (c Config) RenderOptions(logger *slog.Logger) []tracker.RenderOption {
	ret := []tracker.RenderOption{
		tracker.WithSampleRate(c.SampleRate),
		tracker.WithPoolSize(c.PoolSize),
		tracker.WithMaxDuration(c.MaxDuration),
	}
	if logger != nil {
		ret = append(ret, tracker.WithRenderLogger(logger))
	}
	return ret
}

func (c Config) LoopOptions() tracker.LoopOptions {
	return tracker.LoopOptions{
		ContextRows:     c.Loop.ContextRows,
		CrossfadeFrames: c.Loop.CrossfadeFrames,
		Iterations:      c.Loop.Iterations,
	}
}
