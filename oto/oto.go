// Package oto plays PCM through the system audio device.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/fmtrack/fmtrack"
)

type (
	// Context is the audio device. Only one can exist per process.
	Context struct {
		context *oto.Context
	}

	Player struct {
		player *oto.Player
	}
)

const waitInterval = 10 * time.Millisecond

// NewContext opens the audio device for interleaved 16-bit stereo at
// sampleRate. bufferSize is the device buffer length; zero leaves the choice
// to the driver.
func NewContext(sampleRate int, bufferSize time.Duration) (*Context, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{context: context}, nil
}

// Play starts pulling audio from r.
func (c *Context) Play(r io.Reader) fmtrack.CloserWaiter {
	p := c.context.NewPlayer(r)
	p.Play()
	return &Player{player: p}
}

// Close suspends the device. oto does not support closing a context.
func (c *Context) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Wait blocks until the reader has returned io.EOF and the buffered audio has
// been played.
func (p *Player) Wait() {
	for p.player.IsPlaying() {
		time.Sleep(waitInterval)
	}
}

// Close stops the playback. The player cannot be restarted.
func (p *Player) Close() error {
	p.player.Pause()
	if err := p.player.Err(); err != nil {
		return fmt.Errorf("oto player failed: %w", err)
	}
	return nil
}

var _ fmtrack.AudioContext = (*Context)(nil)
