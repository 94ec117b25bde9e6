package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/voice"
	"github.com/viterin/vek/vek32"
)

type (
	// Renderer renders songs offline, as fast as the chip can generate
	// samples. Every call to Render gets a fresh chip, voice pool and
	// scheduler, so a Renderer can be used for many renders and the results
	// depend only on the song.
	Renderer struct {
		newChip     func() fmtrack.Chip
		sampleRate  int
		poolSize    int
		maxDuration time.Duration
		logger      *slog.Logger
	}

	RenderOption func(*Renderer)

	// LoopOptions controls RenderLoop. ContextRows is how many rows of the
	// pattern are rendered before and after it so that release tails and
	// notes that sustain over the loop point sound right. CrossfadeFrames is
	// the length of the crossfade at the loop seam and Iterations how many
	// times the loop is repeated in the output; less than 1 gives one loop.
	LoopOptions struct {
		ContextRows     int
		CrossfadeFrames int
		Iterations      int
	}
)

const (
	DefaultSampleRate      = 44100
	DefaultContextRows     = 8
	DefaultCrossfadeFrames = 256
)

func WithSampleRate(rate int) RenderOption {
	return func(r *Renderer) {
		if rate > 0 {
			r.sampleRate = rate
		}
	}
}

// WithPoolSize sets the number of voices, at most ChipVoices.
func WithPoolSize(size int) RenderOption {
	return func(r *Renderer) { r.poolSize = min(max(size, 0), ChipVoices) }
}

// WithMaxDuration aborts renders that would get longer than d. Zero means no
// limit.
func WithMaxDuration(d time.Duration) RenderOption {
	return func(r *Renderer) { r.maxDuration = max(d, 0) }
}

func WithRenderLogger(logger *slog.Logger) RenderOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// DefaultLoopOptions returns the loop options used when none are configured.
func DefaultLoopOptions() LoopOptions {
	return LoopOptions{ContextRows: DefaultContextRows, CrossfadeFrames: DefaultCrossfadeFrames, Iterations: 1}
}

func NewRenderer(newChip func() fmtrack.Chip, opts ...RenderOption) *Renderer {
	r := &Renderer{
		newChip:    newChip,
		sampleRate: DefaultSampleRate,
		poolSize:   ChipVoices,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SampleRate returns the sample rate of the rendered buffers.
func (r *Renderer) SampleRate() int {
	return r.sampleRate
}

// Render plays the pattern of the song once, from the first to the last row,
// and returns the audio. The length of the buffer is exactly
// floor(ticks*sampleRate*60 / (BPM*RowsPerBeat*TicksPerRow)) frames. A
// malformed song is rejected before anything is rendered. If ctx is cancelled
// or the maximum duration would be exceeded, the audio rendered so far is
// returned with an error wrapping ErrRenderAborted.
func (r *Renderer) Render(ctx context.Context, song fmtrack.Song) (fmtrack.AudioBuffer, error) {
	song.Pattern = song.Pattern.WithDefaults()
	return r.render(ctx, song)
}

// RenderLoop renders the pattern of the song as a seamless loop: the pattern
// is rendered with ContextRows rows of itself on both sides, the part
// belonging to the pattern is cut out, and its last CrossfadeFrames frames
// are crossfaded with the frames that preceded the pattern, so that the end
// of the loop flows into its start. The result is repeated Iterations times.
func (r *Renderer) RenderLoop(ctx context.Context, song fmtrack.Song, opts LoopOptions) (fmtrack.AudioBuffer, error) {
	song.Pattern = song.Pattern.WithDefaults()
	if err := song.Validate(); err != nil {
		return nil, err
	}
	p := &song.Pattern
	k := min(max(opts.ContextRows, 0), len(p.Rows))
	extended := song.Copy()
	extended.Pattern = p.Extend(k)
	buffer, err := r.render(ctx, extended)
	if err != nil {
		return buffer, err
	}
	clock := NewSampleClock(r.sampleRate, p)
	start := clock.FramesAt(k * p.TicksPerRow)
	end := clock.FramesAt((k + len(p.Rows)) * p.TicksPerRow)
	core := append(fmtrack.AudioBuffer{}, buffer[2*start:2*end]...)
	w := min(max(opts.CrossfadeFrames, 0), start, end-start)
	if w > 0 {
		crossfade(core[len(core)-2*w:], buffer[2*(start-w):2*start])
	}
	r.logger.Debug("loop rendered", "context", k, "crossfade", w, "frames", core.Frames())
	return core.Repeat(max(opts.Iterations, 1)), nil
}

func (r *Renderer) render(ctx context.Context, song fmtrack.Song) (fmtrack.AudioBuffer, error) {
	chip := r.newChip()
	sched, err := NewScheduler(song, voice.New(r.poolSize), NewChipSink(chip), WithLoop(false), WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	defer sched.Stop()
	p := &song.Pattern
	ticks := p.LengthInTicks()
	clock := NewSampleClock(r.sampleRate, p)
	maxFrames := -1
	if r.maxDuration > 0 {
		maxFrames = int(int64(r.maxDuration) * int64(r.sampleRate) / int64(time.Second))
	}
	buffer := make(fmtrack.AudioBuffer, 0, 2*clock.FramesAt(ticks))
	for t := 0; t < ticks; t++ {
		if err := ctx.Err(); err != nil {
			return buffer, fmt.Errorf("%w at row %d: %w", fmtrack.ErrRenderAborted, sched.Position().Row, err)
		}
		n := clock.Next()
		if maxFrames >= 0 && buffer.Frames()+n > maxFrames {
			return buffer, fmt.Errorf("%w at row %d: song longer than %v", fmtrack.ErrRenderAborted, sched.Position().Row, r.maxDuration)
		}
		sched.AdvanceOneTick()
		l := len(buffer)
		buffer = append(buffer, make(fmtrack.AudioBuffer, 2*n)...)
		chip.GenerateSamples(buffer[l:])
	}
	return buffer, nil
}

// crossfade fades tail out and pre in, writing the sum into tail. The gain of
// pre rises linearly and reaches 1 on the last frame, so the last frame of
// tail equals the last frame of pre.
func crossfade(tail, pre fmtrack.AudioBuffer) {
	frames := tail.Frames()
	fadeIn := make([]float32, len(tail))
	fadeOut := make([]float32, len(tail))
	for i := range fadeIn {
		g := float32(i/2+1) / float32(frames)
		fadeIn[i] = g
		fadeOut[i] = 1 - g
	}
	a, b := tail.Float32(), pre.Float32()
	vek32.Mul_Inplace(a, fadeOut)
	vek32.Mul_Inplace(b, fadeIn)
	vek32.Add_Inplace(a, b)
	copy(tail, fmtrack.AudioBufferFromFloat32(a))
}
