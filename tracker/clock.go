package tracker

import (
	"context"
	"time"

	"github.com/fmtrack/fmtrack"
)

// SampleClock converts ticks to sample frames without drift. One tick lasts
// sampleRate*60 / (BPM*RowsPerBeat*TicksPerRow) frames; the fractional part
// is carried in an exact integer remainder, so after n ticks exactly
// floor(n*sampleRate*60 / ticksPerMinute) frames have been handed out.
type SampleClock struct {
	num, den int64
	acc      int64
}

// NewSampleClock returns a clock for the timing of the given pattern. The
// pattern must have positive timing values.
func NewSampleClock(sampleRate int, p *fmtrack.Pattern) SampleClock {
	return SampleClock{num: int64(sampleRate) * 60, den: int64(max(p.TicksPerMinute(), 1))}
}

// Next returns the number of frames the next tick lasts.
func (c *SampleClock) Next() int {
	c.acc += c.num
	n := c.acc / c.den
	c.acc -= n * c.den
	return int(n)
}

// FramesAt returns the frame at which the given tick starts.
func (c *SampleClock) FramesAt(tick int) int {
	return int(int64(tick) * c.num / c.den)
}

// RunTicker drives the scheduler in real time, calling AdvanceOneTick once per
// tick duration, until the scheduler finishes or ctx is cancelled. onTick, if
// not nil, is called after every tick. The scheduler is stopped on return.
func RunTicker(ctx context.Context, s *Scheduler, onTick func(Position)) error {
	defer s.Stop()
	d := s.TickDuration()
	if d <= 0 {
		d = time.Millisecond
	}
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		pos := s.Position()
		s.AdvanceOneTick()
		if onTick != nil {
			onTick(pos)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if s.Finished() {
			return nil
		}
	}
}
