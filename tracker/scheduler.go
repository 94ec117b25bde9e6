package tracker

import (
	"io"
	"log/slog"
	"time"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/voice"
)

type (
	// Scheduler walks a song's pattern one tick at a time and turns the cells
	// into voice commands: it allocates voices from the pool, runs delayed
	// note-ons and cuts, and sends the results to a VoiceSink. It does not
	// know how long a tick is in real time; a clock (SampleClock for offline
	// rendering, RunTicker for real-time output) decides when to call
	// AdvanceOneTick.
	//
	// A Scheduler is not safe for concurrent use.
	Scheduler struct {
		song    fmtrack.Song
		pool    *voice.Pool
		sink    VoiceSink
		logger  *slog.Logger
		loop    bool
		tracks  []trackState
		pending []pendingEvent
		pos     Position
		ticks   int // absolute ticks since start, the time base of pending events
		stopped bool
		done    bool // played past the last row; voices are released on the next call
	}

	// Position is the cursor of the scheduler: the row being played and the
	// tick within it that the next AdvanceOneTick will run.
	Position struct {
		Row  int
		Tick int
	}

	SchedulerOption func(*Scheduler)

	trackState struct {
		sounding bool
		voice    int
		partner  int
		note     byte
		serial   int // increments every time the track's note changes; stale cuts compare against it
	}

	pendingEvent struct {
		at     int
		track  int
		kind   pendingKind
		action fmtrack.Action
		serial int
	}

	pendingKind int
)

const (
	pendingTrigger pendingKind = iota
	pendingCut
)

// WithLogger sets the logger that receives diagnostics about invalid cells,
// dropped notes and stolen voices. By default nothing is logged.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLoop sets whether the pattern wraps to row 0 after the last row (the
// default) or the scheduler finishes.
func WithLoop(loop bool) SchedulerOption {
	return func(s *Scheduler) { s.loop = loop }
}

// NewScheduler validates the song and returns a scheduler positioned at the
// start of its pattern. Unset timing fields get their defaults.
func NewScheduler(song fmtrack.Song, pool *voice.Pool, sink VoiceSink, opts ...SchedulerOption) (*Scheduler, error) {
	song.Pattern = song.Pattern.WithDefaults()
	if err := song.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		song:   song,
		pool:   pool,
		sink:   sink,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		loop:   true,
		tracks: make([]trackState, song.Pattern.NumTracks()),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.tracks {
		s.tracks[i] = trackState{voice: -1, partner: -1}
	}
	return s, nil
}

// Song returns the song being scheduled, with timing defaults applied.
func (s *Scheduler) Song() fmtrack.Song {
	return s.song
}

// Position returns the row and tick that the next AdvanceOneTick will run.
func (s *Scheduler) Position() Position {
	return s.pos
}

// Ticks returns the number of ticks run since the start.
func (s *Scheduler) Ticks() int {
	return s.ticks
}

// Finished reports whether a non-looping scheduler has played past the last
// row, or the scheduler was stopped. The voices of the last tick keep
// sounding until the next AdvanceOneTick or Stop, so the caller can still
// generate the samples of that tick.
func (s *Scheduler) Finished() bool {
	return s.done || s.stopped
}

// TickDuration returns the real-time length of one tick.
func (s *Scheduler) TickDuration() time.Duration {
	return s.song.Pattern.TickDuration()
}

// AdvanceOneTick runs one tick: on the first tick of a row the row's cells
// are interpreted, then every delayed note-on and cut that is due fires, and
// the cursor moves forward. Once the pattern has played to the end, the next
// call stops the scheduler; a stopped scheduler does nothing.
func (s *Scheduler) AdvanceOneTick() {
	if s.stopped {
		return
	}
	if s.done {
		s.Stop()
		return
	}
	if s.pos.Tick == 0 {
		s.enterRow()
	}
	s.runPending()
	s.ticks++
	s.pos.Tick++
	if s.pos.Tick < s.song.Pattern.TicksPerRow {
		return
	}
	s.pos.Tick = 0
	s.pos.Row++
	if s.pos.Row < len(s.song.Pattern.Rows) {
		return
	}
	if s.loop {
		s.pos.Row = 0
		return
	}
	s.done = true
}

// Stop releases every voice, drops pending delays and cuts and halts the
// scheduler. Stopping twice does nothing.
func (s *Scheduler) Stop() {
	if s.stopped {
		return
	}
	s.releaseAll()
	s.stopped = true
}

// SetLoop changes whether the pattern wraps after its last row.
func (s *Scheduler) SetLoop(loop bool) {
	s.loop = loop
}

// Restart releases every voice and continues playback from the start of the
// given row, which is clamped to the pattern.
func (s *Scheduler) Restart(row int) {
	s.releaseAll()
	s.pos = Position{Row: min(max(row, 0), len(s.song.Pattern.Rows)-1)}
	s.stopped = false
	s.done = false
}

// Trigger plays a note on a track immediately, outside the pattern, as when
// jamming. Tracks out of range are ignored.
func (s *Scheduler) Trigger(track int, note, velocity byte) {
	if track < 0 || track >= len(s.tracks) || note > 127 {
		return
	}
	s.trigger(track, fmtrack.Action{Kind: fmtrack.ActionTrigger, Note: note, Velocity: min(velocity, fmtrack.MaxVelocity)})
}

// Release releases the note of a track immediately, outside the pattern.
func (s *Scheduler) Release(track int) {
	if track < 0 || track >= len(s.tracks) {
		return
	}
	s.release(track)
}

func (s *Scheduler) enterRow() {
	row := s.song.Pattern.Rows[s.pos.Row]
	for t := range s.tracks {
		a := fmtrack.Interpret(row[t])
		switch a.Kind {
		case fmtrack.ActionSustain:
		case fmtrack.ActionRelease:
			s.release(t)
		case fmtrack.ActionTrigger:
			if a.Delay == 0 {
				s.trigger(t, a)
				continue
			}
			delay := a.Delay
			if delay >= s.song.Pattern.TicksPerRow {
				delay = s.song.Pattern.TicksPerRow - 1
				s.logger.Debug("note delay clamped to row", "row", s.pos.Row, "track", t, "delay", a.Delay, "clamped", delay)
			}
			s.pending = append(s.pending, pendingEvent{at: s.ticks + delay, track: t, kind: pendingTrigger, action: a})
		default:
			s.logger.Warn("invalid cell treated as sustain", "row", s.pos.Row, "track", t, "cell", a.Raw, "err", fmtrack.ErrInvalidCell)
		}
	}
}

// runPending fires every pending event that is due, in the order they were
// scheduled. Events scheduled while firing (a zero-tick cut of a delayed
// note) fire in the same pass.
func (s *Scheduler) runPending() {
	for i := 0; i < len(s.pending); {
		e := s.pending[i]
		if e.at > s.ticks {
			i++
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		switch e.kind {
		case pendingTrigger:
			s.trigger(e.track, e.action)
		case pendingCut:
			s.cut(e.track, e.serial)
		}
	}
}

func (s *Scheduler) trigger(t int, a fmtrack.Action) {
	s.release(t)
	instr := s.song.TrackInstrument(t)
	var alloc voice.Allocation
	var err error
	if instr.Dual {
		alloc, err = s.pool.AllocateDual(t, a.Note)
	} else {
		alloc, err = s.pool.Allocate(t, a.Note)
	}
	if err != nil {
		s.logger.Warn("note dropped", "row", s.pos.Row, "tick", s.pos.Tick, "track", t, "note", fmtrack.NoteName(a.Note), "err", err)
		return
	}
	for _, o := range alloc.Stolen {
		s.silence(o.Voice, o.Partner, s.sink.NoteOff)
		s.forget(o.Track)
		s.logger.Debug("voice stolen", "voice", o.Voice, "from", o.Track, "to", t, "note", fmtrack.NoteName(o.Note))
	}
	ts := &s.tracks[t]
	ts.sounding = true
	ts.voice, ts.partner, ts.note = alloc.Voice, alloc.Partner, a.Note
	ts.serial++
	e := NoteEvent{Instrument: instr, Note: a.Note, Velocity: a.Velocity}
	s.sink.NoteOn(alloc.Voice, e)
	if alloc.Partner >= 0 {
		e.Detune = instr.Detune
		s.sink.NoteOn(alloc.Partner, e)
	}
	if a.HasCut {
		s.pending = append(s.pending, pendingEvent{at: s.ticks + a.Cut, track: t, kind: pendingCut, serial: ts.serial})
	}
}

func (s *Scheduler) release(t int) {
	ts := &s.tracks[t]
	if !ts.sounding {
		return
	}
	s.silence(ts.voice, ts.partner, s.sink.NoteOff)
	s.pool.Free(ts.voice)
	s.forget(t)
}

// cut fires only if the note that scheduled it is still the one sounding.
func (s *Scheduler) cut(t, serial int) {
	ts := &s.tracks[t]
	if !ts.sounding || ts.serial != serial {
		return
	}
	s.silence(ts.voice, ts.partner, s.sink.Cut)
	s.pool.Free(ts.voice)
	s.forget(t)
}

func (s *Scheduler) silence(v, partner int, f func(int)) {
	f(v)
	if partner >= 0 {
		f(partner)
	}
}

// forget marks a track silent without touching the pool, for voices that
// were already freed or stolen.
func (s *Scheduler) forget(t int) {
	ts := &s.tracks[t]
	if !ts.sounding {
		return
	}
	ts.sounding = false
	ts.voice, ts.partner = -1, -1
	ts.serial++
}

func (s *Scheduler) releaseAll() {
	s.pending = s.pending[:0]
	for _, o := range s.pool.ReleaseAll() {
		s.sink.NoteOff(o.Voice)
	}
	for t := range s.tracks {
		s.forget(t)
	}
}
