package tracker

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/fmtrack/fmtrack"
	"github.com/fmtrack/fmtrack/voice"
)

// Player is the live audio player, run in the audio goroutine: it is an
// io.Reader of interleaved 16-bit little-endian stereo PCM, meant to be pulled
// by an fmtrack.AudioContext. It is controlled by messages through the broker
// (a fmtrack.Song to load, StartPlayMsg, IsPlayingMsg, NoteOnMsg, NoteOffMsg,
// LoopMsg) that are drained without blocking at the start of every Read, and
// it reports its position back through the broker with non-blocking sends.
//
// The player uses the same scheduler and sample clock as offline rendering,
// so what is heard live matches what Render produces.
type Player struct {
	chip       fmtrack.Chip
	sampleRate int
	poolSize   int
	logger     *slog.Logger

	sched     *Scheduler
	pool      *voice.Pool
	clock     SampleClock
	remaining int // frames left in the current tick
	playing   bool
	loop      bool
	closed    bool

	buffer []int16
	broker *Broker
}

// NewPlayer creates a player with the chip, sample rate, voice count and
// logger of the renderer. Nothing plays until a song is sent to it.
func NewPlayer(broker *Broker, r *Renderer) *Player {
	return &Player{
		chip:       r.newChip(),
		sampleRate: r.sampleRate,
		poolSize:   r.poolSize,
		logger:     r.logger,
		loop:       true,
		broker:     broker,
	}
}

// Read fills b with as many whole stereo frames as fit. After a close request
// through the broker, every voice is released and Read returns io.EOF.
func (p *Player) Read(b []byte) (int, error) {
	if p.closed {
		return 0, io.EOF
	}
	p.processMessages()
	if p.closed {
		return 0, io.EOF
	}
	frames := len(b) / 4
	if cap(p.buffer) < 2*frames {
		p.buffer = make([]int16, 2*frames)
	}
	buf := p.buffer[:2*frames]
	p.process(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	p.send(nil)
	return 4 * frames, nil
}

func (p *Player) process(buf []int16) {
	for len(buf) > 0 {
		if p.playing && p.remaining == 0 {
			if p.sched.Finished() {
				p.stop()
				p.send(nil)
				continue
			}
			p.sched.AdvanceOneTick()
			p.remaining = p.clock.Next()
			continue
		}
		n := len(buf) / 2
		if p.playing {
			n = min(n, p.remaining)
			p.remaining -= n
		}
		p.chip.GenerateSamples(buf[:2*n])
		buf = buf[2*n:]
	}
}

func (p *Player) processMessages() {
	for {
		select {
		case <-p.broker.ClosePlayer:
			p.stop()
			p.closed = true
			close(p.broker.FinishedPlayer)
			return
		case msg := <-p.broker.ToPlayer:
			switch m := msg.(type) {
			case fmtrack.Song:
				p.load(m)
			case StartPlayMsg:
				p.start(m.Row)
			case IsPlayingMsg:
				if !m.bool {
					p.stop()
				} else if p.sched != nil && !p.playing {
					p.start(p.sched.Position().Row)
				}
			case NoteOnMsg:
				if p.sched != nil {
					p.sched.Trigger(m.Track, m.Note, m.Velocity)
				}
			case NoteOffMsg:
				if p.sched != nil {
					p.sched.Release(m.Track)
				}
			case LoopMsg:
				p.loop = m.bool
				if p.sched != nil {
					p.sched.SetLoop(m.bool)
				}
			default:
				// ignore unknown messages
			}
		default:
			return
		}
	}
}

// load replaces the song. If the player was playing, it continues from the
// same row of the new song.
func (p *Player) load(song fmtrack.Song) {
	pool := voice.New(p.poolSize)
	sched, err := NewScheduler(song, pool, NewChipSink(p.chip), WithLoop(p.loop), WithLogger(p.logger))
	if err != nil {
		p.logger.Error("could not load song", "err", err)
		p.sendAlert("PlayerLoad", fmt.Sprintf("could not load song: %v", err), Error)
		return
	}
	row := 0
	if p.sched != nil {
		row = p.sched.Position().Row
		p.sched.Stop()
	}
	p.sched, p.pool = sched, pool
	if p.playing {
		p.start(row)
	}
}

func (p *Player) start(row int) {
	if p.sched == nil {
		return
	}
	p.sched.Restart(row)
	pattern := p.sched.Song().Pattern
	p.clock = NewSampleClock(p.sampleRate, &pattern)
	p.remaining = 0
	p.playing = true
	p.send(nil)
}

func (p *Player) stop() {
	if p.sched != nil {
		p.sched.Stop()
	}
	p.playing = false
	p.remaining = 0
}

func (p *Player) sendAlert(name, message string, priority AlertPriority) {
	p.send(Alert{Name: name, Priority: priority, Message: message})
}

// all sends from the player are non-blocking, so the audio goroutine can never
// dead-lock
func (p *Player) send(message any) {
	msg := MsgToModel{Playing: p.playing, Data: message}
	if p.sched != nil {
		msg.HasPosition = true
		msg.Position = p.sched.Position()
		msg.Busy = p.pool.NumBusy()
	}
	TrySend(p.broker.ToModel, msg)
}
