// Package voice implements the fixed pool of physical synthesizer voices that
// the scheduler multiplexes pattern notes onto.
//
// A Pool is owned by exactly one scheduler and is not safe for concurrent
// use; every playback or render session creates its own.
package voice

import (
	"fmt"
	"slices"

	"github.com/fmtrack/fmtrack"
)

type (
	// Voice is the state of one physical voice slot.
	Voice struct {
		ID      int
		Busy    bool
		Track   int  // owning track, when Busy
		Note    byte // sounding MIDI note, when Busy
		Partner int  // the other member of a dual-voice pair, or -1
		Stamp   uint64
	}

	// Occupant tells which track and note held a voice. Partner is -1 unless
	// the voice was one member of a dual-voice pair.
	Occupant struct {
		Voice   int
		Partner int
		Track   int
		Note    byte
	}

	// Allocation is the result of a successful allocation. Partner is -1 for
	// single-voice allocations. Stolen lists the notes that were evicted to
	// make room; the caller must release them on the chip before using the
	// voices.
	Allocation struct {
		Voice   int
		Partner int
		Stolen  []Occupant
	}

	// Pool owns a fixed set of voices. Free voices are handed out in the
	// order they were released (longest silent first, lowest index on ties),
	// so release tails get as long as possible to ring out. When no voice is
	// free, the voice that was allocated longest ago is stolen.
	Pool struct {
		voices []Voice
		clock  uint64
	}
)

// New creates a pool with size voices, all free.
func New(size int) *Pool {
	p := &Pool{voices: make([]Voice, max(size, 0))}
	for i := range p.voices {
		p.voices[i] = Voice{ID: i, Partner: -1}
	}
	return p
}

// Size returns the number of voices in the pool.
func (p *Pool) Size() int {
	return len(p.voices)
}

// Voice returns a snapshot of the voice with the given id.
func (p *Pool) Voice(id int) Voice {
	if id < 0 || id >= len(p.voices) {
		return Voice{ID: id, Partner: -1}
	}
	return p.voices[id]
}

// NumBusy returns the number of voices currently allocated.
func (p *Pool) NumBusy() int {
	ret := 0
	for _, v := range p.voices {
		if v.Busy {
			ret++
		}
	}
	return ret
}

// Allocate assigns a voice to the note of a track, stealing the oldest voice
// if none is free. It fails with ErrVoiceExhausted only for an empty pool.
func (p *Pool) Allocate(track int, note byte) (Allocation, error) {
	if len(p.voices) == 0 {
		return Allocation{}, fmt.Errorf("%w: pool has no voices", fmtrack.ErrVoiceExhausted)
	}
	var stolen []Occupant
	free := p.freeVoices(1)
	if len(free) == 0 {
		stolen = append(stolen, p.steal())
		free = p.freeVoices(1)
	}
	p.clock++
	p.occupy(free[0], track, note, -1)
	return Allocation{Voice: free[0], Partner: -1, Stolen: stolen}, nil
}

// AllocateDual assigns two voices to the note of a track, for dual-voice
// instruments. Both are taken or neither: if fewer than two voices are free,
// the oldest allocations are stolen until two are. It fails with
// ErrVoiceExhausted, leaving the pool untouched, when the pool has fewer than
// two voices.
func (p *Pool) AllocateDual(track int, note byte) (Allocation, error) {
	if len(p.voices) < 2 {
		return Allocation{}, fmt.Errorf("%w: dual voice needs 2 voices, pool has %d", fmtrack.ErrVoiceExhausted, len(p.voices))
	}
	var stolen []Occupant
	free := p.freeVoices(2)
	for len(free) < 2 {
		stolen = append(stolen, p.steal())
		free = p.freeVoices(2)
	}
	p.clock++
	p.occupy(free[0], track, note, free[1])
	p.occupy(free[1], track, note, free[0])
	return Allocation{Voice: free[0], Partner: free[1], Stolen: stolen}, nil
}

// Free releases a voice. If the voice belongs to a dual-voice pair, its
// partner is released too. Freeing a free voice does nothing.
func (p *Pool) Free(id int) {
	if id < 0 || id >= len(p.voices) || !p.voices[id].Busy {
		return
	}
	p.clock++
	partner := p.voices[id].Partner
	p.release(id)
	if partner >= 0 {
		p.release(partner)
	}
}

// FreeDual releases the dual-voice pair that id belongs to.
func (p *Pool) FreeDual(id int) {
	p.Free(id)
}

// Occupied returns the allocated voices, in voice order.
func (p *Pool) Occupied() []Occupant {
	var ret []Occupant
	for _, v := range p.voices {
		if v.Busy {
			ret = append(ret, Occupant{Voice: v.ID, Partner: v.Partner, Track: v.Track, Note: v.Note})
		}
	}
	return ret
}

// ReleaseAll frees every voice and returns what was occupied, so the caller
// can silence them.
func (p *Pool) ReleaseAll() []Occupant {
	ret := p.Occupied()
	if len(ret) > 0 {
		p.clock++
	}
	for _, o := range ret {
		p.release(o.Voice)
	}
	return ret
}

// freeVoices returns up to n free voices, longest free first.
func (p *Pool) freeVoices(n int) []int {
	ret := make([]int, 0, n)
	for len(ret) < n {
		best := -1
		for i, v := range p.voices {
			if v.Busy || slices.Contains(ret, i) {
				continue
			}
			if best < 0 || v.Stamp < p.voices[best].Stamp {
				best = i
			}
		}
		if best < 0 {
			break
		}
		ret = append(ret, best)
	}
	return ret
}

// steal frees the voice (and its partner) with the oldest allocation.
func (p *Pool) steal() Occupant {
	oldest := -1
	for i, v := range p.voices {
		if v.Busy && (oldest < 0 || v.Stamp < p.voices[oldest].Stamp) {
			oldest = i
		}
	}
	v := p.voices[oldest]
	ret := Occupant{Voice: v.ID, Partner: v.Partner, Track: v.Track, Note: v.Note}
	p.Free(oldest)
	return ret
}

func (p *Pool) occupy(id, track int, note byte, partner int) {
	p.voices[id] = Voice{ID: id, Busy: true, Track: track, Note: note, Partner: partner, Stamp: p.clock}
}

func (p *Pool) release(id int) {
	p.voices[id] = Voice{ID: id, Partner: -1, Stamp: p.clock}
}
