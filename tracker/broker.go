package tracker

import (
	"time"
)

type (
	// Broker is the message broker between the live Player, which runs in the
	// audio goroutine, and whoever controls it. Communication is one channel
	// per recipient. The player only ever does non-blocking sends, so a slow
	// or absent listener can never stall the audio.
	//
	// For closing the player, CloseXXX/FinishedXXX pairs are used: the Close
	// channel has a capacity of 1 so a close request never blocks, and the
	// Finished channel is closed when the player has released its voices.
	// Combine it with a timeout to avoid deadlocks:
	//    select {
	//      case <-b.FinishedPlayer:
	//      case <-time.After(3 * time.Second):
	//    }
	Broker struct {
		ToModel  chan MsgToModel
		ToPlayer chan any

		ClosePlayer    chan struct{}
		FinishedPlayer chan struct{}
	}

	// MsgToModel is a message sent from the player. Position and Playing are
	// sent with every message; the infrequent messages (alerts) come boxed in
	// Data.
	MsgToModel struct {
		HasPosition bool
		Position    Position
		Playing     bool
		Busy        int // number of occupied voices

		Data any
	}

	// StartPlayMsg starts playback from the beginning of a row.
	StartPlayMsg struct{ Row int }

	// IsPlayingMsg starts (true) or stops (false) playback. Stopping releases
	// every voice.
	IsPlayingMsg struct{ bool }

	// NoteOnMsg triggers a note on a track, outside the pattern.
	NoteOnMsg struct {
		Track    int
		Note     byte
		Velocity byte
	}

	// NoteOffMsg releases the note of a track.
	NoteOffMsg struct{ Track int }

	// LoopMsg sets whether playback wraps to the start of the pattern.
	LoopMsg struct{ bool }

	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
	}

	AlertPriority int
)

const (
	None AlertPriority = iota
	Info
	Warning
	Error
)

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:       make(chan any, 1024),
		ToModel:        make(chan MsgToModel, 1024),
		ClosePlayer:    make(chan struct{}, 1),
		FinishedPlayer: make(chan struct{}),
	}
}

func NewIsPlayingMsg(playing bool) IsPlayingMsg { return IsPlayingMsg{playing} }
func NewLoopMsg(loop bool) LoopMsg              { return LoopMsg{loop} }

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
