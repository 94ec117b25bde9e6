package fmtrack

type (
	// TimelineEvent is one timestamped event of a foreign multi-channel score,
	// e.g. a MIDI file. Time is in seconds from the start. Subtrack identifies
	// the source track the event came from (e.g. the SMF track number); it is
	// informational only.
	TimelineEvent struct {
		Time     float64
		Channel  int
		Subtrack int
		Kind     EventKind
		Note     byte
		Velocity byte // MIDI velocity, 0..127
		Program  int  // only for ProgramChangeEvent
	}

	EventKind int
)

const (
	NoteOnEvent EventKind = iota
	NoteOffEvent
	ProgramChangeEvent
)

func (k EventKind) String() string {
	switch k {
	case NoteOnEvent:
		return "note-on"
	case NoteOffEvent:
		return "note-off"
	case ProgramChangeEvent:
		return "program-change"
	}
	return "unknown"
}
