package fmtrack

type (
	// Action is what a single cell asks the scheduler to do on its track.
	Action struct {
		Kind     ActionKind
		Note     byte
		Velocity byte // clamped to 0..MaxVelocity
		Delay    int  // ticks into the row before the note-on happens
		Cut      int  // ticks after the note-on before the note is cut
		HasCut   bool
		Raw      string // source text of an invalid cell, for logging
	}

	ActionKind int
)

const (
	ActionSustain ActionKind = iota
	ActionRelease
	ActionTrigger
	ActionInvalid
)

// Interpret decodes a cell into the action it requests. It is a pure
// function: executing delays and cuts is the scheduler's job.
func Interpret(c Cell) Action {
	switch c.Kind {
	case Sustain:
		return Action{Kind: ActionSustain}
	case NoteOff:
		return Action{Kind: ActionRelease}
	case NoteOn:
		if c.Note > 127 {
			return Action{Kind: ActionInvalid, Raw: c.String()}
		}
		a := Action{Kind: ActionTrigger, Note: c.Note, Velocity: byte(clamp(c.Velocity, 0, MaxVelocity))}
		switch c.Effect.Kind {
		case DelayEffect:
			a.Delay = max(c.Effect.Ticks, 0)
		case CutEffect:
			a.Cut = max(c.Effect.Ticks, 0)
			a.HasCut = true
		}
		return a
	default:
		return Action{Kind: ActionInvalid, Raw: c.Raw}
	}
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
