package fmtrack

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// Cell is one entry of the pattern grid: what a single track does on a
	// single row. Cells are decoded from the loosely typed source format once,
	// when the song is loaded; the rest of the engine only sees the tagged
	// value.
	Cell struct {
		Kind     CellKind
		Note     byte   // MIDI note, 0..127; only for NoteOn
		Velocity int    // 0..64; only for NoteOn
		Effect   Effect // only for NoteOn
		Raw      string // the offending source text for Invalid cells
	}

	CellKind int

	// Effect modifies the timing of a note-on within its row: Delay postpones
	// the note-on by Ticks, Cut silences the note Ticks after it started.
	Effect struct {
		Kind  EffectKind
		Ticks int
	}

	EffectKind int

	// Row is one time slice of the pattern; one cell per track.
	Row []Cell

	cellObject struct {
		Note     any           `yaml:"note" json:"note"`
		Velocity *int          `yaml:"velocity,omitempty" json:"velocity,omitempty"`
		Effect   *effectObject `yaml:"effect,omitempty" json:"effect,omitempty"`
	}

	effectObject struct {
		Cut   *int `yaml:"cut,omitempty" json:"cut,omitempty"`
		Delay *int `yaml:"delay,omitempty" json:"delay,omitempty"`
	}
)

const (
	Sustain CellKind = iota
	NoteOff
	NoteOn
	Invalid
)

const (
	NoEffect EffectKind = iota
	CutEffect
	DelayEffect
)

const (
	MaxVelocity = 64

	sustainToken = "---"
	holdToken    = "..."
	noteOffToken = "OFF"
)

// NoteCell returns a note-on cell without effects.
func NoteCell(note byte, velocity int) Cell {
	return Cell{Kind: NoteOn, Note: note, Velocity: velocity}
}

// OffCell returns a note-off cell.
func OffCell() Cell { return Cell{Kind: NoteOff} }

// WithCut returns a copy of the note-on cell that is cut after ticks.
func (c Cell) WithCut(ticks int) Cell {
	c.Effect = Effect{Kind: CutEffect, Ticks: ticks}
	return c
}

// WithDelay returns a copy of the note-on cell that is delayed by ticks.
func (c Cell) WithDelay(ticks int) Cell {
	c.Effect = Effect{Kind: DelayEffect, Ticks: ticks}
	return c
}

func (c Cell) String() string {
	switch c.Kind {
	case Sustain:
		return sustainToken
	case NoteOff:
		return noteOffToken
	case NoteOn:
		s := NoteName(c.Note)
		switch c.Effect.Kind {
		case CutEffect:
			s += fmt.Sprintf(" C%X", c.Effect.Ticks)
		case DelayEffect:
			s += fmt.Sprintf(" D%X", c.Effect.Ticks)
		}
		return s
	default:
		return "?" + c.Raw
	}
}

func invalidCell(raw string) Cell {
	return Cell{Kind: Invalid, Raw: raw}
}

func cellFromToken(s string) Cell {
	t := strings.TrimSpace(s)
	switch strings.ToUpper(t) {
	case sustainToken, holdToken, "":
		return Cell{Kind: Sustain}
	case noteOffToken:
		return OffCell()
	}
	if n, ok := ParseNote(t); ok {
		return NoteCell(n, MaxVelocity)
	}
	return invalidCell(s)
}

func cellFromObject(o cellObject, raw string) Cell {
	var c Cell
	switch n := o.Note.(type) {
	case string:
		c = cellFromToken(n)
		if c.Kind != NoteOn {
			return invalidCell(raw)
		}
	case int:
		if n < 0 || n > 127 {
			return invalidCell(raw)
		}
		c = NoteCell(byte(n), MaxVelocity)
	case float64: // encoding/json numbers
		if n < 0 || n > 127 || n != float64(int(n)) {
			return invalidCell(raw)
		}
		c = NoteCell(byte(n), MaxVelocity)
	default:
		return invalidCell(raw)
	}
	if o.Velocity != nil {
		c.Velocity = *o.Velocity
	}
	if e := o.Effect; e != nil {
		switch {
		case e.Cut != nil && e.Delay != nil:
			return invalidCell(raw)
		case e.Cut != nil && *e.Cut >= 0:
			c = c.WithCut(*e.Cut)
		case e.Delay != nil && *e.Delay >= 0:
			c = c.WithDelay(*e.Delay)
		default:
			return invalidCell(raw)
		}
	}
	return c
}

func (c Cell) object() cellObject {
	o := cellObject{Note: NoteName(c.Note)}
	if c.Velocity != MaxVelocity {
		v := c.Velocity
		o.Velocity = &v
	}
	switch c.Effect.Kind {
	case CutEffect:
		t := c.Effect.Ticks
		o.Effect = &effectObject{Cut: &t}
	case DelayEffect:
		t := c.Effect.Ticks
		o.Effect = &effectObject{Delay: &t}
	}
	return o
}

func (c *Cell) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = cellFromToken(value.Value)
	case yaml.MappingNode:
		var o cellObject
		if err := value.Decode(&o); err != nil {
			*c = invalidCell(fmt.Sprintf("line %d", value.Line))
			return nil
		}
		*c = cellFromObject(o, fmt.Sprintf("line %d", value.Line))
	default:
		*c = invalidCell(fmt.Sprintf("line %d", value.Line))
	}
	return nil
}

func (c Cell) MarshalYAML() (any, error) {
	switch c.Kind {
	case NoteOn:
		if c.Effect.Kind == NoEffect && c.Velocity == MaxVelocity {
			return NoteName(c.Note), nil
		}
		n := &yaml.Node{}
		if err := n.Encode(c.object()); err != nil {
			return nil, err
		}
		n.Style = yaml.FlowStyle
		return n, nil
	case Invalid:
		return c.Raw, nil
	default:
		return c.String(), nil
	}
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	raw := string(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = cellFromToken(s)
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		*c = cellFromToken(strconv.Itoa(n))
		return nil
	}
	var o cellObject
	if err := json.Unmarshal(data, &o); err != nil {
		*c = invalidCell(raw)
		return nil
	}
	*c = cellFromObject(o, raw)
	return nil
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case NoteOn:
		if c.Effect.Kind == NoEffect && c.Velocity == MaxVelocity {
			return json.Marshal(NoteName(c.Note))
		}
		return json.Marshal(c.object())
	case Invalid:
		return json.Marshal(c.Raw)
	default:
		return json.Marshal(c.String())
	}
}

// MarshalYAML writes each row on one line.
func (r Row) MarshalYAML() (any, error) {
	n := &yaml.Node{}
	if err := n.Encode([]Cell(r)); err != nil {
		return nil, err
	}
	n.Style = yaml.FlowStyle
	return n, nil
}
