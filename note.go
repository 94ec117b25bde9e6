package fmtrack

import (
	"fmt"
	"strconv"
	"strings"
)

var noteNames = []string{
	"C-",
	"C#",
	"D-",
	"D#",
	"E-",
	"F-",
	"F#",
	"G-",
	"G#",
	"A-",
	"A#",
	"B-",
}

// NoteName returns the tracker representation of a MIDI note, e.g. 60 ->
// "C-4" and 61 -> "C#4". Octave -1 is written as "C-Z".
func NoteName(note byte) string {
	octave := int(note)/12 - 1
	if octave < 0 {
		return noteNames[note%12] + "Z"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}

// ParseNote parses a note name written as by NoteName. A dash or a space may
// stand for a natural, and flats are accepted as "Db4". Plain integers are
// taken as MIDI note numbers.
func ParseNote(s string) (byte, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, false
		}
		return byte(n), true
	}
	if len(s) < 2 {
		return 0, false
	}
	s = strings.ToUpper(s)
	idx := strings.IndexByte("C-D-EF-G-A-B", s[0])
	if idx < 0 || s[0] == '-' {
		return 0, false
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		idx++
		rest = rest[1:]
	case 'B':
		idx--
		rest = rest[1:]
	case '-', ' ':
		rest = rest[1:]
	}
	var octave int
	if rest == "Z" {
		octave = -1
	} else {
		o, err := strconv.Atoi(rest)
		if err != nil {
			return 0, false
		}
		octave = o
	}
	n := (octave+1)*12 + idx
	if n < 0 || n > 127 {
		return 0, false
	}
	return byte(n), true
}
