package fmtrack_test

import (
	"testing"

	"github.com/fmtrack/fmtrack"
)

func TestNoteName(t *testing.T) {
	for note, name := range map[byte]string{0: "C-Z", 11: "B-Z", 12: "C-0", 60: "C-4", 61: "C#4", 69: "A-4", 127: "G-9"} {
		if got := fmtrack.NoteName(note); got != name {
			t.Fatalf("NoteName(%d): got %q, expected %q", note, got, name)
		}
	}
}

func TestParseNote(t *testing.T) {
	for s, note := range map[string]byte{"C-4": 60, "c#4": 61, "Db4": 61, "A 4": 69, "A4": 69, "C-Z": 0, "100": 100, " G-9 ": 127} {
		got, ok := fmtrack.ParseNote(s)
		if !ok || got != note {
			t.Fatalf("ParseNote(%q): got %d %v, expected %d", s, got, ok, note)
		}
	}
	for _, s := range []string{"", "H-4", "C", "C-x", "G#9", "128", "-1", "---"} {
		if n, ok := fmtrack.ParseNote(s); ok {
			t.Fatalf("ParseNote(%q) should fail, got %d", s, n)
		}
	}
}

func TestNoteNameRoundTrip(t *testing.T) {
	for n := 0; n < 128; n++ {
		if got, ok := fmtrack.ParseNote(fmtrack.NoteName(byte(n))); !ok || int(got) != n {
			t.Fatalf("note %d: got %d %v", n, got, ok)
		}
	}
}
