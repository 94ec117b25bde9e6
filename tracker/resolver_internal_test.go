package tracker

import (
	"reflect"
	"testing"

	"github.com/fmtrack/fmtrack"
)

func TestPatternDropsColumnsWithoutNotes(t *testing.T) {
	r := &resolver{
		opts:    ResolveOptions{BPM: 120, RowsPerBeat: 4, TicksPerRow: 6},
		lastRow: 1,
		columns: []*column{
			{instrument: 1, cells: map[int]fmtrack.Cell{}},
			{instrument: 2, cells: map[int]fmtrack.Cell{0: fmtrack.NoteCell(60, 64), 1: fmtrack.OffCell()}},
			{instrument: 3, cells: map[int]fmtrack.Cell{1: fmtrack.OffCell()}},
		},
	}
	p := r.pattern()
	if !reflect.DeepEqual(p.Instruments, []int{2}) {
		t.Fatalf("expected only the column with a note, got instruments %v", p.Instruments)
	}
	expected := []fmtrack.Row{{fmtrack.NoteCell(60, 64)}, {fmtrack.OffCell()}}
	if !reflect.DeepEqual(p.Rows, expected) {
		t.Fatalf("got %v, expected %v", p.Rows, expected)
	}
}
