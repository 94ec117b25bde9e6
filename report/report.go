// Package report summarizes songs as text, using text/template with the
// sprig functions.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"path/filepath"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/fmtrack/fmtrack"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	Reporter struct {
		Template *template.Template
		caser    cases.Caser
	}

	// SongInfo is the data the templates are executed with.
	SongInfo struct {
		Name        string
		BPM         int
		RowsPerBeat int
		TicksPerRow int
		Rows        int
		Duration    time.Duration
		HasAudio    bool
		PeakDB      float64
		Tracks      []TrackInfo
	}

	TrackInfo struct {
		Index      int
		Instrument string
		Notes      int
		Range      string // lowest and highest note, e.g. "C-3..G-4"
		Voices     int    // voices per note
	}
)

//go:embed templates/*
var templateFS embed.FS

// Formats maps the format names to the template names.
var Formats = map[string]string{
	"text":     "song.txt.tmpl",
	"markdown": "song.md.tmpl",
}

// New returns a reporter using the built-in templates.
func New() (*Reporter, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf(`could not create templates: %v`, err)
	}
	return &Reporter{Template: tmpl, caser: cases.Title(language.English)}, nil
}

// NewFromTemplates returns a reporter using the *.tmpl templates in a
// directory, for custom formats.
func NewFromTemplates(templateDirectory string) (*Reporter, error) {
	globPtrn := filepath.Join(templateDirectory, "*.tmpl")
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	return &Reporter{Template: tmpl, caser: cases.Title(language.English)}, nil
}

// Info collects the summary of a song. audio may be nil; otherwise it is the
// rendering of the song and its peak level is included.
func (r *Reporter) Info(name string, song fmtrack.Song, audio fmtrack.AudioBuffer) SongInfo {
	p := song.Pattern.WithDefaults()
	ret := SongInfo{
		Name:        r.caser.String(name),
		BPM:         p.BPM,
		RowsPerBeat: p.RowsPerBeat,
		TicksPerRow: p.TicksPerRow,
		Rows:        len(p.Rows),
	}
	if tpm := p.TicksPerMinute(); tpm > 0 {
		ret.Duration = time.Duration(p.LengthInTicks()) * time.Minute / time.Duration(tpm)
	}
	if audio != nil {
		ret.HasAudio = true
		ret.PeakDB = math.Inf(-1)
		if peak := audio.Peak(); peak > 0 {
			ret.PeakDB = 20 * math.Log10(float64(peak))
		}
	}
	for t := 0; t < p.NumTracks(); t++ {
		instr := song.TrackInstrument(t)
		info := TrackInfo{Index: t, Instrument: r.caser.String(instr.Name), Voices: instr.NumVoices(), Range: "-"}
		low, high := byte(255), byte(0)
		for row := range p.Rows {
			c := p.Cell(row, t)
			if c.Kind != fmtrack.NoteOn {
				continue
			}
			info.Notes++
			low, high = min(low, c.Note), max(high, c.Note)
		}
		if info.Notes > 0 {
			info.Range = fmtrack.NoteName(low) + ".." + fmtrack.NoteName(high)
		}
		ret.Tracks = append(ret.Tracks, info)
	}
	return ret
}

// Song executes the template of the given format with the summary of the
// song.
func (r *Reporter) Song(format, name string, song fmtrack.Song, audio fmtrack.AudioBuffer) (string, error) {
	templateName, ok := Formats[format]
	if !ok {
		templateName = format + ".tmpl"
	}
	if r.Template.Lookup(templateName) == nil {
		return "", fmt.Errorf("unknown report format %q", format)
	}
	var populatedTemplate bytes.Buffer
	if err := r.Template.ExecuteTemplate(&populatedTemplate, templateName, r.Info(name, song, audio)); err != nil {
		return "", fmt.Errorf(`could not execute template "%v": %v`, templateName, err)
	}
	return populatedTemplate.String(), nil
}
