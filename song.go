package fmtrack

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Song includes a Pattern (the grid of notes in one or more tracks) and a
// Patch (the list of instruments the tracks refer to).
type Song struct {
	Pattern Pattern `yaml:"pattern" json:"pattern"`
	Patch   Patch   `yaml:"patch,omitempty" json:"patch,omitempty"`
}

// Copy makes a deep copy of a Song.
func (s *Song) Copy() Song {
	return Song{Pattern: s.Pattern.Copy(), Patch: s.Patch.Copy()}
}

// Validate checks if the Song looks like a valid song: the pattern is well
// formed and every track refers to an instrument in the patch (an empty patch
// means every track uses DefaultInstrument).
func (s *Song) Validate() error {
	if err := s.Pattern.Validate(); err != nil {
		return err
	}
	if len(s.Patch) == 0 {
		return nil
	}
	for t, i := range s.Pattern.Instruments {
		if i < 0 || i >= len(s.Patch) {
			return fmt.Errorf("%w: track %d uses instrument %d, patch has %d", ErrMalformedPattern, t, i, len(s.Patch))
		}
	}
	return nil
}

// TrackInstrument returns the instrument of the given track.
func (s *Song) TrackInstrument(track int) Instrument {
	if track < 0 || track >= len(s.Pattern.Instruments) {
		return DefaultInstrument
	}
	return s.Patch.Instrument(s.Pattern.Instruments[track])
}

// ParseSong parses a song from .json or .yml contents, trying json first.
// Unset timing fields get their defaults; the song is not validated.
func ParseSong(contents []byte) (Song, error) {
	var song Song
	if errJSON := json.Unmarshal(contents, &song); errJSON != nil {
		song = Song{}
		if errYaml := yaml.Unmarshal(contents, &song); errYaml != nil {
			return Song{}, fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%w)", errJSON, errYaml)
		}
	}
	song.Pattern = song.Pattern.WithDefaults()
	return song, nil
}

// MarshalSong encodes the song as yml.
func MarshalSong(song Song) ([]byte, error) {
	b, err := yaml.Marshal(song)
	if err != nil {
		return nil, fmt.Errorf("could not marshal song: %w", err)
	}
	return b, nil
}
