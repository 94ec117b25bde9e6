package fmtrack

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Raw returns the buffer as little-endian 16-bit PCM bytes.
func (b AudioBuffer) Raw() []byte {
	ret := make([]byte, 2*len(b))
	for i, v := range b {
		binary.LittleEndian.PutUint16(ret[2*i:], uint16(v))
	}
	return ret
}

// WriteWav writes the buffer as a 16-bit stereo PCM .wav file.
func (b AudioBuffer) WriteWav(w io.WriteSeeker, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	data := make([]int, len(b))
	for i, v := range b {
		data[i] = int(v)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("could not write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish wav file: %w", err)
	}
	return nil
}
