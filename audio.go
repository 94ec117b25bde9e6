package fmtrack

import (
	"bytes"
	"io"
	"math"
	"time"

	"github.com/viterin/vek/vek32"
)

type (
	// AudioBuffer is interleaved stereo 16-bit PCM: L, R, L, R, ...
	AudioBuffer []int16

	// Chip is the boundary to the sound generator. The engine only writes
	// registers and pulls samples; it never reasons about what the registers
	// mean for the sound. GenerateSamples fills len(dst)/2 interleaved stereo
	// frames.
	Chip interface {
		WriteRegister(bank, address, value byte)
		GenerateSamples(dst []int16)
	}

	// AudioContext is a real-time audio output. Play starts pulling PCM from
	// r (interleaved signed 16-bit little-endian stereo) until r returns
	// io.EOF or the returned player is closed.
	AudioContext interface {
		Play(r io.Reader) CloserWaiter
		Close() error
	}

	// CloserWaiter is a playing stream: Wait blocks until it has played out,
	// Close stops it.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)

// Frames returns the number of stereo frames in the buffer.
func (b AudioBuffer) Frames() int {
	return len(b) / 2
}

// Duration returns the length of the buffer in real time at the given sample
// rate.
func (b AudioBuffer) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(sampleRate)
}

// Repeat returns a new buffer containing the buffer n times back to back.
func (b AudioBuffer) Repeat(n int) AudioBuffer {
	ret := make(AudioBuffer, 0, len(b)*max(n, 0))
	for i := 0; i < n; i++ {
		ret = append(ret, b...)
	}
	return ret
}

// Float32 converts the buffer to float32 samples in the range [-1, 1].
func (b AudioBuffer) Float32() []float32 {
	ret := make([]float32, len(b))
	for i, v := range b {
		ret[i] = float32(v) / 32768
	}
	return ret
}

// Peak returns the largest absolute sample value of the buffer, in the range
// [0, 1].
func (b AudioBuffer) Peak() float32 {
	if len(b) == 0 {
		return 0
	}
	f := b.Float32()
	vek32.Abs_Inplace(f)
	return vek32.Max(f)
}

// Source returns a reader over the raw little-endian PCM bytes, for feeding
// an AudioContext.
func (b AudioBuffer) Source() io.Reader {
	return bytes.NewReader(b.Raw())
}

// AudioBufferFromFloat32 converts float32 samples to 16-bit, clipping values
// outside [-1, 1). It is the exact inverse of Float32.
func AudioBufferFromFloat32(data []float32) AudioBuffer {
	ret := make(AudioBuffer, len(data))
	for i, v := range data {
		ret[i] = int16(clamp(int(math.Round(float64(v)*32768)), -32768, 32767))
	}
	return ret
}
