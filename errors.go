package fmtrack

import "errors"

// Errors reported by the engine. Per-tick errors (ErrInvalidCell,
// ErrVoiceExhausted, ErrOrphanNoteOff) are logged and recovered from;
// ErrMalformedPattern is returned before a session starts and ErrRenderAborted
// accompanies a partial render.
var (
	ErrInvalidCell      = errors.New("invalid pattern cell")
	ErrVoiceExhausted   = errors.New("no voice available")
	ErrOrphanNoteOff    = errors.New("note-off without a sounding note")
	ErrMalformedPattern = errors.New("malformed pattern")
	ErrRenderAborted    = errors.New("render aborted")
)
