/*
Package tracker contains the playback engine of the FM tracker.

The Scheduler walks a pattern tick by tick, interprets its cells and allocates
chip voices for the notes from a voice.Pool, stealing the oldest voice when the
pool is exhausted. What happens to the voices is up to a VoiceSink; ChipSink
programs the registers of an fmtrack.Chip.

A scheduler does not know about time. The Renderer drives one as fast as
possible to render songs offline, the Player drives one from the audio
callback, pulling a number of frames for every tick from a SampleClock, and
RunTicker drives one from a wall-clock ticker. All of them give the same
sequence of voice events for the same song.

The Player runs in the audio goroutine and is controlled through a Broker:
songs, start and stop requests and jamming notes are sent to it through
channels, and it reports its position back with non-blocking sends.

Resolve goes the other way, quantizing a timeline of note events (e.g. from a
MIDI file) into a pattern, splitting overlapping notes of a channel into
columns of their own.
*/
package tracker
