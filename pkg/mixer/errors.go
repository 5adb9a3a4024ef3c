package mixer

import "errors"

var (
	// ErrPositionOutOfRange is logged when SetReadPosition names a frame
	// beyond the mix buffer's length; the position is clamped and the
	// command still succeeds, per spec.md §7.
	ErrPositionOutOfRange = errors.New("position out of range")
	// ErrSampleRateMismatch is logged and emitted on Errors() when a track
	// is sent whose sample rate disagrees with the rate adopted from the
	// first track (spec.md §9 "Non-goals clarified": the core does not
	// resample across clips); the track is dropped.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
	// ErrAudioDeviceUnavailable is surfaced once to the caller of NewHardwareSink
	// if hardware playback initialization fails.
	ErrAudioDeviceUnavailable = errors.New("audio device unavailable")
)
