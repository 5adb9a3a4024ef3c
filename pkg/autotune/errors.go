package autotune

import "errors"

var (
	// ErrMissingPYIN is returned when ComputeShiftedAudio is invoked on a
	// clip whose PYIN slot has not yet been populated.
	ErrMissingPYIN = errors.New("missing pyin data")
	// ErrMissingDesiredF0 is returned when ComputeShiftedAudio is invoked on
	// a clip without a desired pitch contour.
	ErrMissingDesiredF0 = errors.New("missing desired f0 contour")
	// ErrChannelCountMismatch is returned by ComputeShiftedAudio when a
	// clip's left and right channel buffers have diverged in length.
	ErrChannelCountMismatch = errors.New("channel count mismatch")
)
