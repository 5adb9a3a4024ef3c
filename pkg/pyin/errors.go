package pyin

import "errors"

// ErrInvalidPitchRange is returned when fmin >= fmax, or either bound is
// non-finite.
var ErrInvalidPitchRange = errors.New("invalid pitch range")
