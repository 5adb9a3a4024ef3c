package scale

import "errors"

// ErrInvalidNoteName is returned when a note string cannot be parsed.
var ErrInvalidNoteName = errors.New("invalid note name")
