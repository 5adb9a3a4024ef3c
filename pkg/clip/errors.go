package clip

import (
	"errors"
	"fmt"
)

// ErrChannelCountMismatch is returned when a clip is constructed with
// differently sized left/right channel buffers.
var ErrChannelCountMismatch = errors.New("channel count mismatch")

func errChannelLengthMismatch(left, right int) error {
	return fmt.Errorf("%w: left=%d right=%d", ErrChannelCountMismatch, left, right)
}
