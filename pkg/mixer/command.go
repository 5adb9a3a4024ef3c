package mixer

import (
	"context"

	"github.com/soundforge/autotune/pkg/clip"
)

// Command is one of the variants the mixer's command loop accepts, in the
// single-producer channel described by spec.md §4.F. Commands are
// processed strictly in channel order.
type Command interface {
	apply(ctx context.Context, m *Mixer)
}

// SendTrack inserts or replaces the track identified by TrackID.
type SendTrack struct {
	TrackID uint32
	Clip    *clip.Audio
	Muted   bool
	Soloed  bool
}

// RemoveTrack deletes a track by id. Removing an id that doesn't exist is a
// no-op.
type RemoveTrack struct {
	TrackID uint32
}

// ClearBuffer drops all tracks, zeroes the mix buffer and resets the read
// position to 0.
type ClearBuffer struct{}

// Play sets the playing flag.
type Play struct{}

// Stop clears the playing flag.
type Stop struct{}

// SetReadPosition sets the read position, clamped to the mix buffer's
// length.
type SetReadPosition struct {
	Frame int
}

// SetVolume sets the output gain, clamped to [0,1].
type SetVolume struct {
	Volume float32
}

// BroadcastPosition sends the current position on the mixer's position
// channel.
type BroadcastPosition struct{}

// Shutdown terminates the command loop. The hardware callback then outputs
// silence forever.
type Shutdown struct{}

func (c SendTrack) apply(ctx context.Context, m *Mixer)         { m.handleSendTrack(ctx, c) }
func (c RemoveTrack) apply(ctx context.Context, m *Mixer)       { m.handleRemoveTrack(c) }
func (c ClearBuffer) apply(ctx context.Context, m *Mixer)       { m.handleClearBuffer() }
func (c Play) apply(ctx context.Context, m *Mixer)              { m.handlePlay(true) }
func (c Stop) apply(ctx context.Context, m *Mixer)              { m.handlePlay(false) }
func (c SetReadPosition) apply(ctx context.Context, m *Mixer)   { m.handleSetReadPosition(ctx, c) }
func (c SetVolume) apply(ctx context.Context, m *Mixer)         { m.handleSetVolume(c) }
func (c BroadcastPosition) apply(ctx context.Context, m *Mixer) { m.handleBroadcastPosition() }
func (c Shutdown) apply(ctx context.Context, m *Mixer)          { m.handleShutdown() }
