// Package mixer implements the command-driven realtime mixing and
// playback engine: per-track pitch-corrected audio is assembled into a
// shared stereo mix buffer, which a hardware audio callback reads from at
// the device's own pace while advancing a shared position cursor.
//
// Three concurrency realms meet here, matching spec.md §5: the UI realm
// issues Commands over a single-producer channel; an ephemeral analysis
// worker (pkg/clip) fills a track's PYIN slot in the background; the
// hardware callback realm reads the mix buffer under short-held locks and
// must never block or allocate.
package mixer

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"

	"github.com/soundforge/autotune/pkg/autotune"
	"github.com/soundforge/autotune/pkg/clip"
)

type track struct {
	clip   *clip.Audio
	muted  bool
	soloed bool
}

// Mixer owns the mix buffer and transport state. Tracks own their source
// clip and desired pitch contour; PYIN data is shared through the clip's
// own read-write-locked slot.
type Mixer struct {
	cmdCh      chan Command
	positionCh chan int
	errCh      chan error

	sampleRateLock sync.Mutex
	sampleRate     uint32
	sampleRateSet  bool

	tracksLock sync.Mutex
	tracks     map[uint32]*track

	// The audio callback acquires these four in a fixed order: buffer,
	// playing, position, volume. Each is held only for O(frames) work.
	bufferLock sync.Mutex
	mixLeft    []float32
	mixRight   []float32

	playingLock sync.Mutex
	playing     bool

	positionLock sync.Mutex
	position     int

	volumeLock sync.Mutex
	volume     float32

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New constructs a Mixer with an unbounded-enough command channel and
// starts its command loop as a supervised goroutine.
func New(ctx context.Context, cmdBufferSize int) *Mixer {
	m := &Mixer{
		cmdCh:      make(chan Command, cmdBufferSize),
		positionCh: make(chan int, 16),
		errCh:      make(chan error, 16),
		tracks:     make(map[uint32]*track),
		volume:     1,
		shutdown:   make(chan struct{}),
	}
	observability.Go(ctx, func(ctx context.Context) {
		m.commandLoop(ctx)
	})
	return m
}

// Commands returns the send side of the command channel.
func (m *Mixer) Commands() chan<- Command {
	return m.cmdCh
}

// PositionUpdates returns the mixer-to-UI position broadcast channel.
func (m *Mixer) PositionUpdates() <-chan int {
	return m.positionCh
}

// Errors returns the mixer's non-fatal error broadcast channel. It carries
// tracks dropped for a sample-rate mismatch (ErrSampleRateMismatch); a
// clamped SetReadPosition is only logged and is not sent here.
func (m *Mixer) Errors() <-chan error {
	return m.errCh
}

func (m *Mixer) emitError(err error) {
	select {
	case m.errCh <- err:
	default:
	}
}

func (m *Mixer) commandLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.shutdown:
			return
		case cmd, ok := <-m.cmdCh:
			if !ok {
				return
			}
			logger.Debugf(ctx, "mixer: applying command %T", cmd)
			cmd.apply(ctx, m)
		}
	}
}

func (m *Mixer) handleSendTrack(ctx context.Context, c SendTrack) {
	m.sampleRateLock.Lock()
	if !m.sampleRateSet {
		m.sampleRate = c.Clip.SampleRate
		m.sampleRateSet = true
	} else if m.sampleRate != c.Clip.SampleRate {
		m.sampleRateLock.Unlock()
		err := fmt.Errorf("%w: track %d is %dHz, mixer is %dHz", ErrSampleRateMismatch, c.TrackID, c.Clip.SampleRate, m.sampleRate)
		logger.Errorf(ctx, "mixer: dropping track: %v", err)
		m.emitError(err)
		return
	}
	m.sampleRateLock.Unlock()

	m.tracksLock.Lock()
	m.tracks[c.TrackID] = &track{clip: c.Clip, muted: c.Muted, soloed: c.Soloed}
	m.rebuildMixBufferLocked()
	m.tracksLock.Unlock()
}

func (m *Mixer) handleRemoveTrack(c RemoveTrack) {
	m.tracksLock.Lock()
	delete(m.tracks, c.TrackID)
	m.rebuildMixBufferLocked()
	m.tracksLock.Unlock()
}

func (m *Mixer) handleClearBuffer() {
	m.tracksLock.Lock()
	m.tracks = make(map[uint32]*track)
	m.tracksLock.Unlock()

	m.bufferLock.Lock()
	m.mixLeft = nil
	m.mixRight = nil
	m.bufferLock.Unlock()

	m.positionLock.Lock()
	m.position = 0
	m.positionLock.Unlock()
}

func (m *Mixer) handlePlay(playing bool) {
	m.playingLock.Lock()
	m.playing = playing
	m.playingLock.Unlock()
}

func (m *Mixer) handleSetReadPosition(ctx context.Context, c SetReadPosition) {
	m.bufferLock.Lock()
	length := len(m.mixLeft)
	m.bufferLock.Unlock()

	frame := c.Frame
	if frame < 0 {
		frame = 0
	}
	if frame > length {
		frame = length
	}
	if frame != c.Frame {
		logger.Debugf(ctx, "mixer: %v: requested frame %d clamped to %d", ErrPositionOutOfRange, c.Frame, frame)
	}

	m.positionLock.Lock()
	m.position = frame
	m.positionLock.Unlock()
}

func (m *Mixer) handleSetVolume(c SetVolume) {
	v := c.Volume
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	m.volumeLock.Lock()
	m.volume = v
	m.volumeLock.Unlock()
}

func (m *Mixer) handleBroadcastPosition() {
	m.positionLock.Lock()
	pos := m.position
	m.positionLock.Unlock()

	select {
	case m.positionCh <- pos:
	default:
	}
}

// handleShutdown stops the command loop and forces the hardware callback to
// silence forever (spec.md §5 Cancellation): a track that was already
// playing when Shutdown arrives must not keep emitting audio from a mix
// buffer the command loop no longer updates.
func (m *Mixer) handleShutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdown)
	})
	m.playingLock.Lock()
	m.playing = false
	m.playingLock.Unlock()
}

// rebuildMixBufferLocked recomputes the mix buffer from the current track
// set. Callers must hold tracksLock. Its frame count equals the longest
// track; each track contributes its PSOLA-corrected channels when it has a
// desired contour and ready PYIN data, or its raw channels otherwise.
// Muted tracks contribute silence; if any track is soloed, every
// non-soloed track is muted for this rebuild.
func (m *Mixer) rebuildMixBufferLocked() {
	length := 0
	anySoloed := false
	for _, t := range m.tracks {
		if t.clip.Len() > length {
			length = t.clip.Len()
		}
		if t.soloed {
			anySoloed = true
		}
	}

	left := make([]float32, length)
	right := make([]float32, length)

	for _, t := range m.tracks {
		if t.muted {
			continue
		}
		if anySoloed && !t.soloed {
			continue
		}

		src := t.clip
		if len(t.clip.DesiredF0) > 0 && t.clip.GetPYIN() != nil {
			shifted, err := autotune.ComputeShiftedAudio(context.Background(), t.clip)
			if err == nil {
				src = shifted
			}
		}

		for i := 0; i < src.Len(); i++ {
			left[i] += src.Left[i]
			right[i] += src.Right[i]
		}
	}

	m.bufferLock.Lock()
	m.mixLeft = left
	m.mixRight = right
	m.bufferLock.Unlock()
}

// Callback is the realtime hardware audio callback: it fills out
// (interleaved, channels-wide frames) from the mix buffer at the current
// position, applying volume, writing silence into channels beyond the
// first two, and never allocating or blocking on contended locks for long.
// If playing is false, or the position has reached the end of the mix
// buffer, it writes silence and does not advance the position — playback
// never wraps. Once Shutdown has been processed, Callback writes silence
// forever, regardless of the playing flag.
func (m *Mixer) Callback(out []float32, channels int) {
	select {
	case <-m.shutdown:
		zero(out)
		return
	default:
	}

	m.bufferLock.Lock()
	left, right := m.mixLeft, m.mixRight
	m.bufferLock.Unlock()

	m.playingLock.Lock()
	playing := m.playing
	m.playingLock.Unlock()

	m.positionLock.Lock()
	pos := m.position
	m.positionLock.Unlock()

	m.volumeLock.Lock()
	volume := m.volume
	m.volumeLock.Unlock()

	frames := len(out) / channels
	if !playing {
		zero(out)
		return
	}

	for i := 0; i < frames; i++ {
		base := i * channels
		if pos >= len(left) {
			for c := 0; c < channels; c++ {
				out[base+c] = 0
			}
			continue
		}
		out[base] = left[pos] * volume
		if channels > 1 {
			out[base+1] = right[pos] * volume
		}
		for c := 2; c < channels; c++ {
			out[base+c] = 0
		}
		pos++
	}

	m.positionLock.Lock()
	m.position = pos
	m.positionLock.Unlock()
}

func zero(out []float32) {
	for i := range out {
		out[i] = 0
	}
}

// MixLength returns the current mix buffer's frame count, for tests and
// diagnostics.
func (m *Mixer) MixLength() int {
	m.bufferLock.Lock()
	defer m.bufferLock.Unlock()
	return len(m.mixLeft)
}

// Position returns the current read position, for tests and diagnostics.
func (m *Mixer) Position() int {
	m.positionLock.Lock()
	defer m.positionLock.Unlock()
	return m.position
}
