// Package clip implements the Audio container: a stereo PCM clip with a
// shared, write-once fundamental-frequency analysis slot and an optional
// desired pitch contour. The analysis slot is filled exactly once by a
// background worker, the same single-writer/many-readers pattern the
// teacher's playback backends use for their watchdog/reader/writer
// goroutine triads.
package clip

import (
	"context"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"

	"github.com/soundforge/autotune/pkg/pyin"
)

// Audio is a stereo clip with cached PYIN analysis and a user-requested
// pitch contour. The source buffers are never mutated by analysis or by
// pitch shifting — corrected output is always a separate derived clip.
type Audio struct {
	SampleRate uint32

	Left  []float32
	Right []float32

	DesiredF0 []float32

	pyinLocker sync.RWMutex
	pyinData   *pyin.Data
	pyinBusy   bool
}

// NewAudio constructs an Audio clip, requiring len(left) == len(right).
func NewAudio(sampleRate uint32, left, right []float32) (*Audio, error) {
	if len(left) != len(right) {
		return nil, errChannelLengthMismatch(len(left), len(right))
	}
	return &Audio{
		SampleRate: sampleRate,
		Left:       append([]float32(nil), left...),
		Right:      append([]float32(nil), right...),
	}, nil
}

// Len returns the number of frames (samples per channel).
func (a *Audio) Len() int {
	return len(a.Left)
}

// PYINOptions returns the default PYIN options used by the background
// analysis worker; exposed so callers can compute frame-aligned contours
// (e.g. SnapToScale) without duplicating the defaults.
func PYINOptions() pyin.Options {
	return pyin.Options{}
}

// PerformPYINBackground spawns one worker that computes PYIN from the mono
// mixdown (L+R)/2 and writes it into the shared slot under a writer lock. A
// second call while one is already running (or already completed) is a
// no-op.
func (a *Audio) PerformPYINBackground(ctx context.Context) {
	a.pyinLocker.Lock()
	if a.pyinBusy || a.pyinData != nil {
		a.pyinLocker.Unlock()
		return
	}
	a.pyinBusy = true
	a.pyinLocker.Unlock()

	observability.Go(ctx, func(ctx context.Context) {
		mono := a.monoMixdown()
		data, err := pyin.Estimate(mono, int(a.SampleRate), PYINOptions())
		if err != nil {
			logger.Errorf(ctx, "pyin analysis failed: %v", err)
			a.pyinLocker.Lock()
			a.pyinBusy = false
			a.pyinLocker.Unlock()
			return
		}

		a.pyinLocker.Lock()
		a.pyinData = &data
		a.pyinBusy = false
		a.pyinLocker.Unlock()
	})
}

func (a *Audio) monoMixdown() []float64 {
	out := make([]float64, a.Len())
	for i := range out {
		out[i] = (float64(a.Left[i]) + float64(a.Right[i])) / 2
	}
	return out
}

// GetPYIN returns a snapshot of the current PYIN slot, or nil if analysis
// has not yet completed.
func (a *Audio) GetPYIN() *pyin.Data {
	a.pyinLocker.RLock()
	defer a.pyinLocker.RUnlock()
	if a.pyinData == nil {
		return nil
	}
	snapshot := *a.pyinData
	return &snapshot
}

// GetPYINBlocking busy-waits until the PYIN slot is populated.
func (a *Audio) GetPYINBlocking(ctx context.Context) *pyin.Data {
	for {
		if data := a.GetPYIN(); data != nil {
			return data
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Millisecond):
		}
	}
}

// InsertAudioAt extends self if needed (with silence) and overwrites
// self[pos:pos+len(other.Left)] with other's channels. Invalidates the PYIN
// slot. Never fails — pos beyond the current length just extends further.
func (a *Audio) InsertAudioAt(pos int, other *Audio) {
	a.ensureLen(pos + other.Len())
	copy(a.Left[pos:], other.Left)
	copy(a.Right[pos:], other.Right)
	a.invalidatePYIN()
}

// AddAudioAt extends self if needed and sample-wise adds other's channels
// into self starting at pos. Invalidates the PYIN slot.
func (a *Audio) AddAudioAt(pos int, other *Audio) {
	a.ensureLen(pos + other.Len())
	for i := 0; i < other.Len(); i++ {
		a.Left[pos+i] += other.Left[i]
		a.Right[pos+i] += other.Right[i]
	}
	a.invalidatePYIN()
}

func (a *Audio) ensureLen(n int) {
	if n <= a.Len() {
		return
	}
	grow := n - a.Len()
	a.Left = append(a.Left, make([]float32, grow)...)
	a.Right = append(a.Right, make([]float32, grow)...)
}

func (a *Audio) invalidatePYIN() {
	a.pyinLocker.Lock()
	defer a.pyinLocker.Unlock()
	a.pyinData = nil
	a.pyinBusy = false
}

// Interleaved produces L0,R0,L1,R1,... .
func (a *Audio) Interleaved() []float32 {
	out := make([]float32, 2*a.Len())
	for i := 0; i < a.Len(); i++ {
		out[2*i] = a.Left[i]
		out[2*i+1] = a.Right[i]
	}
	return out
}

// Clone returns a deep copy of the clip with a zeroed PYIN slot.
func (a *Audio) Clone() *Audio {
	return &Audio{
		SampleRate: a.SampleRate,
		Left:       append([]float32(nil), a.Left...),
		Right:      append([]float32(nil), a.Right...),
		DesiredF0:  append([]float32(nil), a.DesiredF0...),
	}
}
