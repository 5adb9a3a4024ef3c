// Package autotune wires the scale model, PYIN estimator and PSOLA shifter
// together for a stereo clip: snapping a measured pitch contour onto a
// musical key, and producing a pitch-corrected derivative of a clip from
// its desired contour.
package autotune

import (
	"context"
	"sync"

	"github.com/xaionaro-go/observability"

	"github.com/soundforge/autotune/pkg/clip"
	"github.com/soundforge/autotune/pkg/psola"
	"github.com/soundforge/autotune/pkg/scale"
)

// SnapToScale converts each voiced frame of f0Contour to the nearest MIDI
// pitch in key's scale (spanning the octave range that covers [fmin,fmax])
// and back to Hz. Unvoiced frames (f0 <= 0) map to 0.
func SnapToScale(f0Contour []float64, key scale.Key, fmin, fmax float64) []float64 {
	o1 := int(scale.FrequencyToMIDI(fmin))/12 - 1
	o2 := int(scale.FrequencyToMIDI(fmax))/12 + 1
	midiSet := key.ScaleMIDI(o1, o2)

	out := make([]float64, len(f0Contour))
	for i, f0 := range f0Contour {
		if f0 <= 0 {
			continue
		}
		midi := scale.FrequencyToMIDI(f0)
		nearest := nearestMIDI(midiSet, midi)
		out[i] = scale.MIDIToFrequency(float64(nearest))
	}
	return out
}

func nearestMIDI(set []int, target float64) int {
	if len(set) == 0 {
		return int(target + 0.5)
	}
	best := set[0]
	bestDist := absFloat(float64(best) - target)
	for _, m := range set[1:] {
		d := absFloat(float64(m) - target)
		if d < bestDist {
			bestDist = d
			best = m
		}
	}
	return best
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// ComputeShiftedAudio runs PSOLA on a's left and right channels
// independently, both driven by the same PYIN analysis (computed from a's
// mono mixdown), and returns a new Audio of the same sample rate with a
// zeroed PYIN slot. It requires a's PYIN slot to already be populated and a
// non-empty DesiredF0 contour.
func ComputeShiftedAudio(ctx context.Context, a *clip.Audio) (*clip.Audio, error) {
	if len(a.Left) != len(a.Right) {
		return nil, ErrChannelCountMismatch
	}
	data := a.GetPYIN()
	if data == nil {
		return nil, ErrMissingPYIN
	}
	if len(a.DesiredF0) == 0 {
		return nil, ErrMissingDesiredF0
	}

	targetF0 := make([]float64, len(a.DesiredF0))
	for i, v := range a.DesiredF0 {
		targetF0[i] = float64(v)
	}

	leftIn := toFloat64(a.Left)
	rightIn := toFloat64(a.Right)

	var (
		leftOut, rightOut []float64
		wg                sync.WaitGroup
	)
	wg.Add(2)
	observability.Go(ctx, func(context.Context) {
		defer wg.Done()
		leftOut = psola.Shift(leftIn, int(a.SampleRate), *data, targetF0, psola.Options{})
	})
	observability.Go(ctx, func(context.Context) {
		defer wg.Done()
		rightOut = psola.Shift(rightIn, int(a.SampleRate), *data, targetF0, psola.Options{})
	})
	wg.Wait()

	out, err := clip.NewAudio(a.SampleRate, toFloat32(leftOut), toFloat32(rightOut))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
