package psola

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundforge/autotune/pkg/pyin"
)

func sineWave(freq float64, sr, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sr))
	}
	return out
}

func dominantBinHz(samples []float64, sr int) float64 {
	complexIn := make([]complex128, len(samples))
	for i, s := range samples {
		complexIn[i] = complex(s, 0)
	}
	spectrum := fft.FFT(complexIn)

	bestBin := 0
	bestMag := 0.0
	for i := 1; i < len(spectrum)/2; i++ {
		mag := cmplx.Abs(spectrum[i])
		if mag > bestMag {
			bestMag = mag
			bestBin = i
		}
	}
	return float64(bestBin) * float64(sr) / float64(len(samples))
}

func TestShiftOctaveUp(t *testing.T) {
	sr := 44100
	samples := sineWave(220, sr, 2*sr)
	data, err := pyin.Estimate(samples, sr, pyin.Options{})
	require.NoError(t, err)

	target := make([]float64, data.Len())
	for i, v := range data.VoicedFlag {
		if v {
			target[i] = 440
		}
	}

	out := Shift(samples, sr, data, target, Options{})
	require.Len(t, out, len(samples))

	f := dominantBinHz(out, sr)
	assert.InDelta(t, 440, f, 5)
}

func TestShiftPreservesLength(t *testing.T) {
	sr := 44100
	samples := sineWave(220, sr, sr/2)
	data, err := pyin.Estimate(samples, sr, pyin.Options{})
	require.NoError(t, err)
	target := make([]float64, data.Len())
	out := Shift(samples, sr, data, target, Options{})
	assert.Len(t, out, len(samples))
}

func TestShiftShorterThanOneFrame(t *testing.T) {
	sr := 44100
	samples := sineWave(220, sr, 100)
	data, err := pyin.Estimate(samples, sr, pyin.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, data.Len())

	out := Shift(samples, sr, data, nil, Options{})
	assert.Equal(t, samples, out)
}

func TestShiftAllUnvoicedTargetIsIdentity(t *testing.T) {
	sr := 44100
	samples := sineWave(220, sr, 2*sr)
	data, err := pyin.Estimate(samples, sr, pyin.Options{})
	require.NoError(t, err)

	// target_f0 all zero (unvoiced) -> identity spacing.
	target := make([]float64, data.Len())
	out := Shift(samples, sr, data, target, Options{})

	require.Len(t, out, len(samples))
	var sumSq float64
	for i := range out {
		d := out[i] - samples[i]
		sumSq += d * d
	}
	rms := math.Sqrt(sumSq / float64(len(out)))
	assert.Less(t, rms, 1e-3)
}

func TestShiftEmptyInput(t *testing.T) {
	data, err := pyin.Estimate(nil, 44100, pyin.Options{})
	require.NoError(t, err)
	out := Shift(nil, 44100, data, nil, Options{})
	assert.Empty(t, out)
}
