package pyin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWave(freq float64, sr, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sr))
	}
	return out
}

func TestEstimateSine220Hz(t *testing.T) {
	sr := 44100
	samples := sineWave(220, sr, 2*sr)

	data, err := Estimate(samples, sr, Options{})
	require.NoError(t, err)
	require.Equal(t, data.Len(), len(data.VoicedFlag))
	require.Equal(t, data.Len(), len(data.VoicedProb))

	voicedCount := 0
	for i := range data.F0 {
		if data.VoicedFlag[i] {
			voicedCount++
			assert.InDelta(t, 220, data.F0[i], 1)
			assert.Greater(t, data.VoicedProb[i], 0.9)
		}
		assert.Equal(t, data.F0[i] > 0, data.VoicedFlag[i])
	}
	assert.Greater(t, voicedCount, data.Len()/2)
}

func TestEstimateSilenceIsUnvoiced(t *testing.T) {
	sr := 44100
	samples := make([]float64, sr)
	data, err := Estimate(samples, sr, Options{})
	require.NoError(t, err)
	for i := range data.F0 {
		assert.False(t, data.VoicedFlag[i])
		assert.Zero(t, data.F0[i])
	}
}

func TestEstimateEmptySignal(t *testing.T) {
	data, err := Estimate(nil, 44100, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, data.Len())
}

func TestEstimateInvalidPitchRange(t *testing.T) {
	_, err := Estimate(sineWave(220, 44100, 44100), 44100, Options{Fmin: 800, Fmax: 65})
	require.ErrorIs(t, err, ErrInvalidPitchRange)
}

func TestEstimateContinuityPrefersCloserCandidate(t *testing.T) {
	sr := 44100
	// A steady 220Hz tone: check f0 stays close frame to frame rather than
	// jumping to a harmonic.
	samples := sineWave(220, sr, 2*sr)
	data, err := Estimate(samples, sr, Options{})
	require.NoError(t, err)

	var prev float64
	for i, f0 := range data.F0 {
		if !data.VoicedFlag[i] {
			continue
		}
		if prev != 0 {
			assert.Less(t, math.Abs(math.Log2(f0/prev)), 0.2)
		}
		prev = f0
	}
}
