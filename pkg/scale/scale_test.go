package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoteName(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"C4", 60},
		{"F#3", 54},
		{"Bb-1", 10},
		{"A4", 69},
		{"C10", 132}, // out of MIDI range, expect error
	}
	for _, c := range cases {
		got, err := ParseNoteName(c.in)
		if c.in == "C10" {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseNoteNameInvalid(t *testing.T) {
	_, err := ParseNoteName("H3")
	require.Error(t, err)
	_, err = ParseNoteName("C")
	require.Error(t, err)
}

func TestParseNote(t *testing.T) {
	n, err := ParseNote("db")
	require.NoError(t, err)
	assert.Equal(t, Cs, n)

	_, err = ParseNote("z")
	require.Error(t, err)
}

func TestFrequencyMIDIRoundTrip(t *testing.T) {
	for _, f := range []float64{20, 110, 440, 1000, 20000} {
		m := FrequencyToMIDI(f)
		got := MIDIToFrequency(m)
		assert.InDelta(t, f, got, 1e-4*f+1e-6)
	}
}

func TestScaleMIDIStrictlyIncreasingAndInRange(t *testing.T) {
	k := NewKey(C, Major)
	midi := k.ScaleMIDI(2, 5)
	require.NotEmpty(t, midi)
	for i, m := range midi {
		assert.True(t, m >= 0 && m <= 127)
		if i > 0 {
			assert.Greater(t, m, midi[i-1])
		}
	}
}

func TestScaleFrequenciesMonotonic(t *testing.T) {
	k := NewKey(A, Minor)
	freqs := k.ScaleFrequencies(3, 4)
	for i := 1; i < len(freqs); i++ {
		assert.Greater(t, freqs[i], freqs[i-1])
	}
}

func TestMIDIToFrequencyA4(t *testing.T) {
	assert.InDelta(t, 440.0, MIDIToFrequency(69), 1e-9)
}

func TestFrequencyToMIDIMonotonic(t *testing.T) {
	assert.Less(t, FrequencyToMIDI(220), FrequencyToMIDI(440))
	assert.True(t, math.Abs(FrequencyToMIDI(440)-69) < 1e-9)
}
