package wavfile

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadStereoRoundTrip(t *testing.T) {
	sr := uint32(44100)
	n := 1000
	left := make([]float32, n)
	right := make([]float32, n)
	for i := 0; i < n; i++ {
		left[i] = float32(math.Sin(2 * math.Pi * 220 * float64(i) / float64(sr)))
		right[i] = float32(math.Sin(2 * math.Pi * 330 * float64(i) / float64(sr)))
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, SaveStereo(path, sr, left, right))

	gotSR, gotLeft, gotRight, err := LoadStereo(path)
	require.NoError(t, err)
	assert.Equal(t, sr, gotSR)
	require.Len(t, gotLeft, n)
	require.Len(t, gotRight, n)

	for i := 0; i < n; i++ {
		assert.InDelta(t, left[i], gotLeft[i], 1e-3)
		assert.InDelta(t, right[i], gotRight[i], 1e-3)
	}
}

func TestLoadRejectsNonWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o644))
	_, _, _, err := Load(path)
	require.Error(t, err)
}

func TestLoadMonoDuplicatesToStereo(t *testing.T) {
	sr := uint32(8000)
	mono := []float32{0, 0.5, -0.5, 1, -1}
	path := filepath.Join(t.TempDir(), "mono.wav")
	require.NoError(t, Save(path, sr, 1, mono))

	gotSR, left, right, err := LoadStereo(path)
	require.NoError(t, err)
	assert.Equal(t, sr, gotSR)
	assert.Equal(t, left, right)
}
