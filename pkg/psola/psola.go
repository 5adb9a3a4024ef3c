// Package psola pitch-shifts a mono signal in the time domain using
// pitch-synchronous overlap-add: pitch marks are placed at measured period
// boundaries on voiced frames, re-spaced according to a per-mark scale
// factor derived from the desired pitch contour, and Hann-windowed grains
// are overlap-added at the re-spaced marks.
package psola

import (
	"math"

	"github.com/soundforge/autotune/pkg/pyin"
)

// Options is accepted by Shift but has no fields: frame and hop sizes are
// not configurable here and always come from the PYIN Data passed to Shift.
type Options struct{}

// Shift produces a pitch-shifted copy of samples of the same length, given
// the PYIN analysis of samples and a desired fundamental contour aligned
// frame-for-frame with data. If no frame of targetF0 is above 0, the output
// is an exact copy of samples.
func Shift(samples []float64, sr int, data pyin.Data, targetF0 []float64, _ Options) []float64 {
	n := len(samples)
	out := make([]float64, n)

	anyTarget := false
	for _, f := range targetF0 {
		if f > 0 {
			anyTarget = true
			break
		}
	}
	if data.Len() == 0 || !anyTarget {
		copy(out, samples)
		return out
	}

	marks := findPitchMarks(samples, sr, data)
	if len(marks) == 0 {
		copy(out, samples)
		return out
	}

	shifted := computeTargetSpacing(marks, data, targetF0)
	weightSum := make([]float64, n)

	for k, m := range marks {
		frame := data.FrameOf(m)
		fSrc := data.F0[frame]
		if fSrc <= 0 {
			fSrc = float64(sr) / 100
		}
		p := int(math.Round(float64(sr) / fSrc))
		if p < 1 {
			p = 1
		}
		addGrain(samples, out, weightSum, m, shifted[k], p)
	}

	for i := 0; i < n; i++ {
		if weightSum[i] > 1e-9 {
			out[i] /= weightSum[i]
		}
	}
	return out
}

// findPitchMarks steps through samples starting at the first voiced frame's
// center sample, placing the next mark at mark+round(sr/f0) using the f0 of
// the analysis frame containing the current mark. If that frame is
// unvoiced, it advances by the hop length until a voiced frame is found (or
// the signal ends).
func findPitchMarks(samples []float64, sr int, data pyin.Data) []int {
	n := len(samples)
	hop := data.HopLength
	if hop <= 0 {
		hop = 512
	}

	firstVoiced := -1
	for i, v := range data.VoicedFlag {
		if v {
			firstVoiced = i
			break
		}
	}
	if firstVoiced < 0 {
		return nil
	}

	mark := firstVoiced*hop + data.FrameLength/2
	if mark >= n {
		return nil
	}

	var marks []int
	for mark < n {
		frame := data.FrameOf(mark)
		if !data.VoicedFlag[frame] {
			mark += hop
			continue
		}
		f0 := data.F0[frame]
		if f0 <= 0 {
			mark += hop
			continue
		}
		marks = append(marks, mark)
		step := int(math.Round(float64(sr) / f0))
		if step < 1 {
			step = 1
		}
		mark += step
	}
	return marks
}

// computeTargetSpacing scales the spacing between consecutive marks by the
// ratio of source to target pitch at each mark.
func computeTargetSpacing(marks []int, data pyin.Data, targetF0 []float64) []int {
	shifted := make([]int, len(marks))
	shifted[0] = marks[0]
	for k := 1; k < len(marks); k++ {
		frame := data.FrameOf(marks[k])
		fSrc := data.F0[frame]
		var fTgt float64
		if frame < len(targetF0) {
			fTgt = targetF0[frame]
		}
		alpha := 1.0
		if fTgt > 0 && data.VoicedFlag[frame] {
			alpha = fSrc / fTgt
		}
		delta := int(math.Round(float64(marks[k]-marks[k-1]) * alpha))
		if delta < 1 {
			delta = 1
		}
		shifted[k] = shifted[k-1] + delta
	}
	return shifted
}

// addGrain extracts a Hann-windowed grain of length 2*p centered at src from
// the input, clipped to bounds, and adds it into out centered at dst,
// clipped to [0,len(out)), accumulating window coverage into weightSum.
func addGrain(input, out, weightSum []float64, src, dst, p int) {
	n := len(out)
	half := p
	grainLen := 2 * half

	for j := 0; j < grainLen; j++ {
		srcIdx := src - half + j
		dstIdx := dst - half + j
		if srcIdx < 0 || srcIdx >= len(input) || dstIdx < 0 || dstIdx >= n {
			continue
		}
		w := hann(j, grainLen)
		out[dstIdx] += input[srcIdx] * w
		weightSum[dstIdx] += w
	}
}

func hann(i, length int) float64 {
	if length <= 1 {
		return 1
	}
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(length-1))
}
