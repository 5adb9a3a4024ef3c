// Package pyin estimates the fundamental-frequency contour of a mono
// signal using a probabilistic variant of the YIN algorithm: a difference
// function normalized into a cumulative mean, local-minimum candidate
// detection with parabolic interpolation, and a log-normal continuity
// prior that favors frame-to-frame pitch stability over raw candidate
// strength.
package pyin

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Options configures one Estimate call. Zero-valued fields fall back to
// the defaults spec.md names for PYIN.
type Options struct {
	FrameLength int
	HopLength   int
	Fmin        float64
	Fmax        float64
	Threshold   float64
	Sigma       float64
}

func (o Options) withDefaults() Options {
	if o.FrameLength <= 0 {
		o.FrameLength = 2048
	}
	if o.HopLength <= 0 {
		o.HopLength = 512
	}
	if o.Fmin <= 0 {
		o.Fmin = 65
	}
	if o.Fmax <= 0 {
		o.Fmax = 800
	}
	if o.Threshold <= 0 {
		o.Threshold = 0.1
	}
	if o.Sigma <= 0 {
		o.Sigma = 0.1
	}
	return o
}

// Data is three parallel per-frame sequences: the estimated fundamental in
// Hz (0 where unvoiced), the voicing flag, and the posterior voicing
// probability.
type Data struct {
	F0         []float64
	VoicedFlag []bool
	VoicedProb []float64

	SampleRate  int
	HopLength   int
	FrameLength int
}

// Len returns the number of analysis frames.
func (d Data) Len() int { return len(d.F0) }

// FrameOf returns the analysis-frame index containing sample position pos.
func (d Data) FrameOf(pos int) int {
	if d.HopLength <= 0 {
		return 0
	}
	f := pos / d.HopLength
	if f >= d.Len() {
		f = d.Len() - 1
	}
	if f < 0 {
		f = 0
	}
	return f
}

const voicingFloor = 1e-3

// Estimate computes PYINData for a mono signal sampled at sr Hz.
func Estimate(samples []float64, sr int, opts Options) (Data, error) {
	if math.IsNaN(opts.Fmin) || math.IsInf(opts.Fmin, 0) || math.IsNaN(opts.Fmax) || math.IsInf(opts.Fmax, 0) {
		return Data{}, fmt.Errorf("%w: fmin=%v fmax=%v", ErrInvalidPitchRange, opts.Fmin, opts.Fmax)
	}
	opts = opts.withDefaults()
	if !(opts.Fmin > 0 && opts.Fmax > 0 && opts.Fmin < opts.Fmax) {
		return Data{}, fmt.Errorf("%w: fmin=%v fmax=%v", ErrInvalidPitchRange, opts.Fmin, opts.Fmax)
	}

	n := len(samples)
	frameLen := opts.FrameLength
	hop := opts.HopLength

	data := Data{SampleRate: sr, HopLength: hop, FrameLength: frameLen}
	if n < frameLen {
		return data, nil
	}
	numFrames := 1 + (n-frameLen)/hop

	data.F0 = make([]float64, numFrames)
	data.VoicedFlag = make([]bool, numFrames)
	data.VoicedProb = make([]float64, numFrames)

	maxLag := frameLen - 1
	if srOverFmin := int(float64(sr) / opts.Fmin); srOverFmin < maxLag {
		maxLag = srOverFmin
	}
	minLag := int(float64(sr) / opts.Fmax)
	if minLag < 1 {
		minLag = 1
	}

	var prevF0 float64
	havePrevF0 := false

	d := make([]float64, maxLag+1)
	cmnd := make([]float64, maxLag+1)

	for i := 0; i < numFrames; i++ {
		start := i * hop
		frame := samples[start : start+frameLen]

		rms := frameRMS(frame)

		differenceFunction(frame, maxLag, d)
		cumulativeMeanNormalizedDifference(d, cmnd)

		type candidate struct {
			f0     float64
			weight float64
		}
		var candidates []candidate

		lo := minLag
		if lo < 1 {
			lo = 1
		}
		hi := maxLag - 1
		for tau := lo; tau <= hi; tau++ {
			if tau-1 < 0 || tau+1 > maxLag {
				continue
			}
			if cmnd[tau] < opts.Threshold && cmnd[tau] <= cmnd[tau-1] && cmnd[tau] <= cmnd[tau+1] {
				tauHat := parabolicInterp(cmnd, tau)
				if tauHat <= 0 {
					continue
				}
				f0 := float64(sr) / tauHat
				weight := 1 - cmnd[tau]
				if weight < 0 {
					weight = 0
				} else if weight > 1 {
					weight = 1
				}
				candidates = append(candidates, candidate{f0: f0, weight: weight})
			}
		}

		var pVoiced float64
		for _, c := range candidates {
			pVoiced += c.weight
		}
		if pVoiced > 1 {
			pVoiced = 1
		}

		voiced := pVoiced >= 0.5 && rms > voicingFloor
		data.VoicedProb[i] = pVoiced

		if !voiced || len(candidates) == 0 {
			data.F0[i] = 0
			data.VoicedFlag[i] = false
			havePrevF0 = false
			continue
		}

		var best candidate
		bestScore := -1.0
		if havePrevF0 {
			prior := distuv.Normal{Mu: math.Log2(prevF0), Sigma: opts.Sigma}
			for _, c := range candidates {
				score := c.weight * prior.Prob(math.Log2(c.f0))
				if score > bestScore {
					bestScore = score
					best = c
				}
			}
		} else {
			for _, c := range candidates {
				if c.weight > bestScore {
					bestScore = c.weight
					best = c
				}
			}
		}

		data.F0[i] = best.f0
		data.VoicedFlag[i] = true
		prevF0 = best.f0
		havePrevF0 = true
	}

	return data, nil
}

func frameRMS(frame []float64) float64 {
	var sum float64
	for _, x := range frame {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// differenceFunction computes d[tau] = sum_{j=0}^{W-1} (x[j]-x[j+tau])^2 for
// tau in [0,maxLag], W = len(frame)-maxLag. d[0] = 0.
func differenceFunction(frame []float64, maxLag int, d []float64) {
	w := len(frame) - maxLag
	d[0] = 0
	for tau := 1; tau <= maxLag; tau++ {
		var acc float64
		for j := 0; j < w; j++ {
			diff := frame[j] - frame[j+tau]
			acc += diff * diff
		}
		d[tau] = acc
	}
}

// cumulativeMeanNormalizedDifference computes cmnd[0]=1, and for tau>=1,
// cmnd[tau] = d[tau]*tau/sum(d[1..tau]), or 1 if that running sum is 0.
func cumulativeMeanNormalizedDifference(d, cmnd []float64) {
	cmnd[0] = 1
	var running float64
	for tau := 1; tau < len(d); tau++ {
		running += d[tau]
		if running == 0 {
			cmnd[tau] = 1
			continue
		}
		cmnd[tau] = d[tau] * float64(tau) / running
	}
}

// parabolicInterp refines the location of a local minimum of cmnd around
// index tau using the three points (tau-1,tau,tau+1).
func parabolicInterp(cmnd []float64, tau int) float64 {
	if tau <= 0 || tau >= len(cmnd)-1 {
		return float64(tau)
	}
	s0, s1, s2 := cmnd[tau-1], cmnd[tau], cmnd[tau+1]
	denom := s0 - 2*s1 + s2
	if denom == 0 {
		return float64(tau)
	}
	shift := 0.5 * (s0 - s2) / denom
	return float64(tau) + shift
}
