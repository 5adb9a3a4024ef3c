package main

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"

	"github.com/soundforge/autotune/pkg/autotune"
	"github.com/soundforge/autotune/pkg/clip"
	"github.com/soundforge/autotune/pkg/scale"
	"github.com/soundforge/autotune/pkg/wavfile"
)

func main() {
	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	rootNote := pflag.String("root", "C", "root note of the target key, e.g. F#")
	scaleName := pflag.String("scale", "major", "target scale: major, minor, blues, pentatonic, chromatic")
	fmin := pflag.Float64("fmin", 65, "minimum pitch considered, Hz")
	fmax := pflag.Float64("fmax", 800, "maximum pitch considered, Hz")
	out := pflag.String("out", "out.wav", "output WAV path")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if pflag.NArg() != 1 {
		panic("expected exactly one positional argument: path to a 16-bit PCM WAV file")
	}

	root, err := scale.ParseNote(*rootNote)
	assertNoError(err)
	sc, err := parseScale(*scaleName)
	assertNoError(err)
	key := scale.NewKey(root, sc)

	sampleRate, left, right, err := wavfile.LoadStereo(pflag.Arg(0))
	assertNoError(err)

	a, err := clip.NewAudio(sampleRate, left, right)
	assertNoError(err)

	a.PerformPYINBackground(ctx)
	logger.Infof(ctx, "analyzing pitch...")
	data := a.GetPYINBlocking(ctx)
	if data == nil {
		panic("pyin analysis did not complete")
	}

	contour := make([]float64, data.Len())
	copy(contour, data.F0)
	snapped := autotune.SnapToScale(contour, key, *fmin, *fmax)

	a.DesiredF0 = make([]float32, len(snapped))
	for i, f := range snapped {
		a.DesiredF0[i] = float32(f)
	}

	logger.Infof(ctx, "shifting pitch onto %v %v...", root, sc)
	shifted, err := autotune.ComputeShiftedAudio(ctx, a)
	assertNoError(err)

	err = wavfile.SaveStereo(*out, shifted.SampleRate, shifted.Left, shifted.Right)
	assertNoError(err)
	logger.Infof(ctx, "wrote %s", *out)
}

func parseScale(s string) (scale.Scale, error) {
	switch s {
	case "major":
		return scale.Major, nil
	case "minor":
		return scale.Minor, nil
	case "blues":
		return scale.Blues, nil
	case "pentatonic":
		return scale.Pentatonic, nil
	case "chromatic":
		return scale.Chromatic, nil
	default:
		return 0, fmt.Errorf("unknown scale %q", s)
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
