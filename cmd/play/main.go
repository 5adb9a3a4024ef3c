package main

import (
	"context"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"

	"github.com/soundforge/autotune/pkg/audio"
	_ "github.com/soundforge/autotune/pkg/audio/backends/oto"
	_ "github.com/soundforge/autotune/pkg/audio/backends/portaudio"
	_ "github.com/soundforge/autotune/pkg/audio/backends/pulseaudio"
	"github.com/soundforge/autotune/pkg/clip"
	"github.com/soundforge/autotune/pkg/mixer"
	"github.com/soundforge/autotune/pkg/wavfile"
)

func main() {
	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	chunkFrames := pflag.Int("chunk-frames", 512, "frames rendered per hardware callback tick")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if pflag.NArg() == 0 {
		panic("expected one or more WAV file paths to mix and play")
	}

	m := mixer.New(ctx, 16)

	var sampleRate uint32
	for i, path := range pflag.Args() {
		sr, left, right, err := wavfile.LoadStereo(path)
		assertNoError(err)
		if i == 0 {
			sampleRate = sr
		}

		a, err := clip.NewAudio(sr, left, right)
		assertNoError(err)

		logger.Infof(ctx, "sending track %d (%s)", i, path)
		m.Commands() <- mixer.SendTrack{TrackID: uint32(i), Clip: a}
	}

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()

	sink, stream, err := mixer.NewHardwareSink(ctx, m, player.PlayerPCM, audio.SampleRate(sampleRate), 2, *chunkFrames)
	assertNoError(err)
	_ = sink
	defer stream.Close()

	m.Commands() <- mixer.Play{}
	logger.Infof(ctx, "playing %d track(s)...", pflag.NArg())

	for {
		time.Sleep(time.Second)
		select {
		case pos := <-m.PositionUpdates():
			logger.Debugf(ctx, "position: %d", pos)
		case err := <-m.Errors():
			logger.Errorf(ctx, "mixer error: %v", err)
		default:
		}
		m.Commands() <- mixer.BroadcastPosition{}
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
