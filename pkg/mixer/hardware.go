package mixer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/observability"

	"github.com/soundforge/autotune/pkg/audio"
)

// HardwareSink drives a teacher-grounded audio.PlayerPCM backend from the
// Mixer's pull-based Callback. The backend's PlayPCM expects a push-style
// io.Reader; a circular.Buffer decouples the two: a producer goroutine
// renders fixed-size chunks via Callback and writes them into the ring,
// while the backend's own goroutine drains it via Read at its own pace —
// the same producer/consumer split the teacher uses in
// pkg/noisesuppressionstream for its input/output ring buffers.
type HardwareSink struct {
	mixer      *Mixer
	ring       *circular.Buffer
	channels   int
	sampleRate audio.SampleRate
	chunk      int
}

// NewHardwareSink wires m's Callback to player, a PCM device stream with
// the given channel count at sr Hz. chunkFrames controls how many frames the producer renders per
// tick (spec.md §4.F: "typically 128-1024 frames at a time").
func NewHardwareSink(
	ctx context.Context,
	m *Mixer,
	player audio.PlayerPCM,
	sr audio.SampleRate,
	channels int,
	chunkFrames int,
) (*HardwareSink, audio.PlayStream, error) {
	if err := player.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAudioDeviceUnavailable, err)
	}

	ringBytes := chunkFrames * channels * 4 * 8 // headroom for a handful of chunks
	sink := &HardwareSink{
		mixer:      m,
		ring:       circular.NewBuffer(ringBytes),
		channels:   channels,
		sampleRate: sr,
		chunk:      chunkFrames,
	}

	stream, err := player.PlayPCM(ctx, sr, audio.Channel(channels), audio.PCMFormatFloat32LE, 100*time.Millisecond, sink.ring)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAudioDeviceUnavailable, err)
	}

	observability.Go(ctx, func(ctx context.Context) {
		sink.produceLoop(ctx)
	})

	return sink, stream, nil
}

func (s *HardwareSink) produceLoop(ctx context.Context) {
	frameDuration := time.Duration(float64(s.chunk) / float64(s.sampleRate) * float64(time.Second))
	out := make([]float32, s.chunk*s.channels)
	raw := make([]byte, len(out)*4)

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mixer.Callback(out, s.channels)
			for i, v := range out {
				binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
			}

			for written := 0; written < len(raw); {
				n, err := s.ring.Write(raw[written:])
				written += n
				if err != nil {
					if errors.Is(err, circular.ErrNoSpace) {
						time.Sleep(time.Millisecond)
						continue
					}
					return
				}
			}
		}
	}
}

var _ io.Reader = (*circular.Buffer)(nil)
