package types

import (
	"context"
	"fmt"
	"io"
	"time"
)

type SampleRate uint32

type Channel uint8

type PCMFormat int

const (
	PCMFormatUndefined = PCMFormat(iota)
	PCMFormatU8
	PCMFormatS16LE
	PCMFormatS16BE
	PCMFormatS24LE
	PCMFormatS24BE
	PCMFormatS32LE
	PCMFormatS32BE
	PCMFormatS64LE
	PCMFormatS64BE
	PCMFormatFloat32LE
	PCMFormatFloat32BE
	PCMFormatFloat64LE
	PCMFormatFloat64BE
)

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatU8:
		return "u8"
	case PCMFormatS16LE:
		return "s16le"
	case PCMFormatS16BE:
		return "s16be"
	case PCMFormatS24LE:
		return "s24le"
	case PCMFormatS24BE:
		return "s24be"
	case PCMFormatS32LE:
		return "s32le"
	case PCMFormatS32BE:
		return "s32be"
	case PCMFormatS64LE:
		return "s64le"
	case PCMFormatS64BE:
		return "s64be"
	case PCMFormatFloat32LE:
		return "float32le"
	case PCMFormatFloat32BE:
		return "float32be"
	case PCMFormatFloat64LE:
		return "float64le"
	case PCMFormatFloat64BE:
		return "float64be"
	default:
		return fmt.Sprintf("pcm_format(%d)", int(f))
	}
}

// Size returns the amount of bytes a single sample occupies on the wire.
func (f PCMFormat) Size() uint {
	switch f {
	case PCMFormatU8:
		return 1
	case PCMFormatS16LE, PCMFormatS16BE:
		return 2
	case PCMFormatS24LE, PCMFormatS24BE:
		return 3
	case PCMFormatS32LE, PCMFormatS32BE, PCMFormatFloat32LE, PCMFormatFloat32BE:
		return 4
	case PCMFormatS64LE, PCMFormatS64BE, PCMFormatFloat64LE, PCMFormatFloat64BE:
		return 8
	default:
		return 0
	}
}

type Encoding int

const (
	EncodingUndefined = Encoding(iota)
	EncodingPCM
)

func (e Encoding) String() string {
	switch e {
	case EncodingPCM:
		return "pcm"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

type PlayerPCM interface {
	io.Closer
	Ping(context.Context) error
	PlayPCM(
		ctx context.Context,
		sampleRate SampleRate,
		channels Channel,
		format PCMFormat,
		bufferSize time.Duration,
		reader io.Reader,
	) (PlayStream, error)
}
