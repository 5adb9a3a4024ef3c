// Package wavfile implements the clip-source/clip-sink external
// collaborator spec.md places out of the core's scope: decoding a 16-bit
// PCM WAV file (mono or stereo for LoadStereo) into samples at load time,
// and encoding a clip back to 16-bit PCM WAV on save.
package wavfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

type riffHeader struct {
	ChunkID   [4]byte
	ChunkSize uint32
	Format    [4]byte
}

type fmtChunk struct {
	SubchunkID    [4]byte
	SubchunkSize  uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

type dataChunkHeader struct {
	SubchunkID   [4]byte
	SubchunkSize uint32
}

// ErrUnsupportedFormat is returned for WAV files whose RIFF/fmt chunks
// don't match what Load understands (RIFF/WAVE, PCM, 16-bit).
var ErrUnsupportedFormat = errors.New("unsupported wav format")

// Load decodes a 16-bit PCM WAV file into interleaved float32 samples in
// [-1,1], along with its sample rate and channel count.
func Load(path string) (sampleRate uint32, channels uint16, samples []float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, err
	}
	defer f.Close()

	var riff riffHeader
	if err := binary.Read(f, binary.LittleEndian, &riff); err != nil {
		return 0, 0, nil, fmt.Errorf("unable to read riff header: %w", err)
	}
	if string(riff.ChunkID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return 0, 0, nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedFormat)
	}

	var fc fmtChunk
	if err := binary.Read(f, binary.LittleEndian, &fc); err != nil {
		return 0, 0, nil, fmt.Errorf("unable to read fmt chunk: %w", err)
	}
	if string(fc.SubchunkID[:]) != "fmt " {
		return 0, 0, nil, fmt.Errorf("%w: missing fmt chunk", ErrUnsupportedFormat)
	}
	if fc.AudioFormat != 1 || fc.BitsPerSample != 16 {
		return 0, 0, nil, fmt.Errorf("%w: audio_format=%d bits_per_sample=%d", ErrUnsupportedFormat, fc.AudioFormat, fc.BitsPerSample)
	}

	var dc dataChunkHeader
	if err := binary.Read(f, binary.LittleEndian, &dc); err != nil {
		return 0, 0, nil, fmt.Errorf("unable to read data chunk: %w", err)
	}
	if string(dc.SubchunkID[:]) != "data" {
		return 0, 0, nil, fmt.Errorf("%w: missing data chunk", ErrUnsupportedFormat)
	}

	raw := make([]byte, dc.SubchunkSize)
	if _, err := f.Read(raw); err != nil {
		return 0, 0, nil, fmt.Errorf("unable to read pcm data: %w", err)
	}

	samples = make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float32(v) / 32768.0
	}

	return fc.SampleRate, fc.NumChannels, samples, nil
}

// LoadStereo decodes a WAV file into separate left/right channel buffers,
// duplicating a mono source into both channels.
func LoadStereo(path string) (sampleRate uint32, left, right []float32, err error) {
	sr, channels, interleaved, err := Load(path)
	if err != nil {
		return 0, nil, nil, err
	}

	switch channels {
	case 1:
		left = append([]float32(nil), interleaved...)
		right = append([]float32(nil), interleaved...)
	case 2:
		n := len(interleaved) / 2
		left = make([]float32, n)
		right = make([]float32, n)
		for i := 0; i < n; i++ {
			left[i] = interleaved[2*i]
			right[i] = interleaved[2*i+1]
		}
	default:
		return 0, nil, nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	return sr, left, right, nil
}

// Save encodes interleaved float32 samples as a 16-bit PCM WAV file with the
// given channel count, clamping to [-1,1] before scaling to the int16 range.
func Save(path string, sampleRate uint32, channels uint16, interleaved []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bitsPerSample := uint16(16)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * uint32(blockAlign)

	pcm := make([]byte, len(interleaved)*2)
	for i, s := range interleaved {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(float64(s) * math.MaxInt16)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	dataSize := uint32(len(pcm))
	fileSize := 36 + dataSize

	riff := riffHeader{ChunkID: [4]byte{'R', 'I', 'F', 'F'}, ChunkSize: fileSize, Format: [4]byte{'W', 'A', 'V', 'E'}}
	if err := binary.Write(f, binary.LittleEndian, riff); err != nil {
		return err
	}

	fc := fmtChunk{
		SubchunkID:    [4]byte{'f', 'm', 't', ' '},
		SubchunkSize:  16,
		AudioFormat:   1,
		NumChannels:   channels,
		SampleRate:    sampleRate,
		ByteRate:      byteRate,
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
	}
	if err := binary.Write(f, binary.LittleEndian, fc); err != nil {
		return err
	}

	dc := dataChunkHeader{SubchunkID: [4]byte{'d', 'a', 't', 'a'}, SubchunkSize: dataSize}
	if err := binary.Write(f, binary.LittleEndian, dc); err != nil {
		return err
	}

	_, err = f.Write(pcm)
	return err
}

// SaveStereo interleaves left/right and saves a stereo WAV file.
func SaveStereo(path string, sampleRate uint32, left, right []float32) error {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	interleaved := make([]float32, 2*n)
	for i := 0; i < n; i++ {
		interleaved[2*i] = left[i]
		interleaved[2*i+1] = right[i]
	}
	return Save(path, sampleRate, 2, interleaved)
}
