package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when the input is not a decodable PCM WAV stream.
var ErrInvalidWAV = errors.New("not a valid WAV file")

// ReadWavAsFloat64 reads a PCM WAV file and returns mono samples
// normalised to [-1,1] together with the sample rate.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	return DecodeWAV(f)
}

// DecodeWAV decodes a PCM WAV stream. Stereo input is downmixed by
// averaging channels; other channel counts are rejected.
func DecodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding PCM samples: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, 0, ErrInvalidWAV
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("unsupported bits per sample: %d", bitDepth)
	}

	mono, err := toMono(buf, bitDepth)
	if err != nil {
		return nil, 0, err
	}
	return mono, buf.Format.SampleRate, nil
}

func toMono(buf *goaudio.IntBuffer, bitDepth int) ([]float64, error) {
	scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))

	switch buf.Format.NumChannels {
	case 1:
		out := make([]float64, len(buf.Data))
		for i, v := range buf.Data {
			out[i] = float64(v) * scale
		}
		return out, nil
	case 2:
		frames := len(buf.Data) / 2
		out := make([]float64, frames)
		for i := 0; i < frames; i++ {
			l := float64(buf.Data[2*i]) * scale
			r := float64(buf.Data[2*i+1]) * scale
			out[i] = (l + r) * 0.5
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d: only mono/stereo supported", buf.Format.NumChannels)
	}
}

// WriteMonoWAV encodes 16-bit mono PCM samples in [-1,1]. Used by tests
// and by tools that synthesise query clips.
func WriteMonoWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	return enc.Close()
}
