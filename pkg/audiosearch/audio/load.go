package audio

import (
	"context"
	"fmt"
	"os"
)

// LoadMono returns the samples of path as mono at sampleRate. A WAV that
// already has that rate is decoded directly; anything else is converted
// with ffmpeg into tempDir first.
func LoadMono(ctx context.Context, path, tempDir string, sampleRate int) ([]float64, error) {
	samples, rate, err := ReadWavAsFloat64(path)
	if err == nil && rate == sampleRate {
		return samples, ctx.Err()
	}

	wavPath, err := ConvertToMonoWAV(ctx, path, tempDir, ConvertWAVConfig{SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	samples, _, err = ReadWavAsFloat64(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}
	return samples, ctx.Err()
}
