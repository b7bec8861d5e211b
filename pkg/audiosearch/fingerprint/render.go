package fingerprint

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/eligwz/spectrogram"
)

const (
	DefaultImageWidth  = 2048
	DefaultImageHeight = 512
)

// RenderSpectrogram draws a linear-magnitude, Hamming-windowed FFT
// spectrogram of the samples on a black background.
func RenderSpectrogram(samples []float64, sampleRate, width, height int) (image.Image, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySamples
	}
	if sampleRate <= 0 {
		return nil, ErrBadSampleRate
	}
	if width <= 0 {
		width = DefaultImageWidth
	}
	if height <= 0 {
		height = DefaultImageHeight
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// LOG10 scaling washes the image out, keep it linear.
	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(height),
		false, // rectangle window: off, Hamming
		false, // dft: off, FFT
		true,  // magnitude
		false, // log10
	)
	return img, nil
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}
