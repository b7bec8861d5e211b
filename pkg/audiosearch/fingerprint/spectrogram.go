package fingerprint

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/himanishpuri/audiosearch/pkg/audiosearch/audio"
	"github.com/mjibson/go-dsp/fft"
)

const (
	WindowSize = 1024
	HopSize    = 256
)

var (
	ErrEmptySamples   = errors.New("samples cannot be empty")
	ErrBadSampleRate  = errors.New("sample rate must be positive")
	ErrShortAudio     = errors.New("audio too short for window size")
	ErrWindowMismatch = errors.New("window length must equal windowSize")
)

// Hamming returns an n-point Hamming window.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func FFTReal(frame []float64) []complex128 {
	return fft.FFTReal(frame)
}

// MagnitudeSpectrum keeps the non-redundant half of a real FFT.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT returns one magnitude frame per hop. Trailing samples that do not
// fill a whole window are dropped.
func STFT(samples []float64, windowSize, hopSize int, window []float64) ([][]float64, error) {
	if len(window) != windowSize {
		return nil, ErrWindowMismatch
	}
	if len(samples) < windowSize {
		return nil, ErrShortAudio
	}

	frames := (len(samples)-windowSize)/hopSize + 1
	spectrogram := make([][]float64, 0, frames)
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		spectrogram = append(spectrogram, MagnitudeSpectrum(FFTReal(frame)))
	}
	return spectrogram, nil
}

// ComputeSpectrogram decodes a WAV file and returns its spectrogram and
// sample rate. Zero window/hop sizes select the defaults.
func ComputeSpectrogram(wavPath string, windowSize, hopSize int) ([][]float64, int, error) {
	samples, sr, err := audio.ReadWavAsFloat64(wavPath)
	if err != nil {
		return nil, 0, err
	}
	spec, err := ComputeSpectrogramFromSamples(samples, sr, windowSize, hopSize)
	if err != nil {
		return nil, 0, err
	}
	return spec, sr, nil
}

func ComputeSpectrogramFromSamples(samples []float64, sampleRate, windowSize, hopSize int) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySamples
	}
	if sampleRate <= 0 {
		return nil, ErrBadSampleRate
	}
	if windowSize == 0 {
		windowSize = WindowSize
	}
	if hopSize == 0 {
		hopSize = HopSize
	}
	return STFT(samples, windowSize, hopSize, Hamming(windowSize))
}
