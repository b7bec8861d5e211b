package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
)

// writeSineWAV writes a short 440Hz tone and returns its path.
func writeSineWAV(t *testing.T, sampleRate int, seconds float64) string {
	t.Helper()

	n := int(float64(sampleRate) * seconds)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create wav: %v", err)
	}
	defer f.Close()

	if err := WriteMonoWAV(f, samples, sampleRate); err != nil {
		t.Fatalf("WriteMonoWAV failed: %v", err)
	}
	return path
}

func TestReadWavAsFloat64(t *testing.T) {
	path := writeSineWAV(t, 11025, 0.5)

	samples, sampleRate, err := ReadWavAsFloat64(path)
	if err != nil {
		t.Fatalf("ReadWavAsFloat64 failed: %v", err)
	}

	if sampleRate != 11025 {
		t.Errorf("Expected sample rate 11025, got %d", sampleRate)
	}
	if len(samples) != 5512 {
		t.Errorf("Expected 5512 samples, got %d", len(samples))
	}

	peak := 0.0
	for i, s := range samples {
		if s < -1.0 || s > 1.0 {
			t.Fatalf("Sample %d out of range [-1, 1]: %f", i, s)
		}
		peak = math.Max(peak, math.Abs(s))
	}
	if peak < 0.45 || peak > 0.55 {
		t.Errorf("Expected peak amplitude near 0.5, got %f", peak)
	}
}

func TestReadWavAsFloat64InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.wav")
	if err := os.WriteFile(path, []byte("INVALID HEADER DATA"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, _, err := ReadWavAsFloat64(path)
	if !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("Expected ErrInvalidWAV, got %v", err)
	}
}

func TestReadWavAsFloat64NonExistent(t *testing.T) {
	_, _, err := ReadWavAsFloat64("nonexistent-file.wav")
	if err == nil {
		t.Error("Expected error when reading non-existent file")
	}
}

func TestToMono(t *testing.T) {
	tests := []struct {
		name        string
		data        []int
		channels    int
		want        []float64
		expectError bool
	}{
		{
			name:     "mono",
			data:     []int{0, 16384, -16384},
			channels: 1,
			want:     []float64{0, 0.5, -0.5},
		},
		{
			name:     "stereo averages channels",
			data:     []int{16384, 0, -16384, -16384},
			channels: 2,
			want:     []float64{0.25, -0.5},
		},
		{
			name:        "unsupported channels",
			data:        []int{0, 0, 0, 0},
			channels:    4,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &goaudio.IntBuffer{
				Format: &goaudio.Format{NumChannels: tt.channels, SampleRate: 8000},
				Data:   tt.data,
			}
			got, err := toMono(buf, 16)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d samples, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("sample %d = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadMonoMatchingRateSkipsConversion(t *testing.T) {
	path := writeSineWAV(t, 11025, 0.25)

	samples, err := LoadMono(context.Background(), path, t.TempDir(), 11025)
	if err != nil {
		t.Fatalf("LoadMono failed: %v", err)
	}
	if len(samples) != 2756 {
		t.Errorf("Expected 2756 samples, got %d", len(samples))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadMono(ctx, path, t.TempDir(), 11025); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
