package audiosearch

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/audiosearch/pkg/audiosearch/audio"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/fingerprint"
)

const testRate = 11025

type quietLogger struct{}

func (quietLogger) Infof(string, ...any)  {}
func (quietLogger) Warnf(string, ...any)  {}
func (quietLogger) Errorf(string, ...any) {}
func (quietLogger) Debugf(string, ...any) {}

// setupTestService creates a service with a temporary database.
func setupTestService(t *testing.T, opts ...Option) Service {
	t.Helper()

	tmpDir := t.TempDir()
	base := []Option{
		WithDBPath(filepath.Join(tmpDir, "test_service.sqlite3")),
		WithTempDir(tmpDir),
		WithSampleRate(testRate),
		WithLogger(quietLogger{}),
	}
	svc, err := NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
	})
	return svc
}

// synth renders a deterministic two-tone melody.
func synth(seed uint32, seconds float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	segment := testRate / 10
	state := seed
	next := func() float64 {
		state = state*1664525 + 1013904223
		return 200 + float64(state%3000)
	}
	f1, f2 := next(), next()
	for i := 0; i < n; i++ {
		if i%segment == 0 {
			f1, f2 = next(), next()
		}
		t := float64(i) / testRate
		out[i] = 0.4*math.Sin(2*math.Pi*f1*t) + 0.3*math.Sin(2*math.Pi*f2*t)
	}
	return out
}

func writeWAV(t *testing.T, dir, name string, samples []float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if err := audio.WriteMonoWAV(f, samples, testRate); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIndexAndMatch(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	ctx := context.Background()

	songA := synth(11, 4)
	songB := synth(99, 4)

	idA, err := svc.IndexTrack(ctx, writeWAV(t, dir, "upload_1.wav", songA), "alpha.wav")
	if err != nil {
		t.Fatalf("IndexTrack alpha: %v", err)
	}
	if _, err := svc.IndexTrack(ctx, writeWAV(t, dir, "beta.wav", songB), ""); err != nil {
		t.Fatalf("IndexTrack beta: %v", err)
	}

	track, err := svc.GetTrack(idA)
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	if track.Filename != "alpha.wav" || track.Title != "alpha" {
		t.Errorf("unexpected track %+v", track)
	}
	if track.DurationMs < 3900 || track.DurationMs > 4100 {
		t.Errorf("duration = %d, want about 4000", track.DurationMs)
	}

	start := fingerprint.HopSize * 40
	clip := writeWAV(t, dir, "query.wav", songA[start:start+2*testRate])

	res, err := svc.Match(ctx, clip)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(res.Matches) == 0 {
		t.Fatal("expected matches")
	}
	if res.Matches[0].Filename != "alpha.wav" {
		t.Errorf("top match = %s, want alpha.wav", res.Matches[0].Filename)
	}
	for i, m := range res.Matches {
		if m.Similarity <= 0 || m.Similarity > 100 {
			t.Errorf("match %d similarity out of range: %f", i, m.Similarity)
		}
		if i > 0 && m.Similarity > res.Matches[i-1].Similarity {
			t.Errorf("matches not sorted by similarity at %d", i)
		}
	}
	if res.ExecutionTimeMs < 0 {
		t.Errorf("negative execution time %f", res.ExecutionTimeMs)
	}
}

func TestReindexReplacesFingerprints(t *testing.T) {
	svc := setupTestService(t)
	dir := t.TempDir()
	ctx := context.Background()

	path := writeWAV(t, dir, "same.wav", synth(5, 2))
	id1, err := svc.IndexTrack(ctx, path, "same.wav")
	if err != nil {
		t.Fatalf("first index: %v", err)
	}
	before, _ := svc.Stats()

	id2, err := svc.IndexTrack(ctx, path, "same.wav")
	if err != nil {
		t.Fatalf("second index: %v", err)
	}
	after, _ := svc.Stats()

	if id1 != id2 {
		t.Errorf("re-index changed id: %s -> %s", id1, id2)
	}
	if before.FingerprintCount != after.FingerprintCount || after.TrackCount != 1 {
		t.Errorf("stats changed on re-index: before %+v after %+v", before, after)
	}
}

func TestIndexTrackRejectsMIDI(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.IndexTrack(context.Background(), "/nowhere/song.mid", "song.mid")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestMatchCanceledContext(t *testing.T) {
	svc := setupTestService(t)
	clip := writeWAV(t, t.TempDir(), "q.wav", synth(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Match(ctx, clip); err == nil {
		t.Error("Expected error when using canceled context")
	}
}

func TestMatchHashesEmpty(t *testing.T) {
	svc := setupTestService(t)

	res, err := svc.MatchHashes(context.Background(), map[uint32]uint32{})
	if err != nil {
		t.Fatalf("MatchHashes: %v", err)
	}
	if res.Matches == nil || len(res.Matches) != 0 {
		t.Errorf("expected empty non-nil matches, got %#v", res.Matches)
	}
}

func TestMaxMatches(t *testing.T) {
	svc := setupTestService(t, WithMaxMatches(1))
	dir := t.TempDir()
	ctx := context.Background()

	song := synth(21, 3)
	for _, name := range []string{"one.wav", "two.wav", "three.wav"} {
		if _, err := svc.IndexTrack(ctx, writeWAV(t, dir, name, song), name); err != nil {
			t.Fatalf("index %s: %v", name, err)
		}
	}

	res, err := svc.Match(ctx, writeWAV(t, dir, "q.wav", song[:2*testRate]))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Errorf("expected 1 match with MaxMatches(1), got %d", len(res.Matches))
	}
}

func TestDeleteTrack(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	id, err := svc.IndexTrack(ctx, writeWAV(t, t.TempDir(), "bye.wav", synth(2, 2)), "bye.wav")
	if err != nil {
		t.Fatalf("IndexTrack: %v", err)
	}

	if err := svc.DeleteTrack(id); err != nil {
		t.Fatalf("DeleteTrack: %v", err)
	}
	if _, err := svc.GetTrackByFilename("bye.wav"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("expected ErrTrackNotFound, got %v", err)
	}
	if err := svc.DeleteTrack(id); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("second delete: expected ErrTrackNotFound, got %v", err)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TrackCount != 0 || stats.FingerprintCount != 0 {
		t.Errorf("expected empty index, got %+v", stats)
	}
}

func TestCalculateSimilarity(t *testing.T) {
	tests := []struct {
		name               string
		matches, query, db int
		wantMin, wantMax   float64
	}{
		{"no matches", 0, 100, 100, 0, 0},
		{"empty query", 10, 0, 100, 0, 0},
		{"weak", 5, 1000, 1000, 0, 10},
		{"midpoint", 150, 1000, 1000, 49, 51},
		{"strong", 500, 1000, 1000, 99, 100},
		{"uses smaller side", 150, 1000, 100000, 49, 51},
		{"few hashes penalised", 2, 4, 4, 0, 40.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateSimilarity(tt.matches, tt.query, tt.db)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("calculateSimilarity(%d,%d,%d) = %f, want [%f,%f]",
					tt.matches, tt.query, tt.db, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestIsIndexable(t *testing.T) {
	for name, want := range map[string]bool{
		"a.wav": true, "b.MP3": true, "c.mid": false, "d.MIDI": false,
	} {
		if got := IsIndexable(name); got != want {
			t.Errorf("IsIndexable(%q) = %v, want %v", name, got, want)
		}
	}
}
