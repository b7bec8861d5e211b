//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/audiosearch/internal/config"
	"github.com/himanishpuri/audiosearch/internal/dataset"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/audio"
	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/himanishpuri/audiosearch/pkg/models"
)

const testRate = 11025

func init() {
	logger.SetOutput(io.Discard)
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:     filepath.Join(dir, "cli.sqlite3"),
		TempDir:    dir,
		DatasetDir: filepath.Join(dir, "dataset"),
		SampleRate: testRate,
		Workers:    2,
	}
	store, err := dataset.NewStore(cfg.DatasetDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	svc, err := createService(cfg)
	if err != nil {
		t.Fatalf("createService: %v", err)
	}
	e := &env{cfg: cfg, svc: svc, store: store}
	t.Cleanup(func() { e.Close() })
	return e
}

func writeTone(t *testing.T, dir, name string, freq float64) string {
	t.Helper()
	samples := make([]float64, testRate*2)
	for i := range samples {
		x := float64(i) / testRate
		samples[i] = 0.4*math.Sin(2*math.Pi*freq*x) + 0.3*math.Sin(2*math.Pi*freq*1.5*x)
	}
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

func TestIndexFiles(t *testing.T) {
	e := newTestEnv(t)
	src := t.TempDir()

	good, err := e.store.Import(writeTone(t, src, "good.wav", 440))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := e.store.Save("theme.mid", strings.NewReader("MThd")); err != nil {
		t.Fatalf("Save midi: %v", err)
	}
	if _, err := e.store.Save("broken.wav", strings.NewReader("not a wav")); err != nil {
		t.Fatalf("Save broken: %v", err)
	}

	var progress bytes.Buffer
	sum, err := indexFiles(context.Background(), e, []string{good, "theme.mid", "broken.wav"}, &progress)
	if err == nil || !strings.Contains(err.Error(), "broken.wav") {
		t.Errorf("expected error naming broken.wav, got %v", err)
	}
	if sum.indexed != 1 || sum.skipped != 1 {
		t.Errorf("summary = %+v, want 1 indexed, 1 skipped", sum)
	}
	if progress.Len() == 0 {
		t.Error("expected progress output")
	}

	if _, err := e.svc.GetTrackByFilename("good.wav"); err != nil {
		t.Errorf("good.wav not indexed: %v", err)
	}
}

func TestPrintMatches(t *testing.T) {
	var buf bytes.Buffer
	printMatches(&buf, &models.QueryResult{Matches: []models.AudioMatch{}})
	if !strings.Contains(buf.String(), "No matches found") {
		t.Errorf("unexpected output %q", buf.String())
	}

	matches := make([]models.AudioMatch, 12)
	for i := range matches {
		matches[i] = models.AudioMatch{Filename: "track.wav", Similarity: 90 - float64(i)}
	}
	buf.Reset()
	printMatches(&buf, &models.QueryResult{Matches: matches, ExecutionTimeMs: 3.5})

	out := buf.String()
	for _, want := range []string{"Found 12 match(es) in 3.50ms", " 1. track.wav", "90.0%", "... and 2 more matches"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "11. ") {
		t.Errorf("printed more than %d matches:\n%s", maxDisplay, out)
	}
}

func TestListDataset(t *testing.T) {
	e := newTestEnv(t)

	var buf bytes.Buffer
	if err := listDataset(&buf, e, time.Now()); err != nil {
		t.Fatalf("listDataset: %v", err)
	}
	if !strings.Contains(buf.String(), "Dataset is empty") {
		t.Errorf("unexpected output %q", buf.String())
	}

	name, err := e.store.Import(writeTone(t, t.TempDir(), "indexed.wav", 330))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	path, _ := e.store.Path(name)
	if _, err := e.svc.IndexTrack(context.Background(), path, name); err != nil {
		t.Fatalf("IndexTrack: %v", err)
	}
	if _, err := e.store.Save("plain.mp3", strings.NewReader("id3")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	buf.Reset()
	if err := listDataset(&buf, e, time.Now()); err != nil {
		t.Fatalf("listDataset: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 file(s)") || !strings.Contains(out, "1 indexed") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "indexed.wav") && !strings.HasPrefix(line, "●") {
			t.Errorf("indexed file not marked: %q", line)
		}
		if strings.Contains(line, "plain.mp3") && strings.HasPrefix(line, "●") {
			t.Errorf("unindexed file marked: %q", line)
		}
	}
}

func TestDeleteFile(t *testing.T) {
	e := newTestEnv(t)

	name, err := e.store.Import(writeTone(t, t.TempDir(), "gone.wav", 550))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	path, _ := e.store.Path(name)
	if _, err := e.svc.IndexTrack(context.Background(), path, name); err != nil {
		t.Fatalf("IndexTrack: %v", err)
	}

	if err := deleteFile(e, name); err != nil {
		t.Fatalf("deleteFile: %v", err)
	}
	if _, err := e.store.Path(name); !errors.Is(err, dataset.ErrFileNotFound) {
		t.Errorf("file still present: %v", err)
	}
	if _, err := e.svc.GetTrackByFilename(name); err == nil {
		t.Error("track still indexed")
	}

	if err := deleteFile(e, name); !errors.Is(err, dataset.ErrFileNotFound) {
		t.Errorf("second delete: expected ErrFileNotFound, got %v", err)
	}
}

func TestRenderSpectrogram(t *testing.T) {
	dir := t.TempDir()
	in := writeTone(t, dir, "tone.wav", 440)
	out := filepath.Join(dir, "tone.png")

	if err := renderSpectrogram(context.Background(), in, out, dir, testRate, 256, 128); err != nil {
		t.Fatalf("renderSpectrogram: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 128 {
		t.Errorf("image is %dx%d, want 256x128", cfg.Width, cfg.Height)
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"index", "match", "list", "delete", "stats", "browse", "albums", "spectrogram"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
	for _, flag := range []string{"config", "db-path", "dataset-dir", "workers", "remote"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}
