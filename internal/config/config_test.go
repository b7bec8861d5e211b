package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// isolate runs Load away from any audiosearch.yaml in the working tree.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, env := range []string{
		"AUDIOSEARCH_DB_PATH", "ACOUSTIC_DB_PATH", "AUDIOSEARCH_TEMP_DIR", "ACOUSTIC_TEMP_DIR",
		"AUDIOSEARCH_PORT", "AUDIOSEARCH_ALLOWED_ORIGINS", "AUDIOSEARCH_SAMPLE_RATE",
	} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "audiosearch.sqlite3" || cfg.SampleRate != 11025 || cfg.Port != 8080 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.RequestTimeout != time.Minute {
		t.Errorf("request timeout = %v", cfg.RequestTimeout)
	}
	if cfg.MaxUploadBytes() != 32<<20 {
		t.Errorf("max upload bytes = %d", cfg.MaxUploadBytes())
	}
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AUDIOSEARCH_PORT", "9090")
	t.Setenv("AUDIOSEARCH_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("ACOUSTIC_DB_PATH", "/data/legacy.db")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.DBPath != "/data/legacy.db" {
		t.Errorf("legacy db path not honoured: %s", cfg.DBPath)
	}

	t.Setenv("AUDIOSEARCH_DB_PATH", "/data/new.db")
	cfg, err = Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/data/new.db" {
		t.Errorf("AUDIOSEARCH_DB_PATH should win, got %s", cfg.DBPath)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	yaml := "dataset_dir: /srv/music\nworkers: 2\nmax_matches: 5\n"
	if err := os.WriteFile("audiosearch.yaml", []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatasetDir != "/srv/music" || cfg.Workers != 2 || cfg.MaxMatches != 5 {
		t.Errorf("file values not applied: %+v", cfg)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	isolate(t)
	t.Setenv("AUDIOSEARCH_PORT", "9090")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 8080, "")
	fs.String("db-path", "", "")
	if err := fs.Parse([]string{"--port", "7070"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("flag should override env, port = %d", cfg.Port)
	}
	if cfg.DBPath != "audiosearch.sqlite3" {
		t.Errorf("unset flag should not override default, db = %q", cfg.DBPath)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{DBPath: "x.db", SampleRate: 11025, Port: 80, Workers: 1}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"port", func(c *Config) { c.Port = 70000 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"similarity", func(c *Config) { c.MinSimilarity = 101 }},
		{"db path", func(c *Config) { c.DBPath = "" }},
	}

	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
