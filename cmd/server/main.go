//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanishpuri/audiosearch/internal/config"
	"github.com/himanishpuri/audiosearch/internal/dataset"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch"
	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	configFile := fs.String("config", "", "Path to audiosearch.yaml")
	fs.Int("port", 8080, "HTTP server port")
	fs.String("db-path", "", "Path to SQLite database")
	fs.String("temp-dir", "", "Temporary directory")
	fs.String("dataset-dir", "", "Directory holding the dataset files")
	fs.Int("sample-rate", 11025, "Audio sample rate")
	fs.StringSlice("allowed-origins", []string{"*"}, "Allowed CORS origins (use * for all)")
	fs.String("log-level", "", "DEBUG, INFO, WARN or FATAL")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configFile, fs)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	service, err := audiosearch.NewService(
		audiosearch.WithDBPath(cfg.DBPath),
		audiosearch.WithTempDir(cfg.TempDir),
		audiosearch.WithSampleRate(cfg.SampleRate),
		audiosearch.WithMinSimilarity(cfg.MinSimilarity),
		audiosearch.WithMaxMatches(cfg.MaxMatches),
	)
	if err != nil {
		logger.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	store, err := dataset.NewStore(cfg.DatasetDir)
	if err != nil {
		logger.Fatalf("Failed to open dataset: %v", err)
	}

	server := NewServer(service, store, &ServerConfig{
		Port:           cfg.Port,
		DBPath:         cfg.DBPath,
		TempDir:        cfg.TempDir,
		SampleRate:     cfg.SampleRate,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		RequestTimeout: cfg.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}
