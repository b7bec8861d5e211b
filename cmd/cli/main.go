//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanishpuri/audiosearch/internal/client"
	"github.com/himanishpuri/audiosearch/internal/config"
	"github.com/himanishpuri/audiosearch/internal/dataset"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch"
	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile  string
	remote   bool
	noBanner bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "audiosearch",
		Short: "Audio similarity search over a music dataset",
		Long: `audiosearch fingerprints the files of a music dataset and finds the
tracks most similar to a short audio clip.

Settings come from audiosearch.yaml, AUDIOSEARCH_* environment variables
and the flags below, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !noBanner && cmd.Name() != "browse" && cmd.Name() != "albums" {
				printBanner()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to audiosearch.yaml")
	pf.String("db-path", "", "Path to the SQLite database (env: AUDIOSEARCH_DB_PATH)")
	pf.String("temp-dir", "", "Directory for temporary conversion files (env: AUDIOSEARCH_TEMP_DIR)")
	pf.String("dataset-dir", "", "Directory holding the dataset files")
	pf.Int("sample-rate", 11025, "Audio sample rate for processing")
	pf.String("log-level", "", "DEBUG, INFO, WARN or FATAL")
	pf.Int("workers", 4, "Files fingerprinted in parallel")
	pf.String("api-url", "", "Server used with --remote")
	pf.BoolVar(&remote, "remote", false, "Talk to a running server instead of the local index")
	pf.BoolVar(&noBanner, "no-banner", false, "Do not print the banner")

	rootCmd.AddCommand(
		newIndexCmd(),
		newMatchCmd(),
		newListCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newBrowseCmd(),
		newAlbumsCmd(),
		newSpectrogramCmd(),
	)
	return rootCmd
}

func printBanner() {
	banner := `
                 _ _                                _
  __ _ _   _  __| (_) ___  ___  ___  __ _ _ __ ___| |__
 / _' | | | |/ _' | |/ _ \/ __|/ _ \/ _' | '__/ __| '_ \
| (_| | |_| | (_| | | (_) \__ \  __/ (_| | | | (__| | | |
 \__,_|\__,_|\__,_|_|\___/|___/\___|\__,_|_|  \___|_| |_|

           Audio Similarity Search CLI
`
	fmt.Println(banner)
}

// loadConfig resolves settings for cmd, letting its flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func createService(cfg *config.Config) (audiosearch.Service, error) {
	return audiosearch.NewService(
		audiosearch.WithDBPath(cfg.DBPath),
		audiosearch.WithTempDir(cfg.TempDir),
		audiosearch.WithSampleRate(cfg.SampleRate),
		audiosearch.WithMinSimilarity(cfg.MinSimilarity),
		audiosearch.WithMaxMatches(cfg.MaxMatches),
	)
}

// env bundles what the local commands work against.
type env struct {
	cfg   *config.Config
	svc   audiosearch.Service
	store *dataset.Store
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := dataset.NewStore(cfg.DatasetDir)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	svc, err := createService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return &env{cfg: cfg, svc: svc, store: store}, nil
}

func (e *env) Close() error {
	return e.svc.Close()
}

func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.APIURL, client.WithTimeout(cfg.RequestTimeout))
}
