// Package config loads runtime settings from defaults, an optional
// audiosearch.yaml, AUDIOSEARCH_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "AUDIOSEARCH"

type Config struct {
	DBPath         string        `mapstructure:"db_path"`
	TempDir        string        `mapstructure:"temp_dir"`
	DatasetDir     string        `mapstructure:"dataset_dir"`
	SampleRate     int           `mapstructure:"sample_rate"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	APIURL         string        `mapstructure:"api_url"`
	LogLevel       string        `mapstructure:"log_level"`
	MinSimilarity  float64       `mapstructure:"min_similarity"`
	MaxMatches     int           `mapstructure:"max_matches"`
	Workers        int           `mapstructure:"workers"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

var defaults = map[string]any{
	"db_path":         "audiosearch.sqlite3",
	"temp_dir":        "/tmp",
	"dataset_dir":     "dataset",
	"sample_rate":     11025,
	"port":            8080,
	"allowed_origins": []string{"*"},
	"api_url":         "http://localhost:8080",
	"log_level":       "INFO",
	"min_similarity":  0.0,
	"max_matches":     0,
	"workers":         4,
	"max_upload_mb":   32,
	"request_timeout": "60s",
}

// Keys that also accept the older ACOUSTIC_* variables.
var legacyEnv = map[string]string{
	"db_path":  "ACOUSTIC_DB_PATH",
	"temp_dir": "ACOUSTIC_TEMP_DIR",
}

// Load reads the configuration. configFile may be empty to search for
// audiosearch.yaml in the working directory and ~/.config/audiosearch.
// Flags in fs named like the keys with '-' for '_' (db-path, port, ...)
// override everything else when set.
func Load(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), legacy); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("audiosearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "audiosearch"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if fs != nil {
		for key := range defaults {
			if f := fs.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port out of range: %d", c.Port)
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.MinSimilarity < 0 || c.MinSimilarity > 100:
		return fmt.Errorf("min_similarity must be within [0,100], got %g", c.MinSimilarity)
	case c.DBPath == "":
		return errors.New("db_path must not be empty")
	}
	return nil
}

// MaxUploadBytes is the multipart memory limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
