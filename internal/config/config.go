// Package config loads mediadb settings from defaults, an optional YAML file
// and MEDIADB_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEDIADB_"

// FileName is the config file name inside the data dir.
const FileName = "mediadb.yaml"

// Config is the full mediadb configuration.
type Config struct {
	DB     DBConfig     `koanf:"db" yaml:"db"`
	Log    LogConfig    `koanf:"log" yaml:"log"`
	Import ImportConfig `koanf:"import" yaml:"import"`
	Cache  CacheConfig  `koanf:"cache" yaml:"cache"`
	Search SearchConfig `koanf:"search" yaml:"search"`
}

// DBConfig locates and tunes the store. The database file and the
// client_files dir live under Dir.
type DBConfig struct {
	Dir           string `koanf:"dir" yaml:"dir" validate:"required"`
	WAL           bool   `koanf:"wal" yaml:"wal"`
	BusyTimeoutMS int    `koanf:"busy_timeout_ms" yaml:"busy_timeout_ms" validate:"min=0"`
}

// BusyTimeout returns the SQLite busy timeout.
func (c DBConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

// LogConfig selects the logger.
type LogConfig struct {
	Level       string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `koanf:"development" yaml:"development"`
}

// ImportConfig tunes bulk admission.
type ImportConfig struct {
	BatchSize int `koanf:"batch_size" yaml:"batch_size" validate:"min=1"`
	Workers   int `koanf:"workers" yaml:"workers" validate:"min=1"`
}

// CacheConfig sizes the media result cache. A size of 0 disables it.
type CacheConfig struct {
	MediaResults int           `koanf:"media_results" yaml:"media_results" validate:"min=0"`
	TTL          time.Duration `koanf:"ttl" yaml:"ttl" validate:"min=0"`
}

// MarshalYAML writes the TTL in its readable form.
func (c CacheConfig) MarshalYAML() (any, error) {
	return struct {
		MediaResults int    `yaml:"media_results"`
		TTL          string `yaml:"ttl"`
	}{c.MediaResults, c.TTL.String()}, nil
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	SimilarDefaultDistance int `koanf:"similar_default_distance" yaml:"similar_default_distance" validate:"min=0,max=64"`
}

// DefaultDataDir returns ~/.mediadb, or .mediadb when there is no home dir.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mediadb"
	}
	return filepath.Join(home, ".mediadb")
}

// DefaultPath returns the config file path inside a data dir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

func defaults() map[string]any {
	return map[string]any{
		"db.dir":                          DefaultDataDir(),
		"db.wal":                          true,
		"db.busy_timeout_ms":              5000,
		"log.level":                       "info",
		"log.development":                 false,
		"import.batch_size":               100,
		"import.workers":                  runtime.NumCPU(),
		"cache.media_results":             2048,
		"cache.ttl":                       "10m",
		"search.similar_default_distance": 4,
	}
}

// envKey maps MEDIADB_IMPORT_BATCH_SIZE to import.batch_size. Only the
// first underscore separates the section; the rest belong to the key.
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Load reads the configuration. A missing file at path is not an error;
// defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tag rules.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes cfg as YAML, creating the parent dir.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
