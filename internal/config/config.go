package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"memory-loop/internal/logs"
	"memory-loop/internal/store"

	"gopkg.in/yaml.v3"
)

// Default values for the host configuration.
const (
	DefaultSnapshotPath     = store.DefaultSnapshotFile
	DefaultAutosaveInterval = time.Minute
	DefaultLogLevel         = "INFO"
	DefaultLogBuffer        = 1000
)

// Config is the host process configuration read from config.yaml.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Log      LogConfig      `yaml:"log"`
}

// StoreConfig holds the store limits.
type StoreConfig struct {
	// TTL is how long an entry stays readable after its last write (default 5m).
	TTL time.Duration `yaml:"ttl"`

	// Capacity is the maximum number of entries (default 1024).
	Capacity int `yaml:"capacity"`
}

// SnapshotConfig controls where and how often the store is persisted.
type SnapshotConfig struct {
	// Path is the snapshot file, loaded on start and written on exit.
	Path string `yaml:"path"`

	// AutosaveInterval is the period between snapshot writes. Zero disables
	// periodic saves; the exit save still happens.
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
}

// SweepConfig controls the optional background removal of expired entries.
type SweepConfig struct {
	// Interval between sweeps. Zero (the default) disables sweeping.
	Interval time.Duration `yaml:"interval"`
}

// LogConfig controls the in-memory logger.
type LogConfig struct {
	// Level is one of: DEBUG | INFO | WARN | ERROR.
	Level string `yaml:"level"`

	// Buffer is the number of entries retained in memory.
	Buffer int `yaml:"buffer"`
}

// ParsedLevel returns Level as a logs.Level. Validate has already checked it.
func (l LogConfig) ParsedLevel() logs.Level {
	level, err := logs.ParseLevel(l.Level)
	if err != nil {
		return logs.INFO
	}
	return level
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			TTL:      store.DefaultTTL,
			Capacity: store.DefaultCapacity,
		},
		Snapshot: SnapshotConfig{
			Path:             DefaultSnapshotPath,
			AutosaveInterval: DefaultAutosaveInterval,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Buffer: DefaultLogBuffer,
		},
	}
}

// Load reads and parses the config file at path. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive, got %v", cfg.Store.TTL)
	}
	if cfg.Store.Capacity < 1 {
		return fmt.Errorf("store.capacity must be at least 1, got %d", cfg.Store.Capacity)
	}
	if cfg.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path must not be empty")
	}
	if cfg.Snapshot.AutosaveInterval < 0 {
		return fmt.Errorf("snapshot.autosave_interval must not be negative")
	}
	if cfg.Sweep.Interval < 0 {
		return fmt.Errorf("sweep.interval must not be negative")
	}
	if _, err := logs.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Log.Buffer < 1 {
		return fmt.Errorf("log.buffer must be at least 1, got %d", cfg.Log.Buffer)
	}
	return nil
}
