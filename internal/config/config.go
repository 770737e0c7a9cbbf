// Package config persists engine settings as YAML in the data directory.
package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"draftdesk/engine/internal/retry"
)

const schemaVersion = 1

const (
	defaultAutoSaveIntervalMs = 30000
	minAutoSaveIntervalMs     = 500
)

// AutoSave controls the background save scheduler.
type AutoSave struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMs int  `yaml:"interval_ms"`
}

// Interval returns the autosave interval as a duration.
func (a AutoSave) Interval() time.Duration {
	return time.Duration(a.IntervalMs) * time.Millisecond
}

// Retry overrides the persistence retry policy.
type Retry struct {
	MaxAttempts    int `yaml:"max_attempts"`
	InitialDelayMs int `yaml:"initial_delay_ms"`
	Multiplier     int `yaml:"multiplier"`
}

// Policy converts the configured values into a retry policy.
func (r Retry) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: time.Duration(r.InitialDelayMs) * time.Millisecond,
		Multiplier:   r.Multiplier,
	}
}

type Config struct {
	SchemaVersion int      `yaml:"schema_version"`
	AutoSave      AutoSave `yaml:"autosave"`
	Retry         Retry    `yaml:"retry"`
	Debug         bool     `yaml:"debug,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the config file, returning defaults when it does not exist.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	backfill(&cfg)
	return &cfg, nil
}

func (s *Store) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	backfill(cfg)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Update applies fn to the loaded config and persists the result.
func (s *Store) Update(fn func(*Config)) (*Config, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	fn(cfg)
	return cfg, s.Save(cfg)
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		SchemaVersion: schemaVersion,
		AutoSave: AutoSave{
			Enabled:    false,
			IntervalMs: defaultAutoSaveIntervalMs,
		},
		Retry: Retry{
			MaxAttempts:    3,
			InitialDelayMs: 1000,
			Multiplier:     2,
		},
	}
}

func backfill(cfg *Config) {
	defaults := defaultConfig()
	if cfg.SchemaVersion == 0 {
		cfg.SchemaVersion = schemaVersion
	}
	if cfg.AutoSave.IntervalMs < minAutoSaveIntervalMs {
		cfg.AutoSave.IntervalMs = defaults.AutoSave.IntervalMs
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if cfg.Retry.InitialDelayMs <= 0 {
		cfg.Retry.InitialDelayMs = defaults.Retry.InitialDelayMs
	}
	if cfg.Retry.Multiplier <= 1 {
		cfg.Retry.Multiplier = defaults.Retry.Multiplier
	}
}
