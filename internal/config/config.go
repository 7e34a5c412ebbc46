// Package config loads and validates the library's tunables: storage
// location, content-source endpoint, concurrency limits, validation
// thresholds, and scoring weights.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chapterline/continuity/internal/score"
	"github.com/chapterline/continuity/internal/validate"
)

type Config struct {
	Storage    StorageConfig       `yaml:"storage" validate:"required"`
	Source     SourceConfig        `yaml:"source"`
	Limits     Limits              `yaml:"limits" validate:"required"`
	Thresholds validate.Thresholds `yaml:"thresholds" validate:"required"`
	Weights    score.Weights       `yaml:"weights"`
	Extraction ExtractionConfig    `yaml:"extraction"`
}

type StorageConfig struct {
	BaseDir string `yaml:"base_dir" validate:"required"`
}

type SourceConfig struct {
	BaseURL           string `yaml:"base_url" validate:"omitempty,url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" validate:"min=0,max=600"`
	RequestsPerMinute int    `yaml:"requests_per_minute" validate:"min=0,max=1000"`
	Burst             int    `yaml:"burst" validate:"min=0,max=100"`
}

type ExtractionConfig struct {
	NameThreshold int `yaml:"name_threshold" validate:"min=1,max=10"`
	KeyEventLimit int `yaml:"key_event_limit" validate:"min=1,max=20"`
}

// Load reads the config file, overlays environment variables, applies
// defaults, and validates the result. A malformed configuration is fatal:
// the error is returned immediately and nothing is retried.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := getConfigPath()

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.finalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func getConfigPath() string {
	if path := os.Getenv("CONTINUITY_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "continuity", "config.yaml")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "continuity", "config.yaml")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{BaseDir: defaultDataDir()},
		Source: SourceConfig{
			TimeoutSeconds:    30,
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Limits:     DefaultLimits(),
		Thresholds: validate.DefaultThresholds(),
		Weights:    score.DefaultWeights(),
		Extraction: ExtractionConfig{
			NameThreshold: 2,
			KeyEventLimit: 5,
		},
	}
}

func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "continuity")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "continuity")
}

// finalize fills gaps from env and defaults, then validates.
func (c *Config) finalize() error {
	if c.Storage.BaseDir == "" {
		c.Storage.BaseDir = defaultDataDir()
	}
	if url := os.Getenv("CONTINUITY_SOURCE_URL"); url != "" {
		c.Source.BaseURL = url
	}
	if c.Limits.MaxConcurrentValidations == 0 {
		c.Limits = DefaultLimits()
	}
	if c.Thresholds.ForeshadowingLimit == 0 {
		c.Thresholds = validate.DefaultThresholds()
	}
	if c.Weights == (score.Weights{}) {
		c.Weights = score.DefaultWeights()
	}
	if c.Extraction.NameThreshold == 0 {
		c.Extraction.NameThreshold = 2
	}
	if c.Extraction.KeyEventLimit == 0 {
		c.Extraction.KeyEventLimit = 5
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
