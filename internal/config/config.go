package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mrc_prep/internal/prep"
	"mrc_prep/internal/window"
)

type Config struct {
	Window  WindowConfig  `yaml:"window"`
	NER     NERConfig     `yaml:"ner"`
	Logging LoggingConfig `yaml:"logging"`
	Stats   StatsConfig   `yaml:"stats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Report  ReportConfig  `yaml:"report"`
}

type WindowConfig struct {
	MaxTrainContentLen int    `yaml:"max_train_content_len"`
	MinLeftContextLen  int    `yaml:"min_left_context_len"`
	MinRightContextLen int    `yaml:"min_right_context_len"`
	Seed               *int64 `yaml:"seed"`
	MultiSpanPolicy    string `yaml:"multi_span_policy"`
}

type NERConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	Dictionary     string        `yaml:"dictionary"`
	Timeout        time.Duration `yaml:"timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	Burst          int           `yaml:"burst"`
	MaxRetries     int           `yaml:"max_retries"`
	CacheSize      int           `yaml:"cache_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StatsConfig struct {
	DBPath string `yaml:"db_path"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type ReportConfig struct {
	Path string `yaml:"path"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			MinLeftContextLen:  window.DefaultMinLeft,
			MinRightContextLen: window.DefaultMinRight,
			MultiSpanPolicy:    string(prep.PolicyReject),
		},
		NER: NERConfig{
			Timeout:        30 * time.Second,
			RequestsPerSec: 20,
			Burst:          5,
			MaxRetries:     3,
			CacheSize:      4096,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML configuration file over Default, so keys the file sets
// win even when they are zero. Environment variables in the file are
// expanded first; a .env file in the working directory is loaded beforehand
// without overriding variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills string settings left blank in the file. Numeric
// settings keep whatever the file says, zero included.
func applyDefaults(cfg *Config) {
	if cfg.Window.MultiSpanPolicy == "" {
		cfg.Window.MultiSpanPolicy = string(prep.PolicyReject)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// WindowParams validates the window section for a windowing run.
func (c *Config) WindowParams() (window.Params, error) {
	w := c.Window
	if w.MaxTrainContentLen <= 0 {
		return window.Params{}, fmt.Errorf("max_train_content_len must be positive, got %d", w.MaxTrainContentLen)
	}
	if w.MinLeftContextLen < 0 || w.MinRightContextLen < 0 {
		return window.Params{}, fmt.Errorf("context lengths must not be negative")
	}
	if w.MinLeftContextLen+w.MinRightContextLen >= w.MaxTrainContentLen {
		return window.Params{}, fmt.Errorf("%w: max_train_content_len %d leaves no room for an answer between %d left and %d right",
			window.ErrBudgetTooSmall, w.MaxTrainContentLen, w.MinLeftContextLen, w.MinRightContextLen)
	}
	return window.Params{
		Budget:   w.MaxTrainContentLen,
		MinLeft:  w.MinLeftContextLen,
		MinRight: w.MinRightContextLen,
	}, nil
}
