// Package config loads settings from an optional YAML file overlaid by ELDAMO_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/eldamo/pkg/source"
)

var validate = validator.New()

type Config struct {
	// Source is a file path or an http(s) URL.
	Source string `yaml:"source" validate:"required"`
	// Watch enables filesystem notifications for a file source.
	Watch     bool   `yaml:"watch"`
	HistoryDB string `yaml:"history_db"`
	Listen    string `yaml:"listen" validate:"required,hostname_port"`

	CheckWorkers int           `yaml:"check_workers" validate:"gte=0,lte=256"`
	HTTPTimeout  time.Duration `yaml:"http_timeout" validate:"gt=0"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Source:      source.DefaultURL,
		HistoryDB:   "eldamo-history.db",
		Listen:      ":8090",
		HTTPTimeout: 2 * time.Minute,
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// Load reads path (if non-empty) over the defaults, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Source = envOr("ELDAMO_SOURCE", cfg.Source)
	cfg.Watch = envBool("ELDAMO_WATCH", cfg.Watch)
	cfg.HistoryDB = envOr("ELDAMO_HISTORY_DB", cfg.HistoryDB)
	cfg.Listen = envOr("ELDAMO_LISTEN", cfg.Listen)
	cfg.CheckWorkers = envInt("ELDAMO_CHECK_WORKERS", cfg.CheckWorkers)
	cfg.HTTPTimeout = envDuration("ELDAMO_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.LogLevel = envOr("ELDAMO_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("ELDAMO_LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Watch && c.IsRemote() {
		return fmt.Errorf("invalid config: watch requires a file source, got %s", c.Source)
	}
	return nil
}

// IsRemote reports whether Source is a URL.
func (c Config) IsRemote() bool {
	return strings.HasPrefix(c.Source, "http://") || strings.HasPrefix(c.Source, "https://")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
