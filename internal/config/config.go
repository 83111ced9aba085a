package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string
	LogLevel    slog.Level
	LogFile     string // empty logs to stdout

	DataDir    string // levels live in <DataDir>/levels
	RedisURL   string // empty disables progress persistence
	SessionTTL time.Duration

	SlotCount         int
	MoveDuration      time.Duration
	SettleMargin      time.Duration
	AppearanceTimeout time.Duration // zero waits for appearance setup forever
}

// fileConfig mirrors Config in the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Environment       string `yaml:"environment"`
	LogLevel          string `yaml:"log_level"`
	LogFile           string `yaml:"log_file"`
	DataDir           string `yaml:"data_dir"`
	RedisURL          string `yaml:"redis_url"`
	SessionTTL        string `yaml:"session_ttl"`
	SlotCount         int    `yaml:"slot_count"`
	MoveDuration      string `yaml:"move_duration"`
	SettleMargin      string `yaml:"settle_margin"`
	AppearanceTimeout string `yaml:"appearance_timeout"`
}

func Default() *Config {
	return &Config{
		Environment:  "development",
		LogLevel:     slog.LevelInfo,
		DataDir:      "./data",
		SessionTTL:   24 * time.Hour,
		SlotCount:    3,
		MoveDuration: time.Second,
		SettleMargin: 100 * time.Millisecond,
	}
}

// Load builds the config from defaults, then the CONFIG_FILE yaml (if set),
// then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.Environment, fc.Environment)
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	setString(&c.LogFile, fc.LogFile)
	setString(&c.DataDir, fc.DataDir)
	setString(&c.RedisURL, fc.RedisURL)
	if fc.SlotCount > 0 {
		c.SlotCount = fc.SlotCount
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"session_ttl", fc.SessionTTL, &c.SessionTTL},
		{"move_duration", fc.MoveDuration, &c.MoveDuration},
		{"settle_margin", fc.SettleMargin, &c.SettleMargin},
		{"appearance_timeout", fc.AppearanceTimeout, &c.AppearanceTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s in config file: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = parseLogLevel(level)
	}
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)

	if v := os.Getenv("SLOT_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("SLOT_COUNT must be a positive integer, got %q", v)
		}
		c.SlotCount = n
	}

	var err error
	if c.SessionTTL, err = getDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	if c.MoveDuration, err = getDuration("MOVE_DURATION", c.MoveDuration); err != nil {
		return err
	}
	if c.SettleMargin, err = getDuration("SETTLE_MARGIN", c.SettleMargin); err != nil {
		return err
	}
	if c.AppearanceTimeout, err = getDuration("APPEARANCE_TIMEOUT", c.AppearanceTimeout); err != nil {
		return err
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 1s or 250ms: %w", key, err)
	}
	return d, nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
