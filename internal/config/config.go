package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Provider          string `json:"provider"`
	DefaultLimit      int    `json:"default_limit"`
	DefaultSort       string `json:"default_sort"`
	Output            string `json:"output"`
	DataCrunchBaseURL string `json:"datacrunch_base_url"`
	AWSRegion         string `json:"aws_region"`
	AWSAZ             string `json:"aws_az"`
	ServeAddr         string `json:"serve_addr"`
	LogLevel          string `json:"log_level"`
	HTTPTimeout       string `json:"http_timeout"`
}

func Defaults() Config {
	return Config{
		Provider:          "datacrunch",
		DefaultLimit:      10,
		DefaultSort:       "price",
		Output:            "table",
		DataCrunchBaseURL: "https://api.datacrunch.io/v1",
		AWSRegion:         "us-east-1",
		ServeAddr:         ":8080",
		LogLevel:          "warn",
		HTTPTimeout:       "30s",
	}
}

// DefaultPath is ~/.config/spotinfer/default.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "spotinfer", "default.json"), nil
}

// LoadConfig reads the default config file. A missing file yields the defaults.
func LoadConfig() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		cfg := Defaults()
		applyEnv(&cfg)
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile overlays the JSON file at path on the defaults, then applies
// SPOTINFER_* environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SPOTINFER_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("SPOTINFER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Timeout parses HTTPTimeout, falling back to 30s when it is empty or malformed.
func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
