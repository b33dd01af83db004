package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		TTL          string `yaml:"ttl"`
		DefaultCount int    `yaml:"default_count"`
	} `yaml:"quiz"`
	Dedupe struct {
		Threshold  float64 `yaml:"threshold"`
		MaxMatches int     `yaml:"max_matches"`
	} `yaml:"dedupe"`
	Import struct {
		MinAcceptRatio float64 `yaml:"min_accept_ratio"`
	} `yaml:"import"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Defaults returns a config with every tunable set.
func Defaults() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
	if c.Quiz.DefaultCount <= 0 {
		c.Quiz.DefaultCount = 10
	}
	if c.Dedupe.Threshold <= 0 {
		c.Dedupe.Threshold = 0.5
	}
	if c.Dedupe.MaxMatches <= 0 {
		c.Dedupe.MaxMatches = 5
	}
	if c.Import.MinAcceptRatio <= 0 {
		c.Import.MinAcceptRatio = 0.5
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
