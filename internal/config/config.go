package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeUser  = "user"
	ModeGuest = "guest"
)

type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Mode    string `yaml:"mode"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Profile     string `yaml:"profile"`
	Leaderboard struct {
		Window string `yaml:"window"`
		Limit  int    `yaml:"limit"`
	} `yaml:"leaderboard"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bridge struct {
		Port string `yaml:"port"`
	} `yaml:"bridge"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the defaults so the
// client can run against a local backend with no setup.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TRIVIA_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("TRIVIA_MODE"); v != "" {
		cfg.API.Mode = v
	}
	if v := os.Getenv("TRIVIA_PROFILE"); v != "" {
		cfg.Profile = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api"
	}
	if cfg.API.Mode != ModeGuest {
		cfg.API.Mode = ModeUser
	}
	if cfg.Profile == "" {
		cfg.Profile = "default"
	}
	if cfg.Leaderboard.Window == "" {
		cfg.Leaderboard.Window = "week"
	}
	if cfg.Leaderboard.Limit <= 0 {
		cfg.Leaderboard.Limit = 10
	}
	if cfg.Bridge.Port == "" {
		cfg.Bridge.Port = "8081"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
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
