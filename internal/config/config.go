package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port" env:"PORT" validate:"omitempty,numeric"`
		ReadTimeout    string   `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout   string   `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"server"`
	Log struct {
		Level   string `yaml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`
		Console bool   `yaml:"console" env:"LOG_CONSOLE"`
	} `yaml:"log"`
	Admin struct {
		Password     string `yaml:"password" env:"ADMIN_PASSWORD"`
		PasswordHash string `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"`
	} `yaml:"admin"`
	Quiz struct {
		BaseScore     int    `yaml:"base_score" env:"QUIZ_BASE_SCORE" validate:"gt=0"`
		MaxSpeedBonus int    `yaml:"max_speed_bonus" env:"QUIZ_MAX_SPEED_BONUS" validate:"gte=0"`
		ReviewDelay   string `yaml:"review_delay" env:"QUIZ_REVIEW_DELAY"`
	} `yaml:"quiz"`
	Catalog struct {
		Source string `yaml:"source" env:"CATALOG_SOURCE" validate:"omitempty,oneof=static file postgres"`
		Path   string `yaml:"path" env:"CATALOG_PATH" validate:"required_if=Source file"`
	} `yaml:"catalog"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB" validate:"gte=0"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	NATS struct {
		URL           string `yaml:"url" env:"NATS_URL"`
		SubjectPrefix string `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX"`
	} `yaml:"nats"`
	Archive struct {
		Path string `yaml:"path" env:"ARCHIVE_PATH"`
	} `yaml:"archive"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeout = "15s"
	cfg.Server.WriteTimeout = "15s"
	cfg.Log.Level = "info"
	cfg.Log.Console = true
	cfg.Quiz.BaseScore = 10
	cfg.Quiz.MaxSpeedBonus = 10
	cfg.Catalog.Source = "static"
	cfg.Redis.TTL = "10m"
	cfg.NATS.SubjectPrefix = "quiz.events"
	return cfg
}

// Load reads YAML config from path on top of the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Catalog.Source == "postgres" && cfg.Postgres.URL == "" {
		return cfg, fmt.Errorf("catalog source postgres needs postgres.url")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
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
