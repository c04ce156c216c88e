// Package config loads service configuration in three layers: struct
// defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when no explicit path is given.
var DefaultPaths = []string{"config.yaml", "config.yml", "configs/config.yaml"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Matching MatchingConfig `koanf:"matching"`
	Gemini   GeminiConfig   `koanf:"gemini"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Address           string        `koanf:"address" validate:"required"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	// DBPath enables the SQLite store. Empty keeps the catalog in memory and
	// disables the per-user endpoints.
	DBPath string `koanf:"db_path"`
	// DestinationsPath replaces the built-in catalog when set.
	DestinationsPath string `koanf:"destinations_path"`
}

type MatchingConfig struct {
	WeightsPath       string `koanf:"weights_path"`
	InteractionWindow int    `koanf:"interaction_window" validate:"min=1,max=1000"`
}

type GeminiConfig struct {
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"gte=0"`
	BreakerFailures   uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	Concurrency       int           `koanf:"concurrency" validate:"min=1,max=64"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:           ":8080",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
		Storage: StorageConfig{
			DBPath: "data/travel.db",
		},
		Matching: MatchingConfig{
			WeightsPath:       "configs/weights.json",
			InteractionWindow: 11,
		},
		Gemini: GeminiConfig{
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 60,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
			Concurrency:       4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise
// CONFIG_PATH and DefaultPaths are tried and a missing file is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := splitCommaList(k, "server.cors_origins"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Frontend builds expose the key under this name.
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("VITE_GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envKeys = map[string]string{
	"API_ADDRESS":         "server.address",
	"CORS_ORIGINS":        "server.cors_origins",
	"RATE_LIMIT_REQUESTS": "server.rate_limit_requests",
	"RATE_LIMIT_WINDOW":   "server.rate_limit_window",
	"DB_PATH":             "storage.db_path",
	"DESTINATIONS_PATH":   "storage.destinations_path",
	"WEIGHTS_PATH":        "matching.weights_path",
	"INTERACTION_WINDOW":  "matching.interaction_window",
	"GEMINI_API_KEY":      "gemini.api_key",
	"GEMINI_MODEL":        "gemini.model",
	"GEMINI_BASE_URL":     "gemini.base_url",
	"GEMINI_TIMEOUT":      "gemini.timeout",
	"GEMINI_RPM":          "gemini.requests_per_minute",
	"GEMINI_CONCURRENCY":  "gemini.concurrency",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
}

// envKey maps a known environment variable to its config path. Unknown
// variables map to "" and are ignored by the provider.
func envKey(name string) string {
	return envKeys[name]
}

// splitCommaList turns a comma separated env value into a slice.
func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}
