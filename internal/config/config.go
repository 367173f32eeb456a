// Package config resolves runtime settings for the panel binaries.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, PANEL_* environment variables and finally command line flags
// (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/panel/pkg/adapters/file"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "PANEL"

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = "panel.yaml"

// EnvConfigFile names the config file explicitly.
const EnvConfigFile = "PANEL_CONFIG"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config holds every tunable of the CLI and servers.
type Config struct {
	OpenAIAPIKey  string        `yaml:"openai_api_key" envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `yaml:"openai_base_url" envconfig:"OPENAI_BASE_URL"`
	OpenAITimeout time.Duration `yaml:"openai_timeout" envconfig:"OPENAI_TIMEOUT"`

	Model         string        `yaml:"model" envconfig:"MODEL"`
	Temperature   float64       `yaml:"temperature" envconfig:"TEMPERATURE"`
	ExpertTimeout time.Duration `yaml:"expert_timeout" envconfig:"EXPERT_TIMEOUT"`
	Concurrency   int           `yaml:"concurrency" envconfig:"CONCURRENCY"`

	Store         string        `yaml:"store" envconfig:"STORE"`
	SessionDir    string        `yaml:"session_dir" envconfig:"SESSION_DIR"`
	MaxTurns      int           `yaml:"max_turns" envconfig:"MAX_TURNS"`
	RedisAddr     string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"REDIS_DB"`
	RedisTTL      time.Duration `yaml:"redis_ttl" envconfig:"REDIS_TTL"`
	SQLitePath    string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`

	KafkaBrokers string `yaml:"kafka_brokers" envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string `yaml:"kafka_topic" envconfig:"KAFKA_TOPIC"`

	Addr      string `yaml:"addr" envconfig:"ADDR"`
	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	model := domain.DefaultModelConfig()
	return &Config{
		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAITimeout: 2 * time.Minute,
		Model:         model.ModelName,
		Temperature:   model.Temperature,
		Store:         StoreFile,
		SessionDir:    file.DefaultDir,
		MaxTurns:      100,
		RedisAddr:     "localhost:6379",
		SQLitePath:    "panel.db",
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment. An empty path falls back to $PANEL_CONFIG and then to
// DefaultFile; only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decodeYAML(data); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want memory, file, redis or sqlite)", c.Store)
	}
	if err := c.ModelConfig().Validate(); err != nil {
		return fmt.Errorf("invalid model settings: %w", err)
	}
	if c.ExpertTimeout < 0 {
		return fmt.Errorf("expert_timeout must not be negative")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}

// ModelConfig returns the model parameters new sessions start from.
func (c *Config) ModelConfig() domain.ModelConfig {
	return domain.ModelConfig{ModelName: c.Model, Temperature: c.Temperature}
}

// KafkaEnabled reports whether events should be published.
func (c *Config) KafkaEnabled() bool {
	return strings.TrimSpace(c.KafkaBrokers) != ""
}
