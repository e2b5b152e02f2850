package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CIVICWATCH"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

type DBConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" validate:"oneof=stdio http"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// KafkaConfig enables the change-feed mirror when Brokers is set. With
// Consume, the ingestor reads the mirrored topic instead of the local store.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" validate:"required_with=Brokers"`
	Consume bool     `yaml:"consume"`
}

// Enabled reports whether a broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type AnalyticsConfig struct {
	TopN   int `yaml:"top_n" split_words:"true" validate:"gte=0"`
	Window int `yaml:"window" validate:"gte=0"`
}

type IngestConfig struct {
	RetryInterval time.Duration `yaml:"retry_interval" split_words:"true" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "civicwatch.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		Kafka: KafkaConfig{
			Topic: "civicwatch.reports",
		},
		Analytics: AnalyticsConfig{
			TopN:   5,
			Window: 50,
		},
		Ingest: IngestConfig{
			RetryInterval: 2 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvPrefix + "_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := loadFromEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadFromEnv maps fields to CIVICWATCH_<GROUP>_<FIELD>. Fields carry no
// envconfig tags: envconfig falls back to an unprefixed tag name.
func loadFromEnv(cfg *Config) error {
	groups := []struct {
		prefix string
		target any
	}{
		{EnvPrefix + "_SERVER", &cfg.Server},
		{EnvPrefix + "_DB", &cfg.DB},
		{EnvPrefix + "_LOG", &cfg.Log},
		{EnvPrefix + "_TRANSPORT", &cfg.Transport},
		{EnvPrefix + "_AUTH", &cfg.Auth},
		{EnvPrefix + "_KAFKA", &cfg.Kafka},
		{EnvPrefix + "_ANALYTICS", &cfg.Analytics},
		{EnvPrefix + "_INGEST", &cfg.Ingest},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.target); err != nil {
			return fmt.Errorf("read %s environment: %w", g.prefix, err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
