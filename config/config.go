// Package config loads the host configuration. The file is read once
// before the core starts; the core never reloads it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	herr "github.com/next-trace/scg-service-host/contract/errors"
)

// Config is the resolved host configuration.
type Config struct {
	// ServiceName is the name the host registers under with the OS
	// service facility.
	ServiceName string `toml:"service_name"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	NATS     NATSConfig     `toml:"nats"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	Kafka    KafkaConfig    `toml:"kafka"`
}

// NATSConfig configures the optional NATS bridge. An empty URL disables it.
type NATSConfig struct {
	URL           string `toml:"url"`
	Name          string `toml:"name"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// RabbitMQConfig configures the optional RabbitMQ bridge. An empty URL
// disables it.
type RabbitMQConfig struct {
	URL string `toml:"url"`
}

// KafkaConfig configures the optional Kafka bridge (franz build tag). An
// empty broker list disables it.
type KafkaConfig struct {
	Brokers  []string `toml:"brokers"`
	Topic    string   `toml:"topic"`
	ClientID string   `toml:"client_id"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ServiceName: "scg-service-host",
		LogLevel:    "info",
	}
}

// Load reads and validates the TOML file at path. Any failure here is a
// configuration error: the caller must not proceed to register with the OS
// facility.
func Load(path string) (Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config load %q: %w", path, errors.Join(herr.ErrConfigInvalid, err))
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return Config{}, fmt.Errorf("config load %q: unknown keys %s: %w",
			path, strings.Join(keys, ", "), herr.ErrConfigInvalid)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config load %q: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field values without touching the filesystem.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name required: %w", herr.ErrConfigInvalid)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps a config log level string onto a slog.Level.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", raw, herr.ErrConfigInvalid)
	}
}
