package statemesh

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/statemesh/core"
	"github.com/hupe1980/statemesh/logging"
)

// Config holds the settings a host usually keeps in a file.
//
// Example statemesh.yaml:
//
//	app_id: todo
//	event_name: rstate://state-update
//	log_level: debug
//	log_format: text
//	event_buffer_size: 32
type Config struct {
	// AppID identifies the store in the registry.
	AppID string `yaml:"app_id"`

	// EventName is the topic of state update events.
	EventName string `yaml:"event_name"`

	// LogLevel is one of debug, info, warn, error. Empty keeps the configured
	// logger (NoOp by default).
	LogLevel string `yaml:"log_level"`

	// LogFormat is json or text.
	LogFormat string `yaml:"log_format"`

	// EventBufferSize is the channel capacity of each Subscribe channel.
	EventBufferSize int `yaml:"event_buffer_size"`
}

// DefaultConfig provides the default configuration values.
var DefaultConfig = Config{
	EventName:       core.StateUpdateEvent,
	LogFormat:       "json",
	EventBufferSize: 16,
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig decodes and validates YAML config data.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.LogLevel != "" {
		if _, ok := logging.ParseLogLevel(c.LogLevel); !ok {
			return fmt.Errorf("invalid log_level %q", c.LogLevel)
		}
	}

	switch c.LogFormat {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}

	if c.EventBufferSize < 0 {
		return fmt.Errorf("event_buffer_size must not be negative, got %d", c.EventBufferSize)
	}

	return nil
}

// logger builds a structured logger for the config, or nil when no level is set.
func (c Config) logger() logging.Logger {
	if c.LogLevel == "" {
		return nil
	}

	level, _ := logging.ParseLogLevel(c.LogLevel)

	return logging.NewSlogLogger(level, c.LogFormat, false).
		WithComponent("statemesh").
		WithApp(c.AppID)
}
