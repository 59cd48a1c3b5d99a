// Package config loads toolpilot settings from an optional file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/exec"
	"github.com/jonwraymond/toolpilot/runtime"
)

// EnvPrefix prefixes every environment override, e.g. TOOLPILOT_HTTP_ADDR.
const EnvPrefix = "TOOLPILOT"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete application configuration.
type Config struct {
	Model        ModelConfig        `mapstructure:"model"`
	Executor     ExecutorConfig     `mapstructure:"executor"`
	Session      SessionConfig      `mapstructure:"session"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Log          LogConfig          `mapstructure:"log"`
}

// ModelConfig holds the model backend settings.
type ModelConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	Name       string `mapstructure:"name"`
	Dialect    string `mapstructure:"dialect"`
	ChunkLimit int    `mapstructure:"chunk_limit"`
}

// ExecutorConfig holds execution and provisioning settings.
type ExecutorConfig struct {
	Profile        string `mapstructure:"profile"`
	DisableInstall bool   `mapstructure:"disable_install"`
}

// SessionConfig bounds per-session state.
type SessionConfig struct {
	HistoryCapacity int  `mapstructure:"history_capacity"`
	MaxTurns        int  `mapstructure:"max_turns"`
	MaxSessions     int  `mapstructure:"max_sessions"`
	RecordFreeText  bool `mapstructure:"record_free_text"`
}

// CapabilitiesConfig locates extra capability definitions.
type CapabilitiesConfig struct {
	File string `mapstructure:"file"`
}

// HTTPConfig holds the HTTP adapter settings.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Endpoint:   dialogue.DefaultEndpoint,
			Name:       dialogue.DefaultModel,
			Dialect:    dialogue.DialectAuto.String(),
			ChunkLimit: dialogue.DefaultChunkLimit,
		},
		Executor: ExecutorConfig{
			Profile: string(runtime.ProfileCompact),
		},
		Session: SessionConfig{
			HistoryCapacity: exec.DefaultHistoryCapacity,
			MaxTurns:        exec.DefaultMaxTurns,
			MaxSessions:     exec.DefaultMaxSessions,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from path (or toolpilot.{toml,yaml} in the
// working directory and ~/.config/toolpilot when path is empty) and the
// environment. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by earlier deployments.
	_ = v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "DEEPSEEK_API_KEY")
	_ = v.BindEnv("model.endpoint", EnvPrefix+"_MODEL_ENDPOINT", "DEEPSEEK_API_URL")
	_ = v.BindEnv("model.name", EnvPrefix+"_MODEL_NAME", "DEEPSEEK_MODEL")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("toolpilot")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/toolpilot")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	if !runtime.Profile(c.Executor.Profile).IsValid() {
		return fmt.Errorf("%w: executor.profile %q (must be compact or full)", ErrInvalidConfig, c.Executor.Profile)
	}
	if _, err := dialogue.ParseDialect(c.Model.Dialect); err != nil {
		return fmt.Errorf("%w: model.dialect: %w", ErrInvalidConfig, err)
	}
	if c.Model.ChunkLimit < 0 {
		return fmt.Errorf("%w: model.chunk_limit must not be negative", ErrInvalidConfig)
	}
	if c.Session.HistoryCapacity < 0 || c.Session.MaxTurns < 0 || c.Session.MaxSessions < 0 {
		return fmt.Errorf("%w: session bounds must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be console or json)", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Dialect returns the parsed reply dialect.
func (c *Config) Dialect() dialogue.Dialect {
	d, _ := dialogue.ParseDialect(c.Model.Dialect)
	return d
}

// Redacted returns a copy that is safe to display.
func (c *Config) Redacted() Config {
	out := *c
	if out.Model.APIKey != "" {
		out.Model.APIKey = "[redacted]"
	}
	return out
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("model.api_key", d.Model.APIKey)
	v.SetDefault("model.endpoint", d.Model.Endpoint)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.dialect", d.Model.Dialect)
	v.SetDefault("model.chunk_limit", d.Model.ChunkLimit)
	v.SetDefault("executor.profile", d.Executor.Profile)
	v.SetDefault("executor.disable_install", d.Executor.DisableInstall)
	v.SetDefault("session.history_capacity", d.Session.HistoryCapacity)
	v.SetDefault("session.max_turns", d.Session.MaxTurns)
	v.SetDefault("session.max_sessions", d.Session.MaxSessions)
	v.SetDefault("session.record_free_text", d.Session.RecordFreeText)
	v.SetDefault("capabilities.file", d.Capabilities.File)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
