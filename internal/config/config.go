// Package config loads the sidecar configuration.
//
// Values are layered with koanf, lowest priority first:
//
//  1. Built-in defaults
//  2. Optional YAML file (--config flag, HLR_CONFIG, or ./hlr.yaml)
//  3. Environment variables prefixed with HLR_
//
// Environment names map onto the config tree by their first underscore:
// HLR_MODEL_LEARNING_RATE -> model.learning_rate, HLR_SERVER_PORT ->
// server.port. The older flat names (HLR_PORT,
// HLR_HLR_LEARNING_RATE, ...) are accepted too.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/noema/hlr/halflife"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "HLR_"
	// ConfigPathEnvVar overrides the config file path.
	ConfigPathEnvVar = "HLR_CONFIG"
	// DefaultConfigFile is used when present and no path is given.
	DefaultConfigFile = "hlr.yaml"
)

// Config is the complete sidecar configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Model      ModelConfig      `koanf:"model"`
	Store      StoreConfig      `koanf:"store"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `koanf:"level"`
}

// ModelConfig holds the hyperparameters for newly created models.
type ModelConfig struct {
	LearningRate   float64 `koanf:"learning_rate"`
	HalfLifeWeight float64 `koanf:"hl_weight"`
	L2Weight       float64 `koanf:"l2_weight"`
	Sigma          float64 `koanf:"sigma"`
	OmitHTerm      bool    `koanf:"omit_h_term"`
}

// StoreConfig configures checkpoint storage.
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// CheckpointConfig configures periodic checkpointing. A zero interval
// checkpoints only on shutdown and on demand.
type CheckpointConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	hp := halflife.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8020,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Model: ModelConfig{
			LearningRate:   hp.LearningRate,
			HalfLifeWeight: hp.HalfLifeWeight,
			L2Weight:       hp.L2Weight,
			Sigma:          hp.Sigma,
			OmitHTerm:      hp.OmitHTerm,
		},
		Store: StoreConfig{
			Path: "data/hlr",
		},
		Checkpoint: CheckpointConfig{
			Interval: time.Minute,
		},
	}
}

// Load builds the configuration. An empty path falls back to HLR_CONFIG and
// then to ./hlr.yaml if it exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// legacyEnv maps the older flat variable names.
var legacyEnv = map[string]string{
	"host":              "server.host",
	"port":              "server.port",
	"hlr_learning_rate": "model.learning_rate",
	"hlr_hl_weight":     "model.hl_weight",
	"hlr_l2_weight":     "model.l2_weight",
	"hlr_sigma":         "model.sigma",
	"hlr_omit_h_term":   "model.omit_h_term",
}

var sections = map[string]bool{
	"server":     true,
	"log":        true,
	"model":      true,
	"store":      true,
	"checkpoint": true,
}

// envTransformFunc turns HLR_SECTION_KEY into section.key. Unknown names
// return "" and are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if mapped, ok := legacyEnv[key]; ok {
		return mapped
	}
	section, rest, found := strings.Cut(key, "_")
	if !found || !sections[section] || rest == "" {
		return ""
	}
	return section + "." + rest
}

// Addr returns host:port for the listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// HalfLife converts the model section to model hyperparameters.
func (m ModelConfig) HalfLife() halflife.Config {
	return halflife.Config{
		OmitHTerm:      m.OmitHTerm,
		LearningRate:   m.LearningRate,
		HalfLifeWeight: m.HalfLifeWeight,
		L2Weight:       m.L2Weight,
		Sigma:          m.Sigma,
	}
}
