// Package config loads the flow.yaml file shared by the CLI commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the configuration file.
const DefaultPath = "flow.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreLoam   = "loam"
)

// Config is the content of flow.yaml.
type Config struct {
	LogLevel string `yaml:"log_level"`
	// Store selects where deployed graphs are kept.
	Store string `yaml:"store"`
	// GraphsDir is where graph files are read from.
	GraphsDir string `yaml:"graphs_dir"`
	// StateDir is where the file store keeps deployed definitions.
	StateDir string `yaml:"state_dir"`
	Tools    string `yaml:"tools"`
	// EncryptionKey is a base64 AES-256 key. When set, stored definitions
	// are encrypted. FLOW_ENCRYPTION_KEY overrides it.
	EncryptionKey string        `yaml:"encryption_key"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	Redis         RedisConfig   `yaml:"redis"`
	HTTP          HTTPConfig    `yaml:"http"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel:  "info",
		Store:     StoreMemory,
		GraphsDir: "graphs",
		StateDir:  ".flow/graphs",
		Tools:     "tools.yaml",
		LockTTL:   30 * time.Second,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "flow:graph:",
		},
		HTTP: HTTPConfig{Port: 8080},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// EnvEncryptionKey names the environment variable overriding EncryptionKey.
const EnvEncryptionKey = "FLOW_ENCRYPTION_KEY"

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvEncryptionKey); key != "" {
		c.EncryptionKey = key
	}
}

// Validate checks the values Load cannot default.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreLoam:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.LockTTL < 0 {
		return fmt.Errorf("negative lock_ttl %s", c.LockTTL)
	}
	return nil
}
