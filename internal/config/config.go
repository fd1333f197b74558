// Package config loads portgraph settings from an optional YAML file, a
// .env file and PORTGRAPH_* environment variables, in that order of
// precedence from lowest to highest.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/flowgraph/portgraph/pkg/validation"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds all configuration for portgraph tools
type Config struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Store   StoreConfig   `yaml:"store" validate:"required"`
	Archive ArchiveConfig `yaml:"archive" validate:"required"`
	Log     LogConfig     `yaml:"log" validate:"required"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" validate:"min=1"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=memory sqlite postgres redis"`
	// DSN is the sqlite path or the postgres connection string.
	DSN           string        `yaml:"dsn" validate:"required_if=Driver sqlite,required_if=Driver postgres"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"min=0"`
	TTL           time.Duration `yaml:"ttl" validate:"min=0"`
	MaxMemoryMB   int64         `yaml:"max_memory_mb" validate:"min=0"`
}

type ArchiveConfig struct {
	Codec       string `yaml:"codec" validate:"required,codec"`
	Compression string `yaml:"compression" validate:"omitempty,compression"`
	// EncryptKey is a hex encoded AES-256 key.
	EncryptKey string `yaml:"encrypt_key" validate:"omitempty,hexadecimal,len=64"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Store: StoreConfig{
			Driver:      DriverMemory,
			MaxMemoryMB: 256,
		},
		Archive: ArchiveConfig{
			Codec:       "msgpack",
			Compression: "zstd",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration. path may be empty, in which case only
// defaults and the environment apply.
func LoadConfig(path string) (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnvWithDefault("PORTGRAPH_ADDR", c.Server.Addr)
	c.Server.ReadTimeout = getEnvAsDuration("PORTGRAPH_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("PORTGRAPH_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("PORTGRAPH_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.MaxUploadBytes = int64(getEnvAsInt("PORTGRAPH_MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))

	c.Store.Driver = getEnvWithDefault("PORTGRAPH_STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnvWithDefault("PORTGRAPH_STORE_DSN", c.Store.DSN)
	c.Store.RedisAddr = getEnvWithDefault("PORTGRAPH_REDIS_ADDR", c.Store.RedisAddr)
	c.Store.RedisPassword = getEnvWithDefault("PORTGRAPH_REDIS_PASSWORD", c.Store.RedisPassword)
	c.Store.RedisDB = getEnvAsInt("PORTGRAPH_REDIS_DB", c.Store.RedisDB)
	c.Store.TTL = getEnvAsDuration("PORTGRAPH_STORE_TTL", c.Store.TTL)
	c.Store.MaxMemoryMB = int64(getEnvAsInt("PORTGRAPH_STORE_MAX_MEMORY_MB", int(c.Store.MaxMemoryMB)))

	c.Archive.Codec = getEnvWithDefault("PORTGRAPH_CODEC", c.Archive.Codec)
	c.Archive.Compression = getEnvWithDefault("PORTGRAPH_COMPRESSION", c.Archive.Compression)
	c.Archive.EncryptKey = getEnvWithDefault("PORTGRAPH_ENCRYPT_KEY", c.Archive.EncryptKey)

	c.Log.Level = getEnvWithDefault("PORTGRAPH_LOG_LEVEL", c.Log.Level)
	c.Log.JSON = getEnvAsBool("PORTGRAPH_LOG_JSON", c.Log.JSON)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return validation.ValidateWithPlayground(c)
}

// EncryptionKey decodes the archive key, or returns nil when none is set.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.Archive.EncryptKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.Archive.EncryptKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypt key: %w", err)
	}
	return key, nil
}

// Helper functions for environment variable parsing

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
