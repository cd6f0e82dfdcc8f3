// Package config provides the configuration structure for the tts-gateway.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Cache backend selectors.
const (
	CacheBackendFS   = "fs"
	CacheBackendNATS = "nats"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	ServiceName string `toml:"service_name"`
}

// BackendConfig holds the synthesis backend settings.
type BackendConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CacheConfig selects and configures the audio cache store. Backend is
// either "fs" (flat directory, the default) or "nats" (shared JetStream
// object store).
type CacheConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

// NATSConfig holds the connection settings for the NATS cache backend.
type NATSConfig struct {
	URL    string `toml:"url"`
	Bucket string `toml:"bucket"`
}

// PersonaConfig holds persona resolution settings.
type PersonaConfig struct {
	Default string `toml:"default"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Backend BackendConfig `toml:"backend"`
	Cache   CacheConfig   `toml:"cache"`
	NATS    NATSConfig    `toml:"nats"`
	Persona PersonaConfig `toml:"persona"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration for the tts-gateway.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
