package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HTTPAddr is the listen address for the HTTP/SSE API.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// DataDir holds the Pebble store. Empty means DefaultDataDir().
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Fsync is the durability mode: always|interval|never.
	Fsync string `json:"fsync" yaml:"fsync"`
	// FsyncIntervalMs is the group-commit window when Fsync is "interval".
	FsyncIntervalMs int `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
	// SubscribeBuffer is the buffered delivery capacity per subscriber.
	SubscribeBuffer int `json:"subscribeBuffer" yaml:"subscribeBuffer"`
	// HeartbeatMs is the SSE control-frame interval.
	HeartbeatMs int `json:"heartbeatMs" yaml:"heartbeatMs"`
	// LogLevel and LogFormat configure the process logger.
	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		Fsync:           "always",
		FsyncIntervalMs: 5,
		SubscribeBuffer: 1024,
		HeartbeatMs:     15000,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
