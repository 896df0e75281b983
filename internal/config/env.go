package config

import (
	"os"
	"strconv"
)

// FromEnv overlays STRAND_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("STRAND_HTTP"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("STRAND_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("STRAND_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("STRAND_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("STRAND_SUB_BUF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SubscribeBuffer = n
		}
	}
	if v := os.Getenv("STRAND_HEARTBEAT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HeartbeatMs = n
		}
	}
	if v := os.Getenv("STRAND_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STRAND_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
