// Package server assembles the runtime: host configuration, logging,
// metrics, and the component tree that the daemon loads, saves, and
// unloads as one unit.
package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LogConfig controls the daemon's log output.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
	Compress   bool   `mapstructure:"compress"`
	Dev        bool   `mapstructure:"dev"`
}

// HostConfig is the process-level configuration: where state lives and
// how the daemon behaves. Game-facing settings do not belong here; they
// live in the game config document and are read through wrappers.
type HostConfig struct {
	DataDir      string        `mapstructure:"data-dir"`
	GameConfig   string        `mapstructure:"game-config"`
	MetricsAddr  string        `mapstructure:"metrics-addr"`
	SaveInterval time.Duration `mapstructure:"save-interval"`
	Log          LogConfig     `mapstructure:"log"`
}

// Host loads the host configuration and keeps it fresh while the file
// is watched.
type Host struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg HostConfig
}

// LoadHost reads the host configuration from path. An empty path runs
// on defaults and environment overrides alone (prefix STONEWARDEN,
// dots and dashes mapped to underscores).
func LoadHost(path string) (*Host, error) {
	v := viper.New()
	v.SetDefault("data-dir", "data")
	v.SetDefault("game-config", "config.yml")
	v.SetDefault("metrics-addr", ":9153")
	v.SetDefault("save-interval", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max-size-mb", 50)
	v.SetDefault("log.max-backups", 5)
	v.SetDefault("log.max-age-days", 14)

	v.SetEnvPrefix("stonewarden")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read host config %s: %w", path, err)
		}
	}

	h := &Host{v: v}
	if err := v.Unmarshal(&h.cfg); err != nil {
		return nil, fmt.Errorf("parse host config: %w", err)
	}
	return h, nil
}

// Config returns the current configuration snapshot.
func (h *Host) Config() HostConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Watch re-reads the file on change and invokes onChange with the new
// snapshot. A change that no longer parses is dropped and the previous
// snapshot stays in effect.
func (h *Host) Watch(onChange func(HostConfig)) {
	h.v.OnConfigChange(func(fsnotify.Event) {
		var cfg HostConfig
		if err := h.v.Unmarshal(&cfg); err != nil {
			return
		}
		h.mu.Lock()
		h.cfg = cfg
		h.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	h.v.WatchConfig()
}
