// Package config loads the server configuration from YAML with sane defaults
// and optional hot reload.
package config

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/openskies-sim/airtycoon/internal/platform/logger"
)

// Sim tunes the clock and the world seed.
type Sim struct {
	MSPerDay     float64 `mapstructure:"ms_per_day"`
	Speed        float64 `mapstructure:"speed"`
	StartDate    string  `mapstructure:"start_date"` // YYYY-MM-DD
	Seed         int64   `mapstructure:"seed"`       // 0 = random
	AutosaveSlot string  `mapstructure:"autosave_slot"`
}

// Config is the full server configuration.
type Config struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	DatabasePath string        `mapstructure:"database_path"`
	CatalogDir   string        `mapstructure:"catalog_dir"` // empty = built-in demo catalog
	FrameMS      int           `mapstructure:"frame_ms"`
	Log          logger.Config `mapstructure:"log"`
	Sim          Sim           `mapstructure:"sim"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("database_path", "airtycoon.db")
	v.SetDefault("catalog_dir", "")
	v.SetDefault("frame_ms", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("sim.ms_per_day", 1000)
	v.SetDefault("sim.speed", 1)
	v.SetDefault("sim.start_date", "1960-01-01")
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.autosave_slot", "autosave")
}

// Load reads the config file at path. A missing path yields pure defaults.
// onChange, when non-nil, is invoked with the re-unmarshalled config every
// time the file changes on disk.
func Load(path string, onChange func(Config)) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if onChange != nil {
			v.OnConfigChange(func(_ fsnotify.Event) {
				var fresh Config
				if err := v.Unmarshal(&fresh); err == nil {
					onChange(fresh)
				}
			})
			v.WatchConfig()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
