package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"xlorad/internal/common/fsutil"
	"xlorad/internal/config"
	"xlorad/internal/registry"
)

// loadConfig reads the config file when one is named and applies the
// persistent flag overrides.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if cfgPath != "" {
		p, err := fsutil.ExpandHome(cfgPath)
		if err != nil {
			return cfg, err
		}
		cfg, err = config.Load(p)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
	}
	if modelsDirFlag != "" {
		cfg.ModelsDir = modelsDirFlag
	}
	if cfg.ModelsDir != "" {
		dir, err := fsutil.ExpandHome(cfg.ModelsDir)
		if err != nil {
			return cfg, err
		}
		cfg.ModelsDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildRegistry combines explicit config entries with models discovered in
// the models dir. A failed scan is fatal only when the config names no models
// of its own.
func buildRegistry(cfg config.Config) (*registry.Registry, error) {
	explicit, err := cfg.Entries()
	if err != nil {
		return nil, err
	}
	var discovered []registry.Entry
	if cfg.ModelsDir != "" {
		discovered, err = registry.LoadDir(cfg.ModelsDir)
		if err != nil {
			if len(explicit) == 0 {
				return nil, fmt.Errorf("scan models dir: %w", err)
			}
			discovered = nil
		}
	}
	return registry.Build(explicit, discovered)
}

func newLogger(level string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch level {
	case "off":
		lvl = zerolog.Disabled
	case "error":
		lvl = zerolog.ErrorLevel
	case "debug":
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
