package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
)

type config struct {
	Socket   string `toml:"socket" default:"/run/kapsule/daemon.sock"`
	Timeout  string `toml:"timeout" default:"30s"`
	LogLevel string `toml:"log_level" default:"info"`
}

// loadConfig reads the given TOML file over the defaults. An empty path
// means the per-user file, which is optional; an explicit path must exist.
func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}

	if path == "" {
		homedir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting homedir: %w", err)
		}
		path = filepath.Join(homedir, ".config", "kapsule", "kapsulectl.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return cfg, nil
}
