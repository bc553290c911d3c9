package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// Config is cmd/voltdb's own configuration, loaded from an optional
// voltdb.hujson file and then overridden by CLI flags. It is unrelated to
// voltstore.Config, which a library caller builds programmatically.
type Config struct {
	DataDir string `json:"data_dir"`
}

// DefaultConfig returns the inspector's defaults.
func DefaultConfig() Config {
	return Config{DataDir: "./voltdb-data"}
}

// ConfigFileName is the default config file name, checked in the current
// directory if -config is not given.
const ConfigFileName = "voltdb.hujson"

// LoadConfig layers defaults, an optional JSON-with-comments config file,
// then CLI overrides (highest wins), the same precedence the teacher's own
// config.go uses for its own config file.
func LoadConfig(configPath string, dataDirFlagSet bool, dataDirOverride string) (Config, error) {
	cfg := DefaultConfig()

	path := configPath
	mustExist := path != ""
	if path == "" {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return Config{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
		}
		if err := json.Unmarshal(standardized, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	case mustExist:
		return Config{}, fmt.Errorf("config file not found: %s: %w", path, err)
	case os.IsNotExist(err):
		// Optional file absent: defaults stand.
	default:
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if dataDirFlagSet {
		cfg.DataDir = dataDirOverride
	}
	return cfg, nil
}
