package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvStorage = "APITESTER_STORAGE"
	EnvDataDir = "APITESTER_DATA_DIR"
	EnvTimeout = "APITESTER_TIMEOUT"
	EnvProxy   = "APITESTER_PROXY"
	EnvNoProxy = "APITESTER_NO_PROXY"
)

// DefaultPath returns ~/.config/apitester/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "apitester", "config.yaml")
}

// Load loads configuration from the default path.
func Load() Config {
	return LoadFile(DefaultPath())
}

// LoadFile loads configuration from path, then applies a .env file in the
// working directory and APITESTER_* environment overrides. A missing or
// malformed file leaves the defaults in place.
func LoadFile(path string) Config {
	cfg := DefaultConfig()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			// default_headers replaces the default map instead of merging
			// into it, so a file can drop Content-Type.
			loaded := DefaultConfig()
			loaded.DefaultHeaders = nil
			if err := yaml.Unmarshal(data, &loaded); err == nil {
				if loaded.DefaultHeaders == nil {
					loaded.DefaultHeaders = cfg.DefaultHeaders
				}
				cfg = loaded
			}
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvStorage); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DefaultTimeout = d
		}
	}
	if v := os.Getenv(EnvProxy); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv(EnvNoProxy); v != "" {
		cfg.NoProxy = v
	}
}
