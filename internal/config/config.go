package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"

	"github.com/sadopc/apitester/internal/core/storage"
)

// Config holds the application configuration.
type Config struct {
	Storage        string            `yaml:"storage" default:"sqlite"`
	DataDir        string            `yaml:"data_dir"`
	DefaultTimeout time.Duration     `yaml:"default_timeout" default:"30s"`
	AdvisoryCORS   bool              `yaml:"advisory_cors" default:"true"`
	Proxy          string            `yaml:"proxy"`
	NoProxy        string            `yaml:"no_proxy"`
	DefaultHeaders map[string]string `yaml:"default_headers" default:"{\"Content-Type\":\"application/json\"}"`
	TLS            TLSConfig         `yaml:"tls"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	cfg.DataDir = defaultDataDir()
	return cfg
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	switch c.Storage {
	case storage.KindSQLite, storage.KindFile, storage.KindMemory:
	default:
		return fmt.Errorf("invalid storage %q (must be sqlite, file, or memory)", c.Storage)
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("invalid default_timeout %s", c.DefaultTimeout)
	}
	if c.Storage != storage.KindMemory && c.DataDir == "" {
		return fmt.Errorf("data_dir is required for %s storage", c.Storage)
	}
	return nil
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "apitester")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "apitester")
}
