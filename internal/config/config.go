// Package config loads userbridge settings from defaults, an optional YAML
// file and USERBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/userbridge/internal/directory"
	"github.com/dusk-indust/userbridge/internal/store"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "USERBRIDGE_"

// Config holds every runtime setting.
type Config struct {
	Environment string          `yaml:"environment,omitempty" env:"ENVIRONMENT"`
	HTTPAddr    string          `yaml:"httpAddr,omitempty" env:"HTTP_ADDR"`
	Directory   DirectoryConfig `yaml:"directory,omitempty" envPrefix:"DIRECTORY_"`
	Store       StoreConfig     `yaml:"store,omitempty" envPrefix:"STORE_"`
	MCP         MCPConfig       `yaml:"mcp,omitempty" envPrefix:"MCP_"`
}

// DirectoryConfig points at the remote user directory.
type DirectoryConfig struct {
	BaseURL   string        `yaml:"baseURL,omitempty" env:"BASE_URL"`
	UsersPath string        `yaml:"usersPath,omitempty" env:"USERS_PATH"`
	Timeout   time.Duration `yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// StoreConfig selects the local store backend.
type StoreConfig struct {
	Driver     string `yaml:"driver,omitempty" env:"DRIVER"`
	Path       string `yaml:"path,omitempty" env:"PATH"`
	DSN        string `yaml:"dsn,omitempty" env:"DSN"`
	Database   string `yaml:"database,omitempty" env:"DATABASE"`
	Collection string `yaml:"collection,omitempty" env:"COLLECTION"`
}

// MCPConfig controls the optional MCP endpoint. An empty Addr disables it.
type MCPConfig struct {
	Addr string `yaml:"addr,omitempty" env:"ADDR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment: "development",
		HTTPAddr:    ":8080",
		Directory: DirectoryConfig{
			BaseURL:   directory.DefaultBaseURL,
			UsersPath: directory.DefaultUsersPath,
			Timeout:   directory.DefaultTimeout,
		},
		Store: StoreConfig{
			Driver:     store.DriverMemory,
			Database:   "userbridge",
			Collection: "users",
		},
	}
}

// Load returns the defaults overlaid with userbridge.yml (or .yaml) from dir,
// then with the environment. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	for _, name := range []string{"userbridge.yml", "userbridge.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		break
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the environment is "production" or "prod".
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "production", "prod":
		return true
	}
	return false
}

// StoreOptions converts the store section for store.Open.
func (c *Config) StoreOptions() store.Config {
	return store.Config{
		Driver:     c.Store.Driver,
		Path:       c.Store.Path,
		DSN:        c.Store.DSN,
		Database:   c.Store.Database,
		Collection: c.Store.Collection,
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Directory.BaseURL) == "" {
		return errors.New("config: directory.baseURL is required")
	}
	if c.Directory.Timeout < 0 {
		return fmt.Errorf("config: directory.timeout must not be negative, got %s", c.Directory.Timeout)
	}
	if !slices.Contains(store.Drivers, c.Store.Driver) {
		return fmt.Errorf("config: unknown store driver %q (want one of %s)", c.Store.Driver, strings.Join(store.Drivers, ", "))
	}
	switch c.Store.Driver {
	case store.DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("config: store.path is required for the sqlite driver")
		}
	case store.DriverPostgres, store.DriverMongo:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the %s driver", c.Store.Driver)
		}
	}
	return nil
}
