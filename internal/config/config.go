// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"
	"time"

	"github.com/automa-saga/logx"
	"github.com/forgeview/forgeview/pkg/sanity"
	"github.com/joomcode/errorx"
	"github.com/spf13/viper"
)

// Config holds the global configuration for the application.
type Config struct {
	Log      logx.LoggingConfig `yaml:"log" json:"log"`
	Database DatabaseConfig     `yaml:"database" json:"database"`
	Data     DataConfig         `yaml:"data" json:"data"`
	Plugins  PluginsConfig      `yaml:"plugins" json:"plugins"`
}

// DatabaseConfig represents the `database` configuration block.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"` // Path to the SQLite database file
}

// Validate validates database configuration fields to ensure they are safe
// before any migration or server startup touches the filesystem.
func (c DatabaseConfig) Validate() error {
	if c.Path != "" {
		if _, err := sanity.SanitizePath(c.Path); err != nil {
			return errorx.IllegalArgument.Wrap(err, "invalid database path: %s", c.Path)
		}
	}
	return nil
}

// DataConfig represents the `data` configuration block.
type DataConfig struct {
	Dir      string `yaml:"dir" json:"dir"`           // Root of server-managed state (caches, schema marker)
	ReposDir string `yaml:"reposDir" json:"reposDir"` // Root of hosted repository storage
}

// Validate validates data directory paths.
func (c DataConfig) Validate() error {
	if c.Dir != "" {
		if _, err := sanity.SanitizePath(c.Dir); err != nil {
			return errorx.IllegalArgument.Wrap(err, "invalid data dir: %s", c.Dir)
		}
	}
	if c.ReposDir != "" {
		if _, err := sanity.SanitizePath(c.ReposDir); err != nil {
			return errorx.IllegalArgument.Wrap(err, "invalid repos dir: %s", c.ReposDir)
		}
	}
	return nil
}

// PluginsConfig represents the `plugins` configuration block.
type PluginsConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	RefreshInterval time.Duration `yaml:"refreshInterval" json:"refreshInterval"`
}

// Validate validates plugin runtime settings.
func (c PluginsConfig) Validate() error {
	if c.Enabled && c.RefreshInterval <= 0 {
		return errorx.IllegalArgument.New("plugins.refreshInterval must be positive when plugins are enabled, got %s", c.RefreshInterval)
	}
	return nil
}

// Validate validates all configuration fields to ensure they are safe and secure.
func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Plugins.Validate(); err != nil {
		return err
	}
	return nil
}

var globalConfig = Config{
	Log: logx.LoggingConfig{
		Level:          "Info",
		ConsoleLogging: true,
		FileLogging:    false,
	},
	Database: DatabaseConfig{
		Path: "/var/lib/forgeview/forgeview.db",
	},
	Data: DataConfig{
		Dir:      "/var/lib/forgeview",
		ReposDir: "/var/lib/forgeview/repositories",
	},
	Plugins: PluginsConfig{
		Enabled:         false,
		RefreshInterval: 15 * time.Minute,
	},
}

// Initialize loads the configuration from the specified file.
//
// Parameters:
//   - path: The path to the configuration file.
//
// Returns:
//   - An error if the configuration cannot be loaded.
func Initialize(path string) error {
	if path != "" {
		globalConfig = Config{}
		viper.Reset()
		viper.SetConfigFile(path)
		viper.SetEnvPrefix("FORGEVIEW")
		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		err := viper.ReadInConfig()
		if err != nil {
			return NotFoundError.Wrap(err, "failed to read config file: %s", path).
				WithProperty(errorx.PropertyPayload(), path)
		}

		migrateOldConfigKeys()

		if err := viper.Unmarshal(&globalConfig); err != nil {
			return errorx.IllegalFormat.Wrap(err, "failed to parse configuration").
				WithProperty(errorx.PropertyPayload(), path)
		}
	}

	return nil
}

// Get returns the loaded configuration.
//
// Returns:
//   - The global configuration.
func Get() Config {
	return globalConfig
}

func Set(c *Config) error {
	globalConfig = *c
	return nil
}
