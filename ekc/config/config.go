package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
}

// CatalogConfig stores the build pipeline configuration.
type CatalogConfig struct {
	Input    InputConfig    `mapstructure:"input"`
	Resolve  ResolveConfig  `mapstructure:"resolve"`
	Database DatabaseConfig `mapstructure:"database"`
	LogLevel string         `mapstructure:"logLevel"`
}

// InputConfig stores source export options.
type InputConfig struct {
	// HasHeader skips the first row of the export.
	HasHeader bool `mapstructure:"hasHeader"`
	// SkipInvalid drops malformed rows with a warning instead of aborting.
	SkipInvalid bool `mapstructure:"skipInvalid"`
}

// ResolveConfig stores version resolution options.
type ResolveConfig struct {
	// ConflictPolicy is "abort" or "prefer_smallest_asset".
	ConflictPolicy string `mapstructure:"conflictPolicy"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	DSN  string `mapstructure:"dsn"`
	Type string `mapstructure:"type"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("catalog.input.hasHeader", false)
	viper.SetDefault("catalog.input.skipInvalid", false)
	viper.SetDefault("catalog.resolve.conflictPolicy", "abort")
	viper.SetDefault("catalog.database.dsn", internal.DefaultDatabaseDSN)
	viper.SetDefault("catalog.database.type", internal.DefaultDatabaseType)
	viper.SetDefault("catalog.logLevel", "info")

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. catalog.input.hasHeader becomes CATALOG_INPUT_HASHEADER

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
