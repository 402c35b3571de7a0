// Package config loads the application configuration from TOML files.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentVersion of the config file.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Discord    Discord    `koanf:"discord"`
	Sync       Sync       `koanf:"sync"`
}

// Debug contains logging and debugging configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum number of log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"db_name"`
	// Maximum number of open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum number of idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle connection timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Discord contains bot gateway configuration.
type Discord struct {
	// Bot token.
	Token string `koanf:"token"`
}

// Sync contains reconciliation configuration.
type Sync struct {
	// Warm-up delay in milliseconds before the first startup sweep, so
	// dependent services that start later than the process can come up.
	StartupDelay int `koanf:"startup_delay"`
}

// LoadConfig loads the configuration from the first threadkeep.toml found in
// the search paths and returns it along with the config directory used.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".threadkeep",
		homeDir + "/.threadkeep/config",
		"/etc/threadkeep/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/threadkeep.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: threadkeep.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Version == 0 {
		return nil, "", ErrConfigVersionMissing
	}

	if config.Version != CurrentVersion {
		return nil, "", fmt.Errorf("%w: expected version %d, got %d",
			ErrConfigVersionMismatch, CurrentVersion, config.Version)
	}

	return &config, usedConfigPath, nil
}
