// Package config provides application configuration management with support for
// command-line flags, environment variables, and a TOML config file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Backend names accepted by the storage layer.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Auth    AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds persistent storage configuration.
type StorageConfig struct {
	// DataPath is the base directory for the embedded database (default: ~/.libreria).
	DataPath string
	// Backend selects the key-value medium: badger or sqlite.
	Backend string
	// MirrorPath is an optional JSON mirror file of the store record.
	// When set, external edits to the file are imported as storage changes.
	MirrorPath string
}

// AuthConfig holds login throttling configuration.
type AuthConfig struct {
	// LoginRPS is the per-email login attempt rate (default: 1).
	LoginRPS float64
	// LoginBurst is the login attempt burst size (default: 5).
	LoginBurst int
}

// fileConfig mirrors Config for TOML decoding.
type fileConfig struct {
	App struct {
		Environment string `toml:"environment"`
	} `toml:"app"`
	Logger struct {
		Level string `toml:"level"`
	} `toml:"logger"`
	Storage struct {
		DataPath   string `toml:"data_path"`
		Backend    string `toml:"backend"`
		MirrorPath string `toml:"mirror_path"`
	} `toml:"storage"`
	Auth struct {
		LoginRPS   float64 `toml:"login_rps"`
		LoginBurst int     `toml:"login_burst"`
	} `toml:"auth"`
}

// Load builds configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. TOML config file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("libreria", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for the embedded database")
	backend := fs.String("storage-backend", "", "Storage backend (badger, sqlite)")
	mirrorPath := fs.String("mirror-path", "", "Path to the JSON mirror file (empty disables)")
	configFile := fs.String("config", "", "Path to TOML config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load the TOML file if one was named (flag or env).
	var fc fileConfig
	filePath := getConfigValue(*configFile, "LIBRERIA_CONFIG", "", "")
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", filePath, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "LIBRERIA_ENV", fc.App.Environment, "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LIBRERIA_LOG_LEVEL", fc.Logger.Level, "info"),
		},
		Storage: StorageConfig{
			DataPath:   getConfigValue(*dataPath, "LIBRERIA_DATA_PATH", fc.Storage.DataPath, ""),
			Backend:    getConfigValue(*backend, "LIBRERIA_STORAGE_BACKEND", fc.Storage.Backend, BackendBadger),
			MirrorPath: getConfigValue(*mirrorPath, "LIBRERIA_MIRROR_PATH", fc.Storage.MirrorPath, ""),
		},
		Auth: AuthConfig{
			LoginRPS:   getFloatConfigValue("LIBRERIA_LOGIN_RPS", fc.Auth.LoginRPS, 1),
			LoginBurst: getIntConfigValue("LIBRERIA_LOGIN_BURST", fc.Auth.LoginBurst, 5),
		},
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.Backend != BackendBadger && c.Storage.Backend != BackendSQLite {
		return fmt.Errorf("invalid storage backend: %s (must be badger or sqlite)", c.Storage.Backend)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Auth.LoginRPS <= 0 {
		return fmt.Errorf("invalid login rate: %v (must be positive)", c.Auth.LoginRPS)
	}
	if c.Auth.LoginBurst < 1 {
		return fmt.Errorf("invalid login burst: %d (must be at least 1)", c.Auth.LoginBurst)
	}

	return nil
}

// expandDataPath resolves the data path, defaulting to ~/.libreria.
func (c *Config) expandDataPath() error {
	path := c.Storage.DataPath
	if path == "" {
		path = "~/.libreria"
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve data path: %w", err)
	}
	c.Storage.DataPath = abs
	return nil
}

// getConfigValue applies the precedence: flag > env > file > default.
func getConfigValue(flagValue, envKey, fileValue, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func getFloatConfigValue(envKey string, fileValue, defaultValue float64) float64 {
	if v := os.Getenv(envKey); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

func getIntConfigValue(envKey string, fileValue, defaultValue int) int {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}
