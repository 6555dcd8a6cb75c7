// Package config loads strata settings from .strata.yaml, the
// environment and .env files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration and .env files are read from.
var AppFs = afero.NewOsFs()

const (
	// FileName is the configuration file name without extension.
	FileName  = ".strata"
	envPrefix = "STRATA"
)

// ErrVersionTooOld is returned when the running binary is older than the
// configured minimum version.
var ErrVersionTooOld = errors.New("strata version is older than the configured minimum")

// Database selects the database connection.
type Database struct {
	Dialect      string        `mapstructure:"dialect" yaml:"dialect"`
	URL          string        `mapstructure:"url" yaml:"url"`
	Database     string        `mapstructure:"database" yaml:"database"`
	MaxOpenConns int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	StatementTTL time.Duration `mapstructure:"statement_ttl" yaml:"statement_ttl"`
}

// Server configures the HTTP demo application.
type Server struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
}

// Config holds the application configuration
type Config struct {
	Database   Database `mapstructure:"database" yaml:"database"`
	Server     Server   `mapstructure:"server" yaml:"server"`
	Debug      bool     `mapstructure:"debug" yaml:"debug"`
	LogLevel   string   `mapstructure:"log_level" yaml:"log_level"`
	LogJSON    bool     `mapstructure:"log_json" yaml:"log_json"`
	MinVersion string   `mapstructure:"min_version" yaml:"min_version"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

var defaults = map[string]any{
	"database.dialect":        "sqlite",
	"database.url":            "file:strata.db",
	"database.database":       "",
	"database.max_open_conns": 0,
	"database.statement_ttl":  5 * time.Minute,
	"server.addr":             ":8080",
	"server.base_path":        "",
	"debug":                   false,
	"log_level":               "info",
	"log_json":                false,
	"min_version":             "",
}

func newViper() (*viper.Viper, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "strata"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v, nil
}

// Load loads configuration from various sources. Values from STRATA_*
// environment variables override the file; .env and .env.local are
// applied to the environment first, .env.local taking precedence.
func Load() (*Config, error) {
	if err := loadEnvFile(".env", false); err != nil {
		return nil, err
	}
	if err := loadEnvFile(".env.local", true); err != nil {
		return nil, err
	}

	v, err := newViper()
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{File: v.ConfigFileUsed()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Database.URL == defaults["database.url"] {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			cfg.Database.URL = url
		}
	}
	return cfg, nil
}

// loadEnvFile applies a dotenv file found on AppFs. Without override,
// variables already present in the environment are kept.
func loadEnvFile(name string, override bool) error {
	data, err := afero.ReadFile(AppFs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	env, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for key, value := range env {
		if _, set := os.LookupEnv(key); set && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Save writes cfg as YAML to path. An empty path writes to
// $HOME/.config/strata/.strata.yaml. It returns the written path.
func Save(cfg *Config, path string) (string, error) {
	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, ".config", "strata", FileName+".yaml")
	}

	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	v.Set("database.dialect", cfg.Database.Dialect)
	v.Set("database.url", cfg.Database.URL)
	v.Set("database.database", cfg.Database.Database)
	v.Set("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.Set("database.statement_ttl", cfg.Database.StatementTTL.String())
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.base_path", cfg.Server.BasePath)
	v.Set("debug", cfg.Debug)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_json", cfg.LogJSON)
	v.Set("min_version", cfg.MinVersion)

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// CheckVersion fails when current is older than MinVersion.
func (c *Config) CheckVersion(current string) error {
	if c.MinVersion == "" {
		return nil
	}

	min, err := version.NewVersion(c.MinVersion)
	if err != nil {
		return fmt.Errorf("invalid min_version %q: %w", c.MinVersion, err)
	}
	cur, err := version.NewVersion(current)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}

	if cur.LessThan(min) {
		return fmt.Errorf("%w: %s < %s", ErrVersionTooOld, cur, min)
	}
	return nil
}
