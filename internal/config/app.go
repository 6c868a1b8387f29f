// Package config handles configuration loading and management
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethpandaops/storage-probe/internal/host"
	"github.com/joho/godotenv"
)

// ErrInvalidReportFormat is returned for report formats other than json and yaml.
var ErrInvalidReportFormat = errors.New("invalid report format")

// AppConfig holds the application configuration loaded from environment variables.
type AppConfig struct {
	DataDir          string
	SQLitePath       string
	KVPath           string
	HistoryPath      string
	HistoryRetention uint64
	ReportFormat     string
	SuiteName        string
}

// Override adjusts raw configuration before derived paths are filled in.
type Override func(*AppConfig)

// Load reads configuration from environment variables and .env file.
func Load(overrides ...Override) (*AppConfig, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if the file doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	return FromEnv(overrides...)
}

// FromEnv builds the configuration from the current environment only. Overrides
// run before data directory paths are derived, so a data directory set by a flag
// behaves like one set in the environment.
func FromEnv(overrides ...Override) (*AppConfig, error) {
	cfg := &AppConfig{
		DataDir:      getEnv(EnvDataDir, ""),
		SQLitePath:   getEnv(EnvSQLitePath, ""),
		KVPath:       getEnv(EnvKVPath, ""),
		HistoryPath:  getEnv(EnvHistoryPath, ""),
		ReportFormat: strings.ToLower(getEnv(EnvReportFormat, DefaultReportFormat)),
		SuiteName:    getEnv(EnvSuiteName, ""),
	}

	retention, err := strconv.ParseUint(getEnv(EnvHistoryRetention, strconv.Itoa(DefaultHistoryRetention)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvHistoryRetention, err)
	}
	cfg.HistoryRetention = retention

	for _, override := range overrides {
		override(cfg)
	}

	cfg.ReportFormat = strings.ToLower(cfg.ReportFormat)
	cfg.ApplyDataDir()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDataDir fills unset paths from DataDir. With no data directory the stores
// stay in memory and history is disabled.
func (c *AppConfig) ApplyDataDir() {
	if c.DataDir == "" {
		return
	}

	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, SQLiteFile)
	}

	if c.KVPath == "" {
		c.KVPath = filepath.Join(c.DataDir, KVDir)
	}

	if c.HistoryPath == "" {
		c.HistoryPath = filepath.Join(c.DataDir, HistoryDir)
	}
}

// Validate checks enumerated values.
func (c *AppConfig) Validate() error {
	switch c.ReportFormat {
	case "json", "yaml":
		return nil
	default:
		return fmt.Errorf("%w: %q (want json or yaml)", ErrInvalidReportFormat, c.ReportFormat)
	}
}

// HostConfig returns the reference host configuration.
func (c *AppConfig) HostConfig() host.LocalConfig {
	return host.LocalConfig{
		SQLitePath: c.SQLitePath,
		KVDir:      c.KVPath,
	}
}

// HistoryEnabled reports whether runs should be recorded.
func (c *AppConfig) HistoryEnabled() bool {
	return c.HistoryPath != ""
}

func (c *AppConfig) String() string {
	return fmt.Sprintf(`Current Configuration:
======================
Data Dir:          %s
SQLite Path:       %s
KV Path:           %s
History Path:      %s
History Retention: %d
Report Format:     %s
Suite Name:        %s`,
		orDefault(c.DataDir, "(in-memory)"),
		orDefault(c.SQLitePath, "(in-memory)"),
		orDefault(c.KVPath, "(in-memory)"),
		orDefault(c.HistoryPath, "(disabled)"),
		c.HistoryRetention,
		c.ReportFormat,
		orDefault(c.SuiteName, "(default)"),
	)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
