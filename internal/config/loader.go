package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".gnatsheet"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .gnatsheet configuration file.
// All fields are optional; absent fields leave the built-in defaults
// (or CLI flags) in effect.
type File struct {
	// Export holds artifact defaults.
	Export ExportConfig `yaml:"export,omitempty"`

	// History holds history database settings.
	History HistoryConfig `yaml:"history,omitempty"`
}

// ExportConfig holds artifact defaults from the config file.
type ExportConfig struct {
	// Format is the default artifact format (xlsx, json, markdown).
	Format string `yaml:"format,omitempty"`

	// Sheet name overrides for the spreadsheet artifact.
	SummarySheet      string `yaml:"summarySheet,omitempty"`
	DetailsSheet      string `yaml:"detailsSheet,omitempty"`
	SuppressionsSheet string `yaml:"suppressionsSheet,omitempty"`
}

// HistoryConfig holds history database settings from the config file.
type HistoryConfig struct {
	// Enabled toggles history recording. Nil means "not set",
	// distinguishing an explicit false from an absent key.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Dir overrides the XDG data directory for the database.
	Dir string `yaml:"dir,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .gnatsheet in the current directory
// 3. Look for .gnatsheet in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ApplyTo copies the file's settings onto cfg. Only fields present in
// the file are applied, so defaults survive an empty file. CLI flags
// are applied after this and win over the file.
func (cf *File) ApplyTo(cfg *Config) {
	if cf.Export.Format != "" {
		cfg.Format = Format(cf.Export.Format)
	}
	if cf.Export.SummarySheet != "" {
		cfg.SummarySheet = cf.Export.SummarySheet
	}
	if cf.Export.DetailsSheet != "" {
		cfg.DetailsSheet = cf.Export.DetailsSheet
	}
	if cf.Export.SuppressionsSheet != "" {
		cfg.SuppressionsSheet = cf.Export.SuppressionsSheet
	}
	if cf.History.Enabled != nil {
		cfg.SaveHistory = *cf.History.Enabled
	}
	if cf.History.Dir != "" {
		cfg.DBDir = cf.History.Dir
	}
}
