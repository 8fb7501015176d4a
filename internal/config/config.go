package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Format identifies an output artifact format.
type Format string

// Supported output formats.
const (
	// FormatExcel is the three-sheet xlsx workbook, the primary artifact.
	FormatExcel Format = "xlsx"

	// FormatJSON is structured JSON for tool integration.
	FormatJSON Format = "json"

	// FormatMarkdown is GitHub-flavored markdown tables.
	FormatMarkdown Format = "markdown"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "gnatsheet"

	// DefaultFormat is used when neither a flag nor the output file
	// extension determines the format.
	DefaultFormat = FormatExcel

	// DefaultConcurrency bounds how many report files are processed in
	// parallel when several are passed on one invocation. Parsing is
	// cheap, so a small bound keeps file handles and memory modest
	// without serializing large batches.
	DefaultConcurrency = 4

	// Default sheet names of the spreadsheet artifact. These mirror
	// the report package defaults and can be overridden via the
	// config file.
	DefaultSummarySheet      = "Summary"
	DefaultDetailsSheet      = "Details"
	DefaultSuppressionsSheet = "Suppressed Messages"
)

// Config holds all configuration options for gnatsheet.
//
// Design decision: We use a single flat struct instead of nested
// structs for simplicity. The number of options is manageable, and
// nesting would add complexity without significant benefit.
type Config struct {
	// Inputs are the GNATprove report files to process, in CLI order.
	Inputs []string

	// OutputPath is where the artifact is written. Empty means parse
	// only: the report is still parsed (and recorded in history) but
	// no artifact is produced. With multiple inputs this names a
	// directory instead of a file.
	OutputPath string

	// Format selects the artifact format.
	Format Format

	// SummarySheet, DetailsSheet, and SuppressionsSheet name the three
	// sheets of the spreadsheet artifact.
	SummarySheet      string
	DetailsSheet      string
	SuppressionsSheet string

	// ConfigFilePath is an explicit config file path from the CLI.
	// Empty means search the default locations.
	ConfigFilePath string

	// SaveHistory controls whether each parsed report is recorded in
	// the history database for later comparison.
	SaveHistory bool

	// DBDir is the directory holding the history database.
	DBDir string

	// Concurrency bounds parallel processing of multiple inputs.
	Concurrency int
}

// NewConfig creates a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Format:            DefaultFormat,
		SummarySheet:      DefaultSummarySheet,
		DetailsSheet:      DefaultDetailsSheet,
		SuppressionsSheet: DefaultSuppressionsSheet,
		SaveHistory:       true,
		DBDir:             XDGDataDir(),
		Concurrency:       DefaultConcurrency,
	}
}

// Validate checks the configuration for consistency.
// It returns one of the package sentinel errors on failure.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}

	switch c.Format {
	case FormatExcel, FormatJSON, FormatMarkdown:
	default:
		return ErrUnknownFormat
	}

	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	if c.SummarySheet == "" || c.DetailsSheet == "" || c.SuppressionsSheet == "" {
		return ErrEmptySheetName
	}
	if c.SummarySheet == c.DetailsSheet ||
		c.SummarySheet == c.SuppressionsSheet ||
		c.DetailsSheet == c.SuppressionsSheet {
		return ErrDuplicateSheetName
	}

	return nil
}

// FormatFromPath infers the artifact format from a file extension.
// It returns "" when the extension matches no known format, so callers
// can fall back to the default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatExcel
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return ""
	}
}

// Extension returns the file extension for the format, with dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".xlsx"
	}
}

// XDGDataDir returns the XDG data directory for gnatsheet, used for
// the history database.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}
