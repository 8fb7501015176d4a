package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to
// use errors.Is() for programmatic error handling while still
// providing human-readable messages.
var (
	// ErrNoInput is returned when no report file is specified.
	ErrNoInput = errors.New("no input specified: provide at least one GNATprove report file")

	// ErrUnknownFormat is returned when the output format is not one
	// of xlsx, json, or markdown.
	ErrUnknownFormat = errors.New("unknown output format: must be xlsx, json, or markdown")

	// ErrInvalidConcurrency is returned when the concurrency bound is
	// not positive. A bound of zero would process nothing.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrEmptySheetName is returned when a sheet name override is
	// empty. Spreadsheet sheets must be named.
	ErrEmptySheetName = errors.New("empty sheet name: all three sheet names are required")

	// ErrDuplicateSheetName is returned when two sheet name overrides
	// collide. Workbook sheet names must be unique.
	ErrDuplicateSheetName = errors.New("duplicate sheet name: the three sheet names must differ")
)
