package parser

import "errors"

// Parse errors for structurally invalid reports.
// These errors are wrapped with the offending line number, so callers
// should match them with errors.Is().
//
// Design decision: Free-text narrative lines between sections are
// expected and silently skipped, so "unrecognized line" is not an
// error. Only lines that break the hierarchy (content appearing before
// the context it attaches to) or that carry unusable numbers are fatal.
var (
	// ErrOrphanSuppression is returned when a suppressed-message line
	// appears while no item is under construction, either because no
	// unit header has been seen or because the current unit has no
	// items yet. A suppression must attach to the most recent item.
	ErrOrphanSuppression = errors.New("suppressed message without a preceding item")

	// ErrItemOutsideUnit is returned when an item line appears before
	// any unit header. Items are owned by units and cannot exist
	// outside one.
	ErrItemOutsideUnit = errors.New("item without a preceding unit header")

	// ErrBadCount is returned when a numeric capture cannot be
	// represented as an int. The patterns only capture digit runs, so
	// this occurs on overflow.
	ErrBadCount = errors.New("count out of range")
)
