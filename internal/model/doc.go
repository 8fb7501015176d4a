// Package model defines the data structures that represent a parsed
// GNATprove report: the report itself, the compilation units it covers,
// the analyzed items (subprograms, packages, generic instantiations)
// within each unit, and the suppressed messages attached to items.
//
// The package also provides read-only aggregation helpers (analysis
// classification, per-unit totals, proof ratios) used by the report
// writers. Aggregation never mutates the model.
package model
