// Package report renders a parsed GNATprove report into output
// artifacts.
//
// This package contains writers for different output formats:
//   - ExcelWriter: Three-sheet spreadsheet (Summary, Details,
//     Suppressed Messages), the primary artifact
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: GitHub-flavored markdown tables for sharing
//
// Design decision: We separate rendering from the data structures
// (which are in the model package) so new output formats can be added
// without touching the parser or the model. Writers implement the
// Writer interface, allowing them to be used interchangeably and
// composed for multi-format output.
package report
