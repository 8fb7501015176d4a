// Package main provides the entry point for the gnatsheet CLI.
//
// gnatsheet converts GNATprove textual report files into structured
// spreadsheets and tracks proof progress across runs.
//
// Usage:
//
//	gnatsheet export <report-file>
//	gnatsheet export --out results.xlsx <report-file>
//	gnatsheet compare <report-file>
//
// See --help for all available options.
package main

// main is the entry point for gnatsheet.
func main() {
	Execute()
}
