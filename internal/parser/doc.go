// Package parser extracts the structured report model from GNATprove's
// textual report format.
//
// The format is line oriented and indentation sensitive, with no
// explicit delimiters between sections. The parser reads one line at a
// time, matches it against an ordered table of line patterns, and
// tracks the unit and item under construction across lines. Lines that
// match no pattern are narrative text and are skipped.
package parser
