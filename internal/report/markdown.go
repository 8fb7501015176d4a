package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/gnatsheet/gnatsheet/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation, code review comments, and
// sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown output
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report as the same three tables the spreadsheet
// carries: unit summary, item details, and suppressed messages.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("GNATprove Analysis Report")
	if report.NumUnitsAnalyzed != nil {
		md.PlainTextf("Analyzed %d units.", *report.NumUnitsAnalyzed)
	}
	md.PlainText("")

	w.writeSummary(md, report)
	w.writeDetails(md, report)
	w.writeSuppressions(md, report)

	return len(md.String()), md.Build()
}

// writeSummary writes the per-unit summary table.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Summary")

	rows := make([][]string, 0, len(report.Units))
	for _, unit := range report.Units {
		totals := unit.Totals()
		ratio := ""
		if totals.Checks > 0 {
			ratio = formatRatio(totals.ProofRatio())
		}
		rows = append(rows, []string{
			unit.Name,
			unit.AnalyzedLabel(),
			strconv.Itoa(totals.FlowErrors),
			strconv.Itoa(totals.FlowWarnings),
			strconv.Itoa(totals.Checks),
			strconv.Itoa(totals.ProvedChecks),
			ratio,
			strconv.Itoa(totals.Suppressions),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Unit Name", "Analyzed", "Flow Errors", "Flow Warnings", "Checks", "Proved Checks", "% Proved", "Suppressions"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeDetails writes the per-item details table.
func (w *MarkdownWriter) writeDetails(md *markdown.Markdown, report *model.Report) {
	md.H2("Details")

	var rows [][]string
	for _, unit := range report.Units {
		for _, item := range unit.Items {
			flowErrors, flowWarnings := "", ""
			if item.FlowAnalyzed {
				flowErrors = strconv.Itoa(item.NumFlowErrors)
				flowWarnings = strconv.Itoa(item.NumFlowWarnings)
			}
			checks, provedChecks, ratio := "", "", ""
			if item.Proved {
				checks = strconv.Itoa(item.NumChecks)
				provedChecks = strconv.Itoa(item.NumProvedChecks)
				if item.NumChecks > 0 {
					ratio = formatRatio(item.ProofRatio())
				}
			}
			rows = append(rows, []string{
				item.Name,
				item.FileName,
				strconv.Itoa(item.LineNumber),
				item.Analysis().String(),
				flowErrors,
				flowWarnings,
				checks,
				provedChecks,
				ratio,
			})
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Name", "File", "Line", "Analysis", "Flow Errors", "Flow Warnings", "Checks", "Proved Checks", "% Proved"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSuppressions writes the suppressed-messages table, or a note
// when the report carries none.
func (w *MarkdownWriter) writeSuppressions(md *markdown.Markdown, report *model.Report) {
	md.H2("Suppressed Messages")

	var rows [][]string
	for _, unit := range report.Units {
		for _, item := range unit.Items {
			for _, s := range item.Suppressions {
				rows = append(rows, []string{
					item.Name,
					s.FileName,
					strconv.Itoa(s.LineNumber),
					strconv.Itoa(s.Column),
					s.Message,
				})
			}
		}
	}

	if len(rows) == 0 {
		md.PlainText("No suppressed messages.")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Name", "File", "Line", "Column", "Reason"},
		Rows:   rows,
	})
}

// formatRatio renders a proof ratio as a whole percentage, e.g. "40%".
func formatRatio(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}
