package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/gnatsheet/gnatsheet/internal/model"
)

// Default sheet names of the spreadsheet artifact.
const (
	// DefaultSummarySheet holds one row per unit.
	DefaultSummarySheet = "Summary"

	// DefaultDetailsSheet holds one row per analyzed item.
	DefaultDetailsSheet = "Details"

	// DefaultSuppressionsSheet holds one row per suppressed message.
	DefaultSuppressionsSheet = "Suppressed Messages"
)

// percentFormat is the built-in "0%" number format ID used for proof
// ratio cells.
const percentFormat = 9

// ExcelWriter renders the report as a three-sheet xlsx workbook.
// This is the primary artifact of the tool.
//
// Design decision: We build the workbook in memory and stream it to an
// io.Writer rather than saving to a path directly. This keeps the
// writer symmetric with the other formats and testable without
// touching the filesystem.
type ExcelWriter struct {
	baseWriter

	// summarySheet, detailsSheet, and suppressionsSheet name the three
	// sheets of the workbook.
	summarySheet      string
	detailsSheet      string
	suppressionsSheet string
}

// ExcelWriterOption configures an ExcelWriter.
type ExcelWriterOption func(*ExcelWriter)

// WithSheetNames overrides the default sheet names.
func WithSheetNames(summary, details, suppressions string) ExcelWriterOption {
	return func(w *ExcelWriter) {
		w.summarySheet = summary
		w.detailsSheet = details
		w.suppressionsSheet = suppressions
	}
}

// NewExcelWriter creates an ExcelWriter that streams the workbook to
// the given writer.
func NewExcelWriter(output io.Writer, opts ...ExcelWriterOption) *ExcelWriter {
	w := &ExcelWriter{
		baseWriter:        newBaseWriter(output),
		summarySheet:      DefaultSummarySheet,
		detailsSheet:      DefaultDetailsSheet,
		suppressionsSheet: DefaultSuppressionsSheet,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the three sheets and streams the workbook.
func (w *ExcelWriter) Write(report *model.Report) (int, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // In-memory workbook, nothing to release

	// excelize starts every workbook with a default sheet; rename it
	// to the summary sheet instead of leaving it dangling.
	if err := f.SetSheetName("Sheet1", w.summarySheet); err != nil {
		return 0, fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(w.detailsSheet); err != nil {
		return 0, fmt.Errorf("create details sheet: %w", err)
	}
	if _, err := f.NewSheet(w.suppressionsSheet); err != nil {
		return 0, fmt.Errorf("create suppressions sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: percentFormat})
	if err != nil {
		return 0, fmt.Errorf("create percent style: %w", err)
	}

	if err := w.writeSummary(f, report, bold, percent); err != nil {
		return 0, err
	}
	if err := w.writeDetails(f, report, bold, percent); err != nil {
		return 0, err
	}
	if err := w.writeSuppressions(f, report, bold); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w.output)
	if err != nil {
		return int(n), fmt.Errorf("write workbook: %w", err)
	}
	return int(n), nil
}

// writeSummary fills the per-unit summary sheet.
func (w *ExcelWriter) writeSummary(f *excelize.File, report *model.Report, bold, percent int) error {
	headers := []string{
		"Unit Name", "Analyzed", "Flow Errors", "Flow Warnings",
		"Checks", "Proved Checks", "% Proved", "Suppressions",
	}
	if err := writeHeaderRow(f, w.summarySheet, headers, bold); err != nil {
		return err
	}

	for i, unit := range report.Units {
		row := i + 2
		totals := unit.Totals()

		cells := []any{
			unit.Name, unit.AnalyzedLabel(),
			totals.FlowErrors, totals.FlowWarnings,
			totals.Checks, totals.ProvedChecks,
		}
		for col, value := range cells {
			if err := setCell(f, w.summarySheet, col+1, row, value); err != nil {
				return err
			}
		}

		// A unit with zero checks gets no ratio cell: displaying 100%
		// for "nothing to prove" would be misleading in the summary.
		if totals.Checks > 0 {
			if err := setRatioCell(f, w.summarySheet, 7, row, totals.ProofRatio(), percent); err != nil {
				return err
			}
		}
		if err := setCell(f, w.summarySheet, 8, row, totals.Suppressions); err != nil {
			return err
		}
	}
	return nil
}

// writeDetails fills the per-item details sheet.
func (w *ExcelWriter) writeDetails(f *excelize.File, report *model.Report, bold, percent int) error {
	headers := []string{
		"Name", "File", "Line", "Analysis",
		"Flow Errors", "Flow Warnings", "Checks", "Proved Checks", "% Proved",
	}
	if err := writeHeaderRow(f, w.detailsSheet, headers, bold); err != nil {
		return err
	}

	row := 2
	for _, unit := range report.Units {
		for _, item := range unit.Items {
			cells := []any{item.Name, item.FileName, item.LineNumber, item.Analysis().String()}
			for col, value := range cells {
				if err := setCell(f, w.detailsSheet, col+1, row, value); err != nil {
					return err
				}
			}

			// Flow and proof columns stay empty unless the respective
			// analysis actually ran on the item.
			if item.FlowAnalyzed {
				if err := setCell(f, w.detailsSheet, 5, row, item.NumFlowErrors); err != nil {
					return err
				}
				if err := setCell(f, w.detailsSheet, 6, row, item.NumFlowWarnings); err != nil {
					return err
				}
			}
			if item.Proved {
				if err := setCell(f, w.detailsSheet, 7, row, item.NumChecks); err != nil {
					return err
				}
				if err := setCell(f, w.detailsSheet, 8, row, item.NumProvedChecks); err != nil {
					return err
				}
				if item.NumChecks > 0 {
					if err := setRatioCell(f, w.detailsSheet, 9, row, item.ProofRatio(), percent); err != nil {
						return err
					}
				}
			}
			row++
		}
	}
	return nil
}

// writeSuppressions fills the suppressed-messages sheet.
func (w *ExcelWriter) writeSuppressions(f *excelize.File, report *model.Report, bold int) error {
	headers := []string{"Name", "File", "Line", "Column", "Reason"}
	if err := writeHeaderRow(f, w.suppressionsSheet, headers, bold); err != nil {
		return err
	}

	row := 2
	for _, unit := range report.Units {
		for _, item := range unit.Items {
			for _, s := range item.Suppressions {
				cells := []any{item.Name, s.FileName, s.LineNumber, s.Column, s.Message}
				for col, value := range cells {
					if err := setCell(f, w.suppressionsSheet, col+1, row, value); err != nil {
						return err
					}
				}
				row++
			}
		}
	}
	return nil
}

// writeHeaderRow writes a bold header row into row 1 of the sheet.
func writeHeaderRow(f *excelize.File, sheet string, headers []string, bold int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s!%s: %w", sheet, cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, bold); err != nil {
			return fmt.Errorf("style header %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// setCell writes one value by column/row coordinates.
func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// setRatioCell writes a proof ratio with the percent number format.
func setRatioCell(f *excelize.File, sheet string, col, row int, ratio float64, percent int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, ratio); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, percent); err != nil {
		return fmt.Errorf("style %s!%s: %w", sheet, cell, err)
	}
	return nil
}
