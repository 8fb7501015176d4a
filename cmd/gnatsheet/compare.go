package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnatsheet/gnatsheet/internal/config"
	"github.com/gnatsheet/gnatsheet/internal/database"
	"github.com/gnatsheet/gnatsheet/internal/model"
)

// Constants for proof progress direction.
const (
	progressImproved  = "improved"
	progressRegressed = "regressed"
	progressUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares runs recorded in the history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [report-file]",
		Short: "Compare proof progress between recorded runs",
		Long: `Compare displays differences between the latest two recorded runs of a
report file: changes in proved checks, flow messages and suppressions,
plus units that appeared or disappeared.

Runs are recorded by 'gnatsheet export' (unless --no-history is given),
so at least two exports of the report are required.

Examples:
  # Compare the latest two runs of a report
  gnatsheet compare obj/gnatprove/gnatprove.out

  # List recorded runs for a report
  gnatsheet compare --list obj/gnatprove/gnatprove.out

  # Compare with a specific run by ID
  gnatsheet compare --with-run-id 5 obj/gnatprove/gnatprove.out

  # Compare with the first run after a date
  gnatsheet compare --since "2025-01-01" obj/gnatprove/gnatprove.out

  # Output the comparison in JSON format
  gnatsheet compare --json obj/gnatprove/gnatprove.out

  # List all tracked report files
  gnatsheet compare --list-reports`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List recorded runs for the specified report file")
	cmd.Flags().BoolP("list-reports", "L", false,
		"List all report files tracked in the history database")

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listReports, err := cmd.Flags().GetBool("list-reports")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database (unless
	// --list-reports, which needs no report path).
	var key string
	if !listReports {
		if len(args) == 0 {
			return errors.New("report file is required (use --list-reports to see tracked reports)")
		}
		key, err = historyKey(args[0])
		if err != nil {
			return err
		}
	}

	db, err := database.Open(historyDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only use

	ctx := context.Background()

	if listReports {
		return listTrackedReports(ctx, db)
	}

	listRuns, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listRuns {
		return listRunHistory(ctx, db, key)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, key, withRunID, sinceDate, jsonOutput, markdownOutput)
}

// historyDir returns the history database directory, honoring a
// .gnatsheet config file override when one is present.
func historyDir() string {
	if path := config.FindConfigFile(""); path != "" {
		if cf, err := config.LoadConfigFile(path); err == nil && cf.History.Dir != "" {
			return cf.History.Dir
		}
	}
	return config.XDGDataDir()
}

// listTrackedReports lists all report files with recorded runs.
func listTrackedReports(ctx context.Context, db *database.HistoryDB) error {
	paths, err := db.ListReportPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(paths) == 0 {
		fmt.Println("No tracked reports found in the history database.")
		fmt.Println("\nUse 'gnatsheet export <report-file>' to record a run.")
		return nil
	}

	fmt.Printf("Tracked reports (%d):\n\n", len(paths))
	for _, path := range paths {
		fmt.Printf("  • %s\n", path)
	}
	fmt.Println("\nUse 'gnatsheet compare --list <report-file>' to see recorded runs.")

	return nil
}

// listRunHistory lists all recorded runs for a report file.
func listRunHistory(ctx context.Context, db *database.HistoryDB, key string) error {
	runs, err := db.ListRuns(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No recorded runs found for %s\n", key)
		fmt.Println("\nUse 'gnatsheet export' to record a run.")
		return nil
	}

	fmt.Printf("Recorded runs for %s (%d runs):\n\n", key, len(runs))
	fmt.Printf("  %-6s  %-20s  %-6s  %-14s  %s\n", "ID", "Date", "Units", "Proved", "Suppressions")
	fmt.Println("  " + strings.Repeat("-", 64))

	for _, run := range runs {
		fmt.Printf("  %-6d  %-20s  %-6d  %-14s  %d\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.UnitCount,
			fmt.Sprintf("%d/%d", run.Totals.ProvedChecks, run.Totals.Checks),
			run.Totals.Suppressions,
		)
	}

	fmt.Println("\nUse 'gnatsheet compare <report-file>' to compare the latest two runs.")
	fmt.Println("Use 'gnatsheet compare --with-run-id <id> <report-file>' to compare with a specific run.")

	return nil
}

// runComparison performs the actual comparison between recorded runs.
func runComparison(ctx context.Context, db *database.HistoryDB, key string, withRunID int64, sinceDate string, jsonOutput, markdownOutput bool) error {
	runs, err := db.GetRunHistory(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		return fmt.Errorf("no recorded runs found for %s", key)
	}
	if len(runs) < 2 && withRunID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// The latest run is always the current one.
	current := runs[0]
	var previous *database.Run

	switch {
	case withRunID > 0:
		previous, err = db.GetRunByID(ctx, withRunID)
		if err != nil {
			return fmt.Errorf("failed to get run with ID %d: %w", withRunID, err)
		}
		if previous == nil {
			return fmt.Errorf("run with ID %d not found", withRunID)
		}
		if previous.ReportPath != key {
			return fmt.Errorf("run ID %d belongs to %s, not %s", withRunID, previous.ReportPath, key)
		}
	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Runs are sorted newest first, so iterate in reverse to find
		// the oldest run at or after the date.
		for i := len(runs) - 1; i >= 0; i-- {
			run := runs[i]
			if run.CreatedAt.After(parsedDate) || run.CreatedAt.Equal(parsedDate) {
				previous = run
				break
			}
		}
		if previous == nil {
			return fmt.Errorf("no runs found since %s", sinceDate)
		}
		if previous == current {
			return fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", sinceDate)
		}
	default:
		previous = runs[1]
	}

	comparison := compareRuns(previous, current)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two recorded runs.
type ComparisonResult struct {
	// ReportPath is the report file whose runs are compared.
	ReportPath string `json:"report_path"`

	// Previous and Current summarize the two compared runs.
	Previous RunSummary `json:"previous"`
	Current  RunSummary `json:"current"`

	// NewUnits lists units present only in the current run.
	NewUnits []string `json:"new_units,omitempty"`

	// RemovedUnits lists units present only in the previous run.
	RemovedUnits []string `json:"removed_units,omitempty"`

	// ChangedUnits lists units whose totals differ between the runs.
	ChangedUnits []UnitDelta `json:"changed_units,omitempty"`

	// Progress describes the overall change in proof results.
	Progress Progress `json:"progress"`
}

// RunSummary contains metadata about one run for comparison display.
type RunSummary struct {
	// RunID is the history database ID of the run.
	RunID int64 `json:"run_id"`

	// CreatedAt is when the run was recorded.
	CreatedAt time.Time `json:"created_at"`

	// UnitCount is the number of units in the run's report.
	UnitCount int `json:"unit_count"`

	// Totals are the report-wide aggregate totals.
	Totals model.Totals `json:"totals"`

	// ProofRatio is the report-wide proved/checks ratio.
	ProofRatio float64 `json:"proof_ratio"`
}

// Progress describes the change in proof results between runs.
type Progress struct {
	// Direction is "improved", "regressed", or "unchanged".
	Direction string `json:"direction"`

	// Deltas are current minus previous for each metric.
	FlowErrorsDelta   int `json:"flow_errors_delta"`
	FlowWarningsDelta int `json:"flow_warnings_delta"`
	ChecksDelta       int `json:"checks_delta"`
	ProvedChecksDelta int `json:"proved_checks_delta"`
	SuppressionsDelta int `json:"suppressions_delta"`

	// ProofRatioDelta is the change in the report-wide proof ratio.
	ProofRatioDelta float64 `json:"proof_ratio_delta"`
}

// UnitDelta describes how one unit's totals changed between runs.
type UnitDelta struct {
	// Name is the unit name.
	Name string `json:"name"`

	// Deltas are current minus previous for each metric.
	FlowErrorsDelta   int `json:"flow_errors_delta"`
	FlowWarningsDelta int `json:"flow_warnings_delta"`
	ChecksDelta       int `json:"checks_delta"`
	ProvedChecksDelta int `json:"proved_checks_delta"`
	SuppressionsDelta int `json:"suppressions_delta"`
}

// compareRuns compares two recorded runs and generates a comparison result.
func compareRuns(previous, current *database.Run) *ComparisonResult {
	result := &ComparisonResult{
		ReportPath: current.ReportPath,
		Previous:   newRunSummary(previous),
		Current:    newRunSummary(current),
	}

	previousUnits := unitTotals(previous.Report)
	currentUnits := unitTotals(current.Report)

	for name, currentTotals := range currentUnits {
		previousTotals, exists := previousUnits[name]
		switch {
		case !exists:
			result.NewUnits = append(result.NewUnits, name)
		case currentTotals != previousTotals:
			result.ChangedUnits = append(result.ChangedUnits, UnitDelta{
				Name:              name,
				FlowErrorsDelta:   currentTotals.FlowErrors - previousTotals.FlowErrors,
				FlowWarningsDelta: currentTotals.FlowWarnings - previousTotals.FlowWarnings,
				ChecksDelta:       currentTotals.Checks - previousTotals.Checks,
				ProvedChecksDelta: currentTotals.ProvedChecks - previousTotals.ProvedChecks,
				SuppressionsDelta: currentTotals.Suppressions - previousTotals.Suppressions,
			})
		}
	}
	for name := range previousUnits {
		if _, exists := currentUnits[name]; !exists {
			result.RemovedUnits = append(result.RemovedUnits, name)
		}
	}

	// Map iteration order is random; sort for stable output.
	sort.Strings(result.NewUnits)
	sort.Strings(result.RemovedUnits)
	sort.Slice(result.ChangedUnits, func(i, j int) bool {
		return result.ChangedUnits[i].Name < result.ChangedUnits[j].Name
	})

	result.Progress = calculateProgress(result.Previous, result.Current)
	return result
}

// newRunSummary extracts display metadata from a recorded run.
func newRunSummary(run *database.Run) RunSummary {
	return RunSummary{
		RunID:      run.ID,
		CreatedAt:  run.CreatedAt,
		UnitCount:  run.UnitCount,
		Totals:     run.Totals,
		ProofRatio: run.Totals.ProofRatio(),
	}
}

// unitTotals maps unit names to their totals. A nil report yields an
// empty map, which compares as "all units removed/new".
func unitTotals(report *model.Report) map[string]model.Totals {
	totals := make(map[string]model.Totals)
	if report == nil {
		return totals
	}
	for _, unit := range report.Units {
		totals[unit.Name] = unit.Totals()
	}
	return totals
}

// calculateProgress derives the overall direction from the proof
// ratio, falling back to flow message counts when the ratio is flat.
func calculateProgress(previous, current RunSummary) Progress {
	progress := Progress{
		FlowErrorsDelta:   current.Totals.FlowErrors - previous.Totals.FlowErrors,
		FlowWarningsDelta: current.Totals.FlowWarnings - previous.Totals.FlowWarnings,
		ChecksDelta:       current.Totals.Checks - previous.Totals.Checks,
		ProvedChecksDelta: current.Totals.ProvedChecks - previous.Totals.ProvedChecks,
		SuppressionsDelta: current.Totals.Suppressions - previous.Totals.Suppressions,
		ProofRatioDelta:   current.ProofRatio - previous.ProofRatio,
	}

	const epsilon = 1e-9
	switch {
	case progress.ProofRatioDelta > epsilon:
		progress.Direction = progressImproved
	case progress.ProofRatioDelta < -epsilon:
		progress.Direction = progressRegressed
	default:
		flowDelta := progress.FlowErrorsDelta + progress.FlowWarningsDelta
		switch {
		case flowDelta < 0:
			progress.Direction = progressImproved
		case flowDelta > 0:
			progress.Direction = progressRegressed
		default:
			progress.Direction = progressUnchanged
		}
	}

	return progress
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Proof Progress: %s\n\n", result.ReportPath)

	fmt.Println("## Summary")
	fmt.Printf("\n**Status:** %s\n\n", formatProgressDirection(result.Progress.Direction))

	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.Previous.CreatedAt.Format("2006-01-02 15:04"),
		result.Current.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("| Units | %d | %d | %s |\n",
		result.Previous.UnitCount, result.Current.UnitCount,
		formatDelta(result.Current.UnitCount-result.Previous.UnitCount))
	fmt.Printf("| Proved Checks | %d | %d | %s |\n",
		result.Previous.Totals.ProvedChecks, result.Current.Totals.ProvedChecks,
		formatDelta(result.Progress.ProvedChecksDelta))
	fmt.Printf("| Checks | %d | %d | %s |\n",
		result.Previous.Totals.Checks, result.Current.Totals.Checks,
		formatDelta(result.Progress.ChecksDelta))
	fmt.Printf("| %% Proved | %.1f%% | %.1f%% | %+.1f%% |\n",
		result.Previous.ProofRatio*100, result.Current.ProofRatio*100,
		result.Progress.ProofRatioDelta*100)
	fmt.Printf("| Flow Errors | %d | %d | %s |\n",
		result.Previous.Totals.FlowErrors, result.Current.Totals.FlowErrors,
		formatDelta(result.Progress.FlowErrorsDelta))
	fmt.Printf("| Flow Warnings | %d | %d | %s |\n",
		result.Previous.Totals.FlowWarnings, result.Current.Totals.FlowWarnings,
		formatDelta(result.Progress.FlowWarningsDelta))
	fmt.Printf("| Suppressions | %d | %d | %s |\n",
		result.Previous.Totals.Suppressions, result.Current.Totals.Suppressions,
		formatDelta(result.Progress.SuppressionsDelta))

	if len(result.NewUnits) > 0 {
		fmt.Printf("\n## New Units (%d)\n\n", len(result.NewUnits))
		for _, name := range result.NewUnits {
			fmt.Printf("- `%s`\n", name)
		}
	}
	if len(result.RemovedUnits) > 0 {
		fmt.Printf("\n## Removed Units (%d)\n\n", len(result.RemovedUnits))
		for _, name := range result.RemovedUnits {
			fmt.Printf("- `%s`\n", name)
		}
	}
	if len(result.ChangedUnits) > 0 {
		fmt.Printf("\n## Changed Units (%d)\n\n", len(result.ChangedUnits))
		fmt.Println("| Unit | Proved Checks | Checks | Flow Errors | Flow Warnings | Suppressions |")
		fmt.Println("|------|---------------|--------|-------------|---------------|--------------|")
		for _, delta := range result.ChangedUnits {
			fmt.Printf("| `%s` | %s | %s | %s | %s | %s |\n",
				delta.Name,
				formatDelta(delta.ProvedChecksDelta),
				formatDelta(delta.ChecksDelta),
				formatDelta(delta.FlowErrorsDelta),
				formatDelta(delta.FlowWarningsDelta),
				formatDelta(delta.SuppressionsDelta))
		}
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Proof Progress: %s\n", result.ReportPath)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nStatus: %s\n", formatProgressDirection(result.Progress.Direction))

	fmt.Printf("\nPrevious run: %s (ID %d)\n", result.Previous.CreatedAt.Format("2006-01-02 15:04:05"), result.Previous.RunID)
	fmt.Printf("Current run:  %s (ID %d)\n", result.Current.CreatedAt.Format("2006-01-02 15:04:05"), result.Current.RunID)

	fmt.Println("\nResults Summary:")
	fmt.Printf("  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 50))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Units",
		result.Previous.UnitCount, result.Current.UnitCount,
		formatDelta(result.Current.UnitCount-result.Previous.UnitCount))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Proved Checks",
		result.Previous.Totals.ProvedChecks, result.Current.Totals.ProvedChecks,
		formatDelta(result.Progress.ProvedChecksDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Checks",
		result.Previous.Totals.Checks, result.Current.Totals.Checks,
		formatDelta(result.Progress.ChecksDelta))
	fmt.Printf("  %-14s  %-10s  %-10s  %+.1f%%\n", "% Proved",
		fmt.Sprintf("%.1f%%", result.Previous.ProofRatio*100),
		fmt.Sprintf("%.1f%%", result.Current.ProofRatio*100),
		result.Progress.ProofRatioDelta*100)
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Flow Errors",
		result.Previous.Totals.FlowErrors, result.Current.Totals.FlowErrors,
		formatDelta(result.Progress.FlowErrorsDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Flow Warnings",
		result.Previous.Totals.FlowWarnings, result.Current.Totals.FlowWarnings,
		formatDelta(result.Progress.FlowWarningsDelta))
	fmt.Printf("  %-14s  %-10d  %-10d  %-10s\n", "Suppressions",
		result.Previous.Totals.Suppressions, result.Current.Totals.Suppressions,
		formatDelta(result.Progress.SuppressionsDelta))

	if len(result.NewUnits) > 0 {
		fmt.Printf("\nNew Units (%d):\n", len(result.NewUnits))
		for _, name := range result.NewUnits {
			fmt.Printf("  [+] %s\n", name)
		}
	}
	if len(result.RemovedUnits) > 0 {
		fmt.Printf("\nRemoved Units (%d):\n", len(result.RemovedUnits))
		for _, name := range result.RemovedUnits {
			fmt.Printf("  [-] %s\n", name)
		}
	}
	if len(result.ChangedUnits) > 0 {
		fmt.Printf("\nChanged Units (%d):\n", len(result.ChangedUnits))
		for _, delta := range result.ChangedUnits {
			fmt.Printf("  [~] %s: proved %s, checks %s, flow errors %s, flow warnings %s, suppressions %s\n",
				delta.Name,
				formatDelta(delta.ProvedChecksDelta),
				formatDelta(delta.ChecksDelta),
				formatDelta(delta.FlowErrorsDelta),
				formatDelta(delta.FlowWarningsDelta),
				formatDelta(delta.SuppressionsDelta))
		}
	}

	return nil
}

// formatProgressDirection formats the progress direction for display.
func formatProgressDirection(direction string) string {
	switch direction {
	case progressImproved:
		return "IMPROVED (more checks proved)"
	case progressRegressed:
		return "REGRESSED (fewer checks proved)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
