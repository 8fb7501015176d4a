package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gnatsheet/gnatsheet/internal/database"
	"github.com/gnatsheet/gnatsheet/internal/model"
)

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	if cmd.Use != "compare [report-file]" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}
	if cmd.Short == "" {
		t.Error("expected non-empty Short description")
	}
	if cmd.Long == "" {
		t.Error("expected non-empty Long description")
	}

	// Verify flags exist with their short options
	flagsWithShort := map[string]string{
		"list":         "l",
		"list-reports": "L",
		"with-run-id":  "i",
		"since":        "s",
		"json":         "j",
		"markdown":     "m",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
}

// compareRun builds a recorded run for comparison tests.
func compareRun(id int64, createdAt time.Time, units map[string]model.Totals) *database.Run {
	report := &model.Report{}
	var totals model.Totals
	for name, unitTotals := range units {
		report.Units = append(report.Units, &model.Unit{
			Name:        name,
			NumAnalyzed: 1,
			NumTotal:    1,
			Items: []*model.Item{
				{
					Name:             name + ".Op",
					FileName:         "op.adb",
					LineNumber:       1,
					FlowAnalyzed:     true,
					NumFlowErrors:    unitTotals.FlowErrors,
					NumFlowWarnings:  unitTotals.FlowWarnings,
					Proved:           true,
					NumChecks:        unitTotals.Checks,
					NumProvedChecks:  unitTotals.ProvedChecks,
					Suppressions:     make([]model.Suppression, unitTotals.Suppressions),
				},
			},
		})
		totals = model.Totals{
			FlowErrors:   totals.FlowErrors + unitTotals.FlowErrors,
			FlowWarnings: totals.FlowWarnings + unitTotals.FlowWarnings,
			Checks:       totals.Checks + unitTotals.Checks,
			ProvedChecks: totals.ProvedChecks + unitTotals.ProvedChecks,
			Suppressions: totals.Suppressions + unitTotals.Suppressions,
		}
	}
	return &database.Run{
		ID:         id,
		ReportPath: "/work/gnatprove.out",
		CreatedAt:  createdAt,
		UnitCount:  len(units),
		Totals:     totals,
		Report:     report,
	}
}

func TestCompareRuns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		previous      map[string]model.Totals
		current       map[string]model.Totals
		wantNew       int
		wantRemoved   int
		wantChanged   int
		wantDirection string
	}{
		{
			name:          "no changes when totals are identical",
			previous:      map[string]model.Totals{"Foo": {Checks: 5, ProvedChecks: 3}},
			current:       map[string]model.Totals{"Foo": {Checks: 5, ProvedChecks: 3}},
			wantDirection: progressUnchanged,
		},
		{
			name:          "detects new units",
			previous:      map[string]model.Totals{"Foo": {Checks: 5, ProvedChecks: 5}},
			current:       map[string]model.Totals{"Foo": {Checks: 5, ProvedChecks: 5}, "Bar": {Checks: 2, ProvedChecks: 2}},
			wantNew:       1,
			wantDirection: progressUnchanged,
		},
		{
			name:          "detects removed units",
			previous:      map[string]model.Totals{"Foo": {Checks: 5, ProvedChecks: 5}, "Bar": {Checks: 2, ProvedChecks: 2}},
			current:       map[string]model.Totals{"Foo": {Checks: 5, ProvedChecks: 5}},
			wantRemoved:   1,
			wantDirection: progressUnchanged,
		},
		{
			name:          "improved when more checks proved",
			previous:      map[string]model.Totals{"Foo": {Checks: 10, ProvedChecks: 4}},
			current:       map[string]model.Totals{"Foo": {Checks: 10, ProvedChecks: 8}},
			wantChanged:   1,
			wantDirection: progressImproved,
		},
		{
			name:          "regressed when fewer checks proved",
			previous:      map[string]model.Totals{"Foo": {Checks: 10, ProvedChecks: 8}},
			current:       map[string]model.Totals{"Foo": {Checks: 10, ProvedChecks: 4}},
			wantChanged:   1,
			wantDirection: progressRegressed,
		},
		{
			name:          "flat ratio falls back to flow messages",
			previous:      map[string]model.Totals{"Foo": {Checks: 4, ProvedChecks: 4, FlowWarnings: 3}},
			current:       map[string]model.Totals{"Foo": {Checks: 4, ProvedChecks: 4, FlowWarnings: 1}},
			wantChanged:   1,
			wantDirection: progressImproved,
		},
	}

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			previous := compareRun(1, base, tt.previous)
			current := compareRun(2, base.Add(24*time.Hour), tt.current)

			result := compareRuns(previous, current)

			if len(result.NewUnits) != tt.wantNew {
				t.Errorf("NewUnits count: got %d, want %d", len(result.NewUnits), tt.wantNew)
			}
			if len(result.RemovedUnits) != tt.wantRemoved {
				t.Errorf("RemovedUnits count: got %d, want %d", len(result.RemovedUnits), tt.wantRemoved)
			}
			if len(result.ChangedUnits) != tt.wantChanged {
				t.Errorf("ChangedUnits count: got %d, want %d", len(result.ChangedUnits), tt.wantChanged)
			}
			if result.Progress.Direction != tt.wantDirection {
				t.Errorf("Progress.Direction: got %q, want %q", result.Progress.Direction, tt.wantDirection)
			}
		})
	}
}

func TestCompareRunsDeltas(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	previous := compareRun(1, base, map[string]model.Totals{
		"Foo": {Checks: 10, ProvedChecks: 4, FlowErrors: 2, FlowWarnings: 1, Suppressions: 1},
	})
	current := compareRun(2, base.Add(time.Hour), map[string]model.Totals{
		"Foo": {Checks: 12, ProvedChecks: 9, FlowErrors: 0, FlowWarnings: 2, Suppressions: 1},
	})

	result := compareRuns(previous, current)

	if len(result.ChangedUnits) != 1 {
		t.Fatalf("got %d changed units, expected 1", len(result.ChangedUnits))
	}
	delta := result.ChangedUnits[0]
	if delta.Name != "Foo" {
		t.Errorf("got unit %q, expected Foo", delta.Name)
	}
	if delta.ChecksDelta != 2 || delta.ProvedChecksDelta != 5 {
		t.Errorf("got checks delta %d / proved delta %d, expected 2 / 5", delta.ChecksDelta, delta.ProvedChecksDelta)
	}
	if delta.FlowErrorsDelta != -2 || delta.FlowWarningsDelta != 1 {
		t.Errorf("got flow deltas %d / %d, expected -2 / 1", delta.FlowErrorsDelta, delta.FlowWarningsDelta)
	}
	if result.Progress.ProofRatioDelta <= 0 {
		t.Errorf("expected positive proof ratio delta, got %f", result.Progress.ProofRatioDelta)
	}
}

func TestCompareRunsSortsUnitLists(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	previous := compareRun(1, base, map[string]model.Totals{})
	current := compareRun(2, base.Add(time.Hour), map[string]model.Totals{
		"Zulu": {Checks: 1, ProvedChecks: 1},
		"Alfa": {Checks: 1, ProvedChecks: 1},
		"Mike": {Checks: 1, ProvedChecks: 1},
	})

	result := compareRuns(previous, current)

	want := []string{"Alfa", "Mike", "Zulu"}
	if len(result.NewUnits) != len(want) {
		t.Fatalf("got %d new units, expected %d", len(result.NewUnits), len(want))
	}
	for i, name := range want {
		if result.NewUnits[i] != name {
			t.Errorf("NewUnits[%d] = %q, want %q", i, result.NewUnits[i], name)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		delta int
		want  string
	}{
		{name: "positive delta", delta: 5, want: "+5"},
		{name: "negative delta", delta: -3, want: "-3"},
		{name: "zero delta", delta: 0, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatDelta(tt.delta)
			if got != tt.want {
				t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
			}
		})
	}
}

func TestFormatProgressDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		direction string
		want      string
	}{
		{progressImproved, "IMPROVED (more checks proved)"},
		{progressRegressed, "REGRESSED (fewer checks proved)"},
		{progressUnchanged, "UNCHANGED"},
		{"unknown", "UNCHANGED"},
	}

	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			t.Parallel()

			got := formatProgressDirection(tt.direction)
			if got != tt.want {
				t.Errorf("formatProgressDirection(%q) = %q, want %q", tt.direction, got, tt.want)
			}
		})
	}
}

// captureStdout runs fn with os.Stdout redirected to a pipe and
// returns everything it printed.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = oldStdout

	if fnErr != nil {
		t.Fatalf("unexpected error: %v", fnErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	return buf.String()
}

func TestOutputComparisonText(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	previous := compareRun(1, base, map[string]model.Totals{
		"Foo": {Checks: 10, ProvedChecks: 4},
		"Old": {Checks: 1, ProvedChecks: 1},
	})
	current := compareRun(2, base.Add(24*time.Hour), map[string]model.Totals{
		"Foo": {Checks: 10, ProvedChecks: 8},
		"New": {Checks: 2, ProvedChecks: 2},
	})
	result := compareRuns(previous, current)

	output := captureStdout(t, func() error {
		return outputComparisonText(result)
	})

	expectedStrings := []string{
		"/work/gnatprove.out",
		"IMPROVED",
		"Proved Checks",
		"New Units (1)",
		"[+] New",
		"Removed Units (1)",
		"[-] Old",
		"Changed Units (1)",
		"[~] Foo",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("output missing expected string: %q", expected)
		}
	}
}

func TestOutputComparisonJSON(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	previous := compareRun(1, base, map[string]model.Totals{"Foo": {Checks: 4, ProvedChecks: 4}})
	current := compareRun(2, base.Add(time.Hour), map[string]model.Totals{"Foo": {Checks: 4, ProvedChecks: 2}})
	result := compareRuns(previous, current)

	output := captureStdout(t, func() error {
		return outputComparisonJSON(result)
	})

	if !strings.Contains(output, `"report_path": "/work/gnatprove.out"`) {
		t.Error("JSON output missing report_path field")
	}
	if !strings.Contains(output, `"direction": "regressed"`) {
		t.Error("JSON output missing progress direction")
	}
}

func TestOutputComparisonMarkdown(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	previous := compareRun(1, base, map[string]model.Totals{
		"Foo": {Checks: 10, ProvedChecks: 4},
	})
	current := compareRun(2, base.Add(time.Hour), map[string]model.Totals{
		"Foo": {Checks: 10, ProvedChecks: 8},
		"Bar": {Checks: 1, ProvedChecks: 1},
	})
	result := compareRuns(previous, current)

	output := captureStdout(t, func() error {
		return outputComparisonMarkdown(result)
	})

	expectedStrings := []string{
		"# Proof Progress: /work/gnatprove.out",
		"## Summary",
		"**Status:**",
		"| Metric | Previous | Current | Change |",
		"## New Units (1)",
		"- `Bar`",
		"## Changed Units (1)",
		"| `Foo` |",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("markdown output missing expected string: %q\nOutput: %s", expected, output)
		}
	}
}

// historyTestReport builds a parse result for history integration tests.
func historyTestReport(proved int) *model.Report {
	return &model.Report{
		Units: []*model.Unit{
			{
				Name:        "Foo",
				NumAnalyzed: 1,
				NumTotal:    1,
				Items: []*model.Item{
					{
						Name:            "Foo.Bar",
						FileName:        "foo.adb",
						LineNumber:      10,
						Proved:          true,
						NumChecks:       10,
						NumProvedChecks: proved,
					},
				},
			},
		},
	}
}

func TestRunComparisonIntegration(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	const key = "/work/project/gnatprove.out"

	if _, err := db.SaveRun(ctx, key, historyTestReport(4)); err != nil {
		t.Fatalf("failed to save previous run: %v", err)
	}
	if _, err := db.SaveRun(ctx, key, historyTestReport(8)); err != nil {
		t.Fatalf("failed to save current run: %v", err)
	}

	output := captureStdout(t, func() error {
		return runComparison(ctx, db, key, 0, "", false, false)
	})

	if !strings.Contains(output, key) {
		t.Errorf("expected report path in output, got: %s", output)
	}
	if !strings.Contains(output, "IMPROVED") {
		t.Errorf("expected IMPROVED status, got: %s", output)
	}
}

func TestRunComparisonWithRunID(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	const key = "/work/project/gnatprove.out"

	firstID, err := db.SaveRun(ctx, key, historyTestReport(2))
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if _, err := db.SaveRun(ctx, key, historyTestReport(5)); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	if _, err := db.SaveRun(ctx, key, historyTestReport(9)); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	output := captureStdout(t, func() error {
		return runComparison(ctx, db, key, firstID, "", false, false)
	})

	// Comparing latest (9 proved) against the first run (2 proved).
	if !strings.Contains(output, "+7") {
		t.Errorf("expected proved checks delta +7, got: %s", output)
	}
}

func TestRunComparisonErrors(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	t.Run("returns error for unknown report", func(t *testing.T) {
		err := runComparison(ctx, db, "/nowhere/gnatprove.out", 0, "", false, false)
		if err == nil {
			t.Error("expected error for unknown report")
		}
		if !strings.Contains(err.Error(), "no recorded runs found") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("returns error when only one run exists", func(t *testing.T) {
		const key = "/work/single/gnatprove.out"
		if _, err := db.SaveRun(ctx, key, historyTestReport(3)); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		err := runComparison(ctx, db, key, 0, "", false, false)
		if err == nil {
			t.Error("expected error when only one run exists")
		}
		if !strings.Contains(err.Error(), "at least 2 runs are required") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("returns error for invalid date format", func(t *testing.T) {
		const key = "/work/dates/gnatprove.out"
		for range 2 {
			if _, err := db.SaveRun(ctx, key, historyTestReport(3)); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
		}

		err := runComparison(ctx, db, key, 0, "not-a-date", false, false)
		if err == nil {
			t.Error("expected error for invalid date format")
		}
		if !strings.Contains(err.Error(), "invalid date format") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("returns error for unknown run ID", func(t *testing.T) {
		const key = "/work/ids/gnatprove.out"
		for range 2 {
			if _, err := db.SaveRun(ctx, key, historyTestReport(3)); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
		}

		err := runComparison(ctx, db, key, 99999, "", false, false)
		if err == nil {
			t.Error("expected error for unknown run ID")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("returns error when run ID belongs to another report", func(t *testing.T) {
		const key = "/work/mine/gnatprove.out"
		const other = "/work/theirs/gnatprove.out"
		for range 2 {
			if _, err := db.SaveRun(ctx, key, historyTestReport(3)); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
		}
		otherID, err := db.SaveRun(ctx, other, historyTestReport(3))
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		err = runComparison(ctx, db, key, otherID, "", false, false)
		if err == nil {
			t.Error("expected error when run ID belongs to another report")
		}
		if !strings.Contains(err.Error(), "belongs to") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("returns error when no runs since date", func(t *testing.T) {
		const key = "/work/future/gnatprove.out"
		for range 2 {
			if _, err := db.SaveRun(ctx, key, historyTestReport(3)); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
		}

		err := runComparison(ctx, db, key, 0, "2099-01-01", false, false)
		if err == nil {
			t.Error("expected error when no runs since date")
		}
		if !strings.Contains(err.Error(), "no runs found since") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestListRunHistoryIntegration(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	const key = "/work/project/gnatprove.out"

	t.Run("empty history", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listRunHistory(ctx, db, key)
		})
		if !strings.Contains(output, "No recorded runs found") {
			t.Errorf("expected 'No recorded runs found' message, got: %s", output)
		}
	})

	t.Run("with runs", func(t *testing.T) {
		for i := range 3 {
			if _, err := db.SaveRun(ctx, key, historyTestReport(i)); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
		}

		output := captureStdout(t, func() error {
			return listRunHistory(ctx, db, key)
		})
		if !strings.Contains(output, "3 runs") {
			t.Errorf("expected '3 runs' in output, got: %s", output)
		}
		if !strings.Contains(output, key) {
			t.Errorf("expected report path in output, got: %s", output)
		}
	})
}

func TestListTrackedReportsIntegration(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	t.Run("empty database", func(t *testing.T) {
		output := captureStdout(t, func() error {
			return listTrackedReports(ctx, db)
		})
		if !strings.Contains(output, "No tracked reports found") {
			t.Errorf("expected 'No tracked reports found' message, got: %s", output)
		}
	})

	t.Run("with reports", func(t *testing.T) {
		for _, key := range []string{"/a/gnatprove.out", "/b/gnatprove.out"} {
			if _, err := db.SaveRun(ctx, key, historyTestReport(1)); err != nil {
				t.Fatalf("failed to save run: %v", err)
			}
		}

		output := captureStdout(t, func() error {
			return listTrackedReports(ctx, db)
		})
		if !strings.Contains(output, "Tracked reports (2)") {
			t.Errorf("expected 'Tracked reports (2)' in output, got: %s", output)
		}
		if !strings.Contains(output, "/a/gnatprove.out") {
			t.Errorf("expected report path in output, got: %s", output)
		}
	})
}

func TestRunCompareCmdRequiresReport(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()
	cmd.SetArgs([]string{})

	// Validation happens before the database is opened.
	err := cmd.Execute()
	if err == nil {
		t.Error("expected error when no report file provided")
	}
	if !strings.Contains(err.Error(), "report file is required") {
		t.Errorf("unexpected error: %v", err)
	}
}
