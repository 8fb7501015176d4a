package model

import (
	"math"
	"testing"
)

// TestItemAnalysis tests the four-way analysis classification.
func TestItemAnalysis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		flowAnalyzed bool
		proved       bool
		want         Analysis
		wantLabel    string
	}{
		{name: "neither", flowAnalyzed: false, proved: false, want: AnalysisNone, wantLabel: "not analyzed"},
		{name: "flow only", flowAnalyzed: true, proved: false, want: AnalysisFlowOnly, wantLabel: "flow only"},
		{name: "proof only", flowAnalyzed: false, proved: true, want: AnalysisProofOnly, wantLabel: "proof only"},
		{name: "both", flowAnalyzed: true, proved: true, want: AnalysisFlowAndProof, wantLabel: "flow + proof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			item := &Item{FlowAnalyzed: tt.flowAnalyzed, Proved: tt.proved}
			if got := item.Analysis(); got != tt.want {
				t.Errorf("got %v, expected %v", got, tt.want)
			}
			if got := item.Analysis().String(); got != tt.wantLabel {
				t.Errorf("got label %q, expected %q", got, tt.wantLabel)
			}
		})
	}
}

// TestUnitTotals tests per-unit aggregation of item results.
func TestUnitTotals(t *testing.T) {
	t.Parallel()

	t.Run("sums all item counts", func(t *testing.T) {
		t.Parallel()

		unit := &Unit{
			Name: "Foo",
			Items: []*Item{
				{
					FlowAnalyzed:    true,
					NumFlowErrors:   1,
					NumFlowWarnings: 2,
				},
				{
					Proved:          true,
					NumChecks:       5,
					NumProvedChecks: 3,
					Suppressions: []Suppression{
						{FileName: "foo.adb", LineNumber: 10, Column: 5, Message: "justified"},
					},
				},
			},
		}

		got := unit.Totals()
		want := Totals{FlowErrors: 1, FlowWarnings: 2, Checks: 5, ProvedChecks: 3, Suppressions: 1}
		if got != want {
			t.Errorf("got %+v, expected %+v", got, want)
		}
	})

	t.Run("empty unit yields zero totals", func(t *testing.T) {
		t.Parallel()

		unit := &Unit{Name: "Empty"}
		if got := unit.Totals(); got != (Totals{}) {
			t.Errorf("got %+v, expected zero totals", got)
		}
	})
}

// TestReportTotals tests report-wide aggregation across units.
func TestReportTotals(t *testing.T) {
	t.Parallel()

	report := &Report{
		Units: []*Unit{
			{Items: []*Item{{Proved: true, NumChecks: 3, NumProvedChecks: 3}}},
			{Items: []*Item{{Proved: true, NumChecks: 2, NumProvedChecks: 1}}},
		},
	}

	got := report.Totals()
	want := Totals{Checks: 5, ProvedChecks: 4}
	if got != want {
		t.Errorf("got %+v, expected %+v", got, want)
	}

	if n := report.NumItems(); n != 2 {
		t.Errorf("got %d items, expected 2", n)
	}
}

// TestProofRatio tests the proof ratio policy, including the vacuous
// zero-checks case.
func TestProofRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		proved int
		checks int
		want   float64
	}{
		{name: "zero checks is vacuously fully proved", proved: 0, checks: 0, want: 1},
		{name: "fully proved", proved: 3, checks: 3, want: 1},
		{name: "partially proved", proved: 2, checks: 5, want: 0.4},
		{name: "nothing proved", proved: 0, checks: 4, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ProofRatio(tt.proved, tt.checks)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, expected %v", got, tt.want)
			}
		})
	}
}

// TestUnitAnalyzedLabel tests the "analyzed/total" display string.
func TestUnitAnalyzedLabel(t *testing.T) {
	t.Parallel()

	unit := &Unit{Name: "Foo", NumAnalyzed: 2, NumTotal: 3}
	if got := unit.AnalyzedLabel(); got != "2/3" {
		t.Errorf("got %q, expected %q", got, "2/3")
	}
}

// TestItemInstantiated tests generic instantiation detection.
func TestItemInstantiated(t *testing.T) {
	t.Parallel()

	plain := &Item{Name: "Foo.Bar", FileName: "foo.adb", LineNumber: 10}
	if plain.Instantiated() {
		t.Error("expected plain item not to be instantiated")
	}

	generic := &Item{
		Name:           "Foo.Vectors",
		FileName:       "a-convec.ads",
		LineNumber:     5,
		InstFileName:   "foo.ads",
		InstLineNumber: 12,
	}
	if !generic.Instantiated() {
		t.Error("expected generic instantiation to be instantiated")
	}
}
