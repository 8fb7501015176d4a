package model

import "fmt"

// Analysis classifies which kinds of analysis ran on an item.
// The classification is derived solely from the FlowAnalyzed and
// Proved flags; there are no partial states.
type Analysis int

// Analysis classifications, from "nothing ran" to "both ran".
const (
	// AnalysisNone means neither flow analysis nor proof ran.
	AnalysisNone Analysis = iota

	// AnalysisFlowOnly means only flow analysis ran.
	AnalysisFlowOnly

	// AnalysisProofOnly means only proof ran.
	AnalysisProofOnly

	// AnalysisFlowAndProof means both flow analysis and proof ran.
	AnalysisFlowAndProof
)

// String returns the display label used in the Details sheet.
func (a Analysis) String() string {
	switch a {
	case AnalysisFlowAndProof:
		return "flow + proof"
	case AnalysisFlowOnly:
		return "flow only"
	case AnalysisProofOnly:
		return "proof only"
	default:
		return "not analyzed"
	}
}

// Analysis returns the four-way classification of the item.
func (i *Item) Analysis() Analysis {
	switch {
	case i.FlowAnalyzed && i.Proved:
		return AnalysisFlowAndProof
	case i.FlowAnalyzed:
		return AnalysisFlowOnly
	case i.Proved:
		return AnalysisProofOnly
	default:
		return AnalysisNone
	}
}

// Totals aggregates the countable results across a set of items.
type Totals struct {
	// FlowErrors is the summed flow analysis error count.
	FlowErrors int `json:"flow_errors"`

	// FlowWarnings is the summed flow analysis warning count.
	FlowWarnings int `json:"flow_warnings"`

	// Checks is the summed proof check count.
	Checks int `json:"checks"`

	// ProvedChecks is the summed proved check count.
	ProvedChecks int `json:"proved_checks"`

	// Suppressions is the number of suppressed messages.
	Suppressions int `json:"suppressions"`
}

// add accumulates one item into the totals.
func (t *Totals) add(i *Item) {
	t.FlowErrors += i.NumFlowErrors
	t.FlowWarnings += i.NumFlowWarnings
	t.Checks += i.NumChecks
	t.ProvedChecks += i.NumProvedChecks
	t.Suppressions += len(i.Suppressions)
}

// Totals sums the results of all items in the unit. A unit with no
// items yields all-zero totals.
func (u *Unit) Totals() Totals {
	var t Totals
	for _, item := range u.Items {
		t.add(item)
	}
	return t
}

// Totals sums the results of all items across all units.
func (r *Report) Totals() Totals {
	var t Totals
	for _, u := range r.Units {
		for _, item := range u.Items {
			t.add(item)
		}
	}
	return t
}

// ProofRatio returns the fraction of checks that were proved.
// An entity with zero checks is vacuously fully proved, so the ratio
// is defined as exactly 1 in that case rather than being an error.
func ProofRatio(proved, checks int) float64 {
	if checks == 0 {
		return 1
	}
	return float64(proved) / float64(checks)
}

// ProofRatio returns the proof ratio over the aggregated checks.
func (t Totals) ProofRatio() float64 {
	return ProofRatio(t.ProvedChecks, t.Checks)
}

// ProofRatio returns the proof ratio of this item alone.
func (i *Item) ProofRatio() float64 {
	return ProofRatio(i.NumProvedChecks, i.NumChecks)
}

// AnalyzedLabel returns the "analyzed/total" display string used by
// the Summary sheet, e.g. "2/2".
func (u *Unit) AnalyzedLabel() string {
	return fmt.Sprintf("%d/%d", u.NumAnalyzed, u.NumTotal)
}
