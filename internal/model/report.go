package model

// Report is the root of a parsed GNATprove report.
//
// Design decision: We keep the model a plain hierarchy of structs with
// JSON tags rather than interfaces or accessor-only types because:
// 1. The parser builds it incrementally and owns it exclusively
// 2. Writers and the history database need straightforward serialization
// 3. There is no polymorphism in the source grammar to abstract over
type Report struct {
	// NumUnitsAnalyzed is the unit count from the "Analyzed N units"
	// summary line. Nil when the report carries no summary line.
	NumUnitsAnalyzed *int `json:"num_units_analyzed,omitempty"`

	// Units holds the compilation units in the order they appear in
	// the report. This is the compilation order and must be preserved
	// by all consumers.
	Units []*Unit `json:"units"`
}

// Unit is one analyzed compilation unit.
type Unit struct {
	// Name is the unit name from the "in unit NAME, ..." header line.
	Name string `json:"name"`

	// NumAnalyzed is the number of subprograms and packages analyzed
	// in this unit.
	NumAnalyzed int `json:"num_analyzed"`

	// NumTotal is the number of subprograms and packages declared in
	// this unit.
	NumTotal int `json:"num_total"`

	// Items holds the analyzed entities in the order they appear.
	Items []*Item `json:"items"`
}

// Item is one analyzed entity within a unit: a subprogram, a package,
// or a generic instantiation.
type Item struct {
	// Name is the fully qualified entity name.
	Name string `json:"name"`

	// FileName is the source file declaring the entity. File paths are
	// taken verbatim from the report and may contain any non-newline
	// character.
	FileName string `json:"file_name"`

	// LineNumber is the declaration line within FileName.
	LineNumber int `json:"line_number"`

	// InstFileName and InstLineNumber locate the instantiation point
	// for generic instantiations. Both are zero-valued for entities
	// that are not instantiations; use Instantiated to distinguish.
	InstFileName   string `json:"inst_file_name,omitempty"`
	InstLineNumber int    `json:"inst_line_number,omitempty"`

	// FlowAnalyzed reports whether flow analysis ran on this entity.
	// NumFlowErrors and NumFlowWarnings are meaningful only when true.
	FlowAnalyzed    bool `json:"flow_analyzed"`
	NumFlowErrors   int  `json:"num_flow_errors"`
	NumFlowWarnings int  `json:"num_flow_warnings"`

	// Proved reports whether proof ran on this entity. NumChecks and
	// NumProvedChecks are meaningful only when true, and
	// NumProvedChecks <= NumChecks always holds.
	Proved          bool `json:"proved"`
	NumChecks       int  `json:"num_checks"`
	NumProvedChecks int  `json:"num_proved_checks"`

	// Suppressions holds the suppressed messages recorded under this
	// entity, in report order.
	Suppressions []Suppression `json:"suppressions,omitempty"`
}

// Suppression is one user-justified suppressed message, owned by
// exactly one item.
type Suppression struct {
	// FileName is the source file the message refers to.
	FileName string `json:"file_name"`

	// LineNumber and Column locate the message within FileName.
	LineNumber int `json:"line_number"`
	Column     int `json:"column"`

	// Message is the suppressed diagnostic text, trimmed of
	// surrounding whitespace.
	Message string `json:"message"`
}

// Instantiated reports whether the item is a generic instantiation,
// i.e. whether the report line carried an "instantiated at" clause.
func (i *Item) Instantiated() bool {
	return i.InstFileName != ""
}

// NumItems returns the total number of items across all units.
func (r *Report) NumItems() int {
	n := 0
	for _, u := range r.Units {
		n += len(u.Items)
	}
	return n
}
