package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/gnatsheet/gnatsheet/internal/model"
)

// Line patterns for the GNATprove report grammar.
//
// Design decision: Each line shape gets its own pattern rather than one
// combined expression so every rule stays testable in isolation and the
// dispatch order below remains explicit. The order is part of the
// grammar: the generic-instantiation item pattern is a superset of the
// plain one and must be tried first, and item lines are tried before
// suppression lines. The first matching rule consumes the line.
var (
	// "Analyzed 23 units"
	analyzedRe = regexp.MustCompile(`^Analyzed (\d+) units$`)

	// "in unit foo, 2 subprograms and packages out of 3 analyzed"
	unitRe = regexp.MustCompile(`^in unit (.+), (\d+) subprograms and packages out of (\d+) analyzed$`)

	// "  Foo.Vectors at a-convec.ads:5, instantiated at foo.ads:12 ..."
	genItemRe = regexp.MustCompile(`^  (.+) at (.+):(\d+), instantiated at (.+):(\d+)`)

	// "  Foo.Bar at foo.adb:10 ..."
	itemRe = regexp.MustCompile(`^  (.+) at (.+):(\d+)`)

	// "    foo.adb:10:5: assertion might fail, justified because ..."
	suppressionRe = regexp.MustCompile(`^    (.+):(\d+):(\d+): (.+)$`)
)

// Trailing clauses carried by item lines. These are searched against
// the whole line independently of the leading item shape; the source
// grammar guarantees at most one fires per line.
var (
	flowRe      = regexp.MustCompile(`flow analyzed \((\d+) errors and (\d+) warnings\)`)
	provedRe    = regexp.MustCompile(`proved \((\d+) checks\)$`)
	notProvedRe = regexp.MustCompile(`not proved, (\d+) checks out of (\d+) proved$`)
)

// rule binds a line pattern to its handler. Rules are tried in table
// order and the first match wins.
type rule struct {
	pattern *regexp.Regexp
	apply   func(p *Parser, line string, groups []string) error
}

// rules is the ordered dispatch table. See the pattern comments above
// for why the order is load bearing.
var rules = []rule{
	{analyzedRe, (*Parser).applyAnalyzed},
	{unitRe, (*Parser).applyUnitHeader},
	{genItemRe, (*Parser).applyGenericItem},
	{itemRe, (*Parser).applyPlainItem},
	{suppressionRe, (*Parser).applySuppression},
}

// Parser builds a model.Report from a GNATprove report stream. It is
// single use: create one with New for each Parse call.
//
// Design decision: We carry explicit handles to the unit and item under
// construction instead of re-deriving "last item" by indexing into the
// current unit's slice. This makes the orphan-suppression condition a
// checked state rather than an out-of-bounds fault.
type Parser struct {
	// report is the result under construction.
	report *model.Report

	// currentUnit is the unit under construction. It is appended to
	// the report when the next unit header or end of input is seen.
	currentUnit *model.Unit

	// currentItem is the most recently created item of currentUnit,
	// the attachment point for suppressed messages.
	currentItem *model.Item

	// lineNum is the 1-based number of the line being parsed, for
	// error reporting.
	lineNum int
}

// New creates a Parser with an empty report.
func New() *Parser {
	return &Parser{
		report: &model.Report{Units: []*model.Unit{}},
	}
}

// Parse consumes the report stream and returns the completed report.
// Parsing is a one-shot deterministic transform: on any error the
// partial report is discarded and nil is returned.
//
// Input may use any line-ending convention, and may carry a UTF-8 or
// UTF-16 byte order mark (GNAT tools on Windows emit these).
func (p *Parser) Parse(r io.Reader) (*model.Report, error) {
	scanner := bufio.NewScanner(decodeReader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		p.lineNum++
		// The $-anchored clause patterns require CRLF stripping here.
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if err := p.parseLine(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", p.lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	// The final unit has no following header line to terminate it;
	// end of input seals it instead.
	p.sealUnit()
	return p.report, nil
}

// ParseFile opens path, parses it, and closes it on all exit paths.
func ParseFile(path string) (*model.Report, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	report, err := New().Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return report, nil
}

// decodeReader wraps r so that a leading UTF-8 or UTF-16 byte order
// mark is detected and the stream decoded to plain UTF-8. Streams
// without a BOM pass through untouched.
func decodeReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// parseLine dispatches one line through the ordered rule table.
// Lines matching no rule are narrative text and are skipped.
func (p *Parser) parseLine(line string) error {
	for _, r := range rules {
		if groups := r.pattern.FindStringSubmatch(line); groups != nil {
			return r.apply(p, line, groups)
		}
	}
	return nil
}

// applyAnalyzed handles the global "Analyzed N units" summary line.
// It records the count without touching unit state.
func (p *Parser) applyAnalyzed(_ string, groups []string) error {
	n, err := parseCount(groups[1])
	if err != nil {
		return err
	}
	p.report.NumUnitsAnalyzed = &n
	return nil
}

// applyUnitHeader seals the unit under construction, if any, and
// starts a new one.
func (p *Parser) applyUnitHeader(_ string, groups []string) error {
	analyzed, err := parseCount(groups[2])
	if err != nil {
		return err
	}
	total, err := parseCount(groups[3])
	if err != nil {
		return err
	}

	p.sealUnit()
	p.currentUnit = &model.Unit{
		Name:        groups[1],
		NumAnalyzed: analyzed,
		NumTotal:    total,
		Items:       []*model.Item{},
	}
	return nil
}

// applyGenericItem handles the generic-instantiation item shape, which
// carries the extra "instantiated at FILE:LINE" location.
func (p *Parser) applyGenericItem(line string, groups []string) error {
	item, err := newItem(groups[1], groups[2], groups[3])
	if err != nil {
		return err
	}
	item.InstFileName = groups[4]
	item.InstLineNumber, err = parseCount(groups[5])
	if err != nil {
		return err
	}
	return p.finishItem(line, item)
}

// applyPlainItem handles the plain item shape.
func (p *Parser) applyPlainItem(line string, groups []string) error {
	item, err := newItem(groups[1], groups[2], groups[3])
	if err != nil {
		return err
	}
	return p.finishItem(line, item)
}

// applySuppression attaches a suppressed message to the most recently
// created item of the current unit.
func (p *Parser) applySuppression(_ string, groups []string) error {
	if p.currentItem == nil {
		return ErrOrphanSuppression
	}

	lineNumber, err := parseCount(groups[2])
	if err != nil {
		return err
	}
	column, err := parseCount(groups[3])
	if err != nil {
		return err
	}

	p.currentItem.Suppressions = append(p.currentItem.Suppressions, model.Suppression{
		FileName:   groups[1],
		LineNumber: lineNumber,
		Column:     column,
		Message:    strings.TrimSpace(groups[4]),
	})
	return nil
}

// newItem seeds an item from the leading shape shared by both item
// patterns. The item starts neither flow analyzed nor proved, with all
// counts zero.
func newItem(name, fileName, lineNumber string) (*model.Item, error) {
	ln, err := parseCount(lineNumber)
	if err != nil {
		return nil, err
	}
	return &model.Item{
		Name:       name,
		FileName:   fileName,
		LineNumber: ln,
	}, nil
}

// finishItem applies the trailing flow/proof clauses of the item line
// and appends the item to the current unit. The clauses are searched
// against the full line, not just the matched prefix, and at most one
// fires. The item is appended even when none matches: an entity may be
// neither flow analyzed nor proved.
func (p *Parser) finishItem(line string, item *model.Item) error {
	if p.currentUnit == nil {
		return ErrItemOutsideUnit
	}

	if groups := flowRe.FindStringSubmatch(line); groups != nil {
		numErrors, err := parseCount(groups[1])
		if err != nil {
			return err
		}
		numWarnings, err := parseCount(groups[2])
		if err != nil {
			return err
		}
		item.FlowAnalyzed = true
		item.NumFlowErrors = numErrors
		item.NumFlowWarnings = numWarnings
	}

	if groups := notProvedRe.FindStringSubmatch(line); groups != nil {
		proved, err := parseCount(groups[1])
		if err != nil {
			return err
		}
		checks, err := parseCount(groups[2])
		if err != nil {
			return err
		}
		item.Proved = true
		item.NumChecks = checks
		item.NumProvedChecks = proved
	} else if groups := provedRe.FindStringSubmatch(line); groups != nil {
		// Fully proved: every check was discharged.
		checks, err := parseCount(groups[1])
		if err != nil {
			return err
		}
		item.Proved = true
		item.NumChecks = checks
		item.NumProvedChecks = checks
	}

	p.currentUnit.Items = append(p.currentUnit.Items, item)
	p.currentItem = item
	return nil
}

// sealUnit appends the unit under construction to the report and
// resets the unit and item handles. No-op when no unit is in progress.
func (p *Parser) sealUnit() {
	if p.currentUnit == nil {
		return
	}
	p.report.Units = append(p.report.Units, p.currentUnit)
	p.currentUnit = nil
	p.currentItem = nil
}

// parseCount converts a digit-only capture to an int. The patterns
// guarantee the text is numeric, so the only failure mode is overflow.
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCount, s)
	}
	return n, nil
}
