package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// DefaultContextWindow is the number of characters captured on each side
// of a match when the caller does not specify a window.
const DefaultContextWindow = 40

// ErrEmptyRuleSet indicates an engine was constructed with no rules.
var ErrEmptyRuleSet = errors.New("pattern engine requires at least one rule")

// Rule is a single named pattern compiled for reuse. Rules are immutable
// and safe to share across concurrent scans.
type Rule struct {
	Name       string
	Expression string
	Flags      Flags

	re *regexp.Regexp
}

// NewRule compiles a rule from its expression source and flag bitset.
func NewRule(name, expression string, flags Flags) (Rule, error) {
	re, err := regexp.Compile(flags.exprPrefix() + expression)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling rule %q: %w", name, err)
	}
	return Rule{Name: name, Expression: expression, Flags: flags, re: re}, nil
}

// Match is one matched occurrence of a rule within scanned content.
type Match struct {
	RuleName string
	Value    string
	Start    int
	End      int
	// Context is the text surrounding the match, clamped to the
	// scanned text's bounds.
	Context string
	// Location is a hint of the form "row=<i>;column=<name>" for
	// tabular scans, empty otherwise.
	Location string
}

// Engine runs a fixed set of compiled rules over text or tabular input.
type Engine struct {
	rules []Rule
}

// NewEngine creates an Engine from one or more compiled rules.
func NewEngine(rules []Rule) (*Engine, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyRuleSet
	}
	return &Engine{rules: append([]Rule(nil), rules...)}, nil
}

// Rules returns the engine's rules in declaration order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// ScanText runs every rule over text and returns one Match per
// occurrence: rules in declaration order, matches in document order.
// window characters of context are captured on each side of a match;
// a non-positive window uses DefaultContextWindow.
func (e *Engine) ScanText(text string, window int) []Match {
	if window <= 0 {
		window = DefaultContextWindow
	}

	var matches []Match
	for _, rule := range e.rules {
		for _, span := range rule.re.FindAllStringIndex(text, -1) {
			start, end := span[0], span[1]
			matches = append(matches, Match{
				RuleName: rule.Name,
				Value:    text[start:end],
				Start:    start,
				End:      end,
				Context:  extractContext(text, start, end, window),
			})
		}
	}
	return matches
}

// ScanTable applies ScanText to every field of every row and stamps each
// match with a row/column location. When columns is non-nil, scanning is
// restricted to those columns, substituting the empty string for absent
// ones; otherwise all columns are scanned in sorted name order so output
// is deterministic.
func (e *Engine) ScanTable(rows []map[string]string, columns []string, window int) []Match {
	var matches []Match
	for rowIndex, row := range rows {
		names := columns
		if names == nil {
			names = sortedKeys(row)
		}
		for _, column := range names {
			value := row[column]
			for _, m := range e.ScanText(value, window) {
				m.Location = fmt.Sprintf("row=%d;column=%s", rowIndex, column)
				matches = append(matches, m)
			}
		}
	}
	return matches
}

// extractContext captures window characters to each side of [start, end),
// clamped to the text bounds.
func extractContext(text string, start, end, window int) string {
	left := start - window
	if left < 0 {
		left = 0
	}
	right := end + window
	if right > len(text) {
		right = len(text)
	}
	return text[left:right]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
