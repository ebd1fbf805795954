package workflow

import (
	"errors"
	"fmt"
)

// ErrDuplicateRule is returned when a rule definition repeats a status.
var ErrDuplicateRule = errors.New("duplicate rule for status")

// Rule maps a (status, outcome) pair to the ordered transitions to apply.
// An empty Transitions slice is an explicit no-op.
type Rule struct {
	Status      string
	Outcome     Outcome
	Transitions []string
}

// ruleKey is the composite lookup key of a [RuleTable].
type ruleKey struct {
	status  string
	outcome Outcome
}

// RuleTable is an immutable mapping from (status, outcome) to transitions.
//
// Statuses are compared by exact string equality. Create one with
// [NewRuleTable] or through the [Loader].
type RuleTable struct {
	rules map[ruleKey][]string

	// order preserves definition order for listing.
	order []ruleKey
}

// NewRuleTable builds a table from rule definitions.
//
// Each (status, outcome) pair may appear at most once. Rules with an empty
// status or an invalid outcome are rejected.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	t := &RuleTable{
		rules: make(map[ruleKey][]string, len(rules)),
	}
	for _, r := range rules {
		if r.Status == "" {
			return nil, fmt.Errorf("rule has empty status")
		}
		if !r.Outcome.IsValid() {
			return nil, fmt.Errorf("rule for status %q has invalid outcome %q", r.Status, r.Outcome)
		}
		k := ruleKey{status: r.Status, outcome: r.Outcome}
		if _, ok := t.rules[k]; ok {
			return nil, fmt.Errorf("%w: %q (%s)", ErrDuplicateRule, r.Status, r.Outcome)
		}
		for i, name := range r.Transitions {
			if name == "" {
				return nil, fmt.Errorf("rule for status %q (%s): transition %d is empty", r.Status, r.Outcome, i+1)
			}
		}
		t.rules[k] = append([]string(nil), r.Transitions...)
		t.order = append(t.order, k)
	}
	return t, nil
}

// Lookup returns the transitions for the pair and whether a rule exists.
// The returned slice is a copy.
func (t *RuleTable) Lookup(status string, outcome Outcome) ([]string, bool) {
	seq, ok := t.rules[ruleKey{status: status, outcome: outcome}]
	if !ok {
		return nil, false
	}
	return append([]string{}, seq...), true
}

// Rules returns every rule in definition order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Rule{
			Status:      k.status,
			Outcome:     k.outcome,
			Transitions: append([]string{}, t.rules[k]...),
		})
	}
	return out
}

// Statuses returns the distinct statuses in definition order.
func (t *RuleTable) Statuses() []string {
	seen := make(map[string]bool)
	var statuses []string
	for _, k := range t.order {
		if !seen[k.status] {
			seen[k.status] = true
			statuses = append(statuses, k.status)
		}
	}
	return statuses
}

// Len returns the number of (status, outcome) rules.
func (t *RuleTable) Len() int {
	return len(t.order)
}
