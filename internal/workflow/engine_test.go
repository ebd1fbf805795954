package workflow

import (
	"reflect"
	"testing"
)

func bundledEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Load(BundledSource, "true")
	if err != nil {
		t.Fatalf("Load(bundled) err = %v", err)
	}
	return e
}

func TestResolve_BundledRules(t *testing.T) {
	e := bundledEngine(t)

	tests := []struct {
		name    string
		status  string
		outcome Outcome
		want    []string
	}{
		{
			name:    "open issue with passing tests is resolved",
			status:  "Open",
			outcome: Success,
			want:    []string{"Resolve Issue"},
		},
		{
			name:    "in progress issue is stopped then resolved",
			status:  "In Progress",
			outcome: Success,
			want:    []string{"Stop Progress", "Resolve Issue"},
		},
		{
			name:    "reopened issue with passing tests is resolved",
			status:  "Reopened",
			outcome: Success,
			want:    []string{"Resolve Issue"},
		},
		{
			name:    "resolved issue with passing tests is untouched",
			status:  "Resolved",
			outcome: Success,
			want:    []string{},
		},
		{
			name:    "resolved issue with failing tests is reopened",
			status:  "Resolved",
			outcome: Failure,
			want:    []string{"Reopen Issue"},
		},
		{
			name:    "closed issue with failing tests is reopened",
			status:  "Closed",
			outcome: Failure,
			want:    []string{"Reopen Issue"},
		},
		{
			name:    "open issue with failing tests stays open",
			status:  "Open",
			outcome: Failure,
			want:    []string{},
		},
		{
			name:    "in progress issue with failing tests stays in progress",
			status:  "In Progress",
			outcome: Failure,
			want:    []string{},
		},
		{
			name:    "reopened issue with failing tests stays reopened",
			status:  "Reopened",
			outcome: Failure,
			want:    []string{},
		},
		{
			name:    "reopen variant has its own empty rule",
			status:  "Reopen",
			outcome: Failure,
			want:    []string{},
		},
		{
			name:    "reopen variant is not treated as reopened",
			status:  "Reopen",
			outcome: Success,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Resolve(tt.status, tt.outcome)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%q, %s) = %q, want %q", tt.status, tt.outcome, got, tt.want)
			}
		})
	}
}

func TestResolve_UnknownStatusIsNoOp(t *testing.T) {
	e := bundledEngine(t)

	for _, status := range []string{"", "Done", "open", "OPEN", " Open", "In progress", "Won't Fix"} {
		for _, outcome := range []Outcome{Success, Failure} {
			got := e.Resolve(status, outcome)
			if got == nil || len(got) != 0 {
				t.Errorf("Resolve(%q, %s) = %#v, want empty non-nil slice", status, outcome, got)
			}
		}
	}
}

func TestResolve_InactiveEngine(t *testing.T) {
	e := Inactive()

	if e.Active() {
		t.Fatal("Inactive().Active() = true")
	}
	if e.Table() != nil {
		t.Error("Inactive().Table() should be nil")
	}
	if got := e.Resolve("Open", Success); len(got) != 0 {
		t.Errorf("inactive Resolve(Open, success) = %q, want empty", got)
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	e := bundledEngine(t)

	seq := e.Resolve("In Progress", Success)
	seq[0] = "mutated"

	again := e.Resolve("In Progress", Success)
	if again[0] != "Stop Progress" {
		t.Errorf("rule table was mutated through Resolve result: %q", again)
	}
}

func TestNewRuleTable_Validation(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"empty status", []Rule{{Status: "", Outcome: Success}}},
		{"invalid outcome", []Rule{{Status: "Open", Outcome: "maybe"}}},
		{"duplicate pair", []Rule{
			{Status: "Open", Outcome: Success, Transitions: []string{"Resolve Issue"}},
			{Status: "Open", Outcome: Success},
		}},
		{"empty transition name", []Rule{{Status: "Open", Outcome: Success, Transitions: []string{""}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRuleTable(tt.rules); err == nil {
				t.Errorf("NewRuleTable() err = nil, want error")
			}
		})
	}
}

func TestRuleTable_RulesKeepDefinitionOrder(t *testing.T) {
	table, err := NewRuleTable([]Rule{
		{Status: "B", Outcome: Success, Transitions: []string{"x"}},
		{Status: "A", Outcome: Failure},
		{Status: "B", Outcome: Failure},
	})
	if err != nil {
		t.Fatalf("NewRuleTable() err = %v", err)
	}

	if got, want := table.Statuses(), []string{"B", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Statuses() = %q, want %q", got, want)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}
	rules := table.Rules()
	if rules[0].Status != "B" || rules[0].Outcome != Success || rules[1].Status != "A" {
		t.Errorf("Rules() order = %+v", rules)
	}
}

func TestOutcome_Merge(t *testing.T) {
	tests := []struct {
		a, b Outcome
		want Outcome
	}{
		{Success, Success, Success},
		{Success, Failure, Failure},
		{Failure, Success, Failure},
		{Failure, Failure, Failure},
	}
	for _, tt := range tests {
		if got := tt.a.Merge(tt.b); got != tt.want {
			t.Errorf("%s.Merge(%s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOutcomeFromResult(t *testing.T) {
	tests := map[string]Outcome{
		"pass":    Success,
		"PASSED":  Success,
		"fail":    Failure,
		"skip":    Failure,
		"error":   Failure,
		"pending": Failure,
		"":        Failure,
	}
	for result, want := range tests {
		if got := OutcomeFromResult(result); got != want {
			t.Errorf("OutcomeFromResult(%q) = %s, want %s", result, got, want)
		}
	}
}

func TestParseOutcome(t *testing.T) {
	for _, in := range []string{"success", "Success", "pass", "passed"} {
		if got, err := ParseOutcome(in); err != nil || got != Success {
			t.Errorf("ParseOutcome(%q) = %s, %v", in, got, err)
		}
	}
	for _, in := range []string{"failure", "FAIL", "failed"} {
		if got, err := ParseOutcome(in); err != nil || got != Failure {
			t.Errorf("ParseOutcome(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseOutcome("flaky"); err == nil {
		t.Error("ParseOutcome(flaky) err = nil, want error")
	}
}
