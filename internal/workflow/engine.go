// Package workflow holds the rule table that decides how an issue moves in the
// tracker once its tests have run.
//
// A rule maps the issue's current status and the aggregated test [Outcome] to
// an ordered list of transition names. Statuses and transitions are opaque
// strings, matched exactly, so the table can be customized without code
// changes.
//
// Key types:
//   - [RuleTable] - immutable (status, outcome) → transitions mapping
//   - [Engine] - resolver over a table, possibly inactive
//   - [Loader] - builds an Engine from the bundled rules or an override file
package workflow

// Engine resolves transition sequences from a [RuleTable].
//
// An inactive engine carries no table and resolves every pair to an empty
// sequence. Engines are read-only and safe for concurrent use.
type Engine struct {
	table  *RuleTable
	active bool
}

// NewEngine returns an active engine over t.
func NewEngine(t *RuleTable) *Engine {
	return &Engine{table: t, active: true}
}

// Inactive returns an engine that never resolves any transition.
func Inactive() *Engine {
	return &Engine{}
}

// Active reports whether the engine may drive tracker transitions.
func (e *Engine) Active() bool {
	return e != nil && e.active
}

// Table returns the underlying rule table, or nil for an inactive engine.
func (e *Engine) Table() *RuleTable {
	if e == nil {
		return nil
	}
	return e.table
}

// Resolve returns the ordered transitions for an issue in status with the
// given aggregated outcome.
//
// A status absent from the table, or a status with no rule for outcome, yields
// an empty (non-nil) sequence. Unknown statuses are never an error.
func (e *Engine) Resolve(status string, outcome Outcome) []string {
	if !e.Active() || e.table == nil {
		return []string{}
	}
	seq, ok := e.table.Lookup(status, outcome)
	if !ok {
		return []string{}
	}
	return seq
}
