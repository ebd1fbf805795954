package workflow

import (
	"fmt"
	"strings"
)

// Outcome is the two-valued test result the engine reasons about.
type Outcome string

const (
	// Success means every contributing test passed.
	Success Outcome = "success"

	// Failure means at least one contributing test did not pass.
	Failure Outcome = "failure"
)

// ParseOutcome converts a user-supplied string into an [Outcome].
// Matching is case-insensitive; "pass"/"passed" and "fail"/"failed" are accepted
// as aliases.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "pass", "passed":
		return Success, nil
	case "failure", "fail", "failed":
		return Failure, nil
	default:
		return "", fmt.Errorf("unknown outcome: %q", s)
	}
}

// OutcomeFromResult normalizes a richer test result into an [Outcome].
// Only an explicit pass counts as Success; skipped, errored, pending or
// unknown results all become Failure.
func OutcomeFromResult(result string) Outcome {
	switch strings.ToLower(result) {
	case "pass", "passed", "success":
		return Success
	default:
		return Failure
	}
}

// Merge combines two outcomes for the same issue. Failure dominates.
func (o Outcome) Merge(other Outcome) Outcome {
	if o == Failure || other == Failure {
		return Failure
	}
	return Success
}

// IsValid reports whether o is one of the two known outcomes.
func (o Outcome) IsValid() bool {
	return o == Success || o == Failure
}
