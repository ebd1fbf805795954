package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by issueflow commands.
const (
	exitFailure     = 1 // bad input, rule or config errors, unreadable tracker status
	exitIssueErrors = 2 // run --strict: at least one issue recorded a tracker error
)

// ExitError carries a process exit code out of a command's RunE. Commands
// print their own diagnostics first, so the error text itself is never shown.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError returns an [ExitError] for code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError reports the exit code carried by err, which may wrap an
// [ExitError]. It returns false for nil and for any other error.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	return exitErr.Code, true
}
