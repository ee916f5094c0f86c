package errors

import (
	"errors"
	"fmt"
)

// Error type constants
const (
	MalformedWorkflow     = "MALFORMED_WORKFLOW"
	UnresolvedPlaceholder = "UNRESOLVED_PLACEHOLDER"
	MatchTimeout          = "MATCH_TIMEOUT"
	InputInjectionFailure = "INPUT_INJECTION_FAILURE"
	UserStop              = "USER_STOP"
)

// ErrFailsafe is returned by the input driver when the pointer has been
// parked in the failsafe corner. The engine treats it as a user stop.
var ErrFailsafe = errors.New("failsafe corner triggered")

// RunError is a structured error carried through run outcomes.
type RunError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	ActionID  string `json:"action_id,omitempty"`
	Column    string `json:"column,omitempty"` // missing batch column, if any
	Retryable bool   `json:"retryable"`
	Hint      string `json:"hint,omitempty"`
}

func (e *RunError) Error() string {
	if e.ActionID != "" {
		return fmt.Sprintf("[%s] action %s: %s", e.Type, e.ActionID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// IsType reports whether err is a RunError of the given type.
func IsType(err error, typ string) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Type == typ
	}
	return false
}

// IsRetryable reports whether err is worth re-attempting.
func IsRetryable(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

func NewMalformedWorkflow(msg, hint string) *RunError {
	return &RunError{Type: MalformedWorkflow, Message: msg, Hint: hint}
}

func NewUnresolvedPlaceholder(column string) *RunError {
	return &RunError{
		Type:    UnresolvedPlaceholder,
		Column:  column,
		Message: fmt.Sprintf("no column %q in the current row", column),
		Hint:    "Add the column to the batch data or fix the placeholder",
	}
}

func NewMatchTimeout(name string, timeoutSeconds float64) *RunError {
	return &RunError{
		Type:      MatchTimeout,
		Message:   fmt.Sprintf("image %q not found within %gs", name, timeoutSeconds),
		Retryable: true,
		Hint:      "Recapture the template or raise the timeout",
	}
}

func NewInjectionFailure(op string, cause error) *RunError {
	return &RunError{
		Type:      InputInjectionFailure,
		Message:   fmt.Sprintf("%s: %v", op, cause),
		Retryable: true,
	}
}
