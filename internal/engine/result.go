package engine

import (
	rperrors "github.com/replaykit/replaykit/internal/errors"
)

// ActionStatus is the outcome of one action.
type ActionStatus string

const (
	ActionSucceeded ActionStatus = "succeeded"
	ActionSkipped   ActionStatus = "skipped"
	ActionFailed    ActionStatus = "failed"
	ActionAborted   ActionStatus = "aborted"
)

// RunStatus is the aggregate outcome of one run (or batch row).
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// ActionOutcome records how one action ended.
type ActionOutcome struct {
	Index    int                `json:"index"`
	ID       string             `json:"id,omitempty"`
	Kind     string             `json:"kind"`
	Detail   string             `json:"detail,omitempty"`
	Status   ActionStatus       `json:"status"`
	Attempts int                `json:"attempts,omitempty"`
	Error    *rperrors.RunError `json:"error,omitempty"`
	Duration string             `json:"duration,omitempty"`
}

// RunResult is the structured outcome of a run. The engine hands it to
// the caller and keeps no history of its own.
type RunResult struct {
	RunID       string             `json:"run_id"`
	Row         int                `json:"row,omitempty"` // batch row index, -1 for single runs
	Status      RunStatus          `json:"status"`
	FailedIndex int                `json:"failed_index,omitempty"`
	Actions     []ActionOutcome    `json:"actions"`
	Error       *rperrors.RunError `json:"error,omitempty"`
	Duration    string             `json:"duration,omitempty"`
}

// Event is one progress notification. Consumers render it however
// they like; the engine makes no presentation decisions.
type Event struct {
	RunID  string `json:"run_id"`
	Row    int    `json:"row"`
	Step   int    `json:"step"` // 1-based
	Total  int    `json:"total"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
	Status string `json:"status"`
}

// Reporter consumes progress events. May be nil.
type Reporter func(Event)
