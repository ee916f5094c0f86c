package workflow

import (
	"fmt"
	"time"
)

// Action kinds
const (
	KindClick        = "click"
	KindType         = "type"
	KindKeyPress     = "key_press"
	KindSetValue     = "set_value"
	KindDelete       = "delete"
	KindScroll       = "scroll"
	KindWait         = "wait"
	KindWaitForImage = "wait_for_image"
	KindFindImage    = "find_image"
	KindMoveMouse    = "move_mouse"
)

// KnownKinds is the closed set of action kinds the engine dispatches on.
var KnownKinds = map[string]bool{
	KindClick:        true,
	KindType:         true,
	KindKeyPress:     true,
	KindSetValue:     true,
	KindDelete:       true,
	KindScroll:       true,
	KindWait:         true,
	KindWaitForImage: true,
	KindFindImage:    true,
	KindMoveMouse:    true,
}

// Clear-field methods for delete and set_value.
const (
	MethodCtrlA       = "ctrl_a"
	MethodTripleClick = "triple_click"
	MethodBackspace   = "backspace"
)

// Action is one recorded step. Field names are stable across workflow
// file versions; the engine never mutates an Action during a run.
type Action struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"type"`
	Description string `json:"description,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`

	// Overrides of global configuration, in float seconds / counts.
	WaitAfter *float64 `json:"wait_after,omitempty"`
	Retries   *int     `json:"retries,omitempty"`

	// click / set_value / find_image targets
	X                  int  `json:"x,omitempty"`
	Y                  int  `json:"y,omitempty"`
	UseCurrentPosition bool `json:"use_current_position,omitempty"`

	// type / set_value
	Text     string   `json:"text,omitempty"`
	Value    string   `json:"value,omitempty"`
	Interval *float64 `json:"interval,omitempty"` // per-character typing delay, seconds

	// key_press
	Key       string   `json:"key,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"`

	// delete / set_value
	Method string `json:"method,omitempty"` // ctrl_a, triple_click, backspace

	// scroll
	ScrollType string `json:"scroll_type,omitempty"` // amount, top, bottom
	Amount     int    `json:"amount,omitempty"`

	// wait
	Duration *float64 `json:"duration,omitempty"`
	WaitType string   `json:"wait_type,omitempty"` // duration, image

	// image lookup (wait w/ image, wait_for_image, find_image)
	ImagePath     string   `json:"image_path,omitempty"`
	ImageName     string   `json:"image_name,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Timeout       *float64 `json:"timeout,omitempty"`
	CheckInterval *float64 `json:"check_interval,omitempty"`
	ClickAfter    bool     `json:"click_after,omitempty"`

	// move_mouse
	Direction string `json:"direction,omitempty"` // up, down, left, right
	Distance  int    `json:"distance,omitempty"`
}

// IsEnabled reports whether the action participates in a run. Absent
// means enabled, matching recorded files that omit the field.
func (a *Action) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// TextParams returns the text-bearing parameters subject to variable
// substitution, keyed by field name.
func (a *Action) TextParams() map[string]string {
	m := map[string]string{}
	if a.Text != "" {
		m["text"] = a.Text
	}
	if a.Value != "" {
		m["value"] = a.Value
	}
	return m
}

// Summary is a one-line human description of the action.
func (a *Action) Summary() string {
	if a.Description != "" {
		return a.Description
	}
	switch a.Kind {
	case KindClick:
		if a.UseCurrentPosition {
			return "Click at current position"
		}
		return fmt.Sprintf("Click at (%d, %d)", a.X, a.Y)
	case KindType:
		return fmt.Sprintf("Type: %s", truncate(a.Text, 40))
	case KindKeyPress:
		key := a.Key
		if key == "" {
			key = "enter"
		}
		return fmt.Sprintf("Press %s", key)
	case KindSetValue:
		return fmt.Sprintf("Set value at (%d, %d) = %s", a.X, a.Y, truncate(a.Value, 30))
	case KindDelete:
		method := a.Method
		if method == "" {
			method = MethodCtrlA
		}
		return fmt.Sprintf("Clear field (%s)", method)
	case KindScroll:
		if a.ScrollType == "top" || a.ScrollType == "bottom" {
			return fmt.Sprintf("Scroll to %s", a.ScrollType)
		}
		return fmt.Sprintf("Scroll %d", a.Amount)
	case KindWait:
		if a.WaitType == "image" {
			return fmt.Sprintf("Wait for %s", a.imageLabel())
		}
		if a.Duration != nil {
			return fmt.Sprintf("Wait %gs", *a.Duration)
		}
		return "Wait 1s"
	case KindWaitForImage:
		return fmt.Sprintf("Wait for %s", a.imageLabel())
	case KindFindImage:
		return fmt.Sprintf("Find image: %s", a.imageLabel())
	case KindMoveMouse:
		return fmt.Sprintf("Move mouse %s %dpx", a.Direction, a.Distance)
	}
	return a.Kind
}

func (a *Action) imageLabel() string {
	if a.ImageName != "" {
		return a.ImageName
	}
	return a.ImagePath
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Workflow is an ordered action sequence plus optional embedded batch
// data, as persisted by the recorder.
type Workflow struct {
	Version      string              `json:"version,omitempty"`
	Name         string              `json:"name,omitempty"`
	Created      time.Time           `json:"created,omitempty"`
	Actions      []Action            `json:"actions"`
	BatchColumns []string            `json:"batch_columns,omitempty"`
	BatchData    []map[string]string `json:"batch_data,omitempty"`
}
