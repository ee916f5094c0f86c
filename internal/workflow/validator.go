package workflow

import (
	"fmt"

	rperrors "github.com/replaykit/replaykit/internal/errors"
	"github.com/replaykit/replaykit/internal/subst"
)

var validDirections = map[string]bool{"up": true, "down": true, "left": true, "right": true}

// Validate checks a workflow for structural correctness. An empty
// workflow is valid; it completes immediately when run.
func Validate(w *Workflow) error {
	seen := map[string]bool{}
	for i := range w.Actions {
		a := &w.Actions[i]

		if !KnownKinds[a.Kind] {
			return rperrors.NewMalformedWorkflow(
				fmt.Sprintf("action %d has unknown type %q", i, a.Kind),
				"Known types: click, type, key_press, set_value, delete, scroll, wait, wait_for_image, find_image, move_mouse")
		}
		if a.ID != "" {
			if seen[a.ID] {
				return rperrors.NewMalformedWorkflow(
					fmt.Sprintf("duplicate action id %q", a.ID), "")
			}
			seen[a.ID] = true
		}

		if err := validateParams(i, a); err != nil {
			return err
		}
	}

	// Placeholders in text params must resolve against the embedded
	// batch columns, when the file carries its own batch data.
	if len(w.BatchColumns) > 0 {
		cols := map[string]bool{}
		for _, c := range w.BatchColumns {
			cols[c] = true
		}
		for i := range w.Actions {
			for field, text := range w.Actions[i].TextParams() {
				for _, name := range subst.Placeholders(text) {
					if !cols[name] {
						return rperrors.NewMalformedWorkflow(
							fmt.Sprintf("action %d: %s references unknown batch column %q", i, field, name),
							"Add the column to batch_columns or fix the placeholder")
					}
				}
			}
		}
	}

	return nil
}

func validateParams(i int, a *Action) error {
	bad := func(msg, hint string) error {
		return rperrors.NewMalformedWorkflow(
			fmt.Sprintf("action %d (%s): %s", i, a.Kind, msg), hint)
	}

	switch a.Kind {
	case KindWaitForImage, KindFindImage:
		if a.ImagePath == "" {
			return bad("missing image_path", "")
		}
	case KindWait:
		if a.WaitType == "image" && a.ImagePath == "" {
			return bad("wait_type image requires image_path", "")
		}
	case KindMoveMouse:
		if !validDirections[a.Direction] {
			return bad(fmt.Sprintf("invalid direction %q", a.Direction),
				"Direction must be one of: up, down, left, right")
		}
		if a.Distance <= 0 {
			return bad("distance must be positive", "")
		}
	case KindDelete, KindSetValue:
		switch a.Method {
		case "", MethodCtrlA, MethodTripleClick, MethodBackspace:
		default:
			return bad(fmt.Sprintf("invalid method %q", a.Method),
				"Method must be one of: ctrl_a, triple_click, backspace")
		}
	case KindScroll:
		switch a.ScrollType {
		case "", "amount", "top", "bottom":
		default:
			return bad(fmt.Sprintf("invalid scroll_type %q", a.ScrollType), "")
		}
	}

	if a.Confidence != nil && (*a.Confidence <= 0 || *a.Confidence > 1) {
		return bad("confidence must be in (0, 1]", "")
	}
	if a.CheckInterval != nil && *a.CheckInterval <= 0 {
		return bad("check_interval must be positive", "")
	}
	if a.Timeout != nil && *a.Timeout < 0 {
		return bad("timeout must not be negative", "")
	}
	if a.Retries != nil && *a.Retries < 0 {
		return bad("retries must not be negative", "")
	}
	return nil
}
