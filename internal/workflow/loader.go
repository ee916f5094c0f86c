package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	rperrors "github.com/replaykit/replaykit/internal/errors"
)

// LoadFile reads and parses a workflow JSON file.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	return Load(data)
}

// legacy carries fields from pre-2.x files that need migration.
type legacy struct {
	BatchVariables []string `json:"batch_variables"`
}

// Load parses workflow JSON bytes and validates the action kinds.
// An unknown kind fails loading; it is never silently skipped.
func Load(data []byte) (*Workflow, error) {
	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, rperrors.NewMalformedWorkflow(
			fmt.Sprintf("parsing JSON: %v", err), "")
	}

	// Old single-variable files carried a flat batch_variables list.
	if len(w.BatchData) == 0 {
		var lg legacy
		if err := json.Unmarshal(data, &lg); err == nil && len(lg.BatchVariables) > 0 {
			w.BatchColumns = []string{"variable"}
			for _, v := range lg.BatchVariables {
				w.BatchData = append(w.BatchData, map[string]string{"variable": v})
			}
		}
	}

	if err := Validate(&w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Save writes a workflow back out in the stable on-disk format.
func Save(path string, w *Workflow) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding workflow: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
