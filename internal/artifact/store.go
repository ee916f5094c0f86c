// Package artifact persists per-run diagnostics: the machine-readable
// outcome and failure screenshots for post-mortem inspection.
package artifact

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Store writes artifacts for one run under <root>/<run-id>/.
type Store struct {
	BaseDir string
}

// NewStore creates the run directory.
func NewStore(root, runID string) (*Store, error) {
	base := filepath.Join(root, runID)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Store{BaseDir: base}, nil
}

// WriteOutcome stores the run outcome as outcome.json.
func (s *Store) WriteOutcome(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}
	return os.WriteFile(filepath.Join(s.BaseDir, "outcome.json"), data, 0o644)
}

// WriteScreenshot stores a diagnostic capture as a PNG.
func (s *Store) WriteScreenshot(name string, img image.Image) error {
	f, err := os.Create(filepath.Join(s.BaseDir, name))
	if err != nil {
		return fmt.Errorf("creating screenshot file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding screenshot: %w", err)
	}
	return nil
}
