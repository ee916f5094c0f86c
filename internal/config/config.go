// Package config holds the engine's tunable options. Durations are
// stored as float seconds, matching the workflow file conventions.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the recognized option set. Every field has a documented
// default and several are overridable per action in the workflow
// schema.
type Config struct {
	// PauseAfter is the inter-action settle delay, seconds.
	PauseAfter float64 `yaml:"pause_after"`
	// TypingInterval is the per-character typing delay, seconds.
	TypingInterval float64 `yaml:"typing_interval"`
	// ScrollAmount is the default scroll magnitude.
	ScrollAmount int `yaml:"scroll_amount"`
	// MaxRetries is the default retry budget per action.
	MaxRetries int `yaml:"max_retries"`
	// Confidence is the default template match threshold.
	Confidence float64 `yaml:"confidence"`
	// PollInterval bounds screen capture frequency, seconds.
	PollInterval float64 `yaml:"poll_interval"`
	// ImageTimeout is the default image wait deadline, seconds.
	ImageTimeout float64 `yaml:"image_timeout"`
	// BatchRowDelay is the pause between batch rows, seconds.
	BatchRowDelay float64 `yaml:"batch_row_delay"`
	// AbortOnError ends the run on a failed action instead of
	// continuing with the next one.
	AbortOnError bool `yaml:"abort_on_error"`
	// ScreenshotOnError captures the screen when a run fails.
	ScreenshotOnError bool `yaml:"screenshot_on_error"`
	// Failsafe aborts input calls when the pointer is parked in the
	// top-left screen corner.
	Failsafe bool `yaml:"failsafe"`
	// ArtifactDir is where run outcomes and diagnostics are written.
	ArtifactDir string `yaml:"artifact_dir"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		PauseAfter:        0.5,
		TypingInterval:    0.1,
		ScrollAmount:      500,
		MaxRetries:        0,
		Confidence:        0.8,
		PollInterval:      0.5,
		ImageTimeout:      30,
		BatchRowDelay:     2.0,
		AbortOnError:      true,
		ScreenshotOnError: false,
		Failsafe:          true,
		ArtifactDir:       "runs",
	}
}

// LoadFile reads a YAML config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects option values the engine cannot honor.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be in (0, 1]")
	}
	if c.PauseAfter < 0 || c.TypingInterval < 0 || c.ImageTimeout < 0 || c.BatchRowDelay < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// Seconds converts a float-seconds option to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
