// Package screen locates template images on the live display with a
// confidence threshold and a bounded polling loop.
package screen

import (
	"fmt"
	"image"
	"os"
	"time"

	rperrors "github.com/replaykit/replaykit/internal/errors"
)

// Location is the centre of a template match on screen.
type Location struct {
	X, Y  int
	Score float64
}

// Capturer grabs the current screen contents.
type Capturer interface {
	Capture() (image.Image, error)
}

// Searcher finds the best occurrence of a template inside a source
// image, returning the match centre and a similarity score in [0, 1].
type Searcher interface {
	Search(template, source image.Image) (image.Point, float64)
}

// Matcher combines capture and search into locate-with-timeout.
// Matching is approximate: a pixel-identical template can still miss
// under scaling or rendering differences, which callers must treat as
// a normal negative result.
type Matcher struct {
	cap    Capturer
	search Searcher
}

func NewMatcher(cap Capturer, search Searcher) *Matcher {
	return &Matcher{cap: cap, search: search}
}

// Locate performs a single capture and search. found is false when the
// best score stays below confidence; that is not an error.
func (m *Matcher) Locate(template image.Image, confidence float64) (Location, bool, error) {
	src, err := m.cap.Capture()
	if err != nil {
		return Location{}, false, rperrors.NewInjectionFailure("screen capture", err)
	}
	pt, score := m.search.Search(template, src)
	if score < confidence {
		return Location{Score: score}, false, nil
	}
	return Location{X: pt.X, Y: pt.Y, Score: score}, true, nil
}

// Wait polls Locate until a match clears confidence or the timeout
// elapses. poll bounds the capture frequency and must be positive.
// A closed stop channel interrupts the loop at the next poll boundary.
// At least one capture is attempted even with a zero timeout.
func (m *Matcher) Wait(template image.Image, confidence float64, timeout, poll time.Duration, stop <-chan struct{}) (Location, bool, error) {
	if poll <= 0 {
		return Location{}, false, fmt.Errorf("poll interval must be positive, got %v", poll)
	}

	deadline := time.Now().Add(timeout)
	for {
		select {
		case <-stop:
			return Location{}, false, nil
		default:
		}

		loc, found, err := m.Locate(template, confidence)
		if err != nil || found {
			return loc, found, err
		}

		if !time.Now().Before(deadline) {
			return loc, false, nil
		}

		select {
		case <-stop:
			return Location{}, false, nil
		case <-time.After(poll):
		}
	}
}

// LoadTemplate reads a template image from disk.
func LoadTemplate(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening template: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding template %s: %w", path, err)
	}
	return img, nil
}
