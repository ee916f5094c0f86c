package screen

import (
	"fmt"
	"image"

	// Template images are PNG or JPEG captures.
	_ "image/jpeg"
	_ "image/png"

	"github.com/go-vgo/robotgo"
	"github.com/vcaesar/gcv"
)

// Display captures the primary display via robotgo.
type Display struct{}

func (Display) Capture() (image.Image, error) {
	img := robotgo.CaptureImg()
	if img == nil {
		return nil, fmt.Errorf("capture returned no image")
	}
	return img, nil
}

// GCVSearcher runs gcv template matching over a captured frame.
type GCVSearcher struct{}

func (GCVSearcher) Search(template, source image.Image) (image.Point, float64) {
	results := gcv.FindAllImg(template, source)
	if len(results) == 0 {
		return image.Point{}, 0
	}
	best := results[0]
	score := 0.0
	if len(best.MaxVal) > 0 {
		score = float64(best.MaxVal[0])
	}
	return best.Middle, score
}

// NewDisplayMatcher returns a matcher over the live display.
func NewDisplayMatcher() *Matcher {
	return NewMatcher(Display{}, GCVSearcher{})
}
