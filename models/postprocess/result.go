// Package postprocess - Post-processing of raw detector output.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-parking/images"
)

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result in frame pixel coordinates.
	Box images.Rect
	// The confidence score of the result, in [0, 1].
	Score float32
	// The predicted class index of the result.
	Class int
}

func (r Result) String() string {
	return fmt.Sprintf("class %d (confidence %.2f): (%.1f, %.1f), (%.1f, %.1f)",
		r.Class, r.Score, r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2)
}
