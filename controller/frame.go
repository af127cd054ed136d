package controller

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
)

// Frame is a single frame of video.
//
// Sources that hold frames in a native format set Load instead of Image so
// frames the scheduler skips are never converted.
type Frame struct {
	ID        int
	Timestamp time.Time
	Image     image.Image
	Load      func() (image.Image, error)
}

// Decode returns the frame image, converting it on first use.
func (f *Frame) Decode() (image.Image, error) {
	if f.Image != nil {
		return f.Image, nil
	}
	if f.Load == nil {
		return nil, errors.Errorf("frame %d has no image", f.ID)
	}
	img, err := f.Load()
	if err != nil {
		return nil, errors.Wrapf(err, "decode frame %d", f.ID)
	}
	if img == nil {
		return nil, errors.Errorf("frame %d decoded to nothing", f.ID)
	}
	f.Image = img
	return img, nil
}

// FrameSource is an unbounded stream of frames.
type FrameSource interface {
	// Next blocks until the next frame is available. It returns io.EOF when
	// the stream is exhausted.
	Next(ctx context.Context) (Frame, error)
}
