// Package capture - Video frame acquisition and on-screen display with gocv.
package capture

import (
	"context"
	"image"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/nvr-ai/go-parking/controller"
	"github.com/nvr-ai/go-parking/monitoring"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// VideoSource reads frames from a stream URL, a video file or a device.
//
// Frames are read into one reusable matrix. The Load function of a frame is
// only valid until the next call to Next.
type VideoSource struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
	source  string
	frame   int
	now     func() time.Time
}

// OpenVideo opens a video source.
//
// Arguments:
//   - source: A stream URL, a file path or a device index such as "0".
//
// Returns:
//   - *VideoSource: The opened source.
//   - error: An error if the source cannot be opened.
func OpenVideo(source string) (*VideoSource, error) {
	if source == "" {
		return nil, errors.New("no video source given")
	}

	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, errors.Wrapf(err, "open video %s", redact(source))
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("could not open video %s", redact(source))
	}

	monitoring.Infof("video opened: %s (%.0fx%.0f @ %.1f fps)", redact(source),
		capture.Get(gocv.VideoCaptureFrameWidth),
		capture.Get(gocv.VideoCaptureFrameHeight),
		capture.Get(gocv.VideoCaptureFPS))

	return &VideoSource{
		capture: capture,
		mat:     gocv.NewMat(),
		source:  source,
		frame:   -1,
		now:     time.Now,
	}, nil
}

// Next implements controller.FrameSource. It returns io.EOF when the stream
// can no longer be read.
func (v *VideoSource) Next(ctx context.Context) (controller.Frame, error) {
	if err := ctx.Err(); err != nil {
		return controller.Frame{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return controller.Frame{}, io.EOF
	}
	if ok := v.capture.Read(&v.mat); !ok || v.mat.Empty() {
		monitoring.Infof("cannot read video %s after %d frames", redact(v.source), v.frame+1)
		return controller.Frame{}, io.EOF
	}
	v.frame++

	id := v.frame
	return controller.Frame{
		ID:        id,
		Timestamp: v.now(),
		Load:      func() (image.Image, error) { return v.load(id) },
	}, nil
}

func (v *VideoSource) load(id int) (image.Image, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id != v.frame || v.capture == nil {
		return nil, errors.Errorf("frame %d is no longer available", id)
	}
	img, err := v.mat.ToImage()
	if err != nil {
		return nil, errors.Wrapf(err, "convert frame %d", id)
	}
	return img, nil
}

// Close releases the capture device.
func (v *VideoSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return nil
	}
	err := v.capture.Close()
	v.capture = nil
	v.mat.Close()
	return err
}

// redact hides credentials embedded in a stream URL.
func redact(source string) string {
	scheme := strings.Index(source, "://")
	at := strings.LastIndex(source, "@")
	if scheme < 0 || at < scheme {
		return source
	}
	return source[:scheme+3] + "***" + source[at:]
}
