package capture

import (
	"image"

	"github.com/nvr-ai/go-parking/controller"
	"github.com/nvr-ai/go-parking/regions"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DisplaySize is the resolution processed frames are shown at.
var DisplaySize = image.Pt(1920, 1080)

// QuitKey closes the display and stops the loop.
const QuitKey = 'q'

// Display shows processed frames in a window and stops the loop when the
// quit key is pressed. It implements controller.Observer.
type Display struct {
	window   *gocv.Window
	registry *regions.Registry
	size     image.Point
}

// NewDisplay opens a window.
func NewDisplay(title string, registry *regions.Registry) *Display {
	return &Display{
		window:   gocv.NewWindow(title),
		registry: registry,
		size:     DisplaySize,
	}
}

// OnFrame implements controller.Observer. Only processed frames are drawn;
// the keyboard is polled on every frame.
func (d *Display) OnFrame(frame controller.Frame, outcome *controller.Outcome) error {
	if outcome != nil {
		img := outcome.Image
		if img == nil {
			img = frame.Image
		}
		if img != nil {
			if err := d.show(img, outcome); err != nil {
				return err
			}
		}
	}

	if key := d.window.WaitKey(1); key >= 0 && key&0xFF == QuitKey {
		return controller.ErrQuit
	}
	return nil
}

func (d *Display) show(img image.Image, outcome *controller.Outcome) error {
	annotated, err := Annotate(img, d.registry, outcome.Results, outcome.Report)
	if err != nil {
		return errors.Wrap(err, "annotate frame")
	}
	defer annotated.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(annotated, &resized, d.size, 0, 0, gocv.InterpolationLinear)

	d.window.IMShow(resized)
	return nil
}

// Close closes the window.
func (d *Display) Close() error {
	return d.window.Close()
}
