package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput prepares the input for the ONNX model before inference is
// called.
//
// The image is resized to size and written to dst in planar RGB order
// ([3, size.Y, size.X]), scaled to [0, 1].
//
// Arguments:
//   - img: The image to prepare.
//   - size: The model input width (X) and height (Y).
//   - dst: The destination tensor data to populate.
//
// Returns:
//   - error: An error if the input preparation fails.
func PrepareInput(img image.Image, size image.Point, dst []float32) error {
	if img == nil {
		return errors.New("no image to prepare")
	}
	if size.X <= 0 || size.Y <= 0 {
		return errors.Errorf("invalid model input size %v", size)
	}
	if b := img.Bounds(); b.Empty() {
		return errors.Errorf("empty image %v", b)
	}

	channelSize := size.X * size.Y
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d "+
			"(make sure it's the right shape!)", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	if b := img.Bounds(); b.Dx() != size.X || b.Dy() != size.Y {
		img = resize.Resize(uint(size.X), uint(size.Y), img, resize.Lanczos3)
	}
	min := img.Bounds().Min

	i := 0
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			r, g, b, _ := img.At(min.X+x, min.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
