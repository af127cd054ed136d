package inference

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-parking/images"
	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// YOLOv8 export defaults for a 640x640 input.
const (
	DefaultInputSize  = 640
	DefaultAnchors    = 8400
	DefaultNumClasses = 80
	// boxFields is cx, cy, w, h ahead of the class scores in every column.
	boxFields = 4
)

// DecodeConfig describes the layout of a YOLOv8 detection head and how its
// rows are turned into results.
type DecodeConfig struct {
	NumClasses int
	Anchors    int
	// InputSize is the model input resolution the boxes are expressed in.
	InputSize image.Point
	// FrameSize is the resolution of the frame the boxes are scaled to.
	FrameSize image.Point
	// MinScore drops candidates whose best class score is below it.
	MinScore float32
	NMS      postprocess.NMSConfig
}

// DecodeYOLOv8 converts the raw [1, 4+classes, anchors] output of a YOLOv8
// model into results in frame coordinates.
//
// The output is channel-major: all cx values, then all cy values, and so on.
// It is transposed to one row per anchor before decoding. Results are
// returned after non-maximum suppression, ordered by descending score.
//
// Arguments:
//   - output: The raw output tensor data. It is not modified.
//   - cfg: The head layout and decoding thresholds.
//
// Returns:
//   - []postprocess.Result: The decoded results.
//   - error: An error if the output does not match the layout.
func DecodeYOLOv8(output []float32, cfg DecodeConfig) ([]postprocess.Result, error) {
	if cfg.NumClasses <= 0 || cfg.Anchors <= 0 {
		return nil, errors.Errorf("invalid head layout: %d classes, %d anchors", cfg.NumClasses, cfg.Anchors)
	}
	if cfg.InputSize.X <= 0 || cfg.InputSize.Y <= 0 {
		return nil, errors.Errorf("invalid input size %v", cfg.InputSize)
	}
	stride := boxFields + cfg.NumClasses
	if len(output) != stride*cfg.Anchors {
		return nil, errors.Errorf("output holds %d floats, expected %d (%d x %d)",
			len(output), stride*cfg.Anchors, stride, cfg.Anchors)
	}

	backing := make([]float32, len(output))
	copy(backing, output)

	head := tensor.New(
		tensor.WithShape(stride, cfg.Anchors),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(backing),
	)
	if err := head.T(); err != nil {
		return nil, errors.Wrap(err, "transpose detection head")
	}
	if err := head.Transpose(); err != nil {
		return nil, errors.Wrap(err, "materialize detection head")
	}
	rows, ok := head.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("unexpected head data type %T", head.Data())
	}

	frame := cfg.FrameSize
	if frame.X <= 0 || frame.Y <= 0 {
		frame = cfg.InputSize
	}
	scaleX := float32(frame.X) / float32(cfg.InputSize.X)
	scaleY := float32(frame.Y) / float32(cfg.InputSize.Y)
	maxX, maxY := float32(frame.X), float32(frame.Y)

	var candidates []postprocess.Result
	for i := 0; i < cfg.Anchors; i++ {
		row := rows[i*stride : (i+1)*stride]

		classID, score := -1, float32(-1e9)
		for c, s := range row[boxFields:] {
			if s > score {
				classID, score = c, s
			}
		}
		if score < cfg.MinScore {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		candidates = append(candidates, postprocess.Result{
			Box: images.Rect{
				X1: clamp((cx-w/2)*scaleX, maxX),
				Y1: clamp((cy-h/2)*scaleY, maxY),
				X2: clamp((cx+w/2)*scaleX, maxX),
				Y2: clamp((cy+h/2)*scaleY, maxY),
			},
			Score: score,
			Class: classID,
		})
	}

	return postprocess.ApplyGreedyNMS(candidates, cfg.NMS), nil
}

func clamp(v, hi float32) float32 {
	return math32.Min(math32.Max(v, 0), hi)
}
