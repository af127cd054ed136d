package inference

import (
	"context"
	"image"
	"sync"

	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/pkg/errors"
)

// Config configures a Detector.
type Config struct {
	// ModelPath is the YOLOv8 ONNX export.
	ModelPath string
	// LibraryPath is the ONNX Runtime shared library. Defaults to SharedLibPath().
	LibraryPath     string
	Provider        Provider
	ProviderOptions ProviderOptions
	// InputSize defaults to 640x640.
	InputSize  image.Point
	NumClasses int
	Anchors    int
	// MinScore is the lowest class score kept before NMS. The vehicle filter
	// applies its own confidence threshold afterwards.
	MinScore float32
	NMS      postprocess.NMSConfig
}

// DefaultConfig returns the configuration of a 640x640 COCO YOLOv8 export.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		Provider:   ProviderCPU,
		InputSize:  image.Pt(DefaultInputSize, DefaultInputSize),
		NumClasses: DefaultNumClasses,
		Anchors:    DefaultAnchors,
		MinScore:   0.1,
		NMS:        postprocess.DefaultNMSConfig(),
	}
}

// Detector runs a YOLOv8 model on frames.
type Detector struct {
	mu      sync.Mutex
	cfg     Config
	session *Session
}

// NewDetector loads the model and prepares an inference session.
//
// Arguments:
//   - cfg: The detector configuration.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error if the runtime or model cannot be loaded.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = SharedLibPath()
	}
	if cfg.NumClasses <= 0 {
		cfg.NumClasses = DefaultNumClasses
	}
	if cfg.Anchors <= 0 {
		cfg.Anchors = DefaultAnchors
	}
	cfg.InputSize = inputSize(cfg.InputSize)

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	session, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	return &Detector{cfg: cfg, session: session}, nil
}

// Detect runs inference on img and returns results in img's coordinates,
// highest score first.
//
// Arguments:
//   - ctx: The context.
//   - img: The frame to detect vehicles in.
//
// Returns:
//   - []postprocess.Result: The detections.
//   - error: An error if the detection fails.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("no frame to detect on")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.New("detector closed")
	}

	if err := PrepareInput(img, d.cfg.InputSize, d.session.Input.GetData()); err != nil {
		return nil, errors.Wrap(err, "failed to prepare input")
	}
	if err := d.session.Session.Run(); err != nil {
		return nil, errors.Wrap(err, "failed to run inference")
	}

	bounds := img.Bounds()
	return DecodeYOLOv8(d.session.Output.GetData(), DecodeConfig{
		NumClasses: d.cfg.NumClasses,
		Anchors:    d.cfg.Anchors,
		InputSize:  d.cfg.InputSize,
		FrameSize:  image.Pt(bounds.Dx(), bounds.Dy()),
		MinScore:   d.cfg.MinScore,
		NMS:        d.cfg.NMS,
	})
}

// Close releases the session.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	return err
}
