// Package inference - ONNX Runtime vehicle detection.
package inference

import (
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var initOnce struct {
	sync.Mutex
	path string
}

// initEnvironment loads the shared library and initializes the runtime. The
// environment is process-wide, so later calls with a different path fail.
func initEnvironment(libPath string) error {
	initOnce.Lock()
	defer initOnce.Unlock()

	if ort.IsInitialized() {
		if initOnce.path != libPath {
			return errors.Errorf("ONNX Runtime already initialized from %s", initOnce.path)
		}
		return nil
	}

	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	initOnce.path = libPath
	return nil
}

// Session represents a model session from the onnxruntime with its
// preallocated tensors.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// newSession creates a session whose input is [1, 3, size.Y, size.X] and whose
// output is [1, 4+classes, anchors].
func newSession(cfg Config) (*Session, error) {
	input, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, 3, int64(cfg.InputSize.Y), int64(cfg.InputSize.X)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(boxFields+cfg.NumClasses), int64(cfg.Anchors)),
	)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if cfg.ProviderOptions.Threads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.ProviderOptions.Threads); err != nil {
			input.Destroy()
			output.Destroy()
			return nil, errors.Wrap(err, "error setting intra-op threads")
		}
	}
	if err := cfg.Provider.apply(options, cfg.ProviderOptions); err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "error creating ORT session for %s", cfg.ModelPath)
	}

	return &Session{Session: session, Input: input, Output: output}, nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	if s.Session != nil {
		if err := s.Session.Destroy(); err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
		s.Session = nil
	}
	return nil
}

// inputSize returns the configured model input size, defaulting to 640x640.
func inputSize(p image.Point) image.Point {
	if p.X <= 0 || p.Y <= 0 {
		return image.Pt(DefaultInputSize, DefaultInputSize)
	}
	return p
}
