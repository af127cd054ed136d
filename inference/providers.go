package inference

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Provider selects the ONNX Runtime execution provider.
type Provider string

const (
	// ProviderCPU uses the default CPU execution provider.
	ProviderCPU Provider = "cpu"
	// ProviderCUDA uses NVIDIA CUDA for inference.
	ProviderCUDA Provider = "cuda"
	// ProviderCoreML uses Apple CoreML for macOS acceleration.
	ProviderCoreML Provider = "coreml"
	// ProviderOpenVINO uses Intel OpenVINO for inference.
	ProviderOpenVINO Provider = "openvino"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderCPU, ProviderCUDA, ProviderCoreML, ProviderOpenVINO}

// ParseProvider parses a provider name, case-insensitively.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", errors.Errorf("unknown execution provider %q (want one of %v)", s, Providers)
}

// ProviderOptions holds the tunables passed to the execution provider.
type ProviderOptions struct {
	// DeviceID is the GPU or accelerator index.
	DeviceID int
	// Threads bounds intra-op parallelism. 0 lets the runtime decide.
	Threads int
	// OpenVINODevice is the OpenVINO device type, e.g. "CPU" or "GPU".
	OpenVINODevice string
}

// apply configures session options for the provider.
func (p Provider) apply(options *ort.SessionOptions, opts ProviderOptions) error {
	switch p {
	case ProviderCPU, "":
		return nil
	case ProviderCoreML:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return errors.Wrap(err, "error enabling CoreML")
		}
	case ProviderOpenVINO:
		device := opts.OpenVINODevice
		if device == "" {
			device = "CPU"
		}
		// See:
		// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
		config := map[string]string{
			"device_id":   fmt.Sprintf("%d", opts.DeviceID),
			"device_type": device,
			"precision":   "FP32",
		}
		if opts.Threads > 0 {
			config["num_of_threads"] = fmt.Sprintf("%d", opts.Threads)
		}
		if err := options.AppendExecutionProviderOpenVINO(config); err != nil {
			return errors.Wrap(err, "error enabling OpenVINO")
		}
	case ProviderCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "error creating CUDA options")
		}
		defer cuda.Destroy()

		err = cuda.Update(map[string]string{
			"device_id": fmt.Sprintf("%d", opts.DeviceID),
		})
		if err != nil {
			return errors.Wrap(err, "error updating CUDA options")
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "error enabling CUDA")
		}
	default:
		return errors.Errorf("unknown execution provider %q", p)
	}
	return nil
}

// SharedLibPath returns the default path to the ONNX Runtime shared library
// for the current platform.
//
// Returns:
//   - string: The path to the shared library.
func SharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
