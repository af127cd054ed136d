package postprocess

import (
	"github.com/nvr-ai/go-parking/images"
	"github.com/nvr-ai/go-parking/models"
	"github.com/pkg/errors"
)

const (
	// DefaultMinConfidence is the lowest score accepted as a vehicle.
	DefaultMinConfidence = 0.25
	// DefaultOverlapThreshold is the overlap ratio at which two boxes are
	// taken to be the same vehicle.
	DefaultOverlapThreshold = 0.95
)

// FilterConfig configures vehicle filtering and duplicate suppression.
type FilterConfig struct {
	// Classes are the accepted class indices.
	Classes []int `json:"classes" yaml:"classes"`
	// MinConfidence rejects results scoring below it.
	MinConfidence float32 `json:"min_confidence" yaml:"min_confidence"`
	// OverlapThreshold is the images.OverlapRatio at or above which a result
	// duplicates an already accepted one.
	OverlapThreshold float32 `json:"overlap_threshold" yaml:"overlap_threshold"`
}

// DefaultFilterConfig accepts cars, motorcycles and trucks from a YOLO model.
func DefaultFilterConfig() FilterConfig {
	classes, err := models.YOLOClasses.Indices(models.VehicleClasses...)
	if err != nil {
		panic(err)
	}
	return FilterConfig{
		Classes:          classes,
		MinConfidence:    DefaultMinConfidence,
		OverlapThreshold: DefaultOverlapThreshold,
	}
}

// Filter reduces the raw detections of one frame to a set of distinct vehicles.
type Filter struct {
	classes          map[int]struct{}
	minConfidence    float32
	overlapThreshold float32
}

// NewFilter creates a filter.
//
// Arguments:
//   - config: The filter configuration.
//
// Returns:
//   - *Filter: The filter.
//   - error: An error if no class is configured or a threshold is outside (0, 1].
func NewFilter(config FilterConfig) (*Filter, error) {
	if len(config.Classes) == 0 {
		return nil, errors.New("filter needs at least one class")
	}
	if config.MinConfidence < 0 || config.MinConfidence > 1 {
		return nil, errors.Errorf("min confidence must be in [0, 1], got %v", config.MinConfidence)
	}
	if config.OverlapThreshold <= 0 || config.OverlapThreshold > 1 {
		return nil, errors.Errorf("overlap threshold must be in (0, 1], got %v", config.OverlapThreshold)
	}

	classes := make(map[int]struct{}, len(config.Classes))
	for _, c := range config.Classes {
		classes[c] = struct{}{}
	}
	return &Filter{
		classes:          classes,
		minConfidence:    config.MinConfidence,
		overlapThreshold: config.OverlapThreshold,
	}, nil
}

// Accept reports whether a result has a vehicle class and enough confidence.
func (f *Filter) Accept(r Result) bool {
	if _, ok := f.classes[r.Class]; !ok {
		return false
	}
	return r.Score >= f.minConfidence
}

// Apply keeps the accepted results that do not duplicate an earlier kept one.
//
// Results are visited in the order the detector emitted them and the first
// box seen for a vehicle wins. A result is dropped if it overlaps any result
// already kept, whatever its class. Applying the filter to its own output
// returns that output unchanged.
//
// Arguments:
//   - results: The raw results of one frame, in emission order.
//
// Returns:
//   - []Result: The kept results, in input order.
func (f *Filter) Apply(results []Result) []Result {
	kept := make([]Result, 0, len(results))
	for _, candidate := range results {
		if !f.Accept(candidate) {
			continue
		}
		if f.duplicates(candidate, kept) {
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

func (f *Filter) duplicates(candidate Result, kept []Result) bool {
	for _, k := range kept {
		if images.Overlaps(candidate.Box, k.Box, f.overlapThreshold) {
			return true
		}
	}
	return false
}
