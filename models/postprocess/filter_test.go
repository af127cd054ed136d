package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-parking/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	classPerson     = 0
	classCar        = 2
	classMotorcycle = 3
	classTruck      = 7
)

func newDefaultFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := NewFilter(DefaultFilterConfig())
	require.NoError(t, err)
	return f
}

func TestDefaultFilterConfig(t *testing.T) {
	cfg := DefaultFilterConfig()
	assert.ElementsMatch(t, []int{classCar, classMotorcycle, classTruck}, cfg.Classes)
	assert.Equal(t, float32(0.25), cfg.MinConfidence)
	assert.Equal(t, float32(0.95), cfg.OverlapThreshold)
}

func TestNewFilter_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config FilterConfig
	}{
		{"No classes", FilterConfig{MinConfidence: 0.25, OverlapThreshold: 0.95}},
		{"Confidence above one", FilterConfig{Classes: []int{2}, MinConfidence: 1.5, OverlapThreshold: 0.95}},
		{"Zero overlap", FilterConfig{Classes: []int{2}, MinConfidence: 0.25}},
		{"Overlap above one", FilterConfig{Classes: []int{2}, MinConfidence: 0.25, OverlapThreshold: 1.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilter(tt.config)
			assert.Error(t, err)
		})
	}
}

func TestFilter_Accept(t *testing.T) {
	f := newDefaultFilter(t)
	box := images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}

	tests := []struct {
		name     string
		result   Result
		expected bool
	}{
		{"Car", Result{Box: box, Score: 0.9, Class: classCar}, true},
		{"Motorcycle", Result{Box: box, Score: 0.5, Class: classMotorcycle}, true},
		{"Truck at threshold", Result{Box: box, Score: 0.25, Class: classTruck}, true},
		{"Car below threshold", Result{Box: box, Score: 0.24, Class: classCar}, false},
		{"Person", Result{Box: box, Score: 0.99, Class: classPerson}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Accept(tt.result))
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	f := newDefaultFilter(t)

	car := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: classCar}
	// Same car seen again, overlap ratio 0.97.
	sameCar := Result{Box: images.Rect{X1: 3, Y1: 0, X2: 103, Y2: 100}, Score: 0.95, Class: classCar}
	// Neighbouring car, overlap ratio 0.40.
	neighbour := Result{Box: images.Rect{X1: 60, Y1: 0, X2: 160, Y2: 100}, Score: 0.8, Class: classCar}
	// Truck label on the same vehicle still counts as a duplicate.
	relabelled := Result{Box: images.Rect{X1: 1, Y1: 1, X2: 99, Y2: 99}, Score: 0.7, Class: classTruck}
	person := Result{Box: images.Rect{X1: 500, Y1: 500, X2: 520, Y2: 560}, Score: 0.9, Class: classPerson}
	weak := Result{Box: images.Rect{X1: 300, Y1: 300, X2: 400, Y2: 400}, Score: 0.1, Class: classCar}

	tests := []struct {
		name     string
		input    []Result
		expected []Result
	}{
		{"Empty frame", nil, []Result{}},
		{"Duplicate of the same car is counted once", []Result{car, sameCar}, []Result{car}},
		{"Distinct cars are counted twice", []Result{car, neighbour}, []Result{car, neighbour}},
		{"First seen box wins", []Result{sameCar, car}, []Result{sameCar}},
		{"Duplicate across classes", []Result{car, relabelled}, []Result{car}},
		{"Non vehicles and weak results are dropped", []Result{person, car, weak}, []Result{car}},
		{"Order is preserved", []Result{neighbour, person, car, sameCar}, []Result{neighbour, car}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Apply(tt.input))
		})
	}
}

func TestFilter_RejectedResultsDoNotSuppress(t *testing.T) {
	f := newDefaultFilter(t)

	// A low confidence box must not hide a later confident box at the same place.
	weak := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.1, Class: classCar}
	strong := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.8, Class: classCar}

	assert.Equal(t, []Result{strong}, f.Apply([]Result{weak, strong}))
}

func TestFilter_ZeroAreaBoxes(t *testing.T) {
	f := newDefaultFilter(t)

	point := Result{Box: images.Rect{X1: 50, Y1: 50, X2: 50, Y2: 50}, Score: 0.9, Class: classCar}
	car := Result{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: classCar}

	assert.NotPanics(t, func() {
		assert.Equal(t, []Result{point, car}, f.Apply([]Result{point, car}))
	})
}

func TestFilter_Idempotent(t *testing.T) {
	f := newDefaultFilter(t)

	input := []Result{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: classCar},
		{Box: images.Rect{X1: 2, Y1: 1, X2: 101, Y2: 100}, Score: 0.8, Class: classCar},
		{Box: images.Rect{X1: 80, Y1: 0, X2: 180, Y2: 100}, Score: 0.7, Class: classTruck},
		{Box: images.Rect{X1: 400, Y1: 0, X2: 480, Y2: 60}, Score: 0.3, Class: classMotorcycle},
		{Box: images.Rect{X1: 401, Y1: 0, X2: 480, Y2: 60}, Score: 0.6, Class: classMotorcycle},
		{Box: images.Rect{X1: 900, Y1: 0, X2: 950, Y2: 60}, Score: 0.2, Class: classCar},
	}

	once := f.Apply(input)
	twice := f.Apply(once)

	assert.Len(t, once, 3)
	assert.Equal(t, once, twice)
}

func TestApplyGreedyNMS(t *testing.T) {
	detections := []Result{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.6, Class: classCar},
		{Box: images.Rect{X1: 2, Y1: 2, X2: 100, Y2: 100}, Score: 0.9, Class: classCar},
		{Box: images.Rect{X1: 2, Y1: 2, X2: 100, Y2: 100}, Score: 0.5, Class: classTruck},
		{Box: images.Rect{X1: 300, Y1: 300, X2: 400, Y2: 400}, Score: 0.7, Class: classCar},
	}

	filtered := ApplyGreedyNMS(detections, DefaultNMSConfig())
	require.Len(t, filtered, 3)
	assert.Equal(t, float32(0.9), filtered[0].Score)
	assert.Equal(t, float32(0.7), filtered[1].Score)
	assert.Equal(t, classTruck, filtered[2].Class)

	classAgnostic := ApplyGreedyNMS(detections, NMSConfig{IoUThreshold: 0.7})
	assert.Len(t, classAgnostic, 2)

	assert.Nil(t, ApplyGreedyNMS(nil, DefaultNMSConfig()))
}
