package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // 2500 / 17500
			epsilon:  0.001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25,
			epsilon:  0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			if math.Abs(float64(result-tt.expected)) > float64(tt.epsilon) {
				t.Errorf("IoU() = %v, expected %v (±%v)", result, tt.expected, tt.epsilon)
			}

			reverse := CalculateIoU(tt.r2, tt.r1)
			if math.Abs(float64(result-reverse)) > float64(tt.epsilon) {
				t.Errorf("IoU not symmetric: IoU(A,B)=%v != IoU(B,A)=%v", result, reverse)
			}
		})
	}
}

func TestOverlapRatio(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Identical", Rect{0, 0, 100, 100}, Rect{0, 0, 100, 100}, 1.0},
		{"Small box inside large box", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}, 1.0},
		{"Shifted by three pixels", Rect{0, 0, 100, 100}, Rect{3, 0, 103, 100}, 0.97},
		{"Distinct neighbours", Rect{0, 0, 100, 100}, Rect{60, 0, 160, 100}, 0.40},
		{"Disjoint", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}, 0.0},
		{"Touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}, 0.0},
		{"Touching corners", Rect{0, 0, 100, 100}, Rect{100, 100, 200, 200}, 0.0},
		{"Zero area inside other", Rect{50, 50, 50, 50}, Rect{0, 0, 100, 100}, 0.0},
		{"Zero width strip", Rect{10, 0, 10, 100}, Rect{0, 0, 100, 100}, 0.0},
		{"Both zero area", Rect{0, 0, 0, 0}, Rect{0, 0, 0, 0}, 0.0},
		{"Inverted box", Rect{100, 100, 0, 0}, Rect{0, 0, 100, 100}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, OverlapRatio(tt.r1, tt.r2), 1e-4)
			assert.InDelta(t, tt.expected, OverlapRatio(tt.r2, tt.r1), 1e-4, "ratio must be symmetric")
		})
	}
}

func TestOverlaps_Threshold(t *testing.T) {
	base := Rect{0, 0, 100, 100}

	// Intersection exactly 95% of the smaller box.
	assert.True(t, Overlaps(base, Rect{5, 0, 105, 100}, 0.95))
	// Just under the threshold.
	assert.False(t, Overlaps(base, Rect{6, 0, 106, 100}, 0.95))
	// Disjoint boxes never overlap.
	assert.False(t, Overlaps(base, Rect{500, 500, 600, 600}, 0.95))
}

func TestRect_Center(t *testing.T) {
	assert.Equal(t, image.Pt(15, 20), Rect{10, 10, 21, 31}.Center())
	assert.Equal(t, image.Pt(50, 50), Rect{0, 0, 100, 100}.Center())
	assert.Equal(t, image.Pt(100, 41), Rect{99.5, 40.2, 100.9, 42.7}.Center())
}

func TestRect_Area(t *testing.T) {
	assert.Equal(t, float32(10000), Rect{0, 0, 100, 100}.Area())
	assert.Equal(t, float32(0), Rect{0, 0, 0, 100}.Area())
	assert.Equal(t, float32(0), Rect{100, 100, 0, 0}.Area())
}

func TestPolygon_Centroid(t *testing.T) {
	tests := []struct {
		name     string
		polygon  Polygon
		expected image.Point
	}{
		{"Square", Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}, image.Pt(5, 5)},
		{"Truncated mean", Polygon{{0, 0}, {0, 7}, {7, 7}}, image.Pt(2, 4)},
		{"Single vertex", Polygon{{3, 9}}, image.Pt(3, 9)},
		{"Empty", Polygon{}, image.Point{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.polygon.Centroid())
		})
	}
}

func TestPolygon_Contains(t *testing.T) {
	square := Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	// Concave "L" shape; the notch at (7,7) is outside.
	ell := Polygon{{0, 0}, {10, 0}, {10, 5}, {5, 5}, {5, 10}, {0, 10}}
	slanted := Polygon{{100, 200}, {300, 180}, {320, 400}, {90, 420}}

	tests := []struct {
		name     string
		polygon  Polygon
		point    image.Point
		expected bool
	}{
		{"Square interior", square, image.Pt(5, 5), true},
		{"Square vertex", square, image.Pt(0, 0), true},
		{"Square edge", square, image.Pt(10, 4), true},
		{"Square outside right", square, image.Pt(11, 5), false},
		{"Square outside above", square, image.Pt(5, -1), false},
		{"L interior", ell, image.Pt(2, 8), true},
		{"L notch", ell, image.Pt(7, 7), false},
		{"L inner corner", ell, image.Pt(5, 5), true},
		{"Slanted interior", slanted, image.Pt(200, 300), true},
		{"Slanted outside", slanted, image.Pt(95, 190), false},
		{"Slanted on edge", slanted, image.Pt(200, 190), true},
		{"Empty polygon", Polygon{}, image.Pt(0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.polygon.Contains(tt.point))
		})
	}
}

func TestPolygon_Bounds(t *testing.T) {
	p := Polygon{{100, 200}, {300, 180}, {320, 400}, {90, 420}}
	assert.Equal(t, image.Rect(90, 180, 320, 420), p.Bounds())
}

func BenchmarkOverlapRatio(b *testing.B) {
	r1 := Rect{0, 0, 100, 100}
	r2 := Rect{3, 2, 103, 101}
	for i := 0; i < b.N; i++ {
		_ = OverlapRatio(r1, r2)
	}
}

func BenchmarkPolygonContains(b *testing.B) {
	p := Polygon{{100, 200}, {300, 180}, {320, 400}, {90, 420}}
	pt := image.Pt(200, 300)
	for i := 0; i < b.N; i++ {
		_ = p.Contains(pt)
	}
}
