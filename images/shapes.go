// Package images - Frame geometry used by detection post-processing and region matching.
package images

import (
	"image"

	"github.com/chewxy/math32"
)

// Rect is a detection bounding box in frame pixel coordinates.
type Rect struct {
	// X1,Y1 is the top-left corner, X2,Y2 the bottom-right corner.
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the box, never negative.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height returns the vertical extent of the box, never negative.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns the area of the box in square pixels. Degenerate boxes have zero area.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Center returns the midpoint of the box, truncated to integer pixel coordinates.
//
// Returns:
//   - image.Point: The box midpoint.
//
// Example Usage:
// ```go
//
//	Rect{X1: 10, Y1: 10, X2: 21, Y2: 31}.Center() // (15, 20)
//
// ```
func (r Rect) Center() image.Point {
	return image.Point{
		X: int((r.X1 + r.X2) / 2),
		Y: int((r.Y1 + r.Y2) / 2),
	}
}

// ToRectangle converts the box to an image.Rectangle, truncating fractional pixels.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Canon()
}

// Intersection returns the axis-aligned intersection of r and o. The result
// has a non-positive width or height when the boxes do not overlap.
func Intersection(r, o Rect) Rect {
	return Rect{
		X1: math32.Max(r.X1, o.X1),
		Y1: math32.Max(r.Y1, o.Y1),
		X2: math32.Min(r.X2, o.X2),
		Y2: math32.Min(r.Y2, o.Y2),
	}
}

// intersectionArea returns the overlapping area of r and o, or 0 when they
// only touch or are disjoint.
func intersectionArea(r, o Rect) float32 {
	in := Intersection(r, o)
	w := in.X2 - in.X1
	h := in.Y2 - in.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// OverlapRatio measures how much of the smaller box is covered by the other one.
//
// The ratio is computed as:
//
//	OverlapRatio = Area of Intersection / min(Area(r), Area(o))
//
// Unlike IoU, a small box fully contained in a large box scores 1.0. This is
// what we want when the detector emits two boxes for one parked vehicle: one
// tight around the body and one looser box around it.
//
// Arguments:
//   - r: The first box.
//   - o: The second box.
//
// Returns:
//   - float32: A value in [0.0, 1.0]. Disjoint or touching boxes, and boxes
//     with zero area, score 0.0.
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
//	b := Rect{X1: 25, Y1: 25, X2: 75, Y2: 75}
//	OverlapRatio(a, b) // 1.0, b lies inside a
//
// ```
func OverlapRatio(r, o Rect) float32 {
	inter := intersectionArea(r, o)
	if inter == 0 {
		return 0
	}
	smaller := math32.Min(r.Area(), o.Area())
	if smaller <= 0 {
		return 0
	}
	return inter / smaller
}

// Overlaps reports whether r and o cover the same object, i.e. their
// OverlapRatio is at least threshold.
func Overlaps(r, o Rect, threshold float32) bool {
	return OverlapRatio(r, o) >= threshold
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
//	IoU = Area of Intersection / (Area(A) + Area(B) - Area of Intersection)
//
// Used by non-maximum suppression on raw model output.
//
// Arguments:
//   - r: The first box.
//   - o: The second box.
//
// Returns:
//   - float32: A value between 0.0 and 1.0.
func CalculateIoU(r, o Rect) float32 {
	inter := intersectionArea(r, o)
	if inter == 0 {
		return 0
	}
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Polygon is a closed polygon given by its vertices in order. The last vertex
// connects back to the first.
type Polygon []image.Point

// Centroid returns the mean vertex position, with x and y averaged
// independently and truncated to integers.
//
// Returns:
//   - image.Point: The vertex mean, or the zero point for an empty polygon.
func (p Polygon) Centroid() image.Point {
	if len(p) == 0 {
		return image.Point{}
	}
	var sx, sy float64
	for _, v := range p {
		sx += float64(v.X)
		sy += float64(v.Y)
	}
	n := float64(len(p))
	return image.Point{X: int(sx / n), Y: int(sy / n)}
}

// Bounds returns the smallest rectangle containing every vertex. The
// rectangle is inclusive of its Max corner.
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	b := image.Rectangle{Min: p[0], Max: p[0]}
	for _, v := range p[1:] {
		b.Min.X = min(b.Min.X, v.X)
		b.Min.Y = min(b.Min.Y, v.Y)
		b.Max.X = max(b.Max.X, v.X)
		b.Max.Y = max(b.Max.Y, v.Y)
	}
	return b
}

// Contains reports whether pt lies inside the polygon or on its boundary.
//
// Points on an edge or on a vertex count as inside, matching OpenCV's
// pointPolygonTest(...) >= 0. Interior membership uses the even-odd crossing
// rule with integer arithmetic, so the result is exact for pixel coordinates.
//
// Arguments:
//   - pt: The point to test.
//
// Returns:
//   - bool: True when pt is inside or on the boundary.
func (p Polygon) Contains(pt image.Point) bool {
	n := len(p)
	if n == 0 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := p[j], p[i]
		if onSegment(a, b, pt) {
			return true
		}
		if (b.Y > pt.Y) != (a.Y > pt.Y) {
			// Crossing x of edge a-b at pt.Y is a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y).
			// Compare without dividing; flip the inequality when dy is negative.
			dy := b.Y - a.Y
			lhs := (pt.X - a.X) * dy
			rhs := (pt.Y - a.Y) * (b.X - a.X)
			if (dy > 0 && lhs < rhs) || (dy < 0 && lhs > rhs) {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// onSegment reports whether pt lies on the closed segment a-b.
func onSegment(a, b, pt image.Point) bool {
	cross := (b.X-a.X)*(pt.Y-a.Y) - (b.Y-a.Y)*(pt.X-a.X)
	if cross != 0 {
		return false
	}
	return pt.X >= min(a.X, b.X) && pt.X <= max(a.X, b.X) &&
		pt.Y >= min(a.Y, b.Y) && pt.Y <= max(a.Y, b.Y)
}
