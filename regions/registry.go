// Package regions - Parking region definitions and the immutable registry built from them.
package regions

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-parking/images"
	"github.com/pkg/errors"
)

// Category is the kind of parking a region marks.
type Category int

const (
	// Normal marks regular parking stalls.
	Normal Category = iota
	// Handicap marks accessible parking stalls.
	Handicap
)

// Categories lists every category in declaration order.
var Categories = []Category{Normal, Handicap}

func (c Category) String() string {
	switch c {
	case Normal:
		return "normal"
	case Handicap:
		return "handicap"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == Normal || c == Handicap
}

// Region is a polygon marking a group of stalls of one category.
type Region struct {
	// Polygon is the region outline in frame pixel coordinates.
	Polygon images.Polygon
	// Category is the kind of parking inside the polygon.
	Category Category
	// Centroid is the mean vertex position, used for display only.
	Centroid image.Point
}

// Registry holds the parking regions for the lifetime of the process. It is
// immutable once built and safe for concurrent reads.
type Registry struct {
	byCategory map[Category][]Region
}

// NewRegistry builds a registry from region definitions. Definitions keep
// their relative order within each category.
//
// Arguments:
//   - defs: The region definitions, usually from Load.
//
// Returns:
//   - *Registry: The registry.
//   - error: An error if no region is defined or a polygon has fewer than three vertices.
func NewRegistry(defs []Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.New("no parking regions defined")
	}

	r := &Registry{byCategory: make(map[Category][]Region, len(Categories))}
	for i, def := range defs {
		polygon, err := def.Polygon()
		if err != nil {
			return nil, errors.Wrapf(err, "region %d", i)
		}
		category := def.Category()
		r.byCategory[category] = append(r.byCategory[category], Region{
			Polygon:  polygon,
			Category: category,
			Centroid: polygon.Centroid(),
		})
	}
	return r, nil
}

// Regions returns the regions of a category in definition order. The
// returned slice is a copy.
func (r *Registry) Regions(c Category) []Region {
	src := r.byCategory[c]
	out := make([]Region, len(src))
	copy(out, src)
	return out
}

// Polygons returns the polygons of a category in definition order.
func (r *Registry) Polygons(c Category) []images.Polygon {
	src := r.byCategory[c]
	out := make([]images.Polygon, len(src))
	for i, region := range src {
		out[i] = region.Polygon
	}
	return out
}

// Centroids returns the centroids of a category in definition order.
func (r *Registry) Centroids(c Category) []image.Point {
	src := r.byCategory[c]
	out := make([]image.Point, len(src))
	for i, region := range src {
		out[i] = region.Centroid
	}
	return out
}

// Centroid returns the centroid of a polygon.
func Centroid(p images.Polygon) image.Point {
	return p.Centroid()
}

// Count returns the number of regions in a category.
func (r *Registry) Count(c Category) int {
	return len(r.byCategory[c])
}

// Len returns the total number of regions.
func (r *Registry) Len() int {
	n := 0
	for _, regions := range r.byCategory {
		n += len(regions)
	}
	return n
}
