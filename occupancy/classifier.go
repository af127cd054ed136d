// Package occupancy - Assigns detected vehicles to parking regions and derives free spot counts.
package occupancy

import (
	"image"

	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/nvr-ai/go-parking/regions"
	"github.com/pkg/errors"
)

// DefaultPriority is the order categories are tested in. A point inside both
// a normal and a handicap region counts as normal.
var DefaultPriority = []regions.Category{regions.Normal, regions.Handicap}

// Tally is the number of vehicles found in each category in one frame.
type Tally struct {
	Normal   int
	Handicap int
}

// Add counts one vehicle in category c.
func (t *Tally) Add(c regions.Category) {
	switch c {
	case regions.Normal:
		t.Normal++
	case regions.Handicap:
		t.Handicap++
	}
}

// Occupied returns the count of category c.
func (t Tally) Occupied(c regions.Category) int {
	switch c {
	case regions.Normal:
		return t.Normal
	case regions.Handicap:
		return t.Handicap
	default:
		return 0
	}
}

// Classifier decides which region category, if any, a vehicle occupies.
type Classifier struct {
	registry *regions.Registry
	priority []regions.Category
}

// NewClassifier creates a classifier over the regions of registry.
//
// Arguments:
//   - registry: The parking regions.
//   - priority: Categories in the order they are tested; the first region
//     containing the point decides. Defaults to DefaultPriority.
//
// Returns:
//   - *Classifier: The classifier.
//   - error: An error if the priority list names an unknown or repeated category.
func NewClassifier(registry *regions.Registry, priority ...regions.Category) (*Classifier, error) {
	if registry == nil {
		return nil, errors.New("classifier needs a region registry")
	}
	if len(priority) == 0 {
		priority = DefaultPriority
	}

	seen := make(map[regions.Category]bool, len(priority))
	for _, c := range priority {
		if !c.Valid() {
			return nil, errors.Errorf("unknown category %s in priority list", c)
		}
		if seen[c] {
			return nil, errors.Errorf("category %s listed twice in priority list", c)
		}
		seen[c] = true
	}

	return &Classifier{
		registry: registry,
		priority: append([]regions.Category(nil), priority...),
	}, nil
}

// Priority returns the category test order.
func (c *Classifier) Priority() []regions.Category {
	return append([]regions.Category(nil), c.priority...)
}

// Classify returns the category of the first region containing pt. Regions
// are visited category by category in priority order, and in registry order
// within a category. Boundary points are inside.
//
// Returns:
//   - regions.Category: The category of the matching region.
//   - bool: False when no region contains pt.
func (c *Classifier) Classify(pt image.Point) (regions.Category, bool) {
	for _, category := range c.priority {
		for _, polygon := range c.registry.Polygons(category) {
			if polygon.Contains(pt) {
				return category, true
			}
		}
	}
	return 0, false
}

// ClassifyResult classifies a detection by the midpoint of its box.
func (c *Classifier) ClassifyResult(r postprocess.Result) (regions.Category, bool) {
	return c.Classify(r.Box.Center())
}

// Tally counts the detections of one frame per category. Detections outside
// every region are not counted.
func (c *Classifier) Tally(results []postprocess.Result) Tally {
	var t Tally
	for _, r := range results {
		if category, ok := c.ClassifyResult(r); ok {
			t.Add(category)
		}
	}
	return t
}
