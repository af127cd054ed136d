package occupancy

import (
	"context"
	"strconv"

	"github.com/nvr-ai/go-parking/monitoring"
	"github.com/nvr-ai/go-parking/regions"
	"github.com/nvr-ai/go-parking/store"
	"github.com/pkg/errors"
)

// Totals is the configured capacity of each category.
type Totals struct {
	Normal   int
	Handicap int
}

// Total returns the capacity of category c.
func (t Totals) Total(c regions.Category) int {
	switch c {
	case regions.Normal:
		return t.Normal
	case regions.Handicap:
		return t.Handicap
	default:
		return 0
	}
}

// Availability is the outcome for one category in one frame.
//
// Free is Total - Occupied and may be negative when more vehicles are seen
// than the lot is configured for.
type Availability struct {
	Category regions.Category
	Total    int
	Occupied int
	Free     int
	// Persisted is the free count read back from the store after saving.
	// It is only meaningful when Saved is true.
	Persisted int
	Saved     bool
}

// Compute derives the free count of every category.
//
// Arguments:
//   - tally: The occupied counts of the frame.
//   - totals: The capacity of each category.
//
// Returns:
//   - []Availability: One entry per category, in regions.Categories order.
func Compute(tally Tally, totals Totals) []Availability {
	out := make([]Availability, 0, len(regions.Categories))
	for _, c := range regions.Categories {
		total := totals.Total(c)
		occupied := tally.Occupied(c)
		out = append(out, Availability{
			Category: c,
			Total:    total,
			Occupied: occupied,
			Free:     total - occupied,
		})
	}
	return out
}

// Report is what one processed frame produced.
type Report struct {
	Tally        Tally
	Availability []Availability
}

// For returns the availability of category c.
func (r *Report) For(c regions.Category) (Availability, bool) {
	if r == nil {
		return Availability{}, false
	}
	for _, a := range r.Availability {
		if a.Category == c {
			return a, true
		}
	}
	return Availability{}, false
}

// Publisher computes availability against the stored capacities and writes
// the free counts back to the store.
type Publisher struct {
	spots *store.Spots
}

// NewPublisher creates a publisher over a store.
func NewPublisher(s store.Store) *Publisher {
	return &Publisher{spots: store.NewSpots(s)}
}

// Totals fetches the capacity of every category.
func (p *Publisher) Totals(ctx context.Context) (Totals, error) {
	normal, err := p.spots.TotalSpots(ctx)
	if err != nil {
		return Totals{}, errors.Wrap(err, "fetch total spots")
	}
	handicap, err := p.spots.TotalHandicapSpots(ctx)
	if err != nil {
		return Totals{}, errors.Wrap(err, "fetch total handicap spots")
	}
	return Totals{Normal: normal, Handicap: handicap}, nil
}

// Publish computes and persists the availability for one frame's tally.
//
// Each category is saved independently: a failed save does not prevent the
// other category from being written. Saved counts are read back and logged.
//
// Arguments:
//   - ctx: The context.
//   - tally: The occupied counts of the frame.
//
// Returns:
//   - *Report: The computed availability; nil if the totals could not be fetched.
//   - error: The first fetch or save error, if any.
func (p *Publisher) Publish(ctx context.Context, tally Tally) (*Report, error) {
	totals, err := p.Totals(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Tally:        tally,
		Availability: Compute(tally, totals),
	}

	var firstErr error
	for i := range report.Availability {
		a := &report.Availability[i]

		if err := p.spots.SaveAvailable(ctx, a.Category, a.Free); err != nil {
			monitoring.Warnf("save free %s spots: %v", a.Category, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		persisted, err := p.spots.Available(ctx, a.Category)
		if err != nil {
			monitoring.Warnf("read back free %s spots: %v", a.Category, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		a.Persisted = persisted
		a.Saved = true
	}

	for _, a := range report.Availability {
		available := "unknown"
		if a.Saved {
			available = strconv.Itoa(a.Persisted)
		}
		monitoring.Infof("%s spots: total=%d occupied=%d free=%d available=%s",
			a.Category, a.Total, a.Occupied, a.Free, available)
	}

	return report, firstErr
}
