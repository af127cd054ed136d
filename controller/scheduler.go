package controller

import (
	"time"
)

// DefaultInterval is the minimum time between two processed frames.
const DefaultInterval = 20 * time.Second

// Scheduler throttles how often frames are processed.
//
// The first frame offered is always processed. After that a frame is
// processed once at least the interval has elapsed since the last processed
// frame. Scheduler is not safe for concurrent use; it is owned by the single
// processing loop.
type Scheduler struct {
	interval time.Duration
	last     time.Time
	started  bool
}

// NewScheduler creates a scheduler. A non-positive interval processes every
// frame.
func NewScheduler(interval time.Duration) *Scheduler {
	return &Scheduler{interval: interval}
}

// Interval returns the configured interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Ready reports whether a frame stamped now should be processed and, if so,
// records now as the last run.
//
// Arguments:
//   - now: The frame timestamp.
//
// Returns:
//   - bool: True if the frame should be processed.
func (s *Scheduler) Ready(now time.Time) bool {
	if s.started && now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now
	s.started = true
	return true
}

// Last returns the timestamp of the last processed frame.
func (s *Scheduler) Last() (time.Time, bool) {
	return s.last, s.started
}

// Reset forgets the last run so the next frame is processed.
func (s *Scheduler) Reset() {
	s.last = time.Time{}
	s.started = false
}
