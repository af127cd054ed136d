// Package controller - Runs the occupancy pipeline against a stream of frames.
package controller

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/nvr-ai/go-parking/monitoring"
	"github.com/nvr-ai/go-parking/occupancy"
	"github.com/pkg/errors"
)

// ErrQuit is returned by an Observer to stop the loop.
var ErrQuit = errors.New("quit requested")

// Pipeline stages, as reported to a Recorder.
const (
	StageDecode   = "decode"
	StageDetect   = "detect"
	StageFilter   = "filter"
	StageClassify = "classify"
	StagePublish  = "publish"
)

// Detector is an interface for a detector.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]postprocess.Result, error)
}

// Outcome is what one processed frame produced.
type Outcome struct {
	// Results are the accepted, deduplicated vehicle detections.
	Results []postprocess.Result
	Report  *occupancy.Report
	// Image is the decoded frame the results refer to.
	Image image.Image
}

// Observer is notified of every frame read. outcome is nil for frames the
// scheduler skipped or that failed.
type Observer interface {
	OnFrame(frame Frame, outcome *Outcome) error
}

// Recorder receives pipeline measurements.
type Recorder interface {
	FrameSeen()
	FrameSkipped()
	FrameFailed(stage string)
	ObserveStage(stage string, d time.Duration)
	SetAvailability(availability []occupancy.Availability)
}

// Config holds the collaborators of a Controller.
type Config struct {
	Detector   Detector
	Filter     *postprocess.Filter
	Classifier *occupancy.Classifier
	Publisher  *occupancy.Publisher
	Interval   time.Duration
	Observers  []Observer
	// Recorder is optional.
	Recorder Recorder
	// Now stamps frames that arrive without a timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Controller classifies sampled frames and publishes parking availability.
// One frame is fully processed before the next is read.
type Controller struct {
	detector   Detector
	filter     *postprocess.Filter
	classifier *occupancy.Classifier
	publisher  *occupancy.Publisher
	scheduler  *Scheduler
	observers  []Observer
	recorder   Recorder
	now        func() time.Time
}

// New creates a controller.
//
// Arguments:
//   - cfg: The collaborators. Detector, Filter, Classifier and Publisher are required.
//
// Returns:
//   - *Controller: The controller.
//   - error: An error if a required collaborator is missing.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Detector == nil:
		return nil, errors.New("controller needs a detector")
	case cfg.Filter == nil:
		return nil, errors.New("controller needs a detection filter")
	case cfg.Classifier == nil:
		return nil, errors.New("controller needs a region classifier")
	case cfg.Publisher == nil:
		return nil, errors.New("controller needs a publisher")
	}

	c := &Controller{
		detector:   cfg.Detector,
		filter:     cfg.Filter,
		classifier: cfg.Classifier,
		publisher:  cfg.Publisher,
		scheduler:  NewScheduler(cfg.Interval),
		observers:  cfg.Observers,
		recorder:   cfg.Recorder,
		now:        cfg.Now,
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Run reads frames from src until the stream ends, ctx is done or an
// observer returns ErrQuit. Those are normal terminations and return nil.
// Failures of a single frame are logged and the loop continues.
//
// Arguments:
//   - ctx: The context; cancelling it stops the loop between frames.
//   - src: The frame stream.
//
// Returns:
//   - error: An error if src fails for a reason other than io.EOF.
func (c *Controller) Run(ctx context.Context, src FrameSource) error {
	for {
		if ctx.Err() != nil {
			monitoring.Infof("stopping: %v", ctx.Err())
			return nil
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			monitoring.Infof("stream ended")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				monitoring.Infof("stopping: %v", ctx.Err())
				return nil
			}
			return errors.Wrap(err, "read frame")
		}
		if frame.Timestamp.IsZero() {
			frame.Timestamp = c.now()
		}
		c.recorder.FrameSeen()

		var outcome *Outcome
		if c.scheduler.Ready(frame.Timestamp) {
			outcome, err = c.Process(ctx, frame)
			if err != nil {
				monitoring.Warnf("frame %d: %v", frame.ID, err)
			}
			if outcome != nil && frame.Image == nil {
				frame.Image = outcome.Image
			}
		} else {
			c.recorder.FrameSkipped()
		}

		for _, o := range c.observers {
			err := o.OnFrame(frame, outcome)
			if errors.Is(err, ErrQuit) {
				monitoring.Infof("quit requested at frame %d", frame.ID)
				return nil
			}
			if err != nil {
				monitoring.Warnf("observer on frame %d: %v", frame.ID, err)
			}
		}
	}
}

// Process runs detection, filtering, classification and publishing on one
// frame, ignoring the scheduler.
//
// A panic inside any stage is recovered and returned as an error. When only
// publishing fails the outcome is still returned alongside the error.
//
// Arguments:
//   - ctx: The context.
//   - frame: The frame to process.
//
// Returns:
//   - *Outcome: The accepted detections and availability report.
//   - error: An error if any stage failed.
func (c *Controller) Process(ctx context.Context, frame Frame) (outcome *Outcome, err error) {
	stage := StageDecode
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = errors.Errorf("panic during %s: %v", stage, r)
		}
		if err != nil {
			c.recorder.FrameFailed(stage)
		}
	}()

	start := time.Now()
	img, err := frame.Decode()
	if err != nil {
		return nil, err
	}
	c.recorder.ObserveStage(stage, time.Since(start))

	stage = StageDetect
	start = time.Now()
	raw, err := c.detector.Detect(ctx, img)
	if err != nil {
		return nil, errors.Wrap(err, "detect")
	}
	c.recorder.ObserveStage(stage, time.Since(start))

	stage = StageFilter
	start = time.Now()
	accepted := c.filter.Apply(raw)
	c.recorder.ObserveStage(stage, time.Since(start))

	stage = StageClassify
	start = time.Now()
	tally := c.classifier.Tally(accepted)
	c.recorder.ObserveStage(stage, time.Since(start))

	monitoring.Infof("frame %d: %d raw detections, %d vehicles, %d normal, %d handicap",
		frame.ID, len(raw), len(accepted), tally.Normal, tally.Handicap)

	stage = StagePublish
	start = time.Now()
	report, err := c.publisher.Publish(ctx, tally)
	if report == nil {
		return nil, errors.Wrap(err, "publish")
	}
	c.recorder.ObserveStage(stage, time.Since(start))
	c.recorder.SetAvailability(report.Availability)

	outcome = &Outcome{Results: accepted, Report: report, Image: img}
	if err != nil {
		return outcome, errors.Wrap(err, "publish")
	}
	return outcome, nil
}

type nopRecorder struct{}

func (nopRecorder) FrameSeen() {}
func (nopRecorder) FrameSkipped() {}
func (nopRecorder) FrameFailed(string) {}
func (nopRecorder) ObserveStage(string, time.Duration) {}
func (nopRecorder) SetAvailability([]occupancy.Availability) {}
