package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-parking/capture"
	"github.com/nvr-ai/go-parking/config"
	"github.com/nvr-ai/go-parking/controller"
	"github.com/nvr-ai/go-parking/inference"
	"github.com/nvr-ai/go-parking/metrics"
	"github.com/nvr-ai/go-parking/models"
	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/nvr-ai/go-parking/monitoring"
	"github.com/nvr-ai/go-parking/occupancy"
	"github.com/nvr-ai/go-parking/regions"
	"github.com/nvr-ai/go-parking/store"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// windowTitle is the title of the visualization window.
const windowTitle = "Parking Occupancy"

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := start(ctx, cfg); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

func start(ctx context.Context, cfg *config.Config) error {
	r, err := initialize(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	return run(ctx, cfg, r)
}

// resources are the collaborators loaded before the first frame is read.
type resources struct {
	detector *inference.Detector
	video    *capture.VideoSource
	registry *regions.Registry
	store    store.Store
}

func (r *resources) Close() {
	if r.video != nil {
		if err := r.video.Close(); err != nil {
			monitoring.Warnf("close video: %v", err)
		}
	}
	if r.detector != nil {
		if err := r.detector.Close(); err != nil {
			monitoring.Warnf("close detector: %v", err)
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			monitoring.Warnf("close store: %v", err)
		}
	}
}

// initialize loads the model, the video, the regions and the store in
// parallel and waits for all of them. Any failure is fatal.
func initialize(ctx context.Context, cfg *config.Config) (*resources, error) {
	r := &resources{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dc := inference.DefaultConfig(cfg.ModelPath)
		dc.LibraryPath = cfg.LibraryPath
		dc.Provider = cfg.Provider
		detector, err := inference.NewDetector(dc)
		if err != nil {
			return errors.Wrap(err, "error loading model")
		}
		r.detector = detector
		monitoring.Infof("model loaded: %s (%s)", cfg.ModelPath, cfg.Provider)
		return nil
	})

	g.Go(func() error {
		video, err := capture.OpenVideo(cfg.VideoURL)
		if err != nil {
			return errors.Wrap(err, "error opening video")
		}
		r.video = video
		return nil
	})

	g.Go(func() error {
		registry, err := regions.Load(cfg.RegionsPath)
		if err != nil {
			return errors.Wrap(err, "error loading regions")
		}
		r.registry = registry
		monitoring.Infof("regions loaded: %d normal, %d handicap",
			registry.Count(regions.Normal), registry.Count(regions.Handicap))
		return nil
	})

	g.Go(func() error {
		s, err := openStore(gctx, cfg)
		if err != nil {
			return errors.Wrap(err, "error opening store")
		}
		r.store = s
		return nil
	})

	if err := g.Wait(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// openStore opens the count store and seeds the configured capacities.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var s store.Store
	if cfg.DBPath == "" {
		monitoring.Warnf("no database configured; counts are kept in memory")
		s = store.NewMemory()
	} else {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		s = db
	}

	spots := store.NewSpots(s)
	seeds := []struct {
		value int
		save  func(context.Context, int) error
		read  func(context.Context) (int, error)
		name  string
	}{
		{cfg.TotalSpots, spots.SaveTotalSpots, spots.TotalSpots, "total spots"},
		{cfg.TotalHandicapSpots, spots.SaveTotalHandicapSpots, spots.TotalHandicapSpots, "total handicap spots"},
	}
	for _, seed := range seeds {
		if seed.value != config.Unset {
			if err := seed.save(ctx, seed.value); err != nil {
				s.Close()
				return nil, err
			}
		}
		n, err := seed.read(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			monitoring.Warnf("%s not configured; availability is not published until it is set", seed.name)
		case err != nil:
			s.Close()
			return nil, err
		default:
			monitoring.Infof("%s: %d", seed.name, n)
		}
	}
	return s, nil
}

func run(ctx context.Context, cfg *config.Config, r *resources) error {
	filterConfig := postprocess.DefaultFilterConfig()
	filterConfig.MinConfidence = float32(cfg.Confidence)
	filterConfig.OverlapThreshold = float32(cfg.Overlap)
	filter, err := postprocess.NewFilter(filterConfig)
	if err != nil {
		return err
	}

	classifier, err := occupancy.NewClassifier(r.registry, occupancy.DefaultPriority...)
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			monitoring.Infof("serving metrics on %s/metrics", cfg.MetricsAddr)
			if err := m.StartServer(ctx, cfg.MetricsAddr); err != nil {
				monitoring.Errorf("%v", err)
			}
		}()
	}

	var observers []controller.Observer
	if cfg.ShowWindow {
		display := capture.NewDisplay(windowTitle, r.registry)
		defer display.Close()
		observers = append(observers, display)
	}

	c, err := controller.New(controller.Config{
		Detector:   r.detector,
		Filter:     filter,
		Classifier: classifier,
		Publisher:  occupancy.NewPublisher(r.store),
		Interval:   cfg.Interval,
		Observers:  observers,
		Recorder:   m,
	})
	if err != nil {
		return err
	}

	monitoring.Infof("watching for %v every %s", models.VehicleClasses, cfg.Interval)
	return c.Run(ctx, r.video)
}
