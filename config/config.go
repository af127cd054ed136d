// Package config - Command line and environment configuration.
package config

import (
	"flag"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nvr-ai/go-parking/controller"
	"github.com/nvr-ai/go-parking/inference"
	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/pkg/errors"
)

const (
	// DefaultModelPath is the YOLOv8 ONNX export loaded by default.
	DefaultModelPath = "yolov8x.onnx"
	// DefaultRegionsPath is the region definition file loaded by default.
	DefaultRegionsPath = "regions.json"
	// DefaultDBPath is the SQLite database holding the spot counts.
	DefaultDBPath = "parking.db"
	// Unset marks a capacity that is not seeded at startup.
	Unset = -1
)

// Environment variables read as fallbacks for the flags.
const (
	EnvVideoURL           = "SECURE_URL"
	EnvModelPath          = "PARKING_MODEL"
	EnvLibraryPath        = "ONNXRUNTIME_LIB"
	EnvProvider           = "PARKING_PROVIDER"
	EnvRegionsPath        = "PARKING_REGIONS"
	EnvDBPath             = "PARKING_DB"
	EnvInterval           = "PARKING_INTERVAL"
	EnvConfidence         = "PARKING_CONFIDENCE"
	EnvOverlap            = "PARKING_OVERLAP"
	EnvTotalSpots         = "PARKING_TOTAL_SPOTS"
	EnvTotalHandicapSpots = "PARKING_TOTAL_HANDICAP_SPOTS"
	EnvMetricsAddr        = "PARKING_METRICS_ADDR"
	EnvShowWindow         = "PARKING_SHOW_WINDOW"
)

// Config is the process configuration.
type Config struct {
	// VideoURL is the stream or file the frames are read from.
	VideoURL    string
	ModelPath   string
	LibraryPath string
	Provider    inference.Provider
	RegionsPath string
	// DBPath is the SQLite database. Empty keeps counts in memory only.
	DBPath     string
	Interval   time.Duration
	Confidence float64
	Overlap    float64
	// TotalSpots and TotalHandicapSpots are written to the store at startup
	// unless Unset.
	TotalSpots         int
	TotalHandicapSpots int
	// MetricsAddr serves Prometheus metrics when not empty.
	MetricsAddr string
	ShowWindow  bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ModelPath:          DefaultModelPath,
		Provider:           inference.ProviderCPU,
		RegionsPath:        DefaultRegionsPath,
		DBPath:             DefaultDBPath,
		Interval:           controller.DefaultInterval,
		Confidence:         postprocess.DefaultMinConfidence,
		Overlap:            postprocess.DefaultOverlapThreshold,
		TotalSpots:         Unset,
		TotalHandicapSpots: Unset,
	}
}

// Load builds the configuration from defaults, then the environment, then
// args. Later sources win.
//
// Arguments:
//   - name: The program name used in usage output.
//   - args: The command line arguments, without the program name.
//   - getenv: Looks up an environment variable, usually os.Getenv.
//   - output: Where usage and flag errors are written.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if a value cannot be parsed or is invalid. flag.ErrHelp
//     is returned as-is when -h is given.
func Load(name string, args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	provider := string(cfg.Provider)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.VideoURL, "video", cfg.VideoURL, "Video stream URL or file (env "+EnvVideoURL+")")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Path to YOLOv8 ONNX model file")
	fs.StringVar(&cfg.LibraryPath, "onnxruntime-lib", cfg.LibraryPath, "Path to the ONNX Runtime shared library")
	fs.StringVar(&provider, "provider", provider, "Execution provider (cpu, cuda, coreml, openvino)")
	fs.StringVar(&cfg.RegionsPath, "regions", cfg.RegionsPath, "Parking region definitions (.json, .yaml)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database for spot counts; empty keeps them in memory")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Minimum time between processed frames")
	fs.Float64Var(&cfg.Confidence, "confidence", cfg.Confidence, "Minimum vehicle detection confidence")
	fs.Float64Var(&cfg.Overlap, "overlap", cfg.Overlap, "Overlap ratio at which two boxes are the same vehicle")
	fs.IntVar(&cfg.TotalSpots, "total-spots", cfg.TotalSpots, "Seed the number of normal spots (-1 keeps the stored value)")
	fs.IntVar(&cfg.TotalHandicapSpots, "total-handicap-spots", cfg.TotalHandicapSpots, "Seed the number of handicap spots (-1 keeps the stored value)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.BoolVar(&cfg.ShowWindow, "show-window", cfg.ShowWindow, "Show visualization window")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %v", fs.Args())
	}

	p, err := inference.ParseProvider(provider)
	if err != nil {
		return nil, err
	}
	cfg.Provider = p

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.VideoURL) == "":
		return errors.Errorf("a video source is required (-video or %s)", EnvVideoURL)
	case c.ModelPath == "":
		return errors.New("a model path is required")
	case c.RegionsPath == "":
		return errors.New("a region definition path is required")
	case c.Interval <= 0:
		return errors.Errorf("interval must be positive, got %s", c.Interval)
	case c.Confidence < 0 || c.Confidence > 1:
		return errors.Errorf("confidence must be in [0, 1], got %g", c.Confidence)
	case c.Overlap <= 0 || c.Overlap > 1:
		return errors.Errorf("overlap must be in (0, 1], got %g", c.Overlap)
	case c.TotalSpots < Unset || c.TotalHandicapSpots < Unset:
		return errors.New("spot totals must be -1 (unset) or non-negative")
	}
	if _, err := inference.ParseProvider(string(c.Provider)); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}

	strs := map[string]*string{
		EnvVideoURL:    &c.VideoURL,
		EnvModelPath:   &c.ModelPath,
		EnvLibraryPath: &c.LibraryPath,
		EnvRegionsPath: &c.RegionsPath,
		EnvDBPath:      &c.DBPath,
		EnvMetricsAddr: &c.MetricsAddr,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv(EnvProvider); v != "" {
		c.Provider = inference.Provider(v)
	}

	if v := getenv(EnvInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvInterval)
		}
		c.Interval = d
	}

	floats := map[string]*float64{
		EnvConfidence: &c.Confidence,
		EnvOverlap:    &c.Overlap,
	}
	for key, dst := range floats {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.Wrapf(err, "parse %s", key)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		EnvTotalSpots:         &c.TotalSpots,
		EnvTotalHandicapSpots: &c.TotalHandicapSpots,
	}
	for key, dst := range ints {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "parse %s", key)
			}
			*dst = n
		}
	}

	if v := getenv(EnvShowWindow); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvShowWindow)
		}
		c.ShowWindow = b
	}

	return nil
}
