// Command regions draws the parking regions and their centroids over a frame
// so region definitions can be checked against the camera view.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/nvr-ai/go-parking/capture"
	"github.com/nvr-ai/go-parking/config"
	"github.com/nvr-ai/go-parking/regions"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func main() {
	var (
		regionsPath string
		imagePath   string
		videoURL    string
		outputPath  string
		show        bool
	)
	flag.StringVar(&regionsPath, "regions", config.DefaultRegionsPath, "Parking region definitions (.json, .yaml)")
	flag.StringVar(&imagePath, "image", "", "Draw over this image file")
	flag.StringVar(&videoURL, "video", os.Getenv(config.EnvVideoURL), "Draw over the first frame of this video")
	flag.StringVar(&outputPath, "out", "regions_preview.png", "Where to write the annotated frame")
	flag.BoolVar(&show, "show-window", false, "Show the annotated frame until a key is pressed")
	flag.Parse()

	registry, err := regions.Load(regionsPath)
	if err != nil {
		log.Fatalf("error loading regions: %v", err)
	}

	for _, c := range regions.Categories {
		for i, r := range registry.Regions(c) {
			fmt.Printf("%-8s #%d  vertices=%d  centroid=%v\n", c, i, len(r.Polygon), r.Centroid)
		}
	}

	frame, err := grab(imagePath, videoURL)
	if err != nil {
		log.Fatalf("error reading frame: %v", err)
	}

	annotated, err := capture.Annotate(frame, registry, nil, nil)
	if err != nil {
		log.Fatalf("error drawing regions: %v", err)
	}
	defer annotated.Close()

	if ok := gocv.IMWrite(outputPath, annotated); !ok {
		log.Fatalf("error writing %s", outputPath)
	}
	fmt.Printf("wrote %s\n", outputPath)

	if show {
		window := gocv.NewWindow("Parking Regions")
		defer window.Close()
		window.IMShow(annotated)
		window.WaitKey(0)
	}
}

// grab returns the image to draw on: the image file if given, otherwise the
// first frame of the video.
func grab(imagePath, videoURL string) (image.Image, error) {
	if imagePath != "" {
		mat := gocv.IMRead(imagePath, gocv.IMReadColor)
		defer mat.Close()
		if mat.Empty() {
			return nil, errors.Errorf("cannot read image %s", imagePath)
		}
		return mat.ToImage()
	}

	if videoURL == "" {
		return nil, errors.New("either -image or -video is required")
	}
	video, err := capture.OpenVideo(videoURL)
	if err != nil {
		return nil, err
	}
	defer video.Close()

	f, err := video.Next(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "no frame in video")
	}
	return f.Decode()
}
