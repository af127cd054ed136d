package capture

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/go-parking/models"
	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/nvr-ai/go-parking/occupancy"
	"github.com/nvr-ai/go-parking/regions"
	"gocv.io/x/gocv"
)

var (
	green  = color.RGBA{0, 255, 0, 0}
	red    = color.RGBA{255, 0, 0, 0}
	yellow = color.RGBA{255, 255, 0, 0}
	white  = color.RGBA{255, 255, 255, 0}
)

// CategoryColor returns the outline color of a region category.
func CategoryColor(c regions.Category) color.RGBA {
	if c == regions.Handicap {
		return red
	}
	return green
}

// DrawRegions outlines every region and marks its centroid.
func DrawRegions(img *gocv.Mat, registry *regions.Registry) {
	for _, c := range regions.Categories {
		col := CategoryColor(c)
		for _, r := range registry.Regions(c) {
			pts := gocv.NewPointsVectorFromPoints([][]image.Point{r.Polygon})
			gocv.Polylines(img, pts, true, col, 2)
			pts.Close()

			gocv.Circle(img, r.Centroid, 4, col, -1)
		}
	}
}

// DrawResults boxes the accepted detections and labels them with their class.
func DrawResults(img *gocv.Mat, results []postprocess.Result) {
	for _, r := range results {
		box := r.Box.ToRectangle()
		gocv.Rectangle(img, box, yellow, 2)
		gocv.Circle(img, r.Box.Center(), 3, yellow, -1)
		gocv.PutText(img, ResultLabel(r), image.Pt(box.Min.X, box.Min.Y-5),
			gocv.FontHersheyPlain, 1.2, yellow, 2)
	}
}

// DrawReport writes the availability of each category in the top left corner.
func DrawReport(img *gocv.Mat, report *occupancy.Report) {
	for i, line := range ReportLines(report) {
		gocv.PutText(img, line, image.Pt(10, 30+30*i), gocv.FontHersheyPlain, 1.6, white, 2)
	}
}

// ResultLabel is the caption of a detection box.
func ResultLabel(r postprocess.Result) string {
	return fmt.Sprintf("%s %.2f", models.YOLOClasses.NameOrUnknown(r.Class), r.Score)
}

// ReportLines renders a report as one line per category.
func ReportLines(report *occupancy.Report) []string {
	if report == nil {
		return nil
	}
	lines := make([]string, 0, len(report.Availability))
	for _, a := range report.Availability {
		lines = append(lines, fmt.Sprintf("%s: %d free of %d (%d occupied)",
			a.Category, a.Free, a.Total, a.Occupied))
	}
	return lines
}

// Annotate draws regions, detections and the report on a copy of img.
//
// Arguments:
//   - img: The frame.
//   - registry: The parking regions.
//   - results: The accepted detections, may be nil.
//   - report: The availability report, may be nil.
//
// Returns:
//   - gocv.Mat: The annotated frame. The caller must close it.
//   - error: An error if the frame cannot be converted.
func Annotate(img image.Image, registry *regions.Registry, results []postprocess.Result, report *occupancy.Report) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), err
	}
	if registry != nil {
		DrawRegions(&mat, registry)
	}
	DrawResults(&mat, results)
	DrawReport(&mat, report)
	return mat, nil
}
