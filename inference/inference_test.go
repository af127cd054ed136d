package inference

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/go-parking/images"
	"github.com/nvr-ai/go-parking/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type anchor struct {
	cx, cy, w, h float32
	scores       []float32
}

// headOutput lays anchors out channel-major, the way a YOLOv8 export does.
func headOutput(numClasses int, anchors []anchor) []float32 {
	n := len(anchors)
	out := make([]float32, (boxFields+numClasses)*n)
	for i, a := range anchors {
		out[0*n+i] = a.cx
		out[1*n+i] = a.cy
		out[2*n+i] = a.w
		out[3*n+i] = a.h
		for c, s := range a.scores {
			out[(boxFields+c)*n+i] = s
		}
	}
	return out
}

func decodeConfig(numClasses, anchors int) DecodeConfig {
	return DecodeConfig{
		NumClasses: numClasses,
		Anchors:    anchors,
		InputSize:  image.Pt(640, 640),
		FrameSize:  image.Pt(1280, 1280),
		MinScore:   0.1,
		NMS:        postprocess.DefaultNMSConfig(),
	}
}

func TestDecodeYOLOv8(t *testing.T) {
	anchors := []anchor{
		{cx: 100, cy: 100, w: 20, h: 40, scores: []float32{0.1, 0.9, 0.2}},
		{cx: 102, cy: 100, w: 20, h: 40, scores: []float32{0.0, 0.8, 0.0}},
		{cx: 300, cy: 300, w: 40, h: 40, scores: []float32{0.05, 0.0, 0.0}},
		{cx: 500, cy: 100, w: 20, h: 20, scores: []float32{0.0, 0.0, 0.95}},
	}
	output := headOutput(3, anchors)
	want := append([]float32(nil), output...)

	results, err := DecodeYOLOv8(output, decodeConfig(3, len(anchors)))
	require.NoError(t, err)
	assert.Equal(t, want, output, "raw output must not be modified")

	require.Len(t, results, 2)

	assert.Equal(t, 2, results[0].Class)
	assert.InDelta(t, 0.95, results[0].Score, 1e-6)

	assert.Equal(t, 1, results[1].Class)
	assert.InDelta(t, 0.9, results[1].Score, 1e-6)
	assert.Equal(t, images.Rect{X1: 180, Y1: 160, X2: 220, Y2: 240}, results[1].Box)
}

func TestDecodeYOLOv8_ClassAwareSuppression(t *testing.T) {
	anchors := []anchor{
		{cx: 100, cy: 100, w: 20, h: 40, scores: []float32{0.0, 0.9}},
		{cx: 102, cy: 100, w: 20, h: 40, scores: []float32{0.8, 0.0}},
	}

	results, err := DecodeYOLOv8(headOutput(2, anchors), decodeConfig(2, len(anchors)))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Class)
	assert.Equal(t, 0, results[1].Class)
}

func TestDecodeYOLOv8_ClampsToFrame(t *testing.T) {
	anchors := []anchor{
		{cx: 5, cy: 635, w: 20, h: 20, scores: []float32{0.9}},
	}
	cfg := decodeConfig(1, 1)
	cfg.FrameSize = image.Pt(640, 640)

	results, err := DecodeYOLOv8(headOutput(1, anchors), cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, images.Rect{X1: 0, Y1: 625, X2: 15, Y2: 640}, results[0].Box)
}

func TestDecodeYOLOv8_Errors(t *testing.T) {
	tests := []struct {
		name   string
		output []float32
		cfg    DecodeConfig
	}{
		{"Wrong length", make([]float32, 10), decodeConfig(3, 4)},
		{"No classes", make([]float32, 16), decodeConfig(0, 4)},
		{"No input size", make([]float32, 28), DecodeConfig{NumClasses: 3, Anchors: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYOLOv8(tt.output, tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestDecodeYOLOv8_Empty(t *testing.T) {
	anchors := []anchor{{cx: 10, cy: 10, w: 5, h: 5, scores: []float32{0.01}}}
	results, err := DecodeYOLOv8(headOutput(1, anchors), decodeConfig(1, 1))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPrepareInput(t *testing.T) {
	size := image.Pt(4, 4)
	dst := make([]float32, 3*4*4)

	require.NoError(t, PrepareInput(solid(4, 4, color.RGBA{R: 255, G: 0, B: 51, A: 255}), size, dst))

	for i := 0; i < 16; i++ {
		assert.Equal(t, float32(1), dst[i])
		assert.Equal(t, float32(0), dst[16+i])
		assert.InDelta(t, 0.2, dst[32+i], 1e-6)
	}
}

func TestPrepareInput_Resizes(t *testing.T) {
	size := image.Pt(8, 6)
	dst := make([]float32, 3*8*6)

	require.NoError(t, PrepareInput(solid(32, 20, color.RGBA{R: 0, G: 255, B: 0, A: 255}), size, dst))

	for i := 0; i < 48; i++ {
		assert.InDelta(t, 0, dst[i], 0.01)
		assert.InDelta(t, 1, dst[48+i], 0.01)
	}
}

func TestPrepareInput_Errors(t *testing.T) {
	img := solid(4, 4, color.White)

	assert.Error(t, PrepareInput(img, image.Pt(4, 4), make([]float32, 10)))
	assert.Error(t, PrepareInput(img, image.Pt(0, 4), make([]float32, 48)))
	assert.Error(t, PrepareInput(nil, image.Pt(4, 4), make([]float32, 48)))
	assert.Error(t, PrepareInput(image.NewRGBA(image.Rectangle{}), image.Pt(4, 4), make([]float32, 48)))
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"cpu", ProviderCPU, false},
		{"CUDA", ProviderCUDA, false},
		{" coreml ", ProviderCoreML, false},
		{"openvino", ProviderOpenVINO, false},
		{"tensorrt", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewDetector_RequiresModel(t *testing.T) {
	_, err := NewDetector(Config{})
	assert.Error(t, err)
}
