package classify

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Backend kinds accepted by NewBackend.
const (
	// KindSSD is an SSD-style object detector emitting boxes, classes,
	// scores and a count.
	KindSSD = "ssd"
	// KindClassifier is an image classifier emitting one probability per class.
	KindClassifier = "classifier"
)

// ErrNoTFLite is returned by TFLite constructors in binaries built without
// the "tflite" tag.
var ErrNoTFLite = errors.New("classify: built without tflite support (rebuild with -tags tflite)")

// Options configures a model backend.
type Options struct {
	ModelPath string
	// Threads is the interpreter thread count; 0 uses runtime.NumCPU.
	Threads int
	// ClassOffset is added to every class id the model emits. Stock TFLite
	// COCO SSD models emit 0-based ids (person = 0); an offset of 1 maps them
	// onto COCO label ids (person = 1, dog = 18).
	ClassOffset int
}

// NewBackend opens a model backend of the given kind.
func NewBackend(kind string, opts Options) (Backend, error) {
	if opts.ModelPath == "" {
		return nil, errors.New("classify: model path is required")
	}
	switch kind {
	case KindSSD:
		b, err := NewSSD(opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindClassifier:
		b, err := NewImageClassifier(opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("classify: unknown backend kind %q", kind)
	}
}

// rgbInput resizes img to w x h and returns its pixels as packed RGB bytes
// in row-major order.
func rgbInput(img image.Image, w, h int) []byte {
	resized := imaging.Resize(img, w, h, imaging.Linear)
	out := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+w*4]
		for x := 0; x < w; x++ {
			out = append(out, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return out
}

// normalize scales RGB bytes into dst as floats in [0, 1].
func normalize(rgb []byte, dst []float32) error {
	if len(dst) != len(rgb) {
		return fmt.Errorf("input tensor holds %d values, frame has %d", len(dst), len(rgb))
	}
	for i, v := range rgb {
		dst[i] = float32(v) / 255
	}
	return nil
}

// ssdDetections pairs the classes and scores outputs of an SSD model, honouring
// the reported count and shifting class ids by offset.
func ssdDetections(classes, scores, count []float32, offset int) []Detection {
	n := len(scores)
	if len(classes) < n {
		n = len(classes)
	}
	if len(count) > 0 && int(count[0]) >= 0 && int(count[0]) < n {
		n = int(count[0])
	}

	detections := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		detections = append(detections, Detection{Class: int(classes[i]) + offset, Score: scores[i]})
	}
	return detections
}

// argmax returns the index and value of the largest score.
func argmax(scores []float32) (int, float32) {
	best, bestScore := -1, float32(0)
	for i, s := range scores {
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}
