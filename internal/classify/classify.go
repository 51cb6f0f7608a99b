// Package classify decides whether a camera frame contains one of the
// tracked object categories.
//
// A Detector filters the raw results of an inference Backend by category and
// confidence. Backends wrap a concrete inference engine; the TFLite backends
// are only compiled with the "tflite" build tag because they need cgo and
// libtensorflowlite_c.
package classify

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// ErrClassification is the sentinel wrapped by every classification failure.
var ErrClassification = errors.New("classification failed")

// Error describes a failed classification.
type Error struct {
	Op  string // "input", "shape", "infer", "output"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("classify %s: %v", e.Op, e.Err)
}

// Unwrap returns both the cause and ErrClassification.
func (e *Error) Unwrap() []error {
	return []error{ErrClassification, e.Err}
}

// Classifier reports whether a frame contains a tracked category.
type Classifier interface {
	Detect(img image.Image) (bool, error)
}

// Detection is one raw backend result.
type Detection struct {
	Class int
	Score float32
}

// Backend runs a model on a frame. Implementations resize and convert the
// frame to whatever their model expects.
type Backend interface {
	Infer(img image.Image) ([]Detection, error)
	Close() error
}

// Detector implements Classifier on top of a Backend.
type Detector struct {
	mu        sync.Mutex
	backend   Backend
	classes   ClassSet
	threshold float32
}

// NewDetector creates a Detector that reports a positive when any detection
// belongs to classes with a score strictly above threshold.
func NewDetector(backend Backend, classes ClassSet, threshold float32) (*Detector, error) {
	if backend == nil {
		return nil, errors.New("classify: nil backend")
	}
	if len(classes) == 0 {
		return nil, errors.New("classify: empty class set")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("classify: threshold must be within [0, 1], got %v", threshold)
	}
	return &Detector{backend: backend, classes: classes, threshold: threshold}, nil
}

// Detect runs the backend on img. Backends are not assumed to be safe for
// concurrent use, so calls are serialized.
func (d *Detector) Detect(img image.Image) (bool, error) {
	if img == nil || img.Bounds().Empty() {
		return false, &Error{Op: "shape", Err: errors.New("empty frame")}
	}

	d.mu.Lock()
	detections, err := d.backend.Infer(img)
	d.mu.Unlock()
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			return false, err
		}
		return false, &Error{Op: "infer", Err: err}
	}
	return d.Match(detections), nil
}

// Match reports whether any detection clears both the class and score filters.
func (d *Detector) Match(detections []Detection) bool {
	for _, det := range detections {
		if det.Score > d.threshold && d.classes.Contains(det.Class) {
			return true
		}
	}
	return false
}

// Close releases the backend.
func (d *Detector) Close() error {
	return d.backend.Close()
}
