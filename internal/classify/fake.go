package classify

import (
	"errors"
	"image"
	"sync"
)

// FakeBackend is a test double that returns scripted results.
type FakeBackend struct {
	mu sync.Mutex

	// Results contains scripted detections; each Infer call consumes the
	// next entry and the last one repeats once exhausted.
	Results [][]Detection

	// Errors, if non-nil at the current index, is returned instead of a result.
	Errors []error

	// Calls counts Infer invocations.
	Calls int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeBackend creates a FakeBackend with the given results.
func NewFakeBackend(results ...[]Detection) *FakeBackend {
	return &FakeBackend{Results: results}
}

// Infer returns the next scripted result.
func (f *FakeBackend) Infer(img image.Image) ([]Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.index
	f.Calls++
	n := len(f.Results)
	if len(f.Errors) > n {
		n = len(f.Errors)
	}
	if f.index < n-1 {
		f.index++
	}

	if i < len(f.Errors) && f.Errors[i] != nil {
		return nil, f.Errors[i]
	}
	if len(f.Results) == 0 {
		return nil, errors.New("no results configured")
	}
	if i >= len(f.Results) {
		i = len(f.Results) - 1
	}
	return f.Results[i], nil
}

// Close marks the backend as closed.
func (f *FakeBackend) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeClassifier returns scripted booleans and errors for Detect.
type FakeClassifier struct {
	mu sync.Mutex

	// Results holds one entry per call; the last repeats once exhausted.
	Results []bool

	// Errors, if non-nil at the current index, is returned instead.
	Errors []error

	// Calls counts Detect invocations.
	Calls int
}

// Detect returns the next scripted result.
func (f *FakeClassifier) Detect(img image.Image) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.Calls
	f.Calls++
	if i < len(f.Errors) && f.Errors[i] != nil {
		return false, f.Errors[i]
	}
	if len(f.Results) == 0 {
		return false, nil
	}
	if i >= len(f.Results) {
		i = len(f.Results) - 1
	}
	return f.Results[i], nil
}

// CallCount returns the number of Detect calls so far.
func (f *FakeClassifier) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
