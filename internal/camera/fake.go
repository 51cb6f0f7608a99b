package camera

import (
	"errors"
	"image"
	"sync"
)

// FakeSource is a test double that returns scripted frames.
type FakeSource struct {
	mu sync.Mutex

	// Frames contains scripted frames. Each Read consumes the next one;
	// the last frame repeats once exhausted.
	Frames []image.Image

	// ReadError, if set, is returned by Read.
	ReadError error

	// Reads counts Read calls.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeSource creates a FakeSource with the given frames.
func NewFakeSource(frames ...image.Image) *FakeSource {
	return &FakeSource{Frames: frames}
}

// Read returns the next scripted frame.
func (f *FakeSource) Read() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if len(f.Frames) == 0 {
		return nil, errors.New("no frames configured")
	}

	frame := f.Frames[f.index]
	if f.index < len(f.Frames)-1 {
		f.index++
	}
	return frame, nil
}

// SetError sets or clears the error returned by Read.
func (f *FakeSource) SetError(err error) {
	f.mu.Lock()
	f.ReadError = err
	f.mu.Unlock()
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsClosed reports whether Close was called.
func (f *FakeSource) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closed
}
