//go:build !linux

package camera

import (
	"errors"
	"image"
)

// Webcam is not available on non-Linux platforms.
type Webcam struct{}

// NewWebcam returns an error on non-Linux platforms.
func NewWebcam(cfg Config) (*Webcam, error) {
	return nil, errors.New("camera: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (w *Webcam) Read() (image.Image, error) {
	return nil, errors.New("camera: not supported")
}

// Close is not implemented on non-Linux platforms.
func (w *Webcam) Close() error {
	return nil
}
