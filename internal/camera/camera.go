// Package camera provides frame acquisition with hardware abstraction.
// The real implementation uses a V4L2 webcam via pion/mediadevices.
// The fake implementation allows testing without hardware.
package camera

import (
	"errors"
	"image"
)

// ErrNoFrame is returned by Latest.Read when no frame arrived since the
// previous read.
var ErrNoFrame = errors.New("camera: no new frame")

// Source produces frames.
type Source interface {
	// Read returns the next frame. The returned image is owned by the caller.
	Read() (image.Image, error)

	// Close releases the device.
	Close() error
}

// Config selects and shapes the capture device.
type Config struct {
	Index  int // nth video input, in driver enumeration order
	Width  int
	Height int
	FPS    float32
}
