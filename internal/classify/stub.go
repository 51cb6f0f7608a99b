//go:build !tflite

package classify

import "image"

// SSD is not available without the tflite build tag.
type SSD struct{}

// NewSSD returns ErrNoTFLite.
func NewSSD(opts Options) (*SSD, error) {
	return nil, ErrNoTFLite
}

// Infer is not implemented without the tflite build tag.
func (s *SSD) Infer(img image.Image) ([]Detection, error) {
	return nil, ErrNoTFLite
}

// Close is a no-op.
func (s *SSD) Close() error {
	return nil
}

// ImageClassifier is not available without the tflite build tag.
type ImageClassifier struct{}

// NewImageClassifier returns ErrNoTFLite.
func NewImageClassifier(opts Options) (*ImageClassifier, error) {
	return nil, ErrNoTFLite
}

// Infer is not implemented without the tflite build tag.
func (c *ImageClassifier) Infer(img image.Image) ([]Detection, error) {
	return nil, ErrNoTFLite
}

// Close is a no-op.
func (c *ImageClassifier) Close() error {
	return nil
}
